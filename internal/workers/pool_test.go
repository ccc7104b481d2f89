package workers

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// pumpUntil pumps p until cond holds or the deadline passes.
func pumpUntil(p *Pool, cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		p.Pump()
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}

func TestPoolRunsEveryTaskOnce(t *testing.T) {
	p := NewPool(4)
	defer p.Shutdown()

	var flags [10]atomic.Bool
	var runs [10]atomic.Int32
	handles := make([]*Handle, len(flags))
	for i := range flags {
		i := i
		handles[i] = p.Submit(func() {
			runs[i].Add(1)
			flags[i].Store(true)
		})
	}

	ok := pumpUntil(p, func() bool {
		for _, h := range handles {
			if !h.Completed() {
				return false
			}
		}
		return true
	})
	if !ok {
		t.Fatalf("tasks did not complete in time")
	}

	for i := range flags {
		if !flags[i].Load() {
			t.Errorf("flag %d not set", i)
		}
		if n := runs[i].Load(); n != 1 {
			t.Errorf("task %d ran %d times", i, n)
		}
	}
}

func TestPoolNothingRunsWithoutPump(t *testing.T) {
	p := NewPool(2)
	defer p.Shutdown()

	var ran atomic.Bool
	h := p.Submit(func() { ran.Store(true) })
	time.Sleep(20 * time.Millisecond)

	if ran.Load() || h.Completed() {
		t.Fatalf("task ran before Pump")
	}
	if q := p.Queued(); q != 1 {
		t.Errorf("expected 1 queued task, got %d", q)
	}
}

func TestPoolFIFOWithSingleWorker(t *testing.T) {
	p := NewPool(1)
	defer p.Shutdown()

	var mu sync.Mutex
	var order []int
	var last *Handle
	for i := 0; i < 5; i++ {
		i := i
		last = p.Submit(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}

	if !pumpUntil(p, last.Completed) {
		t.Fatalf("tasks did not complete in time")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		if v != i {
			t.Fatalf("expected FIFO order, got %v", order)
		}
	}
}

func TestPoolShutdownDiscardsQueued(t *testing.T) {
	p := NewPool(1)

	release := make(chan struct{})
	started := make(chan struct{})
	inFlight := p.Submit(func() {
		close(started)
		<-release
	})
	p.Pump()
	<-started

	queued := p.Submit(func() {})

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()
	p.Shutdown()

	if !inFlight.Completed() {
		t.Errorf("in-flight task should finish during shutdown")
	}
	if !queued.Discarded() {
		t.Errorf("queued task should be discarded")
	}
	if queued.Wait() {
		t.Errorf("discarded task reported as run")
	}
}

func TestPoolSubmitAfterShutdown(t *testing.T) {
	p := NewPool(2)
	p.Shutdown()
	p.Shutdown()

	h := p.Submit(func() { t.Errorf("task must not run") })
	if !h.Discarded() {
		t.Errorf("expected discarded handle")
	}
	if n := p.Pump(); n != 0 {
		t.Errorf("expected no dispatch after shutdown, got %d", n)
	}
}

func TestPoolRecoversPanickingTask(t *testing.T) {
	p := NewPool(1)
	defer p.Shutdown()

	bad := p.Submit(func() { panic("boom") })
	if !pumpUntil(p, bad.Completed) {
		t.Fatalf("panicking task never resolved")
	}

	var ran atomic.Bool
	good := p.Submit(func() { ran.Store(true) })
	if !pumpUntil(p, good.Completed) || !ran.Load() {
		t.Errorf("worker did not survive panic")
	}
}
