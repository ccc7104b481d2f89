// Package workers runs background tasks on a fixed set of goroutines.
//
// Tasks are queued without bound and only handed to workers when the owner
// calls Pump, normally once per frame.
package workers

import (
	"log"
	"sync"
	"sync/atomic"
)

// Task is a unit of background work. Results travel through the closure.
type Task func()

// Handle tracks one submitted task.
type Handle struct {
	done chan struct{}
	ran  atomic.Bool
	once sync.Once
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

func (h *Handle) finish(ran bool) {
	h.once.Do(func() {
		h.ran.Store(ran)
		close(h.done)
	})
}

// Done is closed once the task has run or has been discarded by Shutdown.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Completed reports, without blocking, whether the task body has finished.
func (h *Handle) Completed() bool {
	select {
	case <-h.done:
		return h.ran.Load()
	default:
		return false
	}
}

// Discarded reports whether the pool shut down before running the task.
func (h *Handle) Discarded() bool {
	select {
	case <-h.done:
		return !h.ran.Load()
	default:
		return false
	}
}

// Wait blocks until the handle resolves and reports whether the task ran.
func (h *Handle) Wait() bool {
	<-h.done
	return h.ran.Load()
}

type job struct {
	task   Task
	handle *Handle
}

// Pool is a fixed-size worker pool.
type Pool struct {
	mu     sync.Mutex
	queue  []job
	closed bool

	idle   chan int
	assign []chan job
	stop   chan struct{}
	wg     sync.WaitGroup

	busy atomic.Int32
}

// NewPool spawns workers goroutines. At least one worker is always started.
func NewPool(workers int) *Pool {
	workers = max(workers, 1)
	p := &Pool{
		idle:   make(chan int, workers),
		assign: make([]chan job, workers),
		stop:   make(chan struct{}),
	}

	for i := 0; i < workers; i++ {
		p.assign[i] = make(chan job, 1)
		p.idle <- i
		p.wg.Add(1)
		go p.worker(i)
	}

	log.Printf("workers: pool started with %d workers", workers)
	return p
}

// Submit queues task and returns its handle. Submitting to a pool that has
// been shut down returns an already discarded handle.
func (p *Pool) Submit(task Task) *Handle {
	h := newHandle()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		h.finish(false)
		return h
	}
	p.queue = append(p.queue, job{task: task, handle: h})
	return h
}

// Pump hands queued tasks to free workers in FIFO order and returns how many
// were dispatched. It never blocks.
func (p *Pool) Pump() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0
	}

	dispatched := 0
	for len(p.queue) > 0 {
		select {
		case id := <-p.idle:
			j := p.queue[0]
			p.queue[0] = job{}
			p.queue = p.queue[1:]
			p.busy.Add(1)
			p.assign[id] <- j
			dispatched++
		default:
			return dispatched
		}
	}
	return dispatched
}

// Queued returns the number of tasks waiting for a worker.
func (p *Pool) Queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Busy returns the number of workers currently holding a task.
func (p *Pool) Busy() int {
	return int(p.busy.Load())
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.assign)
}

// Shutdown stops the pool. Tasks already handed to a worker finish; tasks
// still queued are discarded. Shutdown blocks until all workers exit.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	discarded := p.queue
	p.queue = nil
	close(p.stop)
	p.mu.Unlock()

	for _, j := range discarded {
		j.handle.finish(false)
	}

	p.wg.Wait()
	log.Printf("workers: pool stopped, %d queued tasks discarded", len(discarded))
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case j := <-p.assign[id]:
			p.run(j)
			p.idle <- id
		case <-p.stop:
			// a task dispatched just before stop still counts as in flight
			select {
			case j := <-p.assign[id]:
				p.run(j)
			default:
			}
			return
		}
	}
}

func (p *Pool) run(j job) {
	defer p.busy.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("workers: task panicked: %v", r)
		}
		j.handle.finish(true)
	}()
	if j.task != nil {
		j.task()
	}
}
