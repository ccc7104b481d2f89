// Package profiling accumulates per-frame CPU timings by name.
package profiling

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Sample is the accumulated time and call count of one name in a frame.
type Sample struct {
	Name  string
	Total time.Duration
	Calls int
}

var (
	mu     sync.Mutex
	totals = make(map[string]*Sample)
)

// Track returns a stop function that records the elapsed time under name.
// Usage: defer profiling.Track("terrain.Update")()
func Track(name string) func() {
	start := time.Now()
	return func() {
		Add(name, time.Since(start))
	}
}

// Add records d under name.
func Add(name string, d time.Duration) {
	mu.Lock()
	s, ok := totals[name]
	if !ok {
		s = &Sample{Name: name}
		totals[name] = s
	}
	s.Total += d
	s.Calls++
	mu.Unlock()
}

// ResetFrame clears the current totals. Call at the start of each frame.
func ResetFrame() {
	mu.Lock()
	clear(totals)
	mu.Unlock()
}

// Snapshot returns the current samples, slowest first.
func Snapshot() []Sample {
	mu.Lock()
	out := make([]Sample, 0, len(totals))
	for _, s := range totals {
		out = append(out, *s)
	}
	mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// TopN formats the n slowest samples,
// e.g. "terrain.Update:4.2ms, terrain.Relocate:2.1ms(x2)".
func TopN(n int) string {
	samples := Snapshot()
	n = min(n, len(samples))
	parts := make([]string, 0, n)
	for _, s := range samples[:n] {
		part := fmt.Sprintf("%s:%.1fms", s.Name, float64(s.Total.Microseconds())/1000)
		if s.Calls > 1 {
			part += fmt.Sprintf("(x%d)", s.Calls)
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}
