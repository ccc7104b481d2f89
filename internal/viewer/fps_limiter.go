package viewer

import "time"

const (
	idleFPS    = 30
	spinWindow = 200 * time.Microsecond
)

// FPSLimiter paces the frame loop to a fixed rate.
type FPSLimiter struct {
	limit    int
	deadline time.Time
}

// NewFPSLimiter creates a limiter for limit frames per second. Zero disables it.
func NewFPSLimiter(limit int) *FPSLimiter {
	return &FPSLimiter{limit: limit}
}

func (f *FPSLimiter) frameTime(idle bool) time.Duration {
	limit := f.limit
	if idle {
		limit = idleFPS
	}
	if limit <= 0 {
		return 0
	}
	return time.Second / time.Duration(limit)
}

// Wait blocks until the next frame is due. An idle (minimized) window is
// held at a low rate whatever the configured limit.
func (f *FPSLimiter) Wait(idle bool) {
	frame := f.frameTime(idle)
	if frame == 0 {
		f.deadline = time.Time{}
		return
	}

	now := time.Now()
	switch {
	case f.deadline.IsZero():
		f.deadline = now.Add(frame)
	case now.Sub(f.deadline) > frame:
		// fell more than a frame behind; drop the backlog
		f.deadline = now.Add(frame)
	default:
		f.deadline = f.deadline.Add(frame)
	}

	// sleep the coarse part, spin the rest
	if d := time.Until(f.deadline) - spinWindow; d > 0 {
		time.Sleep(d)
	}
	for time.Now().Before(f.deadline) {
	}
}
