package counter

import (
	"sync"
	"time"
)

// FPSMeter measures the detection frame processing rate, recomputing the
// rate once every interval frames rather than per frame
type FPSMeter struct {
	mu sync.Mutex
	// interval is the number of ticks between recomputes
	interval int
	// count is the ticks since the last recompute
	count int
	// last is the time of the last recompute
	last time.Time
	// fps is the latest computed rate
	fps float64
}

// NewFPSMeter returns an FPSMeter recomputing the rate every interval
// frames.  Intervals below one fall back to 10.
func NewFPSMeter(interval int) *FPSMeter {

	if interval < 1 {
		interval = 10
	}

	return &FPSMeter{
		interval: interval,
		last:     time.Now(),
	}
}

// Tick records one processed frame.  Returns true when the rate was
// recomputed on this tick.
func (f *FPSMeter) Tick() bool {
	return f.tickAt(time.Now())
}

// tickAt implements Tick against an explicit clock
func (f *FPSMeter) tickAt(now time.Time) bool {

	f.mu.Lock()
	defer f.mu.Unlock()

	f.count++

	if f.count < f.interval {
		return false
	}

	elapsed := now.Sub(f.last).Seconds()

	if elapsed > 0 {
		f.fps = float64(f.count) / elapsed
	}

	f.count = 0
	f.last = now

	return true
}

// FPS returns the last computed rate, zero until the first interval has
// elapsed
func (f *FPSMeter) FPS() float64 {

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.fps
}
