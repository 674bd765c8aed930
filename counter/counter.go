// Package counter tracks person count statistics across detection frames,
// smoothing the raw per frame counts with a rolling median so momentary
// detection dropouts do not inflate the totals.
package counter

import (
	"sort"
	"sync"
)

// DefaultWindowSize is the number of raw counts held in the median
// smoothing window
const DefaultWindowSize = 5

// Counter accumulates person count statistics.  Safe for concurrent use,
// the capture loop writes whilst the stream server reads snapshots.
type Counter struct {
	mu sync.Mutex
	// window holds the most recent raw counts for median smoothing
	window []int
	// size is the maximum smoothing window length
	size int
	// previous is the smoothed count of the last update, used for
	// detecting newly arrived persons
	previous int
	// current is the latest smoothed count
	current int
	// total is the cumulative number of persons counted
	total int
	// max is the peak smoothed count seen
	max int
	// frames is the number of detection frames processed
	frames int
	// fps is the latest processing rate, set by the pipeline
	fps float64
}

// Stats is a snapshot of the counter state
type Stats struct {
	// Current is the latest smoothed person count
	Current int `json:"current"`
	// Total is the cumulative number of persons counted
	Total int `json:"total"`
	// Max is the peak smoothed count
	Max int `json:"max"`
	// Frames is the number of detection frames processed
	Frames int `json:"frames"`
	// FPS is the detection processing rate
	FPS float64 `json:"fps"`
}

// New returns a Counter smoothing over a window of the given size.  Sizes
// below one fall back to the DefaultWindowSize.
func New(windowSize int) *Counter {

	if windowSize < 1 {
		windowSize = DefaultWindowSize
	}

	return &Counter{
		size:   windowSize,
		window: make([]int, 0, windowSize),
	}
}

// AddFrame records one processed detection frame
func (c *Counter) AddFrame() {

	c.mu.Lock()
	c.frames++
	c.mu.Unlock()
}

// Update records the raw person count of a detection frame.  Returns the
// smoothed current count and the number of newly counted persons, being
// the positive rise of the smoothed count since the last update.  The
// cumulative total only ever increases by these rises.
func (c *Counter) Update(raw int) (current, newPersons int) {

	c.mu.Lock()
	defer c.mu.Unlock()

	c.push(raw)
	smooth := c.median()

	if smooth > c.max {
		c.max = smooth
	}

	if smooth > c.previous {
		newPersons = smooth - c.previous
		c.total += newPersons
	}

	c.previous = smooth
	c.current = smooth

	return smooth, newPersons
}

// push appends raw to the smoothing window, evicting the oldest value once
// the window is full
func (c *Counter) push(raw int) {

	if len(c.window) == c.size {
		copy(c.window, c.window[1:])
		c.window[len(c.window)-1] = raw
		return
	}

	c.window = append(c.window, raw)
}

// median returns the integer median of the smoothing window.  Even sized
// windows take the truncated mean of the two middle values.
func (c *Counter) median() int {

	n := len(c.window)

	if n == 0 {
		return 0
	}

	sorted := make([]int, n)
	copy(sorted, c.window)
	sort.Ints(sorted)

	if n%2 == 1 {
		return sorted[n/2]
	}

	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// SetFPS records the latest detection processing rate for inclusion in
// snapshots
func (c *Counter) SetFPS(fps float64) {

	c.mu.Lock()
	c.fps = fps
	c.mu.Unlock()
}

// Stats returns a consistent snapshot of the counter state
func (c *Counter) Stats() Stats {

	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Current: c.current,
		Total:   c.total,
		Max:     c.max,
		Frames:  c.frames,
		FPS:     c.fps,
	}
}

// Reset zeroes all counters and clears the smoothing window
func (c *Counter) Reset() {

	c.mu.Lock()
	defer c.mu.Unlock()

	c.window = c.window[:0]
	c.previous = 0
	c.current = 0
	c.total = 0
	c.max = 0
	c.frames = 0
}
