package tracker

import "sync"

// Point is a track centre point in pixel coordinates
type Point struct {
	X, Y int
}

// Trail keeps the recent centre points of each track for drawing motion
// trails
type Trail struct {
	// size is the maximum number of points kept per track
	size int
	// history maps track display numbers to their recent centre points
	history map[int][]Point
	sync.Mutex
}

// NewTrail returns a Trail keeping up to size points per track
func NewTrail(size int) *Trail {
	return &Trail{
		size:    size,
		history: make(map[int][]Point),
	}
}

// Add records the current centre point of the given track
func (t *Trail) Add(track *Track) {

	t.Lock()
	defer t.Unlock()

	r := track.Rect()

	points := append(t.history[track.Num], Point{
		X: int(r.CenterX()),
		Y: int(r.CenterY()),
	})

	// drop the oldest point once over size
	if len(points) > t.size {
		points = points[1:]
	}

	t.history[track.Num] = points
}

// Points returns the recorded centre points for a track display number,
// oldest first
func (t *Trail) Points(num int) []Point {

	t.Lock()
	defer t.Unlock()

	return t.history[num]
}

// Reset clears all recorded history
func (t *Trail) Reset() {

	t.Lock()
	defer t.Unlock()

	t.history = make(map[int][]Point)
}
