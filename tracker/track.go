package tracker

import (
	"github.com/google/uuid"
)

// Track is one person identity maintained across frames
type Track struct {
	// ID is the globally unique identity of the track
	ID uuid.UUID
	// Num is the sequential display number drawn on screen
	Num int
	// Label is the class label of the tracked object
	Label int
	// Score is the confidence of the most recent matched detection
	Score float32

	// state is the Kalman motion state
	state *MotionState
	// rect is the current bounding box estimate
	rect Rect
	// hits is the number of consecutive matched updates
	hits int
	// lost is the number of consecutive unmatched frames
	lost int
	// confirmed marks the track as established after enough hits
	confirmed bool
}

// newTrack opens a track for an unmatched detection
func newTrack(kf *KalmanFilter, obj Object, num int) *Track {
	return &Track{
		ID:    uuid.New(),
		Num:   num,
		Label: obj.Label,
		Score: obj.Prob,
		state: kf.Initiate(obj.Rect.Xyah()),
		rect:  obj.Rect,
		hits:  1,
	}
}

// Rect returns the current bounding box estimate of the track
func (t *Track) Rect() Rect {
	return t.rect
}

// Confirmed reports whether the track has seen enough consecutive matches
// to be established
func (t *Track) Confirmed() bool {
	return t.confirmed
}

// Hits returns the number of consecutive matched updates
func (t *Track) Hits() int {
	return t.hits
}

// Lost returns the number of consecutive frames the track has gone
// unmatched
func (t *Track) Lost() int {
	return t.lost
}

// predict coasts the track one frame on the motion model
func (t *Track) predict(kf *KalmanFilter) {

	kf.Predict(t.state)
	t.rect = RectFromXyah(t.state.Xyah())
}

// update corrects the track with a matched detection
func (t *Track) update(kf *KalmanFilter, obj Object, minHits int) {

	// kalman correction, fall back to the raw detection box if the
	// correction fails
	if err := kf.Update(t.state, obj.Rect.Xyah()); err == nil {
		t.rect = RectFromXyah(t.state.Xyah())
	} else {
		t.rect = obj.Rect
	}

	t.Score = obj.Prob
	t.hits++
	t.lost = 0

	if t.hits >= minHits {
		t.confirmed = true
	}
}

// miss records an unmatched frame, breaking the consecutive hit streak
func (t *Track) miss() {
	t.lost++
	t.hits = 0
}
