// Package tracker maintains person identities across frames by greedy IoU
// association over Kalman-predicted track positions.
package tracker

import (
	"sort"
)

// Config holds the tracker association parameters
type Config struct {
	// IoUThreshold is the minimum overlap required to match a detection
	// to an existing track
	IoUThreshold float32
	// MaxLost is the number of consecutive unmatched frames before a
	// track is dropped
	MaxLost int
	// MinHits is the number of consecutive matches before a track is
	// confirmed
	MinHits int
}

// DefaultConfig returns association parameters suited to person tracking
// at moderate frame rates
func DefaultConfig() Config {
	return Config{
		IoUThreshold: 0.3,
		MaxLost:      15,
		MinHits:      3,
	}
}

// Tracker associates detections across frames.  Not safe for concurrent
// use, drive it from the capture loop only.
type Tracker struct {
	cfg Config
	// kf is the motion model shared by all tracks
	kf *KalmanFilter
	// tracks are all live tracks including tentative and coasting ones
	tracks []*Track
	// nextNum is the display number given to the next opened track
	nextNum int
	// total is the number of tracks confirmed since the last reset
	total int
}

// New returns a Tracker using the given association parameters, zero
// values fall back to the defaults
func New(cfg Config) *Tracker {

	def := DefaultConfig()

	if cfg.IoUThreshold <= 0 {
		cfg.IoUThreshold = def.IoUThreshold
	}

	if cfg.MaxLost < 1 {
		cfg.MaxLost = def.MaxLost
	}

	if cfg.MinHits < 1 {
		cfg.MinHits = def.MinHits
	}

	return &Tracker{
		cfg:     cfg,
		kf:      NewKalmanFilter(1.0/20, 1.0/160),
		nextNum: 1,
	}
}

// pair is one candidate association between a track and a detection
type pair struct {
	track int
	obj   int
	iou   float32
}

// Update advances all tracks one frame and associates the given detections
// with them.  Returns the confirmed tracks matched in this frame.
func (t *Tracker) Update(objects []Object) []*Track {

	// coast every track to its predicted position for this frame
	for _, track := range t.tracks {
		track.predict(t.kf)
	}

	assignment, used := t.associate(objects)

	kept := make([]*Track, 0, len(t.tracks))

	for i, track := range t.tracks {

		if assignment[i] >= 0 {
			wasConfirmed := track.confirmed

			track.update(t.kf, objects[assignment[i]], t.cfg.MinHits)

			if !wasConfirmed && track.confirmed {
				t.total++
			}
		} else {
			track.miss()
		}

		if track.lost <= t.cfg.MaxLost {
			kept = append(kept, track)
		}
	}

	t.tracks = kept

	// open new tracks for the detections left unmatched
	for oi, obj := range objects {

		if used[oi] {
			continue
		}

		track := newTrack(t.kf, obj, t.nextNum)
		t.nextNum++

		if t.cfg.MinHits <= 1 {
			track.confirmed = true
			t.total++
		}

		t.tracks = append(t.tracks, track)
	}

	var confirmed []*Track

	for _, track := range t.tracks {
		if track.confirmed && track.lost == 0 {
			confirmed = append(confirmed, track)
		}
	}

	return confirmed
}

// associate greedily matches detections to tracks by highest IoU.  Returns
// the object index assigned to each track (-1 when unmatched) and which
// objects were used.
func (t *Tracker) associate(objects []Object) ([]int, []bool) {

	assignment := make([]int, len(t.tracks))

	for i := range assignment {
		assignment[i] = -1
	}

	used := make([]bool, len(objects))

	var pairs []pair

	for ti, track := range t.tracks {
		for oi, obj := range objects {

			if obj.Label != track.Label {
				continue
			}

			iou := track.Rect().IoU(obj.Rect)

			if iou >= t.cfg.IoUThreshold {
				pairs = append(pairs, pair{track: ti, obj: oi, iou: iou})
			}
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].iou > pairs[j].iou
	})

	taken := make([]bool, len(t.tracks))

	for _, p := range pairs {

		if taken[p.track] || used[p.obj] {
			continue
		}

		taken[p.track] = true
		used[p.obj] = true
		assignment[p.track] = p.obj
	}

	return assignment, used
}

// TotalCount returns the number of tracks confirmed since the last reset.
// The count never decreases until Reset is called.
func (t *Tracker) TotalCount() int {
	return t.total
}

// ActiveCount returns the number of live tracks
func (t *Tracker) ActiveCount() int {
	return len(t.tracks)
}

// Reset drops all tracks and zeroes the counters
func (t *Tracker) Reset() {
	t.tracks = nil
	t.nextNum = 1
	t.total = 0
}
