package tracker

import (
	"testing"

	"github.com/google/uuid"
)

// person returns a detection with the person label at the given box
func person(x, y, w, h float32) Object {
	return Object{
		Rect:  NewRect(x, y, w, h),
		Label: 0,
		Prob:  0.9,
	}
}

func TestTrackerKeepsIdentityAcrossFrames(t *testing.T) {

	trk := New(Config{MinHits: 1})

	first := trk.Update([]Object{person(100, 100, 50, 100)})

	if len(first) != 1 {
		t.Fatalf("got %d confirmed tracks; want 1", len(first))
	}

	id := first[0].ID
	num := first[0].Num

	if num != 1 {
		t.Errorf("first track Num = %d; want 1", num)
	}

	second := trk.Update([]Object{person(105, 100, 50, 100)})

	if len(second) != 1 {
		t.Fatalf("got %d confirmed tracks; want 1", len(second))
	}

	if second[0].ID != id {
		t.Errorf("track ID changed across frames: %v then %v", id, second[0].ID)
	}

	if second[0].Num != num {
		t.Errorf("track Num changed across frames: %d then %d", num, second[0].Num)
	}

	if trk.TotalCount() != 1 {
		t.Errorf("TotalCount() = %d; want 1", trk.TotalCount())
	}
}

func TestTrackerTracksTwoPeople(t *testing.T) {

	trk := New(Config{MinHits: 1})

	first := trk.Update([]Object{
		person(0, 0, 50, 100),
		person(500, 0, 50, 100),
	})

	if len(first) != 2 {
		t.Fatalf("got %d confirmed tracks; want 2", len(first))
	}

	ids := map[int]uuid.UUID{
		first[0].Num: first[0].ID,
		first[1].Num: first[1].ID,
	}

	second := trk.Update([]Object{
		person(5, 0, 50, 100),
		person(505, 0, 50, 100),
	})

	if len(second) != 2 {
		t.Fatalf("got %d confirmed tracks; want 2", len(second))
	}

	for _, track := range second {
		if ids[track.Num] != track.ID {
			t.Errorf("track %d changed identity across frames", track.Num)
		}
	}

	if trk.TotalCount() != 2 {
		t.Errorf("TotalCount() = %d; want 2", trk.TotalCount())
	}
}

func TestTrackerConfirmsAfterMinHits(t *testing.T) {

	trk := New(Config{MinHits: 3})

	if got := trk.Update([]Object{person(100, 100, 50, 100)}); len(got) != 0 {
		t.Fatalf("frame 1: got %d confirmed tracks; want 0", len(got))
	}

	if got := trk.Update([]Object{person(102, 100, 50, 100)}); len(got) != 0 {
		t.Fatalf("frame 2: got %d confirmed tracks; want 0", len(got))
	}

	if trk.TotalCount() != 0 {
		t.Errorf("TotalCount() before confirmation = %d; want 0", trk.TotalCount())
	}

	got := trk.Update([]Object{person(104, 100, 50, 100)})

	if len(got) != 1 {
		t.Fatalf("frame 3: got %d confirmed tracks; want 1", len(got))
	}

	if !got[0].Confirmed() {
		t.Error("track not confirmed after three consecutive matches")
	}

	if trk.TotalCount() != 1 {
		t.Errorf("TotalCount() = %d; want 1", trk.TotalCount())
	}
}

func TestTrackerDropsAfterMaxLost(t *testing.T) {

	trk := New(Config{MinHits: 1, MaxLost: 2})

	trk.Update([]Object{person(100, 100, 50, 100)})

	if trk.ActiveCount() != 1 {
		t.Fatalf("ActiveCount() = %d; want 1", trk.ActiveCount())
	}

	// two missed frames keep the track coasting
	trk.Update(nil)
	trk.Update(nil)

	if trk.ActiveCount() != 1 {
		t.Errorf("ActiveCount() after 2 missed frames = %d; want 1", trk.ActiveCount())
	}

	// a third miss exceeds MaxLost
	trk.Update(nil)

	if trk.ActiveCount() != 0 {
		t.Errorf("ActiveCount() after 3 missed frames = %d; want 0", trk.ActiveCount())
	}
}

func TestTrackerCoastingKeepsIdentity(t *testing.T) {

	trk := New(Config{MinHits: 1})

	first := trk.Update([]Object{person(100, 100, 50, 100)})

	if len(first) != 1 {
		t.Fatalf("got %d confirmed tracks; want 1", len(first))
	}

	id := first[0].ID

	trk.Update([]Object{person(110, 100, 50, 100)})

	// detector misses one frame, the track coasts on its motion model
	if got := trk.Update(nil); len(got) != 0 {
		t.Fatalf("missed frame: got %d confirmed tracks; want 0", len(got))
	}

	got := trk.Update([]Object{person(130, 100, 50, 100)})

	if len(got) != 1 {
		t.Fatalf("got %d confirmed tracks after miss; want 1", len(got))
	}

	if got[0].ID != id {
		t.Errorf("identity lost across a missed frame: %v then %v", id, got[0].ID)
	}

	if trk.TotalCount() != 1 {
		t.Errorf("TotalCount() = %d; want 1", trk.TotalCount())
	}
}

func TestTrackerPrefersHighestOverlap(t *testing.T) {

	trk := New(Config{MinHits: 1})

	trk.Update([]Object{person(100, 100, 50, 100)})

	// both detections overlap the track, the nearer one must win
	got := trk.Update([]Object{
		person(102, 100, 50, 100),
		person(120, 100, 50, 100),
	})

	if len(got) != 2 {
		t.Fatalf("got %d confirmed tracks; want 2", len(got))
	}

	var old, opened *Track

	for _, track := range got {
		if track.Num == 1 {
			old = track
		} else {
			opened = track
		}
	}

	if old == nil || opened == nil {
		t.Fatal("expected track numbers 1 and 2")
	}

	if old.Rect().CenterX() > 135 {
		t.Errorf("existing track followed the far detection: center %v",
			old.Rect().CenterX())
	}

	if opened.Rect().CenterX() != 145 {
		t.Errorf("new track center = %v; want 145", opened.Rect().CenterX())
	}
}

func TestTrackerIgnoresOtherLabels(t *testing.T) {

	trk := New(Config{MinHits: 1})

	trk.Update([]Object{person(100, 100, 50, 100)})

	dog := Object{
		Rect:  NewRect(100, 100, 50, 100),
		Label: 16,
		Prob:  0.8,
	}

	got := trk.Update([]Object{dog})

	if len(got) != 1 {
		t.Fatalf("got %d confirmed tracks; want 1", len(got))
	}

	if got[0].Label != 16 {
		t.Errorf("matched a detection to a track of a different label")
	}

	if trk.ActiveCount() != 2 {
		t.Errorf("ActiveCount() = %d; want 2", trk.ActiveCount())
	}
}

func TestTrackerTotalCountMonotone(t *testing.T) {

	trk := New(Config{MinHits: 1, MaxLost: 1})

	trk.Update([]Object{person(100, 100, 50, 100)})

	if trk.TotalCount() != 1 {
		t.Fatalf("TotalCount() = %d; want 1", trk.TotalCount())
	}

	// first person leaves and is dropped
	trk.Update(nil)
	trk.Update(nil)

	if trk.ActiveCount() != 0 {
		t.Fatalf("ActiveCount() = %d; want 0", trk.ActiveCount())
	}

	// total keeps the departed person
	if trk.TotalCount() != 1 {
		t.Errorf("TotalCount() after drop = %d; want 1", trk.TotalCount())
	}

	trk.Update([]Object{person(500, 100, 50, 100)})

	if trk.TotalCount() != 2 {
		t.Errorf("TotalCount() = %d; want 2", trk.TotalCount())
	}
}

func TestTrackerReset(t *testing.T) {

	trk := New(Config{MinHits: 1})

	trk.Update([]Object{
		person(0, 0, 50, 100),
		person(500, 0, 50, 100),
	})

	trk.Reset()

	if trk.ActiveCount() != 0 {
		t.Errorf("ActiveCount() after reset = %d; want 0", trk.ActiveCount())
	}

	if trk.TotalCount() != 0 {
		t.Errorf("TotalCount() after reset = %d; want 0", trk.TotalCount())
	}

	got := trk.Update([]Object{person(100, 100, 50, 100)})

	if len(got) != 1 {
		t.Fatalf("got %d confirmed tracks after reset; want 1", len(got))
	}

	if got[0].Num != 1 {
		t.Errorf("track numbering after reset begins at %d; want 1", got[0].Num)
	}
}
