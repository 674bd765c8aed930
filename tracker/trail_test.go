package tracker

import (
	"testing"
)

func TestTrailKeepsRecentPoints(t *testing.T) {

	trail := NewTrail(5)

	track := &Track{Num: 1}

	for i := 0; i < 3; i++ {
		track.rect = NewRect(float32(i*10), 0, 10, 20)
		trail.Add(track)
	}

	got := trail.Points(1)

	want := []Point{{5, 10}, {15, 10}, {25, 10}}

	if len(got) != len(want) {
		t.Fatalf("got %d points; want %d", len(got), len(want))
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("point %d = %v; want %v", i, got[i], want[i])
		}
	}
}

func TestTrailEvictsOldestOverSize(t *testing.T) {

	trail := NewTrail(3)

	track := &Track{Num: 7}

	for i := 0; i < 5; i++ {
		track.rect = NewRect(float32(i*10), 0, 10, 20)
		trail.Add(track)
	}

	got := trail.Points(7)

	if len(got) != 3 {
		t.Fatalf("got %d points; want 3", len(got))
	}

	// the two oldest points are gone
	if got[0] != (Point{25, 10}) {
		t.Errorf("oldest kept point = %v; want {25 10}", got[0])
	}

	if got[2] != (Point{45, 10}) {
		t.Errorf("newest point = %v; want {45 10}", got[2])
	}
}

func TestTrailSeparatesTracks(t *testing.T) {

	trail := NewTrail(5)

	a := &Track{Num: 1, rect: NewRect(0, 0, 10, 20)}
	b := &Track{Num: 2, rect: NewRect(100, 0, 10, 20)}

	trail.Add(a)
	trail.Add(b)

	if got := trail.Points(1); len(got) != 1 || got[0] != (Point{5, 10}) {
		t.Errorf("track 1 points = %v; want [{5 10}]", got)
	}

	if got := trail.Points(2); len(got) != 1 || got[0] != (Point{105, 10}) {
		t.Errorf("track 2 points = %v; want [{105 10}]", got)
	}
}

func TestTrailUnknownTrack(t *testing.T) {

	trail := NewTrail(5)

	if got := trail.Points(99); got != nil {
		t.Errorf("Points(99) = %v; want nil", got)
	}
}

func TestTrailReset(t *testing.T) {

	trail := NewTrail(5)

	trail.Add(&Track{Num: 1, rect: NewRect(0, 0, 10, 20)})
	trail.Reset()

	if got := trail.Points(1); got != nil {
		t.Errorf("Points(1) after reset = %v; want nil", got)
	}
}
