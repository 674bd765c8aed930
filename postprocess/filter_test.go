package postprocess

import "testing"

// testDetections returns a fixed set of detections for filter tests
func testDetections() []DetectResult {
	return []DetectResult{
		{Class: 0, Box: BoxRect{Left: 0, Top: 0, Right: 100, Bottom: 200},
			Probability: 0.9},
		{Class: 16, Box: BoxRect{Left: 50, Top: 50, Right: 90, Bottom: 90},
			Probability: 0.8},
		{Class: 0, Box: BoxRect{Left: 200, Top: 200, Right: 210, Bottom: 220},
			Probability: 0.45},
	}
}

func TestNewClassFilter(t *testing.T) {

	persons := NewClassFilter(0)(testDetections())

	if len(persons) != 2 {
		t.Fatalf("got %d detections; want 2", len(persons))
	}

	for _, d := range persons {
		if d.Class != 0 {
			t.Errorf("Class = %d; want 0", d.Class)
		}
	}
}

func TestNewClassFilterMultipleClasses(t *testing.T) {

	all := NewClassFilter(0, 16)(testDetections())

	if len(all) != 3 {
		t.Errorf("got %d detections; want 3", len(all))
	}
}

func TestNewScoreFilter(t *testing.T) {

	confident := NewScoreFilter(0.5)(testDetections())

	if len(confident) != 2 {
		t.Fatalf("got %d detections; want 2", len(confident))
	}

	for _, d := range confident {
		if d.Probability < 0.5 {
			t.Errorf("Probability = %v; want >= 0.5", d.Probability)
		}
	}
}

func TestNewAreaFilter(t *testing.T) {

	big := NewAreaFilter(1000)(testDetections())

	if len(big) != 2 {
		t.Fatalf("got %d detections; want 2", len(big))
	}
}
