package counter

import "testing"

func TestUpdateMedianSmoothing(t *testing.T) {

	c := New(5)

	steps := []struct {
		raw         int
		wantCurrent int
		wantNew     int
	}{
		// first person arrives
		{1, 1, 1},
		{1, 1, 0},
		// a spike of five is suppressed by the median
		{5, 1, 0},
		// window [1 1 5 5], even window takes the truncated middle mean
		{5, 3, 2},
		// spike sustained long enough becomes the current count
		{5, 5, 2},
	}

	for i, s := range steps {

		current, newPersons := c.Update(s.raw)

		if current != s.wantCurrent {
			t.Errorf("step %d: current = %d; want %d", i, current,
				s.wantCurrent)
		}

		if newPersons != s.wantNew {
			t.Errorf("step %d: newPersons = %d; want %d", i, newPersons,
				s.wantNew)
		}
	}

	stats := c.Stats()

	if stats.Total != 5 {
		t.Errorf("Total = %d; want 5", stats.Total)
	}

	if stats.Max != 5 {
		t.Errorf("Max = %d; want 5", stats.Max)
	}
}

func TestTotalOnlyAccumulatesRises(t *testing.T) {

	c := New(5)

	for i := 0; i < 5; i++ {
		c.Update(2)
	}

	if stats := c.Stats(); stats.Total != 2 || stats.Current != 2 {
		t.Fatalf("after rises: Stats() = %+v; want Current 2, Total 2", stats)
	}

	// everyone leaves, the total must not move
	for i := 0; i < 5; i++ {
		c.Update(0)
	}

	stats := c.Stats()

	if stats.Current != 0 {
		t.Errorf("Current = %d; want 0", stats.Current)
	}

	if stats.Total != 2 {
		t.Errorf("Total = %d; want unchanged 2", stats.Total)
	}

	// one person returns and is counted again
	for i := 0; i < 5; i++ {
		c.Update(1)
	}

	if stats := c.Stats(); stats.Total != 3 {
		t.Errorf("Total = %d; want 3", stats.Total)
	}
}

func TestWindowEviction(t *testing.T) {

	c := New(3)

	c.Update(1)
	c.Update(1)
	c.Update(1)

	// two high counts push the old low ones out of the window
	c.Update(9)
	current, _ := c.Update(9)

	if current != 9 {
		t.Errorf("current = %d; want 9 after eviction", current)
	}
}

func TestMaxIsMonotone(t *testing.T) {

	c := New(1)

	counts := []int{2, 5, 3, 1, 4}
	wantMax := []int{2, 5, 5, 5, 5}

	for i, raw := range counts {

		c.Update(raw)

		if stats := c.Stats(); stats.Max != wantMax[i] {
			t.Errorf("step %d: Max = %d; want %d", i, stats.Max, wantMax[i])
		}
	}
}

func TestReset(t *testing.T) {

	c := New(5)

	c.AddFrame()
	c.AddFrame()
	c.Update(3)
	c.Update(3)

	c.Reset()

	stats := c.Stats()

	if stats.Current != 0 || stats.Total != 0 || stats.Max != 0 ||
		stats.Frames != 0 {
		t.Errorf("after Reset: Stats() = %+v; want all zero", stats)
	}

	// counting starts over from a clean window
	_, newPersons := c.Update(2)

	if newPersons != 2 {
		t.Errorf("newPersons after Reset = %d; want 2", newPersons)
	}
}

func TestStatsSnapshot(t *testing.T) {

	c := New(1)

	c.AddFrame()
	c.AddFrame()
	c.AddFrame()
	c.Update(2)
	c.SetFPS(12.5)

	stats := c.Stats()

	if stats.Current != 2 {
		t.Errorf("Current = %d; want 2", stats.Current)
	}

	if stats.Frames != 3 {
		t.Errorf("Frames = %d; want 3", stats.Frames)
	}

	if stats.FPS != 12.5 {
		t.Errorf("FPS = %v; want 12.5", stats.FPS)
	}
}

func TestZeroDetectionsGiveZeroCount(t *testing.T) {

	c := New(5)

	current, newPersons := c.Update(0)

	if current != 0 || newPersons != 0 {
		t.Errorf("Update(0) = (%d, %d); want (0, 0)", current, newPersons)
	}
}

func TestWindowSizeFallback(t *testing.T) {

	c := New(0)

	if c.size != DefaultWindowSize {
		t.Errorf("size = %d; want %d", c.size, DefaultWindowSize)
	}
}
