package counter

import (
	"math"
	"testing"
	"time"
)

func TestFPSMeterRecomputesEveryInterval(t *testing.T) {

	m := NewFPSMeter(10)

	start := time.Now()
	m.last = start

	// one tick every 100ms, no recompute before the interval fills
	for i := 1; i <= 9; i++ {
		if m.tickAt(start.Add(time.Duration(i) * 100 * time.Millisecond)) {
			t.Fatalf("tick %d recomputed before the interval", i)
		}
	}

	if m.FPS() != 0 {
		t.Errorf("FPS = %v before first interval; want 0", m.FPS())
	}

	if !m.tickAt(start.Add(time.Second)) {
		t.Fatal("tick 10 did not recompute the rate")
	}

	if got := m.FPS(); math.Abs(got-10.0) > 0.01 {
		t.Errorf("FPS = %v; want 10.0", got)
	}
}

func TestFPSMeterSecondInterval(t *testing.T) {

	m := NewFPSMeter(5)

	start := time.Now()
	m.last = start

	// first interval at 10 frames per second
	for i := 1; i <= 5; i++ {
		m.tickAt(start.Add(time.Duration(i) * 100 * time.Millisecond))
	}

	// second interval slows to 5 frames per second
	base := start.Add(500 * time.Millisecond)

	for i := 1; i <= 5; i++ {
		m.tickAt(base.Add(time.Duration(i) * 200 * time.Millisecond))
	}

	if got := m.FPS(); math.Abs(got-5.0) > 0.01 {
		t.Errorf("FPS = %v; want 5.0", got)
	}
}

func TestFPSMeterIntervalFallback(t *testing.T) {

	m := NewFPSMeter(0)

	if m.interval != 10 {
		t.Errorf("interval = %d; want fallback 10", m.interval)
	}
}
