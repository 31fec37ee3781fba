package detector

import (
	"errors"
	"testing"
)

func TestZScoreInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name   string
		window int
		thresh float64
		dims   int
	}{
		{"zero window", 0, 2, 2},
		{"negative window", -5, 2, 2},
		{"zero threshold", 10, 0, 2},
		{"negative threshold", 10, -1.5, 2},
		{"zero dims", 10, 2, 0},
		{"too many dims", 10, 2, 3},
	}
	for _, tt := range tests {
		if _, err := NewZScore(tt.window, tt.thresh, tt.dims); !errors.Is(err, ErrInvalidConfiguration) {
			t.Fatalf("%s: got err=%v want ErrInvalidConfiguration", tt.name, err)
		}
	}
}

func TestZScoreWarmup(t *testing.T) {
	d, err := NewZScore(5, 2, 2)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	// Fewer than window points: always false, even for a wild outlier.
	for i, p := range []Point{{0, 0}, {0, 1}, {0, 2}, {1000, 3}} {
		got, err := d.IsAnomaly(p)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if got {
			t.Fatalf("call %d: anomaly during warm-up", i)
		}
	}
}

func TestZScoreZeroVarianceWindow(t *testing.T) {
	d, err := NewZScore(5, 2, 2)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for i := 0; i < 5; i++ {
		if got, _ := d.IsAnomaly(Point{0, 0}); got {
			t.Fatalf("call %d: identical points flagged", i)
		}
	}
	// History is all zeros in dimension 0; std=0 there guards the
	// decision even though the new value is far away.
	got, err := d.IsAnomaly(Point{50, 0})
	if err != nil {
		t.Fatalf("post warm-up: %v", err)
	}
	if got {
		t.Fatal("zero-variance window must classify as normal")
	}
	if d.Len() != 5 {
		t.Fatalf("zero-variance path must not evict, len=%d", d.Len())
	}
}

func TestZScoreDetectsOutlier(t *testing.T) {
	d, err := NewZScore(6, 2, 1)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, v := range []float64{10, 11, 9, 10.5, 9.5} {
		if got, _ := d.IsAnomaly(Point{v}); got {
			t.Fatalf("warm-up value %g flagged", v)
		}
	}
	got, err := d.IsAnomaly(Point{100})
	if err != nil {
		t.Fatalf("outlier: %v", err)
	}
	if !got {
		t.Fatal("expected outlier to be flagged")
	}
}

func TestZScoreEvictionOscillation(t *testing.T) {
	// Threshold 1.5: with population std over 5 points the largest
	// reachable |z| is sqrt(4)=2, so 2.0 would never fire here.
	d, err := NewZScore(5, 1.5, 1)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	vals := []float64{1, 2, 3, 2, 1, 2, 3, 1, 2, 3}
	for i, v := range vals {
		if _, err := d.IsAnomaly(Point{v}); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	// Past warm-up a normal decision evicts the oldest entry after the
	// insert, so the history sits one below capacity between calls.
	if got := d.Len(); got != 4 {
		t.Fatalf("history len=%d, want 4", got)
	}

	// An anomaly evicts itself instead, leaving the same length.
	if got, _ := d.IsAnomaly(Point{500}); !got {
		t.Fatal("expected anomaly")
	}
	if got := d.Len(); got != 4 {
		t.Fatalf("history len after anomaly=%d, want 4", got)
	}
}

func TestZScoreAnomalyNotRetained(t *testing.T) {
	d, err := NewZScore(4, 1.5, 1)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, v := range []float64{1, 2, 1, 2} {
		d.IsAnomaly(Point{v})
	}
	if got, _ := d.IsAnomaly(Point{300}); !got {
		t.Fatal("expected anomaly")
	}
	for _, p := range d.history {
		if p[0] == 300 {
			t.Fatal("anomalous point retained in history")
		}
	}
}

func TestZScoreInvalidInput(t *testing.T) {
	d, err := NewZScore(5, 2, 2)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := d.IsAnomaly(Point{1}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("got err=%v want ErrInvalidInput", err)
	}
	if d.Len() != 0 {
		t.Fatal("bad input must not touch history")
	}
}

func TestZScoreScenarioConstantWindow(t *testing.T) {
	// window 5, threshold 2: four identical points (warm-up) then a
	// fifth identical point lands on a full zero-spread window.
	d, err := NewZScore(5, 2, 2)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for i := 0; i < 5; i++ {
		got, err := d.IsAnomaly(Point{0, 0})
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if got {
			t.Fatalf("call %d: want false", i)
		}
	}
}

func TestZScoreDeterminism(t *testing.T) {
	run := func() []bool {
		d, err := NewZScore(5, 2.3, 1)
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		vals := []float64{1, 2, 1.5, 2.5, 1, 2, 40, 1.5, 2, 1}
		out := make([]bool, len(vals))
		for i, v := range vals {
			out[i], _ = d.IsAnomaly(Point{v})
		}
		return out
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("call %d: %v vs %v", i, a[i], b[i])
		}
	}
}
