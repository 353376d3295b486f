package stats_test

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/kvanroon/energy-stream-monitor/internal/stats"
)

func TestNewWindow_CapacityTooSmall(t *testing.T) {
	if _, err := stats.NewWindow(1, 0); err == nil {
		t.Error("Expected error for capacity 1")
	}
	if _, err := stats.NewWindow(0, 0); err == nil {
		t.Error("Expected error for capacity 0")
	}
}

func TestPush_RejectsNonFinite(t *testing.T) {
	w, err := stats.NewWindow(4, 0)
	if err != nil {
		t.Fatalf("Failed to create window: %v", err)
	}

	if err := w.Push(math.NaN()); err == nil {
		t.Error("Expected error pushing NaN")
	}
	if err := w.Push(math.Inf(1)); err == nil {
		t.Error("Expected error pushing +Inf")
	}
	if w.Count() != 0 {
		t.Errorf("Expected count 0 after rejected pushes, got %d", w.Count())
	}
}

func TestMean_EmptyWindow(t *testing.T) {
	w, _ := stats.NewWindow(4, 0)

	if _, err := w.Mean(); err != stats.ErrEmptyWindow {
		t.Errorf("Expected ErrEmptyWindow, got %v", err)
	}
}

func TestSampleVariance_InsufficientData(t *testing.T) {
	w, _ := stats.NewWindow(4, 0)

	if err := w.Push(10); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	if _, err := w.SampleVariance(); err == nil {
		t.Error("Expected error for variance over a single value")
	} else if !errors.Is(err, stats.ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData, got %v", err)
	}
}

func TestWindow_WarmUpThenSlide(t *testing.T) {
	w, _ := stats.NewWindow(3, 0)

	for _, v := range []float64{1, 2, 3} {
		if err := w.Push(v); err != nil {
			t.Fatalf("Push failed: %v", err)
		}
	}
	if w.Count() != 3 {
		t.Fatalf("Expected count 3 after warm-up, got %d", w.Count())
	}

	mean, err := w.Mean()
	if err != nil {
		t.Fatalf("Mean failed: %v", err)
	}
	if mean != 2 {
		t.Errorf("Expected mean 2, got %f", mean)
	}

	// Sliding: [1,2,3] -> [2,3,4]
	if err := w.Push(4); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if w.Count() != 3 {
		t.Errorf("Expected count to stay at capacity 3, got %d", w.Count())
	}

	mean, _ = w.Mean()
	if mean != 3 {
		t.Errorf("Expected mean 3 after slide, got %f", mean)
	}

	values := w.Values()
	expected := []float64{2, 3, 4}
	for i, v := range expected {
		if values[i] != v {
			t.Errorf("Expected values %v, got %v", expected, values)
			break
		}
	}
}

func TestWindow_CountNeverExceedsCapacity(t *testing.T) {
	w, _ := stats.NewWindow(5, 0)

	for i := 0; i < 50; i++ {
		if err := w.Push(float64(i)); err != nil {
			t.Fatalf("Push failed: %v", err)
		}
		if w.Count() > 5 {
			t.Fatalf("Count %d exceeds capacity 5 after push %d", w.Count(), i)
		}
		if i >= 4 && w.Count() != 5 {
			t.Fatalf("Count decreased to %d after warm-up completed", w.Count())
		}
	}
}

func TestWindow_AggregatesMatchRecomputation(t *testing.T) {
	w, _ := stats.NewWindow(16, 0)
	rng := rand.New(rand.NewPCG(42, 0))

	for i := 0; i < 500; i++ {
		// Large offset stresses the subtract-large-numbers formulation.
		v := 25_000 + rng.NormFloat64()*500
		if err := w.Push(v); err != nil {
			t.Fatalf("Push failed: %v", err)
		}

		values := w.Values()
		var sum float64
		for _, x := range values {
			sum += x
		}
		directMean := sum / float64(len(values))

		mean, err := w.Mean()
		if err != nil {
			t.Fatalf("Mean failed: %v", err)
		}
		if relDiff(mean, directMean) > 1e-9 {
			t.Fatalf("Mean diverged at push %d: incremental %v, direct %v", i, mean, directMean)
		}

		if len(values) < 2 {
			continue
		}
		var sq float64
		for _, x := range values {
			d := x - directMean
			sq += d * d
		}
		directVariance := sq / float64(len(values)-1)

		variance, err := w.SampleVariance()
		if err != nil {
			t.Fatalf("SampleVariance failed: %v", err)
		}
		if relDiff(variance, directVariance) > 1e-6 {
			t.Fatalf("Variance diverged at push %d: incremental %v, direct %v", i, variance, directVariance)
		}
	}
}

func TestWindow_ResyncKeepsAggregatesExact(t *testing.T) {
	// Small resync interval so the resync path runs many times.
	w, _ := stats.NewWindow(8, 10)
	rng := rand.New(rand.NewPCG(7, 0))

	for i := 0; i < 200; i++ {
		if err := w.Push(1000 + rng.Float64()); err != nil {
			t.Fatalf("Push failed: %v", err)
		}
	}

	values := w.Values()
	var sum float64
	for _, x := range values {
		sum += x
	}
	mean, _ := w.Mean()
	if relDiff(mean, sum/float64(len(values))) > 1e-12 {
		t.Errorf("Mean drifted despite resync: %v vs %v", mean, sum/float64(len(values)))
	}
}

func TestStdDev_FlatWindowIsZero(t *testing.T) {
	w, _ := stats.NewWindow(4, 0)
	for i := 0; i < 4; i++ {
		if err := w.Push(10); err != nil {
			t.Fatalf("Push failed: %v", err)
		}
	}

	stdDev, err := w.StdDev()
	if err != nil {
		t.Fatalf("StdDev failed: %v", err)
	}
	if stdDev != 0 {
		t.Errorf("Expected stdDev 0 for flat window, got %v", stdDev)
	}
}

func relDiff(a, b float64) float64 {
	if a == b {
		return 0
	}
	denom := math.Max(math.Abs(a), math.Abs(b))
	if denom == 0 {
		return 0
	}
	return math.Abs(a-b) / denom
}
