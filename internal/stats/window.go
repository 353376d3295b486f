package stats

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidParameter indicates a bad construction-time parameter or a
	// non-finite value pushed into the window.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrEmptyWindow indicates statistics were requested before any value was pushed.
	ErrEmptyWindow = errors.New("window is empty")
	// ErrInsufficientData indicates fewer than two values are buffered, so the
	// sample variance is undefined.
	ErrInsufficientData = errors.New("insufficient data in window")
)

// Window is a fixed-capacity ring buffer over the most recent values, with
// incrementally maintained sum and sum-of-squares aggregates. Push and the
// statistic queries are all O(1); the window never re-scans its history except
// during a scheduled aggregate resync.
//
// Window is not safe for concurrent use; the owning stream loop is the single
// writer.
type Window struct {
	capacity    int
	resyncEvery uint64
	values      []float64
	idx         int
	count       int
	sum         float64
	sumSquares  float64
	pushes      uint64
}

// NewWindow creates an empty window with the given capacity. Capacity must be
// at least 2 so the sample variance is defined once the window fills.
// resyncEvery forces a full aggregate recomputation every that many pushes to
// cancel accumulated floating-point drift on long-lived streams; 0 disables it.
func NewWindow(capacity int, resyncEvery int) (*Window, error) {
	if capacity < 2 {
		return nil, fmt.Errorf("%w: window capacity must be at least 2, got %d", ErrInvalidParameter, capacity)
	}
	if resyncEvery < 0 {
		return nil, fmt.Errorf("%w: resync interval must not be negative, got %d", ErrInvalidParameter, resyncEvery)
	}
	return &Window{
		capacity:    capacity,
		resyncEvery: uint64(resyncEvery),
		values:      make([]float64, capacity),
	}, nil
}

// Push adds a value. During warm-up the window grows; once full, the oldest
// value is evicted so count stays at capacity. Non-finite values are rejected
// so the aggregates can never be poisoned.
func (w *Window) Push(value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: value must be finite, got %v", ErrInvalidParameter, value)
	}

	if w.count < w.capacity {
		w.values[w.idx] = value
		w.sum += value
		w.sumSquares += value * value
		w.count++
	} else {
		old := w.values[w.idx]
		w.sum += value - old
		w.sumSquares += value*value - old*old
		w.values[w.idx] = value
	}
	w.idx = (w.idx + 1) % w.capacity

	w.pushes++
	if w.resyncEvery > 0 && w.pushes%w.resyncEvery == 0 {
		w.resync()
	}
	return nil
}

// resync recomputes the aggregates from the buffered values.
func (w *Window) resync() {
	var sum, sumSquares float64
	for _, v := range w.values[:w.count] {
		sum += v
		sumSquares += v * v
	}
	w.sum = sum
	w.sumSquares = sumSquares
}

// Count returns the number of buffered values, never exceeding capacity.
func (w *Window) Count() int {
	return w.count
}

// Capacity returns the configured window size.
func (w *Window) Capacity() int {
	return w.capacity
}

// Mean returns the arithmetic mean of the buffered values.
func (w *Window) Mean() (float64, error) {
	if w.count == 0 {
		return 0, ErrEmptyWindow
	}
	return w.sum / float64(w.count), nil
}

// SampleVariance returns the unbiased (n-1 denominator) variance of the
// buffered values. The subtract-large-numbers formulation can lose precision
// for windows with very large offsets; acceptable at the window sizes this
// system runs with, and bounded by the periodic resync.
func (w *Window) SampleVariance() (float64, error) {
	if w.count < 2 {
		return 0, fmt.Errorf("%w: need at least 2 values, have %d", ErrInsufficientData, w.count)
	}
	n := float64(w.count)
	return (w.sumSquares - w.sum*w.sum/n) / (n - 1), nil
}

// StdDev returns the sample standard deviation. The variance is clamped at
// zero first, since floating-point cancellation can leave it slightly negative.
func (w *Window) StdDev() (float64, error) {
	variance, err := w.SampleVariance()
	if err != nil {
		return 0, err
	}
	return math.Sqrt(math.Max(variance, 0)), nil
}

// Values returns a copy of the buffered values, oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, 0, w.count)
	if w.count < w.capacity {
		out = append(out, w.values[:w.count]...)
		return out
	}
	out = append(out, w.values[w.idx:]...)
	out = append(out, w.values[:w.idx]...)
	return out
}
