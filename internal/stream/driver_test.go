package stream_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kvanroon/energy-stream-monitor/internal/stream"
	"go.uber.org/zap"
)

// doubler is a trivial deterministic generator for driver tests.
type doubler struct{}

func (doubler) ValueAt(timestamp float64) float64 { return timestamp * 2 }

func (d doubler) HistoricalRange(start, end, increment float64) ([]stream.Point, error) {
	var points []stream.Point
	for ts := start; ts <= end; ts += increment {
		points = append(points, stream.Point{Timestamp: ts, Value: d.ValueAt(ts)})
	}
	return points, nil
}

type recordingHandler struct {
	mu     sync.Mutex
	seeded []float64
	points []stream.Point
}

func (h *recordingHandler) Seed(values []float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seeded = append(h.seeded, values...)
	return nil
}

func (h *recordingHandler) ProcessPoint(ctx context.Context, point stream.Point) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.points = append(h.points, point)
	return nil
}

func (h *recordingHandler) snapshot() ([]float64, []stream.Point) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]float64(nil), h.seeded...), append([]stream.Point(nil), h.points...)
}

func TestNewDriver_InvalidConfig(t *testing.T) {
	handler := &recordingHandler{}

	_, err := stream.NewDriver(doubler{}, handler, stream.Config{Increment: 0, Delay: time.Millisecond}, zap.NewNop())
	if err == nil {
		t.Error("Expected error for zero increment")
	}

	_, err = stream.NewDriver(doubler{}, handler, stream.Config{Increment: 1, Delay: 0}, zap.NewNop())
	if err == nil {
		t.Error("Expected error for zero delay")
	}
}

func TestDriver_BackfillsThenStreamsInOrder(t *testing.T) {
	handler := &recordingHandler{}
	driver, err := stream.NewDriver(doubler{}, handler, stream.Config{
		Increment:      10,
		Delay:          time.Millisecond,
		StartTimestamp: 100,
		Backfill:       true,
		WindowSize:     5,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := driver.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	seeded, points := handler.snapshot()

	// Backfill covers the 4 grid points before the start: 60, 70, 80, 90.
	if len(seeded) != 4 {
		t.Fatalf("Expected 4 backfilled values, got %d", len(seeded))
	}
	if seeded[0] != 120 || seeded[3] != 180 {
		t.Errorf("Unexpected backfill values: %v", seeded)
	}

	if len(points) == 0 {
		t.Fatal("Expected at least one live point")
	}
	for i, p := range points {
		expectedTS := 100 + float64(i)*10
		if p.Timestamp != expectedTS {
			t.Fatalf("Point %d has timestamp %v, expected %v", i, p.Timestamp, expectedTS)
		}
		if p.Value != p.Timestamp*2 {
			t.Fatalf("Point %d value %v does not match generator", i, p.Value)
		}
	}
}

func TestDriver_StopsOnContextCancel(t *testing.T) {
	handler := &recordingHandler{}
	driver, _ := stream.NewDriver(doubler{}, handler, stream.Config{
		Increment:      1,
		Delay:          time.Millisecond,
		StartTimestamp: 1,
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- driver.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned error on cancel: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Driver did not stop after context cancellation")
	}
}
