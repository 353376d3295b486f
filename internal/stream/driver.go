package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/kvanroon/energy-stream-monitor/tools/timegrid"
	"go.uber.org/zap"
)

// Point is a single (timestamp, value) observation. Timestamp is epoch
// seconds on the stream's grid; Value is finite under normal operation.
type Point struct {
	Timestamp float64
	Value     float64
}

// Generator produces deterministic values for grid timestamps.
type Generator interface {
	ValueAt(timestamp float64) float64
	HistoricalRange(start, end, increment float64) ([]Point, error)
}

// PointHandler receives each generated point. Seed pre-fills the rolling
// window without classifying or forwarding, so the first live point already
// has a full statistics baseline.
type PointHandler interface {
	ProcessPoint(ctx context.Context, point Point) error
	Seed(values []float64) error
}

// Config holds the driver's iteration parameters.
type Config struct {
	Increment      float64       // grid spacing between points, in seconds
	Delay          time.Duration // wall-clock pause between emitted points
	StartTimestamp float64       // first live timestamp; 0 means "align now"
	Backfill       bool          // pre-fill the window from historical points
	WindowSize     int           // how many points the handler's window holds
}

// Driver owns the iteration order of a simulated stream: it pulls grid
// timestamps in order, asks the generator for each value and forwards the
// point to the handler. The stream is logically infinite; termination is
// controlled entirely through the context.
type Driver struct {
	gen     Generator
	handler PointHandler
	cfg     Config
	logger  *zap.Logger
}

// NewDriver wires a generator to a handler.
func NewDriver(gen Generator, handler PointHandler, cfg Config, logger *zap.Logger) (*Driver, error) {
	if cfg.Increment <= 0 {
		return nil, fmt.Errorf("stream increment must be greater than 0, got %v", cfg.Increment)
	}
	if cfg.Delay <= 0 {
		return nil, fmt.Errorf("stream delay must be greater than 0, got %v", cfg.Delay)
	}
	if cfg.Backfill && cfg.WindowSize < 2 {
		return nil, fmt.Errorf("window size must be at least 2 for backfill, got %d", cfg.WindowSize)
	}
	return &Driver{
		gen:     gen,
		handler: handler,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// Run streams points until the context is cancelled. Handler errors are
// logged and the stream moves on; a single bad step must not kill an
// otherwise healthy stream.
func (d *Driver) Run(ctx context.Context) error {
	start := d.cfg.StartTimestamp
	if start <= 0 {
		aligned, err := timegrid.AlignUp(float64(time.Now().Unix()), d.cfg.Increment)
		if err != nil {
			return fmt.Errorf("failed to align start timestamp: %w", err)
		}
		start = aligned
	}

	if d.cfg.Backfill {
		if err := d.backfill(start); err != nil {
			return fmt.Errorf("failed to backfill window: %w", err)
		}
	}

	d.logger.Info("stream driver started",
		zap.Float64("start_timestamp", start),
		zap.Float64("increment", d.cfg.Increment),
		zap.Duration("delay", d.cfg.Delay),
	)

	ticker := time.NewTicker(d.cfg.Delay)
	defer ticker.Stop()

	timestamp := start
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("stream driver stopped", zap.Float64("last_timestamp", timestamp))
			return nil
		case <-ticker.C:
			point := Point{Timestamp: timestamp, Value: d.gen.ValueAt(timestamp)}
			if err := d.handler.ProcessPoint(ctx, point); err != nil {
				d.logger.Error("failed to process point",
					zap.Error(err),
					zap.Float64("timestamp", point.Timestamp),
					zap.Float64("value", point.Value),
				)
			}
			timestamp += d.cfg.Increment
		}
	}
}

// backfill pushes the windowSize-1 grid points preceding the first live
// timestamp, so the first live point is classified against a full window
// instead of waiting out a warm-up.
func (d *Driver) backfill(start float64) error {
	historyStart := start - float64(d.cfg.WindowSize-1)*d.cfg.Increment
	historyEnd := start - d.cfg.Increment

	points, err := d.gen.HistoricalRange(historyStart, historyEnd, d.cfg.Increment)
	if err != nil {
		return err
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	if err := d.handler.Seed(values); err != nil {
		return err
	}

	d.logger.Info("window backfilled from historical data",
		zap.Int("points", len(values)),
		zap.Float64("from", historyStart),
		zap.Float64("to", historyEnd),
	)
	return nil
}
