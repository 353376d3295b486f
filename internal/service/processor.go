package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/kvanroon/energy-stream-monitor/internal/anomaly"
	"github.com/kvanroon/energy-stream-monitor/internal/config"
	"github.com/kvanroon/energy-stream-monitor/internal/db"
	"github.com/kvanroon/energy-stream-monitor/internal/logging"
	"github.com/kvanroon/energy-stream-monitor/internal/metrics"
	"github.com/kvanroon/energy-stream-monitor/internal/mq"
	"github.com/kvanroon/energy-stream-monitor/internal/stats"
	"github.com/kvanroon/energy-stream-monitor/internal/stream"
	"github.com/kvanroon/energy-stream-monitor/internal/validator"
	"go.uber.org/zap"
)

// IngestMessage is the envelope arriving on the ingest queue in consume mode.
type IngestMessage struct {
	RequestID  string          `json:"request_id"`
	ReceivedAt time.Time       `json:"received_at"`
	Readings   []StreamReading `json:"readings"`
}

// StreamReading is one raw reading inside an ingest message.
type StreamReading struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
	Meter string  `json:"meter"`
}

// ReadingStore persists classified readings.
type ReadingStore interface {
	InsertReading(ctx context.Context, reading *db.ClassifiedReading) error
}

// EventPublisher forwards classified readings downstream.
type EventPublisher interface {
	PublishClassifiedEvent(ctx context.Context, event mq.ClassifiedEvent, routingKey string) error
}

// Processor runs the per-point pipeline: push into the rolling window,
// classify against the window statistics, persist the verdict and publish it.
// The window is mutated only here, one point at a time.
type Processor struct {
	window     *stats.Window
	classifier *anomaly.Classifier
	validator  *validator.Validator
	store      ReadingStore
	publisher  EventPublisher
	cfg        *config.Config
	logger     *zap.Logger
	runID      uuid.UUID
}

// NewProcessor creates a processor for one stream run.
func NewProcessor(
	window *stats.Window,
	classifier *anomaly.Classifier,
	validator *validator.Validator,
	store ReadingStore,
	publisher EventPublisher,
	cfg *config.Config,
	logger *zap.Logger,
) *Processor {
	runID := uuid.New()
	return &Processor{
		window:     window,
		classifier: classifier,
		validator:  validator,
		store:      store,
		publisher:  publisher,
		cfg:        cfg,
		logger:     logging.WithRunID(logger, runID.String()),
		runID:      runID,
	}
}

// RunID identifies this stream session on rows and events.
func (p *Processor) RunID() uuid.UUID {
	return p.runID
}

// Seed pushes historical values into the window without classifying,
// persisting or publishing them. Used for backfill and warm starts.
func (p *Processor) Seed(values []float64) error {
	for _, v := range values {
		if err := p.window.Push(v); err != nil {
			return fmt.Errorf("failed to seed window: %w", err)
		}
	}
	return nil
}

// ProcessPoint classifies one stream point. Non-finite values are discarded
// with a warning rather than failing the stream; a persistence failure is
// returned so the caller can retry or dead-letter the point.
func (p *Processor) ProcessPoint(ctx context.Context, point stream.Point) error {
	started := time.Now()

	if math.IsNaN(point.Value) || math.IsInf(point.Value, 0) {
		p.logger.Warn("invalid value received, discarding",
			zap.Float64("timestamp", point.Timestamp),
		)
		metrics.PointsDiscarded.WithLabelValues("non_finite").Inc()
		return nil
	}

	if err := p.window.Push(point.Value); err != nil {
		return fmt.Errorf("failed to push value into window: %w", err)
	}

	// The window already contains the value, so the verdict is judged against
	// statistics that include it.
	verdict := p.classifier.Classify(p.window, point.Value)

	metrics.PointsProcessed.Inc()
	metrics.CurrentScore.Set(verdict.Score)
	metrics.WindowFill.Set(float64(p.window.Count()))
	if verdict.IsAnomaly {
		metrics.AnomaliesDetected.Inc()
	}

	readingTime := time.Unix(int64(point.Timestamp), 0).UTC()

	reading := &db.ClassifiedReading{
		RunID:            p.runID,
		ReadingTimestamp: readingTime,
		Value:            point.Value,
		IsAnomaly:        verdict.IsAnomaly,
		Score:            verdict.Score,
		WindowMean:       verdict.Mean,
		WindowStdDev:     verdict.StdDev,
		WindowCount:      p.window.Count(),
	}
	if err := p.store.InsertReading(ctx, reading); err != nil {
		p.logger.Error("failed to persist classified reading", zap.Error(err))
		return fmt.Errorf("failed to persist classified reading: %w", err)
	}

	event := mq.ClassifiedEvent{
		RunID:            p.runID.String(),
		ReadingTimestamp: readingTime.Format(time.RFC3339),
		Value:            point.Value,
		IsAnomaly:        verdict.IsAnomaly,
		Score:            verdict.Score,
		WindowMean:       verdict.Mean,
		WindowStdDev:     verdict.StdDev,
	}
	if err := p.publisher.PublishClassifiedEvent(ctx, event, p.cfg.RabbitMQ.EventsRoutingKey); err != nil {
		// Downstream consumers can re-read from the store; the stream itself
		// keeps going.
		p.logger.Error("failed to publish classified event", zap.Error(err))
	}

	if verdict.IsAnomaly {
		p.logger.Info("anomaly detected",
			zap.Float64("timestamp", point.Timestamp),
			zap.Float64("value", point.Value),
			zap.Float64("score", verdict.Score),
			zap.Float64("window_mean", verdict.Mean),
			zap.Float64("window_std_dev", verdict.StdDev),
		)
	} else {
		p.logger.Debug("point classified",
			zap.Float64("timestamp", point.Timestamp),
			zap.Float64("value", point.Value),
			zap.Float64("score", verdict.Score),
		)
	}

	metrics.StepDuration.Observe(time.Since(started).Seconds())
	return nil
}

// ProcessMessage handles one raw ingest message in consume mode: unmarshal,
// validate each reading, then run the valid ones through the point pipeline.
func (p *Processor) ProcessMessage(ctx context.Context, body []byte) error {
	var msg IngestMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	receivedAt := msg.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	msgLogger := p.logger.With(zap.String("request_id", msg.RequestID))
	msgLogger.Info("processing ingest message", zap.Int("readings", len(msg.Readings)))

	for _, r := range msg.Readings {
		readingTime, result := p.validator.ValidateReading(validator.StreamReading{
			Date:  r.Date,
			Value: r.Value,
			Meter: r.Meter,
		}, receivedAt)

		if !result.IsValid {
			msgLogger.Warn("invalid reading discarded",
				zap.String("meter", r.Meter),
				zap.String("reason", result.Reason),
			)
			metrics.PointsDiscarded.WithLabelValues("validation").Inc()
			continue
		}

		point := stream.Point{
			Timestamp: float64(readingTime.Unix()),
			Value:     r.Value,
		}
		if err := p.ProcessPoint(ctx, point); err != nil {
			return fmt.Errorf("failed to process reading: %w", err)
		}
	}

	return nil
}
