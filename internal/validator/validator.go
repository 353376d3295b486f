package validator

import (
	"fmt"
	"math"
	"time"

	"github.com/kvanroon/energy-stream-monitor/tools/timeparser"
)

// Result holds the validation outcome for one ingested reading.
type Result struct {
	IsValid bool
	Reason  string
}

// StreamReading is a raw reading as it arrives on the ingest queue.
type StreamReading struct {
	Date  string
	Value float64
	Meter string
}

// Validator sanity-checks live readings before they reach the rolling window:
// values must be finite and non-negative (energy totals cannot go below zero)
// and timestamps must parse and sit near the arrival time. Invalid readings
// are discarded upstream, never classified.
type Validator struct {
	timestampToleranceMinutes int
}

// NewValidator creates a validator with the specified timestamp tolerance.
func NewValidator(timestampToleranceMinutes int) *Validator {
	return &Validator{
		timestampToleranceMinutes: timestampToleranceMinutes,
	}
}

// ValidateReading validates a single stream reading, returning the parsed
// reading time alongside the verdict.
func (v *Validator) ValidateReading(reading StreamReading, receivedAt time.Time) (time.Time, Result) {
	if math.IsNaN(reading.Value) || math.IsInf(reading.Value, 0) {
		return time.Time{}, Result{Reason: "non-finite value"}
	}

	if reading.Value < 0 {
		return time.Time{}, Result{Reason: "negative value"}
	}

	readingTime, err := timeparser.ParseReadingTimestamp(reading.Date)
	if err != nil {
		return time.Time{}, Result{Reason: fmt.Sprintf("invalid timestamp format: %v", err)}
	}

	if !timeparser.IsWithinTolerance(readingTime, receivedAt, v.timestampToleranceMinutes) {
		return readingTime, Result{Reason: fmt.Sprintf("timestamp outside tolerance window (±%d minutes)", v.timestampToleranceMinutes)}
	}

	return readingTime, Result{IsValid: true}
}
