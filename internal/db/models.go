package db

import (
	"time"

	"github.com/google/uuid"
)

// ClassifiedReading is one stream point plus its verdict, as stored in the
// stream_readings table.
type ClassifiedReading struct {
	ID               uuid.UUID
	RunID            uuid.UUID
	ReadingTimestamp time.Time
	Value            float64
	IsAnomaly        bool
	Score            float64
	WindowMean       float64
	WindowStdDev     float64
	WindowCount      int
	CreatedAt        time.Time
}
