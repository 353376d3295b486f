package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kvanroon/energy-stream-monitor/internal/db"
)

// Repository handles database operations for classified stream readings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertReading stores one classified stream point.
func (r *Repository) InsertReading(ctx context.Context, reading *db.ClassifiedReading) error {
	query := `
		INSERT INTO stream_readings (
			run_id, reading_timestamp, value, is_anomaly,
			score, window_mean, window_std_dev, window_count, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		reading.RunID,
		reading.ReadingTimestamp,
		reading.Value,
		reading.IsAnomaly,
		reading.Score,
		reading.WindowMean,
		reading.WindowStdDev,
		reading.WindowCount,
		time.Now(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert stream reading: %w", err)
	}

	return nil
}

// RecentValues returns the most recent stored values, oldest first, for
// warm-starting the rolling window when consuming a live stream.
func (r *Repository) RecentValues(ctx context.Context, limit int) ([]float64, error) {
	query := `
		SELECT value
		FROM stream_readings
		ORDER BY reading_timestamp DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent values: %w", err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var value float64
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		values = append(values, value)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	// Reverse into chronological order so pushes replay oldest first.
	for i, j := 0, len(values)-1; i < j; i, j = i+1, j-1 {
		values[i], values[j] = values[j], values[i]
	}

	return values, nil
}

// AnomalyCountSince returns how many anomalies were recorded after the given
// time, for operational checks.
func (r *Repository) AnomalyCountSince(ctx context.Context, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM stream_readings
		WHERE is_anomaly AND reading_timestamp >= $1
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count anomalies: %w", err)
	}
	return count, nil
}
