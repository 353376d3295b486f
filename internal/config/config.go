package config

import (
	"fmt"
	"os"
	"strconv"
)

const secondsPerDay = 86_400

// Source modes for the stream worker.
const (
	SourceSimulate = "simulate"
	SourceConsume  = "consume"
)

// Config holds all application configuration
type Config struct {
	ServiceName string
	ServicePort int
	Source      string
	Database    DatabaseConfig
	RabbitMQ    RabbitMQConfig
	Window      WindowConfig
	Anomaly     AnomalyConfig
	Simulator   SimulatorConfig
	Stream      StreamConfig
	Validation  ValidationConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// RabbitMQConfig holds RabbitMQ connection and queue settings
type RabbitMQConfig struct {
	URL              string
	IngestExchange   string
	IngestQueue      string
	IngestRoutingKey string
	EventsExchange   string
	EventsRoutingKey string
	DLQQueue         string
	PrefetchCount    int
}

// WindowConfig holds rolling window settings
type WindowConfig struct {
	Size           int
	ResyncInterval int
	MinPoints      int
}

// AnomalyConfig holds anomaly classification settings
type AnomalyConfig struct {
	Threshold float64
}

// SimulatorConfig holds synthetic signal settings. Periods are configured in
// days and converted to seconds, matching the daily timestamp grid.
type SimulatorConfig struct {
	SeasonalAmplitude float64
	SeasonalPeriod    float64
	SeasonalPhase     float64
	RegularAmplitude  float64
	RegularPeriod     float64
	RegularPhase      float64
	NoiseStdDev       float64
	Offset            float64
	Seeded            bool
	Seed              uint64
}

// StreamConfig holds stream iteration settings
type StreamConfig struct {
	IncrementSeconds float64
	DelayMillis      int
	StartTimestamp   float64
	Backfill         bool
}

// ValidationConfig holds ingest validation settings
type ValidationConfig struct {
	TimestampToleranceMinutes int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "energy-stream-monitor"),
		ServicePort: getEnvAsInt("SERVICE_PORT", 8082),
		Source:      getEnv("STREAM_SOURCE", SourceSimulate),
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		RabbitMQ: RabbitMQConfig{
			URL:              getEnv("RABBITMQ_URL", ""),
			IngestExchange:   getEnv("RABBITMQ_INGEST_EXCHANGE", "energy-stream.ingest.exchange"),
			IngestQueue:      getEnv("RABBITMQ_INGEST_QUEUE", "energy-stream.ingest.queue"),
			IngestRoutingKey: getEnv("RABBITMQ_INGEST_ROUTING_KEY", "energy.reading.raw"),
			EventsExchange:   getEnv("RABBITMQ_EVENTS_EXCHANGE", "energy-stream.events.exchange"),
			EventsRoutingKey: getEnv("RABBITMQ_EVENTS_ROUTING_KEY", "energy.reading.classified"),
			DLQQueue:         getEnv("RABBITMQ_DLQ_QUEUE", "energy-stream.ingest.dlq"),
			PrefetchCount:    getEnvAsInt("RABBITMQ_PREFETCH", 10),
		},
		Window: WindowConfig{
			Size:           getEnvAsInt("WINDOW_SIZE", 45),
			ResyncInterval: getEnvAsInt("WINDOW_RESYNC_INTERVAL", 4096),
		},
		Anomaly: AnomalyConfig{
			Threshold: getEnvAsFloat("ANOMALY_THRESHOLD", 0),
		},
		Simulator: SimulatorConfig{
			SeasonalAmplitude: getEnvAsFloat("SIMULATOR_SEASONAL_AMPLITUDE", 500),
			SeasonalPeriod:    getEnvAsFloat("SIMULATOR_SEASONAL_PERIOD_DAYS", 365) * secondsPerDay,
			SeasonalPhase:     getEnvAsFloat("SIMULATOR_SEASONAL_PHASE", 0),
			RegularAmplitude:  getEnvAsFloat("SIMULATOR_REGULAR_AMPLITUDE", 250),
			RegularPeriod:     getEnvAsFloat("SIMULATOR_REGULAR_PERIOD_DAYS", 7) * secondsPerDay,
			RegularPhase:      getEnvAsFloat("SIMULATOR_REGULAR_PHASE", 0),
			NoiseStdDev:       getEnvAsFloat("SIMULATOR_NOISE_STD_DEV", 500),
			Offset:            getEnvAsFloat("SIMULATOR_OFFSET", 25_000),
			Seeded:            getEnvAsBool("SIMULATOR_SEEDED", true),
			Seed:              uint64(getEnvAsInt("SIMULATOR_SEED", 1)),
		},
		Stream: StreamConfig{
			IncrementSeconds: getEnvAsFloat("STREAM_INCREMENT_SECONDS", secondsPerDay),
			DelayMillis:      getEnvAsInt("STREAM_DELAY_MILLIS", 1000),
			StartTimestamp:   getEnvAsFloat("STREAM_START_TIMESTAMP", 0),
			Backfill:         getEnvAsBool("STREAM_BACKFILL", true),
		},
		Validation: ValidationConfig{
			TimestampToleranceMinutes: getEnvAsInt("VALIDATION_TIMESTAMP_TOLERANCE_MINUTES", 10080),
		},
	}

	// Classification is only meaningful once the window is full, so the
	// detection floor defaults to the window size.
	cfg.Window.MinPoints = getEnvAsInt("ANOMALY_MIN_POINTS", cfg.Window.Size)

	// Validate required fields
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set in environment variables")
	}
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required but not set in environment variables")
	}
	// No default threshold is silently substituted; an absent or non-positive
	// threshold is a configuration error.
	if cfg.Anomaly.Threshold <= 0 {
		return nil, fmt.Errorf("ANOMALY_THRESHOLD is required and must be greater than 0")
	}
	if cfg.Source != SourceSimulate && cfg.Source != SourceConsume {
		return nil, fmt.Errorf("STREAM_SOURCE must be %q or %q, got %q", SourceSimulate, SourceConsume, cfg.Source)
	}
	if cfg.Window.Size < 2 {
		return nil, fmt.Errorf("WINDOW_SIZE must be at least 2, got %d", cfg.Window.Size)
	}
	if cfg.Stream.IncrementSeconds <= 0 {
		return nil, fmt.Errorf("STREAM_INCREMENT_SECONDS must be greater than 0")
	}
	if cfg.Stream.DelayMillis <= 0 {
		return nil, fmt.Errorf("STREAM_DELAY_MILLIS must be greater than 0")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
