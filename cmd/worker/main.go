package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kvanroon/energy-stream-monitor/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	loadDotEnv()

	app := fx.New(
		fx.Provide(
			config.Load,
			newLogger,
			ProvideDBPool,
			ProvideRepository,
			ProvideWindow,
			ProvideClassifier,
			ProvideValidator,
			ProvideGenerator,
			ProvideMQConnection,
			ProvidePublisher,
			ProvideProcessor,
		),
		fx.Invoke(startMetricsServer, startWorker),
	)

	// Setup signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()

	if err := app.Start(startCtx); err != nil {
		if startCtx.Err() == context.DeadlineExceeded {
			tempLogger, _ := newLogger(&config.Config{ServiceName: "energy-stream-monitor"})
			tempLogger.Error("application failed to start within 30 seconds; a dependency (database or RabbitMQ) is likely unreachable", zap.Error(err))
		}
		panic(err)
	}

	// Wait for interrupt signal
	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Println("error stopping app:", err)
	}
}

// loadDotEnv looks for a .env file in the working directory and its parents,
// falling back silently to the system environment (the normal case in pods).
func loadDotEnv() {
	envPaths := []string{".env", "../../.env"}

	if workDir, err := os.Getwd(); err == nil {
		parentDir := filepath.Dir(workDir)
		envPaths = append(envPaths,
			filepath.Join(parentDir, ".env"),
			filepath.Join(filepath.Dir(parentDir), ".env"),
		)
	}

	for _, envPath := range envPaths {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err == nil {
				absPath, _ := filepath.Abs(envPath)
				fmt.Printf("Loaded environment from: %s\n", absPath)
				return
			}
		}
	}

	fmt.Println("No .env file found, using system environment variables")
}
