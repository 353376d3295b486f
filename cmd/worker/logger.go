package main

import (
	"github.com/kvanroon/energy-stream-monitor/internal/config"
	"github.com/kvanroon/energy-stream-monitor/internal/logging"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName)
}
