// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/relabs-tech/sensorhub/internal/config"
	"github.com/relabs-tech/sensorhub/internal/logging"
)

// RunFunc is one of the Run* entry points.
type RunFunc func(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) error

// Execute loads the configuration at configPath and runs fn until parent is
// done or SIGINT/SIGTERM arrives. After the first signal the handler is
// removed, so a second one terminates the process.
func Execute(parent context.Context, name, configPath string, debug bool, fn RunFunc) error {
	if err := config.InitGlobal(configPath); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := config.Get()
	if cfg == nil {
		return errors.New("failed to load config: earlier load failed")
	}

	logger := logging.NewLogger(name, cfg.ConsoleLogFormat, debug)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	context.AfterFunc(ctx, stop)

	return fn(ctx, cfg, logger)
}
