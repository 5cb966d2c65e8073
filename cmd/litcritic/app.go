// Copyright (C) 2026 Alexis Argyris
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"time"

	"github.com/alexisargyris/lit-critic-sub001/cmd/litcritic/config"
	"github.com/alexisargyris/lit-critic-sub001/pkg/critic"
	"github.com/alexisargyris/lit-critic-sub001/pkg/logging"
	"github.com/alexisargyris/lit-critic-sub001/pkg/tracker"
	"github.com/alexisargyris/lit-critic-sub001/pkg/ux"
)

// App bundles the wired dependencies every command needs. It is built
// once in the root command's PersistentPreRunE and torn down after the
// command finishes.
type App struct {
	Config  *config.Config
	Logger  *logging.Logger
	Service *critic.Service
	Tracker *tracker.Tracker
}

// newApp loads config, applies flag overrides, and wires the service
// stack.
func newApp(configPath, baseURLOverride, personalityOverride string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if baseURLOverride != "" {
		cfg.Service.BaseURL = baseURLOverride
	}

	if personalityOverride != "" {
		ux.SetPersonalityLevel(ux.ParsePersonalityLevel(personalityOverride))
	} else if cfg.Review.Personality != "" {
		ux.SetPersonalityLevel(ux.ParsePersonalityLevel(cfg.Review.Personality))
	} else {
		ux.InitPersonality()
	}

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Logging.Level),
		LogDir:  cfg.Logging.Dir,
		Service: "cli",
		JSON:    cfg.Logging.JSON,
	})

	client := critic.NewClient(critic.ClientConfig{
		BaseURL: cfg.Service.BaseURL,
		Timeout: time.Duration(cfg.Service.TimeoutSeconds) * time.Second,
		Logger:  logger.Slog(),
	})

	metrics := tracker.NewDefaultMetrics(cfg.Metrics.Prometheus)
	if cfg.Metrics.Prometheus {
		if err := metrics.Register(); err != nil {
			logger.Warn("prometheus registration failed", "error", err)
		}
	}

	track, err := tracker.New(tracker.Config{
		Indicator: ux.NewSpinnerIndicator(),
		Progress:  ux.NewInterruptProgress(),
		Metrics:   metrics,
		Logger:    logger.Slog(),
	})
	if err != nil {
		logger.Close()
		return nil, err
	}

	return &App{
		Config:  cfg,
		Logger:  logger,
		Service: critic.NewService(client),
		Tracker: track,
	}, nil
}

// Close flushes the logger.
func (a *App) Close() {
	if a == nil || a.Logger == nil {
		return
	}
	if err := a.Logger.Close(); err != nil {
		fmt.Printf("warning: %v\n", err)
	}
}
