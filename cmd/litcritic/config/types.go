// Copyright (C) 2026 Alexis Argyris
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads and validates the litcritic CLI configuration.
//
// Configuration lives at ~/.litcritic/config.yaml and is created with
// defaults on first run. Load returns the parsed struct to the caller;
// there is no package-level configuration state.
package config

import (
	"github.com/go-playground/validator/v10"
)

// Config is the full CLI configuration.
type Config struct {
	// Service points at the critique service.
	Service ServiceConfig `yaml:"service"`

	// Review holds per-session defaults the flags can override.
	Review ReviewConfig `yaml:"review"`

	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging"`

	// Watch controls the manuscript file watcher.
	Watch WatchConfig `yaml:"watch"`

	// Metrics toggles Prometheus registration for tracked operations.
	Metrics MetricsConfig `yaml:"metrics"`
}

type ServiceConfig struct {
	// BaseURL of the critique service, e.g. "http://localhost:8600".
	BaseURL string `yaml:"base_url" validate:"required,url"`

	// TimeoutSeconds bounds plain request/response calls. Streams are
	// governed by their own watchdogs.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"gte=0,lte=3600"`
}

type ReviewConfig struct {
	// Model selects the critique model, service-side names.
	Model string `yaml:"model"`

	// ProjectConfig is the default path of the project style file sent
	// on session create.
	ProjectConfig string `yaml:"project_config"`

	// Personality is the default output level (full, minimal, machine).
	Personality string `yaml:"personality" validate:"omitempty,oneof=full minimal machine"`
}

type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`

	// Dir enables JSON file logging when set.
	Dir string `yaml:"dir"`

	// JSON switches stderr logs to JSON.
	JSON bool `yaml:"json"`
}

type WatchConfig struct {
	// Enabled turns on the fsnotify manuscript watcher during review.
	Enabled bool `yaml:"enabled"`
}

type MetricsConfig struct {
	// Prometheus registers operation metrics with the default registry.
	Prometheus bool `yaml:"prometheus"`
}

// Default returns the configuration written on first run.
func Default() Config {
	return Config{
		Service: ServiceConfig{
			BaseURL:        "http://localhost:8600",
			TimeoutSeconds: 300,
		},
		Review: ReviewConfig{
			Personality: "full",
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "~/.litcritic/logs",
		},
		Watch: WatchConfig{
			Enabled: true,
		},
	}
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}
