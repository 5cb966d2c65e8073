// Copyright (C) 2026 Alexis Argyris
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// TestCreateDefault verifies default config creation.
func TestCreateDefault(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, ".litcritic", "config.yaml")

	require.NoError(t, createDefault(configPath))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)

	var cfg Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))

	assert.Equal(t, "http://localhost:8600", cfg.Service.BaseURL)
	assert.Equal(t, 300, cfg.Service.TimeoutSeconds)
	assert.True(t, cfg.Watch.Enabled, "watching should default on")
}

// TestLoadCreatesMissingFile verifies first-run behavior.
func TestLoadCreatesMissingFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)

	_, err = os.Stat(configPath)
	require.NoError(t, err, "first run should write the default file")
}

// TestLoadOverridesDefaults verifies explicit values win over defaults.
func TestLoadOverridesDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("service:\n  base_url: http://critic.local:9000\n  timeout_seconds: 60\nreview:\n  model: sonnet-large\n")
	require.NoError(t, os.WriteFile(configPath, content, 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "http://critic.local:9000", cfg.Service.BaseURL)
	assert.Equal(t, 60, cfg.Service.TimeoutSeconds)
	assert.Equal(t, "sonnet-large", cfg.Review.Model)
	// Untouched sections keep their defaults.
	assert.Equal(t, "info", cfg.Logging.Level)
}

// TestLoadRejectsInvalidValues verifies validation failures surface.
func TestLoadRejectsInvalidValues(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("service:\n  base_url: not-a-url\nlogging:\n  level: shout\n")
	require.NoError(t, os.WriteFile(configPath, content, 0644))

	_, err := Load(configPath)
	require.Error(t, err)
}

// TestLoadRejectsMalformedYAML verifies parse failures surface.
func TestLoadRejectsMalformedYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("service: [unbalanced"), 0644))

	_, err := Load(configPath)
	require.Error(t, err)
}

// TestSaveRoundTrips verifies persisted corrections survive a reload.
func TestSaveRoundTrips(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.Review.ProjectConfig = "/manuscripts/style.yaml"
	require.NoError(t, Save(configPath, &cfg))

	loaded, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "/manuscripts/style.yaml", loaded.Review.ProjectConfig)
}

// TestSaveRejectsInvalidConfig verifies Save never writes a config Load
// would refuse.
func TestSaveRejectsInvalidConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.Logging.Level = "shout"
	require.Error(t, Save(configPath, &cfg))

	_, err := os.Stat(configPath)
	assert.True(t, os.IsNotExist(err), "invalid config must not be written")
}
