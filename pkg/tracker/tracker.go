// Copyright (C) 2026 Alexis Argyris
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Default thresholds. Fast operations stay silent; anything past a
// second gets a visible indicator.
const (
	DefaultSlowThreshold     = 1 * time.Second
	DefaultProgressThreshold = 5 * time.Second
)

// StatusIndicator is a transient "still working" hint, typically a
// spinner. Start and Stop are paired exactly once per tracked operation
// that crosses the slow threshold.
type StatusIndicator interface {
	Start(operation string)
	Stop()
}

// ProgressSurface is the heavier surface for long operations. Show
// receives a cancel function the surface may invoke when the user asks
// to abort; the signal reaches the operation through its context. Show
// and Dismiss are paired exactly once per operation that crosses the
// progress threshold.
type ProgressSurface interface {
	Show(operation string, cancel context.CancelFunc)
	Dismiss()
}

// NopIndicator and NopSurface satisfy the interfaces silently.
type NopIndicator struct{}

func (NopIndicator) Start(string) {}
func (NopIndicator) Stop()        {}

type NopSurface struct{}

func (NopSurface) Show(string, context.CancelFunc) {}
func (NopSurface) Dismiss()                        {}

var (
	_ StatusIndicator = NopIndicator{}
	_ ProgressSurface = NopSurface{}
)

// =============================================================================
// Tracker
// =============================================================================

// Config configures a Tracker. Zero-value thresholds take the defaults;
// SlowThreshold must stay below ProgressThreshold.
type Config struct {
	SlowThreshold     time.Duration
	ProgressThreshold time.Duration
	Indicator         StatusIndicator // optional, default NopIndicator
	Progress          ProgressSurface // optional, default NopSurface
	Metrics           Metrics         // optional, default NewNoOpMetrics
	Logger            *slog.Logger    // optional, default slog.Default
}

// Tracker runs operations with latency-scaled feedback. Safe for reuse
// across operations; the feedback surfaces are driven for one operation
// at a time.
type Tracker struct {
	slow      time.Duration
	progress  time.Duration
	indicator StatusIndicator
	surface   ProgressSurface
	metrics   Metrics
	logger    *slog.Logger
}

// New creates a Tracker. It returns an error when the thresholds are not
// strictly ordered.
func New(config Config) (*Tracker, error) {
	slow := config.SlowThreshold
	if slow == 0 {
		slow = DefaultSlowThreshold
	}
	progress := config.ProgressThreshold
	if progress == 0 {
		progress = DefaultProgressThreshold
	}
	if slow >= progress {
		return nil, fmt.Errorf("slow threshold %v must be below progress threshold %v", slow, progress)
	}

	indicator := config.Indicator
	if indicator == nil {
		indicator = NopIndicator{}
	}
	surface := config.Progress
	if surface == nil {
		surface = NopSurface{}
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = NewNoOpMetrics()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Tracker{
		slow:      slow,
		progress:  progress,
		indicator: indicator,
		surface:   surface,
		metrics:   metrics,
		logger:    logger,
	}, nil
}

// Run executes op under tracking. The error is op's own, unchanged; the
// tracker measures and reports, never swallows.
func (t *Tracker) Run(ctx context.Context, operation string, op func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- op(ctx)
	}()

	slowTimer := time.NewTimer(t.slow)
	defer slowTimer.Stop()
	progressTimer := time.NewTimer(t.progress)
	defer progressTimer.Stop()

	var indicatorShown, surfaceShown bool
	defer func() {
		if surfaceShown {
			t.surface.Dismiss()
		}
		if indicatorShown {
			t.indicator.Stop()
		}
	}()

	for {
		select {
		case err := <-done:
			t.settle(operation, time.Since(start), err)
			return err
		case <-slowTimer.C:
			indicatorShown = true
			t.indicator.Start(operation)
		case <-progressTimer.C:
			surfaceShown = true
			t.surface.Show(operation, cancel)
		}
	}
}

func (t *Tracker) settle(operation string, elapsed time.Duration, err error) {
	t.metrics.ObserveDuration(operation, elapsed)
	if err != nil {
		t.metrics.IncOutcome(operation, OutcomeError)
		t.logger.Warn("operation failed",
			"operation", operation,
			"elapsed", elapsed.Round(time.Millisecond),
			"error", err,
		)
		return
	}
	t.metrics.IncOutcome(operation, OutcomeOK)
	t.logger.Info("operation settled",
		"operation", operation,
		"elapsed", elapsed.Round(time.Millisecond),
	)
}

// Track runs an operation returning a value under tracking.
func Track[T any](ctx context.Context, t *Tracker, operation string, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := t.Run(ctx, operation, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
