// Copyright (C) 2026 Alexis Argyris
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// countingIndicator records Start/Stop pairs.
type countingIndicator struct {
	mu     sync.Mutex
	starts int
	stops  int
}

func (c *countingIndicator) Start(string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts++
}

func (c *countingIndicator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
}

func (c *countingIndicator) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts, c.stops
}

// countingSurface records Show/Dismiss and keeps the cancel function.
type countingSurface struct {
	mu        sync.Mutex
	shows     int
	dismisses int
	cancel    context.CancelFunc
}

func (c *countingSurface) Show(_ string, cancel context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shows++
	c.cancel = cancel
}

func (c *countingSurface) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dismisses++
}

func (c *countingSurface) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shows, c.dismisses
}

func newTestTracker(t *testing.T, indicator *countingIndicator, surface *countingSurface, metrics Metrics) *Tracker {
	t.Helper()
	tr, err := New(Config{
		SlowThreshold:     50 * time.Millisecond,
		ProgressThreshold: 200 * time.Millisecond,
		Indicator:         indicator,
		Progress:          surface,
		Metrics:           metrics,
	})
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	return tr
}

func sleepOp(d time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		select {
		case <-time.After(d):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// =============================================================================
// Threshold matrix
// =============================================================================

func TestFastOperationShowsNothing(t *testing.T) {
	indicator := &countingIndicator{}
	surface := &countingSurface{}
	tr := newTestTracker(t, indicator, surface, nil)

	if err := tr.Run(context.Background(), "get_current", sleepOp(10*time.Millisecond)); err != nil {
		t.Fatalf("run: %v", err)
	}

	if starts, _ := indicator.counts(); starts != 0 {
		t.Fatalf("indicator started %d times for a fast op", starts)
	}
	if shows, _ := surface.counts(); shows != 0 {
		t.Fatalf("progress surface shown %d times for a fast op", shows)
	}
}

func TestSlowOperationShowsIndicatorOnly(t *testing.T) {
	indicator := &countingIndicator{}
	surface := &countingSurface{}
	tr := newTestTracker(t, indicator, surface, nil)

	if err := tr.Run(context.Background(), "continue", sleepOp(80*time.Millisecond)); err != nil {
		t.Fatalf("run: %v", err)
	}

	starts, stops := indicator.counts()
	if starts != 1 || stops != 1 {
		t.Fatalf("indicator starts=%d stops=%d, want exactly one pair", starts, stops)
	}
	if shows, _ := surface.counts(); shows != 0 {
		t.Fatalf("progress surface shown %d times below its threshold", shows)
	}
}

func TestLongOperationShowsBothSurfaces(t *testing.T) {
	indicator := &countingIndicator{}
	surface := &countingSurface{}
	tr := newTestTracker(t, indicator, surface, nil)

	if err := tr.Run(context.Background(), "review", sleepOp(280*time.Millisecond)); err != nil {
		t.Fatalf("run: %v", err)
	}

	starts, stops := indicator.counts()
	shows, dismisses := surface.counts()
	if starts != 1 || stops != 1 {
		t.Fatalf("indicator starts=%d stops=%d, want one pair", starts, stops)
	}
	if shows != 1 || dismisses != 1 {
		t.Fatalf("surface shows=%d dismisses=%d, want one pair", shows, dismisses)
	}
}

// =============================================================================
// Error and cancellation behavior
// =============================================================================

func TestErrorRethrownUnchanged(t *testing.T) {
	boom := errors.New("manuscript vanished")
	tr := newTestTracker(t, &countingIndicator{}, &countingSurface{}, nil)

	err := tr.Run(context.Background(), "accept", func(ctx context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want the operation's own error", err)
	}
}

func TestProgressSurfaceCancelReachesOperation(t *testing.T) {
	surface := &countingSurface{}
	tr := newTestTracker(t, &countingIndicator{}, surface, nil)

	opCtx := make(chan context.Context, 1)
	done := make(chan error, 1)
	go func() {
		done <- tr.Run(context.Background(), "goto", func(ctx context.Context) error {
			opCtx <- ctx
			<-ctx.Done()
			return ctx.Err()
		})
	}()

	ctx := <-opCtx
	// Wait for the surface to appear, then trigger its cancel signal.
	deadline := time.After(5 * time.Second)
	for {
		if shows, _ := surface.counts(); shows == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("progress surface never shown")
		case <-time.After(5 * time.Millisecond):
		}
	}

	surface.mu.Lock()
	cancel := surface.cancel
	surface.mu.Unlock()
	cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("cancel signal never reached the operation")
	}
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if _, dismisses := surface.counts(); dismisses != 1 {
		t.Fatalf("surface dismisses = %d, want 1", dismisses)
	}
}

// =============================================================================
// Metrics and helpers
// =============================================================================

func TestMetricsRecordOutcomes(t *testing.T) {
	metrics := NewNoOpMetrics()
	tr := newTestTracker(t, &countingIndicator{}, &countingSurface{}, metrics)

	if err := tr.Run(context.Background(), "get_current", sleepOp(time.Millisecond)); err != nil {
		t.Fatalf("run: %v", err)
	}
	_ = tr.Run(context.Background(), "get_current", func(ctx context.Context) error {
		return errors.New("nope")
	})

	if got := metrics.OperationsTotal(); got != 2 {
		t.Fatalf("operations total = %d, want 2", got)
	}
	if got := metrics.ErrorsTotal(); got != 1 {
		t.Fatalf("errors total = %d, want 1", got)
	}
}

func TestNewRejectsUnorderedThresholds(t *testing.T) {
	_, err := New(Config{
		SlowThreshold:     200 * time.Millisecond,
		ProgressThreshold: 50 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected error for slow >= progress")
	}
}

func TestTrackReturnsValue(t *testing.T) {
	tr := newTestTracker(t, &countingIndicator{}, &countingSurface{}, nil)

	got, err := Track(context.Background(), tr, "list_sessions", func(ctx context.Context) ([]string, error) {
		return []string{"sess-1", "sess-2"}, nil
	})
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if len(got) != 2 || got[0] != "sess-1" {
		t.Fatalf("got %v", got)
	}

	boom := errors.New("down")
	_, err = Track(context.Background(), tr, "list_sessions", func(ctx context.Context) ([]string, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want the operation error", err)
	}
}
