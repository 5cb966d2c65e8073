// Copyright (C) 2026 Alexis Argyris
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"

	"github.com/alexisargyris/lit-critic-sub001/pkg/tracker"
)

// SpinnerIndicator adapts the ux spinner to the tracker's transient
// status indicator.
type SpinnerIndicator struct {
	mu      sync.Mutex
	spinner *Spinner
}

// NewSpinnerIndicator creates an indicator backed by a fresh spinner per
// operation.
func NewSpinnerIndicator() *SpinnerIndicator {
	return &SpinnerIndicator{}
}

func (s *SpinnerIndicator) Start(operation string) {
	if !ShouldShowProgress() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.spinner != nil {
		return
	}
	s.spinner = NewSpinner(operationLabel(operation))
	s.spinner.Start()
}

func (s *SpinnerIndicator) Stop() {
	s.mu.Lock()
	spinner := s.spinner
	s.spinner = nil
	s.mu.Unlock()
	if spinner != nil {
		spinner.Stop()
	}
}

// InterruptProgress is the tracker's cancellable progress surface. While
// shown, an interrupt (Ctrl+C) invokes the operation's cancel function
// instead of killing the process; the operation may poll the resulting
// context cancellation or run to completion regardless.
type InterruptProgress struct {
	mu      sync.Mutex
	sigs    chan os.Signal
	release chan struct{}
}

// NewInterruptProgress creates an idle progress surface.
func NewInterruptProgress() *InterruptProgress {
	return &InterruptProgress{}
}

func (p *InterruptProgress) Show(operation string, cancel context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sigs != nil {
		return
	}

	if ShouldShowProgress() {
		fmt.Printf("\n%s %s\n",
			Styles.Warning.Render("still working:"),
			fmt.Sprintf("%s (Ctrl+C to cancel)", operationLabel(operation)),
		)
	}

	p.sigs = make(chan os.Signal, 1)
	p.release = make(chan struct{})
	signal.Notify(p.sigs, os.Interrupt)

	go func(sigs chan os.Signal, release chan struct{}) {
		select {
		case <-sigs:
			cancel()
		case <-release:
		}
	}(p.sigs, p.release)
}

func (p *InterruptProgress) Dismiss() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sigs == nil {
		return
	}
	signal.Stop(p.sigs)
	close(p.release)
	p.sigs = nil
	p.release = nil
}

func operationLabel(operation string) string {
	switch operation {
	case "continue":
		return "advancing to the next critique"
	case "review":
		return "re-reading the manuscript"
	case "create_session":
		return "starting the review"
	case "check_staleness":
		return "checking the manuscript for edits"
	default:
		return operation
	}
}

var (
	_ tracker.StatusIndicator = (*SpinnerIndicator)(nil)
	_ tracker.ProgressSurface = (*InterruptProgress)(nil)
)
