// Copyright (C) 2026 Alexis Argyris
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"strings"
	"testing"
)

func TestProgressBarMachineMode(t *testing.T) {
	withLevel(t, PersonalityMachine)

	if got := ProgressBar(3, 10, 20); got != "3/10" {
		t.Fatalf("ProgressBar = %q, want 3/10", got)
	}
}

func TestProgressBarZeroTotal(t *testing.T) {
	withLevel(t, PersonalityMachine)

	// Must not divide by zero.
	if got := ProgressBar(0, 0, 20); got != "0/1" {
		t.Fatalf("ProgressBar = %q", got)
	}
}

func TestProgressBarFullModeShowsPercent(t *testing.T) {
	withLevel(t, PersonalityFull)

	got := ProgressBar(5, 10, 10)
	if !strings.Contains(got, "50%") {
		t.Fatalf("ProgressBar = %q, want a percentage", got)
	}
}

func TestIconRender(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconPending, IconArrow} {
		if got := icon.Render(); !strings.Contains(got, string(icon)) {
			t.Errorf("Icon(%q).Render() = %q, want the glyph present", string(icon), got)
		}
	}
}

func TestRepeatChar(t *testing.T) {
	if got := repeatChar('x', 3); got != "xxx" {
		t.Fatalf("repeatChar = %q", got)
	}
	if got := repeatChar('x', 0); got != "" {
		t.Fatalf("repeatChar(0) = %q", got)
	}
	if got := repeatChar('x', -1); got != "" {
		t.Fatalf("repeatChar(-1) = %q", got)
	}
}
