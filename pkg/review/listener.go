// Copyright (C) 2026 Alexis Argyris
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package review

import (
	"time"

	"github.com/alexisargyris/lit-critic-sub001/pkg/critic"
)

// =============================================================================
// Presentation boundary
// =============================================================================

// Listener is the engine's outbound interface to the presentation layer.
// Implementations render; they must not call back into the engine from
// within a notification.
type Listener interface {
	// CachePopulated fires after a wholesale cache replacement.
	CachePopulated(total int)

	// CurrentChanged fires whenever the item to present changes. complete
	// is true when the collection is exhausted and critique is the
	// fallback item kept on screen.
	CurrentChanged(critique *critic.Critique, index, total int, complete bool)

	// StalenessNoticeChanged fires when the staleness notice becomes
	// visible or hidden. report is nil when hidden; report.Prompt directs
	// the presentation to offer the re-run/dismiss choice.
	StalenessNoticeChanged(visible bool, report *critic.StalenessReport)

	// TransitionAvailable fires when a re-review replaced a critique's
	// content, offering the previous context for display before the new
	// discussion thread begins.
	TransitionAvailable(transition *DiscussionTransition)
}

// NopListener discards every notification. Embed it to implement only the
// callbacks a surface cares about.
type NopListener struct{}

func (NopListener) CachePopulated(int)                                   {}
func (NopListener) CurrentChanged(*critic.Critique, int, int, bool)      {}
func (NopListener) StalenessNoticeChanged(bool, *critic.StalenessReport) {}
func (NopListener) TransitionAvailable(*DiscussionTransition)            {}

var _ Listener = NopListener{}

// DiscussionTransition snapshots a critique's previous content and
// discussion history at the moment a re-review replaced it. It is
// ephemeral and UI-only: the engine hands it to the listener and keeps no
// reference.
type DiscussionTransition struct {
	Number    int
	Previous  critic.Critique
	SnappedAt time.Time
}
