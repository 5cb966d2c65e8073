// Copyright (C) 2026 Alexis Argyris
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package review

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/alexisargyris/lit-critic-sub001/pkg/critic"
)

// ErrAdvanceInFlight is returned when an advance-type operation is issued
// while another is still running for the same session. The service defines
// no semantics for overlapping advances, so the engine rejects them
// outright instead of letting them race.
var ErrAdvanceInFlight = errors.New("an advance operation is already in flight")

// ErrNoBulkListing is returned when neither the populate response nor the
// authoritative session state carried the critique listing. The cache is
// never inferred.
var ErrNoBulkListing = errors.New("service did not provide a critique listing")

// errMalformedAdvance guards against responses that neither complete the
// session nor carry a critique.
var errMalformedAdvance = errors.New("advance response carried neither completion nor a critique")

// StateFetcher retrieves authoritative session state, including the full
// critique listing. *critic.Service satisfies it.
type StateFetcher interface {
	GetSession(ctx context.Context, id string) (*critic.Session, error)
}

// =============================================================================
// Engine
// =============================================================================

// EngineConfig configures an Engine. SessionID and Fetcher are required.
type EngineConfig struct {
	SessionID string
	Fetcher   StateFetcher
	Listener  Listener     // optional, default NopListener
	Logger    *slog.Logger // optional, default slog.Default
}

// Engine applies server responses to the local critique cache and derives
// the item to present. All methods are safe for concurrent use, though the
// advance operations themselves are expected to be issued serially; a
// second overlapping advance is rejected with ErrAdvanceInFlight.
type Engine struct {
	sessionID string
	fetcher   StateFetcher
	listener  Listener
	logger    *slog.Logger

	mu        sync.Mutex
	critiques []critic.Critique
	index     int // -1 before the cache is populated
	total     int
	complete  bool
	advancing bool

	// Staleness notice state. dismissed and visible are tracked
	// separately: an unprompted stale report must not resurrect a
	// dismissed notice, while a prompted one always re-arms it.
	staleReport    *critic.StalenessReport
	staleVisible   bool
	staleDismissed bool
}

// NewEngine creates an engine with an empty cache.
func NewEngine(config EngineConfig) *Engine {
	listener := config.Listener
	if listener == nil {
		listener = NopListener{}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		sessionID: config.SessionID,
		fetcher:   config.Fetcher,
		listener:  listener,
		logger:    logger,
		index:     -1,
	}
}

// SessionID returns the session this engine mirrors.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// -----------------------------------------------------------------------------
// Populate
// -----------------------------------------------------------------------------

// Populate replaces the cache wholesale from a session detail response.
//
// When the response omits the bulk listing, authoritative session state is
// re-fetched; when that too lacks it, Populate fails hard rather than
// guess. The current index starts at the first pending critique, or the
// first critique when none is pending.
func (e *Engine) Populate(ctx context.Context, session *critic.Session) error {
	listing := session.Critiques
	if listing == nil {
		e.logger.Info("populate response lacked listing, fetching session state",
			"session_id", e.sessionID,
		)
		authoritative, err := e.fetcher.GetSession(ctx, e.sessionID)
		if err != nil {
			return err
		}
		listing = authoritative.Critiques
		if listing == nil {
			return ErrNoBulkListing
		}
		session = authoritative
	}

	e.mu.Lock()
	e.critiques = slices.Clone(listing)
	e.total = session.Total
	if e.total < len(e.critiques) {
		e.total = len(e.critiques)
	}
	e.complete = false
	e.index = firstPendingIndex(e.critiques)
	current, idx, total := e.currentLocked()
	e.mu.Unlock()

	e.listener.CachePopulated(total)
	e.listener.CurrentChanged(current, idx, total, false)

	e.logger.Info("cache populated",
		"session_id", e.sessionID,
		"critiques", len(listing),
		"current_index", idx,
	)
	return nil
}

// -----------------------------------------------------------------------------
// Advance
// -----------------------------------------------------------------------------

// Advance runs op under the single-flight guard and applies its response.
// op performs the network call and must not touch the engine itself.
func (e *Engine) Advance(ctx context.Context, op func(ctx context.Context) (*critic.AdvanceResponse, error)) error {
	e.mu.Lock()
	if e.advancing {
		e.mu.Unlock()
		return ErrAdvanceInFlight
	}
	e.advancing = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.advancing = false
		e.mu.Unlock()
	}()

	resp, err := op(ctx)
	if err != nil {
		return err
	}
	return e.ApplyAdvance(resp)
}

// ApplyAdvance merges a single-item advance response into the cache.
//
// Completion marks the view complete and falls back to the previous
// current index when still in range, else the last valid index. Otherwise
// the returned critique is merged by its stable number (replaced when
// present, appended when not, never positioned) and the current index
// follows the response's explicit current field, with positional inference
// only when the field is absent. Re-applying an identical response is
// idempotent.
func (e *Engine) ApplyAdvance(resp *critic.AdvanceResponse) error {
	e.mu.Lock()

	if resp.Complete {
		fallback := e.index
		if fallback < 0 || fallback >= len(e.critiques) {
			fallback = len(e.critiques) - 1
		}
		e.index = fallback
		e.complete = true
		if resp.Staleness != nil {
			e.applyStalenessLocked(resp.Staleness)
		}
		current, idx, total := e.currentLocked()
		notify := e.staleNotifyLocked()
		e.mu.Unlock()

		notify()
		e.listener.CurrentChanged(current, idx, total, true)
		return nil
	}

	if resp.Critique == nil {
		e.mu.Unlock()
		return errMalformedAdvance
	}

	merged := e.mergeLocked(*resp.Critique)

	if resp.Current != 0 {
		if idx := e.indexOfLocked(resp.Current); idx >= 0 {
			e.index = idx
		} else {
			e.index = merged
		}
	} else {
		e.index = merged
	}

	if resp.Total > e.total {
		e.total = resp.Total
	}
	if len(e.critiques) > e.total {
		e.total = len(e.critiques)
	}
	e.complete = false

	if resp.Staleness != nil {
		e.applyStalenessLocked(resp.Staleness)
	}
	current, idx, total := e.currentLocked()
	notify := e.staleNotifyLocked()
	e.mu.Unlock()

	notify()
	e.listener.CurrentChanged(current, idx, total, false)
	return nil
}

// ApplyReview applies a re-review response for one critique. When the
// service reissues the same number with materially different content, the
// previous content and its discussion history are snapshotted into a
// DiscussionTransition before the merge, so the presentation can show the
// prior context while the new content starts a fresh thread.
func (e *Engine) ApplyReview(resp *critic.AdvanceResponse) error {
	var transition *DiscussionTransition

	if !resp.Complete && resp.Critique != nil {
		e.mu.Lock()
		if idx := e.indexOfLocked(resp.Critique.Number); idx >= 0 {
			previous := e.critiques[idx]
			if materiallyDifferent(previous, *resp.Critique) {
				transition = &DiscussionTransition{
					Number:    previous.Number,
					Previous:  previous.Clone(),
					SnappedAt: time.Now(),
				}
			}
		}
		e.mu.Unlock()
	}

	if transition != nil {
		e.logger.Info("re-review replaced critique content",
			"session_id", e.sessionID,
			"number", transition.Number,
			"previous_turns", len(transition.Previous.Discussion),
		)
		e.listener.TransitionAvailable(transition)
	}

	return e.ApplyAdvance(resp)
}

// -----------------------------------------------------------------------------
// Completion consistency
// -----------------------------------------------------------------------------

// ConfirmCompletion cross-checks a completion signal against authoritative
// session state. When a non-terminal critique remains, the completion was
// a false signal (a client/server race): the engine re-presents the actual
// current item and reports the discrepancy without failing. The returned
// bool is true when completion stands.
func (e *Engine) ConfirmCompletion(ctx context.Context) (bool, error) {
	listing, err := e.fetcher.GetSession(ctx, e.sessionID)
	if err != nil {
		return false, err
	}

	open := -1
	for i, c := range listing.Critiques {
		if !c.Status.Terminal() {
			open = i
			break
		}
	}
	if open < 0 {
		return true, nil
	}

	e.logger.Warn("completion contradicted by session listing",
		"session_id", e.sessionID,
		"open_number", listing.Critiques[open].Number,
	)

	e.mu.Lock()
	e.critiques = slices.Clone(listing.Critiques)
	if e.total < len(e.critiques) {
		e.total = len(e.critiques)
	}
	e.complete = false
	e.index = open
	current, idx, total := e.currentLocked()
	e.mu.Unlock()

	e.listener.CurrentChanged(current, idx, total, false)
	return false, nil
}

// -----------------------------------------------------------------------------
// Staleness
// -----------------------------------------------------------------------------

// ApplyStalenessReport reconciles a staleness report with the notice
// state. Absent or not-stale clears any active notice; stale with
// prompt=true force-shows it over any prior dismissal; stale with
// prompt=false respects a prior dismissal.
func (e *Engine) ApplyStalenessReport(report *critic.StalenessReport) {
	e.mu.Lock()
	e.applyStalenessLocked(report)
	notify := e.staleNotifyLocked()
	e.mu.Unlock()
	notify()
}

// DismissStaleness hides the notice until the next prompted report.
func (e *Engine) DismissStaleness() {
	e.mu.Lock()
	e.staleDismissed = true
	e.staleVisible = false
	notify := e.staleNotifyLocked()
	e.mu.Unlock()
	notify()
}

// StalenessNotice returns the active report and whether the notice is
// currently visible.
func (e *Engine) StalenessNotice() (*critic.StalenessReport, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.staleReport, e.staleVisible
}

func (e *Engine) applyStalenessLocked(report *critic.StalenessReport) {
	if report == nil || !report.Stale {
		e.staleReport = nil
		e.staleVisible = false
		e.staleDismissed = false
		return
	}

	e.staleReport = report
	switch {
	case report.Prompt:
		// A prompted report always re-arms visibility, even over a
		// prior dismissal.
		e.staleDismissed = false
		e.staleVisible = true
	case e.staleDismissed:
		e.staleVisible = false
	default:
		e.staleVisible = true
	}
}

// staleNotifyLocked captures the notification to fire once the lock is
// released.
func (e *Engine) staleNotifyLocked() func() {
	visible := e.staleVisible
	report := e.staleReport
	return func() {
		e.listener.StalenessNoticeChanged(visible, report)
	}
}

// -----------------------------------------------------------------------------
// Accessors
// -----------------------------------------------------------------------------

// Current returns the critique to present, its index, and whether the
// view is complete. The critique is nil while the cache is empty.
func (e *Engine) Current() (*critic.Critique, int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	current, idx, _ := e.currentLocked()
	return current, idx, e.complete
}

// Critiques returns a copy of the cache in order.
func (e *Engine) Critiques() []critic.Critique {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.critiques)
}

// Len returns the cache length; authoritative once populated.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.critiques)
}

// Total returns the expected critique count for the session.
func (e *Engine) Total() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.total
}

// Complete reports whether the view has been marked complete.
func (e *Engine) Complete() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.complete
}

// Reset clears all cache and notice state. The only path that shrinks the
// cache.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.critiques = nil
	e.index = -1
	e.total = 0
	e.complete = false
	e.staleReport = nil
	e.staleVisible = false
	e.staleDismissed = false
	e.mu.Unlock()
}

// -----------------------------------------------------------------------------
// Internals
// -----------------------------------------------------------------------------

func (e *Engine) currentLocked() (*critic.Critique, int, int) {
	if e.index < 0 || e.index >= len(e.critiques) {
		return nil, e.index, e.total
	}
	c := e.critiques[e.index].Clone()
	return &c, e.index, e.total
}

// mergeLocked inserts or replaces by stable number and returns the index
// of the merged critique.
func (e *Engine) mergeLocked(c critic.Critique) int {
	if idx := e.indexOfLocked(c.Number); idx >= 0 {
		e.critiques[idx] = c
		return idx
	}
	e.critiques = append(e.critiques, c)
	return len(e.critiques) - 1
}

func (e *Engine) indexOfLocked(number int) int {
	for i, c := range e.critiques {
		if c.Number == number {
			return i
		}
	}
	return -1
}

func firstPendingIndex(critiques []critic.Critique) int {
	if len(critiques) == 0 {
		return -1
	}
	for i, c := range critiques {
		if c.Status == critic.StatusPending {
			return i
		}
	}
	return 0
}

// materiallyDifferent reports whether a re-review actually changed the
// critique's substance. Status and discussion history are excluded: those
// change through normal disposition, not re-review.
func materiallyDifferent(a, b critic.Critique) bool {
	return a.Severity != b.Severity ||
		a.Lens != b.Lens ||
		a.StartLine != b.StartLine ||
		a.EndLine != b.EndLine ||
		a.Evidence != b.Evidence ||
		a.Impact != b.Impact ||
		!slices.Equal(a.Suggestions, b.Suggestions)
}
