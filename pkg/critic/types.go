// Copyright (C) 2026 Alexis Argyris
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package critic

// =============================================================================
// Session
// =============================================================================

// SessionStatus is the lifecycle state of a review session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

// Session is the server-owned unit of review work. One session binds one or
// more manuscript files to a model and an ordered collection of critiques.
//
// The Critiques slice is only populated on detail responses (session create,
// resume, and get-detail). List responses carry counters only.
type Session struct {
	ID              string        `json:"id"`
	Status          SessionStatus `json:"status"`
	ManuscriptPaths []string      `json:"manuscript_paths"`
	Model           string        `json:"model"`
	CreatedAt       int64         `json:"created_at"`
	UpdatedAt       int64         `json:"updated_at,omitempty"`

	// Terminal counters maintained by the server.
	Total    int `json:"total"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`

	// Critiques is the bulk listing. May be absent on some responses;
	// the reconciliation engine re-fetches authoritative state when so.
	Critiques []Critique `json:"critiques,omitempty"`
}

// =============================================================================
// Critique
// =============================================================================

// Severity classifies how badly a critique hurts the manuscript.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

// CritiqueStatus is the disposition of a single critique.
type CritiqueStatus string

const (
	StatusPending   CritiqueStatus = "pending"
	StatusAccepted  CritiqueStatus = "accepted"
	StatusRejected  CritiqueStatus = "rejected"
	StatusWithdrawn CritiqueStatus = "withdrawn"
	StatusRevised   CritiqueStatus = "revised"
	StatusEscalated CritiqueStatus = "escalated"
	StatusDiscussed CritiqueStatus = "discussed"
	StatusConceded  CritiqueStatus = "conceded"
)

// Terminal reports whether the status is a final disposition. Terminal
// statuses only change through an explicit re-review, which issues new
// content under the same number.
func (s CritiqueStatus) Terminal() bool {
	switch s {
	case StatusAccepted, StatusRejected, StatusWithdrawn, StatusConceded:
		return true
	default:
		return false
	}
}

// DiscussionTurn is one entry in a critique's discussion history.
type DiscussionTurn struct {
	Role      string `json:"role"` // "user" or "critic"
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

// Critique is a single reviewable item. Number is the stable identity key;
// it is not a position in any collection and never changes, even when a
// re-review replaces the content.
type Critique struct {
	Number      int              `json:"number"`
	Severity    Severity         `json:"severity"`
	Lens        string           `json:"lens"`
	StartLine   int              `json:"start_line"`
	EndLine     int              `json:"end_line,omitempty"`
	Evidence    string           `json:"evidence"`
	Impact      string           `json:"impact"`
	Suggestions []string         `json:"suggestions,omitempty"`
	Status      CritiqueStatus   `json:"status"`
	Discussion  []DiscussionTurn `json:"discussion,omitempty"`
}

// Clone returns a deep copy. Used when snapshotting previous content for a
// discussion transition, so later cache mutations cannot reach the snapshot.
func (c Critique) Clone() Critique {
	out := c
	out.Suggestions = append([]string(nil), c.Suggestions...)
	out.Discussion = append([]DiscussionTurn(nil), c.Discussion...)
	return out
}

// =============================================================================
// Staleness
// =============================================================================

// StalenessReport signals that cached critiques may no longer match the
// manuscript or its supporting project configuration. The flags are
// session-scoped, never per-critique.
//
// Prompt controls how intrusive the client must be: a Prompt=true report
// always re-surfaces the notice, even over a prior dismissal; a
// Prompt=false report never resurrects a dismissed notice.
type StalenessReport struct {
	Changed      bool     `json:"changed"`
	Stale        bool     `json:"stale"`
	ChangedFiles []string `json:"changed_files,omitempty"`
	Prompt       bool     `json:"prompt"`
}

// =============================================================================
// Requests and responses
// =============================================================================

// CreateSessionRequest starts a new review session.
type CreateSessionRequest struct {
	ID              string   `json:"id"`
	CreatedAt       int64    `json:"created_at"`
	ManuscriptPaths []string `json:"manuscript_paths"`
	Model           string   `json:"model,omitempty"`
	ProjectConfig   string   `json:"project_config,omitempty"`
}

// AdvanceResponse is the single-item mutation shape shared by the
// get-current, continue, goto, accept, reject, review, and mark-ambiguity
// operations.
//
// When Complete is true the collection is exhausted and Critique is absent.
// Otherwise Critique carries the item to merge into the cache (keyed by its
// stable number) and Current, when non-zero, names the critique number the
// client should present next.
type AdvanceResponse struct {
	Complete  bool             `json:"complete"`
	Critique  *Critique        `json:"critique,omitempty"`
	Current   int              `json:"current,omitempty"`
	Total     int              `json:"total,omitempty"`
	Staleness *StalenessReport `json:"staleness,omitempty"`
}

// GotoRequest jumps to a specific critique by number.
type GotoRequest struct {
	Number int `json:"number"`
}

// DispositionRequest accepts or rejects a critique, optionally with a note
// that becomes part of the discussion history server-side.
type DispositionRequest struct {
	Number int    `json:"number"`
	Note   string `json:"note,omitempty"`
}

// ReviewRequest asks the service to re-evaluate one critique against the
// current manuscript, typically after the user edited the flagged passage.
type ReviewRequest struct {
	Number int `json:"number"`
}

// AmbiguityRequest marks a critique as ambiguous, asking the critic to
// restate its case.
type AmbiguityRequest struct {
	Number int    `json:"number"`
	Note   string `json:"note,omitempty"`
}

// DiscussionRequest opens one streamed conversational exchange about the
// named critique.
type DiscussionRequest struct {
	ID      string `json:"id"`
	Number  int    `json:"number"`
	Message string `json:"message"`
}
