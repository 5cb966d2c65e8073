// Copyright (C) 2026 Alexis Argyris
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package critic

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Service
// =============================================================================

// Service is the typed surface over the remote critic API: session
// lifecycle, per-critique navigation, and the two server-push streams.
//
// Service adds no local state beyond the transport; the session cache is
// pkg/review's concern.
type Service struct {
	client *Client
}

// NewService wraps a transport client with the typed API surface.
func NewService(client *Client) *Service {
	return &Service{client: client}
}

// -----------------------------------------------------------------------------
// Session lifecycle
// -----------------------------------------------------------------------------

// CreateSession starts a new review session over the given manuscripts.
// The response may carry the bulk critique listing once analysis finishes;
// callers normally follow this with OpenAnalysisStream.
func (s *Service) CreateSession(ctx context.Context, manuscripts []string, model, projectConfig string) (*Session, error) {
	req := CreateSessionRequest{
		ID:              uuid.New().String(),
		CreatedAt:       time.Now().UnixMilli(),
		ManuscriptPaths: manuscripts,
		Model:           model,
		ProjectConfig:   projectConfig,
	}
	var session Session
	if err := s.client.Call(ctx, http.MethodPost, "/v1/sessions", req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ResumeSession reopens an existing session. The optional manuscript
// override is the correction path for manuscript_not_found recovery.
func (s *Service) ResumeSession(ctx context.Context, id, manuscriptOverride string) (*Session, error) {
	body := map[string]string{}
	if manuscriptOverride != "" {
		body["manuscript_path"] = manuscriptOverride
	}
	var session Session
	path := fmt.Sprintf("/v1/sessions/%s/resume", url.PathEscape(id))
	if err := s.client.Call(ctx, http.MethodPost, path, body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSession fetches authoritative session state including the full
// critique listing. This is the fallback source of truth when a populate
// response omits the bulk listing, and the cross-check for completion
// consistency.
func (s *Service) GetSession(ctx context.Context, id string) (*Session, error) {
	var session Session
	path := fmt.Sprintf("/v1/sessions/%s", url.PathEscape(id))
	if err := s.client.Call(ctx, http.MethodGet, path, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions returns summaries of known sessions (no critique bodies).
func (s *Service) ListSessions(ctx context.Context) ([]Session, error) {
	var out struct {
		Sessions []Session `json:"sessions"`
	}
	if err := s.client.Call(ctx, http.MethodGet, "/v1/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// DeleteSession abandons and removes a session server-side.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	path := fmt.Sprintf("/v1/sessions/%s", url.PathEscape(id))
	return s.client.Call(ctx, http.MethodDelete, path, nil, nil)
}

// CheckStaleness asks whether the session's cached critiques may be
// outdated due to external edits to the manuscript or project
// configuration.
func (s *Service) CheckStaleness(ctx context.Context, id string) (*StalenessReport, error) {
	var report StalenessReport
	path := fmt.Sprintf("/v1/sessions/%s/staleness", url.PathEscape(id))
	if err := s.client.Call(ctx, http.MethodGet, path, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// -----------------------------------------------------------------------------
// Navigation
// -----------------------------------------------------------------------------

// Current returns the critique the session considers current, without
// advancing.
func (s *Service) Current(ctx context.Context, id string) (*AdvanceResponse, error) {
	return s.advance(ctx, http.MethodGet, id, "current", nil)
}

// Continue advances to the next pending critique.
func (s *Service) Continue(ctx context.Context, id string) (*AdvanceResponse, error) {
	return s.advance(ctx, http.MethodPost, id, "continue", struct{}{})
}

// Goto jumps to the critique with the given stable number.
func (s *Service) Goto(ctx context.Context, id string, number int) (*AdvanceResponse, error) {
	return s.advance(ctx, http.MethodPost, id, "goto", GotoRequest{Number: number})
}

// Accept records the user's acceptance of a critique.
func (s *Service) Accept(ctx context.Context, id string, number int, note string) (*AdvanceResponse, error) {
	return s.advance(ctx, http.MethodPost, id, fmt.Sprintf("%d/accept", number), DispositionRequest{Number: number, Note: note})
}

// Reject records the user's rejection of a critique.
func (s *Service) Reject(ctx context.Context, id string, number int, note string) (*AdvanceResponse, error) {
	return s.advance(ctx, http.MethodPost, id, fmt.Sprintf("%d/reject", number), DispositionRequest{Number: number, Note: note})
}

// Review re-evaluates one critique against the current manuscript. The
// response may reissue the same number with materially different content;
// pkg/review turns that into a discussion transition.
func (s *Service) Review(ctx context.Context, id string, number int) (*AdvanceResponse, error) {
	return s.advance(ctx, http.MethodPost, id, fmt.Sprintf("%d/review", number), ReviewRequest{Number: number})
}

// MarkAmbiguity flags a critique as ambiguous so the critic restates it.
func (s *Service) MarkAmbiguity(ctx context.Context, id string, number int, note string) (*AdvanceResponse, error) {
	return s.advance(ctx, http.MethodPost, id, fmt.Sprintf("%d/ambiguity", number), AmbiguityRequest{Number: number, Note: note})
}

func (s *Service) advance(ctx context.Context, method, id, op string, body any) (*AdvanceResponse, error) {
	var resp AdvanceResponse
	path := fmt.Sprintf("/v1/sessions/%s/critiques/%s", url.PathEscape(id), op)
	if err := s.client.Call(ctx, method, path, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// -----------------------------------------------------------------------------
// Streams
// -----------------------------------------------------------------------------

// OpenAnalysisStream subscribes to analysis progress for a session:
// status, lens_complete, lens_error, complete, done.
func (s *Service) OpenAnalysisStream(ctx context.Context, id string) (*EventStream, error) {
	path := fmt.Sprintf("/v1/sessions/%s/analysis/stream", url.PathEscape(id))
	return s.client.OpenStream(ctx, http.MethodGet, path, nil)
}

// OpenDiscussionStream starts one streamed exchange about a critique:
// scene_change, token, done.
func (s *Service) OpenDiscussionStream(ctx context.Context, id string, number int, message string) (*EventStream, error) {
	req := DiscussionRequest{
		ID:      uuid.New().String(),
		Number:  number,
		Message: message,
	}
	path := fmt.Sprintf("/v1/sessions/%s/critiques/%d/discussion/stream", url.PathEscape(id), number)
	return s.client.OpenStream(ctx, http.MethodPost, path, req)
}
