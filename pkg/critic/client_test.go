// Copyright (C) 2026 Alexis Argyris
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package critic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// =============================================================================
// Call
// =============================================================================

func TestClient_Call_DecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Request-Id") == "" {
			t.Error("expected X-Request-Id header")
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"sess-1","status":"active","total":3}`)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})

	var session Session
	err := client.Call(context.Background(), http.MethodGet, "/v1/sessions/sess-1", nil, &session)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.ID != "sess-1" || session.Status != SessionActive || session.Total != 3 {
		t.Errorf("unexpected decoded session: %+v", session)
	}
}

func TestClient_Call_ClassifiesStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"detail":{"path":"/gone.md"},"code":"manuscript_not_found"}`)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})

	err := client.Call(context.Background(), http.MethodPost, "/v1/sessions/x/resume", struct{}{}, nil)
	if err == nil {
		t.Fatal("expected an error")
	}

	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TransportError, got %T", err)
	}
	if terr.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", terr.StatusCode)
	}
	if terr.Code() != RecoveryCodeManuscriptNotFound {
		t.Errorf("expected parsed recovery code, got %q", terr.Code())
	}
	if len(terr.Body) == 0 {
		t.Error("expected raw body to be preserved")
	}
}

func TestClient_Call_NetworkFailure(t *testing.T) {
	client := NewClient(ClientConfig{
		BaseURL: "http://127.0.0.1:1", // nothing listens here
		Timeout: 2 * time.Second,
	})

	err := client.Call(context.Background(), http.MethodGet, "/v1/sessions", nil, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TransportError, got %T", err)
	}
	if terr.StatusCode != 0 {
		t.Errorf("network failure should carry status 0, got %d", terr.StatusCode)
	}
}

// =============================================================================
// OpenStream
// =============================================================================

func TestClient_OpenStream_DeliversEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"status\",\"message\":\"warming up\"}\n")
		fmt.Fprint(w, "data: {\"type\":\"done\"}\n")
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})

	stream, err := client.OpenStream(context.Background(), http.MethodGet, "/v1/sessions/s/analysis/stream", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Cancel()

	events := collectEvents(t, stream)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Kind != EventStatus || events[1].Kind != EventDone {
		t.Errorf("unexpected event kinds: %v, %v", events[0].Kind, events[1].Kind)
	}
}

func TestClient_OpenStream_StatusErrorBuffersBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"detail":"session is not active"}`)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})

	stream, err := client.OpenStream(context.Background(), http.MethodGet, "/v1/sessions/s/analysis/stream", nil)
	if stream != nil {
		t.Error("expected no stream on status error")
	}
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TransportError, got %T", err)
	}
	if terr.StatusCode != http.StatusConflict {
		t.Errorf("expected status 409, got %d", terr.StatusCode)
	}
	if terr.DetailText() != "session is not active" {
		t.Errorf("unexpected detail text: %q", terr.DetailText())
	}
}
