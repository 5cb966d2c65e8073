// Copyright (C) 2026 Alexis Argyris
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package critic stream decoding.
//
// The service pushes events as lines of the form "data: {json}". The
// decoder is deliberately permissive: it does not require blank-line event
// separators, ignores comments and anything else it does not recognize,
// and silently drops data lines whose payload fails to parse. Availability
// over strict conformance.
package critic

import (
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// dataPrefix is the literal line prefix carrying one JSON-encoded event.
const dataPrefix = "data: "

// =============================================================================
// Events
// =============================================================================

// EventKind discriminates pushed events. The set is closed; switches over
// it should enumerate every case.
type EventKind string

const (
	// Analysis-progress stream.
	EventStatus       EventKind = "status"
	EventLensComplete EventKind = "lens_complete"
	EventLensError    EventKind = "lens_error"
	EventComplete     EventKind = "complete"

	// Discussion stream.
	EventSceneChange EventKind = "scene_change"
	EventToken       EventKind = "token"

	// Shared terminal marker.
	EventDone EventKind = "done"
)

// Event is one decoded server-push event. Fields beyond Kind are populated
// per kind; absent fields keep zero values.
type Event struct {
	Kind         EventKind `json:"type"`
	Content      string    `json:"content,omitempty"`
	Message      string    `json:"message,omitempty"`
	Lens         string    `json:"lens,omitempty"`
	Number       int       `json:"number,omitempty"`
	Total        int       `json:"total,omitempty"`
	SessionID    string    `json:"session_id,omitempty"`
	Error        string    `json:"error,omitempty"`
	ChangedFiles []string  `json:"changed_files,omitempty"`
}

// Terminal reports whether the event ends its stream.
func (e Event) Terminal() bool {
	return e.Kind == EventDone
}

// =============================================================================
// EventStream
// =============================================================================

// EventStream is a finite, non-restartable, lazily produced sequence of
// events decoded from one server connection.
//
// Consume via Events(); the channel closes when the stream ends, after
// which Err() reports the transport error that ended it, or nil for a
// clean end (terminal event or EOF). At most one terminal outcome is ever
// delivered.
//
// Cancel tears the connection down immediately. Events already buffered
// but not yet received are dropped, never flushed.
type EventStream struct {
	events chan Event
	done   chan struct{}
	cancel func()
	body   io.ReadCloser
	logger *slog.Logger

	mu     sync.Mutex
	err    error
	closed bool
}

// newEventStream starts decoding body on its own goroutine.
func newEventStream(body io.ReadCloser, cancel func(), logger *slog.Logger) *EventStream {
	s := &EventStream{
		events: make(chan Event),
		done:   make(chan struct{}),
		cancel: cancel,
		body:   body,
		logger: logger,
	}
	go s.decodeLoop()
	return s
}

// Events returns the receive side of the sequence.
func (s *EventStream) Events() <-chan Event {
	return s.events
}

// Err reports the error that ended the stream. Valid once Events() has
// closed; nil means the stream ended cleanly or was cancelled.
func (s *EventStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Cancel tears down the connection. Safe to call multiple times and after
// the stream has already ended.
func (s *EventStream) Cancel() {
	s.mu.Lock()
	already := s.closed
	s.closed = true
	s.mu.Unlock()
	if already {
		return
	}
	close(s.done)
	s.cancel()
	if err := s.body.Close(); err != nil {
		s.logger.Debug("stream body close", "error", err)
	}
}

// decodeLoop implements the incremental line decoder: accumulate incoming
// chunks, split on newline, hold back the final possibly-incomplete
// segment for the next chunk.
func (s *EventStream) decodeLoop() {
	defer close(s.events)
	defer s.Cancel()

	buf := make([]byte, 4096)
	var pending string

	for {
		n, err := s.body.Read(buf)
		if n > 0 {
			pending += string(buf[:n])
			for {
				idx := strings.IndexByte(pending, '\n')
				if idx < 0 {
					break
				}
				line := pending[:idx]
				pending = pending[idx+1:]
				if !s.emitLine(line) {
					return
				}
			}
		}
		if err != nil {
			// The held-back tail is complete now that no more bytes
			// are coming.
			if pending != "" {
				s.emitLine(pending)
			}
			if err != io.EOF && !s.wasCancelled() {
				s.setErr(err)
				s.logger.Error("stream read failed", "error", err)
			}
			return
		}
	}
}

// emitLine decodes one complete line and delivers its event, if any.
// Returns false when the stream should stop (terminal event delivered or
// consumer gone via Cancel).
func (s *EventStream) emitLine(line string) bool {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, dataPrefix) {
		// Comments, blank separators, anything unrecognized.
		return true
	}

	payload := line[len(dataPrefix):]
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		s.logger.Debug("dropping unparseable event", "error", err)
		return true
	}

	// Never block on a consumer that cancelled: dropped, not flushed.
	select {
	case s.events <- event:
	case <-s.done:
		return false
	}
	return !event.Terminal()
}

func (s *EventStream) wasCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *EventStream) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}
