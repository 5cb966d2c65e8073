// Copyright (C) 2026 Alexis Argyris
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package critic

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrRecoveryCancelled is returned by the recovery wrapper when the
// interactive resolver declined to supply a correction. It deliberately
// replaces the original error: the user has already seen and dismissed the
// underlying condition.
var ErrRecoveryCancelled = errors.New("recovery cancelled by user")

// =============================================================================
// TransportError
// =============================================================================

// TransportError is any failure crossing the network boundary: connection
// errors, timeouts, and non-2xx responses. For non-2xx responses it carries
// the raw body and, when the body is a well-formed service error object,
// the parsed form for downstream inspection.
type TransportError struct {
	// Method and Path identify the failed call.
	Method string
	Path   string

	// StatusCode is the HTTP status, or 0 for network-level failures.
	StatusCode int

	// Body is the raw response body for non-2xx responses.
	Body []byte

	// Detail is the parsed error body, nil when the body was not a
	// service error object.
	Detail *ErrorBody

	// Err is the underlying network error, nil for status failures.
	Err error
}

// Error formats the failure for display. The "server error (<status>): <body>"
// shape for status failures is load-bearing: the recovery wrapper's fallback
// extraction path parses it. Changing it silently breaks recovery for errors
// that travelled through fmt.Errorf wrapping.
func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, string(e.Body))
}

// Unwrap returns the underlying network error, enabling errors.Is checks
// for context.Canceled and friends.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Code returns the structured error code, or "" when the body carried none.
func (e *TransportError) Code() string {
	if e.Detail == nil {
		return ""
	}
	return e.Detail.Code
}

// DetailText renders the error detail for the user, falling back to the
// raw body when no structured detail is present.
func (e *TransportError) DetailText() string {
	if e.Detail != nil {
		if s := e.Detail.DetailText(); s != "" {
			return s
		}
	}
	return strings.TrimSpace(string(e.Body))
}

// =============================================================================
// Error-body contract
// =============================================================================

// ErrorBody is the JSON object carried by non-2xx responses.
//
// Detail holds one of three shapes: a plain string, a validation list
// (entries with a location path and a message), or an arbitrary object.
// Code, when present, selects a recovery flow; it is consumed exclusively
// by the recovery wrapper.
type ErrorBody struct {
	Detail json.RawMessage `json:"detail"`
	Code   string          `json:"code,omitempty"`
}

// ValidationItem is one entry of a structured validation detail.
type ValidationItem struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// DetailText renders the detail field for display.
//
// Plain strings are returned as-is. Validation lists are joined with
// commas, each entry as "loc.path: message". Anything else is stringified.
func (b *ErrorBody) DetailText() string {
	if len(b.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(b.Detail, &s); err == nil {
		return s
	}

	var items []ValidationItem
	if err := json.Unmarshal(b.Detail, &items); err == nil && len(items) > 0 {
		parts := make([]string, 0, len(items))
		for _, it := range items {
			parts = append(parts, formatValidationItem(it))
		}
		return strings.Join(parts, ", ")
	}

	return strings.TrimSpace(string(b.Detail))
}

func formatValidationItem(it ValidationItem) string {
	if len(it.Loc) == 0 {
		return it.Msg
	}
	segs := make([]string, 0, len(it.Loc))
	for _, l := range it.Loc {
		segs = append(segs, fmt.Sprintf("%v", l))
	}
	return fmt.Sprintf("%s: %s", strings.Join(segs, "."), it.Msg)
}

// parseErrorBody attempts to decode a non-2xx response body into the
// service error shape. A body that is not a JSON object with a detail
// field yields nil; the raw bytes remain available on the TransportError.
func parseErrorBody(raw []byte) *ErrorBody {
	var body ErrorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil
	}
	if len(body.Detail) == 0 && body.Code == "" {
		return nil
	}
	return &body
}

// =============================================================================
// Recoverable-detail extraction
// =============================================================================

// recoverableDetail extracts the structured detail for a known error code
// from err. The primary path inspects the TransportError carried through
// the error chain; the fallback parses the documented message shape
// "server error (<status>): <json>" for errors that lost their type on the
// way. Extraction failure is not an error: the caller rethrows unchanged.
func recoverableDetail(err error, code string) (json.RawMessage, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		if te.Detail != nil && te.Detail.Code == code {
			return te.Detail.Detail, true
		}
		return nil, false
	}

	// Fragile text bridge, kept for errors stringified by intermediate
	// layers. Depends on the TransportError.Error formatting above.
	msg := err.Error()
	idx := strings.Index(msg, "): ")
	if idx < 0 || !strings.Contains(msg[:idx], "server error (") {
		return nil, false
	}
	body := parseErrorBody([]byte(msg[idx+len("): "):]))
	if body == nil || body.Code != code {
		return nil, false
	}
	return body.Detail, true
}
