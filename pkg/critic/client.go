// Copyright (C) 2026 Alexis Argyris
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package critic transport layer.
//
// This file implements the request/response half of the network boundary.
// Streaming lives in stream.go. The transport never retries; retry policy
// belongs to the recovery wrapper and to the user.
package critic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DefaultCallTimeout is the single fixed timeout applied to every plain
// request/response call. It is minutes-scale because the backing analysis
// is slow; per-call tuning is deliberately not offered.
const DefaultCallTimeout = 5 * time.Minute

// HTTPClient abstracts HTTP execution so tests can inject mock transports.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// =============================================================================
// Client
// =============================================================================

// ClientConfig configures a Client. Only BaseURL is required.
type ClientConfig struct {
	BaseURL string        // Service URL without trailing slash (required)
	Timeout time.Duration // Plain-call timeout (optional, default 5m)
	Logger  *slog.Logger  // Structured logger (optional, default slog.Default)

	// CallClient and StreamClient inject custom HTTP clients, mainly for
	// tests. When nil, production clients are built from Timeout. They are
	// separate because the call client carries the fixed overall timeout,
	// which would sever long-lived streams.
	CallClient   HTTPClient
	StreamClient HTTPClient
}

// Client is the low-level transport for the critic service: JSON
// request/response calls plus SSE stream opening. A Client is safe for
// concurrent use; a call suspends only its caller.
type Client struct {
	call    HTTPClient
	stream  HTTPClient
	baseURL string
	logger  *slog.Logger
}

// NewClient creates a transport client for the service at config.BaseURL.
func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultCallTimeout
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	callClient := config.CallClient
	if callClient == nil {
		callClient = &http.Client{Timeout: timeout}
	}

	streamClient := config.StreamClient
	if streamClient == nil {
		// No overall timeout: streams are bounded by caller watchdogs.
		streamClient = &http.Client{}
	}

	return &Client{
		call:    callClient,
		stream:  streamClient,
		baseURL: config.BaseURL,
		logger:  logger,
	}
}

// Call performs one JSON request/response exchange.
//
// body is marshalled as JSON when non-nil; out, when non-nil, receives the
// decoded 2xx response body. Non-2xx responses are classified into a
// *TransportError carrying the raw body and, when present, the parsed
// service error object. Network failures yield a *TransportError with
// StatusCode 0 wrapping the underlying error.
func (c *Client) Call(ctx context.Context, method, path string, body, out any) error {
	requestID := uuid.New().String()

	req, err := c.newRequest(ctx, method, path, body, requestID)
	if err != nil {
		return err
	}

	resp, err := c.call.Do(req)
	if err != nil {
		c.logger.Error("request failed",
			"request_id", requestID,
			"method", method,
			"path", path,
			"error", err,
		)
		return &TransportError{Method: method, Path: path, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "error", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		terr := &TransportError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       raw,
			Detail:     parseErrorBody(raw),
		}
		c.logger.Error("server returned error",
			"request_id", requestID,
			"method", method,
			"path", path,
			"status_code", resp.StatusCode,
			"code", terr.Code(),
		)
		return terr
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return &TransportError{Method: method, Path: path, Err: fmt.Errorf("decode response: %w", err)}
		}
	}

	c.logger.Debug("call completed",
		"request_id", requestID,
		"method", method,
		"path", path,
		"status_code", resp.StatusCode,
	)
	return nil
}

// OpenStream opens a long-lived connection and returns the decoded event
// sequence. See stream.go for decoding semantics. A non-2xx status at open
// is classified exactly like a plain call failure: the whole body is read
// and one *TransportError is returned instead of a stream.
func (c *Client) OpenStream(ctx context.Context, method, path string, body any) (*EventStream, error) {
	requestID := uuid.New().String()

	// The stream outlives this function; cancellation is owned by the
	// returned EventStream, not by the caller's request context alone.
	streamCtx, cancel := context.WithCancel(ctx)

	req, err := c.newRequest(streamCtx, method, path, body, requestID)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		cancel()
		c.logger.Error("stream open failed",
			"request_id", requestID,
			"method", method,
			"path", path,
			"error", err,
		)
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, readErr := io.ReadAll(resp.Body)
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Error("failed to close response body", "error", cerr)
		}
		cancel()
		if readErr != nil {
			return nil, &TransportError{Method: method, Path: path, StatusCode: resp.StatusCode, Err: readErr}
		}
		return nil, &TransportError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       raw,
			Detail:     parseErrorBody(raw),
		}
	}

	c.logger.Debug("stream opened",
		"request_id", requestID,
		"method", method,
		"path", path,
	)
	return newEventStream(resp.Body, cancel, c.logger.With("request_id", requestID)), nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any, requestID string) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-Id", requestID)
	return req, nil
}
