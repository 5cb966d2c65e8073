// Copyright (C) 2026 Alexis Argyris
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package critic

import (
	"context"
	"encoding/json"
	"log/slog"
)

// =============================================================================
// One-shot interactive recovery
// =============================================================================

// Resolver obtains a correction for a known recoverable condition. It is
// interactive: implementations typically prompt the user and may suspend
// indefinitely awaiting input. Returning (nil, nil) means the user
// declined; the wrapped operation then fails with ErrRecoveryCancelled.
type Resolver[C any] func(ctx context.Context, detail json.RawMessage) (*C, error)

// RecoverySpec binds one known error code to its interactive resolver.
// Each call-site instantiates its own spec; the codes form a closed set
// defined by the service (see RecoveryCode* constants).
type RecoverySpec[C any] struct {
	// Code is the structured error code this spec recovers from.
	Code string

	// Resolve supplies the correction. Nil correction means cancelled.
	Resolve Resolver[C]

	// Logger is optional; defaults to slog.Default.
	Logger *slog.Logger
}

// Known recovery codes.
const (
	// RecoveryCodeManuscriptNotFound: the session's manuscript reference
	// no longer resolves. Correction supplies an alternate path.
	RecoveryCodeManuscriptNotFound = "manuscript_not_found"

	// RecoveryCodeProjectConfigMoved: the stored project configuration
	// path is gone. Correction supplies the new location.
	RecoveryCodeProjectConfigMoved = "project_config_moved"
)

// WithRecovery runs call with one-shot interactive recovery.
//
// The first attempt runs with a nil correction. On failure, the structured
// detail for spec.Code is extracted from the error; extraction failure
// rethrows the error unchanged. Otherwise the resolver is invoked; if it
// yields no usable correction the operation fails with
// ErrRecoveryCancelled, never the original error, which the user has
// already seen. A usable correction triggers exactly one retry. There is
// no loop: a failing retry is terminal.
func WithRecovery[C any](ctx context.Context, spec RecoverySpec[C], call func(ctx context.Context, correction *C) error) error {
	logger := spec.Logger
	if logger == nil {
		logger = slog.Default()
	}

	err := call(ctx, nil)
	if err == nil {
		return nil
	}

	detail, ok := recoverableDetail(err, spec.Code)
	if !ok {
		return err
	}

	logger.Info("attempting interactive recovery", "code", spec.Code)

	correction, rerr := spec.Resolve(ctx, detail)
	if rerr != nil || correction == nil {
		if rerr != nil {
			logger.Warn("recovery resolver failed", "code", spec.Code, "error", rerr)
		} else {
			logger.Info("recovery declined by user", "code", spec.Code)
		}
		return ErrRecoveryCancelled
	}

	logger.Info("retrying with correction", "code", spec.Code)
	return call(ctx, correction)
}
