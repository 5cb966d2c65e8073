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
	"testing"
)

// =============================================================================
// ErrorBody.DetailText
// =============================================================================

func TestErrorBody_DetailText_PlainString(t *testing.T) {
	body := &ErrorBody{Detail: json.RawMessage(`"manuscript is empty"`)}
	if got := body.DetailText(); got != "manuscript is empty" {
		t.Errorf("expected plain string passthrough, got %q", got)
	}
}

func TestErrorBody_DetailText_ValidationList(t *testing.T) {
	body := &ErrorBody{Detail: json.RawMessage(
		`[{"loc":["body","manuscript_paths"],"msg":"field required"},{"loc":["body","model"],"msg":"unknown model"}]`)}
	want := "body.manuscript_paths: field required, body.model: unknown model"
	if got := body.DetailText(); got != want {
		t.Errorf("expected joined validation list,\n got:  %q\n want: %q", got, want)
	}
}

func TestErrorBody_DetailText_ArbitraryObject(t *testing.T) {
	body := &ErrorBody{Detail: json.RawMessage(`{"reason":"index rebuild in progress"}`)}
	if got := body.DetailText(); got != `{"reason":"index rebuild in progress"}` {
		t.Errorf("expected stringified object, got %q", got)
	}
}

// =============================================================================
// TransportError
// =============================================================================

func TestTransportError_ErrorShape(t *testing.T) {
	terr := &TransportError{
		Method:     "POST",
		Path:       "/v1/sessions",
		StatusCode: 422,
		Body:       []byte(`{"detail":"bad request"}`),
	}
	want := `server error (422): {"detail":"bad request"}`
	if terr.Error() != want {
		t.Errorf("message shape changed: %q (recovery extraction depends on it)", terr.Error())
	}
}

func TestTransportError_CodeAndUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	terr := &TransportError{Method: "GET", Path: "/v1/sessions", Err: inner}
	if !errors.Is(terr, inner) {
		t.Error("expected Unwrap to expose the network error")
	}
	if terr.Code() != "" {
		t.Errorf("expected empty code without a detail body, got %q", terr.Code())
	}

	terr2 := &TransportError{
		StatusCode: 404,
		Detail:     &ErrorBody{Code: RecoveryCodeManuscriptNotFound},
	}
	if terr2.Code() != RecoveryCodeManuscriptNotFound {
		t.Errorf("unexpected code: %q", terr2.Code())
	}
}

// =============================================================================
// recoverableDetail
// =============================================================================

func TestRecoverableDetail_FromTransportError(t *testing.T) {
	terr := &TransportError{
		StatusCode: 404,
		Detail: &ErrorBody{
			Detail: json.RawMessage(`{"path":"/old/novel.md"}`),
			Code:   RecoveryCodeManuscriptNotFound,
		},
	}

	detail, ok := recoverableDetail(terr, RecoveryCodeManuscriptNotFound)
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	var payload struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(detail, &payload); err != nil {
		t.Fatalf("detail not decodable: %v", err)
	}
	if payload.Path != "/old/novel.md" {
		t.Errorf("unexpected path: %q", payload.Path)
	}
}

func TestRecoverableDetail_WrappedTransportError(t *testing.T) {
	terr := &TransportError{
		StatusCode: 404,
		Detail:     &ErrorBody{Code: RecoveryCodeProjectConfigMoved},
	}
	wrapped := fmt.Errorf("resume session: %w", terr)

	if _, ok := recoverableDetail(wrapped, RecoveryCodeProjectConfigMoved); !ok {
		t.Error("expected extraction through the error chain")
	}
}

func TestRecoverableDetail_CodeMismatch(t *testing.T) {
	terr := &TransportError{
		StatusCode: 404,
		Detail:     &ErrorBody{Code: RecoveryCodeManuscriptNotFound},
	}
	if _, ok := recoverableDetail(terr, RecoveryCodeProjectConfigMoved); ok {
		t.Error("expected mismatch on a different code")
	}
}

func TestRecoverableDetail_MessageTextFallback(t *testing.T) {
	// An error that lost its type but kept the documented message shape.
	err := errors.New(`server error (404): {"detail":{"path":"/gone.md"},"code":"manuscript_not_found"}`)

	detail, ok := recoverableDetail(err, RecoveryCodeManuscriptNotFound)
	if !ok {
		t.Fatal("expected fallback text extraction to succeed")
	}
	if len(detail) == 0 {
		t.Error("expected non-empty detail payload")
	}
}

func TestRecoverableDetail_PlainErrorFails(t *testing.T) {
	if _, ok := recoverableDetail(errors.New("dial tcp: timeout"), RecoveryCodeManuscriptNotFound); ok {
		t.Error("expected extraction to fail on an unstructured error")
	}
}
