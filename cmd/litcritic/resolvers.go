// Copyright (C) 2026 Alexis Argyris
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Interactive resolvers for the recovery wrapper. Each one prompts the
// user for a correction; declining (empty answer, ctrl+c, or a non-TTY
// stdin) returns nil so the wrapped operation fails with
// ErrRecoveryCancelled instead of retrying blind.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/alexisargyris/lit-critic-sub001/pkg/critic"
	"github.com/alexisargyris/lit-critic-sub001/pkg/ux"
)

// pathDetail is the structured detail carried by manuscript_not_found and
// project_config_moved errors.
type pathDetail struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message,omitempty"`
}

func manuscriptResolver() critic.Resolver[string] {
	return pathResolver(
		"Manuscript not found",
		"The manuscript this session was created from is no longer at its recorded path.",
		"Corrected manuscript path",
	)
}

func projectConfigResolver() critic.Resolver[string] {
	return pathResolver(
		"Project configuration moved",
		"The stored project configuration path no longer resolves.",
		"New project configuration path",
	)
}

func pathResolver(title, explanation, prompt string) critic.Resolver[string] {
	return func(ctx context.Context, detail json.RawMessage) (*string, error) {
		if !ux.IsInteractive() {
			return nil, nil
		}

		var d pathDetail
		if len(detail) > 0 {
			// Best effort; an unparseable detail still gets a prompt.
			_ = json.Unmarshal(detail, &d)
		}

		content := explanation
		if d.Path != "" {
			content += fmt.Sprintf("\nMissing: %s", d.Path)
		}
		if d.Message != "" {
			content += "\n" + d.Message
		}
		ux.WarningBox(title, content)

		var corrected string
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title(prompt).
				Description("Leave empty to give up.").
				Value(&corrected).
				Validate(func(s string) error {
					s = strings.TrimSpace(s)
					if s == "" {
						return nil
					}
					if _, err := os.Stat(s); err != nil {
						return fmt.Errorf("cannot read %s", s)
					}
					return nil
				}),
		))
		if err := form.RunWithContext(ctx); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil, nil
			}
			return nil, err
		}

		corrected = strings.TrimSpace(corrected)
		if corrected == "" {
			return nil, nil
		}
		return &corrected, nil
	}
}

// confirmDelete asks before destroying a session. Non-interactive runs
// must pass --force; silently deleting from a script is worse than
// failing.
func confirmDelete(id string) (bool, error) {
	if forceDelete {
		return true, nil
	}
	if !ux.IsInteractive() {
		return false, fmt.Errorf("refusing to delete session %s without --force on non-interactive input", id)
	}

	confirmed := false
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(fmt.Sprintf("Delete session %s?", id)).
			Description("All critiques and discussion history will be lost.").
			Affirmative("Delete").
			Negative("Keep").
			Value(&confirmed),
	))
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return confirmed, nil
}

// Staleness choices offered when cached critiques may be outdated.
const (
	stalenessRerun   = "rerun"
	stalenessDismiss = "dismiss"
	stalenessLater   = "later"
)

// promptStaleness asks how to handle a staleness notice. Outside a TTY
// the notice was already printed and the answer is always "later".
func promptStaleness(report *critic.StalenessReport) (string, error) {
	if !ux.IsInteractive() {
		return stalenessLater, nil
	}

	content := "The manuscript has changed since these critiques were written."
	if len(report.ChangedFiles) > 0 {
		content += "\nChanged: " + strings.Join(report.ChangedFiles, ", ")
	}
	ux.WarningBox("Critiques may be stale", content)

	choice := stalenessLater
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("How do you want to proceed?").
			Options(
				huh.NewOption("Re-review the current critique against the new text", stalenessRerun),
				huh.NewOption("Dismiss the notice for now", stalenessDismiss),
				huh.NewOption("Decide later", stalenessLater),
			).
			Value(&choice),
	))
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return stalenessLater, nil
		}
		return "", err
	}
	return choice, nil
}
