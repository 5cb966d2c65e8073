// Copyright (C) 2026 Alexis Argyris
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"fmt"
	"strings"

	"github.com/alexisargyris/lit-critic-sub001/pkg/critic"
	"github.com/alexisargyris/lit-critic-sub001/pkg/review"
)

// RenderCritique formats one critique for presentation. index is the
// zero-based cache position, total the expected session count.
func RenderCritique(c critic.Critique, index, total int) string {
	if GetPersonality().Level == PersonalityMachine {
		return fmt.Sprintf("CRITIQUE %d/%d number=%d severity=%s lens=%s lines=%s status=%s\n%s",
			index+1, total, c.Number, c.Severity, c.Lens, lineRange(c), c.Status, c.Evidence)
	}

	var b strings.Builder

	header := fmt.Sprintf("Critique %d of %d", index+1, total)
	b.WriteString(Styles.Title.Render(header))
	b.WriteString("  ")
	b.WriteString(severityStyle(c.Severity).Render(string(c.Severity)))
	if c.Lens != "" {
		b.WriteString(Styles.Muted.Render(" · " + c.Lens))
	}
	b.WriteString("\n")

	b.WriteString(Styles.Muted.Render("lines " + lineRange(c)))
	b.WriteString(Styles.Muted.Render("  [" + string(c.Status) + "]"))
	b.WriteString("\n\n")

	if c.Evidence != "" {
		b.WriteString(Styles.Quote.Render(indent(c.Evidence, "  ")))
		b.WriteString("\n\n")
	}
	if c.Impact != "" {
		b.WriteString(c.Impact)
		b.WriteString("\n")
	}
	for _, s := range c.Suggestions {
		b.WriteString(fmt.Sprintf("%s %s\n", string(IconBullet), s))
	}

	return b.String()
}

// RenderDiscussion formats a critique's discussion history.
func RenderDiscussion(turns []critic.DiscussionTurn) string {
	if len(turns) == 0 {
		return ""
	}
	var b strings.Builder
	for _, turn := range turns {
		switch turn.Role {
		case "user":
			b.WriteString(Styles.Bold.Render("you: "))
		default:
			b.WriteString(Styles.Subtitle.Render("critic: "))
		}
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// RenderTransition formats the previous context preserved by a re-review,
// shown before the replacement critique.
func RenderTransition(t *review.DiscussionTransition) string {
	var b strings.Builder
	b.WriteString(Styles.Warning.Render(
		fmt.Sprintf("critique %d was re-written after your edit; previous version:", t.Number)))
	b.WriteString("\n")
	b.WriteString(Styles.Quote.Render(indent(t.Previous.Evidence, "  ")))
	b.WriteString("\n")
	if history := RenderDiscussion(t.Previous.Discussion); history != "" {
		b.WriteString(Styles.Muted.Render("earlier discussion:"))
		b.WriteString("\n")
		b.WriteString(history)
	}
	return b.String()
}

// RenderStaleness formats the staleness notice.
func RenderStaleness(report *critic.StalenessReport) string {
	if report == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("manuscript changed since these critiques were written")
	if len(report.ChangedFiles) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(report.ChangedFiles, ", "))
	}
	return b.String()
}

// RenderSessionRow formats one row of the session listing.
func RenderSessionRow(s critic.Session) string {
	resolved := s.Accepted + s.Rejected
	if GetPersonality().Level == PersonalityMachine {
		return fmt.Sprintf("%s\t%s\t%d/%d\t%s",
			s.ID, s.Status, resolved, s.Total, strings.Join(s.ManuscriptPaths, ","))
	}
	status := Styles.Muted.Render(string(s.Status))
	if s.Status == critic.SessionActive {
		status = Styles.Success.Render(string(s.Status))
	}
	return fmt.Sprintf("%s  %s  %s  %s",
		Styles.Bold.Render(s.ID),
		status,
		ProgressBar(resolved, s.Total, 20),
		Styles.Muted.Render(strings.Join(s.ManuscriptPaths, ", ")),
	)
}

func severityStyle(s critic.Severity) interface{ Render(...string) string } {
	switch s {
	case critic.SeverityCritical:
		return Styles.SeverityCritical
	case critic.SeverityMajor:
		return Styles.SeverityMajor
	default:
		return Styles.SeverityMinor
	}
}

func lineRange(c critic.Critique) string {
	if c.EndLine > c.StartLine {
		return fmt.Sprintf("%d-%d", c.StartLine, c.EndLine)
	}
	return fmt.Sprintf("%d", c.StartLine)
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
