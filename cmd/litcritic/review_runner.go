// Copyright (C) 2026 Alexis Argyris
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package main contains the interactive review loop.
//
// The ReviewRunner owns one terminal session over one review session:
// it reads commands, routes them through the reconciliation engine and
// the discussion controller, and renders whatever those push back.
//
//	runReview → ReviewRunner → review.Engine (cache + reconciliation)
//	                           discussion.Controller (streamed exchanges)
//	                           ManuscriptWatcher (dirty flag)
//	                           InputReader (stdin abstraction)
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexisargyris/lit-critic-sub001/pkg/critic"
	"github.com/alexisargyris/lit-critic-sub001/pkg/discussion"
	"github.com/alexisargyris/lit-critic-sub001/pkg/review"
	"github.com/alexisargyris/lit-critic-sub001/pkg/tracker"
	"github.com/alexisargyris/lit-critic-sub001/pkg/ux"
)

// errQuit ends the loop without being reported as a failure.
var errQuit = errors.New("quit")

// =============================================================================
// Input
// =============================================================================

// InputReader abstracts line input so tests can script a session.
type InputReader interface {
	// ReadLine blocks for one line, trimmed. io.EOF ends the session.
	ReadLine() (string, error)
}

// StdinReader is the production InputReader over os.Stdin.
type StdinReader struct {
	reader *bufio.Reader
}

func NewStdinReader() *StdinReader {
	return &StdinReader{reader: bufio.NewReader(os.Stdin)}
}

func (r *StdinReader) ReadLine() (string, error) {
	line, err := r.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ScriptReader replays predetermined lines, then io.EOF. Test use only.
type ScriptReader struct {
	lines []string
	index int
}

func NewScriptReader(lines ...string) *ScriptReader {
	return &ScriptReader{lines: lines}
}

func (r *ScriptReader) ReadLine() (string, error) {
	if r.index >= len(r.lines) {
		return "", io.EOF
	}
	line := r.lines[r.index]
	r.index++
	return strings.TrimSpace(line), nil
}

// =============================================================================
// Presentation listeners
// =============================================================================

// renderListener prints engine notifications. It never calls back into
// the engine.
type renderListener struct {
	review.NopListener
}

func (renderListener) CurrentChanged(c *critic.Critique, index, total int, complete bool) {
	if complete {
		ux.Success("Every critique has been addressed.")
		return
	}
	if c != nil {
		fmt.Println(ux.RenderCritique(*c, index, total))
	}
}

func (renderListener) StalenessNoticeChanged(visible bool, report *critic.StalenessReport) {
	if visible && report != nil {
		fmt.Println(ux.RenderStaleness(report))
	}
}

func (renderListener) TransitionAvailable(t *review.DiscussionTransition) {
	fmt.Println(ux.RenderTransition(t))
}

// exchangeOutcome is one settled discussion exchange.
type exchangeOutcome struct {
	number int
	reply  string
	err    error
}

// exchangePrinter streams the critic's reply to stdout as it arrives and
// reports settlement on a channel the loop blocks on. Superseded
// exchanges never settle, so the channel sees at most one outcome per
// Send.
type exchangePrinter struct {
	settled chan exchangeOutcome
}

func newExchangePrinter() *exchangePrinter {
	return &exchangePrinter{settled: make(chan exchangeOutcome, 1)}
}

func (p *exchangePrinter) MessageSent(number int, message string) {}

func (p *exchangePrinter) TokenReceived(content string) {
	fmt.Print(content)
}

func (p *exchangePrinter) SceneChanged(files []string) {
	fmt.Println()
	ux.Muted("The manuscript changed while the critic was replying.")
}

func (p *exchangePrinter) Settled(number int, reply string, err error) {
	fmt.Println()
	p.settled <- exchangeOutcome{number: number, reply: reply, err: err}
}

var _ discussion.Listener = (*exchangePrinter)(nil)

// =============================================================================
// ReviewRunner
// =============================================================================

// ReviewRunner drives the command loop for one session.
type ReviewRunner struct {
	app        *App
	engine     *review.Engine
	controller *discussion.Controller
	printer    *exchangePrinter
	watcher    *ManuscriptWatcher
	reader     InputReader
	sessionID  string
}

// NewReviewRunner wires a runner for the given populated session state.
// watcher may be nil when change watching is disabled.
func NewReviewRunner(app *App, sessionID string, reader InputReader, watcher *ManuscriptWatcher) *ReviewRunner {
	printer := newExchangePrinter()
	return &ReviewRunner{
		app: app,
		engine: review.NewEngine(review.EngineConfig{
			SessionID: sessionID,
			Fetcher:   app.Service,
			Listener:  renderListener{},
			Logger:    app.Logger.Slog(),
		}),
		controller: discussion.NewController(discussion.ControllerConfig{
			Streamer: discussion.NewServiceStreamer(app.Service, sessionID),
			Listener: printer,
			Logger:   app.Logger.Slog(),
		}),
		printer:   printer,
		watcher:   watcher,
		reader:    reader,
		sessionID: sessionID,
	}
}

func runReview(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id := args[0]

	session, err := tracker.Track(ctx, app.Tracker, "get_session",
		func(ctx context.Context) (*critic.Session, error) {
			return app.Service.GetSession(ctx, id)
		})
	if err != nil {
		return err
	}

	var watcher *ManuscriptWatcher
	if app.Config.Watch.Enabled && !noWatch {
		watcher, err = NewManuscriptWatcher(session.ManuscriptPaths, app.Logger.Slog())
		if err != nil {
			app.Logger.Warn("manuscript watcher unavailable", "error", err)
			watcher = nil
		}
	}
	if watcher != nil {
		defer watcher.Close()
	}

	runner := NewReviewRunner(app, id, NewStdinReader(), watcher)
	ux.Title(fmt.Sprintf("Reviewing session %s", id))
	if err := runner.engine.Populate(ctx, session); err != nil {
		return err
	}
	return runner.Run(ctx)
}

// Run executes the command loop until quit, EOF, or context cancellation.
func (r *ReviewRunner) Run(ctx context.Context) error {
	defer r.controller.Cancel()

	if ux.IsInteractive() {
		ux.Muted("Type 'help' for commands.")
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.pollStaleness(ctx); err != nil {
			return err
		}

		fmt.Print(r.prompt())
		line, err := r.reader.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Println()
				return nil
			}
			return err
		}
		if line == "" {
			continue
		}

		if err := r.dispatch(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			// Command failures stay in the loop; the session survives a
			// failed call.
			ux.Error(err.Error())
		}
	}
}

func (r *ReviewRunner) prompt() string {
	if current, _, complete := r.engine.Current(); current != nil && !complete {
		return fmt.Sprintf("critique %d> ", current.Number)
	}
	return "> "
}

// pollStaleness consumes the watcher's dirty flag, asks the server, and
// routes the answer through the engine. The prompt choice only appears
// when the engine decides the notice is visible.
func (r *ReviewRunner) pollStaleness(ctx context.Context) error {
	if r.watcher == nil || !r.watcher.DirtyAndReset() {
		return nil
	}

	report, err := tracker.Track(ctx, r.app.Tracker, "check_staleness",
		func(ctx context.Context) (*critic.StalenessReport, error) {
			return r.app.Service.CheckStaleness(ctx, r.sessionID)
		})
	if err != nil {
		// A failed check is not worth breaking the session over.
		r.app.Logger.Warn("staleness check failed", "session_id", r.sessionID, "error", err)
		return nil
	}

	r.engine.ApplyStalenessReport(report)
	if notice, visible := r.engine.StalenessNotice(); visible && notice.Prompt {
		return r.resolveStaleness(ctx, notice)
	}
	return nil
}

func (r *ReviewRunner) resolveStaleness(ctx context.Context, report *critic.StalenessReport) error {
	choice, err := promptStaleness(report)
	if err != nil {
		return err
	}
	switch choice {
	case stalenessRerun:
		return r.reReviewCurrent(ctx)
	case stalenessDismiss:
		r.engine.DismissStaleness()
	}
	return nil
}

// -----------------------------------------------------------------------------
// Command dispatch
// -----------------------------------------------------------------------------

func (r *ReviewRunner) dispatch(ctx context.Context, line string) error {
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch verb {
	case "help", "h", "?":
		r.printHelp()
		return nil
	case "show":
		return r.showCurrent()
	case "current", "sync":
		return r.advance(ctx, "current", func(ctx context.Context) (*critic.AdvanceResponse, error) {
			return r.app.Service.Current(ctx, r.sessionID)
		})
	case "list", "ls":
		return r.listCritiques()
	case "continue", "next", "n":
		return r.advance(ctx, "continue", func(ctx context.Context) (*critic.AdvanceResponse, error) {
			return r.app.Service.Continue(ctx, r.sessionID)
		})
	case "goto", "g":
		number, err := strconv.Atoi(rest)
		if err != nil {
			return fmt.Errorf("usage: goto <number>")
		}
		return r.advance(ctx, "goto", func(ctx context.Context) (*critic.AdvanceResponse, error) {
			return r.app.Service.Goto(ctx, r.sessionID, number)
		})
	case "accept", "a":
		return r.disposeCurrent(ctx, "accept", rest, r.app.Service.Accept)
	case "reject", "r":
		return r.disposeCurrent(ctx, "reject", rest, r.app.Service.Reject)
	case "ambiguous", "ambiguity":
		return r.disposeCurrent(ctx, "mark_ambiguity", rest, r.app.Service.MarkAmbiguity)
	case "review", "rereview", "re-review":
		return r.reReviewCurrent(ctx)
	case "discuss", "d":
		if rest == "" {
			return fmt.Errorf("usage: discuss <message>")
		}
		return r.discuss(ctx, rest)
	case "staleness", "check":
		return r.checkStalenessNow(ctx)
	case "dismiss":
		r.engine.DismissStaleness()
		return nil
	case "quit", "exit", "q":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q, try 'help'", verb)
	}
}

func (r *ReviewRunner) printHelp() {
	ux.Box("Commands", strings.Join([]string{
		"show              Show the current critique again",
		"current           Refetch the server's current critique",
		"list              One line per critique with its disposition",
		"continue          Move to the next pending critique",
		"goto <number>     Jump to a critique by number",
		"accept [note]     Accept the current critique",
		"reject [note]     Reject the current critique",
		"ambiguous [note]  Ask the critic to restate the current critique",
		"review            Re-review the current critique against the text",
		"discuss <msg>     Talk to the critic about the current critique",
		"check             Check whether the critiques have gone stale",
		"dismiss           Dismiss the staleness notice",
		"quit              Leave the session (progress is server-side)",
	}, "\n"))
}

func (r *ReviewRunner) showCurrent() error {
	current, index, _ := r.engine.Current()
	if current == nil {
		ux.Info("No critique is current.")
		return nil
	}
	fmt.Println(ux.RenderCritique(*current, index, r.engine.Total()))
	if len(current.Discussion) > 0 {
		fmt.Println(ux.RenderDiscussion(current.Discussion))
	}
	return nil
}

func (r *ReviewRunner) listCritiques() error {
	critiques := r.engine.Critiques()
	if len(critiques) == 0 {
		ux.Info("No critiques yet.")
		return nil
	}
	for _, c := range critiques {
		fmt.Printf("  %3d  %-8s  %-12s  %s\n", c.Number, c.Severity, c.Status, c.Lens)
	}
	return nil
}

// advance runs one navigation or disposition call under the engine's
// single-flight guard, with the tracker's slow-operation surfaces around
// the network call.
func (r *ReviewRunner) advance(ctx context.Context, operation string, op func(ctx context.Context) (*critic.AdvanceResponse, error)) error {
	err := r.engine.Advance(ctx, func(ctx context.Context) (*critic.AdvanceResponse, error) {
		return tracker.Track(ctx, r.app.Tracker, operation, op)
	})
	if err != nil {
		if errors.Is(err, review.ErrAdvanceInFlight) {
			ux.Warning("Still working on the previous command.")
			return nil
		}
		return err
	}
	return r.maybeFinish(ctx)
}

type dispositionCall func(ctx context.Context, id string, number int, note string) (*critic.AdvanceResponse, error)

func (r *ReviewRunner) disposeCurrent(ctx context.Context, operation, note string, call dispositionCall) error {
	current, _, _ := r.engine.Current()
	if current == nil {
		return fmt.Errorf("no critique is current")
	}
	number := current.Number
	return r.advance(ctx, operation, func(ctx context.Context) (*critic.AdvanceResponse, error) {
		return call(ctx, r.sessionID, number, note)
	})
}

// reReviewCurrent goes through ApplyReview rather than Advance so a
// materially different reissue snapshots the previous content first.
func (r *ReviewRunner) reReviewCurrent(ctx context.Context) error {
	current, _, _ := r.engine.Current()
	if current == nil {
		return fmt.Errorf("no critique is current")
	}
	number := current.Number

	resp, err := tracker.Track(ctx, r.app.Tracker, "review",
		func(ctx context.Context) (*critic.AdvanceResponse, error) {
			return r.app.Service.Review(ctx, r.sessionID, number)
		})
	if err != nil {
		return err
	}
	if err := r.engine.ApplyReview(resp); err != nil {
		return err
	}
	return r.maybeFinish(ctx)
}

func (r *ReviewRunner) discuss(ctx context.Context, message string) error {
	current, _, _ := r.engine.Current()
	if current == nil {
		return fmt.Errorf("no critique is current")
	}

	r.controller.Send(ctx, current.Number, message)

	select {
	case outcome := <-r.printer.settled:
		if outcome.err != nil {
			if errors.Is(outcome.err, discussion.ErrStreamTimeout) {
				ux.Warning("The critic stopped responding; the exchange was abandoned.")
				return nil
			}
			return outcome.err
		}
		return nil
	case <-ctx.Done():
		r.controller.Cancel()
		return ctx.Err()
	}
}

func (r *ReviewRunner) checkStalenessNow(ctx context.Context) error {
	report, err := tracker.Track(ctx, r.app.Tracker, "check_staleness",
		func(ctx context.Context) (*critic.StalenessReport, error) {
			return r.app.Service.CheckStaleness(ctx, r.sessionID)
		})
	if err != nil {
		return err
	}
	r.engine.ApplyStalenessReport(report)
	if _, visible := r.engine.StalenessNotice(); !visible {
		ux.Success("Critiques are current.")
	}
	return nil
}

// maybeFinish cross-checks a completion signal against authoritative
// session state. A confirmed completion ends the loop; a contradicted one
// re-presents the real current critique and keeps going.
func (r *ReviewRunner) maybeFinish(ctx context.Context) error {
	if !r.engine.Complete() {
		return nil
	}
	confirmed, err := r.engine.ConfirmCompletion(ctx)
	if err != nil {
		return err
	}
	if !confirmed {
		ux.Warning("The collection is not actually finished; picking up the open critique.")
		return nil
	}
	return errQuit
}
