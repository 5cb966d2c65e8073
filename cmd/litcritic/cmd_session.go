// Copyright (C) 2026 Alexis Argyris
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alexisargyris/lit-critic-sub001/cmd/litcritic/config"
	"github.com/alexisargyris/lit-critic-sub001/pkg/critic"
	"github.com/alexisargyris/lit-critic-sub001/pkg/tracker"
	"github.com/alexisargyris/lit-critic-sub001/pkg/ux"
)

func runSessionStart(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	manuscripts := make([]string, 0, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", arg, err)
		}
		if _, err := os.Stat(abs); err != nil {
			return fmt.Errorf("cannot read manuscript %s", arg)
		}
		manuscripts = append(manuscripts, abs)
	}

	model := modelName
	if model == "" {
		model = app.Config.Review.Model
	}
	project := projectConfig
	if project == "" {
		project = app.Config.Review.ProjectConfig
	}

	ux.Title("Starting review session")

	var session *critic.Session
	var correctedProject string
	spec := critic.RecoverySpec[string]{
		Code:    critic.RecoveryCodeProjectConfigMoved,
		Resolve: projectConfigResolver(),
		Logger:  app.Logger.Slog(),
	}
	err := critic.WithRecovery(ctx, spec, func(ctx context.Context, correction *string) error {
		pc := project
		if correction != nil {
			pc = *correction
			correctedProject = pc
		}
		var err error
		session, err = tracker.Track(ctx, app.Tracker, "create_session",
			func(ctx context.Context) (*critic.Session, error) {
				return app.Service.CreateSession(ctx, manuscripts, model, pc)
			})
		return err
	})
	if err != nil {
		return err
	}

	// A correction the retry succeeded with is worth keeping; the next
	// run should not trip over the same moved file.
	if correctedProject != "" && app.Config.Review.ProjectConfig == project {
		app.Config.Review.ProjectConfig = correctedProject
		if err := config.Save(configPath, app.Config); err != nil {
			app.Logger.Warn("could not persist corrected project config path", "error", err)
		}
	}

	ux.Success(fmt.Sprintf("Session %s created", session.ID))

	if err := followAnalysis(ctx, session.ID); err != nil {
		return err
	}

	// The create response may predate analysis; fetch the settled listing.
	session, err = app.Service.GetSession(ctx, session.ID)
	if err != nil {
		return err
	}

	ux.Info(ux.RenderSessionRow(*session))
	ux.Muted(fmt.Sprintf("Run 'litcritic review %s' to walk the critiques.", session.ID))
	return nil
}

// followAnalysis renders analysis progress until the server signals done.
// A dropped stream is not fatal: the session exists and can be reviewed
// once analysis settles server-side.
func followAnalysis(ctx context.Context, sessionID string) error {
	stream, err := app.Service.OpenAnalysisStream(ctx, sessionID)
	if err != nil {
		ux.Warning("Could not follow analysis progress; the session is still being prepared server-side.")
		app.Logger.Warn("analysis stream open failed", "session_id", sessionID, "error", err)
		return nil
	}
	defer stream.Cancel()

	spinner := ux.NewSpinner("The critic is reading...")
	spinner.Start()
	defer spinner.Stop()

	for {
		select {
		case event, ok := <-stream.Events():
			if !ok {
				if serr := stream.Err(); serr != nil {
					spinner.StopWithError("Analysis stream dropped")
					app.Logger.Warn("analysis stream ended", "session_id", sessionID, "error", serr)
					return nil
				}
				spinner.StopWithSuccess("Analysis complete")
				return nil
			}
			switch event.Kind {
			case critic.EventStatus:
				if event.Message != "" {
					spinner.UpdateMessage(event.Message)
				}
			case critic.EventLensComplete:
				spinner.UpdateMessage(fmt.Sprintf("Finished the %s reading", event.Lens))
			case critic.EventLensError:
				app.Logger.Warn("lens failed", "session_id", sessionID, "lens", event.Lens, "error", event.Error)
			case critic.EventComplete:
				spinner.UpdateMessage("Collecting critiques...")
			case critic.EventDone:
				spinner.StopWithSuccess("Analysis complete")
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func runSessionResume(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id := args[0]

	var session *critic.Session
	spec := critic.RecoverySpec[string]{
		Code:    critic.RecoveryCodeManuscriptNotFound,
		Resolve: manuscriptResolver(),
		Logger:  app.Logger.Slog(),
	}
	err := critic.WithRecovery(ctx, spec, func(ctx context.Context, correction *string) error {
		override := resumeManuscript
		if correction != nil {
			override = *correction
		}
		var err error
		session, err = tracker.Track(ctx, app.Tracker, "resume_session",
			func(ctx context.Context) (*critic.Session, error) {
				return app.Service.ResumeSession(ctx, id, override)
			})
		return err
	})
	if err != nil {
		return err
	}

	ux.Success(fmt.Sprintf("Session %s resumed", session.ID))
	ux.Info(ux.RenderSessionRow(*session))
	ux.Muted(fmt.Sprintf("Run 'litcritic review %s' to continue.", session.ID))
	return nil
}

func runSessionList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sessions, err := tracker.Track(ctx, app.Tracker, "list_sessions",
		func(ctx context.Context) ([]critic.Session, error) {
			return app.Service.ListSessions(ctx)
		})
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		ux.Info("No review sessions found.")
		return nil
	}

	ux.Title("Review sessions")
	for _, s := range sessions {
		fmt.Println(ux.RenderSessionRow(s))
	}
	return nil
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	session, err := tracker.Track(ctx, app.Tracker, "get_session",
		func(ctx context.Context) (*critic.Session, error) {
			return app.Service.GetSession(ctx, args[0])
		})
	if err != nil {
		return err
	}

	ux.Title(fmt.Sprintf("Session %s", session.ID))
	fmt.Println(ux.RenderSessionRow(*session))
	for i, c := range session.Critiques {
		fmt.Println(ux.RenderCritique(c, i, len(session.Critiques)))
	}
	return nil
}

func runSessionDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id := args[0]

	ok, err := confirmDelete(id)
	if err != nil {
		return err
	}
	if !ok {
		ux.Muted("Kept.")
		return nil
	}

	if err := app.Tracker.Run(ctx, "delete_session", func(ctx context.Context) error {
		return app.Service.DeleteSession(ctx, id)
	}); err != nil {
		return err
	}

	ux.Success(fmt.Sprintf("Deleted session %s", id))
	return nil
}
