// Copyright (C) 2026 Alexis Argyris
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	app *App

	configPath       string
	baseURL          string
	personalityLevel string // Output style (full/minimal/machine)
	modelName        string
	projectConfig    string
	resumeManuscript string
	forceDelete      bool
	noWatch          bool

	rootCmd = &cobra.Command{
		Use:   "litcritic",
		Short: "A cli for interactive manuscript review sessions",
		Long: `litcritic drives a critique session against a running critic
				service: start a review over your manuscripts, then walk the
				critiques one at a time, accepting, rejecting, discussing,
				or re-reviewing each.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			app, err = newApp(configPath, baseURL, personalityLevel)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				app.Close()
			}
		},
	}

	// --- Sessions ---
	sessionCmd = &cobra.Command{
		Use:   "session",
		Short: "Manage review sessions",
	}
	startSessionCmd = &cobra.Command{
		Use:   "start [manuscript...]",
		Short: "Start a new review session over one or more manuscripts",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSessionStart, // Defined in cmd_session.go
	}
	resumeSessionCmd = &cobra.Command{
		Use:   "resume [session_id]",
		Short: "Resume an existing review session",
		Args:  cobra.ExactArgs(1),
		RunE:  runSessionResume, // Defined in cmd_session.go
	}
	listSessionsCmd = &cobra.Command{
		Use:   "list",
		Short: "List all review sessions",
		RunE:  runSessionList, // Defined in cmd_session.go
	}
	showSessionCmd = &cobra.Command{
		Use:   "show [session_id]",
		Short: "Show one session with its full critique listing",
		Args:  cobra.ExactArgs(1),
		RunE:  runSessionShow, // Defined in cmd_session.go
	}
	deleteSessionCmd = &cobra.Command{
		Use:   "delete [session_id]",
		Short: "Delete a review session",
		Args:  cobra.ExactArgs(1),
		RunE:  runSessionDelete, // Defined in cmd_session.go
	}

	// --- Review ---
	reviewCmd = &cobra.Command{
		Use:   "review [session_id]",
		Short: "Walk a session's critiques interactively",
		Args:  cobra.ExactArgs(1),
		RunE:  runReview, // Defined in review_runner.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config file (default ~/.litcritic/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "",
		"Critic service URL, overrides the config file")
	rootCmd.PersistentFlags().StringVar(&personalityLevel, "personality", "",
		"Output style: full (default, literary), minimal, or machine (scripting)")

	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(startSessionCmd)
	startSessionCmd.Flags().StringVar(&modelName, "model", "", "Model to review with (default from config)")
	startSessionCmd.Flags().StringVar(&projectConfig, "project-config", "", "Project configuration path (default from config)")
	sessionCmd.AddCommand(resumeSessionCmd)
	resumeSessionCmd.Flags().StringVar(&resumeManuscript, "manuscript", "",
		"Corrected manuscript path if the stored one has moved")
	sessionCmd.AddCommand(listSessionsCmd)
	sessionCmd.AddCommand(showSessionCmd)
	sessionCmd.AddCommand(deleteSessionCmd)
	deleteSessionCmd.Flags().BoolVar(&forceDelete, "force", false, "Skip the confirmation prompt")

	rootCmd.AddCommand(reviewCmd)
	reviewCmd.Flags().BoolVar(&noWatch, "no-watch", false, "Disable manuscript change watching")
}
