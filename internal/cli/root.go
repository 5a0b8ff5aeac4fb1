/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package cli implements the pagebuilder command line.
package cli

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pagebuilder/internal/config"
	"pagebuilder/internal/crash"
	applog "pagebuilder/internal/log"
	"pagebuilder/internal/storage"
	"pagebuilder/internal/telemetry"
	"pagebuilder/internal/version"
)

var (
	jsonOutput bool

	// cfg and token are loaded before every command runs.
	cfg   = config.Defaults()
	token string

	// current is the page the running command opened; crash reports snapshot it.
	current *storage.PageHandle
)

var rootCmd = &cobra.Command{
	Use:     "pagebuilder",
	Version: version.String(),
	Short:   "Build block pages from scripts, render them and publish them",
	Long: `pagebuilder edits block-based web pages stored as a page.json directory.

Pages are changed by replaying YAML op scripts through the same store,
placement engine and history the editor uses, then rendered to HTML,
exported as PNG or PDF wireframes, or published to a pagebuilder backend.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		stdout = cmd.OutOrStdout()
		c, tok, err := config.Load()
		if err != nil {
			return err
		}
		cfg, token = c, tok
		applog.Init(applog.Options{
			Level:     c.Logging.Level,
			Format:    c.Logging.Format,
			AddSource: c.Logging.Source,
			File:      c.Logging.File,
			Writer:    cmd.ErrOrStderr(),
		})
		tc := telemetry.FromEnv()
		tc.OptIn = tc.OptIn || c.General.TelemetryOptIn
		telemetry.NewDefault(tc)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		telemetry.Flush(cmd.Context())
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context; a panic writes a crash report and snapshots the open page.
func Execute() error {
	defer crash.RecoverWith(func() *storage.PageHandle { return current })
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// printJSON writes v indented to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	rootCmd.AddGroup(
		&cobra.Group{ID: "editing", Title: "Page Editing:"},
		&cobra.Group{ID: "output", Title: "Rendering & Export:"},
		&cobra.Group{ID: "backend", Title: "Backend:"},
		&cobra.Group{ID: "tooling", Title: "CLI & Tooling:"},
	)
	rootCmd.SetHelpCommandGroupID("tooling")

	rootCmd.AddCommand(initCmd, showCmd, applyCmd, revisionsCmd, restoreCmd)
	rootCmd.AddCommand(renderCmd, exportCmd, bundleCmd)
	rootCmd.AddCommand(serveCmd, loginCmd, publishCmd, pagesCmd)
	rootCmd.AddCommand(versionCmd, configCmd)
}
