/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pagebuilder/internal/backend"
	"pagebuilder/internal/config"
	"pagebuilder/internal/telemetry"
)

var (
	serveAddr   string
	serveDSN    string
	serveMemory bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the publishing backend (PostgreSQL)",
	Long: `Run the HTTP backend that stores published pages in PostgreSQL.

The DSN and address come from the config file, then PB_PG_DSN / DATABASE_URL
and PB_BACKEND_ADDR / PORT, then the flags. Tokens are signed with
PB_AUTH_SECRET. With --memory nothing is persisted and no database is needed.`,
	Args:    cobra.NoArgs,
	GroupID: "backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		bc := backend.ConfigFromEnv(backend.Config{DSN: cfg.Backend.DSN, Addr: cfg.Backend.Addr})
		if serveAddr != "" {
			bc.Addr = serveAddr
		}
		if serveDSN != "" {
			bc.DSN = serveDSN
		}
		if serveMemory {
			PrintWarning("In-memory store: published pages are lost on exit")
			PrintInfo("Serving on " + bc.Addr)
			return backend.StartMemory(cmd.Context(), bc)
		}
		PrintInfo("Serving on " + bc.Addr)
		return backend.Start(cmd.Context(), bc)
	},
}

func newClient() *backend.Client {
	return backend.NewClient(cfg.Backend.BaseURL, token, cfg.Backend.Timeout())
}

var (
	loginSubject string
	loginTTL     time.Duration
)

var loginCmd = &cobra.Command{
	Use:     "login",
	Short:   "Request a backend token and keep it in the OS keyring",
	Args:    cobra.NoArgs,
	GroupID: "backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		tr, err := c.RequestToken(cmd.Context(), loginSubject, loginTTL)
		if err != nil {
			return err
		}
		if err := config.Save(cfg, tr.Token); err != nil {
			return fmt.Errorf("store token: %w", err)
		}
		token = tr.Token
		PrintSuccess("Logged in to " + cfg.Backend.BaseURL + " until " + tr.ExpiresAt)
		return nil
	},
}

var publishIfVersion int64

var publishCmd = &cobra.Command{
	Use:   "publish <dir>",
	Short: "Publish the page to the backend",
	Long: `Publish the page to the backend. With --if-version the publish only
succeeds when the backend still holds that version.`,
	Args:    cobra.ExactArgs(1),
	GroupID: "backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		ph, err := openPage(args[0])
		if err != nil {
			return err
		}
		c := newClient()
		if c.Token == "" {
			if _, err := c.RequestToken(cmd.Context(), loginSubject, time.Hour); err != nil {
				return fmt.Errorf("no stored token and token request failed: %w", err)
			}
		}
		rec, err := c.PublishPage(cmd.Context(), ph.Page, publishIfVersion)
		if errors.Is(err, backend.ErrConflict) {
			return fmt.Errorf("backend holds a newer version than %d; fetch it or publish without --if-version", publishIfVersion)
		}
		if err != nil {
			return err
		}
		telemetry.Event(telemetry.EventPublished, map[string]any{"version": rec.Version})
		if jsonOutput {
			return printJSON(rec.PageSummary)
		}
		PrintSuccess(fmt.Sprintf("Published %q as version %d", rec.Name, rec.Version))
		return nil
	},
}

var pagesCmd = &cobra.Command{
	Use:     "pages",
	Short:   "List pages published on the backend",
	Args:    cobra.NoArgs,
	GroupID: "backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		if c.Token == "" {
			return errors.New("not logged in; run pagebuilder login")
		}
		list, err := c.ListPages(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(list)
		}
		rows := make([][]string, 0, len(list))
		for _, p := range list {
			rows = append(rows, []string{shortID(p.ID), p.Name, fmt.Sprint(p.Version), fmt.Sprint(p.Components), p.UpdatedBy})
		}
		PrintTable([]string{"ID", "NAME", "VERSION", "COMPONENTS", "BY"}, rows)
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address, e.g. :8080")
	serveCmd.Flags().StringVar(&serveDSN, "dsn", "", "PostgreSQL DSN")
	serveCmd.Flags().BoolVar(&serveMemory, "memory", false, "Keep pages in memory instead of PostgreSQL")
	loginCmd.Flags().StringVar(&loginSubject, "subject", "cli", "Token subject recorded on published versions")
	loginCmd.Flags().DurationVar(&loginTTL, "ttl", 24*time.Hour, "Token lifetime")
	publishCmd.Flags().Int64Var(&publishIfVersion, "if-version", 0, "Only publish over this backend version")
}
