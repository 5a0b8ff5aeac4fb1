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
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"pagebuilder/internal/document"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/layout"
	applog "pagebuilder/internal/log"
	"pagebuilder/internal/palette"
	"pagebuilder/internal/script"
	"pagebuilder/internal/storage"
	"pagebuilder/internal/telemetry"
	"pagebuilder/internal/undo"
)

// openPage opens the page directory and remembers it for crash recovery.
func openPage(dir string) (*storage.PageHandle, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	ph, err := storage.Open(abs)
	if err != nil {
		return nil, err
	}
	current = ph
	if ph.FromBackup {
		PrintWarning("page.json was unreadable; opened the latest backup")
	}
	if ph.Repaired > 0 {
		PrintWarning(fmt.Sprintf("repaired %s while loading", PrintCount(ph.Repaired, "problem", "problems")))
	}
	telemetry.Event(telemetry.EventPageOpened, map[string]any{"components": len(ph.Page.Components)})
	return ph, nil
}

// savePage writes the handle, records a revision and prunes old ones.
func savePage(ctx context.Context, ph *storage.PageHandle, label string) (storage.Revision, error) {
	if err := storage.Save(ph); err != nil {
		return storage.Revision{}, err
	}
	rev, err := recordRevision(ctx, ph, label)
	if err != nil {
		return storage.Revision{}, err
	}
	if keep := cfg.Storage.KeepRevisions; keep > 0 {
		if n, err := storage.PruneRevisions(ctx, ph, keep); err != nil {
			applog.WithComponent("cli").Warn("prune revisions failed", slog.Any("err", err))
		} else if n > 0 {
			applog.WithComponent("cli").Debug("revisions pruned", slog.Int64("count", n))
		}
	}
	telemetry.Event(telemetry.EventPageSaved, map[string]any{"components": len(ph.Page.Components)})
	return rev, nil
}

// recordRevision records a revision, rebuilding a damaged index once.
func recordRevision(ctx context.Context, ph *storage.PageHandle, label string) (storage.Revision, error) {
	rev, err := storage.RecordRevision(ctx, ph, label)
	if err == nil {
		return rev, nil
	}
	if rebuilt, rerr := storage.DetectAndRebuildIndex(ctx, ph.Root, ph.Page); rerr != nil || !rebuilt {
		return storage.Revision{}, fmt.Errorf("record revision: %w", err)
	}
	PrintWarning("The revision index was damaged and has been rebuilt; the old file is in .pb/backups")
	return storage.RecordRevision(ctx, ph, label)
}

func newStore(doc domain.Document) *document.Store {
	return document.New(doc, document.WithHistory(undo.Config{
		MaxEntries:     cfg.Editor.HistoryMax,
		CoalesceWithin: cfg.Editor.Coalesce(),
	}))
}

func loadPalette() (*palette.Palette, error) {
	if cfg.Editor.PaletteFile == "" {
		return palette.Default(), nil
	}
	return palette.LoadFile(cfg.Editor.PaletteFile)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var initCmd = &cobra.Command{
	Use:     "init <dir> <name>",
	Short:   "Create an empty page directory",
	Args:    cobra.ExactArgs(2),
	GroupID: "editing",
	RunE: func(cmd *cobra.Command, args []string) error {
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		ph, err := storage.InitPage(abs, domain.Document{Name: args[1]})
		if err != nil {
			return err
		}
		current = ph
		if _, err := recordRevision(cmd.Context(), ph, "Init"); err != nil {
			return err
		}
		PrintSuccess(fmt.Sprintf("Created page %q at %s", args[1], abs))
		return nil
	},
}

type componentView struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Variant string `json:"variant,omitempty"`
	Parent  string `json:"parent,omitempty"`
	Column  int    `json:"column,omitempty"`
}

type pageView struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Root       string          `json:"root"`
	FromBackup bool            `json:"fromBackup,omitempty"`
	Components []componentView `json:"components"`
}

var showCmd = &cobra.Command{
	Use:     "show <dir>",
	Short:   "Print a page summary and its component tree",
	Args:    cobra.ExactArgs(1),
	GroupID: "editing",
	RunE: func(cmd *cobra.Command, args []string) error {
		ph, err := openPage(args[0])
		if err != nil {
			return err
		}
		doc := ph.Page
		if jsonOutput {
			v := pageView{ID: doc.ID, Name: doc.Name, Root: ph.Root, FromBackup: ph.FromBackup, Components: []componentView{}}
			for _, c := range doc.Components {
				v.Components = append(v.Components, componentView{ID: c.ID, Type: string(c.Type), Variant: c.Variant, Parent: c.ParentContainerID, Column: c.Column})
			}
			return printJSON(v)
		}
		PrintSection("Page: " + doc.Name)
		PrintLabelValue("ID", doc.ID)
		PrintLabelValue("Root", ph.Root)
		PrintLabelValue("Components", fmt.Sprint(len(doc.Components)))
		PrintList(tree(doc), 1)
		return nil
	},
}

// tree lists top-level components with their children indented under the
// column they sit in.
func tree(doc domain.Document) []string {
	var out []string
	for _, c := range doc.Components {
		if !c.TopLevel() {
			continue
		}
		out = append(out, describe(c))
		if !c.IsContainer || c.Layout == nil {
			continue
		}
		for col := 0; col < c.Layout.ColumnCount; col++ {
			for _, ch := range doc.Children(c.ID) {
				if ch.Column == col {
					out = append(out, fmt.Sprintf("  [col %d] %s", col+1, describe(ch)))
				}
			}
		}
	}
	return out
}

func describe(c domain.Component) string {
	s := string(c.Type)
	if c.Variant != "" {
		s += " " + c.Variant
	}
	if !c.Type.Valid() {
		s += " (unknown type)"
	}
	return fmt.Sprintf("%s (%s)", s, shortID(c.ID))
}

var applyDryRun bool

var applyCmd = &cobra.Command{
	Use:   "apply <dir> <script.yaml>",
	Short: "Replay an op script against a page and save it",
	Long: `Replay a YAML op script against the page. Ops that cannot apply change
nothing and are listed as skipped. The page is saved and a revision is
recorded when at least one op applied, unless --dry-run is set.`,
	Args:    cobra.ExactArgs(2),
	GroupID: "editing",
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := script.LoadFile(args[1])
		if err != nil {
			return err
		}
		ph, err := openPage(args[0])
		if err != nil {
			return err
		}
		pal, err := loadPalette()
		if err != nil {
			return err
		}
		store := newStore(ph.Page)
		runner := script.NewRunner(store, script.Options{
			Palette: pal,
			Layout:  layout.Options{Width: cfg.Editor.CanvasWidth, Breakpoint: cfg.Editor.Breakpoint()},
		})
		res, err := runner.Run(cmd.Context(), sc)
		if err != nil {
			return err
		}
		telemetry.Event(telemetry.EventScriptApplied, map[string]any{"applied": res.Applied, "noops": res.NoOps})

		var rev storage.Revision
		if res.Applied > 0 && !applyDryRun {
			ph.Page = store.Document()
			label := "Apply " + filepath.Base(args[1])
			if sc.Name != "" {
				label = "Apply " + sc.Name
			}
			if rev, err = savePage(cmd.Context(), ph, label); err != nil {
				return err
			}
		}
		if jsonOutput {
			return printJSON(struct {
				script.Result
				Revision string `json:"revision,omitempty"`
			}{res, rev.ID})
		}
		for _, st := range res.Skipped() {
			PrintWarning(fmt.Sprintf("op %d (%s, line %d) skipped: %s", st.N, st.Op, st.Line, st.Reason))
		}
		switch {
		case applyDryRun:
			PrintInfo(fmt.Sprintf("Dry run: %s would apply, page not saved", PrintCount(res.Applied, "op", "ops")))
		case rev.ID != "":
			PrintSuccess(fmt.Sprintf("Applied %s, saved revision %s", PrintCount(res.Applied, "op", "ops"), shortID(rev.ID)))
		default:
			PrintInfo("Nothing applied, page unchanged")
		}
		return nil
	},
}

var revisionsLimit int

var revisionsCmd = &cobra.Command{
	Use:     "revisions <dir>",
	Short:   "List recorded revisions, newest first",
	Args:    cobra.ExactArgs(1),
	GroupID: "editing",
	RunE: func(cmd *cobra.Command, args []string) error {
		ph, err := openPage(args[0])
		if err != nil {
			return err
		}
		revs, err := storage.ListRevisions(cmd.Context(), ph, revisionsLimit)
		if err != nil {
			rebuilt, rerr := storage.DetectAndRebuildIndex(cmd.Context(), ph.Root, ph.Page)
			if rerr != nil || !rebuilt {
				return err
			}
			PrintWarning("The revision index was damaged and has been rebuilt; the old file is in .pb/backups")
			if revs, err = storage.ListRevisions(cmd.Context(), ph, revisionsLimit); err != nil {
				return err
			}
		}
		if jsonOutput {
			type revView struct {
				ID         string `json:"id"`
				TS         string `json:"ts"`
				Label      string `json:"label"`
				Components int    `json:"components"`
			}
			out := make([]revView, 0, len(revs))
			for _, r := range revs {
				out = append(out, revView{r.ID, r.TS.Format("2006-01-02T15:04:05Z07:00"), r.Label, r.Components})
			}
			return printJSON(out)
		}
		if len(revs) == 0 {
			PrintInfo("No revisions recorded.")
			return nil
		}
		rows := make([][]string, 0, len(revs))
		for _, r := range revs {
			rows = append(rows, []string{shortID(r.ID), r.TS.Local().Format("2006-01-02 15:04:05"), r.Label, fmt.Sprint(r.Components)})
		}
		PrintTable([]string{"ID", "TIME", "LABEL", "COMPONENTS"}, rows)
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:     "restore <dir> <revision>",
	Short:   "Restore a revision (full id or unique prefix) as the current page",
	Args:    cobra.ExactArgs(2),
	GroupID: "editing",
	RunE: func(cmd *cobra.Command, args []string) error {
		ph, err := openPage(args[0])
		if err != nil {
			return err
		}
		rev, err := storage.GetRevision(cmd.Context(), ph, strings.TrimSpace(args[1]))
		if err != nil {
			return err
		}
		ph.Page = rev.Doc
		saved, err := savePage(cmd.Context(), ph, "Restore "+shortID(rev.ID))
		if err != nil {
			return err
		}
		PrintSuccess(fmt.Sprintf("Restored %q (%s) as revision %s", rev.Label, shortID(rev.ID), shortID(saved.ID)))
		return nil
	},
}

func init() {
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Run the script without saving the page")
	revisionsCmd.Flags().IntVar(&revisionsLimit, "limit", 20, "Maximum number of revisions to list")
}
