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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"pagebuilder/internal/bundle"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/export"
	"pagebuilder/internal/render"
	"pagebuilder/internal/telemetry"
)

func parseBreakpoint(s string) (domain.Breakpoint, error) {
	bp := domain.Breakpoint(strings.ToLower(strings.TrimSpace(s)))
	if bp == "" || bp.Valid() {
		return bp, nil
	}
	return "", fmt.Errorf("unknown breakpoint %q (want desktop, tablet or mobile)", s)
}

var (
	renderBreakpoint string
	renderOut        string
)

var renderCmd = &cobra.Command{
	Use:   "render <dir>",
	Short: "Render the page to HTML",
	Long: `Render the page to a standalone HTML document. Without --breakpoint the
stylesheet carries tablet and mobile media queries; with it the styles are
flattened for that one breakpoint.`,
	Args:    cobra.ExactArgs(1),
	GroupID: "output",
	RunE: func(cmd *cobra.Command, args []string) error {
		bp, err := parseBreakpoint(renderBreakpoint)
		if err != nil {
			return err
		}
		ph, err := openPage(args[0])
		if err != nil {
			return err
		}
		opts := render.Options{Breakpoint: bp, Title: ph.Page.Name}
		if renderOut == "" || renderOut == "-" {
			return render.Render(stdout, ph.Page, opts)
		}
		f, err := os.Create(renderOut)
		if err != nil {
			return err
		}
		if err := render.Render(f, ph.Page, opts); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		PrintSuccess("Rendered " + renderOut)
		return nil
	},
}

var (
	exportBreakpoints []string
	exportThumb       int
	exportLabels      bool
	exportFormats     []string
	exportOutDir      string
)

var exportCmd = &cobra.Command{
	Use:     "export",
	Short:   "Export wireframes as PNG or PDF",
	GroupID: "output",
}

var exportPNGCmd = &cobra.Command{
	Use:   "png <dir> <out.png>",
	Short: "Rasterize the page wireframe at one breakpoint",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var bp domain.Breakpoint
		if len(exportBreakpoints) > 0 {
			var err error
			if bp, err = parseBreakpoint(exportBreakpoints[0]); err != nil {
				return err
			}
		}
		ph, err := openPage(args[0])
		if err != nil {
			return err
		}
		path, err := export.ExportPNG(ph, args[1], export.PNGOptions{Breakpoint: bp, ThumbWidth: exportThumb, Labels: exportLabels})
		if err != nil {
			return err
		}
		telemetry.Event(telemetry.EventExported, map[string]any{"format": "png"})
		PrintSuccess("Wrote " + path)
		return nil
	},
}

var exportPDFCmd = &cobra.Command{
	Use:   "pdf <dir> <out.pdf>",
	Short: "Write one wireframe page per breakpoint into a PDF",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var bps []domain.Breakpoint
		for _, s := range exportBreakpoints {
			bp, err := parseBreakpoint(s)
			if err != nil {
				return err
			}
			if bp != "" {
				bps = append(bps, bp)
			}
		}
		ph, err := openPage(args[0])
		if err != nil {
			return err
		}
		path, err := export.ExportPDF(ph, args[1], export.PDFOptions{Breakpoints: bps, Labels: exportLabels})
		if err != nil {
			return err
		}
		telemetry.Event(telemetry.EventExported, map[string]any{"format": "pdf"})
		PrintSuccess("Wrote " + path)
		return nil
	},
}

var exportPresetCmd = &cobra.Command{
	Use:   "preset <dir> <name>",
	Short: "Run a named export preset (thumbnail, wireframe, responsive)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ph, err := openPage(args[0])
		if err != nil {
			return err
		}
		paths, err := export.BatchExport(ph, export.BatchOptions{
			Preset:  export.PresetName(args[1]),
			Formats: exportFormats,
			OutDir:  exportOutDir,
		})
		if err != nil {
			return err
		}
		telemetry.Event(telemetry.EventExported, map[string]any{"format": "preset", "preset": args[1]})
		if jsonOutput {
			return printJSON(paths)
		}
		PrintSuccess(fmt.Sprintf("Preset %s wrote %s", args[1], PrintCount(len(paths), "file", "files")))
		PrintList(paths, 1)
		return nil
	},
}

var bundleCmd = &cobra.Command{
	Use:     "bundle",
	Short:   "Pack a page with its assets into a zip, or install one",
	GroupID: "output",
}

var bundleExportCmd = &cobra.Command{
	Use:   "export <dir> <out.zip>",
	Short: "Write page.json, assets/ and a rendered index.html into a zip",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ph, err := openPage(args[0])
		if err != nil {
			return err
		}
		n, err := bundle.Export(ph, args[1])
		if err != nil {
			return err
		}
		telemetry.Event(telemetry.EventExported, map[string]any{"format": "bundle"})
		PrintSuccess(fmt.Sprintf("Wrote %s (%s)", args[1], PrintCount(n, "entry", "entries")))
		return nil
	},
}

var bundleInstallCmd = &cobra.Command{
	Use:   "install <bundle.zip> <dir>",
	Short: "Install a bundle as a new page directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		abs, err := filepath.Abs(args[1])
		if err != nil {
			return err
		}
		ph, n, err := bundle.Install(abs, args[0])
		if err != nil {
			return err
		}
		current = ph
		if _, err := savePage(cmd.Context(), ph, "Install "+filepath.Base(args[0])); err != nil {
			return err
		}
		PrintSuccess(fmt.Sprintf("Installed %q at %s (%s)", ph.Page.Name, abs, PrintCount(n, "file", "files")))
		return nil
	},
}

func init() {
	bundleCmd.AddCommand(bundleExportCmd, bundleInstallCmd)

	renderCmd.Flags().StringVarP(&renderBreakpoint, "breakpoint", "b", "", "Flatten styles for desktop, tablet or mobile")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "Output file (default stdout)")

	exportCmd.PersistentFlags().StringSliceVarP(&exportBreakpoints, "breakpoint", "b", nil, "Breakpoints to export (png uses the first)")
	exportCmd.PersistentFlags().BoolVar(&exportLabels, "labels", true, "Draw component labels")
	exportPNGCmd.Flags().IntVar(&exportThumb, "thumb", 0, "Downscale to this width in pixels")
	exportPresetCmd.Flags().StringSliceVar(&exportFormats, "format", nil, "Formats to write (png, pdf); default per preset")
	exportPresetCmd.Flags().StringVar(&exportOutDir, "out-dir", "", "Output directory (default <page>/exports)")
	exportCmd.AddCommand(exportPNGCmd, exportPDFCmd, exportPresetCmd)
}
