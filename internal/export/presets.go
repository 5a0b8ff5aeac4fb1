/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/storage"
)

// PresetName represents a named export preset.
type PresetName string

const (
	// PresetThumbnail is a small unlabeled desktop PNG for page lists.
	PresetThumbnail PresetName = "thumbnail"
	// PresetWireframe is a labeled desktop PNG plus PDF.
	PresetWireframe PresetName = "wireframe"
	// PresetResponsive covers every breakpoint: one PNG each and a three-page PDF.
	PresetResponsive PresetName = "responsive"
)

// ThumbnailWidth is the pixel width of PresetThumbnail output.
const ThumbnailWidth = 320

// Presets lists the known preset names.
func Presets() []PresetName {
	return []PresetName{PresetThumbnail, PresetWireframe, PresetResponsive}
}

// BatchOptions controls batch export.
//
// Path semantics:
//   - If OutDir is empty or relative, it is created under <page>/exports/<preset>/.
//   - Files are named <page-slug>[-<breakpoint>].(png|pdf).
type BatchOptions struct {
	Preset  PresetName
	Formats []string // allowed: png, pdf; empty means preset defaults
	OutDir  string
}

// BatchExport runs the exports of a preset and returns the written paths.
func BatchExport(ph *storage.PageHandle, opt BatchOptions) ([]string, error) {
	if ph == nil {
		return nil, fmt.Errorf("page handle is nil")
	}
	if opt.Preset == "" {
		opt.Preset = PresetWireframe
	}
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	if formats == nil {
		return nil, fmt.Errorf("unknown preset: %s", opt.Preset)
	}

	baseOut := opt.OutDir
	if baseOut == "" {
		baseOut = string(opt.Preset)
	}
	if !filepath.IsAbs(baseOut) {
		baseOut = filepath.Join(ph.Root, storage.ExportsDirName, baseOut)
	}
	base := pageSlug(ph.Page)
	bps := presetBreakpoints(opt.Preset)
	labels := opt.Preset != PresetThumbnail

	var written []string
	for _, f := range formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "png":
			for _, bp := range bps {
				name := base + ".png"
				if len(bps) > 1 {
					name = base + "-" + string(bp) + ".png"
				}
				po := PNGOptions{Breakpoint: bp, Labels: labels}
				if opt.Preset == PresetThumbnail {
					po.ThumbWidth = ThumbnailWidth
				}
				p, err := ExportPNG(ph, filepath.Join(baseOut, name), po)
				if err != nil {
					return written, fmt.Errorf("png %s: %w", bp, err)
				}
				written = append(written, p)
			}
		case "pdf":
			p, err := ExportPDF(ph, filepath.Join(baseOut, base+".pdf"), PDFOptions{Breakpoints: bps, Labels: labels})
			if err != nil {
				return written, fmt.Errorf("pdf: %w", err)
			}
			written = append(written, p)
		default:
			return written, fmt.Errorf("unknown format: %s", f)
		}
	}
	return written, nil
}

func pageSlug(doc domain.Document) string {
	if s := slug.Make(doc.Name); s != "" {
		return s
	}
	if s := slug.Make(doc.ID); s != "" {
		return s
	}
	return "page"
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetThumbnail:
		return []string{"png"}
	case PresetWireframe, PresetResponsive:
		return []string{"png", "pdf"}
	default:
		return nil
	}
}

func presetBreakpoints(p PresetName) []domain.Breakpoint {
	if p == PresetResponsive {
		return []domain.Breakpoint{domain.Desktop, domain.Tablet, domain.Mobile}
	}
	return []domain.Breakpoint{domain.Desktop}
}
