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
	"image/color"
	"io"
	"os"

	"github.com/jung-kurt/gofpdf"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/storage"
)

// pxToPt maps CSS pixels (96/in) to PDF points (72/in).
const pxToPt = 0.75

// captionBand is the strip above the wireframe holding the page caption, in pt.
const captionBand = 28.0

// PDFOptions controls PDF export behavior.
// Each breakpoint gets its own page sized to the laid out canvas; an empty
// list exports desktop only. Text uses built-in Helvetica, so nothing is embedded.
type PDFOptions struct {
	Breakpoints []domain.Breakpoint
	Labels      bool
}

func (o PDFOptions) breakpoints() []domain.Breakpoint {
	var out []domain.Breakpoint
	for _, bp := range o.Breakpoints {
		if bp.Valid() {
			out = append(out, bp)
		}
	}
	if len(out) == 0 {
		out = []domain.Breakpoint{domain.Desktop}
	}
	return out
}

// BuildPDF lays out one page per breakpoint.
func BuildPDF(doc domain.Document, opt PDFOptions) *gofpdf.Fpdf {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: WidthFor(domain.Desktop) * pxToPt, Ht: 800},
	})
	pdf.SetTitle(doc.Name, true)
	pdf.SetAuthor("pagebuilder", false)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, bp := range opt.breakpoints() {
		width := WidthFor(bp)
		g, boxes := wireframe(doc, width, bp)
		pw := g.Width * pxToPt
		ph := g.Height*pxToPt + captionBand
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: pw, Ht: ph})

		pdf.SetFont("Helvetica", "B", 11)
		setTextColor(pdf, labelColor)
		pdf.Text(12, 18, tr(caption(doc, bp, width)))

		for _, b := range boxes {
			x := b.Rect.X * pxToPt
			y := b.Rect.Y*pxToPt + captionBand
			w := b.Rect.W * pxToPt
			h := b.Rect.H * pxToPt
			switch b.Kind {
			case kindColumn:
				setDrawColor(pdf, columnColor)
				pdf.SetLineWidth(0.5)
				pdf.SetDashPattern([]float64{3, 3}, 0)
				pdf.Rect(x, y, w, h, "D")
				pdf.SetDashPattern([]float64{}, 0)
			case kindContainer:
				setDrawColor(pdf, strokeColor)
				pdf.SetLineWidth(0.75)
				pdf.Rect(x, y, w, h, "D")
			default:
				setDrawColor(pdf, strokeColor)
				setFillColor(pdf, b.Fill)
				pdf.SetLineWidth(0.75)
				pdf.Rect(x, y, w, h, "FD")
				if opt.Labels {
					pdfLabel(pdf, x, y, w, h, tr(b.Label))
				}
			}
		}
	}
	return pdf
}

// pdfLabel writes the wrapped caption inside a block, clipped to its height.
func pdfLabel(pdf *gofpdf.Fpdf, x, y, w, h float64, s string) {
	const size, pad = 8.0, 4.0
	if w <= 2*pad || h < size+pad {
		return
	}
	pdf.SetFont("Helvetica", "", size)
	setTextColor(pdf, labelColor)
	by := y + pad + size
	for _, line := range pdf.SplitLines([]byte(s), w-2*pad) {
		if by > y+h-pad/2 {
			break
		}
		pdf.Text(x+pad, by, string(line))
		by += size * 1.2
	}
}

// WritePDF renders the wireframe PDF into w.
func WritePDF(w io.Writer, doc domain.Document, opt PDFOptions) error {
	pdf := BuildPDF(doc, opt)
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// ExportPDF writes the page's wireframe PDF to outPath. A relative outPath
// is placed under the page's exports folder. It returns the written path.
func ExportPDF(ph *storage.PageHandle, outPath string, opt PDFOptions) (string, error) {
	if ph == nil {
		return "", fmt.Errorf("page handle is nil")
	}
	outPath, err := resolveOut(ph, outPath)
	if err != nil {
		return "", err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create pdf: %w", err)
	}
	if err := WritePDF(f, ph.Page, opt); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close pdf: %w", err)
	}
	return outPath, nil
}

func setDrawColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}

func setTextColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
}
