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
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/storage"
)

// PNGOptions controls PNG export behavior.
//   - Width: canvas width in px; zero picks the breakpoint's width
//   - Breakpoint: which style layer to lay out; empty means desktop
//   - ThumbWidth: when > 0 the full-size raster is downscaled to this width
//   - Labels: draw type and text captions inside blocks
type PNGOptions struct {
	Width      float64
	Breakpoint domain.Breakpoint
	ThumbWidth int
	Labels     bool
}

func (o PNGOptions) resolve() (float64, domain.Breakpoint) {
	bp := o.Breakpoint
	if !bp.Valid() {
		bp = domain.Desktop
	}
	w := o.Width
	if w <= 0 {
		w = WidthFor(bp)
	}
	return w, bp
}

// RasterizePNG draws the wireframe of doc into an image.
func RasterizePNG(doc domain.Document, opt PNGOptions) image.Image {
	width, bp := opt.resolve()
	g, boxes := wireframe(doc, width, bp)
	pixW := int(math.Ceil(g.Width))
	pixH := int(math.Ceil(g.Height))
	img := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: pageColor}, image.Point{}, draw.Src)

	for _, b := range boxes {
		r := pixelRect(b.Rect.X, b.Rect.Y, b.Rect.W, b.Rect.H)
		switch b.Kind {
		case kindColumn:
			dashRect(img, r, columnColor)
		case kindContainer:
			strokeRect(img, r, strokeColor)
		default:
			fillRect(img, r, b.Fill)
			strokeRect(img, r, strokeColor)
			if opt.Labels {
				drawLabel(img, r, b.Label, labelColor)
			}
		}
	}
	if opt.ThumbWidth > 0 && opt.ThumbWidth < pixW {
		return imaging.Resize(img, opt.ThumbWidth, 0, imaging.Lanczos)
	}
	return img
}

// WritePNG encodes the wireframe of doc as PNG into w.
func WritePNG(w io.Writer, doc domain.Document, opt PNGOptions) error {
	if err := png.Encode(w, RasterizePNG(doc, opt)); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// ExportPNG writes the page's wireframe to outPath. A relative outPath is
// placed under the page's exports folder. It returns the written path.
func ExportPNG(ph *storage.PageHandle, outPath string, opt PNGOptions) (string, error) {
	if ph == nil {
		return "", fmt.Errorf("page handle is nil")
	}
	outPath, err := resolveOut(ph, outPath)
	if err != nil {
		return "", err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create png: %w", err)
	}
	if err := WritePNG(f, ph.Page, opt); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close png: %w", err)
	}
	return outPath, nil
}

func resolveOut(ph *storage.PageHandle, outPath string) (string, error) {
	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(ph.Root, storage.ExportsDirName, outPath)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("ensure out dir: %w", err)
	}
	return outPath, nil
}

func pixelRect(x, y, w, h float64) image.Rectangle {
	x0 := int(math.Round(x))
	y0 := int(math.Round(y))
	return image.Rect(x0, y0, x0+int(math.Round(w)), y0+int(math.Round(h)))
}

// strokeRect draws a 1px border just inside r.
func strokeRect(img *image.RGBA, r image.Rectangle, col color.RGBA) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	x0, y0, x1, y1 := r.Min.X, r.Min.Y, r.Max.X-1, r.Max.Y-1
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}

// dashRect is strokeRect with a 4 on, 4 off pattern.
func dashRect(img *image.RGBA, r image.Rectangle, col color.RGBA) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	x0, y0, x1, y1 := r.Min.X, r.Min.Y, r.Max.X-1, r.Max.Y-1
	for x := x0; x <= x1; x++ {
		if (x-x0)%8 < 4 {
			img.SetRGBA(x, y0, col)
			img.SetRGBA(x, y1, col)
		}
	}
	for y := y0; y <= y1; y++ {
		if (y-y0)%8 < 4 {
			img.SetRGBA(x0, y, col)
			img.SetRGBA(x1, y, col)
		}
	}
}

func fillRect(img *image.RGBA, r image.Rectangle, col color.RGBA) {
	draw.Draw(img, r.Intersect(img.Bounds()), &image.Uniform{C: col}, image.Point{}, draw.Src)
}
