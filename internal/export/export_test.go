/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/image/font/basicfont"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/storage"
)

func samplePage() domain.Document {
	c := domain.NewComponent("c1", domain.TypeContainer)
	img := domain.NewComponent("i1", domain.TypeImage)
	img.ParentContainerID = "c1"
	btn := domain.NewComponent("b1", domain.TypeButton)
	btn.ParentContainerID = "c1"
	btn.Column = 1
	return domain.Document{
		ID:   "page-1",
		Name: "Spring Launch",
		Components: []domain.Component{
			domain.NewComponent("h1", domain.TypeHeader), c, img, btn,
			{ID: "x1", Type: "carousel"},
		},
	}
}

func TestWritePNGMatchesLayoutSize(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, samplePage(), PNGOptions{Labels: true}); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != int(WidthFor(domain.Desktop)) {
		t.Fatalf("width = %d", img.Bounds().Dx())
	}
	// right half of the header box, clear of its caption
	r, g, b, _ := img.At(1000, 80).RGBA()
	want := typeFill[domain.TypeHeader]
	if uint8(r>>8) != want.R || uint8(g>>8) != want.G || uint8(b>>8) != want.B {
		t.Fatalf("unexpected header fill at (1000,80): %v %v %v", r>>8, g>>8, b>>8)
	}
}

func TestThumbnailIsDownscaled(t *testing.T) {
	img := RasterizePNG(samplePage(), PNGOptions{ThumbWidth: ThumbnailWidth})
	if img.Bounds().Dx() != ThumbnailWidth {
		t.Fatalf("thumb width = %d", img.Bounds().Dx())
	}
	full := RasterizePNG(samplePage(), PNGOptions{})
	ratio := float64(full.Bounds().Dy()) / float64(full.Bounds().Dx())
	got := float64(img.Bounds().Dy()) / float64(img.Bounds().Dx())
	if got < ratio*0.95 || got > ratio*1.05 {
		t.Fatalf("aspect changed: %v vs %v", got, ratio)
	}
}

func TestMobileStacksColumns(t *testing.T) {
	mob := RasterizePNG(samplePage(), PNGOptions{Breakpoint: domain.Mobile})
	if mob.Bounds().Dx() != int(WidthFor(domain.Mobile)) {
		t.Fatalf("mobile width = %d", mob.Bounds().Dx())
	}
	_, boxes := wireframe(samplePage(), WidthFor(domain.Mobile), domain.Mobile)
	var cols []box
	for _, b := range boxes {
		if b.Kind == kindColumn {
			cols = append(cols, b)
		}
	}
	if len(cols) != 2 || cols[0].Rect.X != cols[1].Rect.X || cols[1].Rect.Y <= cols[0].Rect.Y {
		t.Fatalf("columns not stacked: %+v", cols)
	}
}

func TestWrapFitsWidth(t *testing.T) {
	lines := wrap(basicfont.Face7x13, "button (primary): Get started today", 70)
	if len(lines) < 3 {
		t.Fatalf("expected wrapping, got %q", lines)
	}
	for _, l := range lines {
		if len(l)*7 > 70 {
			t.Fatalf("line %q exceeds width", l)
		}
	}
	if got := wrap(basicfont.Face7x13, "abcdefghij", 28); !reflect.DeepEqual(got, []string{"abcd", "efgh", "ij"}) {
		t.Fatalf("long word split = %q", got)
	}
}

func TestLabelAndFill(t *testing.T) {
	h := domain.NewComponent("h", domain.TypeHeader)
	h.Variant = "h2"
	if got := label(h); got != "header (h2): Heading" {
		t.Fatalf("label = %q", got)
	}
	btn := domain.NewComponent("b", domain.TypeButton)
	if got := fillFor(btn, domain.Desktop); got.R != 0x25 || got.G != 0x63 || got.B != 0xeb {
		t.Fatalf("button fill should come from its background: %v", got)
	}
	if got := fillFor(domain.Component{Type: "carousel"}, domain.Desktop); got != placeholderRed {
		t.Fatalf("unknown type fill = %v", got)
	}
	if _, ok := parseHex("rgb(1,2,3)"); ok {
		t.Fatalf("only hex colors are parsed")
	}
	if c, ok := parseHex("#fff"); !ok || c.R != 255 || c.B != 255 {
		t.Fatalf("short hex = %v %v", c, ok)
	}
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	opt := PDFOptions{Breakpoints: []domain.Breakpoint{domain.Desktop, domain.Tablet, domain.Mobile}, Labels: true}
	if err := WritePDF(&buf, samplePage(), opt); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "%PDF-") {
		t.Fatalf("not a pdf")
	}
	if n := strings.Count(out, "/Type /Page") - strings.Count(out, "/Type /Pages"); n != 3 {
		t.Fatalf("pages = %d, want 3", n)
	}
}

func TestBatchExport_Presets(t *testing.T) {
	root := t.TempDir()
	ph, err := storage.InitPage(root, samplePage())
	if err != nil {
		t.Fatalf("init page: %v", err)
	}
	cases := []struct {
		preset PresetName
		want   []string
	}{
		{PresetThumbnail, []string{"thumbnail/spring-launch.png"}},
		{PresetWireframe, []string{"wireframe/spring-launch.png", "wireframe/spring-launch.pdf"}},
		{PresetResponsive, []string{
			"responsive/spring-launch-desktop.png",
			"responsive/spring-launch-tablet.png",
			"responsive/spring-launch-mobile.png",
			"responsive/spring-launch.pdf",
		}},
	}
	for _, tc := range cases {
		t.Run(string(tc.preset), func(t *testing.T) {
			written, err := BatchExport(ph, BatchOptions{Preset: tc.preset})
			if err != nil {
				t.Fatalf("batch export: %v", err)
			}
			if len(written) != len(tc.want) {
				t.Fatalf("written = %v", written)
			}
			for i, rel := range tc.want {
				p := filepath.Join(root, storage.ExportsDirName, filepath.FromSlash(rel))
				if written[i] != p {
					t.Fatalf("path %d = %s, want %s", i, written[i], p)
				}
				st, err := os.Stat(p)
				if err != nil || st.Size() == 0 {
					t.Fatalf("missing or empty %s: %v", p, err)
				}
			}
		})
	}
	if _, err := BatchExport(ph, BatchOptions{Preset: "poster"}); err == nil {
		t.Fatalf("expected unknown preset error")
	}
	if _, err := BatchExport(ph, BatchOptions{Preset: PresetThumbnail, Formats: []string{"svg"}}); err == nil {
		t.Fatalf("expected unknown format error")
	}
}
