/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export draws page wireframes from layout geometry: PNG thumbnails
// and multi-breakpoint PDF sheets.
package export

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/geom"
	"pagebuilder/internal/layout"
	"pagebuilder/internal/style"
)

// Canvas widths used for each breakpoint when no explicit width is given.
var breakpointWidth = map[domain.Breakpoint]float64{
	domain.Desktop: layout.DefaultWidth,
	domain.Tablet:  900,
	domain.Mobile:  375,
}

// WidthFor returns the canvas width exports use for bp.
func WidthFor(bp domain.Breakpoint) float64 {
	if w, ok := breakpointWidth[bp]; ok {
		return w
	}
	return layout.DefaultWidth
}

type boxKind int

const (
	kindBlock boxKind = iota
	kindContainer
	kindColumn
)

// box is one rectangle of the wireframe in content pixels.
type box struct {
	Rect  geom.Rect
	Kind  boxKind
	Type  domain.ComponentType
	Label string
	Fill  color.RGBA
}

var (
	strokeColor    = color.RGBA{R: 55, G: 65, B: 81, A: 255}
	columnColor    = color.RGBA{R: 156, G: 163, B: 175, A: 255}
	labelColor     = color.RGBA{R: 17, G: 24, B: 39, A: 255}
	pageColor      = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	placeholderRed = color.RGBA{R: 254, G: 226, B: 226, A: 255}
)

var typeFill = map[domain.ComponentType]color.RGBA{
	domain.TypeHeader:    {R: 219, G: 234, B: 254, A: 255},
	domain.TypeText:      {R: 243, G: 244, B: 246, A: 255},
	domain.TypeImage:     {R: 220, G: 252, B: 231, A: 255},
	domain.TypeButton:    {R: 191, G: 219, B: 254, A: 255},
	domain.TypeDivider:   {R: 229, G: 231, B: 235, A: 255},
	domain.TypeSpacer:    {R: 250, G: 250, B: 250, A: 255},
	domain.TypeVideo:     {R: 237, G: 233, B: 254, A: 255},
	domain.TypeContainer: pageColor,
}

// wireframe lays doc out at width/bp and returns the boxes in paint order:
// containers and their columns first, then leaf blocks.
func wireframe(doc domain.Document, width float64, bp domain.Breakpoint) (layout.Geometry, []box) {
	g := layout.Compute(doc, layout.Options{Width: width, Breakpoint: bp})
	var frames, leaves []box
	for _, c := range doc.Components {
		r, ok := g.Box(c.ID)
		if !ok {
			continue
		}
		b := box{Rect: r, Type: c.Type, Label: label(c), Fill: fillFor(c, g.Breakpoint)}
		cols, isContainer := g.Columns[c.ID]
		if !isContainer {
			leaves = append(leaves, b)
			continue
		}
		b.Kind = kindContainer
		frames = append(frames, b)
		for _, cr := range cols {
			frames = append(frames, box{Rect: cr, Kind: kindColumn, Type: c.Type, Fill: b.Fill})
		}
	}
	return g, append(frames, leaves...)
}

// label is the caption drawn inside a block: its type and variant, plus the
// visible text when the payload has one.
func label(c domain.Component) string {
	s := string(c.Type)
	if c.Variant != "" {
		s += " (" + c.Variant + ")"
	}
	for _, k := range []string{"text", "label", "alt", "src"} {
		if v, ok := c.Props[k].(string); ok && strings.TrimSpace(v) != "" {
			return s + ": " + v
		}
	}
	return s
}

// fillFor prefers a resolved hex background, else a per-type tint. Unknown
// types get a red tint so they stand out like the preview placeholder.
func fillFor(c domain.Component, bp domain.Breakpoint) color.RGBA {
	if v, ok := style.Value(c.Styles, bp, "background"); ok {
		if col, ok := parseHex(v); ok {
			return col
		}
	}
	if f, ok := typeFill[c.Type]; ok {
		return f
	}
	return placeholderRed
}

// parseHex reads #rgb and #rrggbb colors.
func parseHex(s string) (color.RGBA, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		return color.RGBA{}, false
	}
	s = s[1:]
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, true
}

func caption(doc domain.Document, bp domain.Breakpoint, width float64) string {
	name := doc.Name
	if name == "" {
		name = doc.ID
	}
	return fmt.Sprintf("%s - %s %dpx", name, bp, int(width))
}
