/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package layout computes where each component sits on the canvas, in
// unscaled content coordinates. The placement engine derives its drop zones
// from this geometry and the exporters draw it.
package layout

import (
	"pagebuilder/internal/domain"
	"pagebuilder/internal/geom"
	"pagebuilder/internal/style"
)

// Options controls page metrics. Zero values take the defaults below.
type Options struct {
	Width      float64
	Breakpoint domain.Breakpoint
	Padding    float64 // page padding on every side
	Gap        float64 // vertical gap between stacked blocks
	ColumnGap  float64 // gap between container columns
	Inset      float64 // container inner padding
}

const (
	DefaultWidth     = 1200.0
	DefaultPadding   = 24.0
	DefaultGap       = 16.0
	DefaultColumnGap = 16.0
	DefaultInset     = 12.0
	// MinColumnHeight keeps empty columns tall enough to be drop targets.
	MinColumnHeight = 80.0
	fallbackHeight  = 64.0
)

var defaultHeights = map[domain.ComponentType]float64{
	domain.TypeHeader:  72,
	domain.TypeText:    96,
	domain.TypeImage:   240,
	domain.TypeButton:  48,
	domain.TypeDivider: 16,
	domain.TypeSpacer:  48,
	domain.TypeVideo:   320,
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if !o.Breakpoint.Valid() {
		o.Breakpoint = style.ForWidth(o.Width)
	}
	if o.Padding <= 0 {
		o.Padding = DefaultPadding
	}
	if o.Gap <= 0 {
		o.Gap = DefaultGap
	}
	if o.ColumnGap <= 0 {
		o.ColumnGap = DefaultColumnGap
	}
	if o.Inset <= 0 {
		o.Inset = DefaultInset
	}
	return o
}

// Geometry is the computed layout of one document.
type Geometry struct {
	Width, Height float64
	Breakpoint    domain.Breakpoint
	// TopLevel lists top-level component ids in document order.
	TopLevel []string
	// Boxes holds every component's rectangle.
	Boxes map[string]geom.Rect
	// Columns holds each container's column rectangles.
	Columns map[string][]geom.Rect
}

// Box returns the rectangle of id.
func (g Geometry) Box(id string) (geom.Rect, bool) {
	r, ok := g.Boxes[id]
	return r, ok
}

// ContainerAt returns the top-level container whose box contains p.
func (g Geometry) ContainerAt(p geom.Pt) (string, bool) {
	for _, id := range g.TopLevel {
		if _, ok := g.Columns[id]; !ok {
			continue
		}
		if g.Boxes[id].Contains(p) {
			return id, true
		}
	}
	return "", false
}

// Height returns the rendered height of c at bp: the resolved "height"
// declaration in px, else a per-type default.
func Height(c domain.Component, bp domain.Breakpoint) float64 {
	if v, ok := style.Value(c.Styles, bp, "height"); ok {
		if px, ok := style.Pixels(v); ok && px > 0 {
			return px
		}
	}
	if h, ok := defaultHeights[c.Type]; ok {
		return h
	}
	return fallbackHeight
}

// Compute lays the document out as a single vertical stack.
func Compute(doc domain.Document, opts Options) Geometry {
	o := opts.withDefaults()
	g := Geometry{
		Width:      o.Width,
		Breakpoint: o.Breakpoint,
		Boxes:      make(map[string]geom.Rect, len(doc.Components)),
		Columns:    map[string][]geom.Rect{},
	}
	// group children per container and column, in document order
	children := map[string][][]domain.Component{}
	for _, c := range doc.Components {
		if !c.IsContainer || c.Layout == nil || c.ParentContainerID != "" {
			continue
		}
		children[c.ID] = make([][]domain.Component, domain.NormalizeLayout(*c.Layout).ColumnCount)
	}
	for _, c := range doc.Components {
		cols, ok := children[c.ParentContainerID]
		if !ok || c.ParentContainerID == "" {
			continue
		}
		col := c.Column
		if col < 0 || col >= len(cols) {
			col = len(cols) - 1
		}
		cols[col] = append(cols[col], c)
	}

	x := o.Padding
	w := o.Width - 2*o.Padding
	y := o.Padding
	for _, c := range doc.Components {
		if c.ParentContainerID != "" {
			if _, ok := children[c.ParentContainerID]; ok {
				continue
			}
		}
		g.TopLevel = append(g.TopLevel, c.ID)
		var h float64
		if cols, ok := children[c.ID]; ok {
			h = layoutContainer(&g, c, cols, geom.Pt{X: x, Y: y}, w, o)
		} else {
			h = Height(c, o.Breakpoint)
		}
		g.Boxes[c.ID] = geom.R(x, y, w, h)
		y += h + o.Gap
	}
	g.Height = y - o.Gap + o.Padding
	if len(g.TopLevel) == 0 {
		g.Height = 2 * o.Padding
	}
	return g
}

// layoutContainer places the columns and children of c starting at origin
// and returns the container height.
func layoutContainer(g *Geometry, c domain.Component, cols [][]domain.Component, origin geom.Pt, width float64, o Options) float64 {
	l := domain.NormalizeLayout(*c.Layout)
	inner := width - 2*o.Inset
	top := origin.Y + o.Inset
	heights := make([]float64, len(cols))
	for i, list := range cols {
		var h float64
		for j, ch := range list {
			if j > 0 {
				h += o.Gap
			}
			h += Height(ch, o.Breakpoint)
		}
		if h < MinColumnHeight {
			h = MinColumnHeight
		}
		heights[i] = h
	}

	rects := make([]geom.Rect, len(cols))
	stacked := l.Direction == domain.Stacked || o.Breakpoint == domain.Mobile
	if stacked {
		cy := top
		for i := range cols {
			rects[i] = geom.R(origin.X+o.Inset, cy, inner, heights[i])
			cy += heights[i] + o.ColumnGap
		}
	} else {
		usable := inner - o.ColumnGap*float64(len(cols)-1)
		cx := origin.X + o.Inset
		var tallest float64
		for _, h := range heights {
			if h > tallest {
				tallest = h
			}
		}
		for i := range cols {
			cw := usable * l.ColumnWidths[i] / 100
			rects[i] = geom.R(cx, top, cw, tallest)
			cx += cw + o.ColumnGap
		}
	}
	g.Columns[c.ID] = rects

	for i, list := range cols {
		cy := rects[i].Y
		for _, ch := range list {
			h := Height(ch, o.Breakpoint)
			g.Boxes[ch.ID] = geom.R(rects[i].X, cy, rects[i].W, h)
			cy += h + o.Gap
		}
	}

	last := rects[len(rects)-1]
	return last.Y + last.H + o.Inset - origin.Y
}
