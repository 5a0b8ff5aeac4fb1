/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package placement maps a pointer position during a drag to an insertion
// point in the document.
//
// Zones are registered in unscaled content coordinates. The pointer arrives in
// screen coordinates and is converted through the viewport transform first,
// so the same logical spot resolves identically at every zoom level.
package placement

import (
	"log/slog"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/geom"
	"pagebuilder/internal/layout"
	applog "pagebuilder/internal/log"
)

// SourceKind tells a palette drag from a drag of an existing component.
type SourceKind int

const (
	SourceNew SourceKind = iota + 1
	SourceExisting
)

// Source is what is being dragged.
type Source struct {
	Kind    SourceKind
	Type    domain.ComponentType // SourceNew
	Variant string               // SourceNew, optional
	ID      string               // SourceExisting
}

// NewSource describes a palette drag.
func NewSource(t domain.ComponentType, variant string) Source {
	return Source{Kind: SourceNew, Type: t, Variant: variant}
}

// ExistingSource describes a drag of component id.
func ExistingSource(id string) Source { return Source{Kind: SourceExisting, ID: id} }

// TargetKind classifies a resolved insertion point.
type TargetKind int

const (
	TargetNone TargetKind = iota
	TargetTopLevel
	TargetColumn
)

func (k TargetKind) String() string {
	switch k {
	case TargetTopLevel:
		return "top-level"
	case TargetColumn:
		return "column"
	default:
		return "none"
	}
}

// Target is a resolved insertion point. Index is the raw flat insertion index
// into the current document; for existing sources pass it through AdjustIndex
// once the source has been taken out.
type Target struct {
	Kind        TargetKind
	Index       int
	ContainerID string
	Column      int
}

// Valid reports whether t names an insertion point.
func (t Target) Valid() bool { return t.Kind != TargetNone }

// None is the rejected target.
var None = Target{Kind: TargetNone, Index: -1}

// Options tunes zone registration.
type Options struct {
	// GapSize is the height of the band registered before and after stacked
	// components. Zero means DefaultGapSize.
	GapSize float64
}

const DefaultGapSize = 16.0

// Engine resolves drops. It holds no document state and is safe to share.
type Engine struct {
	opts Options
	log  *slog.Logger
}

// NewEngine returns an engine with opts applied over the defaults.
func NewEngine(opts Options) *Engine {
	if opts.GapSize <= 0 {
		opts.GapSize = DefaultGapSize
	}
	return &Engine{opts: opts, log: applog.WithComponent("placement")}
}

// AdjustIndex compensates a raw insertion index for the hole left when the
// component at src is removed before reinsertion.
func AdjustIndex(src, raw int) int {
	if src >= 0 && src < raw {
		return raw - 1
	}
	return raw
}

// Resolve maps a screen-space pointer to an insertion point for src, given
// the document, its layout and the viewport it is shown in. It returns None
// and false when the pointer is outside the viewport, no zone applies, or the
// drop would be a no-op or illegal.
func (e *Engine) Resolve(doc domain.Document, g layout.Geometry, vp geom.Viewport, pointer geom.Pt, src Source) (Target, bool) {
	if !vp.Inside(pointer) {
		return None, false
	}
	p := vp.ToContent(pointer)
	hovered, _ := g.ContainerAt(p)
	z, ok := Nearest(e.Zones(doc, g, hovered), p)
	if !ok {
		return None, false
	}
	t := targetFor(z)
	if !e.allowed(doc, z, t, src) {
		return None, false
	}
	e.log.Debug("drop resolved",
		slog.String("zone", z.Kind.String()),
		slog.String("target", t.Kind.String()),
		slog.Int("index", t.Index),
		slog.String("container", t.ContainerID),
		slog.Int("column", t.Column))
	return t, true
}

func targetFor(z Zone) Target {
	if z.ContainerID != "" {
		return Target{Kind: TargetColumn, Index: z.Index, ContainerID: z.ContainerID, Column: z.Column}
	}
	return Target{Kind: TargetTopLevel, Index: z.Index}
}

func (e *Engine) allowed(doc domain.Document, z Zone, t Target, src Source) bool {
	switch src.Kind {
	case SourceNew:
		if !src.Type.Valid() {
			e.log.Debug("drop rejected", slog.String("reason", "unknown type"), slog.String("type", string(src.Type)))
			return false
		}
		if t.Kind == TargetColumn && src.Type.IsContainer() {
			e.log.Debug("drop rejected", slog.String("reason", "container into container"))
			return false
		}
		return true
	case SourceExisting:
		si := doc.IndexOf(src.ID)
		if si < 0 {
			return false
		}
		c := doc.Components[si]
		if t.Kind == TargetColumn && c.IsContainer {
			e.log.Debug("drop rejected", slog.String("reason", "container into container"), slog.String("id", c.ID))
			return false
		}
		if z.ComponentID == src.ID {
			return false
		}
		parent, col := "", 0
		if t.Kind == TargetColumn {
			parent, col = t.ContainerID, t.Column
		}
		sameSlot := c.ParentContainerID == parent && (parent == "" || c.Column == col)
		if sameSlot && sameSiblingOrder(doc.Components, si, t.Index, parent, col) {
			e.log.Debug("drop rejected", slog.String("reason", "adjacent to own position"), slog.String("id", c.ID))
			return false
		}
		return true
	default:
		return false
	}
}

// sameSiblingOrder reports whether moving list[si] to raw index raw, within
// the slot it already occupies, leaves the slot's sibling order unchanged.
// Siblings need not be contiguous in the flat list.
func sameSiblingOrder(list []domain.Component, si, raw int, parent string, col int) bool {
	before := slotOrder(list, parent, col)
	moved := make([]domain.Component, 0, len(list))
	moved = append(moved, list[:si]...)
	moved = append(moved, list[si+1:]...)
	at := AdjustIndex(si, raw)
	if at < 0 {
		at = 0
	}
	if at > len(moved) {
		at = len(moved)
	}
	moved = append(moved[:at], append([]domain.Component{list[si]}, moved[at:]...)...)
	after := slotOrder(moved, parent, col)
	if len(before) != len(after) {
		return false
	}
	for i := range before {
		if before[i] != after[i] {
			return false
		}
	}
	return true
}

func slotOrder(list []domain.Component, parent string, col int) []string {
	var out []string
	for _, c := range list {
		if c.ParentContainerID == parent && (parent == "" || c.Column == col) {
			out = append(out, c.ID)
		}
	}
	return out
}
