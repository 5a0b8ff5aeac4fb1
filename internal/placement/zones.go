/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package placement

import (
	"pagebuilder/internal/domain"
	"pagebuilder/internal/geom"
	"pagebuilder/internal/layout"
)

// ZoneKind classifies drop zones.
type ZoneKind int

const (
	// ZoneGap is the band between two stacked components.
	ZoneGap ZoneKind = iota + 1
	// ZoneComponent covers a component; dropping there inserts after it.
	ZoneComponent
	// ZoneColumn covers one column of the hovered container.
	ZoneColumn
)

func (k ZoneKind) String() string {
	switch k {
	case ZoneGap:
		return "gap"
	case ZoneComponent:
		return "component"
	case ZoneColumn:
		return "column"
	default:
		return "unknown"
	}
}

// Zone is a region in content coordinates with the insertion point it yields.
// Index is the raw flat insertion index, before compensating for the hole a
// moved component leaves. ContainerID is empty for top-level zones.
type Zone struct {
	Kind        ZoneKind
	Rect        geom.Rect
	Index       int
	ComponentID string
	ContainerID string
	Column      int
	order       int
}

// Zones registers the drop zones for doc laid out as g: one gap before each
// top-level component and one after the last, one zone per top-level
// component, and, for the hovered container, its columns, a gap above each
// column's first child and one zone per child. The hovered container's own
// component zone is replaced by its column zones.
func (e *Engine) Zones(doc domain.Document, g layout.Geometry, hovered string) []Zone {
	var zones []Zone
	add := func(z Zone) {
		z.order = len(zones)
		zones = append(zones, z)
	}
	band := e.opts.GapSize

	if len(g.TopLevel) == 0 {
		add(Zone{Kind: ZoneGap, Rect: geom.R(0, 0, g.Width, g.Height), Index: len(doc.Components)})
		return zones
	}

	var prevBottom float64
	for i, id := range g.TopLevel {
		box := g.Boxes[id]
		top := box.Y - band
		if i > 0 && prevBottom < box.Y {
			top = prevBottom
		}
		add(Zone{Kind: ZoneGap, Rect: geom.R(box.X, top, box.W, box.Y-top), Index: doc.IndexOf(id)})

		if cols, ok := g.Columns[id]; ok && id == hovered {
			e.containerZones(doc, g, id, cols, add)
		} else {
			add(Zone{Kind: ZoneComponent, Rect: box, Index: doc.IndexOf(id) + 1, ComponentID: id})
		}
		prevBottom = box.Y + box.H
	}
	last := g.Boxes[g.TopLevel[len(g.TopLevel)-1]]
	add(Zone{Kind: ZoneGap, Rect: geom.R(last.X, prevBottom, last.W, band), Index: len(doc.Components)})
	return zones
}

func (e *Engine) containerZones(doc domain.Document, g layout.Geometry, id string, cols []geom.Rect, add func(Zone)) {
	for k, r := range cols {
		add(Zone{Kind: ZoneColumn, Rect: r, Index: doc.ColumnInsertIndex(id, k), ContainerID: id, Column: k})
		first := true
		for i, c := range doc.Components {
			if c.ParentContainerID != id || c.Column != k {
				continue
			}
			box, ok := g.Boxes[c.ID]
			if !ok {
				continue
			}
			if first {
				h := e.opts.GapSize / 2
				add(Zone{Kind: ZoneGap, Rect: geom.R(r.X, box.Y-h, r.W, h), Index: i, ContainerID: id, Column: k})
				first = false
			}
			add(Zone{Kind: ZoneComponent, Rect: box, Index: i + 1, ComponentID: c.ID, ContainerID: id, Column: k})
		}
	}
}

// Nearest picks the zone for content point p. Zones containing p win over
// the rest; among containing zones an enclosing zone yields to the zones it
// encloses. Remaining candidates are ranked by distance to their rectangle,
// then by distance to their center. Exact ties favor the zone that inserts
// earlier, then the zone registered first.
func Nearest(zones []Zone, p geom.Pt) (Zone, bool) {
	if len(zones) == 0 {
		return Zone{}, false
	}
	var inside []Zone
	for _, z := range zones {
		if z.Rect.Contains(p) {
			inside = append(inside, z)
		}
	}
	candidates := zones
	if len(inside) > 0 {
		candidates = innermost(inside)
	}
	best := candidates[0]
	for _, z := range candidates[1:] {
		if closer(z, best, p) {
			best = z
		}
	}
	return best, true
}

func closer(a, b Zone, p geom.Pt) bool {
	da, db := a.Rect.Dist2(p), b.Rect.Dist2(p)
	if da != db {
		return da < db
	}
	ca, cb := a.Rect.Center().Dist2(p), b.Rect.Center().Dist2(p)
	if ca != cb {
		return ca < cb
	}
	if a.Index != b.Index {
		return a.Index < b.Index
	}
	return a.order < b.order
}

// innermost drops every zone that strictly encloses another candidate.
func innermost(zones []Zone) []Zone {
	out := make([]Zone, 0, len(zones))
	for i, z := range zones {
		enclosing := false
		for j, o := range zones {
			if i != j && encloses(z.Rect, o.Rect) {
				enclosing = true
				break
			}
		}
		if !enclosing {
			out = append(out, z)
		}
	}
	return out
}

func encloses(outer, inner geom.Rect) bool {
	if outer == inner {
		return false
	}
	return outer.X <= inner.X && outer.Y <= inner.Y &&
		outer.X+outer.W >= inner.X+inner.W && outer.Y+outer.H >= inner.Y+inner.H
}
