/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package placement

import (
	"testing"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/geom"
	"pagebuilder/internal/layout"
)

// fixture lays out: header h (y 24..96), text t (112..208) and a two-column
// container c (224..568) holding image img in column 0 (236..476) and video
// vid in column 1 (236..556). Column 0 spans x 36..592, column 1 x 608..1164.
func fixture() (domain.Document, layout.Geometry) {
	img := domain.NewComponent("img", domain.TypeImage)
	img.ParentContainerID = "c"
	vid := domain.NewComponent("vid", domain.TypeVideo)
	vid.ParentContainerID = "c"
	vid.Column = 1
	doc := domain.Document{Components: []domain.Component{
		domain.NewComponent("h", domain.TypeHeader),
		domain.NewComponent("t", domain.TypeText),
		domain.NewComponent("c", domain.TypeContainer),
		img,
		vid,
	}}
	return doc, layout.Compute(doc, layout.Options{})
}

func viewport(zoom float64) geom.Viewport {
	return geom.Viewport{Bounds: geom.R(100, 50, 4000, 4000), Zoom: zoom, Scroll: geom.Pt{Y: 5}}
}

func resolveAt(t *testing.T, e *Engine, doc domain.Document, g layout.Geometry, zoom float64, content geom.Pt, src Source) (Target, bool) {
	t.Helper()
	vp := viewport(zoom)
	return e.Resolve(doc, g, vp, vp.ToScreen(content), src)
}

func TestEmptyDocumentAcceptsAnywhere(t *testing.T) {
	e := NewEngine(Options{})
	doc := domain.Document{}
	g := layout.Compute(doc, layout.Options{})
	tg, ok := resolveAt(t, e, doc, g, 1, geom.Pt{X: 30, Y: 20}, NewSource(domain.TypeText, ""))
	if !ok || tg.Kind != TargetTopLevel || tg.Index != 0 {
		t.Fatalf("unexpected target %+v ok=%v", tg, ok)
	}
}

func TestZoomInvariance(t *testing.T) {
	e := NewEngine(Options{})
	doc, g := fixture()
	points := []geom.Pt{
		{X: 600, Y: 60},  // on header
		{X: 600, Y: 104}, // gap before text
		{X: 900, Y: 300}, // inside column 1 on the video
		{X: 300, Y: 300}, // on the image
		{X: 300, Y: 520}, // column 0 below the image
		{X: 10, Y: 150},  // page padding, nearest is the text
	}
	src := NewSource(domain.TypeButton, "primary")
	for _, p := range points {
		want, wantOK := resolveAt(t, e, doc, g, 1, p, src)
		for _, z := range []float64{0.25, 2} {
			got, ok := resolveAt(t, e, doc, g, z, p, src)
			if ok != wantOK || got != want {
				t.Fatalf("point %+v zoom %v: got %+v/%v want %+v/%v", p, z, got, ok, want, wantOK)
			}
		}
	}
}

func TestTopLevelTargets(t *testing.T) {
	e := NewEngine(Options{})
	doc, g := fixture()
	src := NewSource(domain.TypeButton, "")
	cases := []struct {
		name string
		at   geom.Pt
		want Target
	}{
		{"on component inserts after it", geom.Pt{X: 600, Y: 60}, Target{Kind: TargetTopLevel, Index: 1}},
		{"gap before first", geom.Pt{X: 600, Y: 16}, Target{Kind: TargetTopLevel, Index: 0}},
		{"gap before text", geom.Pt{X: 600, Y: 104}, Target{Kind: TargetTopLevel, Index: 1}},
		{"gap after last", geom.Pt{X: 600, Y: 575}, Target{Kind: TargetTopLevel, Index: 5}},
		{"nearest when outside every zone", geom.Pt{X: 10, Y: 150}, Target{Kind: TargetTopLevel, Index: 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := resolveAt(t, e, doc, g, 1, tc.at, src)
			if !ok || got != tc.want {
				t.Fatalf("got %+v ok=%v want %+v", got, ok, tc.want)
			}
		})
	}
}

func TestHoveredContainerExposesColumns(t *testing.T) {
	e := NewEngine(Options{})
	doc, g := fixture()
	src := NewSource(domain.TypeText, "")

	got, ok := resolveAt(t, e, doc, g, 1, geom.Pt{X: 300, Y: 300}, src)
	if !ok || got != (Target{Kind: TargetColumn, Index: 4, ContainerID: "c", Column: 0}) {
		t.Fatalf("drop on child: %+v ok=%v", got, ok)
	}
	got, ok = resolveAt(t, e, doc, g, 1, geom.Pt{X: 300, Y: 520}, src)
	if !ok || got != (Target{Kind: TargetColumn, Index: 4, ContainerID: "c", Column: 0}) {
		t.Fatalf("drop below child: %+v ok=%v", got, ok)
	}
	got, ok = resolveAt(t, e, doc, g, 1, geom.Pt{X: 300, Y: 231}, src)
	if !ok || got != (Target{Kind: TargetColumn, Index: 3, ContainerID: "c", Column: 0}) {
		t.Fatalf("drop above first child: %+v ok=%v", got, ok)
	}
	got, ok = resolveAt(t, e, doc, g, 1, geom.Pt{X: 900, Y: 300}, src)
	if !ok || got != (Target{Kind: TargetColumn, Index: 5, ContainerID: "c", Column: 1}) {
		t.Fatalf("drop in column 1: %+v ok=%v", got, ok)
	}
}

func TestOutsideViewportIsRejected(t *testing.T) {
	e := NewEngine(Options{})
	doc, g := fixture()
	vp := viewport(1)
	if tg, ok := e.Resolve(doc, g, vp, geom.Pt{X: 50, Y: 10}, NewSource(domain.TypeText, "")); ok || tg.Valid() {
		t.Fatalf("expected rejection, got %+v", tg)
	}
}

func TestUnknownTypeHasNoTarget(t *testing.T) {
	e := NewEngine(Options{})
	doc, g := fixture()
	if _, ok := resolveAt(t, e, doc, g, 1, geom.Pt{X: 600, Y: 60}, NewSource("carousel", "")); ok {
		t.Fatalf("unknown type resolved")
	}
	if _, ok := resolveAt(t, e, doc, g, 1, geom.Pt{X: 600, Y: 60}, ExistingSource("missing")); ok {
		t.Fatalf("unknown id resolved")
	}
}

func TestContainerIntoContainerIsRejected(t *testing.T) {
	e := NewEngine(Options{})
	doc, g := fixture()
	if _, ok := resolveAt(t, e, doc, g, 1, geom.Pt{X: 900, Y: 300}, NewSource(domain.TypeContainer, "")); ok {
		t.Fatalf("new container accepted into column")
	}
	doc.Components = append(doc.Components, domain.NewComponent("c2", domain.TypeContainer))
	g = layout.Compute(doc, layout.Options{})
	if _, ok := resolveAt(t, e, doc, g, 1, geom.Pt{X: 900, Y: 300}, ExistingSource("c2")); ok {
		t.Fatalf("existing container accepted into column")
	}
	// top level is still fine
	if tg, ok := resolveAt(t, e, doc, g, 1, geom.Pt{X: 600, Y: 60}, ExistingSource("c2")); !ok || tg.Index != 1 {
		t.Fatalf("container top-level move rejected: %+v", tg)
	}
}

func TestExistingSourceAdjacencyIsNoop(t *testing.T) {
	e := NewEngine(Options{})
	doc, g := fixture()
	// on itself
	if _, ok := resolveAt(t, e, doc, g, 1, geom.Pt{X: 600, Y: 60}, ExistingSource("h")); ok {
		t.Fatalf("drop on itself accepted")
	}
	// right after the header is where text already is
	if _, ok := resolveAt(t, e, doc, g, 1, geom.Pt{X: 600, Y: 60}, ExistingSource("t")); ok {
		t.Fatalf("drop at own position accepted")
	}
	if _, ok := resolveAt(t, e, doc, g, 1, geom.Pt{X: 600, Y: 104}, ExistingSource("t")); ok {
		t.Fatalf("drop in gap before itself accepted")
	}
	// header after text is a real move
	tg, ok := resolveAt(t, e, doc, g, 1, geom.Pt{X: 600, Y: 150}, ExistingSource("h"))
	if !ok || tg.Index != 2 {
		t.Fatalf("expected raw index 2, got %+v ok=%v", tg, ok)
	}
	if got := AdjustIndex(0, tg.Index); got != 1 {
		t.Fatalf("AdjustIndex = %d", got)
	}
}

func TestAdjacencyUsesSiblingOrderInColumn(t *testing.T) {
	e := NewEngine(Options{})
	child := func(id string, col int) domain.Component {
		c := domain.NewComponent(id, domain.TypeText)
		c.ParentContainerID = "c"
		c.Column = col
		return c
	}
	// column 0 holds a then d, with b from column 1 between them in the flat list
	doc := domain.Document{Components: []domain.Component{
		domain.NewComponent("c", domain.TypeContainer),
		child("a", 0),
		child("b", 1),
		child("d", 0),
	}}
	g := layout.Compute(doc, layout.Options{})
	a, ok := g.Box("a")
	if !ok {
		t.Fatalf("no box for a")
	}
	if tg, ok := resolveAt(t, e, doc, g, 1, a.Center(), ExistingSource("d")); ok {
		t.Fatalf("drop keeping d after a accepted: %+v", tg)
	}
	d, _ := g.Box("d")
	tg, ok := resolveAt(t, e, doc, g, 1, d.Center(), ExistingSource("a"))
	if !ok || tg.ContainerID != "c" || tg.Column != 0 {
		t.Fatalf("moving a below d should be allowed: %+v ok=%v", tg, ok)
	}
}

func TestSameSiblingOrder(t *testing.T) {
	list := []domain.Component{
		{ID: "c", IsContainer: true},
		{ID: "a", ParentContainerID: "c"},
		{ID: "b", ParentContainerID: "c", Column: 1},
		{ID: "d", ParentContainerID: "c"},
	}
	if !sameSiblingOrder(list, 3, 2, "c", 0) {
		t.Fatalf("d right after a should keep the column order")
	}
	if sameSiblingOrder(list, 3, 1, "c", 0) {
		t.Fatalf("d before a changes the column order")
	}
	if sameSiblingOrder(list, 1, 4, "c", 0) {
		t.Fatalf("a after d changes the column order")
	}
}

func TestChildDroppedOnTopLevelIsPromoted(t *testing.T) {
	e := NewEngine(Options{})
	doc, g := fixture()
	tg, ok := resolveAt(t, e, doc, g, 1, geom.Pt{X: 600, Y: 16}, ExistingSource("img"))
	if !ok || tg.Kind != TargetTopLevel || tg.Index != 0 {
		t.Fatalf("promotion target: %+v ok=%v", tg, ok)
	}
	// moving the image across columns is allowed
	tg, ok = resolveAt(t, e, doc, g, 1, geom.Pt{X: 900, Y: 300}, ExistingSource("img"))
	if !ok || tg.ContainerID != "c" || tg.Column != 1 || tg.Index != 5 {
		t.Fatalf("cross-column target: %+v ok=%v", tg, ok)
	}
}

func TestAdjustIndex(t *testing.T) {
	cases := []struct{ src, raw, want int }{
		{0, 0, 0}, {0, 3, 2}, {3, 1, 1}, {2, 2, 2}, {-1, 4, 4},
	}
	for _, c := range cases {
		if got := AdjustIndex(c.src, c.raw); got != c.want {
			t.Fatalf("AdjustIndex(%d,%d) = %d want %d", c.src, c.raw, got, c.want)
		}
	}
}

func TestNearestTieBreaks(t *testing.T) {
	// p is equidistant from both rectangles and their centers
	p := geom.Pt{X: 50, Y: 50}
	a := Zone{Kind: ZoneGap, Rect: geom.R(0, 0, 20, 20), Index: 4, order: 0}
	b := Zone{Kind: ZoneGap, Rect: geom.R(80, 80, 20, 20), Index: 2, order: 1}
	if z, _ := Nearest([]Zone{a, b}, p); z.Index != 2 {
		t.Fatalf("lower insertion index should win, got %+v", z)
	}
	b.Index = 4
	if z, _ := Nearest([]Zone{a, b}, p); z.order != 0 {
		t.Fatalf("registration order should break the final tie, got %+v", z)
	}
	// a containing zone beats a closer center
	c := Zone{Kind: ZoneComponent, Rect: geom.R(40, 0, 100, 51), Index: 9, order: 2}
	if z, _ := Nearest([]Zone{a, b, c}, p); z.Index != 9 {
		t.Fatalf("containing zone should win, got %+v", z)
	}
	if _, ok := Nearest(nil, p); ok {
		t.Fatalf("no zones should yield no match")
	}
}
