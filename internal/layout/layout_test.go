/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"math"
	"testing"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/geom"
)

func doc(list ...domain.Component) domain.Document { return domain.Document{Components: list} }

func child(id string, t domain.ComponentType, parent string, col int) domain.Component {
	c := domain.NewComponent(id, t)
	c.ParentContainerID = parent
	c.Column = col
	return c
}

func TestStackedTopLevel(t *testing.T) {
	h := domain.NewComponent("h", domain.TypeHeader)
	tx := domain.NewComponent("t", domain.TypeText)
	g := Compute(doc(h, tx), Options{Width: 1200})
	if len(g.TopLevel) != 2 || g.TopLevel[0] != "h" {
		t.Fatalf("top level = %v", g.TopLevel)
	}
	hb, tb := g.Boxes["h"], g.Boxes["t"]
	if hb != geom.R(DefaultPadding, DefaultPadding, 1200-2*DefaultPadding, 72) {
		t.Fatalf("header box = %+v", hb)
	}
	if tb.Y != hb.Y+hb.H+DefaultGap {
		t.Fatalf("text not stacked below header: %+v", tb)
	}
	if g.Height != tb.Y+tb.H+DefaultPadding {
		t.Fatalf("height = %v", g.Height)
	}
}

func TestHeightUsesResolvedStyle(t *testing.T) {
	h := domain.NewComponent("h", domain.TypeHeader)
	if Height(h, domain.Desktop) != 72 || Height(h, domain.Mobile) != 56 {
		t.Fatalf("heights = %v/%v", Height(h, domain.Desktop), Height(h, domain.Mobile))
	}
	u := domain.Component{ID: "x", Type: "carousel"}
	if Height(u, domain.Desktop) != fallbackHeight {
		t.Fatalf("unknown type height = %v", Height(u, domain.Desktop))
	}
}

func TestContainerColumnsSideBySide(t *testing.T) {
	c := domain.NewComponent("c", domain.TypeContainer)
	l := domain.NormalizeLayout(domain.Layout{ColumnCount: 2, ColumnWidths: []float64{25, 75}})
	c.Layout = &l
	img := child("img", domain.TypeImage, "c", 1)
	g := Compute(doc(c, img), Options{Width: 1000})
	cols := g.Columns["c"]
	if len(cols) != 2 {
		t.Fatalf("columns = %v", cols)
	}
	usable := 1000 - 2*DefaultPadding - 2*DefaultInset - DefaultColumnGap
	if math.Abs(cols[0].W-usable*0.25) > 1e-9 || math.Abs(cols[1].W-usable*0.75) > 1e-9 {
		t.Fatalf("column widths = %v / %v", cols[0].W, cols[1].W)
	}
	if cols[0].H != cols[1].H || cols[1].H != 240 {
		t.Fatalf("columns should share the tallest height: %v %v", cols[0].H, cols[1].H)
	}
	ib := g.Boxes["img"]
	if ib.X != cols[1].X || ib.Y != cols[1].Y {
		t.Fatalf("child not placed in its column: %+v vs %+v", ib, cols[1])
	}
	if len(g.TopLevel) != 1 {
		t.Fatalf("child listed as top level: %v", g.TopLevel)
	}
	if id, ok := g.ContainerAt(cols[0].Center()); !ok || id != "c" {
		t.Fatalf("ContainerAt = %q %v", id, ok)
	}
}

func TestEmptyColumnsKeepMinimumHeight(t *testing.T) {
	c := domain.NewComponent("c", domain.TypeContainer)
	g := Compute(doc(c), Options{})
	for _, r := range g.Columns["c"] {
		if r.H != MinColumnHeight {
			t.Fatalf("empty column height = %v", r.H)
		}
	}
	if g.Boxes["c"].H != MinColumnHeight+2*DefaultInset {
		t.Fatalf("container height = %v", g.Boxes["c"].H)
	}
}

func TestMobileStacksColumns(t *testing.T) {
	c := domain.NewComponent("c", domain.TypeContainer)
	g := Compute(doc(c), Options{Width: 375})
	if g.Breakpoint != domain.Mobile {
		t.Fatalf("breakpoint = %s", g.Breakpoint)
	}
	cols := g.Columns["c"]
	if cols[1].Y <= cols[0].Y || cols[0].X != cols[1].X {
		t.Fatalf("columns not stacked: %+v", cols)
	}
}

func TestEmptyDocument(t *testing.T) {
	g := Compute(domain.Document{}, Options{})
	if len(g.TopLevel) != 0 || g.Height != 2*DefaultPadding {
		t.Fatalf("unexpected empty geometry: %+v", g)
	}
}

func TestUnrepairedColumnCountIsClamped(t *testing.T) {
	c := domain.NewComponent("c", domain.TypeContainer)
	c.Layout = &domain.Layout{ColumnCount: 5}
	g := Compute(doc(c, child("a", domain.TypeText, "c", 4)), Options{Width: 1200})
	if n := len(g.Columns["c"]); n != domain.MaxColumns {
		t.Fatalf("columns = %d, want %d", n, domain.MaxColumns)
	}
	if _, ok := g.Box("a"); !ok {
		t.Fatalf("child in an out-of-range column was not placed")
	}
}
