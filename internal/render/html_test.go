/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"reflect"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"pagebuilder/internal/domain"
)

func sample() domain.Document {
	h := domain.NewComponent("hero", domain.TypeHeader)
	h.Props["text"] = "Hello <world>"
	c := domain.NewComponent("cols", domain.TypeContainer)
	c.Layout.ColumnWidths = []float64{25, 75}
	c.Layout.ColumnAlign = []domain.Alignment{domain.AlignStart, domain.AlignCenter}
	img := domain.NewComponent("pic", domain.TypeImage)
	img.ParentContainerID = "cols"
	img.Column = 1
	img.Props["src"] = "cat.png"
	ghost := domain.Component{ID: "old", Type: "carousel"}
	return domain.Document{ID: "p1", Name: "Landing", Components: []domain.Component{h, c, img, ghost}}
}

func find(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return n
			}
		}
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if f := find(ch, id); f != nil {
			return f
		}
	}
	return nil
}

func TestPageNestsChildrenInColumns(t *testing.T) {
	root := Page(sample(), Options{})
	pic := find(root, "pb-pic")
	if pic == nil || pic.Data != "img" {
		t.Fatalf("image element missing")
	}
	if pic.Parent == nil || pic.Parent.Parent == nil || find(pic.Parent.Parent, "pb-cols") != pic.Parent.Parent {
		t.Fatalf("image not nested inside its container")
	}
	if got := pic.Parent.Attr; !hasAttr(got, "id", "pb-cols-col1") {
		t.Fatalf("image in wrong column: %v", got)
	}
	if h := find(root, "pb-hero"); h == nil || h.Data != "h1" {
		t.Fatalf("header should render as h1")
	}
}

func hasAttr(attrs []html.Attribute, k, v string) bool {
	for _, a := range attrs {
		if a.Key == k && a.Val == v {
			return true
		}
	}
	return false
}

func TestUnknownTypeRendersPlaceholder(t *testing.T) {
	doc := sample()
	before := doc.Clone()
	out, err := String(doc, Options{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, `class="pb-placeholder"`) || !strings.Contains(out, "carousel") {
		t.Fatalf("placeholder missing:\n%s", out)
	}
	if !reflect.DeepEqual(before, doc) {
		t.Fatalf("rendering mutated the document")
	}
	if !strings.Contains(out, "Hello &lt;world&gt;") {
		t.Fatalf("text not escaped")
	}
}

func TestStylesheetMediaQueries(t *testing.T) {
	css := Stylesheet(sample(), "")
	for _, want := range []string{
		"#pb-hero { font-size: 40px;",
		"grid-template-columns: 25fr 75fr",
		"#pb-cols-col1 { align-items: center }",
		"@media (max-width: 1023px) {\n  #pb-hero { font-size: 32px }",
		"@media (max-width: 767px) {",
		"#pb-cols { grid-template-columns: 1fr; padding: 8px }",
	} {
		if !strings.Contains(css, want) {
			t.Fatalf("stylesheet missing %q:\n%s", want, css)
		}
	}
}

func TestFlattenedBreakpoint(t *testing.T) {
	css := Stylesheet(sample(), domain.Mobile)
	if strings.Contains(css, "@media") {
		t.Fatalf("flattened stylesheet has media queries")
	}
	if !strings.Contains(css, "#pb-hero { font-size: 26px; font-weight: 700; height: 56px; padding: 16px }") {
		t.Fatalf("mobile resolution wrong:\n%s", css)
	}
}

func TestElementIDEscapes(t *testing.T) {
	if got := elementID("a b'c"); got != "pb-a_20_b_27_c" {
		t.Fatalf("elementID = %q", got)
	}
}
