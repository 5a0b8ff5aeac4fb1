/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render builds a read-only HTML preview of a document. It never
// mutates the document; components of unknown type render as a visible
// placeholder.
package render

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"pagebuilder/internal/domain"
)

// Options controls the preview.
type Options struct {
	// Breakpoint flattens the styles at one breakpoint. Empty renders the
	// responsive page: base rules plus tablet and mobile media queries.
	Breakpoint domain.Breakpoint
	Title      string
}

// Render writes a complete HTML page for doc.
func Render(w io.Writer, doc domain.Document, opts Options) error {
	return html.Render(w, Page(doc, opts))
}

// String renders doc to a string.
func String(doc domain.Document, opts Options) (string, error) {
	var b bytes.Buffer
	if err := Render(&b, doc, opts); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Page builds the document node tree.
func Page(doc domain.Document, opts Options) *html.Node {
	title := opts.Title
	if title == "" {
		title = doc.Name
	}
	root := &html.Node{Type: html.DocumentNode}
	root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	htmlEl := elem(atom.Html)
	root.AppendChild(htmlEl)

	head := elem(atom.Head)
	head.AppendChild(elem(atom.Meta, "charset", "utf-8"))
	head.AppendChild(elem(atom.Meta, "name", "viewport", "content", "width=device-width, initial-scale=1"))
	head.AppendChild(withText(elem(atom.Title), title))
	head.AppendChild(withText(elem(atom.Style), Stylesheet(doc, opts.Breakpoint)))
	htmlEl.AppendChild(head)

	body := elem(atom.Body)
	main := elem(atom.Main, "class", "pb-page")
	body.AppendChild(main)
	htmlEl.AppendChild(body)

	t := newTree(doc)
	for _, c := range t.top {
		main.AppendChild(t.node(c))
	}
	return root
}

// tree groups children under their container columns.
type tree struct {
	top      []domain.Component
	children map[string][][]domain.Component
}

func newTree(doc domain.Document) tree {
	t := tree{children: map[string][][]domain.Component{}}
	for _, c := range doc.Components {
		if c.IsContainer && c.Layout != nil && c.ParentContainerID == "" {
			t.children[c.ID] = make([][]domain.Component, c.Layout.ColumnCount)
		}
	}
	for _, c := range doc.Components {
		cols, ok := t.children[c.ParentContainerID]
		if c.ParentContainerID == "" || !ok {
			t.top = append(t.top, c)
			continue
		}
		col := c.Column
		if col < 0 || col >= len(cols) {
			col = len(cols) - 1
		}
		cols[col] = append(cols[col], c)
	}
	return t
}

func (t tree) node(c domain.Component) *html.Node {
	var n *html.Node
	switch c.Type {
	case domain.TypeHeader:
		level := clamp(intProp(c.Props, "level", 1), 1, 6)
		n = withText(&html.Node{Type: html.ElementNode, Data: "h" + strconv.Itoa(level)}, stringProp(c.Props, "text"))
	case domain.TypeText:
		n = withText(elem(atom.P), stringProp(c.Props, "text"))
	case domain.TypeImage:
		n = elem(atom.Img, "src", stringProp(c.Props, "src"), "alt", stringProp(c.Props, "alt"))
	case domain.TypeButton:
		href := stringProp(c.Props, "href")
		if href == "" {
			href = "#"
		}
		n = withText(elem(atom.A, "href", href), stringProp(c.Props, "label"))
	case domain.TypeDivider:
		n = elem(atom.Hr)
	case domain.TypeSpacer:
		n = elem(atom.Div)
	case domain.TypeVideo:
		n = elem(atom.Video, "src", stringProp(c.Props, "src"), "controls", "")
	case domain.TypeContainer:
		n = elem(atom.Section)
		for k, list := range t.children[c.ID] {
			col := elem(atom.Div, "class", "pb-column", "id", columnID(c.ID, k))
			for _, ch := range list {
				col.AppendChild(t.node(ch))
			}
			n.AppendChild(col)
		}
	default:
		n = withText(elem(atom.Div, "class", "pb-placeholder"), fmt.Sprintf("Unsupported component %q", string(c.Type)))
	}
	setAttr(n, "id", elementID(c.ID))
	setAttr(n, "data-type", string(c.Type))
	if c.Variant != "" {
		setAttr(n, "data-variant", c.Variant)
	}
	return n
}

func elem(a atom.Atom, kv ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(kv); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: kv[i], Val: kv[i+1]})
	}
	return n
}

func withText(n *html.Node, s string) *html.Node {
	if s != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
	}
	return n
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func stringProp(p map[string]any, key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func intProp(p map[string]any, key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// elementID derives an HTML id that is also a plain CSS identifier.
func elementID(id string) string {
	var b strings.Builder
	b.WriteString("pb-")
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			fmt.Fprintf(&b, "_%x_", r)
		}
	}
	return b.String()
}

func columnID(containerID string, k int) string {
	return elementID(containerID) + "-col" + strconv.Itoa(k)
}
