/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the page document model shared by the store, the placement
// engine, the renderers and persistence. Components live in one flat ordered
// slice; containment is an id reference, never a nested structure.

// ComponentType names one block kind from the fixed vocabulary.
type ComponentType string

const (
	TypeHeader    ComponentType = "header"
	TypeText      ComponentType = "text"
	TypeImage     ComponentType = "image"
	TypeButton    ComponentType = "button"
	TypeDivider   ComponentType = "divider"
	TypeSpacer    ComponentType = "spacer"
	TypeVideo     ComponentType = "video"
	TypeContainer ComponentType = "container"
)

var knownTypes = []ComponentType{
	TypeHeader, TypeText, TypeImage, TypeButton, TypeDivider, TypeSpacer, TypeVideo, TypeContainer,
}

// Types returns the vocabulary in palette order.
func Types() []ComponentType { return append([]ComponentType(nil), knownTypes...) }

// Valid reports whether t belongs to the vocabulary.
func (t ComponentType) Valid() bool {
	for _, k := range knownTypes {
		if k == t {
			return true
		}
	}
	return false
}

// IsContainer reports whether components of this type own columns.
func (t ComponentType) IsContainer() bool { return t == TypeContainer }

// Breakpoint is one of desktop, tablet or mobile.
type Breakpoint string

const (
	Desktop Breakpoint = "desktop"
	Tablet  Breakpoint = "tablet"
	Mobile  Breakpoint = "mobile"
)

// Rank orders breakpoints from widest (0) to narrowest (2).
// Unknown values rank as desktop.
func (b Breakpoint) Rank() int {
	switch b {
	case Tablet:
		return 1
	case Mobile:
		return 2
	default:
		return 0
	}
}

// Valid reports whether b is a known breakpoint.
func (b Breakpoint) Valid() bool { return b == Desktop || b == Tablet || b == Mobile }

// StyleMap is a flat set of CSS-like declarations, e.g. "color" -> "#333".
type StyleMap map[string]string

// Clone returns an independent copy (nil stays nil).
func (m StyleMap) Clone() StyleMap {
	if m == nil {
		return nil
	}
	out := make(StyleMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Styles holds the base declarations plus partial tablet/mobile overrides.
type Styles struct {
	Base   StyleMap `json:"base,omitempty" yaml:"base,omitempty"`
	Tablet StyleMap `json:"tablet,omitempty" yaml:"tablet,omitempty"`
	Mobile StyleMap `json:"mobile,omitempty" yaml:"mobile,omitempty"`
}

// Clone deep-copies all three layers.
func (s Styles) Clone() Styles {
	return Styles{Base: s.Base.Clone(), Tablet: s.Tablet.Clone(), Mobile: s.Mobile.Clone()}
}

// Direction controls how container columns flow.
type Direction string

const (
	Stacked    Direction = "stacked"
	SideBySide Direction = "side-by-side"
)

// Alignment is the per-column content alignment.
type Alignment string

const (
	AlignStart   Alignment = "start"
	AlignCenter  Alignment = "center"
	AlignEnd     Alignment = "end"
	AlignStretch Alignment = "stretch"
)

const (
	MinColumns = 1
	MaxColumns = 3
)

// Layout describes a container's columns.
type Layout struct {
	ColumnCount  int         `json:"columnCount" yaml:"columnCount"`
	Direction    Direction   `json:"direction" yaml:"direction"`
	ColumnWidths []float64   `json:"columnWidths,omitempty" yaml:"columnWidths,omitempty"`
	ColumnAlign  []Alignment `json:"columnAlign,omitempty" yaml:"columnAlign,omitempty"`
}

// Clone deep-copies the slices.
func (l Layout) Clone() Layout {
	l.ColumnWidths = append([]float64(nil), l.ColumnWidths...)
	l.ColumnAlign = append([]Alignment(nil), l.ColumnAlign...)
	return l
}

// Component is one content block.
type Component struct {
	ID                string         `json:"id"`
	Type              ComponentType  `json:"type"`
	Variant           string         `json:"variant,omitempty"`
	ParentContainerID string         `json:"parentContainerId,omitempty"`
	Column            int            `json:"column,omitempty"`
	IsContainer       bool           `json:"isContainer,omitempty"`
	Layout            *Layout        `json:"layout,omitempty"`
	Styles            Styles         `json:"styles"`
	Props             map[string]any `json:"props,omitempty"`
}

// Clone returns a deep copy that shares no maps or slices with c.
func (c Component) Clone() Component {
	out := c
	out.Styles = c.Styles.Clone()
	if c.Layout != nil {
		l := c.Layout.Clone()
		out.Layout = &l
	}
	out.Props = CloneProps(c.Props)
	return out
}

// TopLevel reports whether c has no owning container.
func (c Component) TopLevel() bool { return c.ParentContainerID == "" }

// CloneProps copies a payload map; nested maps and slices are copied too.
func CloneProps(p map[string]any) map[string]any {
	if p == nil {
		return nil
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneProps(t)
	case []any:
		cp := make([]any, len(t))
		for i := range t {
			cp[i] = cloneValue(t[i])
		}
		return cp
	default:
		return v
	}
}

// Document is the canonical ordered collection of components for one page.
type Document struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Components []Component `json:"components"`
}

// Clone deep-copies the document.
func (d Document) Clone() Document {
	out := d
	if d.Components != nil {
		out.Components = make([]Component, len(d.Components))
		for i, c := range d.Components {
			out.Components[i] = c.Clone()
		}
	}
	return out
}

// IndexOf returns the flat index of id or -1.
func (d Document) IndexOf(id string) int {
	return IndexOf(d.Components, id)
}

// Find returns the component with id.
func (d Document) Find(id string) (Component, bool) {
	if i := d.IndexOf(id); i >= 0 {
		return d.Components[i], true
	}
	return Component{}, false
}

// IDs lists component ids in order.
func (d Document) IDs() []string {
	out := make([]string, len(d.Components))
	for i, c := range d.Components {
		out[i] = c.ID
	}
	return out
}

// Children returns the components owned by containerID in document order.
func (d Document) Children(containerID string) []Component {
	var out []Component
	for _, c := range d.Components {
		if c.ParentContainerID == containerID && containerID != "" {
			out = append(out, c)
		}
	}
	return out
}

// IndexOf returns the index of id within list or -1.
func IndexOf(list []Component, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// Selection is the set of selected ids plus the hovered one.
type Selection struct {
	Selected []string `json:"selected,omitempty"`
	Hovered  string   `json:"hovered,omitempty"`
}

// Clone copies the selected slice.
func (s Selection) Clone() Selection {
	return Selection{Selected: append([]string(nil), s.Selected...), Hovered: s.Hovered}
}

// Has reports whether id is selected.
func (s Selection) Has(id string) bool {
	for _, v := range s.Selected {
		if v == id {
			return true
		}
	}
	return false
}

// ColumnInsertIndex is the flat index at which a new child lands at the end
// of column col of containerID: after the last child in that column or an
// earlier one, else right after the container. It returns -1 for an unknown
// container.
func (d Document) ColumnInsertIndex(containerID string, col int) int {
	ci := d.IndexOf(containerID)
	if ci < 0 {
		return -1
	}
	at := ci + 1
	for i, c := range d.Components {
		if c.ParentContainerID == containerID && c.Column <= col && i+1 > at {
			at = i + 1
		}
	}
	return at
}

// Layer returns the declarations of one breakpoint layer; desktop is the base.
func (s Styles) Layer(bp Breakpoint) StyleMap {
	switch bp {
	case Tablet:
		return s.Tablet
	case Mobile:
		return s.Mobile
	default:
		return s.Base
	}
}

// SetLayer replaces one breakpoint layer.
func (s *Styles) SetLayer(bp Breakpoint, m StyleMap) {
	switch bp {
	case Tablet:
		s.Tablet = m
	case Mobile:
		s.Mobile = m
	default:
		s.Base = m
	}
}
