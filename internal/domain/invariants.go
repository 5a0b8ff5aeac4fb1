/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"fmt"
	"math"
)

// Violation describes one broken document invariant.
type Violation struct {
	ID     string
	Reason string
}

func (v Violation) Error() string { return fmt.Sprintf("component %q: %s", v.ID, v.Reason) }

// Validate lists every invariant the components violate. An empty result
// means the list is a well-formed document body.
func Validate(list []Component) []Violation {
	var out []Violation
	byID := make(map[string]Component, len(list))
	for _, c := range list {
		if c.ID == "" {
			out = append(out, Violation{ID: c.ID, Reason: "empty id"})
			continue
		}
		if _, dup := byID[c.ID]; dup {
			out = append(out, Violation{ID: c.ID, Reason: "duplicate id"})
			continue
		}
		byID[c.ID] = c
	}
	for _, c := range list {
		if c.IsContainer {
			if c.Layout == nil {
				out = append(out, Violation{ID: c.ID, Reason: "container without layout"})
			} else {
				l := c.Layout
				if l.ColumnCount < MinColumns || l.ColumnCount > MaxColumns {
					out = append(out, Violation{ID: c.ID, Reason: "column count out of range"})
				}
				if len(l.ColumnWidths) > 0 && !(math.Abs(WidthsSum(l.ColumnWidths)-100) <= 1e-3) {
					out = append(out, Violation{ID: c.ID, Reason: "column widths do not sum to 100"})
				}
			}
		}
		if c.ParentContainerID == "" {
			continue
		}
		if c.IsContainer {
			out = append(out, Violation{ID: c.ID, Reason: "container nested in container"})
			continue
		}
		p, ok := byID[c.ParentContainerID]
		switch {
		case !ok:
			out = append(out, Violation{ID: c.ID, Reason: "dangling parent " + c.ParentContainerID})
		case !p.IsContainer:
			out = append(out, Violation{ID: c.ID, Reason: "parent is not a container"})
		case p.Layout != nil && (c.Column < 0 || c.Column >= p.Layout.ColumnCount):
			out = append(out, Violation{ID: c.ID, Reason: "column out of range"})
		}
	}
	return out
}

// Repair returns a copy of doc with every invariant restored and the number of
// fixes applied. Dangling or illegal containment is cleared (the component is
// promoted to top level), duplicate ids are dropped keeping the first, layouts
// are normalized. Unknown component types are kept so renderers can show a
// placeholder for them.
func Repair(doc Document) (Document, int) {
	fixes := 0
	seen := make(map[string]bool, len(doc.Components))
	list := make([]Component, 0, len(doc.Components))
	for _, c := range doc.Components {
		if c.ID == "" || seen[c.ID] {
			fixes++
			continue
		}
		seen[c.ID] = true
		c = c.Clone()
		if want := c.Type.IsContainer(); c.IsContainer != want && c.Type.Valid() {
			c.IsContainer = want
			fixes++
		}
		if c.IsContainer {
			var l Layout
			if c.Layout != nil {
				l = *c.Layout
			}
			n := NormalizeLayout(l)
			if c.Layout == nil || !layoutEqual(*c.Layout, n) {
				fixes++
			}
			c.Layout = &n
			if c.ParentContainerID != "" {
				c.ParentContainerID = ""
				c.Column = 0
				fixes++
			}
		} else if c.Layout != nil {
			c.Layout = nil
			fixes++
		}
		list = append(list, c)
	}
	containers := map[string]Layout{}
	for _, c := range list {
		if c.IsContainer {
			containers[c.ID] = *c.Layout
		}
	}
	for i := range list {
		c := &list[i]
		if c.ParentContainerID == "" {
			if c.Column != 0 {
				c.Column = 0
				fixes++
			}
			continue
		}
		l, ok := containers[c.ParentContainerID]
		if !ok {
			c.ParentContainerID = ""
			c.Column = 0
			fixes++
			continue
		}
		if c.Column < 0 {
			c.Column = 0
			fixes++
		} else if c.Column >= l.ColumnCount {
			c.Column = l.ColumnCount - 1
			fixes++
		}
	}
	doc.Components = list
	return doc, fixes
}

func layoutEqual(a, b Layout) bool {
	if a.ColumnCount != b.ColumnCount || a.Direction != b.Direction {
		return false
	}
	if len(a.ColumnWidths) != len(b.ColumnWidths) || len(a.ColumnAlign) != len(b.ColumnAlign) {
		return false
	}
	for i := range a.ColumnWidths {
		if math.Abs(a.ColumnWidths[i]-b.ColumnWidths[i]) > WidthTolerance {
			return false
		}
	}
	for i := range a.ColumnAlign {
		if a.ColumnAlign[i] != b.ColumnAlign[i] {
			return false
		}
	}
	return true
}
