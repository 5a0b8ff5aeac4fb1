/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"strconv"
	"strings"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/style"
)

const pageRules = `.pb-page { display: flex; flex-direction: column; gap: 16px; margin: 0 auto; max-width: 1200px; padding: 24px }
.pb-column { display: flex; flex-direction: column; gap: 16px; min-height: 80px }
.pb-placeholder { border: 2px dashed #dc2626; color: #dc2626; padding: 12px }
`

var flexAlign = map[domain.Alignment]string{
	domain.AlignStart:   "flex-start",
	domain.AlignCenter:  "center",
	domain.AlignEnd:     "flex-end",
	domain.AlignStretch: "stretch",
}

// Stylesheet returns the page CSS. With an empty breakpoint it holds the
// desktop rules followed by tablet and mobile media queries that carry only
// the declarations those breakpoints change; otherwise every rule is
// resolved at bp.
func Stylesheet(doc domain.Document, bp domain.Breakpoint) string {
	var b strings.Builder
	b.WriteString(pageRules)
	flat := bp
	if !flat.Valid() {
		flat = domain.Desktop
	}
	for _, c := range doc.Components {
		decl := style.ResolveComponent(c, flat)
		if c.IsContainer && c.Layout != nil {
			decl["display"] = "grid"
			decl["grid-template-columns"] = gridColumns(*c.Layout, flat)
		}
		rule(&b, "#"+elementID(c.ID), decl)
		if c.IsContainer && c.Layout != nil {
			for k, a := range c.Layout.ColumnAlign {
				if v, ok := flexAlign[a]; ok && a != domain.AlignStart {
					rule(&b, "#"+columnID(c.ID, k), domain.StyleMap{"align-items": v})
				}
			}
		}
	}
	if bp.Valid() {
		return b.String()
	}
	media(&b, style.TabletMaxWidth, doc, domain.Tablet)
	media(&b, style.MobileMaxWidth, doc, domain.Mobile)
	return b.String()
}

func media(b *strings.Builder, maxWidth int, doc domain.Document, bp domain.Breakpoint) {
	var inner strings.Builder
	for _, c := range doc.Components {
		decl := style.Diff(c.Styles, bp)
		if bp == domain.Mobile && c.IsContainer && c.Layout != nil && c.Layout.Direction == domain.SideBySide {
			if decl == nil {
				decl = domain.StyleMap{}
			}
			decl["grid-template-columns"] = "1fr"
		}
		if len(decl) > 0 {
			inner.WriteString("  ")
			rule(&inner, "#"+elementID(c.ID), decl)
		}
	}
	if inner.Len() == 0 {
		return
	}
	b.WriteString("@media (max-width: " + strconv.Itoa(maxWidth) + "px) {\n")
	b.WriteString(inner.String())
	b.WriteString("}\n")
}

func gridColumns(l domain.Layout, bp domain.Breakpoint) string {
	n := l.ColumnCount
	if n < 1 {
		n = 1
	}
	if l.Direction == domain.Stacked || bp == domain.Mobile {
		return "1fr"
	}
	widths := domain.NormalizeWidths(l.ColumnWidths, n)
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strconv.FormatFloat(w, 'f', -1, 64) + "fr"
	}
	return strings.Join(parts, " ")
}

func rule(b *strings.Builder, selector string, decl domain.StyleMap) {
	if len(decl) == 0 {
		return
	}
	b.WriteString(selector)
	b.WriteString(" { ")
	// a declaration value must not close the style element
	b.WriteString(strings.ReplaceAll(style.CSS(decl), "<", ""))
	b.WriteString(" }\n")
}
