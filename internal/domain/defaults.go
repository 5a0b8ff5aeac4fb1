/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// defaultStyles are the base declarations a freshly dropped block starts with.
var defaultStyles = map[ComponentType]Styles{
	TypeHeader: {
		Base:   StyleMap{"font-size": "40px", "font-weight": "700", "padding": "16px", "height": "72px"},
		Tablet: StyleMap{"font-size": "32px"},
		Mobile: StyleMap{"font-size": "26px", "height": "56px"},
	},
	TypeText: {
		Base:   StyleMap{"font-size": "16px", "line-height": "1.5", "padding": "12px", "height": "96px"},
		Mobile: StyleMap{"font-size": "15px"},
	},
	TypeImage: {
		Base:   StyleMap{"width": "100%", "height": "240px", "object-fit": "cover"},
		Mobile: StyleMap{"height": "180px"},
	},
	TypeButton: {
		Base: StyleMap{"padding": "12px 24px", "background": "#2563eb", "color": "#ffffff", "border-radius": "6px", "height": "48px"},
	},
	TypeDivider: {
		Base: StyleMap{"border-top": "1px solid #e5e7eb", "height": "16px"},
	},
	TypeSpacer: {
		Base:   StyleMap{"height": "48px"},
		Mobile: StyleMap{"height": "24px"},
	},
	TypeVideo: {
		Base:   StyleMap{"width": "100%", "height": "320px"},
		Tablet: StyleMap{"height": "260px"},
		Mobile: StyleMap{"height": "200px"},
	},
	TypeContainer: {
		Base:   StyleMap{"padding": "16px", "gap": "16px"},
		Mobile: StyleMap{"padding": "8px"},
	},
}

var defaultProps = map[ComponentType]map[string]any{
	TypeHeader: {"text": "Heading", "level": 1},
	TypeText:   {"text": "Write something here."},
	TypeImage:  {"src": "", "alt": ""},
	TypeButton: {"label": "Click me", "href": "#"},
	TypeVideo:  {"src": ""},
}

// NewComponent builds a component of type t with default styles and payload.
// Containers get a normalized two-column layout. The caller assigns placement.
func NewComponent(id string, t ComponentType) Component {
	c := Component{ID: id, Type: t}
	if st, ok := defaultStyles[t]; ok {
		c.Styles = st.Clone()
	}
	c.Props = CloneProps(defaultProps[t])
	if t.IsContainer() {
		c.IsContainer = true
		l := NewLayout(2)
		c.Layout = &l
	}
	return c
}
