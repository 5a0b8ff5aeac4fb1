/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package palette lists the blocks a user can drag onto the canvas. Each
// entry is a component type plus an optional named variant that tweaks the
// type's defaults.
package palette

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"pagebuilder/internal/document"
	"pagebuilder/internal/domain"
)

// Item is one palette entry.
type Item struct {
	Type    domain.ComponentType `yaml:"type"`
	Variant string               `yaml:"variant,omitempty"`
	Label   string               `yaml:"label,omitempty"`
	// Styles are laid over the type defaults key by key.
	Styles domain.Styles  `yaml:"styles,omitempty"`
	Props  map[string]any `yaml:"props,omitempty"`
	// Layout only applies to containers.
	Layout *domain.Layout `yaml:"layout,omitempty"`
}

// Patch turns the item into the patch applied to a freshly created component.
func (it Item) Patch() document.Patch {
	var p document.Patch
	base := domain.NewComponent("", it.Type)
	if len(it.Styles.Base)+len(it.Styles.Tablet)+len(it.Styles.Mobile) > 0 {
		st := base.Styles.Clone()
		st.Base = overlay(st.Base, it.Styles.Base)
		st.Tablet = overlay(st.Tablet, it.Styles.Tablet)
		st.Mobile = overlay(st.Mobile, it.Styles.Mobile)
		p.Styles = &st
	}
	if len(it.Props) > 0 {
		props := domain.CloneProps(base.Props)
		if props == nil {
			props = map[string]any{}
		}
		for k, v := range it.Props {
			props[k] = v
		}
		p.Props = props
	}
	if it.Layout != nil && it.Type.IsContainer() {
		l := domain.NormalizeLayout(it.Layout.Clone())
		p.Layout = &l
	}
	return p
}

func overlay(dst, src domain.StyleMap) domain.StyleMap {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = domain.StyleMap{}
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Palette is an ordered list of items.
type Palette struct {
	Items []Item `yaml:"items"`
}

// Lookup finds the item for t and variant. An empty variant picks the first
// item of that type. Unknown types and unknown variants are not found.
func (p *Palette) Lookup(t domain.ComponentType, variant string) (Item, bool) {
	if p == nil || !t.Valid() {
		return Item{}, false
	}
	for _, it := range p.Items {
		if it.Type == t && (variant == "" || it.Variant == variant) {
			return it, true
		}
	}
	return Item{}, false
}

// Default is the built-in palette.
func Default() *Palette {
	stackedTwo := domain.Layout{ColumnCount: 2, Direction: domain.Stacked}
	return &Palette{Items: []Item{
		{Type: domain.TypeHeader, Variant: "h1", Label: "Heading 1"},
		{Type: domain.TypeHeader, Variant: "h2", Label: "Heading 2",
			Styles: domain.Styles{Base: domain.StyleMap{"font-size": "28px", "height": "56px"}, Tablet: domain.StyleMap{"font-size": "24px"}, Mobile: domain.StyleMap{"font-size": "20px", "height": "44px"}},
			Props:  map[string]any{"level": 2}},
		{Type: domain.TypeText, Label: "Text"},
		{Type: domain.TypeImage, Label: "Image"},
		{Type: domain.TypeButton, Variant: "primary", Label: "Button"},
		{Type: domain.TypeButton, Variant: "outline", Label: "Outline button",
			Styles: domain.Styles{Base: domain.StyleMap{"background": "transparent", "color": "#2563eb", "border": "1px solid #2563eb"}}},
		{Type: domain.TypeDivider, Label: "Divider"},
		{Type: domain.TypeSpacer, Label: "Spacer"},
		{Type: domain.TypeVideo, Label: "Video"},
		{Type: domain.TypeContainer, Variant: "2-col", Label: "Two columns", Layout: layoutPtr(domain.NewLayout(2))},
		{Type: domain.TypeContainer, Variant: "1-col", Label: "One column", Layout: layoutPtr(domain.NewLayout(1))},
		{Type: domain.TypeContainer, Variant: "3-col", Label: "Three columns", Layout: layoutPtr(domain.NewLayout(3))},
		{Type: domain.TypeContainer, Variant: "stacked", Label: "Stacked", Layout: &stackedTwo},
	}}
}

func layoutPtr(l domain.Layout) *domain.Layout { return &l }

// Load reads a YAML palette. Every item must name a known type, variants
// must be unique per type and container layouts must have 1 to 3 columns.
func Load(r io.Reader) (*Palette, error) {
	var p Palette
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("palette is empty")
		}
		return nil, fmt.Errorf("decode palette: %w", err)
	}
	if len(p.Items) == 0 {
		return nil, errors.New("palette has no items")
	}
	seen := map[string]bool{}
	for i, it := range p.Items {
		if !it.Type.Valid() {
			return nil, fmt.Errorf("item %d: unknown component type %q", i, it.Type)
		}
		key := string(it.Type) + "/" + it.Variant
		if seen[key] {
			return nil, fmt.Errorf("item %d: duplicate variant %q for %s", i, it.Variant, it.Type)
		}
		seen[key] = true
		if it.Layout != nil {
			if !it.Type.IsContainer() {
				return nil, fmt.Errorf("item %d: layout on non-container %s", i, it.Type)
			}
			if it.Layout.ColumnCount < domain.MinColumns || it.Layout.ColumnCount > domain.MaxColumns {
				return nil, fmt.Errorf("item %d: column count %d out of range", i, it.Layout.ColumnCount)
			}
		}
	}
	return &p, nil
}

// LoadFile reads a YAML palette from path.
func LoadFile(path string) (*Palette, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open palette: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}
