/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package document

import (
	"errors"

	"pagebuilder/internal/domain"
)

// Patch is a shallow merge onto a component: every non-nil field replaces
// the component's value wholesale. The store does not validate payloads.
type Patch struct {
	Variant *string        `json:"variant,omitempty" yaml:"variant,omitempty"`
	Styles  *domain.Styles `json:"styles,omitempty" yaml:"styles,omitempty"`
	Props   map[string]any `json:"props,omitempty" yaml:"props,omitempty"`
	Layout  *domain.Layout `json:"layout,omitempty" yaml:"layout,omitempty"`
}

var errLayoutOnLeaf = errors.New("layout on non-container")

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool {
	return p.Variant == nil && p.Styles == nil && p.Props == nil && p.Layout == nil
}

func (p Patch) label() string {
	switch {
	case p.Layout != nil:
		return "Edit layout"
	case p.Styles != nil && p.Props == nil && p.Variant == nil:
		return "Edit style"
	default:
		return "Edit"
	}
}

// applyPatch merges p into c. Maps are copied so c shares nothing with p.
func applyPatch(c *domain.Component, p Patch) (bool, error) {
	if p.Empty() {
		return false, nil
	}
	if p.Layout != nil && !c.IsContainer {
		return false, errLayoutOnLeaf
	}
	if p.Variant != nil {
		c.Variant = *p.Variant
	}
	if p.Styles != nil {
		c.Styles = p.Styles.Clone()
	}
	if p.Props != nil {
		c.Props = domain.CloneProps(p.Props)
	}
	if p.Layout != nil {
		l := domain.NormalizeLayout(p.Layout.Clone())
		c.Layout = &l
	}
	return true, nil
}
