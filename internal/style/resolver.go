/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package style resolves per-breakpoint component styles.
//
// Resolution layers base, then tablet overrides (tablet and mobile), then
// mobile overrides (mobile only). Each layer overrides individual keys; it
// never removes one. The editing canvas, the HTML preview and the exporters
// all call Resolve so they agree on every declaration.
package style

import (
	"sort"
	"strconv"
	"strings"

	"pagebuilder/internal/domain"
)

const (
	// TabletMaxWidth is the widest viewport, in px, treated as tablet.
	TabletMaxWidth = 1023
	// MobileMaxWidth is the widest viewport, in px, treated as mobile.
	MobileMaxWidth = 767
)

// Resolve returns the effective declarations of s at breakpoint bp.
// The result is a fresh map the caller may modify.
func Resolve(s domain.Styles, bp domain.Breakpoint) domain.StyleMap {
	out := make(domain.StyleMap, len(s.Base)+len(s.Tablet)+len(s.Mobile))
	for k, v := range s.Base {
		out[k] = v
	}
	if bp.Rank() >= domain.Tablet.Rank() {
		for k, v := range s.Tablet {
			out[k] = v
		}
	}
	if bp == domain.Mobile {
		for k, v := range s.Mobile {
			out[k] = v
		}
	}
	return out
}

// ResolveComponent is Resolve applied to a component's styles.
func ResolveComponent(c domain.Component, bp domain.Breakpoint) domain.StyleMap {
	return Resolve(c.Styles, bp)
}

// Value returns one resolved declaration.
func Value(s domain.Styles, bp domain.Breakpoint, key string) (string, bool) {
	v, ok := Resolve(s, bp)[key]
	return v, ok
}

// ForWidth maps a viewport width in px to its breakpoint.
func ForWidth(px float64) domain.Breakpoint {
	switch {
	case px <= MobileMaxWidth:
		return domain.Mobile
	case px <= TabletMaxWidth:
		return domain.Tablet
	default:
		return domain.Desktop
	}
}

// CSS renders declarations as "k: v; k2: v2" with keys sorted so output is
// deterministic.
func CSS(m domain.StyleMap) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	b := &strings.Builder{}
	for i, k := range keys {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(m[k])
	}
	return b.String()
}

// Pixels parses a "<n>px" or bare number declaration.
func Pixels(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	v = strings.TrimSuffix(v, "px")
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Diff returns the keys of layer that change the value resolved at the
// previous breakpoint. Used to emit minimal media-query rules.
func Diff(s domain.Styles, bp domain.Breakpoint) domain.StyleMap {
	var prev domain.Breakpoint
	switch bp {
	case domain.Tablet:
		prev = domain.Desktop
	case domain.Mobile:
		prev = domain.Tablet
	default:
		return Resolve(s, domain.Desktop)
	}
	before := Resolve(s, prev)
	after := Resolve(s, bp)
	out := domain.StyleMap{}
	for k, v := range after {
		if before[k] != v {
			out[k] = v
		}
	}
	return out
}
