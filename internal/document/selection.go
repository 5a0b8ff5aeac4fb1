/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package document

import (
	"log/slog"

	"pagebuilder/internal/domain"
)

// Selection and hover are captured in snapshots but changing them never
// commits.

// Selection returns a copy of the current selection.
func (s *Store) Selection() domain.Selection { return s.sel.Clone() }

// Select replaces the selection with the given ids; unknown ids are skipped.
func (s *Store) Select(ids ...string) {
	next := domain.Selection{Hovered: s.sel.Hovered}
	for _, id := range ids {
		if _, ok := s.doc.Find(id); ok && !next.Has(id) {
			next.Selected = append(next.Selected, id)
		}
	}
	s.sel = next
}

// ToggleSelect adds id to the selection or removes it.
func (s *Store) ToggleSelect(id string) bool {
	if _, ok := s.doc.Find(id); !ok {
		return false
	}
	next := s.sel.Clone()
	if next.Has(id) {
		next.Selected = without(next.Selected, id)
	} else {
		next.Selected = append(next.Selected, id)
	}
	s.sel = next
	return true
}

// ClearSelection empties the selection, keeping hover.
func (s *Store) ClearSelection() { s.sel = domain.Selection{Hovered: s.sel.Hovered} }

// SetHovered sets the hovered id; an empty id clears it.
func (s *Store) SetHovered(id string) bool {
	if id != "" {
		if _, ok := s.doc.Find(id); !ok {
			return false
		}
	}
	s.sel.Hovered = id
	return true
}

// pruneSelection drops ids that no longer exist in doc.
func pruneSelection(sel domain.Selection, doc domain.Document) domain.Selection {
	out := domain.Selection{}
	for _, id := range sel.Selected {
		if doc.IndexOf(id) >= 0 {
			out.Selected = append(out.Selected, id)
		}
	}
	if doc.IndexOf(sel.Hovered) >= 0 {
		out.Hovered = sel.Hovered
	}
	return out
}

func without(ids []string, id string) []string {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Preview is the transient drop indicator shown while dragging. It is never
// written to history.
type Preview struct {
	// SourceID is set when an existing component is dragged.
	SourceID string
	// Type is set for palette drags.
	Type        domain.ComponentType
	Index       int
	ContainerID string
	Column      int
}

// SetPreview shows p.
func (s *Store) SetPreview(p Preview) {
	s.preview = &p
	s.log.Debug("preview", slog.Int("index", p.Index), slog.String("container", p.ContainerID), slog.Int("column", p.Column))
}

// ClearPreview hides the drop indicator.
func (s *Store) ClearPreview() { s.preview = nil }

// Preview returns the current drop indicator.
func (s *Store) Preview() (Preview, bool) {
	if s.preview == nil {
		return Preview{}, false
	}
	return *s.preview, true
}
