/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package document holds the editing session's single source of truth: the
// ordered component list, the selection and the transient drag preview.
//
// Every mutation builds a new component slice and never modifies a component
// in place, so history snapshots can share component values with the live
// state. Mutations that succeed commit one history entry; anything invalid is
// a silent no-op reported by a false result.
package document

import (
	"log/slog"
	"reflect"

	"github.com/google/uuid"

	"pagebuilder/internal/domain"
	applog "pagebuilder/internal/log"
	"pagebuilder/internal/placement"
	"pagebuilder/internal/undo"
)

// IDFunc produces component ids.
type IDFunc func() string

// Option configures a Store.
type Option func(*Store)

// WithIDFunc replaces the default UUID generator.
func WithIDFunc(f IDFunc) Option {
	return func(s *Store) {
		if f != nil {
			s.newID = f
		}
	}
}

// WithHistory sets the history caps and coalescing.
func WithHistory(cfg undo.Config) Option { return func(s *Store) { s.histCfg = cfg } }

// WithLogger overrides the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// ChangeFunc observes the live document after every commit, undo, redo and
// load. label is the history label of the change.
type ChangeFunc func(label string, doc domain.Document)

// Store is the document session. It is not safe for concurrent use; the
// editor drives it from one goroutine.
type Store struct {
	doc     domain.Document
	sel     domain.Selection
	preview *Preview
	hist    *undo.Manager
	histCfg undo.Config
	newID   IDFunc
	seen    map[string]struct{}
	log     *slog.Logger
	watch   []ChangeFunc
}

// New starts a session on doc. The document is repaired first, so untrusted
// input never breaks the containment invariants.
func New(doc domain.Document, opts ...Option) *Store {
	s := &Store{
		newID: uuid.NewString,
		log:   applog.WithComponent("document"),
	}
	for _, o := range opts {
		o(s)
	}
	s.hist = undo.NewManager(s.histCfg, undo.Snapshot{})
	s.Load(doc)
	return s
}

// Load replaces the session with doc and restarts history from it.
func (s *Store) Load(doc domain.Document) {
	fixed, n := domain.Repair(doc)
	if n > 0 {
		s.log.Warn("document repaired on load", slog.String("doc", fixed.ID), slog.Int("fixes", n))
	}
	s.doc = fixed
	s.sel = domain.Selection{}
	s.preview = nil
	s.seen = make(map[string]struct{}, len(fixed.Components))
	for _, c := range fixed.Components {
		s.seen[c.ID] = struct{}{}
	}
	s.hist.Reset(undo.Snapshot{Label: "Open", Document: s.doc, Selection: s.sel.Clone()})
	s.notify("Open")
}

// OnChange registers fn to observe document changes.
func (s *Store) OnChange(fn ChangeFunc) {
	if fn != nil {
		s.watch = append(s.watch, fn)
	}
}

// Document returns the live document. The component slice is a copy; the
// components' maps are shared and must be treated as read-only.
func (s *Store) Document() domain.Document {
	d := s.doc
	d.Components = append([]domain.Component(nil), s.doc.Components...)
	return d
}

// Components returns the ordered component list (see Document).
func (s *Store) Components() []domain.Component { return s.Document().Components }

// Len returns the number of components.
func (s *Store) Len() int { return len(s.doc.Components) }

// Get returns the component with id.
func (s *Store) Get(id string) (domain.Component, bool) { return s.doc.Find(id) }

// IndexOf returns the flat index of id or -1.
func (s *Store) IndexOf(id string) int { return s.doc.IndexOf(id) }

// freshID returns an id never seen in this session.
func (s *Store) freshID() string {
	for {
		id := s.newID()
		if _, dup := s.seen[id]; id != "" && !dup {
			s.seen[id] = struct{}{}
			return id
		}
	}
}

// commit installs list as the live component order and pushes a history entry.
func (s *Store) commit(label string, list []domain.Component) {
	s.doc.Components = list
	s.sel = pruneSelection(s.sel, s.doc)
	s.preview = nil
	coalesced := s.hist.Commit(undo.Snapshot{Label: label, Document: s.doc, Selection: s.sel.Clone()})
	entries, cursor := s.hist.Stats()
	s.log.Debug("commit",
		slog.String("label", label),
		slog.Int("components", len(list)),
		slog.Int("entries", entries),
		slog.Int("cursor", cursor),
		slog.Bool("coalesced", coalesced))
	s.notify(label)
}

func (s *Store) notify(label string) {
	if len(s.watch) == 0 {
		return
	}
	d := s.Document()
	for _, fn := range s.watch {
		fn(label, d)
	}
}

func (s *Store) noop(op, reason string, attrs ...any) bool {
	s.log.Debug("no-op", append([]any{slog.String("op", op), slog.String("reason", reason)}, attrs...)...)
	return false
}

// AddOptions places and customizes a new component.
type AddOptions struct {
	// ParentID puts the component in a container column.
	ParentID string
	Column   int
	Variant  string
	// Patch is applied over the type defaults.
	Patch Patch
}

// Add inserts a new component of type t at flat position index and returns
// its id. A negative or too large index appends; for a child it appends to
// the end of its column. Unknown types, unknown or non-container parents,
// out-of-range columns and containers inside containers are no-ops.
func (s *Store) Add(t domain.ComponentType, index int, opts AddOptions) (string, bool) {
	if !t.Valid() {
		return "", s.noop("add", "unknown type", slog.String("type", string(t)))
	}
	if opts.ParentID != "" {
		if t.IsContainer() {
			return "", s.noop("add", "container into container")
		}
		if !s.validSlot(opts.ParentID, opts.Column) {
			return "", s.noop("add", "invalid parent", slog.String("parent", opts.ParentID))
		}
	}
	c := domain.NewComponent(s.freshID(), t)
	c.Variant = opts.Variant
	if _, err := applyPatch(&c, opts.Patch); err != nil {
		return "", s.noop("add", err.Error())
	}
	c.ParentContainerID = opts.ParentID
	if opts.ParentID != "" {
		c.Column = opts.Column
	}

	n := len(s.doc.Components)
	if index < 0 || index > n {
		index = n
		if opts.ParentID != "" {
			index = s.doc.ColumnInsertIndex(opts.ParentID, opts.Column)
		}
	}
	s.commit("Add "+string(t), insertAt(s.doc.Components, index, c))
	return c.ID, true
}

// validSlot reports whether column col of parentID can receive a child.
func (s *Store) validSlot(parentID string, col int) bool {
	p, ok := s.doc.Find(parentID)
	if !ok || !p.IsContainer || p.Layout == nil {
		return false
	}
	return col >= 0 && col < p.Layout.ColumnCount
}

// Update shallow-merges patch into component id. Layout patches apply only to
// containers; they are normalized and children of removed columns move into
// the last remaining column.
func (s *Store) Update(id string, p Patch) bool {
	i := s.doc.IndexOf(id)
	if i < 0 {
		return s.noop("update", "unknown id", slog.String("id", id))
	}
	c := s.doc.Components[i]
	changed, err := applyPatch(&c, p)
	if err != nil {
		return s.noop("update", err.Error(), slog.String("id", id))
	}
	if !changed {
		return s.noop("update", "empty patch", slog.String("id", id))
	}
	list := replaceAt(s.doc.Components, i, c)
	if p.Layout != nil {
		list = foldColumns(list, c)
	}
	s.commit(p.label(), list)
	return true
}

// foldColumns moves children of c that sit beyond its column count into the
// last column.
func foldColumns(list []domain.Component, c domain.Component) []domain.Component {
	last := c.Layout.ColumnCount - 1
	for i, ch := range list {
		if ch.ParentContainerID == c.ID && ch.Column > last {
			ch.Column = last
			list[i] = ch
		}
	}
	return list
}

// SetStyle sets one declaration of component id at breakpoint bp; an empty
// value removes it.
func (s *Store) SetStyle(id string, bp domain.Breakpoint, key, value string) bool {
	c, ok := s.doc.Find(id)
	if !ok || key == "" || !bp.Valid() {
		return s.noop("style", "invalid target", slog.String("id", id))
	}
	st := c.Styles.Clone()
	layer := st.Layer(bp)
	if cur, has := layer[key]; (value == "" && !has) || (has && cur == value) {
		return s.noop("style", "unchanged", slog.String("id", id))
	}
	if value == "" {
		delete(layer, key)
	} else {
		if layer == nil {
			layer = domain.StyleMap{}
		}
		layer[key] = value
	}
	st.SetLayer(bp, layer)
	return s.Update(id, Patch{Styles: &st})
}

// SetColumnWidth sets one column width of container id and rebalances the
// others proportionally so the total stays 100.
func (s *Store) SetColumnWidth(id string, col int, width float64) bool {
	c, ok := s.doc.Find(id)
	if !ok || !c.IsContainer || c.Layout == nil || col < 0 || col >= c.Layout.ColumnCount {
		return s.noop("width", "invalid column", slog.String("id", id), slog.Int("column", col))
	}
	l := c.Layout.Clone()
	l.ColumnWidths = domain.RebalanceWidths(l.ColumnWidths, col, width)
	if reflect.DeepEqual(l.ColumnWidths, c.Layout.ColumnWidths) {
		return s.noop("width", "unchanged", slog.String("id", id))
	}
	return s.Update(id, Patch{Layout: &l})
}

// Remove deletes component id. Children of a removed container are promoted
// to top level and take the container's position, keeping their order.
func (s *Store) Remove(id string) bool {
	i := s.doc.IndexOf(id)
	if i < 0 {
		return s.noop("remove", "unknown id", slog.String("id", id))
	}
	victim := s.doc.Components[i]
	var promoted []domain.Component
	if victim.IsContainer {
		for _, c := range s.doc.Components {
			if c.ParentContainerID == id {
				c.ParentContainerID = ""
				c.Column = 0
				promoted = append(promoted, c)
			}
		}
	}
	out := make([]domain.Component, 0, len(s.doc.Components)-1+len(promoted))
	for j, c := range s.doc.Components {
		switch {
		case j == i:
			out = append(out, promoted...)
		case c.ParentContainerID == id:
		default:
			out = append(out, c)
		}
	}
	s.commit("Remove "+string(victim.Type), out)
	return true
}

// Reorder replaces the whole component order with list. It is the single
// reordering primitive: list must hold exactly the current ids and satisfy
// every containment invariant, else nothing happens. Components in list may
// carry updated containment. The slice is copied; the components are kept.
func (s *Store) Reorder(list []domain.Component) bool {
	return s.reorder("Reorder", list)
}

func (s *Store) reorder(label string, list []domain.Component) bool {
	if len(list) != len(s.doc.Components) {
		return s.noop("reorder", "id set changed")
	}
	want := make(map[string]bool, len(list))
	for _, c := range s.doc.Components {
		want[c.ID] = true
	}
	for _, c := range list {
		if !want[c.ID] {
			return s.noop("reorder", "id set changed", slog.String("id", c.ID))
		}
		delete(want, c.ID)
	}
	if v := domain.Validate(list); len(v) > 0 {
		return s.noop("reorder", v[0].Error())
	}
	if reflect.DeepEqual(list, s.doc.Components) {
		return s.noop("reorder", "unchanged")
	}
	s.commit(label, append([]domain.Component(nil), list...))
	return true
}

// ReorderIDs reorders by id using the current component values.
func (s *Store) ReorderIDs(ids []string) bool {
	list := make([]domain.Component, 0, len(ids))
	for _, id := range ids {
		c, ok := s.doc.Find(id)
		if !ok {
			return s.noop("reorder", "unknown id", slog.String("id", id))
		}
		list = append(list, c)
	}
	return s.Reorder(list)
}

// Move takes component id out of the list and reinserts it at the raw flat
// index (measured before removal) inside parentID's column, or at top level
// when parentID is empty. It routes through the reorder primitive.
func (s *Store) Move(id string, raw int, parentID string, column int) bool {
	return s.move("Move", id, raw, parentID, column)
}

func (s *Store) move(label, id string, raw int, parentID string, column int) bool {
	si := s.doc.IndexOf(id)
	if si < 0 {
		return s.noop("move", "unknown id", slog.String("id", id))
	}
	c := s.doc.Components[si]
	if parentID != "" {
		if c.IsContainer || parentID == id {
			return s.noop("move", "container into container", slog.String("id", id))
		}
		if !s.validSlot(parentID, column) {
			return s.noop("move", "invalid parent", slog.String("parent", parentID))
		}
		c.ParentContainerID, c.Column = parentID, column
	} else {
		c.ParentContainerID, c.Column = "", 0
	}
	rest := removeAt(s.doc.Components, si)
	at := placement.AdjustIndex(si, raw)
	if at < 0 || at > len(rest) {
		at = len(rest)
	}
	return s.reorder(label, insertAt(rest, at, c))
}

// Nudge moves component id delta places among its siblings: the other
// top-level components, or the children sharing its container column.
func (s *Store) Nudge(id string, delta int) bool {
	c, ok := s.doc.Find(id)
	if !ok || delta == 0 {
		return s.noop("nudge", "nothing to do", slog.String("id", id))
	}
	var sib []int
	pos := -1
	for i, o := range s.doc.Components {
		if o.ParentContainerID != c.ParentContainerID || (c.ParentContainerID != "" && o.Column != c.Column) {
			continue
		}
		if o.ID == id {
			pos = len(sib)
		}
		sib = append(sib, i)
	}
	to := pos + delta
	if to < 0 {
		to = 0
	}
	if to >= len(sib) {
		to = len(sib) - 1
	}
	if to == pos {
		return s.noop("nudge", "at edge", slog.String("id", id))
	}
	raw := sib[to]
	if delta > 0 {
		raw++
	}
	return s.move("Nudge", id, raw, c.ParentContainerID, c.Column)
}

// Duplicate inserts a clone of id with a fresh id right after it. A duplicated
// container brings clones of its children, placed after the container clone.
func (s *Store) Duplicate(id string) (string, bool) {
	i := s.doc.IndexOf(id)
	if i < 0 {
		return "", s.noop("duplicate", "unknown id", slog.String("id", id))
	}
	src := s.doc.Components[i]
	dup := src.Clone()
	dup.ID = s.freshID()
	batch := []domain.Component{dup}
	if src.IsContainer {
		for _, c := range s.doc.Components {
			if c.ParentContainerID == id {
				ch := c.Clone()
				ch.ID = s.freshID()
				ch.ParentContainerID = dup.ID
				batch = append(batch, ch)
			}
		}
	}
	list := make([]domain.Component, 0, len(s.doc.Components)+len(batch))
	list = append(list, s.doc.Components[:i+1]...)
	list = append(list, batch...)
	list = append(list, s.doc.Components[i+1:]...)
	s.commit("Duplicate "+string(src.Type), list)
	return dup.ID, true
}

// Rename sets the document name.
func (s *Store) Rename(name string) bool {
	if name == s.doc.Name {
		return s.noop("rename", "unchanged")
	}
	s.doc.Name = name
	s.commit("Rename", s.doc.Components)
	return true
}

// Undo restores the previous history entry.
func (s *Store) Undo() bool {
	snap, ok := s.hist.Undo()
	if !ok {
		return s.noop("undo", "at root")
	}
	s.restore(snap, "Undo")
	return true
}

// Redo reapplies the next history entry.
func (s *Store) Redo() bool {
	snap, ok := s.hist.Redo()
	if !ok {
		return s.noop("redo", "at end")
	}
	s.restore(snap, "Redo")
	return true
}

func (s *Store) restore(snap undo.Snapshot, label string) {
	s.doc = snap.Document
	s.sel = snap.Selection.Clone()
	s.preview = nil
	s.log.Debug(label, slog.String("entry", snap.Label))
	s.notify(label)
}

func (s *Store) CanUndo() bool { return s.hist.CanUndo() }
func (s *Store) CanRedo() bool { return s.hist.CanRedo() }

// UndoLabel names the change Undo would revert.
func (s *Store) UndoLabel() string { return s.hist.UndoLabel() }

// RedoLabel names the change Redo would reapply.
func (s *Store) RedoLabel() string { return s.hist.RedoLabel() }

// HistoryStats returns the history entry count and cursor.
func (s *Store) HistoryStats() (entries, cursor int) { return s.hist.Stats() }

func insertAt(list []domain.Component, i int, c domain.Component) []domain.Component {
	out := make([]domain.Component, 0, len(list)+1)
	out = append(out, list[:i]...)
	out = append(out, c)
	return append(out, list[i:]...)
}

func removeAt(list []domain.Component, i int) []domain.Component {
	out := make([]domain.Component, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}

func replaceAt(list []domain.Component, i int, c domain.Component) []domain.Component {
	out := append([]domain.Component(nil), list...)
	out[i] = c
	return out
}
