/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"
	"time"

	"pagebuilder/internal/domain"
)

func snap(label string, ids ...string) Snapshot {
	d := domain.Document{}
	for _, id := range ids {
		d.Components = append(d.Components, domain.Component{ID: id, Type: domain.TypeText})
	}
	return Snapshot{Label: label, Document: d}
}

func ids(s Snapshot) string {
	out := ""
	for _, c := range s.Document.Components {
		out += c.ID + ","
	}
	return out
}

func TestUndoRedoBasic(t *testing.T) {
	m := NewManager(Config{}, snap("root"))
	m.Commit(snap("add", "a"))
	m.Commit(snap("add", "a", "b"))
	if n, cur := m.Stats(); n != 3 || cur != 2 {
		t.Fatalf("expected 3 entries at cursor 2, got n=%d cur=%d", n, cur)
	}
	s, ok := m.Undo()
	if !ok || ids(s) != "a," {
		t.Fatalf("undo expected 'a,', got ok=%v %q", ok, ids(s))
	}
	s, ok = m.Redo()
	if !ok || ids(s) != "a,b," {
		t.Fatalf("redo expected 'a,b,', got ok=%v %q", ok, ids(s))
	}
}

func TestUndoRedoBounds(t *testing.T) {
	m := NewManager(Config{}, snap("root"))
	if _, ok := m.Undo(); ok {
		t.Fatalf("undo at root should be a no-op")
	}
	if _, ok := m.Redo(); ok {
		t.Fatalf("redo at end should be a no-op")
	}
	m.Commit(snap("add", "a"))
	if _, ok := m.Redo(); ok {
		t.Fatalf("redo at end should be a no-op")
	}
	if ids(m.Current()) != "a," {
		t.Fatalf("no-op redo moved the cursor")
	}
}

func TestCommitAfterUndoTruncates(t *testing.T) {
	m := NewManager(Config{}, snap("root"))
	m.Commit(snap("add", "a"))
	m.Commit(snap("add", "a", "b"))
	m.Undo()
	m.Undo()
	m.Commit(snap("add", "c"))
	if m.CanRedo() {
		t.Fatalf("redo entries survived a new commit")
	}
	if n, cur := m.Stats(); n != 2 || cur != 1 {
		t.Fatalf("expected 2 entries at cursor 1, got n=%d cur=%d", n, cur)
	}
	s, _ := m.Undo()
	if ids(s) != "" {
		t.Fatalf("expected root, got %q", ids(s))
	}
}

func TestRoundTrip(t *testing.T) {
	m := NewManager(Config{}, snap("root"))
	const n = 25
	var all []string
	for i := 0; i < n; i++ {
		all = append(all, string(rune('a'+i)))
		m.Commit(snap("add", all...))
	}
	final := ids(m.Current())
	for i := 0; i < n; i++ {
		if _, ok := m.Undo(); !ok {
			t.Fatalf("undo %d failed", i)
		}
	}
	if ids(m.Current()) != "" || m.CanUndo() {
		t.Fatalf("not back at root")
	}
	for i := 0; i < n; i++ {
		if _, ok := m.Redo(); !ok {
			t.Fatalf("redo %d failed", i)
		}
	}
	if ids(m.Current()) != final {
		t.Fatalf("redo did not restore final state")
	}
}

func TestCoalesce(t *testing.T) {
	m := NewManager(Config{CoalesceWithin: 50 * time.Millisecond}, snap("root"))
	t0 := time.Now()
	a := snap("width", "1")
	a.TS = t0
	b := snap("width", "2")
	b.TS = t0.Add(10 * time.Millisecond)
	m.Commit(a)
	if !m.Commit(b) {
		t.Fatalf("expected coalesce")
	}
	if n, _ := m.Stats(); n != 2 {
		t.Fatalf("expected coalesced to 2 entries, got %d", n)
	}
	c := snap("other", "3")
	c.TS = t0.Add(20 * time.Millisecond)
	if m.Commit(c) {
		t.Fatalf("different labels must not coalesce")
	}
	s, _ := m.Undo()
	if ids(s) != "2," {
		t.Fatalf("expected coalesced entry '2,', got %q", ids(s))
	}
}

func TestCaps(t *testing.T) {
	m := NewManager(Config{MaxEntries: 3}, snap("root"))
	for i := 0; i < 10; i++ {
		m.Commit(snap("add", string(rune('a'+i))))
	}
	n, cur := m.Stats()
	if n != 3 || cur != 2 {
		t.Fatalf("expected cap of 3 entries, got n=%d cur=%d", n, cur)
	}
	m.Undo()
	m.Undo()
	if _, ok := m.Undo(); ok {
		t.Fatalf("undo past oldest kept entry")
	}
	if ids(m.Current()) != "h," {
		t.Fatalf("oldest kept entry = %q", ids(m.Current()))
	}
}

func TestLabels(t *testing.T) {
	m := NewManager(Config{}, snap("root"))
	m.Commit(snap("add header", "h"))
	if m.UndoLabel() != "add header" || m.RedoLabel() != "" {
		t.Fatalf("labels wrong: %q %q", m.UndoLabel(), m.RedoLabel())
	}
	m.Undo()
	if m.UndoLabel() != "" || m.RedoLabel() != "add header" {
		t.Fatalf("labels wrong after undo: %q %q", m.UndoLabel(), m.RedoLabel())
	}
}
