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
	"sync"
	"time"

	"pagebuilder/internal/domain"
)

// Snapshot is one immutable history entry: the whole document plus selection.
// Components are shared between snapshots and the live store; nothing may
// modify them in place.
type Snapshot struct {
	Label     string
	Document  domain.Document
	Selection domain.Selection
	TS        time.Time
}

// Config controls depth caps and coalescing behavior.
type Config struct {
	// MaxEntries caps the number of entries kept, including the root. Oldest
	// entries are dropped first.
	MaxEntries int
	// CoalesceWithin merges a commit into the previous entry when both carry the
	// same non-empty label and were captured within the interval. Zero disables.
	CoalesceWithin time.Duration
}

const defaultMaxEntries = 500

// Manager is a linear truncate-and-append stack with a cursor. The entry at
// the cursor is the live state; undo and redo only move the cursor.
// It is safe for concurrent use.
type Manager struct {
	cfg     Config
	mu      sync.Mutex
	entries []Snapshot
	cursor  int
}

// NewManager creates a history whose first entry is root.
func NewManager(cfg Config, root Snapshot) *Manager {
	if cfg.MaxEntries <= 1 {
		cfg.MaxEntries = defaultMaxEntries
	}
	if root.TS.IsZero() {
		root.TS = time.Now()
	}
	return &Manager{cfg: cfg, entries: []Snapshot{root}}
}

// Reset discards all entries and starts over from root.
func (m *Manager) Reset(root Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if root.TS.IsZero() {
		root.TS = time.Now()
	}
	m.entries = []Snapshot{root}
	m.cursor = 0
}

// Commit drops every entry after the cursor, appends s and advances the cursor.
// It reports whether s was coalesced into the previous entry.
func (m *Manager) Commit(s Snapshot) (coalesced bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.TS.IsZero() {
		s.TS = time.Now()
	}
	// Any new change invalidates redo
	m.entries = m.entries[:m.cursor+1]
	if m.cfg.CoalesceWithin > 0 && m.cursor > 0 {
		top := m.entries[m.cursor]
		if s.Label != "" && top.Label == s.Label && s.TS.Sub(top.TS) < m.cfg.CoalesceWithin {
			m.entries[m.cursor] = s
			return true
		}
	}
	m.entries = append(m.entries, s)
	m.cursor++
	m.enforceCapsLocked()
	return false
}

// Undo moves the cursor back one entry and returns the entry now current.
// At the root it is a no-op and returns false.
func (m *Manager) Undo() (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor == 0 {
		return Snapshot{}, false
	}
	m.cursor--
	return m.entries[m.cursor], true
}

// Redo moves the cursor forward one entry. At the end it is a no-op.
func (m *Manager) Redo() (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor >= len(m.entries)-1 {
		return Snapshot{}, false
	}
	m.cursor++
	return m.entries[m.cursor], true
}

// Current returns the entry at the cursor.
func (m *Manager) Current() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[m.cursor]
}

func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor > 0
}

func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor < len(m.entries)-1
}

// UndoLabel names the change the next Undo would revert.
func (m *Manager) UndoLabel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor == 0 {
		return ""
	}
	return m.entries[m.cursor].Label
}

// RedoLabel names the change the next Redo would reapply.
func (m *Manager) RedoLabel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor >= len(m.entries)-1 {
		return ""
	}
	return m.entries[m.cursor+1].Label
}

// Stats returns the entry count and cursor position for diagnostics.
func (m *Manager) Stats() (entries int, cursor int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), m.cursor
}

func (m *Manager) enforceCapsLocked() {
	if len(m.entries) <= m.cfg.MaxEntries {
		return
	}
	toDrop := len(m.entries) - m.cfg.MaxEntries
	m.entries = append([]Snapshot{}, m.entries[toDrop:]...)
	m.cursor -= toDrop
	if m.cursor < 0 {
		m.cursor = 0
	}
}
