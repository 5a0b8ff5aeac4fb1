/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"pagebuilder/internal/domain"
)

// MemPages keeps every version in memory. It backs serve --memory and tests.
type MemPages struct {
	mu    sync.Mutex
	pages map[string][]PageRecord
}

// NewMemPages returns an empty store.
func NewMemPages() *MemPages { return &MemPages{pages: map[string][]PageRecord{}} }

func (m *MemPages) List(ctx context.Context) ([]PageSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []PageSummary{}
	for _, vs := range m.pages {
		out = append(out, vs[len(vs)-1].PageSummary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemPages) Get(ctx context.Context, id string) (PageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vs, ok := m.pages[id]
	if !ok {
		return PageRecord{}, ErrNotFound
	}
	return vs[len(vs)-1], nil
}

func (m *MemPages) Put(ctx context.Context, doc domain.Document, ifVersion int64, by string) (PageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := int64(len(m.pages[doc.ID]))
	if ifVersion > 0 && ifVersion != cur {
		return PageRecord{}, fmt.Errorf("%w: have %d, want %d", ErrConflict, cur, ifVersion)
	}
	rec := PageRecord{
		PageSummary: PageSummary{ID: doc.ID, Name: doc.Name, Components: len(doc.Components), Version: cur + 1, UpdatedBy: by, UpdatedAt: time.Now()},
		Document:    doc.Clone(),
	}
	m.pages[doc.ID] = append(m.pages[doc.ID], rec)
	return rec, nil
}

func (m *MemPages) Versions(ctx context.Context, id string) ([]PageSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vs, ok := m.pages[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]PageSummary, 0, len(vs))
	for i := len(vs) - 1; i >= 0; i-- {
		out = append(out, vs[i].PageSummary)
	}
	return out, nil
}
