/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"errors"
	"testing"
)

func TestRevisionsCRUD(t *testing.T) {
	root := t.TempDir()
	ph, err := InitPage(root, samplePage())
	if err != nil {
		t.Fatalf("InitPage error: %v", err)
	}
	ctx := context.Background()
	first, err := RecordRevision(ctx, ph, "Open")
	if err != nil {
		t.Fatalf("RecordRevision: %v", err)
	}
	for i := 0; i < 5; i++ {
		ph.Page.Components = ph.Page.Components[:len(ph.Page.Components)-1]
		if _, err := RecordRevision(ctx, ph, "Remove"); err != nil {
			t.Fatalf("RecordRevision %d: %v", i, err)
		}
	}
	list, err := ListRevisions(ctx, ph, 10)
	if err != nil || len(list) != 6 {
		t.Fatalf("ListRevisions got %d err %v", len(list), err)
	}
	if list[0].Components != 0 || list[5].ID != first.ID {
		t.Fatalf("revisions not newest first: %+v", list)
	}

	got, err := GetRevision(ctx, ph, first.ID[:8])
	if err != nil {
		t.Fatalf("GetRevision by prefix: %v", err)
	}
	if got.Label != "Open" || len(got.Doc.Components) != 5 {
		t.Fatalf("unexpected revision: %+v", got)
	}
	if _, err := GetRevision(ctx, ph, "does-not-exist"); !errors.Is(err, ErrRevisionNotFound) {
		t.Fatalf("expected ErrRevisionNotFound, got %v", err)
	}

	n, err := PruneRevisions(ctx, ph, 3)
	if err != nil {
		t.Fatalf("PruneRevisions: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 deletions, got %d", n)
	}
	list, err = ListRevisions(ctx, ph, 10)
	if err != nil || len(list) != 3 {
		t.Fatalf("ListRevisions after prune got %d err %v", len(list), err)
	}
	if _, err := GetRevision(ctx, ph, first.ID); !errors.Is(err, ErrRevisionNotFound) {
		t.Fatalf("pruned revision still found: %v", err)
	}
}
