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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"pagebuilder/internal/domain"
)

var (
	// ErrNotFound is returned for an unknown page id.
	ErrNotFound = errors.New("page not found")
	// ErrConflict is returned when a write names a version that is no longer current.
	ErrConflict = errors.New("version conflict")
)

// PageSummary is the listing projection of a published page.
type PageSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Components int       `json:"components"`
	Version    int64     `json:"version"`
	UpdatedBy  string    `json:"updated_by"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PageRecord is a published page with its document.
type PageRecord struct {
	PageSummary
	Document domain.Document `json:"document"`
}

// Pages is the storage the HTTP API serves from.
type Pages interface {
	List(ctx context.Context) ([]PageSummary, error)
	Get(ctx context.Context, id string) (PageRecord, error)
	// Put stores doc as the next version. ifVersion > 0 requires the current
	// version to match, ifVersion == 0 writes unconditionally.
	Put(ctx context.Context, doc domain.Document, ifVersion int64, by string) (PageRecord, error)
	Versions(ctx context.Context, id string) ([]PageSummary, error)
}

// PGPages implements Pages on Postgres.
type PGPages struct{ DB *sql.DB }

// NewPGPages wraps an open database.
func NewPGPages(db *sql.DB) *PGPages { return &PGPages{DB: db} }

// List returns pages, most recently updated first.
func (p *PGPages) List(ctx context.Context) (list []PageSummary, err error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT id, name, components, version, updated_by, updated_at FROM pages ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer func() { err = multierr.Append(err, rows.Close()) }()
	list = []PageSummary{}
	for rows.Next() {
		var s PageSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Components, &s.Version, &s.UpdatedBy, &s.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// Get loads the latest version of a page.
func (p *PGPages) Get(ctx context.Context, id string) (PageRecord, error) {
	var (
		rec PageRecord
		raw []byte
	)
	row := p.DB.QueryRowContext(ctx, `SELECT id, name, components, version, updated_by, updated_at, document FROM pages WHERE id = $1`, id)
	switch err := row.Scan(&rec.ID, &rec.Name, &rec.Components, &rec.Version, &rec.UpdatedBy, &rec.UpdatedAt, &raw); {
	case errors.Is(err, sql.ErrNoRows):
		return PageRecord{}, ErrNotFound
	case err != nil:
		return PageRecord{}, fmt.Errorf("get page: %w", err)
	}
	if err := json.Unmarshal(raw, &rec.Document); err != nil {
		return PageRecord{}, fmt.Errorf("decode page %s: %w", id, err)
	}
	return rec, nil
}

// Put writes a new version inside one transaction.
func (p *PGPages) Put(ctx context.Context, doc domain.Document, ifVersion int64, by string) (rec PageRecord, err error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return PageRecord{}, fmt.Errorf("encode page: %w", err)
	}
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return PageRecord{}, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, tx.Rollback())
		}
	}()

	var cur int64
	err = tx.QueryRowContext(ctx, `SELECT version FROM pages WHERE id = $1 FOR UPDATE`, doc.ID).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		cur = 0
	case err != nil:
		return PageRecord{}, fmt.Errorf("lock page: %w", err)
	}
	if ifVersion > 0 && ifVersion != cur {
		return PageRecord{}, fmt.Errorf("%w: have %d, want %d", ErrConflict, cur, ifVersion)
	}
	next := cur + 1
	var updated time.Time
	err = tx.QueryRowContext(ctx, `INSERT INTO pages (id, name, document, components, version, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, document = EXCLUDED.document,
			components = EXCLUDED.components, version = EXCLUDED.version,
			updated_by = EXCLUDED.updated_by, updated_at = now()
		RETURNING updated_at`, doc.ID, doc.Name, string(raw), len(doc.Components), next, by).Scan(&updated)
	if err != nil {
		return PageRecord{}, fmt.Errorf("upsert page: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO page_versions (page_id, version, document, published_by) VALUES ($1, $2, $3, $4)`, doc.ID, next, string(raw), by); err != nil {
		return PageRecord{}, fmt.Errorf("insert version: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return PageRecord{}, fmt.Errorf("commit: %w", err)
	}
	return PageRecord{
		PageSummary: PageSummary{ID: doc.ID, Name: doc.Name, Components: len(doc.Components), Version: next, UpdatedBy: by, UpdatedAt: updated},
		Document:    doc,
	}, nil
}

// Versions lists the published versions of a page, newest first.
func (p *PGPages) Versions(ctx context.Context, id string) (list []PageSummary, err error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT v.page_id, p.name, jsonb_array_length(COALESCE(v.document->'components', '[]'::jsonb)), v.version, v.published_by, v.created_at
		FROM page_versions v JOIN pages p ON p.id = v.page_id
		WHERE v.page_id = $1 ORDER BY v.version DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer func() { err = multierr.Append(err, rows.Close()) }()
	for rows.Next() {
		var s PageSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Components, &s.Version, &s.UpdatedBy, &s.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list, nil
}
