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
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"pagebuilder/internal/domain"
)

// language=SQL
// dialect=SQLite
const insertRevisionSQL = `INSERT INTO revisions(id, ts, label, doc_blob, components) VALUES (?, ?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const listRevisionsSQL = `SELECT id, ts, label, components, doc_blob FROM revisions ORDER BY seq DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const findRevisionSQL = `SELECT id, ts, label, components, doc_blob FROM revisions WHERE id = ? OR id LIKE ? || '%' ORDER BY seq DESC LIMIT 2`

// language=SQL
// dialect=SQLite
const pruneRevisionsSQL = `DELETE FROM revisions WHERE seq NOT IN (
	SELECT seq FROM revisions ORDER BY seq DESC LIMIT ?
)`

// ErrRevisionNotFound is returned by GetRevision for an unknown or ambiguous id.
var ErrRevisionNotFound = errors.New("revision not found")

// Revision is one labelled copy of the page stored in the index.
type Revision struct {
	ID         string
	TS         time.Time
	Label      string
	Components int
	Doc        domain.Document
}

// RecordRevision stores the handle's current page under label.
func RecordRevision(ctx context.Context, ph *PageHandle, label string) (rev Revision, err error) {
	if ph == nil {
		return Revision{}, errors.New("nil PageHandle")
	}
	blob, err := Encode(ph.Page)
	if err != nil {
		return Revision{}, err
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return Revision{}, err
	}
	defer func() { err = multierr.Append(err, db.Close()) }()

	rev = Revision{
		ID:         uuid.NewString(),
		TS:         time.Now().UTC(),
		Label:      label,
		Components: len(ph.Page.Components),
		Doc:        ph.Page.Clone(),
	}
	if _, err := db.ExecContext(ctx, insertRevisionSQL, rev.ID, rev.TS.Format(time.RFC3339Nano), label, blob, rev.Components); err != nil {
		return Revision{}, fmt.Errorf("insert revision: %w", err)
	}
	return rev, nil
}

// ListRevisions returns up to limit revisions, newest first.
func ListRevisions(ctx context.Context, ph *PageHandle, limit int) (out []Revision, err error) {
	if ph == nil {
		return nil, errors.New("nil PageHandle")
	}
	if limit <= 0 {
		limit = 50
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return nil, err
	}
	defer func() { err = multierr.Append(err, db.Close()) }()
	rows, err := db.QueryContext(ctx, listRevisionsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer func() { err = multierr.Append(err, rows.Close()) }()
	for rows.Next() {
		r, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRevision loads one revision by full id or unique id prefix.
func GetRevision(ctx context.Context, ph *PageHandle, id string) (rev Revision, err error) {
	if ph == nil {
		return Revision{}, errors.New("nil PageHandle")
	}
	if id == "" {
		return Revision{}, ErrRevisionNotFound
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return Revision{}, err
	}
	defer func() { err = multierr.Append(err, db.Close()) }()
	rows, err := db.QueryContext(ctx, findRevisionSQL, id, id)
	if err != nil {
		return Revision{}, fmt.Errorf("find revision: %w", err)
	}
	defer func() { err = multierr.Append(err, rows.Close()) }()
	var found []Revision
	for rows.Next() {
		r, err := scanRevision(rows)
		if err != nil {
			return Revision{}, err
		}
		if r.ID == id {
			return r, nil
		}
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		return Revision{}, err
	}
	if len(found) != 1 {
		return Revision{}, fmt.Errorf("%w: %q", ErrRevisionNotFound, id)
	}
	return found[0], nil
}

// PruneRevisions keeps the newest keepLast revisions and deletes the rest.
func PruneRevisions(ctx context.Context, ph *PageHandle, keepLast int) (n int64, err error) {
	if ph == nil {
		return 0, errors.New("nil PageHandle")
	}
	if keepLast <= 0 {
		return 0, nil
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return 0, err
	}
	defer func() { err = multierr.Append(err, db.Close()) }()
	res, err := db.ExecContext(ctx, pruneRevisionsSQL, keepLast)
	if err != nil {
		return 0, fmt.Errorf("prune revisions: %w", err)
	}
	return res.RowsAffected()
}

func scanRevision(rows *sql.Rows) (Revision, error) {
	var (
		r    Revision
		ts   string
		blob []byte
	)
	if err := rows.Scan(&r.ID, &ts, &r.Label, &r.Components, &blob); err != nil {
		return Revision{}, err
	}
	r.TS, _ = time.Parse(time.RFC3339Nano, ts)
	doc, err := Decode(blob)
	if err != nil {
		return Revision{}, fmt.Errorf("decode revision %s: %w", r.ID, err)
	}
	r.Doc = doc
	return r, nil
}
