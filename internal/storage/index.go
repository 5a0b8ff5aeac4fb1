/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/multierr"

	"pagebuilder/internal/domain"
	applog "pagebuilder/internal/log"
	"pagebuilder/internal/version"

	_ "modernc.org/sqlite"
)

const (
	// IndexDirName holds derived per-page data; it can be deleted and rebuilt.
	IndexDirName  = ".pb"
	IndexFileName = "index.sqlite"
)

// migrations[i] moves the schema from version i to i+1. A fresh database
// starts at 0 and replays all of them.
var migrations = [][]string{
	{
		`CREATE TABLE revisions (
			seq      INTEGER PRIMARY KEY,
			id       TEXT    NOT NULL UNIQUE,
			ts       TEXT    NOT NULL,
			label    TEXT    NOT NULL,
			doc_blob BLOB    NOT NULL
		)`,
		`CREATE INDEX idx_revisions_ts ON revisions(ts)`,
	},
	{
		`ALTER TABLE revisions ADD COLUMN components INTEGER NOT NULL DEFAULT 0`,
		`CREATE INDEX idx_revisions_label ON revisions(label)`,
	},
}

var schemaVersion = len(migrations)

// IndexPath returns the page's index database file.
func IndexPath(pageRoot string) string {
	return filepath.Join(pageRoot, IndexDirName, IndexFileName)
}

// InitOrOpenIndex opens (creating if needed) the page's SQLite index in WAL
// mode and migrates it to the current schema. Callers close the *sql.DB.
func InitOrOpenIndex(pageRoot string) (*sql.DB, error) {
	if strings.TrimSpace(pageRoot) == "" {
		return nil, errors.New("page root is required")
	}
	l := applog.WithOperation(applog.WithComponent("storage"), "index_open").With(slog.String("root", pageRoot))
	if err := os.MkdirAll(filepath.Join(pageRoot, IndexDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create %s dir: %w", IndexDirName, err)
	}
	path := IndexPath(pageRoot)
	db, err := sql.Open("sqlite", "file:"+filepath.ToSlash(path)+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; WAL lets readers in other processes proceed
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL`); err != nil {
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, multierr.Append(fmt.Errorf("enable WAL: %w", err), db.Close())
	}
	from, err := migrate(ctx, db)
	if err != nil {
		l.Error("migrate index failed", slog.Any("err", err))
		return nil, multierr.Append(err, db.Close())
	}
	if from != schemaVersion {
		l.Info("index migrated", slog.Int("from", from), slog.Int("to", schemaVersion))
	}
	return db, nil
}

// migrate brings db to schemaVersion and returns the version it started at.
func migrate(ctx context.Context, db *sql.DB) (int, error) {
	const versionDDL = `CREATE TABLE IF NOT EXISTS version (
		id         INTEGER PRIMARY KEY CHECK(id=1),
		schema     INTEGER NOT NULL,
		app        TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`
	if _, err := db.ExecContext(ctx, versionDDL); err != nil {
		return 0, fmt.Errorf("create version table: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	var cur int
	switch err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES (1, 0, ?, ?, ?)`, version.String(), now, now); err != nil {
			return 0, fmt.Errorf("stamp version: %w", err)
		}
	case err != nil:
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		return cur, fmt.Errorf("index schema %d is newer than this build (%d)", cur, schemaVersion)
	}
	from := cur
	for ; cur < schemaVersion; cur++ {
		if err := applyMigration(ctx, db, cur+1, migrations[cur]); err != nil {
			return from, err
		}
	}
	if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, version.String(), now); err != nil {
		return from, fmt.Errorf("touch version: %w", err)
	}
	return from, nil
}

func applyMigration(ctx context.Context, db *sql.DB, to int, stmts []string) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %d: %w", to, err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, tx.Rollback())
		}
	}()
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migration %d: %w", to, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=? WHERE id=1`, to); err != nil {
		return fmt.Errorf("migration %d: %w", to, err)
	}
	return tx.Commit()
}

// DetectAndRebuildIndex checks the index and, when it cannot be opened or
// fails an integrity check, moves it aside and starts a new one holding doc
// as a single "Rebuild" revision. It reports whether a rebuild happened.
func DetectAndRebuildIndex(ctx context.Context, pageRoot string, doc domain.Document) (bool, error) {
	if healthyIndex(ctx, pageRoot) {
		return false, nil
	}
	l := applog.WithOperation(applog.WithComponent("storage"), "index_rebuild").With(slog.String("root", pageRoot))
	path := IndexPath(pageRoot)
	if moved, err := quarantine(path); err != nil {
		l.Warn("could not keep the damaged index", slog.Any("err", err))
	} else if moved != "" {
		l.Warn("damaged index moved aside", slog.String("to", moved))
	}
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		_ = os.Remove(p)
	}
	ph := &PageHandle{Root: pageRoot, ManifestPath: filepath.Join(pageRoot, ManifestFileName), Page: doc}
	if _, err := RecordRevision(ctx, ph, "Rebuild"); err != nil {
		return false, fmt.Errorf("rebuild index: %w", err)
	}
	return true, nil
}

func healthyIndex(ctx context.Context, pageRoot string) bool {
	db, err := InitOrOpenIndex(pageRoot)
	if err != nil {
		return false
	}
	defer db.Close()
	var res string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check`).Scan(&res); err != nil || !strings.EqualFold(res, "ok") {
		return false
	}
	var n int
	return db.QueryRowContext(ctx, `SELECT count(*) FROM revisions`).Scan(&n) == nil
}

// quarantine copies a damaged index into .pb/backups and returns the copy's
// path, or "" when there was nothing to copy.
func quarantine(indexPath string) (string, error) {
	data, err := os.ReadFile(indexPath)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	dir := filepath.Join(filepath.Dir(indexPath), "backups")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(dir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), time.Now().Format("20060102-150405")))
	return dst, os.WriteFile(dst, data, 0o644)
}
