/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"pagebuilder/internal/domain"
	applog "pagebuilder/internal/log"
)

const (
	ManifestFileName = "page.json"
	BackupsDirName   = "backups"
	ExportsDirName   = "exports"
)

var standardSubDirs = []string{
	ExportsDirName,
	BackupsDirName,
	IndexDirName,
}

// PageHandle keeps track of one page directory loaded from or saved to disk.
// Root is the directory containing page.json and its subfolders.
// Repaired counts the invariant fixes applied when the manifest was loaded.
type PageHandle struct {
	Root         string
	ManifestPath string
	Page         domain.Document
	Repaired     int
	FromBackup   bool
}

// InitPage creates a new page directory at root (creating it if it doesn't exist),
// scaffolds the standard subfolders, and writes the given document transactionally.
// A document without id gets a fresh one.
func InitPage(root string, doc domain.Document) (*PageHandle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := scaffold(root); err != nil {
		return nil, err
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.Components == nil {
		doc.Components = []domain.Component{}
	}
	ph := &PageHandle{
		Root:         root,
		ManifestPath: filepath.Join(root, ManifestFileName),
		Page:         doc,
	}
	if err := Save(ph); err != nil {
		return nil, err
	}
	return ph, nil
}

func scaffold(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create page root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	return nil
}

// Open loads an existing page from root. A manifest that cannot be read,
// parsed or validated is replaced by the latest backup. The loaded document
// is passed through domain.Repair.
func Open(root string) (*PageHandle, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "open").With(slog.String("root", root))
	mpath := filepath.Join(root, ManifestFileName)
	ph := &PageHandle{Root: root, ManifestPath: mpath}

	doc, err := readManifest(mpath)
	if err != nil {
		l.Warn("manifest unusable, trying backup", slog.Any("err", err))
		bdoc, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("open manifest: %w; backup attempt: %v", err, berr)
		}
		doc = *bdoc
		ph.FromBackup = true
	}
	ph.Page, ph.Repaired = domain.Repair(doc)
	if ph.Repaired > 0 {
		l.Warn("page repaired on load", slog.Int("fixes", ph.Repaired))
	}
	return ph, nil
}

func readManifest(path string) (domain.Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, err
	}
	return decodeManifest(b)
}

func decodeManifest(b []byte) (domain.Document, error) {
	var d domain.Document
	if err := json.Unmarshal(b, &d); err != nil {
		return domain.Document{}, fmt.Errorf("parse manifest: %w", err)
	}
	if err := ValidateManifest(b); err != nil {
		return domain.Document{}, err
	}
	return d, nil
}

// Encode returns the pretty-printed manifest bytes for doc.
func Encode(doc domain.Document) ([]byte, error) {
	if doc.Components == nil {
		doc.Components = []domain.Component{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses, validates and repairs manifest bytes.
func Decode(b []byte) (domain.Document, error) {
	d, err := decodeManifest(b)
	if err != nil {
		return domain.Document{}, err
	}
	d, _ = domain.Repair(d)
	return d, nil
}

// Save writes ph.Page to disk with transactional semantics
// and a timestamped backup of the previous manifest (if present).
func Save(ph *PageHandle) error {
	if ph == nil {
		return errors.New("nil PageHandle")
	}
	if ph.Root == "" || ph.ManifestPath == "" {
		return errors.New("invalid PageHandle: missing paths")
	}
	data, err := Encode(ph.Page)
	if err != nil {
		return err
	}

	bdir := filepath.Join(ph.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(ph.ManifestPath); statErr == nil {
		bpath := filepath.Join(bdir, backupName(time.Now()))
		if cerr := copyFile(ph.ManifestPath, bpath); cerr != nil {
			return fmt.Errorf("backup current manifest: %w", cerr)
		}
	}

	// temp file in the same directory, then rename over the target
	dir := filepath.Dir(ph.ManifestPath)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", ManifestFileName, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp manifest: %w", werr)
	}
	// Windows cannot rename over an existing file
	if _, err := os.Stat(ph.ManifestPath); err == nil {
		_ = os.Remove(ph.ManifestPath)
	}
	if rerr := os.Rename(temp, ph.ManifestPath); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace manifest: %w", rerr)
	}
	ph.FromBackup = false
	return nil
}

// backupName embeds a sortable timestamp; nanoseconds keep quick successive
// saves from overwriting each other.
func backupName(t time.Time) string {
	return fmt.Sprintf("%s.%s.bak", ManifestFileName, t.Format("20060102-150405.000000000"))
}

// SaveAs writes the manifest to a new root folder, scaffolding structure if needed, and updates the handle.
func SaveAs(ph *PageHandle, newRoot string) error {
	if ph == nil {
		return errors.New("nil PageHandle")
	}
	if newRoot == "" {
		return errors.New("new root is empty")
	}
	if err := scaffold(newRoot); err != nil {
		return err
	}
	ph.Root = newRoot
	ph.ManifestPath = filepath.Join(newRoot, ManifestFileName)
	return Save(ph)
}

// Backups lists manifest backups, oldest first.
func Backups(root string) ([]string, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ManifestFileName+".") && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out)
	return out, nil
}

func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// openFromLatestBackup walks backups newest first and returns the first one
// that decodes.
func openFromLatestBackup(root string) (*domain.Document, error) {
	candidates, err := Backups(root)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	var lastErr error
	for i := len(candidates) - 1; i >= 0; i-- {
		d, err := readManifest(candidates[i])
		if err == nil {
			return &d, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no usable backup: %w", lastErr)
}
