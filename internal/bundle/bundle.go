/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package bundle packs a page directory into a single zip for sharing and
// installs such a zip as a new page directory.
package bundle

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/multierr"

	applog "pagebuilder/internal/log"
	"pagebuilder/internal/render"
	"pagebuilder/internal/storage"
)

const (
	// AssetsDirName holds images and other files the page references.
	AssetsDirName = "assets"
	// ManifestName is a human-readable summary at the zip root.
	ManifestName = "bundle.manifest.txt"
	// PreviewName is the responsive HTML rendering stored next to page.json.
	PreviewName = "index.html"
)

// ErrPageExists is returned by Install when the target already holds a page.
var ErrPageExists = errors.New("target already contains a page")

// Export writes page.json, a rendered index.html and everything under the
// page's assets directory into dest. It returns the number of entries written,
// the manifest included.
func Export(ph *storage.PageHandle, dest string) (n int, err error) {
	if ph == nil {
		return 0, errors.New("nil PageHandle")
	}
	if strings.TrimSpace(dest) == "" {
		return 0, errors.New("destination path is required")
	}
	l := applog.WithOperation(applog.WithComponent("bundle"), "export").With(slog.String("root", ph.Root))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("ensure bundle dir: %w", err)
	}
	_ = os.Remove(dest)
	zf, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("create bundle: %w", err)
	}
	zw := zip.NewWriter(zf)
	defer func() { err = multierr.Combine(err, zw.Close(), zf.Close()) }()

	add := func(name string, r io.Reader) error {
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		if _, err := io.Copy(w, r); err != nil {
			return fmt.Errorf("add %s: %w", name, err)
		}
		n++
		return nil
	}

	manifest := fmt.Sprintf("Pagebuilder Bundle\nCreated: %s\nPage: %s (%s)\nComponents: %d\n",
		time.Now().UTC().Format(time.RFC3339), ph.Page.Name, ph.Page.ID, len(ph.Page.Components))
	if err := add(ManifestName, strings.NewReader(manifest)); err != nil {
		return n, err
	}
	data, err := storage.Encode(ph.Page)
	if err != nil {
		return n, err
	}
	if err := add(storage.ManifestFileName, strings.NewReader(string(data))); err != nil {
		return n, err
	}
	html, err := render.String(ph.Page, render.Options{Title: ph.Page.Name})
	if err != nil {
		return n, fmt.Errorf("render preview: %w", err)
	}
	if err := add(PreviewName, strings.NewReader(html)); err != nil {
		return n, err
	}

	assets := filepath.Join(ph.Root, AssetsDirName)
	err = filepath.WalkDir(assets, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == assets {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(ph.Root, p)
		if err != nil {
			return err
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		return add(filepath.ToSlash(rel), f)
	})
	if err != nil {
		l.Error("bundle build failed", slog.Any("err", err))
		return n, fmt.Errorf("add assets: %w", err)
	}
	l.Info("bundle exported", slog.Int("entries", n), slog.String("zip", dest))
	return n, nil
}

// Install extracts a bundle into root and opens the result. Only page.json
// and files under assets/ are extracted; asset files that already exist are
// kept. Entries that would land outside root are rejected.
func Install(root, zipPath string) (*storage.PageHandle, int, error) {
	if strings.TrimSpace(root) == "" {
		return nil, 0, errors.New("root path is required")
	}
	l := applog.WithOperation(applog.WithComponent("bundle"), "install").With(slog.String("root", root))
	if _, err := os.Stat(filepath.Join(root, storage.ManifestFileName)); err == nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrPageExists, root)
	}
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, 0, fmt.Errorf("open bundle: %w", err)
	}
	defer r.Close()

	var sawPage bool
	installed := 0
	for _, f := range r.File {
		name := path.Clean(f.Name)
		if !filepath.IsLocal(filepath.FromSlash(name)) {
			return nil, installed, fmt.Errorf("bundle entry %q escapes the page directory", f.Name)
		}
		switch {
		case name == storage.ManifestFileName:
			sawPage = true
		case strings.HasPrefix(name, AssetsDirName+"/"):
		default:
			continue
		}
		if f.FileInfo().IsDir() {
			continue
		}
		target := filepath.Join(root, filepath.FromSlash(name))
		if _, err := os.Stat(target); err == nil {
			l.Warn("skip existing file", slog.String("path", target))
			continue
		}
		if err := extract(f, target); err != nil {
			return nil, installed, err
		}
		installed++
	}
	if !sawPage {
		return nil, installed, fmt.Errorf("bundle %s has no %s", zipPath, storage.ManifestFileName)
	}
	ph, err := storage.Open(root)
	if err != nil {
		return nil, installed, err
	}
	l.Info("bundle installed", slog.Int("files", installed), slog.String("page", ph.Page.ID))
	return ph, installed, nil
}

func extract(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return out.Close()
}
