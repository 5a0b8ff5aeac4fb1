/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/storage"
)

func landing(root string) *storage.PageHandle {
	return &storage.PageHandle{
		Root:         root,
		ManifestPath: filepath.Join(root, storage.ManifestFileName),
		Page:         domain.Document{ID: "p1", Name: "Landing", Components: []domain.Component{domain.NewComponent("h1", domain.TypeHeader)}},
	}
}

func TestReportString(t *testing.T) {
	rep := Report{
		Time:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Panic:    "kaboom",
		Stack:    []byte("goroutine 1"),
		Page:     landing("/pages/landing"),
		Snapshot: "/pages/landing/backups/page.json.crash-1",
	}
	s := rep.String()
	for _, want := range []string{
		"Pagebuilder Crash Report",
		"Timestamp: 2025-03-01T12:00:00Z",
		"PageRoot: /pages/landing",
		"Page: Landing (p1), 1 components",
		"Snapshot: /pages/landing/backups/page.json.crash-1",
		"Panic: kaboom",
		"Stack:\ngoroutine 1",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("missing %q in:\n%s", want, s)
		}
	}
	if strings.Contains(s, "OpenedFromBackup") {
		t.Fatalf("backup flag printed for a normal open")
	}
}

func TestWriteReportWithoutPageUsesTemp(t *testing.T) {
	path, err := writeReport(Report{Time: time.Now(), Panic: "boom"})
	if err != nil {
		t.Fatalf("writeReport: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	if filepath.Dir(path) != filepath.Clean(os.TempDir()) {
		t.Fatalf("report at %s, want temp dir", path)
	}
}

func TestRecoverWritesReportSnapshotAndExits(t *testing.T) {
	var errOut bytes.Buffer
	code := -1
	oldExit, oldStderr := exitFn, stderr
	exitFn, stderr = func(c int) { code = c }, &errOut
	t.Cleanup(func() { exitFn, stderr = oldExit, oldStderr })

	root := t.TempDir()
	ph := landing(root)
	func() {
		defer RecoverWith(func() *storage.PageHandle { return ph })
		panic("boom")
	}()

	if code != ExitCode {
		t.Fatalf("exit code = %d", code)
	}
	var report, snapshot string
	bdir := filepath.Join(root, storage.BackupsDirName)
	entries, _ := os.ReadDir(bdir)
	for _, e := range entries {
		switch {
		case strings.HasPrefix(e.Name(), "crash-") && strings.HasSuffix(e.Name(), ".log"):
			report = filepath.Join(bdir, e.Name())
		case strings.Contains(e.Name(), ".crash-"):
			snapshot = e.Name()
		}
	}
	if report == "" || snapshot == "" {
		t.Fatalf("backups dir = %v", entries)
	}
	b, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !bytes.Contains(b, []byte("Panic: boom")) || !bytes.Contains(b, []byte("Snapshot: ")) {
		t.Fatalf("report:\n%s", b)
	}
	if !strings.Contains(errOut.String(), "pagebuilder crashed: boom") || !strings.Contains(errOut.String(), report) {
		t.Fatalf("stderr = %q", errOut.String())
	}
}

func TestRecoverWithoutPanicIsSilent(t *testing.T) {
	called := false
	oldExit := exitFn
	exitFn = func(int) { called = true }
	t.Cleanup(func() { exitFn = oldExit })
	func() {
		defer Recover(nil)
	}()
	if called {
		t.Fatalf("exit called without a panic")
	}
}
