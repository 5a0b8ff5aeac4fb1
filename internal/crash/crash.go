/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package crash turns panics into a report file, a crash-safe page snapshot
// and a non-zero exit.
package crash

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	applog "pagebuilder/internal/log"
	"pagebuilder/internal/storage"
	"pagebuilder/internal/telemetry"
	"pagebuilder/internal/version"
)

// ExitCode is the status the process exits with after a recovered panic.
const ExitCode = 2

// swapped by tests
var (
	exitFn           = os.Exit
	stderr io.Writer = os.Stderr
	now              = time.Now
)

// Recover captures a panic, logs it with a stacktrace, writes a report file
// and snapshots the open page (if any). Use as: defer crash.Recover(ph)
func Recover(ph *storage.PageHandle) {
	if r := recover(); r != nil {
		handle(r, ph)
	}
}

// RecoverWith is Recover for callers whose page handle is only known once
// the panic happens, such as CLI commands that open the page late.
func RecoverWith(current func() *storage.PageHandle) {
	if r := recover(); r != nil {
		var ph *storage.PageHandle
		if current != nil {
			ph = current()
		}
		handle(r, ph)
	}
}

// Report is what a crash report file contains.
type Report struct {
	Time     time.Time
	Panic    any
	Stack    []byte
	Page     *storage.PageHandle
	Snapshot string // autosave path, when one was written
}

// String renders the report as plain text.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pagebuilder Crash Report\n")
	fmt.Fprintf(&b, "Timestamp: %s\n", r.Time.Format(time.RFC3339))
	fmt.Fprintf(&b, "Version: %s\n", version.String())
	fmt.Fprintf(&b, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if ph := r.Page; ph != nil {
		fmt.Fprintf(&b, "PageRoot: %s\n", ph.Root)
		fmt.Fprintf(&b, "Page: %s (%s), %d components\n", ph.Page.Name, ph.Page.ID, len(ph.Page.Components))
		if ph.FromBackup {
			b.WriteString("OpenedFromBackup: true\n")
		}
	}
	if r.Snapshot != "" {
		fmt.Fprintf(&b, "Snapshot: %s\n", r.Snapshot)
	}
	fmt.Fprintf(&b, "\nPanic: %v\n\nStack:\n%s\n", r.Panic, r.Stack)
	return b.String()
}

func handle(p any, ph *storage.PageHandle) {
	l := applog.WithComponent("crash")
	rep := Report{Time: now(), Panic: p, Stack: debug.Stack(), Page: ph}
	l.Error("panic recovered", slog.Any("panic", p), slog.String("stack", string(rep.Stack)))

	if ph != nil {
		if path, err := storage.AutosaveCrashSnapshot(ph); err != nil {
			l.Error("autosave crash snapshot failed", slog.Any("err", err))
		} else {
			rep.Snapshot = path
		}
	}
	path, err := writeReport(rep)
	if err != nil {
		l.Error("crash report write failed", slog.Any("err", err))
	}
	fmt.Fprintf(stderr, "pagebuilder crashed: %v\nA crash report was saved to: %s\n", p, path)
	if rep.Snapshot != "" {
		fmt.Fprintf(stderr, "Unsaved page state was written to: %s\n", rep.Snapshot)
	}
	exitFn(ExitCode)
}

// reportDir is the page's backups directory, or the temp dir without a page.
func reportDir(ph *storage.PageHandle) string {
	if ph == nil || ph.Root == "" {
		return os.TempDir()
	}
	dir := filepath.Join(ph.Root, storage.BackupsDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return os.TempDir()
	}
	return dir
}

func writeReport(rep Report) (string, error) {
	path := filepath.Join(reportDir(rep.Page), fmt.Sprintf("crash-%s.log", rep.Time.Format("20060102-150405.000")))
	text := rep.String()
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return path, err
	}
	// the report carries paths and names but no page content
	telemetry.UploadCrash([]byte(text))
	return path, nil
}
