/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pagebuilder/internal/backend"
	"pagebuilder/internal/config"
	"pagebuilder/internal/storage"
)

type memTokens map[string]string

func (m memTokens) Get(service, key string) (string, error) {
	v, ok := m[service+"/"+key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}
func (m memTokens) Set(service, key, value string) error { m[service+"/"+key] = value; return nil }
func (m memTokens) Delete(service, key string) error     { delete(m, service+"/"+key); return nil }

// isolate points the config file at a temp dir and keeps tokens in memory.
func isolate(t *testing.T) memTokens {
	t.Helper()
	t.Setenv(config.EnvConfigPath, filepath.Join(t.TempDir(), "config.yaml"))
	t.Setenv("PB_TELEMETRY_OPT_IN", "")
	mem := memTokens{}
	prev := config.SetTokenStore(mem)
	t.Cleanup(func() { config.SetTokenStore(prev) })
	return mem
}

// run executes the root command with args and returns what it printed.
// Flag variables survive between executions, so they are reset first.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	jsonOutput = false
	applyDryRun = false
	revisionsLimit = 20
	renderBreakpoint, renderOut = "", ""
	exportBreakpoints, exportFormats, exportOutDir = nil, nil, ""
	exportThumb, exportLabels = 0, true
	publishIfVersion = 0
	loginSubject = "cli"
	current = nil

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	stdout = os.Stdout
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out)
	}
	return out
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "ops.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return p
}

const heroScript = `name: hero
ops:
  - {op: add, type: header, as: title}
  - {op: add, type: container, as: row}
  - {op: add, type: text, parent: row, column: 1, as: body}
  - {op: remove, id: ghost}
`

func newPage(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "landing")
	mustRun(t, "init", dir, "Landing")
	return dir
}

func TestInitApplyShowRestore(t *testing.T) {
	isolate(t)
	dir := newPage(t)

	out := mustRun(t, "apply", dir, writeScript(t, heroScript), "--json")
	var applied struct {
		Applied  int    `json:"applied"`
		NoOps    int    `json:"noops"`
		Revision string `json:"revision"`
	}
	if err := json.Unmarshal([]byte(out), &applied); err != nil {
		t.Fatalf("apply output: %v\n%s", err, out)
	}
	if applied.Applied != 3 || applied.NoOps != 1 || applied.Revision == "" {
		t.Fatalf("apply result = %+v", applied)
	}

	var page pageView
	if err := json.Unmarshal([]byte(mustRun(t, "show", dir, "--json")), &page); err != nil {
		t.Fatalf("show output: %v", err)
	}
	if page.Name != "Landing" || len(page.Components) != 3 {
		t.Fatalf("page = %+v", page)
	}
	body := page.Components[2]
	if body.Type != "text" || body.Parent != page.Components[1].ID || body.Column != 1 {
		t.Fatalf("body = %+v", body)
	}

	tree := mustRun(t, "show", dir)
	if !strings.Contains(tree, "[col 2] text") {
		t.Fatalf("tree output:\n%s", tree)
	}

	var revs []struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	}
	if err := json.Unmarshal([]byte(mustRun(t, "revisions", dir, "--json")), &revs); err != nil {
		t.Fatalf("revisions output: %v", err)
	}
	if len(revs) != 2 || revs[0].Label != "Apply hero" || revs[1].Label != "Init" {
		t.Fatalf("revisions = %+v", revs)
	}

	mustRun(t, "restore", dir, revs[1].ID[:8])
	if err := json.Unmarshal([]byte(mustRun(t, "show", dir, "--json")), &page); err != nil {
		t.Fatalf("show output: %v", err)
	}
	if len(page.Components) != 0 {
		t.Fatalf("restore kept %d components", len(page.Components))
	}
	if err := json.Unmarshal([]byte(mustRun(t, "revisions", dir, "--json")), &revs); err != nil {
		t.Fatalf("revisions output: %v", err)
	}
	if len(revs) != 3 || !strings.HasPrefix(revs[0].Label, "Restore ") {
		t.Fatalf("revisions after restore = %+v", revs)
	}
}

func TestApplyDryRunLeavesPage(t *testing.T) {
	isolate(t)
	dir := newPage(t)
	out := mustRun(t, "apply", dir, writeScript(t, heroScript), "--dry-run")
	if !strings.Contains(out, "Dry run: 3 ops would apply") {
		t.Fatalf("dry run output:\n%s", out)
	}
	if !strings.Contains(out, "skipped") {
		t.Fatalf("skipped op not reported:\n%s", out)
	}
	var page pageView
	if err := json.Unmarshal([]byte(mustRun(t, "show", dir, "--json")), &page); err != nil {
		t.Fatalf("show output: %v", err)
	}
	if len(page.Components) != 0 {
		t.Fatalf("dry run saved %d components", len(page.Components))
	}
}

func TestApplyRejectsBadScript(t *testing.T) {
	isolate(t)
	dir := newPage(t)
	_, err := run(t, "apply", dir, writeScript(t, "- {op: explode}\n- {op: add}\n"))
	if err == nil || !strings.Contains(err.Error(), "line 1") || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected both script errors, got %v", err)
	}
}

func TestRenderFlattenedBreakpoint(t *testing.T) {
	isolate(t)
	dir := newPage(t)
	mustRun(t, "apply", dir, writeScript(t, heroScript))

	out := mustRun(t, "render", dir, "-b", "mobile")
	if !strings.Contains(out, `data-type="header"`) || strings.Contains(out, "@media") {
		t.Fatalf("mobile render:\n%s", out)
	}
	if out := mustRun(t, "render", dir); !strings.Contains(out, "@media") {
		t.Fatalf("responsive render lacks media queries")
	}

	file := filepath.Join(t.TempDir(), "page.html")
	mustRun(t, "render", dir, "-o", file)
	if b, err := os.ReadFile(file); err != nil || !bytes.Contains(b, []byte("Landing")) {
		t.Fatalf("rendered file: %v", err)
	}

	if _, err := run(t, "render", dir, "-b", "watch"); err == nil || !strings.Contains(err.Error(), "unknown breakpoint") {
		t.Fatalf("expected unknown breakpoint error, got %v", err)
	}
}

func TestExportCommands(t *testing.T) {
	isolate(t)
	dir := newPage(t)
	mustRun(t, "apply", dir, writeScript(t, heroScript))
	outDir := t.TempDir()

	png := filepath.Join(outDir, "landing.png")
	mustRun(t, "export", "png", dir, png, "-b", "tablet", "--thumb", "200")
	if fi, err := os.Stat(png); err != nil || fi.Size() == 0 {
		t.Fatalf("png not written: %v", err)
	}

	pdf := filepath.Join(outDir, "landing.pdf")
	mustRun(t, "export", "pdf", dir, pdf, "-b", "desktop,mobile")
	if b, err := os.ReadFile(pdf); err != nil || !bytes.HasPrefix(b, []byte("%PDF")) {
		t.Fatalf("pdf not written: %v", err)
	}

	var paths []string
	out := mustRun(t, "export", "preset", dir, "responsive", "--format", "png", "--out-dir", filepath.Join(outDir, "resp"), "--json")
	if err := json.Unmarshal([]byte(out), &paths); err != nil {
		t.Fatalf("preset output: %v\n%s", err, out)
	}
	if len(paths) != 3 {
		t.Fatalf("responsive preset wrote %v", paths)
	}
	if _, err := run(t, "export", "preset", dir, "poster"); err == nil {
		t.Fatalf("unknown preset accepted")
	}
}

func TestConfigShowListsEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(config.EnvCanvasWidth, "900")
	out := mustRun(t, "config", "show")
	if !strings.Contains(out, "canvas_width: 900") {
		t.Fatalf("override not applied:\n%s", out)
	}
	if !strings.Contains(out, "editor.canvas_width <- "+config.EnvCanvasWidth) {
		t.Fatalf("override not listed:\n%s", out)
	}
}

func TestLoginPublishAndConflict(t *testing.T) {
	tokens := isolate(t)
	ts := httptest.NewServer(backend.NewServer(backend.NewMemPages(), "s3cret", nil).Handler())
	t.Cleanup(ts.Close)
	t.Setenv(config.EnvBackendURL, ts.URL)

	dir := newPage(t)
	mustRun(t, "apply", dir, writeScript(t, heroScript))

	if _, err := run(t, "pages"); err == nil || !strings.Contains(err.Error(), "not logged in") {
		t.Fatalf("pages without token: %v", err)
	}
	mustRun(t, "login", "--subject", "ci")
	if len(tokens) != 1 {
		t.Fatalf("token not stored: %v", tokens)
	}

	if out := mustRun(t, "publish", dir); !strings.Contains(out, "version 1") {
		t.Fatalf("publish output:\n%s", out)
	}
	mustRun(t, "publish", dir, "--if-version", "1")
	_, err := run(t, "publish", dir, "--if-version", "1")
	if err == nil || !strings.Contains(err.Error(), "newer version than 1") {
		t.Fatalf("expected conflict, got %v", err)
	}

	var list []backend.PageSummary
	if err := json.Unmarshal([]byte(mustRun(t, "pages", "--json")), &list); err != nil {
		t.Fatalf("pages output: %v", err)
	}
	if len(list) != 1 || list[0].Version != 2 || list[0].UpdatedBy != "ci" || list[0].Components != 3 {
		t.Fatalf("pages = %+v", list)
	}

	mustRun(t, "config", "logout")
	if len(tokens) != 0 {
		t.Fatalf("logout kept token: %v", tokens)
	}
}

func TestBundleRoundTrip(t *testing.T) {
	isolate(t)
	dir := newPage(t)
	mustRun(t, "apply", dir, writeScript(t, heroScript))
	zipPath := filepath.Join(t.TempDir(), "landing.zip")
	if out := mustRun(t, "bundle", "export", dir, zipPath); !strings.Contains(out, "3 entries") {
		t.Fatalf("bundle export output:\n%s", out)
	}

	copyDir := filepath.Join(t.TempDir(), "copy")
	mustRun(t, "bundle", "install", zipPath, copyDir)
	var page pageView
	if err := json.Unmarshal([]byte(mustRun(t, "show", copyDir, "--json")), &page); err != nil {
		t.Fatalf("show output: %v", err)
	}
	if page.Name != "Landing" || len(page.Components) != 3 {
		t.Fatalf("installed page = %+v", page)
	}
	if _, err := run(t, "bundle", "install", zipPath, copyDir); err == nil {
		t.Fatalf("install over an existing page succeeded")
	}
}

func TestRevisionsRebuildsDamagedIndex(t *testing.T) {
	isolate(t)
	dir := newPage(t)
	if err := os.WriteFile(storage.IndexPath(dir), []byte("THIS IS NOT SQLITE"), 0o644); err != nil {
		t.Fatalf("corrupt index: %v", err)
	}
	out := mustRun(t, "revisions", dir)
	if !strings.Contains(out, "rebuilt") || !strings.Contains(out, "Rebuild") {
		t.Fatalf("revisions output:\n%s", out)
	}
}

func TestApplyUndoesSameLabelAddsOneAtATime(t *testing.T) {
	isolate(t)
	dir := newPage(t)
	script := writeScript(t, `ops:
  - {op: add, type: text}
  - {op: add, type: text}
  - {op: undo}
`)
	mustRun(t, "apply", dir, script)
	var page pageView
	if err := json.Unmarshal([]byte(mustRun(t, "show", dir, "--json")), &page); err != nil {
		t.Fatalf("show output: %v", err)
	}
	if len(page.Components) != 1 {
		t.Fatalf("one undo should drop one add, %d components left", len(page.Components))
	}
}
