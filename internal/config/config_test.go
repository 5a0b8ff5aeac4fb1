/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pagebuilder/internal/domain"
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

func isolate(t *testing.T) memTokens {
	t.Helper()
	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "config.yaml"))
	mem := memTokens{}
	prev := SetTokenStore(mem)
	t.Cleanup(func() { SetTokenStore(prev) })
	return mem
}

func TestEnvOverridesBackendURL(t *testing.T) {
	isolate(t)
	t.Setenv(EnvBackendURL, "https://example.test:8443")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.Backend.BaseURL, "https://example.test:8443"; got != want {
		t.Fatalf("Backend.BaseURL = %q, want %q", got, want)
	}
	if name, ok := EnvOverrideFor("backend.base_url"); !ok || name != EnvBackendURL {
		t.Fatalf("EnvOverrideFor = %q, %v", name, ok)
	}
	if _, ok := EnvOverrideFor("backend.dsn"); ok {
		t.Fatalf("dsn reported as overridden")
	}
}

func TestEnvOverridesEditor(t *testing.T) {
	isolate(t)
	t.Setenv(EnvHistoryMax, "25")
	t.Setenv(EnvCanvasWidth, "960")
	t.Setenv(EnvBreakpoint, "Mobile")
	t.Setenv(EnvKeepRevisions, "-3")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Editor.HistoryMax != 25 || cfg.Editor.CanvasWidth != 960 {
		t.Fatalf("editor overrides not applied: %#v", cfg.Editor)
	}
	if cfg.Editor.Breakpoint() != domain.Mobile {
		t.Fatalf("breakpoint = %q", cfg.Editor.Breakpoint())
	}
	if cfg.Storage.KeepRevisions != Defaults().Storage.KeepRevisions {
		t.Fatalf("negative keep_revisions should be ignored, got %d", cfg.Storage.KeepRevisions)
	}
}

func TestSaveLoadRoundTripWithToken(t *testing.T) {
	mem := isolate(t)
	cfg := Defaults()
	cfg.Editor.PaletteFile = "palette.yaml"
	cfg.Backend.Addr = ":9090"
	cfg.General.EnableServer = true
	if err := Save(cfg, "tok-123"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, tok, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tok != "tok-123" {
		t.Fatalf("token = %q", tok)
	}
	if got.Editor.PaletteFile != "palette.yaml" || got.Backend.Addr != ":9090" || !got.General.EnableServer {
		t.Fatalf("round trip lost fields: %#v", got)
	}
	path, _ := ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if string(data) == "" || len(mem) != 1 {
		t.Fatalf("unexpected persisted state: %q %v", data, mem)
	}
	if err := ClearToken(); err != nil {
		t.Fatalf("ClearToken: %v", err)
	}
	if _, tok, _ := Load(); tok != "" {
		t.Fatalf("token survived ClearToken: %q", tok)
	}
}

func TestMergeIncludesEnableServer(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.General.EnableServer = true
	mergeInto(&dst, &src)
	if !dst.General.EnableServer {
		t.Fatalf("EnableServer was not merged from file config")
	}
}

func TestMergeKeepsDefaultsForEmptyFields(t *testing.T) {
	dst := Defaults()
	src := AppConfig{Editor: EditorConfig{DefaultBreakpoint: "widescreen"}}
	mergeInto(&dst, &src)
	if dst.Editor != Defaults().Editor {
		t.Fatalf("editor defaults overwritten: %#v", dst.Editor)
	}
	if dst.Backend.BaseURL == "" || dst.Storage.KeepRevisions == 0 {
		t.Fatalf("defaults lost: %#v", dst)
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = " DEBUG "
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "/tmp/pb.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/pb.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "/var/tmp/pb.log")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "/var/tmp/pb.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestTimeoutFallsBackToDefault(t *testing.T) {
	if got := (BackendConfig{}).Timeout(); got != 15*time.Second {
		t.Fatalf("Timeout() = %v", got)
	}
	if got := (BackendConfig{TimeoutMs: 250}).Timeout(); got != 250*time.Millisecond {
		t.Fatalf("Timeout() = %v", got)
	}
}

func TestCoalesceIsOffByDefaultAndZeroWins(t *testing.T) {
	isolate(t)
	if d := Defaults().Editor.Coalesce(); d != 0 {
		t.Fatalf("default coalesce window = %v", d)
	}
	on := Defaults()
	on.Editor.CoalesceMs = 300
	if err := Save(on, ""); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	cfg, _, err := Load()
	if err != nil || cfg.Editor.CoalesceMs != 300 {
		t.Fatalf("Load() = %d, %v", cfg.Editor.CoalesceMs, err)
	}
	t.Setenv(EnvCoalesceMs, "0")
	cfg, _, _ = Load()
	if cfg.Editor.CoalesceMs != 0 {
		t.Fatalf("env 0 should turn coalescing off, got %d", cfg.Editor.CoalesceMs)
	}

	dst := on
	src := Defaults()
	mergeInto(&dst, &src)
	if dst.Editor.CoalesceMs != 0 {
		t.Fatalf("file value 0 should win over %d", on.Editor.CoalesceMs)
	}
}
