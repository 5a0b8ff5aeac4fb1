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
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"pagebuilder/internal/domain"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Editor        EditorConfig  `yaml:"editor"`
	Storage       StorageConfig `yaml:"storage"`
	Backend       BackendConfig `yaml:"backend"`
	Logging       LoggingConfig `yaml:"logging"`
}

type GeneralConfig struct {
	TelemetryOptIn bool `yaml:"telemetry_opt_in"`
	EnableServer   bool `yaml:"enable_server"`
}

// EditorConfig tunes the document store and the canvas.
type EditorConfig struct {
	HistoryMax        int     `yaml:"history_max"`
	CoalesceMs        int     `yaml:"coalesce_ms"`
	CanvasWidth       float64 `yaml:"canvas_width"`
	DefaultBreakpoint string  `yaml:"default_breakpoint"`
	PaletteFile       string  `yaml:"palette_file"`
}

type StorageConfig struct {
	KeepRevisions int `yaml:"keep_revisions"`
}

type BackendConfig struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
	DSN       string `yaml:"dsn"`
	Addr      string `yaml:"addr"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Editor: EditorConfig{
			HistoryMax:        200,
			CanvasWidth:       1200,
			DefaultBreakpoint: string(domain.Desktop),
		},
		Storage: StorageConfig{KeepRevisions: 50},
		Backend: BackendConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000, Addr: ":8080"},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvBackendURL       = "PB_BACKEND_URL"
	EnvBackendTimeoutMs = "PB_BACKEND_TIMEOUT_MS"
	EnvBackendDSN       = "PB_PG_DSN"
	EnvBackendAddr      = "PB_BACKEND_ADDR"
	EnvTelemetryOptIn   = "PB_TELEMETRY_OPT_IN"
	EnvEnableServer     = "PB_ENABLE_SERVER"
	EnvHistoryMax       = "PB_HISTORY_MAX"
	EnvCoalesceMs       = "PB_COALESCE_MS"
	EnvCanvasWidth      = "PB_CANVAS_WIDTH"
	EnvBreakpoint       = "PB_BREAKPOINT"
	EnvPaletteFile      = "PB_PALETTE_FILE"
	EnvKeepRevisions    = "PB_KEEP_REVISIONS"
	EnvLogLevel         = "PB_LOG_LEVEL"
	EnvLogFormat        = "PB_LOG_FORMAT"
	EnvLogSource        = "PB_LOG_SOURCE"
	EnvLogFile          = "PB_LOG_FILE"
	// EnvConfigPath points Load and Save at an explicit file.
	EnvConfigPath = "PB_CONFIG"
)

// Service/keys for OS keyring.
const (
	keyringService = "Pagebuilder"
	keyringToken   = "backend_token"
)

// TokenStore abstracts the keyring so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

var tokenStore TokenStore = osKeyring{}

// SetTokenStore swaps the keyring backend and returns the previous one.
func SetTokenStore(ts TokenStore) TokenStore {
	prev := tokenStore
	tokenStore = ts
	return prev
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "Pagebuilder")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Pagebuilder")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "pagebuilder")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults and merges environment overrides.
// The backend token comes from the keyring and is returned separately.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into the OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return err
		}
	}
	return nil
}

// ClearToken removes the stored backend token.
func ClearToken() error {
	err := tokenStore.Delete(keyringService, keyringToken)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	dst.General.EnableServer = src.General.EnableServer

	if src.Editor.HistoryMax > 0 {
		dst.Editor.HistoryMax = src.Editor.HistoryMax
	}
	// 0 turns coalescing off and is a valid choice
	if src.Editor.CoalesceMs >= 0 {
		dst.Editor.CoalesceMs = src.Editor.CoalesceMs
	}
	if src.Editor.CanvasWidth > 0 {
		dst.Editor.CanvasWidth = src.Editor.CanvasWidth
	}
	if bp := strings.ToLower(strings.TrimSpace(src.Editor.DefaultBreakpoint)); domain.Breakpoint(bp).Valid() {
		dst.Editor.DefaultBreakpoint = bp
	}
	if strings.TrimSpace(src.Editor.PaletteFile) != "" {
		dst.Editor.PaletteFile = strings.TrimSpace(src.Editor.PaletteFile)
	}
	if src.Storage.KeepRevisions > 0 {
		dst.Storage.KeepRevisions = src.Storage.KeepRevisions
	}

	if src.Backend.BaseURL != "" {
		dst.Backend.BaseURL = src.Backend.BaseURL
	}
	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	if src.Backend.DSN != "" {
		dst.Backend.DSN = src.Backend.DSN
	}
	if src.Backend.Addr != "" {
		dst.Backend.Addr = src.Backend.Addr
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// override binds one config key to the environment variable that replaces it.
// set receives the trimmed, non-empty value.
type override struct {
	key string
	env string
	set func(cfg *AppConfig, v string)
}

func positiveInt(dst func(*AppConfig) *int) func(*AppConfig, string) {
	return func(cfg *AppConfig, v string) {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst(cfg) = n
		}
	}
}

func text(dst func(*AppConfig) *string, lower bool) func(*AppConfig, string) {
	return func(cfg *AppConfig, v string) {
		if lower {
			v = strings.ToLower(v)
		}
		*dst(cfg) = v
	}
}

func flag(dst func(*AppConfig) *bool) func(*AppConfig, string) {
	return func(cfg *AppConfig, v string) { *dst(cfg) = truthy(v) }
}

var overrides = []override{
	{"backend.base_url", EnvBackendURL, text(func(c *AppConfig) *string { return &c.Backend.BaseURL }, false)},
	{"backend.timeout_ms", EnvBackendTimeoutMs, positiveInt(func(c *AppConfig) *int { return &c.Backend.TimeoutMs })},
	{"backend.dsn", EnvBackendDSN, text(func(c *AppConfig) *string { return &c.Backend.DSN }, false)},
	{"backend.addr", EnvBackendAddr, text(func(c *AppConfig) *string { return &c.Backend.Addr }, false)},
	{"general.telemetry_opt_in", EnvTelemetryOptIn, flag(func(c *AppConfig) *bool { return &c.General.TelemetryOptIn })},
	{"general.enable_server", EnvEnableServer, flag(func(c *AppConfig) *bool { return &c.General.EnableServer })},
	{"editor.history_max", EnvHistoryMax, positiveInt(func(c *AppConfig) *int { return &c.Editor.HistoryMax })},
	{"editor.coalesce_ms", EnvCoalesceMs, func(c *AppConfig, v string) {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Editor.CoalesceMs = n
		}
	}},
	{"editor.canvas_width", EnvCanvasWidth, func(c *AppConfig, v string) {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.Editor.CanvasWidth = f
		}
	}},
	{"editor.default_breakpoint", EnvBreakpoint, func(c *AppConfig, v string) {
		if v = strings.ToLower(v); domain.Breakpoint(v).Valid() {
			c.Editor.DefaultBreakpoint = v
		}
	}},
	{"editor.palette_file", EnvPaletteFile, text(func(c *AppConfig) *string { return &c.Editor.PaletteFile }, false)},
	{"storage.keep_revisions", EnvKeepRevisions, positiveInt(func(c *AppConfig) *int { return &c.Storage.KeepRevisions })},
	{"logging.level", EnvLogLevel, text(func(c *AppConfig) *string { return &c.Logging.Level }, true)},
	{"logging.format", EnvLogFormat, text(func(c *AppConfig) *string { return &c.Logging.Format }, true)},
	{"logging.source", EnvLogSource, flag(func(c *AppConfig) *bool { return &c.Logging.Source })},
	{"logging.file", EnvLogFile, text(func(c *AppConfig) *string { return &c.Logging.File }, false)},
}

func applyEnvOverrides(cfg *AppConfig) {
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			o.set(cfg, v)
		}
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	for _, o := range overrides {
		if o.key == key {
			return o.env, strings.TrimSpace(os.Getenv(o.env)) != ""
		}
	}
	return "", false
}

// Timeout returns the backend timeout, falling back to the default for non-positive values.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutMs <= 0 {
		return time.Duration(Defaults().Backend.TimeoutMs) * time.Millisecond
	}
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

// Coalesce returns the history coalescing window.
func (e EditorConfig) Coalesce() time.Duration {
	return time.Duration(e.CoalesceMs) * time.Millisecond
}

// Breakpoint returns the configured default breakpoint.
func (e EditorConfig) Breakpoint() domain.Breakpoint {
	if bp := domain.Breakpoint(e.DefaultBreakpoint); bp.Valid() {
		return bp
	}
	return domain.Desktop
}
