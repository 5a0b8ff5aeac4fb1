/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry sends opt-in, anonymous editor usage events and crash
// reports. Nothing leaves the machine unless PB_TELEMETRY_OPT_IN is set and an
// endpoint is configured.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	applog "pagebuilder/internal/log"
	"pagebuilder/internal/version"
)

// Event names emitted by the CLI.
const (
	EventPageOpened    = "page_opened"
	EventPageSaved     = "page_saved"
	EventScriptApplied = "script_applied"
	EventExported      = "exported"
	EventPublished     = "published"
)

// Config holds runtime configuration for telemetry and crash uploads.
//
// Environment variables (read by FromEnv):
//   - PB_TELEMETRY_OPT_IN: "1", "true", "yes" to enable events
//   - PB_TELEMETRY_URL: endpoint receiving JSON events
//   - PB_CRASH_UPLOAD_URL: endpoint receiving crash reports
//   - PB_TELEMETRY_TIMEOUT_MS: request timeout, default 1500ms
//   - PB_TELEMETRY_DEBUG: log send attempts
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv("PB_TELEMETRY_OPT_IN")),
		EventsURL:    strings.TrimSpace(os.Getenv("PB_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("PB_CRASH_UPLOAD_URL")),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("PB_TELEMETRY_DEBUG") != "",
	}
	if ms := strings.TrimSpace(os.Getenv("PB_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil && v > 0 {
			cfg.Timeout = v
		}
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Stats counts what happened to queued events.
type Stats struct {
	Queued  int64
	Dropped int64
	Sent    int64
	Failed  int64
}

// Client is an async sender with a bounded queue. It never blocks callers
// and drops events when the queue is full.
type Client struct {
	cfg    Config
	log    *slog.Logger
	cli    *http.Client
	q      chan map[string]any
	once   sync.Once
	closed chan struct{}

	queued, dropped, sent, failed atomic.Int64
	// pending counts events queued but not yet posted.
	pending atomic.Int64
}

var (
	defaultClient *Client
	defaultOnce   sync.Once
)

// InitDefault installs a default client built from the environment on first use.
func InitDefault() {
	defaultOnce.Do(func() {
		if defaultClient == nil {
			defaultClient = New(FromEnv())
		}
	})
}

// NewDefault creates and installs the default client with cfg, closing the
// one it replaces.
func NewDefault(cfg Config) {
	defaultOnce.Do(func() {})
	if defaultClient != nil {
		defaultClient.Close()
	}
	defaultClient = New(cfg)
}

// New constructs a client and starts its sender goroutine.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1500 * time.Millisecond
	}
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:      make(chan map[string]any, 64),
		closed: make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether events are opted in and have somewhere to go.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Enabled reports the state of the default client.
func Enabled() bool {
	InitDefault()
	return defaultClient.Enabled()
}

// Stats returns a snapshot of the client's counters.
func (c *Client) Stats() Stats {
	return Stats{Queued: c.queued.Load(), Dropped: c.dropped.Load(), Sent: c.sent.Load(), Failed: c.failed.Load()}
}

// Event queues a small JSON event. Only scalar props are forwarded and
// strings are truncated, so document content cannot leak into payloads.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		if sv, ok := scrub(v); ok {
			payload[k] = sv
		}
	}
	c.pending.Add(1)
	select {
	case c.q <- payload:
		c.queued.Add(1)
	default:
		c.pending.Add(-1)
		c.dropped.Add(1)
	}
}

const maxPropLen = 64

func scrub(v any) (any, bool) {
	switch t := v.(type) {
	case bool, int, int32, int64, float32, float64:
		return t, true
	case string:
		if len(t) > maxPropLen {
			t = t[:maxPropLen]
		}
		return t, true
	}
	return nil, false
}

// Event sends through the default client.
func Event(name string, props map[string]any) { InitDefault(); defaultClient.Event(name, props) }

// Flush waits until every queued event has been posted, for at most the
// request timeout plus a grace period.
func (c *Client) Flush(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	deadline := time.Now().Add(c.cfg.Timeout + 500*time.Millisecond)
	for {
		if c.pending.Load() <= 0 || time.Now().After(deadline) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Flush drains the default client.
func Flush(ctx context.Context) {
	if defaultClient != nil {
		defaultClient.Flush(ctx)
	}
}

// Close stops the sender goroutine.
func (c *Client) Close() { c.once.Do(func() { close(c.closed) }) }

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			return
		case item := <-c.q:
			if c.post(c.cfg.EventsURL, "application/json", mustJSON(item)) {
				c.sent.Add(1)
			} else {
				c.failed.Add(1)
			}
			c.pending.Add(-1)
		}
	}
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func (c *Client) post(url, contentType string, body []byte) bool {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry send failed", slog.String("url", url), slog.Any("err", err))
		}
		return false
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug("telemetry sent", slog.String("url", url), slog.Int("status", resp.StatusCode))
	}
	return resp.StatusCode < 300
}

// UploadCrash posts an already-serialized crash report if opted in.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	b := append([]byte(nil), report...)
	go c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", b)
}

// UploadCrash uploads through the default client.
func UploadCrash(report []byte) { InitDefault(); defaultClient.UploadCrash(report) }
