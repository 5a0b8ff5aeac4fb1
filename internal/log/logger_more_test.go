/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestFromEnv(t *testing.T) {
	t.Setenv("PB_LOG_LEVEL", "warn")
	t.Setenv("PB_LOG_FORMAT", "json")
	t.Setenv("PB_LOG_SOURCE", "TRUE")
	t.Setenv("PB_LOG_FILE", "")

	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv mismatch: %+v", opts)
	}
	if v := getenv("PB_SURELY_UNSET_VAR", "fallback"); v != "fallback" {
		t.Fatalf("getenv fallback failed: %q", v)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v want %v", in, got, want)
		}
	}
}

func TestConsoleHandlerLine(t *testing.T) {
	var buf bytes.Buffer
	h := newConsoleHandler(&buf, slog.LevelWarn, false)
	ctx := context.Background()
	if h.Enabled(ctx, slog.LevelInfo) {
		t.Fatalf("info should be filtered at warn level")
	}
	if !h.Enabled(ctx, slog.LevelError) {
		t.Fatalf("error should pass at warn level")
	}

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "drag"), slog.String("app", "pagebuilder")}).WithGroup("drop")
	r := slog.NewRecord(time.Now(), slog.LevelError, "rejected", 0)
	r.AddAttrs(
		slog.Int("index", 3),
		slog.Float64("zoom", 0.250),
		slog.Bool("noop", true),
		slog.String("label", "Add header"),
		slog.Any("err", errors.New("boom")),
	)
	if err := h2.Handle(ctx, r); err != nil {
		t.Fatalf("handle: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"ERR", "[drag] rejected", "drop.index=3", "drop.zoom=0.25", "drop.noop=true", `drop.label="Add header"`, `drop.err="boom"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
	if strings.Contains(out, "app=") || strings.Contains(out, "component=") {
		t.Fatalf("console line should drop app and lift component: %q", out)
	}
}

func TestConsoleHandlerSource(t *testing.T) {
	var buf bytes.Buffer
	slog.New(newConsoleHandler(&buf, slog.LevelInfo, true)).Info("here")
	if out := buf.String(); !strings.Contains(out, "src=") || !strings.Contains(out, "logger_more_test.go:") {
		t.Fatalf("source location missing: %q", out)
	}
	buf.Reset()
	slog.New(newConsoleHandler(&buf, slog.LevelInfo, false)).Info("here")
	if strings.Contains(buf.String(), "src=") {
		t.Fatalf("source printed although disabled: %q", buf.String())
	}
}

func TestConsoleHandlerFlattensGroupAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(newConsoleHandler(&buf, slog.LevelDebug, false))
	l.Debug("zone", slog.Group("rect", slog.Int("x", 10), slog.Int("y", 20)))
	if out := buf.String(); !strings.Contains(out, "DBG") || !strings.Contains(out, "rect.x=10 rect.y=20") {
		t.Fatalf("group attrs not flattened: %q", out)
	}
}

func TestTeeRoutesByLevel(t *testing.T) {
	var a, b bytes.Buffer
	l := slog.New(tee{
		slog.NewJSONHandler(&a, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	})
	l.Info("one")
	if a.Len() == 0 || b.Len() != 0 {
		t.Fatalf("info routing wrong: a=%q b=%q", a.String(), b.String())
	}
	l.Error("two")
	if !strings.Contains(b.String(), "two") {
		t.Fatalf("error not fanned out: %q", b.String())
	}
}
