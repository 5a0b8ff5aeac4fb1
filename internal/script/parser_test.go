/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package script

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseOpsWithLines(t *testing.T) {
	src := `name: demo
viewport:
  zoom: 0.5
ops:
  - op: add
    type: container
    as: hero
  - op: update
    id: hero
    patch:
      styles:
        base: {background: "#fff"}
      layout: {columnCount: 3, direction: stacked}
  - {op: drag, type: text, content: {x: 10, y: 20}, path: [{x: 1, y: 2}]}
`
	s, errs := Parse([]byte(src))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if s.Name != "demo" || s.Viewport == nil || s.Viewport.Zoom != 0.5 {
		t.Fatalf("header not parsed: %+v", s)
	}
	if len(s.Ops) != 3 {
		t.Fatalf("expected 3 ops, got %d", len(s.Ops))
	}
	if s.Ops[0].Line != 5 || s.Ops[0].As != "hero" || s.Ops[0].Type != "container" {
		t.Fatalf("first op: %+v", s.Ops[0])
	}
	p := s.Ops[1].Patch
	if p == nil || p.Styles == nil || p.Styles.Base["background"] != "#fff" {
		t.Fatalf("patch styles not decoded: %+v", p)
	}
	if p.Layout == nil || p.Layout.ColumnCount != 3 || p.Layout.Direction != "stacked" {
		t.Fatalf("patch layout not decoded: %+v", p.Layout)
	}
	d := s.Ops[2]
	if d.Content == nil || d.Content.Y != 20 || len(d.Path) != 1 || d.Path[0].X != 1 {
		t.Fatalf("drag op: %+v", d)
	}
}

func TestParseBareList(t *testing.T) {
	s, errs := Parse([]byte("- {op: undo}\n- {op: redo}\n"))
	if len(errs) != 0 || len(s.Ops) != 2 || s.Ops[1].Op != OpRedo || s.Ops[1].Line != 2 {
		t.Fatalf("bare list: %+v %+v", s, errs)
	}
	if s, errs := Parse(nil); len(errs) != 0 || len(s.Ops) != 0 {
		t.Fatalf("empty input: %+v %+v", s, errs)
	}
}

func TestParseReportsAllErrors(t *testing.T) {
	src := `- {op: add}
- {op: explode}
- {op: remove, id: a, colour: red}
- {op: remove, id: b, as: x}
- {op: add, type: text, as: t}
- {op: add, type: text, as: t}
- {op: nudge, id: a, delta: lots}
`
	s, errs := Parse([]byte(src))
	var lines []int
	for _, e := range errs {
		lines = append(lines, e.Line)
	}
	want := []int{1, 2, 3, 4, 6, 7}
	if len(lines) != len(want) {
		t.Fatalf("errors = %+v", errs)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("error lines = %v, want %v (%+v)", lines, want, errs)
		}
	}
	if !strings.Contains(errs[1].Message, "explode") || !strings.Contains(errs[2].Message, "colour") {
		t.Fatalf("messages: %+v", errs)
	}
	if len(s.Ops) != 2 {
		t.Fatalf("valid ops kept = %d", len(s.Ops))
	}
}

func TestParseSyntaxError(t *testing.T) {
	_, errs := Parse([]byte("ops: [\n  {op: add\n"))
	if len(errs) != 1 || errs[0].Message == "" {
		t.Fatalf("expected one syntax error, got %+v", errs)
	}
}

func TestLoadFileCombinesErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ops.yaml")
	if err := os.WriteFile(path, []byte("- {op: undo}\n- {op: reorder}\n- {op: drag, type: text}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadFile(path)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "line 2") || !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("error = %v", err)
	}
}
