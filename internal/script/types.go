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
	"fmt"

	"pagebuilder/internal/document"
	"pagebuilder/internal/domain"
)

// Script is a YAML list of editing operations replayed against one page.
//
//	name: hero section
//	viewport: {zoom: 0.5}
//	ops:
//	  - {op: add, type: container, as: hero}
//	  - {op: add, type: text, parent: hero, column: 1}
//	  - {op: drag, type: button, content: {x: 200, y: 40}}
type Script struct {
	Name     string `yaml:"name,omitempty"`
	Viewport *View  `yaml:"viewport,omitempty"`
	Ops      []Op   `yaml:"ops"`
}

// Kind names an operation.
type Kind string

const (
	OpAdd       Kind = "add"
	OpUpdate    Kind = "update"
	OpStyle     Kind = "style"
	OpRemove    Kind = "remove"
	OpReorder   Kind = "reorder"
	OpDuplicate Kind = "duplicate"
	OpMove      Kind = "move"
	OpNudge     Kind = "nudge"
	OpWidth     Kind = "width"
	OpDrag      Kind = "drag"
	OpUndo      Kind = "undo"
	OpRedo      Kind = "redo"
	OpSelect    Kind = "select"
	OpRename    Kind = "rename"
)

var kinds = map[Kind]bool{
	OpAdd: true, OpUpdate: true, OpStyle: true, OpRemove: true, OpReorder: true,
	OpDuplicate: true, OpMove: true, OpNudge: true, OpWidth: true, OpDrag: true,
	OpUndo: true, OpRedo: true, OpSelect: true, OpRename: true,
}

// Point is a pointer position.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// View positions the canvas drag ops are resolved on. Zero fields keep the
// runner's defaults.
type View struct {
	Width   float64 `yaml:"width,omitempty"`
	Height  float64 `yaml:"height,omitempty"`
	Zoom    float64 `yaml:"zoom,omitempty"`
	ScrollX float64 `yaml:"scrollX,omitempty"`
	ScrollY float64 `yaml:"scrollY,omitempty"`
}

// Op is one operation. Component references (id, parent, order, ids) accept
// either a real component id or an alias bound earlier with as.
type Op struct {
	Op Kind   `yaml:"op"`
	As string `yaml:"as,omitempty"`
	ID string `yaml:"id,omitempty"`

	Type    domain.ComponentType `yaml:"type,omitempty"`
	Variant string               `yaml:"variant,omitempty"`
	Parent  string               `yaml:"parent,omitempty"`
	Column  int                  `yaml:"column,omitempty"`
	Index   *int                 `yaml:"index,omitempty"`
	Patch   *document.Patch      `yaml:"patch,omitempty"`

	Breakpoint domain.Breakpoint `yaml:"breakpoint,omitempty"`
	Key        string            `yaml:"key,omitempty"`
	Value      string            `yaml:"value,omitempty"`

	Width float64  `yaml:"width,omitempty"`
	Delta int      `yaml:"delta,omitempty"`
	Order []string `yaml:"order,omitempty"`
	IDs   []string `yaml:"ids,omitempty"`
	Name  string   `yaml:"name,omitempty"`

	// At is the release point in screen space, Content the same in content
	// space. Path lists intermediate pointer positions in screen space.
	At      *Point  `yaml:"at,omitempty"`
	Content *Point  `yaml:"content,omitempty"`
	Path    []Point `yaml:"path,omitempty"`
	View    *View   `yaml:"view,omitempty"`
	Cancel  bool    `yaml:"cancel,omitempty"`

	// Line is the 1-based source line of the op.
	Line int `yaml:"-"`
}

// Error is a parse error with position context.
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Step reports the outcome of one op.
type Step struct {
	N       int  `json:"n"`
	Op      Kind `json:"op"`
	Line    int  `json:"line"`
	Applied bool `json:"applied"`
	// ID is the component created or touched, when there is one.
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Result summarizes a run.
type Result struct {
	Steps   []Step            `json:"steps"`
	Applied int               `json:"applied"`
	NoOps   int               `json:"noops"`
	Aliases map[string]string `json:"aliases,omitempty"`
}

// Skipped lists the steps that changed nothing.
func (r Result) Skipped() []Step {
	var out []Step
	for _, s := range r.Steps {
		if !s.Applied {
			out = append(out, s)
		}
	}
	return out
}
