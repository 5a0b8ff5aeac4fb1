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
	"os"
	"regexp"
	"strconv"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"pagebuilder/internal/domain"
)

var reYAMLLine = regexp.MustCompile(`line (\d+): (.*)$`)

var knownKeys = map[string]bool{
	"op": true, "as": true, "id": true, "type": true, "variant": true,
	"parent": true, "column": true, "index": true, "patch": true,
	"breakpoint": true, "key": true, "value": true, "width": true,
	"delta": true, "order": true, "ids": true, "name": true, "at": true,
	"content": true, "path": true, "view": true, "cancel": true,
}

// Parse reads a script. The document is either a mapping with an ops list
// or a bare list of ops. Every op is checked for a known kind, unknown keys
// and the fields its kind needs; all problems are reported, not just the
// first.
func Parse(data []byte) (Script, []Error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Script{}, []Error{yamlError(err)}
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return Script{}, nil
	}
	body := root.Content[0]

	var s Script
	var opNodes []*yaml.Node
	switch body.Kind {
	case yaml.SequenceNode:
		opNodes = body.Content
	case yaml.MappingNode:
		var head struct {
			Name     string      `yaml:"name"`
			Viewport *View       `yaml:"viewport"`
			Ops      []yaml.Node `yaml:"ops"`
		}
		if err := body.Decode(&head); err != nil {
			return Script{}, []Error{yamlError(err)}
		}
		s.Name, s.Viewport = head.Name, head.Viewport
		for i := range head.Ops {
			opNodes = append(opNodes, &head.Ops[i])
		}
	default:
		return Script{}, []Error{{Line: body.Line, Column: body.Column, Message: "script must be a list of ops or a mapping with ops"}}
	}

	var errs []Error
	aliases := map[string]int{}
	for _, n := range opNodes {
		if n.Kind != yaml.MappingNode {
			errs = append(errs, Error{Line: n.Line, Column: n.Column, Message: "op must be a mapping"})
			continue
		}
		for i := 0; i+1 < len(n.Content); i += 2 {
			if k := n.Content[i]; !knownKeys[k.Value] {
				errs = append(errs, Error{Line: k.Line, Column: k.Column, Message: fmt.Sprintf("unknown key %q", k.Value)})
			}
		}
		var op Op
		if err := n.Decode(&op); err != nil {
			e := yamlError(err)
			if e.Line == 0 {
				e.Line, e.Column = n.Line, n.Column
			}
			errs = append(errs, e)
			continue
		}
		op.Line = n.Line
		if msg := check(op); msg != "" {
			errs = append(errs, Error{Line: n.Line, Column: n.Column, Message: msg})
			continue
		}
		if op.As != "" {
			if prev, dup := aliases[op.As]; dup {
				errs = append(errs, Error{Line: n.Line, Column: n.Column, Message: fmt.Sprintf("alias %q already bound on line %d", op.As, prev)})
				continue
			}
			aliases[op.As] = n.Line
		}
		s.Ops = append(s.Ops, op)
	}
	return s, errs
}

// check returns why op is malformed, or "".
func check(op Op) string {
	if op.Op == "" {
		return "missing op"
	}
	if !kinds[op.Op] {
		return fmt.Sprintf("unknown op %q", op.Op)
	}
	switch op.Op {
	case OpAdd, OpDuplicate, OpDrag:
	default:
		if op.As != "" {
			return fmt.Sprintf("as is not allowed on %s", op.Op)
		}
	}
	switch op.Op {
	case OpAdd:
		if op.Type == "" {
			return "add needs a type"
		}
	case OpUpdate:
		if op.ID == "" || op.Patch == nil {
			return "update needs id and patch"
		}
	case OpStyle:
		if op.ID == "" || op.Key == "" {
			return "style needs id and key"
		}
		if op.Breakpoint != "" && !op.Breakpoint.Valid() {
			return fmt.Sprintf("unknown breakpoint %q", op.Breakpoint)
		}
	case OpRemove, OpDuplicate, OpMove, OpWidth:
		if op.ID == "" {
			return fmt.Sprintf("%s needs an id", op.Op)
		}
	case OpNudge:
		if op.ID == "" || op.Delta == 0 {
			return "nudge needs id and a non-zero delta"
		}
	case OpReorder:
		if len(op.Order) == 0 {
			return "reorder needs an order"
		}
	case OpRename:
		if op.Name == "" {
			return "rename needs a name"
		}
	case OpDrag:
		if (op.ID == "") == (op.Type == "") {
			return "drag needs exactly one of id or type"
		}
		if !op.Cancel && (op.At == nil) == (op.Content == nil) {
			return "drag needs exactly one of at or content"
		}
	}
	return ""
}

func yamlError(err error) Error {
	if te, ok := err.(*yaml.TypeError); ok && len(te.Errors) > 0 {
		err = fmt.Errorf("%s", te.Errors[0])
	}
	if m := reYAMLLine.FindStringSubmatch(err.Error()); m != nil {
		n, _ := strconv.Atoi(m[1])
		return Error{Line: n, Message: m[2]}
	}
	return Error{Message: err.Error()}
}

// LoadFile reads and parses a script file. Parse errors are combined into
// one error.
func LoadFile(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, err
	}
	s, errs := Parse(data)
	var combined error
	for _, e := range errs {
		combined = multierr.Append(combined, e)
	}
	if combined != nil {
		return Script{}, fmt.Errorf("%s: %w", path, combined)
	}
	return s, nil
}

// breakpointOr returns bp, or desktop when it is empty.
func breakpointOr(bp domain.Breakpoint) domain.Breakpoint {
	if bp == "" {
		return domain.Desktop
	}
	return bp
}
