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
	"context"
	"log/slog"
	"slices"

	"pagebuilder/internal/document"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/drag"
	"pagebuilder/internal/geom"
	"pagebuilder/internal/layout"
	applog "pagebuilder/internal/log"
	"pagebuilder/internal/palette"
	"pagebuilder/internal/placement"
)

// Default canvas used by drag ops.
const (
	DefaultViewWidth  = 2000.0
	DefaultViewHeight = 4000.0
)

// Options configures a Runner. Zero values take defaults.
type Options struct {
	Palette *palette.Palette
	Engine  *placement.Engine
	Layout  layout.Options
	View    View
}

// Runner replays scripts against one store. Aliases bound by one script stay
// visible to the next run on the same runner.
type Runner struct {
	store   *document.Store
	pal     *palette.Palette
	ctrl    *drag.Controller
	canvas  *canvas
	base    View
	aliases map[string]string
	log     *slog.Logger
}

// canvas is the drag canvas; drag ops reposition it before each drag.
type canvas struct {
	view   geom.Viewport
	layout layout.Options
}

func (c *canvas) Viewport() geom.Viewport { return c.view }

func (c *canvas) Geometry(doc domain.Document) layout.Geometry {
	return layout.Compute(doc, c.layout)
}

// NewRunner wires a runner over store.
func NewRunner(store *document.Store, opts Options) *Runner {
	if opts.Palette == nil {
		opts.Palette = palette.Default()
	}
	if opts.Engine == nil {
		opts.Engine = placement.NewEngine(placement.Options{})
	}
	cv := &canvas{layout: opts.Layout}
	return &Runner{
		store:   store,
		pal:     opts.Palette,
		ctrl:    drag.NewController(store, opts.Engine, opts.Palette, cv),
		canvas:  cv,
		base:    opts.View,
		aliases: map[string]string{},
		log:     applog.WithComponent("script"),
	}
}

// Aliases returns a copy of the alias bindings.
func (r *Runner) Aliases() map[string]string {
	out := make(map[string]string, len(r.aliases))
	for k, v := range r.aliases {
		out[k] = v
	}
	return out
}

// Run applies every op in order. Ops that cannot apply change nothing and are
// reported as skipped steps. The only error is cancellation of ctx, in which
// case the result covers the ops run so far.
func (r *Runner) Run(ctx context.Context, s Script) (Result, error) {
	view := r.base
	if s.Viewport != nil {
		view = merge(view, *s.Viewport)
	}
	var res Result
	for i, op := range s.Ops {
		if err := ctx.Err(); err != nil {
			res.Aliases = r.Aliases()
			return res, err
		}
		st := r.apply(op, view)
		st.N, st.Op, st.Line = i+1, op.Op, op.Line
		if st.Applied {
			res.Applied++
			if op.As != "" && st.ID != "" {
				r.aliases[op.As] = st.ID
			}
		} else {
			res.NoOps++
			r.log.Debug("op skipped", slog.Int("n", st.N), slog.String("op", string(op.Op)), slog.String("reason", st.Reason))
		}
		res.Steps = append(res.Steps, st)
	}
	res.Aliases = r.Aliases()
	r.log.Info("script applied",
		slog.String("name", s.Name),
		slog.Int("ops", len(s.Ops)),
		slog.Int("applied", res.Applied),
		slog.Int("noops", res.NoOps))
	return res, nil
}

// ref resolves an alias or passes a component id through.
func (r *Runner) ref(name string) string {
	if id, ok := r.aliases[name]; ok {
		return id
	}
	return name
}

func (r *Runner) refs(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = r.ref(n)
	}
	return out
}

func done(ok bool, id string) Step {
	if ok {
		return Step{Applied: true, ID: id}
	}
	return Step{ID: id, Reason: "rejected"}
}

func (r *Runner) apply(op Op, view View) Step {
	id := r.ref(op.ID)
	switch op.Op {
	case OpAdd:
		return r.add(op)
	case OpUpdate:
		return done(r.store.Update(id, *op.Patch), id)
	case OpStyle:
		return done(r.store.SetStyle(id, breakpointOr(op.Breakpoint), op.Key, op.Value), id)
	case OpRemove:
		return done(r.store.Remove(id), id)
	case OpReorder:
		return done(r.store.ReorderIDs(r.refs(op.Order)), "")
	case OpDuplicate:
		nid, ok := r.store.Duplicate(id)
		return done(ok, nid)
	case OpMove:
		at := -1
		if op.Index != nil {
			at = *op.Index
		}
		return done(r.store.Move(id, at, r.ref(op.Parent), op.Column), id)
	case OpNudge:
		return done(r.store.Nudge(id, op.Delta), id)
	case OpWidth:
		return done(r.store.SetColumnWidth(id, op.Column, op.Width), id)
	case OpUndo:
		if !r.store.CanUndo() {
			return Step{Reason: "nothing to undo"}
		}
		return done(r.store.Undo(), "")
	case OpRedo:
		if !r.store.CanRedo() {
			return Step{Reason: "nothing to redo"}
		}
		return done(r.store.Redo(), "")
	case OpSelect:
		before := r.store.Selection().Selected
		r.store.Select(r.refs(op.IDs)...)
		if slices.Equal(before, r.store.Selection().Selected) {
			return Step{Reason: "selection unchanged"}
		}
		return Step{Applied: true}
	case OpRename:
		return done(r.store.Rename(op.Name), "")
	case OpDrag:
		return r.drag(op, view)
	}
	return Step{Reason: "unknown op"}
}

func (r *Runner) add(op Op) Step {
	var patch document.Patch
	variant := op.Variant
	it, ok := r.pal.Lookup(op.Type, op.Variant)
	switch {
	case !ok && op.Variant != "":
		return Step{Reason: "unknown variant " + op.Variant}
	case op.Patch != nil:
		patch = *op.Patch
	case ok:
		patch, variant = it.Patch(), it.Variant
	}
	at := -1
	if op.Index != nil {
		at = *op.Index
	}
	id, ok := r.store.Add(op.Type, at, document.AddOptions{
		ParentID: r.ref(op.Parent),
		Column:   op.Column,
		Variant:  variant,
		Patch:    patch,
	})
	return done(ok, id)
}

func (r *Runner) drag(op Op, view View) Step {
	if op.View != nil {
		view = merge(view, *op.View)
	}
	r.canvas.view = view.viewport()

	src := placement.NewSource(op.Type, op.Variant)
	if op.ID != "" {
		src = placement.ExistingSource(r.ref(op.ID))
	}
	if !r.ctrl.Start(src) {
		return Step{ID: src.ID, Reason: "drag rejected"}
	}
	for _, p := range op.Path {
		r.ctrl.Over(geom.Pt{X: p.X, Y: p.Y})
	}
	if op.Cancel {
		r.ctrl.Cancel()
		return Step{ID: src.ID, Reason: "cancelled"}
	}
	var pointer geom.Pt
	if op.At != nil {
		pointer = geom.Pt{X: op.At.X, Y: op.At.Y}
	} else {
		pointer = r.canvas.view.ToScreen(geom.Pt{X: op.Content.X, Y: op.Content.Y})
	}
	d := r.ctrl.End(pointer)
	if d.Committed {
		return Step{Applied: true, ID: d.ID}
	}
	if !d.Target.Valid() {
		return Step{ID: d.ID, Reason: "no drop target"}
	}
	return Step{ID: d.ID, Reason: "rejected"}
}

func merge(base, over View) View {
	if over.Width > 0 {
		base.Width = over.Width
	}
	if over.Height > 0 {
		base.Height = over.Height
	}
	if over.Zoom > 0 {
		base.Zoom = over.Zoom
	}
	if over.ScrollX != 0 {
		base.ScrollX = over.ScrollX
	}
	if over.ScrollY != 0 {
		base.ScrollY = over.ScrollY
	}
	return base
}

func (v View) viewport() geom.Viewport {
	w, h := v.Width, v.Height
	if w <= 0 {
		w = DefaultViewWidth
	}
	if h <= 0 {
		h = DefaultViewHeight
	}
	return geom.Viewport{Bounds: geom.R(0, 0, w, h), Zoom: v.Zoom, Scroll: geom.Pt{X: v.ScrollX, Y: v.ScrollY}}
}
