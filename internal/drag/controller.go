/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package drag runs one drag gesture at a time: it resolves pointer positions
// through the placement engine, feeds the store's transient preview while the
// pointer moves and performs the single committed mutation when it is
// released.
package drag

import (
	"log/slog"

	"pagebuilder/internal/document"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/geom"
	"pagebuilder/internal/layout"
	applog "pagebuilder/internal/log"
	"pagebuilder/internal/palette"
	"pagebuilder/internal/placement"
)

// State is the controller's position in the drag lifecycle.
type State int

const (
	StateIdle State = iota
	StateDragging
	StateResolvingDrop
)

func (s State) String() string {
	switch s {
	case StateDragging:
		return "dragging"
	case StateResolvingDrop:
		return "resolving-drop"
	default:
		return "idle"
	}
}

// Canvas supplies the geometry a drop is resolved against.
type Canvas interface {
	Viewport() geom.Viewport
	Geometry(doc domain.Document) layout.Geometry
}

// StaticCanvas is a canvas with a fixed viewport, laid out on demand.
type StaticCanvas struct {
	View   geom.Viewport
	Layout layout.Options
}

func (c StaticCanvas) Viewport() geom.Viewport { return c.View }

func (c StaticCanvas) Geometry(doc domain.Document) layout.Geometry {
	return layout.Compute(doc, c.Layout)
}

// Drop reports what End did.
type Drop struct {
	Committed bool
	// ID is the created or moved component.
	ID     string
	Target placement.Target
}

// Controller drives drags against one store.
type Controller struct {
	store   *document.Store
	engine  *placement.Engine
	palette *palette.Palette
	canvas  Canvas

	state State
	src   placement.Source
	log   *slog.Logger
}

// NewController wires a controller. A nil palette means the default one.
func NewController(store *document.Store, engine *placement.Engine, pal *palette.Palette, canvas Canvas) *Controller {
	if pal == nil {
		pal = palette.Default()
	}
	return &Controller{
		store:   store,
		engine:  engine,
		palette: pal,
		canvas:  canvas,
		log:     applog.WithComponent("drag"),
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State { return c.state }

// Source returns the dragged source while a drag is active.
func (c *Controller) Source() (placement.Source, bool) {
	if c.state == StateIdle {
		return placement.Source{}, false
	}
	return c.src, true
}

// Start begins a drag. It is rejected while another drag is active, for
// palette entries that do not exist and for unknown component ids.
func (c *Controller) Start(src placement.Source) bool {
	if c.state != StateIdle {
		return false
	}
	switch src.Kind {
	case placement.SourceNew:
		if _, ok := c.palette.Lookup(src.Type, src.Variant); !ok {
			c.log.Debug("drag rejected", slog.String("type", string(src.Type)), slog.String("variant", src.Variant))
			return false
		}
	case placement.SourceExisting:
		if _, ok := c.store.Get(src.ID); !ok {
			c.log.Debug("drag rejected", slog.String("id", src.ID))
			return false
		}
	default:
		return false
	}
	c.src = src
	c.state = StateDragging
	return true
}

func (c *Controller) resolve(pointer geom.Pt) (placement.Target, bool) {
	doc := c.store.Document()
	return c.engine.Resolve(doc, c.canvas.Geometry(doc), c.canvas.Viewport(), pointer, c.src)
}

// Over updates the drop preview for a pointer position. It never commits.
func (c *Controller) Over(pointer geom.Pt) (placement.Target, bool) {
	if c.state != StateDragging {
		return placement.None, false
	}
	t, ok := c.resolve(pointer)
	if !ok {
		c.store.ClearPreview()
		return t, false
	}
	c.store.SetPreview(document.Preview{
		SourceID:    c.src.ID,
		Type:        c.src.Type,
		Index:       t.Index,
		ContainerID: t.ContainerID,
		Column:      t.Column,
	})
	return t, true
}

// End releases the drag at pointer and performs at most one committed
// mutation. Without a valid target nothing changes.
func (c *Controller) End(pointer geom.Pt) Drop {
	if c.state != StateDragging {
		return Drop{}
	}
	c.state = StateResolvingDrop
	defer func() {
		c.store.ClearPreview()
		c.state = StateIdle
		c.src = placement.Source{}
	}()

	t, ok := c.resolve(pointer)
	if !ok {
		return Drop{Target: t}
	}
	d := Drop{Target: t}
	switch c.src.Kind {
	case placement.SourceNew:
		it, _ := c.palette.Lookup(c.src.Type, c.src.Variant)
		id, added := c.store.Add(it.Type, t.Index, document.AddOptions{
			ParentID: t.ContainerID,
			Column:   t.Column,
			Variant:  it.Variant,
			Patch:    it.Patch(),
		})
		if added {
			c.store.Select(id)
			d.ID, d.Committed = id, true
		}
	case placement.SourceExisting:
		d.ID = c.src.ID
		d.Committed = c.store.Move(c.src.ID, t.Index, t.ContainerID, t.Column)
	}
	c.log.Debug("drop", slog.Bool("committed", d.Committed), slog.String("id", d.ID), slog.Int("index", t.Index))
	return d
}

// Cancel abandons the active drag without touching the document.
func (c *Controller) Cancel() {
	if c.state == StateIdle {
		return
	}
	c.store.ClearPreview()
	c.state = StateIdle
	c.src = placement.Source{}
}
