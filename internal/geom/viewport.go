/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

// Viewport is the on-screen window onto the canvas.
//
// Bounds is the viewport's bounding rectangle in screen space. The canvas
// frame is drawn scaled by Zoom with its content origin at Bounds.Min, then
// shifted by Scroll (screen pixels). Drop zones live in unscaled content space,
// so every pointer position must pass through ToContent before hit-testing.
type Viewport struct {
	Bounds Rect
	Zoom   float64
	Scroll Pt
}

const (
	MinZoom = 0.1
	MaxZoom = 4.0
)

// zoom returns a usable scale factor; zero or negative means 100%.
func (v Viewport) zoom() float64 {
	switch {
	case v.Zoom <= 0:
		return 1
	case v.Zoom < MinZoom:
		return MinZoom
	case v.Zoom > MaxZoom:
		return MaxZoom
	}
	return v.Zoom
}

// FrameOrigin is the screen position of content coordinate (0,0).
func (v Viewport) FrameOrigin() Pt { return v.Bounds.Min().Sub(v.Scroll) }

// Scaling is the content-to-screen mapping for the current zoom and scroll.
func (v Viewport) Scaling() Scaling { return Scaling{Zoom: v.zoom(), Offset: v.FrameOrigin()} }

// ToContent converts a screen point: content = (screen - frameOrigin) / zoom.
func (v Viewport) ToContent(screen Pt) Pt { return v.Scaling().Unapply(screen) }

// ToScreen converts a content point to screen space.
func (v Viewport) ToScreen(content Pt) Pt { return v.Scaling().Apply(content) }

// Inside reports whether a screen point lies within the viewport bounds.
func (v Viewport) Inside(screen Pt) bool { return v.Bounds.Contains(screen) }
