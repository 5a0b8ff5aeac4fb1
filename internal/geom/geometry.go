/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


// Package geom holds the small amount of plane geometry the canvas needs for
// hit-testing: points, rectangles and the zoomed viewport.
package geom

import "math"

// Pt is a point in either screen or content space.
type Pt struct{ X, Y float64 }

func (p Pt) Add(q Pt) Pt      { return Pt{p.X + q.X, p.Y + q.Y} }
func (p Pt) Sub(q Pt) Pt      { return Pt{p.X - q.X, p.Y - q.Y} }
func (p Pt) Mul(s float64) Pt { return Pt{p.X * s, p.Y * s} }

// Dist2 is the squared distance between p and q.
func (p Pt) Dist2(q Pt) float64 {
	d := p.Sub(q)
	return d.X*d.X + d.Y*d.Y
}

// Rect is an axis-aligned box: top-left corner plus size. Edges are inclusive.
type Rect struct {
	X, Y float64
	W, H float64
}

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

func (r Rect) Min() Pt         { return Pt{r.X, r.Y} }
func (r Rect) Center() Pt      { return Pt{r.X + r.W/2, r.Y + r.H/2} }
func (r Rect) right() float64  { return r.X + r.W }
func (r Rect) bottom() float64 { return r.Y + r.H }

func (r Rect) Contains(p Pt) bool {
	return p.X >= r.X && p.X <= r.right() && p.Y >= r.Y && p.Y <= r.bottom()
}

// Dist2 is the squared gap between p and r, 0 when p is on or inside r.
func (r Rect) Dist2(p Pt) float64 {
	dx := gap(p.X, r.X, r.right())
	dy := gap(p.Y, r.Y, r.bottom())
	return dx*dx + dy*dy
}

func gap(v, lo, hi float64) float64 {
	return math.Max(0, math.Max(lo-v, v-hi))
}

// Scaling maps content to screen with a uniform zoom followed by an offset:
// screen = content*Zoom + Offset.
type Scaling struct {
	Zoom   float64
	Offset Pt
}

func (s Scaling) Apply(content Pt) Pt { return content.Mul(s.Zoom).Add(s.Offset) }

// Unapply is the inverse of Apply. A zero zoom leaves the point unscaled.
func (s Scaling) Unapply(screen Pt) Pt {
	d := screen.Sub(s.Offset)
	if s.Zoom == 0 {
		return d
	}
	return d.Mul(1 / s.Zoom)
}
