/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "math"

// MinColumnWidth is the smallest percentage a single column may shrink to.
const MinColumnWidth = 5.0

// WidthTolerance is the accepted deviation of a width sum from 100.
const WidthTolerance = 1e-6

// EqualWidths splits 100 evenly across n columns.
func EqualWidths(n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 / float64(n)
	}
	return out
}

// NormalizeWidths resizes widths to n entries and scales them to sum to 100.
// Missing entries take the mean of the present ones; negative or NaN values
// count as zero. An all-zero input yields equal widths.
func NormalizeWidths(widths []float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	var sum float64
	var present int
	for i := 0; i < n && i < len(widths); i++ {
		w := widths[i]
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			w = 0
		}
		out[i] = w
		sum += w
		present++
	}
	if present < n {
		fill := 100 / float64(n)
		if present > 0 && sum > 0 {
			fill = sum / float64(present)
		}
		for i := present; i < n; i++ {
			out[i] = fill
			sum += fill
		}
	}
	if sum <= 0 {
		return EqualWidths(n)
	}
	var acc float64
	for i := range out {
		out[i] = out[i] * 100 / sum
		if i < n-1 {
			acc += out[i]
		}
	}
	// absorb rounding drift in the last column
	out[n-1] = 100 - acc
	return out
}

// RebalanceWidths sets column col to value and scales the remaining columns
// proportionally so the total stays 100. value is clamped so that every other
// column keeps at least MinColumnWidth.
func RebalanceWidths(widths []float64, col int, value float64) []float64 {
	n := len(widths)
	if n == 0 || col < 0 || col >= n {
		return widths
	}
	cur := NormalizeWidths(widths, n)
	if n == 1 {
		return cur
	}
	hi := 100 - MinColumnWidth*float64(n-1)
	value = math.Max(MinColumnWidth, math.Min(hi, value))
	rest := 100 - value
	var others float64
	for i, w := range cur {
		if i != col {
			others += w
		}
	}
	out := make([]float64, n)
	for i, w := range cur {
		switch {
		case i == col:
			out[i] = value
		case others <= 0:
			out[i] = rest / float64(n-1)
		default:
			out[i] = w * rest / others
		}
	}
	return NormalizeWidths(out, n)
}

// WidthsSum adds up the column widths.
func WidthsSum(widths []float64) float64 {
	var s float64
	for _, w := range widths {
		s += w
	}
	return s
}

// NormalizeLayout clamps the column count, fills in direction and alignment
// defaults and renormalizes widths.
func NormalizeLayout(l Layout) Layout {
	if l.ColumnCount < MinColumns {
		l.ColumnCount = MinColumns
	}
	if l.ColumnCount > MaxColumns {
		l.ColumnCount = MaxColumns
	}
	if l.Direction != Stacked {
		l.Direction = SideBySide
	}
	l.ColumnWidths = NormalizeWidths(l.ColumnWidths, l.ColumnCount)
	align := make([]Alignment, l.ColumnCount)
	for i := range align {
		align[i] = AlignStart
		if i < len(l.ColumnAlign) {
			switch l.ColumnAlign[i] {
			case AlignStart, AlignCenter, AlignEnd, AlignStretch:
				align[i] = l.ColumnAlign[i]
			}
		}
	}
	l.ColumnAlign = align
	return l
}

// NewLayout returns a normalized side-by-side layout with n equal columns.
func NewLayout(n int) Layout {
	return NormalizeLayout(Layout{ColumnCount: n, Direction: SideBySide})
}
