/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"image"
	"image/color"
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const labelPad = 6

// labelFace is fixed so raster output is identical on every platform.
var labelFace font.Face = basicfont.Face7x13

func advance(d *font.Drawer, s string) int {
	return d.MeasureString(s).Ceil()
}

// wrap breaks s on spaces so every line fits maxWidth pixels. Words wider
// than maxWidth are cut by character.
func wrap(face font.Face, s string, maxWidth int) []string {
	d := &font.Drawer{Face: face}
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		cur := ""
		for _, word := range strings.Fields(para) {
			for maxWidth > 0 && advance(d, word) > maxWidth {
				n := fitPrefix(d, word, maxWidth)
				if cur != "" {
					lines = append(lines, cur)
					cur = ""
				}
				lines = append(lines, word[:n])
				word = word[n:]
			}
			if word == "" {
				continue
			}
			next := word
			if cur != "" {
				next = cur + " " + word
			}
			if cur != "" && maxWidth > 0 && advance(d, next) > maxWidth {
				lines = append(lines, cur)
				next = word
			}
			cur = next
		}
		if cur != "" {
			lines = append(lines, cur)
		}
	}
	return lines
}

// fitPrefix returns the longest byte prefix of word (at least one rune) that
// fits maxWidth.
func fitPrefix(d *font.Drawer, word string, maxWidth int) int {
	end := 0
	for end < len(word) {
		_, size := utf8.DecodeRuneInString(word[end:])
		if end > 0 && advance(d, word[:end+size]) > maxWidth {
			break
		}
		end += size
	}
	return end
}

// drawLabel writes as many wrapped lines of s as fit inside r.
func drawLabel(img *image.RGBA, r image.Rectangle, s string, col color.RGBA) {
	m := labelFace.Metrics()
	lineH := m.Height.Ceil()
	if r.Dx() <= 2*labelPad || r.Dy() < lineH+labelPad {
		return
	}
	d := &font.Drawer{Dst: img, Src: image.NewUniform(col), Face: labelFace}
	y := r.Min.Y + labelPad + m.Ascent.Ceil()
	for _, line := range wrap(labelFace, s, r.Dx()-2*labelPad) {
		if y+m.Descent.Ceil() > r.Max.Y {
			break
		}
		d.Dot = fixed.P(r.Min.X+labelPad, y)
		d.DrawString(line)
		y += lineH
	}
}
