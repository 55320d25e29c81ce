/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package transform

import "math"

// Layout computes the initial transform for g. g must be valid.
//
// FitFill keeps a uniform scale (the Transform has no separate x/y scale) and
// behaves like FitCenter.
func Layout(g Geometry) Transform {
	wr := g.ViewportW / g.ContentW
	hr := g.ViewportH / g.ContentH

	var s float64
	switch g.Anchor {
	case Center:
		s = 1
	case CenterCrop:
		s = math.Max(wr, hr)
	case CenterInside:
		s = math.Min(1, math.Min(wr, hr))
	default: // Fit*
		s = math.Min(wr, hr)
	}

	w := g.ContentW * s
	h := g.ContentH * s
	t := Transform{Scale: s}
	switch g.Anchor {
	case FitStart:
		// top-left
	case FitEnd:
		t.TranslateX = g.ViewportW - w
		t.TranslateY = g.ViewportH - h
	default:
		t.TranslateX = (g.ViewportW - w) / 2
		t.TranslateY = (g.ViewportH - h) / 2
	}
	return t
}
