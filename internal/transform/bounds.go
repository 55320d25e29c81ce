/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package transform

import "comicview/internal/geometry"

// DefaultEdgeEpsilon is the slack, in viewport pixels, used when deciding that
// an edge has been reached and when reading a drag direction. It never moves
// the content.
const DefaultEdgeEpsilon = 1.0

// Correct clamps the translation of t so the content covers the viewport
// wherever it is large enough to, and reports the reachable edges.
// It is total and idempotent: Correct(Correct(t)) == Correct(t).
func Correct(t Transform, g Geometry, eps float64) (Transform, EdgeState) {
	var es EdgeState
	t.TranslateX, es.Horizontal = correctAxis(t.TranslateX, g.ContentW*t.Scale, g.ViewportW, g.Anchor, eps)
	t.TranslateY, es.Vertical = correctAxis(t.TranslateY, g.ContentH*t.Scale, g.ViewportH, g.Anchor, eps)
	return t, es
}

// correctAxis works on one axis: offset is the leading edge of the displayed
// content, extent its length, view the viewport length.
func correctAxis(offset, extent, view float64, anchor AnchorMode, eps float64) (float64, Edge) {
	if extent <= view {
		switch anchor {
		case FitStart:
			return 0, EdgeBoth
		case FitEnd:
			return view - extent, EdgeBoth
		default:
			return (view - extent) / 2, EdgeBoth
		}
	}
	lo := view - extent
	// eps only widens the edge classification; the offset is never snapped
	offset = geometry.Clamp(offset, lo, 0)
	switch {
	case offset >= -eps:
		return offset, EdgeLeft
	case offset <= lo+eps:
		return offset, EdgeRight
	}
	return offset, EdgeNone
}

// ScrollRange returns the legal interval for the leading edge on one axis.
// When the content fits, the interval collapses to the current offset.
func ScrollRange(offset, extent, view float64) (lo, hi float64) {
	if extent <= view {
		return offset, offset
	}
	return view - extent, 0
}
