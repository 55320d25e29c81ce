/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package transform holds the content-to-viewport mapping of the page viewer:
// the Transform value, the initial layout per anchor mode, and the bounds
// corrector that clamps translation and classifies reachable edges.
package transform

import (
	"errors"
	"fmt"
	"strings"

	"seehuhn.de/go/geom/matrix"

	"comicview/internal/geometry"
)

var (
	ErrInvalidGeometry = errors.New("invalid geometry")
	ErrInvalidLimits   = errors.New("invalid scale limits")
	ErrInvalidAnchor   = errors.New("invalid anchor mode")
)

// AnchorMode selects how content is placed in the viewport at layout time.
type AnchorMode uint8

const (
	Center AnchorMode = iota
	CenterCrop
	CenterInside
	FitCenter
	FitStart
	FitEnd
	FitFill
)

var anchorNames = [...]string{"center", "center_crop", "center_inside", "fit_center", "fit_start", "fit_end", "fit_fill"}

func (m AnchorMode) String() string {
	if int(m) < len(anchorNames) {
		return anchorNames[m]
	}
	return fmt.Sprintf("anchor(%d)", uint8(m))
}

func (m AnchorMode) Valid() bool { return int(m) < len(anchorNames) }

// ParseAnchorMode accepts the snake_case names used in config files; dashes and case are ignored.
func ParseAnchorMode(s string) (AnchorMode, error) {
	n := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for i, name := range anchorNames {
		if n == name || n == strings.ReplaceAll(name, "_", "") {
			return AnchorMode(i), nil
		}
	}
	return Center, fmt.Errorf("%w: %q", ErrInvalidAnchor, s)
}

// Transform maps a content point (x, y) to viewport (x*Scale+TranslateX, y*Scale+TranslateY).
// Scale is the on-screen scale, not the user-facing zoom (see State.CurrentScale).
type Transform struct {
	Scale      float64
	TranslateX float64
	TranslateY float64
}

var Identity = Transform{Scale: 1}

func (t Transform) Apply(p geometry.Pt) geometry.Pt {
	return geometry.Pt{X: p.X*t.Scale + t.TranslateX, Y: p.Y*t.Scale + t.TranslateY}
}

// Invert maps a viewport point back to content space.
func (t Transform) Invert(p geometry.Pt) geometry.Pt {
	if t.Scale == 0 {
		return geometry.Pt{}
	}
	return geometry.Pt{X: (p.X - t.TranslateX) / t.Scale, Y: (p.Y - t.TranslateY) / t.Scale}
}

// Matrix returns the transform as a seehuhn.de/go/geom matrix [a b c d e f].
func (t Transform) Matrix() matrix.Matrix {
	return matrix.Matrix{t.Scale, 0, 0, t.Scale, t.TranslateX, t.TranslateY}
}

// Displayed is the viewport rectangle covered by content of the given size.
func (t Transform) Displayed(contentW, contentH float64) geometry.Rect {
	return geometry.R(t.TranslateX, t.TranslateY, contentW*t.Scale, contentH*t.Scale)
}

// Geometry is the content and viewport size plus the anchor rule. Immutable per layout pass.
type Geometry struct {
	ContentW, ContentH   float64
	ViewportW, ViewportH float64
	Anchor               AnchorMode
}

func (g Geometry) Validate() error {
	for _, v := range []float64{g.ContentW, g.ContentH, g.ViewportW, g.ViewportH} {
		if !geometry.Finite(v) || v <= 0 {
			return fmt.Errorf("%w: content %vx%v viewport %vx%v", ErrInvalidGeometry, g.ContentW, g.ContentH, g.ViewportW, g.ViewportH)
		}
	}
	if !g.Anchor.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidAnchor, g.Anchor)
	}
	return nil
}

// Limits bound the user-facing scale. 1.0 means "as laid out".
type Limits struct {
	Min, Mid, Max float64
}

var DefaultLimits = Limits{Min: 1, Mid: 1.75, Max: 3}

func (l Limits) Validate() error {
	for _, v := range []float64{l.Min, l.Mid, l.Max} {
		if !geometry.Finite(v) || v <= 0 {
			return fmt.Errorf("%w: %v/%v/%v", ErrInvalidLimits, l.Min, l.Mid, l.Max)
		}
	}
	if l.Min > l.Mid || l.Mid > l.Max {
		return fmt.Errorf("%w: want min <= mid <= max, got %v/%v/%v", ErrInvalidLimits, l.Min, l.Mid, l.Max)
	}
	return nil
}

// Clamp limits s to [Min, Max].
func (l Limits) Clamp(s float64) float64 { return geometry.Clamp(s, l.Min, l.Max) }

// Edge classifies which directions on one axis are at the end of their travel.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeLeft
	EdgeRight
	EdgeBoth
)

// Vertical aliases.
const (
	EdgeTop    = EdgeLeft
	EdgeBottom = EdgeRight
)

// EdgeState is recomputed after every mutation.
type EdgeState struct {
	Horizontal Edge
	Vertical   Edge
}

func (e EdgeState) String() string {
	h := [...]string{"none", "left", "right", "both"}
	v := [...]string{"none", "top", "bottom", "both"}
	return "h=" + h[e.Horizontal&3] + " v=" + v[e.Vertical&3]
}
