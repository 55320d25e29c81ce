/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package transform

import (
	"math"

	"comicview/internal/geometry"
)

// State owns the current transform. Every mutation replaces the Transform
// value and runs the bounds corrector.
//
// Scale arguments and CurrentScale are in "fixed" space where 1.0 is the scale
// chosen by Layout; fix = 1/initScale converts raw scale to that space.
type State struct {
	geom   Geometry
	limits Limits
	eps    float64

	fix   float64
	cur   Transform
	edges EdgeState
}

// NewState lays out g immediately. g and l must be valid.
func NewState(g Geometry, l Limits, eps float64) *State {
	s := &State{geom: g, limits: l, eps: eps}
	s.Relayout()
	return s
}

// Relayout recomputes the initial transform from the anchor mode and resets fix.
func (s *State) Relayout() {
	base := Layout(s.geom)
	s.fix = 1 / base.Scale
	s.cur, s.edges = Correct(base, s.geom, s.eps)
}

func (s *State) Geometry() Geometry   { return s.geom }
func (s *State) Limits() Limits       { return s.limits }
func (s *State) Transform() Transform { return s.cur }
func (s *State) Edges() EdgeState     { return s.edges }

// SetGeometry installs new geometry and relays out. g must be valid.
func (s *State) SetGeometry(g Geometry) {
	s.geom = g
	s.Relayout()
}

// SetLimits installs new limits and relays out. l must be valid.
func (s *State) SetLimits(l Limits) {
	s.limits = l
	s.Relayout()
}

// CurrentScale is the user-facing scale: fix * raw scale.
func (s *State) CurrentScale() float64 { return s.fix * s.cur.Scale }

// DisplayRect is the viewport rectangle covered by the content.
func (s *State) DisplayRect() geometry.Rect {
	return s.cur.Displayed(s.geom.ContentW, s.geom.ContentH)
}

// VisibleContent is the part of the content, in content pixels, currently on screen.
func (s *State) VisibleContent() geometry.Rect {
	view := geometry.R(0, 0, s.geom.ViewportW, s.geom.ViewportH)
	vis := s.DisplayRect().Intersect(view)
	a := s.cur.Invert(vis.Min())
	b := s.cur.Invert(vis.Max())
	return geometry.R(a.X, a.Y, b.X-a.X, b.Y-a.Y)
}

// ApplyPan translates by (dx, dy) then clamps. It reports whether the transform changed.
func (s *State) ApplyPan(dx, dy float64) bool {
	if !geometry.Finite(dx) || !geometry.Finite(dy) {
		return false
	}
	t := s.cur
	t.TranslateX += dx
	t.TranslateY += dy
	return s.set(t)
}

// ApplyScale scales by factor keeping the viewport point (fx, fy) fixed, then clamps.
// Non-finite and non-positive factors are ignored. Zooming in further is a
// no-op once the scale exceeds the maximum.
func (s *State) ApplyScale(factor, fx, fy float64) bool {
	if !geometry.Finite(factor) || factor <= 0 || !geometry.Finite(fx) || !geometry.Finite(fy) {
		return false
	}
	if s.CurrentScale() > s.limits.Max && factor >= 1 {
		return s.set(s.cur)
	}
	t := s.cur
	t.Scale *= factor
	t.TranslateX = fx - (fx-t.TranslateX)*factor
	t.TranslateY = fy - (fy-t.TranslateY)*factor
	return s.set(t)
}

// ScaleTo is ApplyScale with an absolute target in fixed space.
func (s *State) ScaleTo(target, fx, fy float64) bool {
	cur := s.CurrentScale()
	if cur == 0 {
		return false
	}
	return s.ApplyScale(target/cur, fx, fy)
}

func (s *State) set(t Transform) bool {
	t, es := Correct(t, s.geom, s.eps)
	s.edges = es
	if t == s.cur {
		return false
	}
	s.cur = t
	return true
}

// AlmostEqual compares scales with a relative tolerance.
func AlmostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
