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
	"math/rand"
	"testing"

	"comicview/internal/geometry"
)

func TestCorrectIsIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		g := Geometry{
			ContentW:  1 + rng.Float64()*400,
			ContentH:  1 + rng.Float64()*400,
			ViewportW: 1 + rng.Float64()*400,
			ViewportH: 1 + rng.Float64()*400,
			Anchor:    AnchorMode(rng.Intn(7)),
		}
		tr := Transform{
			Scale:      0.1 + rng.Float64()*5,
			TranslateX: (rng.Float64() - 0.5) * 2000,
			TranslateY: (rng.Float64() - 0.5) * 2000,
		}
		once, e1 := Correct(tr, g, DefaultEdgeEpsilon)
		twice, e2 := Correct(once, g, DefaultEdgeEpsilon)
		if once != twice || e1 != e2 {
			t.Fatalf("case %d: not idempotent: %+v/%v -> %+v/%v", i, once, e1, twice, e2)
		}
	}
}

func TestCorrectAxisClassification(t *testing.T) {
	g := Geometry{ContentW: 200, ContentH: 50, ViewportW: 100, ViewportH: 100, Anchor: Center}

	// Content wider than viewport and pushed right: snaps to the left edge.
	tr, es := Correct(Transform{Scale: 1, TranslateX: 30, TranslateY: 0}, g, DefaultEdgeEpsilon)
	if tr.TranslateX != 0 || es.Horizontal != EdgeLeft {
		t.Fatalf("expected left snap, got %+v %v", tr, es)
	}
	// Height fits: centered vertically, both edges reachable.
	if tr.TranslateY != 25 || es.Vertical != EdgeBoth {
		t.Fatalf("expected vertical centering, got %+v %v", tr, es)
	}
	// Pulled too far left: trailing edge snaps to the viewport.
	tr, es = Correct(Transform{Scale: 1, TranslateX: -150}, g, DefaultEdgeEpsilon)
	if tr.TranslateX != -100 || es.Horizontal != EdgeRight {
		t.Fatalf("expected right snap, got %+v %v", tr, es)
	}
	// In between: nothing reachable.
	tr, es = Correct(Transform{Scale: 1, TranslateX: -40}, g, DefaultEdgeEpsilon)
	if tr.TranslateX != -40 || es.Horizontal != EdgeNone {
		t.Fatalf("expected no edge, got %+v %v", tr, es)
	}
}

func TestSmallPansLeaveTheEdge(t *testing.T) {
	g := Geometry{ContentW: 200, ContentH: 200, ViewportW: 100, ViewportH: 100, Anchor: CenterInside}
	s := NewState(g, Limits{Min: 1, Mid: 2, Max: 4}, DefaultEdgeEpsilon)
	s.ScaleTo(2, 50, 50)
	s.ApplyPan(1000, 0)
	if tx := s.Transform().TranslateX; tx != 0 {
		t.Fatalf("expected to sit on the left edge, tx=%v", tx)
	}
	for i := 0; i < 20; i++ {
		if !s.ApplyPan(-0.5, 0) {
			t.Fatalf("step %d: pan below the edge epsilon was dropped", i)
		}
	}
	if tx := s.Transform().TranslateX; math.Abs(tx+10) > 1e-9 {
		t.Fatalf("20 half-pixel pans should add up to -10, got %v", tx)
	}
	if e := s.Edges(); e.Horizontal != EdgeNone {
		t.Fatalf("10px off the edge should classify as none, got %v", e)
	}

	// Within eps of the edge the flag is set but the offset is kept.
	tr, es := Correct(Transform{Scale: 1, TranslateX: -0.4}, Geometry{ContentW: 200, ContentH: 100, ViewportW: 100, ViewportH: 100}, DefaultEdgeEpsilon)
	if tr.TranslateX != -0.4 || es.Horizontal != EdgeLeft {
		t.Fatalf("near-edge offset should be kept and flagged left, got %+v %v", tr, es)
	}
}

func TestCorrectHonoursFitBias(t *testing.T) {
	g := Geometry{ContentW: 50, ContentH: 50, ViewportW: 100, ViewportH: 100, Anchor: FitEnd}
	tr, _ := Correct(Transform{Scale: 1}, g, DefaultEdgeEpsilon)
	if tr.TranslateX != 50 || tr.TranslateY != 50 {
		t.Fatalf("FitEnd should pin to the trailing edge: %+v", tr)
	}
	g.Anchor = FitStart
	tr, _ = Correct(Transform{Scale: 1, TranslateX: 20, TranslateY: 20}, g, DefaultEdgeEpsilon)
	if tr.TranslateX != 0 || tr.TranslateY != 0 {
		t.Fatalf("FitStart should pin to the leading edge: %+v", tr)
	}
}

func TestEdgeGating(t *testing.T) {
	g := Geometry{ContentW: 200, ContentH: 200, ViewportW: 100, ViewportH: 100, Anchor: CenterInside}
	s := NewState(g, Limits{Min: 1, Mid: 2, Max: 4}, DefaultEdgeEpsilon)
	if s.Transform().Scale != 0.5 {
		t.Fatalf("CenterInside scale = %v, want 0.5", s.Transform().Scale)
	}
	if e := s.Edges(); e.Horizontal != EdgeBoth || e.Vertical != EdgeBoth {
		t.Fatalf("fully zoomed out should be both/both, got %v", e)
	}
	s.ScaleTo(2, 50, 50)
	if !AlmostEqual(s.CurrentScale(), 2) {
		t.Fatalf("CurrentScale = %v, want 2", s.CurrentScale())
	}
	s.ApplyPan(1000, 0)
	if e := s.Edges(); e.Horizontal != EdgeLeft {
		t.Fatalf("after panning to the left edge got %v", e)
	}
}

func TestFocalInvariance(t *testing.T) {
	g := Geometry{ContentW: 1000, ContentH: 1000, ViewportW: 100, ViewportH: 100, Anchor: Center}
	s := NewState(g, Limits{Min: 0.5, Mid: 1, Max: 8}, DefaultEdgeEpsilon)
	s.ApplyPan(-400, -400) // away from the edges
	fx, fy := 37.0, 61.0
	before := s.Transform().Invert(geometry.Pt{X: fx, Y: fy})
	for _, f := range []float64{1.1, 0.9, 1.5, 0.75} {
		if !s.ApplyScale(f, fx, fy) {
			t.Fatalf("ApplyScale(%v) changed nothing", f)
		}
		p := s.Transform().Apply(before)
		if math.Abs(p.X-fx) > 1e-9 || math.Abs(p.Y-fy) > 1e-9 {
			t.Fatalf("factor %v moved focal content point to %+v", f, p)
		}
	}
}

func TestApplyScaleRejectsBadFactors(t *testing.T) {
	g := Geometry{ContentW: 100, ContentH: 100, ViewportW: 100, ViewportH: 100, Anchor: Center}
	s := NewState(g, DefaultLimits, DefaultEdgeEpsilon)
	before := s.Transform()
	for _, f := range []float64{math.NaN(), math.Inf(1), -2, 0} {
		if s.ApplyScale(f, 50, 50) || s.Transform() != before {
			t.Fatalf("factor %v should be ignored", f)
		}
	}
}

func TestApplyScaleStopsAboveMax(t *testing.T) {
	g := Geometry{ContentW: 100, ContentH: 100, ViewportW: 100, ViewportH: 100, Anchor: Center}
	s := NewState(g, Limits{Min: 1, Mid: 1.5, Max: 2}, DefaultEdgeEpsilon)
	s.ApplyScale(2.5, 50, 50)
	over := s.CurrentScale()
	if over <= 2 {
		t.Fatalf("a single pinch step may overshoot max, got %v", over)
	}
	s.ApplyScale(1.2, 50, 50)
	if s.CurrentScale() != over {
		t.Fatalf("zooming in above max should be a no-op, got %v", s.CurrentScale())
	}
	s.ApplyScale(0.5, 50, 50)
	if s.CurrentScale() >= over {
		t.Fatalf("zooming out above max must still work")
	}
}

func TestRelayoutResetsFix(t *testing.T) {
	g := Geometry{ContentW: 200, ContentH: 200, ViewportW: 100, ViewportH: 100, Anchor: CenterInside}
	s := NewState(g, DefaultLimits, DefaultEdgeEpsilon)
	s.ScaleTo(2, 50, 50)
	g.ContentW, g.ContentH = 400, 400
	s.SetGeometry(g)
	if s.CurrentScale() != 1 || s.Transform().Scale != 0.25 {
		t.Fatalf("relayout should reset to 1.0 at raw 0.25, got %v raw %v", s.CurrentScale(), s.Transform().Scale)
	}
}

func TestVisibleContent(t *testing.T) {
	g := Geometry{ContentW: 400, ContentH: 400, ViewportW: 100, ViewportH: 100, Anchor: Center}
	s := NewState(g, DefaultLimits, DefaultEdgeEpsilon)
	v := s.VisibleContent()
	if v.X != 150 || v.Y != 150 || v.W != 100 || v.H != 100 {
		t.Fatalf("unexpected visible region %+v", v)
	}
}
