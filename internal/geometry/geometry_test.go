/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import (
	"math"
	"testing"
)

func TestRectContainsAndIntersect(t *testing.T) {
	r := R(10, 20, 100, 50)
	if !r.Contains(Pt{10, 20}) || !r.Contains(Pt{110, 70}) {
		t.Fatalf("expected edge points to be contained")
	}
	in := r.Intersect(R(60, 0, 100, 40))
	if in.X != 60 || in.Y != 20 || in.W != 50 || in.H != 20 {
		t.Fatalf("unexpected intersection: %+v", in)
	}
	if e := r.Intersect(R(500, 500, 1, 1)); e.W != 0 || e.H != 0 {
		t.Fatalf("expected empty intersection, got %+v", e)
	}
}

func TestGeomRect(t *testing.T) {
	g := R(1, 2, 3, 4).Geom()
	if g.LLx != 1 || g.LLy != 2 || g.URx != 4 || g.URy != 6 {
		t.Fatalf("unexpected geom rect: %+v", g)
	}
}

func TestDistMidFinite(t *testing.T) {
	if d := Dist(Pt{0, 0}, Pt{3, 4}); d != 5 {
		t.Fatalf("Dist = %v, want 5", d)
	}
	if m := Mid(Pt{0, 0}, Pt{10, 20}); m.X != 5 || m.Y != 10 {
		t.Fatalf("Mid = %+v", m)
	}
	if Finite(math.NaN()) || Finite(math.Inf(1)) || !Finite(1.5) {
		t.Fatalf("Finite misclassified a value")
	}
	if Clamp(5, 0, 2) != 2 || Clamp(-1, 0, 2) != 0 || Clamp(1, 0, 2) != 1 {
		t.Fatalf("Clamp out of range")
	}
}
