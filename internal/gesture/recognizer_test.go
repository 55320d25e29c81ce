/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package gesture

import (
	"math"
	"testing"
	"time"
)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func ev(a Action, id int, x, y float64, at int) PointerEvent {
	return PointerEvent{Action: a, ID: id, X: x, Y: y, Time: ms(at)}
}

func kinds(gs []Gesture) []Kind {
	out := make([]Kind, len(gs))
	for i, g := range gs {
		out[i] = g.Kind
	}
	return out
}

func feedAll(r *Recognizer, evs ...PointerEvent) []Gesture {
	var out []Gesture
	for _, e := range evs {
		out = append(out, r.Feed(e)...)
	}
	return out
}

func TestPanAfterSlop(t *testing.T) {
	r := NewRecognizer(Config{})
	out := feedAll(r,
		ev(Down, 1, 100, 100, 0),
		ev(Move, 1, 103, 100, 10), // inside slop
	)
	if len(out) != 0 {
		t.Fatalf("no gesture expected inside slop, got %v", kinds(out))
	}
	out = r.Feed(ev(Move, 1, 112, 100, 20))
	if len(out) != 1 || out[0].Kind != Pan || out[0].DX != 12 || out[0].DY != 0 {
		t.Fatalf("expected first pan to include slop travel, got %+v", out)
	}
	out = r.Feed(ev(Move, 1, 120, 95, 30))
	if len(out) != 1 || out[0].DX != 8 || out[0].DY != -5 {
		t.Fatalf("unexpected pan delta %+v", out)
	}
}

func TestFlingAndNoFlingWhenStopped(t *testing.T) {
	r := NewRecognizer(Config{})
	out := feedAll(r,
		ev(Down, 1, 0, 0, 0),
		ev(Move, 1, 20, 0, 16),
		ev(Move, 1, 40, 0, 32),
		ev(Move, 1, 60, 0, 48),
		ev(Up, 1, 80, 0, 64),
	)
	last := out[len(out)-1]
	if last.Kind != Fling {
		t.Fatalf("expected fling, got %v", kinds(out))
	}
	if math.Abs(last.VX-1250) > 1 || last.VY != 0 {
		t.Fatalf("unexpected fling velocity %v,%v", last.VX, last.VY)
	}

	// Pointer rests before lifting: no fling.
	out = feedAll(r,
		ev(Down, 1, 0, 0, 1000),
		ev(Move, 1, 50, 0, 1016),
		ev(Up, 1, 50, 0, 1300),
	)
	for _, g := range out {
		if g.Kind == Fling {
			t.Fatalf("no fling expected after resting, got %+v", g)
		}
	}
}

func TestLiftPositionIsPanned(t *testing.T) {
	r := NewRecognizer(Config{})
	out := feedAll(r,
		ev(Down, 1, 0, 0, 0),
		ev(Move, 1, 20, 0, 10),
		ev(Up, 1, 26, 3, 400),
	)
	dx, dy := 0.0, 0.0
	for _, g := range out {
		if g.Kind == Pan {
			dx += g.DX
			dy += g.DY
		}
	}
	if dx != 26 || dy != 3 {
		t.Fatalf("pans should add up to the lift point, got %v,%v from %v", dx, dy, kinds(out))
	}
	if out[len(out)-1].Kind != Pan {
		t.Fatalf("slow lift should end with a pan and no fling, got %v", kinds(out))
	}
}

func TestFlingVelocityIsCapped(t *testing.T) {
	r := NewRecognizer(Config{MaxFlingVelocity: 1000})
	out := feedAll(r,
		ev(Down, 1, 0, 0, 0),
		ev(Move, 1, 300, 400, 10),
		ev(Up, 1, 600, 800, 20),
	)
	last := out[len(out)-1]
	if last.Kind != Fling || math.Abs(math.Hypot(last.VX, last.VY)-1000) > 1e-6 {
		t.Fatalf("expected capped fling, got %+v", last)
	}
}

func TestPinchEmitsScaleAndIgnoresTrailingPointer(t *testing.T) {
	r := NewRecognizer(Config{})
	out := feedAll(r,
		ev(Down, 1, 100, 100, 0),
		ev(Down, 2, 200, 100, 5),
		ev(Move, 2, 300, 100, 20),
	)
	if len(out) != 1 || out[0].Kind != Scale || out[0].Factor != 2 || out[0].X != 200 || out[0].Y != 100 {
		t.Fatalf("unexpected pinch output %+v", out)
	}
	if !r.Pinching() {
		t.Fatalf("expected pinching")
	}
	out = r.Feed(ev(Up, 2, 300, 100, 30))
	if len(out) != 1 || out[0].Kind != ScaleEnd {
		t.Fatalf("lifting one finger should end the scale, got %v", kinds(out))
	}
	// The remaining finger moves: not a pan.
	out = feedAll(r, ev(Move, 1, 160, 130, 40), ev(Move, 1, 220, 160, 50))
	if len(out) != 0 {
		t.Fatalf("single pointer after pinch must not pan, got %v", kinds(out))
	}
	out = r.Feed(ev(Up, 1, 220, 160, 60))
	if len(out) != 0 || r.Active() || r.Pinching() {
		t.Fatalf("session should end quietly, got %v", kinds(out))
	}
}

func TestSingleTapIsDeferred(t *testing.T) {
	r := NewRecognizer(Config{})
	out := feedAll(r, ev(Down, 1, 10, 10, 0), ev(Up, 1, 11, 10, 50))
	if len(out) != 0 {
		t.Fatalf("tap must wait for the double-tap window, got %v", kinds(out))
	}
	if out := r.Tick(ms(200)); len(out) != 0 {
		t.Fatalf("window still open, got %v", kinds(out))
	}
	out = r.Tick(ms(400))
	if len(out) != 1 || out[0].Kind != Tap || out[0].X != 11 {
		t.Fatalf("expected deferred tap, got %+v", out)
	}
}

func TestDoubleTapConsumesTaps(t *testing.T) {
	r := NewRecognizer(Config{})
	out := feedAll(r,
		ev(Down, 1, 50, 50, 0), ev(Up, 1, 50, 50, 40),
		ev(Down, 1, 55, 52, 120), ev(Up, 1, 55, 52, 160),
	)
	if len(out) != 1 || out[0].Kind != DoubleTap || out[0].X != 55 {
		t.Fatalf("expected one double tap, got %+v", out)
	}
	if out := r.Tick(ms(2000)); len(out) != 0 {
		t.Fatalf("no single taps may follow a double tap, got %v", kinds(out))
	}
}

func TestTapsTooFarApartAreSingle(t *testing.T) {
	r := NewRecognizer(Config{})
	out := feedAll(r,
		ev(Down, 1, 0, 0, 0), ev(Up, 1, 0, 0, 40),
		ev(Down, 1, 300, 300, 120), ev(Up, 1, 300, 300, 160),
	)
	if len(out) != 1 || out[0].Kind != Tap || out[0].X != 0 {
		t.Fatalf("first tap should flush on the distant second press, got %+v", out)
	}
	out = r.Tick(ms(1000))
	if len(out) != 1 || out[0].Kind != Tap || out[0].X != 300 {
		t.Fatalf("second tap should be delivered on expiry, got %+v", out)
	}
}

func TestLongPress(t *testing.T) {
	r := NewRecognizer(Config{})
	r.Feed(ev(Down, 1, 30, 40, 0))
	out := r.Tick(ms(600))
	if len(out) != 1 || out[0].Kind != LongPress || out[0].X != 30 || out[0].Y != 40 {
		t.Fatalf("expected long press, got %+v", out)
	}
	out = r.Feed(ev(Up, 1, 30, 40, 700))
	out = append(out, r.Tick(ms(2000))...)
	if len(out) != 0 {
		t.Fatalf("no tap after long press, got %v", kinds(out))
	}
}

func TestCancelDropsSession(t *testing.T) {
	r := NewRecognizer(Config{})
	out := feedAll(r,
		ev(Down, 1, 0, 0, 0),
		ev(Move, 1, 50, 0, 10),
		ev(Cancel, 1, 0, 0, 20),
	)
	for _, g := range out {
		if g.Kind == Fling || g.Kind == Tap {
			t.Fatalf("cancel must not emit %v", g.Kind)
		}
	}
	if r.Active() {
		t.Fatalf("session should be gone")
	}
	r.Feed(ev(Down, 1, 0, 0, 100))
	r.Feed(ev(Down, 2, 100, 0, 105))
	out = r.Feed(ev(Cancel, 0, 0, 0, 110))
	if len(out) != 1 || out[0].Kind != ScaleEnd {
		t.Fatalf("cancelling a pinch should end the scale, got %v", kinds(out))
	}
}
