/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package anim holds the two frame-stepped animators used by the viewer:
// a decelerating fling and an eased zoom. Neither owns a clock or a timer;
// the caller advances them with the elapsed time of each frame.
package anim

import (
	"math"
	"time"

	"comicview/internal/geometry"
	"comicview/internal/transform"
)

// DefaultDeceleration is the fling deceleration in viewport pixels per second squared.
const DefaultDeceleration = 2000.0

// flingAxis integrates p(t) = start + v*t - sign(v)*a*t^2/2 inside [lo, hi].
type flingAxis struct {
	start, v, a float64
	lo, hi      float64
	stop        float64 // seconds until v reaches zero
	pos         float64
	done        bool
}

func newFlingAxis(offset, extent, view, v, a float64) flingAxis {
	lo, hi := transform.ScrollRange(offset, extent, view)
	// a corrected transform already sits inside the range; widen rather than jump if it does not
	lo, hi = math.Min(lo, offset), math.Max(hi, offset)
	ax := flingAxis{start: offset, v: v, a: a, lo: lo, hi: hi, pos: offset}
	if v == 0 || lo == hi || a <= 0 {
		ax.done = true
		return ax
	}
	ax.stop = math.Abs(v) / a
	return ax
}

func (ax *flingAxis) at(t float64) float64 {
	if t > ax.stop {
		t = ax.stop
	}
	dir := 1.0
	if ax.v < 0 {
		dir = -1
	}
	return geometry.Clamp(ax.start+ax.v*t-dir*ax.a*t*t/2, ax.lo, ax.hi)
}

// advance moves to time t and returns the delta since the previous call.
func (ax *flingAxis) advance(t float64) float64 {
	if ax.done {
		return 0
	}
	p := ax.at(t)
	d := p - ax.pos
	ax.pos = p
	if t >= ax.stop || (ax.v > 0 && p >= ax.hi) || (ax.v < 0 && p <= ax.lo) {
		ax.done = true
	}
	return d
}

// Fling decelerates a release velocity to rest, per axis, without leaving
// the legal scroll range of the displayed content.
type Fling struct {
	x, y      flingAxis
	elapsed   time.Duration
	cancelled bool
}

// NewFling starts a fling of the content currently displayed at display inside
// a viewW x viewH viewport. Velocities are in viewport pixels per second and
// move the content in the same direction as the finger. A non-positive decel
// uses DefaultDeceleration.
func NewFling(vx, vy float64, display geometry.Rect, viewW, viewH, decel float64) *Fling {
	if decel <= 0 || !geometry.Finite(decel) {
		decel = DefaultDeceleration
	}
	if !geometry.Finite(vx) {
		vx = 0
	}
	if !geometry.Finite(vy) {
		vy = 0
	}
	return &Fling{
		x: newFlingAxis(display.X, display.W, viewW, vx, decel),
		y: newFlingAxis(display.Y, display.H, viewH, vy, decel),
	}
}

// Step advances the fling by dt and returns the translation delta for this
// frame. done is true once both axes rest or the fling was cancelled.
func (f *Fling) Step(dt time.Duration) (dx, dy float64, done bool) {
	if f.Done() {
		return 0, 0, true
	}
	if dt > 0 {
		f.elapsed += dt
	}
	t := f.elapsed.Seconds()
	dx = f.x.advance(t)
	dy = f.y.advance(t)
	return dx, dy, f.Done()
}

// Cancel drops every remaining frame.
func (f *Fling) Cancel() { f.cancelled = true }

func (f *Fling) Done() bool { return f.cancelled || (f.x.done && f.y.done) }

// Rest returns where the leading edges will come to rest.
func (f *Fling) Rest() geometry.Pt {
	return geometry.Pt{X: f.x.at(f.x.stop), Y: f.y.at(f.y.stop)}
}
