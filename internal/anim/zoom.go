/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package anim

import (
	"math"
	"time"

	"comicview/internal/transform"
)

// DefaultZoomDuration is the length of a double-tap or settle zoom.
const DefaultZoomDuration = 200 * time.Millisecond

// Ease is an accelerate-decelerate curve on [0, 1].
func Ease(t float64) float64 {
	return math.Cos((t+1)*math.Pi)/2 + 0.5
}

// Zoom interpolates the user-facing scale from one value to another around a
// fixed viewport focal point.
type Zoom struct {
	from, to float64
	fx, fy   float64
	dur      time.Duration
	elapsed  time.Duration
	done     bool
}

func NewZoom(from, to, fx, fy float64, dur time.Duration) *Zoom {
	if dur <= 0 {
		dur = DefaultZoomDuration
	}
	return &Zoom{from: from, to: to, fx: fx, fy: fy, dur: dur}
}

// Step advances by dt and returns the absolute scale for this frame. The
// caller turns it into a relative factor against the scale it actually has,
// so edge clamping in between frames does not accumulate drift.
func (z *Zoom) Step(dt time.Duration) (scale float64, done bool) {
	if z.done {
		return z.to, true
	}
	if dt > 0 {
		z.elapsed += dt
	}
	t := float64(z.elapsed) / float64(z.dur)
	if t >= 1 {
		z.done = true
		return z.to, true
	}
	if t < 0 {
		t = 0
	}
	return z.from + Ease(t)*(z.to-z.from), false
}

func (z *Zoom) Focal() (fx, fy float64) { return z.fx, z.fy }
func (z *Zoom) Target() float64         { return z.to }
func (z *Zoom) Cancel()                 { z.done = true }
func (z *Zoom) Done() bool              { return z.done }

// scaleTolerance absorbs float error so a zoom that landed on mid is not
// mistaken for "below mid".
const scaleTolerance = 1e-6

// DoubleTapTarget picks the next scale in the min -> mid -> max -> min cycle.
func DoubleTapTarget(cur float64, l transform.Limits) float64 {
	switch {
	case cur < l.Mid-scaleTolerance:
		return l.Mid
	case cur < l.Max-scaleTolerance:
		return l.Max
	default:
		return l.Min
	}
}
