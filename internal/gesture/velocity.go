/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package gesture

import (
	"time"

	"comicview/internal/geometry"
)

type sample struct {
	t time.Duration
	p geometry.Pt
}

// velocityTracker estimates pointer velocity from the samples inside a
// trailing time window.
type velocityTracker struct {
	window  time.Duration
	samples []sample
}

func (v *velocityTracker) reset() { v.samples = v.samples[:0] }

func (v *velocityTracker) add(t time.Duration, p geometry.Pt) {
	v.samples = append(v.samples, sample{t: t, p: p})
	// drop samples that fell out of the window, keeping the newest
	cut := 0
	for cut < len(v.samples)-1 && t-v.samples[cut].t > v.window {
		cut++
	}
	if cut > 0 {
		v.samples = append(v.samples[:0], v.samples[cut:]...)
	}
}

// velocity returns pixels per second between the oldest sample still inside
// the window and the newest one.
func (v *velocityTracker) velocity(now time.Duration) (vx, vy float64) {
	if len(v.samples) < 2 {
		return 0, 0
	}
	last := v.samples[len(v.samples)-1]
	for _, s := range v.samples {
		if now-s.t > v.window {
			continue
		}
		dt := (last.t - s.t).Seconds()
		if dt <= 0 {
			return 0, 0
		}
		return (last.p.X - s.p.X) / dt, (last.p.Y - s.p.Y) / dt
	}
	return 0, 0
}
