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
	"time"

	"comicview/internal/geometry"
)

// phase of the current touch session.
type phase uint8

const (
	idle phase = iota
	pressed
	dragging
	pinching
)

func (p phase) String() string {
	return [...]string{"idle", "pressed", "dragging", "pinching"}[p]
}

type pointer struct {
	id  int
	pos geometry.Pt
}

type pendingTap struct {
	pos geometry.Pt
	up  time.Duration
}

// Recognizer is a single-session state machine. It is not safe for concurrent use;
// the host feeds it from its UI thread.
type Recognizer struct {
	cfg Config
	now time.Duration

	ptrs  []pointer // in down order
	phase phase

	downPos     geometry.Pt
	downTime    time.Duration
	last        geometry.Pt
	longPressed bool

	prevDist float64
	focal    geometry.Pt

	vt      velocityTracker
	pending *pendingTap // a tap waiting for the double-tap window
}

func NewRecognizer(cfg Config) *Recognizer {
	cfg = cfg.withDefaults()
	return &Recognizer{cfg: cfg, vt: velocityTracker{window: cfg.VelocityWindow}}
}

func (r *Recognizer) Config() Config { return r.cfg }

// Active reports whether any pointer is down.
func (r *Recognizer) Active() bool { return len(r.ptrs) > 0 }

// Pinching reports whether the session has turned into a pinch. It stays true
// until every pointer is released.
func (r *Recognizer) Pinching() bool { return r.phase == pinching }

// Phase names the current state for logging.
func (r *Recognizer) Phase() string { return r.phase.String() }

// Reset drops the session and any pending tap without emitting anything.
func (r *Recognizer) Reset() {
	r.ptrs = r.ptrs[:0]
	r.phase = idle
	r.pending = nil
	r.vt.reset()
}

// Feed processes one event and returns the gestures it completes.
func (r *Recognizer) Feed(ev PointerEvent) []Gesture {
	if ev.Time > r.now {
		r.now = ev.Time
	}
	out := r.expire(nil)
	p := geometry.Pt{X: ev.X, Y: ev.Y}
	switch ev.Action {
	case Down:
		out = r.down(ev.ID, p, out)
	case Move:
		out = r.move(ev.ID, p, out)
	case Up:
		out = r.up(ev.ID, p, out)
	case Cancel:
		out = r.cancel(out)
	}
	return out
}

// Tick advances time without input. It delivers long presses and single taps
// whose double-tap window has closed.
func (r *Recognizer) Tick(now time.Duration) []Gesture {
	if now > r.now {
		r.now = now
	}
	return r.expire(nil)
}

func (r *Recognizer) expire(out []Gesture) []Gesture {
	if r.phase == pressed && !r.longPressed && r.now-r.downTime >= r.cfg.LongPressTimeout {
		r.longPressed = true
		r.pending = nil
		out = append(out, Gesture{Kind: LongPress, X: r.downPos.X, Y: r.downPos.Y})
	}
	if r.pending != nil && len(r.ptrs) == 0 && r.now-r.pending.up > r.cfg.DoubleTapTimeout {
		out = append(out, Gesture{Kind: Tap, X: r.pending.pos.X, Y: r.pending.pos.Y})
		r.pending = nil
	}
	return out
}

func (r *Recognizer) indexOf(id int) int {
	for i, p := range r.ptrs {
		if p.id == id {
			return i
		}
	}
	return -1
}

func (r *Recognizer) down(id int, p geometry.Pt, out []Gesture) []Gesture {
	if r.indexOf(id) >= 0 {
		return out
	}
	r.ptrs = append(r.ptrs, pointer{id: id, pos: p})
	if len(r.ptrs) == 1 {
		if pd := r.pending; pd != nil && (r.now-pd.up > r.cfg.DoubleTapTimeout || geometry.Dist(p, pd.pos) > r.cfg.DoubleTapSlop) {
			out = append(out, Gesture{Kind: Tap, X: pd.pos.X, Y: pd.pos.Y})
			r.pending = nil
		}
		r.phase = pressed
		r.downPos = p
		r.downTime = r.now
		r.last = p
		r.longPressed = false
		r.vt.reset()
		r.vt.add(r.now, p)
		return out
	}
	// A second pointer always turns the session into a pinch.
	r.phase = pinching
	r.pending = nil
	r.resetPinch()
	return out
}

func (r *Recognizer) resetPinch() {
	a, b := r.ptrs[0].pos, r.ptrs[1].pos
	r.prevDist = geometry.Dist(a, b)
	r.focal = geometry.Mid(a, b)
}

func (r *Recognizer) move(id int, p geometry.Pt, out []Gesture) []Gesture {
	i := r.indexOf(id)
	if i < 0 {
		return out
	}
	r.ptrs[i].pos = p

	switch r.phase {
	case pressed:
		if geometry.Dist(p, r.downPos) < r.cfg.TouchSlop {
			return out
		}
		r.phase = dragging
		r.pending = nil
		return r.pan(p, out)
	case dragging:
		return r.pan(p, out)
	case pinching:
		if len(r.ptrs) < 2 || i > 1 {
			return out
		}
		a, b := r.ptrs[0].pos, r.ptrs[1].pos
		d := geometry.Dist(a, b)
		r.focal = geometry.Mid(a, b)
		if r.prevDist > 0 && d > 0 {
			out = append(out, Gesture{Kind: Scale, X: r.focal.X, Y: r.focal.Y, Factor: d / r.prevDist})
		}
		if d > 0 {
			r.prevDist = d
		}
	}
	return out
}

// pan emits the delta from the last reported position. The first pan after
// crossing the slop includes the distance travelled while inside it.
func (r *Recognizer) pan(p geometry.Pt, out []Gesture) []Gesture {
	dx, dy := p.X-r.last.X, p.Y-r.last.Y
	r.last = p
	r.vt.add(r.now, p)
	if dx == 0 && dy == 0 {
		return out
	}
	return append(out, Gesture{Kind: Pan, X: p.X, Y: p.Y, DX: dx, DY: dy})
}

func (r *Recognizer) up(id int, p geometry.Pt, out []Gesture) []Gesture {
	i := r.indexOf(id)
	if i < 0 {
		return out
	}
	r.ptrs = append(r.ptrs[:i], r.ptrs[i+1:]...)

	switch r.phase {
	case pinching:
		switch {
		case len(r.ptrs) >= 2:
			r.resetPinch()
		case len(r.ptrs) == 1:
			out = append(out, Gesture{Kind: ScaleEnd, X: r.focal.X, Y: r.focal.Y})
		}
	case dragging:
		// the lift point may differ from the last move
		out = r.pan(p, out)
		vx, vy := r.vt.velocity(r.now)
		speed := math.Hypot(vx, vy)
		if speed >= r.cfg.MinFlingVelocity {
			if speed > r.cfg.MaxFlingVelocity {
				k := r.cfg.MaxFlingVelocity / speed
				vx, vy = vx*k, vy*k
			}
			out = append(out, Gesture{Kind: Fling, X: p.X, Y: p.Y, VX: vx, VY: vy})
		}
	case pressed:
		if r.longPressed || r.now-r.downTime > r.cfg.TapTimeout {
			r.pending = nil
			break
		}
		if pd := r.pending; pd != nil && r.downTime-pd.up <= r.cfg.DoubleTapTimeout && geometry.Dist(r.downPos, pd.pos) <= r.cfg.DoubleTapSlop {
			r.pending = nil
			out = append(out, Gesture{Kind: DoubleTap, X: p.X, Y: p.Y})
			break
		}
		r.pending = &pendingTap{pos: p, up: r.now}
	}
	if len(r.ptrs) == 0 {
		r.phase = idle
	}
	return out
}

func (r *Recognizer) cancel(out []Gesture) []Gesture {
	if r.phase == pinching && len(r.ptrs) >= 2 {
		out = append(out, Gesture{Kind: ScaleEnd, X: r.focal.X, Y: r.focal.Y})
	}
	r.Reset()
	return out
}
