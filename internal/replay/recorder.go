/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package replay

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"comicview/internal/gesture"
	"comicview/internal/viewer"
)

// DefaultRecorderLimit bounds the number of steps a Recorder keeps.
const DefaultRecorderLimit = 10000

// Recorder forwards input to a controller and keeps the most recent steps
// as a Script. Older steps are folded into the script header where they
// carry geometry, and dropped otherwise.
type Recorder struct {
	c     *viewer.Controller
	limit int

	mu     sync.Mutex // CrashSnapshot may run on another goroutine
	script Script
	start  time.Duration
}

func NewRecorder(c *viewer.Controller, limit int) *Recorder {
	if limit <= 0 {
		limit = DefaultRecorderLimit
	}
	l := c.Limits()
	cw, ch := c.ContentSize()
	vw, vh := c.ViewportSize()
	return &Recorder{
		c:     c,
		limit: limit,
		start: c.Clock(),
		script: Script{
			Content:  Size{W: cw, H: ch},
			Viewport: Size{W: vw, H: vh},
			Anchor:   c.Anchor().String(),
			Limits:   &Limits{Min: l.Min, Mid: l.Mid, Max: l.Max},
		},
	}
}

func (r *Recorder) Controller() *viewer.Controller { return r.c }

func (r *Recorder) record(st Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.script.Steps = append(r.script.Steps, st)
	if over := len(r.script.Steps) - r.limit; over > 0 {
		for _, old := range r.script.Steps[:over] {
			switch old.Action {
			case "content":
				r.script.Content = Size{W: old.W, H: old.H}
			case "viewport":
				r.script.Viewport = Size{W: old.W, H: old.H}
			}
		}
		r.script.Steps = append(r.script.Steps[:0], r.script.Steps[over:]...)
	}
}

func (r *Recorder) OnPointerEvent(ev gesture.PointerEvent) []viewer.Event {
	out := r.c.OnPointerEvent(ev)
	at := 0
	if ev.Time > r.start {
		at = int((ev.Time - r.start) / time.Millisecond)
	}
	r.record(Step{Action: ev.Action.String(), ID: ev.ID, X: ev.X, Y: ev.Y, At: at})
	return out
}

func (r *Recorder) OnFrameTick(elapsed time.Duration) []viewer.Event {
	out := r.c.OnFrameTick(elapsed)
	ms := int(elapsed / time.Millisecond)
	r.mu.Lock()
	n := len(r.script.Steps)
	if n > 0 && r.script.Steps[n-1].Action == "tick" && r.script.Steps[n-1].Ms == ms {
		// runs of equal frames collapse into one step
		r.script.Steps[n-1].Repeat = max(r.script.Steps[n-1].Repeat, 1) + 1
		r.mu.Unlock()
		return out
	}
	r.mu.Unlock()
	r.record(Step{Action: "tick", Ms: ms})
	return out
}

func (r *Recorder) OnScroll(notches, x, y float64) []viewer.Event {
	out := r.c.OnScroll(notches, x, y)
	if notches != 0 {
		r.record(Step{Action: "scroll", Notches: notches, X: x, Y: y})
	}
	return out
}

func (r *Recorder) SetContentGeometry(w, h float64) ([]viewer.Event, error) {
	out, err := r.c.SetContentGeometry(w, h)
	if err == nil {
		r.record(Step{Action: "content", W: w, H: h})
	}
	return out, err
}

func (r *Recorder) SetViewportGeometry(w, h float64) ([]viewer.Event, error) {
	out, err := r.c.SetViewportGeometry(w, h)
	if err == nil {
		r.record(Step{Action: "viewport", W: w, H: h})
	}
	return out, err
}

func (r *Recorder) SetScale(scale, fx, fy float64, animate bool) ([]viewer.Event, error) {
	out, err := r.c.SetScale(scale, fx, fy, animate)
	if err == nil {
		r.record(Step{Action: "scale", Scale: &scale, X: fx, Y: fy, Animate: animate})
	}
	return out, err
}

func (r *Recorder) CenterOn(x, y float64) ([]viewer.Event, error) {
	out, err := r.c.CenterOn(x, y)
	if err == nil {
		r.record(Step{Action: "center", X: x, Y: y})
	}
	return out, err
}

// Script returns a copy of what has been recorded so far.
func (r *Recorder) Script() Script {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.script
	s.Steps = append([]Step(nil), r.script.Steps...)
	if r.script.Limits != nil {
		l := *r.script.Limits
		s.Limits = &l
	}
	return s
}

// CrashSnapshot writes the recorded session as replay-<stamp>.yaml in dir.
func (r *Recorder) CrashSnapshot(dir string) (string, error) {
	data, err := r.Script().Marshal()
	if err != nil {
		return "", fmt.Errorf("encode replay: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("replay-%s.yaml", time.Now().Format("20060102-150405")))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
