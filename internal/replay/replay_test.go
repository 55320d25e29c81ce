/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package replay

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"comicview/internal/gesture"
	applog "comicview/internal/log"
	"comicview/internal/viewer"
)

func quietOptions() viewer.Options {
	o := viewer.DefaultOptions()
	o.Logger = applog.Discard()
	return o
}

const doubleTapCycle = `
content: {w: 200, h: 200}
viewport: {w: 100, h: 100}
anchor: fit_center
limits: {min: 1, mid: 1.5, max: 2.5}
steps:
  - {action: down, id: 1, x: 50, y: 50}
  - {action: up, id: 1, x: 50, y: 50}
  - {action: down, id: 1, x: 50, y: 50}
  - {action: up, id: 1, x: 50, y: 50}
  - {action: tick, ms: 16, repeat: 20}
  - {action: expect, scale: 1.5}
  - {action: down, id: 1, x: 50, y: 50}
  - {action: up, id: 1, x: 50, y: 50}
  - {action: down, id: 1, x: 50, y: 50}
  - {action: up, id: 1, x: 50, y: 50}
  - {action: tick, ms: 16, repeat: 20}
  - {action: expect, scale: 2.5}
  - {action: down, id: 1, x: 50, y: 50}
  - {action: up, id: 1, x: 50, y: 50}
  - {action: down, id: 1, x: 50, y: 50}
  - {action: up, id: 1, x: 50, y: 50}
  - {action: tick, ms: 16, repeat: 20}
  - {action: expect, scale: 1, tx: 0, ty: 0}
`

func TestRunDoubleTapCycle(t *testing.T) {
	s, err := Parse([]byte(doubleTapCycle))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var settled []float64
	c, err := Run(s, quietOptions(), func(_ int, ev viewer.Event) {
		if e, ok := ev.(viewer.ScaleSettled); ok {
			settled = append(settled, e.Scale)
		}
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(settled) != 3 || math.Abs(settled[2]-1) > 1e-6 {
		t.Fatalf("settled scales %v", settled)
	}
	if c.Limits().Max != 2.5 {
		t.Fatalf("script limits not applied: %+v", c.Limits())
	}
}

func TestRunReportsFailedExpectation(t *testing.T) {
	s, err := Parse([]byte(`
content: {w: 100, h: 100}
viewport: {w: 100, h: 100}
steps:
  - {action: scroll, notches: 1, x: 50, y: 50}
  - {action: expect, scale: 2}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, err = Run(s, quietOptions(), nil)
	if !errors.Is(err, ErrExpectation) || !strings.Contains(err.Error(), "step 2") {
		t.Fatalf("want expectation failure at step 2, got %v", err)
	}
}

func TestRunStopsOnRejectedConfiguration(t *testing.T) {
	s, err := Parse([]byte(`
content: {w: 100, h: 100}
viewport: {w: 100, h: 100}
steps:
  - {action: viewport, w: 0, h: 50}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := Run(s, quietOptions(), nil); err == nil {
		t.Fatalf("zero viewport must fail the run")
	}
}

func TestParseRejectsBadScripts(t *testing.T) {
	for name, body := range map[string]string{
		"not yaml":       "steps: [",
		"unknown action": "steps:\n  - {action: wiggle}\n",
		"bad anchor":     "anchor: diagonal\nsteps: []\n",
		"empty expect":   "steps:\n  - {action: expect}\n",
		"scale no value": "steps:\n  - {action: scale, x: 1}\n",
	} {
		if _, err := Parse([]byte(body)); !errors.Is(err, ErrBadScript) {
			t.Fatalf("%s: want ErrBadScript, got %v", name, err)
		}
	}
}

func TestRecorderRoundTrip(t *testing.T) {
	c, err := viewer.New(quietOptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec := NewRecorder(c, 0)
	if _, err := rec.SetContentGeometry(300, 300); err != nil {
		t.Fatalf("content: %v", err)
	}
	if _, err := rec.SetViewportGeometry(100, 100); err != nil {
		t.Fatalf("viewport: %v", err)
	}
	rec.OnScroll(3, 20, 30)
	for _, ev := range []gesture.PointerEvent{
		{Action: gesture.Down, ID: 1, X: 50, Y: 50},
		{Action: gesture.Move, ID: 1, X: 30, Y: 40},
		{Action: gesture.Move, ID: 1, X: 10, Y: 35},
		{Action: gesture.Up, ID: 1, X: 10, Y: 35},
	} {
		rec.OnPointerEvent(ev)
	}
	for i := 0; i < 5; i++ {
		rec.OnFrameTick(16 * time.Millisecond)
	}

	s := rec.Script()
	if last := s.Steps[len(s.Steps)-1]; last.Action != "tick" || last.Repeat != 5 {
		t.Fatalf("ticks should collapse, got %+v", last)
	}
	data, err := s.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	parsed, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse recorded script: %v\n%s", err, data)
	}
	replayed, err := Run(parsed, quietOptions(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := replayed.Transform(), c.Transform(); got != want {
		t.Fatalf("replayed transform %+v, live %+v", got, want)
	}
}

func TestRecorderLimitFoldsGeometry(t *testing.T) {
	c, err := viewer.New(quietOptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec := NewRecorder(c, 2)
	_, _ = rec.SetContentGeometry(300, 200)
	_, _ = rec.SetViewportGeometry(100, 100)
	rec.OnScroll(1, 0, 0)
	rec.OnScroll(-1, 0, 0)
	s := rec.Script()
	if len(s.Steps) != 2 || s.Content != (Size{W: 300, H: 200}) || s.Viewport != (Size{W: 100, H: 100}) {
		t.Fatalf("unexpected trimmed script %+v", s)
	}
}

func TestCrashSnapshotWritesScript(t *testing.T) {
	c, err := viewer.New(quietOptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec := NewRecorder(c, 0)
	_, _ = rec.SetContentGeometry(100, 100)
	dir := t.TempDir()
	path, err := rec.CrashSnapshot(dir)
	if err != nil {
		t.Fatalf("CrashSnapshot: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("snapshot at %s", path)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("snapshot does not load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat: %v", err)
	}
}

func TestRecorderKeepsProgrammaticMoves(t *testing.T) {
	c, err := viewer.New(quietOptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec := NewRecorder(c, 0)
	if _, err := rec.SetContentGeometry(400, 200); err != nil {
		t.Fatalf("content: %v", err)
	}
	if _, err := rec.SetViewportGeometry(200, 100); err != nil {
		t.Fatalf("viewport: %v", err)
	}
	if _, err := rec.SetScale(2.5, 100, 50, false); err != nil {
		t.Fatalf("SetScale: %v", err)
	}
	if _, err := rec.CenterOn(300, 60); err != nil {
		t.Fatalf("CenterOn: %v", err)
	}
	if _, err := rec.SetScale(9, 0, 0, false); err == nil {
		t.Fatalf("out of range scale accepted")
	}
	s := rec.Script()
	if n := len(s.Steps); n != 4 || s.Steps[3].Action != "center" {
		t.Fatalf("rejected calls must not be recorded: %+v", s.Steps)
	}
	data, err := s.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	parsed, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v\n%s", err, data)
	}
	replayed, err := Run(parsed, quietOptions(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := replayed.Transform(), c.Transform(); got != want {
		t.Fatalf("replayed transform %+v, live %+v", got, want)
	}
}
