/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package replay drives a viewer.Controller from a YAML script of pointer
// events, frame ticks and configuration changes, and records live sessions
// into the same format.
package replay

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"comicview/internal/gesture"
	"comicview/internal/transform"
	"comicview/internal/viewer"
)

var (
	ErrBadScript = errors.New("bad replay script")
	// ErrExpectation is returned when an expect step does not hold.
	ErrExpectation = errors.New("replay expectation failed")
)

type Size struct {
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

type Limits struct {
	Min float64 `yaml:"min"`
	Mid float64 `yaml:"mid"`
	Max float64 `yaml:"max"`
}

// Script is a session: initial configuration then an ordered list of steps.
type Script struct {
	Content  Size    `yaml:"content"`
	Viewport Size    `yaml:"viewport"`
	Anchor   string  `yaml:"anchor,omitempty"`
	Limits   *Limits `yaml:"limits,omitempty"`
	Steps    []Step  `yaml:"steps"`
}

// Step is one scripted action:
//
//	down|move|up|cancel  id, x, y, at (ms, optional)
//	tick                 ms, repeat
//	scroll               notches, x, y
//	scale                scale, x, y, animate
//	center               x, y (content pixels)
//	content|viewport     w, h
//	zoomable             enabled
//	expect               scale, tx, ty, tolerance
type Step struct {
	Action    string   `yaml:"action"`
	ID        int      `yaml:"id,omitempty"`
	X         float64  `yaml:"x,omitempty"`
	Y         float64  `yaml:"y,omitempty"`
	At        int      `yaml:"at,omitempty"`
	Ms        int      `yaml:"ms,omitempty"`
	Repeat    int      `yaml:"repeat,omitempty"`
	Notches   float64  `yaml:"notches,omitempty"`
	W         float64  `yaml:"w,omitempty"`
	H         float64  `yaml:"h,omitempty"`
	Scale     *float64 `yaml:"scale,omitempty"`
	TX        *float64 `yaml:"tx,omitempty"`
	TY        *float64 `yaml:"ty,omitempty"`
	Tolerance float64  `yaml:"tolerance,omitempty"`
	Animate   bool     `yaml:"animate,omitempty"`
	Enabled   *bool    `yaml:"enabled,omitempty"`
}

var pointerActions = map[string]gesture.Action{
	"down": gesture.Down, "move": gesture.Move, "up": gesture.Up, "cancel": gesture.Cancel,
}

// Parse decodes and checks a script.
func Parse(data []byte) (Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Script{}, fmt.Errorf("%w: %v", ErrBadScript, err)
	}
	if err := s.Validate(); err != nil {
		return Script{}, err
	}
	return s, nil
}

// Load reads and parses a script file.
func Load(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, err
	}
	s, err := Parse(data)
	if err != nil {
		return Script{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Marshal encodes s as YAML.
func (s Script) Marshal() ([]byte, error) { return yaml.Marshal(s) }

// Validate checks the header and every step. Geometry itself is checked by
// the controller when the script runs.
func (s Script) Validate() error {
	if s.Anchor != "" {
		if _, err := transform.ParseAnchorMode(s.Anchor); err != nil {
			return fmt.Errorf("%w: %w", ErrBadScript, err)
		}
	}
	for i, st := range s.Steps {
		if err := st.validate(); err != nil {
			return fmt.Errorf("%w: step %d: %v", ErrBadScript, i+1, err)
		}
	}
	return nil
}

func (st Step) validate() error {
	if _, ok := pointerActions[st.Action]; ok {
		if st.At < 0 {
			return errors.New("negative time")
		}
		return nil
	}
	switch st.Action {
	case "tick":
		if st.Ms < 0 || st.Repeat < 0 {
			return errors.New("negative tick")
		}
	case "scroll":
		if st.Notches == 0 {
			return errors.New("scroll without notches")
		}
	case "scale":
		if st.Scale == nil {
			return errors.New("scale step without scale")
		}
	case "content", "viewport", "center":
	case "zoomable":
		if st.Enabled == nil {
			return errors.New("zoomable step without enabled")
		}
	case "expect":
		if st.Scale == nil && st.TX == nil && st.TY == nil {
			return errors.New("expect step checks nothing")
		}
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}
	return nil
}

// Sink receives each event with the 1-based index of the step that caused it.
type Sink func(step int, ev viewer.Event)

// Run builds a controller from opts and the script header and plays every
// step. It stops at the first failing configuration step or expectation.
func Run(s Script, opts viewer.Options, sink Sink) (*viewer.Controller, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.Anchor != "" {
		opts.Anchor, _ = transform.ParseAnchorMode(s.Anchor)
	}
	if s.Limits != nil {
		opts.Limits = transform.Limits{Min: s.Limits.Min, Mid: s.Limits.Mid, Max: s.Limits.Max}
	}
	c, err := viewer.New(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadScript, err)
	}
	emit := func(step int, evs []viewer.Event) {
		if sink == nil {
			return
		}
		for _, ev := range evs {
			sink(step, ev)
		}
	}
	if s.Content.W != 0 || s.Content.H != 0 {
		evs, err := c.SetContentGeometry(s.Content.W, s.Content.H)
		if err != nil {
			return c, err
		}
		emit(0, evs)
	}
	if s.Viewport.W != 0 || s.Viewport.H != 0 {
		evs, err := c.SetViewportGeometry(s.Viewport.W, s.Viewport.H)
		if err != nil {
			return c, err
		}
		emit(0, evs)
	}
	for i, st := range s.Steps {
		n := i + 1
		evs, err := apply(c, st)
		emit(n, evs)
		if err != nil {
			return c, fmt.Errorf("step %d (%s): %w", n, st.Action, err)
		}
	}
	return c, nil
}

func apply(c *viewer.Controller, st Step) ([]viewer.Event, error) {
	if a, ok := pointerActions[st.Action]; ok {
		ev := gesture.PointerEvent{Action: a, ID: st.ID, X: st.X, Y: st.Y, Time: time.Duration(st.At) * time.Millisecond}
		return c.OnPointerEvent(ev), nil
	}
	switch st.Action {
	case "tick":
		var out []viewer.Event
		for i := 0; i < max(st.Repeat, 1); i++ {
			out = append(out, c.OnFrameTick(time.Duration(st.Ms)*time.Millisecond)...)
		}
		return out, nil
	case "scroll":
		return c.OnScroll(st.Notches, st.X, st.Y), nil
	case "scale":
		return c.SetScale(*st.Scale, st.X, st.Y, st.Animate)
	case "center":
		return c.CenterOn(st.X, st.Y)
	case "content":
		return c.SetContentGeometry(st.W, st.H)
	case "viewport":
		return c.SetViewportGeometry(st.W, st.H)
	case "zoomable":
		return c.SetZoomable(*st.Enabled), nil
	case "expect":
		return nil, expect(c, st)
	}
	return nil, fmt.Errorf("%w: unknown action %q", ErrBadScript, st.Action)
}

func expect(c *viewer.Controller, st Step) error {
	tol := st.Tolerance
	if tol <= 0 {
		tol = 1e-3
	}
	t := c.Transform()
	check := func(name string, want *float64, got float64) error {
		if want != nil && math.Abs(*want-got) > tol {
			return fmt.Errorf("%w: %s = %v, want %v", ErrExpectation, name, got, *want)
		}
		return nil
	}
	return errors.Join(
		check("scale", st.Scale, c.CurrentScale()),
		check("tx", st.TX, t.TranslateX),
		check("ty", st.TY, t.TranslateY),
	)
}
