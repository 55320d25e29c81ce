/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package gesture classifies a raw pointer stream into pan, pinch-scale,
// fling, tap, double-tap and long-press intents. It keeps no clock of its own:
// time comes from event timestamps and from Tick.
package gesture

import (
	"fmt"
	"time"
)

// Action is the kind of a raw pointer event.
type Action uint8

const (
	Down Action = iota
	Move
	Up
	Cancel
)

func (a Action) String() string {
	switch a {
	case Down:
		return "down"
	case Move:
		return "move"
	case Up:
		return "up"
	case Cancel:
		return "cancel"
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}

// PointerEvent is one raw event. Time is measured from an arbitrary epoch
// shared with Tick.
type PointerEvent struct {
	Action Action
	ID     int
	X, Y   float64
	Time   time.Duration
}

// Kind tags a recognized gesture.
type Kind uint8

const (
	Pan Kind = iota + 1
	Scale
	ScaleEnd
	Fling
	Tap
	DoubleTap
	LongPress
)

var kindNames = map[Kind]string{
	Pan: "pan", Scale: "scale", ScaleEnd: "scale_end", Fling: "fling",
	Tap: "tap", DoubleTap: "double_tap", LongPress: "long_press",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Gesture is an intent emitted by the Recognizer. Which fields are set depends on Kind:
//   - Pan: DX, DY (viewport pixels), X, Y current position
//   - Scale: Factor (current/previous pointer distance), X, Y focal point
//   - ScaleEnd: X, Y last focal point
//   - Fling: VX, VY (pixels per second)
//   - Tap, DoubleTap, LongPress: X, Y
type Gesture struct {
	Kind   Kind
	X, Y   float64
	DX, DY float64
	Factor float64
	VX, VY float64
}

// Config holds the recognizer thresholds. Zero fields take defaults.
type Config struct {
	TouchSlop        float64
	DoubleTapSlop    float64
	TapTimeout       time.Duration
	DoubleTapTimeout time.Duration
	LongPressTimeout time.Duration
	MinFlingVelocity float64
	MaxFlingVelocity float64
	VelocityWindow   time.Duration
}

func DefaultConfig() Config {
	return Config{
		TouchSlop:        8,
		DoubleTapSlop:    100,
		TapTimeout:       300 * time.Millisecond,
		DoubleTapTimeout: 300 * time.Millisecond,
		LongPressTimeout: 500 * time.Millisecond,
		MinFlingVelocity: 50,
		MaxFlingVelocity: 8000,
		VelocityWindow:   100 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TouchSlop <= 0 {
		c.TouchSlop = d.TouchSlop
	}
	if c.DoubleTapSlop <= 0 {
		c.DoubleTapSlop = d.DoubleTapSlop
	}
	if c.TapTimeout <= 0 {
		c.TapTimeout = d.TapTimeout
	}
	if c.DoubleTapTimeout <= 0 {
		c.DoubleTapTimeout = d.DoubleTapTimeout
	}
	if c.LongPressTimeout <= 0 {
		c.LongPressTimeout = d.LongPressTimeout
	}
	if c.MinFlingVelocity <= 0 {
		c.MinFlingVelocity = d.MinFlingVelocity
	}
	if c.MaxFlingVelocity < c.MinFlingVelocity {
		c.MaxFlingVelocity = d.MaxFlingVelocity
	}
	if c.VelocityWindow <= 0 {
		c.VelocityWindow = d.VelocityWindow
	}
	return c
}
