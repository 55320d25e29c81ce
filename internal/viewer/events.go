/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package viewer

import (
	"fmt"

	"comicview/internal/transform"
)

// Event is emitted by the Controller in response to input, ticks and
// configuration. Hosts consume it with a type switch.
type Event interface {
	event()
}

// TransformChanged carries the transform the host should paint with.
type TransformChanged struct {
	Transform transform.Transform
}

// EdgeStateChanged is emitted only when the classification differs from the
// last one reported.
type EdgeStateChanged struct {
	Edges transform.EdgeState
}

// InterceptChanged tells the host whether an enclosing scrollable may take
// over the current drag.
type InterceptChanged struct {
	Allow bool
}

// ScaleChanged reports a scale mutation by a pinch, a wheel step or a zoom frame.
type ScaleChanged struct {
	Scale          float64
	Factor         float64
	FocalX, FocalY float64
}

// ScaleSettled fires once a scale change has come to rest inside the limits.
// It is the point where resampling the content is worthwhile.
type ScaleSettled struct {
	Scale          float64
	FocalX, FocalY float64
}

// Tap is a confirmed single tap. ContentX and ContentY are relative to the
// content (0..1 inside it); Inside reports whether the tap hit the content.
type Tap struct {
	X, Y               float64
	ContentX, ContentY float64
	Inside             bool
}

type DoubleTap struct{ X, Y float64 }

type LongPress struct{ X, Y float64 }

// DragDelta forwards every pan step, whether or not it moved the content.
type DragDelta struct{ DX, DY float64 }

type FlingStarted struct{ VX, VY float64 }

func (TransformChanged) event() {}
func (EdgeStateChanged) event() {}
func (InterceptChanged) event() {}
func (ScaleChanged) event()     {}
func (ScaleSettled) event()     {}
func (Tap) event()              {}
func (DoubleTap) event()        {}
func (LongPress) event()        {}
func (DragDelta) event()        {}
func (FlingStarted) event()     {}

// Describe renders an event on one line for logs and the replay tool.
func Describe(ev Event) string {
	switch e := ev.(type) {
	case TransformChanged:
		t := e.Transform
		return fmt.Sprintf("transform scale=%.4f tx=%.2f ty=%.2f", t.Scale, t.TranslateX, t.TranslateY)
	case EdgeStateChanged:
		return "edges " + e.Edges.String()
	case InterceptChanged:
		return fmt.Sprintf("intercept allow=%t", e.Allow)
	case ScaleChanged:
		return fmt.Sprintf("scale %.4f (x%.4f) at %.1f,%.1f", e.Scale, e.Factor, e.FocalX, e.FocalY)
	case ScaleSettled:
		return fmt.Sprintf("scale settled %.4f at %.1f,%.1f", e.Scale, e.FocalX, e.FocalY)
	case Tap:
		return fmt.Sprintf("tap %.1f,%.1f content=%.3f,%.3f inside=%t", e.X, e.Y, e.ContentX, e.ContentY, e.Inside)
	case DoubleTap:
		return fmt.Sprintf("double tap %.1f,%.1f", e.X, e.Y)
	case LongPress:
		return fmt.Sprintf("long press %.1f,%.1f", e.X, e.Y)
	case DragDelta:
		return fmt.Sprintf("drag %.2f,%.2f", e.DX, e.DY)
	case FlingStarted:
		return fmt.Sprintf("fling %.1f,%.1f", e.VX, e.VY)
	}
	return fmt.Sprintf("%T", ev)
}
