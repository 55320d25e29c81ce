/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package viewer

import (
	"log/slog"
	"time"

	"comicview/internal/anim"
	"comicview/internal/gesture"
	"comicview/internal/transform"
)

// Options configure a Controller. Zero durations and decelerations fall back
// to the defaults of the anim package.
type Options struct {
	Anchor transform.AnchorMode
	Limits transform.Limits

	ZoomDuration      time.Duration
	FlingDeceleration float64
	// EdgeEpsilon is the slack in viewport pixels for edge snapping and for
	// reading a drag direction when deciding on parent intercept.
	EdgeEpsilon float64
	// AllowParentInterceptOnEdge lets an enclosing scroller take over a drag
	// that runs into an edge. When false the hint is always "disallow".
	AllowParentInterceptOnEdge bool
	Zoomable                   bool

	Gestures gesture.Config
	Logger   *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		Anchor:                     transform.FitCenter,
		Limits:                     transform.DefaultLimits,
		ZoomDuration:               anim.DefaultZoomDuration,
		FlingDeceleration:          anim.DefaultDeceleration,
		EdgeEpsilon:                transform.DefaultEdgeEpsilon,
		AllowParentInterceptOnEdge: true,
		Zoomable:                   true,
		Gestures:                   gesture.DefaultConfig(),
	}
}

func (o Options) validate() error {
	if !o.Anchor.Valid() {
		return transform.ErrInvalidAnchor
	}
	return o.Limits.Validate()
}
