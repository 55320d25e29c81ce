/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package viewer is the composition root of the transform engine. A host
// widget owns one Controller, forwards pointer events, frame ticks and size
// changes to it, and paints with the transform it reports.
package viewer

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"seehuhn.de/go/geom/matrix"

	"comicview/internal/anim"
	"comicview/internal/geometry"
	"comicview/internal/gesture"
	applog "comicview/internal/log"
	"comicview/internal/transform"
)

var (
	// ErrNoLayout is returned by operations that need both content and viewport sizes.
	ErrNoLayout = errors.New("viewer: content or viewport size not set")
	// ErrScaleOutOfRange is returned by SetScale for targets outside the limits.
	ErrScaleOutOfRange = errors.New("viewer: scale outside limits")
)

// WheelStep is the scale factor applied per wheel notch.
const WheelStep = 1.1

// Controller turns pointer input into transform updates. It is not safe for
// concurrent use: all calls must come from the host's UI thread.
type Controller struct {
	opts Options
	log  *slog.Logger
	rec  *gesture.Recognizer

	contentW, contentH   float64
	viewportW, viewportH float64
	anchor               transform.AnchorMode
	limits               transform.Limits
	zoomable             bool

	st *transform.State // nil until both sizes are known

	fling *anim.Fling
	zoom  *anim.Zoom

	clock time.Duration

	edges         transform.EdgeState
	edgesKnown    bool
	intercept     bool
	interceptSent bool
	focal         geometry.Pt // last pinch focal point
}

// New validates opts and returns a Controller without layout. Layout happens
// once both SetContentGeometry and SetViewportGeometry have succeeded.
func New(opts Options) (*Controller, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("viewer options: %w", err)
	}
	if opts.EdgeEpsilon < 0 || !geometry.Finite(opts.EdgeEpsilon) {
		opts.EdgeEpsilon = transform.DefaultEdgeEpsilon
	}
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("viewer")
	}
	return &Controller{
		opts:     opts,
		log:      l,
		rec:      gesture.NewRecognizer(opts.Gestures),
		anchor:   opts.Anchor,
		limits:   opts.Limits,
		zoomable: opts.Zoomable,
	}, nil
}

func checkSize(what string, w, h float64) error {
	if !geometry.Finite(w) || !geometry.Finite(h) || w <= 0 || h <= 0 {
		return fmt.Errorf("%w: %s %vx%v", transform.ErrInvalidGeometry, what, w, h)
	}
	return nil
}

func (c *Controller) reject(op string, err error) ([]Event, error) {
	applog.WithOperation(c.log, op).Warn("configuration rejected", slog.Any("err", err))
	return nil, err
}

// SetContentGeometry installs the content size and relays out.
func (c *Controller) SetContentGeometry(w, h float64) ([]Event, error) {
	if err := checkSize("content", w, h); err != nil {
		return c.reject("set_content", err)
	}
	c.contentW, c.contentH = w, h
	return c.relayout(), nil
}

// SetViewportGeometry installs the viewport size and relays out.
func (c *Controller) SetViewportGeometry(w, h float64) ([]Event, error) {
	if err := checkSize("viewport", w, h); err != nil {
		return c.reject("set_viewport", err)
	}
	c.viewportW, c.viewportH = w, h
	return c.relayout(), nil
}

// SetAnchorMode changes how content is placed at layout time and relays out.
func (c *Controller) SetAnchorMode(m transform.AnchorMode) ([]Event, error) {
	if !m.Valid() {
		return c.reject("set_anchor", fmt.Errorf("%w: %d", transform.ErrInvalidAnchor, m))
	}
	c.anchor = m
	return c.relayout(), nil
}

// SetScaleLimits installs min/mid/max zoom. They must satisfy 0 < min <= mid <= max.
// The content is relaid out at 1.0.
func (c *Controller) SetScaleLimits(min, mid, max float64) ([]Event, error) {
	l := transform.Limits{Min: min, Mid: mid, Max: max}
	if err := l.Validate(); err != nil {
		return c.reject("set_limits", err)
	}
	c.limits = l
	return c.relayout(), nil
}

// SetZoomable turns scale gestures, double-tap zoom and wheel zoom on or off.
// Turning it off returns the content to its laid-out scale.
func (c *Controller) SetZoomable(z bool) []Event {
	if c.zoomable == z {
		return nil
	}
	c.zoomable = z
	if z {
		return nil
	}
	return c.relayout()
}

// Zoomable reports whether zoom input is honoured.
func (c *Controller) Zoomable() bool { return c.zoomable }

func (c *Controller) relayout() []Event {
	c.cancelAnimation()
	if c.contentW <= 0 || c.viewportW <= 0 {
		return nil
	}
	g := transform.Geometry{
		ContentW: c.contentW, ContentH: c.contentH,
		ViewportW: c.viewportW, ViewportH: c.viewportH,
		Anchor: c.anchor,
	}
	if c.st == nil {
		c.st = transform.NewState(g, c.limits, c.opts.EdgeEpsilon)
	} else {
		c.st.SetLimits(c.limits)
		c.st.SetGeometry(g)
	}
	c.log.Debug("relayout", "geometry", g, "scale", c.st.Transform().Scale)
	return c.mutated(nil, true)
}

// OnPointerEvent feeds one raw event. Events with a zero Time are stamped
// with the controller clock, which advances with OnFrameTick. Hosts should
// use one time base for both.
func (c *Controller) OnPointerEvent(ev gesture.PointerEvent) []Event {
	if ev.Time == 0 {
		ev.Time = c.clock
	} else if ev.Time > c.clock {
		c.clock = ev.Time
	}
	var out []Event
	if ev.Action == gesture.Down {
		c.cancelAnimation()
		if !c.rec.Active() {
			out = c.setIntercept(out, false)
		}
	}
	for _, g := range c.rec.Feed(ev) {
		out = c.handle(g, out)
	}
	if (ev.Action == gesture.Up || ev.Action == gesture.Cancel) && !c.rec.Active() && !c.Animating() {
		out = c.settleIfOutOfRange(out)
	}
	return out
}

// OnFrameTick advances time by elapsed: it delivers deferred taps and long
// presses and steps the active animation.
func (c *Controller) OnFrameTick(elapsed time.Duration) []Event {
	if elapsed < 0 {
		elapsed = 0
	}
	c.clock += elapsed
	var out []Event
	for _, g := range c.rec.Tick(c.clock) {
		out = c.handle(g, out)
	}
	if c.st == nil {
		return out
	}
	switch {
	case c.fling != nil:
		dx, dy, done := c.fling.Step(elapsed)
		if dx != 0 || dy != 0 {
			out = c.mutated(out, c.st.ApplyPan(dx, dy))
		}
		if done {
			c.fling = nil
		}
	case c.zoom != nil:
		s, done := c.zoom.Step(elapsed)
		fx, fy := c.zoom.Focal()
		out = c.scaleTo(out, s, fx, fy)
		if done {
			c.zoom = nil
			out = append(out, ScaleSettled{Scale: c.st.CurrentScale(), FocalX: fx, FocalY: fy})
		}
	}
	return out
}

// OnScroll zooms by WheelStep per notch around (x, y). Positive notches zoom in.
// The result is clamped to the limits and settles immediately.
func (c *Controller) OnScroll(notches, x, y float64) []Event {
	if !c.zoomable || c.st == nil || notches == 0 || !geometry.Finite(notches) {
		return nil
	}
	c.cancelAnimation()
	target := c.limits.Clamp(c.st.CurrentScale() * math.Pow(WheelStep, notches))
	out := c.scaleTo(nil, target, x, y)
	return append(out, ScaleSettled{Scale: c.st.CurrentScale(), FocalX: x, FocalY: y})
}

// SetScale moves to scale around the viewport point (fx, fy), either at once
// or through the zoom animation.
func (c *Controller) SetScale(scale, fx, fy float64, animate bool) ([]Event, error) {
	if c.st == nil {
		return nil, ErrNoLayout
	}
	if !geometry.Finite(scale) || scale < c.limits.Min || scale > c.limits.Max {
		return nil, fmt.Errorf("%w: %v not in [%v, %v]", ErrScaleOutOfRange, scale, c.limits.Min, c.limits.Max)
	}
	c.cancelAnimation()
	if animate {
		c.startZoom(scale, fx, fy)
		return nil, nil
	}
	out := c.scaleTo(nil, scale, fx, fy)
	return append(out, ScaleSettled{Scale: c.st.CurrentScale(), FocalX: fx, FocalY: fy}), nil
}

func (c *Controller) handle(g gesture.Gesture, out []Event) []Event {
	c.log.Debug("gesture", "kind", g.Kind, "phase", c.rec.Phase())
	switch g.Kind {
	case gesture.Pan:
		out = append(out, DragDelta{DX: g.DX, DY: g.DY})
		if c.st == nil {
			return out
		}
		out = c.mutated(out, c.st.ApplyPan(g.DX, g.DY))
		return c.updateIntercept(out, g.DX, g.DY)
	case gesture.Scale:
		c.focal = geometry.Pt{X: g.X, Y: g.Y}
		if !c.zoomable || c.st == nil {
			return out
		}
		out = c.setIntercept(out, false)
		return c.scaleBy(out, g.Factor, g.X, g.Y)
	case gesture.ScaleEnd:
		c.focal = geometry.Pt{X: g.X, Y: g.Y}
		if !c.zoomable || c.st == nil {
			return out
		}
		return c.settle(out, g.X, g.Y)
	case gesture.Fling:
		if c.st == nil {
			return out
		}
		f := anim.NewFling(g.VX, g.VY, c.st.DisplayRect(), c.viewportW, c.viewportH, c.opts.FlingDeceleration)
		if f.Done() {
			return out
		}
		c.cancelAnimation()
		c.fling = f
		c.log.Debug("fling started", "vx", g.VX, "vy", g.VY, "rest", f.Rest())
		return append(out, FlingStarted{VX: g.VX, VY: g.VY})
	case gesture.Tap:
		return append(out, c.tap(g.X, g.Y))
	case gesture.DoubleTap:
		out = append(out, DoubleTap{X: g.X, Y: g.Y})
		if c.zoomable && c.st != nil {
			c.startZoom(anim.DoubleTapTarget(c.st.CurrentScale(), c.limits), g.X, g.Y)
		}
		return out
	case gesture.LongPress:
		return append(out, LongPress{X: g.X, Y: g.Y})
	}
	return out
}

func (c *Controller) tap(x, y float64) Tap {
	t := Tap{X: x, Y: y}
	if c.st == nil {
		return t
	}
	p := geometry.Pt{X: x, Y: y}
	t.Inside = c.st.DisplayRect().Contains(p)
	cp := c.st.Transform().Invert(p)
	t.ContentX, t.ContentY = cp.X/c.contentW, cp.Y/c.contentH
	return t
}

// CenterOn pans so the content point (x, y) sits at the viewport centre,
// as far as the bounds allow. Running animations are cancelled.
func (c *Controller) CenterOn(x, y float64) ([]Event, error) {
	if c.st == nil {
		return nil, ErrNoLayout
	}
	if !geometry.Finite(x) || !geometry.Finite(y) {
		return c.reject("center_on", fmt.Errorf("%w: point %v,%v", transform.ErrInvalidGeometry, x, y))
	}
	c.cancelAnimation()
	p := c.st.Transform().Apply(geometry.Pt{X: x, Y: y})
	return c.mutated(nil, c.st.ApplyPan(c.viewportW/2-p.X, c.viewportH/2-p.Y)), nil
}

// scaleBy applies a relative factor and reports it. Rejected factors only log.
func (c *Controller) scaleBy(out []Event, factor, fx, fy float64) []Event {
	before := c.st.CurrentScale()
	if !geometry.Finite(factor) || factor <= 0 {
		c.log.Debug("scale factor ignored", "factor", factor)
		return out
	}
	return c.scaled(out, before, c.st.ApplyScale(factor, fx, fy), fx, fy)
}

// scaleTo moves to an absolute scale.
func (c *Controller) scaleTo(out []Event, target, fx, fy float64) []Event {
	before := c.st.CurrentScale()
	return c.scaled(out, before, c.st.ScaleTo(target, fx, fy), fx, fy)
}

func (c *Controller) scaled(out []Event, before float64, changed bool, fx, fy float64) []Event {
	after := c.st.CurrentScale()
	if after != before {
		out = append(out, ScaleChanged{Scale: after, Factor: after / before, FocalX: fx, FocalY: fy})
	}
	return c.mutated(out, changed)
}

// settle either reports the scale as settled or animates it back into range.
func (c *Controller) settle(out []Event, fx, fy float64) []Event {
	s := c.st.CurrentScale()
	target := c.limits.Clamp(s)
	if transform.AlmostEqual(s, target) {
		return append(out, ScaleSettled{Scale: s, FocalX: fx, FocalY: fy})
	}
	c.startZoom(target, fx, fy)
	return out
}

// settleIfOutOfRange runs after the last pointer lifts so that an interrupted
// settle animation is restarted.
func (c *Controller) settleIfOutOfRange(out []Event) []Event {
	if c.st == nil || !c.zoomable {
		return out
	}
	s := c.st.CurrentScale()
	target := c.limits.Clamp(s)
	if transform.AlmostEqual(s, target) {
		return out
	}
	fx, fy := c.focal.X, c.focal.Y
	if fx == 0 && fy == 0 {
		fx, fy = c.viewportW/2, c.viewportH/2
	}
	c.startZoom(target, fx, fy)
	return out
}

func (c *Controller) startZoom(target, fx, fy float64) {
	c.cancelAnimation()
	c.zoom = anim.NewZoom(c.st.CurrentScale(), target, fx, fy, c.opts.ZoomDuration)
	c.log.Debug("zoom started", "from", c.st.CurrentScale(), "to", c.zoom.Target())
}

func (c *Controller) cancelAnimation() {
	if c.fling != nil {
		c.fling.Cancel()
		c.fling = nil
	}
	if c.zoom != nil {
		c.zoom.Cancel()
		c.zoom = nil
	}
}

// mutated emits TransformChanged when the transform moved and
// EdgeStateChanged when the edge classification differs from the last report.
func (c *Controller) mutated(out []Event, changed bool) []Event {
	if changed {
		out = append(out, TransformChanged{Transform: c.st.Transform()})
	}
	if e := c.st.Edges(); !c.edgesKnown || e != c.edges {
		c.edges, c.edgesKnown = e, true
		out = append(out, EdgeStateChanged{Edges: e})
	}
	return out
}

// updateIntercept reads the dominant axis of a drag step. A parent may take
// over when that axis has no room at all, or when the drag pushes into the
// edge already reached.
func (c *Controller) updateIntercept(out []Event, dx, dy float64) []Event {
	allow := false
	if c.opts.AllowParentInterceptOnEdge && !c.rec.Pinching() {
		e := c.st.Edges()
		if math.Abs(dx) >= math.Abs(dy) {
			allow = edgeAllows(e.Horizontal, dx, c.opts.EdgeEpsilon)
		} else {
			allow = edgeAllows(e.Vertical, dy, c.opts.EdgeEpsilon)
		}
	}
	return c.setIntercept(out, allow)
}

func edgeAllows(e transform.Edge, d, eps float64) bool {
	switch e {
	case transform.EdgeBoth:
		return true
	case transform.EdgeLeft:
		return d >= eps
	case transform.EdgeRight:
		return d <= -eps
	}
	return false
}

func (c *Controller) setIntercept(out []Event, allow bool) []Event {
	if c.interceptSent && c.intercept == allow {
		return out
	}
	c.intercept, c.interceptSent = allow, true
	return append(out, InterceptChanged{Allow: allow})
}

// Ready reports whether both sizes are known and a transform exists.
func (c *Controller) Ready() bool { return c.st != nil }

// Transform is the current content-to-viewport mapping, identity before layout.
func (c *Controller) Transform() transform.Transform {
	if c.st == nil {
		return transform.Identity
	}
	return c.st.Transform()
}

// Matrix is the current transform in the form a renderer consumes.
func (c *Controller) Matrix() matrix.Matrix { return c.Transform().Matrix() }

// EdgeState reports the reachable edges; both/both before layout.
func (c *Controller) EdgeState() transform.EdgeState {
	if c.st == nil {
		return transform.EdgeState{Horizontal: transform.EdgeBoth, Vertical: transform.EdgeBoth}
	}
	return c.st.Edges()
}

// CurrentScale is the user-facing scale, 1.0 meaning "as laid out".
func (c *Controller) CurrentScale() float64 {
	if c.st == nil {
		return 1
	}
	return c.st.CurrentScale()
}

// DisplayRect is where the content is drawn, in viewport pixels.
func (c *Controller) DisplayRect() geometry.Rect {
	if c.st == nil {
		return geometry.Rect{}
	}
	return c.st.DisplayRect()
}

// VisibleContent is the on-screen part of the content in content pixels.
func (c *Controller) VisibleContent() geometry.Rect {
	if c.st == nil {
		return geometry.Rect{}
	}
	return c.st.VisibleContent()
}

// ContentSize is the last accepted content size, zero when unset.
func (c *Controller) ContentSize() (w, h float64) { return c.contentW, c.contentH }

// ViewportSize is the last accepted viewport size, zero when unset.
func (c *Controller) ViewportSize() (w, h float64) { return c.viewportW, c.viewportH }

// Limits returns the active scale limits.
func (c *Controller) Limits() transform.Limits { return c.limits }

// Anchor returns the active anchor mode.
func (c *Controller) Anchor() transform.AnchorMode { return c.anchor }

// InterceptAllowed is the last intercept hint sent to the host.
func (c *Controller) InterceptAllowed() bool { return c.intercept }

// Animating reports whether a fling or zoom is in progress.
func (c *Controller) Animating() bool { return c.fling != nil || c.zoom != nil }

// Clock is the controller's notion of now.
func (c *Controller) Clock() time.Duration { return c.clock }
