/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package ui hosts the viewer in a desktop window. The Fyne widget lives
// behind the "fyne" build tag; Host holds the parts that do not need a display.
package ui

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"time"

	"comicview/internal/config"
	"comicview/internal/geometry"
	"comicview/internal/gesture"
	"comicview/internal/replay"
	"comicview/internal/resample"
	"comicview/internal/storage"
	"comicview/internal/undo"
	"comicview/internal/viewer"
)

// Host is the toolkit-independent half of the page view. It owns the
// controller (behind a recorder, so a crash can dump the session), turns
// settled zooms into resample requests and tracks what should be painted.
// Everything except the resample callback runs on the UI thread.
type Host struct {
	rec    *replay.Recorder
	ctrl   *viewer.Controller
	worker *resample.Worker
	log    *slog.Logger

	// OnEvent sees every controller event after the host has handled it.
	OnEvent func(viewer.Event)
	// OnHiresReady is called from the resample goroutine; hosts hop back to
	// their UI thread before repainting.
	OnHiresReady func()

	// restored once the first layout exists
	pending *storage.Position

	views      *undo.Manager
	last       undo.View // most recent settled view
	navigating bool

	mu    sync.Mutex
	gen   uint64
	hires *resample.Result
}

// Frame is what to paint: the page at Page, and optionally a sharper
// rendering of part of it at HiresRect.
type Frame struct {
	Page      geometry.Rect
	Hires     *image.RGBA
	HiresRect geometry.Rect
}

func NewHost(src image.Image, cfg config.Config, l *slog.Logger) (*Host, error) {
	opts, err := cfg.ViewerOptions()
	if err != nil {
		return nil, err
	}
	opts.Logger = l.With(slog.String("component", "viewer"))
	c, err := viewer.New(opts)
	if err != nil {
		return nil, err
	}
	h := &Host{ctrl: c, log: l, views: undo.NewManager(undo.Config{})}
	h.rec = replay.NewRecorder(c, 0)
	b := src.Bounds()
	if _, err := h.rec.SetContentGeometry(float64(b.Dx()), float64(b.Dy())); err != nil {
		return nil, err
	}
	if cfg.Resample.Enabled {
		k, err := resample.ParseKernel(cfg.Resample.Kernel)
		if err != nil {
			return nil, err
		}
		h.worker = resample.NewWorker(src, resample.WorkerOptions{
			Kernel: k, MaxPixels: cfg.Resample.MaxPixels, Logger: l.With(slog.String("component", "resample")),
		}, h.deliver)
	}
	return h, nil
}

// Start runs the resample worker until ctx ends.
func (h *Host) Start(ctx context.Context) {
	if h.worker == nil {
		return
	}
	go func() {
		if err := h.worker.Run(ctx); err != nil && ctx.Err() == nil {
			h.log.Error("resample worker stopped", "err", err)
		}
	}()
}

func (h *Host) Recorder() *replay.Recorder     { return h.rec }
func (h *Host) Controller() *viewer.Controller { return h.ctrl }

func (h *Host) Resize(w, ht float64) bool {
	evs, err := h.rec.SetViewportGeometry(w, ht)
	if err != nil {
		return false
	}
	dirty := h.apply(evs)
	// a new layout starts a new history
	h.views.Clear()
	h.last = h.view()
	if p := h.pending; p != nil && h.ctrl.Ready() {
		h.pending = nil
		dirty = h.restore(*p) || dirty
	}
	return dirty
}

// Position captures the current zoom and the content point under the
// centre of the viewport.
func (h *Host) Position(image string) storage.Position {
	vw, vh := h.ctrl.ViewportSize()
	c := h.ctrl.Transform().Invert(geometry.Pt{X: vw / 2, Y: vh / 2})
	return storage.Position{Image: image, Scale: h.ctrl.CurrentScale(), CenterX: c.X, CenterY: c.Y}
}

// RestorePosition moves to p now, or after the first layout if the viewport
// size is not known yet. The scale is clamped to the current limits.
func (h *Host) RestorePosition(p storage.Position) bool {
	if err := p.Validate(); err != nil {
		h.log.Warn("saved position ignored", "err", err)
		return false
	}
	if !h.ctrl.Ready() {
		h.pending = &p
		return false
	}
	return h.restore(p)
}

func (h *Host) restore(p storage.Position) bool {
	vw, vh := h.ctrl.ViewportSize()
	scale := h.ctrl.Limits().Clamp(p.Scale)
	evs, err := h.rec.SetScale(scale, vw/2, vh/2, false)
	if err != nil {
		h.log.Warn("restore scale failed", "err", err)
		return false
	}
	dirty := h.apply(evs)
	evs, err = h.rec.CenterOn(p.CenterX, p.CenterY)
	if err != nil {
		h.log.Warn("restore centre failed", "err", err)
		return dirty
	}
	return h.apply(evs) || dirty
}

// Pointer feeds a mouse or touch event. Times come from the frame clock.
func (h *Host) Pointer(a gesture.Action, id int, x, y float64) bool {
	return h.apply(h.rec.OnPointerEvent(gesture.PointerEvent{Action: a, ID: id, X: x, Y: y}))
}

func (h *Host) Scroll(notches, x, y float64) bool { return h.apply(h.rec.OnScroll(notches, x, y)) }

// Tick advances animations; it reports whether a repaint is needed.
func (h *Host) Tick(elapsed time.Duration) bool { return h.apply(h.rec.OnFrameTick(elapsed)) }

func (h *Host) apply(evs []viewer.Event) bool {
	dirty := false
	for _, ev := range evs {
		switch e := ev.(type) {
		case viewer.TransformChanged:
			dirty = true
			h.mu.Lock()
			h.gen++
			h.hires = nil
			h.mu.Unlock()
		case viewer.ScaleSettled:
			if h.worker != nil {
				h.mu.Lock()
				gen := h.gen
				h.mu.Unlock()
				h.worker.Submit(resample.RequestFor(h.ctrl, gen))
			}
		case viewer.Tap, viewer.DoubleTap, viewer.LongPress:
			h.log.Debug("pointer", "event", viewer.Describe(e))
		}
		if h.OnEvent != nil {
			h.OnEvent(ev)
		}
	}
	return dirty
}

func (h *Host) view() undo.View {
	p := h.Position("")
	return undo.View{Scale: p.Scale, CenterX: p.CenterX, CenterY: p.CenterY, At: h.ctrl.Clock()}
}

func (h *Host) settled() {
	cur := h.view()
	if !h.navigating && !cur.Same(h.last) {
		h.views.Push(h.last, cur.At)
	}
	h.last = cur
}

// Back returns to the view settled on before the current one.
func (h *Host) Back() bool {
	v, ok := h.views.Back(h.view())
	if !ok {
		return false
	}
	return h.navigate(v)
}

// Forward undoes Back.
func (h *Host) Forward() bool {
	v, ok := h.views.Forward(h.view())
	if !ok {
		return false
	}
	return h.navigate(v)
}

func (h *Host) navigate(v undo.View) bool {
	h.navigating = true
	defer func() { h.navigating = false }()
	dirty := h.restore(storage.Position{Scale: v.Scale, CenterX: v.CenterX, CenterY: v.CenterY})
	h.last = h.view()
	return dirty
}

func (h *Host) deliver(r resample.Result) {
	if r.Err != nil {
		return
	}
	h.mu.Lock()
	if r.Gen != h.gen {
		h.mu.Unlock()
		return
	}
	h.hires = &r
	h.mu.Unlock()
	if h.OnHiresReady != nil {
		h.OnHiresReady()
	}
}

// Frame reports the current paint state.
func (h *Host) Frame() Frame {
	f := Frame{Page: h.ctrl.DisplayRect()}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.hires != nil {
		t := h.ctrl.Transform()
		reg := h.hires.Region
		p := t.Apply(reg.Min())
		f.Hires = h.hires.Image
		f.HiresRect = geometry.R(p.X, p.Y, reg.W*t.Scale, reg.H*t.Scale)
	}
	return f
}
