//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"comicview/internal/config"
	"comicview/internal/crash"
	"comicview/internal/gesture"
	applog "comicview/internal/log"
	"comicview/internal/resample"
	"comicview/internal/storage"
	"comicview/internal/viewer"
	"comicview/internal/version"
)

const (
	frameInterval = 16 * time.Millisecond
	mousePointer  = 1
	// wheelNotch is the ScrollEvent delta of one wheel click.
	wheelNotch = 10
)

// Run opens imagePath in a window and blocks until it is closed.
func Run(imagePath string, cfg config.Config) error {
	l := applog.WithComponent("ui")
	src, err := resample.LoadImage(imagePath)
	if err != nil {
		return err
	}
	host, err := NewHost(src, cfg, l)
	if err != nil {
		return err
	}
	defer crash.Recover("", host.Recorder())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	host.Start(ctx)

	key := storage.Key(imagePath)
	hist := openHistory(cfg)
	if hist != nil {
		defer func() { _ = hist.Close() }()
		if p, err := hist.Get(ctx, key); err == nil {
			host.RestorePosition(p)
		}
	}

	a := app.NewWithID("comicview")
	w := a.NewWindow(fmt.Sprintf("comicview %s - %s", version.Version, filepath.Base(imagePath)))
	prefs := a.Preferences()
	w.Resize(fyne.NewSize(float32(max(prefs.IntWithFallback("window.width", 1000), 400)),
		float32(max(prefs.IntWithFallback("window.height", 800), 300))))

	status := widget.NewLabel("Ready")
	pv := NewPageView(host, src)
	host.OnEvent = func(ev viewer.Event) {
		switch ev.(type) {
		case viewer.Tap, viewer.DoubleTap, viewer.LongPress, viewer.ScaleSettled:
			status.SetText(viewer.Describe(ev))
		}
	}
	host.OnHiresReady = func() { fyne.Do(pv.Refresh) }
	w.SetContent(container.NewBorder(nil, status, nil, nil, pv))
	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		moved := false
		switch ev.Name {
		case fyne.KeyBackspace, fyne.KeyLeftBracket:
			moved = host.Back()
		case fyne.KeyRightBracket:
			moved = host.Forward()
		}
		if moved {
			pv.Refresh()
		}
	})
	w.SetOnClosed(func() {
		if hist != nil && host.Controller().Ready() {
			if err := hist.Save(ctx, host.Position(key)); err != nil {
				l.Warn("reading position not saved", "err", err)
			}
			if cfg.History.Keep > 0 {
				_, _ = hist.Prune(ctx, cfg.History.Keep)
			}
		}
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
	})

	go func() {
		t := time.NewTicker(frameInterval)
		defer t.Stop()
		last := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				elapsed := now.Sub(last)
				last = now
				fyne.Do(func() {
					if host.Tick(elapsed) {
						pv.Refresh()
					}
				})
			}
		}
	}()

	l.Info("window open", "image", imagePath)
	w.ShowAndRun()
	return nil
}

// openHistory returns nil when history is off or cannot be opened; the
// viewer works without it.
func openHistory(cfg config.Config) *storage.History {
	if !cfg.History.Enabled {
		return nil
	}
	path, err := cfg.HistoryPath()
	if err == nil {
		var h *storage.History
		if h, err = storage.OpenHistory(path); err == nil {
			return h
		}
	}
	applog.WithComponent("ui").Warn("history disabled", "err", err)
	return nil
}

// PageView paints one page with the transform of a Host and forwards mouse
// input to it. Drag, wheel and double-click map to pan, zoom and zoom cycle.
type PageView struct {
	widget.BaseWidget
	host *Host
	src  image.Image
	last fyne.Position
}

func NewPageView(h *Host, src image.Image) *PageView {
	p := &PageView{host: h, src: src}
	p.ExtendBaseWidget(p)
	return p
}

func (p *PageView) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 30, G: 30, B: 34, A: 255})
	page := canvas.NewImageFromImage(p.src)
	page.FillMode = canvas.ImageFillStretch
	page.ScaleMode = canvas.ImageScaleFastest
	hires := canvas.NewImageFromImage(nil)
	hires.FillMode = canvas.ImageFillStretch
	hires.Hide()
	return &pageViewRenderer{pv: p, bg: bg, page: page, hires: hires, objects: []fyne.CanvasObject{bg, page, hires}}
}

func (p *PageView) MinSize() fyne.Size { return fyne.NewSize(200, 200) }

func (p *PageView) pointer(a gesture.Action, pos fyne.Position) {
	p.last = pos
	if p.host.Pointer(a, mousePointer, float64(pos.X), float64(pos.Y)) {
		p.Refresh()
	}
}

func (p *PageView) MouseDown(e *desktop.MouseEvent) { p.pointer(gesture.Down, e.Position) }
func (p *PageView) MouseUp(e *desktop.MouseEvent)   { p.pointer(gesture.Up, e.Position) }

// Dragged and DragEnd overlap with the mouse callbacks; the recognizer
// ignores an Up for a pointer that is already released.
func (p *PageView) Dragged(e *fyne.DragEvent) { p.pointer(gesture.Move, e.Position) }
func (p *PageView) DragEnd()                  { p.pointer(gesture.Up, p.last) }

func (p *PageView) Scrolled(e *fyne.ScrollEvent) {
	if p.host.Scroll(float64(e.Scrolled.DY)/wheelNotch, float64(e.Position.X), float64(e.Position.Y)) {
		p.Refresh()
	}
}

type pageViewRenderer struct {
	pv      *PageView
	bg      *canvas.Rectangle
	page    *canvas.Image
	hires   *canvas.Image
	objects []fyne.CanvasObject
	size    fyne.Size
}

func (r *pageViewRenderer) Destroy()                     {}
func (r *pageViewRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *pageViewRenderer) MinSize() fyne.Size           { return r.pv.MinSize() }
func (r *pageViewRenderer) Refresh()                     { r.Layout(r.pv.Size()); canvas.Refresh(r.pv) }

func (r *pageViewRenderer) Layout(size fyne.Size) {
	if size != r.size && size.Width > 0 && size.Height > 0 {
		r.size = size
		r.pv.host.Resize(float64(size.Width), float64(size.Height))
	}
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	f := r.pv.host.Frame()
	r.page.Move(fyne.NewPos(float32(f.Page.X), float32(f.Page.Y)))
	r.page.Resize(fyne.NewSize(float32(f.Page.W), float32(f.Page.H)))

	if f.Hires == nil {
		r.hires.Hide()
		return
	}
	r.hires.Image = f.Hires
	r.hires.Move(fyne.NewPos(float32(f.HiresRect.X), float32(f.HiresRect.Y)))
	r.hires.Resize(fyne.NewSize(float32(f.HiresRect.W), float32(f.HiresRect.H)))
	r.hires.Show()
	r.hires.Refresh()
}
