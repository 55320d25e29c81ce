/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package resample

import (
	"context"
	"image"
	"log/slog"
	"sync/atomic"

	applog "comicview/internal/log"
)

// Result carries a finished render or the reason it failed.
type Result struct {
	Request
	Image *image.RGBA
	Err   error
}

// Worker renders requests one at a time on its own goroutine. Only the most
// recent pending request is kept; Submit never blocks.
type Worker struct {
	src       image.Image
	kernel    Kernel
	maxPixels int
	deliver   func(Result)
	log       *slog.Logger

	in     chan Request
	latest atomic.Uint64 // newest submitted generation
}

type WorkerOptions struct {
	Kernel    Kernel
	MaxPixels int
	Logger    *slog.Logger
}

// NewWorker renders from src and hands each result to deliver, on the
// worker goroutine. Results older than the newest submission are dropped.
func NewWorker(src image.Image, opts WorkerOptions, deliver func(Result)) *Worker {
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("resample")
	}
	if opts.Kernel == "" {
		opts.Kernel = CatmullRom
	}
	return &Worker{
		src:       src,
		kernel:    opts.Kernel,
		maxPixels: opts.MaxPixels,
		deliver:   deliver,
		log:       l,
		in:        make(chan Request, 1),
	}
}

// Submit queues req, replacing whatever was still waiting.
func (w *Worker) Submit(req Request) {
	for {
		if g := w.latest.Load(); req.Gen < g || w.latest.CompareAndSwap(g, req.Gen) {
			break
		}
	}
	for {
		select {
		case w.in <- req:
			return
		default:
		}
		select {
		case old := <-w.in:
			w.log.Debug("request superseded", "gen", old.Gen)
		default:
		}
	}
}

// Pending reports whether a request is waiting.
func (w *Worker) Pending() bool { return len(w.in) > 0 }

// Run processes requests until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-w.in:
			if req.Gen < w.latest.Load() {
				continue
			}
			img, err := Render(ctx, w.src, req, w.kernel, w.maxPixels)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if req.Gen < w.latest.Load() {
				w.log.Debug("result dropped", "gen", req.Gen)
				continue
			}
			if err != nil {
				w.log.Warn("resample failed", "gen", req.Gen, "err", err)
			}
			if w.deliver != nil {
				w.deliver(Result{Request: req, Image: img, Err: err})
			}
		}
	}
}
