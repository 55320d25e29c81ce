/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export writes what the viewer currently shows to a PNG or PDF file.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"comicview/internal/geometry"
	"comicview/internal/resample"
	"comicview/internal/viewer"
)

var (
	ErrTooLarge          = errors.New("export: output too large")
	ErrUnsupportedFormat = errors.New("export: unsupported format")
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetScreen PresetName = "screen"
	PresetPrint  PresetName = "print"
	PresetThumb  PresetName = "thumb"
)

// Options controls how the viewport is rendered.
//
// Scale multiplies the viewport size: 1 gives one output pixel per viewport
// pixel. DPI only sets the physical page size of PDF output.
type Options struct {
	Kernel     resample.Kernel
	Scale      float64
	DPI        float64
	Background color.RGBA
	// Outline draws a 1px border around the page where it is visible.
	Outline      bool
	OutlineColor color.RGBA
	MaxPixels    int
}

func DefaultOptions() Options {
	return Options{
		Kernel:       resample.CatmullRom,
		Scale:        1,
		DPI:          96,
		Background:   color.RGBA{R: 30, G: 30, B: 34, A: 255},
		OutlineColor: color.RGBA{R: 255, A: 255},
		MaxPixels:    64 << 20,
	}
}

// PresetOptions returns the options for a named preset.
func PresetOptions(name PresetName) (Options, error) {
	o := DefaultOptions()
	switch PresetName(strings.ToLower(string(name))) {
	case PresetScreen, "":
	case PresetPrint:
		o.DPI = 300
		o.Scale = 300.0 / 96
		o.Background = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	case PresetThumb:
		o.Scale = 0.25
		o.Kernel = resample.Bilinear
	default:
		return Options{}, fmt.Errorf("%w: preset %q", ErrUnsupportedFormat, name)
	}
	return o, nil
}

// View renders src through the controller's current transform at the
// viewport size times opt.Scale.
func View(ctx context.Context, src image.Image, c *viewer.Controller, opt Options) (*image.RGBA, error) {
	if !c.Ready() {
		return nil, viewer.ErrNoLayout
	}
	if opt.Scale <= 0 || !geometry.Finite(opt.Scale) {
		opt.Scale = 1
	}
	vw, vh := c.ViewportSize()
	w := max(1, int(math.Round(vw*opt.Scale)))
	h := max(1, int(math.Round(vh*opt.Scale)))
	if opt.MaxPixels > 0 && w*h > opt.MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, w, h, opt.MaxPixels)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: opt.Background}, image.Point{}, draw.Src)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// content pixel -> output pixel; the source bounds may not start at 0,0
	m := c.Matrix()
	k := opt.Scale
	b := src.Bounds()
	s2d := f64.Aff3{
		m[0] * k, m[2] * k, (m[4] - m[0]*float64(b.Min.X)) * k,
		m[1] * k, m[3] * k, (m[5] - m[3]*float64(b.Min.Y)) * k,
	}
	opt.Kernel.Interpolator().Transform(dst, s2d, src, b, draw.Over, nil)

	if opt.Outline {
		r := c.DisplayRect()
		outline(dst, geometry.R(r.X*k, r.Y*k, r.W*k, r.H*k), opt.OutlineColor)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return dst, nil
}

// outline strokes r clipped to the image.
func outline(img *image.RGBA, r geometry.Rect, col color.RGBA) {
	x0, y0 := int(math.Round(r.X)), int(math.Round(r.Y))
	x1, y1 := int(math.Round(r.Right()))-1, int(math.Round(r.Bottom()))-1
	b := img.Bounds()
	for x := max(x0, b.Min.X); x <= min(x1, b.Max.X-1); x++ {
		setIn(img, x, y0, col)
		setIn(img, x, y1, col)
	}
	for y := max(y0, b.Min.Y); y <= min(y1, b.Max.Y-1); y++ {
		setIn(img, x0, y, col)
		setIn(img, x1, y, col)
	}
}

func setIn(img *image.RGBA, x, y int, col color.RGBA) {
	if (image.Point{X: x, Y: y}).In(img.Bounds()) {
		img.SetRGBA(x, y, col)
	}
}
