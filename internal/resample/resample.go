/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package resample re-renders the visible part of a page at the scale it is
// displayed at, off the UI thread. The viewer only says when (ScaleSettled);
// this package does the pixel work.
package resample

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"comicview/internal/geometry"
	"comicview/internal/viewer"
)

var ErrEmptyRegion = errors.New("resample: empty region")

// Kernel names a scaling filter.
type Kernel string

const (
	Nearest    Kernel = "nearest"
	Bilinear   Kernel = "bilinear"
	CatmullRom Kernel = "catmull_rom"
)

func ParseKernel(s string) (Kernel, error) {
	switch k := Kernel(strings.ToLower(strings.TrimSpace(s))); k {
	case Nearest, Bilinear, CatmullRom:
		return k, nil
	case "":
		return CatmullRom, nil
	}
	return "", fmt.Errorf("resample: unknown kernel %q", s)
}

// Interpolator returns the x/image filter for k.
func (k Kernel) Interpolator() draw.Interpolator {
	switch k {
	case Nearest:
		return draw.NearestNeighbor
	case Bilinear:
		return draw.ApproxBiLinear
	default:
		return draw.CatmullRom
	}
}

// Request asks for Region (content pixels) rendered at Scale output pixels
// per content pixel. Gen orders requests; results of older generations are
// stale.
type Request struct {
	Gen    uint64
	Region geometry.Rect
	Scale  float64
}

// RequestFor builds the request matching what c currently shows.
func RequestFor(c *viewer.Controller, gen uint64) Request {
	return Request{Gen: gen, Region: c.VisibleContent(), Scale: c.Transform().Scale}
}

// Render scales the requested region of src. maxPixels caps the output area
// by lowering the scale; zero means no cap.
func Render(ctx context.Context, src image.Image, req Request, k Kernel, maxPixels int) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	px := req.Region.Geom().Rounded()
	sr := image.Rect(int(px.LLx), int(px.LLy), int(px.URx), int(px.URy)).Intersect(src.Bounds())
	if sr.Empty() || !(req.Scale > 0) || !geometry.Finite(req.Scale) {
		return nil, ErrEmptyRegion
	}
	scale := req.Scale
	w, h := float64(sr.Dx())*scale, float64(sr.Dy())*scale
	if maxPixels > 0 && w*h > float64(maxPixels) {
		f := math.Sqrt(float64(maxPixels) / (w * h))
		w, h = w*f, h*f
	}
	dw, dh := max(1, int(math.Round(w))), max(1, int(math.Round(h)))
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	k.Interpolator().Scale(dst, dst.Bounds(), src, sr, draw.Src, nil)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return dst, nil
}

// LoadImage decodes a PNG, JPEG, GIF or WebP file.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}
