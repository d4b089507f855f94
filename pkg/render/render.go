// Package render rasterizes a script distance function into an image.
//
// The script's entry function must have the signature
//
//	float sdf(float x, float y)
//
// and return the signed distance from (x, y) to the shape: negative inside,
// positive outside.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/draw"

	"scriptvm/pkg/compiler"
	"scriptvm/pkg/vm"
)

// Evaluator runs a compiled entry function. *script.Program and
// *hotreload.Reloader satisfy it.
type Evaluator interface {
	Execute(ret string, args ...vm.Value) (vm.Value, error)
}

// Options control the sampled region and the palette.
type Options struct {
	Width, Height int

	// Extent is the width of the sampled world region, centered on the
	// origin. The height follows from the aspect ratio.
	Extent float32

	// Outline is the distance band outside the surface drawn in Edge.
	Outline float32

	Fill       color.RGBA
	Edge       color.RGBA
	Background color.RGBA
}

// DefaultOptions samples the square [-1, 1] at 128x128.
func DefaultOptions() Options {
	return Options{
		Width:      128,
		Height:     128,
		Extent:     2,
		Outline:    0.02,
		Fill:       color.RGBA{0xFF, 0xA3, 0x00, 0xFF},
		Edge:       color.RGBA{0xFF, 0xF1, 0xE8, 0xFF},
		Background: color.RGBA{0x1D, 0x2B, 0x53, 0xFF},
	}
}

// light is the normalized direction surfaces are shaded against.
var light = [2]float32{-0.6, 0.8}

// normalStep is the offset used to sample the gradient.
const normalStep = 1e-3

// Sample evaluates the distance function at one point.
func Sample(ev Evaluator, x, y float32) (float32, error) {
	v, err := ev.Execute(compiler.TypeFloat, vm.Float(x), vm.Float(y))
	if err != nil {
		return 0, err
	}
	return v.Float(), nil
}

// Normal returns the normalized gradient of the distance function at (x, y),
// or (0, 0) where the gradient vanishes.
func Normal(ev Evaluator, x, y float32) (nx, ny float32, err error) {
	samples := [4]float32{}
	offsets := [4][2]float32{{normalStep, 0}, {-normalStep, 0}, {0, normalStep}, {0, -normalStep}}
	for i, o := range offsets {
		if samples[i], err = Sample(ev, x+o[0], y+o[1]); err != nil {
			return 0, 0, err
		}
	}
	nx, ny = samples[0]-samples[1], samples[2]-samples[3]
	l := float32(math.Hypot(float64(nx), float64(ny)))
	if l == 0 {
		return 0, 0, nil
	}
	return nx / l, ny / l, nil
}

// Rasterize samples the distance function once per pixel. Row 0 is the top
// of the region, so y grows upward in world space.
func Rasterize(ev Evaluator, opts Options) (*image.RGBA, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("render: invalid size %dx%d", opts.Width, opts.Height)
	}
	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	unit := opts.Extent / float32(opts.Width)

	for py := 0; py < opts.Height; py++ {
		y := (float32(opts.Height)/2 - float32(py) - 0.5) * unit
		for px := 0; px < opts.Width; px++ {
			x := (float32(px) + 0.5 - float32(opts.Width)/2) * unit
			d, err := Sample(ev, x, y)
			if err != nil {
				return nil, fmt.Errorf("render: pixel (%d, %d): %w", px, py, err)
			}
			c := opts.Background
			switch {
			case d <= 0:
				nx, ny, err := Normal(ev, x, y)
				if err != nil {
					return nil, fmt.Errorf("render: pixel (%d, %d): %w", px, py, err)
				}
				c = shade(opts.Fill, nx, ny)
			case d <= opts.Outline:
				c = opts.Edge
			}
			img.SetRGBA(px, py, c)
		}
	}
	return img, nil
}

// shade darkens c by up to half for surfaces facing away from the light.
func shade(c color.RGBA, nx, ny float32) color.RGBA {
	k := float32(1)
	if nx != 0 || ny != 0 {
		k = 0.5 + 0.5*max(0, nx*light[0]+ny*light[1])
	}
	return color.RGBA{
		R: uint8(float32(c.R) * k),
		G: uint8(float32(c.G) * k),
		B: uint8(float32(c.B) * k),
		A: c.A,
	}
}

// Scale resizes src to w x h with nearest-neighbor sampling, which keeps the
// pixel grid visible.
func Scale(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// SavePNG encodes img as a PNG and writes it to filename.
func SavePNG(img image.Image, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
