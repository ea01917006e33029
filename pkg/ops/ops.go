// Package ops provides the interchangeable plane operations applied during
// preprocessing: blur filters, illumination correctors and background
// estimation. Each operation is a parameterized pass-through to a numeric or
// image library; the tensor core consumes them as opaque plane -> plane
// capabilities and never needs their internals.
//
// Operations work on 16-bit grayscale planes, matching the raw tensor's
// sample type, so results can be written straight back into the processed
// tensor.
package ops

import (
	"image"
	"image/color"

	"bioimagelab/pkg/tensor"
)

// Operation is one atomic preprocessing step on a 2D plane. Apply must not
// mutate its input; implementations return a new plane.
type Operation interface {
	// Name identifies the operation kind for pipeline records.
	Name() string

	// Params reports the operation's configuration for pipeline records.
	Params() map[string]any

	Apply(p *tensor.Plane[uint16]) *tensor.Plane[uint16]
}

// toGray16 converts a plane to a 16-bit grayscale image for the filter
// libraries.
func toGray16(p *tensor.Plane[uint16]) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, p.X, p.Y))
	for y := 0; y < p.Y; y++ {
		for x := 0; x < p.X; x++ {
			img.SetGray16(x, y, color.Gray16{Y: p.At(y, x)})
		}
	}
	return img
}

// fromImage converts a filtered image back to a 16-bit plane. 8-bit filter
// output (bild works in RGBA space) is widened to 16-bit through the color
// model.
func fromImage(img image.Image) *tensor.Plane[uint16] {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	p := tensor.NewPlane[uint16](h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			switch im := img.(type) {
			case *image.Gray16:
				p.Set(y, x, im.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y)
			default:
				r, _, _, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				p.Set(y, x, uint16(r))
			}
		}
	}
	return p
}

// toFloat copies a plane into float64 samples.
func toFloat(p *tensor.Plane[uint16]) []float64 {
	out := make([]float64, len(p.Pix))
	for i, v := range p.Pix {
		out[i] = float64(v)
	}
	return out
}

// clampUint16 rounds a float sample into the uint16 range.
func clampUint16(v float64) uint16 {
	if v <= 0 {
		return 0
	}
	if v >= 65535 {
		return 65535
	}
	return uint16(v + 0.5)
}
