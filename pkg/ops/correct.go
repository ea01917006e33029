package ops

import (
	"gonum.org/v1/gonum/stat"

	"bioimagelab/pkg/tensor"
)

// FlatField corrects the multiplicative spatial variation of the optical
// system (vignetting, uneven sensor sensitivity, non-uniform field
// illumination) against a measured reference:
//
//	I_corr = (I - D) / (F - D) * mean(F - D)
//
// F is the master flat, D the optional dark frame. The mean-flat rescale
// keeps the corrected image on the input intensity scale. Pixels with a
// non-positive denominator pass through unchanged.
type FlatField struct {
	flat []float64
	dark []float64
	y, x int
}

// NewFlatField builds the corrector from a master flat and an optional
// (nil) master dark of the same geometry.
func NewFlatField(flat, dark *tensor.Plane[uint16]) FlatField {
	ff := FlatField{flat: toFloat(flat), y: flat.Y, x: flat.X}
	if dark != nil {
		ff.dark = toFloat(dark)
	}
	return ff
}

func (f FlatField) Name() string { return "flat_field" }

func (f FlatField) Params() map[string]any {
	return map[string]any{"hasDark": f.dark != nil}
}

func (f FlatField) Apply(p *tensor.Plane[uint16]) *tensor.Plane[uint16] {
	denom := make([]float64, len(f.flat))
	for i := range f.flat {
		d := 0.0
		if f.dark != nil {
			d = f.dark[i]
		}
		denom[i] = f.flat[i] - d
	}
	level := stat.Mean(denom, nil)

	out := tensor.NewPlane[uint16](p.Y, p.X)
	for i, v := range p.Pix {
		if denom[i] <= 0 {
			out.Pix[i] = v
			continue
		}
		d := 0.0
		if f.dark != nil {
			d = f.dark[i]
		}
		out.Pix[i] = clampUint16((float64(v) - d) / denom[i] * level)
	}
	return out
}

// FlatFieldEstimate corrects illumination without a measured flat by
// estimating the field from the image itself with a large-radius Gaussian:
// only the slow curvature of the light survives the blur, so dividing by it
// removes vignetting while keeping small bright objects.
type FlatFieldEstimate struct {
	// Radius of the estimating blur; large values (around 100) capture only
	// the illumination trend.
	Radius float64
}

func (f FlatFieldEstimate) Name() string { return "flat_field_estimate" }

func (f FlatFieldEstimate) Params() map[string]any {
	return map[string]any{"radius": f.Radius}
}

func (f FlatFieldEstimate) Apply(p *tensor.Plane[uint16]) *tensor.Plane[uint16] {
	est := Gaussian{Radius: f.Radius}.Apply(p)
	field := toFloat(est)
	level := stat.Mean(field, nil)

	out := tensor.NewPlane[uint16](p.Y, p.X)
	for i, v := range p.Pix {
		if field[i] <= 0 {
			out.Pix[i] = v
			continue
		}
		out.Pix[i] = clampUint16(float64(v) / field[i] * level)
	}
	return out
}

// BackgroundSubtract removes the slow additive background (detector glow,
// autofluorescence, residual ambient light) measured in a dark frame,
// clipping at zero so no sample goes negative.
type BackgroundSubtract struct {
	dark []float64
}

// NewBackgroundSubtract builds the corrector from a master dark frame.
func NewBackgroundSubtract(dark *tensor.Plane[uint16]) BackgroundSubtract {
	return BackgroundSubtract{dark: toFloat(dark)}
}

func (b BackgroundSubtract) Name() string { return "background_subtract" }

func (b BackgroundSubtract) Params() map[string]any {
	return map[string]any{}
}

func (b BackgroundSubtract) Apply(p *tensor.Plane[uint16]) *tensor.Plane[uint16] {
	out := tensor.NewPlane[uint16](p.Y, p.X)
	for i, v := range p.Pix {
		out.Pix[i] = clampUint16(float64(v) - b.dark[i])
	}
	return out
}

// Shading applies a known multiplicative shading map: I_corr = I * map.
type Shading struct {
	gain []float64
}

// NewShading builds the corrector from a per-pixel gain map.
func NewShading(gain []float64) Shading {
	return Shading{gain: gain}
}

func (s Shading) Name() string { return "shading" }

func (s Shading) Params() map[string]any {
	return map[string]any{}
}

func (s Shading) Apply(p *tensor.Plane[uint16]) *tensor.Plane[uint16] {
	out := tensor.NewPlane[uint16](p.Y, p.X)
	for i, v := range p.Pix {
		out.Pix[i] = clampUint16(float64(v) * s.gain[i])
	}
	return out
}

// ShadingEstimate corrects shading with no reference at all: a low-degree
// polynomial surface is fit to the image as the illumination estimate L,
// then the image is divided by L normalized to unit mean.
type ShadingEstimate struct {
	// Degree of the fitted polynomial surface.
	Degree int
}

func (s ShadingEstimate) Name() string { return "shading_estimate" }

func (s ShadingEstimate) Params() map[string]any {
	return map[string]any{"degree": s.Degree}
}

func (s ShadingEstimate) Apply(p *tensor.Plane[uint16]) *tensor.Plane[uint16] {
	surface, err := fitSurface(toFloat(p), p.Y, p.X, s.Degree)
	if err != nil {
		return p.Clone()
	}
	level := stat.Mean(surface, nil)
	if level <= 0 {
		return p.Clone()
	}

	out := tensor.NewPlane[uint16](p.Y, p.X)
	for i, v := range p.Pix {
		gain := surface[i] / level
		if gain <= 0 {
			out.Pix[i] = v
			continue
		}
		out.Pix[i] = clampUint16(float64(v) / gain)
	}
	return out
}
