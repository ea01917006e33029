package ops

import (
	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"

	"bioimagelab/pkg/tensor"
)

// Gaussian smooths the plane with a Gaussian kernel. It removes electronic
// background noise at the cost of softening edges such as cell boundaries.
type Gaussian struct {
	// Radius is the blur radius in pixels.
	Radius float64
}

func (g Gaussian) Name() string { return "gaussian" }

func (g Gaussian) Params() map[string]any {
	return map[string]any{"radius": g.Radius}
}

func (g Gaussian) Apply(p *tensor.Plane[uint16]) *tensor.Plane[uint16] {
	if g.Radius <= 0 {
		return p.Clone()
	}
	return fromImage(blur.Gaussian(toGray16(p), g.Radius))
}

// Median replaces each pixel with the median of its neighborhood. Effective
// against salt-and-pepper noise (saturated or dead pixels) while keeping
// edges sharper than a Gaussian.
type Median struct {
	Radius float64
}

func (m Median) Name() string { return "median" }

func (m Median) Params() map[string]any {
	return map[string]any{"radius": m.Radius}
}

func (m Median) Apply(p *tensor.Plane[uint16]) *tensor.Plane[uint16] {
	if m.Radius <= 0 {
		return p.Clone()
	}
	return fromImage(effect.Median(toGray16(p), m.Radius))
}

// Box applies a normalized box (mean) blur: uniform, fast smoothing.
type Box struct {
	Radius float64
}

func (b Box) Name() string { return "box" }

func (b Box) Params() map[string]any {
	return map[string]any{"radius": b.Radius}
}

func (b Box) Apply(p *tensor.Plane[uint16]) *tensor.Plane[uint16] {
	if b.Radius <= 0 {
		return p.Clone()
	}
	return fromImage(blur.Box(toGray16(p), b.Radius))
}
