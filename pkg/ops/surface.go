package ops

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"bioimagelab/pkg/tensor"
)

// SurfaceFit estimates the background of a plane by least-squares fitting a
// 2D polynomial surface of the given degree. Applying it returns the fitted
// surface itself, which callers subtract or divide out as appropriate.
type SurfaceFit struct {
	Degree int
}

func (s SurfaceFit) Name() string { return "surface_fit" }

func (s SurfaceFit) Params() map[string]any {
	return map[string]any{"degree": s.Degree}
}

func (s SurfaceFit) Apply(p *tensor.Plane[uint16]) *tensor.Plane[uint16] {
	surface, err := fitSurface(toFloat(p), p.Y, p.X, s.Degree)
	if err != nil {
		return p.Clone()
	}
	out := tensor.NewPlane[uint16](p.Y, p.X)
	for i, v := range surface {
		out.Pix[i] = clampUint16(v)
	}
	return out
}

// fitSurface solves the least-squares polynomial fit z ~ sum c_ij x^i y^j
// over i+j <= degree and evaluates it on the full grid. Coordinates are
// scaled to [0, 1] to keep the design matrix well conditioned.
func fitSurface(vals []float64, h, w, degree int) ([]float64, error) {
	if degree < 0 {
		return nil, fmt.Errorf("polynomial degree must be >= 0, got %d", degree)
	}

	var terms int
	for i := 0; i <= degree; i++ {
		terms += degree + 1 - i
	}
	n := h * w
	if n < terms {
		return nil, fmt.Errorf("plane with %d samples cannot constrain %d polynomial terms", n, terms)
	}

	sx := 1.0
	if w > 1 {
		sx = 1 / float64(w-1)
	}
	sy := 1.0
	if h > 1 {
		sy = 1 / float64(h-1)
	}

	design := mat.NewDense(n, terms, nil)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			row := y*w + x
			fx := float64(x) * sx
			fy := float64(y) * sy
			col := 0
			for i := 0; i <= degree; i++ {
				for j := 0; j <= degree-i; j++ {
					design.Set(row, col, pow(fx, i)*pow(fy, j))
					col++
				}
			}
		}
	}

	var qr mat.QR
	qr.Factorize(design)
	var coef mat.VecDense
	if err := qr.SolveVecTo(&coef, false, mat.NewVecDense(n, vals)); err != nil {
		return nil, fmt.Errorf("surface fit failed: %w", err)
	}

	surface := make([]float64, n)
	var fitted mat.VecDense
	fitted.MulVec(design, &coef)
	for i := range surface {
		surface[i] = fitted.AtVec(i)
	}
	return surface, nil
}

func pow(base float64, exp int) float64 {
	out := 1.0
	for ; exp > 0; exp-- {
		out *= base
	}
	return out
}
