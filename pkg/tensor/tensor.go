// Package tensor implements the 5D multiarray that backs every bioimage in
// the toolkit. The axis order is fixed as [T, Z, C, Y, X] where T is the
// timelapse index, Z the optical focal plane, C the fluorescence channel and
// Y/X the pixel coordinates. A flat 2D photograph is the degenerate case
// (1, 1, 1, Y, X).
//
// Tensors are exclusively owned by whichever component materialized them.
// Getters that cross a component boundary (Plane, Planes, AllPlanes, Clone)
// always hand out deep copies so a downstream consumer can never overwrite
// data it only borrowed.
package tensor

import (
	"fmt"
)

// Sample is the set of pixel types a tensor can carry: raw acquisitions are
// 16-bit unsigned, normalized data is float64 and binary masks are uint8.
type Sample interface {
	~uint8 | ~uint16 | ~float64
}

// Shape holds the extent of each of the five axes. Every axis must be >= 1
// for a shape to be valid.
type Shape struct {
	T, Z, C, Y, X int
}

// Valid reports whether every axis has extent >= 1.
func (s Shape) Valid() bool {
	return s.T >= 1 && s.Z >= 1 && s.C >= 1 && s.Y >= 1 && s.X >= 1
}

// Len returns the total number of samples the shape describes.
func (s Shape) Len() int {
	return s.T * s.Z * s.C * s.Y * s.X
}

func (s Shape) String() string {
	return fmt.Sprintf("(%d, %d, %d, %d, %d)", s.T, s.Z, s.C, s.Y, s.X)
}

// Tensor is a dense 5D array stored as a flat backing slice in row-major
// [T, Z, C, Y, X] order.
type Tensor[V Sample] struct {
	data  []V
	shape Shape
}

// New allocates a zero-filled tensor of the given shape.
func New[V Sample](shape Shape) (*Tensor[V], error) {
	if !shape.Valid() {
		return nil, fmt.Errorf("invalid tensor shape %s: every axis must be >= 1", shape)
	}
	return &Tensor[V]{
		data:  make([]V, shape.Len()),
		shape: shape,
	}, nil
}

// FromData wraps an existing flat sample slice as a tensor. The tensor takes
// ownership of data; the caller must not keep using it.
func FromData[V Sample](shape Shape, data []V) (*Tensor[V], error) {
	if !shape.Valid() {
		return nil, fmt.Errorf("invalid tensor shape %s: every axis must be >= 1", shape)
	}
	if len(data) != shape.Len() {
		return nil, fmt.Errorf("data length %d does not match shape %s (%d samples)",
			len(data), shape, shape.Len())
	}
	return &Tensor[V]{data: data, shape: shape}, nil
}

// Shape returns the tensor's axis extents.
func (t *Tensor[V]) Shape() Shape {
	return t.shape
}

// index computes the flat offset for (ti, z, c, y, x). Indices are assumed
// validated by the caller.
func (t *Tensor[V]) index(ti, z, c, y, x int) int {
	s := t.shape
	return ((((ti*s.Z)+z)*s.C+c)*s.Y+y)*s.X + x
}

// At returns the sample at (ti, z, c, y, x). Indices are not re-validated on
// this hot path; use CheckIndex or the plane getters for validated access.
func (t *Tensor[V]) At(ti, z, c, y, x int) V {
	return t.data[t.index(ti, z, c, y, x)]
}

// Set stores a sample at (ti, z, c, y, x). Only the owning component may
// mutate a tensor.
func (t *Tensor[V]) Set(ti, z, c, y, x int, v V) {
	t.data[t.index(ti, z, c, y, x)] = v
}

// Values exposes the tensor's backing slice in flat [T, Z, C, Y, X] order.
// The slice is shared storage, not a copy: it is intended for the owning
// component's vectorized passes. Borrowers must treat it as read-only.
func (t *Tensor[V]) Values() []V {
	return t.data
}

// Clone returns a deep copy of the tensor.
func (t *Tensor[V]) Clone() *Tensor[V] {
	data := make([]V, len(t.data))
	copy(data, t.data)
	return &Tensor[V]{data: data, shape: t.shape}
}

// Plane extracts the 2D (Y, X) slice at (c, ti, z) as a deep copy. The
// indices are validated against this tensor's own shape, so a single-channel
// tensor (normalized or binary cache entry) accepts only c == 0.
func (t *Tensor[V]) Plane(c, ti, z int) (*Plane[V], error) {
	if err := CheckIndex("channel", c, t.shape.C); err != nil {
		return nil, err
	}
	if err := CheckIndex("t", ti, t.shape.T); err != nil {
		return nil, err
	}
	if err := CheckIndex("z", z, t.shape.Z); err != nil {
		return nil, err
	}
	p := NewPlane[V](t.shape.Y, t.shape.X)
	base := t.index(ti, z, c, 0, 0)
	copy(p.Pix, t.data[base:base+t.shape.Y*t.shape.X])
	return p, nil
}

// SetPlane copies a 2D (Y, X) plane into the tensor at (c, ti, z). The plane
// must match the tensor's Y/X extents exactly.
func (t *Tensor[V]) SetPlane(c, ti, z int, p *Plane[V]) error {
	if err := CheckIndex("channel", c, t.shape.C); err != nil {
		return err
	}
	if err := CheckIndex("t", ti, t.shape.T); err != nil {
		return err
	}
	if err := CheckIndex("z", z, t.shape.Z); err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("plane must not be nil")
	}
	if p.Y != t.shape.Y || p.X != t.shape.X {
		return fmt.Errorf("plane shape (%d, %d) does not match tensor planes (%d, %d)",
			p.Y, p.X, t.shape.Y, t.shape.X)
	}
	base := t.index(ti, z, c, 0, 0)
	copy(t.data[base:base+t.shape.Y*t.shape.X], p.Pix)
	return nil
}

// Plane is a standalone 2D (Y, X) image extracted from a tensor. Pix is in
// row-major order, Pix[y*X+x].
type Plane[V Sample] struct {
	Y, X int
	Pix  []V
}

// NewPlane allocates a zero-filled (y, x) plane.
func NewPlane[V Sample](y, x int) *Plane[V] {
	return &Plane[V]{Y: y, X: x, Pix: make([]V, y*x)}
}

// At returns the sample at (y, x).
func (p *Plane[V]) At(y, x int) V {
	return p.Pix[y*p.X+x]
}

// Set stores a sample at (y, x).
func (p *Plane[V]) Set(y, x int, v V) {
	p.Pix[y*p.X+x] = v
}

// Clone returns a deep copy of the plane.
func (p *Plane[V]) Clone() *Plane[V] {
	out := NewPlane[V](p.Y, p.X)
	copy(out.Pix, p.Pix)
	return out
}
