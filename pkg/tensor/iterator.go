package tensor

import "iter"

// Index addresses one 2D plane inside a tensor.
type Index struct {
	C, T, Z int
}

// Planes returns a lazy sequence of every (t, z) plane of one channel, with t
// as the outer loop and z as the inner loop. Each yielded plane is a deep
// copy. The sequence holds no cursor: ranging over it again restarts from
// (0, 0).
func (t *Tensor[V]) Planes(c int) (iter.Seq2[Index, *Plane[V]], error) {
	if err := CheckIndex("channel", c, t.shape.C); err != nil {
		return nil, err
	}
	return func(yield func(Index, *Plane[V]) bool) {
		for ti := 0; ti < t.shape.T; ti++ {
			for z := 0; z < t.shape.Z; z++ {
				p, err := t.Plane(c, ti, z)
				if err != nil {
					return
				}
				if !yield(Index{C: c, T: ti, Z: z}, p) {
					return
				}
			}
		}
	}, nil
}

// AllPlanes returns a lazy sequence over every plane of the tensor, channel
// outer, then t, then z. Like Planes, it yields deep copies and restarts on
// every range.
func (t *Tensor[V]) AllPlanes() iter.Seq2[Index, *Plane[V]] {
	return func(yield func(Index, *Plane[V]) bool) {
		for c := 0; c < t.shape.C; c++ {
			for ti := 0; ti < t.shape.T; ti++ {
				for z := 0; z < t.shape.Z; z++ {
					p, err := t.Plane(c, ti, z)
					if err != nil {
						return
					}
					if !yield(Index{C: c, T: ti, Z: z}, p) {
						return
					}
				}
			}
		}
	}
}
