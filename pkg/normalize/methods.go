// Package normalize implements per-channel normalization of 5D bioimage
// tensors. A Strategy selects which sub-tensor the statistic is computed
// over (the whole channel, one reference z-stack or timepoint, or every
// z-stack/timepoint independently); a Method defines the transform derived
// from that statistic. The two axes compose freely.
package normalize

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Transform maps one float sample to its normalized value.
type Transform func(float64) float64

// Identity passes samples through unchanged. It is the fallback whenever a
// method's statistic is degenerate: microscopy data legitimately contains
// all-dark fields, so a flat region must not turn into NaN or an error.
func Identity(v float64) float64 { return v }

// Method computes a statistic over a reference block and turns it into a
// transform. Fit reports ok=false when the statistic is degenerate (zero
// maximum, equal bounds, zero spread); the engine then applies Identity and
// emits a warning instead of failing.
type Method interface {
	Name() string
	Fit(ref []float64) (tr Transform, ok bool)
}

// MaxDivide normalizes by dividing through the maximum value, mapping the
// block's peak to 1.0.
type MaxDivide struct{}

func (MaxDivide) Name() string { return "max" }

func (MaxDivide) Fit(ref []float64) (Transform, bool) {
	max := floats.Max(ref)
	if max <= 0 {
		return Identity, false
	}
	return func(v float64) float64 { return v / max }, true
}

// MinMax rescales to [0, 1] with (x - min) / (max - min).
type MinMax struct{}

func (MinMax) Name() string { return "minmax" }

func (MinMax) Fit(ref []float64) (Transform, bool) {
	min, max := floats.Min(ref), floats.Max(ref)
	if max == min {
		return Identity, false
	}
	span := max - min
	return func(v float64) float64 { return (v - min) / span }, true
}

// Percentile rescales by the low/high percentile bounds and clips the result
// to [0, 1], which suppresses hot pixels and detector outliers.
type Percentile struct {
	// Low and High are percent values in [0, 100].
	Low, High float64
}

// NewPercentile returns the conventional 2/98 percentile normalization.
func NewPercentile() Percentile {
	return Percentile{Low: 2, High: 98}
}

func (p Percentile) Name() string {
	return fmt.Sprintf("percentile(%g, %g)", p.Low, p.High)
}

func (p Percentile) Fit(ref []float64) (Transform, bool) {
	sorted := make([]float64, len(ref))
	copy(sorted, ref)
	sort.Float64s(sorted)
	lo := stat.Quantile(p.Low/100, stat.LinInterp, sorted, nil)
	hi := stat.Quantile(p.High/100, stat.LinInterp, sorted, nil)
	if hi <= lo {
		return Identity, false
	}
	span := hi - lo
	return func(v float64) float64 {
		n := (v - lo) / span
		if n < 0 {
			return 0
		}
		if n > 1 {
			return 1
		}
		return n
	}, true
}

// ZScore standardizes with (x - mean) / stddev. The result is centered on 0
// and NOT bounded to [0, 1]; callers must not assume a fixed output range.
// The spread is the sample standard deviation (n-1 divisor).
type ZScore struct{}

func (ZScore) Name() string { return "zscore" }

func (ZScore) Fit(ref []float64) (Transform, bool) {
	mean, std := stat.MeanStdDev(ref, nil)
	if !(std > 0) {
		return Identity, false
	}
	return func(v float64) float64 { return (v - mean) / std }, true
}

// ParseMethod resolves a method by name. Percentile bounds apply only to the
// "percentile" method; pass 0, 0 to use the 2/98 defaults.
func ParseMethod(name string, low, high float64) (Method, error) {
	switch name {
	case "max", "maxdivide":
		return MaxDivide{}, nil
	case "minmax":
		return MinMax{}, nil
	case "percentile":
		if low == 0 && high == 0 {
			return NewPercentile(), nil
		}
		if high <= low || low < 0 || high > 100 {
			return nil, fmt.Errorf("invalid percentile bounds (%g, %g): need 0 <= low < high <= 100", low, high)
		}
		return Percentile{Low: low, High: high}, nil
	case "zscore":
		return ZScore{}, nil
	default:
		return nil, fmt.Errorf("unknown normalization method %q (max, minmax, percentile, zscore)", name)
	}
}
