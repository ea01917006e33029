package normalize

import (
	"errors"
	"math"
	"testing"

	"bioimagelab/pkg/diag"
	"bioimagelab/pkg/tensor"
)

// rampTensor builds a (2, 3, 2, 4, 4) raw tensor whose channel 0 holds a
// linear ramp 0..N-1 and whose channel 1 is constant 1000.
func rampTensor(t *testing.T) *tensor.Tensor[uint16] {
	t.Helper()
	shape := tensor.Shape{T: 2, Z: 3, C: 2, Y: 4, X: 4}
	raw, err := tensor.New[uint16](shape)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	var v uint16
	for ti := 0; ti < shape.T; ti++ {
		for z := 0; z < shape.Z; z++ {
			for y := 0; y < shape.Y; y++ {
				for x := 0; x < shape.X; x++ {
					raw.Set(ti, z, 0, y, x, v)
					raw.Set(ti, z, 1, y, x, 1000)
					v++
				}
			}
		}
	}
	return raw
}

// TestGlobalMaxDivide verifies the end-to-end global strategy: the result
// spans exactly [0, 1] over a linear ramp
func TestGlobalMaxDivide(t *testing.T) {
	raw := rampTensor(t)
	engine := NewEngine(raw.Shape(), []string{"DAPI", "GFP"}, nil)

	out, err := engine.Normalize(raw, 0, Global{}, MaxDivide{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	wantShape := tensor.Shape{T: 2, Z: 3, C: 1, Y: 4, X: 4}
	if out.Shape() != wantShape {
		t.Fatalf("Expected shape %s, got %s", wantShape, out.Shape())
	}

	min, max := math.Inf(1), math.Inf(-1)
	for _, v := range out.Values() {
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	if min != 0 {
		t.Errorf("Expected min 0.0, got %f", min)
	}
	if max != 1 {
		t.Errorf("Expected max 1.0, got %f", max)
	}
}

// TestNormalizeIdempotent verifies two identical calls yield bit-identical
// tensors with no hidden accumulation
func TestNormalizeIdempotent(t *testing.T) {
	raw := rampTensor(t)
	engine := NewEngine(raw.Shape(), []string{"DAPI", "GFP"}, nil)

	first, err := engine.Normalize(raw, 0, Global{}, MaxDivide{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	second, err := engine.Normalize(raw, 0, Global{}, MaxDivide{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	a, b := first.Values(), second.Values()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Results differ at offset %d: %v vs %v", i, a[i], b[i])
		}
	}
}

// TestNormalizeReturnsCopy verifies the caller cannot corrupt the engine's
// cache through the returned tensor
func TestNormalizeReturnsCopy(t *testing.T) {
	raw := rampTensor(t)
	engine := NewEngine(raw.Shape(), []string{"DAPI", "GFP"}, nil)

	out, _ := engine.Normalize(raw, 0, Global{}, MaxDivide{})
	out.Set(0, 0, 0, 0, 0, 123.0)

	cached, ok := engine.Cached(0)
	if !ok {
		t.Fatalf("Expected channel 0 to be cached")
	}
	if got := cached.At(0, 0, 0, 0, 0); got == 123.0 {
		t.Errorf("Mutating the returned tensor reached the cache")
	}
}

// TestZPerSliceVsGlobalDivergence verifies the per-slice and global scopes
// on the same raw input: with z=0 peaking at 10 and z=1 at 100, Z-PerSlice
// reaches 1.0 inside z=0 while Global tops out at 0.1 there
func TestZPerSliceVsGlobalDivergence(t *testing.T) {
	shape := tensor.Shape{T: 1, Z: 2, C: 1, Y: 2, X: 2}
	raw, _ := tensor.New[uint16](shape)
	raw.Set(0, 0, 0, 0, 0, 10)  // z=0 peak
	raw.Set(0, 1, 0, 0, 0, 100) // z=1 peak

	perSlice := NewEngine(shape, []string{"Gray"}, nil)
	outPer, err := perSlice.Normalize(raw, 0, ZPerSlice{}, MaxDivide{})
	if err != nil {
		t.Fatalf("ZPerSlice normalize failed: %v", err)
	}

	global := NewEngine(shape, []string{"Gray"}, nil)
	outGlob, err := global.Normalize(raw, 0, Global{}, MaxDivide{})
	if err != nil {
		t.Fatalf("Global normalize failed: %v", err)
	}

	if got := outPer.At(0, 0, 0, 0, 0); got != 1.0 {
		t.Errorf("Expected Z-PerSlice z=0 peak 1.0, got %f", got)
	}
	if got := outGlob.At(0, 0, 0, 0, 0); got != 0.1 {
		t.Errorf("Expected Global z=0 peak 0.1, got %f", got)
	}
}

// TestZReferenceAppliesToWholeChannel verifies the reference slice's
// transform reaches every z-stack, not just the reference
func TestZReferenceAppliesToWholeChannel(t *testing.T) {
	shape := tensor.Shape{T: 1, Z: 2, C: 1, Y: 2, X: 2}
	raw, _ := tensor.New[uint16](shape)
	raw.Set(0, 0, 0, 0, 0, 50)  // reference z=0, max 50
	raw.Set(0, 1, 0, 0, 0, 100) // z=1 exceeds the reference max

	engine := NewEngine(shape, []string{"Gray"}, nil)
	out, err := engine.Normalize(raw, 0, ZReference{Z: 0}, MaxDivide{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if got := out.At(0, 0, 0, 0, 0); got != 1.0 {
		t.Errorf("Expected reference slice peak 1.0, got %f", got)
	}
	// Non-reference slices divide by the reference max and may exceed 1.
	if got := out.At(0, 1, 0, 0, 0); got != 2.0 {
		t.Errorf("Expected z=1 peak 100/50=2.0, got %f", got)
	}
}

// TestTPerSliceUniformAcrossZ verifies a timepoint's statistic covers all of
// its z-stacks at once
func TestTPerSliceUniformAcrossZ(t *testing.T) {
	shape := tensor.Shape{T: 2, Z: 2, C: 1, Y: 1, X: 1}
	raw, _ := tensor.New[uint16](shape)
	raw.Set(0, 0, 0, 0, 0, 10)
	raw.Set(0, 1, 0, 0, 0, 20) // t=0 max is 20, shared by both z
	raw.Set(1, 0, 0, 0, 0, 40)
	raw.Set(1, 1, 0, 0, 0, 80) // t=1 max is 80

	engine := NewEngine(shape, []string{"Gray"}, nil)
	out, err := engine.Normalize(raw, 0, TPerSlice{}, MaxDivide{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if got := out.At(0, 0, 0, 0, 0); got != 0.5 {
		t.Errorf("Expected t=0 z=0 value 10/20=0.5, got %f", got)
	}
	if got := out.At(1, 0, 0, 0, 0); got != 0.5 {
		t.Errorf("Expected t=1 z=0 value 40/80=0.5, got %f", got)
	}
}

// TestDegenerateChannelWarns verifies an all-zero channel normalizes to a
// pass-through copy plus a warning event, never an error or NaN
func TestDegenerateChannelWarns(t *testing.T) {
	shape := tensor.Shape{T: 1, Z: 1, C: 1, Y: 2, X: 2}
	raw, _ := tensor.New[uint16](shape)

	recorder := &diag.Recorder{}
	engine := NewEngine(shape, []string{"Dark"}, recorder)

	out, err := engine.Normalize(raw, 0, Global{}, MaxDivide{})
	if err != nil {
		t.Fatalf("Expected degenerate input to succeed, got %v", err)
	}
	for _, v := range out.Values() {
		if v != 0 {
			t.Errorf("Expected pass-through zeros, got %f", v)
		}
		if math.IsNaN(v) {
			t.Errorf("Degenerate normalization produced NaN")
		}
	}

	warnings := recorder.Warnings()
	if len(warnings) != 1 {
		t.Fatalf("Expected 1 warning, got %d", len(warnings))
	}
	if warnings[0].Fields["channel"] != 0 {
		t.Errorf("Expected warning to identify channel 0, got %v", warnings[0].Fields["channel"])
	}
}

// TestNormalizeRangeErrors verifies every index argument is validated with
// its bound before the cache is touched
func TestNormalizeRangeErrors(t *testing.T) {
	raw := rampTensor(t)
	engine := NewEngine(raw.Shape(), []string{"DAPI", "GFP"}, nil)

	cases := []struct {
		name  string
		strat Strategy
		ch    int
		want  string
	}{
		{"channel", Global{}, 5, "channel 5 out of range: valid 0-1"},
		{"zRef", ZReference{Z: 9}, 0, "zRef 9 out of range: valid 0-2"},
		{"tRef", TReference{T: 4}, 0, "tRef 4 out of range: valid 0-1"},
	}

	for _, tc := range cases {
		_, err := engine.Normalize(raw, tc.ch, tc.strat, MaxDivide{})
		if err == nil {
			t.Errorf("%s: expected range error, got nil", tc.name)
			continue
		}
		var re *tensor.RangeError
		if !errors.As(err, &re) {
			t.Errorf("%s: expected *tensor.RangeError, got %T", tc.name, err)
		}
		if err.Error() != tc.want {
			t.Errorf("%s: expected %q, got %q", tc.name, tc.want, err.Error())
		}
		if _, ok := engine.Cached(0); ok {
			t.Errorf("%s: failed call must not allocate the cache", tc.name)
		}
	}
}

// TestChannelCachesAreIndependent verifies normalizing one channel never
// touches another channel's cached result
func TestChannelCachesAreIndependent(t *testing.T) {
	raw := rampTensor(t)
	engine := NewEngine(raw.Shape(), []string{"DAPI", "GFP"}, nil)

	first, err := engine.Normalize(raw, 0, Global{}, MaxDivide{})
	if err != nil {
		t.Fatalf("Normalize channel 0 failed: %v", err)
	}

	if _, err := engine.Normalize(raw, 1, Global{}, MinMax{}); err != nil {
		t.Fatalf("Normalize channel 1 failed: %v", err)
	}

	cached, ok := engine.Cached(0)
	if !ok {
		t.Fatalf("Expected channel 0 to stay cached")
	}
	a, b := first.Values(), cached.Values()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Channel 0 cache changed at offset %d after normalizing channel 1", i)
		}
	}
}

// TestParseStrategy verifies the name table
func TestParseStrategy(t *testing.T) {
	strat, err := ParseStrategy("zref", 2, 0)
	if err != nil {
		t.Fatalf("ParseStrategy failed: %v", err)
	}
	zr, ok := strat.(ZReference)
	if !ok {
		t.Fatalf("Expected ZReference, got %T", strat)
	}
	if zr.Z != 2 {
		t.Errorf("Expected reference z=2, got %d", zr.Z)
	}

	if _, err := ParseStrategy("diagonal", 0, 0); err == nil {
		t.Errorf("Expected unknown strategy to fail")
	}
}
