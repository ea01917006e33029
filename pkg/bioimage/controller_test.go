package bioimage

import (
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"bioimagelab/pkg/normalize"
	"bioimagelab/pkg/tensor"
)

// TestClassify verifies the extension table, case-insensitively, with the
// grayscale path as the total default
func TestClassify(t *testing.T) {
	cases := []struct {
		path string
		bio  bool
	}{
		{"sample.ids", true},
		{"sample.ics", true},
		{"sample.tif", true},
		{"SAMPLE.TIFF", true},
		{"photo.png", false},
		{"photo.jpg", false},
		{"noextension", false},
	}

	for _, tc := range cases {
		origin := Classify(tc.path)
		_, isBio := origin.(BioFormats)
		if isBio != tc.bio {
			t.Errorf("Classify(%q): expected bio=%v, got %T", tc.path, tc.bio, origin)
		}
	}
}

// TestLoadStandardImage verifies the grayscale path: 8-bit samples are
// upconverted by x256 and reshaped to (1, 1, 1, Y, X) with a synthetic
// channel table
func TestLoadStandardImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.Pix[y*img.Stride+x] = uint8(10*y + x)
		}
	}
	path := filepath.Join(t.TempDir(), "photo.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	f.Close()

	c := NewController(path)
	if err := c.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := tensor.Shape{T: 1, Z: 1, C: 1, Y: 3, X: 4}
	if c.Shape() != want {
		t.Fatalf("Expected shape %s, got %s", want, c.Shape())
	}

	names := c.ChannelNames()
	if len(names) != 1 || names[0] != "Gray" {
		t.Errorf("Expected synthetic channel table [Gray], got %v", names)
	}

	p, err := c.RawSlice(0, 0, 0)
	if err != nil {
		t.Fatalf("RawSlice failed: %v", err)
	}
	if got := p.At(2, 3); got != uint16(23)*256 {
		t.Errorf("Expected 8-bit sample 23 upconverted to %d, got %d", uint16(23)*256, got)
	}
}

// TestLoadFailureLeavesStoreEmpty verifies a missing file reports an error
// and the controller stays unusable but consistent
func TestLoadFailureLeavesStoreEmpty(t *testing.T) {
	c := NewController(filepath.Join(t.TempDir(), "missing.png"))
	if err := c.Load(); err == nil {
		t.Fatalf("Expected load of missing file to fail")
	}
	if c.Loaded() {
		t.Errorf("Expected store to stay empty after failed load")
	}
	if _, err := c.RawSlice(0, 0, 0); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Expected ErrNotLoaded, got %v", err)
	}
}

// TestLoadUnsupportedBioformat verifies .ics files without a custom decoder
// fail with ErrUnsupportedFormat
func TestLoadUnsupportedBioformat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stack.ics")
	if err := os.WriteFile(path, []byte("ics\nnot really"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	c := NewController(path)
	err := c.Load()
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("Expected ErrUnsupportedFormat, got %v", err)
	}
	if c.Loaded() {
		t.Errorf("Expected store to stay empty")
	}
}

// stubDecoder injects a synthetic tensor through the bioformats path
type stubDecoder struct {
	raw   *tensor.Tensor[uint16]
	names []string
	err   error
}

func (d stubDecoder) Decode(string) (*tensor.Tensor[uint16], []string, error) {
	return d.raw, d.names, d.err
}

// syntheticController loads a (2, 3, 2, 4, 4) tensor whose channel 0 is a
// linear ramp 0..95 and channel 1 a constant
func syntheticController(t *testing.T) *Controller {
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
					raw.Set(ti, z, 1, y, x, 500)
					v++
				}
			}
		}
	}

	c := NewController("stack.ics", WithDecoder(stubDecoder{raw: raw, names: []string{"DAPI", "GFP"}}))
	if err := c.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return c
}

// TestEndToEndNormalizeBinarize runs the full scenario: global max-divide on
// the ramped channel spans [0, 1], and the binary mask holds only {0, 255}
// with the 255 count matching the samples above threshold
func TestEndToEndNormalizeBinarize(t *testing.T) {
	c := syntheticController(t)

	norm, err := c.Normalize(0, normalize.Global{}, normalize.MaxDivide{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	min, max := norm.Values()[0], norm.Values()[0]
	above := 0
	for _, v := range norm.Values() {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		if v > 0.5 {
			above++
		}
	}
	if min != 0 {
		t.Errorf("Expected normalized min 0.0, got %f", min)
	}
	if max != 1 {
		t.Errorf("Expected normalized max 1.0, got %f", max)
	}

	mask, err := c.Binarize(0, 0.5)
	if err != nil {
		t.Fatalf("Binarize failed: %v", err)
	}

	count255 := 0
	for _, v := range mask.Values() {
		switch v {
		case 0:
		case 255:
			count255++
		default:
			t.Fatalf("Expected only values in {0, 255}, got %d", v)
		}
	}
	if count255 != above {
		t.Errorf("Expected %d samples at 255, got %d", above, count255)
	}
}

// TestBinarizeBeforeNormalize verifies the precondition error and that the
// binary cache is not allocated by the failed call
func TestBinarizeBeforeNormalize(t *testing.T) {
	c := syntheticController(t)

	_, err := c.Binarize(0, 0.5)
	if !errors.Is(err, ErrNotNormalized) {
		t.Fatalf("Expected ErrNotNormalized, got %v", err)
	}
	if c.binary != nil {
		t.Errorf("Failed binarize must not allocate the binary cache")
	}

	if _, err := c.BinarySlice(0, 0, 0); !errors.Is(err, ErrNotBinarized) {
		t.Errorf("Expected ErrNotBinarized, got %v", err)
	}
}

// TestChannelRangeEverywhere verifies out-of-range channels are rejected
// with the same bound citation from every entry point
func TestChannelRangeEverywhere(t *testing.T) {
	c := syntheticController(t)
	const want = "channel 5 out of range: valid 0-1"

	if _, err := c.Normalize(5, normalize.Global{}, normalize.MaxDivide{}); err == nil || err.Error() != want {
		t.Errorf("Normalize: expected %q, got %v", want, err)
	}
	if _, err := c.Binarize(5, 0.5); err == nil || err.Error() != want {
		t.Errorf("Binarize: expected %q, got %v", want, err)
	}
	if _, err := c.RawSlice(5, 0, 0); err == nil || err.Error() != want {
		t.Errorf("RawSlice: expected %q, got %v", want, err)
	}
	if _, err := c.Slices(5); err == nil || err.Error() != want {
		t.Errorf("Slices: expected %q, got %v", want, err)
	}
	if _, err := c.ChannelName(5); err == nil || err.Error() != want {
		t.Errorf("ChannelName: expected %q, got %v", want, err)
	}
}

// TestRawSliceDeepCopy verifies mutating a returned slice cannot alter the
// raw store
func TestRawSliceDeepCopy(t *testing.T) {
	c := syntheticController(t)

	p, err := c.RawSlice(1, 0, 0)
	if err != nil {
		t.Fatalf("RawSlice failed: %v", err)
	}
	p.Set(0, 0, 9999)

	again, _ := c.RawSlice(1, 0, 0)
	if got := again.At(0, 0); got != 500 {
		t.Errorf("Slice mutation leaked into the store: got %d, want 500", got)
	}
}

// TestNormalizedSliceShape verifies normalized slices validate (t, z)
// against the cache tensor's own shape and only accept its channel extent
func TestNormalizedSliceShape(t *testing.T) {
	c := syntheticController(t)
	if _, err := c.Normalize(0, normalize.Global{}, normalize.MaxDivide{}); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	p, err := c.NormalizedSlice(0, 1, 2)
	if err != nil {
		t.Fatalf("NormalizedSlice failed: %v", err)
	}
	if p.Y != 4 || p.X != 4 {
		t.Errorf("Expected 4x4 plane, got %dx%d", p.Y, p.X)
	}

	if _, err := c.NormalizedSlice(0, 2, 0); err == nil {
		t.Errorf("Expected out-of-range t to fail")
	}
	if _, err := c.NormalizedSlice(1, 0, 0); !errors.Is(err, ErrNotNormalized) {
		t.Errorf("Expected ErrNotNormalized for untouched channel, got %v", err)
	}
}

// TestSlicesIteration verifies the (t, z) walk order and restartability
// through the controller
func TestSlicesIteration(t *testing.T) {
	c := syntheticController(t)

	seq, err := c.Slices(0)
	if err != nil {
		t.Fatalf("Slices failed: %v", err)
	}

	count := 0
	var last tensor.Index
	for idx := range seq {
		last = idx
		count++
	}
	if count != 6 {
		t.Errorf("Expected 6 slices (T=2 x Z=3), got %d", count)
	}
	if last != (tensor.Index{C: 0, T: 1, Z: 2}) {
		t.Errorf("Expected final index {0 1 2}, got %+v", last)
	}

	count = 0
	for range seq {
		count++
	}
	if count != 6 {
		t.Errorf("Expected restarted iteration to yield 6 slices, got %d", count)
	}

	all, err := c.AllSlices()
	if err != nil {
		t.Fatalf("AllSlices failed: %v", err)
	}
	count = 0
	for range all {
		count++
	}
	if count != 12 {
		t.Errorf("Expected 12 slices over both channels, got %d", count)
	}
}

// TestProcessedSliceRoundTrip verifies the write-back path for plane
// operations
func TestProcessedSliceRoundTrip(t *testing.T) {
	c := syntheticController(t)

	p := tensor.NewPlane[uint16](4, 4)
	p.Set(2, 2, 777)
	if err := c.SetProcessedSlice(1, 0, 1, p); err != nil {
		t.Fatalf("SetProcessedSlice failed: %v", err)
	}

	got, err := c.ProcessedSlice(1, 0, 1)
	if err != nil {
		t.Fatalf("ProcessedSlice failed: %v", err)
	}
	if got.At(2, 2) != 777 {
		t.Errorf("Expected written sample 777, got %d", got.At(2, 2))
	}

	// Untouched slots stay zero.
	other, _ := c.ProcessedSlice(0, 0, 0)
	if other.At(2, 2) != 0 {
		t.Errorf("Expected untouched processed slot to stay zero, got %d", other.At(2, 2))
	}

	if err := c.SetProcessedSlice(1, 0, 1, tensor.NewPlane[uint16](2, 2)); err == nil {
		t.Errorf("Expected mismatched plane shape to fail")
	}
}

// TestDecoderFailurePropagates verifies bioformats decode errors surface and
// leave the store empty
func TestDecoderFailurePropagates(t *testing.T) {
	boom := errors.New("corrupt stack")
	c := NewController("stack.ids", WithDecoder(stubDecoder{err: boom}))
	if err := c.Load(); !errors.Is(err, boom) {
		t.Fatalf("Expected decoder error to propagate, got %v", err)
	}
	if c.Loaded() {
		t.Errorf("Expected store to stay empty after decoder failure")
	}
}
