package bioimage

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/tiff"

	"bioimagelab/pkg/tensor"
)

// Decoder is the black-box bioformats capability: it turns a file into a raw
// (T, Z, C, Y, X) tensor plus the channel name table parallel to the C axis.
// Implementations own format details; the controller only relies on this
// contract.
type Decoder interface {
	Decode(path string) (*tensor.Tensor[uint16], []string, error)
}

// TIFFDecoder is the default Decoder. It reads single-plane TIFF files
// (16-bit grayscale preserved, anything else grayscaled and upconverted)
// into a (1, 1, 1, Y, X) tensor. Multi-dimensional formats such as .ics/.ids
// need a caller-supplied Decoder and fail with ErrUnsupportedFormat here.
type TIFFDecoder struct{}

func (TIFFDecoder) Decode(path string) (*tensor.Tensor[uint16], []string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".tif" && ext != ".tiff" {
		return nil, nil, fmt.Errorf("%w: %q (supply a decoder for %s files)", ErrUnsupportedFormat, path, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	img, err := tiff.Decode(f)
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", path, err)
	}

	raw, err := tensorFromPlane(grayPlane16(img))
	if err != nil {
		return nil, nil, err
	}
	return raw, []string{"Gray"}, nil
}

// readStandard decodes a plain photograph to one grayscale plane and wraps
// it as a degenerate (1, 1, 1, Y, X) tensor with a synthetic channel table.
func readStandard(path string) (*tensor.Tensor[uint16], []string, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read image %s: %w", path, err)
	}

	raw, err := tensorFromPlane(grayPlane16(img))
	if err != nil {
		return nil, nil, err
	}
	return raw, []string{"Gray"}, nil
}

// grayPlane16 converts any decoded image to a 16-bit grayscale plane. 16-bit
// sources keep their full depth; 8-bit sources are upconverted by a fixed
// x256 scale so both origin types share one bit-depth downstream.
func grayPlane16(img image.Image) *tensor.Plane[uint16] {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	plane := tensor.NewPlane[uint16](h, w)

	switch im := img.(type) {
	case *image.Gray16:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				plane.Set(y, x, im.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y)
			}
		}
	default:
		gray := imaging.Grayscale(img)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				plane.Set(y, x, uint16(gray.NRGBAAt(x, y).R)*256)
			}
		}
	}
	return plane
}

// tensorFromPlane lifts a 2D plane into the 5D model as (1, 1, 1, Y, X).
func tensorFromPlane(p *tensor.Plane[uint16]) (*tensor.Tensor[uint16], error) {
	raw, err := tensor.New[uint16](tensor.Shape{T: 1, Z: 1, C: 1, Y: p.Y, X: p.X})
	if err != nil {
		return nil, err
	}
	if err := raw.SetPlane(0, 0, 0, p); err != nil {
		return nil, err
	}
	return raw, nil
}
