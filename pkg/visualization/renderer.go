// Package visualization renders 2D slices of a loaded bioimage for
// interactive inspection: the raw channel slice, optionally paired with its
// binary mask, styled by the channel's fluorophore tint.
package visualization

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"bioimagelab/internal/models"
	"bioimagelab/pkg/tensor"
)

// SliceSource is the read-only boundary the renderer pulls slices through.
// bioimage.Controller satisfies it.
type SliceSource interface {
	RawSlice(channel, t, z int) (*tensor.Plane[uint16], error)
	BinarySlice(channel, t, z int) (*tensor.Plane[uint8], error)
	ChannelNames() []string
	Shape() tensor.Shape
}

// Renderer draws slice pairs from a source.
type Renderer struct {
	src SliceSource
}

// NewRenderer builds a renderer over a slice source.
func NewRenderer(src SliceSource) *Renderer {
	return &Renderer{src: src}
}

// Render draws the raw slice at (channel, t, z) and, if that channel has
// been binarized, its mask beside it. fluorophore selects the display tint
// ("gfp", "dapi", ...); unknown or empty tags render plain grayscale.
// Index violations surface as range errors; a missing binary mask is not an
// error, the raw panel is returned alone.
func (r *Renderer) Render(channel, t, z int, fluorophore string) (image.Image, error) {
	raw, err := r.src.RawSlice(channel, t, z)
	if err != nil {
		return nil, err
	}

	tint, tinted := models.FluorophoreTint(fluorophore)
	rawPanel := renderRaw(raw, tint.Color, tinted)

	bin, err := r.src.BinarySlice(channel, t, z)
	if err != nil {
		var re *tensor.RangeError
		if errors.As(err, &re) {
			return nil, err
		}
		// No mask computed for this channel yet: single panel.
		return rawPanel, nil
	}

	binPanel := renderBinary(bin, tint.Color, tinted)
	return composite(rawPanel, binPanel), nil
}

// RenderToFile renders one slice pair and saves it; the format follows the
// file extension.
func (r *Renderer) RenderToFile(channel, t, z int, fluorophore, path string) error {
	img, err := r.Render(channel, t, z, fluorophore)
	if err != nil {
		return err
	}
	return imaging.Save(img, path)
}

// RenderSequence renders every (t, z) slice pair of a channel into
// outputDir, one file per slice.
func (r *Renderer) RenderSequence(channel int, fluorophore, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}
	shape := r.src.Shape()
	if err := tensor.CheckIndex("channel", channel, shape.C); err != nil {
		return err
	}
	for t := 0; t < shape.T; t++ {
		for z := 0; z < shape.Z; z++ {
			name := fmt.Sprintf("slice_c%d_t%03d_z%03d.png", channel, t, z)
			if err := r.RenderToFile(channel, t, z, fluorophore, filepath.Join(outputDir, name)); err != nil {
				return err
			}
		}
	}
	return nil
}

// renderRaw maps a 16-bit plane to a display image, scaling by the plane's
// own maximum so dim confocal channels stay visible.
func renderRaw(p *tensor.Plane[uint16], tint color.NRGBA, tinted bool) *image.NRGBA {
	var max uint16
	for _, v := range p.Pix {
		if v > max {
			max = v
		}
	}

	img := image.NewNRGBA(image.Rect(0, 0, p.X, p.Y))
	for y := 0; y < p.Y; y++ {
		for x := 0; x < p.X; x++ {
			var level uint8
			if max > 0 {
				level = uint8(uint32(p.At(y, x)) * 255 / uint32(max))
			}
			img.SetNRGBA(x, y, shade(level, tint, tinted))
		}
	}
	return img
}

// renderBinary maps a 0/255 mask to a display image: objects in the tint
// color (or white), background black.
func renderBinary(p *tensor.Plane[uint8], tint color.NRGBA, tinted bool) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, p.X, p.Y))
	for y := 0; y < p.Y; y++ {
		for x := 0; x < p.X; x++ {
			img.SetNRGBA(x, y, shade(p.At(y, x), tint, tinted))
		}
	}
	return img
}

// shade scales a tint (or white) by an 8-bit intensity over black.
func shade(level uint8, tint color.NRGBA, tinted bool) color.NRGBA {
	if !tinted {
		return color.NRGBA{R: level, G: level, B: level, A: 0xFF}
	}
	return color.NRGBA{
		R: uint8(uint32(tint.R) * uint32(level) / 255),
		G: uint8(uint32(tint.G) * uint32(level) / 255),
		B: uint8(uint32(tint.B) * uint32(level) / 255),
		A: 0xFF,
	}
}

// gutter separates the raw and binary panels.
const gutter = 4

// composite lays two panels side by side over a black background.
func composite(left, right *image.NRGBA) *image.NRGBA {
	lb, rb := left.Bounds(), right.Bounds()
	h := lb.Dy()
	if rb.Dy() > h {
		h = rb.Dy()
	}
	out := image.NewNRGBA(image.Rect(0, 0, lb.Dx()+gutter+rb.Dx(), h))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.Draw(out, lb, left, lb.Min, draw.Src)
	draw.Draw(out, image.Rect(lb.Dx()+gutter, 0, lb.Dx()+gutter+rb.Dx(), rb.Dy()), right, rb.Min, draw.Src)
	return out
}
