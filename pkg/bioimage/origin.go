// Package bioimage loads microscopy images into the 5D tensor model and
// drives their preprocessing: per-channel normalization, binarization and
// read-only slice access for downstream consumers.
//
// Two kinds of input are supported. Standard photographs (.png, .jpg) are
// decoded to a single grayscale plane and represented as a degenerate
// (1, 1, 1, Y, X) tensor. Confocal/bioformats files (.ics, .ids, .tif,
// .tiff) go through a Decoder, a black-box capability that yields a full
// (T, Z, C, Y, X) tensor plus channel names.
package bioimage

import (
	"path/filepath"
	"strings"
)

// Origin is the closed set of loading strategies an input file maps to.
type Origin interface {
	isOrigin()
}

// StandardImage marks a plain 2D photograph decoded by the grayscale reader.
type StandardImage struct {
	Path string
}

func (StandardImage) isOrigin() {}

// BioFormats marks a confocal/bioformats file decoded by a Decoder.
type BioFormats struct {
	Path string
}

func (BioFormats) isOrigin() {}

// bioExtensions is the fixed set of extensions routed to the bioformats
// reader. Everything else takes the grayscale path.
var bioExtensions = map[string]bool{
	".ids":  true,
	".ics":  true,
	".tiff": true,
	".tif":  true,
}

// Classify maps a file path to its loading strategy by extension,
// case-insensitively. It is total: any path that does not match the
// bioformats set is a standard image.
func Classify(path string) Origin {
	ext := strings.ToLower(filepath.Ext(path))
	if bioExtensions[ext] {
		return BioFormats{Path: path}
	}
	return StandardImage{Path: path}
}
