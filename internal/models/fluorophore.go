// Package models holds shared value types for bioimagelab.
package models

import "image/color"

// Tint is the display color associated with a fluorophore. Rendering
// multiplies grayscale intensity into this color.
type Tint struct {
	Name  string
	Color color.NRGBA
}

// fluorophores maps the common fluorophore tags to their emission-style
// display tints.
var fluorophores = map[string]Tint{
	"gfp":            {Name: "green", Color: color.NRGBA{R: 0x30, G: 0xFF, B: 0x50, A: 0xFF}},
	"fitc":           {Name: "green", Color: color.NRGBA{R: 0x30, G: 0xFF, B: 0x50, A: 0xFF}},
	"mng":            {Name: "green", Color: color.NRGBA{R: 0x30, G: 0xFF, B: 0x50, A: 0xFF}},
	"rfp":            {Name: "red", Color: color.NRGBA{R: 0xFF, G: 0x30, B: 0x30, A: 0xFF}},
	"mcherry":        {Name: "red", Color: color.NRGBA{R: 0xFF, G: 0x30, B: 0x30, A: 0xFF}},
	"dsred":          {Name: "red", Color: color.NRGBA{R: 0xFF, G: 0x30, B: 0x30, A: 0xFF}},
	"yfp":            {Name: "amber", Color: color.NRGBA{R: 0xFF, G: 0xC0, B: 0x20, A: 0xFF}},
	"dapi":           {Name: "blue", Color: color.NRGBA{R: 0x40, G: 0x60, B: 0xFF, A: 0xFF}},
	"cerulean_venus": {Name: "cyan", Color: color.NRGBA{R: 0x40, G: 0xD0, B: 0xD0, A: 0xFF}},
	"cy5":            {Name: "purple", Color: color.NRGBA{R: 0xB0, G: 0x40, B: 0xFF, A: 0xFF}},
}

// FluorophoreTint looks up the display tint for a fluorophore tag
// (case handled by the caller). The second return is false for unknown tags,
// which render in plain grayscale.
func FluorophoreTint(tag string) (Tint, bool) {
	t, ok := fluorophores[tag]
	return t, ok
}
