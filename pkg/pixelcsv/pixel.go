// Package pixelcsv reads RGBA pixel grids from rendered-artifact CSV dumps
// and answers the read-only queries validation steps assert against.
//
// Two on-disk representations are supported:
//   - standard: a header row of x,y,r,g,b[,a] with one data row per pixel
//   - row-major: each line is a comma-separated list of per-pixel color
//     tokens in either R###G###B### or #RRGGBB form
package pixelcsv

import "fmt"

// Pixel is a single RGBA sample.
type Pixel struct {
	R, G, B, A uint8
}

// Opaque constructs a fully opaque pixel.
func Opaque(r, g, b uint8) Pixel {
	return Pixel{R: r, G: g, B: b, A: 255}
}

// EqualsWithTolerance reports whether every channel of other is within
// tolerance of this pixel.
func (p Pixel) EqualsWithTolerance(other Pixel, tolerance uint8) bool {
	diff := func(a, b uint8) int {
		d := int(a) - int(b)
		if d < 0 {
			return -d
		}
		return d
	}
	t := int(tolerance)
	return diff(p.R, other.R) <= t &&
		diff(p.G, other.G) <= t &&
		diff(p.B, other.B) <= t &&
		diff(p.A, other.A) <= t
}

// Hex returns the pixel's RGB channels as a lowercase hex string.
func (p Pixel) Hex() string {
	return fmt.Sprintf("%02x%02x%02x", p.R, p.G, p.B)
}

// ARGB packs the pixel into a single 32-bit value.
func (p Pixel) ARGB() uint32 {
	return uint32(p.A)<<24 | uint32(p.R)<<16 | uint32(p.G)<<8 | uint32(p.B)
}

// Luminance returns the pixel's brightness using the standard Y formula
// from YUV: 0.299 R + 0.587 G + 0.114 B.
func (p Pixel) Luminance() uint8 {
	return uint8(0.299*float64(p.R) + 0.587*float64(p.G) + 0.114*float64(p.B))
}
