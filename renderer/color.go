// Package renderer draws projected badges and the container with raylib.
package renderer

import (
	"image/color"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/stackfall/projector"
)

// RL converts a palette color to a raylib color.
func RL(c color.RGBA) rl.Color {
	return rl.Color{R: c.R, G: c.G, B: c.B, A: c.A}
}

// Shade scales a color's RGB channels by f, keeping alpha.
func Shade(c rl.Color, f float32) rl.Color {
	scale := func(v uint8) uint8 {
		return uint8(min(max(float32(v)*f, 0), 255))
	}
	return rl.Color{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: c.A}
}

// Corners returns a drawable's rotated corners in layout space,
// clockwise from top-left.
func Corners(d projector.Drawable) [4]rl.Vector2 {
	hw, hh := d.Width/2, d.Height/2
	sin, cos := math.Sincos(d.Angle)
	local := [4][2]float64{{-hw, -hh}, {hw, -hh}, {hw, hh}, {-hw, hh}}

	var out [4]rl.Vector2
	for i, p := range local {
		out[i] = rl.Vector2{
			X: float32(d.X + p[0]*cos - p[1]*sin),
			Y: float32(d.Y + p[0]*sin + p[1]*cos),
		}
	}
	return out
}
