package renderer

import (
	"image/color"
	"math"
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/stackfall/projector"
)

func TestRL(t *testing.T) {
	got := RL(color.RGBA{R: 1, G: 2, B: 3, A: 4})
	if got != (rl.Color{R: 1, G: 2, B: 3, A: 4}) {
		t.Errorf("RL() = %+v", got)
	}
}

func TestShade(t *testing.T) {
	tests := []struct {
		name string
		in   rl.Color
		f    float32
		want rl.Color
	}{
		{"darken", rl.Color{R: 100, G: 200, B: 50, A: 255}, 0.5, rl.Color{R: 50, G: 100, B: 25, A: 255}},
		{"brighten clamps", rl.Color{R: 200, G: 100, B: 0, A: 128}, 2, rl.Color{R: 255, G: 200, B: 0, A: 128}},
		{"negative clamps", rl.Color{R: 10, G: 10, B: 10, A: 10}, -1, rl.Color{A: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Shade(tt.in, tt.f); got != tt.want {
				t.Errorf("Shade(%+v, %v) = %+v, want %+v", tt.in, tt.f, got, tt.want)
			}
		})
	}
}

func TestCorners(t *testing.T) {
	tests := []struct {
		name  string
		angle float64
		want  [4][2]float32
	}{
		{"flat", 0, [4][2]float32{{80, 90}, {120, 90}, {120, 110}, {80, 110}}},
		{"quarter turn", math.Pi / 2, [4][2]float32{{110, 80}, {110, 120}, {90, 120}, {90, 80}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := projector.Drawable{X: 100, Y: 100, Width: 40, Height: 20, Angle: tt.angle}
			got := Corners(d)
			for i, c := range got {
				if math.Abs(float64(c.X-tt.want[i][0])) > 1e-3 || math.Abs(float64(c.Y-tt.want[i][1])) > 1e-3 {
					t.Errorf("corner %d = (%v, %v), want %v", i, c.X, c.Y, tt.want[i])
				}
			}
		})
	}
}
