package renderer

import (
	"fmt"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/stackfall/camera"
	"github.com/pthm-cable/stackfall/projector"
)

// BadgeOptions selects per-frame badge decorations.
type BadgeOptions struct {
	ShowIDs      bool
	ShowHitBoxes bool
	Grabbed      uint32 // 0 = none
	Speeds       []float64
	MaxSpeed     float64
}

// BadgeRenderer draws badges as rotated pills with centered labels.
type BadgeRenderer struct {
	fontSize float32
	spacing  float32
	font     rl.Font
	loaded   bool
}

// NewBadgeRenderer creates a badge renderer with the given label size.
func NewBadgeRenderer(fontSize float64) *BadgeRenderer {
	return &BadgeRenderer{fontSize: float32(fontSize), spacing: 1}
}

// Init loads the font (must be called after the raylib window is created).
func (r *BadgeRenderer) Init() {
	if r.loaded {
		return
	}
	r.font = rl.GetFontDefault()
	r.loaded = true
}

// Draw renders all drawables through the camera.
func (r *BadgeRenderer) Draw(cam *camera.Camera, drawables []projector.Drawable, opts BadgeOptions) {
	if !r.loaded {
		r.Init()
	}
	zoom := cam.Zoom

	for i := range drawables {
		d := &drawables[i]
		radius := float32(math.Hypot(d.Width, d.Height) / 2)
		if !cam.IsVisible(float32(d.X), float32(d.Y), radius) {
			continue
		}

		sx, sy := cam.WorldToScreen(float32(d.X), float32(d.Y))
		w, h := float32(d.Width)*zoom, float32(d.Height)*zoom
		deg := float32(d.Angle * 180 / math.Pi)

		fill := RL(d.Fill)
		if d.ID == opts.Grabbed {
			fill = Shade(fill, 1.25)
		}
		rl.DrawRectanglePro(
			rl.Rectangle{X: sx, Y: sy, Width: w, Height: h},
			rl.Vector2{X: w / 2, Y: h / 2}, // rotate around badge center
			deg,
			fill,
		)

		label := d.Label
		if opts.ShowIDs {
			label = fmt.Sprintf("#%d", d.ID)
		}
		size := r.fontSize * zoom
		extent := rl.MeasureTextEx(r.font, label, size, r.spacing)
		rl.DrawTextPro(r.font, label,
			rl.Vector2{X: sx, Y: sy},
			rl.Vector2{X: extent.X / 2, Y: extent.Y / 2},
			deg, size, r.spacing, RL(d.Text),
		)

		if opts.ShowHitBoxes {
			r.drawOutline(cam, *d, rl.Yellow)
		}
		if i < len(opts.Speeds) && opts.MaxSpeed > 0 {
			r.drawSpeed(sx, sy, opts.Speeds[i], opts.MaxSpeed, zoom)
		}
	}
}

func (r *BadgeRenderer) drawOutline(cam *camera.Camera, d projector.Drawable, color rl.Color) {
	corners := Corners(d)
	for i := range corners {
		a, b := corners[i], corners[(i+1)%len(corners)]
		ax, ay := cam.WorldToScreen(a.X, a.Y)
		bx, by := cam.WorldToScreen(b.X, b.Y)
		rl.DrawLineEx(rl.Vector2{X: ax, Y: ay}, rl.Vector2{X: bx, Y: by}, 1, color)
	}
}

// drawSpeed draws a vertical tick whose length tracks the badge's speed.
func (r *BadgeRenderer) drawSpeed(sx, sy float32, speed, maxSpeed float64, zoom float32) {
	frac := float32(min(speed/maxSpeed, 1))
	length := 40 * frac * zoom
	color := rl.Color{R: 255, G: uint8(255 * (1 - frac)), B: 80, A: 220}
	rl.DrawLineEx(rl.Vector2{X: sx, Y: sy}, rl.Vector2{X: sx, Y: sy - length}, 2, color)
}
