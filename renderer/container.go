package renderer

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/stackfall/camera"
	"github.com/pthm-cable/stackfall/stack"
)

// ContainerRenderer draws the letterbox, the container background,
// wall outlines and the gravity arrow.
type ContainerRenderer struct {
	background rl.Color
	letterbox  rl.Color
	wall       rl.Color
	arrow      rl.Color
}

// NewContainerRenderer creates a renderer over the given background color.
func NewContainerRenderer(background rl.Color) *ContainerRenderer {
	return &ContainerRenderer{
		background: background,
		letterbox:  Shade(background, 0.5),
		wall:       rl.Color{R: 134, G: 239, B: 172, A: 160},
		arrow:      rl.Color{R: 250, G: 204, B: 21, A: 200},
	}
}

// DrawBackground clears the screen and fills the container rectangle.
func (r *ContainerRenderer) DrawBackground(cam *camera.Camera) {
	rl.ClearBackground(r.letterbox)
	x, y, w, h := cam.ContainerRect()
	rl.DrawRectangleRec(rl.Rectangle{X: x, Y: y, Width: w, Height: h}, r.background)
}

// DrawBoundaries outlines the four wall rectangles.
func (r *ContainerRenderer) DrawBoundaries(cam *camera.Camera, walls [4]stack.Boundary) {
	for _, b := range walls {
		x, y := cam.WorldToScreen(float32(b.X-b.Width/2), float32(b.Y-b.Height/2))
		rect := rl.Rectangle{X: x, Y: y, Width: float32(b.Width) * cam.Zoom, Height: float32(b.Height) * cam.Zoom}
		rl.DrawRectangleLinesEx(rect, 1, r.wall)
	}
}

// DrawGravity draws the gravity vector from the container center.
// A unit vector spans a quarter of the shorter container side.
func (r *ContainerRenderer) DrawGravity(cam *camera.Camera, gx, gy float64) {
	if gx == 0 && gy == 0 {
		return
	}
	cx, cy := cam.WorldToScreen(cam.WorldW/2, cam.WorldH/2)
	scale := min(cam.WorldW, cam.WorldH) / 4 * cam.Zoom
	tip := rl.Vector2{X: cx + float32(gx)*scale, Y: cy + float32(gy)*scale}
	rl.DrawLineEx(rl.Vector2{X: cx, Y: cy}, tip, 2, r.arrow)

	// Arrow head
	angle := math.Atan2(gy, gx)
	const head, spread = 10.0, 0.5
	left := rl.Vector2{X: tip.X - head*float32(math.Cos(angle-spread)), Y: tip.Y - head*float32(math.Sin(angle-spread))}
	right := rl.Vector2{X: tip.X - head*float32(math.Cos(angle+spread)), Y: tip.Y - head*float32(math.Sin(angle+spread))}
	rl.DrawTriangle(tip, right, left, r.arrow)
}
