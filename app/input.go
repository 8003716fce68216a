package app

import (
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/stackfall/camera"
	"github.com/pthm-cable/stackfall/renderer"
	"github.com/pthm-cable/stackfall/stack"
	"github.com/pthm-cable/stackfall/telemetry"
	"github.com/pthm-cable/stackfall/ui"
)

const controlsWidth = 260

// initGraphics creates the camera, renderers and panels. The raylib window
// must already be open.
func (a *App) initGraphics() {
	a.screenW = float32(a.cfg.Screen.Width)
	a.screenH = float32(a.cfg.Screen.Height)

	size := a.host.Size()
	a.camera = camera.New(a.screenW, a.screenH, float32(size.Width), float32(size.Height))

	a.badges = renderer.NewBadgeRenderer(a.cfg.Badge.FontSize)
	a.badges.Init()
	a.container = renderer.NewContainerRenderer(renderer.RL(a.widgetOpts.Palette.Background))

	a.hud = ui.NewHUD()
	a.controls = ui.NewControlsPanel(10, 100, controlsWidth)
	a.overlays = ui.NewOverlayRegistry()
	a.inspector = ui.NewInspector(int32(a.screenW)-250, 10, 240)
	a.perfPanel = ui.NewPerfPanel(int32(a.screenW)-250, int32(a.screenH)-140)
}

// Update processes input and advances the widget by the frame time. Draw
// must follow to close the loop iteration.
func (a *App) Update() {
	a.perf.Begin()

	a.perf.Measure(telemetry.PhaseInput, a.handleInput)

	if !a.paused {
		dt := time.Duration(float64(rl.GetFrameTime()) * float64(time.Second))
		a.perf.Measure(telemetry.PhaseSimulation, func() {
			a.widget.Frame(dt)
		})
	}

	a.perf.Measure(telemetry.PhaseTelemetry, a.observe)

	// The container follows the applied world size, which lags resizes
	var bounds stack.Size
	a.widget.Inspect(func(w *stack.World) { bounds = w.Bounds() })
	if bounds.Width > 0 && bounds.Height > 0 {
		a.camera.SetWorld(float32(bounds.Width), float32(bounds.Height))
	}

	a.frames++
}

// handleInput processes keyboard and mouse input.
func (a *App) handleInput() {
	a.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		a.paused = !a.paused
	}
	if rl.IsKeyPressed(rl.KeyR) {
		a.widget.Resimulate()
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		a.controls.Toggle()
	}

	a.handleTiltKeys()

	// Overlay toggles
	if key := rl.GetKeyPressed(); key != 0 {
		if id, on, ok := a.overlays.HandleKeyPress(key); ok {
			a.log.Debug("overlay", "id", id, "enabled", on)
		}
	}

	a.handleCameraInput()
	a.handlePointer()
}

// handleResize checks for window resize and propagates new dimensions.
func (a *App) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == a.screenW && h == a.screenH {
		return
	}
	a.screenW = w
	a.screenH = h

	a.camera.Resize(w, h)
	a.inspector.SetPosition(int32(w)-250, 10)
	a.perfPanel.SetPosition(int32(w)-250, int32(h)-140)

	// A pinned container keeps its layout size; the camera rescales it
	if a.fillScreen {
		a.host.size = stack.Size{Width: float64(w), Height: float64(h)}
		a.widget.Resize(a.host.size)
	}
}

// handleTiltKeys maps T, U and the arrow keys onto the tilt emulator.
func (a *App) handleTiltKeys() {
	if a.emulator == nil {
		return
	}
	if rl.IsKeyPressed(rl.KeyT) {
		a.SetTilt(!a.TiltEnabled())
	}
	if !a.TiltEnabled() {
		return
	}
	if rl.IsKeyPressed(rl.KeyU) {
		a.emulator.Upright()
	}

	step := a.cfg.Tilt.KeyboardStepDegrees
	var dLR, dFB float64
	if rl.IsKeyPressed(rl.KeyLeft) {
		dLR -= step
	}
	if rl.IsKeyPressed(rl.KeyRight) {
		dLR += step
	}
	if rl.IsKeyPressed(rl.KeyUp) {
		dFB -= step
	}
	if rl.IsKeyPressed(rl.KeyDown) {
		dFB += step
	}
	if dLR != 0 || dFB != 0 {
		a.emulator.Nudge(dLR, dFB)
	}
}

// handleCameraInput processes camera pan/zoom controls.
func (a *App) handleCameraInput() {
	wheelMove := rl.GetMouseWheelMove()
	if wheelMove != 0 {
		a.camera.ZoomBy(1 + wheelMove*0.1)
	}

	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		a.camera.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		a.camera.ZoomBy(0.8)
	}
	if rl.IsKeyPressed(rl.KeyHome) {
		a.camera.Reset()
	}

	// Right-drag pans
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		d := rl.GetMouseDelta()
		a.camera.Pan(-d.X/a.camera.Zoom, -d.Y/a.camera.Zoom)
	}
}

// overControls reports whether the mouse is over the controls panel.
func (a *App) overControls(mx, my float32) bool {
	return a.controls.IsVisible() && mx >= 10 && mx <= 10+controlsWidth && my >= 100
}

// handlePointer routes the left mouse button to the widget in layout space.
func (a *App) handlePointer() {
	mouse := rl.GetMousePosition()
	wx, wy := a.camera.ScreenToWorld(mouse.X, mouse.Y)
	p := r2.Vec{X: float64(wx), Y: float64(wy)}

	switch {
	case rl.IsMouseButtonPressed(rl.MouseButtonLeft):
		if a.overControls(mouse.X, mouse.Y) {
			return
		}
		if a.widget.PointerDown(p) {
			a.dragging = true
			id, _ := a.widget.Grabbed()
			a.recordGrab(id, p.X, p.Y)
		}
	case a.dragging && rl.IsMouseButtonDown(rl.MouseButtonLeft):
		a.widget.PointerMove(p)
	case a.dragging && rl.IsMouseButtonReleased(rl.MouseButtonLeft):
		id, held := a.widget.Grabbed()
		a.widget.PointerUp()
		a.dragging = false
		if held {
			a.recordRelease(id)
		}
	}
}
