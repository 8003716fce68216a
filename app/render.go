package app

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/stackfall/renderer"
	"github.com/pthm-cable/stackfall/stack"
	"github.com/pthm-cable/stackfall/telemetry"
	"github.com/pthm-cable/stackfall/ui"
)

const controlsLegend = "[Drag] Move badge  [Space] Pause  [R] Resimulate  [T] Tilt  [Arrows] Tilt device  [U] Upright  [Tab] Controls  [Wheel] Zoom"

// frameView is the world state captured once per Draw under the widget lock.
type frameView struct {
	mode        stack.Mode
	backend     string
	gravity     r2.Vec
	walls       [4]stack.Boundary
	outOfBounds int
	ticks       uint64
	hovered     stack.BadgeState
	hoveredOK   bool
	speed       float64
	grabbed     uint32
	grabbing    bool
}

// Draw renders the container, badges and panels, closing the loop
// iteration that Update began.
func (a *App) Draw() {
	a.perf.Measure(telemetry.PhaseRender, a.draw)
	a.perf.End()
	a.perf.RecordFrame()
}

func (a *App) draw() {
	view := a.capture()

	rl.BeginDrawing()
	defer rl.EndDrawing()

	a.container.DrawBackground(a.camera)
	if a.overlays.IsEnabled(ui.OverlayBoundaries) {
		a.container.DrawBoundaries(a.camera, view.walls)
	}

	opts := renderer.BadgeOptions{
		ShowIDs:      a.overlays.IsEnabled(ui.OverlayBadgeIDs),
		ShowHitBoxes: a.overlays.IsEnabled(ui.OverlayHitBoxes),
		MaxSpeed:     a.cfg.Physics.MaxSpeed,
	}
	if view.grabbing {
		opts.Grabbed = view.grabbed
	}
	if a.overlays.IsEnabled(ui.OverlayVelocities) {
		opts.Speeds = a.speeds
	}
	a.badges.Draw(a.camera, a.drawables, opts)

	if a.overlays.IsEnabled(ui.OverlayGravity) {
		a.container.DrawGravity(a.camera, view.gravity.X, view.gravity.Y)
	}

	a.drawPanels(view)
}

// capture copies everything Draw needs out of the widget.
func (a *App) capture() frameView {
	a.drawables = a.widget.Drawables(a.drawables[:0])

	mouse := rl.GetMousePosition()
	wx, wy := a.camera.ScreenToWorld(mouse.X, mouse.Y)
	cursor := r2.Vec{X: float64(wx), Y: float64(wy)}

	var v frameView
	v.grabbed, v.grabbing = a.widget.Grabbed()
	a.widget.Inspect(func(w *stack.World) {
		v.mode = w.Mode()
		v.backend = w.BackendName()
		v.gravity = w.Gravity()
		v.walls = w.Boundaries()
		v.outOfBounds = w.OutOfBounds()
		v.ticks = w.Ticks()
		a.speeds = w.Speeds(a.speeds[:0])

		id, ok := v.grabbed, v.grabbing
		if !ok {
			id, ok = w.Hit(cursor)
		}
		if !ok {
			return
		}
		a.states = w.Badges(a.states[:0])
		for i, b := range a.states {
			if b.ID == id {
				v.hovered, v.hoveredOK = b, true
				v.speed = a.speeds[i]
				break
			}
		}
	})
	return v
}

func (a *App) drawPanels(view frameView) {
	orientation := "random"
	if a.TiltEnabled() {
		orientation = "emulated"
	}
	a.hud.Draw(ui.HUDData{
		Title:       "stackfall",
		Mode:        view.mode.String(),
		Backend:     view.backend,
		Badges:      len(a.drawables),
		Ticks:       view.ticks,
		FPS:         rl.GetFPS(),
		GravityX:    view.gravity.X,
		GravityY:    view.gravity.Y,
		Orientation: orientation,
		OutOfBounds: view.outOfBounds,
		Paused:      a.paused,
	})

	if a.overlays.IsEnabled(ui.OverlayInspector) && view.hoveredOK {
		data := ui.InspectorData{
			Badge:    view.hovered,
			Speed:    view.speed,
			MaxSpeed: a.cfg.Physics.MaxSpeed,
			Grabbed:  view.grabbing && view.grabbed == view.hovered.ID,
		}
		for _, d := range a.drawables {
			if d.ID == view.hovered.ID {
				data.Fill = renderer.RL(d.Fill)
				break
			}
		}
		a.inspector.Draw(data)
	}

	if a.overlays.IsEnabled(ui.OverlayPerf) {
		a.perfPanel.Draw(a.perf.Stats())
	}

	actions := a.controls.Draw(ui.ControlState{
		GravityX:    float32(view.gravity.X),
		GravityY:    float32(view.gravity.Y),
		TiltEnabled: a.TiltEnabled(),
		Backend:     view.backend,
	}, a.overlays)
	a.apply(actions)

	a.hud.DrawControls(int32(a.screenH), controlsLegend)
}

// apply carries out control panel actions.
func (a *App) apply(actions ui.ControlActions) {
	if actions.GravityChanged {
		g := r2.Vec{X: float64(actions.GravityX), Y: float64(actions.GravityY)}
		if err := a.widget.SetGravity(g); err != nil {
			a.log.Debug("gravity rejected", "error", err)
		}
	}
	if actions.Resimulate {
		a.widget.Resimulate()
	}
	if actions.ToggleTilt {
		a.SetTilt(!a.TiltEnabled())
	}
	if actions.Upright && a.TiltEnabled() {
		a.emulator.Upright()
	}
}
