package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/stackfall/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title       string
	Mode        string
	Backend     string
	Badges      int
	Ticks       uint64
	FPS         int32
	GravityX    float64
	GravityY    float64
	Orientation string // "device", "emulated" or "random"
	OutOfBounds int
	Paused      bool
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.RayWhite)

	rl.DrawText(
		fmt.Sprintf("Badges: %d | Mode: %s | Backend: %s", data.Badges, data.Mode, data.Backend),
		10, 35, 16, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("Tick: %d | FPS: %d | Gravity: (%+.2f, %+.2f) %s", data.Ticks, data.FPS, data.GravityX, data.GravityY, data.Orientation),
		10, 55, 16, rl.LightGray,
	)

	status, color := "Running", h.renderer.Theme.SectionHeader
	switch {
	case data.Paused:
		status, color = "PAUSED", rl.Yellow
	case data.OutOfBounds > 0:
		status, color = fmt.Sprintf("%d outside", data.OutOfBounds), rl.Orange
	}
	rl.DrawText(status, 10, 75, 16, color)
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders loop phase timings.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{renderer: NewRenderer(), x: x, y: y}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	phases := []string{telemetry.PhaseInput, telemetry.PhaseSimulation, telemetry.PhaseTelemetry, telemetry.PhaseRender}
	r := p.renderer
	height := r.Theme.Padding*2 + 36 + int32(len(phases))*14
	r.DrawPanel(p.x, p.y, 240, height)

	x := p.x + r.Theme.Padding
	y := p.y + r.Theme.Padding
	rl.DrawText("Loop Performance", x, y, 16, rl.RayWhite)
	y += 20
	rl.DrawText(fmt.Sprintf("Avg: %s  Max: %s", stats.AvgTickDuration.Round(time.Microsecond), stats.MaxTickDuration.Round(time.Microsecond)), x, y, 12, rl.Yellow)
	y += 16

	for _, name := range phases {
		pct := stats.PhasePct[name]
		color := rl.LightGray
		if pct > 50 {
			color = rl.Red
		} else if pct > 25 {
			color = rl.Orange
		}
		rl.DrawText(
			fmt.Sprintf("%-12s %8s %5.1f%%", name, stats.PhaseAvg[name].Round(time.Microsecond), pct),
			x, y, 12, color,
		)
		y += 14
	}
}
