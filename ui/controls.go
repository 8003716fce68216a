package ui

import (
	"fmt"
	"strings"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// ControlState is the input to the controls panel for one frame.
type ControlState struct {
	GravityX, GravityY float32
	TiltEnabled        bool
	Backend            string
}

// ControlActions reports what the user changed this frame.
type ControlActions struct {
	GravityChanged     bool
	GravityX, GravityY float32
	Resimulate         bool
	ToggleTilt         bool
	Upright            bool
}

// ControlsPanel renders the left-side panel with gravity sliders and
// overlay toggles.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	visible  bool
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetVisible shows or hides the panel.
func (c *ControlsPanel) SetVisible(visible bool) {
	c.visible = visible
}

// IsVisible returns whether the panel is shown.
func (c *ControlsPanel) IsVisible() bool {
	return c.visible
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Draw renders the panel and returns the actions taken.
func (c *ControlsPanel) Draw(state ControlState, overlays *OverlayRegistry) ControlActions {
	var actions ControlActions
	if !c.visible {
		return actions
	}

	r := c.renderer
	padding := r.Theme.Padding
	lineHeight := r.Theme.LineHeight

	rows := 0
	for _, cat := range overlays.Categories() {
		rows += len(overlays.ByCategory(cat)) + 1
	}
	panelHeight := int32(rows)*lineHeight + 200
	r.DrawPanel(c.x, c.y, c.width, panelHeight)

	x := float32(c.x + padding)
	y := c.y + padding
	inner := float32(c.width - padding*2)

	rl.DrawText("Gravity", int32(x), y, 16, rl.RayWhite)
	y += lineHeight + 4

	gx := gui.SliderBar(rl.Rectangle{X: x + 16, Y: float32(y), Width: inner - 60, Height: 14}, "X", fmt.Sprintf("%+.2f", state.GravityX), state.GravityX, -1, 1)
	y += lineHeight + 4
	gy := gui.SliderBar(rl.Rectangle{X: x + 16, Y: float32(y), Width: inner - 60, Height: 14}, "Y", fmt.Sprintf("%+.2f", state.GravityY), state.GravityY, -1, 1)
	y += lineHeight + 8
	if gx != state.GravityX || gy != state.GravityY {
		actions.GravityChanged = true
		actions.GravityX, actions.GravityY = gx, gy
	}

	half := (inner - 8) / 2
	if gui.Button(rl.Rectangle{X: x, Y: float32(y), Width: half, Height: 24}, "Resimulate") {
		actions.Resimulate = true
	}
	if gui.Button(rl.Rectangle{X: x + half + 8, Y: float32(y), Width: half, Height: 24}, "Upright") {
		actions.Upright = true
	}
	y += 32

	tiltText := "Tilt: OFF"
	if state.TiltEnabled {
		tiltText = "Tilt: ON"
	}
	if gui.Button(rl.Rectangle{X: x, Y: float32(y), Width: inner, Height: 24}, tiltText) {
		actions.ToggleTilt = true
	}
	y += 32

	rl.DrawText("Backend: "+state.Backend, int32(x), y, r.Theme.FontSize, r.Theme.LabelColor)
	y += lineHeight + 6

	for _, category := range overlays.Categories() {
		rl.DrawText(categoryLabel(category), int32(x), y, r.Theme.HeaderFontSize, r.Theme.SectionHeader)
		y += lineHeight
		for _, desc := range overlays.ByCategory(category) {
			c.drawToggle(int32(x), y, desc, overlays.IsEnabled(desc.ID), int32(inner))
			y += lineHeight
		}
		y += 4
	}

	return actions
}

// drawToggle draws a single overlay toggle line.
func (c *ControlsPanel) drawToggle(x, y int32, desc OverlayDescriptor, enabled bool, width int32) {
	r := c.renderer

	statusColor := rl.Color{R: 80, G: 80, B: 80, A: 255}
	nameColor := r.Theme.LabelColor
	if enabled {
		statusColor = r.Theme.BarFill
		nameColor = rl.RayWhite
	}
	rl.DrawRectangle(x, y+2, 8, 8, statusColor)
	rl.DrawText(desc.Name, x+14, y, r.Theme.FontSize, nameColor)

	if desc.KeyLabel != "" {
		keyText := fmt.Sprintf("[%s]", desc.KeyLabel)
		keyWidth := rl.MeasureText(keyText, r.Theme.FontSize)
		rl.DrawText(keyText, x+width-keyWidth, y, r.Theme.FontSize, rl.Color{R: 150, G: 150, B: 150, A: 255})
	}
}

// categoryLabel returns a display label for a category.
func categoryLabel(cat string) string {
	if cat == "" {
		return cat
	}
	return strings.ToUpper(cat[:1]) + cat[1:]
}
