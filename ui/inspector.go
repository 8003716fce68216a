package ui

import (
	"fmt"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/stackfall/stack"
)

// InspectorData holds the badge shown in the inspector panel.
type InspectorData struct {
	Badge    stack.BadgeState
	Speed    float64
	MaxSpeed float64
	Grabbed  bool
	Fill     rl.Color
}

func inspected(data any) *InspectorData {
	d, _ := data.(*InspectorData)
	if d == nil {
		return &InspectorData{}
	}
	return d
}

// badgeSections describes the inspector layout.
var badgeSections = []SectionDescriptor{
	{
		ID:    "badge",
		Title: "Badge",
		Fields: []FieldDescriptor{
			{ID: "label", Label: "Label", Widget: WidgetText, TextGetter: func(d any) string { return inspected(d).Badge.Label }},
			{ID: "id", Label: "ID", Widget: WidgetText, TextGetter: func(d any) string { return fmt.Sprintf("#%d", inspected(d).Badge.ID) }},
			{ID: "category", Label: "Category", Widget: WidgetText, TextGetter: func(d any) string { return inspected(d).Badge.Category.String() }},
			{ID: "fill", Label: "Color", Widget: WidgetColorSwatch, ColorGetter: func(d any) rl.Color { return inspected(d).Fill }},
			{ID: "size", Label: "Size", Widget: WidgetText, TextGetter: func(d any) string {
				b := inspected(d).Badge
				return fmt.Sprintf("%.0f x %.0f", b.Width, b.Height)
			}},
		},
	},
	{
		ID:    "motion",
		Title: "Motion",
		Fields: []FieldDescriptor{
			{ID: "x", Label: "X", Widget: WidgetText, Format: "%.1f", Getter: func(d any) float32 { return float32(inspected(d).Badge.X) }},
			{ID: "y", Label: "Y", Widget: WidgetText, Format: "%.1f", Getter: func(d any) float32 { return float32(inspected(d).Badge.Y) }},
			{ID: "angle", Label: "Angle", Widget: WidgetCenteredBar, Range: FieldRange{Min: -math.Pi, Max: math.Pi}, Getter: func(d any) float32 {
				return float32(math.Remainder(inspected(d).Badge.Angle, 2*math.Pi))
			}},
			{ID: "speed", Label: "Speed", Widget: WidgetBar, Getter: func(d any) float32 { return float32(inspected(d).Speed) }},
			{ID: "grabbed", Label: "Pointer", Widget: WidgetText, Visible: func(d any) bool { return inspected(d).Grabbed }, TextGetter: func(any) string { return "grabbed" }},
		},
	},
}

// Inspector renders the badge inspection panel.
type Inspector struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewInspector creates a new inspector panel.
func NewInspector(x, y, width int32) *Inspector {
	return &Inspector{renderer: NewRenderer(), x: x, y: y, width: width}
}

// SetPosition updates the inspector position.
func (ins *Inspector) SetPosition(x, y int32) {
	ins.x = x
	ins.y = y
}

// Draw renders the inspector panel and returns its bottom edge.
func (ins *Inspector) Draw(data InspectorData) int32 {
	r := ins.renderer
	padding := r.Theme.Padding

	// Speed bar scales with the configured cap
	sections := make([]SectionDescriptor, len(badgeSections))
	copy(sections, badgeSections)
	motion := make([]FieldDescriptor, len(sections[1].Fields))
	copy(motion, sections[1].Fields)
	for i := range motion {
		if motion[i].ID == "speed" {
			motion[i].Range = FieldRange{Min: 0, Max: float32(max(data.MaxSpeed, 1))}
		}
	}
	sections[1].Fields = motion

	height := padding * 2
	for _, sd := range sections {
		height += r.SectionHeight(sd, &data)
	}
	r.DrawPanel(ins.x, ins.y, ins.width, height)

	y := ins.y + padding
	for _, sd := range sections {
		y = r.DrawSection(ins.x+padding, y, sd, &data, ins.width-padding*2)
	}
	return y + padding
}
