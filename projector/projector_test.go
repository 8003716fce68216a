package projector

import (
	"errors"
	"image/color"
	"testing"

	"github.com/pthm-cable/stackfall/config"
	"github.com/pthm-cable/stackfall/stack"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"#3b82f6", color.RGBA{0x3b, 0x82, 0xf6, 0xff}, false},
		{"3B82F6", color.RGBA{0x3b, 0x82, 0xf6, 0xff}, false},
		{"#fff", color.RGBA{0xff, 0xff, 0xff, 0xff}, false},
		{"#10b98180", color.RGBA{0x10, 0xb9, 0x81, 0x80}, false},
		{"#12345", color.RGBA{}, true},
		{"#gggggg", color.RGBA{}, true},
		{"", color.RGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHex(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrBadColor) {
					t.Errorf("ParseHex(%q) err = %v, want ErrBadColor", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHex(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseHex(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPaletteFromConfig(t *testing.T) {
	cfg := config.Default()
	p, err := PaletteFromConfig(cfg)
	if err != nil {
		t.Fatalf("default palette: %v", err)
	}
	if got := p.Color(stack.CategoryData); got != (color.RGBA{0xf5, 0x9e, 0x0b, 0xff}) {
		t.Errorf("data color = %v", got)
	}

	cfg.Render.Palette = map[string]string{"backend": "#000", "frontend": "nope"}
	p, err = PaletteFromConfig(cfg)
	if err == nil {
		t.Error("expected error for bad palette entry")
	}
	if got := p.Color(stack.CategoryBackend); got != (color.RGBA{0, 0, 0, 0xff}) {
		t.Errorf("backend color = %v, want black", got)
	}
	if got := p.Color(stack.CategoryFrontend); got != DefaultPalette().Color(stack.CategoryFrontend) {
		t.Errorf("bad entry should keep default, got %v", got)
	}
}

// fixedSource serves a fixed state and counts reads.
type fixedSource struct {
	states []stack.BadgeState
	reads  int
}

func (f *fixedSource) Badges(dst []stack.BadgeState) []stack.BadgeState {
	f.reads++
	return append(dst, f.states...)
}

func TestProject(t *testing.T) {
	src := &fixedSource{states: []stack.BadgeState{
		{ID: 1, Label: "Go", Category: stack.CategoryBackend, Width: 32, Height: 24, X: 10, Y: 20, Angle: 0.5},
		{ID: 2, Label: "React", Category: stack.CategoryFrontend, Width: 46, Height: 24, X: 30, Y: 40},
	}}
	pal := DefaultPalette()
	p := New(pal)

	got := p.Project(src)
	if len(got) != 2 {
		t.Fatalf("got %d drawables, want 2", len(got))
	}
	d := got[0]
	if d.ID != 1 || d.X != 10 || d.Y != 20 || d.Angle != 0.5 || d.Width != 32 || d.Label != "Go" {
		t.Errorf("drawable = %+v", d)
	}
	if d.Fill != pal.Color(stack.CategoryBackend) || d.Text != pal.Text {
		t.Errorf("colors = %v / %v", d.Fill, d.Text)
	}

	// Repeated projection between ticks returns the same latest state
	src.states[1].X = 99
	again := p.Project(src)
	if len(again) != 2 || again[1].X != 99 {
		t.Errorf("second projection = %+v, want latest state", again)
	}
	if src.reads != 2 {
		t.Errorf("reads = %d, want 2", src.reads)
	}
}

func TestProjectWorld(t *testing.T) {
	w := stack.Initialize([]stack.Label{{Name: "Go", Category: stack.CategoryBackend}},
		stack.Size{Width: 200, Height: 100}, stack.Options{Backend: "ark", Seed: 3})
	defer w.Teardown()

	before := w.Badges(nil)
	out := New(DefaultPalette()).Project(w)
	after := w.Badges(nil)

	if len(out) != 1 || out[0].X != before[0].X || out[0].Y != before[0].Y {
		t.Fatalf("projection %+v does not match state %+v", out, before)
	}
	if after[0] != before[0] {
		t.Error("projection changed world state")
	}
}
