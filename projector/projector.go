// Package projector turns world state into drawables for a renderer.
package projector

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/pthm-cable/stackfall/config"
	"github.com/pthm-cable/stackfall/stack"
)

// ErrBadColor is returned for colors that are not #rgb, #rrggbb or #rrggbbaa.
var ErrBadColor = errors.New("projector: bad hex color")

// Source is anything that can report badge state without mutating it.
type Source interface {
	Badges(dst []stack.BadgeState) []stack.BadgeState
}

// Drawable is one badge ready to draw.
type Drawable struct {
	ID            uint32
	X, Y          float64 // center
	Angle         float64 // radians
	Width, Height float64
	Label         string
	Category      stack.Category
	Fill          color.RGBA
	Text          color.RGBA
}

// Palette maps categories to fill colors.
type Palette struct {
	Fill       map[stack.Category]color.RGBA
	Text       color.RGBA
	Background color.RGBA
	Fallback   color.RGBA
}

// DefaultPalette is used when no config is loaded.
func DefaultPalette() Palette {
	return Palette{
		Fill: map[stack.Category]color.RGBA{
			stack.CategoryFrontend: {R: 0x3b, G: 0x82, B: 0xf6, A: 0xff},
			stack.CategoryBackend:  {R: 0x10, G: 0xb9, B: 0x81, A: 0xff},
			stack.CategoryData:     {R: 0xf5, G: 0x9e, B: 0x0b, A: 0xff},
			stack.CategoryTool:     {R: 0xa8, G: 0x55, B: 0xf7, A: 0xff},
		},
		Text:       color.RGBA{R: 0xe8, G: 0xf5, B: 0xe9, A: 0xff},
		Background: color.RGBA{R: 0x0b, G: 0x0f, B: 0x0c, A: 0xff},
		Fallback:   color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff},
	}
}

// PaletteFromConfig parses the render section's hex colors.
func PaletteFromConfig(cfg *config.Config) (Palette, error) {
	p := DefaultPalette()
	var errs []error

	for name, hex := range cfg.Render.Palette {
		c, err := ParseHex(hex)
		if err != nil {
			errs = append(errs, fmt.Errorf("palette %s: %w", name, err))
			continue
		}
		p.Fill[stack.ParseCategory(name)] = c
	}
	if cfg.Render.TextColor != "" {
		c, err := ParseHex(cfg.Render.TextColor)
		if err != nil {
			errs = append(errs, fmt.Errorf("text_color: %w", err))
		} else {
			p.Text = c
		}
	}
	if cfg.Render.Background != "" {
		c, err := ParseHex(cfg.Render.Background)
		if err != nil {
			errs = append(errs, fmt.Errorf("background: %w", err))
		} else {
			p.Background = c
		}
	}
	return p, errors.Join(errs...)
}

// ParseHex parses a CSS-style hex color.
func ParseHex(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// Color returns the fill for a category.
func (p Palette) Color(c stack.Category) color.RGBA {
	if col, ok := p.Fill[c]; ok {
		return col
	}
	return p.Fallback
}

// Projector converts badge state to drawables, reusing its buffers between
// calls. It never writes to the source.
type Projector struct {
	palette Palette
	states  []stack.BadgeState
	out     []Drawable
}

// New creates a projector with the given palette.
func New(p Palette) *Projector {
	return &Projector{palette: p}
}

// Palette returns the projector's palette.
func (p *Projector) Palette() Palette { return p.palette }

// Project returns the source's latest state as drawables. The returned slice
// is reused by the next call.
func (p *Projector) Project(src Source) []Drawable {
	p.states = src.Badges(p.states[:0])
	p.out = p.out[:0]
	for _, b := range p.states {
		p.out = append(p.out, Drawable{
			ID:       b.ID,
			X:        b.X,
			Y:        b.Y,
			Angle:    b.Angle,
			Width:    b.Width,
			Height:   b.Height,
			Label:    b.Label,
			Category: b.Category,
			Fill:     p.palette.Color(b.Category),
			Text:     p.palette.Text,
		})
	}
	return p.out
}
