package stack

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Category groups badges for styling.
type Category uint8

const (
	CategoryFrontend Category = iota
	CategoryBackend
	CategoryData
	CategoryTool
)

var categoryNames = [...]string{"frontend", "backend", "data", "tool"}

// String returns the category's config name.
func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("category(%d)", c)
}

// ParseCategory maps a config name to a Category. Unknown names map to CategoryTool.
func ParseCategory(s string) Category {
	for i, name := range categoryNames {
		if name == s {
			return Category(i)
		}
	}
	return CategoryTool
}

// Label configures one badge.
type Label struct {
	Name     string
	Category Category
}

// Size is a container size in layout pixels.
type Size struct {
	Width, Height float64
}

// Empty reports whether the size has zero (or negative) area.
func (s Size) Empty() bool {
	return !(s.Width > 0 && s.Height > 0)
}

// Badge is one labeled rigid body. Only position and angle change after creation.
type Badge struct {
	id       uint32
	label    string
	category Category
	width    float64
	height   float64

	pos   r2.Vec
	angle float64
	vel   r2.Vec
	angV  float64

	// entered is set once the badge has been fully inside the boundaries.
	entered   bool
	contained bool
}

// ID returns the badge's stable identifier.
func (b *Badge) ID() uint32 { return b.id }

// Label returns the display text.
func (b *Badge) Label() string { return b.label }

// Category returns the styling category.
func (b *Badge) Category() Category { return b.category }

// Size returns the badge's immutable dimensions.
func (b *Badge) Size() (width, height float64) { return b.width, b.height }

// BadgeState is a read-only copy of a badge for renderers.
type BadgeState struct {
	ID            uint32
	Label         string
	Category      Category
	Width, Height float64
	X, Y          float64
	Angle         float64
}

func (b *Badge) state() BadgeState {
	return BadgeState{
		ID:       b.id,
		Label:    b.label,
		Category: b.category,
		Width:    b.width,
		Height:   b.height,
		X:        b.pos.X,
		Y:        b.pos.Y,
		Angle:    b.angle,
	}
}

// Sizing derives badge dimensions from label length.
type Sizing struct {
	Height    float64
	CharWidth float64
	Padding   float64
	MinWidth  float64
}

// DefaultSizing matches the default config.
var DefaultSizing = Sizing{Height: 24, CharWidth: 6, Padding: 16, MinWidth: 32}

// Dimensions returns the width and height for a label.
func (s Sizing) Dimensions(label string) (width, height float64) {
	width = float64(len([]rune(label)))*s.CharWidth + s.Padding
	return math.Max(width, s.MinWidth), s.Height
}

// BoundaryKind names a wall.
type BoundaryKind uint8

const (
	Ground BoundaryKind = iota
	LeftWall
	RightWall
	Ceiling
)

var boundaryNames = [...]string{"ground", "left", "right", "ceiling"}

func (k BoundaryKind) String() string {
	if int(k) < len(boundaryNames) {
		return boundaryNames[k]
	}
	return fmt.Sprintf("boundary(%d)", k)
}

// Boundary is a static wall rectangle given by center and size.
type Boundary struct {
	Kind          BoundaryKind
	X, Y          float64
	Width, Height float64
}

// Inner returns the coordinate of the wall face that points into the container.
func (b Boundary) Inner() float64 {
	switch b.Kind {
	case Ground:
		return b.Y - b.Height/2
	case Ceiling:
		return b.Y + b.Height/2
	case LeftWall:
		return b.X + b.Width/2
	default:
		return b.X - b.Width/2
	}
}
