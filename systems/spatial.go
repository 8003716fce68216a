package systems

import "math"

// AABB is an axis-aligned bounding box.
type AABB struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Overlaps reports whether the boxes intersect with positive area.
func (a AABB) Overlaps(b AABB) bool {
	return a.MinX < b.MaxX && b.MinX < a.MaxX && a.MinY < b.MaxY && b.MinY < a.MaxY
}

// Bounds returns the box's axis-aligned bounds.
func (o OBB) Bounds() AABB {
	s, c := math.Sincos(o.Angle)
	s, c = math.Abs(s), math.Abs(c)
	ex := c*o.HalfW + s*o.HalfH
	ey := s*o.HalfW + c*o.HalfH
	return AABB{MinX: o.Center.X - ex, MinY: o.Center.Y - ey, MaxX: o.Center.X + ex, MaxY: o.Center.Y + ey}
}

// maxGridSide caps the grid per axis; bodies far outside the container share
// the edge cells.
const maxGridSide = 64

// SpatialGrid is a uniform-grid broad phase. Each body is inserted into
// every cell its bounds cover.
type SpatialGrid struct {
	cellSize   float64
	minX, minY float64
	cols, rows int
	cells      [][]int // body indices per cell
	bounds     []AABB
}

// NewSpatialGrid creates a grid with the given cell size in pixels.
func NewSpatialGrid(cellSize float64) *SpatialGrid {
	if cellSize <= 0 {
		cellSize = 64
	}
	return &SpatialGrid{cellSize: cellSize}
}

// Build clears the grid and inserts the given bounds, indexed by position.
func (g *SpatialGrid) Build(bounds []AABB) {
	g.bounds = append(g.bounds[:0], bounds...)
	if len(bounds) == 0 {
		g.cols, g.rows = 0, 0
		g.cells = g.cells[:0]
		return
	}

	all := bounds[0]
	for _, b := range bounds[1:] {
		all.MinX = min(all.MinX, b.MinX)
		all.MinY = min(all.MinY, b.MinY)
		all.MaxX = max(all.MaxX, b.MaxX)
		all.MaxY = max(all.MaxY, b.MaxY)
	}
	g.minX, g.minY = all.MinX, all.MinY
	g.cols = min(int((all.MaxX-all.MinX)/g.cellSize)+1, maxGridSide)
	g.rows = min(int((all.MaxY-all.MinY)/g.cellSize)+1, maxGridSide)

	n := g.cols * g.rows
	if cap(g.cells) < n {
		g.cells = make([][]int, n)
	}
	g.cells = g.cells[:n]
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}

	for i, b := range bounds {
		c0, r0 := g.cell(b.MinX, b.MinY)
		c1, r1 := g.cell(b.MaxX, b.MaxY)
		for r := r0; r <= r1; r++ {
			for c := c0; c <= c1; c++ {
				idx := r*g.cols + c
				g.cells[idx] = append(g.cells[idx], i)
			}
		}
	}
}

// cell returns the clamped column and row for a position.
func (g *SpatialGrid) cell(x, y float64) (col, row int) {
	col = int((x - g.minX) / g.cellSize)
	row = int((y - g.minY) / g.cellSize)
	col = min(max(col, 0), g.cols-1)
	row = min(max(row, 0), g.rows-1)
	return col, row
}

// PairsInto appends each pair of bodies with overlapping bounds to dst once,
// with the lower index first. A pair is reported only from the cell holding
// the minimum corner of the bounds' intersection.
func (g *SpatialGrid) PairsInto(dst [][2]int) [][2]int {
	for idx, cell := range g.cells {
		col, row := idx%g.cols, idx/g.cols
		for x := 0; x < len(cell); x++ {
			for y := x + 1; y < len(cell); y++ {
				i, j := cell[x], cell[y]
				a, b := g.bounds[i], g.bounds[j]
				if !a.Overlaps(b) {
					continue
				}
				c, r := g.cell(max(a.MinX, b.MinX), max(a.MinY, b.MinY))
				if c != col || r != row {
					continue
				}
				if i > j {
					i, j = j, i
				}
				dst = append(dst, [2]int{i, j})
			}
		}
	}
	return dst
}
