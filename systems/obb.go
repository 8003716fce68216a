package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// OBB is an oriented box given by center, half-extents and angle.
type OBB struct {
	Center       r2.Vec
	HalfW, HalfH float64
	Angle        float64
}

// Axes returns the box's local x and y unit axes in world space.
func (o OBB) Axes() (ux, uy r2.Vec) {
	s, c := math.Sincos(o.Angle)
	return r2.Vec{X: c, Y: s}, r2.Vec{X: -s, Y: c}
}

// Corners returns the four corners in world space.
func (o OBB) Corners() [4]r2.Vec {
	ux, uy := o.Axes()
	ex := r2.Scale(o.HalfW, ux)
	ey := r2.Scale(o.HalfH, uy)
	return [4]r2.Vec{
		r2.Add(o.Center, r2.Add(ex, ey)),
		r2.Add(o.Center, r2.Sub(ex, ey)),
		r2.Sub(o.Center, r2.Add(ex, ey)),
		r2.Sub(o.Center, r2.Sub(ex, ey)),
	}
}

// extent returns the projection radius of the box onto axis n.
func (o OBB) extent(n r2.Vec) float64 {
	ux, uy := o.Axes()
	return o.HalfW*math.Abs(r2.Dot(ux, n)) + o.HalfH*math.Abs(r2.Dot(uy, n))
}

// Contains reports whether p lies inside the box, expanded by slop.
func (o OBB) Contains(p r2.Vec, slop float64) bool {
	ux, uy := o.Axes()
	d := r2.Sub(p, o.Center)
	return math.Abs(r2.Dot(d, ux)) <= o.HalfW+slop && math.Abs(r2.Dot(d, uy)) <= o.HalfH+slop
}

// Contact describes the overlap between two boxes.
// Normal points from A to B; Depth is the penetration along Normal.
type Contact struct {
	Normal r2.Vec
	Depth  float64
	Point  r2.Vec
}

// Collide runs a separating-axis test between a and b.
func Collide(a, b OBB) (Contact, bool) {
	aux, auy := a.Axes()
	bux, buy := b.Axes()
	axes := [4]r2.Vec{aux, auy, bux, buy}

	d := r2.Sub(b.Center, a.Center)
	best := math.Inf(1)
	var normal r2.Vec

	for _, n := range axes {
		dist := r2.Dot(d, n)
		overlap := a.extent(n) + b.extent(n) - math.Abs(dist)
		if overlap <= 0 {
			return Contact{}, false
		}
		if overlap < best {
			best = overlap
			normal = n
			if dist < 0 {
				normal = r2.Scale(-1, n)
			}
		}
	}

	return Contact{Normal: normal, Depth: best, Point: contactPoint(a, b)}, true
}

// contactPoint averages the corners of each box that lie inside the other.
// Crossing edges with no enclosed corner fall back to the midpoint of the centers.
const cornerSlop = 0.5

func contactPoint(a, b OBB) r2.Vec {
	var sum r2.Vec
	n := 0
	for _, p := range b.Corners() {
		if a.Contains(p, cornerSlop) {
			sum = r2.Add(sum, p)
			n++
		}
	}
	for _, p := range a.Corners() {
		if b.Contains(p, cornerSlop) {
			sum = r2.Add(sum, p)
			n++
		}
	}
	if n == 0 {
		return r2.Scale(0.5, r2.Add(a.Center, b.Center))
	}
	return r2.Scale(1/float64(n), sum)
}
