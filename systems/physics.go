// Package systems contains the ECS systems of the in-house rigid-body solver.
package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/stackfall/components"
)

// IntegrationSystem applies gravity, pointer springs and air friction, then
// integrates velocities into positions with semi-implicit Euler.
type IntegrationSystem struct {
	filter *ecs.Filter5[components.Position, components.Velocity, components.Rotation, components.Body, components.Grab]

	Gravity       r2.Vec // px/s^2
	AirFriction   float64
	MaxSpeed      float64
	MaxAngular    float64
	DragStiffness float64
}

// NewIntegrationSystem creates a new integration system.
func NewIntegrationSystem(w *ecs.World) *IntegrationSystem {
	return &IntegrationSystem{
		filter: ecs.NewFilter5[components.Position, components.Velocity, components.Rotation, components.Body, components.Grab](w),
	}
}

// Update runs the integration system for one step of dt seconds.
func (s *IntegrationSystem) Update(dt float64) {
	if dt <= 0 {
		return
	}
	damping := 1 - s.AirFriction

	query := s.filter.Query()
	for query.Next() {
		pos, vel, rot, body, grab := query.Get()
		if body.Static {
			continue
		}

		vel.X += s.Gravity.X * dt
		vel.Y += s.Gravity.Y * dt

		if grab.Active {
			s.applySpring(pos, vel, rot, body, grab, dt)
		}

		vel.X *= damping
		vel.Y *= damping
		rot.AngVel *= damping

		// Limit velocity
		speed := math.Hypot(vel.X, vel.Y)
		if speed > s.MaxSpeed {
			scale := s.MaxSpeed / speed
			vel.X *= scale
			vel.Y *= scale
		}
		rot.AngVel = clampFloat(rot.AngVel, -s.MaxAngular, s.MaxAngular)

		pos.X += vel.X * dt
		pos.Y += vel.Y * dt
		rot.Angle = normalizeAngle(rot.Angle + rot.AngVel*dt)
	}
}

// applySpring pulls the grab point toward the pointer target, correcting a
// fixed fraction of the offset each step through an impulse at that point.
func (s *IntegrationSystem) applySpring(pos *components.Position, vel *components.Velocity, rot *components.Rotation, body *components.Body, grab *components.Grab, dt float64) {
	r := rotate(r2.Vec{X: grab.LocalX, Y: grab.LocalY}, rot.Angle)
	point := r2.Vec{X: pos.X + r.X, Y: pos.Y + r.Y}
	offset := r2.Sub(r2.Vec{X: grab.TargetX, Y: grab.TargetY}, point)

	want := r2.Scale(s.DragStiffness/dt, offset)
	have := r2.Add(r2.Vec{X: vel.X, Y: vel.Y}, crossSV(rot.AngVel, r))
	dv := r2.Sub(want, have)

	effMass := 1 / (body.InvMass + r2.Norm2(r)*body.InvInertia)
	j := r2.Scale(effMass, dv)

	vel.X += j.X * body.InvMass
	vel.Y += j.Y * body.InvMass
	rot.AngVel += r2.Cross(r, j) * body.InvInertia
}

// Solver tolerances.
const (
	penetrationSlop      = 0.5  // px of overlap tolerated before positional correction
	correctionPercent    = 0.6  // fraction of remaining overlap removed per position iteration
	restitutionThreshold = 60.0 // px/s of approach speed below which contacts are inelastic
	broadPhaseCell       = 64.0 // px
)

// CollisionSystem detects overlapping boxes and resolves them with
// sequential impulses, Coulomb friction and positional correction.
type CollisionSystem struct {
	filter *ecs.Filter5[components.Position, components.Velocity, components.Rotation, components.Body, components.Collider]
	bodies []bodyRef
	pairs  []pair
	grid   *SpatialGrid
	bounds []AABB
	cands  [][2]int

	Restitution        float64
	Friction           float64
	VelocityIterations int
	PositionIterations int
}

type bodyRef struct {
	pos  *components.Position
	vel  *components.Velocity
	rot  *components.Rotation
	body *components.Body
	col  *components.Collider
}

func (b bodyRef) obb() OBB {
	return OBB{
		Center: r2.Vec{X: b.pos.X, Y: b.pos.Y},
		HalfW:  b.body.HalfW,
		HalfH:  b.body.HalfH,
		Angle:  b.rot.Angle,
	}
}

type pair struct {
	a, b    int
	contact Contact
}

// NewCollisionSystem creates a new collision system.
func NewCollisionSystem(w *ecs.World) *CollisionSystem {
	return &CollisionSystem{
		filter:             ecs.NewFilter5[components.Position, components.Velocity, components.Rotation, components.Body, components.Collider](w),
		grid:               NewSpatialGrid(broadPhaseCell),
		VelocityIterations: 8,
		PositionIterations: 3,
	}
}

// Update resolves all contacts for the current positions.
// Returns the number of contacts found.
func (s *CollisionSystem) Update() int {
	s.bodies = s.bodies[:0]
	query := s.filter.Query()
	for query.Next() {
		pos, vel, rot, body, col := query.Get()
		s.bodies = append(s.bodies, bodyRef{pos: pos, vel: vel, rot: rot, body: body, col: col})
	}

	s.findPairs()
	contacts := len(s.pairs)

	for it := 0; it < s.VelocityIterations; it++ {
		for i := range s.pairs {
			s.resolveVelocity(&s.pairs[i])
		}
	}
	for it := 0; it < s.PositionIterations; it++ {
		s.findPairs()
		for i := range s.pairs {
			s.correctPosition(&s.pairs[i])
		}
	}
	return contacts
}

// findPairs runs the grid broad phase, then the narrow phase on each
// candidate pair.
func (s *CollisionSystem) findPairs() {
	s.bounds = s.bounds[:0]
	for _, b := range s.bodies {
		s.bounds = append(s.bounds, b.obb().Bounds())
	}
	s.grid.Build(s.bounds)
	s.cands = s.grid.PairsInto(s.cands[:0])

	s.pairs = s.pairs[:0]
	for _, c := range s.cands {
		a, b := s.bodies[c[0]], s.bodies[c[1]]
		if !s.shouldCollide(a, b) {
			continue
		}
		if contact, ok := Collide(a.obb(), b.obb()); ok {
			s.pairs = append(s.pairs, pair{a: c[0], b: c[1], contact: contact})
		}
	}
}

func (s *CollisionSystem) shouldCollide(a, b bodyRef) bool {
	if a.body.Static && b.body.Static {
		return false
	}
	if a.body.Static {
		return b.col.Contained
	}
	if b.body.Static {
		return a.col.Contained
	}
	return true
}

func (s *CollisionSystem) resolveVelocity(p *pair) {
	a, b := s.bodies[p.a], s.bodies[p.b]
	n := p.contact.Normal

	ra := r2.Sub(p.contact.Point, r2.Vec{X: a.pos.X, Y: a.pos.Y})
	rb := r2.Sub(p.contact.Point, r2.Vec{X: b.pos.X, Y: b.pos.Y})

	va := r2.Add(r2.Vec{X: a.vel.X, Y: a.vel.Y}, crossSV(a.rot.AngVel, ra))
	vb := r2.Add(r2.Vec{X: b.vel.X, Y: b.vel.Y}, crossSV(b.rot.AngVel, rb))
	rv := r2.Sub(vb, va)

	vn := r2.Dot(rv, n)
	if vn > 0 {
		return
	}

	raN := r2.Cross(ra, n)
	rbN := r2.Cross(rb, n)
	denom := a.body.InvMass + b.body.InvMass + raN*raN*a.body.InvInertia + rbN*rbN*b.body.InvInertia
	if denom == 0 {
		return
	}

	e := s.Restitution
	if -vn < restitutionThreshold {
		e = 0
	}
	jn := -(1 + e) * vn / denom
	applyImpulse(a, b, ra, rb, r2.Scale(jn, n))

	// Friction along the contact tangent, recomputed after the normal impulse
	va = r2.Add(r2.Vec{X: a.vel.X, Y: a.vel.Y}, crossSV(a.rot.AngVel, ra))
	vb = r2.Add(r2.Vec{X: b.vel.X, Y: b.vel.Y}, crossSV(b.rot.AngVel, rb))
	rv = r2.Sub(vb, va)
	t := r2.Sub(rv, r2.Scale(r2.Dot(rv, n), n))
	tl := r2.Norm(t)
	if tl < 1e-9 {
		return
	}
	t = r2.Scale(1/tl, t)

	raT := r2.Cross(ra, t)
	rbT := r2.Cross(rb, t)
	denomT := a.body.InvMass + b.body.InvMass + raT*raT*a.body.InvInertia + rbT*rbT*b.body.InvInertia
	if denomT == 0 {
		return
	}
	jt := -r2.Dot(rv, t) / denomT
	limit := s.Friction * jn
	jt = clampFloat(jt, -limit, limit)
	applyImpulse(a, b, ra, rb, r2.Scale(jt, t))
}

func applyImpulse(a, b bodyRef, ra, rb, j r2.Vec) {
	a.vel.X -= j.X * a.body.InvMass
	a.vel.Y -= j.Y * a.body.InvMass
	a.rot.AngVel -= r2.Cross(ra, j) * a.body.InvInertia
	b.vel.X += j.X * b.body.InvMass
	b.vel.Y += j.Y * b.body.InvMass
	b.rot.AngVel += r2.Cross(rb, j) * b.body.InvInertia
}

func (s *CollisionSystem) correctPosition(p *pair) {
	a, b := s.bodies[p.a], s.bodies[p.b]
	total := a.body.InvMass + b.body.InvMass
	if total == 0 {
		return
	}
	depth := p.contact.Depth - penetrationSlop
	if depth <= 0 {
		return
	}
	corr := r2.Scale(depth*correctionPercent/total, p.contact.Normal)
	a.pos.X -= corr.X * a.body.InvMass
	a.pos.Y -= corr.Y * a.body.InvMass
	b.pos.X += corr.X * b.body.InvMass
	b.pos.Y += corr.Y * b.body.InvMass
}
