package physics

import (
	"fmt"

	"github.com/ByteArena/box2d"
	"gonum.org/v1/gonum/spatial/r2"
)

// Collision filter categories.
const (
	categoryBadge uint16 = 0x0001
	categoryWall  uint16 = 0x0002
)

// nominalRate converts per-step air friction into box2d's per-second damping.
const nominalRate = 60.0

// Box2D drives badges with a github.com/ByteArena/box2d world. Layout pixels
// are converted to meters with Params.PixelsPerMeter.
type Box2D struct {
	p      Params
	world  *box2d.B2World
	anchor *box2d.B2Body
	bodies map[BodyID]*box2d.B2Body
	halves map[BodyID]box2d.B2Vec2 // half extents in meters
	walls  []*box2d.B2Body

	joint     *box2d.B2MouseJoint
	jointBody BodyID
	closed    bool
}

// NewBox2D creates a box2d-backed world with zero gravity and no walls.
func NewBox2D(p Params) (Backend, error) {
	world := box2d.MakeB2World(box2d.MakeB2Vec2(0, 0))
	// Without a filter the world ignores category and mask bits
	world.SetContactFilter(&box2d.B2ContactFilter{})
	b := &Box2D{
		p:      p,
		world:  &world,
		bodies: make(map[BodyID]*box2d.B2Body),
		halves: make(map[BodyID]box2d.B2Vec2),
	}

	// Mouse joints need a static partner body
	def := box2d.MakeB2BodyDef()
	def.Type = box2d.B2BodyType.B2_staticBody
	b.anchor = b.world.CreateBody(&def)

	return b, nil
}

// Name implements Backend.
func (b *Box2D) Name() string { return BackendBox2D }

func (b *Box2D) toMeters(v r2.Vec) box2d.B2Vec2 {
	return box2d.MakeB2Vec2(v.X/b.p.PixelsPerMeter, v.Y/b.p.PixelsPerMeter)
}

func (b *Box2D) toPixels(v box2d.B2Vec2) r2.Vec {
	return r2.Vec{X: v.X * b.p.PixelsPerMeter, Y: v.Y * b.p.PixelsPerMeter}
}

// AddBody implements Backend.
func (b *Box2D) AddBody(d BodyDef) error {
	if b.closed {
		return ErrClosed
	}
	if _, ok := b.bodies[d.ID]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateBody, d.ID)
	}

	def := box2d.MakeB2BodyDef()
	def.Type = box2d.B2BodyType.B2_dynamicBody
	def.Position = b.toMeters(r2.Vec{X: d.X, Y: d.Y})
	def.Angle = d.Angle
	def.LinearDamping = b.p.AirFriction * nominalRate
	def.AngularDamping = b.p.AirFriction * nominalRate
	body := b.world.CreateBody(&def)

	ppm := b.p.PixelsPerMeter
	shape := box2d.MakeB2PolygonShape()
	shape.SetAsBox(d.Width/2/ppm, d.Height/2/ppm)

	fd := box2d.MakeB2FixtureDef()
	fd.Shape = &shape
	fd.Density = b.p.Density * ppm * ppm
	fd.Friction = b.p.Friction
	fd.Restitution = b.p.Restitution
	fd.Filter.CategoryBits = categoryBadge
	fd.Filter.MaskBits = categoryBadge | categoryWall
	body.CreateFixtureFromDef(&fd)

	b.bodies[d.ID] = body
	b.halves[d.ID] = box2d.MakeB2Vec2(d.Width/2/ppm, d.Height/2/ppm)
	return nil
}

// SetWalls implements Backend.
func (b *Box2D) SetWalls(width, height float64) {
	if b.closed {
		return
	}
	for _, w := range b.walls {
		b.world.DestroyBody(w)
	}
	b.walls = b.walls[:0]

	ppm := b.p.PixelsPerMeter
	for _, r := range WallRects(width, height, b.p.WallThickness) {
		def := box2d.MakeB2BodyDef()
		def.Type = box2d.B2BodyType.B2_staticBody
		def.Position = b.toMeters(r.Center)
		body := b.world.CreateBody(&def)

		shape := box2d.MakeB2PolygonShape()
		shape.SetAsBox(r.Width/2/ppm, r.Height/2/ppm)

		fd := box2d.MakeB2FixtureDef()
		fd.Shape = &shape
		fd.Friction = b.p.Friction
		fd.Filter.CategoryBits = categoryWall
		fd.Filter.MaskBits = categoryBadge
		body.CreateFixtureFromDef(&fd)

		b.walls = append(b.walls, body)
	}
	b.wakeAll()
}

// SetGravity implements Backend.
func (b *Box2D) SetGravity(g r2.Vec) {
	if b.closed || !finite(g) {
		return
	}
	b.world.SetGravity(b.toMeters(r2.Scale(b.p.GravityScale, g)))
	b.wakeAll()
}

func (b *Box2D) wakeAll() {
	for _, body := range b.bodies {
		body.SetAwake(true)
	}
}

// Step implements Backend.
func (b *Box2D) Step(dt float64) {
	if b.closed || dt <= 0 {
		return
	}
	b.world.Step(dt, b.p.VelocityIterations, b.p.PositionIterations)

	maxSpeed := b.p.MaxSpeed / b.p.PixelsPerMeter
	for _, body := range b.bodies {
		lv := body.GetLinearVelocity()
		v, w := ClampVelocity(r2.Vec{X: lv.X, Y: lv.Y}, body.GetAngularVelocity(), maxSpeed, b.p.MaxAngularSpeed)
		if v.X != lv.X || v.Y != lv.Y {
			body.SetLinearVelocity(box2d.MakeB2Vec2(v.X, v.Y))
		}
		body.SetAngularVelocity(w)
	}
}

// State implements Backend.
func (b *Box2D) State(id BodyID) (BodyState, bool) {
	body, ok := b.bodies[id]
	if !ok || b.closed {
		return BodyState{}, false
	}
	return BodyState{
		ID:     id,
		Pos:    b.toPixels(body.GetPosition()),
		Angle:  body.GetAngle(),
		Vel:    b.toPixels(body.GetLinearVelocity()),
		AngVel: body.GetAngularVelocity(),
	}, true
}

func (b *Box2D) body(id BodyID) (*box2d.B2Body, error) {
	if b.closed {
		return nil, ErrClosed
	}
	body, ok := b.bodies[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBody, id)
	}
	return body, nil
}

// Translate implements Backend.
func (b *Box2D) Translate(id BodyID, delta r2.Vec) error {
	body, err := b.body(id)
	if err != nil {
		return err
	}
	pos := body.GetPosition()
	d := b.toMeters(delta)
	body.SetTransform(box2d.MakeB2Vec2(pos.X+d.X, pos.Y+d.Y), body.GetAngle())
	body.SetAwake(true)
	return nil
}

// SetVelocity implements Backend.
func (b *Box2D) SetVelocity(id BodyID, v r2.Vec) error {
	body, err := b.body(id)
	if err != nil {
		return err
	}
	body.SetLinearVelocity(b.toMeters(v))
	body.SetAwake(true)
	return nil
}

// SetContained implements Backend.
func (b *Box2D) SetContained(id BodyID, contained bool) error {
	body, err := b.body(id)
	if err != nil {
		return err
	}
	mask := categoryBadge
	if contained {
		mask |= categoryWall
	}
	for f := body.GetFixtureList(); f != nil; f = f.GetNext() {
		filter := f.GetFilterData()
		if filter.MaskBits == mask {
			continue
		}
		filter.MaskBits = mask
		f.SetFilterData(filter)
	}
	return nil
}

// Grab implements Backend using a box2d mouse joint. The joint anchors at
// the point of the body nearest the pointer and is then pulled toward it.
func (b *Box2D) Grab(id BodyID, target r2.Vec) error {
	body, err := b.body(id)
	if err != nil {
		return err
	}
	b.destroyJoint()

	half := b.halves[id]
	local := body.GetLocalPoint(b.toMeters(target))
	local.X = clamp(local.X, -half.X, half.X)
	local.Y = clamp(local.Y, -half.Y, half.Y)

	jd := box2d.MakeB2MouseJointDef()
	jd.BodyA = b.anchor
	jd.BodyB = body
	jd.Target = body.GetWorldPoint(local)
	jd.MaxForce = b.p.DragMaxForce * body.GetMass()
	jd.FrequencyHz = b.p.DragFrequencyHz
	jd.DampingRatio = b.p.DragDampingRatio

	b.joint = b.world.CreateJoint(&jd).(*box2d.B2MouseJoint)
	b.jointBody = id
	b.joint.SetTarget(b.toMeters(target))
	body.SetAwake(true)
	return nil
}

// MoveGrab implements Backend.
func (b *Box2D) MoveGrab(id BodyID, target r2.Vec) error {
	body, err := b.body(id)
	if err != nil {
		return err
	}
	if b.joint == nil || b.jointBody != id {
		return b.Grab(id, target)
	}
	b.joint.SetTarget(b.toMeters(target))
	body.SetAwake(true)
	return nil
}

// Release implements Backend.
func (b *Box2D) Release(id BodyID) error {
	if _, err := b.body(id); err != nil {
		return err
	}
	if b.jointBody == id {
		b.destroyJoint()
	}
	return nil
}

func (b *Box2D) destroyJoint() {
	if b.joint != nil {
		b.world.DestroyJoint(b.joint)
		b.joint = nil
	}
}

// Close implements Backend.
func (b *Box2D) Close() error {
	if b.closed {
		return nil
	}
	b.destroyJoint()
	for _, body := range b.bodies {
		b.world.DestroyBody(body)
	}
	for _, w := range b.walls {
		b.world.DestroyBody(w)
	}
	b.world.DestroyBody(b.anchor)
	b.bodies = nil
	b.halves = nil
	b.walls = nil
	b.anchor = nil
	b.world = nil
	b.closed = true
	return nil
}
