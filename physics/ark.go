package physics

import (
	"fmt"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/stackfall/components"
	"github.com/pthm-cable/stackfall/systems"
)

// Ark runs the in-house sequential-impulse solver over an ark ECS world.
// Walls are static entities; badges are dynamic entities keyed by BodyID.
type Ark struct {
	p     Params
	world *ecs.World

	mapper *ecs.Map6[
		components.Position,
		components.Velocity,
		components.Rotation,
		components.Body,
		components.Collider,
		components.Grab,
	]
	posMap  *ecs.Map[components.Position]
	velMap  *ecs.Map[components.Velocity]
	rotMap  *ecs.Map[components.Rotation]
	bodyMap *ecs.Map[components.Body]
	colMap  *ecs.Map[components.Collider]
	grabMap *ecs.Map[components.Grab]

	integrate *systems.IntegrationSystem
	collide   *systems.CollisionSystem

	entities map[BodyID]ecs.Entity
	walls    []ecs.Entity
	closed   bool
}

// NewArk creates an ECS-backed world with zero gravity and no walls.
func NewArk(p Params) (Backend, error) {
	world := ecs.NewWorld()

	a := &Ark{
		p:     p,
		world: world,
		mapper: ecs.NewMap6[
			components.Position,
			components.Velocity,
			components.Rotation,
			components.Body,
			components.Collider,
			components.Grab,
		](world),
		posMap:   ecs.NewMap[components.Position](world),
		velMap:   ecs.NewMap[components.Velocity](world),
		rotMap:   ecs.NewMap[components.Rotation](world),
		bodyMap:  ecs.NewMap[components.Body](world),
		colMap:   ecs.NewMap[components.Collider](world),
		grabMap:  ecs.NewMap[components.Grab](world),
		entities: make(map[BodyID]ecs.Entity),
	}

	a.integrate = systems.NewIntegrationSystem(world)
	a.integrate.AirFriction = p.AirFriction
	a.integrate.MaxSpeed = p.MaxSpeed
	a.integrate.MaxAngular = p.MaxAngularSpeed
	a.integrate.DragStiffness = p.DragStiffness

	a.collide = systems.NewCollisionSystem(world)
	a.collide.Restitution = p.Restitution
	a.collide.Friction = p.Friction
	a.collide.VelocityIterations = p.VelocityIterations
	a.collide.PositionIterations = p.PositionIterations

	return a, nil
}

// Name implements Backend.
func (a *Ark) Name() string { return BackendArk }

// AddBody implements Backend.
func (a *Ark) AddBody(d BodyDef) error {
	if a.closed {
		return ErrClosed
	}
	if _, ok := a.entities[d.ID]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateBody, d.ID)
	}

	pos := components.Position{X: d.X, Y: d.Y}
	vel := components.Velocity{}
	rot := components.Rotation{Angle: d.Angle}
	body := components.NewDynamicBody(d.Width, d.Height, a.p.Density)
	col := components.Collider{ID: uint32(d.ID), Contained: true}
	grab := components.Grab{}

	a.entities[d.ID] = a.mapper.NewEntity(&pos, &vel, &rot, &body, &col, &grab)
	return nil
}

// SetWalls implements Backend.
func (a *Ark) SetWalls(width, height float64) {
	if a.closed {
		return
	}
	for _, e := range a.walls {
		a.world.RemoveEntity(e)
	}
	a.walls = a.walls[:0]

	for _, r := range WallRects(width, height, a.p.WallThickness) {
		pos := components.Position{X: r.Center.X, Y: r.Center.Y}
		vel := components.Velocity{}
		rot := components.Rotation{}
		body := components.NewStaticBody(r.Width, r.Height)
		col := components.Collider{}
		grab := components.Grab{}
		a.walls = append(a.walls, a.mapper.NewEntity(&pos, &vel, &rot, &body, &col, &grab))
	}
}

// SetGravity implements Backend.
func (a *Ark) SetGravity(g r2.Vec) {
	if a.closed || !finite(g) {
		return
	}
	a.integrate.Gravity = r2.Scale(a.p.GravityScale, g)
}

// Step implements Backend.
func (a *Ark) Step(dt float64) {
	if a.closed || dt <= 0 {
		return
	}
	a.integrate.Update(dt)
	a.collide.Update()
}

// State implements Backend.
func (a *Ark) State(id BodyID) (BodyState, bool) {
	e, ok := a.entities[id]
	if !ok || a.closed {
		return BodyState{}, false
	}
	pos := a.posMap.Get(e)
	vel := a.velMap.Get(e)
	rot := a.rotMap.Get(e)
	return BodyState{
		ID:     id,
		Pos:    r2.Vec{X: pos.X, Y: pos.Y},
		Angle:  rot.Angle,
		Vel:    r2.Vec{X: vel.X, Y: vel.Y},
		AngVel: rot.AngVel,
	}, true
}

func (a *Ark) entity(id BodyID) (ecs.Entity, error) {
	if a.closed {
		return ecs.Entity{}, ErrClosed
	}
	e, ok := a.entities[id]
	if !ok {
		return ecs.Entity{}, fmt.Errorf("%w: %d", ErrUnknownBody, id)
	}
	return e, nil
}

// Translate implements Backend.
func (a *Ark) Translate(id BodyID, delta r2.Vec) error {
	e, err := a.entity(id)
	if err != nil {
		return err
	}
	pos := a.posMap.Get(e)
	pos.X += delta.X
	pos.Y += delta.Y
	return nil
}

// SetVelocity implements Backend.
func (a *Ark) SetVelocity(id BodyID, v r2.Vec) error {
	e, err := a.entity(id)
	if err != nil {
		return err
	}
	vel := a.velMap.Get(e)
	vel.X, vel.Y = v.X, v.Y
	return nil
}

// SetContained implements Backend.
func (a *Ark) SetContained(id BodyID, contained bool) error {
	e, err := a.entity(id)
	if err != nil {
		return err
	}
	a.colMap.Get(e).Contained = contained
	return nil
}

// Grab implements Backend with a spring toward the pointer applied at the
// grabbed point, which keeps its body-local offset while dragged.
func (a *Ark) Grab(id BodyID, target r2.Vec) error {
	e, err := a.entity(id)
	if err != nil {
		return err
	}
	a.releaseAll()

	pos := a.posMap.Get(e)
	rot := a.rotMap.Get(e)
	body := a.bodyMap.Get(e)

	local := systems.Unrotate(r2.Vec{X: target.X - pos.X, Y: target.Y - pos.Y}, rot.Angle)
	local.X = clamp(local.X, -body.HalfW, body.HalfW)
	local.Y = clamp(local.Y, -body.HalfH, body.HalfH)

	grab := a.grabMap.Get(e)
	*grab = components.Grab{Active: true, TargetX: target.X, TargetY: target.Y, LocalX: local.X, LocalY: local.Y}
	return nil
}

// MoveGrab implements Backend.
func (a *Ark) MoveGrab(id BodyID, target r2.Vec) error {
	e, err := a.entity(id)
	if err != nil {
		return err
	}
	grab := a.grabMap.Get(e)
	if !grab.Active {
		return a.Grab(id, target)
	}
	grab.TargetX, grab.TargetY = target.X, target.Y
	return nil
}

// Release implements Backend.
func (a *Ark) Release(id BodyID) error {
	e, err := a.entity(id)
	if err != nil {
		return err
	}
	a.grabMap.Get(e).Active = false
	return nil
}

func (a *Ark) releaseAll() {
	for _, e := range a.entities {
		a.grabMap.Get(e).Active = false
	}
}

// Close implements Backend.
func (a *Ark) Close() error {
	if a.closed {
		return nil
	}
	for _, e := range a.entities {
		a.world.RemoveEntity(e)
	}
	for _, e := range a.walls {
		a.world.RemoveEntity(e)
	}
	a.entities = nil
	a.walls = nil
	a.world = nil
	a.closed = true
	return nil
}
