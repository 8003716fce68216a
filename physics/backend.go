// Package physics provides the swappable rigid-body backends that drive badge motion.
//
// All coordinates are in layout space: pixels, origin at the container's top-left
// corner, y pointing down. Backends own their native resources and must release
// them in Close.
package physics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/stackfall/config"
)

// Backend names accepted by New.
const (
	BackendBox2D = "box2d"
	BackendArk   = "ark"
)

var (
	// ErrUnknownBackend is returned by New for unregistered backend names.
	ErrUnknownBackend = errors.New("physics: unknown backend")
	// ErrUnknownBody is returned when an operation names a body that was never added.
	ErrUnknownBody = errors.New("physics: unknown body")
	// ErrDuplicateBody is returned when AddBody reuses an ID.
	ErrDuplicateBody = errors.New("physics: duplicate body")
	// ErrClosed is returned by operations on a closed backend.
	ErrClosed = errors.New("physics: backend closed")
)

// BodyID identifies a dynamic body inside a backend.
type BodyID uint32

// BodyDef describes a dynamic box body.
type BodyDef struct {
	ID            BodyID
	X, Y          float64 // center
	Width, Height float64
	Angle         float64
}

// BodyState is a body's state after the most recent step.
type BodyState struct {
	ID     BodyID
	Pos    r2.Vec
	Angle  float64
	Vel    r2.Vec
	AngVel float64
}

// Params holds the tuning constants shared by every backend.
type Params struct {
	GravityScale       float64
	Restitution        float64
	Friction           float64
	Density            float64
	AirFriction        float64
	MaxSpeed           float64
	MaxAngularSpeed    float64
	VelocityIterations int
	PositionIterations int
	PixelsPerMeter     float64
	WallThickness      float64

	DragStiffness    float64
	DragFrequencyHz  float64
	DragDampingRatio float64
	DragMaxForce     float64
}

// ParamsFromConfig builds backend parameters from the loaded configuration.
func ParamsFromConfig(cfg *config.Config) Params {
	p := cfg.Physics
	return Params{
		GravityScale:       p.GravityScale,
		Restitution:        p.Restitution,
		Friction:           p.Friction,
		Density:            p.Density,
		AirFriction:        p.AirFriction,
		MaxSpeed:           p.MaxSpeed,
		MaxAngularSpeed:    p.MaxAngularSpeed,
		VelocityIterations: p.VelocityIterations,
		PositionIterations: p.PositionIterations,
		PixelsPerMeter:     p.PixelsPerMeter,
		WallThickness:      p.WallThickness,
		DragStiffness:      cfg.Drag.Stiffness,
		DragFrequencyHz:    cfg.Drag.FrequencyHz,
		DragDampingRatio:   cfg.Drag.DampingRatio,
		DragMaxForce:       cfg.Drag.MaxForce,
	}
}

// sanitized clamps coefficients into the ranges the solvers assume.
func (p Params) sanitized() Params {
	p.Restitution = clamp(p.Restitution, 0, 1)
	p.Friction = clamp(p.Friction, 0, 1)
	p.AirFriction = clamp(p.AirFriction, 0, 1)
	p.DragStiffness = clamp(p.DragStiffness, 0.01, 1)
	if p.Density <= 0 {
		p.Density = 0.001
	}
	if p.MaxSpeed <= 0 {
		p.MaxSpeed = 1500
	}
	if p.MaxAngularSpeed <= 0 {
		p.MaxAngularSpeed = 12
	}
	if p.VelocityIterations < 1 {
		p.VelocityIterations = 8
	}
	if p.PositionIterations < 1 {
		p.PositionIterations = 3
	}
	if p.PixelsPerMeter <= 0 {
		p.PixelsPerMeter = 50
	}
	if p.WallThickness <= 0 {
		p.WallThickness = 100
	}
	if p.DragFrequencyHz <= 0 {
		p.DragFrequencyHz = 5
	}
	if p.DragMaxForce <= 0 {
		p.DragMaxForce = 1000
	}
	return p
}

// Backend is a 2D rigid-body world holding dynamic badge boxes and four
// static walls. Implementations are not safe for concurrent use.
type Backend interface {
	// Name returns the registered backend name.
	Name() string
	// AddBody creates a dynamic box body.
	AddBody(def BodyDef) error
	// SetWalls destroys the current walls and creates new ones whose inner
	// faces enclose [0, width] x [0, height].
	SetWalls(width, height float64)
	// SetGravity sets the gravity vector in gravity units (scaled by GravityScale).
	SetGravity(g r2.Vec)
	// Step advances the world by dt seconds.
	Step(dt float64)
	// State returns a body's state after the last step.
	State(id BodyID) (BodyState, bool)
	// Translate moves a body by delta without changing its angle.
	Translate(id BodyID, delta r2.Vec) error
	// SetVelocity overrides a body's linear velocity.
	SetVelocity(id BodyID, v r2.Vec) error
	// SetContained toggles whether a body collides with the walls.
	SetContained(id BodyID, contained bool) error
	// Grab attaches a pointer constraint pulling the body toward target.
	Grab(id BodyID, target r2.Vec) error
	// MoveGrab updates the pointer constraint target.
	MoveGrab(id BodyID, target r2.Vec) error
	// Release removes the pointer constraint.
	Release(id BodyID) error
	// Close releases all native resources. Safe to call more than once.
	Close() error
}

// Factory creates a backend.
type Factory func(p Params) (Backend, error)

var factories = map[string]Factory{
	BackendBox2D: NewBox2D,
	BackendArk:   NewArk,
}

// New creates the backend registered under name.
func New(name string, p Params) (Backend, error) {
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	return f(p.sanitized())
}

// Names returns the registered backend names.
func Names() []string {
	return []string{BackendBox2D, BackendArk}
}

// WallRects returns the center and size of the ground, left, right and ceiling
// walls whose inner faces enclose [0, width] x [0, height].
func WallRects(width, height, thickness float64) [4]Rect {
	t := thickness
	return [4]Rect{
		{Center: r2.Vec{X: width / 2, Y: height + t/2}, Width: width + 2*t, Height: t},
		{Center: r2.Vec{X: -t / 2, Y: height / 2}, Width: t, Height: height + 2*t},
		{Center: r2.Vec{X: width + t/2, Y: height / 2}, Width: t, Height: height + 2*t},
		{Center: r2.Vec{X: width / 2, Y: -t / 2}, Width: width + 2*t, Height: t},
	}
}

// Rect is an axis-aligned rectangle given by center and size.
type Rect struct {
	Center        r2.Vec
	Width, Height float64
}

// ClampVelocity limits linear and angular speed.
func ClampVelocity(v r2.Vec, w, maxSpeed, maxAngular float64) (r2.Vec, float64) {
	if speed := r2.Norm(v); speed > maxSpeed && speed > 0 {
		v = r2.Scale(maxSpeed/speed, v)
	}
	return v, clamp(w, -maxAngular, maxAngular)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func finite(v r2.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}
