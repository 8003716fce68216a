// Package components defines ECS components for the in-house rigid-body solver.
package components

// Position represents a body's center in layout space (pixels).
type Position struct {
	X, Y float64
}

// Velocity represents a body's linear velocity in pixels per second.
type Velocity struct {
	X, Y float64
}

// Rotation represents a body's angle and angular velocity.
type Rotation struct {
	Angle  float64 // radians
	AngVel float64 // radians per second
}
