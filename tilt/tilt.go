// Package tilt maps device orientation to a gravity vector and manages the
// orientation subscription and the random-gravity fallback.
package tilt

import (
	"errors"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"
)

// ErrMalformedSample is returned for orientation samples with a missing or
// non-finite axis. Callers drop the sample and keep their last gravity.
var ErrMalformedSample = errors.New("tilt: malformed orientation sample")

// MaxRandomRange bounds the half-width of randomized gravity components.
const MaxRandomRange = 0.5

// Input is one orientation reading in degrees.
type Input struct {
	TiltLR         float64 // left-right, positive tilts right
	TiltFB         float64 // front-back, positive tilts forward
	HasOrientation bool
}

// Result is the gravity derived from an Input.
type Result struct {
	GravityX, GravityY float64
	// ShouldResimulate is set when no orientation is available and the
	// caller should keep the animation alive with random gravity restarts.
	ShouldResimulate bool
}

// Vec returns the gravity as a vector.
func (r Result) Vec() r2.Vec {
	return r2.Vec{X: r.GravityX, Y: r.GravityY}
}

// Neutral is the gravity used without orientation: straight down.
var Neutral = Result{GravityX: 0, GravityY: 1}

// Resolve converts an orientation reading to gravity. A 90 degree tilt maps
// to a full-scale component.
func Resolve(in Input) (Result, error) {
	if !in.HasOrientation {
		r := Neutral
		r.ShouldResimulate = true
		return r, nil
	}
	if !finite(in.TiltLR) || !finite(in.TiltFB) {
		return Result{}, ErrMalformedSample
	}
	return Result{
		GravityX: clampUnit(math.Sin(in.TiltLR * math.Pi / 180)),
		GravityY: clampUnit(math.Sin(in.TiltFB * math.Pi / 180)),
	}, nil
}

// RandomGravity returns a vector with both components uniform in
// [-halfRange, halfRange]. halfRange is capped at MaxRandomRange.
func RandomGravity(rng *rand.Rand, halfRange float64) r2.Vec {
	if !(halfRange > 0) || halfRange > MaxRandomRange {
		halfRange = MaxRandomRange
	}
	return r2.Vec{
		X: (rng.Float64()*2 - 1) * halfRange,
		Y: (rng.Float64()*2 - 1) * halfRange,
	}
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
