package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// clampFloat clamps a value between min and max.
func clampFloat(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// normalizeAngle wraps an angle to [-Pi, Pi].
func normalizeAngle(angle float64) float64 {
	for angle > math.Pi {
		angle -= 2 * math.Pi
	}
	for angle < -math.Pi {
		angle += 2 * math.Pi
	}
	return angle
}

// rotate rotates v by angle radians.
func rotate(v r2.Vec, angle float64) r2.Vec {
	s, c := math.Sincos(angle)
	return r2.Vec{X: v.X*c - v.Y*s, Y: v.X*s + v.Y*c}
}

// Unrotate rotates v by -angle radians (world offset to body-local).
func Unrotate(v r2.Vec, angle float64) r2.Vec {
	return rotate(v, -angle)
}

// crossSV returns w x r for a scalar angular velocity w.
func crossSV(w float64, r r2.Vec) r2.Vec {
	return r2.Vec{X: -w * r.Y, Y: w * r.X}
}
