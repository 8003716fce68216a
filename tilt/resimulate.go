package tilt

import "time"

// MinResimulateInterval is the shortest repeat interval a Resimulator accepts.
const MinResimulateInterval = time.Second

// Resimulator fires on a fixed interval of frame time while armed. It is
// driven by the host's frame callback rather than a timer, so disarming it
// leaves nothing running.
type Resimulator struct {
	interval time.Duration
	elapsed  time.Duration
	armed    bool
	fired    int
}

// NewResimulator creates a disarmed resimulator. Intervals below
// MinResimulateInterval are raised to it.
func NewResimulator(interval time.Duration) *Resimulator {
	if interval < MinResimulateInterval {
		interval = MinResimulateInterval
	}
	return &Resimulator{interval: interval}
}

// Arm starts counting from zero.
func (r *Resimulator) Arm() {
	r.armed = true
	r.elapsed = 0
}

// Disarm stops the resimulator.
func (r *Resimulator) Disarm() {
	r.armed = false
	r.elapsed = 0
}

// Armed reports whether the resimulator is counting.
func (r *Resimulator) Armed() bool { return r.armed }

// Interval returns the repeat interval.
func (r *Resimulator) Interval() time.Duration { return r.interval }

// Fired returns how many times Advance has returned true.
func (r *Resimulator) Fired() int { return r.fired }

// Advance adds frame time and reports whether a resimulation is due. It
// fires at most once per call, however long the frame was.
func (r *Resimulator) Advance(dt time.Duration) bool {
	if !r.armed || dt <= 0 {
		return false
	}
	r.elapsed += dt
	if r.elapsed < r.interval {
		return false
	}
	r.elapsed = 0
	r.fired++
	return true
}
