package telemetry

import "github.com/pthm-cable/stackfall/stack"

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float64
	settledSpeed        float64

	// Current window tracking
	windowStartTick int32

	// Event counters for current window
	counts [len(eventNames)]int

	// World counters at the last flush; reset when the world is replaced
	lastEscapes int
	lastNudges  int

	states []stack.BadgeState
	speeds []float64
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
// settledSpeed: px/s below which a badge counts as settled
func NewCollector(windowDurationSec, dt, settledSpeed float64) *Collector {
	ticksPerWindow := int32(windowDurationSec / dt)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}
	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
		settledSpeed:        settledSpeed,
	}
}

// Record counts an event in the current window.
func (c *Collector) Record(e Event) {
	if int(e.Type) < len(c.counts) {
		c.counts[e.Type]++
	}
	if e.Type == EventResimulate {
		c.ResetWorld()
	}
}

// ResetWorld marks the world as replaced; its containment counters start
// from zero.
func (c *Collector) ResetWorld() {
	c.lastEscapes, c.lastNudges = 0, 0
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush samples the world, produces a WindowStats and resets counters for
// the next window.
func (c *Collector) Flush(currentTick int32, w *stack.World) WindowStats {
	c.states = w.Badges(c.states[:0])
	c.speeds = w.Speeds(c.speeds[:0])

	var ke float64
	settled := 0
	for i, s := range c.speeds {
		b := c.states[i]
		ke += 0.5 * b.Width * b.Height * s * s
		if s < c.settledSpeed {
			settled++
		}
	}
	mean, p10, p50, p90 := ComputeSpeedStats(c.speeds)

	var settledFrac float64
	if n := len(c.states); n > 0 {
		settledFrac = float64(settled) / float64(n)
	}

	bounds := w.Bounds()
	g := w.Gravity()
	escapes, nudges := w.Escapes(), w.Nudges()

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Mode:     w.Mode().String(),
		Backend:  w.BackendName(),
		Badges:   len(c.states),
		Width:    bounds.Width,
		Height:   bounds.Height,
		GravityX: g.X,
		GravityY: g.Y,

		KineticEnergy: ke,
		SpeedMean:     mean,
		SpeedP10:      p10,
		SpeedP50:      p50,
		SpeedP90:      p90,
		Settled:       settled,
		SettledFrac:   settledFrac,

		OutOfBounds: w.OutOfBounds(),
		Escapes:     max(0, escapes-c.lastEscapes),
		Nudges:      max(0, nudges-c.lastNudges),

		Grabs:              c.counts[EventGrab],
		Releases:           c.counts[EventRelease],
		Resizes:            c.counts[EventResize],
		Resimulations:      c.counts[EventResimulate],
		DroppedOrientation: c.counts[EventOrientationDropped],
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.counts = [len(eventNames)]int{}
	c.lastEscapes, c.lastNudges = escapes, nudges

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
