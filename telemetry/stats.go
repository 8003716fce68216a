package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// World state at window end
	Mode     string  `csv:"mode"`
	Backend  string  `csv:"backend"`
	Badges   int     `csv:"badges"`
	Width    float64 `csv:"width"`
	Height   float64 `csv:"height"`
	GravityX float64 `csv:"gravity_x"`
	GravityY float64 `csv:"gravity_y"`

	// Motion (sampled at window end)
	KineticEnergy float64 `csv:"kinetic_energy"`
	SpeedMean     float64 `csv:"speed_mean"`
	SpeedP10      float64 `csv:"speed_p10"`
	SpeedP50      float64 `csv:"speed_p50"`
	SpeedP90      float64 `csv:"speed_p90"`
	Settled       int     `csv:"settled"`
	SettledFrac   float64 `csv:"settled_frac"`

	// Containment
	OutOfBounds int `csv:"out_of_bounds"`
	Escapes     int `csv:"escapes"`
	Nudges      int `csv:"nudges"`

	// Events during window
	Grabs              int `csv:"grabs"`
	Releases           int `csv:"releases"`
	Resizes            int `csv:"resizes"`
	Resimulations      int `csv:"resimulations"`
	DroppedOrientation int `csv:"dropped_orientation"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeSpeedStats calculates mean and percentiles of badge speeds.
func ComputeSpeedStats(values []float64) (mean, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0
	}

	mean = stat.Mean(values, nil)

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	return mean, Percentile(sorted, 0.10), Percentile(sorted, 0.50), Percentile(sorted, 0.90)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.String("mode", s.Mode),
		slog.String("backend", s.Backend),
		slog.Int("badges", s.Badges),
		slog.Float64("gravity_x", s.GravityX),
		slog.Float64("gravity_y", s.GravityY),
		slog.Float64("kinetic_energy", s.KineticEnergy),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Float64("settled_frac", s.SettledFrac),
		slog.Int("out_of_bounds", s.OutOfBounds),
		slog.Int("escapes", s.Escapes),
		slog.Int("grabs", s.Grabs),
		slog.Int("resizes", s.Resizes),
		slog.Int("resimulations", s.Resimulations),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"mode", s.Mode,
		"backend", s.Backend,
		"badges", s.Badges,
		"gravity_x", s.GravityX,
		"gravity_y", s.GravityY,
		"kinetic_energy", s.KineticEnergy,
		"speed_mean", s.SpeedMean,
		"speed_p10", s.SpeedP10,
		"speed_p50", s.SpeedP50,
		"speed_p90", s.SpeedP90,
		"settled_frac", s.SettledFrac,
		"out_of_bounds", s.OutOfBounds,
		"escapes", s.Escapes,
		"nudges", s.Nudges,
		"grabs", s.Grabs,
		"releases", s.Releases,
		"resizes", s.Resizes,
		"resimulations", s.Resimulations,
		"dropped_orientation", s.DroppedOrientation,
	)
}
