package main

import (
	"io"
	"log/slog"
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/stackfall/config"
	"github.com/pthm-cable/stackfall/physics"
	"github.com/pthm-cable/stackfall/stack"
	"github.com/pthm-cable/stackfall/telemetry"
	"github.com/pthm-cable/stackfall/tilt"
)

// Fitness penalties, in ticks.
const (
	escapePenalty = 120
	nudgePenalty  = 2
	settleWindow  = 0.25 // seconds per settle check
	settledFrac   = 0.95
)

// FitnessEvaluator runs headless worlds and scores how quickly and cleanly
// the stack comes to rest.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int32
	seeds      []int64
	baseConfig *config.Config
	backends   []string

	mu          sync.Mutex
	lastSettle  float64 // mean settle seconds from the most recent Evaluate call
	lastEscapes float64
}

// NewFitnessEvaluator creates a new evaluator. An empty backend scores every
// registered backend, since the tuned constants are shared by all of them.
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, seeds []int64, baseCfg *config.Config, backend string) *FitnessEvaluator {
	backends := physics.Names()
	if backend != "" {
		backends = []string{backend}
	}
	return &FitnessEvaluator{
		params:     params,
		maxTicks:   maxTicks,
		seeds:      seeds,
		baseConfig: baseCfg,
		backends:   backends,
	}
}

// Backends returns the backends each evaluation runs on.
func (fe *FitnessEvaluator) Backends() []string { return fe.backends }

// Last returns the mean settle time and escape count of the most recent
// evaluation.
func (fe *FitnessEvaluator) Last() (settleSec, escapes float64) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastSettle, fe.lastEscapes
}

// runResult holds the results from a single world run.
type runResult struct {
	settleTicks int32 // first tick the stack was at rest and contained, or maxTicks
	escapes     int
	nudges      int
	static      bool
}

// Evaluate computes fitness for a parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	results := make([]runResult, len(fe.seeds)*len(fe.backends))
	var wg sync.WaitGroup
	for b, backend := range fe.backends {
		for i, seed := range fe.seeds {
			wg.Add(1)
			go func(idx int, name string, s int64) {
				defer wg.Done()
				results[idx] = fe.runWorld(cfg, name, s)
			}(b*len(fe.seeds)+i, backend, seed)
		}
	}
	wg.Wait()

	fitness := make([]float64, len(results))
	settle := make([]float64, len(results))
	escapes := make([]float64, len(results))
	for i, r := range results {
		fitness[i] = fe.computeFitness(r)
		settle[i] = float64(r.settleTicks) * cfg.Physics.DT
		escapes[i] = float64(r.escapes)
	}

	fe.mu.Lock()
	fe.lastSettle = stat.Mean(settle, nil)
	fe.lastEscapes = stat.Mean(escapes, nil)
	fe.mu.Unlock()

	return stat.Mean(fitness, nil)
}

// runWorld drops the configured stack once and ticks until it settles or
// maxTicks is reached. Seed 0 keeps upright gravity; other seeds draw a
// random tilt the way the widget does without orientation input.
func (fe *FitnessEvaluator) runWorld(cfg *config.Config, backend string, seed int64) runResult {
	opts := stack.OptionsFromConfig(cfg)
	opts.Backend = backend
	opts.Seed = seed
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	opts.Gravity = gravityOf(cfg, seed)

	bounds := stack.Size{Width: cfg.Derived.ContainerW, Height: cfg.Derived.ContainerH}
	w := stack.Initialize(stack.LabelsFromConfig(cfg), bounds, opts)
	defer w.Teardown()

	if w.Mode() == stack.ModeStatic {
		return runResult{settleTicks: fe.maxTicks, static: true}
	}

	dt := cfg.Physics.DT
	collector := telemetry.NewCollector(settleWindow, dt, cfg.Telemetry.SettledSpeed)
	for tick := int32(1); tick <= fe.maxTicks; tick++ {
		w.Tick(dt)
		if !collector.ShouldFlush(tick) {
			continue
		}
		stats := collector.Flush(tick, w)
		if stats.SettledFrac >= settledFrac && stats.OutOfBounds == 0 {
			return runResult{settleTicks: tick, escapes: w.Escapes(), nudges: w.Nudges()}
		}
	}
	return runResult{settleTicks: fe.maxTicks, escapes: w.Escapes(), nudges: w.Nudges()}
}

// copyConfig creates a copy of the base config. Only scalar sections are
// modified, so the label slice is shared.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: settleTicks + 120×escapes + 2×nudges, doubled for a static world.
func (fe *FitnessEvaluator) computeFitness(r runResult) float64 {
	f := float64(r.settleTicks) + escapePenalty*float64(r.escapes) + nudgePenalty*float64(r.nudges)
	if r.static {
		f *= 2
	}
	if math.IsNaN(f) {
		return math.Inf(1)
	}
	return f
}

// gravityOf is the gravity a seed runs under.
func gravityOf(cfg *config.Config, seed int64) r2.Vec {
	if seed == 0 {
		return r2.Vec{X: cfg.Physics.GravityX, Y: cfg.Physics.GravityY}
	}
	return tilt.RandomGravity(rand.New(rand.NewSource(seed)), cfg.Tilt.RandomRange)
}
