package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/stackfall/config"
	"github.com/pthm-cable/stackfall/physics"
)

func TestParamVectorRoundTrip(t *testing.T) {
	pv := NewParamVector()
	raw := pv.DefaultVector()
	back := pv.Denormalize(pv.Normalize(raw))
	for i := range raw {
		if math.Abs(back[i]-raw[i]) > 1e-9 {
			t.Errorf("%s: %v -> %v", pv.Specs[i].Name, raw[i], back[i])
		}
	}
}

func TestApplyClampsToBounds(t *testing.T) {
	pv := NewParamVector()
	cfg := config.Default()
	pv.ApplyToConfig(cfg, []float64{2, -1, 0.05, 10000, 0.5})

	got := pv.ExtractFromConfig(cfg)
	want := []float64{0.9, 0, 0.05, 3000, 0.5}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s = %v, want %v", pv.Specs[i].Path, got[i], want[i])
		}
	}
}

func TestDefaultsMatchConfig(t *testing.T) {
	pv := NewParamVector()
	got := pv.ExtractFromConfig(config.Default())
	for i, spec := range pv.Specs {
		if got[i] != spec.Default {
			t.Errorf("%s: config %v, spec default %v", spec.Path, got[i], spec.Default)
		}
	}
}

func TestComputeFitness(t *testing.T) {
	fe := &FitnessEvaluator{maxTicks: 600}
	tests := []struct {
		name string
		r    runResult
		want float64
	}{
		{"clean", runResult{settleTicks: 240}, 240},
		{"escape", runResult{settleTicks: 240, escapes: 1}, 360},
		{"nudges", runResult{settleTicks: 240, nudges: 5}, 250},
		{"static", runResult{settleTicks: 600, static: true}, 1200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fe.computeFitness(tt.r); got != tt.want {
				t.Errorf("fitness = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateSettles(t *testing.T) {
	pv := NewParamVector()
	cfg := config.Default()
	fe := NewFitnessEvaluator(pv, 1200, []int64{0, 101}, cfg, "ark")

	fitness := fe.Evaluate(pv.DefaultVector())
	if math.IsNaN(fitness) || math.IsInf(fitness, 0) || fitness <= 0 {
		t.Fatalf("fitness = %v", fitness)
	}
	settle, _ := fe.Last()
	if settle <= 0 || settle > 1200*cfg.Physics.DT+1e-9 {
		t.Errorf("settle = %vs, want within the run", settle)
	}
	// The base config is left untouched
	if cfg.Physics.Restitution != 0.5 {
		t.Errorf("base restitution changed to %v", cfg.Physics.Restitution)
	}
}

func TestEvaluatorBackends(t *testing.T) {
	pv := NewParamVector()
	cfg := config.Default()

	all := NewFitnessEvaluator(pv, 60, []int64{0}, cfg, "").Backends()
	if len(all) != len(physics.Names()) {
		t.Errorf("default backends = %v, want %v", all, physics.Names())
	}
	one := NewFitnessEvaluator(pv, 60, []int64{0}, cfg, physics.BackendBox2D).Backends()
	if len(one) != 1 || one[0] != physics.BackendBox2D {
		t.Errorf("backends = %v, want [box2d]", one)
	}
}

func TestEvaluateSettlesOnBox2D(t *testing.T) {
	pv := NewParamVector()
	cfg := config.Default()
	fe := NewFitnessEvaluator(pv, 1200, []int64{0}, cfg, physics.BackendBox2D)

	fe.Evaluate(pv.DefaultVector())
	settle, escapes := fe.Last()
	// Defaults must settle without relying on the tick cap
	if settle >= 1200*cfg.Physics.DT {
		t.Errorf("settle = %vs, want before the tick cap", settle)
	}
	if escapes > 1 {
		t.Errorf("mean escapes = %v with default constants", escapes)
	}
}
