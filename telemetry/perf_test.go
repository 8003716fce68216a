package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.Begin()
		pc.Phase(PhaseSimulation)
		time.Sleep(100 * time.Microsecond)
		pc.Phase(PhaseRender)
		time.Sleep(200 * time.Microsecond)
		pc.End()
	}

	stats := pc.Stats()
	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average duration")
	}
	if _, ok := stats.PhaseAvg[PhaseSimulation]; !ok {
		t.Error("expected simulation phase to be tracked")
	}
	if _, ok := stats.PhaseAvg[PhaseRender]; !ok {
		t.Error("expected render phase to be tracked")
	}
	if stats.MinTickDuration > stats.AvgTickDuration || stats.AvgTickDuration > stats.MaxTickDuration {
		t.Errorf("min/avg/max out of order: %v %v %v", stats.MinTickDuration, stats.AvgTickDuration, stats.MaxTickDuration)
	}
}

func TestPerfCollector_Measure(t *testing.T) {
	pc := NewPerfCollector(4)

	pc.Begin()
	pc.Measure(PhaseTelemetry, func() { time.Sleep(200 * time.Microsecond) })
	pc.End()

	stats := pc.Stats()
	if stats.PhaseAvg[PhaseTelemetry] < 200*time.Microsecond {
		t.Errorf("telemetry phase = %v, want >= 200us", stats.PhaseAvg[PhaseTelemetry])
	}
	if len(stats.PhaseAvg) != 1 {
		t.Errorf("expected only the measured phase, got %v", stats.PhaseAvg)
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)

	for i := 0; i < 10; i++ {
		pc.Begin()
		pc.Phase(PhaseSimulation)
		time.Sleep(10 * time.Microsecond)
		pc.End()
	}

	stats := pc.Stats()
	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average duration after window filled")
	}
	if stats.TicksPerSecond <= 0 {
		t.Error("expected positive ticks per second")
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.Begin()
		pc.Phase("fast")
		time.Sleep(10 * time.Microsecond)
		pc.Phase("slow")
		time.Sleep(1 * time.Millisecond)
		pc.End()
	}

	stats := pc.Stats()
	if stats.PhasePct["slow"] <= stats.PhasePct["fast"] {
		t.Errorf("expected slow phase (%v%%) > fast phase (%v%%)", stats.PhasePct["slow"], stats.PhasePct["fast"])
	}

	row := stats.ToCSV(600)
	if row.WindowEnd != 600 {
		t.Errorf("WindowEnd = %d, want 600", row.WindowEnd)
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	stats := NewPerfCollector(10).Stats()

	if stats.AvgTickDuration != 0 {
		t.Error("expected zero avg duration for empty collector")
	}
	if stats.PhaseAvg == nil || stats.PhasePct == nil {
		t.Error("expected non-nil phase maps")
	}
}

func TestPerfCollector_FrameTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	pc.RecordFrame()
	time.Sleep(16 * time.Millisecond)
	pc.RecordFrame()

	stats := pc.Stats()
	if stats.FrameDuration < 15*time.Millisecond {
		t.Errorf("expected frame duration >= 15ms, got %v", stats.FrameDuration)
	}
	// Sleep overshoots, so only bound from above loosely
	if stats.FPS <= 0 || stats.FPS > 70 {
		t.Errorf("expected FPS in (0, 70] with 16ms frames, got %v", stats.FPS)
	}
}
