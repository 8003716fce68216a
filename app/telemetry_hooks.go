package app

import (
	"log/slog"

	"github.com/pthm-cable/stackfall/stack"
	"github.com/pthm-cable/stackfall/telemetry"
)

// tick returns the current tick on the telemetry clock.
func (a *App) tick() int32 {
	return int32(a.tickBase + a.lastCounters.Ticks)
}

// emit records an event in the current window and in events.csv.
func (a *App) emit(e telemetry.Event) {
	a.collector.Record(e)
	if err := a.output.WriteEvent(e); err != nil {
		slog.Error("failed to write event", "error", err)
	}
	if a.opts.LogStats {
		a.log.Debug("event", "type", e.Name, "tick", e.Tick, "badge", e.BadgeID)
	}
}

// observe turns widget counter changes into events and flushes finished
// stats windows.
func (a *App) observe() {
	c := a.widget.Counters()
	prev := a.lastCounters
	a.lastCounters = c
	tick := a.tick()

	var (
		bounds  stack.Size
		gravity struct{ X, Y float64 }
		mode    stack.Mode
	)
	a.widget.Inspect(func(w *stack.World) {
		bounds = w.Bounds()
		g := w.Gravity()
		gravity.X, gravity.Y = g.X, g.Y
		mode = w.Mode()
	})

	for i := prev.Resimulations; i < c.Resimulations; i++ {
		a.emit(telemetry.NewResimulateEvent(tick, gravity.X, gravity.Y))
	}
	if c.Resizes > prev.Resizes {
		a.emit(telemetry.NewResizeEvent(tick, bounds.Width, bounds.Height))
	}
	for i := prev.DroppedSamples; i < c.DroppedSamples; i++ {
		a.emit(telemetry.NewOrientationDroppedEvent(tick))
	}
	if mode == stack.ModeStatic && !a.degraded {
		a.degraded = true
		a.emit(telemetry.NewDegradedEvent(tick))
	} else if mode == stack.ModeRunning {
		a.degraded = false
	}

	a.flushTelemetry(tick)
}

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (a *App) flushTelemetry(tick int32) {
	if !a.collector.ShouldFlush(tick) {
		return
	}

	var stats telemetry.WindowStats
	a.widget.Inspect(func(w *stack.World) {
		stats = a.collector.Flush(tick, w)
	})
	perfStats := a.perf.Stats()

	if a.opts.LogStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := a.output.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := a.output.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		slog.Error("failed to write perf", "error", err)
	}

	for _, bm := range a.bookmarks.Check(stats) {
		if a.opts.LogStats {
			bm.LogBookmark()
		}
		if err := a.output.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
		if a.opts.SnapshotDir != "" {
			a.saveSnapshot(&bm)
		}
	}
}

// saveSnapshot creates and saves a snapshot to disk.
func (a *App) saveSnapshot(bookmark *telemetry.Bookmark) {
	var snapshot *telemetry.Snapshot
	a.widget.Inspect(func(w *stack.World) {
		snapshot = telemetry.SnapshotFromWorld(w, a.opts.Seed)
	})
	snapshot.Bookmark = bookmark

	path, err := telemetry.SaveSnapshot(snapshot, a.opts.SnapshotDir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	a.log.Info("snapshot saved", "path", path, "tick", snapshot.Tick)
}

// recordGrab and recordRelease log pointer events, which only the input
// handler sees with coordinates.
func (a *App) recordGrab(id uint32, x, y float64) {
	a.emit(telemetry.NewGrabEvent(a.tick(), id, x, y))
}

func (a *App) recordRelease(id uint32) {
	a.emit(telemetry.NewReleaseEvent(a.tick(), id))
}
