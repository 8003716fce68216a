// Package app runs the badge widget as a desktop window or headless, with
// keyboard tilt emulation and telemetry output.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pthm-cable/stackfall/camera"
	"github.com/pthm-cable/stackfall/config"
	"github.com/pthm-cable/stackfall/projector"
	"github.com/pthm-cable/stackfall/renderer"
	"github.com/pthm-cable/stackfall/stack"
	"github.com/pthm-cable/stackfall/telemetry"
	"github.com/pthm-cable/stackfall/tilt"
	"github.com/pthm-cable/stackfall/ui"
	"github.com/pthm-cable/stackfall/widget"
)

// Options configures an App.
type Options struct {
	Seed           int64
	Backend        string // overrides physics.backend when set
	LogStats       bool
	StatsWindowSec float64
	SnapshotDir    string
	OutputDir      string
	Headless       bool
	Logger         *slog.Logger
}

// host is the layout container. In a window it follows the screen unless
// the config pins the container size.
type host struct {
	size stack.Size
}

func (h *host) Size() stack.Size { return h.size }

// App holds the widget, its orientation source and the telemetry pipeline.
type App struct {
	cfg  *config.Config
	opts Options
	log  *slog.Logger

	host     *host
	events   *tilt.Dispatcher
	source   *tilt.WindowSource
	emulator *tilt.Emulator

	widget     *widget.Widget
	widgetOpts widget.Options
	mounts     int

	// Telemetry
	collector    *telemetry.Collector
	perf         *telemetry.PerfCollector
	bookmarks    *telemetry.BookmarkDetector
	output       *telemetry.OutputManager
	lastCounters widget.Counters
	tickBase     int // ticks from previous mounts
	degraded     bool

	// Graphics (nil when headless)
	camera    *camera.Camera
	badges    *renderer.BadgeRenderer
	container *renderer.ContainerRenderer
	hud       *ui.HUD
	controls  *ui.ControlsPanel
	overlays  *ui.OverlayRegistry
	inspector *ui.Inspector
	perfPanel *ui.PerfPanel

	drawables []projector.Drawable
	states    []stack.BadgeState
	speeds    []float64
	frames    int
	paused    bool
	dragging  bool

	screenW, screenH float32
	fillScreen       bool
}

// New creates an app from the loaded configuration. A bad palette entry is
// logged and replaced with the default color.
func New(cfg *config.Config, opts Options) (*App, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.StatsWindowSec <= 0 {
		opts.StatsWindowSec = cfg.Telemetry.StatsWindow
	}

	wopts, err := widget.OptionsFromConfig(cfg)
	if err != nil {
		opts.Logger.Warn("palette", "error", err)
	}
	if opts.Backend != "" {
		wopts.World.Backend = opts.Backend
	}
	wopts.Seed = opts.Seed
	wopts.Logger = opts.Logger

	a := &App{
		cfg:        cfg,
		opts:       opts,
		log:        opts.Logger,
		host:       &host{size: stack.Size{Width: cfg.Derived.ContainerW, Height: cfg.Derived.ContainerH}},
		widgetOpts: wopts,
		collector:  telemetry.NewCollector(opts.StatsWindowSec, cfg.Physics.DT, cfg.Telemetry.SettledSpeed),
		perf:       telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		bookmarks:  telemetry.NewBookmarkDetector(10),
		fillScreen: cfg.Container.Width == 0 && cfg.Container.Height == 0,
	}

	// Headless hosts have no orientation API; the widget falls back to
	// random gravity. Windows get keyboard tilt.
	if opts.Headless {
		a.source = tilt.NewWindowSource(nil, tilt.PermissionUnsupported)
	} else {
		a.events = tilt.NewDispatcher()
		a.source = tilt.NewWindowSource(a.events, tilt.PermissionUnknown)
		a.emulator = tilt.NewEmulator(a.events)
		a.source.Request(func() tilt.Permission {
			if cfg.Tilt.Enabled {
				return tilt.PermissionGranted
			}
			return tilt.PermissionDenied
		})
	}

	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	a.output = output
	if err := a.output.WriteConfig(cfg); err != nil {
		a.log.Error("failed to write config", "error", err)
	}

	a.mount()

	if !opts.Headless {
		a.initGraphics()
	}
	return a, nil
}

// mount creates a fresh widget, carrying tick counts across remounts.
func (a *App) mount() {
	if a.widget != nil {
		a.observe()
		a.tickBase += a.widget.Counters().Ticks
		a.widget.Unmount()
		a.collector.ResetWorld()
	}
	a.lastCounters = widget.Counters{}
	a.widgetOpts.Seed = a.opts.Seed + int64(a.mounts)
	a.mounts++
	a.widget = widget.Mount(a.host, a.source, a.widgetOpts)
	a.emulateUpright()
}

// emulateUpright publishes an upright sample so a new widget starts with
// gravity straight down.
func (a *App) emulateUpright() {
	if a.emulator != nil && a.source.Available() {
		a.emulator.Upright()
	}
}

// SetTilt enables or disables orientation input. The widget is remounted
// so it subscribes to, or stops listening to, the source.
func (a *App) SetTilt(enabled bool) {
	if a.events == nil || enabled == a.TiltEnabled() {
		return
	}
	if enabled {
		a.source.SetPermission(tilt.PermissionGranted)
	} else {
		a.source.SetPermission(tilt.PermissionDenied)
	}
	a.widgetOpts.TiltEnabled = enabled
	a.log.Info("tilt", "enabled", enabled)
	a.mount()
}

// TiltEnabled reports whether orientation samples drive gravity.
func (a *App) TiltEnabled() bool {
	return a.source.Available() && a.widgetOpts.TiltEnabled
}

// UpdateHeadless advances one fixed step without graphics.
func (a *App) UpdateHeadless() {
	a.perf.Begin()
	a.perf.Measure(telemetry.PhaseSimulation, func() {
		a.widget.Frame(a.widgetOpts.Step)
	})
	a.perf.Measure(telemetry.PhaseTelemetry, a.observe)
	a.perf.End()
	a.frames++
}

// RunRealtime drives the widget from its own ticker and samples telemetry
// on a second ticker until ctx is done.
func (a *App) RunRealtime(ctx context.Context, fps int) error {
	errc := make(chan error, 1)
	go func() { errc <- widget.Run(ctx, a.widget, fps) }()

	sample := time.NewTicker(100 * time.Millisecond)
	defer sample.Stop()
	for {
		select {
		case err := <-errc:
			a.observe()
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		case <-sample.C:
			a.perf.Begin()
			a.perf.Measure(telemetry.PhaseTelemetry, a.observe)
			a.perf.End()
		}
	}
}

// Ticks returns fixed steps simulated across all mounts.
func (a *App) Ticks() int {
	return a.tickBase + a.widget.Counters().Ticks
}

// Frames returns frames driven by Update or UpdateHeadless.
func (a *App) Frames() int { return a.frames }

// Widget returns the mounted widget.
func (a *App) Widget() *widget.Widget { return a.widget }

// Unload flushes telemetry and releases the widget and output files.
func (a *App) Unload() {
	if !a.widget.Mounted() {
		return
	}
	a.observe()
	a.widget.Unmount()
	if err := a.output.Close(); err != nil {
		a.log.Error("failed to close output", "error", err)
	}
	a.log.Info("app stopped", "frames", a.frames, "ticks", a.Ticks())
}
