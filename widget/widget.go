// Package widget hosts one badge world: it owns the world's lifecycle,
// serializes host callbacks, drives fixed-step ticks from frame time and
// wires orientation input to gravity.
package widget

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/stackfall/config"
	"github.com/pthm-cable/stackfall/projector"
	"github.com/pthm-cable/stackfall/stack"
	"github.com/pthm-cable/stackfall/tilt"
)

// Host is the container the widget is mounted in.
type Host interface {
	// Size returns the container's current layout size.
	Size() stack.Size
}

// FixedHost is a Host with a constant size.
type FixedHost stack.Size

// Size implements Host.
func (h FixedHost) Size() stack.Size { return stack.Size(h) }

// Options configures a Widget.
type Options struct {
	Labels  []stack.Label
	World   stack.Options
	Palette projector.Palette

	Step     time.Duration // fixed tick length
	MaxSteps int           // ticks per frame before backlog is dropped

	TiltEnabled        bool
	ResimulateInterval time.Duration
	RandomRange        float64

	ResizeDebounce time.Duration
	ResizeMaxWait  time.Duration

	Seed   int64
	Logger *slog.Logger
}

// OptionsFromConfig builds widget options from the loaded configuration.
// A palette error is returned alongside usable options with default colors
// for the bad entries.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	pal, err := projector.PaletteFromConfig(cfg)
	return Options{
		Labels:             stack.LabelsFromConfig(cfg),
		World:              stack.OptionsFromConfig(cfg),
		Palette:            pal,
		Step:               cfg.Derived.StepDuration,
		MaxSteps:           cfg.Physics.MaxStepsPerFrame,
		TiltEnabled:        cfg.Tilt.Enabled,
		ResimulateInterval: cfg.Derived.ResimulateInterval,
		RandomRange:        cfg.Tilt.RandomRange,
		ResizeDebounce:     cfg.Derived.ResizeDebounce,
		ResizeMaxWait:      cfg.Derived.ResizeMaxWait,
	}, err
}

func (o Options) withDefaults() Options {
	if o.Step <= 0 {
		o.Step = time.Second / 60
	}
	if o.MaxSteps < 1 {
		o.MaxSteps = 4
	}
	if o.ResimulateInterval <= 0 {
		o.ResimulateInterval = 6 * time.Second
	}
	if o.RandomRange <= 0 {
		o.RandomRange = tilt.MaxRandomRange
	}
	if o.ResizeMaxWait < o.ResizeDebounce {
		o.ResizeMaxWait = o.ResizeDebounce
	}
	if o.Palette.Fill == nil {
		o.Palette = projector.DefaultPalette()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	o.World.Logger = o.Logger
	return o
}

// Counters are cumulative widget event counts.
type Counters struct {
	Frames             int
	Ticks              int
	Resizes            int
	Resimulations      int
	Grabs              int
	Releases           int
	OrientationSamples int
	DroppedSamples     int
}

// Widget is one mounted instance. All methods are safe for concurrent use;
// each runs between ticks, never inside one.
type Widget struct {
	mu   sync.Mutex
	opts Options
	log  *slog.Logger
	rng  *rand.Rand

	host   Host
	source tilt.Source

	world       *stack.World
	proj        *projector.Projector
	drawables   []projector.Drawable
	resim       *tilt.Resimulator
	unsubscribe func()

	clock   time.Duration
	acc     time.Duration
	pending *stack.Size
	since   time.Duration // when the pending resize arrived
	last    time.Duration // when the pending resize last changed

	grabbed  uint32
	grabbing bool

	counters Counters
	mounted  bool
}

// Mount measures the host, creates the world and subscribes to orientation.
// Without orientation the random-gravity resimulator is armed instead.
func Mount(host Host, source tilt.Source, opts Options) *Widget {
	opts = opts.withDefaults()
	w := &Widget{
		opts:    opts,
		log:     opts.Logger,
		rng:     rand.New(rand.NewSource(opts.Seed)),
		host:    host,
		source:  source,
		proj:    projector.New(opts.Palette),
		resim:   tilt.NewResimulator(opts.ResimulateInterval),
		mounted: true,
	}

	w.world = w.newWorld(host.Size(), opts.World.Gravity)

	available := opts.TiltEnabled && source != nil && source.Available()
	res, _ := tilt.Resolve(tilt.Input{HasOrientation: available})
	if res.ShouldResimulate {
		w.resim.Arm()
	} else {
		w.unsubscribe = source.Subscribe(w.onOrientation)
	}

	w.drawables = append(w.drawables[:0], w.proj.Project(w.world)...)
	w.log.Info("widget mounted",
		"mode", w.world.Mode().String(),
		"backend", w.world.BackendName(),
		"orientation", available,
	)
	return w
}

func (w *Widget) newWorld(size stack.Size, gravity r2.Vec) *stack.World {
	opts := w.opts.World
	opts.Seed = w.rng.Int63()
	opts.Gravity = gravity
	return stack.Initialize(w.opts.Labels, size, opts)
}

// onOrientation applies a sample to gravity. Malformed samples are dropped.
func (w *Widget) onOrientation(in tilt.Input) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.mounted {
		return
	}
	w.counters.OrientationSamples++

	res, err := tilt.Resolve(in)
	if err != nil {
		w.counters.DroppedSamples++
		w.log.Debug("dropping orientation sample", "error", err)
		return
	}
	if res.ShouldResimulate {
		w.resim.Arm()
		return
	}
	if err := w.world.SetGravity(res.Vec()); err != nil {
		w.counters.DroppedSamples++
	}
}

// Frame is the host's per-frame callback. It applies a settled resize, runs
// a due resimulation, then ticks the world in fixed steps covering dt. The
// resimulator is held while a badge is grabbed.
func (w *Widget) Frame(dt time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.mounted || dt < 0 {
		return
	}
	w.clock += dt
	w.counters.Frames++

	w.applyResize()
	if !w.grabbing && w.resim.Advance(dt) {
		w.resimulate()
	}

	step := w.opts.Step
	w.acc += dt
	steps := 0
	for w.acc >= step && steps < w.opts.MaxSteps {
		w.world.Tick(step.Seconds())
		w.acc -= step
		steps++
	}
	if steps == w.opts.MaxSteps && w.acc >= step {
		// Drop the backlog rather than spiral
		w.acc = 0
	}
	w.counters.Ticks += steps

	w.drawables = append(w.drawables[:0], w.proj.Project(w.world)...)
}

// applyResize hands a pending size to the world once it has been stable for
// the debounce period, or has waited MaxWait.
func (w *Widget) applyResize() {
	if w.pending == nil {
		return
	}
	if w.clock-w.last < w.opts.ResizeDebounce && w.clock-w.since < w.opts.ResizeMaxWait {
		return
	}
	size := *w.pending
	w.pending = nil
	w.world.Resize(size)
	w.counters.Resizes++
	w.log.Debug("resize applied", "width", size.Width, "height", size.Height, "mode", w.world.Mode().String())
}

// resimulate replaces the world with a fresh one under random gravity.
func (w *Widget) resimulate() {
	size := w.world.Bounds()
	if w.world.Mode() == stack.ModePending {
		size = w.host.Size()
	}
	w.world.Teardown()
	w.grabbing = false

	g := tilt.RandomGravity(w.rng, w.opts.RandomRange)
	w.world = w.newWorld(size, g)
	w.counters.Resimulations++
	w.log.Info("resimulated", "gravity_x", g.X, "gravity_y", g.Y, "mode", w.world.Mode().String())
}

// Resimulate restarts the world with random gravity immediately.
func (w *Widget) Resimulate() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.mounted {
		return
	}
	w.resimulate()
	w.drawables = append(w.drawables[:0], w.proj.Project(w.world)...)
}

// Resize records a new container size. It reaches the world on a later
// frame once resizing has settled.
func (w *Widget) Resize(size stack.Size) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.mounted {
		return
	}
	if w.pending == nil {
		w.since = w.clock
	}
	w.last = w.clock
	w.pending = &size
}

// SetGravity overrides gravity until the next orientation sample or
// resimulation.
func (w *Widget) SetGravity(g r2.Vec) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.mounted {
		return stack.ErrNotRunning
	}
	return w.world.SetGravity(g)
}

// PointerDown grabs the topmost badge under p. It reports whether a badge
// was grabbed.
func (w *Widget) PointerDown(p r2.Vec) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.mounted {
		return false
	}
	id, ok := w.world.Hit(p)
	if !ok {
		return false
	}
	if err := w.world.Grab(id, p); err != nil {
		w.log.Debug("grab rejected", "badge", id, "error", err)
		return false
	}
	w.grabbed, w.grabbing = id, true
	w.counters.Grabs++
	return true
}

// PointerMove drags the grabbed badge, if any.
func (w *Widget) PointerMove(p r2.Vec) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.mounted || !w.grabbing {
		return
	}
	if err := w.world.Drag(w.grabbed, p); err != nil {
		w.log.Debug("drag rejected", "badge", w.grabbed, "error", err)
		w.grabbing = false
	}
}

// PointerUp releases the grabbed badge, if any, and restarts the
// resimulation interval.
func (w *Widget) PointerUp() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.mounted || !w.grabbing {
		return
	}
	w.grabbing = false
	w.counters.Releases++
	if err := w.world.Release(w.grabbed); err != nil {
		w.log.Debug("release rejected", "badge", w.grabbed, "error", err)
	}
	// A full interval of free motion before the next restart
	if w.resim.Armed() {
		w.resim.Arm()
	}
}

// Drawables appends the latest projection to dst.
func (w *Widget) Drawables(dst []projector.Drawable) []projector.Drawable {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append(dst, w.drawables...)
}

// Inspect calls fn with the world while holding the widget lock. fn must
// not retain the world or call back into the widget.
func (w *Widget) Inspect(fn func(*stack.World)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(w.world)
}

// Counters returns cumulative event counts.
func (w *Widget) Counters() Counters {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.counters
}

// Grabbed returns the badge held by the pointer.
func (w *Widget) Grabbed() (uint32, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.grabbed, w.grabbing
}

// Mounted reports whether Unmount has not yet been called.
func (w *Widget) Mounted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mounted
}

// Unmount stops the resimulator, unsubscribes from orientation and tears
// the world down. Safe to call more than once.
func (w *Widget) Unmount() {
	w.mu.Lock()
	if !w.mounted {
		w.mu.Unlock()
		return
	}
	w.mounted = false
	w.resim.Disarm()
	unsubscribe := w.unsubscribe
	w.unsubscribe = nil
	w.world.Teardown()
	w.pending = nil
	w.grabbing = false
	w.drawables = w.drawables[:0]
	frames := w.counters.Frames
	w.mu.Unlock()

	// Outside the lock: a dispatch in flight may be waiting on it
	if unsubscribe != nil {
		unsubscribe()
	}
	w.log.Info("widget unmounted", "frames", frames)
}

// Run drives Frame from a ticker at fps until ctx is done or the widget is
// unmounted. It returns ctx.Err() on cancellation and nil after unmount.
func Run(ctx context.Context, w *Widget, fps int) error {
	if fps <= 0 {
		fps = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if !w.Mounted() {
				return nil
			}
			w.Frame(now.Sub(last))
			last = now
		}
	}
}
