// Package stack implements the badge layout engine: a rigid-body world holding
// one box per technology label, enclosed by four static walls.
package stack

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/stackfall/config"
	"github.com/pthm-cable/stackfall/physics"
)

var (
	// ErrUnknownBadge is returned for IDs not present in the world.
	ErrUnknownBadge = errors.New("stack: unknown badge")
	// ErrNotRunning is returned by pointer operations on a world that is not simulating.
	ErrNotRunning = errors.New("stack: simulation not running")
	// ErrInvalidGravity is returned when a gravity vector has a non-finite component.
	ErrInvalidGravity = errors.New("stack: gravity must be finite")
	// ErrInvalidPointer is returned when a pointer position has a non-finite component.
	ErrInvalidPointer = errors.New("stack: pointer position must be finite")
)

// Mode is the world's lifecycle state.
type Mode uint8

const (
	ModePending Mode = iota // waiting for a non-empty container
	ModeRunning             // simulating
	ModeStatic              // backend unavailable; fixed layout
	ModeClosed              // torn down
)

var modeNames = [...]string{"pending", "running", "static", "closed"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", m)
}

// Containment tolerances in layout pixels.
const (
	enterTolerance  = 1.0 // within this of the interior counts as inside
	escapeTolerance = 6.0 // beyond this a contained badge counts as escaped
	minNudge        = 1.0
)

// Options configures a World.
type Options struct {
	Backend  string
	Params   physics.Params
	Factory  physics.Factory // overrides Backend when set
	Sizing   Sizing
	Gravity  r2.Vec
	MinDelta float64 // smallest size change that rebuilds the walls
	MaxDT    float64 // longest step a single Tick may take

	NudgeRate float64
	MaxNudge  float64

	Seed   int64
	Logger *slog.Logger
}

// OptionsFromConfig builds world options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Backend: cfg.Physics.Backend,
		Params:  physics.ParamsFromConfig(cfg),
		Sizing: Sizing{
			Height:    cfg.Badge.Height,
			CharWidth: cfg.Badge.CharWidth,
			Padding:   cfg.Badge.Padding,
			MinWidth:  cfg.Badge.MinWidth,
		},
		Gravity:   r2.Vec{X: cfg.Physics.GravityX, Y: cfg.Physics.GravityY},
		MinDelta:  cfg.Resize.MinDelta,
		MaxDT:     cfg.Physics.DT * float64(cfg.Physics.MaxStepsPerFrame),
		NudgeRate: cfg.Physics.NudgeRate,
		MaxNudge:  cfg.Physics.MaxNudge,
	}
}

// LabelsFromConfig converts configured stack entries to labels.
func LabelsFromConfig(cfg *config.Config) []Label {
	labels := make([]Label, len(cfg.Stack))
	for i, l := range cfg.Stack {
		labels[i] = Label{Name: l.Name, Category: ParseCategory(l.Category)}
	}
	return labels
}

func (o Options) withDefaults() Options {
	if o.Backend == "" && o.Factory == nil {
		o.Backend = physics.BackendBox2D
	}
	if o.Sizing.Height <= 0 {
		o.Sizing = DefaultSizing
	}
	if !finite(o.Gravity) {
		o.Gravity = r2.Vec{Y: 1}
	}
	if o.MaxDT <= 0 {
		o.MaxDT = 1.0 / 15
	}
	if o.NudgeRate <= 0 || o.NudgeRate > 1 {
		o.NudgeRate = 0.2
	}
	if o.MaxNudge <= 0 {
		o.MaxNudge = 24
	}
	if o.Params.GravityScale == 0 {
		o.Params.GravityScale = 1000
	}
	if o.Params.MaxSpeed <= 0 {
		o.Params.MaxSpeed = 1500
	}
	if o.Params.WallThickness <= 0 {
		o.Params.WallThickness = 100
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// grabState tracks the pointer holding a badge. Pointer positions are
// sampled once per tick to derive the velocity imparted on release.
type grabState struct {
	id      uint32
	pointer r2.Vec
	last    r2.Vec
	prev    r2.Vec
	lastDT  float64
	samples int
}

// World is one simulation instance. It is owned by a single widget and is
// not safe for concurrent use.
type World struct {
	opts   Options
	log    *slog.Logger
	rng    *rand.Rand
	labels []Label

	backend    physics.Backend
	badges     []*Badge
	index      map[uint32]*Badge
	bounds     Size
	boundaries [4]Boundary

	gravity      r2.Vec
	gravityDirty bool
	grab         *grabState

	mode    Mode
	ticks   uint64
	escapes int
	nudges  int
}

// Initialize creates a world with one badge per label inside a container of
// the given size. An empty container leaves the world pending until Resize
// reports a usable size. Backend failures degrade to a static layout.
func Initialize(labels []Label, bounds Size, opts Options) *World {
	opts = opts.withDefaults()
	w := &World{
		opts:    opts,
		log:     opts.Logger,
		rng:     rand.New(rand.NewSource(opts.Seed)),
		labels:  append([]Label(nil), labels...),
		index:   make(map[uint32]*Badge, len(labels)),
		gravity: opts.Gravity,
		mode:    ModePending,
	}

	if bounds.Empty() {
		w.log.Debug("container has no area, deferring simulation start",
			"width", bounds.Width, "height", bounds.Height)
		return w
	}
	w.start(bounds)
	return w
}

// start creates the badges and the backend for a non-empty container.
func (w *World) start(bounds Size) {
	w.bounds = bounds
	w.boundaries = boundariesFor(bounds, w.opts.Params.WallThickness)
	w.createBadges()

	backend, err := w.newBackend()
	if err != nil {
		w.log.Warn("physics backend unavailable, using static layout",
			"backend", w.opts.Backend, "error", err)
		w.mode = ModeStatic
		w.staticLayout()
		return
	}
	w.backend = backend
	w.mode = ModeRunning

	ok := w.safely("start", func() error {
		backend.SetWalls(bounds.Width, bounds.Height)
		backend.SetGravity(w.gravity)
		for _, b := range w.badges {
			def := physics.BodyDef{
				ID:     physics.BodyID(b.id),
				X:      b.pos.X,
				Y:      b.pos.Y,
				Width:  b.width,
				Height: b.height,
				Angle:  b.angle,
			}
			if err := backend.AddBody(def); err != nil {
				return fmt.Errorf("adding badge %q: %w", b.label, err)
			}
			if !b.contained {
				if err := backend.SetContained(physics.BodyID(b.id), false); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if !ok {
		return
	}

	w.log.Info("world initialized",
		"backend", backend.Name(),
		"badges", len(w.badges),
		"width", bounds.Width,
		"height", bounds.Height,
	)
}

func (w *World) newBackend() (b physics.Backend, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend constructor panicked: %v", r)
		}
	}()
	if w.opts.Factory != nil {
		return w.opts.Factory(w.opts.Params)
	}
	return physics.New(w.opts.Backend, w.opts.Params)
}

// createBadges places badges at random positions above or within the top
// half of the container so they fall into view.
func (w *World) createBadges() {
	W, H := w.bounds.Width, w.bounds.Height
	w.badges = w.badges[:0]
	for i, l := range w.labels {
		width, height := w.opts.Sizing.Dimensions(l.Name)

		x := W / 2
		if W > width {
			x = width/2 + w.rng.Float64()*(W-width)
		}
		y := -H + w.rng.Float64()*1.5*H

		b := &Badge{
			id:       uint32(i + 1),
			label:    l.Name,
			category: l.Category,
			width:    width,
			height:   height,
			pos:      r2.Vec{X: x, Y: y},
		}
		// Badges that start above the ceiling pass through it on the way in
		b.contained = y-height/2 >= 0
		b.entered = b.contained
		w.badges = append(w.badges, b)
		w.index[b.id] = b
	}
}

// Tick advances the simulation by dt seconds. It is a no-op unless the world
// is running. Steps longer than MaxDT are shortened.
func (w *World) Tick(dt float64) {
	if w.mode != ModeRunning || !(dt > 0) {
		return
	}
	dt = math.Min(dt, w.opts.MaxDT)

	w.safely("tick", func() error {
		if w.gravityDirty {
			w.backend.SetGravity(w.gravity)
			w.gravityDirty = false
		}
		if g := w.grab; g != nil {
			if err := w.backend.MoveGrab(physics.BodyID(g.id), g.pointer); err != nil {
				return err
			}
			g.prev, g.last = g.last, g.pointer
			g.lastDT = dt
			g.samples++
		}

		w.backend.Step(dt)
		w.sync()
		return w.contain(true)
	})
	w.ticks++
}

// sync copies backend state into the badges.
func (w *World) sync() {
	for _, b := range w.badges {
		st, ok := w.backend.State(physics.BodyID(b.id))
		if !ok {
			continue
		}
		b.pos, b.angle = st.Pos, st.Angle
		b.vel, b.angV = st.Vel, st.AngVel
	}
}

// contain detaches badges that are outside the walls from wall collisions
// and, when nudge is set, moves them toward the nearest interior point. Each
// step covers a bounded fraction of the distance.
func (w *World) contain(nudge bool) error {
	for _, b := range w.badges {
		target := w.interiorPoint(b)
		d := r2.Sub(target, b.pos)
		dist := r2.Norm(d)
		id := physics.BodyID(b.id)

		if dist <= enterTolerance {
			if !b.entered {
				b.entered = true
			}
			if !b.contained {
				if err := w.backend.SetContained(id, true); err != nil {
					return err
				}
				b.contained = true
			}
			continue
		}
		if b.contained && dist <= escapeTolerance {
			// Resting contact penetration; the walls resolve it.
			continue
		}

		dir := r2.Scale(1/dist, d)
		if !b.entered && math.Abs(d.X) < enterTolerance && r2.Dot(b.vel, dir) > 0 {
			// Still falling in from above or below
			continue
		}

		if b.contained {
			if err := w.backend.SetContained(id, false); err != nil {
				return err
			}
			b.contained = false
			if nudge && b.entered {
				w.escapes++
				w.log.Debug("badge escaped boundaries", "badge", b.label, "distance", dist)
			}
		}
		if !nudge {
			continue
		}

		step := math.Min(dist, math.Min(math.Max(dist*w.opts.NudgeRate, minNudge), w.opts.MaxNudge))
		if err := w.backend.Translate(id, r2.Scale(step, dir)); err != nil {
			return err
		}
		if out := r2.Dot(b.vel, dir); out < 0 {
			v := r2.Sub(b.vel, r2.Scale(out, dir))
			if err := w.backend.SetVelocity(id, v); err != nil {
				return err
			}
			b.vel = v
		}
		b.pos = r2.Add(b.pos, r2.Scale(step, dir))
		w.nudges++
	}
	return nil
}

// interiorPoint returns the nearest center position at which the badge's
// rotated bounding box lies inside the container.
func (w *World) interiorPoint(b *Badge) r2.Vec {
	ex, ey := rotatedExtents(b.width/2, b.height/2, b.angle)
	return r2.Vec{
		X: clampRange(b.pos.X, ex, w.bounds.Width-ex),
		Y: clampRange(b.pos.Y, ey, w.bounds.Height-ey),
	}
}

func rotatedExtents(hw, hh, angle float64) (ex, ey float64) {
	s, c := math.Sincos(angle)
	s, c = math.Abs(s), math.Abs(c)
	return hw*c + hh*s, hw*s + hh*c
}

// clampRange clamps v into [lo, hi], collapsing to the midpoint when the
// range is inverted (container narrower than the badge).
func clampRange(v, lo, hi float64) float64 {
	if lo > hi {
		return (lo + hi) / 2
	}
	return math.Max(lo, math.Min(hi, v))
}

// Resize recreates the walls for a new container size. Badges left outside
// are nudged back over the following ticks. A pending world starts once the
// size has area.
func (w *World) Resize(bounds Size) {
	switch w.mode {
	case ModeClosed:
		return
	case ModePending:
		if !bounds.Empty() {
			w.start(bounds)
		}
		return
	}
	if bounds.Empty() {
		w.log.Debug("ignoring resize to empty container")
		return
	}
	if math.Abs(bounds.Width-w.bounds.Width) < w.opts.MinDelta &&
		math.Abs(bounds.Height-w.bounds.Height) < w.opts.MinDelta {
		return
	}

	w.bounds = bounds
	w.boundaries = boundariesFor(bounds, w.opts.Params.WallThickness)

	if w.mode == ModeStatic {
		w.staticLayout()
		return
	}
	w.safely("resize", func() error {
		w.backend.SetWalls(bounds.Width, bounds.Height)
		// Badges left outside must not collide with the new walls
		return w.contain(false)
	})
	w.log.Debug("walls rebuilt", "width", bounds.Width, "height", bounds.Height)
}

// SetGravity overrides the gravity vector from the next tick on.
func (w *World) SetGravity(g r2.Vec) error {
	if !finite(g) {
		return ErrInvalidGravity
	}
	w.gravity = g
	w.gravityDirty = true
	return nil
}

// Grab attaches the pointer to a badge.
func (w *World) Grab(id uint32, p r2.Vec) error {
	b, err := w.pointerTarget(id, p)
	if err != nil {
		return err
	}
	if w.grab != nil && w.grab.id != id {
		if err := w.Release(w.grab.id); err != nil {
			return err
		}
	}
	ok := w.safely("grab", func() error {
		return w.backend.Grab(physics.BodyID(b.id), p)
	})
	if !ok {
		return ErrNotRunning
	}
	w.grab = &grabState{id: id, pointer: p, last: p, prev: p}
	return nil
}

// Drag moves the pointer holding a badge. Dragging a badge that is not
// grabbed grabs it.
func (w *World) Drag(id uint32, p r2.Vec) error {
	if _, err := w.pointerTarget(id, p); err != nil {
		return err
	}
	if w.grab == nil || w.grab.id != id {
		return w.Grab(id, p)
	}
	w.grab.pointer = p
	return nil
}

// Release detaches the pointer and hands the badge back to free simulation
// with the pointer's last implied velocity.
func (w *World) Release(id uint32) error {
	if w.grab == nil || w.grab.id != id {
		if _, ok := w.index[id]; !ok {
			return ErrUnknownBadge
		}
		return nil
	}
	g := w.grab
	w.grab = nil
	if w.mode != ModeRunning {
		return nil
	}

	w.safely("release", func() error {
		bid := physics.BodyID(id)
		if err := w.backend.Release(bid); err != nil {
			return err
		}
		if g.samples < 1 || g.lastDT <= 0 {
			return nil
		}
		// Include pointer movement since the last tick
		prev, last := g.prev, g.last
		if g.pointer != g.last {
			prev, last = g.last, g.pointer
		}
		v := r2.Scale(1/g.lastDT, r2.Sub(last, prev))
		v, _ = physics.ClampVelocity(v, 0, w.opts.Params.MaxSpeed, 0)
		return w.backend.SetVelocity(bid, v)
	})
	return nil
}

func (w *World) pointerTarget(id uint32, p r2.Vec) (*Badge, error) {
	if w.mode != ModeRunning {
		return nil, ErrNotRunning
	}
	if !finite(p) {
		return nil, ErrInvalidPointer
	}
	b, ok := w.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBadge, id)
	}
	return b, nil
}

// Hit returns the topmost badge containing point p.
func (w *World) Hit(p r2.Vec) (uint32, bool) {
	for i := len(w.badges) - 1; i >= 0; i-- {
		b := w.badges[i]
		s, c := math.Sincos(-b.angle)
		dx, dy := p.X-b.pos.X, p.Y-b.pos.Y
		lx := dx*c - dy*s
		ly := dx*s + dy*c
		if math.Abs(lx) <= b.width/2 && math.Abs(ly) <= b.height/2 {
			return b.id, true
		}
	}
	return 0, false
}

// Teardown releases the backend and all badges. Safe to call repeatedly.
func (w *World) Teardown() {
	if w.mode == ModeClosed {
		return
	}
	if w.backend != nil {
		backend := w.backend
		w.backend = nil
		func() {
			defer func() {
				if r := recover(); r != nil {
					w.log.Error("backend close panicked", "panic", r)
				}
			}()
			if err := backend.Close(); err != nil {
				w.log.Warn("closing physics backend", "error", err)
			}
		}()
	}
	w.grab = nil
	w.badges = nil
	w.index = map[uint32]*Badge{}
	w.mode = ModeClosed
	w.log.Debug("world torn down", "ticks", w.ticks)
}

// safely runs fn, degrading to the static layout if it fails or panics.
func (w *World) safely(op string, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			w.degrade(op, fmt.Errorf("panic: %v", r))
			ok = false
		}
	}()
	if err := fn(); err != nil {
		w.degrade(op, err)
		return false
	}
	return true
}

// degrade stops the simulation and freezes badges in the static layout.
func (w *World) degrade(op string, cause error) {
	w.log.Error("physics backend failed, falling back to static layout",
		"op", op, "error", cause)
	if w.backend != nil {
		backend := w.backend
		w.backend = nil
		func() {
			defer func() { _ = recover() }()
			_ = backend.Close()
		}()
	}
	w.grab = nil
	w.mode = ModeStatic
	w.staticLayout()
}

// staticLayout stacks badges in shelves from the floor up, left to right.
func (w *World) staticLayout() {
	const gap = 4.0
	x, y := gap, w.bounds.Height-gap
	rowH := 0.0
	for _, b := range w.badges {
		if x+b.width > w.bounds.Width-gap && x > gap {
			x = gap
			y -= rowH + gap
			rowH = 0
		}
		b.pos = r2.Vec{X: x + b.width/2, Y: y - b.height/2}
		b.angle = 0
		b.vel, b.angV = r2.Vec{}, 0
		x += b.width + gap
		rowH = math.Max(rowH, b.height)
	}
}

// Badges appends the current state of every badge to dst.
func (w *World) Badges(dst []BadgeState) []BadgeState {
	for _, b := range w.badges {
		dst = append(dst, b.state())
	}
	return dst
}

// Badge returns a badge by ID.
func (w *World) Badge(id uint32) (*Badge, bool) {
	b, ok := w.index[id]
	return b, ok
}

// Speeds appends each badge's linear speed in px/s to dst.
func (w *World) Speeds(dst []float64) []float64 {
	for _, b := range w.badges {
		dst = append(dst, r2.Norm(b.vel))
	}
	return dst
}

// OutOfBounds returns how many badges that have entered the container are
// currently outside it.
func (w *World) OutOfBounds() int {
	n := 0
	for _, b := range w.badges {
		if b.entered && !b.contained {
			n++
		}
	}
	return n
}

// Boundaries returns the four walls.
func (w *World) Boundaries() [4]Boundary { return w.boundaries }

// Bounds returns the current container size.
func (w *World) Bounds() Size { return w.bounds }

// Gravity returns the current gravity vector.
func (w *World) Gravity() r2.Vec { return w.gravity }

// Mode returns the lifecycle state.
func (w *World) Mode() Mode { return w.mode }

// Ticks returns the number of ticks run.
func (w *World) Ticks() uint64 { return w.ticks }

// Escapes returns how many times an entered badge left the boundaries.
func (w *World) Escapes() int { return w.escapes }

// Nudges returns how many containment corrections have been applied.
func (w *World) Nudges() int { return w.nudges }

// BackendName returns the active backend, or "static" when degraded.
func (w *World) BackendName() string {
	if w.backend == nil {
		return "static"
	}
	return w.backend.Name()
}

// Grabbed returns the badge held by the pointer.
func (w *World) Grabbed() (uint32, bool) {
	if w.grab == nil {
		return 0, false
	}
	return w.grab.id, true
}

func boundariesFor(s Size, thickness float64) [4]Boundary {
	rects := physics.WallRects(s.Width, s.Height, thickness)
	kinds := [4]BoundaryKind{Ground, LeftWall, RightWall, Ceiling}
	var out [4]Boundary
	for i, r := range rects {
		out[i] = Boundary{Kind: kinds[i], X: r.Center.X, Y: r.Center.Y, Width: r.Width, Height: r.Height}
	}
	return out
}

func finite(v r2.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}
