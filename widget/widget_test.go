package widget

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/stackfall/config"
	"github.com/pthm-cable/stackfall/stack"
	"github.com/pthm-cable/stackfall/tilt"
)

const frame = time.Second / 60

func testOptions(t *testing.T) Options {
	t.Helper()
	opts, err := OptionsFromConfig(config.Default())
	if err != nil {
		t.Fatalf("OptionsFromConfig: %v", err)
	}
	opts.World.Backend = "ark"
	opts.Step = frame
	opts.TiltEnabled = true
	opts.ResimulateInterval = 2 * time.Second
	opts.ResizeDebounce = 100 * time.Millisecond
	opts.ResizeMaxWait = 400 * time.Millisecond
	opts.Seed = 11
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return opts
}

func frames(w *Widget, n int) {
	for i := 0; i < n; i++ {
		w.Frame(frame)
	}
}

func gravity(w *Widget) r2.Vec {
	var g r2.Vec
	w.Inspect(func(world *stack.World) { g = world.Gravity() })
	return g
}

func position(w *Widget, id uint32) r2.Vec {
	var p r2.Vec
	w.Inspect(func(world *stack.World) {
		for _, s := range world.Badges(nil) {
			if s.ID == id {
				p = r2.Vec{X: s.X, Y: s.Y}
			}
		}
	})
	return p
}

func TestMountWithoutOrientationResimulates(t *testing.T) {
	events := tilt.NewDispatcher()
	src := tilt.NewWindowSource(events, tilt.PermissionDenied)
	w := Mount(FixedHost{Width: 400, Height: 300}, src, testOptions(t))
	defer w.Unmount()

	if events.ListenerCount() != 0 {
		t.Errorf("subscribed without permission")
	}
	if n := len(w.Drawables(nil)); n != 14 {
		t.Fatalf("got %d drawables, want 14", n)
	}

	frames(w, 60*5)
	c := w.Counters()
	if c.Resimulations != 2 {
		t.Errorf("Resimulations = %d after 5s at 2s interval, want 2", c.Resimulations)
	}
	g := gravity(w)
	if math.Abs(g.X) > 0.5 || math.Abs(g.Y) > 0.5 {
		t.Errorf("resimulated gravity %v outside [-0.5, 0.5]", g)
	}
	if n := len(w.Drawables(nil)); n != 14 {
		t.Errorf("got %d drawables after resimulation, want 14", n)
	}
}

func TestOrientationDrivesGravity(t *testing.T) {
	events := tilt.NewDispatcher()
	src := tilt.NewWindowSource(events, tilt.PermissionGranted)
	w := Mount(FixedHost{Width: 400, Height: 300}, src, testOptions(t))

	if events.ListenerCount() != 1 {
		t.Fatalf("ListenerCount = %d, want 1", events.ListenerCount())
	}

	events.Dispatch(tilt.Input{TiltLR: 90, TiltFB: 0, HasOrientation: true})
	g := gravity(w)
	if math.Abs(g.X-1) > 1e-9 || math.Abs(g.Y) > 1e-9 {
		t.Errorf("gravity = %v, want (1, 0)", g)
	}

	events.Dispatch(tilt.Input{TiltLR: math.NaN(), TiltFB: 10, HasOrientation: true})
	if got := gravity(w); got != g {
		t.Errorf("malformed sample changed gravity to %v", got)
	}
	c := w.Counters()
	if c.OrientationSamples != 2 || c.DroppedSamples != 1 {
		t.Errorf("counters = %+v, want 2 samples, 1 dropped", c)
	}

	frames(w, 60*5)
	if w.Counters().Resimulations != 0 {
		t.Error("resimulated while orientation is available")
	}

	w.Unmount()
	w.Unmount()
	if n := events.ListenerCount(); n != 0 {
		t.Errorf("ListenerCount after unmount = %d, want 0", n)
	}
}

func TestRepeatedMountsDoNotLeakListeners(t *testing.T) {
	events := tilt.NewDispatcher()
	src := tilt.NewWindowSource(events, tilt.PermissionGranted)
	for i := 0; i < 5; i++ {
		w := Mount(FixedHost{Width: 400, Height: 300}, src, testOptions(t))
		frames(w, 3)
		w.Unmount()
	}
	if n := events.ListenerCount(); n != 0 {
		t.Errorf("ListenerCount = %d after repeated mounts, want 0", n)
	}
}

func TestResizeDebounced(t *testing.T) {
	w := Mount(FixedHost{Width: 400, Height: 300}, nil, testOptions(t))
	defer w.Unmount()

	// A burst of sizes within the debounce window collapses to the last
	for i := 1; i <= 4; i++ {
		w.Resize(stack.Size{Width: 400 + float64(i)*50, Height: 300})
		w.Frame(frame)
	}
	if got := w.Counters().Resizes; got != 0 {
		t.Fatalf("Resizes = %d during burst, want 0", got)
	}

	frames(w, 10)
	if got := w.Counters().Resizes; got != 1 {
		t.Errorf("Resizes = %d, want 1", got)
	}
	var bounds stack.Size
	w.Inspect(func(world *stack.World) { bounds = world.Bounds() })
	if bounds.Width != 600 {
		t.Errorf("width = %v, want 600", bounds.Width)
	}
}

func TestResizeMaxWait(t *testing.T) {
	w := Mount(FixedHost{Width: 400, Height: 300}, nil, testOptions(t))
	defer w.Unmount()

	// Continuous resizing still applies once MaxWait has passed
	for i := 0; i < 30; i++ {
		w.Resize(stack.Size{Width: 400 + float64(i), Height: 300})
		w.Frame(frame)
	}
	if got := w.Counters().Resizes; got == 0 {
		t.Error("no resize applied during a continuous resize")
	}
}

func TestZeroAreaHostStartsOnResize(t *testing.T) {
	w := Mount(FixedHost{}, nil, testOptions(t))
	defer w.Unmount()

	if n := len(w.Drawables(nil)); n != 0 {
		t.Fatalf("got %d drawables for an empty host", n)
	}
	w.Resize(stack.Size{Width: 300, Height: 200})
	frames(w, 10)

	var mode stack.Mode
	w.Inspect(func(world *stack.World) { mode = world.Mode() })
	if mode != stack.ModeRunning {
		t.Errorf("mode = %v, want running", mode)
	}
	if n := len(w.Drawables(nil)); n != 14 {
		t.Errorf("got %d drawables, want 14", n)
	}
}

func TestPointerDrag(t *testing.T) {
	w := Mount(FixedHost{Width: 400, Height: 300}, nil, testOptions(t))
	defer w.Unmount()
	frames(w, 120)

	d := w.Drawables(nil)[0]
	if !w.PointerDown(r2.Vec{X: d.X, Y: d.Y}) {
		t.Fatal("PointerDown on a badge center grabbed nothing")
	}
	id, ok := w.Grabbed()
	if !ok {
		t.Fatal("nothing grabbed")
	}
	start := position(w, id)

	target := r2.Vec{X: 200, Y: 60}
	for i := 0; i < 20; i++ {
		w.PointerMove(target)
		w.Frame(frame)
	}
	w.PointerUp()
	if _, ok := w.Grabbed(); ok {
		t.Error("still grabbed after PointerUp")
	}
	if w.Counters().Grabs != 1 {
		t.Errorf("Grabs = %d, want 1", w.Counters().Grabs)
	}

	end := position(w, id)
	if r2.Norm(r2.Sub(end, target)) >= r2.Norm(r2.Sub(start, target)) {
		t.Errorf("dragged badge moved from %v to %v, not toward %v", start, end, target)
	}

	if w.PointerDown(r2.Vec{X: -500, Y: -500}) {
		t.Error("PointerDown outside every badge grabbed something")
	}
}

func TestResimulationWaitsForRelease(t *testing.T) {
	w := Mount(FixedHost{Width: 400, Height: 300}, nil, testOptions(t))
	defer w.Unmount()
	frames(w, 60)

	d := w.Drawables(nil)[0]
	p := r2.Vec{X: d.X, Y: d.Y}
	if !w.PointerDown(p) {
		t.Fatal("PointerDown on a badge center grabbed nothing")
	}

	// Held well past the 2s interval
	for i := 0; i < 60*4; i++ {
		w.PointerMove(p)
		w.Frame(frame)
	}
	if got := w.Counters().Resimulations; got != 0 {
		t.Fatalf("Resimulations = %d while a badge is held, want 0", got)
	}
	if _, ok := w.Grabbed(); !ok {
		t.Fatal("badge dropped while held")
	}

	w.PointerUp()
	frames(w, 60)
	if got := w.Counters().Resimulations; got != 0 {
		t.Errorf("Resimulations = %d one second after release, want 0", got)
	}
	frames(w, 70)
	if got := w.Counters().Resimulations; got != 1 {
		t.Errorf("Resimulations = %d a full interval after release, want 1", got)
	}
}

func TestUnmountStopsEverything(t *testing.T) {
	w := Mount(FixedHost{Width: 400, Height: 300}, nil, testOptions(t))
	frames(w, 5)
	w.Unmount()
	w.Unmount()

	before := w.Counters()
	frames(w, 600)
	if after := w.Counters(); after != before {
		t.Errorf("frames ran after unmount: %+v -> %+v", before, after)
	}
	if n := len(w.Drawables(nil)); n != 0 {
		t.Errorf("%d drawables after unmount", n)
	}
	if err := w.SetGravity(r2.Vec{Y: 1}); !errors.Is(err, stack.ErrNotRunning) {
		t.Errorf("SetGravity after unmount: err = %v", err)
	}
	var mode stack.Mode
	w.Inspect(func(world *stack.World) { mode = world.Mode() })
	if mode != stack.ModeClosed {
		t.Errorf("mode = %v, want closed", mode)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	w := Mount(FixedHost{Width: 400, Height: 300}, nil, testOptions(t))
	defer w.Unmount()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := Run(ctx, w, 120); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run err = %v, want DeadlineExceeded", err)
	}
	if w.Counters().Frames == 0 {
		t.Error("Run drove no frames")
	}
}

func TestRunReturnsAfterUnmount(t *testing.T) {
	w := Mount(FixedHost{Width: 400, Height: 300}, nil, testOptions(t))
	w.Unmount()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := Run(ctx, w, 120); err != nil {
		t.Errorf("Run err = %v, want nil after unmount", err)
	}
}

func TestFrameStepsAreBounded(t *testing.T) {
	opts := testOptions(t)
	opts.MaxSteps = 3
	w := Mount(FixedHost{Width: 400, Height: 300}, nil, opts)
	defer w.Unmount()

	w.Frame(10 * time.Second)
	if got := w.Counters().Ticks; got != 3 {
		t.Errorf("Ticks = %d after a long frame, want 3", got)
	}
	// Backlog is dropped, not carried into later frames
	w.Frame(frame)
	if got := w.Counters().Ticks; got != 4 {
		t.Errorf("Ticks = %d, want 4", got)
	}
}
