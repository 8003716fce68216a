package physics

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/stackfall/config"
)

const (
	testWidth  = 400.0
	testHeight = 300.0
	testDT     = 1.0 / 60
)

// eachBackend runs fn against a fresh world for every registered backend.
func eachBackend(t *testing.T, fn func(t *testing.T, b Backend)) {
	t.Helper()
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			b, err := New(name, ParamsFromConfig(config.Default()))
			if err != nil {
				t.Fatalf("New(%q): %v", name, err)
			}
			defer b.Close()
			if b.Name() != name {
				t.Errorf("Name() = %q, want %q", b.Name(), name)
			}
			fn(t, b)
		})
	}
}

func step(b Backend, n int) {
	for i := 0; i < n; i++ {
		b.Step(testDT)
	}
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New("chipmunk", Params{})
	if !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("err = %v, want ErrUnknownBackend", err)
	}
}

func TestBodyErrors(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		if err := b.AddBody(BodyDef{ID: 1, X: 50, Y: 50, Width: 40, Height: 20}); err != nil {
			t.Fatalf("AddBody: %v", err)
		}
		if err := b.AddBody(BodyDef{ID: 1, X: 90, Y: 50, Width: 40, Height: 20}); !errors.Is(err, ErrDuplicateBody) {
			t.Errorf("duplicate AddBody err = %v", err)
		}
		if err := b.Translate(7, r2.Vec{X: 1}); !errors.Is(err, ErrUnknownBody) {
			t.Errorf("Translate unknown err = %v", err)
		}
		if _, ok := b.State(7); ok {
			t.Error("State of unknown body reported ok")
		}

		if err := b.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if err := b.Close(); err != nil {
			t.Errorf("second Close: %v", err)
		}
		if err := b.AddBody(BodyDef{ID: 2, Width: 10, Height: 10}); !errors.Is(err, ErrClosed) {
			t.Errorf("AddBody after Close err = %v", err)
		}
		if err := b.Grab(1, r2.Vec{}); !errors.Is(err, ErrClosed) {
			t.Errorf("Grab after Close err = %v", err)
		}
		// No-ops once closed
		b.Step(testDT)
		b.SetWalls(10, 10)
		b.SetGravity(r2.Vec{Y: 1})
	})
}

func TestBodyRestsOnGround(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		b.SetWalls(testWidth, testHeight)
		b.SetGravity(r2.Vec{Y: 1})
		if err := b.AddBody(BodyDef{ID: 1, X: 200, Y: 100, Width: 60, Height: 20}); err != nil {
			t.Fatal(err)
		}

		step(b, 240)

		s, ok := b.State(1)
		if !ok {
			t.Fatal("body missing")
		}
		want := testHeight - 10
		if math.Abs(s.Pos.Y-want) > 4 {
			t.Errorf("rest y = %.2f, want about %.2f", s.Pos.Y, want)
		}
		if r2.Norm(s.Vel) > 5 {
			t.Errorf("resting speed = %.2f", r2.Norm(s.Vel))
		}
	})
}

func TestUncontainedBodyPassesWalls(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		b.SetWalls(testWidth, testHeight)
		b.SetGravity(r2.Vec{Y: 1})
		if err := b.AddBody(BodyDef{ID: 1, X: 200, Y: 250, Width: 60, Height: 20}); err != nil {
			t.Fatal(err)
		}
		if err := b.SetContained(1, false); err != nil {
			t.Fatal(err)
		}

		step(b, 60)

		s, _ := b.State(1)
		if s.Pos.Y < testHeight+50 {
			t.Errorf("y = %.2f, want below the ground", s.Pos.Y)
		}
	})
}

func TestUncontainedBodiesStillCollide(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		b.SetWalls(testWidth, testHeight)
		for _, d := range []BodyDef{
			{ID: 1, X: 100, Y: 150, Width: 40, Height: 20},
			{ID: 2, X: 200, Y: 150, Width: 40, Height: 20},
		} {
			if err := b.AddBody(d); err != nil {
				t.Fatal(err)
			}
			if err := b.SetContained(d.ID, false); err != nil {
				t.Fatal(err)
			}
		}
		if err := b.SetVelocity(1, r2.Vec{X: 300}); err != nil {
			t.Fatal(err)
		}

		step(b, 60)

		s1, _ := b.State(1)
		s2, _ := b.State(2)
		if s1.Pos.X >= s2.Pos.X {
			t.Errorf("body 1 at x=%.1f passed through body 2 at x=%.1f", s1.Pos.X, s2.Pos.X)
		}
	})
}

func TestContainToggleRestoresWalls(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		b.SetWalls(testWidth, testHeight)
		b.SetGravity(r2.Vec{Y: 1})
		if err := b.AddBody(BodyDef{ID: 1, X: 200, Y: 100, Width: 60, Height: 20}); err != nil {
			t.Fatal(err)
		}
		if err := b.SetContained(1, false); err != nil {
			t.Fatal(err)
		}
		if err := b.SetContained(1, true); err != nil {
			t.Fatal(err)
		}

		step(b, 180)

		s, _ := b.State(1)
		if s.Pos.Y > testHeight {
			t.Errorf("y = %.2f, want resting on the ground", s.Pos.Y)
		}
	})
}

func TestGrabOffCenterPullsGrabbedPoint(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		b.SetWalls(testWidth, testHeight)
		if err := b.AddBody(BodyDef{ID: 1, X: 200, Y: 150, Width: 80, Height: 20}); err != nil {
			t.Fatal(err)
		}
		// Pointer above the right end; the body must rise toward it
		target := r2.Vec{X: 230, Y: 60}
		if err := b.Grab(1, target); err != nil {
			t.Fatal(err)
		}
		step(b, 120)

		s, _ := b.State(1)
		if s.Pos.Y > 120 {
			t.Errorf("y = %.2f, want pulled up toward %v", s.Pos.Y, target)
		}
	})
}

func TestTranslateKeepsAngle(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		if err := b.AddBody(BodyDef{ID: 3, X: 100, Y: 80, Width: 40, Height: 20, Angle: 0.3}); err != nil {
			t.Fatal(err)
		}
		if err := b.Translate(3, r2.Vec{X: 25, Y: -10}); err != nil {
			t.Fatal(err)
		}
		s, _ := b.State(3)
		if math.Abs(s.Pos.X-125) > 1e-6 || math.Abs(s.Pos.Y-70) > 1e-6 {
			t.Errorf("pos = %v, want (125, 70)", s.Pos)
		}
		if math.Abs(s.Angle-0.3) > 1e-6 {
			t.Errorf("angle = %v, want 0.3", s.Angle)
		}
	})
}

func TestGrabPullsTowardTarget(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		b.SetWalls(testWidth, testHeight)
		if err := b.AddBody(BodyDef{ID: 1, X: 100, Y: 150, Width: 40, Height: 20}); err != nil {
			t.Fatal(err)
		}
		target := r2.Vec{X: 300, Y: 150}
		if err := b.Grab(1, target); err != nil {
			t.Fatal(err)
		}
		step(b, 30)
		if err := b.MoveGrab(1, target); err != nil {
			t.Fatal(err)
		}
		step(b, 90)

		s, _ := b.State(1)
		if d := r2.Norm(r2.Sub(s.Pos, target)); d > 100 {
			t.Errorf("distance to target = %.2f after grab", d)
		}

		if err := b.Release(1); err != nil {
			t.Fatal(err)
		}
		if err := b.Release(1); err != nil {
			t.Errorf("second Release: %v", err)
		}
	})
}

func TestWallRectsInnerFaces(t *testing.T) {
	rects := WallRects(testWidth, testHeight, 50)
	ground, left, right, ceiling := rects[0], rects[1], rects[2], rects[3]

	if top := ground.Center.Y - ground.Height/2; top != testHeight {
		t.Errorf("ground inner face = %v, want %v", top, testHeight)
	}
	if face := left.Center.X + left.Width/2; face != 0 {
		t.Errorf("left inner face = %v, want 0", face)
	}
	if face := right.Center.X - right.Width/2; face != testWidth {
		t.Errorf("right inner face = %v, want %v", face, testWidth)
	}
	if face := ceiling.Center.Y + ceiling.Height/2; face != 0 {
		t.Errorf("ceiling inner face = %v, want 0", face)
	}
}

func TestClampVelocity(t *testing.T) {
	tests := []struct {
		name      string
		v         r2.Vec
		w         float64
		wantSpeed float64
		wantW     float64
	}{
		{"under limits", r2.Vec{X: 3, Y: 4}, 1, 5, 1},
		{"linear clamped", r2.Vec{X: 300, Y: 400}, 0, 100, 0},
		{"angular clamped", r2.Vec{}, -50, 0, -10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, w := ClampVelocity(tt.v, tt.w, 100, 10)
			if math.Abs(r2.Norm(v)-tt.wantSpeed) > 1e-9 {
				t.Errorf("speed = %v, want %v", r2.Norm(v), tt.wantSpeed)
			}
			if w != tt.wantW {
				t.Errorf("w = %v, want %v", w, tt.wantW)
			}
		})
	}
}

func TestParamsSanitized(t *testing.T) {
	p := Params{Restitution: 3, Friction: -1}.sanitized()
	if p.Restitution != 1 || p.Friction != 0 {
		t.Errorf("coefficients = %v, %v", p.Restitution, p.Friction)
	}
	if p.PixelsPerMeter <= 0 || p.VelocityIterations < 1 || p.MaxSpeed <= 0 {
		t.Errorf("defaults not filled: %+v", p)
	}
}
