package systems

import (
	"math"
	"testing"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/stackfall/components"
)

func TestCollide(t *testing.T) {
	tests := []struct {
		name       string
		a, b       OBB
		wantHit    bool
		wantNormal r2.Vec
		wantDepth  float64
	}{
		{
			name:       "side by side",
			a:          OBB{Center: r2.Vec{}, HalfW: 20, HalfH: 10},
			b:          OBB{Center: r2.Vec{X: 30}, HalfW: 20, HalfH: 10},
			wantHit:    true,
			wantNormal: r2.Vec{X: 1},
			wantDepth:  10,
		},
		{
			name:       "stacked, normal points from a to b",
			a:          OBB{Center: r2.Vec{Y: 18}, HalfW: 20, HalfH: 10},
			b:          OBB{Center: r2.Vec{}, HalfW: 20, HalfH: 10},
			wantHit:    true,
			wantNormal: r2.Vec{Y: -1},
			wantDepth:  2,
		},
		{
			name:    "separated",
			a:       OBB{Center: r2.Vec{}, HalfW: 20, HalfH: 10},
			b:       OBB{Center: r2.Vec{X: 41}, HalfW: 20, HalfH: 10},
			wantHit: false,
		},
		{
			name:    "touching edges do not collide",
			a:       OBB{Center: r2.Vec{}, HalfW: 20, HalfH: 10},
			b:       OBB{Center: r2.Vec{X: 40}, HalfW: 20, HalfH: 10},
			wantHit: false,
		},
		{
			// A diamond's corner reaches 10*sqrt(2) from its center
			name:    "rotated clear of the corner",
			a:       OBB{Center: r2.Vec{}, HalfW: 10, HalfH: 10},
			b:       OBB{Center: r2.Vec{X: 24.5}, HalfW: 10, HalfH: 10, Angle: math.Pi / 4},
			wantHit: false,
		},
		{
			name:       "rotated corner inside",
			a:          OBB{Center: r2.Vec{}, HalfW: 10, HalfH: 10},
			b:          OBB{Center: r2.Vec{X: 22}, HalfW: 10, HalfH: 10, Angle: math.Pi / 4},
			wantHit:    true,
			wantNormal: r2.Vec{X: 1},
			wantDepth:  10 + 10*math.Sqrt2 - 22,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, hit := Collide(tt.a, tt.b)
			if hit != tt.wantHit {
				t.Fatalf("hit = %v, want %v", hit, tt.wantHit)
			}
			if !hit {
				return
			}
			if math.Abs(c.Normal.X-tt.wantNormal.X) > 1e-9 || math.Abs(c.Normal.Y-tt.wantNormal.Y) > 1e-9 {
				t.Errorf("normal = %v, want %v", c.Normal, tt.wantNormal)
			}
			if math.Abs(c.Depth-tt.wantDepth) > 1e-9 {
				t.Errorf("depth = %v, want %v", c.Depth, tt.wantDepth)
			}
		})
	}
}

func TestContactPointInsideBoth(t *testing.T) {
	a := OBB{Center: r2.Vec{}, HalfW: 10, HalfH: 10}
	b := OBB{Center: r2.Vec{X: 22}, HalfW: 10, HalfH: 10, Angle: math.Pi / 4}
	c, ok := Collide(a, b)
	if !ok {
		t.Fatal("expected contact")
	}
	// Only b's left corner is enclosed
	want := r2.Vec{X: 22 - 10*math.Sqrt2}
	if math.Abs(c.Point.X-want.X) > 1e-6 || math.Abs(c.Point.Y-want.Y) > 1e-6 {
		t.Errorf("point = %v, want %v", c.Point, want)
	}
}

func TestOBBContains(t *testing.T) {
	o := OBB{Center: r2.Vec{X: 5, Y: 5}, HalfW: 4, HalfH: 2, Angle: math.Pi / 2}
	tests := []struct {
		p    r2.Vec
		want bool
	}{
		{r2.Vec{X: 5, Y: 5}, true},
		{r2.Vec{X: 5, Y: 8.9}, true},  // long axis is vertical after rotation
		{r2.Vec{X: 8.9, Y: 5}, false}, // short axis is horizontal
		{r2.Vec{X: 6.9, Y: 5}, true},
	}
	for _, tt := range tests {
		if got := o.Contains(tt.p, 0); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

type testBodies struct {
	world  *ecs.World
	mapper *ecs.Map6[components.Position, components.Velocity, components.Rotation, components.Body, components.Collider, components.Grab]
	pos    *ecs.Map[components.Position]
	vel    *ecs.Map[components.Velocity]
}

func newTestBodies() *testBodies {
	w := ecs.NewWorld()
	return &testBodies{
		world:  w,
		mapper: ecs.NewMap6[components.Position, components.Velocity, components.Rotation, components.Body, components.Collider, components.Grab](w),
		pos:    ecs.NewMap[components.Position](w),
		vel:    ecs.NewMap[components.Velocity](w),
	}
}

func (tb *testBodies) add(x, y, vx, vy float64, body components.Body, contained bool) ecs.Entity {
	pos := components.Position{X: x, Y: y}
	vel := components.Velocity{X: vx, Y: vy}
	rot := components.Rotation{}
	col := components.Collider{Contained: contained}
	grab := components.Grab{}
	return tb.mapper.NewEntity(&pos, &vel, &rot, &body, &col, &grab)
}

func TestCollisionSystemSeparates(t *testing.T) {
	tb := newTestBodies()
	a := tb.add(0, 0, 50, 0, components.NewDynamicBody(40, 20, 0.001), true)
	b := tb.add(30, 0, -50, 0, components.NewDynamicBody(40, 20, 0.001), true)

	cs := NewCollisionSystem(tb.world)
	if n := cs.Update(); n != 1 {
		t.Fatalf("contacts = %d, want 1", n)
	}

	va, vb := tb.vel.Get(a), tb.vel.Get(b)
	if va.X > vb.X+1e-9 {
		t.Errorf("bodies still approaching: va=%v vb=%v", va.X, vb.X)
	}
	// Equal masses, no restitution: both come to rest along the normal
	if math.Abs(va.X) > 1e-6 || math.Abs(vb.X) > 1e-6 {
		t.Errorf("normal velocities = %v, %v, want 0", va.X, vb.X)
	}
	if gap := tb.pos.Get(b).X - tb.pos.Get(a).X; gap <= 30 {
		t.Errorf("centers %v apart, want pushed past 30", gap)
	}
}

func TestCollisionSystemWallFilter(t *testing.T) {
	tests := []struct {
		name      string
		contained bool
		want      int
	}{
		{"contained badge hits wall", true, 1},
		{"falling-in badge passes through", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb := newTestBodies()
			tb.add(0, 0, 0, 0, components.NewStaticBody(200, 20), false)
			tb.add(0, -12, 0, 40, components.NewDynamicBody(40, 20, 0.001), tt.contained)

			if got := NewCollisionSystem(tb.world).Update(); got != tt.want {
				t.Errorf("contacts = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCollisionSystemStaticPairsIgnored(t *testing.T) {
	tb := newTestBodies()
	tb.add(0, 0, 0, 0, components.NewStaticBody(100, 20), false)
	tb.add(0, 5, 0, 0, components.NewStaticBody(100, 20), false)
	if got := NewCollisionSystem(tb.world).Update(); got != 0 {
		t.Errorf("contacts = %d, want 0", got)
	}
}

func TestIntegrationSystem(t *testing.T) {
	tb := newTestBodies()
	e := tb.add(0, 0, 0, 0, components.NewDynamicBody(40, 20, 0.001), true)
	wall := tb.add(0, 100, 0, 0, components.NewStaticBody(100, 20), false)

	is := NewIntegrationSystem(tb.world)
	is.Gravity = r2.Vec{Y: 100}
	is.MaxSpeed = 1000
	is.MaxAngular = 10
	is.Update(0.1)

	// Semi-implicit Euler: velocity first, then position
	if v := tb.vel.Get(e); math.Abs(v.Y-10) > 1e-9 {
		t.Errorf("vel.Y = %v, want 10", v.Y)
	}
	if p := tb.pos.Get(e); math.Abs(p.Y-1) > 1e-9 {
		t.Errorf("pos.Y = %v, want 1", p.Y)
	}
	if p := tb.pos.Get(wall); p.Y != 100 {
		t.Errorf("static body moved to %v", p.Y)
	}
}

func TestIntegrationSpeedLimit(t *testing.T) {
	tb := newTestBodies()
	e := tb.add(0, 0, 3000, 4000, components.NewDynamicBody(40, 20, 0.001), true)

	is := NewIntegrationSystem(tb.world)
	is.MaxSpeed = 500
	is.MaxAngular = 10
	is.Update(1.0 / 60)

	v := tb.vel.Get(e)
	if speed := math.Hypot(v.X, v.Y); math.Abs(speed-500) > 1e-6 {
		t.Errorf("speed = %v, want 500", speed)
	}
}

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{3 * math.Pi / 2, -math.Pi / 2},
		{-3 * math.Pi / 2, math.Pi / 2},
		{5 * math.Pi / 2, math.Pi / 2},
	}
	for _, tt := range tests {
		if got := normalizeAngle(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("normalizeAngle(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
