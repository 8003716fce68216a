package systems

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func TestOBBBounds(t *testing.T) {
	tests := []struct {
		name   string
		o      OBB
		wantEX float64
		wantEY float64
	}{
		{"flat", OBB{HalfW: 20, HalfH: 10}, 20, 10},
		{"quarter turn", OBB{HalfW: 20, HalfH: 10, Angle: math.Pi / 2}, 10, 20},
		{"diamond", OBB{HalfW: 10, HalfH: 10, Angle: math.Pi / 4}, 10 * math.Sqrt2, 10 * math.Sqrt2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.o.Bounds()
			if math.Abs(b.MaxX-tt.wantEX) > 1e-9 || math.Abs(b.MinX+tt.wantEX) > 1e-9 {
				t.Errorf("x extent = [%v, %v], want +/-%v", b.MinX, b.MaxX, tt.wantEX)
			}
			if math.Abs(b.MaxY-tt.wantEY) > 1e-9 || math.Abs(b.MinY+tt.wantEY) > 1e-9 {
				t.Errorf("y extent = [%v, %v], want +/-%v", b.MinY, b.MaxY, tt.wantEY)
			}
		})
	}
}

func TestSpatialGridMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	var bounds []AABB
	for i := 0; i < 80; i++ {
		o := OBB{
			Center: r2.Vec{X: rng.Float64()*600 - 50, Y: rng.Float64()*400 - 200},
			HalfW:  10 + rng.Float64()*40,
			HalfH:  12,
			Angle:  rng.Float64() * 2 * math.Pi,
		}
		bounds = append(bounds, o.Bounds())
	}
	// A wide wall spanning many cells
	bounds = append(bounds, AABB{MinX: -100, MinY: 180, MaxX: 700, MaxY: 280})

	want := map[[2]int]bool{}
	for i := range bounds {
		for j := i + 1; j < len(bounds); j++ {
			if bounds[i].Overlaps(bounds[j]) {
				want[[2]int{i, j}] = true
			}
		}
	}

	g := NewSpatialGrid(64)
	g.Build(bounds)
	got := g.PairsInto(nil)

	seen := map[[2]int]bool{}
	for _, p := range got {
		if p[0] >= p[1] {
			t.Errorf("pair %v not ordered", p)
		}
		if seen[p] {
			t.Errorf("pair %v reported twice", p)
		}
		seen[p] = true
		if !want[p] {
			t.Errorf("pair %v does not overlap", p)
		}
	}
	if len(seen) != len(want) {
		t.Errorf("found %d pairs, want %d", len(seen), len(want))
	}
}

func TestSpatialGridEmpty(t *testing.T) {
	g := NewSpatialGrid(64)
	g.Build(nil)
	if got := g.PairsInto(nil); len(got) != 0 {
		t.Errorf("pairs = %v, want none", got)
	}
}
