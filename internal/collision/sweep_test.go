package collision

import (
	"math"
	"testing"

	"collision-pipeline/internal/geom"
)

// body builds a Body from a 10x10 box whose minimum corner moved from
// (fromX, fromY) to (toX, toY).
func body(fromX, fromY, toX, toY float64) Body {
	return Body{
		Box: geom.NewRect(toX, toY, 10, 10),
		VX:  toX - fromX,
		VY:  toY - fromY,
	}
}

func still(x, y float64) Body {
	return body(x, y, x, y)
}

func TestSweepDetectsCrossingPaths(t *testing.T) {
	tests := []struct {
		name  string
		a, b  Body
		entry float64
	}{
		{"approach ends overlapping", body(0, 0, 20, 0), still(15, 0), 0.25},
		{"passes straight through", body(0, 0, 40, 0), still(15, 0), 0.125},
		{"diagonal pass through", body(0, 0, 40, 40), still(15, 15), 0.125},
		{"head-on, both moving", body(0, 0, 50, 0), body(50, 0, 0, 0), 0.4},
		{"moving left", body(30, 0, 18, 0), still(15, 0), 5.0 / 12.0},
		{"vertical only", body(0, -40, 0, 40), still(0, 0), 0.375},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := Sweep(tt.a, tt.b)
			if !ok {
				t.Fatal("expected a collision")
			}
			if math.Abs(c.Entry-tt.entry) > 1e-9 {
				t.Errorf("entry = %v, want %v", c.Entry, tt.entry)
			}
			if c.Entry <= 0 || c.Entry >= 1 {
				t.Errorf("entry %v should be strictly inside the frame", c.Entry)
			}
		})
	}
}

// The end-of-frame boxes do not overlap; only the sweep can see the hit.
func TestSweepPreventsTunneling(t *testing.T) {
	a := body(0, 0, 40, 0)
	b := still(15, 0)

	if a.Box.Overlaps(b.Box) || a.Start().Overlaps(b.Box) {
		t.Fatal("test setup: boxes must not overlap at either end of the frame")
	}
	if _, ok := Sweep(a, b); !ok {
		t.Error("fast mover tunneled through a stationary box")
	}
}

func TestSweepImmediateOverlap(t *testing.T) {
	tests := []struct {
		name string
		a, b Body
	}{
		{"both still", still(0, 0), still(5, 5)},
		{"moving apart but still overlapping", body(0, 0, -2, 0), body(5, 0, 7, 0)},
		{"moving together", body(0, 0, 2, 2), still(5, 5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := Sweep(tt.a, tt.b)
			if !ok {
				t.Fatal("overlapping boxes must collide")
			}
			if c.Entry != 0 {
				t.Errorf("entry = %v, want 0", c.Entry)
			}
		})
	}
}

// Boxes that only overlap at the end of the frame are always reported,
// whatever direction they moved in.
func TestSweepEndOverlapAnyDirection(t *testing.T) {
	for _, d := range [][2]float64{{12, 0}, {-12, 0}, {0, 12}, {0, -12}, {9, -9}} {
		b := still(100, 100)
		a := body(100-d[0]*1.5, 100-d[1]*1.5, 100-d[0]*0.5, 100-d[1]*0.5)
		if !a.Box.Overlaps(b.Box) {
			t.Fatalf("setup for %v: end boxes must overlap", d)
		}
		if _, ok := Sweep(a, b); !ok {
			t.Errorf("direction %v: end-of-frame overlap not reported", d)
		}
	}
}

func TestSweepMisses(t *testing.T) {
	tests := []struct {
		name string
		a, b Body
	}{
		{"parallel lanes", body(0, 50, 100, 50), still(40, 0)},
		{"moving away", body(20, 0, 40, 0), still(5, 0)},
		{"would hit next frame", body(0, 0, 2, 0), still(15, 0)},
		{"passes beside corner", body(0, 20, 40, 60), still(15, 0)},
		{"touching edges only", still(0, 0), still(10, 0)},
		{"touches exactly at frame end", body(0, 0, 10, 0), still(20, 0)},
		{"touches at frame end, diagonal", body(0, 0, 10, 10), still(20, 20)},
		{"grazes an edge in passing", body(0, 10, 40, 10), still(15, 0)},
		{"same velocity, separated", body(0, 0, 30, 0), body(20, 0, 50, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if c, ok := Sweep(tt.a, tt.b); ok {
				t.Errorf("unexpected collision at entry %v", c.Entry)
			}
		})
	}
}

func TestSweepContactPoint(t *testing.T) {
	// a's start center is (5, 5); it travels 20 along x and first touches at t=0.25
	c, ok := Sweep(body(0, 0, 20, 0), still(15, 0))
	if !ok {
		t.Fatal("expected a collision")
	}
	if c.X != 10 || c.Y != 5 {
		t.Errorf("contact = (%v, %v), want (10, 5)", c.X, c.Y)
	}
}

func TestBodyOf(t *testing.T) {
	p := moving("m", 0, 0, 30, -10, 4)
	b := BodyOf(p)

	if b.VX != 30 || b.VY != -10 {
		t.Errorf("displacement = (%v, %v), want (30, -10)", b.VX, b.VY)
	}
	if b.Box != geom.Centered(30, -10, 4, 4) {
		t.Errorf("box = %+v", b.Box)
	}

	swept := b.Swept()
	want := geom.NewRect(-2, -12, 34, 14)
	if swept != want {
		t.Errorf("swept = %+v, want %+v", swept, want)
	}
}
