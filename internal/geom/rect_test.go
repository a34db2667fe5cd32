package geom

import "testing"

func TestOverlaps(t *testing.T) {
	base := NewRect(0, 0, 10, 10)

	tests := []struct {
		name  string
		other Rect
		want  bool
	}{
		{"identical", NewRect(0, 0, 10, 10), true},
		{"partial", NewRect(5, 5, 10, 10), true},
		{"contained", NewRect(2, 2, 2, 2), true},
		{"touching right edge", NewRect(10, 0, 10, 10), false},
		{"touching top edge", NewRect(0, 10, 10, 10), false},
		{"disjoint", NewRect(20, 20, 5, 5), false},
		{"negative side", NewRect(-5, -5, 6, 6), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Overlaps(tt.other); got != tt.want {
				t.Errorf("Overlaps(%+v) = %v, want %v", tt.other, got, tt.want)
			}
			if got := tt.other.Overlaps(base); got != tt.want {
				t.Errorf("Overlaps is not symmetric for %+v", tt.other)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	a := NewRect(0, 0, 10, 10)
	b := NewRect(-5, 20, 2, 2)

	got := a.Merge(b)
	want := NewRect(-5, 0, 15, 22)
	if got != want {
		t.Errorf("Merge = %+v, want %+v", got, want)
	}

	if !got.Contains(a) || !got.Contains(b) {
		t.Error("merged rect must contain both inputs")
	}
}

func TestCenteredAndTranslate(t *testing.T) {
	r := Centered(10, 20, 4, 6)
	if r.X != 8 || r.Y != 17 {
		t.Errorf("Centered corner = (%v, %v), want (8, 17)", r.X, r.Y)
	}
	cx, cy := r.Center()
	if cx != 10 || cy != 20 {
		t.Errorf("Center = (%v, %v), want (10, 20)", cx, cy)
	}

	var s Rect
	s.SetCentered(10, 20, 4, 6)
	if s != r {
		t.Errorf("SetCentered = %+v, want %+v", s, r)
	}

	moved := r.Translate(-8, 3)
	if moved.X != 0 || moved.Y != 20 || moved.W != 4 || moved.H != 6 {
		t.Errorf("Translate = %+v", moved)
	}
}

func TestQuadrants(t *testing.T) {
	r := NewRect(-10, -10, 20, 20)
	q := r.Quadrants()

	var area float64
	for i, c := range q {
		if !r.Contains(c) {
			t.Errorf("quadrant %d %+v escapes parent", i, c)
		}
		area += c.W * c.H
	}
	if area != r.W*r.H {
		t.Errorf("quadrant area = %v, want %v", area, r.W*r.H)
	}
	if q[3].X != 0 || q[3].Y != 0 {
		t.Errorf("top-right quadrant origin = (%v, %v)", q[3].X, q[3].Y)
	}
}

func TestContainsPoint(t *testing.T) {
	r := NewRect(0, 0, 10, 10)
	if !r.ContainsPoint(10, 10) {
		t.Error("corner should be contained")
	}
	if r.ContainsPoint(10.01, 5) {
		t.Error("point outside should not be contained")
	}
}
