// Package geom provides the axis-aligned rectangle used for hitboxes,
// broad-phase regions and world bounds.
package geom

// Rect is an axis-aligned rectangle. X, Y is the minimum corner.
type Rect struct {
	X, Y float64
	W, H float64
}

// NewRect returns a rectangle spanning [x, x+w] x [y, y+h].
func NewRect(x, y, w, h float64) Rect {
	return Rect{X: x, Y: y, W: w, H: h}
}

// Centered returns a w x h rectangle centered on (cx, cy).
func Centered(cx, cy, w, h float64) Rect {
	return Rect{X: cx - w/2, Y: cy - h/2, W: w, H: h}
}

// SetCentered moves r so it is centered on (cx, cy) with size w x h.
func (r *Rect) SetCentered(cx, cy, w, h float64) {
	r.X = cx - w/2
	r.Y = cy - h/2
	r.W = w
	r.H = h
}

// MaxX returns the right edge.
func (r Rect) MaxX() float64 { return r.X + r.W }

// MaxY returns the top edge.
func (r Rect) MaxY() float64 { return r.Y + r.H }

// Center returns the rectangle's center point.
func (r Rect) Center() (float64, float64) {
	return r.X + r.W/2, r.Y + r.H/2
}

// Overlaps reports whether r and o share interior area.
// Rectangles that only touch along an edge do not overlap.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.X+o.W && r.X+r.W > o.X &&
		r.Y < o.Y+o.H && r.Y+r.H > o.Y
}

// Contains reports whether o lies entirely inside r (edges inclusive).
func (r Rect) Contains(o Rect) bool {
	return o.X >= r.X && o.Y >= r.Y &&
		o.X+o.W <= r.X+r.W && o.Y+o.H <= r.Y+r.H
}

// ContainsPoint reports whether (x, y) lies inside r (edges inclusive).
func (r Rect) ContainsPoint(x, y float64) bool {
	return x >= r.X && x <= r.X+r.W && y >= r.Y && y <= r.Y+r.H
}

// Translate returns r moved by (dx, dy).
func (r Rect) Translate(dx, dy float64) Rect {
	r.X += dx
	r.Y += dy
	return r
}

// Merge returns the smallest rectangle containing both r and o.
func (r Rect) Merge(o Rect) Rect {
	minX := min(r.X, o.X)
	minY := min(r.Y, o.Y)
	maxX := max(r.X+r.W, o.X+o.W)
	maxY := max(r.Y+r.H, o.Y+o.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Quadrants splits r into four equal children in the order
// bottom-left, bottom-right, top-left, top-right.
func (r Rect) Quadrants() [4]Rect {
	hw, hh := r.W/2, r.H/2
	return [4]Rect{
		{X: r.X, Y: r.Y, W: hw, H: hh},
		{X: r.X + hw, Y: r.Y, W: hw, H: hh},
		{X: r.X, Y: r.Y + hh, W: hw, H: hh},
		{X: r.X + hw, Y: r.Y + hh, W: hw, H: hh},
	}
}
