package collision

import (
	"math"

	"collision-pipeline/internal/geom"
)

// Body is a box at its end-of-frame position together with the distance it
// travelled this frame.
type Body struct {
	Box    geom.Rect
	VX, VY float64
}

// BodyOf reads the current hitbox and frame displacement of c.
func BodyOf(c Collidable) Body {
	var b Body
	c.Hitbox(&b.Box)
	b.VX = c.X() - c.LastX()
	b.VY = c.Y() - c.LastY()
	return b
}

// Start returns the box at its frame-start position.
func (b Body) Start() geom.Rect {
	return b.Box.Translate(-b.VX, -b.VY)
}

// Swept returns the region covering the whole frame's motion.
func (b Body) Swept() geom.Rect {
	return b.Box.Merge(b.Start())
}

// Contact is the result of a positive sweep.
//
// Entry is the normalized frame time of first contact. X, Y estimates where
// the first body's center was at that time; it is diagnostic only and is
// not what End reports to entities.
type Contact struct {
	Entry float64
	X, Y  float64
}

// Sweep reports whether two moving boxes overlap at some time in [0, 1] of
// the frame. Boxes that only share an edge never collide, in line with
// geom.Rect.Overlaps, so a contact that begins exactly at the end of the
// frame is a miss.
//
// The test runs in the frame of b (relative velocity a−b) using per-axis
// slabs. An axis with zero relative velocity contributes an unbounded
// interval when the boxes already overlap on it and a miss otherwise.
func Sweep(a, b Body) (Contact, bool) {
	startA, startB := a.Start(), b.Start()

	if startA.Overlaps(startB) {
		return contactAt(a, startA, 0), true
	}

	rvx := a.VX - b.VX
	rvy := a.VY - b.VY

	xEntry, xExit, okX := axisInterval(startA.X, startA.W, startB.X, startB.W, rvx)
	yEntry, yExit, okY := axisInterval(startA.Y, startA.H, startB.Y, startB.H, rvy)

	if okX && okY {
		entry := math.Max(xEntry, yEntry)
		exit := math.Min(xExit, yExit)

		// a positive-length overlap inside the frame
		if entry < exit && exit > 0 && entry < 1 {
			return contactAt(a, startA, math.Max(entry, 0)), true
		}
	}

	// End-of-frame overlap always counts, whatever the slab arithmetic said.
	if a.Box.Overlaps(b.Box) {
		return contactAt(a, startA, 1), true
	}

	return Contact{}, false
}

// axisInterval returns the normalized time interval during which a (moving
// at v relative to b) lies within b's extent on one axis.
func axisInterval(aMin, aSize, bMin, bSize, v float64) (entry, exit float64, ok bool) {
	if v == 0 {
		if aMin < bMin+bSize && aMin+aSize > bMin {
			return math.Inf(-1), math.Inf(1), true
		}
		return 0, 0, false
	}

	var invEntry, invExit float64
	if v > 0 {
		invEntry = bMin - (aMin + aSize)
		invExit = (bMin + bSize) - aMin
	} else {
		invEntry = (bMin + bSize) - aMin
		invExit = bMin - (aMin + aSize)
	}

	return invEntry / v, invExit / v, true
}

// contactAt advances a's frame-start center by its own (not relative)
// displacement scaled by t.
func contactAt(a Body, start geom.Rect, t float64) Contact {
	cx, cy := start.Center()
	return Contact{
		Entry: t,
		X:     cx + a.VX*t,
		Y:     cy + a.VY*t,
	}
}
