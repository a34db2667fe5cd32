// Package collision implements the per-frame collision pipeline: snapshot
// the entity groups, rebuild the broad-phase index, run a swept narrow
// phase for every mover, then notify both members of each colliding pair.
//
// The pipeline is split into stages so the expensive one can run off the
// main loop:
//
//	Begin   - main loop, exclusive access to groups; copies membership
//	Process - any goroutine; reads snapshots only, never mutates entities
//	End     - main loop; the only stage that calls OnCollision
//
// Safety comes from stage ordering rather than locks. See Process.
package collision

import "collision-pipeline/internal/geom"

// Collidable is the capability an entity kind implements to take part in
// collision detection.
//
// Implementations must be comparable (pointer types in practice); self-pairs
// are rejected by identity.
type Collidable interface {
	// X, Y is the current (end-of-frame) position.
	X() float64
	Y() float64
	// LastX, LastY is the position at the end of the previous frame.
	LastX() float64
	LastY() float64
	// Hitbox writes the current axis-aligned hitbox into out.
	Hitbox(out *geom.Rect)
	// CollidesWith applies filtering rules (teams, layers, flags).
	CollidesWith(other Collidable) bool
	// IsLive reports whether the entity is still in the simulation.
	IsLive() bool
	// OnCollision is invoked once per detected pair during End.
	OnCollision(other Collidable, x, y float64)
}

// Group is an externally synchronized collection of entities of one role.
type Group interface {
	// SnapshotInto appends the current members to buf and returns it.
	SnapshotInto(buf []Collidable) []Collidable
}

// World describes the simulated area. It is read once at Init.
type World struct {
	Width, Height int     // in tiles
	TileSize      float64 // world units per tile
	Margin        float64 // extra space around the tiled area
}

// Bounds returns the rectangle the spatial index covers: the tiled area
// grown by Margin on every side.
func (w World) Bounds() geom.Rect {
	return geom.NewRect(
		-w.Margin,
		-w.Margin,
		float64(w.Width)*w.TileSize+w.Margin*2,
		float64(w.Height)*w.TileSize+w.Margin*2,
	)
}
