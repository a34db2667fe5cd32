// Package sim is a reference world for the collision pipeline: two entity
// kinds (units and bullets), the groups holding them and a fixed-rate
// frame loop that drives the collision stages.
package sim

import (
	"collision-pipeline/internal/geom"
)

// Kind tags an entity for snapshots and filtering.
type Kind uint8

const (
	KindUnit Kind = iota
	KindBullet
)

func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindBullet:
		return "bullet"
	}
	return "unknown"
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Entity holds the state every kind shares: identity, position history,
// hitbox size and liveness. Kinds embed it and add their own rules.
type Entity struct {
	ID     uint32
	Team   int
	PosX   float64
	PosY   float64
	PrevX  float64 // position at the end of the previous frame
	PrevY  float64
	VX, VY float64 // world units per frame
	Size   float64 // hitbox edge, centered on the position

	removed bool
}

func (e *Entity) X() float64     { return e.PosX }
func (e *Entity) Y() float64     { return e.PosY }
func (e *Entity) LastX() float64 { return e.PrevX }
func (e *Entity) LastY() float64 { return e.PrevY }

// Hitbox writes the square hitbox centered on the current position.
func (e *Entity) Hitbox(out *geom.Rect) {
	out.SetCentered(e.PosX, e.PosY, e.Size, e.Size)
}

// IsLive reports whether the entity is still in the simulation.
func (e *Entity) IsLive() bool {
	return !e.removed
}

// Remove takes the entity out of the simulation. Its group drops it at the
// next Flush.
func (e *Entity) Remove() {
	e.removed = true
}

// Place teleports the entity; the move does not count as motion this frame.
func (e *Entity) Place(x, y float64) {
	e.PosX, e.PosY = x, y
	e.PrevX, e.PrevY = x, y
}

// Step records the current position as the previous one and advances by
// the velocity.
func (e *Entity) Step() {
	e.PrevX, e.PrevY = e.PosX, e.PosY
	e.PosX += e.VX
	e.PosY += e.VY
}
