package sim

import (
	"collision-pipeline/internal/collision"
	"collision-pipeline/internal/geom"
)

// Unit constants
const (
	UnitSize  = 16.0
	UnitMaxHP = 100
)

// Unit is a target: inserted into the broad-phase index every frame and
// damaged by enemy bullets.
type Unit struct {
	Entity

	HP    int
	MaxHP int
	Kills int

	// Last confirmed hit, for rendering
	HitX, HitY float64
	Hits       int
}

// NewUnit creates a unit at full health.
func NewUnit(id uint32, team int, x, y float64) *Unit {
	u := &Unit{
		Entity: Entity{ID: id, Team: team, Size: UnitSize},
		HP:     UnitMaxHP,
		MaxHP:  UnitMaxHP,
	}
	u.Place(x, y)
	return u
}

// CollidesWith accepts live enemy bullets.
func (u *Unit) CollidesWith(other collision.Collidable) bool {
	b, ok := other.(*Bullet)
	return ok && b.IsLive() && b.Team != u.Team
}

// OnCollision applies the damage of the bullet that was consumed on this
// unit. A bullet already spent on another unit this frame does nothing.
func (u *Unit) OnCollision(other collision.Collidable, x, y float64) {
	b, ok := other.(*Bullet)
	if !ok || b.ConsumedBy() != collision.Collidable(u) || !u.IsLive() {
		return
	}

	u.HP -= b.Damage
	u.HitX, u.HitY = x, y
	u.Hits++

	if u.HP <= 0 {
		u.HP = 0
		u.Remove()
	}
}

// Wander bounces the unit off the edges of area.
func (u *Unit) Wander(area geom.Rect) {
	u.Step()

	if u.PosX < area.X || u.PosX > area.MaxX() {
		u.VX = -u.VX
		u.PosX = clamp(u.PosX, area.X, area.MaxX())
	}
	if u.PosY < area.Y || u.PosY > area.MaxY() {
		u.VY = -u.VY
		u.PosY = clamp(u.PosY, area.Y, area.MaxY())
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
