package sim

import (
	"math"

	"collision-pipeline/internal/collision"
	"collision-pipeline/internal/geom"
)

// Bullet constants
const (
	BulletSize     = 4.0
	BulletDamage   = 20
	BulletLifetime = 90 // frames
)

// Bullet is a mover: swept against the unit index every frame. It is
// consumed by the first unit it hits and removed.
type Bullet struct {
	Entity

	Damage   int
	Lifetime int // remaining frames

	consumedBy collision.Collidable
}

// NewBullet creates a bullet at (x, y) heading toward (tx, ty) at speed
// world units per frame.
func NewBullet(id uint32, team int, x, y, tx, ty, speed float64) *Bullet {
	dx, dy := tx-x, ty-y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		dist = 1 // Prevent division by zero
	}

	b := &Bullet{
		Entity: Entity{
			ID:   id,
			Team: team,
			Size: BulletSize,
			VX:   dx / dist * speed,
			VY:   dy / dist * speed,
		},
		Damage:   BulletDamage,
		Lifetime: BulletLifetime,
	}
	b.Place(x, y)
	return b
}

// CollidesWith accepts live enemy units. Bullets never hit bullets.
func (b *Bullet) CollidesWith(other collision.Collidable) bool {
	u, ok := other.(*Unit)
	return ok && u.IsLive() && u.Team != b.Team
}

// OnCollision consumes the bullet on the first still-standing unit it is
// resolved against.
func (b *Bullet) OnCollision(other collision.Collidable, x, y float64) {
	if b.consumedBy != nil {
		return
	}
	if u, ok := other.(*Unit); !ok || !u.IsLive() {
		return
	}
	b.consumedBy = other
	b.Remove()
}

// ConsumedBy returns the unit this bullet was spent on, or nil.
func (b *Bullet) ConsumedBy() collision.Collidable {
	return b.consumedBy
}

// Fly advances the bullet one frame. It returns false once the bullet has
// expired or left area.
func (b *Bullet) Fly(area geom.Rect) bool {
	b.Step()
	b.Lifetime--

	if b.Lifetime <= 0 || !area.ContainsPoint(b.PosX, b.PosY) {
		return false
	}
	return true
}
