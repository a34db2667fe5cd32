package sim

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"collision-pipeline/internal/collision"
	"collision-pipeline/internal/geom"
	"collision-pipeline/internal/spatial"

	"github.com/sirupsen/logrus"
)

// Bullet speeds in world units per frame. The top end is several unit
// widths per frame, so hits at that speed only register through the sweep.
const (
	MinBulletSpeed = 4.0
	MaxBulletSpeed = 64.0
)

// EngineConfig holds engine construction parameters.
type EngineConfig struct {
	TickRate  int
	World     collision.World
	Index     spatial.Factory[collision.Collidable]
	SlowFrame time.Duration
	Units     int // population kept alive
	Bullets   int // bullets kept in flight
	Teams     int
	Seed      int64 // 0 picks a time-based seed
	Limits    SnapshotLimits
	Logger    *logrus.Entry
}

// spawnOrder is a bullet planned while the collision compute is running and
// fired after it.
type spawnOrder struct {
	shooter *Unit
	tx, ty  float64
	speed   float64
}

// Engine runs the reference world at a fixed tick rate. Each tick:
//
//  1. move units and bullets, drop expired bullets
//  2. collision Begin (groups are quiescent)
//  3. collision Process on a worker goroutine while the loop plans the next
//     volley (read-only access to entities)
//  4. wait, collision End (entities take damage, bullets are consumed)
//  5. drop removed entities, respawn, publish a frame snapshot
type Engine struct {
	mu sync.Mutex

	cfg    EngineConfig
	area   geom.Rect // tiled play area units wander in
	bounds geom.Rect // index bounds; bullets leaving it are dropped

	units      *EntityGroup[*Unit]
	bullets    *EntityGroup[*Bullet]
	collisions *collision.Process
	task       collision.Task
	frames     *FramePool

	rng       *rand.Rand
	nextID    uint32
	tickCount uint64

	totalHits  int
	totalKills int

	// per-tick scratch
	pairs          []collision.Pair
	orders         []spawnOrder
	removedUnits   []*Unit
	removedBullets []*Bullet
	lastStats      collision.FrameStats

	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}
	done     chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc

	log *logrus.Entry

	// Event callbacks, invoked from the frame loop
	OnHit   func(u *Unit, b *Bullet)
	OnKill  func(u *Unit)
	OnFrame func(stats collision.FrameStats)
}

// NewEngine creates an engine, initializes the collision index over the
// configured world and spawns the starting population.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.TickRate <= 0 {
		cfg.TickRate = 60
	}
	if cfg.Teams < 2 {
		cfg.Teams = 2
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.Limits == (SnapshotLimits{}) {
		cfg.Limits = DefaultSnapshotLimits
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}

	e := &Engine{
		cfg:      cfg,
		units:    NewEntityGroup[*Unit](cfg.Units),
		bullets:  NewEntityGroup[*Bullet](cfg.Bullets),
		frames:   NewFramePool(cfg.Limits),
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
		log:      cfg.Logger.WithField("component", "engine"),
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())

	e.collisions = collision.New(e.units, e.bullets, collision.Config{
		Index:     cfg.Index,
		Logger:    cfg.Logger,
		SlowFrame: cfg.SlowFrame,
	})
	e.collisions.Init(cfg.World)

	e.bounds = e.collisions.Bounds()
	e.area = geom.NewRect(0, 0,
		float64(cfg.World.Width)*cfg.World.TileSize,
		float64(cfg.World.Height)*cfg.World.TileSize)

	for i := 0; i < cfg.Units; i++ {
		e.spawnRandomUnit(i % cfg.Teams)
	}

	return e
}

// Start begins the frame loop. An engine runs at most once; after Stop it
// can still be driven by hand with Tick.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running || e.ctx.Err() != nil {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.ticker = time.NewTicker(time.Second / time.Duration(e.cfg.TickRate))
	e.mu.Unlock()

	go func() {
		defer close(e.done)
		for {
			select {
			case <-e.ticker.C:
				e.Tick()
			case <-e.stopChan:
				return
			}
		}
	}()

	e.log.WithField("tps", e.cfg.TickRate).Info("engine started")
}

// Stop ends the frame loop, discards any in-flight compute and tears down
// the collision index. It is safe to call more than once.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.ticker.Stop()
	close(e.stopChan)
	e.cancel()
	e.mu.Unlock()

	<-e.done

	e.mu.Lock()
	_ = e.task.Cancel()
	e.collisions.Reset()
	e.mu.Unlock()

	e.log.Info("engine stopped")
}

// Tick advances the world by one frame.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tick()
}

func (e *Engine) tick() {
	e.tickCount++

	e.units.Each(func(u *Unit) { u.Wander(e.area) })
	e.bullets.Each(func(b *Bullet) {
		if !b.Fly(e.bounds) {
			b.Remove()
		}
	})
	e.removedBullets = e.bullets.Flush(e.removedBullets[:0])

	e.collisions.Begin()
	started := e.task.Start(e.ctx, e.collisions)

	// Overlaps the compute stage: reads entities, writes only engine state.
	e.planVolley()

	if started {
		if err := e.task.Wait(); err != nil {
			e.log.WithError(err).WithField("tick", e.tickCount).Debug("collision frame discarded")
		}
	}

	e.pairs = e.collisions.Pairs(e.pairs[:0])
	e.collisions.End()
	e.lastStats = e.collisions.Stats()

	e.applyHits()
	e.fireVolley()
	e.publish()

	if e.OnFrame != nil {
		e.OnFrame(e.lastStats)
	}
}

// planVolley picks shooters and targets for the bullets needed to refill
// the configured count.
func (e *Engine) planVolley() {
	e.orders = e.orders[:0]

	missing := e.cfg.Bullets - e.bullets.Len()
	n := e.units.Len()
	if missing <= 0 || n < 2 {
		return
	}

	for i := 0; i < missing; i++ {
		shooter := e.units.members[e.rng.Intn(n)]
		target := e.units.members[e.rng.Intn(n)]
		if target.Team == shooter.Team {
			continue
		}
		speed := MinBulletSpeed + e.rng.Float64()*(MaxBulletSpeed-MinBulletSpeed)
		e.orders = append(e.orders, spawnOrder{
			shooter: shooter,
			tx:      target.PosX,
			ty:      target.PosY,
			speed:   speed,
		})
	}
}

// applyHits credits every bullet that was consumed this frame and replaces
// dead units.
func (e *Engine) applyHits() {
	for _, p := range e.pairs {
		b, ok := p.A.(*Bullet)
		if !ok {
			continue
		}
		u, ok := p.B.(*Unit)
		if !ok || b.ConsumedBy() != collision.Collidable(u) {
			continue
		}
		e.totalHits++
		if e.OnHit != nil {
			e.OnHit(u, b)
		}
	}

	e.removedBullets = e.bullets.Flush(e.removedBullets[:0])
	e.removedUnits = e.units.Flush(e.removedUnits[:0])

	for _, u := range e.removedUnits {
		e.totalKills++
		if e.OnKill != nil {
			e.OnKill(u)
		}
		e.spawnRandomUnit(u.Team)
	}
	for e.units.Len() < e.cfg.Units {
		e.spawnRandomUnit(e.units.Len() % e.cfg.Teams)
	}
}

// fireVolley spawns the planned bullets whose shooter survived the frame.
func (e *Engine) fireVolley() {
	for _, o := range e.orders {
		if !o.shooter.IsLive() {
			continue
		}
		e.bullets.Add(NewBullet(e.newID(), o.shooter.Team, o.shooter.PosX, o.shooter.PosY, o.tx, o.ty, o.speed))
	}
	clear(e.orders)
	e.orders = e.orders[:0]
}

// publish writes the frame snapshot.
func (e *Engine) publish() {
	limits := e.frames.Limits()
	snap := e.frames.AcquireWrite()

	snap.Tick = e.tickCount
	snap.Bounds = e.bounds
	snap.Collision = e.lastStats
	snap.TotalHits = e.totalHits
	snap.TotalKills = e.totalKills

	for _, u := range e.units.members {
		if len(snap.Units) >= limits.MaxUnits {
			break
		}
		snap.Units = append(snap.Units, EntitySnapshot{
			ID: u.ID, Kind: KindUnit, Team: u.Team,
			X: u.PosX, Y: u.PosY, LastX: u.PrevX, LastY: u.PrevY,
			Size: u.Size, HP: u.HP,
		})
	}
	for _, b := range e.bullets.members {
		if len(snap.Bullets) >= limits.MaxBullets {
			break
		}
		snap.Bullets = append(snap.Bullets, EntitySnapshot{
			ID: b.ID, Kind: KindBullet, Team: b.Team,
			X: b.PosX, Y: b.PosY, LastX: b.PrevX, LastY: b.PrevY,
			Size: b.Size,
		})
	}
	for _, p := range e.pairs {
		if len(snap.Contacts) >= limits.MaxContacts {
			break
		}
		x, y := collision.Midpoint(p.A, p.B)
		snap.Contacts = append(snap.Contacts, ContactSnapshot{A: idOf(p.A), B: idOf(p.B), X: x, Y: y})
	}
	e.collisions.WalkIndex(func(r geom.Rect) {
		if len(snap.IndexNodes) < limits.MaxNodes {
			snap.IndexNodes = append(snap.IndexNodes, r)
		}
	})

	e.frames.PublishWrite()
}

func idOf(c collision.Collidable) uint32 {
	switch v := c.(type) {
	case *Unit:
		return v.ID
	case *Bullet:
		return v.ID
	}
	return 0
}

func (e *Engine) newID() uint32 {
	e.nextID++
	return e.nextID
}

func (e *Engine) spawnRandomUnit(team int) *Unit {
	u := NewUnit(e.newID(), team,
		e.area.X+e.rng.Float64()*e.area.W,
		e.area.Y+e.rng.Float64()*e.area.H)
	u.VX = e.rng.Float64()*2 - 1
	u.VY = e.rng.Float64()*2 - 1
	e.units.Add(u)
	return u
}

// SpawnUnit adds a stationary unit at (x, y).
func (e *Engine) SpawnUnit(team int, x, y float64) *Unit {
	e.mu.Lock()
	defer e.mu.Unlock()

	u := NewUnit(e.newID(), team, x, y)
	e.units.Add(u)
	return u
}

// SpawnBullet fires a bullet from (x, y) toward (tx, ty).
func (e *Engine) SpawnBullet(team int, x, y, tx, ty, speed float64) *Bullet {
	e.mu.Lock()
	defer e.mu.Unlock()

	b := NewBullet(e.newID(), team, x, y, tx, ty, speed)
	e.bullets.Add(b)
	return b
}

// Snapshot copies the latest published frame into dst.
func (e *Engine) Snapshot(dst *FrameSnapshot) bool {
	return e.frames.Read(dst)
}

// Stats returns the collision statistics of the last tick.
func (e *Engine) Stats() collision.FrameStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastStats
}

// Counts returns live unit and bullet counts.
func (e *Engine) Counts() (units, bullets int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.units.Len(), e.bullets.Len()
}

// Totals returns cumulative hits and kills.
func (e *Engine) Totals() (hits, kills int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalHits, e.totalKills
}

// TickCount returns the number of ticks run.
func (e *Engine) TickCount() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tickCount
}

// Bounds returns the collision world bounds.
func (e *Engine) Bounds() geom.Rect {
	return e.bounds
}
