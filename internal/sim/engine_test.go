package sim

import (
	"testing"
	"time"

	"collision-pipeline/internal/collision"
	"collision-pipeline/internal/spatial"
	"collision-pipeline/pkg/logger"
)

var testWorld = collision.World{Width: 50, Height: 50, TileSize: 8, Margin: 64}

func newTestEngine(units, bullets int) *Engine {
	return NewEngine(EngineConfig{
		TickRate: 60,
		World:    testWorld,
		Units:    units,
		Bullets:  bullets,
		Seed:     1,
		Logger:   logger.Discard(),
	})
}

func TestNewEngine(t *testing.T) {
	tests := []struct {
		name  string
		units int
	}{
		{"empty", 0},
		{"small", 10},
		{"crowded", 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(tt.units, 0)
			units, bullets := e.Counts()
			if units != tt.units || bullets != 0 {
				t.Errorf("Expected %d units and 0 bullets, got %d and %d", tt.units, units, bullets)
			}
			if e.Bounds().X != -64 || e.Bounds().W != 50*8+128 {
				t.Errorf("Unexpected bounds %+v", e.Bounds())
			}
		})
	}
}

func TestEngineHit(t *testing.T) {
	e := newTestEngine(0, 0)
	u := e.SpawnUnit(1, 100, 100)
	b := e.SpawnBullet(0, 40, 100, 100, 100, 60)

	var hits []*Unit
	e.OnHit = func(hit *Unit, by *Bullet) {
		if by != b {
			t.Errorf("Unexpected bullet %d", by.ID)
		}
		hits = append(hits, hit)
	}

	e.Tick()

	if len(hits) != 1 || hits[0] != u {
		t.Fatalf("Expected one hit on the unit, got %d", len(hits))
	}
	if u.HP != UnitMaxHP-BulletDamage {
		t.Errorf("Expected HP %d, got %d", UnitMaxHP-BulletDamage, u.HP)
	}
	if _, bullets := e.Counts(); bullets != 0 {
		t.Errorf("Spent bullet should be flushed, %d left", bullets)
	}
	if hitsTotal, _ := e.Totals(); hitsTotal != 1 {
		t.Errorf("Expected 1 total hit, got %d", hitsTotal)
	}

	stats := e.Stats()
	if stats.Pairs != 1 || stats.Resolved != 1 {
		t.Errorf("Expected 1 pair resolved, got %+v", stats)
	}
}

func TestEngineFastBulletDoesNotTunnel(t *testing.T) {
	e := newTestEngine(0, 0)
	u := e.SpawnUnit(1, 100, 100)
	e.SpawnBullet(0, 0, 100, 300, 100, 200)

	e.Tick()

	if u.Hits != 1 {
		t.Errorf("Bullet moving 200 per frame should still hit a 16 wide unit, hits=%d", u.Hits)
	}
}

func TestEngineFriendlyFire(t *testing.T) {
	e := newTestEngine(0, 0)
	u := e.SpawnUnit(0, 100, 100)
	e.SpawnBullet(0, 40, 100, 100, 100, 60)

	e.Tick()

	if u.HP != UnitMaxHP {
		t.Errorf("Friendly bullet should pass through, HP=%d", u.HP)
	}
	if _, bullets := e.Counts(); bullets != 1 {
		t.Errorf("Friendly bullet should keep flying, %d bullets", bullets)
	}
}

func TestEngineKillRespawns(t *testing.T) {
	e := newTestEngine(0, 0)
	u := e.SpawnUnit(1, 100, 100)
	for i := 0; i < UnitMaxHP/BulletDamage; i++ {
		e.SpawnBullet(0, 40, 100, 100, 100, 60)
	}

	var killed []*Unit
	e.OnKill = func(dead *Unit) { killed = append(killed, dead) }

	e.Tick()

	if len(killed) != 1 || killed[0] != u {
		t.Fatalf("Expected the unit to die, kills=%d", len(killed))
	}
	if u.IsLive() {
		t.Error("Dead unit still live")
	}
	if units, _ := e.Counts(); units != 1 {
		t.Errorf("Dead unit should be replaced, got %d units", units)
	}
	if _, kills := e.Totals(); kills != 1 {
		t.Errorf("Expected 1 kill, got %d", kills)
	}
}

func TestEngineSnapshot(t *testing.T) {
	e := newTestEngine(0, 0)

	var snap FrameSnapshot
	if e.Snapshot(&snap) {
		t.Error("Snapshot should be empty before the first tick")
	}

	u := e.SpawnUnit(1, 100, 100)
	b := e.SpawnBullet(0, 40, 100, 100, 100, 60)
	e.Tick()

	if !e.Snapshot(&snap) {
		t.Fatal("Snapshot missing after tick")
	}
	if snap.Tick != 1 || snap.TotalHits != 1 {
		t.Errorf("Expected tick 1 with 1 hit, got tick %d hits %d", snap.Tick, snap.TotalHits)
	}
	if len(snap.Units) != 1 || snap.Units[0].ID != u.ID || snap.Units[0].HP != u.HP {
		t.Errorf("Unexpected units %+v", snap.Units)
	}
	if len(snap.Contacts) != 1 {
		t.Fatalf("Expected 1 contact, got %d", len(snap.Contacts))
	}
	c := snap.Contacts[0]
	if c.A != b.ID || c.B != u.ID {
		t.Errorf("Expected contact %d/%d, got %d/%d", b.ID, u.ID, c.A, c.B)
	}
	if c.X != 100 || c.Y != 100 {
		t.Errorf("Expected contact at (100, 100), got (%v, %v)", c.X, c.Y)
	}
	if len(snap.IndexNodes) == 0 {
		t.Error("Expected index nodes in the snapshot")
	}
	if snap.Bounds != e.Bounds() {
		t.Errorf("Snapshot bounds %+v, want %+v", snap.Bounds, e.Bounds())
	}
}

func TestEnginePopulationSteady(t *testing.T) {
	for _, kind := range []spatial.Kind{spatial.KindQuadTree, spatial.KindGrid} {
		t.Run(string(kind), func(t *testing.T) {
			e := NewEngine(EngineConfig{
				World:   testWorld,
				Index:   spatial.NewFactory[collision.Collidable](spatial.Options{Kind: kind}),
				Units:   60,
				Bullets: 200,
				Teams:   3,
				Seed:    42,
				Logger:  logger.Discard(),
			})

			for i := 0; i < 120; i++ {
				e.Tick()

				units, bullets := e.Counts()
				if units != 60 {
					t.Fatalf("Tick %d: population drifted to %d", i, units)
				}
				if bullets > 200 {
					t.Fatalf("Tick %d: %d bullets exceed the cap", i, bullets)
				}
			}

			hits, _ := e.Totals()
			if hits == 0 {
				t.Error("Expected some hits over 120 ticks")
			}

			var snap FrameSnapshot
			if !e.Snapshot(&snap) || snap.Tick != 120 || len(snap.Units) != 60 {
				t.Errorf("Unexpected final snapshot: tick %d units %d", snap.Tick, len(snap.Units))
			}
		})
	}
}

func TestEngineStartStop(t *testing.T) {
	e := newTestEngine(10, 20)

	frames := make(chan struct{}, 1)
	e.OnFrame = func(collision.FrameStats) {
		select {
		case frames <- struct{}{}:
		default:
		}
	}

	e.Start()
	e.Start() // second start is a no-op

	select {
	case <-frames:
	case <-time.After(2 * time.Second):
		t.Fatal("No frame within 2s")
	}

	e.Stop()
	// Should not panic on double stop
	e.Stop()

	if e.TickCount() == 0 {
		t.Error("Expected at least one tick")
	}

	// the collision index is gone after Stop; a manual tick still runs
	before := e.TickCount()
	e.Tick()
	if e.TickCount() != before+1 {
		t.Error("Manual tick after Stop should advance the counter")
	}
	if e.Stats().Frame != 0 {
		t.Error("Collision stages should be inert after Stop")
	}
}

func BenchmarkEngineTick(b *testing.B) {
	e := newTestEngine(400, 1500)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		e.Tick()
	}
}
