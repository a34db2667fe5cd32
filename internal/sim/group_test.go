package sim

import (
	"testing"

	"collision-pipeline/internal/collision"
)

func TestEntityGroupAddRemove(t *testing.T) {
	g := NewEntityGroup[*Unit](4)
	a := NewUnit(1, 0, 0, 0)
	b := NewUnit(2, 0, 0, 0)
	c := NewUnit(3, 0, 0, 0)

	if !g.Add(a) || !g.Add(b) || !g.Add(c) {
		t.Fatal("Add should accept new members")
	}
	if g.Add(a) {
		t.Error("Adding a member twice should be a no-op")
	}
	if g.Len() != 3 {
		t.Fatalf("Expected 3 members, got %d", g.Len())
	}

	if !g.Remove(b) {
		t.Error("Remove should report an existing member")
	}
	if g.Remove(b) {
		t.Error("Removing twice should report false")
	}
	if g.Contains(b) {
		t.Error("Removed member still contained")
	}

	var order []uint32
	g.Each(func(u *Unit) { order = append(order, u.ID) })
	if len(order) != 2 || order[0] != 1 || order[1] != 3 {
		t.Errorf("Expected order [1 3], got %v", order)
	}
}

func TestEntityGroupFlush(t *testing.T) {
	g := NewEntityGroup[*Bullet](4)
	bullets := make([]*Bullet, 4)
	for i := range bullets {
		bullets[i] = NewBullet(uint32(i+1), 0, 0, 0, 1, 0, 1)
		g.Add(bullets[i])
	}

	bullets[0].Remove()
	bullets[2].Remove()

	removed := g.Flush(nil)
	if len(removed) != 2 || removed[0] != bullets[0] || removed[1] != bullets[2] {
		t.Errorf("Expected bullets 1 and 3 flushed, got %d", len(removed))
	}
	if g.Len() != 2 || !g.Contains(bullets[1]) || !g.Contains(bullets[3]) {
		t.Error("Live bullets should stay in the group")
	}
	if g.Contains(bullets[0]) {
		t.Error("Flushed bullet still indexed")
	}
}

func TestEntityGroupSnapshot(t *testing.T) {
	g := NewEntityGroup[*Unit](2)
	g.Add(NewUnit(1, 0, 0, 0))
	g.Add(NewUnit(2, 0, 0, 0))

	buf := make([]collision.Collidable, 0, 2)
	buf = g.SnapshotInto(buf)
	if len(buf) != 2 {
		t.Fatalf("Expected 2 snapshot entries, got %d", len(buf))
	}

	// later membership changes do not touch an existing snapshot
	g.Add(NewUnit(3, 0, 0, 0))
	if len(buf) != 2 {
		t.Error("Snapshot changed with the group")
	}
}
