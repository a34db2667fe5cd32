package sim

import (
	"slices"

	"collision-pipeline/internal/collision"
)

// member is the constraint for group elements.
type member interface {
	comparable
	collision.Collidable
}

// EntityGroup is an ordered set of entities of one role. It is not
// synchronized; the engine only touches it from the frame loop, outside the
// compute stage of the collision process.
type EntityGroup[T member] struct {
	members []T
	index   map[T]struct{}
}

// NewEntityGroup creates an empty group with room for capacity members.
func NewEntityGroup[T member](capacity int) *EntityGroup[T] {
	return &EntityGroup[T]{
		members: make([]T, 0, capacity),
		index:   make(map[T]struct{}, capacity),
	}
}

// Add inserts e. Adding a member twice is a no-op.
func (g *EntityGroup[T]) Add(e T) bool {
	if _, ok := g.index[e]; ok {
		return false
	}
	g.index[e] = struct{}{}
	g.members = append(g.members, e)
	return true
}

// Remove deletes e, keeping the order of the others.
func (g *EntityGroup[T]) Remove(e T) bool {
	if _, ok := g.index[e]; !ok {
		return false
	}
	delete(g.index, e)
	for i, m := range g.members {
		if m == e {
			g.members = slices.Delete(g.members, i, i+1)
			break
		}
	}
	return true
}

// Flush drops every member that is no longer live and returns them in dst.
func (g *EntityGroup[T]) Flush(dst []T) []T {
	kept := g.members[:0]
	for _, m := range g.members {
		if m.IsLive() {
			kept = append(kept, m)
			continue
		}
		delete(g.index, m)
		dst = append(dst, m)
	}
	clear(g.members[len(kept):])
	g.members = kept
	return dst
}

// Len returns the number of members.
func (g *EntityGroup[T]) Len() int {
	return len(g.members)
}

// Contains reports whether e is a member.
func (g *EntityGroup[T]) Contains(e T) bool {
	_, ok := g.index[e]
	return ok
}

// Each calls fn for every member in order.
func (g *EntityGroup[T]) Each(fn func(T)) {
	for _, m := range g.members {
		fn(m)
	}
}

// SnapshotInto appends the current members to buf.
func (g *EntityGroup[T]) SnapshotInto(buf []collision.Collidable) []collision.Collidable {
	for _, m := range g.members {
		buf = append(buf, m)
	}
	return buf
}
