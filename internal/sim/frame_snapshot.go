package sim

import (
	"sync"
	"sync/atomic"
	"time"

	"collision-pipeline/internal/collision"
	"collision-pipeline/internal/geom"
)

// SnapshotLimits caps the per-frame snapshot slices so a runaway world
// cannot balloon memory on the consumer side.
type SnapshotLimits struct {
	MaxUnits    int
	MaxBullets  int
	MaxContacts int
	MaxNodes    int
}

// DefaultSnapshotLimits provides production-safe default limits
var DefaultSnapshotLimits = SnapshotLimits{
	MaxUnits:    2000,
	MaxBullets:  4000,
	MaxContacts: 1000,
	MaxNodes:    4096,
}

// EntitySnapshot is an immutable copy of entity state.
// Uses value types (not pointers) to ensure immutability.
type EntitySnapshot struct {
	ID    uint32  `json:"id"`
	Kind  Kind    `json:"kind"`
	Team  int     `json:"team"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	LastX float64 `json:"lastX"`
	LastY float64 `json:"lastY"`
	Size  float64 `json:"size"`
	HP    int     `json:"hp,omitempty"`
}

// ContactSnapshot is a resolved pair: the notified contact point and the
// two entity IDs.
type ContactSnapshot struct {
	A uint32  `json:"a"`
	B uint32  `json:"b"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FrameSnapshot is the state of one completed frame for consumers running
// outside the frame loop (debug server, renderers).
type FrameSnapshot struct {
	Sequence  uint64
	Tick      uint64
	Timestamp time.Time

	Bounds     geom.Rect
	Collision  collision.FrameStats
	Units      []EntitySnapshot
	Bullets    []EntitySnapshot
	Contacts   []ContactSnapshot
	IndexNodes []geom.Rect

	TotalHits  int
	TotalKills int
}

// CopyInto deep-copies s into dst, reusing dst's slices.
func (s *FrameSnapshot) CopyInto(dst *FrameSnapshot) {
	units, bullets, contacts, nodes := dst.Units, dst.Bullets, dst.Contacts, dst.IndexNodes
	*dst = *s
	dst.Units = append(units[:0], s.Units...)
	dst.Bullets = append(bullets[:0], s.Bullets...)
	dst.Contacts = append(contacts[:0], s.Contacts...)
	dst.IndexNodes = append(nodes[:0], s.IndexNodes...)
}

// FramePool pre-allocates snapshots to avoid GC pressure.
// Triple buffered: the frame loop fills one slot while readers copy out of
// the last published one. Each slot has its own lock so a slow reader only
// ever blocks a writer that has lapped it twice.
type FramePool struct {
	slots    [3]FrameSnapshot
	locks    [3]sync.RWMutex
	limits   SnapshotLimits
	writeIdx uint32 // only touched by the frame loop
	readIdx  atomic.Int32
	sequence uint64
}

// NewFramePool creates a pool with pre-allocated slices.
func NewFramePool(limits SnapshotLimits) *FramePool {
	p := &FramePool{limits: limits}
	p.readIdx.Store(-1)

	for i := range p.slots {
		p.slots[i] = FrameSnapshot{
			Units:      make([]EntitySnapshot, 0, limits.MaxUnits),
			Bullets:    make([]EntitySnapshot, 0, limits.MaxBullets),
			Contacts:   make([]ContactSnapshot, 0, limits.MaxContacts),
			IndexNodes: make([]geom.Rect, 0, limits.MaxNodes),
		}
	}
	return p
}

// AcquireWrite locks and returns the next write slot with its slices reset.
// The caller fills it and must call PublishWrite.
func (p *FramePool) AcquireWrite() *FrameSnapshot {
	p.writeIdx = (p.writeIdx + 1) % 3
	p.locks[p.writeIdx].Lock()

	snap := &p.slots[p.writeIdx]
	snap.Units = snap.Units[:0]
	snap.Bullets = snap.Bullets[:0]
	snap.Contacts = snap.Contacts[:0]
	snap.IndexNodes = snap.IndexNodes[:0]

	p.sequence++
	snap.Sequence = p.sequence
	snap.Timestamp = time.Now()
	return snap
}

// PublishWrite unlocks the slot returned by AcquireWrite and makes it the
// one readers see.
func (p *FramePool) PublishWrite() {
	p.locks[p.writeIdx].Unlock()
	p.readIdx.Store(int32(p.writeIdx))
}

// Read copies the latest published frame into dst. It returns false if no
// frame has been published yet.
func (p *FramePool) Read(dst *FrameSnapshot) bool {
	idx := p.readIdx.Load()
	if idx < 0 {
		return false
	}

	p.locks[idx].RLock()
	defer p.locks[idx].RUnlock()
	p.slots[idx].CopyInto(dst)
	return true
}

// Limits returns the caps applied by the producer.
func (p *FramePool) Limits() SnapshotLimits {
	return p.limits
}
