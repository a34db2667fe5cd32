package collision

import (
	"collision-pipeline/internal/geom"
	"collision-pipeline/pkg/logger"
)

// probe is a minimal Collidable with a centered hitbox that records every
// callback it receives.
type probe struct {
	name        string
	x, y        float64
	lastX       float64
	lastY       float64
	w, h        float64
	live        bool
	filter      func(other Collidable) bool
	afterFilter func(p *probe) // runs after every CollidesWith call

	filterCalls int
	hits        []hit
}

type hit struct {
	other Collidable
	x, y  float64
}

func newProbe(name string, x, y, size float64) *probe {
	return &probe{name: name, x: x, y: y, lastX: x, lastY: y, w: size, h: size, live: true}
}

// moving returns a probe that travelled from (fromX, fromY) to (toX, toY).
func moving(name string, fromX, fromY, toX, toY, size float64) *probe {
	p := newProbe(name, toX, toY, size)
	p.lastX, p.lastY = fromX, fromY
	return p
}

func (p *probe) X() float64     { return p.x }
func (p *probe) Y() float64     { return p.y }
func (p *probe) LastX() float64 { return p.lastX }
func (p *probe) LastY() float64 { return p.lastY }
func (p *probe) IsLive() bool   { return p.live }

func (p *probe) Hitbox(out *geom.Rect) {
	out.SetCentered(p.x, p.y, p.w, p.h)
}

func (p *probe) CollidesWith(other Collidable) bool {
	p.filterCalls++
	ok := p.filter == nil || p.filter(other)
	if p.afterFilter != nil {
		p.afterFilter(p)
	}
	return ok
}

func (p *probe) OnCollision(other Collidable, x, y float64) {
	p.hits = append(p.hits, hit{other: other, x: x, y: y})
}

func (p *probe) String() string { return p.name }

// set is an ordered Group over probes.
type set struct {
	members []*probe
}

func group(members ...*probe) *set {
	return &set{members: members}
}

func (s *set) SnapshotInto(buf []Collidable) []Collidable {
	for _, m := range s.members {
		buf = append(buf, m)
	}
	return buf
}

func (s *set) remove(p *probe) {
	for i, m := range s.members {
		if m == p {
			s.members = append(s.members[:i], s.members[i+1:]...)
			return
		}
	}
}

var testWorld = World{Width: 100, Height: 100, TileSize: 8, Margin: 64}

func newTestProcess(targets, movers Group) *Process {
	p := New(targets, movers, Config{Logger: logger.Discard()})
	p.Init(testWorld)
	return p
}
