package spatial

import "collision-pipeline/internal/geom"

const (
	// DefaultMaxObjects is the number of entries a leaf holds before it splits.
	DefaultMaxObjects = 5
	// DefaultMaxDepth caps subdivision so stacked entities cannot recurse forever.
	DefaultMaxDepth = 8
)

// QuadTreeOptions configures NewQuadTree. Zero values pick the defaults.
type QuadTreeOptions struct {
	MaxObjects int
	MaxDepth   int
}

// QuadTree is a region quadtree over a fixed world rectangle.
//
// Entries live in the deepest node whose bounds fully contain their box;
// boxes straddling a split line stay in the parent. Boxes outside the world
// rectangle are kept at the root so queries never lose them.
//
// Nodes are stored in one slice and addressed by index. Clear truncates the
// slice, and the next rebuild reuses the nodes and their entry slices.
type QuadTree[T any] struct {
	bounds     geom.Rect
	maxObjects int
	maxDepth   int

	nodes []quadNode[T]
	count int
	stack []int32 // query scratch
}

type quadNode[T any] struct {
	bounds   geom.Rect
	depth    int
	children int32 // index of the first of four children, -1 for a leaf
	items    []entry[T]
}

// NewQuadTree creates an empty tree covering bounds.
func NewQuadTree[T any](bounds geom.Rect, opts QuadTreeOptions) *QuadTree[T] {
	if opts.MaxObjects <= 0 {
		opts.MaxObjects = DefaultMaxObjects
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}

	t := &QuadTree[T]{
		bounds:     bounds,
		maxObjects: opts.MaxObjects,
		maxDepth:   opts.MaxDepth,
		nodes:      make([]quadNode[T], 0, 64),
		stack:      make([]int32, 0, 32),
	}
	t.nodes = append(t.nodes, quadNode[T]{bounds: bounds, children: -1})
	return t
}

// Bounds returns the world rectangle the tree was built over.
func (t *QuadTree[T]) Bounds() geom.Rect {
	return t.bounds
}

// Len returns the number of inserted entries.
func (t *QuadTree[T]) Len() int {
	return t.count
}

// Clear removes all entries and collapses the tree to its root.
func (t *QuadTree[T]) Clear() {
	for i := range t.nodes {
		n := &t.nodes[i]
		clear(n.items)
		n.items = n.items[:0]
	}
	t.nodes = t.nodes[:1]
	t.nodes[0].children = -1
	t.count = 0
}

// Insert adds item under box.
func (t *QuadTree[T]) Insert(item T, box geom.Rect) {
	t.count++
	e := entry[T]{item: item, box: box}

	if !t.bounds.Contains(box) {
		t.nodes[0].items = append(t.nodes[0].items, e)
		return
	}
	t.insert(0, e)
}

func (t *QuadTree[T]) insert(ni int32, e entry[T]) {
	for {
		n := &t.nodes[ni]

		if n.children < 0 {
			if len(n.items) < t.maxObjects || n.depth >= t.maxDepth {
				n.items = append(n.items, e)
				return
			}
			t.split(ni)
			n = &t.nodes[ni]
		}

		child := t.childFor(ni, e.box)
		if child < 0 {
			n.items = append(n.items, e)
			return
		}
		ni = child
	}
}

// split turns leaf ni into an inner node and pushes down every entry that
// fits a single child.
func (t *QuadTree[T]) split(ni int32) {
	first := int32(len(t.nodes))
	parent := t.nodes[ni]
	quads := parent.bounds.Quadrants()

	for i := 0; i < 4; i++ {
		if len(t.nodes) < cap(t.nodes) {
			t.nodes = t.nodes[:len(t.nodes)+1]
			n := &t.nodes[len(t.nodes)-1]
			n.bounds = quads[i]
			n.depth = parent.depth + 1
			n.children = -1
			n.items = n.items[:0]
		} else {
			t.nodes = append(t.nodes, quadNode[T]{
				bounds:   quads[i],
				depth:    parent.depth + 1,
				children: -1,
			})
		}
	}
	t.nodes[ni].children = first

	items := t.nodes[ni].items
	kept := items[:0]
	for _, e := range items {
		if c := t.childFor(ni, e.box); c >= 0 {
			t.nodes[c].items = append(t.nodes[c].items, e)
		} else {
			kept = append(kept, e)
		}
	}
	clear(items[len(kept):])
	t.nodes[ni].items = kept
}

// childFor returns the child of ni that fully contains box, or -1.
func (t *QuadTree[T]) childFor(ni int32, box geom.Rect) int32 {
	first := t.nodes[ni].children
	for i := int32(0); i < 4; i++ {
		if t.nodes[first+i].bounds.Contains(box) {
			return first + i
		}
	}
	return -1
}

// Query appends every entry whose box overlaps region.
func (t *QuadTree[T]) Query(out []T, region geom.Rect) []T {
	t.stack = append(t.stack[:0], 0)

	for len(t.stack) > 0 {
		ni := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		n := &t.nodes[ni]

		for i := range n.items {
			if n.items[i].box.Overlaps(region) {
				out = append(out, n.items[i].item)
			}
		}

		if n.children < 0 {
			continue
		}
		for c := n.children; c < n.children+4; c++ {
			if t.nodes[c].bounds.Overlaps(region) {
				t.stack = append(t.stack, c)
			}
		}
	}

	return out
}

// Walk visits the bounds of every node, parents before children.
func (t *QuadTree[T]) Walk(fn func(geom.Rect)) {
	for i := range t.nodes {
		fn(t.nodes[i].bounds)
	}
}

// Stats returns tree statistics.
func (t *QuadTree[T]) Stats() Stats {
	s := Stats{Kind: string(KindQuadTree), Items: t.count, Nodes: len(t.nodes)}
	for i := range t.nodes {
		n := &t.nodes[i]
		if len(n.items) > 0 {
			s.NonEmpty++
		}
		if len(n.items) > s.MaxInOne {
			s.MaxInOne = len(n.items)
		}
		if n.depth > s.MaxDepth {
			s.MaxDepth = n.depth
		}
	}
	return s
}
