// Package spatial provides the rebuildable broad-phase indexes used by the
// collision pipeline.
//
// Indexes are cleared and refilled every frame. All structures keep their
// backing slices across Clear so a steady-state frame does not allocate.
// None of them are safe for concurrent use; the owner serializes access.
package spatial

import "collision-pipeline/internal/geom"

// Index maps axis-aligned boxes to items and answers rectangular queries.
//
// Query may over-approximate but must never omit an item whose box
// overlaps the region.
type Index[T any] interface {
	// Clear drops every entry. Capacity is kept.
	Clear()
	// Insert adds item keyed by box.
	Insert(item T, box geom.Rect)
	// Query appends to out every item whose box overlaps region and
	// returns the extended slice.
	Query(out []T, region geom.Rect) []T
	// Walk calls fn with the bounds of every internal cell or node.
	Walk(fn func(geom.Rect))
	// Stats reports the current shape of the index.
	Stats() Stats
}

// Factory builds an index over the given world bounds.
type Factory[T any] func(bounds geom.Rect) Index[T]

// Stats describes an index for debugging/profiling.
type Stats struct {
	Kind     string
	Items    int
	Nodes    int // quadtree nodes or grid cells
	NonEmpty int
	MaxDepth int // quadtree only
	MaxInOne int // most entries held by a single node or cell
}

// entry is an item together with the box it was inserted under.
type entry[T any] struct {
	item T
	box  geom.Rect
}

// Kind names an index implementation in configuration.
type Kind string

const (
	KindQuadTree Kind = "quadtree"
	KindGrid     Kind = "grid"
)

// Options configures NewFactory.
type Options struct {
	Kind       Kind
	MaxObjects int     // quadtree split threshold
	MaxDepth   int     // quadtree depth cap
	CellSize   float64 // grid cell edge
}

// NewFactory returns a factory for the configured kind. Unknown kinds fall
// back to the quadtree.
func NewFactory[T any](opts Options) Factory[T] {
	switch opts.Kind {
	case KindGrid:
		return func(bounds geom.Rect) Index[T] {
			return NewGrid[T](bounds, opts.CellSize)
		}
	default:
		return func(bounds geom.Rect) Index[T] {
			return NewQuadTree[T](bounds, QuadTreeOptions{
				MaxObjects: opts.MaxObjects,
				MaxDepth:   opts.MaxDepth,
			})
		}
	}
}
