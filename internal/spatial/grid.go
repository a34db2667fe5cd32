package spatial

import (
	"math"

	"collision-pipeline/internal/geom"
)

// Grid is a uniform-cell broad phase over a fixed world rectangle.
//
// Entries are stored once in a flat slice; cells hold indices into it
// (not pointers) so Clear is O(cells) and a rebuild does not allocate.
// A box is registered in every cell it touches. Query deduplicates with a
// per-entry stamp.
//
// Optimal cell size is about the size of the largest hitbox plus the largest
// per-frame displacement. Boxes outside the world are clamped to edge cells.
//
// Memory layout: cells are stored in row-major order (cells[row*cols+col]).
type Grid[T any] struct {
	bounds      geom.Rect
	cellSize    float64
	invCellSize float64 // 1/cellSize for faster division
	cols, rows  int

	cells   [][]uint32
	entries []entry[T]
	stamps  []uint32
	stamp   uint32
}

// DefaultCellSize is used when NewGrid is given a non-positive cell size.
const DefaultCellSize = 64.0

// NewGrid creates a grid covering bounds with square cells of cellSize.
func NewGrid[T any](bounds geom.Rect, cellSize float64) *Grid[T] {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}

	cols := int(math.Ceil(bounds.W / cellSize))
	rows := int(math.Ceil(bounds.H / cellSize))

	// Ensure at least 1x1 grid
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	cells := make([][]uint32, cols*rows)
	for i := range cells {
		cells[i] = make([]uint32, 0, 4)
	}

	return &Grid[T]{
		bounds:      bounds,
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cols:        cols,
		rows:        rows,
		cells:       cells,
		entries:     make([]entry[T], 0, 64),
		stamps:      make([]uint32, 0, 64),
	}
}

// Clear resets all cells without deallocating underlying memory.
func (g *Grid[T]) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	clear(g.entries)
	g.entries = g.entries[:0]
	g.stamps = g.stamps[:0]
}

// Insert registers item in every cell its box touches.
func (g *Grid[T]) Insert(item T, box geom.Rect) {
	idx := uint32(len(g.entries))
	g.entries = append(g.entries, entry[T]{item: item, box: box})
	g.stamps = append(g.stamps, 0)

	minCol, minRow, maxCol, maxRow := g.cellRange(box)
	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			c := row*g.cols + col
			g.cells[c] = append(g.cells[c], idx)
		}
	}
}

// Query appends every entry whose box overlaps region. Each entry is
// reported at most once per call.
func (g *Grid[T]) Query(out []T, region geom.Rect) []T {
	g.stamp++
	if g.stamp == 0 {
		// wrapped: old stamps could collide with the new generation
		clear(g.stamps)
		g.stamp = 1
	}

	minCol, minRow, maxCol, maxRow := g.cellRange(region)
	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			for _, idx := range g.cells[row*g.cols+col] {
				if g.stamps[idx] == g.stamp {
					continue
				}
				g.stamps[idx] = g.stamp
				if g.entries[idx].box.Overlaps(region) {
					out = append(out, g.entries[idx].item)
				}
			}
		}
	}
	return out
}

// cellRange returns the clamped inclusive cell range covered by box.
func (g *Grid[T]) cellRange(box geom.Rect) (minCol, minRow, maxCol, maxRow int) {
	minCol = g.clampCol(int(math.Floor((box.X - g.bounds.X) * g.invCellSize)))
	maxCol = g.clampCol(int(math.Floor((box.MaxX() - g.bounds.X) * g.invCellSize)))
	minRow = g.clampRow(int(math.Floor((box.Y - g.bounds.Y) * g.invCellSize)))
	maxRow = g.clampRow(int(math.Floor((box.MaxY() - g.bounds.Y) * g.invCellSize)))
	return
}

func (g *Grid[T]) clampCol(c int) int {
	if c < 0 {
		return 0
	}
	if c >= g.cols {
		return g.cols - 1
	}
	return c
}

func (g *Grid[T]) clampRow(r int) int {
	if r < 0 {
		return 0
	}
	if r >= g.rows {
		return g.rows - 1
	}
	return r
}

// Walk visits every cell rectangle in row-major order.
func (g *Grid[T]) Walk(fn func(geom.Rect)) {
	for row := 0; row < g.rows; row++ {
		for col := 0; col < g.cols; col++ {
			fn(geom.Rect{
				X: g.bounds.X + float64(col)*g.cellSize,
				Y: g.bounds.Y + float64(row)*g.cellSize,
				W: g.cellSize,
				H: g.cellSize,
			})
		}
	}
}

// Stats returns grid statistics for debugging/profiling.
func (g *Grid[T]) Stats() Stats {
	s := Stats{Kind: string(KindGrid), Items: len(g.entries), Nodes: len(g.cells)}
	for _, cell := range g.cells {
		if len(cell) > 0 {
			s.NonEmpty++
		}
		if len(cell) > s.MaxInOne {
			s.MaxInOne = len(cell)
		}
	}
	return s
}

// Dimensions returns the grid dimensions.
func (g *Grid[T]) Dimensions() (cols, rows int, cellSize float64) {
	return g.cols, g.rows, g.cellSize
}
