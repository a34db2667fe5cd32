package collision

// Pair is a detected collision between a mover (A) and a target (B).
type Pair struct {
	A, B Collidable
}

// PairBuffer accumulates the pairs of one frame in discovery order.
// It has a single writer and is never read while being written.
type PairBuffer struct {
	pairs []Pair
}

// Add appends the pair (a, b).
func (b *PairBuffer) Add(a, c Collidable) {
	b.pairs = append(b.pairs, Pair{A: a, B: c})
}

// Len returns the number of pairs.
func (b *PairBuffer) Len() int {
	return len(b.pairs)
}

// At returns the i-th pair.
func (b *PairBuffer) At(i int) Pair {
	return b.pairs[i]
}

// Reset empties the buffer, dropping entity references but keeping capacity.
func (b *PairBuffer) Reset() {
	clear(b.pairs)
	b.pairs = b.pairs[:0]
}

// CopyTo appends the buffered pairs to dst.
func (b *PairBuffer) CopyTo(dst []Pair) []Pair {
	return append(dst, b.pairs...)
}

// Midpoint is the contact point reported to both members of a pair: the
// midpoint of their current positions.
func Midpoint(a, b Collidable) (float64, float64) {
	return (a.X() + b.X()) / 2, (a.Y() + b.Y()) / 2
}

// Resolve notifies both members of every pair, in buffer order, with the
// other member and the same contact point. It returns the number of pairs
// resolved.
func Resolve(buf *PairBuffer) int {
	for _, p := range buf.pairs {
		cx, cy := Midpoint(p.A, p.B)
		p.A.OnCollision(p.B, cx, cy)
		p.B.OnCollision(p.A, cx, cy)
	}
	return len(buf.pairs)
}
