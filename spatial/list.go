package spatial

// List is the unindexed backend: every query scans every stored item.
// It is what New returns for Unlimited capacity and the reference the other
// backends are checked against.
type List[T any] struct {
	bounds  Bounds
	entries []entry[T]
}

// NewList creates an empty brute-force index.
func NewList[T any](bounds Bounds) *List[T] {
	return &List[T]{
		bounds:  bounds,
		entries: make([]entry[T], 0, 64),
	}
}

// Clear removes all items.
func (l *List[T]) Clear() {
	clear(l.entries)
	l.entries = l.entries[:0]
}

// Add stores item at (x, y).
func (l *List[T]) Add(x, y float64, item T) {
	l.entries = append(l.entries, entry[T]{x: x, y: y, item: item})
}

// ItemsInRadius returns up to maxCount items in the square around (x, y).
func (l *List[T]) ItemsInRadius(x, y, radius float64, maxCount int) ([]T, error) {
	return l.AppendInRadius(nil, x, y, radius, maxCount)
}

// AppendInRadius appends up to maxCount matching items to dst.
func (l *List[T]) AppendInRadius(dst []T, x, y, radius float64, maxCount int) ([]T, error) {
	limit, err := queryLimit(len(dst), radius, maxCount)
	if err != nil {
		return dst, err
	}
	return appendMatches(dst, l.entries, x, y, radius, limit), nil
}

// Len returns the number of stored items.
func (l *List[T]) Len() int { return len(l.entries) }

// Bounds returns the covered region.
func (l *List[T]) Bounds() Bounds { return l.bounds }

// Stats reports the item count. Out-of-bounds items are counted but not
// stored separately.
func (l *List[T]) Stats() Stats {
	outside := 0
	for i := range l.entries {
		if !l.bounds.Contains(l.entries[i].x, l.entries[i].y) {
			outside++
		}
	}
	return Stats{Items: len(l.entries), Outside: outside, Buckets: 1}
}
