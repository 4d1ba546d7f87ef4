package spatial

import (
	"math"

	"github.com/mmcloughlin/geohash"
)

const maxHashLevel = 26 // 52-bit hashes, 2^26 cells per axis

type hashBucket[T any] struct {
	col, row int
	entries  []entry[T]
}

// HashGrid is a sparse uniform grid. The bounds are mapped onto the geohash
// lat/lng square and each occupied cell is keyed by its integer geohash, so
// storage grows with the number of occupied cells rather than the area.
// Queries covering more cells than are occupied scan the occupied list instead.
type HashGrid[T any] struct {
	bounds  Bounds
	level   uint // cells per axis = 1 << level
	cellW   float64
	cellH   float64
	buckets map[uint64]*hashBucket[T]
	active  []*hashBucket[T]
	outside outsideSet[T]
	count   int
}

// NewHashGrid creates a sparse grid whose cells are no larger than bucketSize
// on either axis.
func NewHashGrid[T any](bounds Bounds, bucketSize float64) *HashGrid[T] {
	size := normalizeCellSize(bounds, bucketSize)
	extent := math.Max(bounds.Width, bounds.Height)

	level := uint(1)
	for level < maxHashLevel && extent/float64(uint64(1)<<level) > size {
		level++
	}

	n := float64(uint64(1) << level)
	return &HashGrid[T]{
		bounds:  bounds,
		level:   level,
		cellW:   math.Max(bounds.Width, 0) / n,
		cellH:   math.Max(bounds.Height, 0) / n,
		buckets: make(map[uint64]*hashBucket[T]),
	}
}

// Clear empties every occupied bucket. The buckets stay allocated.
func (h *HashGrid[T]) Clear() {
	for _, b := range h.active {
		clear(b.entries)
		b.entries = b.entries[:0]
	}
	h.active = h.active[:0]
	h.outside.reset()
	h.count = 0
}

// Add stores item at (x, y).
func (h *HashGrid[T]) Add(x, y float64, item T) {
	h.count++
	if !h.bounds.Contains(x, y) {
		h.outside.add(x, y, item)
		return
	}

	col := h.cell(x-h.bounds.X, h.cellW)
	row := h.cell(y-h.bounds.Y, h.cellH)
	key := h.key(col, row)

	b, ok := h.buckets[key]
	if !ok {
		b = &hashBucket[T]{col: col, row: row, entries: make([]entry[T], 0, 4)}
		h.buckets[key] = b
	}
	if len(b.entries) == 0 {
		h.active = append(h.active, b)
	}
	b.entries = append(b.entries, entry[T]{x: x, y: y, item: item})
}

// key returns the geohash of the centre of cell (col, row) on the lat/lng square.
func (h *HashGrid[T]) key(col, row int) uint64 {
	n := float64(uint64(1) << h.level)
	lng := -180 + (float64(col)+0.5)*360/n
	lat := -90 + (float64(row)+0.5)*180/n
	return geohash.EncodeIntWithPrecision(lat, lng, 2*h.level)
}

// cell converts a local offset to a cell index along one axis.
func (h *HashGrid[T]) cell(offset, side float64) int {
	last := int(uint64(1)<<h.level) - 1
	if !(side > 0) {
		return 0
	}
	c := math.Floor(offset / side)
	if c < 0 {
		return 0
	}
	if c >= float64(last) {
		return last
	}
	return int(c)
}

// ItemsInRadius returns up to maxCount items in the square around (x, y).
func (h *HashGrid[T]) ItemsInRadius(x, y, radius float64, maxCount int) ([]T, error) {
	return h.AppendInRadius(nil, x, y, radius, maxCount)
}

// AppendInRadius appends up to maxCount matching items to dst.
func (h *HashGrid[T]) AppendInRadius(dst []T, x, y, radius float64, maxCount int) ([]T, error) {
	limit, err := queryLimit(len(dst), radius, maxCount)
	if err != nil || len(dst) >= limit || h.count == 0 {
		return dst, err
	}

	q := queryRect(x, y, radius)
	br := h.bounds.rect()
	if br.intersects(q) && len(h.active) > 0 {
		c0 := h.cell(q.minX-h.bounds.X, h.cellW)
		c1 := h.cell(q.maxX-h.bounds.X, h.cellW)
		r0 := h.cell(q.minY-h.bounds.Y, h.cellH)
		r1 := h.cell(q.maxY-h.bounds.Y, h.cellH)

		span := float64(c1-c0+1) * float64(r1-r0+1)
		if span > float64(len(h.active)) {
			for _, b := range h.active {
				if b.col < c0 || b.col > c1 || b.row < r0 || b.row > r1 {
					continue
				}
				dst = appendMatches(dst, b.entries, x, y, radius, limit)
				if len(dst) >= limit {
					return dst, nil
				}
			}
		} else {
			for row := r0; row <= r1; row++ {
				for col := c0; col <= c1; col++ {
					b, ok := h.buckets[h.key(col, row)]
					if !ok {
						continue
					}
					dst = appendMatches(dst, b.entries, x, y, radius, limit)
					if len(dst) >= limit {
						return dst, nil
					}
				}
			}
		}
	}

	return h.outside.appendMatches(dst, br, q, x, y, radius, limit), nil
}

// Len returns the number of stored items.
func (h *HashGrid[T]) Len() int { return h.count }

// Bounds returns the covered region.
func (h *HashGrid[T]) Bounds() Bounds { return h.bounds }

// Level returns the subdivision level; the grid has 1<<Level cells per axis.
func (h *HashGrid[T]) Level() uint { return h.level }

// Stats reports occupied buckets.
func (h *HashGrid[T]) Stats() Stats {
	return Stats{
		Items:   h.count,
		Outside: len(h.outside.entries),
		Buckets: len(h.active),
	}
}
