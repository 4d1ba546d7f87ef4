package spatial

import (
	"errors"
	"fmt"
	"math"
)

// Unlimited is the capacity that disables subdivision entirely.
// New returns the brute-force List for it.
const Unlimited = math.MaxInt

// ErrInvalidRadius is returned by queries issued with a negative or NaN radius.
var ErrInvalidRadius = errors.New("spatial: invalid radius")

// Index stores point-located items and answers square-neighbourhood queries.
//
// Add and Clear must not run concurrently with anything else. Once the frame's
// items are added, ItemsInRadius and AppendInRadius only read, so any number of
// goroutines may query the same built index.
type Index[T any] interface {
	// Clear removes every item. Allocated storage is kept for the next frame.
	Clear()
	// Add stores item at (x, y). Points outside Bounds are accepted.
	Add(x, y float64, item T)
	// ItemsInRadius returns up to maxCount items within the square of
	// half-width radius centred on (x, y). Order is unspecified.
	ItemsInRadius(x, y, radius float64, maxCount int) ([]T, error)
	// AppendInRadius is ItemsInRadius appending to dst. maxCount caps the
	// number of items appended by this call.
	AppendInRadius(dst []T, x, y, radius float64, maxCount int) ([]T, error)
	// Len returns the number of stored items.
	Len() int
	// Bounds returns the region the index was built for.
	Bounds() Bounds
	// Stats describes the current shape of the structure.
	Stats() Stats
}

// Stats describes the shape of an index at a point in time.
type Stats struct {
	Items    int `csv:"items" json:"items"`
	Outside  int `csv:"outside" json:"outside"`
	Buckets  int `csv:"buckets" json:"buckets"`
	MaxDepth int `csv:"max_depth" json:"max_depth"`
}

// New creates an index covering bounds. A capacity of Unlimited (or any
// non-positive value) yields an unindexed List; otherwise a QuadTree that
// splits nodes holding more than capacity items until they shrink below
// bucketSize.
func New[T any](bounds Bounds, capacity int, bucketSize float64) Index[T] {
	if capacity <= 0 || capacity == Unlimited {
		return NewList[T](bounds)
	}
	return NewQuadTree[T](bounds, capacity, bucketSize)
}

type entry[T any] struct {
	x, y float64
	item T
}

// queryLimit validates query arguments and returns the length dst may grow to.
// A zero limit gap means the query cannot return anything.
func queryLimit(have int, radius float64, maxCount int) (int, error) {
	if radius < 0 || math.IsNaN(radius) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidRadius, radius)
	}
	if maxCount <= 0 {
		return have, nil
	}
	if maxCount > math.MaxInt-have {
		return math.MaxInt, nil
	}
	return have + maxCount, nil
}

// appendMatches appends items of es that pass the square test until dst
// reaches limit.
func appendMatches[T any](dst []T, es []entry[T], x, y, r float64, limit int) []T {
	for i := range es {
		if len(dst) >= limit {
			return dst
		}
		e := &es[i]
		if inSquare(e.x, e.y, x, y, r) {
			dst = append(dst, e.item)
		}
	}
	return dst
}

// outsideSet holds entries added outside the index bounds. They are scanned
// linearly by queries whose box is not covered by the bounds.
type outsideSet[T any] struct {
	entries []entry[T]
}

func (o *outsideSet[T]) add(x, y float64, item T) {
	o.entries = append(o.entries, entry[T]{x: x, y: y, item: item})
}

func (o *outsideSet[T]) reset() {
	clear(o.entries)
	o.entries = o.entries[:0]
}

func (o *outsideSet[T]) appendMatches(dst []T, bounds, q rect, x, y, r float64, limit int) []T {
	if len(o.entries) == 0 || len(dst) >= limit || bounds.covers(q) {
		return dst
	}
	return appendMatches(dst, o.entries, x, y, r, limit)
}
