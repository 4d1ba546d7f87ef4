package spatial

import (
	"math"

	"github.com/dhconnelly/rtreego"
)

// Default fan-out, matching what a 2D point tree of a few thousand items wants.
const (
	rtreeMinChildren = 25
	rtreeMaxChildren = 50
)

// rtreeItem wraps a stored item so it satisfies rtreego.Spatial.
type rtreeItem[T any] struct {
	x, y float64
	item T
	rect rtreego.Rect
}

func (r *rtreeItem[T]) Bounds() rtreego.Rect { return r.rect }

// rtreePad widens point and query rectangles slightly. rtreego treats touching
// rectangles as disjoint, and a zero radius would otherwise never intersect.
// The exact square test still decides membership.
func rtreePad(x, y float64) float64 {
	return 1e-9 * (1 + math.Max(math.Abs(x), math.Abs(y)))
}

// RTree stores items in an R-tree. Unlike the grid-like backends it has no
// notion of bounds internally, so out-of-bounds items are indexed like any
// other point.
type RTree[T any] struct {
	bounds  Bounds
	min     int
	max     int
	tree    *rtreego.Rtree
	count   int
	outside int
}

// NewRTree creates an empty R-tree. capacity sets the maximum node fan-out;
// Unlimited or non-positive values use the default.
func NewRTree[T any](bounds Bounds, capacity int) *RTree[T] {
	maxChildren := rtreeMaxChildren
	if capacity > 0 && capacity != Unlimited {
		maxChildren = min(max(capacity, 4), 256)
	}
	minChildren := rtreeMinChildren
	if maxChildren != rtreeMaxChildren {
		minChildren = max(maxChildren/2, 2)
	}
	return &RTree[T]{
		bounds: bounds,
		min:    minChildren,
		max:    maxChildren,
		tree:   rtreego.NewTree(2, minChildren, maxChildren),
	}
}

// Clear drops the tree and starts a fresh one.
func (t *RTree[T]) Clear() {
	if t.count == 0 {
		return
	}
	t.tree = rtreego.NewTree(2, t.min, t.max)
	t.count = 0
	t.outside = 0
}

// Add stores item at (x, y).
func (t *RTree[T]) Add(x, y float64, item T) {
	t.count++
	if !t.bounds.Contains(x, y) {
		t.outside++
	}
	p := rtreego.Point{x, y}
	t.tree.Insert(&rtreeItem[T]{
		x:    x,
		y:    y,
		item: item,
		rect: p.ToRect(rtreePad(x, y)),
	})
}

// ItemsInRadius returns up to maxCount items in the square around (x, y).
func (t *RTree[T]) ItemsInRadius(x, y, radius float64, maxCount int) ([]T, error) {
	return t.AppendInRadius(nil, x, y, radius, maxCount)
}

// AppendInRadius appends up to maxCount matching items to dst.
func (t *RTree[T]) AppendInRadius(dst []T, x, y, radius float64, maxCount int) ([]T, error) {
	limit, err := queryLimit(len(dst), radius, maxCount)
	if err != nil || len(dst) >= limit || t.count == 0 {
		return dst, err
	}
	want := limit - len(dst)

	center := rtreego.Point{x, y}
	box := center.ToRect(radius + 2*rtreePad(x, y))

	filter := func(results []rtreego.Spatial, obj rtreego.Spatial) (refuse, abort bool) {
		if len(results) >= want {
			return true, true
		}
		it := obj.(*rtreeItem[T])
		return !inSquare(it.x, it.y, x, y, radius), false
	}

	for _, obj := range t.tree.SearchIntersect(box, filter) {
		dst = append(dst, obj.(*rtreeItem[T]).item)
	}
	return dst, nil
}

// Len returns the number of stored items.
func (t *RTree[T]) Len() int { return t.count }

// Bounds returns the region the index was built for.
func (t *RTree[T]) Bounds() Bounds { return t.bounds }

// Stats reports the item counts. The tree's node layout is not exposed.
func (t *RTree[T]) Stats() Stats {
	return Stats{Items: t.count, Outside: t.outside}
}
