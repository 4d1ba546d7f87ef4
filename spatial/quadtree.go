package spatial

import "math"

// maxQuadDepth bounds subdivision when many items share one point.
const maxQuadDepth = 24

type quadNode[T any] struct {
	region   rect
	entries  []entry[T]
	children int // index of the NW child, 0 for leaves (the root is never a child)
	depth    int
}

// QuadTree is a point-region quadtree. A leaf splits into four quadrants when it
// holds more than capacity entries and its quadrants would still be at least
// bucketSize wide. It suits skewed distributions such as particles clustering
// around the centre of the screen.
//
// Nodes live in one pooled slice. Clear keeps the pool and every node's entry
// storage so a rebuilt frame of similar shape does not allocate.
type QuadTree[T any] struct {
	bounds   Bounds
	capacity int
	minSize  float64
	nodes    []quadNode[T]
	used     int
	outside  outsideSet[T]
	count    int
	maxDepth int
}

// NewQuadTree creates an empty quadtree covering bounds.
func NewQuadTree[T any](bounds Bounds, capacity int, bucketSize float64) *QuadTree[T] {
	if capacity <= 0 {
		capacity = Unlimited
	}
	q := &QuadTree[T]{
		bounds:   bounds,
		capacity: capacity,
		minSize:  minQuadSize(bounds, bucketSize),
		nodes:    make([]quadNode[T], 1, 64),
		used:     1,
	}
	q.nodes[0].region = bounds.rect()
	return q
}

// minQuadSize returns the smallest quadrant side that may still be created.
func minQuadSize(bounds Bounds, bucketSize float64) float64 {
	if bucketSize > 0 {
		return bucketSize
	}
	side := math.Max(bounds.Width, bounds.Height) / (1 << 16)
	if !(side > 0) || math.IsInf(side, 0) {
		side = 1
	}
	return side
}

// Clear removes all items and returns every node to the pool.
func (q *QuadTree[T]) Clear() {
	for i := 0; i < q.used; i++ {
		n := &q.nodes[i]
		clear(n.entries)
		n.entries = n.entries[:0]
		n.children = 0
	}
	q.used = 1
	q.nodes[0].region = q.bounds.rect()
	q.nodes[0].depth = 0
	q.outside.reset()
	q.count = 0
	q.maxDepth = 0
}

// Add stores item at (x, y).
func (q *QuadTree[T]) Add(x, y float64, item T) {
	q.count++
	if !q.bounds.Contains(x, y) {
		q.outside.add(x, y, item)
		return
	}

	i := 0
	for q.nodes[i].children != 0 {
		n := &q.nodes[i]
		i = n.children + n.region.quadrantOf(x, y)
	}

	n := &q.nodes[i]
	n.entries = append(n.entries, entry[T]{x: x, y: y, item: item})
	if len(n.entries) > q.capacity && q.canSplit(n) {
		q.split(i)
	}
}

func (q *QuadTree[T]) canSplit(n *quadNode[T]) bool {
	if n.depth >= maxQuadDepth {
		return false
	}
	r := n.region
	return math.Min(r.maxX-r.minX, r.maxY-r.minY)/2 >= q.minSize
}

// split turns leaf i into an internal node and pushes its entries down.
func (q *QuadTree[T]) split(i int) {
	first := q.alloc(q.nodes[i].region, q.nodes[i].depth+1)

	n := &q.nodes[i]
	n.children = first
	moved := n.entries
	for _, e := range moved {
		c := first + n.region.quadrantOf(e.x, e.y)
		q.nodes[c].entries = append(q.nodes[c].entries, e)
	}
	clear(moved)
	n.entries = moved[:0]

	for c := first; c < first+4; c++ {
		if len(q.nodes[c].entries) > q.capacity && q.canSplit(&q.nodes[c]) {
			q.split(c)
		}
	}
}

// alloc takes four consecutive nodes from the pool, growing it when needed.
func (q *QuadTree[T]) alloc(parent rect, depth int) int {
	first := q.used
	for k := 0; k < 4; k++ {
		if q.used == len(q.nodes) {
			q.nodes = append(q.nodes, quadNode[T]{})
		}
		n := &q.nodes[q.used]
		n.region = parent.quadrant(k)
		n.entries = n.entries[:0]
		n.children = 0
		n.depth = depth
		q.used++
	}
	if depth > q.maxDepth {
		q.maxDepth = depth
	}
	return first
}

// ItemsInRadius returns up to maxCount items in the square around (x, y).
func (q *QuadTree[T]) ItemsInRadius(x, y, radius float64, maxCount int) ([]T, error) {
	return q.AppendInRadius(nil, x, y, radius, maxCount)
}

// AppendInRadius appends up to maxCount matching items to dst.
func (q *QuadTree[T]) AppendInRadius(dst []T, x, y, radius float64, maxCount int) ([]T, error) {
	limit, err := queryLimit(len(dst), radius, maxCount)
	if err != nil || len(dst) >= limit || q.count == 0 {
		return dst, err
	}

	r := queryRect(x, y, radius)
	dst = q.query(0, dst, r, x, y, radius, limit)
	return q.outside.appendMatches(dst, q.bounds.rect(), r, x, y, radius, limit), nil
}

func (q *QuadTree[T]) query(i int, dst []T, r rect, x, y, radius float64, limit int) []T {
	n := &q.nodes[i]
	if !n.region.intersects(r) {
		return dst
	}
	if n.children == 0 {
		return appendMatches(dst, n.entries, x, y, radius, limit)
	}
	for c := n.children; c < n.children+4 && len(dst) < limit; c++ {
		dst = q.query(c, dst, r, x, y, radius, limit)
	}
	return dst
}

// Len returns the number of stored items.
func (q *QuadTree[T]) Len() int { return q.count }

// Bounds returns the covered region.
func (q *QuadTree[T]) Bounds() Bounds { return q.bounds }

// Stats reports leaves as buckets along with the deepest level reached.
func (q *QuadTree[T]) Stats() Stats {
	leaves := 0
	for i := 0; i < q.used; i++ {
		if q.nodes[i].children == 0 {
			leaves++
		}
	}
	return Stats{
		Items:    q.count,
		Outside:  len(q.outside.entries),
		Buckets:  leaves,
		MaxDepth: q.maxDepth,
	}
}
