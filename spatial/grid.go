package spatial

import "math"

// maxGridCells caps the dense cell array. Finer bucket sizes are coarsened.
const maxGridCells = 1 << 22

// Grid is a dense uniform grid of square cells with side bucketSize.
// It suits evenly scattered points such as one-item-per-cell occupancy grids.
type Grid[T any] struct {
	bounds   Bounds
	cellSize float64
	cols     int
	rows     int
	cells    [][]entry[T] // flat, index = row*cols + col
	outside  outsideSet[T]
	count    int
}

// NewGrid creates a grid covering bounds with cells of side bucketSize.
func NewGrid[T any](bounds Bounds, bucketSize float64) *Grid[T] {
	cellSize := normalizeCellSize(bounds, bucketSize)
	cols, rows := gridDims(bounds, cellSize)
	for cols*rows > maxGridCells {
		cellSize *= 2
		cols, rows = gridDims(bounds, cellSize)
	}

	cells := make([][]entry[T], cols*rows)
	for i := range cells {
		cells[i] = make([]entry[T], 0, 4) // pre-allocate small capacity
	}

	return &Grid[T]{
		bounds:   bounds,
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		cells:    cells,
	}
}

// normalizeCellSize picks a usable cell side when bucketSize is not positive.
func normalizeCellSize(bounds Bounds, bucketSize float64) float64 {
	if bucketSize > 0 && !math.IsInf(bucketSize, 1) {
		return bucketSize
	}
	side := math.Max(bounds.Width, bounds.Height) / 64
	if !(side > 0) || math.IsInf(side, 0) {
		side = 1
	}
	return side
}

func gridDims(bounds Bounds, cellSize float64) (cols, rows int) {
	cols = int(math.Ceil(math.Max(bounds.Width, 0) / cellSize))
	rows = int(math.Ceil(math.Max(bounds.Height, 0) / cellSize))
	return max(cols, 1), max(rows, 1)
}

// Clear removes all items, keeping per-cell capacity.
func (g *Grid[T]) Clear() {
	if g.count == 0 && len(g.outside.entries) == 0 {
		return
	}
	for i := range g.cells {
		if len(g.cells[i]) > 0 {
			clear(g.cells[i])
			g.cells[i] = g.cells[i][:0]
		}
	}
	g.outside.reset()
	g.count = 0
}

// Add stores item at (x, y).
func (g *Grid[T]) Add(x, y float64, item T) {
	g.count++
	if !g.bounds.Contains(x, y) {
		g.outside.add(x, y, item)
		return
	}
	idx := g.cellIndex(x, y)
	g.cells[idx] = append(g.cells[idx], entry[T]{x: x, y: y, item: item})
}

// ItemsInRadius returns up to maxCount items in the square around (x, y).
func (g *Grid[T]) ItemsInRadius(x, y, radius float64, maxCount int) ([]T, error) {
	return g.AppendInRadius(nil, x, y, radius, maxCount)
}

// AppendInRadius appends up to maxCount matching items to dst.
func (g *Grid[T]) AppendInRadius(dst []T, x, y, radius float64, maxCount int) ([]T, error) {
	limit, err := queryLimit(len(dst), radius, maxCount)
	if err != nil || len(dst) >= limit || g.count == 0 {
		return dst, err
	}

	q := queryRect(x, y, radius)
	br := g.bounds.rect()
	if br.intersects(q) {
		c0 := g.clampCell(q.minX-g.bounds.X, g.cols)
		c1 := g.clampCell(q.maxX-g.bounds.X, g.cols)
		r0 := g.clampCell(q.minY-g.bounds.Y, g.rows)
		r1 := g.clampCell(q.maxY-g.bounds.Y, g.rows)

		for row := r0; row <= r1; row++ {
			for col := c0; col <= c1; col++ {
				dst = appendMatches(dst, g.cells[row*g.cols+col], x, y, radius, limit)
				if len(dst) >= limit {
					return dst, nil
				}
			}
		}
	}

	return g.outside.appendMatches(dst, br, q, x, y, radius, limit), nil
}

// clampCell converts a local offset to a cell index in [0, n).
func (g *Grid[T]) clampCell(offset float64, n int) int {
	c := math.Floor(offset / g.cellSize)
	if c < 0 {
		return 0
	}
	if c >= float64(n) {
		return n - 1
	}
	return int(c)
}

// cellIndex returns the flat index for an in-bounds position.
func (g *Grid[T]) cellIndex(x, y float64) int {
	col := g.clampCell(x-g.bounds.X, g.cols)
	row := g.clampCell(y-g.bounds.Y, g.rows)
	return row*g.cols + col
}

// Len returns the number of stored items.
func (g *Grid[T]) Len() int { return g.count }

// Bounds returns the covered region.
func (g *Grid[T]) Bounds() Bounds { return g.bounds }

// CellSize returns the effective cell side after normalisation.
func (g *Grid[T]) CellSize() float64 { return g.cellSize }

// Stats reports occupied cells as buckets.
func (g *Grid[T]) Stats() Stats {
	occupied := 0
	for i := range g.cells {
		if len(g.cells[i]) > 0 {
			occupied++
		}
	}
	return Stats{
		Items:   g.count,
		Outside: len(g.outside.entries),
		Buckets: occupied,
	}
}
