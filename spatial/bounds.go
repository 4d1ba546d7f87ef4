// Package spatial provides frame-rebuilt 2D point indexes for neighbour queries.
//
// Every backend follows the same lifecycle: Clear once per tick, Add every live
// item at its current position, then issue any number of ItemsInRadius queries
// before positions change. Radius queries use a square (Chebyshev) neighbourhood:
// an item at (ix, iy) matches a query at (x, y) with radius r when
// |ix-x| <= r and |iy-y| <= r.
package spatial

// Bounds is an axis-aligned rectangle anchored at its top-left corner.
type Bounds struct {
	X, Y          float64
	Width, Height float64
}

// NewBounds returns bounds with the given top-left corner and size.
func NewBounds(x, y, width, height float64) Bounds {
	return Bounds{X: x, Y: y, Width: width, Height: height}
}

func (b Bounds) MinX() float64 { return b.X }
func (b Bounds) MinY() float64 { return b.Y }
func (b Bounds) MaxX() float64 { return b.X + b.Width }
func (b Bounds) MaxY() float64 { return b.Y + b.Height }

// Center returns the centre point of the rectangle.
func (b Bounds) Center() (float64, float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Empty reports whether the rectangle has no area.
func (b Bounds) Empty() bool {
	return !(b.Width > 0 && b.Height > 0)
}

// Contains reports whether (x, y) lies inside b. All four edges are inclusive.
func (b Bounds) Contains(x, y float64) bool {
	return x >= b.X && x <= b.X+b.Width &&
		y >= b.Y && y <= b.Y+b.Height
}

// rect is the min/max form used on query paths. Unlike Bounds it stays
// well-defined for infinite radii.
type rect struct {
	minX, minY, maxX, maxY float64
}

func queryRect(x, y, r float64) rect {
	return rect{minX: x - r, minY: y - r, maxX: x + r, maxY: y + r}
}

func (b Bounds) rect() rect {
	return rect{minX: b.X, minY: b.Y, maxX: b.X + b.Width, maxY: b.Y + b.Height}
}

func (r rect) intersects(o rect) bool {
	return r.minX <= o.maxX && o.minX <= r.maxX &&
		r.minY <= o.maxY && o.minY <= r.maxY
}

func (r rect) covers(o rect) bool {
	return o.minX >= r.minX && o.maxX <= r.maxX &&
		o.minY >= r.minY && o.maxY <= r.maxY
}

func (r rect) mid() (float64, float64) {
	return (r.minX + r.maxX) / 2, (r.minY + r.maxY) / 2
}

// quadrant returns one quarter of r: 0=NW, 1=NE, 2=SW, 3=SE. Children share
// the parent's edges and midpoint exactly, so the four tile r with no gaps.
func (r rect) quadrant(i int) rect {
	mx, my := r.mid()
	q := r
	if i&1 == 0 {
		q.maxX = mx
	} else {
		q.minX = mx
	}
	if i&2 == 0 {
		q.maxY = my
	} else {
		q.minY = my
	}
	return q
}

// quadrantOf returns the child slot of r that holds (x, y). A point on the
// midpoint goes to the east or south child.
func (r rect) quadrantOf(x, y float64) int {
	mx, my := r.mid()
	i := 0
	if x >= mx {
		i |= 1
	}
	if y >= my {
		i |= 2
	}
	return i
}

// inSquare is the match test every backend applies to stored coordinates.
func inSquare(ix, iy, x, y, r float64) bool {
	dx := ix - x
	if dx < 0 {
		dx = -dx
	}
	if dx > r {
		return false
	}
	dy := iy - y
	if dy < 0 {
		dy = -dy
	}
	return dy <= r
}
