package spatial

import (
	"errors"
	"math"
	"math/rand"
	"slices"
	"testing"
)

type backend struct {
	name string
	make func(b Bounds) Index[int]
}

// backends returns every implementation with small parameters so the
// tree-shaped ones actually subdivide in tests.
func backends() []backend {
	return []backend{
		{"list", func(b Bounds) Index[int] { return NewList[int](b) }},
		{"grid", func(b Bounds) Index[int] { return NewGrid[int](b, 2) }},
		{"quadtree", func(b Bounds) Index[int] { return NewQuadTree[int](b, 4, 1) }},
		{"rtree", func(b Bounds) Index[int] { return NewRTree[int](b, 8) }},
		{"hashgrid", func(b Bounds) Index[int] { return NewHashGrid[int](b, 2) }},
		{"new-unlimited", func(b Bounds) Index[int] { return New[int](b, Unlimited, 1) }},
		{"new-quadtree", func(b Bounds) Index[int] { return New[int](b, 2, 0.5) }},
	}
}

func sorted(items []int) []int {
	out := slices.Clone(items)
	slices.Sort(out)
	return out
}

func mustQuery(t *testing.T, idx Index[int], x, y, r float64, n int) []int {
	t.Helper()
	got, err := idx.ItemsInRadius(x, y, r, n)
	if err != nil {
		t.Fatalf("ItemsInRadius(%v, %v, %v, %d): %v", x, y, r, n, err)
	}
	return got
}

func TestScenarioSingleItem(t *testing.T) {
	for _, bk := range backends() {
		t.Run(bk.name, func(t *testing.T) {
			idx := bk.make(NewBounds(0, 0, 10, 10))
			idx.Add(5, 5, 1)

			if got := mustQuery(t, idx, 5, 5, 0, 10); !slices.Equal(got, []int{1}) {
				t.Errorf("radius 0 at item = %v, want [1]", got)
			}
			if got := mustQuery(t, idx, 5, 5, 1, 10); !slices.Equal(got, []int{1}) {
				t.Errorf("radius 1 at item = %v, want [1]", got)
			}
			if got := mustQuery(t, idx, 6, 6, 0, 10); len(got) != 0 {
				t.Errorf("radius 0 next to item = %v, want []", got)
			}
		})
	}
}

func TestScenarioDuplicatesCapped(t *testing.T) {
	for _, bk := range backends() {
		t.Run(bk.name, func(t *testing.T) {
			idx := bk.make(NewBounds(0, 0, 10, 10))
			for i := 1; i <= 5; i++ {
				idx.Add(1, 1, i)
			}

			capped := mustQuery(t, idx, 1, 1, 0, 3)
			if len(capped) != 3 {
				t.Fatalf("capped query returned %d items, want 3", len(capped))
			}
			for _, it := range capped {
				if it < 1 || it > 5 {
					t.Errorf("unexpected item %d", it)
				}
			}
			if len(slices.Compact(sorted(capped))) != 3 {
				t.Errorf("capped query returned duplicates: %v", capped)
			}

			all := mustQuery(t, idx, 1, 1, 0, 10)
			if !slices.Equal(sorted(all), []int{1, 2, 3, 4, 5}) {
				t.Errorf("uncapped query = %v, want all five", all)
			}
		})
	}
}

func TestScenarioOutOfBounds(t *testing.T) {
	for _, bk := range backends() {
		t.Run(bk.name, func(t *testing.T) {
			idx := bk.make(NewBounds(0, 0, 10, 10))
			idx.Add(-5, -5, 7)
			idx.Add(3, -100, 8) // offscreen sentinel

			if got := mustQuery(t, idx, -5, -5, 0, 5); !slices.Equal(got, []int{7}) {
				t.Errorf("query at out-of-bounds item = %v, want [7]", got)
			}
			if got := mustQuery(t, idx, 3, -100, 0, 5); !slices.Equal(got, []int{8}) {
				t.Errorf("query at sentinel = %v, want [8]", got)
			}
			if got := mustQuery(t, idx, 500, 500, 3, 5); len(got) != 0 {
				t.Errorf("empty out-of-bounds query = %v, want []", got)
			}
			if got := mustQuery(t, idx, 5, 5, 4, 5); len(got) != 0 {
				t.Errorf("in-bounds query should not see outside items, got %v", got)
			}
			if idx.Len() != 2 {
				t.Errorf("Len() = %d, want 2", idx.Len())
			}
		})
	}
}

func TestScenarioClearEmpty(t *testing.T) {
	for _, bk := range backends() {
		t.Run(bk.name, func(t *testing.T) {
			idx := bk.make(NewBounds(0, 0, 10, 10))
			idx.Clear()
			idx.Clear()
			if got := mustQuery(t, idx, 5, 5, 100, 10); len(got) != 0 {
				t.Errorf("query after clear on empty index = %v", got)
			}
			if idx.Len() != 0 {
				t.Errorf("Len() = %d after clear", idx.Len())
			}
		})
	}
}

func TestClearIsTotal(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, bk := range backends() {
		t.Run(bk.name, func(t *testing.T) {
			idx := bk.make(NewBounds(0, 0, 50, 50))
			for i := 0; i < 300; i++ {
				idx.Add(rng.Float64()*60-5, rng.Float64()*60-5, i)
			}
			idx.Clear()

			if got := mustQuery(t, idx, 25, 25, math.Inf(1), 1000); len(got) != 0 {
				t.Errorf("query after clear returned %d items", len(got))
			}

			idx.Add(10, 10, 42)
			if got := mustQuery(t, idx, 10, 10, 0, 10); !slices.Equal(got, []int{42}) {
				t.Errorf("query after re-add = %v, want [42]", got)
			}
		})
	}
}

func TestInvalidRadius(t *testing.T) {
	for _, bk := range backends() {
		t.Run(bk.name, func(t *testing.T) {
			idx := bk.make(NewBounds(0, 0, 10, 10))
			idx.Add(1, 1, 1)

			for _, r := range []float64{-1, -0.001, math.NaN(), math.Inf(-1)} {
				got, err := idx.ItemsInRadius(1, 1, r, 10)
				if !errors.Is(err, ErrInvalidRadius) {
					t.Errorf("radius %v: err = %v, want ErrInvalidRadius", r, err)
				}
				if len(got) != 0 {
					t.Errorf("radius %v: got items %v", r, got)
				}
			}
		})
	}
}

func TestNonPositiveMaxCount(t *testing.T) {
	for _, bk := range backends() {
		t.Run(bk.name, func(t *testing.T) {
			idx := bk.make(NewBounds(0, 0, 10, 10))
			idx.Add(1, 1, 1)
			for _, n := range []int{0, -3} {
				got, err := idx.ItemsInRadius(1, 1, 1, n)
				if err != nil || len(got) != 0 {
					t.Errorf("maxCount %d: got %v, %v", n, got, err)
				}
			}
		})
	}
}

func TestSquareNeighbourhood(t *testing.T) {
	for _, bk := range backends() {
		t.Run(bk.name, func(t *testing.T) {
			idx := bk.make(NewBounds(0, 0, 10, 10))
			idx.Add(6, 6, 1) // corner of the square, outside the circle
			idx.Add(6, 5, 2) // edge
			idx.Add(7, 5, 3) // just outside

			got := sorted(mustQuery(t, idx, 5, 5, 1, 10))
			if !slices.Equal(got, []int{1, 2}) {
				t.Errorf("square query = %v, want [1 2]", got)
			}
		})
	}
}

func TestAppendInRadiusCapsAppendedItems(t *testing.T) {
	for _, bk := range backends() {
		t.Run(bk.name, func(t *testing.T) {
			idx := bk.make(NewBounds(0, 0, 10, 10))
			for i := 0; i < 6; i++ {
				idx.Add(2, 2, i)
			}

			dst := []int{-1, -2}
			dst, err := idx.AppendInRadius(dst, 2, 2, 0, 3)
			if err != nil {
				t.Fatal(err)
			}
			if len(dst) != 5 {
				t.Fatalf("len(dst) = %d, want 5", len(dst))
			}
			if dst[0] != -1 || dst[1] != -2 {
				t.Errorf("existing prefix was modified: %v", dst[:2])
			}
		})
	}
}

// randomFrame generates points on a coarse lattice so boundary hits are common,
// with some duplicates and some outside the bounds.
func randomFrame(rng *rand.Rand, n int, b Bounds) [][2]float64 {
	pts := make([][2]float64, n)
	for i := range pts {
		switch {
		case i%17 == 0:
			pts[i] = [2]float64{b.X - 1 - float64(rng.Intn(5)), b.Y + float64(rng.Intn(int(b.Height)))}
		case i%11 == 0 && i > 0:
			pts[i] = pts[i-1]
		default:
			pts[i] = [2]float64{
				b.X + math.Round(rng.Float64()*b.Width*2)/2,
				b.Y + math.Round(rng.Float64()*b.Height*2)/2,
			}
		}
	}
	return pts
}

func TestMatchesReference(t *testing.T) {
	bounds := NewBounds(-20, 10, 64, 48)
	rng := rand.New(rand.NewSource(11))
	pts := randomFrame(rng, 800, bounds)

	ref := NewList[int](bounds)
	for i, p := range pts {
		ref.Add(p[0], p[1], i)
	}

	for _, bk := range backends() {
		t.Run(bk.name, func(t *testing.T) {
			idx := bk.make(bounds)
			for i, p := range pts {
				idx.Add(p[0], p[1], i)
			}

			for q := 0; q < 400; q++ {
				var x, y float64
				if q%2 == 0 {
					p := pts[rng.Intn(len(pts))]
					x, y = p[0], p[1]
				} else {
					x = bounds.X - 10 + rng.Float64()*(bounds.Width+20)
					y = bounds.Y - 10 + rng.Float64()*(bounds.Height+20)
				}
				r := float64(rng.Intn(8)) / 2
				maxCount := 1 + rng.Intn(40)

				want := sorted(mustQuery(t, ref, x, y, r, math.MaxInt))
				got := mustQuery(t, idx, x, y, r, maxCount)

				if len(got) > maxCount {
					t.Fatalf("query %d returned %d items, cap %d", q, len(got), maxCount)
				}
				for _, it := range got {
					p := pts[it]
					if !inSquare(p[0], p[1], x, y, r) {
						t.Fatalf("query %d returned item %d at %v outside square (%v,%v,r=%v)", q, it, p, x, y, r)
					}
				}
				if len(want) <= maxCount {
					if !slices.Equal(sorted(got), want) {
						t.Fatalf("query %d (%v,%v,r=%v) = %v, want %v", q, x, y, r, sorted(got), want)
					}
				} else if len(got) != maxCount {
					t.Fatalf("query %d returned %d items, want exactly cap %d", q, len(got), maxCount)
				}
			}
		})
	}
}

func TestRebuildIsIdempotent(t *testing.T) {
	bounds := NewBounds(0, 0, 40, 40)
	rng := rand.New(rand.NewSource(5))
	pts := randomFrame(rng, 500, bounds)

	type query struct{ x, y, r float64 }
	queries := make([]query, 100)
	for i := range queries {
		queries[i] = query{rng.Float64() * 40, rng.Float64() * 40, float64(rng.Intn(6))}
	}

	for _, bk := range backends() {
		t.Run(bk.name, func(t *testing.T) {
			idx := bk.make(bounds)
			for i, p := range pts {
				idx.Add(p[0], p[1], i)
			}
			before := make([][]int, len(queries))
			for i, q := range queries {
				before[i] = sorted(mustQuery(t, idx, q.x, q.y, q.r, math.MaxInt))
			}

			idx.Clear()
			for _, i := range rng.Perm(len(pts)) {
				idx.Add(pts[i][0], pts[i][1], i)
			}
			for i, q := range queries {
				after := sorted(mustQuery(t, idx, q.x, q.y, q.r, math.MaxInt))
				if !slices.Equal(before[i], after) {
					t.Fatalf("query %d differs after rebuild: %v vs %v", i, before[i], after)
				}
			}
		})
	}
}

func TestInfiniteRadiusReturnsEverything(t *testing.T) {
	for _, bk := range backends() {
		t.Run(bk.name, func(t *testing.T) {
			idx := bk.make(NewBounds(0, 0, 10, 10))
			idx.Add(1, 1, 1)
			idx.Add(9, 9, 2)
			idx.Add(-50, 3, 3)
			got := sorted(mustQuery(t, idx, 5, 5, math.Inf(1), 10))
			if !slices.Equal(got, []int{1, 2, 3}) {
				t.Errorf("infinite radius = %v, want [1 2 3]", got)
			}
		})
	}
}

func TestEdgePointsAreInBounds(t *testing.T) {
	for _, bk := range backends() {
		t.Run(bk.name, func(t *testing.T) {
			idx := bk.make(NewBounds(0, 0, 10, 10))
			idx.Add(10, 10, 1)
			idx.Add(0, 10, 2)
			if s := idx.Stats(); s.Outside != 0 {
				t.Errorf("Stats().Outside = %d, want 0 for edge points", s.Outside)
			}
			if got := mustQuery(t, idx, 10, 10, 0, 5); !slices.Equal(got, []int{1}) {
				t.Errorf("corner query = %v, want [1]", got)
			}
		})
	}
}

func TestNewSelectsBackend(t *testing.T) {
	b := NewBounds(0, 0, 10, 10)
	if _, ok := New[int](b, Unlimited, 1).(*List[int]); !ok {
		t.Error("New with Unlimited capacity should return a List")
	}
	if _, ok := New[int](b, 0, 1).(*List[int]); !ok {
		t.Error("New with zero capacity should return a List")
	}
	if _, ok := New[int](b, 8, 1).(*QuadTree[int]); !ok {
		t.Error("New with finite capacity should return a QuadTree")
	}
}
