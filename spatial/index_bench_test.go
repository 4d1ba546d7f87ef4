package spatial

import (
	"math/rand"
	"testing"
)

const benchItems = 2000

func benchPoints(clustered bool) [][2]float64 {
	rng := rand.New(rand.NewSource(1))
	pts := make([][2]float64, benchItems)
	for i := range pts {
		if clustered {
			// Most particles near the centre of the screen
			pts[i] = [2]float64{640 + rng.NormFloat64()*60, 400 + rng.NormFloat64()*60}
		} else {
			pts[i] = [2]float64{rng.Float64() * 1280, rng.Float64() * 800}
		}
	}
	return pts
}

func benchFrame(b *testing.B, kind Kind, clustered bool) {
	bounds := NewBounds(0, 0, 1280, 800)
	idx, err := Build[int](kind, bounds, 16, 16)
	if err != nil {
		b.Fatal(err)
	}
	pts := benchPoints(clustered)
	dst := make([]int, 0, 64)

	b.ReportAllocs()
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		idx.Clear()
		for i, p := range pts {
			idx.Add(p[0], p[1], i)
		}
		for _, p := range pts {
			dst, _ = idx.AppendInRadius(dst[:0], p[0], p[1], 8, 32)
		}
	}
}

func BenchmarkFrameListUniform(b *testing.B)     { benchFrame(b, KindList, false) }
func BenchmarkFrameGridUniform(b *testing.B)     { benchFrame(b, KindGrid, false) }
func BenchmarkFrameQuadTreeUniform(b *testing.B) { benchFrame(b, KindQuadTree, false) }
func BenchmarkFrameRTreeUniform(b *testing.B)    { benchFrame(b, KindRTree, false) }
func BenchmarkFrameHashGridUniform(b *testing.B) { benchFrame(b, KindHashGrid, false) }

func BenchmarkFrameGridClustered(b *testing.B)     { benchFrame(b, KindGrid, true) }
func BenchmarkFrameQuadTreeClustered(b *testing.B) { benchFrame(b, KindQuadTree, true) }
func BenchmarkFrameHashGridClustered(b *testing.B) { benchFrame(b, KindHashGrid, true) }
