package systems

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/nearfield/spatial"
)

// Mismatch reasons.
const (
	ReasonError      = "error"
	ReasonOverCap    = "over_cap"
	ReasonOutside    = "outside_square"
	ReasonDuplicate  = "duplicate"
	ReasonUnderCap   = "under_cap"
	ReasonSetDiffers = "set_differs"
)

// Mismatch records a query whose result disagrees with the brute-force reference.
type Mismatch struct {
	Tick     int32   `csv:"tick" json:"tick"`
	Kind     string  `csv:"kind" json:"kind"`
	X        float64 `csv:"x" json:"x"`
	Y        float64 `csv:"y" json:"y"`
	Radius   float64 `csv:"radius" json:"radius"`
	MaxCount int     `csv:"max_count" json:"max_count"`
	Got      int     `csv:"got" json:"got"`
	Want     int     `csv:"want" json:"want"`
	Reason   string  `csv:"reason" json:"reason"`
	Detail   string  `csv:"detail" json:"detail"`
}

// Verifier cross-checks an index against a List rebuilt from the same frame.
type Verifier struct {
	ref     *spatial.List[ecs.Entity]
	rng     *rand.Rand
	samples int // queries per check, 0 = one per frame item

	pos  map[ecs.Entity][2]float64
	seen map[ecs.Entity]int
	got  []ecs.Entity
	want []ecs.Entity
}

// NewVerifier creates a verifier over bounds.
func NewVerifier(bounds spatial.Bounds, samples int, rng *rand.Rand) *Verifier {
	return &Verifier{
		ref:     spatial.NewList[ecs.Entity](bounds),
		rng:     rng,
		samples: samples,
		pos:     make(map[ecs.Entity][2]float64),
		seen:    make(map[ecs.Entity]int),
	}
}

// Check queries idx and the reference around sampled frame items and returns
// every disagreement. A result is correct when it is within maxCount, every
// item lies in the query square, no item repeats, and it is the full match
// set whenever that set fits under maxCount.
func (v *Verifier) Check(tick int32, idx spatial.Index[ecs.Entity], frame []FrameItem, radius float64, maxCount int) []Mismatch {
	v.ref.Clear()
	clear(v.pos)
	for _, it := range frame {
		v.ref.Add(it.X, it.Y, it.Entity)
		v.pos[it.Entity] = [2]float64{it.X, it.Y}
	}

	var out []Mismatch
	check := func(x, y float64) {
		if m, ok := v.checkOne(idx, x, y, radius, maxCount); !ok {
			m.Tick = tick
			out = append(out, m)
		}
	}

	if v.samples <= 0 || v.samples >= len(frame) {
		for _, it := range frame {
			check(it.X, it.Y)
		}
	} else {
		for i := 0; i < v.samples; i++ {
			it := frame[v.rng.Intn(len(frame))]
			check(it.X, it.Y)
		}
	}
	// One centre anywhere in the bounds, which need not hit an item
	x, y := Spread(v.rng, idx.Bounds())
	check(x, y)

	return out
}

func (v *Verifier) checkOne(idx spatial.Index[ecs.Entity], x, y, radius float64, maxCount int) (Mismatch, bool) {
	m := Mismatch{X: x, Y: y, Radius: radius, MaxCount: maxCount}

	var err error
	v.got, err = idx.AppendInRadius(v.got[:0], x, y, radius, maxCount)
	if err != nil {
		m.Reason, m.Detail = ReasonError, err.Error()
		return m, false
	}
	v.want, _ = v.ref.AppendInRadius(v.want[:0], x, y, radius, spatial.Unlimited)
	m.Got, m.Want = len(v.got), len(v.want)

	if len(v.got) > maxCount {
		m.Reason = ReasonOverCap
		return m, false
	}

	clear(v.seen)
	for _, e := range v.got {
		p, ok := v.pos[e]
		if !ok || math.Max(math.Abs(p[0]-x), math.Abs(p[1]-y)) > radius {
			m.Reason = ReasonOutside
			if ok {
				m.Detail = fmt.Sprintf("item at (%g, %g)", p[0], p[1])
			}
			return m, false
		}
		v.seen[e]++
		if v.seen[e] > 1 {
			m.Reason = ReasonDuplicate
			return m, false
		}
	}

	if len(v.want) <= maxCount {
		if len(v.got) != len(v.want) {
			m.Reason = ReasonSetDiffers
			return m, false
		}
		for _, e := range v.want {
			if v.seen[e] == 0 {
				m.Reason = ReasonSetDiffers
				return m, false
			}
		}
	} else if len(v.got) != maxCount {
		m.Reason = ReasonUnderCap
		return m, false
	}
	return m, true
}
