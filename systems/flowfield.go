package systems

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// FlowSampler provides flow vectors at world positions.
type FlowSampler interface {
	Sample(x, y, t float64) (vx, vy float64)
}

// FlowField is an animated noise field that steers drifting particles.
// The field angle at (x, y, t) comes from 3D simplex noise, so nearby
// particles move coherently and the pattern slowly evolves.
type FlowField struct {
	noise     opensimplex.Noise
	scale     float64 // spatial frequency
	timeSpeed float64
	strength  float64
}

// NewFlowField creates a flow field seeded for reproducible runs.
func NewFlowField(seed int64, scale, timeSpeed, strength float64) *FlowField {
	return &FlowField{
		noise:     opensimplex.NewNormalized(seed),
		scale:     scale,
		timeSpeed: timeSpeed,
		strength:  strength,
	}
}

// Sample returns the flow vector at (x, y) and simulation time t.
func (f *FlowField) Sample(x, y, t float64) (vx, vy float64) {
	n := f.noise.Eval3(x*f.scale, y*f.scale, t*f.timeSpeed)
	angle := n * 4 * math.Pi
	return math.Cos(angle) * f.strength, math.Sin(angle) * f.strength
}
