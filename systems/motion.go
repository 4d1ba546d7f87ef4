// Package systems contains the ECS systems that drive particles through the
// spatial index each frame.
package systems

import (
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/nearfield/components"
	"github.com/pthm-cable/nearfield/spatial"
	"github.com/pthm-cable/nearfield/traits"
)

// MotionParams holds the tunables for MotionSystem.
type MotionParams struct {
	Speed        float64 // terminal speed in world units per second
	Margin       float64 // distance past the bounds before a particle is parked
	SentinelY    float64 // y coordinate parked particles wait at
	ReentryTicks int32
}

// MotionStats counts state transitions during one Update.
type MotionStats struct {
	Parked    int
	Reentered int
}

// MotionSystem moves particles and parks the ones that leave the world.
// Parked particles sit at a fixed offscreen y with the Sentinel trait, so
// they stay in the index as out-of-bounds items until they re-enter.
type MotionSystem struct {
	filter ecs.Filter3[components.Position, components.Velocity, components.Particle]
	bounds spatial.Bounds
	flow   FlowSampler
	rng    *rand.Rand
	params MotionParams
}

// NewMotionSystem creates a motion system over the given bounds.
func NewMotionSystem(w *ecs.World, bounds spatial.Bounds, flow FlowSampler, rng *rand.Rand, params MotionParams) *MotionSystem {
	return &MotionSystem{
		filter: *ecs.NewFilter3[components.Position, components.Velocity, components.Particle](w),
		bounds: bounds,
		flow:   flow,
		rng:    rng,
		params: params,
	}
}

// Update advances every particle by dt seconds at simulation time t.
func (s *MotionSystem) Update(t, dt float64) MotionStats {
	var stats MotionStats
	cx, cy := s.bounds.Center()

	query := s.filter.Query()
	for query.Next() {
		pos, vel, p := query.Get()

		if p.Traits.Has(traits.Sentinel) {
			p.Reentry--
			if p.Reentry <= 0 {
				s.reenter(pos, vel, p)
				stats.Reentered++
			}
			continue
		}
		if !traits.IsMobile(p.Traits) {
			continue
		}

		var ax, ay float64
		if p.Traits.Has(traits.Drifter) {
			ax, ay = s.flow.Sample(pos.X, pos.Y, t)
		}
		if p.Traits.Has(traits.Cluster) {
			dx, dy := normalize(cx-pos.X, cy-pos.Y)
			ax += dx * s.params.Speed
			ay += dy * s.params.Speed
			// Jitter keeps clustered particles from collapsing onto one point
			ax += (s.rng.Float64()*2 - 1) * s.params.Speed
			ay += (s.rng.Float64()*2 - 1) * s.params.Speed
		}

		vel.X += ax * dt
		vel.Y += ay * dt
		vel.X, vel.Y = limitSpeed(vel.X, vel.Y, s.params.Speed)

		pos.X += vel.X * dt
		pos.Y += vel.Y * dt

		if s.offscreen(pos.X, pos.Y) {
			pos.Y = s.params.SentinelY
			vel.X, vel.Y = 0, 0
			p.Traits = p.Traits.Add(traits.Sentinel)
			p.Reentry = s.params.ReentryTicks
			stats.Parked++
		}
	}
	return stats
}

// offscreen reports whether (x, y) is more than the margin outside the bounds.
func (s *MotionSystem) offscreen(x, y float64) bool {
	m := s.params.Margin
	return x < s.bounds.MinX()-m || x > s.bounds.MaxX()+m ||
		y < s.bounds.MinY()-m || y > s.bounds.MaxY()+m
}

// reenter places a parked particle back on the top edge of the world.
func (s *MotionSystem) reenter(pos *components.Position, vel *components.Velocity, p *components.Particle) {
	pos.X = s.bounds.MinX() + s.rng.Float64()*s.bounds.Width
	pos.Y = s.bounds.MinY()
	vel.X = 0
	vel.Y = s.params.Speed * 0.5
	p.Traits = p.Traits.Remove(traits.Sentinel)
	p.Reentry = 0
}

// Spread returns a uniformly random point inside b.
func Spread(rng *rand.Rand, b spatial.Bounds) (x, y float64) {
	return b.MinX() + rng.Float64()*b.Width, b.MinY() + rng.Float64()*b.Height
}

