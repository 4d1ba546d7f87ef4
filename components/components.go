// Package components defines ECS components for the harness.
package components

import "github.com/pthm-cable/nearfield/traits"

// Position represents an entity's world position.
type Position struct {
	X, Y float64
}

// Velocity represents an entity's velocity in world units per second.
type Velocity struct {
	X, Y float64
}

// Particle holds per-particle identity and behaviour.
type Particle struct {
	ID     uint32
	Traits traits.Trait
	// Ticks left before a parked sentinel re-enters the world
	Reentry int32
}

// Neighbors holds the result of the particle's last neighbour query.
type Neighbors struct {
	Count  int32
	Capped bool // more than max_count items matched
}
