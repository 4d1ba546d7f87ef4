// Package traits defines particle behaviours.
package traits

// Trait defines particle behavior.
type Trait uint32

const (
	// Motion traits
	Pinned  Trait = 1 << iota // Never moves; an occupancy cell
	Drifter                   // Follows the flow field
	Cluster                   // Pulled toward the world centre

	// State traits
	Sentinel // Parked offscreen, waiting to re-enter
)

// Has checks if a trait set contains a trait.
func (t Trait) Has(other Trait) bool {
	return t&other != 0
}

// Add adds a trait to the set.
func (t Trait) Add(other Trait) Trait {
	return t | other
}

// Remove removes a trait from the set.
func (t Trait) Remove(other Trait) Trait {
	return t &^ other
}

// IsMobile checks if traits allow the particle to move this tick.
func IsMobile(t Trait) bool {
	return !t.Has(Pinned) && !t.Has(Sentinel)
}

// MotionTraits are the traits chosen at spawn time.
var MotionTraits = Drifter | Cluster

// TraitWeights for random selection of motion traits (higher = more common).
var TraitWeights = map[Trait]float32{
	Drifter: 0.7,
	Cluster: 0.3,
}

// Pick returns the motion trait selected by r in [0, 1).
// Weights are walked in a fixed order so results are deterministic for a seed.
func Pick(r float32) Trait {
	var total float32
	for _, t := range []Trait{Drifter, Cluster} {
		total += TraitWeights[t]
	}
	acc := float32(0)
	for _, t := range []Trait{Drifter, Cluster} {
		acc += TraitWeights[t] / total
		if r < acc {
			return t
		}
	}
	return Cluster
}
