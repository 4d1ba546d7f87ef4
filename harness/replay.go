package harness

import (
	"fmt"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/nearfield/components"
	"github.com/pthm-cable/nearfield/spatial"
	"github.com/pthm-cable/nearfield/systems"
	"github.com/pthm-cable/nearfield/telemetry"
)

// ReplayResult is the outcome of verifying a saved frame again.
type ReplayResult struct {
	Items      int
	Recorded   int // mismatches stored in the snapshot
	Mismatches []systems.Mismatch
}

// Replay loads the frame held by snap into a fresh index of the same backend
// and checks the query around every item against the brute-force reference,
// using the radius and max count recorded with the frame.
func Replay(snap *telemetry.Snapshot, seed int64) (ReplayResult, error) {
	bounds := snap.SpatialBounds()
	idx, err := spatial.Build[ecs.Entity](snap.Kind, bounds, snap.Capacity, snap.BucketSize)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("building index: %w", err)
	}

	world := ecs.NewWorld()
	mapper := ecs.NewMap2[components.Position, components.Particle](world)
	for _, it := range snap.Items {
		pos := components.Position{X: it.X, Y: it.Y}
		part := components.Particle{ID: it.ID}
		mapper.NewEntity(&pos, &part)
	}

	indexSys := systems.NewIndexSystem(world, idx)
	n := indexSys.Rebuild()

	verifier := systems.NewVerifier(bounds, 0, rand.New(rand.NewSource(seed)))
	mismatches := verifier.Check(snap.Tick, idx, indexSys.Frame(), snap.Radius, snap.MaxCount)
	kind := snap.Kind.String()
	for i := range mismatches {
		mismatches[i].Kind = kind
	}
	return ReplayResult{Items: n, Recorded: len(snap.Mismatches), Mismatches: mismatches}, nil
}
