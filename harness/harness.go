// Package harness wires particles, the spatial index and telemetry into a
// headless frame loop: rebuild the index, query it, verify, move, report.
package harness

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/nearfield/components"
	"github.com/pthm-cable/nearfield/config"
	"github.com/pthm-cable/nearfield/spatial"
	"github.com/pthm-cable/nearfield/systems"
	"github.com/pthm-cable/nearfield/telemetry"
	"github.com/pthm-cable/nearfield/traits"
)

// Options holds harness run parameters that are not part of the config file.
type Options struct {
	Seed          int64
	LogStats      bool
	OutputDir     string
	StatsCallback func(telemetry.WindowStats) // called on every window flush
}

// Harness drives one particle population through a spatial index.
type Harness struct {
	cfg  *config.Config
	opts Options
	rng  *rand.Rand

	world        *ecs.World
	entityMapper *ecs.Map4[components.Position, components.Velocity, components.Particle, components.Neighbors]
	reportFilter ecs.Filter2[components.Particle, components.Neighbors]

	index     spatial.Index[ecs.Entity]
	indexSys  *systems.IndexSystem
	neighbors *systems.NeighborSystem
	motion    *systems.MotionSystem
	verifier  *systems.Verifier

	perf      *telemetry.PerfCollector
	collector *telemetry.Collector
	output    *telemetry.OutputManager

	tick       int32
	nextID     uint32
	mismatches int
	counts     []float64 // scratch for neighbour count sampling
}

// New builds a harness from cfg and spawns the configured population.
func New(cfg *config.Config, opts Options) (*Harness, error) {
	index, err := spatial.Build[ecs.Entity](cfg.Derived.IndexKind, cfg.Derived.Bounds, cfg.Derived.Capacity, cfg.Index.BucketSize)
	if err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}

	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	if err := output.WriteConfig(cfg); err != nil {
		output.Close()
		return nil, err
	}

	world := ecs.NewWorld()
	rng := rand.New(rand.NewSource(opts.Seed))
	p := cfg.Particles

	h := &Harness{
		cfg:   cfg,
		opts:  opts,
		rng:   rng,
		world: world,
		entityMapper: ecs.NewMap4[
			components.Position,
			components.Velocity,
			components.Particle,
			components.Neighbors,
		](world),
		reportFilter: *ecs.NewFilter2[components.Particle, components.Neighbors](world),
		index:        index,
		indexSys:     systems.NewIndexSystem(world, index),
		neighbors:    systems.NewNeighborSystem(world, cfg.Query.Radius, cfg.Query.MaxCount, cfg.Parallel.Threshold, cfg.Parallel.Workers),
		motion: systems.NewMotionSystem(world, cfg.Derived.Bounds,
			systems.NewFlowField(opts.Seed, p.NoiseScale, p.NoiseTimeSpeed, p.FlowStrength),
			rng,
			systems.MotionParams{
				Speed:        p.Speed,
				Margin:       p.OffscreenMargin,
				SentinelY:    p.SentinelY,
				ReentryTicks: int32(p.ReentryTicks),
			}),
		perf:      telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		collector: telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Physics.DT, cfg.Derived.IndexKind.String()),
		output:    output,
	}
	if cfg.Verify.Enabled {
		h.verifier = systems.NewVerifier(cfg.Derived.Bounds, cfg.Verify.Samples, rand.New(rand.NewSource(opts.Seed+1)))
	}

	h.spawnInitialPopulation()

	slog.Info("harness ready",
		"kind", cfg.Derived.IndexKind.String(),
		"particles", p.Count,
		"capacity", cfg.Index.Capacity,
		"bucket_size", cfg.Index.BucketSize,
		"radius", cfg.Query.Radius,
		"max_count", cfg.Query.MaxCount,
		"verify", cfg.Verify.Enabled,
	)
	return h, nil
}

// spawnInitialPopulation creates the starting particles.
func (h *Harness) spawnInitialPopulation() {
	p := h.cfg.Particles
	bounds := h.cfg.Derived.Bounds
	for i := 0; i < p.Count; i++ {
		x, y := systems.Spread(h.rng, bounds)
		heading := h.rng.Float64() * 2 * math.Pi
		vx, vy := math.Cos(heading)*p.Speed*0.5, math.Sin(heading)*p.Speed*0.5

		var t traits.Trait
		var reentry int32
		switch r := h.rng.Float64(); {
		case r < p.SentinelFraction:
			t = traits.Sentinel | traits.Pick(h.rng.Float32())
			y = p.SentinelY
			vx, vy = 0, 0
			reentry = 1 + int32(h.rng.Intn(max(p.ReentryTicks, 1)))
		case r < p.SentinelFraction+p.PinnedFraction:
			t = traits.Pinned
			vx, vy = 0, 0
		default:
			t = traits.Pick(h.rng.Float32())
		}
		h.spawnParticle(x, y, vx, vy, t, reentry)
	}
}

// spawnParticle creates a new particle entity.
func (h *Harness) spawnParticle(x, y, vx, vy float64, t traits.Trait, reentry int32) ecs.Entity {
	id := h.nextID
	h.nextID++

	pos := components.Position{X: x, Y: y}
	vel := components.Velocity{X: vx, Y: vy}
	part := components.Particle{ID: id, Traits: t, Reentry: reentry}
	return h.entityMapper.NewEntity(&pos, &vel, &part, &components.Neighbors{})
}

// Tick returns the number of completed steps.
func (h *Harness) Tick() int32 {
	return h.tick
}

// Index returns the spatial index the harness rebuilds every step.
func (h *Harness) Index() spatial.Index[ecs.Entity] {
	return h.index
}

// Mismatches returns the total number of verifier mismatches so far.
func (h *Harness) Mismatches() int {
	return h.mismatches
}

// Perf returns the rolling performance statistics.
func (h *Harness) Perf() telemetry.PerfStats {
	return h.perf.Stats()
}

// Close stops query workers and flushes output files.
func (h *Harness) Close() error {
	h.neighbors.Close()
	return h.output.Close()
}
