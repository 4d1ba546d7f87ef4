package harness

import (
	"context"
	"fmt"

	"github.com/pthm-cable/nearfield/telemetry"
)

// Step runs a single frame: rebuild the index from current positions, query
// every particle's neighbourhood, optionally verify, then move particles.
// Positions only change after all queries for the frame have run.
func (h *Harness) Step() error {
	h.perf.StartTick()

	// 1. Rebuild the index
	h.perf.StartPhase(telemetry.PhaseIndexBuild)
	h.indexSys.Rebuild()

	// 2. Neighbour queries
	h.perf.StartPhase(telemetry.PhaseQuery)
	qs := h.neighbors.Update(h.index, h.indexSys.Frame())
	h.collector.RecordQueries(qs.Queries, qs.Capped, qs.Errors)
	if qs.Err != nil {
		h.perf.EndTick()
		return fmt.Errorf("tick %d: neighbour query: %w", h.tick, qs.Err)
	}

	// 3. Cross-check against the brute-force reference
	if h.verifier != nil && h.tick%int32(h.cfg.Verify.Interval) == 0 {
		h.perf.StartPhase(telemetry.PhaseVerify)
		h.verify()
	}

	// 4. Move particles
	h.perf.StartPhase(telemetry.PhaseMotion)
	simTime := float64(h.tick) * h.cfg.Physics.DT
	ms := h.motion.Update(simTime, h.cfg.Physics.DT)
	h.collector.RecordMotion(ms.Parked, ms.Reentered)

	h.tick++

	// 5. Telemetry
	h.perf.StartPhase(telemetry.PhaseTelemetry)
	h.flushTelemetry()

	h.perf.EndTick()
	return nil
}

// Run steps until maxTicks steps have completed or ctx is done.
// maxTicks <= 0 runs until ctx is done.
func (h *Harness) Run(ctx context.Context, maxTicks int) error {
	for maxTicks <= 0 || int(h.tick) < maxTicks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := h.Step(); err != nil {
			return err
		}
	}
	return nil
}
