package harness

import (
	"log/slog"

	"github.com/pthm-cable/nearfield/systems"
	"github.com/pthm-cable/nearfield/telemetry"
	"github.com/pthm-cable/nearfield/traits"
)

// flushTelemetry checks if the stats window should be flushed.
func (h *Harness) flushTelemetry() {
	if !h.collector.ShouldFlush(h.tick) {
		return
	}

	particles, sentinels := h.sampleNeighborCounts()
	stats := h.collector.Flush(h.tick, particles, sentinels, h.counts, h.index.Stats())
	perfStats := h.perf.Stats()

	if h.opts.StatsCallback != nil {
		h.opts.StatsCallback(stats)
	}

	if h.opts.LogStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := h.output.WriteWindow(stats); err != nil {
		slog.Error("failed to write window stats", "error", err)
	}
	if err := h.output.WritePerf(perfStats, stats.WindowEndTick, stats.Kind); err != nil {
		slog.Error("failed to write perf", "error", err)
	}
}

// sampleNeighborCounts fills h.counts with the last query result of every
// particle that is not parked.
func (h *Harness) sampleNeighborCounts() (particles, sentinels int) {
	h.counts = h.counts[:0]
	query := h.reportFilter.Query()
	for query.Next() {
		p, nb := query.Get()
		particles++
		if p.Traits.Has(traits.Sentinel) {
			sentinels++
			continue
		}
		h.counts = append(h.counts, float64(nb.Count))
	}
	return particles, sentinels
}

// verify checks this frame's index against the brute-force reference and
// reports any mismatches.
func (h *Harness) verify() {
	frame := h.indexSys.Frame()
	mismatches := h.verifier.Check(h.tick, h.index, frame, h.cfg.Query.Radius, h.cfg.Query.MaxCount)
	h.collector.RecordVerify(len(mismatches))
	if len(mismatches) == 0 {
		return
	}

	kind := h.cfg.Derived.IndexKind.String()
	for i := range mismatches {
		mismatches[i].Kind = kind
	}
	h.mismatches += len(mismatches)

	first := mismatches[0]
	slog.Warn("index disagrees with reference",
		"tick", h.tick,
		"kind", kind,
		"count", len(mismatches),
		"reason", first.Reason,
		"x", first.X,
		"y", first.Y,
		"got", first.Got,
		"want", first.Want,
	)

	if err := h.output.WriteMismatches(mismatches); err != nil {
		slog.Error("failed to write mismatches", "error", err)
	}
	if dir := h.cfg.Verify.SnapshotDir; dir != "" {
		h.saveSnapshot(dir, mismatches)
	}
}

// saveSnapshot dumps the current frame for offline replay.
func (h *Harness) saveSnapshot(dir string, mismatches []systems.Mismatch) {
	snap := telemetry.NewSnapshot(h.opts.Seed, h.tick, h.cfg.Derived.IndexKind, h.cfg.Derived.Bounds,
		h.cfg.Derived.Capacity, h.cfg.Index.BucketSize, h.indexSys.Frame())
	snap.Radius = h.cfg.Query.Radius
	snap.MaxCount = h.cfg.Query.MaxCount
	snap.Mismatches = mismatches

	path, err := telemetry.SaveSnapshotAs(snap, dir, h.cfg.Verify.SnapshotFormat)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path, "tick", h.tick)
}
