package telemetry

import (
	"math"

	"github.com/pthm-cable/nearfield/spatial"
)

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationTicks int32
	dt                  float64
	kind                string

	// Current window tracking
	windowStartTick int32

	// Event counters for current window
	queries    int
	capped     int
	errors     int
	verified   int
	mismatches int
	parked     int
	reentered  int
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
// kind: index backend name recorded with every window
func NewCollector(windowDurationSec, dt float64, kind string) *Collector {
	ticksPerWindow := int32(math.Round(windowDurationSec / dt))
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}
	return &Collector{
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
		kind:                kind,
	}
}

// RecordQueries records one tick of neighbour queries.
func (c *Collector) RecordQueries(queries, capped, errors int) {
	c.queries += queries
	c.capped += capped
	c.errors += errors
}

// RecordVerify records one verified tick and its mismatch count.
func (c *Collector) RecordVerify(mismatches int) {
	c.verified++
	c.mismatches += mismatches
}

// RecordMotion records particles parked and re-entered during a tick.
func (c *Collector) RecordMotion(parked, reentered int) {
	c.parked += parked
	c.reentered += reentered
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
// neighborCounts is sorted in place.
func (c *Collector) Flush(currentTick int32, particles, sentinels int, neighborCounts []float64, index spatial.Stats) WindowStats {
	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,
		Kind:            c.kind,

		Particles: particles,
		Sentinels: sentinels,

		Queries:    c.queries,
		Capped:     c.capped,
		Errors:     c.errors,
		Verified:   c.verified,
		Mismatches: c.mismatches,
		Parked:     c.parked,
		Reentered:  c.reentered,

		IndexItems:    index.Items,
		IndexOutside:  index.Outside,
		IndexBuckets:  index.Buckets,
		IndexMaxDepth: index.MaxDepth,
	}
	if c.queries > 0 {
		stats.CappedRate = float64(c.capped) / float64(c.queries)
	}
	stats.SetNeighbors(ComputeDistribution(neighborCounts))

	// Reset for next window
	c.windowStartTick = currentTick
	c.queries = 0
	c.capped = 0
	c.errors = 0
	c.verified = 0
	c.mismatches = 0
	c.parked = 0
	c.reentered = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
