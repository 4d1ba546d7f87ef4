package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`
	Kind            string  `csv:"kind"`

	// Population at window end
	Particles int `csv:"particles"`
	Sentinels int `csv:"sentinels"`

	// Events during window
	Queries    int     `csv:"queries"`
	Capped     int     `csv:"capped_queries"` // more than max_count matched
	Errors     int     `csv:"query_errors"`
	Verified   int     `csv:"verified_ticks"`
	Mismatches int     `csv:"mismatches"`
	Parked     int     `csv:"parked"`
	Reentered  int     `csv:"reentered"`
	CappedRate float64 `csv:"capped_rate"`

	// Neighbour count distribution (sampled at window end)
	NeighborsMean float64 `csv:"neighbors_mean"`
	NeighborsStd  float64 `csv:"neighbors_std"`
	NeighborsP10  float64 `csv:"neighbors_p10"`
	NeighborsP50  float64 `csv:"neighbors_p50"`
	NeighborsP90  float64 `csv:"neighbors_p90"`

	// Index shape at window end
	IndexItems    int `csv:"index_items"`
	IndexOutside  int `csv:"index_outside"`
	IndexBuckets  int `csv:"index_buckets"`
	IndexMaxDepth int `csv:"index_max_depth"`
}

// Distribution summarises a sample of values.
type Distribution struct {
	Mean, Std     float64
	P10, P50, P90 float64
}

// SetNeighbors copies d into the neighbour count columns.
func (s *WindowStats) SetNeighbors(d Distribution) {
	s.NeighborsMean = d.Mean
	s.NeighborsStd = d.Std
	s.NeighborsP10 = d.P10
	s.NeighborsP50 = d.P50
	s.NeighborsP90 = d.P90
}

// Percentile returns the p-th empirical quantile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	p = min(max(p, 0), 1)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// ComputeDistribution calculates mean, std and percentiles of values.
// values is sorted in place.
func ComputeDistribution(values []float64) Distribution {
	n := len(values)
	if n == 0 {
		return Distribution{}
	}
	slices.Sort(values)

	var d Distribution
	if n == 1 {
		d.Mean = values[0]
	} else {
		d.Mean, d.Std = stat.MeanStdDev(values, nil)
	}
	d.P10 = Percentile(values, 0.10)
	d.P50 = Percentile(values, 0.50)
	d.P90 = Percentile(values, 0.90)
	return d
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.String("kind", s.Kind),
		slog.Int("particles", s.Particles),
		slog.Int("sentinels", s.Sentinels),
		slog.Int("queries", s.Queries),
		slog.Int("capped_queries", s.Capped),
		slog.Int("query_errors", s.Errors),
		slog.Int("verified_ticks", s.Verified),
		slog.Int("mismatches", s.Mismatches),
		slog.Int("parked", s.Parked),
		slog.Int("reentered", s.Reentered),
		slog.Float64("capped_rate", s.CappedRate),
		slog.Float64("neighbors_mean", s.NeighborsMean),
		slog.Float64("neighbors_std", s.NeighborsStd),
		slog.Float64("neighbors_p50", s.NeighborsP50),
		slog.Int("index_items", s.IndexItems),
		slog.Int("index_outside", s.IndexOutside),
		slog.Int("index_buckets", s.IndexBuckets),
		slog.Int("index_max_depth", s.IndexMaxDepth),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"kind", s.Kind,
		"particles", s.Particles,
		"sentinels", s.Sentinels,
		"queries", s.Queries,
		"capped", s.Capped,
		"mismatches", s.Mismatches,
		"neighbors_mean", s.NeighborsMean,
		"neighbors_p90", s.NeighborsP90,
		"index_buckets", s.IndexBuckets,
	)
}
