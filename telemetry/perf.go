package telemetry

import (
	"log/slog"
	"time"
)

// Phase identifies one timed part of a harness step.
type Phase int

// Phases of the harness step, in execution order.
const (
	PhaseIndexBuild Phase = iota
	PhaseQuery
	PhaseVerify
	PhaseMotion
	PhaseTelemetry
	numPhases
)

var phaseNames = [numPhases]string{
	PhaseIndexBuild: "index_build",
	PhaseQuery:      "query",
	PhaseVerify:     "verify",
	PhaseMotion:     "motion",
	PhaseTelemetry:  "telemetry",
}

func (p Phase) String() string {
	if p < 0 || p >= numPhases {
		return "unknown"
	}
	return phaseNames[p]
}

// PerfSample holds timing data for a single tick.
type PerfSample struct {
	TickDuration time.Duration
	Phases       [numPhases]time.Duration
}

// PerfCollector tracks performance metrics over a rolling window.
type PerfCollector struct {
	windowSize  int
	samples     []PerfSample
	writeIndex  int
	sampleCount int

	current    PerfSample
	tickStart  time.Time
	phaseStart time.Time
	lastPhase  Phase
	inPhase    bool
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of ticks to average over.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize: windowSize,
		samples:    make([]PerfSample, windowSize),
	}
}

// StartTick begins timing a new tick.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.current = PerfSample{}
	p.inPhase = false
}

// StartPhase ends the running phase, if any, and starts timing phase.
func (p *PerfCollector) StartPhase(phase Phase) {
	now := time.Now()
	if p.inPhase {
		p.current.Phases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
	p.inPhase = phase >= 0 && phase < numPhases
}

// EndTick finishes timing the current tick and records the sample.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	if p.inPhase {
		p.current.Phases[p.lastPhase] += now.Sub(p.phaseStart)
		p.inPhase = false
	}
	p.current.TickDuration = now.Sub(p.tickStart)

	p.samples[p.writeIndex] = p.current
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// Reset drops all recorded samples.
func (p *PerfCollector) Reset() {
	p.writeIndex = 0
	p.sampleCount = 0
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	Samples int

	// Tick timing
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration

	// Phase breakdown: average duration and share of tick time in percent
	PhaseAvg [numPhases]time.Duration
	PhasePct [numPhases]float64

	TicksPerSecond float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{}
	}

	var totalTick, minTick, maxTick time.Duration
	var phaseSum [numPhases]time.Duration
	for i := 0; i < p.sampleCount; i++ {
		s := &p.samples[i]
		totalTick += s.TickDuration
		if i == 0 || s.TickDuration < minTick {
			minTick = s.TickDuration
		}
		if s.TickDuration > maxTick {
			maxTick = s.TickDuration
		}
		for ph, d := range s.Phases {
			phaseSum[ph] += d
		}
	}

	n := time.Duration(p.sampleCount)
	stats := PerfStats{
		Samples:         p.sampleCount,
		AvgTickDuration: totalTick / n,
		MinTickDuration: minTick,
		MaxTickDuration: maxTick,
	}
	for ph, sum := range phaseSum {
		stats.PhaseAvg[ph] = sum / n
		if stats.AvgTickDuration > 0 {
			stats.PhasePct[ph] = float64(stats.PhaseAvg[ph]) / float64(stats.AvgTickDuration) * 100
		}
	}
	if stats.AvgTickDuration > 0 {
		stats.TicksPerSecond = float64(time.Second) / float64(stats.AvgTickDuration)
	}
	return stats
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	slog.Info("perf", "stats", s)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("min_tick_us", s.MinTickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Int("ticks_per_sec", int(s.TicksPerSecond)),
	}
	for ph := Phase(0); ph < numPhases; ph++ {
		if pct := s.PhasePct[ph]; pct > 0.1 {
			attrs = append(attrs, slog.Float64(ph.String()+"_pct", float64(int(pct*10))/10))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	WindowEnd     int32   `csv:"window_end"`
	Kind          string  `csv:"kind"`
	AvgTickUS     int64   `csv:"avg_tick_us"`
	MinTickUS     int64   `csv:"min_tick_us"`
	MaxTickUS     int64   `csv:"max_tick_us"`
	TicksPerSec   float64 `csv:"ticks_per_sec"`
	IndexBuildUS  float64 `csv:"index_build_us"`
	QueryUS       float64 `csv:"query_us"`
	VerifyUS      float64 `csv:"verify_us"`
	MotionUS      float64 `csv:"motion_us"`
	TelemetryUS   float64 `csv:"telemetry_us"`
	IndexBuildPct float64 `csv:"index_build_pct"`
	QueryPct      float64 `csv:"query_pct"`
}

// PhaseUS returns the average duration of phase in microseconds.
func (s PerfStats) PhaseUS(phase Phase) float64 {
	if phase < 0 || phase >= numPhases {
		return 0
	}
	return float64(s.PhaseAvg[phase]) / float64(time.Microsecond)
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(windowEnd int32, kind string) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:     windowEnd,
		Kind:          kind,
		AvgTickUS:     s.AvgTickDuration.Microseconds(),
		MinTickUS:     s.MinTickDuration.Microseconds(),
		MaxTickUS:     s.MaxTickDuration.Microseconds(),
		TicksPerSec:   s.TicksPerSecond,
		IndexBuildUS:  s.PhaseUS(PhaseIndexBuild),
		QueryUS:       s.PhaseUS(PhaseQuery),
		VerifyUS:      s.PhaseUS(PhaseVerify),
		MotionUS:      s.PhaseUS(PhaseMotion),
		TelemetryUS:   s.PhaseUS(PhaseTelemetry),
		IndexBuildPct: s.PhasePct[PhaseIndexBuild],
		QueryPct:      s.PhasePct[PhaseQuery],
	}
}
