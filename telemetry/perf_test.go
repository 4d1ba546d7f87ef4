package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseIndexBuild)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(PhaseQuery)
		time.Sleep(200 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average tick duration")
	}
	if stats.Samples != 5 {
		t.Errorf("Samples = %d, want 5", stats.Samples)
	}
	if stats.PhaseAvg[PhaseIndexBuild] <= 0 || stats.PhaseAvg[PhaseQuery] <= 0 {
		t.Errorf("expected both phases to be tracked, got %v", stats.PhaseAvg)
	}
	if stats.PhaseAvg[PhaseVerify] != 0 {
		t.Errorf("untouched phase has average %v", stats.PhaseAvg[PhaseVerify])
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)

	for i := 0; i < 10; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseMotion)
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.Samples != 5 {
		t.Errorf("Samples = %d, want window size 5", stats.Samples)
	}
	if stats.TicksPerSecond <= 0 {
		t.Error("expected positive ticks per second")
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseMotion)
		time.Sleep(10 * time.Microsecond)
		pc.StartPhase(PhaseQuery)
		time.Sleep(500 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.PhasePct[PhaseQuery] <= stats.PhasePct[PhaseMotion] {
		t.Errorf("expected query phase (%v%%) > motion phase (%v%%)",
			stats.PhasePct[PhaseQuery], stats.PhasePct[PhaseMotion])
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	pc := NewPerfCollector(10)
	stats := pc.Stats()
	if stats.AvgTickDuration != 0 || stats.Samples != 0 {
		t.Errorf("expected zero stats for empty collector, got %+v", stats)
	}

	pc.StartTick()
	pc.EndTick()
	pc.Reset()
	if pc.Stats().Samples != 0 {
		t.Error("Reset did not drop samples")
	}
}

func TestPhaseString(t *testing.T) {
	if PhaseQuery.String() != "query" || Phase(99).String() != "unknown" {
		t.Errorf("Phase names: %q %q", PhaseQuery, Phase(99))
	}
}

func TestPerfStatsToCSV(t *testing.T) {
	var s PerfStats
	s.AvgTickDuration = 2 * time.Millisecond
	s.PhaseAvg[PhaseQuery] = 1500 * time.Microsecond
	s.PhasePct[PhaseQuery] = 75

	row := s.ToCSV(120, "grid")
	if row.WindowEnd != 120 || row.Kind != "grid" || row.AvgTickUS != 2000 {
		t.Errorf("row = %+v", row)
	}
	if row.QueryUS != 1500 || row.QueryPct != 75 {
		t.Errorf("query columns = %v us, %v%%", row.QueryUS, row.QueryPct)
	}
}
