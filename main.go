package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/pthm-cable/nearfield/config"
	"github.com/pthm-cable/nearfield/harness"
	"github.com/pthm-cable/nearfield/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	indexKind := flag.String("index", "", "Index backend: list, grid, quadtree, rtree, hashgrid (empty = use config)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	verify := flag.Bool("verify", false, "Cross-check queries against the brute-force reference")
	replay := flag.String("replay", "", "Verify a saved snapshot (.json or .msgpack) and exit")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if *replay != "" {
		os.Exit(replaySnapshot(*replay, *seed))
	}

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// CLI overrides
	if *indexKind != "" {
		cfg.Index.Kind = *indexKind
	}
	if *statsWindow > 0 {
		cfg.Telemetry.StatsWindow = *statsWindow
	}
	if *verify {
		cfg.Verify.Enabled = true
	}
	if err := cfg.Refresh(); err != nil {
		slog.Error("invalid flags", "error", err)
		os.Exit(1)
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	h, err := harness.New(cfg, harness.Options{
		Seed:      rngSeed,
		LogStats:  *logStats,
		OutputDir: *outputDir,
	})
	if err != nil {
		slog.Error("failed to start harness", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	slog.Info("starting run",
		"seed", rngSeed,
		"kind", cfg.Derived.IndexKind.String(),
		"max_ticks", *maxTicks,
	)

	start := time.Now()
	runErr := h.Run(ctx, *maxTicks)
	if err := h.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}

	switch {
	case errors.Is(runErr, context.Canceled):
		slog.Info("interrupted", "tick", h.Tick())
	case runErr != nil:
		slog.Error("run failed", "tick", h.Tick(), "error", runErr)
		os.Exit(1)
	default:
		slog.Info("max ticks reached", "tick", h.Tick(), "elapsed", time.Since(start).String())
	}

	if h.Mismatches() > 0 {
		slog.Error("index disagreed with reference", "mismatches", h.Mismatches())
		os.Exit(2)
	}
}

// replaySnapshot re-verifies a dumped frame and returns the process exit code.
func replaySnapshot(path string, seed int64) int {
	snap, err := telemetry.LoadSnapshot(path)
	if err != nil {
		slog.Error("failed to load snapshot", "path", path, "error", err)
		return 1
	}
	res, err := harness.Replay(snap, seed)
	if err != nil {
		slog.Error("replay failed", "path", path, "error", err)
		return 1
	}

	slog.Info("replayed snapshot",
		"path", path,
		"tick", snap.Tick,
		"kind", snap.Kind.String(),
		"items", res.Items,
		"recorded", res.Recorded,
		"mismatches", len(res.Mismatches),
	)
	for _, m := range res.Mismatches {
		slog.Warn("mismatch", "reason", m.Reason, "x", m.X, "y", m.Y, "got", m.Got, "want", m.Want, "detail", m.Detail)
	}
	if len(res.Mismatches) > 0 {
		return 2
	}
	return 0
}
