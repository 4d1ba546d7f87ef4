// Package main searches index sizing parameters (bucket size and node
// capacity) for the fastest build plus query time on a given workload.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/nearfield/config"
)

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

// newMethod returns the optimizer named by name.
func newMethod(name string, dim int) (optimize.Method, error) {
	switch name {
	case "neldermead":
		return &optimize.NelderMead{SimplexSize: 0.25}, nil
	case "cmaes":
		return &optimize.CmaEsChol{
			InitStepSize: 0.3,
			Population:   4 + 3*dim/2,
		}, nil
	default:
		return nil, fmt.Errorf("unknown method %q (want neldermead or cmaes)", name)
	}
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	indexKind := flag.String("index", "", "Index backend to tune (empty = use config)")
	maxTicks := flag.Int("max-ticks", 600, "Ticks per evaluation run")
	seeds := flag.Int("seeds", 2, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 40, "Maximum number of evaluations")
	methodName := flag.String("method", "neldermead", "Optimizer: neldermead or cmaes")
	verifySamples := flag.Int("verify-samples", 64, "Verified queries per tick (0 = no verification)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	baseCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *indexKind != "" {
		baseCfg.Index.Kind = *indexKind
	}
	baseCfg.Verify.Enabled = *verifySamples > 0
	baseCfg.Verify.Interval = 10
	baseCfg.Verify.Samples = *verifySamples
	baseCfg.Verify.SnapshotDir = ""
	if err := baseCfg.Refresh(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	params := NewParamVector()
	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(params, *maxTicks, evalSeeds, baseCfg)

	method, err := newMethod(*methodName, params.Dim())
	if err != nil {
		log.Fatal(err)
	}

	logPath := filepath.Join(*outputDir, "tune.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	evalCount := 0
	var best *EvalResult
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := params.Denormalize(x)
			res, err := evaluator.Evaluate(ctx, raw)
			evalCount++
			res.Eval = evalCount
			if err != nil {
				log.Printf("eval %d failed: %v", evalCount, err)
				return failedEvalCost
			}
			if best == nil || res.Fitness < best.Fitness {
				b := res
				best = &b
			}

			rows := []EvalResult{res}
			if evalCount == 1 {
				err = gocsv.Marshal(rows, logFile)
			} else {
				err = gocsv.MarshalWithoutHeaders(rows, logFile)
			}
			if err != nil {
				log.Printf("failed to log eval %d: %v", evalCount, err)
			}

			elapsed := time.Since(startTime)
			avgPerEval := elapsed / time.Duration(evalCount)
			remaining := time.Duration(*maxEvals-evalCount) * avgPerEval
			fmt.Printf("Eval %d/%d: bucket=%.2f capacity=%d cost=%.1fus (best=%.1fus) | elapsed: %s, ETA: %s\n",
				evalCount, *maxEvals, res.BucketSize, res.Capacity, res.Fitness, best.Fitness,
				formatDuration(elapsed), formatDuration(remaining))

			return res.Fitness
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // Sequential evaluation keeps timings comparable
	}

	fmt.Printf("Tuning %s with %s, max_evals=%d, seeds=%d, ticks=%d\n",
		baseCfg.Derived.IndexKind, *methodName, *maxEvals, *seeds, *maxTicks)

	initX := params.Normalize(params.ExtractFromConfig(baseCfg))
	if _, err := optimize.Minimize(problem, initX, settings, method); err != nil {
		log.Printf("optimization ended: %v", err)
	}

	if best == nil {
		log.Fatal("no successful evaluations")
	}

	fmt.Printf("\nTuning complete after %d evaluations in %s\n", evalCount, formatDuration(time.Since(startTime)))
	fmt.Printf("Best: bucket_size=%.3f capacity=%d build=%.1fus query=%.1fus\n",
		best.BucketSize, best.Capacity, best.BuildUS, best.QueryUS)

	bestCfg := *baseCfg
	bestCfg.Index.BucketSize = best.BucketSize
	bestCfg.Index.Capacity = best.Capacity
	bestCfg.Verify.Enabled = false
	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		log.Printf("failed to write best config: %v", err)
	} else {
		fmt.Printf("Best config saved to: %s\n", configOutPath)
	}
}
