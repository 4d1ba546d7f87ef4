package main

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/nearfield/config"
	"github.com/pthm-cable/nearfield/harness"
	"github.com/pthm-cable/nearfield/telemetry"
)

// mismatchPenalty is added to the cost of a configuration whose index
// disagreed with the reference.
const mismatchPenalty = 1e9

// EvalResult is one evaluated configuration.
type EvalResult struct {
	Eval       int     `csv:"eval"`
	Fitness    float64 `csv:"fitness"`
	BucketSize float64 `csv:"bucket_size"`
	Capacity   int     `csv:"capacity"`
	BuildUS    float64 `csv:"index_build_us"`
	QueryUS    float64 `csv:"query_us"`
	Mismatches int     `csv:"mismatches"`
	Buckets    float64 `csv:"buckets"`
}

// FitnessEvaluator runs headless harness runs and scores index settings.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int
	seeds      []int64
	baseConfig *config.Config
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		maxTicks:   maxTicks,
		seeds:      seeds,
		baseConfig: baseCfg,
	}
}

// Evaluate computes the cost of a raw parameter vector (lower = better):
// mean per-tick index build plus query time in microseconds over all seeds.
// Seeds run one after another so timings do not compete for cores.
func (fe *FitnessEvaluator) Evaluate(ctx context.Context, x []float64) (EvalResult, error) {
	cfg := fe.copyConfig()
	if err := fe.params.ApplyToConfig(cfg, x); err != nil {
		return EvalResult{}, err
	}
	res := EvalResult{BucketSize: cfg.Index.BucketSize, Capacity: cfg.Index.Capacity}

	for _, seed := range fe.seeds {
		var buckets []float64
		h, err := harness.New(cfg, harness.Options{
			Seed: seed,
			StatsCallback: func(s telemetry.WindowStats) {
				buckets = append(buckets, float64(s.IndexBuckets))
			},
		})
		if err != nil {
			return res, err
		}
		runErr := h.Run(ctx, fe.maxTicks)
		perf := h.Perf()
		mismatches := h.Mismatches()
		h.Close()
		if runErr != nil {
			return res, fmt.Errorf("seed %d: %w", seed, runErr)
		}

		res.BuildUS += perf.PhaseUS(telemetry.PhaseIndexBuild)
		res.QueryUS += perf.PhaseUS(telemetry.PhaseQuery)
		res.Mismatches += mismatches
		res.Buckets += mean(buckets)
	}

	n := float64(len(fe.seeds))
	res.BuildUS /= n
	res.QueryUS /= n
	res.Buckets /= n
	res.Fitness = res.BuildUS + res.QueryUS
	if res.Mismatches > 0 {
		res.Fitness += mismatchPenalty
	}
	return res, nil
}

// copyConfig returns a copy of the base config.
// Config holds no references, so a value copy is deep.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}

// failedEvalCost scores an evaluation that could not run.
const failedEvalCost = 1e12

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}
