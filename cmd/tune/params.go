package main

import (
	"math"

	"github.com/pthm-cable/nearfield/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
// Both index parameters are searched on a log2 scale.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the index sizing parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "log2_bucket_size", Path: "index.bucket_size", Min: 0, Max: 8, Default: 4},
			{Name: "log2_capacity", Path: "index.capacity", Min: 0, Max: 8, Default: 4},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, ps := range pv.Specs {
		v[i] = ps.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, ps := range pv.Specs {
		normalized[i] = (raw[i] - ps.Min) / (ps.Max - ps.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, ps := range pv.Specs {
		raw[i] = ps.Min + normalized[i]*(ps.Max-ps.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, ps := range pv.Specs {
		clamped[i] = math.Min(math.Max(v[i], ps.Min), ps.Max)
	}
	return clamped
}

// Decode turns a raw vector into a bucket size and an integer capacity.
func (pv *ParamVector) Decode(values []float64) (bucketSize float64, capacity int) {
	clamped := pv.Clamp(values)
	bucketSize = math.Exp2(clamped[0])
	capacity = max(1, int(math.Round(math.Exp2(clamped[1]))))
	return bucketSize, capacity
}

// ApplyToConfig applies parameter values to a Config struct.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) error {
	cfg.Index.BucketSize, cfg.Index.Capacity = pv.Decode(values)
	return cfg.Refresh()
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return pv.Clamp([]float64{
		math.Log2(math.Max(cfg.Index.BucketSize, 1e-9)),
		math.Log2(float64(max(cfg.Index.Capacity, 1))),
	})
}
