package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/nearfield/config"
)

func TestParamVectorRoundTrip(t *testing.T) {
	pv := NewParamVector()
	def := pv.DefaultVector()
	back := pv.Denormalize(pv.Normalize(def))
	for i := range def {
		if math.Abs(back[i]-def[i]) > 1e-12 {
			t.Errorf("param %s: %v -> %v", pv.Specs[i].Name, def[i], back[i])
		}
	}
}

func TestDecode(t *testing.T) {
	pv := NewParamVector()
	tests := []struct {
		in       []float64
		bucket   float64
		capacity int
	}{
		{[]float64{4, 4}, 16, 16},
		{[]float64{0, 0}, 1, 1},
		{[]float64{-3, 20}, 1, 256}, // clamped
		{[]float64{1.5, 2.4}, math.Exp2(1.5), 5},
	}
	for _, tt := range tests {
		b, c := pv.Decode(tt.in)
		if math.Abs(b-tt.bucket) > 1e-9 || c != tt.capacity {
			t.Errorf("Decode(%v) = %v, %d; want %v, %d", tt.in, b, c, tt.bucket, tt.capacity)
		}
	}
}

func TestApplyAndExtract(t *testing.T) {
	cfg, err := config.Defaults()
	if err != nil {
		t.Fatal(err)
	}
	pv := NewParamVector()
	if err := pv.ApplyToConfig(cfg, []float64{3, 5}); err != nil {
		t.Fatal(err)
	}
	if cfg.Index.BucketSize != 8 || cfg.Index.Capacity != 32 || cfg.Derived.Capacity != 32 {
		t.Errorf("applied config = %+v derived %+v", cfg.Index, cfg.Derived)
	}
	got := pv.ExtractFromConfig(cfg)
	if math.Abs(got[0]-3) > 1e-9 || math.Abs(got[1]-5) > 1e-9 {
		t.Errorf("ExtractFromConfig = %v, want [3 5]", got)
	}
}

func TestNewMethod(t *testing.T) {
	for _, name := range []string{"neldermead", "cmaes"} {
		if _, err := newMethod(name, 2); err != nil {
			t.Errorf("newMethod(%q): %v", name, err)
		}
	}
	if _, err := newMethod("bfgs", 2); err == nil {
		t.Error("expected error for unknown method")
	}
}
