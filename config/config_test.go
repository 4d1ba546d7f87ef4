package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/nearfield/spatial"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load defaults: %v", err)
	}
	if cfg.World.Width != 1280 || cfg.World.Height != 800 {
		t.Errorf("world = %vx%v, want 1280x800", cfg.World.Width, cfg.World.Height)
	}
	if cfg.Derived.IndexKind != spatial.KindQuadTree {
		t.Errorf("IndexKind = %v, want quadtree", cfg.Derived.IndexKind)
	}
	if cfg.Derived.Bounds != spatial.NewBounds(0, 0, 1280, 800) {
		t.Errorf("Bounds = %+v", cfg.Derived.Bounds)
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	overlay := "index:\n  kind: grid\n  capacity: 0\nquery:\n  radius: 3\n"
	if err := os.WriteFile(path, []byte(overlay), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%s): %v", path, err)
	}
	if cfg.Derived.IndexKind != spatial.KindGrid {
		t.Errorf("IndexKind = %v, want grid", cfg.Derived.IndexKind)
	}
	if cfg.Derived.Capacity != spatial.Unlimited {
		t.Errorf("Capacity = %d, want Unlimited for 0", cfg.Derived.Capacity)
	}
	if cfg.Query.Radius != 3 {
		t.Errorf("Query.Radius = %v, want 3", cfg.Query.Radius)
	}
	// Untouched keys keep their defaults
	if cfg.Index.BucketSize != 16 || cfg.Query.MaxCount != 32 {
		t.Errorf("defaults lost: bucket=%v max_count=%d", cfg.Index.BucketSize, cfg.Query.MaxCount)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want wrapped ErrNotExist", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown kind", func(c *Config) { c.Index.Kind = "kdtree" }, "index.kind"},
		{"negative radius", func(c *Config) { c.Query.Radius = -1 }, "query.radius"},
		{"nan radius", func(c *Config) { c.Query.Radius = math.NaN() }, "query.radius"},
		{"zero max count", func(c *Config) { c.Query.MaxCount = 0 }, "query.max_count"},
		{"empty world", func(c *Config) { c.World.Width = 0 }, "world"},
		{"bad fraction", func(c *Config) { c.Particles.SentinelFraction = 2 }, "sentinel_fraction"},
		{"snapshot format", func(c *Config) { c.Verify.SnapshotFormat = "xml" }, "snapshot_format"},
		{"verify interval", func(c *Config) { c.Verify.Enabled = true; c.Verify.Interval = 0 }, "verify.interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Defaults()
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)
			err = cfg.Refresh()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Refresh() err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg, err := Defaults()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Index.Kind = "nope"
	cfg.Query.Radius = -2
	err = cfg.Validate()
	if !errors.Is(err, spatial.ErrUnknownKind) {
		t.Errorf("err = %v, want wrapped ErrUnknownKind", err)
	}
	if !strings.Contains(err.Error(), "query.radius") {
		t.Errorf("err = %v, want both problems reported", err)
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Defaults()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Index.Kind = "rtree"
	cfg.Particles.Count = 77

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load written config: %v", err)
	}
	if back.Derived.IndexKind != spatial.KindRTree || back.Particles.Count != 77 {
		t.Errorf("round trip lost values: kind=%v count=%d", back.Derived.IndexKind, back.Particles.Count)
	}
}

func TestCfgPanicsBeforeInit(t *testing.T) {
	global = nil
	defer func() {
		if recover() == nil {
			t.Error("Cfg() did not panic before Init")
		}
	}()
	Cfg()
}

func TestInit(t *testing.T) {
	defer func() { global = nil }()
	if err := Init(""); err != nil {
		t.Fatal(err)
	}
	if Cfg().Query.MaxCount != 32 {
		t.Errorf("Cfg().Query.MaxCount = %d", Cfg().Query.MaxCount)
	}
}
