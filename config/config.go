// Package config provides configuration loading and access for the harness.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/nearfield/spatial"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all harness configuration parameters.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Index     IndexConfig     `yaml:"index"`
	Particles ParticlesConfig `yaml:"particles"`
	Query     QueryConfig     `yaml:"query"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Verify    VerifyConfig    `yaml:"verify"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Parallel  ParallelConfig  `yaml:"parallel"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds the indexed region.
type WorldConfig struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// IndexConfig selects and sizes the spatial index backend.
type IndexConfig struct {
	Kind       string  `yaml:"kind"`        // list, grid, quadtree, rtree, hashgrid
	Capacity   int     `yaml:"capacity"`    // items per node before a split (0 = unlimited)
	BucketSize float64 `yaml:"bucket_size"` // cell side / minimum node size in world units
}

// ParticlesConfig holds the synthetic population driven through the index.
type ParticlesConfig struct {
	Count            int     `yaml:"count"`
	SentinelFraction float64 `yaml:"sentinel_fraction"` // share of particles parked offscreen at start
	Speed            float64 `yaml:"speed"`             // base speed in world units per second
	NoiseScale       float64 `yaml:"noise_scale"`       // flow field spatial frequency
	NoiseTimeSpeed   float64 `yaml:"noise_time_speed"`  // flow field animation speed
	FlowStrength     float64 `yaml:"flow_strength"`     // flow field contribution to velocity
	OffscreenMargin  float64 `yaml:"offscreen_margin"`  // distance outside bounds before parking
	SentinelY        float64 `yaml:"sentinel_y"`        // y coordinate of parked particles
	ReentryTicks     int     `yaml:"reentry_ticks"`     // ticks a parked particle waits before re-entering
	PinnedFraction   float64 `yaml:"pinned_fraction"`   // share of particles that never move
}

// QueryConfig holds the per-particle neighbour query parameters.
type QueryConfig struct {
	Radius   float64 `yaml:"radius"`
	MaxCount int     `yaml:"max_count"`
}

// PhysicsConfig holds simulation step parameters.
type PhysicsConfig struct {
	DT float64 `yaml:"dt"`
}

// VerifyConfig controls the cross-check against the brute-force reference.
type VerifyConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Interval       int    `yaml:"interval"`        // verify every N ticks
	Samples        int    `yaml:"samples"`         // queries checked per verified tick (0 = all)
	SnapshotDir    string `yaml:"snapshot_dir"`    // where mismatching frames are dumped (empty = none)
	SnapshotFormat string `yaml:"snapshot_format"` // json or msgpack
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// ParallelConfig holds query-phase worker settings.
type ParallelConfig struct {
	Threshold int `yaml:"threshold"` // minimum particles before queries fan out
	Workers   int `yaml:"workers"`   // 0 = GOMAXPROCS
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Bounds    spatial.Bounds
	IndexKind spatial.Kind
	Capacity  int // Index.Capacity with 0 mapped to spatial.Unlimited
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Defaults returns a fresh copy of the embedded defaults.
func Defaults() (*Config, error) {
	return Load("")
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Refresh(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Refresh validates the config and recomputes derived values. Call it after
// modifying fields in code.
func (c *Config) Refresh() error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.computeDerived()
	return nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if spatial.NewBounds(c.World.X, c.World.Y, c.World.Width, c.World.Height).Empty() {
		errs = append(errs, fmt.Errorf("world: width and height must be positive, got %vx%v", c.World.Width, c.World.Height))
	}
	if _, err := spatial.ParseKind(c.Index.Kind); err != nil {
		errs = append(errs, fmt.Errorf("index.kind: %w", err))
	}
	if c.Index.Capacity < 0 {
		errs = append(errs, fmt.Errorf("index.capacity: must be >= 0, got %d", c.Index.Capacity))
	}
	if c.Particles.Count < 0 {
		errs = append(errs, fmt.Errorf("particles.count: must be >= 0, got %d", c.Particles.Count))
	}
	if f := c.Particles.SentinelFraction; f < 0 || f > 1 {
		errs = append(errs, fmt.Errorf("particles.sentinel_fraction: must be in [0,1], got %v", f))
	}
	if f := c.Particles.PinnedFraction; f < 0 || f > 1 {
		errs = append(errs, fmt.Errorf("particles.pinned_fraction: must be in [0,1], got %v", f))
	}
	if !(c.Query.Radius >= 0) {
		errs = append(errs, fmt.Errorf("query.radius: must be >= 0, got %v", c.Query.Radius))
	}
	if c.Query.MaxCount < 1 {
		errs = append(errs, fmt.Errorf("query.max_count: must be >= 1, got %d", c.Query.MaxCount))
	}
	if !(c.Physics.DT > 0) {
		errs = append(errs, fmt.Errorf("physics.dt: must be positive, got %v", c.Physics.DT))
	}
	if f := c.Verify.SnapshotFormat; f != "json" && f != "msgpack" {
		errs = append(errs, fmt.Errorf("verify.snapshot_format: want json or msgpack, got %q", f))
	}
	if c.Verify.Enabled && c.Verify.Interval < 1 {
		errs = append(errs, fmt.Errorf("verify.interval: must be >= 1 when enabled, got %d", c.Verify.Interval))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.Bounds = spatial.NewBounds(c.World.X, c.World.Y, c.World.Width, c.World.Height)
	c.Derived.IndexKind, _ = spatial.ParseKind(c.Index.Kind)
	c.Derived.Capacity = c.Index.Capacity
	if c.Derived.Capacity == 0 {
		c.Derived.Capacity = spatial.Unlimited
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
