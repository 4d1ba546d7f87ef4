package telemetry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/nearfield/config"
	"github.com/pthm-cable/nearfield/systems"
)

// csvFile appends records of one type to a CSV file, writing the header
// with the first batch.
type csvFile[T any] struct {
	name          string
	f             *os.File
	headerWritten bool
}

func createCSV[T any](dir, name string) (*csvFile[T], error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return &csvFile[T]{name: name, f: f}, nil
}

func (c *csvFile[T]) write(records []T) error {
	if len(records) == 0 {
		return nil
	}
	var err error
	if !c.headerWritten {
		err = gocsv.Marshal(records, c.f)
		c.headerWritten = err == nil
	} else {
		err = gocsv.MarshalWithoutHeaders(records, c.f)
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", c.name, err)
	}
	return nil
}

func (c *csvFile[T]) close() error {
	if c == nil || c.f == nil {
		return nil
	}
	return c.f.Close()
}

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir        string
	window     *csvFile[WindowStats]
	perf       *csvFile[PerfStatsCSV]
	mismatches *csvFile[systems.Mismatch]
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled). Every method is a no-op on nil.
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	var err error
	if om.window, err = createCSV[WindowStats](dir, "window.csv"); err != nil {
		return nil, err
	}
	if om.perf, err = createCSV[PerfStatsCSV](dir, "perf.csv"); err != nil {
		om.Close()
		return nil, err
	}
	if om.mismatches, err = createCSV[systems.Mismatch](dir, "mismatches.csv"); err != nil {
		om.Close()
		return nil, err
	}
	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteWindow writes a window stats record to window.csv.
func (om *OutputManager) WriteWindow(stats WindowStats) error {
	if om == nil {
		return nil
	}
	return om.window.write([]WindowStats{stats})
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int32, kind string) error {
	if om == nil {
		return nil
	}
	return om.perf.write([]PerfStatsCSV{stats.ToCSV(windowEnd, kind)})
}

// WriteMismatches appends verifier mismatches to mismatches.csv.
func (om *OutputManager) WriteMismatches(ms []systems.Mismatch) error {
	if om == nil {
		return nil
	}
	return om.mismatches.write(ms)
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	return errors.Join(om.window.close(), om.perf.close(), om.mismatches.close())
}
