package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/nearfield/systems"
)

func TestOutputManagerNilIsNoop(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("NewOutputManager(\"\") = %v, %v", om, err)
	}
	if err := om.WriteWindow(WindowStats{}); err != nil {
		t.Error(err)
	}
	if err := om.WriteMismatches([]systems.Mismatch{{Reason: "x"}}); err != nil {
		t.Error(err)
	}
	if om.Dir() != "" || om.Close() != nil {
		t.Error("nil manager should have no dir and close cleanly")
	}
}

func TestOutputManagerWritesCSV(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	for i := int32(1); i <= 3; i++ {
		if err := om.WriteWindow(WindowStats{WindowEndTick: i * 10, Kind: "quadtree", Queries: int(i)}); err != nil {
			t.Fatal(err)
		}
	}
	if err := om.WriteMismatches(nil); err != nil {
		t.Fatal(err)
	}
	if err := om.WriteMismatches([]systems.Mismatch{{Tick: 5, Reason: systems.ReasonOverCap, Got: 9, Want: 4}}); err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filepath.Join(dir, "window.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var rows []WindowStats
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		t.Fatalf("reading window.csv: %v", err)
	}
	if len(rows) != 3 || rows[2].WindowEndTick != 30 || rows[2].Queries != 3 || rows[0].Kind != "quadtree" {
		t.Errorf("window rows = %+v", rows)
	}

	mf, err := os.Open(filepath.Join(dir, "mismatches.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer mf.Close()
	var ms []systems.Mismatch
	if err := gocsv.UnmarshalFile(mf, &ms); err != nil {
		t.Fatalf("reading mismatches.csv: %v", err)
	}
	if len(ms) != 1 || ms[0].Reason != systems.ReasonOverCap || ms[0].Got != 9 {
		t.Errorf("mismatch rows = %+v", ms)
	}
}
