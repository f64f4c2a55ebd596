package main

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/lidarloc/internal/lidar"
	"github.com/banshee-data/lidarloc/internal/lidar/scanio"
)

func setFlag(t *testing.T, p *string, v string) {
	t.Helper()
	old := *p
	*p = v
	t.Cleanup(func() { *p = old })
}

// writeScans records one scan seeing two posts, plus a beam with no return.
func writeScans(t *testing.T) string {
	t.Helper()
	scan := lidar.Scan{Seq: 1, RangeMin: 0.05, RangeMax: 12}
	posts := []struct {
		cx, cy, r float64
		n         int
	}{
		{1.0, 0.2, 0.1, 10},
		{-0.5, 1.0, 0.12, 12},
	}
	for _, p := range posts {
		for i := 0; i < p.n; i++ {
			a := 2 * math.Pi * float64(i) / float64(p.n)
			x, y := p.cx+p.r*math.Cos(a), p.cy+p.r*math.Sin(a)
			scan.Angles = append(scan.Angles, math.Atan2(y, x))
			scan.Ranges = append(scan.Ranges, math.Hypot(x, y))
		}
	}
	scan.Angles = append(scan.Angles, math.Pi)
	scan.Ranges = append(scan.Ranges, math.Inf(1))

	path := filepath.Join(t.TempDir(), "scans.jsonl")
	w, err := scanio.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.Write(scan); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path
}

func TestRun_ReplayWritesCSV(t *testing.T) {
	csvOut := filepath.Join(t.TempDir(), "positions.csv")
	setFlag(t, scansPath, writeScans(t))
	setFlag(t, csvPath, csvOut)

	if code := run(); code != 0 {
		t.Fatalf("run() = %d, want 0", code)
	}

	data, err := os.ReadFile(csvOut)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 || strings.Count(lines[0], ",") != 1 {
		t.Errorf("expected a single x,y row, got %q", data)
	}
}

// A sink that cannot be opened must fail the run through the normal return
// path, after the scan reader has been opened.
func TestRun_SinkSetupFailureReturns(t *testing.T) {
	setFlag(t, scansPath, writeScans(t))
	setFlag(t, recordPath, filepath.Join(t.TempDir(), "record.jsonl"))
	setFlag(t, csvPath, filepath.Join(t.TempDir(), "missing", "positions.csv"))

	if code := run(); code != 1 {
		t.Fatalf("run() = %d, want 1", code)
	}
}
