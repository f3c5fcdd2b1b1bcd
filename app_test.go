package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/cambium/pkg/export"
	"github.com/chazu/cambium/pkg/split"
	"github.com/chazu/cambium/pkg/tetra"
)

func TestNewAppDefaults(t *testing.T) {
	app := NewApp()
	if app.runner == nil {
		t.Fatal("runner not configured")
	}
	if app.runner.Binary == "" {
		t.Error("kernel binary not set")
	}
	if app.runner.Dir == "" {
		t.Error("artifact dir not set")
	}
}

// TestE2ESmartSplit exercises the same path the ComputeSmartSplit
// binding takes, but without the Wails runtime: a square board with a
// feasible seed line splits on that line.
func TestE2ESmartSplit(t *testing.T) {
	app := NewApp()
	res := app.ComputeSmartSplit(split.Input{
		Outline:     [][2]float64{{0, 0}, {100, 0}, {100, 100}, {0, 100}},
		BedWidth:    100,
		BedHeight:   60,
		InitialLine: &[2][2]float64{{0, 50}, {100, 50}},
	})
	if !res.Success {
		t.Fatalf("expected a successful split, cost %g", res.Cost)
	}
	if len(res.Shapes) != 1 {
		t.Fatalf("expected 1 cut, got %d", len(res.Shapes))
	}
	if res.Shapes[0].ID == "" {
		t.Error("cut is missing an id")
	}
}

func TestDebugSplitEvalNoLine(t *testing.T) {
	app := NewApp()
	res := app.DebugSplitEval(split.Input{
		Outline: [][2]float64{{0, 0}, {100, 0}, {100, 100}, {0, 100}},
	})
	if res.Cost != -1 {
		t.Errorf("missing line: cost %g, want -1", res.Cost)
	}
}

func TestExportLayerFilesSTL(t *testing.T) {
	app := NewApp()
	path := filepath.Join(t.TempDir(), "part.stl")
	content := []byte("solid part\nendsolid part\n")

	res := app.ExportLayerFiles(export.Request{
		Filepath:   path,
		FileType:   "STL",
		STLContent: content,
	})
	if !res.Success {
		t.Fatalf("export failed: %s", res.Error)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Error("STL content was not forwarded verbatim")
	}
}

func TestExportLayerFilesBadType(t *testing.T) {
	app := NewApp()
	res := app.ExportLayerFiles(export.Request{
		Filepath: filepath.Join(t.TempDir(), "part.xyz"),
		FileType: "XYZ",
	})
	if res.Success {
		t.Fatal("unsupported file type should fail")
	}
	if !strings.Contains(res.Error, "unsupported") {
		t.Errorf("error = %q, want unsupported file type", res.Error)
	}
}

func TestTetrahedralizeBadInput(t *testing.T) {
	app := NewApp()
	res := app.Tetrahedralize(nil, tetra.Options{})
	if res.Error == "" {
		t.Fatal("empty soup should report an error")
	}
}
