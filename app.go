package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	wailsrt "github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/chazu/cambium/pkg/export"
	"github.com/chazu/cambium/pkg/gmsh"
	"github.com/chazu/cambium/pkg/scene"
	"github.com/chazu/cambium/pkg/split"
	"github.com/chazu/cambium/pkg/tetra"
)

// App is the Wails backend. It exposes methods to the frontend via bindings.
type App struct {
	ctx    context.Context
	runner *gmsh.Runner
}

// MeshProgress is the payload of the "mesh:progress" event stream.
type MeshProgress struct {
	Percent int    `json:"percent"`
	Line    string `json:"line"`
}

// MeshResult is the full pipeline result returned to the frontend.
// Exactly one of Result and Error is populated; Cancelled reports a
// user abort, which is not an error.
type MeshResult struct {
	Result    *gmsh.Result `json:"result,omitempty"`
	Error     string       `json:"error,omitempty"`
	Cancelled bool         `json:"cancelled,omitempty"`
}

// TetraResult is the tetrahedralizer result returned to the frontend.
type TetraResult struct {
	Result *tetra.Result `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// ExportResult reports one export write.
type ExportResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// NewApp creates a new App. The meshing kernel is looked up from
// GMSH_PATH, falling back to "gmsh" on PATH; artifacts go to the user
// cache dir.
func NewApp() *App {
	binary := os.Getenv("GMSH_PATH")
	if binary == "" {
		binary = "gmsh"
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return &App{
		runner: &gmsh.Runner{
			Binary: binary,
			Dir:    filepath.Join(dir, "cambium"),
		},
	}
}

// startup is called by Wails on app startup. The context is saved so
// pipeline progress can be emitted as frontend events.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.runner.Progress = func(percent int, line string) {
		wailsrt.EventsEmit(a.ctx, "mesh:progress", MeshProgress{Percent: percent, Line: line})
	}
}

// RunMeshPipeline resolves the scene and runs the two-phase meshing
// pipeline for one part. Progress streams over "mesh:progress"; the
// final mesh, metrics and kernel logs come back in the result.
func (a *App) RunMeshPipeline(s scene.Scene, quality float64, partIndex int) MeshResult {
	rs := s.Resolve()
	res, err := a.runner.Run(a.ctx, gmsh.Request{
		Scene:     rs,
		Quality:   quality,
		PartIndex: partIndex,
	})
	if err == gmsh.ErrCancelled {
		log.Printf("mesh pipeline cancelled")
		return MeshResult{Cancelled: true}
	}
	if err != nil {
		log.Printf("mesh pipeline failed: %v", err)
		return MeshResult{Error: err.Error()}
	}
	log.Printf("mesh pipeline done: %d vertices, %d elements, volume %.1f",
		len(res.Mesh.Vertices), len(res.Mesh.Elements), res.Volume)
	return MeshResult{Result: res}
}

// AbortMeshPipeline kills the running meshing kernel, if any. The
// in-flight RunMeshPipeline call returns with Cancelled set.
func (a *App) AbortMeshPipeline() {
	log.Printf("mesh pipeline abort requested")
	gmsh.Abort()
}

// Tetrahedralize fills a closed triangle surface soup with quadratic
// tets. Available when built with the tetgen kernel; otherwise the
// error says how to enable it.
func (a *App) Tetrahedralize(soup []float64, opts tetra.Options) TetraResult {
	res, err := tetra.Tetrahedralize(soup, opts)
	if err != nil {
		log.Printf("tetrahedralize failed: %v", err)
		return TetraResult{Error: err.Error()}
	}
	return TetraResult{Result: res}
}

// ComputeSmartSplit searches for a dovetailed split line that avoids
// the given obstacles while both halves fit the fabrication bed.
func (a *App) ComputeSmartSplit(input split.Input) *split.Result {
	res := split.Optimize(&input)
	log.Printf("smart split: success=%v cost=%.4f", res.Success, res.Cost)
	return res
}

// DebugSplitEval scores the caller's line as a split candidate and
// returns the cost breakdown for inspection.
func (a *App) DebugSplitEval(input split.Input) *split.DebugResult {
	return split.DebugEval(&input)
}

// ExportLayerFiles writes one layer to disk in the requested format.
func (a *App) ExportLayerFiles(req export.Request) ExportResult {
	if err := export.Write(&req); err != nil {
		log.Printf("export %s failed: %v", req.FileType, err)
		return ExportResult{Error: err.Error()}
	}
	log.Printf("exported %s to %s", req.FileType, req.Filepath)
	return ExportResult{Success: true}
}
