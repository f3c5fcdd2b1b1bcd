package gmsh

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/cambium/pkg/mesh"
	"github.com/chazu/cambium/pkg/scene"
)

// ErrCancelled reports a caller-initiated abort. It is not a meshing
// failure and carries no log tail.
var ErrCancelled = errors.New("gmsh: meshing cancelled")

// errTailLines bounds the log excerpt attached to pipeline failures.
const errTailLines = 15

// ProgressFunc receives coarse progress estimates while the kernel
// runs, as a percentage and the raw log line that produced it.
type ProgressFunc func(percent int, line string)

// Request drives one pipeline invocation.
type Request struct {
	Scene     *scene.ResolvedScene
	Quality   float64
	PartIndex int
}

// Result is the pipeline output surfaced to the front end.
type Result struct {
	Mesh        *mesh.TetMesh `json:"mesh"`
	Volume      float64       `json:"volume"`
	SurfaceArea float64       `json:"surfaceArea"`
	Logs        string        `json:"logs"`
	Warnings    []string      `json:"warnings,omitempty"`
}

// Runner spawns the external meshing kernel and retains its script and
// mesh artifacts, timestamped, under Dir.
type Runner struct {
	Binary   string
	Dir      string
	Progress ProgressFunc
}

// The current child process, held for cooperative cancellation. One
// pipeline runs at a time.
var running struct {
	mu      sync.Mutex
	cmd     *exec.Cmd
	aborted bool
}

// Abort kills the running kernel process, if any. The pipeline then
// returns ErrCancelled.
func Abort() {
	running.mu.Lock()
	defer running.mu.Unlock()
	running.aborted = true
	if running.cmd != nil && running.cmd.Process != nil {
		_ = running.cmd.Process.Kill()
	}
}

func registerChild(cmd *exec.Cmd) {
	running.mu.Lock()
	running.cmd = cmd
	running.mu.Unlock()
}

func clearChild() (aborted bool) {
	running.mu.Lock()
	aborted = running.aborted
	running.cmd = nil
	running.mu.Unlock()
	return aborted
}

// Run executes the two-phase pipeline: plan the CSG script, surface
// mesh it, pick the target shell, filter to its volume, volume mesh
// it, and parse the result.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	running.mu.Lock()
	running.aborted = false
	running.mu.Unlock()

	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("gmsh: create artifact dir: %w", err)
	}
	stamp := time.Now().Unix()
	geoPath := filepath.Join(r.Dir, fmt.Sprintf("model_%d.geo", stamp))
	msh2dPath := filepath.Join(r.Dir, fmt.Sprintf("model_%d_2d.msh", stamp))
	finalGeoPath := filepath.Join(r.Dir, fmt.Sprintf("model_%d_final.geo", stamp))
	msh3dPath := filepath.Join(r.Dir, fmt.Sprintf("model_%d_3d.msh", stamp))

	meshSize := defaultMeshSize
	if req.Quality > 0 {
		meshSize = 10.0 / req.Quality
	}

	script := BuildScript(req.Scene, meshSize)
	for _, w := range script.Warnings {
		log.Printf("gmsh: %s", w)
	}
	if err := os.WriteFile(geoPath, []byte(SurfaceScript(script.Geometry, msh2dPath)), 0o644); err != nil {
		return nil, fmt.Errorf("gmsh: write surface script: %w", err)
	}
	log.Printf("gmsh: surface script at %s", geoPath)

	logs, err := r.runKernel(ctx, geoPath, 0, 45)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(msh2dPath); err != nil {
		return nil, failWithTail("surface meshing produced no output", logs)
	}

	surface, err := mesh.ParseMshFile(msh2dPath)
	if err != nil {
		return nil, fmt.Errorf("gmsh: parse surface mesh: %w", err)
	}
	shells := Shells(surface.Vertices, surface.Triangles)
	if len(shells) == 0 {
		return nil, failWithTail("surface mesh has no shells", logs)
	}
	if req.PartIndex < 0 || req.PartIndex >= len(shells) {
		return nil, fmt.Errorf("gmsh: part index %d out of range (have %d shells)", req.PartIndex, len(shells))
	}
	target := shells[req.PartIndex]
	log.Printf("gmsh: %d shells, part %d volume %.3f centroid (%.2f, %.2f, %.2f)",
		len(shells), req.PartIndex, target.Volume,
		target.Centroid.X, target.Centroid.Y, target.Centroid.Z)

	final := VolumeScript(geoPath, target.Centroid.X, target.Centroid.Y, target.Centroid.Z, msh3dPath)
	if err := os.WriteFile(finalGeoPath, []byte(final), 0o644); err != nil {
		return nil, fmt.Errorf("gmsh: write volume script: %w", err)
	}

	logs2, err := r.runKernel(ctx, finalGeoPath, 45, 95)
	logs = append(logs, logs2...)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(msh3dPath); err != nil {
		return nil, failWithTail("volume meshing produced no output", logs)
	}

	parsed, err := mesh.ParseMshFile(msh3dPath)
	if err != nil {
		return nil, fmt.Errorf("gmsh: parse volume mesh: %w", err)
	}
	m := parsed.TetMesh()
	if len(m.Elements) == 0 {
		return nil, failWithTail("volume mesh has no tetrahedra", logs)
	}
	volume, area := m.Metrics()

	r.report(100, "done")
	return &Result{
		Mesh:        m,
		Volume:      volume,
		SurfaceArea: area,
		Logs:        strings.Join(logs, "\n"),
		Warnings:    script.Warnings,
	}, nil
}

// runKernel spawns the kernel on one script, streaming its output as
// progress scaled into [lo, hi]. The exit code is not trusted; the
// caller checks for the expected output file instead.
func (r *Runner) runKernel(ctx context.Context, geoPath string, lo, hi int) ([]string, error) {
	cmd := exec.CommandContext(ctx, r.Binary, geoPath, "-")

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("gmsh: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("gmsh: stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("gmsh: start %s: %w", r.Binary, err)
	}
	registerChild(cmd)

	var mu sync.Mutex
	var logs []string
	var wg sync.WaitGroup
	stream := func(pipe *bufio.Scanner) {
		defer wg.Done()
		for pipe.Scan() {
			line := pipe.Text()
			mu.Lock()
			logs = append(logs, line)
			mu.Unlock()
			if pct, ok := lineProgress(line); ok {
				r.report(lo+pct*(hi-lo)/100, line)
			}
		}
	}
	wg.Add(2)
	go stream(bufio.NewScanner(stdout))
	go stream(bufio.NewScanner(stderr))
	wg.Wait()

	waitErr := cmd.Wait()
	if clearChild() {
		return logs, ErrCancelled
	}
	if ctx.Err() != nil {
		return logs, ErrCancelled
	}
	if waitErr != nil {
		// Warnings can surface as a nonzero exit; log and move on.
		log.Printf("gmsh: kernel exit: %v", waitErr)
	}
	return logs, nil
}

func (r *Runner) report(percent int, line string) {
	if r.Progress != nil {
		r.Progress(percent, line)
	}
}

func failWithTail(msg string, logs []string) error {
	tail := logs
	if len(tail) > errTailLines {
		tail = tail[len(tail)-errTailLines:]
	}
	return fmt.Errorf("gmsh: %s\n%s", msg, strings.Join(tail, "\n"))
}

var percentPattern = regexp.MustCompile(`\[\s*(\d+)\s*%\]`)

// lineProgress maps recognized kernel log lines to coarse percentage
// estimates within one phase.
func lineProgress(line string) (int, bool) {
	if m := percentPattern.FindStringSubmatch(line); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n >= 0 && n <= 100 {
			return n, true
		}
	}
	switch {
	case strings.Contains(line, "Meshing 1D"):
		return 10, true
	case strings.Contains(line, "Meshing 2D"):
		return 30, true
	case strings.Contains(line, "Meshing 3D"):
		return 60, true
	case strings.Contains(line, "Writing"):
		return 90, true
	}
	return 0, false
}
