// Package tetra wraps the foreign tetrahedralization library. It welds
// the incoming triangle soup, optionally regularizes it toward a
// target edge length, runs the foreign call on a locked worker thread,
// and extracts the boundary surface of the resulting volume mesh.
//
// The foreign binding compiles only with the "tetgen" build tag; the
// default build carries a stub that reports the library as missing.
package tetra

import (
	"fmt"
	"math"
	"runtime"

	"github.com/chazu/cambium/pkg/mesh"
)

// maxTetrahedra rejects runaway refinement before it exhausts memory.
const maxTetrahedra = 3_000_000

// Options tunes one tetrahedralization run.
type Options struct {
	// Switches is the option string handed verbatim to the library.
	Switches string `json:"switches"`
	// TargetEdgeLen, when positive, regularizes the surface toward
	// this edge length before meshing and scales the weld tolerance.
	TargetEdgeLen float64 `json:"targetEdgeLen"`
}

// Result is a volume mesh with its extracted boundary surface.
type Result struct {
	Vertices       [][3]float64 `json:"vertices"`
	Indices        []int        `json:"indices"`
	SurfaceIndices []int        `json:"surfaceIndices"`
}

// prepare welds the soup into an indexed mesh and optionally
// regularizes it. The weld tolerance follows the target edge length,
// capped at 0.01 mm.
func prepare(soup []float64, targetEdgeLen float64) ([]float64, []int32) {
	eps := 0.01
	if targetEdgeLen > 0 {
		eps = math.Min(0.01*targetEdgeLen, 0.01)
	}
	verts, faces := mesh.Weld(soup, eps)
	if targetEdgeLen > 0 {
		verts, faces = mesh.Regularize(verts, faces, targetEdgeLen)
	}
	return verts, faces
}

// Tetrahedralize fills the closed triangle soup with tetrahedra.
// The soup is a flat [x y z x y z ...] buffer, nine values per
// triangle.
func Tetrahedralize(soup []float64, opts Options) (*Result, error) {
	if len(soup) == 0 {
		return nil, fmt.Errorf("tetra: empty triangle soup")
	}
	if len(soup)%9 != 0 {
		return nil, fmt.Errorf("tetra: soup length %d is not a whole number of triangles", len(soup))
	}

	verts, faces := prepare(soup, opts.TargetEdgeLen)
	if len(faces) == 0 {
		return nil, fmt.Errorf("tetra: no faces survived preprocessing")
	}

	type outcome struct {
		points []float64
		tets   []int32
		err    error
	}
	// The library's recursion wants a deep stack; a dedicated locked
	// thread keeps its state off the calling goroutine.
	ch := make(chan outcome, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("tetra: tetrahedralization panicked: %v", r)}
			}
		}()
		points, tets, err := foreignTetrahedralize(verts, faces, opts.Switches)
		ch <- outcome{points: points, tets: tets, err: err}
	}()
	out := <-ch
	if out.err != nil {
		return nil, out.err
	}

	numTets := len(out.tets) / 4
	if numTets == 0 {
		return nil, fmt.Errorf("tetra: no elements generated")
	}
	if numTets > maxTetrahedra {
		return nil, fmt.Errorf("tetra: mesh explosion: generated %d tetrahedra, try increasing the max edge length", numTets)
	}

	indices := make([]int, len(out.tets))
	for i, v := range out.tets {
		indices[i] = int(v)
	}
	surface := mesh.ExtractSurface(out.tets)
	surfaceIdx := make([]int, len(surface))
	for i, v := range surface {
		surfaceIdx[i] = int(v)
	}

	points := make([][3]float64, len(out.points)/3)
	for i := range points {
		points[i] = [3]float64{out.points[3*i], out.points[3*i+1], out.points[3*i+2]}
	}
	return &Result{Vertices: points, Indices: indices, SurfaceIndices: surfaceIdx}, nil
}
