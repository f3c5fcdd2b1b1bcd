package mesh

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func maxEdgeLen(verts []float64, tris []int32) float64 {
	at := func(i int32) [3]float64 {
		return [3]float64{verts[i*3], verts[i*3+1], verts[i*3+2]}
	}
	longest := 0.0
	for i := 0; i+2 < len(tris); i += 3 {
		corners := [3][3]float64{at(tris[i]), at(tris[i+1]), at(tris[i+2])}
		for k := 0; k < 3; k++ {
			a, b := corners[k], corners[(k+1)%3]
			d := math.Sqrt((a[0]-b[0])*(a[0]-b[0]) + (a[1]-b[1])*(a[1]-b[1]) + (a[2]-b[2])*(a[2]-b[2]))
			if d > longest {
				longest = d
			}
		}
	}
	return longest
}

func TestRegularizeSubdividesLongEdges(t *testing.T) {
	verts := []float64{
		0, 0, 0,
		4, 0, 0,
		0, 4, 0,
	}
	tris := []int32{0, 1, 2}

	outVerts, outTris := Regularize(verts, tris, 1.0)

	// Three full splits turn one triangle into 64.
	assert.Len(t, outTris, 64*3)
	assert.Less(t, maxEdgeLen(outVerts, outTris), 1.5)
}

func TestRegularizeDropsDuplicates(t *testing.T) {
	verts := []float64{
		0, 0, 0,
		1, 0, 0,
		0, 1, 0,
		1, 1, 0,
	}
	// The second triangle repeats the first with rotated indices.
	tris := []int32{0, 1, 2, 1, 2, 0, 1, 3, 2}

	_, outTris := Regularize(verts, tris, 1.0)
	assert.Len(t, outTris, 2*3)
}

func TestRegularizeDropsDegenerates(t *testing.T) {
	verts := []float64{
		0, 0, 0,
		1, 0, 0,
		0, 1, 0,
	}
	// Repeated-vertex and zero-area triangles alongside a good one.
	tris := []int32{0, 1, 2, 0, 0, 1, 0, 1, 1}

	_, outTris := Regularize(verts, tris, 1.0)
	assert.Len(t, outTris, 3)
}

func TestRegularizeDecimatesDenseMesh(t *testing.T) {
	// A 4x4 grid of the unit square, two triangles per cell: edge
	// length 0.25, far denser than a 0.6 mm target needs.
	const n = 4
	var verts []float64
	for j := 0; j <= n; j++ {
		for i := 0; i <= n; i++ {
			verts = append(verts, float64(i)/n, float64(j)/n, 0)
		}
	}
	var tris []int32
	idx := func(i, j int) int32 { return int32(j*(n+1) + i) }
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			tris = append(tris, idx(i, j), idx(i+1, j), idx(i+1, j+1))
			tris = append(tris, idx(i, j), idx(i+1, j+1), idx(i, j+1))
		}
	}
	require.Len(t, tris, 32*3)

	_, outTris := Regularize(verts, tris, 0.6)
	assert.Less(t, len(outTris), 32*3)
	assert.NotEmpty(t, outTris)
}
