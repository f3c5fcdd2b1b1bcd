// Package mesh provides algebra over quadratic tetrahedral meshes:
// volume and boundary-area metrics, Jacobian quality checks, connected
// component filtering, world-to-reference inverse mapping, a reader for
// the meshing kernel's v4.1 ASCII format, and triangle-soup utilities
// (weld, surface extraction, regularization) feeding the
// tetrahedralizer.
package mesh

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cambium/pkg/fem"
)

// TetMesh is a 10-node tetrahedral mesh. Element entries hold four
// corner indices followed by six edge midpoints (edges 01, 12, 20, 03,
// 13, 23). Linear tets read from the kernel leave the midpoint slots
// at 0; only corner-based operations are safe on those.
type TetMesh struct {
	Vertices []r3.Vec  `json:"vertices"`
	Elements [][10]int `json:"indices"`
}

// cornerFaces lists the four corner faces of a tet in local indices.
var cornerFaces = [4][3]int{
	{0, 1, 2},
	{0, 3, 1},
	{1, 3, 2},
	{2, 3, 0},
}

type faceKey [3]int

func newFaceKey(a, b, c int) faceKey {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b, c = c, b
	}
	if a > b {
		a, b = b, a
	}
	return faceKey{a, b, c}
}

func (m *TetMesh) elementVolume(e [10]int) float64 {
	p0 := m.Vertices[e[0]]
	v1 := r3.Sub(m.Vertices[e[1]], p0)
	v2 := r3.Sub(m.Vertices[e[2]], p0)
	v3 := r3.Sub(m.Vertices[e[3]], p0)
	vol := r3.Dot(v1, r3.Cross(v2, v3)) / 6
	if vol < 0 {
		vol = -vol
	}
	return vol
}

// Metrics computes the total volume and the boundary surface area.
// Volume sums the corner tetrahedra; area sums every face that appears
// exactly once across the element set.
func (m *TetMesh) Metrics() (volume, area float64) {
	counts := make(map[faceKey]int, len(m.Elements)*4)
	for _, e := range m.Elements {
		volume += m.elementVolume(e)
		for _, f := range cornerFaces {
			counts[newFaceKey(e[f[0]], e[f[1]], e[f[2]])]++
		}
	}
	for key, n := range counts {
		if n != 1 {
			continue
		}
		v1 := r3.Sub(m.Vertices[key[1]], m.Vertices[key[0]])
		v2 := r3.Sub(m.Vertices[key[2]], m.Vertices[key[0]])
		area += 0.5 * r3.Norm(r3.Cross(v1, v2))
	}
	return volume, area
}

// refCorners are the barycentric coordinates of the reference corners.
var refCorners = [4][4]float64{
	{1, 0, 0, 0},
	{0, 1, 0, 0},
	{0, 0, 1, 0},
	{0, 0, 0, 1},
}

// JacobianQuality returns the indices of elements whose minimum corner
// Jacobian determinant falls below threshold. Inverted elements are
// reported, never reoriented.
func (m *TetMesh) JacobianQuality(threshold float64) []int {
	var bad []int
	for idx, e := range m.Elements {
		var nodes [10]r3.Vec
		for i := 0; i < 10; i++ {
			nodes[i] = m.Vertices[e[i]]
		}
		minDet := 0.0
		for c, xi := range refCorners {
			j := fem.Jacobian(&nodes, fem.ShapeDerivatives(xi))
			det := mat.Det(j)
			if c == 0 || det < minDet {
				minDet = det
			}
		}
		if minDet < threshold {
			bad = append(bad, idx)
		}
	}
	return bad
}

// elementNodes gathers the ten node positions of element idx.
func (m *TetMesh) elementNodes(idx int) [10]r3.Vec {
	var nodes [10]r3.Vec
	for i, vi := range m.Elements[idx] {
		nodes[i] = m.Vertices[vi]
	}
	return nodes
}
