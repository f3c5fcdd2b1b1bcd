package mesh

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cambium/pkg/fem"
)

const (
	invMapResidualTol = 1e-6
	invMapRangeTol    = 1e-3
	invMapMaxIters    = 10
)

// InverseMap finds the barycentric coordinates of a world point inside
// element idx by Newton iteration from the centroid. It reports false
// when the iteration fails to converge, hits a singular Jacobian, or
// converges outside the element (range tolerance 1e-3).
func (m *TetMesh) InverseMap(idx int, p r3.Vec) ([4]float64, bool) {
	nodes := m.elementNodes(idx)
	l := [4]float64{0.25, 0.25, 0.25, 0.25}

	for iter := 0; iter < invMapMaxIters; iter++ {
		cur := fem.Interpolate(&nodes, l)
		res := r3.Sub(p, cur)
		if r3.Norm(res) < invMapResidualTol {
			for _, li := range l {
				if li < -invMapRangeTol || li > 1+invMapRangeTol {
					return l, false
				}
			}
			return l, true
		}

		// J rows are d/d(r,s,t), so dx = J^T dxi.
		j := fem.Jacobian(&nodes, fem.ShapeDerivatives(l))
		var delta mat.VecDense
		rhs := mat.NewVecDense(3, []float64{res.X, res.Y, res.Z})
		if err := delta.SolveVec(j.T(), rhs); err != nil {
			return l, false
		}

		l[1] += delta.AtVec(0)
		l[2] += delta.AtVec(1)
		l[3] += delta.AtVec(2)
		l[0] = 1 - l[1] - l[2] - l[3]
	}
	return l, false
}
