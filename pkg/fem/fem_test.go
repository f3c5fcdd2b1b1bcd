package fem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// unitTet returns the reference tetrahedron with linear midsides.
func unitTet() *[10]r3.Vec {
	var n [10]r3.Vec
	n[0] = r3.Vec{X: 0, Y: 0, Z: 0}
	n[1] = r3.Vec{X: 1, Y: 0, Z: 0}
	n[2] = r3.Vec{X: 0, Y: 1, Z: 0}
	n[3] = r3.Vec{X: 0, Y: 0, Z: 1}
	fillMidsides(&n)
	return &n
}

func fillMidsides(n *[10]r3.Vec) {
	mid := func(a, b int) r3.Vec { return r3.Scale(0.5, r3.Add(n[a], n[b])) }
	n[4] = mid(0, 1)
	n[5] = mid(1, 2)
	n[6] = mid(2, 0)
	n[7] = mid(0, 3)
	n[8] = mid(1, 3)
	n[9] = mid(2, 3)
}

func TestRuleIntegratesConstant(t *testing.T) {
	for _, order := range []int{1, 2, 3} {
		sum := 0.0
		for _, q := range Rule(order) {
			sum += q.Weight
		}
		assert.InDelta(t, 1.0/6.0, sum, 1e-9, "order %d", order)
	}
}

func TestRuleIntegratesMonomials(t *testing.T) {
	// Exact integrals over the reference tet: int Li = 1/24,
	// int Li^2 = 1/60, int Li Lj = 1/120, int Li^3 = 1/120.
	cases := []struct {
		name  string
		order int
		f     func(xi [4]float64) float64
		want  float64
	}{
		{"L1 order 2", 2, func(xi [4]float64) float64 { return xi[0] }, 1.0 / 24},
		{"L2 order 3", 3, func(xi [4]float64) float64 { return xi[1] }, 1.0 / 24},
		{"L1^2 order 2", 2, func(xi [4]float64) float64 { return xi[0] * xi[0] }, 1.0 / 60},
		{"L1*L2 order 2", 2, func(xi [4]float64) float64 { return xi[0] * xi[1] }, 1.0 / 120},
		{"L1^3 order 3", 3, func(xi [4]float64) float64 { return xi[0] * xi[0] * xi[0] }, 1.0 / 120},
	}
	for _, tc := range cases {
		sum := 0.0
		for _, q := range Rule(tc.order) {
			sum += tc.f(q.Xi) * q.Weight
		}
		assert.InDelta(t, tc.want, sum, 1e-9, tc.name)
	}
}

func TestRuleUnsupportedOrderPanics(t *testing.T) {
	assert.Panics(t, func() { Rule(4) })
}

func TestPartitionOfUnity(t *testing.T) {
	points := [][4]float64{
		{0.25, 0.25, 0.25, 0.25},
		{0.2, 0.3, 0.1, 0.4},
		{0.7, 0.1, 0.1, 0.1},
	}
	for _, xi := range points {
		n := ShapeFunctions(xi)
		sum := 0.0
		for _, v := range n {
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestShapeDerivativesMatchFiniteDifferences(t *testing.T) {
	l := [4]float64{0.2, 0.3, 0.1, 0.4}
	const eps = 1e-6
	analytic := ShapeDerivatives(l)
	base := ShapeFunctions(l)

	// Perturbing r bumps L2 and drops L1; likewise s->L3, t->L4.
	perturbed := [3][4]float64{
		{l[0] - eps, l[1] + eps, l[2], l[3]},
		{l[0] - eps, l[1], l[2] + eps, l[3]},
		{l[0] - eps, l[1], l[2], l[3] + eps},
	}
	for row, lp := range perturbed {
		np := ShapeFunctions(lp)
		for i := 0; i < 10; i++ {
			fd := (np[i] - base[i]) / eps
			assert.InDelta(t, analytic.At(row, i), fd, 1e-5,
				"row %d node %d", row, i)
		}
	}
}

func TestJacobianVolumeStretchedTet(t *testing.T) {
	// Node 1 moved to (2,0,0): volume 1/3, constant Jacobian.
	n := unitTet()
	n[1] = r3.Vec{X: 2, Y: 0, Z: 0}
	fillMidsides(n)

	vol := 0.0
	for _, q := range Rule(3) {
		j := Jacobian(n, ShapeDerivatives(q.Xi))
		vol += mat.Det(j) * q.Weight
	}
	require.InDelta(t, 1.0/3.0, vol, 1e-9)
}

func TestRigidBodyTranslationZeroStrain(t *testing.T) {
	n := unitTet()

	// u_x = 1 at every node, u_y = u_z = 0.
	u := mat.NewVecDense(30, nil)
	for i := 0; i < 10; i++ {
		u.SetVec(i*3, 1.0)
	}

	for _, q := range Rule(2) {
		derivs := ShapeDerivatives(q.Xi)
		j := Jacobian(n, derivs)

		var jInv mat.Dense
		require.NoError(t, jInv.Inverse(j))

		var world mat.Dense
		world.Mul(&jInv, derivs)

		b := BMatrix(&world)
		var strain mat.VecDense
		strain.MulVec(b, u)

		assert.InDelta(t, 0.0, mat.Norm(&strain, 2), 1e-9)
	}
}

func TestInterpolateCorners(t *testing.T) {
	n := unitTet()
	corners := [][4]float64{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
	for i, xi := range corners {
		p := Interpolate(n, xi)
		assert.InDelta(t, n[i].X, p.X, 1e-12)
		assert.InDelta(t, n[i].Y, p.Y, 1e-12)
		assert.InDelta(t, n[i].Z, p.Z, 1e-12)
	}
}

func TestInterpolateEdgeMidpoint(t *testing.T) {
	// On a straight-edged element the (0.5, 0.5, 0, 0) point lands on
	// the 0-1 edge midpoint.
	n := unitTet()
	p := Interpolate(n, [4]float64{0.5, 0.5, 0, 0})
	assert.InDelta(t, 0.5, p.X, 1e-12)
	assert.InDelta(t, 0.0, p.Y, 1e-12)
	assert.InDelta(t, 0.0, p.Z, 1e-12)
}

func TestIsotropicCMatrix(t *testing.T) {
	m := Isotropic{E: 200e3, Nu: 0.3}
	c := m.CMatrix()

	shear := m.E / (2 * (1 + m.Nu))
	assert.InDelta(t, shear, c.At(3, 3), 1e-9)
	assert.InDelta(t, shear, c.At(4, 4), 1e-9)
	assert.InDelta(t, shear, c.At(5, 5), 1e-9)

	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			assert.InDelta(t, c.At(j, i), c.At(i, j), 1e-3)
		}
	}
}

func TestOrthotropicMatchesIsotropic(t *testing.T) {
	e, nu := 120e3, 0.25
	g := e / (2 * (1 + nu))
	ortho := Orthotropic{
		Ex: e, Ey: e, Ez: e,
		NuXY: nu, NuYZ: nu, NuXZ: nu,
		GXY: g, GYZ: g, GZX: g,
	}
	iso := Isotropic{E: e, Nu: nu}

	co := ortho.CMatrix()
	ci := iso.CMatrix()
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			assert.InDelta(t, ci.At(i, j), co.At(i, j), 1e-4*e,
				"entry (%d,%d)", i, j)
		}
	}
}

func TestTransverselyIsotropic(t *testing.T) {
	m := TransverselyIsotropic(3000, 1500, 0.35, 0.3, 600)
	c := m.CMatrix()

	// Soft layer direction.
	assert.Less(t, c.At(2, 2), c.At(0, 0))
	// Vertical shears equal by symmetry.
	assert.InDelta(t, c.At(4, 4), c.At(5, 5), 1e-9)
	// Symmetric to tolerance.
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			assert.InDelta(t, c.At(j, i), c.At(i, j), 1e-3)
		}
	}
}

func TestOrthotropicSingularPanics(t *testing.T) {
	// nu_xy = 1 with equal moduli makes the upper block singular.
	m := Orthotropic{
		Ex: 1000, Ey: 1000, Ez: 1000,
		NuXY: 1.0, NuYZ: -1.0, NuXZ: 1.0,
		GXY: 400, GYZ: 400, GZX: 400,
	}
	assert.Panics(t, func() { m.CMatrix() })
}

func TestShapeFunctionsAtMidside(t *testing.T) {
	// At the 0-1 edge midpoint only N4 is nonzero.
	xi := [4]float64{0.5, 0.5, 0, 0}
	n := ShapeFunctions(xi)
	assert.InDelta(t, 1.0, n[4], 1e-12)
	for i, v := range n {
		if i == 4 {
			continue
		}
		assert.InDelta(t, 0.0, v, 1e-12, "node %d", i)
	}
}
