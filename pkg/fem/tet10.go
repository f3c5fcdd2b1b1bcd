package fem

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Tet10 node ordering (VTK convention):
//
//	0-3  corners
//	4    edge 0-1
//	5    edge 1-2
//	6    edge 2-0
//	7    edge 0-3
//	8    edge 1-3
//	9    edge 2-3
//
// The reference parametrization is (r, s, t) with (L2, L3, L4) =
// (r, s, t) and L1 = 1 - r - s - t.

// ShapeFunctions evaluates the ten quadratic shape functions at a
// barycentric point.
func ShapeFunctions(l [4]float64) [10]float64 {
	l1, l2, l3, l4 := l[0], l[1], l[2], l[3]
	return [10]float64{
		l1 * (2*l1 - 1),
		l2 * (2*l2 - 1),
		l3 * (2*l3 - 1),
		l4 * (2*l4 - 1),
		4 * l1 * l2,
		4 * l2 * l3,
		4 * l3 * l1,
		4 * l1 * l4,
		4 * l2 * l4,
		4 * l3 * l4,
	}
}

// ShapeDerivatives returns the 3x10 matrix of shape function
// derivatives with respect to (r, s, t). The chain rule collapses the
// dependent coordinate: dN/dr = dN/dL2 - dN/dL1, and likewise for s
// (L3) and t (L4).
func ShapeDerivatives(l [4]float64) *mat.Dense {
	l1, l2, l3, l4 := l[0], l[1], l[2], l[3]
	dn := mat.NewDense(3, 10, nil)

	// Corner nodes: N = L(2L-1), dN/dL = 4L-1.
	d0 := 4*l1 - 1
	dn.Set(0, 0, -d0)
	dn.Set(1, 0, -d0)
	dn.Set(2, 0, -d0)

	dn.Set(0, 1, 4*l2-1)
	dn.Set(1, 2, 4*l3-1)
	dn.Set(2, 3, 4*l4-1)

	// Edge 0-1: 4 L1 L2.
	dn.Set(0, 4, 4*l1-4*l2)
	dn.Set(1, 4, -4*l2)
	dn.Set(2, 4, -4*l2)

	// Edge 1-2: 4 L2 L3.
	dn.Set(0, 5, 4*l3)
	dn.Set(1, 5, 4*l2)

	// Edge 2-0: 4 L3 L1.
	dn.Set(0, 6, -4*l3)
	dn.Set(1, 6, 4*l1-4*l3)
	dn.Set(2, 6, -4*l3)

	// Edge 0-3: 4 L1 L4.
	dn.Set(0, 7, -4*l4)
	dn.Set(1, 7, -4*l4)
	dn.Set(2, 7, 4*l1-4*l4)

	// Edge 1-3: 4 L2 L4.
	dn.Set(0, 8, 4*l4)
	dn.Set(2, 8, 4*l2)

	// Edge 2-3: 4 L3 L4.
	dn.Set(1, 9, 4*l4)
	dn.Set(2, 9, 4*l3)

	return dn
}

// Jacobian assembles the 3x3 reference-to-world Jacobian
// J = sum_i dNi/d(r,s,t) * xi^T for the given node coordinates.
func Jacobian(nodes *[10]r3.Vec, derivs *mat.Dense) *mat.Dense {
	j := mat.NewDense(3, 3, nil)
	for i := 0; i < 10; i++ {
		n := nodes[i]
		for row := 0; row < 3; row++ {
			d := derivs.At(row, i)
			j.Set(row, 0, j.At(row, 0)+d*n.X)
			j.Set(row, 1, j.At(row, 1)+d*n.Y)
			j.Set(row, 2, j.At(row, 2)+d*n.Z)
		}
	}
	return j
}

// BMatrix builds the 6x30 strain-displacement matrix from world-space
// shape derivatives. Voigt order is (xx, yy, zz, xy, yz, zx); the shear
// rows carry engineering strains.
func BMatrix(worldDerivs *mat.Dense) *mat.Dense {
	b := mat.NewDense(6, 30, nil)
	for i := 0; i < 10; i++ {
		dx := worldDerivs.At(0, i)
		dy := worldDerivs.At(1, i)
		dz := worldDerivs.At(2, i)
		col := i * 3

		b.Set(0, col, dx)
		b.Set(1, col+1, dy)
		b.Set(2, col+2, dz)

		b.Set(3, col, dy)
		b.Set(3, col+1, dx)

		b.Set(4, col+1, dz)
		b.Set(4, col+2, dy)

		b.Set(5, col, dz)
		b.Set(5, col+2, dx)
	}
	return b
}

// Interpolate maps a barycentric point to world space through the
// element's shape functions.
func Interpolate(nodes *[10]r3.Vec, l [4]float64) r3.Vec {
	n := ShapeFunctions(l)
	var p r3.Vec
	for i := 0; i < 10; i++ {
		p = r3.Add(p, r3.Scale(n[i], nodes[i]))
	}
	return p
}
