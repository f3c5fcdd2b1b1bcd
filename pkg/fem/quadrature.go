// Package fem implements the quadratic tetrahedron (Tet10) finite
// element: Gauss quadrature on the reference tet, shape functions and
// derivatives, the Jacobian and strain-displacement matrices, and
// isotropic/orthotropic constitutive matrices.
package fem

import "fmt"

// IntegrationPoint is one sample of a quadrature rule. Xi holds
// barycentric coordinates (L1, L2, L3, L4); weights are scaled to the
// reference-tet volume 1/6.
type IntegrationPoint struct {
	Xi     [4]float64 `json:"xi"`
	Weight float64    `json:"weight"`
}

// Rule returns the integration points for a polynomial order.
// Order 1 integrates linears, order 2 quadratics, order 3 cubics.
func Rule(order int) []IntegrationPoint {
	switch order {
	case 1:
		return []IntegrationPoint{
			{Xi: [4]float64{0.25, 0.25, 0.25, 0.25}, Weight: 1.0 / 6.0},
		}
	case 2:
		// alpha = (5+3*sqrt(5))/20, beta = (5-sqrt(5))/20
		const a = 0.5854101966249685
		const b = 0.1381966011250105
		const w = 1.0 / 24.0
		return []IntegrationPoint{
			{Xi: [4]float64{a, b, b, b}, Weight: w},
			{Xi: [4]float64{b, a, b, b}, Weight: w},
			{Xi: [4]float64{b, b, a, b}, Weight: w},
			{Xi: [4]float64{b, b, b, a}, Weight: w},
		}
	case 3:
		// Centroid at -4/5 of volume, four points at 9/20 of volume.
		const w1 = -2.0 / 15.0
		const w2 = 3.0 / 40.0
		const c = 0.25
		const p = 0.5
		const q = 1.0 / 6.0
		return []IntegrationPoint{
			{Xi: [4]float64{c, c, c, c}, Weight: w1},
			{Xi: [4]float64{p, q, q, q}, Weight: w2},
			{Xi: [4]float64{q, p, q, q}, Weight: w2},
			{Xi: [4]float64{q, q, p, q}, Weight: w2},
			{Xi: [4]float64{q, q, q, p}, Weight: w2},
		}
	}
	panic(fmt.Sprintf("fem: unsupported quadrature order %d", order))
}
