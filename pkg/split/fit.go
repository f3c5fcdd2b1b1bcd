package split

import (
	"math"
	"sort"

	v2 "github.com/deadsy/sdfx/vec/v2"
)

// convexHull computes the hull by Andrew's monotone chain, returned
// counterclockwise without the closing point.
func convexHull(pts []v2.Vec) []v2.Vec {
	if len(pts) < 3 {
		return pts
	}
	sorted := make([]v2.Vec, len(pts))
	copy(sorted, pts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	cross := func(o, a, b v2.Vec) float64 {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	var lower []v2.Vec
	for _, p := range sorted {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	var upper []v2.Vec
	for i := len(sorted) - 1; i >= 0; i-- {
		p := sorted[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}
	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}

// checkFit measures how badly a point set misses the bed. The hull's
// minimum bounding rectangle is found by rotating calipers; each hull
// edge direction is tried against the bed in both orientations. The
// return is the squared excess of the best placement, 0 when some
// orientation fits.
func checkFit(pts []v2.Vec, bedW, bedH float64) float64 {
	hull := convexHull(pts)
	if len(hull) < 3 {
		return 0
	}

	minExcess := math.Inf(1)
	n := len(hull)
	for i := 0; i < n; i++ {
		p1 := hull[i]
		p2 := hull[(i+1)%n]
		dx, dy := p2.X-p1.X, p2.Y-p1.Y
		length := math.Hypot(dx, dy)
		if length < 1e-6 {
			continue
		}
		ux, uy := dx/length, dy/length
		vx, vy := -uy, ux

		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			u := p.X*ux + p.Y*uy
			v := p.X*vx + p.Y*vy
			minU = math.Min(minU, u)
			maxU = math.Max(maxU, u)
			minV = math.Min(minV, v)
			maxV = math.Max(maxV, v)
		}
		w := maxU - minU
		h := maxV - minV

		exc1 := math.Max(w-bedW, 0) + math.Max(h-bedH, 0)
		exc2 := math.Max(w-bedH, 0) + math.Max(h-bedW, 0)
		excess := math.Min(exc1, exc2)
		if excess < minExcess {
			minExcess = excess
		}
		if minExcess < 1e-4 {
			return 0
		}
	}
	return minExcess * minExcess
}
