package mesh

import (
	"log"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// equilateral triangle area factor: sqrt(3)/4 of L^2.
const idealAreaFactor = 0.433

// Regularize rebalances a triangle soup toward a target edge length:
// decimate when the triangle count exceeds the area-derived target,
// then split over-long edges (> 1.5 L) at their midpoints for up to
// three passes, then prune degenerate and duplicate triangles and
// recompact the vertex array. Input and output are flat xyz vertices
// plus triangle indices.
func Regularize(vertices []float64, indices []int32, targetEdgeLen float64) ([]float64, []int32) {
	verts := make([]r3.Vec, 0, len(vertices)/3)
	for i := 0; i+2 < len(vertices); i += 3 {
		verts = append(verts, r3.Vec{X: vertices[i], Y: vertices[i+1], Z: vertices[i+2]})
	}
	tris := make([]int, len(indices))
	for i, v := range indices {
		tris[i] = int(v)
	}

	area := soupArea(verts, tris)
	idealArea := idealAreaFactor * targetEdgeLen * targetEdgeLen
	target := int(area / idealArea)
	current := len(tris) / 3
	log.Printf("regularize: %d triangles, target %d", current, target)

	if current > target {
		verts, tris = decimate(verts, tris, target, targetEdgeLen*0.25)
	}

	maxLenSq := (targetEdgeLen * 1.5) * (targetEdgeLen * 1.5)
	for pass := 0; pass < 3; pass++ {
		var splits int
		verts, tris, splits = subdivideLongEdges(verts, tris, maxLenSq)
		if splits == 0 {
			break
		}
		log.Printf("regularize: pass %d split %d edges", pass+1, splits)
	}

	verts, tris = prune(verts, tris)

	flat := make([]float64, 0, len(verts)*3)
	for _, v := range verts {
		flat = append(flat, v.X, v.Y, v.Z)
	}
	out := make([]int32, len(tris))
	for i, v := range tris {
		out[i] = int32(v)
	}
	return flat, out
}

func soupArea(verts []r3.Vec, tris []int) float64 {
	area := 0.0
	for i := 0; i+2 < len(tris); i += 3 {
		v1 := r3.Sub(verts[tris[i+1]], verts[tris[i]])
		v2 := r3.Sub(verts[tris[i+2]], verts[tris[i]])
		area += 0.5 * r3.Norm(r3.Cross(v1, v2))
	}
	return area
}

type edge struct{ a, b int }

func newEdge(a, b int) edge {
	if a > b {
		a, b = b, a
	}
	return edge{a, b}
}

// decimate collapses short edges to their midpoints until the triangle
// count reaches target or no collapsible edge remains. Only edges
// whose half-length stays within maxError are eligible, so the surface
// never moves more than the error budget per pass.
func decimate(verts []r3.Vec, tris []int, target int, maxError float64) ([]r3.Vec, []int) {
	maxCollapseSq := (2 * maxError) * (2 * maxError)

	for len(tris)/3 > target {
		type candidate struct {
			e     edge
			lenSq float64
		}
		seen := make(map[edge]bool)
		var cands []candidate
		for i := 0; i+2 < len(tris); i += 3 {
			for _, e := range [3]edge{
				newEdge(tris[i], tris[i+1]),
				newEdge(tris[i+1], tris[i+2]),
				newEdge(tris[i+2], tris[i]),
			} {
				if seen[e] {
					continue
				}
				seen[e] = true
				d := r3.Sub(verts[e.a], verts[e.b])
				lenSq := r3.Dot(d, d)
				if lenSq <= maxCollapseSq {
					cands = append(cands, candidate{e, lenSq})
				}
			}
		}
		if len(cands) == 0 {
			break
		}
		sort.Slice(cands, func(i, j int) bool { return cands[i].lenSq < cands[j].lenSq })

		// Collapse a disjoint set per pass: a vertex may move once.
		remap := make(map[int]int)
		touched := make(map[int]bool)
		budget := len(tris)/3 - target
		for _, c := range cands {
			if budget <= 0 {
				break
			}
			if touched[c.e.a] || touched[c.e.b] {
				continue
			}
			touched[c.e.a] = true
			touched[c.e.b] = true
			verts[c.e.a] = r3.Scale(0.5, r3.Add(verts[c.e.a], verts[c.e.b]))
			remap[c.e.b] = c.e.a
			// Each interior edge collapse removes two triangles.
			budget -= 2
		}
		if len(remap) == 0 {
			break
		}

		next := tris[:0]
		for i := 0; i+2 < len(tris); i += 3 {
			a, b, c := tris[i], tris[i+1], tris[i+2]
			if na, ok := remap[a]; ok {
				a = na
			}
			if nb, ok := remap[b]; ok {
				b = nb
			}
			if nc, ok := remap[c]; ok {
				c = nc
			}
			if a == b || b == c || c == a {
				continue
			}
			next = append(next, a, b, c)
		}
		tris = next
	}
	return compact(verts, tris)
}

// subdivideLongEdges splits every edge longer than sqrt(maxLenSq) at
// its midpoint and retriangulates each triangle by its split pattern.
// Midpoints are cached per edge so shared edges stay conforming.
func subdivideLongEdges(verts []r3.Vec, tris []int, maxLenSq float64) ([]r3.Vec, []int, int) {
	mids := make(map[edge]int)
	for i := 0; i+2 < len(tris); i += 3 {
		for _, e := range [3]edge{
			newEdge(tris[i], tris[i+1]),
			newEdge(tris[i+1], tris[i+2]),
			newEdge(tris[i+2], tris[i]),
		} {
			if _, ok := mids[e]; ok {
				continue
			}
			d := r3.Sub(verts[e.a], verts[e.b])
			if r3.Dot(d, d) > maxLenSq {
				mids[e] = len(verts)
				verts = append(verts, r3.Scale(0.5, r3.Add(verts[e.a], verts[e.b])))
			}
		}
	}
	if len(mids) == 0 {
		return verts, tris, 0
	}

	out := make([]int, 0, len(tris)*2)
	emit := func(a, b, c int) { out = append(out, a, b, c) }
	for i := 0; i+2 < len(tris); i += 3 {
		v0, v1, v2 := tris[i], tris[i+1], tris[i+2]
		m01, has01 := mids[newEdge(v0, v1)]
		m12, has12 := mids[newEdge(v1, v2)]
		m20, has20 := mids[newEdge(v2, v0)]

		switch {
		case !has01 && !has12 && !has20:
			emit(v0, v1, v2)
		case has01 && !has12 && !has20:
			emit(v0, m01, v2)
			emit(m01, v1, v2)
		case !has01 && has12 && !has20:
			emit(v1, m12, v0)
			emit(m12, v2, v0)
		case !has01 && !has12 && has20:
			emit(v2, m20, v1)
			emit(m20, v0, v1)
		case has01 && has12 && has20:
			emit(v0, m01, m20)
			emit(m01, v1, m12)
			emit(m12, v2, m20)
			emit(m01, m12, m20)
		case has01 && has12 && !has20:
			emit(v0, m01, v2)
			emit(m01, m12, v2)
			emit(m01, v1, m12)
		case !has01 && has12 && has20:
			emit(v0, v1, m20)
			emit(m20, v1, m12)
			emit(m20, m12, v2)
		default: // has01 && !has12 && has20
			emit(v0, m01, m20)
			emit(m20, m01, v1)
			emit(m20, v1, v2)
		}
	}
	return verts, out, len(mids)
}

// prune drops triangles with a repeated vertex, near-zero area, or a
// duplicate sorted key, then recompacts the vertex array.
func prune(verts []r3.Vec, tris []int) ([]r3.Vec, []int) {
	seen := make(map[faceKey]bool)
	valid := make([]int, 0, len(tris))
	for i := 0; i+2 < len(tris); i += 3 {
		a, b, c := tris[i], tris[i+1], tris[i+2]
		if a == b || b == c || c == a {
			continue
		}
		cross := r3.Cross(r3.Sub(verts[b], verts[a]), r3.Sub(verts[c], verts[a]))
		if r3.Dot(cross, cross) < 1e-12 {
			continue
		}
		key := newFaceKey(a, b, c)
		if seen[key] {
			continue
		}
		seen[key] = true
		valid = append(valid, a, b, c)
	}
	return compact(verts, valid)
}

func compact(verts []r3.Vec, tris []int) ([]r3.Vec, []int) {
	remap := make(map[int]int)
	newVerts := make([]r3.Vec, 0, len(verts))
	out := make([]int, len(tris))
	for i, old := range tris {
		ni, ok := remap[old]
		if !ok {
			ni = len(newVerts)
			remap[old] = ni
			newVerts = append(newVerts, verts[old])
		}
		out[i] = ni
	}
	return newVerts, out
}
