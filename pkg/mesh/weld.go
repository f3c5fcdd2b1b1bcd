package mesh

import "math"

// Weld merges vertices closer than epsilon by integer quantization of
// their coordinates. Input is a flat xyz array (the layout the
// tetrahedralizer consumes); the returned index array maps each input
// vertex to its welded slot, duplicates collapsing in insertion order.
func Weld(raw []float64, epsilon float64) ([]float64, []int32) {
	type key struct{ x, y, z int64 }

	scale := 1.0 / epsilon
	unique := make(map[key]int32)
	welded := make([]float64, 0, len(raw))
	indices := make([]int32, 0, len(raw)/3)

	for i := 0; i+2 < len(raw); i += 3 {
		x, y, z := raw[i], raw[i+1], raw[i+2]
		k := key{
			x: int64(math.Round(x * scale)),
			y: int64(math.Round(y * scale)),
			z: int64(math.Round(z * scale)),
		}
		if idx, ok := unique[k]; ok {
			indices = append(indices, idx)
			continue
		}
		idx := int32(len(welded) / 3)
		unique[k] = idx
		welded = append(welded, x, y, z)
		indices = append(indices, idx)
	}
	return welded, indices
}

// ExtractSurface returns the boundary triangles of a linear tet array
// (flat, four indices per tet): every face owned by exactly one tet,
// in that tet's original winding.
func ExtractSurface(tets []int32) []int32 {
	counts := make(map[faceKey]int, len(tets))
	for i := 0; i+3 < len(tets); i += 4 {
		for _, f := range cornerFaces {
			key := newFaceKey(int(tets[i+f[0]]), int(tets[i+f[1]]), int(tets[i+f[2]]))
			counts[key]++
		}
	}

	var surface []int32
	for i := 0; i+3 < len(tets); i += 4 {
		for _, f := range cornerFaces {
			a, b, c := tets[i+f[0]], tets[i+f[1]], tets[i+f[2]]
			if counts[newFaceKey(int(a), int(b), int(c))] == 1 {
				surface = append(surface, a, b, c)
			}
		}
	}
	return surface
}
