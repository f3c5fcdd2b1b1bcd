package mesh

import (
	"fmt"
	"sort"
)

// Component is one face-connected piece of a mesh.
type Component struct {
	Elements []int
	Volume   float64
}

// Components partitions the mesh into face-connected pieces, largest
// volume first. Two tets are neighbors iff they share a corner face.
func (m *TetMesh) Components() []Component {
	owners := make(map[faceKey][]int, len(m.Elements)*4)
	for idx, e := range m.Elements {
		for _, f := range cornerFaces {
			key := newFaceKey(e[f[0]], e[f[1]], e[f[2]])
			owners[key] = append(owners[key], idx)
		}
	}

	adj := make([][]int, len(m.Elements))
	for _, tets := range owners {
		if len(tets) != 2 {
			continue
		}
		adj[tets[0]] = append(adj[tets[0]], tets[1])
		adj[tets[1]] = append(adj[tets[1]], tets[0])
	}

	visited := make([]bool, len(m.Elements))
	var comps []Component
	for start := range m.Elements {
		if visited[start] {
			continue
		}
		var comp Component
		queue := []int{start}
		visited[start] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			comp.Elements = append(comp.Elements, cur)
			comp.Volume += m.elementVolume(m.Elements[cur])
			for _, nb := range adj[cur] {
				if !visited[nb] {
					visited[nb] = true
					queue = append(queue, nb)
				}
			}
		}
		comps = append(comps, comp)
	}

	sort.SliceStable(comps, func(i, j int) bool {
		return comps[i].Volume > comps[j].Volume
	})
	return comps
}

// SelectComponent rebuilds the mesh keeping only the component of the
// given volume rank (0 = largest). Vertices are compacted and indices
// remapped.
func (m *TetMesh) SelectComponent(rank int) (*TetMesh, error) {
	comps := m.Components()
	if rank < 0 || rank >= len(comps) {
		return nil, fmt.Errorf("mesh: component rank %d out of range (have %d components)", rank, len(comps))
	}

	remap := make(map[int]int)
	out := &TetMesh{}
	for _, ei := range comps[rank].Elements {
		var elem [10]int
		for i, old := range m.Elements[ei] {
			ni, ok := remap[old]
			if !ok {
				ni = len(out.Vertices)
				remap[old] = ni
				out.Vertices = append(out.Vertices, m.Vertices[old])
			}
			elem[i] = ni
		}
		out.Elements = append(out.Elements, elem)
	}
	return out, nil
}
