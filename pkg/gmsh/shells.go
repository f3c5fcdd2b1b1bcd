package gmsh

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// Shell is one connected triangle surface from the phase-1 mesh.
type Shell struct {
	Triangles []int
	Volume    float64
	Centroid  r3.Vec
}

type shellEdge struct {
	a, b int
}

func newShellEdge(a, b int) shellEdge {
	if a > b {
		a, b = b, a
	}
	return shellEdge{a, b}
}

// Shells partitions a triangle soup into connected shells by edge
// adjacency, computes each shell's enclosed volume in divergence form
// and its centroid as the average of triangle-vertex coordinates, and
// returns the shells sorted by descending volume.
func Shells(vertices []r3.Vec, triangles [][3]int) []Shell {
	byEdge := make(map[shellEdge][]int)
	for t, tri := range triangles {
		for i := 0; i < 3; i++ {
			e := newShellEdge(tri[i], tri[(i+1)%3])
			byEdge[e] = append(byEdge[e], t)
		}
	}

	visited := make([]bool, len(triangles))
	var shells []Shell
	for seed := range triangles {
		if visited[seed] {
			continue
		}
		var members []int
		queue := []int{seed}
		visited[seed] = true
		for len(queue) > 0 {
			t := queue[0]
			queue = queue[1:]
			members = append(members, t)
			tri := triangles[t]
			for i := 0; i < 3; i++ {
				e := newShellEdge(tri[i], tri[(i+1)%3])
				for _, other := range byEdge[e] {
					if !visited[other] {
						visited[other] = true
						queue = append(queue, other)
					}
				}
			}
		}

		var volume float64
		var sum r3.Vec
		for _, t := range members {
			tri := triangles[t]
			v0, v1, v2 := vertices[tri[0]], vertices[tri[1]], vertices[tri[2]]
			volume += r3.Dot(v0, r3.Cross(v1, v2)) / 6
			sum = r3.Add(sum, r3.Add(v0, r3.Add(v1, v2)))
		}
		if volume < 0 {
			volume = -volume
		}
		n := float64(3 * len(members))
		shells = append(shells, Shell{
			Triangles: members,
			Volume:    volume,
			Centroid:  r3.Scale(1/n, sum),
		})
	}

	sort.SliceStable(shells, func(i, j int) bool { return shells[i].Volume > shells[j].Volume })
	return shells
}
