package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Msh is the parsed content of a v4.1 ASCII mesh file. Tets collects
// element types 4 (linear, midpoint slots left 0) and 11 (quadratic).
// Triangles collects the corner nodes of types 2 and 9 for the surface
// analysis pass. Node tags are translated to dense zero-based indices
// in arrival order.
type Msh struct {
	Vertices  []r3.Vec
	Tets      [][10]int
	Triangles [][3]int
}

// TetMesh wraps the parsed tet connectivity as a TetMesh sharing the
// vertex array.
func (f *Msh) TetMesh() *TetMesh {
	return &TetMesh{Vertices: f.Vertices, Elements: f.Tets}
}

// nodesPerType maps the element types we recognize to their node count.
var nodesPerType = map[int]int{
	2:  3,  // 3-node triangle
	9:  6,  // 6-node triangle
	4:  4,  // 4-node tet
	11: 10, // 10-node tet
}

// ParseMshFile reads and parses a mesh file from disk.
func ParseMshFile(path string) (*Msh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mesh: open %s: %w", path, err)
	}
	defer f.Close()
	return ParseMsh(f)
}

// ParseMsh is a streaming parser over the format's section markers.
// Malformed node or element records are dropped, never fatal.
func ParseMsh(r io.Reader) (*Msh, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	out := &Msh{}
	nodeIndex := make(map[int]int)

	inNodes := false
	inElements := false

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "$Nodes"):
			inNodes = true
			sc.Scan() // section header: numBlocks numNodes minTag maxTag
			continue
		case strings.HasPrefix(line, "$EndNodes"):
			inNodes = false
			continue
		case strings.HasPrefix(line, "$Elements"):
			inElements = true
			sc.Scan()
			continue
		case strings.HasPrefix(line, "$EndElements"):
			inElements = false
			continue
		}

		if inNodes {
			parseNodeBlock(line, sc, nodeIndex, out)
		} else if inElements {
			parseElementBlock(line, sc, nodeIndex, out)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("mesh: read msh: %w", err)
	}
	return out, nil
}

// parseNodeBlock consumes one node block. The block header is
// "entityDim entityTag parametric numNodesInBlock"; tags arrive first,
// then coordinates, paired in order.
func parseNodeBlock(header string, sc *bufio.Scanner, nodeIndex map[int]int, out *Msh) {
	parts := strings.Fields(header)
	if len(parts) != 4 {
		return
	}
	n, err := strconv.Atoi(parts[3])
	if err != nil || n < 0 {
		return
	}

	tags := make([]int, 0, n)
	for i := 0; i < n && sc.Scan(); i++ {
		tag, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
		if err != nil {
			tag = 0
		}
		tags = append(tags, tag)
	}
	for _, tag := range tags {
		if !sc.Scan() {
			return
		}
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		x, errX := strconv.ParseFloat(fields[0], 64)
		y, errY := strconv.ParseFloat(fields[1], 64)
		z, errZ := strconv.ParseFloat(fields[2], 64)
		if errX != nil || errY != nil || errZ != nil {
			continue
		}
		nodeIndex[tag] = len(out.Vertices)
		out.Vertices = append(out.Vertices, r3.Vec{X: x, Y: y, Z: z})
	}
}

// parseElementBlock consumes one element block. The header is
// "entityDim entityTag elementType numElementsInBlock"; unrecognized
// types are skipped line by line.
func parseElementBlock(header string, sc *bufio.Scanner, nodeIndex map[int]int, out *Msh) {
	parts := strings.Fields(header)
	if len(parts) < 4 {
		return
	}
	elemType, errT := strconv.Atoi(parts[2])
	n, errN := strconv.Atoi(parts[3])
	if errT != nil || errN != nil || n < 0 {
		return
	}

	want, recognized := nodesPerType[elemType]
	for i := 0; i < n && sc.Scan(); i++ {
		if !recognized {
			continue
		}
		fields := strings.Fields(sc.Text())
		if len(fields) < 1+want {
			continue
		}
		// fields[0] is the element tag.
		nodes := make([]int, want)
		ok := true
		for k := 0; k < want; k++ {
			tag, err := strconv.Atoi(fields[1+k])
			if err != nil {
				ok = false
				break
			}
			nodes[k] = nodeIndex[tag]
		}
		if !ok {
			continue
		}

		switch elemType {
		case 2, 9:
			out.Triangles = append(out.Triangles, [3]int{nodes[0], nodes[1], nodes[2]})
		case 4, 11:
			var elem [10]int
			copy(elem[:], nodes)
			out.Tets = append(out.Tets, elem)
		}
	}
}
