package mesh

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMsh = `$MeshFormat
4.1 0 8
$EndMeshFormat
$Nodes
2 10 1 10
3 1 0 4
1
2
3
4
0 0 0
1 0 0
0 1 0
0 0 1
3 1 0 6
5
6
7
8
9
10
0.5 0 0
0.5 0.5 0
0 0.5 0
0 0 0.5
0.5 0 0.5
0 0.5 0.5
$EndNodes
$Elements
1 1 1 1
3 1 11 1
1 1 2 3 4 5 6 7 8 9 10
$EndElements
`

func TestParseMshQuadraticTet(t *testing.T) {
	f, err := ParseMsh(strings.NewReader(sampleMsh))
	require.NoError(t, err)

	require.Len(t, f.Vertices, 10)
	require.Len(t, f.Tets, 1)
	assert.Empty(t, f.Triangles)
	assert.Equal(t, [10]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, f.Tets[0])

	m := f.TetMesh()
	vol, _ := m.Metrics()
	assert.InDelta(t, 1.0/6.0, vol, 1e-12)
}

const surfaceMsh = `$Nodes
1 4 1 4
2 1 0 4
1
2
3
4
0 0 0
2 0 0
0 2 0
2 2 0
$EndNodes
$Elements
3 4 1 4
2 1 2 2
1 1 2 3
2 2 4 3
2 1 1 1
3 1 2
1 1 15 1
4 1
$EndElements
`

func TestParseMshSurfaceTriangles(t *testing.T) {
	f, err := ParseMsh(strings.NewReader(surfaceMsh))
	require.NoError(t, err)

	require.Len(t, f.Vertices, 4)
	assert.Empty(t, f.Tets)
	// Line (type 1) and point (type 15) blocks are skipped.
	require.Len(t, f.Triangles, 2)
	assert.Equal(t, [3]int{0, 1, 2}, f.Triangles[0])
	assert.Equal(t, [3]int{1, 3, 2}, f.Triangles[1])
}

const malformedMsh = `$Nodes
1 2 1 2
2 1 0 2
1
2
0 0 0
not a coordinate line
$EndNodes
$Elements
1 2 1 2
2 1 2 2
1 1 2 2
2 1 x 2
$EndElements
`

func TestParseMshDropsMalformedRecords(t *testing.T) {
	f, err := ParseMsh(strings.NewReader(malformedMsh))
	require.NoError(t, err)

	// One node and one element survive; the bad records are dropped.
	assert.Len(t, f.Vertices, 1)
	assert.Len(t, f.Triangles, 1)
}

func TestParseMshLinearTetPadsMidsides(t *testing.T) {
	const linear = `$Nodes
1 4 1 4
3 1 0 4
1
2
3
4
0 0 0
1 0 0
0 1 0
0 0 1
$EndNodes
$Elements
1 1 1 1
3 1 4 1
1 1 2 3 4
$EndElements
`
	f, err := ParseMsh(strings.NewReader(linear))
	require.NoError(t, err)
	require.Len(t, f.Tets, 1)
	assert.Equal(t, [10]int{0, 1, 2, 3, 0, 0, 0, 0, 0, 0}, f.Tets[0])
}
