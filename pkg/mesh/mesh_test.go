package mesh

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cambium/pkg/fem"
)

// tet10 appends one quadratic element built from four corners with
// linear midsides.
func tet10(m *TetMesh, p0, p1, p2, p3 r3.Vec) {
	base := len(m.Vertices)
	mid := func(a, b r3.Vec) r3.Vec { return r3.Scale(0.5, r3.Add(a, b)) }
	m.Vertices = append(m.Vertices,
		p0, p1, p2, p3,
		mid(p0, p1), mid(p1, p2), mid(p2, p0),
		mid(p0, p3), mid(p1, p3), mid(p2, p3),
	)
	var elem [10]int
	for i := range elem {
		elem[i] = base + i
	}
	m.Elements = append(m.Elements, elem)
}

func referenceTet() *TetMesh {
	m := &TetMesh{}
	tet10(m,
		r3.Vec{},
		r3.Vec{X: 1},
		r3.Vec{Y: 1},
		r3.Vec{Z: 1},
	)
	return m
}

func TestMetricsReferenceTet(t *testing.T) {
	vol, area := referenceTet().Metrics()
	assert.InDelta(t, 1.0/6.0, vol, 1e-12)
	assert.InDelta(t, 3*0.5+math.Sqrt(3)/2, area, 1e-12)
}

func TestMetricsSharedFaceNotCounted(t *testing.T) {
	// Two tets sharing face (p0, p1, p2): the shared face must not
	// contribute to the boundary area.
	m := &TetMesh{
		Vertices: []r3.Vec{
			{}, {X: 1}, {Y: 1}, {Z: 1}, {Z: -1},
		},
	}
	m.Elements = append(m.Elements, [10]int{0, 1, 2, 3})
	m.Elements = append(m.Elements, [10]int{0, 1, 2, 4})

	vol, area := m.Metrics()
	assert.InDelta(t, 2.0/6.0, vol, 1e-12)
	// 6 right faces of area 0.5 plus 2 hypotenuse faces.
	assert.InDelta(t, 6*0.5+2*math.Sqrt(3)/2, area, 1e-12)
}

func TestJacobianQuality(t *testing.T) {
	m := referenceTet()
	assert.Empty(t, m.JacobianQuality(1e-9))

	// Swapping two corners inverts the element.
	bad := &TetMesh{}
	tet10(bad,
		r3.Vec{},
		r3.Vec{Y: 1},
		r3.Vec{X: 1},
		r3.Vec{Z: 1},
	)
	assert.Equal(t, []int{0}, bad.JacobianQuality(1e-9))
}

func twoComponentMesh() *TetMesh {
	m := &TetMesh{}
	// Connected pair sharing face (0,0,0)-(1,0,0)-(0,1,0).
	tet10(m, r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1}, r3.Vec{Z: 1})
	tet10(m, r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1}, r3.Vec{Z: -1})
	// Isolated smaller tet far away.
	off := r3.Vec{X: 100, Y: 100, Z: 100}
	tet10(m,
		off,
		r3.Add(off, r3.Vec{X: 0.5}),
		r3.Add(off, r3.Vec{Y: 0.5}),
		r3.Add(off, r3.Vec{Z: 0.5}),
	)
	// tet10 duplicates shared vertices, so weld the pair by hand:
	// remap the second element's corners onto the first's.
	m.Elements[1][0] = m.Elements[0][0]
	m.Elements[1][1] = m.Elements[0][1]
	m.Elements[1][2] = m.Elements[0][2]
	m.Elements[1][4] = m.Elements[0][4]
	m.Elements[1][5] = m.Elements[0][5]
	m.Elements[1][6] = m.Elements[0][6]
	return m
}

func TestComponents(t *testing.T) {
	m := twoComponentMesh()
	comps := m.Components()
	require.Len(t, comps, 2)
	assert.Len(t, comps[0].Elements, 2)
	assert.Len(t, comps[1].Elements, 1)
	assert.Greater(t, comps[0].Volume, comps[1].Volume)
	assert.InDelta(t, 2.0/6.0, comps[0].Volume, 1e-12)
}

func TestSelectComponent(t *testing.T) {
	m := twoComponentMesh()

	largest, err := m.SelectComponent(0)
	require.NoError(t, err)
	assert.Len(t, largest.Elements, 2)
	assert.LessOrEqual(t, len(largest.Vertices), len(m.Vertices))
	vol, _ := largest.Metrics()
	assert.InDelta(t, 2.0/6.0, vol, 1e-12)

	second, err := m.SelectComponent(1)
	require.NoError(t, err)
	assert.Len(t, second.Elements, 1)

	_, err = m.SelectComponent(2)
	assert.Error(t, err)
}

func TestInverseMap(t *testing.T) {
	m := referenceTet()

	p := r3.Vec{X: 0.2, Y: 0.3, Z: 0.1}
	l, ok := m.InverseMap(0, p)
	require.True(t, ok)
	assert.InDelta(t, 0.4, l[0], 1e-6)
	assert.InDelta(t, 0.2, l[1], 1e-6)
	assert.InDelta(t, 0.3, l[2], 1e-6)
	assert.InDelta(t, 0.1, l[3], 1e-6)

	// Round trip through the shape functions.
	nodes := m.elementNodes(0)
	back := fem.Interpolate(&nodes, l)
	assert.InDelta(t, p.X, back.X, 1e-6)
	assert.InDelta(t, p.Y, back.Y, 1e-6)
	assert.InDelta(t, p.Z, back.Z, 1e-6)

	_, ok = m.InverseMap(0, r3.Vec{X: 2, Y: 2, Z: 2})
	assert.False(t, ok)
}

func TestWeld(t *testing.T) {
	raw := []float64{
		0, 0, 0,
		1, 0, 0,
		0, 0, 0.0000001, // duplicate of vertex 0 at epsilon 1e-3
		1, 0, 0,
	}
	verts, idx := Weld(raw, 1e-3)
	assert.Len(t, verts, 6)
	assert.Equal(t, []int32{0, 1, 0, 1}, idx)
}

func TestExtractSurfaceSingleTet(t *testing.T) {
	surf := ExtractSurface([]int32{0, 1, 2, 3})
	require.Len(t, surf, 12)
	assert.Equal(t, []int32{0, 1, 2, 0, 3, 1, 1, 3, 2, 2, 3, 0}, surf)
}

func TestExtractSurfaceSharedFaceDropped(t *testing.T) {
	// Two tets sharing face (0,1,2): 6 boundary faces remain.
	surf := ExtractSurface([]int32{0, 1, 2, 3, 0, 2, 1, 4})
	assert.Len(t, surf, 18)
	for i := 0; i+2 < len(surf); i += 3 {
		key := newFaceKey(int(surf[i]), int(surf[i+1]), int(surf[i+2]))
		assert.NotEqual(t, faceKey{0, 1, 2}, key)
	}
}
