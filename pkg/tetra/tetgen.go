//go:build tetgen

package tetra

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -ltetwrap -lstdc++

#include <stdlib.h>

// Layout must match the library: pointers first, then counts.
typedef struct {
	double* points;
	int*    tetrahedra;
	int     num_points;
	int     num_tetrahedra;
} MeshResult;

MeshResult* tetrahedralize_mesh(const double* in_vertices, int num_vertices,
                                const int* in_faces, int num_faces,
                                const char* options);
void free_mesh_result(MeshResult* result);
*/
import "C"

import (
	"errors"
	"unsafe"
)

func foreignTetrahedralize(verts []float64, faces []int32, options string) ([]float64, []int32, error) {
	if len(verts) == 0 || len(faces) == 0 {
		return nil, nil, errors.New("tetra: empty input buffers")
	}
	copts := C.CString(options)
	defer C.free(unsafe.Pointer(copts))

	res := C.tetrahedralize_mesh(
		(*C.double)(unsafe.Pointer(&verts[0])), C.int(len(verts)/3),
		(*C.int)(unsafe.Pointer(&faces[0])), C.int(len(faces)/3),
		copts,
	)
	if res == nil {
		return nil, nil, errors.New("tetra: foreign call returned null")
	}
	defer C.free_mesh_result(res)

	numPoints := int(res.num_points)
	numTets := int(res.num_tetrahedra)
	if numPoints <= 0 || numTets <= 0 {
		return nil, nil, nil
	}

	points := make([]float64, numPoints*3)
	copy(points, unsafe.Slice((*float64)(unsafe.Pointer(res.points)), numPoints*3))
	tets := make([]int32, numTets*4)
	copy(tets, unsafe.Slice((*int32)(unsafe.Pointer(res.tetrahedra)), numTets*4))
	return points, tets, nil
}
