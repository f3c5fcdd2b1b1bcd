//go:build !tetgen

package tetra

import "errors"

// foreignTetrahedralize reports the library as missing. Build with
// -tags=tetgen to enable the real binding.
func foreignTetrahedralize(verts []float64, faces []int32, options string) ([]float64, []int32, error) {
	return nil, nil, errors.New("tetra: tetgen not available: build with -tags=tetgen")
}
