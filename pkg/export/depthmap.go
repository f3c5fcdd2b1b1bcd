package export

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	svg "github.com/ajstarks/svgo/float"
	polyclip "github.com/ctessum/polyclip-go"

	"github.com/chazu/cambium/pkg/scene"
)

const depthTol = 1e-6

// depthGroup pairs a region with the cut depth it is carved to.
type depthGroup struct {
	depth float64
	poly  polyclip.Polygon
}

func boardPolygon(outline []Point) (polyclip.Polygon, bool) {
	if len(outline) == 0 {
		return nil, false
	}
	contour := discretizePath(outline, true)
	if len(contour) < 3 {
		return nil, false
	}
	return polyclip.Polygon{contour}, true
}

// ballNoseSteps is the fillet fidelity of a ball-nose expansion.
const ballNoseSteps = 12

// expandBallNose turns a shape into depth slices. A flat endmill yields
// one slice at the cut depth; a ball-nose one yields a full-width base
// slice of depth (total - r) plus fillet slices stepping down the
// spherical profile, each shrunk inward by r(1 - cos theta).
func expandBallNose(s *Shape) []depthGroup {
	flat := func() []depthGroup {
		if c, ok := ShapeContour(s); ok {
			return []depthGroup{{depth: s.Depth, poly: polyclip.Polygon{c}}}
		}
		return nil
	}

	if s.EndmillRadius <= 1e-4 {
		return flat()
	}

	var minDim float64
	switch s.Type {
	case scene.ShapeCircle:
		minDim = s.Diameter
	case scene.ShapeRect:
		minDim = math.Min(s.Width, s.Height)
	case scene.ShapeLine:
		minDim = s.Thickness
	}

	safe := math.Max(0, math.Min(s.EndmillRadius, math.Min(s.Depth, minDim/2-0.001)))
	if safe <= 1e-4 {
		return flat()
	}

	var slices []depthGroup
	base := s.Depth - safe
	if base > 1e-4 {
		if c, ok := shapeContourOffset(s, 0); ok {
			slices = append(slices, depthGroup{depth: base, poly: polyclip.Polygon{c}})
		}
	}
	for i := 1; i <= ballNoseSteps; i++ {
		theta := float64(i) / ballNoseSteps * math.Pi / 2
		z := base + math.Sin(theta)*safe
		offset := safe * (1 - math.Cos(theta))
		if c, ok := shapeContourOffset(s, offset); ok {
			slices = append(slices, depthGroup{depth: z, poly: polyclip.Polygon{c}})
		}
	}
	return slices
}

// visibleDepthGroups computes the carved regions actually visible from
// above. Slices arrive bottom-to-top in shape order; walking them
// top-down, each is masked by previously seen slices of a different
// depth (same-depth slices merge instead). The result is grouped by
// depth, unioned within groups, and sorted shallow-to-deep.
func visibleDepthGroups(req *Request) (polyclip.Polygon, []depthGroup, bool) {
	board, ok := boardPolygon(req.Outline)
	if !ok {
		return nil, nil, false
	}

	// Clip every slice to the board; merge adjacent same-depth slices.
	var layers []depthGroup
	for i := range req.Shapes {
		for _, slice := range expandBallNose(&req.Shapes[i]) {
			clipped := slice.poly.Construct(polyclip.INTERSECTION, board)
			if n := len(layers); n > 0 && math.Abs(layers[n-1].depth-slice.depth) < depthTol {
				layers[n-1].poly = layers[n-1].poly.Construct(polyclip.UNION, clipped)
				continue
			}
			layers = append(layers, depthGroup{depth: slice.depth, poly: clipped})
		}
	}

	var visible []depthGroup
	var masks []depthGroup
	for i := len(layers) - 1; i >= 0; i-- {
		layer := layers[i]

		var mask polyclip.Polygon
		for _, m := range masks {
			if math.Abs(m.depth-layer.depth) > depthTol {
				if mask == nil {
					mask = m.poly
				} else {
					mask = mask.Construct(polyclip.UNION, m.poly)
				}
			}
		}
		shown := layer.poly
		if mask != nil {
			shown = shown.Construct(polyclip.DIFFERENCE, mask)
		}
		if len(shown) > 0 {
			visible = append(visible, depthGroup{depth: layer.depth, poly: shown})
		}

		merged := false
		for k := range masks {
			if math.Abs(masks[k].depth-layer.depth) < depthTol {
				masks[k].poly = masks[k].poly.Construct(polyclip.UNION, layer.poly)
				merged = true
				break
			}
		}
		if !merged {
			masks = append(masks, depthGroup{depth: layer.depth, poly: layer.poly})
		}
	}

	// Union split parts back together per depth.
	var groups []depthGroup
	for _, v := range visible {
		merged := false
		for k := range groups {
			if math.Abs(groups[k].depth-v.depth) < depthTol {
				groups[k].poly = groups[k].poly.Construct(polyclip.UNION, v.poly)
				merged = true
				break
			}
		}
		if !merged {
			groups = append(groups, v)
		}
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].depth < groups[j].depth })
	return board, groups, true
}

// viewTransform maps CAD coordinates into raster space: Y always flips
// down, X mirrors when exporting the bottom face.
func viewTransform(req *Request) func(polyclip.Point) polyclip.Point {
	mirrorX := req.CutDirection == "Bottom"
	return func(p polyclip.Point) polyclip.Point {
		x := p.X
		if mirrorX {
			x = -x
		}
		return polyclip.Point{X: x, Y: -p.Y}
	}
}

func transformPoly(poly polyclip.Polygon, tr func(polyclip.Point) polyclip.Point) polyclip.Polygon {
	out := make(polyclip.Polygon, len(poly))
	for i, c := range poly {
		nc := make(polyclip.Contour, len(c))
		for k, p := range c {
			nc[k] = tr(p)
		}
		out[i] = nc
	}
	return out
}

func polyBounds(poly polyclip.Polygon) (minX, minY, w, h float64) {
	if len(poly) == 0 || len(poly[0]) == 0 {
		return 0, 0, 100, 100
	}
	minX, minY = poly[0][0].X, poly[0][0].Y
	maxX, maxY := minX, minY
	for _, c := range poly {
		for _, p := range c {
			minX = math.Min(minX, p.X)
			minY = math.Min(minY, p.Y)
			maxX = math.Max(maxX, p.X)
			maxY = math.Max(maxY, p.Y)
		}
	}
	return minX, minY, maxX - minX, maxY - minY
}

// pathData serializes a polygon (outer contour plus holes) as SVG path
// data with even-odd semantics.
func pathData(poly polyclip.Polygon) string {
	var b strings.Builder
	for _, c := range poly {
		if len(c) == 0 {
			continue
		}
		fmt.Fprintf(&b, "M%g %g", c[0].X, c[0].Y)
		for _, p := range c[1:] {
			fmt.Fprintf(&b, "L%g %g", p.X, p.Y)
		}
		b.WriteString("Z")
	}
	return b.String()
}

// depthGray maps a cut depth to the raster gray level: full thickness
// cuts render black, untouched surface white.
func depthGray(depth, thickness float64) uint8 {
	ratio := depth / thickness
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return uint8(math.Round(255 * (1 - ratio)))
}

// DepthMapSVG writes the carved depth map: black background, white
// board, visible carve regions filled with their depth's gray level.
func DepthMapSVG(req *Request) error {
	board, groups, ok := visibleDepthGroups(req)
	if !ok {
		return nil
	}

	tr := viewTransform(req)
	boardView := transformPoly(board, tr)
	minX, minY, w, h := polyBounds(boardView)

	f, err := os.Create(req.Filepath)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", req.Filepath, err)
	}
	defer f.Close()

	canvas := svg.New(f)
	canvas.StartviewUnit(w, h, "mm", minX, minY, w, h)
	canvas.Rect(minX, minY, w, h, `fill="black"`)
	canvas.Path(pathData(boardView), `fill="white"`, `stroke="none"`)

	for _, g := range groups {
		v := depthGray(g.depth, req.LayerThickness)
		fill := fmt.Sprintf(`fill="rgb(%d,%d,%d)"`, v, v, v)
		canvas.Path(pathData(transformPoly(g.poly, tr)), fill, `stroke="none"`)
	}
	canvas.End()
	return nil
}
