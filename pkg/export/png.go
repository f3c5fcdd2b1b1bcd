package export

import (
	"fmt"
	"image"
	"image/color"
	"math"

	polyclip "github.com/ctessum/polyclip-go"
	"github.com/llgcode/draw2d"
	"github.com/llgcode/draw2d/draw2dimg"
)

// pngScale is the raster resolution in pixels per millimeter.
const pngScale = 10.0

// DepthMapPNG rasters the carved depth map directly: the same regions
// and gray levels as DepthMapSVG, rendered at a fixed resolution for
// toolchains that cannot consume SVG height maps.
func DepthMapPNG(req *Request) error {
	board, groups, ok := visibleDepthGroups(req)
	if !ok {
		return nil
	}

	tr := viewTransform(req)
	boardView := transformPoly(board, tr)
	minX, minY, w, h := polyBounds(boardView)

	img := image.NewRGBA(image.Rect(0, 0, int(math.Ceil(w*pngScale)), int(math.Ceil(h*pngScale))))
	gc := draw2dimg.NewGraphicContext(img)
	gc.SetFillRule(draw2d.FillRuleEvenOdd)

	toPx := func(p polyclip.Point) (float64, float64) {
		return (p.X - minX) * pngScale, (p.Y - minY) * pngScale
	}
	fill := func(poly polyclip.Polygon, c color.Color) {
		if len(poly) == 0 {
			return
		}
		gc.SetFillColor(c)
		gc.BeginPath()
		for _, contour := range poly {
			if len(contour) == 0 {
				continue
			}
			x, y := toPx(contour[0])
			gc.MoveTo(x, y)
			for _, p := range contour[1:] {
				x, y = toPx(p)
				gc.LineTo(x, y)
			}
			gc.Close()
		}
		gc.Fill()
	}

	// Background black, board white, carves by depth gray.
	gc.SetFillColor(color.Black)
	gc.Clear()
	fill(boardView, color.White)
	for _, g := range groups {
		v := depthGray(g.depth, req.LayerThickness)
		fill(transformPoly(g.poly, tr), color.RGBA{R: v, G: v, B: v, A: 255})
	}

	if err := draw2dimg.SaveToPngFile(req.Filepath, img); err != nil {
		return fmt.Errorf("export: save png %s: %w", req.Filepath, err)
	}
	return nil
}
