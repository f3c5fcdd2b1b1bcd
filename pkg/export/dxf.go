package export

import (
	"fmt"

	polyclip "github.com/ctessum/polyclip-go"
	"github.com/yofu/dxf"
	dxfcolor "github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"
)

// ProfileDXF writes the profile-cut view as DXF: the board exterior on
// an OUTLINE layer, cut geometry on a CUTS layer, isolated circles as
// parametric circle entities. Coordinates stay in CAD space.
func ProfileDXF(req *Request) error {
	board, isolated, pool := partitionIsolatedCircles(req)
	united := unionPool(board, pool)

	d := dxf.NewDrawing()
	d.Header().LtScale = 1

	if _, err := d.AddLayer("OUTLINE", dxfcolor.White, dxf.DefaultLineType, true); err != nil {
		return fmt.Errorf("export: dxf outline layer: %w", err)
	}
	if err := addDXFPolygon(d, board); err != nil {
		return err
	}

	if _, err := d.AddLayer("CUTS", dxfcolor.Red, dxf.DefaultLineType, true); err != nil {
		return fmt.Errorf("export: dxf cuts layer: %w", err)
	}
	if err := addDXFPolygon(d, united); err != nil {
		return err
	}
	for _, c := range isolated {
		if _, err := d.Circle(c.X, c.Y, 0, c.Diameter/2); err != nil {
			return fmt.Errorf("export: dxf circle: %w", err)
		}
	}

	if err := d.SaveAs(req.Filepath); err != nil {
		return fmt.Errorf("export: save dxf %s: %w", req.Filepath, err)
	}
	return nil
}

func addDXFPolygon(d *drawing.Drawing, poly polyclip.Polygon) error {
	for _, contour := range poly {
		if len(contour) == 0 {
			continue
		}
		// Drop a duplicated closing point; LwPolyline closes itself.
		pts := contour
		if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
			pts = pts[:len(pts)-1]
		}
		vertices := make([][]float64, len(pts))
		for i, p := range pts {
			vertices[i] = []float64{p.X, p.Y}
		}
		if _, err := d.LwPolyline(true, vertices...); err != nil {
			return fmt.Errorf("export: dxf polyline: %w", err)
		}
	}
	return nil
}
