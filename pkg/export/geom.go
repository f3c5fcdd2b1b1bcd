package export

import (
	"math"

	polyclip "github.com/ctessum/polyclip-go"

	"github.com/chazu/cambium/pkg/scene"
)

const bezierSteps = 16

func evalBezier(p0, p1, p2, p3 polyclip.Point, t float64) polyclip.Point {
	mt := 1 - t
	mt2 := mt * mt
	mt3 := mt2 * mt
	t2 := t * t
	t3 := t2 * t
	return polyclip.Point{
		X: mt3*p0.X + 3*mt2*t*p1.X + 3*mt*t2*p2.X + t3*p3.X,
		Y: mt3*p0.Y + 3*mt2*t*p1.Y + 3*mt*t2*p2.Y + t3*p3.Y,
	}
}

func anchor(p Point) polyclip.Point { return polyclip.Point{X: p.X, Y: p.Y} }

// segment appends the discretized curve from a to b, excluding a. A
// missing handle collapses its control point onto the adjacent anchor.
func segment(out polyclip.Contour, a, b Point) polyclip.Contour {
	if a.HandleOut == nil && b.HandleIn == nil {
		return append(out, anchor(b))
	}
	cp1 := anchor(a)
	if a.HandleOut != nil {
		cp1 = polyclip.Point{X: a.X + a.HandleOut.X, Y: a.Y + a.HandleOut.Y}
	}
	cp2 := anchor(b)
	if b.HandleIn != nil {
		cp2 = polyclip.Point{X: b.X + b.HandleIn.X, Y: b.Y + b.HandleIn.Y}
	}
	for s := 1; s <= bezierSteps; s++ {
		t := float64(s) / bezierSteps
		out = append(out, evalBezier(anchor(a), cp1, cp2, anchor(b), t))
	}
	return out
}

// discretizePath samples an anchor path into a polyline, 16 steps per
// cubic segment. When closed, the wrap-around segment is included.
func discretizePath(points []Point, closed bool) polyclip.Contour {
	if len(points) == 0 {
		return nil
	}
	out := polyclip.Contour{anchor(points[0])}
	for i := 0; i+1 < len(points); i++ {
		out = segment(out, points[i], points[i+1])
	}
	if closed {
		out = segment(out, points[len(points)-1], points[0])
	}
	return out
}

// strokeContour expands an open polyline into a closed outline of the
// given stroke thickness with rounded end caps. Interior points use the
// averaged tangent of their two segments.
func strokeContour(center polyclip.Contour, thickness float64) polyclip.Contour {
	if len(center) < 2 {
		return nil
	}
	half := thickness / 2
	n := len(center)
	left := make([]polyclip.Point, n)
	right := make([]polyclip.Point, n)

	for i, p := range center {
		var tx, ty float64
		switch i {
		case 0:
			tx, ty = center[1].X-p.X, center[1].Y-p.Y
		case n - 1:
			tx, ty = p.X-center[n-2].X, p.Y-center[n-2].Y
		default:
			d1x, d1y := p.X-center[i-1].X, p.Y-center[i-1].Y
			d2x, d2y := center[i+1].X-p.X, center[i+1].Y-p.Y
			l1 := math.Hypot(d1x, d1y)
			l2 := math.Hypot(d2x, d2y)
			tx, ty = d1x/l1+d2x/l2, d1y/l1+d2y/l2
		}
		l := math.Hypot(tx, ty)
		nx, ny := -ty/l, tx/l
		left[i] = polyclip.Point{X: p.X + nx*half, Y: p.Y + ny*half}
		right[i] = polyclip.Point{X: p.X - nx*half, Y: p.Y - ny*half}
	}

	out := make(polyclip.Contour, 0, 2*n+2*bezierSteps)
	out = append(out, left...)

	// Rounded caps sweep the offset vector halfway around, clockwise.
	capArc := func(tip, from polyclip.Point) []polyclip.Point {
		vx, vy := from.X-tip.X, from.Y-tip.Y
		pts := make([]polyclip.Point, 0, bezierSteps-1)
		for i := 1; i < bezierSteps; i++ {
			theta := -float64(i) / bezierSteps * math.Pi
			c, s := math.Cos(theta), math.Sin(theta)
			pts = append(pts, polyclip.Point{
				X: tip.X + vx*c - vy*s,
				Y: tip.Y + vx*s + vy*c,
			})
		}
		return pts
	}

	out = append(out, capArc(center[n-1], left[n-1])...)
	for i := n - 1; i >= 0; i-- {
		out = append(out, right[i])
	}
	out = append(out, capArc(center[0], right[0])...)
	return out
}

// circleContour samples a full circle at 64 steps.
func circleContour(cx, cy, r float64) polyclip.Contour {
	const steps = 64
	out := make(polyclip.Contour, 0, steps)
	for i := 0; i < steps; i++ {
		theta := float64(i) / steps * 2 * math.Pi
		out = append(out, polyclip.Point{X: cx + r*math.Cos(theta), Y: cy + r*math.Sin(theta)})
	}
	return out
}

func rotateAbout(pts polyclip.Contour, cx, cy, angleDeg float64) polyclip.Contour {
	rad := angleDeg * math.Pi / 180
	c, s := math.Cos(rad), math.Sin(rad)
	out := make(polyclip.Contour, len(pts))
	for i, p := range pts {
		out[i] = polyclip.Point{
			X: cx + p.X*c - p.Y*s,
			Y: cy + p.X*s + p.Y*c,
		}
	}
	return out
}

// rectContour builds a rect outline centered at the origin, rounded
// when cornerRadius is meaningful (12 steps per corner), then rotates
// and translates it into place.
func rectContour(cx, cy, w, h, cornerRadius, angleDeg float64) polyclip.Contour {
	halfW, halfH := w/2, h/2
	if cornerRadius < 0.001 {
		corners := polyclip.Contour{
			{X: -halfW, Y: -halfH},
			{X: halfW, Y: -halfH},
			{X: halfW, Y: halfH},
			{X: -halfW, Y: halfH},
		}
		return rotateAbout(corners, cx, cy, angleDeg)
	}

	const stepsPerCorner = 12
	r := math.Min(cornerRadius, math.Min(halfW, halfH))
	quadrants := [4]struct {
		x, y, start float64
	}{
		{halfW - r, -halfH + r, -math.Pi / 2},
		{halfW - r, halfH - r, 0},
		{-halfW + r, halfH - r, math.Pi / 2},
		{-halfW + r, -halfH + r, math.Pi},
	}
	var pts polyclip.Contour
	for _, q := range quadrants {
		for i := 0; i <= stepsPerCorner; i++ {
			theta := q.start + float64(i)/stepsPerCorner*math.Pi/2
			pts = append(pts, polyclip.Point{
				X: q.x + r*math.Cos(theta),
				Y: q.y + r*math.Sin(theta),
			})
		}
	}
	return rotateAbout(pts, cx, cy, angleDeg)
}

// ShapeContour discretizes one shape into a closed contour. The bool
// reports whether the shape type yields a profile at all.
func ShapeContour(s *Shape) (polyclip.Contour, bool) {
	return shapeContourOffset(s, 0)
}

// shapeContourOffset shrinks the shape inward by offset before
// discretizing. Shapes that collapse under the offset return false.
func shapeContourOffset(s *Shape, offset float64) (polyclip.Contour, bool) {
	switch s.Type {
	case scene.ShapeRect:
		w := s.Width - 2*offset
		h := s.Height - 2*offset
		if w <= 1e-4 || h <= 1e-4 {
			return nil, false
		}
		cr := math.Max(s.CornerRadius-offset, 0)
		return rectContour(s.X, s.Y, w, h, cr, s.Angle), true
	case scene.ShapeCircle:
		d := s.Diameter - 2*offset
		if d <= 1e-4 {
			return nil, false
		}
		return circleContour(s.X, s.Y, d/2), true
	case scene.ShapeLine:
		if len(s.Points) < 2 {
			return nil, false
		}
		t := s.Thickness
		if t == 0 {
			t = 1
		}
		t -= 2 * offset
		if t <= 1e-4 {
			return nil, false
		}
		return strokeContour(discretizePath(s.Points, false), math.Max(t, 0.001)), true
	case scene.ShapePolygon:
		if len(s.Points) < 3 || offset > 0 {
			return nil, false
		}
		return discretizePath(s.Points, true), true
	}
	return nil, false
}

// StrokeOutline expands an open centerline into its stroked outline
// with rounded caps. Exposed for the CSG planner's line profiles.
func StrokeOutline(center []scene.Vec2, thickness float64) []scene.Vec2 {
	contour := make(polyclip.Contour, len(center))
	for i, p := range center {
		contour[i] = polyclip.Point{X: p.X, Y: p.Y}
	}
	stroked := strokeContour(contour, thickness)
	out := make([]scene.Vec2, len(stroked))
	for i, p := range stroked {
		out[i] = scene.Vec2{X: p.X, Y: p.Y}
	}
	return out
}

// DiscretizeResolved samples a resolved anchor path into a polyline.
// Exposed for the CSG planner's line profiles.
func DiscretizeResolved(points []scene.ResolvedPoint, closed bool) []scene.Vec2 {
	conv := make([]Point, len(points))
	for i, p := range points {
		conv[i] = Point{X: p.X, Y: p.Y, HandleIn: p.HandleIn, HandleOut: p.HandleOut}
	}
	contour := discretizePath(conv, closed)
	out := make([]scene.Vec2, len(contour))
	for i, p := range contour {
		out[i] = scene.Vec2{X: p.X, Y: p.Y}
	}
	return out
}
