package split

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

const (
	obstacleMargin = 2.0 // mm of clearance demanded around obstacles
	sensorRange    = 4.0 // mm within which proximity starts to cost

	minWidth  = 5.0
	maxWidth  = 25.0
	minHeight = 4.0
	maxHeight = 12.0

	biasDeadzone = 0.02

	// polySegmentSamples is the SDF sampling density along a dovetail
	// segment when testing polygonal obstacles.
	polySegmentSamples = 9
)

type circleObstacle struct {
	center v2.Vec
	field  sdf.SDF2
}

type polyObstacle struct {
	field sdf.SDF2
}

// evalContext is the per-run state the cost function closes over.
type evalContext struct {
	outline []v2.Vec
	circles []circleObstacle
	polys   []polyObstacle
	bedW    float64
	bedH    float64
	center  v2.Vec
	radius  float64

	hasBias      bool
	targetAngle  float64
	targetOffset float64
}

func newEvalContext(input *Input) (*evalContext, error) {
	if len(input.Outline) < 3 {
		return nil, fmt.Errorf("split: outline needs at least 3 points, have %d", len(input.Outline))
	}
	c := &evalContext{
		outline: make([]v2.Vec, len(input.Outline)),
		bedW:    input.BedWidth,
		bedH:    input.BedHeight,
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i, p := range input.Outline {
		c.outline[i] = v2.Vec{X: p[0], Y: p[1]}
		minX = math.Min(minX, p[0])
		maxX = math.Max(maxX, p[0])
		minY = math.Min(minY, p[1])
		maxY = math.Max(maxY, p[1])
	}
	c.center = v2.Vec{X: (minX + maxX) / 2, Y: (minY + maxY) / 2}
	c.radius = math.Hypot(maxX-minX, maxY-minY) / 2

	for _, o := range input.Obstacles {
		switch o.Kind {
		case ObstacleCircle:
			s, err := sdf.Circle2D(o.R)
			if err != nil {
				return nil, fmt.Errorf("split: circle obstacle: %w", err)
			}
			field := sdf.Transform2D(s, sdf.Translate2d(v2.Vec{X: o.X, Y: o.Y}))
			c.circles = append(c.circles, circleObstacle{center: v2.Vec{X: o.X, Y: o.Y}, field: field})
		case ObstaclePoly:
			pts := make([]v2.Vec, len(o.Points))
			for i, p := range o.Points {
				pts[i] = v2.Vec{X: p[0], Y: p[1]}
			}
			s, err := sdf.Polygon2D(pts)
			if err != nil {
				return nil, fmt.Errorf("split: polygon obstacle: %w", err)
			}
			c.polys = append(c.polys, polyObstacle{field: s})
		default:
			return nil, fmt.Errorf("split: unknown obstacle kind %q", o.Kind)
		}
	}
	return c, nil
}

// dovetail is the decoded protrusion geometry.
type dovetail struct {
	T       float64
	W       float64
	H       float64
	Flipped bool
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// decode maps a normalized parameter vector to the physical cut line
// and dovetail. The anchor always uses the standard normal (-uy, ux)
// so offset semantics are invariant under flip; the flip flag only
// chooses which side the protrusion grows toward.
func (c *evalContext) decode(x []float64, flipped bool) (angle float64, p1, p2 v2.Vec, dt dovetail) {
	angle = clamp01(x[0]) * math.Pi
	offsetNorm := (clamp01(x[1]) - 0.5) * 2

	ux, uy := math.Cos(angle), math.Sin(angle)
	nx, ny := -uy, ux

	anchor := v2.Vec{
		X: c.center.X + nx*offsetNorm*c.radius,
		Y: c.center.Y + ny*offsetNorm*c.radius,
	}

	minT, maxT := math.Inf(1), math.Inf(-1)
	for _, p := range c.outline {
		t := (p.X-anchor.X)*ux + (p.Y-anchor.Y)*uy
		minT = math.Min(minT, t)
		maxT = math.Max(maxT, t)
	}
	p1 = v2.Vec{X: anchor.X + ux*minT, Y: anchor.Y + uy*minT}
	p2 = v2.Vec{X: anchor.X + ux*maxT, Y: anchor.Y + uy*maxT}

	dt = dovetail{
		T:       0.1 + clamp01(x[2])*0.8,
		W:       minWidth + clamp01(x[3])*(maxWidth-minWidth),
		H:       minHeight + clamp01(x[4])*(maxHeight-minHeight),
		Flipped: flipped,
	}
	return angle, p1, p2, dt
}

type segment struct {
	a, b v2.Vec
}

// cutPath builds the five cut segments: run-in, dovetail left flank,
// head, right flank, run-out.
func cutPath(angle float64, p1, p2 v2.Vec, dt dovetail) [5]segment {
	ux, uy := math.Cos(angle), math.Sin(angle)
	vx, vy := -uy, ux
	if dt.Flipped {
		vx, vy = uy, -ux
	}

	mid := v2.Vec{X: p1.X + (p2.X-p1.X)*dt.T, Y: p1.Y + (p2.Y-p1.Y)*dt.T}
	baseHalf := dt.W / 2
	headHalf := dt.W * 1.5 / 2
	baseL := v2.Vec{X: mid.X - ux*baseHalf, Y: mid.Y - uy*baseHalf}
	baseR := v2.Vec{X: mid.X + ux*baseHalf, Y: mid.Y + uy*baseHalf}
	headL := v2.Vec{X: mid.X - ux*headHalf + vx*dt.H, Y: mid.Y - uy*headHalf + vy*dt.H}
	headR := v2.Vec{X: mid.X + ux*headHalf + vx*dt.H, Y: mid.Y + uy*headHalf + vy*dt.H}

	return [5]segment{
		{p1, baseL},
		{baseL, headL},
		{headL, headR},
		{headR, baseR},
		{baseR, p2},
	}
}

// closestOnSegment projects p onto the segment ab.
func closestOnSegment(p v2.Vec, s segment) v2.Vec {
	dx, dy := s.b.X-s.a.X, s.b.Y-s.a.Y
	lenSq := dx*dx + dy*dy
	if lenSq < 1e-18 {
		return s.a
	}
	t := ((p.X-s.a.X)*dx + (p.Y-s.a.Y)*dy) / lenSq
	t = clamp01(t)
	return v2.Vec{X: s.a.X + t*dx, Y: s.a.Y + t*dy}
}

// segmentSDF samples the signed field along a segment and returns the
// minimum value seen.
func segmentSDF(field sdf.SDF2, s segment) float64 {
	min := math.Inf(1)
	for i := 0; i < polySegmentSamples; i++ {
		t := float64(i) / (polySegmentSamples - 1)
		p := v2.Vec{X: s.a.X + t*(s.b.X-s.a.X), Y: s.a.Y + t*(s.b.Y-s.a.Y)}
		min = math.Min(min, field.Evaluate(p))
	}
	return min
}

// lineIntersectSegment intersects the infinite line through p1 and p2
// with the segment ab.
func lineIntersectSegment(p1, p2, a, b v2.Vec) (v2.Vec, bool) {
	d1x, d1y := p2.X-p1.X, p2.Y-p1.Y
	d2x, d2y := b.X-a.X, b.Y-a.Y
	denom := d1x*d2y - d1y*d2x
	if math.Abs(denom) < 1e-12 {
		return v2.Vec{}, false
	}
	u := ((a.X-p1.X)*d1y - (a.Y-p1.Y)*d1x) / denom
	if u < 0 || u > 1 {
		return v2.Vec{}, false
	}
	return v2.Vec{X: a.X + u*d2x, Y: a.Y + u*d2y}, true
}

// evaluate is the scalar objective handed to the minimizer.
func (c *evalContext) evaluate(x []float64, flipped bool) float64 {
	cost, _, _, _ := c.evaluateDetailed(x, flipped)
	return cost
}

// evaluateDetailed computes the full cost with a breakdown log and the
// two part point sets used by the fit check.
func (c *evalContext) evaluateDetailed(x []float64, flipped bool) (float64, string, [][2]float64, [][2]float64) {
	var costHard, costSoft float64
	var cParam, cBias, cObsHit, cObsProx, cFit float64

	// Parameter bounds.
	for _, v := range x {
		if v < 0 {
			cParam += v * v * 1000
		}
		if v > 1 {
			cParam += (v - 1) * (v - 1) * 1000
		}
	}
	costHard += cParam

	// Bias deadzone around the caller's seed line.
	if c.hasBias {
		dAng := math.Abs(x[0] - c.targetAngle)
		if dAng > 0.5 {
			dAng = 1 - dAng
		}
		if dAng > biasDeadzone {
			cBias += (dAng - biasDeadzone) * (dAng - biasDeadzone) * 100000
		}
		dOff := math.Abs(x[1] - c.targetOffset)
		if dOff > biasDeadzone {
			cBias += (dOff - biasDeadzone) * (dOff - biasDeadzone) * 100000
		}
	}
	costSoft += cBias

	angle, p1, p2, dt := c.decode(x, flipped)
	path := cutPath(angle, p1, p2, dt)

	minSDF := math.Inf(1)
	for _, obs := range c.circles {
		// No part of the cut may touch a circle.
		segSDF := math.Inf(1)
		for _, s := range path {
			segSDF = math.Min(segSDF, obs.field.Evaluate(closestOnSegment(obs.center, s)))
		}
		minSDF = math.Min(minSDF, segSDF)
		switch {
		case segSDF < 0:
			cObsHit += 10000 + segSDF*segSDF*500000
		case segSDF < obstacleMargin:
			cObsHit += (obstacleMargin - segSDF) * (obstacleMargin - segSDF) * 5000
		case segSDF < sensorRange:
			w := 1 - segSDF/sensorRange
			cObsProx += w * w * 0.1
		}
	}
	for _, obs := range c.polys {
		// Only the dovetail flanks and head are forbidden; the straight
		// run-in and run-out may bridge across polygonal holes.
		for i := 1; i <= 3; i++ {
			d := segmentSDF(obs.field, path[i])
			minSDF = math.Min(minSDF, d)
			switch {
			case d < 0.001:
				cObsHit += 5000
			case d < obstacleMargin:
				cObsProx += (obstacleMargin - d) * (obstacleMargin - d) * 50
			}
		}
	}
	costHard += cObsHit
	costSoft += cObsProx

	if costHard > 500 {
		msg := fmt.Sprintf("high cost exit (collision): %.2f", costHard)
		return costHard + costSoft, msg, nil, nil
	}

	// Fit check: split the outline at the cut line, close both parts on
	// the line, and demand each fits the bed in some orientation.
	ux, uy := math.Cos(angle), math.Sin(angle)
	vx, vy := -uy, ux
	if flipped {
		vx, vy = uy, -ux
	}
	cVal := p1.X*vx + p1.Y*vy

	ptsA := []v2.Vec{path[0].b, path[1].b, path[2].b, path[3].b}
	var ptsB []v2.Vec
	for _, p := range c.outline {
		val := p.X*vx + p.Y*vy
		// 0.5 mm of slack keeps jittering boundary points in play.
		if val >= cVal-0.5 {
			ptsA = append(ptsA, p)
		}
		if val <= cVal+0.5 {
			ptsB = append(ptsB, p)
		}
	}
	found := false
	for i := range c.outline {
		a := c.outline[i]
		b := c.outline[(i+1)%len(c.outline)]
		if p, ok := lineIntersectSegment(p1, p2, a, b); ok {
			ptsA = append(ptsA, p)
			ptsB = append(ptsB, p)
			found = true
		}
	}
	if !found {
		ptsA = append(ptsA, p1, p2)
		ptsB = append(ptsB, p1, p2)
	}

	penA := checkFit(ptsA, c.bedW, c.bedH)
	penB := checkFit(ptsB, c.bedW, c.bedH)
	cFit = (penA + penB) * 100
	costHard += cFit

	total := costHard + costSoft
	msg := fmt.Sprintf(
		"total %.4f (hard %.2f soft %.2f) params %.2f collision %.2f (min sdf %.2f) fit %.2f bias %.2f bed %.1fx%.1f A %d pts B %d pts",
		total, costHard, costSoft, cParam, cObsHit, minSDF, cFit, cBias, c.bedW, c.bedH, len(ptsA), len(ptsB))
	return total, msg, rawPoints(ptsA), rawPoints(ptsB)
}

func rawPoints(pts []v2.Vec) [][2]float64 {
	out := make([][2]float64, len(pts))
	for i, p := range pts {
		out[i] = [2]float64{p.X, p.Y}
	}
	return out
}

// lineToParams maps a user line segment to normalized (angle, offset,
// t) parameters, the inverse of decode for the first three dimensions.
func (c *evalContext) lineToParams(start, end [2]float64) (angleNorm, offsetNorm, tSeed float64) {
	dx := end[0] - start[0]
	dy := end[1] - start[1]

	angle := math.Atan2(dy, dx)
	if angle < 0 {
		angle += math.Pi
	}
	if angle >= math.Pi {
		angle -= math.Pi
	}
	angleNorm = angle / math.Pi

	ux, uy := math.Cos(angle), math.Sin(angle)
	nx, ny := -uy, ux

	lineProj := start[0]*nx + start[1]*ny
	centerProj := c.center.X*nx + c.center.Y*ny
	offsetDist := lineProj - centerProj
	offsetNorm = offsetDist/c.radius*0.5 + 0.5

	anchor := v2.Vec{X: c.center.X + nx*offsetDist, Y: c.center.Y + ny*offsetDist}
	minT, maxT := math.Inf(1), math.Inf(-1)
	for _, p := range c.outline {
		t := (p.X-anchor.X)*ux + (p.Y-anchor.Y)*uy
		minT = math.Min(minT, t)
		maxT = math.Max(maxT, t)
	}

	midX := (start[0] + end[0]) / 2
	midY := (start[1] + end[1]) / 2
	userT := (midX-anchor.X)*ux + (midY-anchor.Y)*uy

	geometricT := 0.5
	if math.Abs(maxT-minT) > 1e-6 {
		geometricT = (userT - minT) / (maxT - minT)
	}
	tSeed = (geometricT - 0.1) / 0.8

	return clamp01(angleNorm), clamp01(offsetNorm), clamp01(tSeed)
}
