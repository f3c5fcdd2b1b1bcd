package split

import (
	"math"
	"testing"

	v2 "github.com/deadsy/sdfx/vec/v2"
)

func rectInput(w, h float64) *Input {
	return &Input{
		Outline: [][2]float64{
			{-w / 2, -h / 2},
			{w / 2, -h / 2},
			{w / 2, h / 2},
			{-w / 2, h / 2},
		},
		BedWidth:  w,
		BedHeight: h,
	}
}

func TestLineToParams(t *testing.T) {
	ctx, err := newEvalContext(rectInput(200, 100))
	if err != nil {
		t.Fatal(err)
	}

	a, o, ts := ctx.lineToParams([2]float64{-100, 0}, [2]float64{100, 0})
	if a != 0 {
		t.Errorf("horizontal centered line: angle = %g, want 0", a)
	}
	if math.Abs(o-0.5) > 1e-9 {
		t.Errorf("horizontal centered line: offset = %g, want 0.5", o)
	}
	if math.Abs(ts-0.5) > 1e-9 {
		t.Errorf("horizontal centered line: t = %g, want 0.5", ts)
	}

	// Shifted up: offset above 0.5 by 25/radius scaled into [0,1].
	_, o, _ = ctx.lineToParams([2]float64{-100, 25}, [2]float64{100, 25})
	want := 25/ctx.radius*0.5 + 0.5
	if math.Abs(o-want) > 1e-9 {
		t.Errorf("shifted line: offset = %g, want %g", o, want)
	}
}

func TestDecode(t *testing.T) {
	ctx, err := newEvalContext(rectInput(200, 100))
	if err != nil {
		t.Fatal(err)
	}
	angle, p1, p2, dt := ctx.decode([]float64{0, 0.5, 0.5, 0, 1}, false)
	if angle != 0 {
		t.Errorf("angle = %g, want 0", angle)
	}
	if math.Abs(p1.X+100) > 1e-9 || math.Abs(p1.Y) > 1e-9 {
		t.Errorf("p1 = %+v, want (-100, 0)", p1)
	}
	if math.Abs(p2.X-100) > 1e-9 || math.Abs(p2.Y) > 1e-9 {
		t.Errorf("p2 = %+v, want (100, 0)", p2)
	}
	if dt.W != minWidth || dt.H != maxHeight || dt.T != 0.5 {
		t.Errorf("dovetail = %+v, want w=%g h=%g t=0.5", dt, minWidth, maxHeight)
	}

	// Out-of-range coordinates clamp before decoding.
	_, _, _, dt = ctx.decode([]float64{0, 0.5, 0.5, 2, -1}, false)
	if dt.W != maxWidth || dt.H != minHeight {
		t.Errorf("clamped dovetail = %+v, want w=%g h=%g", dt, maxWidth, minHeight)
	}
}

func TestConvexHull(t *testing.T) {
	pts := []v2.Vec{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10},
		{X: 5, Y: 5}, {X: 2, Y: 3},
	}
	hull := convexHull(pts)
	if len(hull) != 4 {
		t.Fatalf("hull has %d points, want 4", len(hull))
	}
}

func TestCheckFit(t *testing.T) {
	rect := []v2.Vec{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 50}, {X: 0, Y: 50}}
	if p := checkFit(rect, 100, 60); p != 0 {
		t.Errorf("100x50 in 100x60 bed: penalty %g, want 0", p)
	}
	if p := checkFit(rect, 60, 100); p != 0 {
		t.Errorf("100x50 in rotated 60x100 bed: penalty %g, want 0", p)
	}

	long := []v2.Vec{{X: 0, Y: 0}, {X: 150, Y: 0}, {X: 150, Y: 50}, {X: 0, Y: 50}}
	p := checkFit(long, 100, 60)
	if math.Abs(p-2500) > 1e-6 {
		t.Errorf("150x50 in 100x60 bed: penalty %g, want 2500", p)
	}

	if p := checkFit(rect[:2], 1, 1); p != 0 {
		t.Errorf("degenerate set: penalty %g, want 0", p)
	}
}

func TestLineIntersectSegment(t *testing.T) {
	p1 := v2.Vec{X: 0, Y: 0}
	p2 := v2.Vec{X: 1, Y: 0}

	got, ok := lineIntersectSegment(p1, p2, v2.Vec{X: 5, Y: -1}, v2.Vec{X: 5, Y: 1})
	if !ok || math.Abs(got.X-5) > 1e-9 || math.Abs(got.Y) > 1e-9 {
		t.Errorf("crossing beyond the segment endpoints: got (%+v, %v), want (5, 0)", got, ok)
	}

	if _, ok := lineIntersectSegment(p1, p2, v2.Vec{X: 0, Y: 1}, v2.Vec{X: 10, Y: 1}); ok {
		t.Error("parallel segment should not intersect")
	}
	if _, ok := lineIntersectSegment(p1, p2, v2.Vec{X: 5, Y: 1}, v2.Vec{X: 5, Y: 3}); ok {
		t.Error("segment not reaching the line should not intersect")
	}
}

func TestOptimizeFeasibleSeedEarlyExit(t *testing.T) {
	input := &Input{
		Outline:     [][2]float64{{0, 0}, {100, 0}, {100, 100}, {0, 100}},
		BedWidth:    100,
		BedHeight:   60,
		InitialLine: &[2][2]float64{{0, 50}, {100, 50}},
	}
	res := Optimize(input)
	if !res.Success {
		t.Fatalf("feasible line should succeed, cost %g", res.Cost)
	}
	if res.Cost >= successThreshold {
		t.Errorf("cost = %g, want < %g", res.Cost, successThreshold)
	}
	if len(res.Shapes) != 1 {
		t.Fatalf("got %d cuts, want 1", len(res.Shapes))
	}
	cut := res.Shapes[0]
	if math.Abs(cut.Start[1]-50) > 1e-6 || math.Abs(cut.End[1]-50) > 1e-6 {
		t.Errorf("cut (%v -> %v) should stay on y=50", cut.Start, cut.End)
	}
	if len(res.DebugPointsA) == 0 || len(res.DebugPointsB) == 0 {
		t.Error("early exit should carry part point sets")
	}
}

func TestOptimizeAvoidsObstacle(t *testing.T) {
	input := &Input{
		Outline:     [][2]float64{{-100, -50}, {100, -50}, {100, 50}, {-100, 50}},
		Obstacles:   []Obstacle{{Kind: ObstacleCircle, X: 0, Y: 12, R: 8}},
		BedWidth:    200,
		BedHeight:   60,
		InitialLine: &[2][2]float64{{-100, 0}, {100, 0}},
	}
	res := Optimize(input)
	if !res.Success {
		t.Fatalf("expected success, cost %g", res.Cost)
	}
	cut := res.Shapes[0]

	// The seed line's angle survives within the bias deadzone.
	angle := math.Atan2(cut.End[1]-cut.Start[1], cut.End[0]-cut.Start[0])
	if angle < 0 {
		angle += math.Pi
	}
	angleNorm := angle / math.Pi
	if angleNorm > 0.5 {
		angleNorm = 1 - angleNorm
	}
	if angleNorm > 0.03 {
		t.Errorf("angle drifted to %g of a half-turn", angleNorm)
	}

	// The dovetail clears the obstacle by the margin.
	path := cutPath(angle,
		v2.Vec{X: cut.Start[0], Y: cut.Start[1]},
		v2.Vec{X: cut.End[0], Y: cut.End[1]},
		dovetail{T: cut.DovetailT, W: cut.DovetailWidth, H: cut.DovetailHeight, Flipped: cut.Flipped})
	center := v2.Vec{X: 0, Y: 12}
	minDist := math.Inf(1)
	for i := 1; i <= 3; i++ {
		cp := closestOnSegment(center, path[i])
		minDist = math.Min(minDist, math.Hypot(cp.X-center.X, cp.Y-center.Y))
	}
	if sdf := minDist - 8; sdf < 1.9 {
		t.Errorf("dovetail clearance %g mm, want >= margin", sdf)
	}
}

func TestOptimizeRejectsDegenerateOutline(t *testing.T) {
	res := Optimize(&Input{Outline: [][2]float64{{0, 0}, {1, 1}}})
	if res.Success {
		t.Error("two-point outline should fail")
	}
}

func TestDebugEval(t *testing.T) {
	input := &Input{
		Outline:     [][2]float64{{-100, -50}, {100, -50}, {100, 50}, {-100, 50}},
		Obstacles:   []Obstacle{{Kind: ObstacleCircle, X: 0, Y: 0, R: 8}},
		BedWidth:    200,
		BedHeight:   60,
		InitialLine: &[2][2]float64{{-100, 0}, {100, 0}},
	}
	res := DebugEval(input)
	if res.Cost < 10000 {
		t.Errorf("line through an obstacle: cost %g, want a hard collision", res.Cost)
	}
	if res.Log == "" {
		t.Error("missing breakdown log")
	}

	if res := DebugEval(&Input{Outline: input.Outline}); res.Cost != -1 {
		t.Errorf("missing line: cost %g, want -1", res.Cost)
	}
}
