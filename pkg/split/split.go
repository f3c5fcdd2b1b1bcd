// Package split proposes a dovetailed split line through a board: a
// straight cut with a trapezoid protrusion, placed to avoid obstacles
// while both resulting parts fit a fabrication bed. The placement is
// a five-parameter CMA-ES search seeded from the caller's line.
package split

import (
	"log"
	"math"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/optimize"
)

const (
	// successThreshold separates a compliant cut from a compromise.
	successThreshold = 1.0
	populationSize   = 40
	maxGenerations   = 250
)

// Obstacle kinds.
const (
	ObstacleCircle = "circle"
	ObstaclePoly   = "poly"
)

// Obstacle is a region the cut must avoid. Circles (physical
// components) repel the whole cut; polygons (cut-through holes) only
// repel the dovetail.
type Obstacle struct {
	Kind   string       `json:"kind"`
	X      float64      `json:"x,omitempty"`
	Y      float64      `json:"y,omitempty"`
	R      float64      `json:"r,omitempty"`
	Points [][2]float64 `json:"points,omitempty"`
}

// Input is the optimizer request.
type Input struct {
	Outline     [][2]float64    `json:"outline"`
	Obstacles   []Obstacle      `json:"obstacles"`
	BedWidth    float64         `json:"bedWidth"`
	BedHeight   float64         `json:"bedHeight"`
	InitialLine *[2][2]float64  `json:"initialLine,omitempty"`
}

// Cut is one generated split line with its dovetail parameters.
type Cut struct {
	ID             string     `json:"id"`
	Start          [2]float64 `json:"start"`
	End            [2]float64 `json:"end"`
	DovetailWidth  float64    `json:"dovetailWidth"`
	DovetailHeight float64    `json:"dovetailHeight"`
	DovetailT      float64    `json:"dovetailT"`
	Flipped        bool       `json:"flipped"`
}

// Result is the optimizer response.
type Result struct {
	Success      bool         `json:"success"`
	Cost         float64      `json:"cost"`
	Shapes       []Cut        `json:"shapes"`
	DebugPointsA [][2]float64 `json:"debugPointsA,omitempty"`
	DebugPointsB [][2]float64 `json:"debugPointsB,omitempty"`
}

// DebugResult is one cost evaluation with its breakdown.
type DebugResult struct {
	Log     string       `json:"log"`
	Cost    float64      `json:"cost"`
	PointsA [][2]float64 `json:"pointsA"`
	PointsB [][2]float64 `json:"pointsB"`
}

type seed struct {
	x     []float64
	sigma float64
}

// buildSeeds assembles the start points. A caller line becomes the
// bias target plus a trusted seed and a t/width grid along the line;
// otherwise a small global spread over angles.
func buildSeeds(input *Input, ctx *evalContext) []seed {
	var seeds []seed
	if input.InitialLine != nil {
		aNorm, oNorm, tSeed := ctx.lineToParams(input.InitialLine[0], input.InitialLine[1])
		ctx.hasBias = true
		ctx.targetAngle = aNorm
		ctx.targetOffset = oNorm

		seeds = append(seeds, seed{x: []float64{aNorm, oNorm, tSeed, 0.5, 0.5}, sigma: 0.1})
		for _, t := range []float64{0.10, 0.25, 0.40, 0.50, 0.55, 0.70, 0.85} {
			for _, w := range []float64{0.3, 0.7} {
				seeds = append(seeds, seed{x: []float64{aNorm, oNorm, t, w, 0.5}, sigma: 0.1})
			}
		}
		return seeds
	}
	seeds = append(seeds, seed{x: []float64{0.5, 0.5, 0.5, 0.5, 0.5}, sigma: 0.2})
	for i := 0; i < 4; i++ {
		seeds = append(seeds, seed{x: []float64{float64(i) / 4, 0.5, 0.5, 0.5, 0.5}, sigma: 0.2})
	}
	return seeds
}

func (c *evalContext) cutFrom(x []float64, flipped bool) Cut {
	_, p1, p2, dt := c.decode(x, flipped)
	return Cut{
		ID:             uuid.NewString(),
		Start:          [2]float64{p1.X, p1.Y},
		End:            [2]float64{p2.X, p2.Y},
		DovetailWidth:  dt.W,
		DovetailHeight: dt.H,
		DovetailT:      dt.T,
		Flipped:        flipped,
	}
}

// costThreshold terminates the search once any evaluation is good
// enough to use.
type costThreshold struct {
	limit float64
}

func (c costThreshold) Init(dim int) {}

func (c costThreshold) Converged(loc *optimize.Location) optimize.Status {
	if loc.F < c.limit {
		return optimize.FunctionConvergence
	}
	return optimize.NotTerminated
}

func runCMA(ctx *evalContext, s seed, flipped bool) (cost float64, x []float64, ok bool) {
	problem := optimize.Problem{
		Func: func(x []float64) float64 { return ctx.evaluate(x, flipped) },
	}
	method := &optimize.CmaEsChol{
		InitStepSize: s.sigma,
		Population:   populationSize,
	}
	settings := &optimize.Settings{
		FuncEvaluations: populationSize * maxGenerations,
		Converger:       costThreshold{limit: successThreshold},
	}
	res, err := optimize.Minimize(problem, s.x, settings, method)
	if err != nil {
		log.Printf("split: cma-es run failed: %v", err)
		return 0, nil, false
	}
	return res.F, res.X, true
}

// Optimize searches for the cheapest dovetailed split. Each seed gets
// a detailed evaluation first; a seed already under the success
// threshold wins outright. Both flip orientations are tried unless an
// earlier one already succeeded.
func Optimize(input *Input) *Result {
	ctx, err := newEvalContext(input)
	if err != nil {
		log.Printf("split: %v", err)
		return &Result{Success: false, Cost: math.Inf(1)}
	}
	seeds := buildSeeds(input, ctx)

	bestCost := math.Inf(1)
	var bestCut *Cut
	for _, flipped := range []bool{false, true} {
		for _, s := range seeds {
			seedCost, _, ptsA, ptsB := ctx.evaluateDetailed(s.x, flipped)
			log.Printf("split: seed flip=%v t=%.2f w=%.2f cost=%.4f", flipped, s.x[2], s.x[3], seedCost)
			if seedCost < successThreshold {
				cut := ctx.cutFrom(s.x, flipped)
				return &Result{
					Success:      true,
					Cost:         seedCost,
					Shapes:       []Cut{cut},
					DebugPointsA: ptsA,
					DebugPointsB: ptsB,
				}
			}

			cost, x, ok := runCMA(ctx, s, flipped)
			if ok && cost < bestCost {
				bestCost = cost
				cut := ctx.cutFrom(x, flipped)
				bestCut = &cut
			}
			if bestCost < successThreshold {
				break
			}
		}
		if bestCost < successThreshold {
			break
		}
	}

	if bestCut == nil {
		return &Result{Success: false, Cost: math.Inf(1)}
	}
	return &Result{
		Success: bestCost < successThreshold,
		Cost:    bestCost,
		Shapes:  []Cut{*bestCut},
	}
}

// DebugEval evaluates the caller's line at both flip orientations and
// reports the cheaper one with its cost breakdown.
func DebugEval(input *Input) *DebugResult {
	ctx, err := newEvalContext(input)
	if err != nil {
		return &DebugResult{Log: err.Error(), Cost: -1}
	}
	if input.InitialLine == nil {
		return &DebugResult{Log: "no line provided", Cost: -1}
	}
	aNorm, oNorm, tSeed := ctx.lineToParams(input.InitialLine[0], input.InitialLine[1])
	x := []float64{aNorm, oNorm, tSeed, 0.5, 0.5}

	c1, log1, a1, b1 := ctx.evaluateDetailed(x, false)
	c2, log2, a2, b2 := ctx.evaluateDetailed(x, true)
	if c1 < c2 {
		return &DebugResult{Log: "normal: " + log1, Cost: c1, PointsA: a1, PointsB: b1}
	}
	return &DebugResult{Log: "flipped: " + log2, Cost: c2, PointsA: a2, PointsB: b2}
}
