package scene

import (
	"strconv"

	"github.com/Knetic/govaluate"
)

const inchToMM = 25.4

// Table is a resolution scope over the parameter list. It is read-only
// per request.
type Table struct {
	params []Param
	vars   map[string]any
}

// NewTable builds a resolution scope. Parameter values are converted to
// millimeters up front so expression evaluation sees consistent units.
func NewTable(params []Param) *Table {
	vars := make(map[string]any, len(params))
	for _, p := range params {
		vars[p.Key] = paramMM(p)
	}
	return &Table{params: params, vars: vars}
}

func paramMM(p Param) float64 {
	if p.Unit == "in" {
		return p.Value * inchToMM
	}
	return p.Value
}

// Resolve collapses a raw scene value to a scalar in millimeters.
// Numbers pass through. Strings are tried in order as: numeric literal,
// parameter key, infix expression over parameter keys. Anything
// unresolvable collapses to 0. Resolve is pure and idempotent.
func (t *Table) Resolve(v Expr) float64 {
	switch val := v.(type) {
	case nil:
		return 0
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case string:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
		for _, p := range t.params {
			if p.Key == val {
				return paramMM(p)
			}
		}
		return t.evalExpression(val)
	}
	return 0
}

// evalExpression evaluates an infix expression against the parameter
// table. Failures of any kind collapse to 0, matching the resolver
// contract for unresolvable inputs.
func (t *Table) evalExpression(s string) float64 {
	expr, err := govaluate.NewEvaluableExpression(s)
	if err != nil {
		return 0
	}
	out, err := expr.Evaluate(t.vars)
	if err != nil {
		return 0
	}
	if f, ok := out.(float64); ok {
		return f
	}
	return 0
}

// resolveHandle collapses an optional tangent handle.
func (t *Table) resolveHandle(h *Handle) *Vec2 {
	if h == nil {
		return nil
	}
	return &Vec2{X: t.Resolve(h.X), Y: t.Resolve(h.Y)}
}

// resolveDepth collapses an assignment value, which is either a depth
// expression directly or an object carrying a "depth" key.
func (t *Table) resolveDepth(v Expr) (float64, bool) {
	if v == nil {
		return 0, false
	}
	if obj, ok := v.(map[string]any); ok {
		d, ok := obj["depth"]
		if !ok {
			return 0, false
		}
		return t.Resolve(d), true
	}
	return t.Resolve(v), true
}

// Resolve evaluates every expression in the scene, producing a
// ResolvedScene with all scalars in millimeters. Shapes keep their
// order; point coordinates become absolute (shape origin applied).
func (s *Scene) Resolve() *ResolvedScene {
	t := NewTable(s.Params)

	rs := &ResolvedScene{TargetLayer: s.TargetLayer}

	for _, l := range s.Stack {
		rs.Stack = append(rs.Stack, ResolvedLayer{
			ID:        l.ID,
			Thickness: t.Resolve(l.Thickness),
		})
	}

	for _, sh := range s.Shapes {
		r := ResolvedShape{
			ID:            sh.ID,
			Type:          sh.Type,
			X:             t.Resolve(sh.X),
			Y:             t.Resolve(sh.Y),
			Width:         t.Resolve(sh.Width),
			Height:        t.Resolve(sh.Height),
			Diameter:      t.Resolve(sh.Diameter),
			CornerRadius:  t.Resolve(sh.CornerRadius),
			Angle:         t.Resolve(sh.Angle),
			Thickness:     t.Resolve(sh.Thickness),
			EndmillRadius: t.Resolve(sh.EndmillRadius),
		}
		for _, pt := range sh.Points {
			r.Points = append(r.Points, ResolvedPoint{
				X:         r.X + t.Resolve(pt.X),
				Y:         r.Y + t.Resolve(pt.Y),
				HandleIn:  t.resolveHandle(pt.HandleIn),
				HandleOut: t.resolveHandle(pt.HandleOut),
			})
		}
		if len(sh.AssignedLayers) > 0 {
			r.Depths = make(map[string]float64, len(sh.AssignedLayers))
			for layerID, v := range sh.AssignedLayers {
				if d, ok := t.resolveDepth(v); ok {
					r.Depths[layerID] = d
				}
			}
		}
		rs.Shapes = append(rs.Shapes, r)
	}

	return rs
}
