// Package scene defines the parametric 2D scene consumed by every
// pipeline: a board outline, a stack of material layers, a list of
// cut/carve shapes with per-layer depth assignments, and a parameter
// table. Raw scenes carry unevaluated expressions; Resolve collapses
// them into a ResolvedScene with every scalar in millimeters.
package scene

// Expr is a raw scene value: a JSON number, a numeric string, a
// parameter key, or an infix expression over parameter keys.
type Expr = any

// SplitterPrefix marks shapes that must cut last during CSG planning.
// Shapes whose ID begins with this prefix are promoted to a distinct
// priority class regardless of their position in the shape list.
const SplitterPrefix = "splitter"

// ShapeType enumerates the shape variants the planner understands.
type ShapeType string

const (
	ShapeRect         ShapeType = "rect"
	ShapeCircle       ShapeType = "circle"
	ShapePolygon      ShapeType = "polygon"
	ShapeLine         ShapeType = "line"
	ShapeBoardOutline ShapeType = "boardOutline"
	ShapeWireGuide    ShapeType = "wireGuide"
)

// Vec2 is a concrete 2D vector in millimeters.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Handle is an unresolved tangent handle attached to a path point.
type Handle struct {
	X Expr `json:"x"`
	Y Expr `json:"y"`
}

// PathPoint is an anchor point of an outline or polygon path. A nil
// handle means the adjacent segment is straight on that side.
type PathPoint struct {
	X         Expr    `json:"x"`
	Y         Expr    `json:"y"`
	HandleIn  *Handle `json:"handleIn,omitempty"`
	HandleOut *Handle `json:"handleOut,omitempty"`
}

// Shape is one entry of the scene's shape list. Which fields are
// meaningful depends on Type; unknown types are skipped by all
// consumers. AssignedLayers maps a layer ID to either a depth
// expression or an object carrying at least a "depth" key.
type Shape struct {
	ID             string          `json:"id"`
	Type           ShapeType       `json:"type"`
	X              Expr            `json:"x"`
	Y              Expr            `json:"y"`
	Width          Expr            `json:"width,omitempty"`
	Height         Expr            `json:"height,omitempty"`
	Diameter       Expr            `json:"diameter,omitempty"`
	CornerRadius   Expr            `json:"cornerRadius,omitempty"`
	Angle          Expr            `json:"angle,omitempty"`
	Thickness      Expr            `json:"thickness,omitempty"`
	EndmillRadius  Expr            `json:"endmillRadius,omitempty"`
	Points         []PathPoint     `json:"points,omitempty"`
	AssignedLayers map[string]Expr `json:"assignedLayers,omitempty"`
}

// IsSplitter reports whether the shape belongs to the cut-last class.
func (s *Shape) IsSplitter() bool {
	return len(s.ID) >= len(SplitterPrefix) && s.ID[:len(SplitterPrefix)] == SplitterPrefix
}

// Layer is one entry of the material stack.
type Layer struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Thickness Expr   `json:"thicknessExpression"`
}

// Param is one entry of the parameter table. Unit is "mm" or "in";
// inches convert to millimeters on resolution.
type Param struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Scene is the raw parametric input.
type Scene struct {
	Shapes      []Shape `json:"shapes"`
	Stack       []Layer `json:"stackup"`
	Params      []Param `json:"params"`
	TargetLayer string  `json:"targetLayerId,omitempty"`
}

// ResolvedPoint is a PathPoint with expressions collapsed. Handles are
// offsets relative to the anchor, matching the raw representation.
type ResolvedPoint struct {
	X, Y      float64
	HandleIn  *Vec2
	HandleOut *Vec2
}

// ResolvedShape is a Shape with every expression collapsed to
// millimeters. Depths holds only the layers the shape is assigned to.
type ResolvedShape struct {
	ID            string
	Type          ShapeType
	X, Y          float64
	Width         float64
	Height        float64
	Diameter      float64
	CornerRadius  float64
	Angle         float64
	Thickness     float64
	EndmillRadius float64
	Points        []ResolvedPoint
	Depths        map[string]float64
}

// IsSplitter reports whether the shape belongs to the cut-last class.
func (s *ResolvedShape) IsSplitter() bool {
	return len(s.ID) >= len(SplitterPrefix) && s.ID[:len(SplitterPrefix)] == SplitterPrefix
}

// DepthFor returns the shape's cut depth on the given layer.
func (s *ResolvedShape) DepthFor(layerID string) (float64, bool) {
	d, ok := s.Depths[layerID]
	return d, ok
}

// ResolvedLayer is a Layer with its thickness collapsed to millimeters.
type ResolvedLayer struct {
	ID        string
	Thickness float64
}

// ResolvedScene is a Scene with every expression collapsed. It is
// derived per request and discarded.
type ResolvedScene struct {
	Shapes      []ResolvedShape
	Stack       []ResolvedLayer
	TargetLayer string
}

// LayerThickness returns the resolved thickness of the layer with the
// given ID, or false when the stack has no such layer.
func (rs *ResolvedScene) LayerThickness(layerID string) (float64, bool) {
	for _, l := range rs.Stack {
		if l.ID == layerID {
			return l.Thickness, true
		}
	}
	return 0, false
}

// BoardOutline returns the first boardOutline shape, or nil.
func (rs *ResolvedScene) BoardOutline() *ResolvedShape {
	for i := range rs.Shapes {
		if rs.Shapes[i].Type == ShapeBoardOutline {
			return &rs.Shapes[i]
		}
	}
	return nil
}
