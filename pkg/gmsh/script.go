// Package gmsh plans CSG geometry scripts for the external meshing
// kernel and drives the two-phase meshing pipeline: a 2D surface pass
// whose shells pick the target volume, then a filtered 3D pass.
package gmsh

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/cambium/pkg/export"
	"github.com/chazu/cambium/pkg/scene"
)

// defaultMeshSize is the characteristic length used when the caller
// gives no quality hint, in millimeters.
const defaultMeshSize = 5.0

// Script is a planned geometry program plus any warnings raised while
// planning it. Geometry carries no mesh or save commands; the pipeline
// appends those per phase.
type Script struct {
	Geometry string
	Warnings []string
}

type builder struct {
	sb      strings.Builder
	counter int
}

func (b *builder) tag() int {
	t := b.counter
	b.counter++
	return t
}

func (b *builder) linef(format string, args ...any) {
	fmt.Fprintf(&b.sb, format, args...)
	b.sb.WriteByte('\n')
}

// BuildScript emits the CSG program for the scene's target layer.
//
// The base stock is the board outline extruded through the layer
// thickness. Shapes assigned to the layer then cut in painter order:
// the normal class reversed so bottom-painted shapes cut first, with
// splitter shapes appended last. Each shape subtracts an oversized
// column and, when its depth leaves material, unions the remainder
// back. The running volume set stays in the kernel-side v_main[] list
// so multi-body splitter results remain addressable.
func BuildScript(rs *scene.ResolvedScene, meshSize float64) *Script {
	if meshSize <= 0 {
		meshSize = defaultMeshSize
	}
	b := &builder{counter: 100}
	var warnings []string

	b.linef(`SetFactory("OpenCASCADE");`)
	b.linef("Mesh.Algorithm3D = 10; // HXT")
	b.linef("Mesh.CharacteristicLengthMin = %g;", meshSize*0.1)
	b.linef("Mesh.CharacteristicLengthMax = %g;", meshSize)
	b.linef("General.NumThreads = 0;")

	thickness, ok := rs.LayerThickness(rs.TargetLayer)
	if !ok {
		warnings = append(warnings, fmt.Sprintf("target layer %q not in stack, assuming 1 mm thickness", rs.TargetLayer))
		thickness = 1.0
	}
	// Zero-thickness extrusion crashes the OpenCASCADE kernel.
	if math.Abs(thickness) < 1e-5 {
		warnings = append(warnings, "layer thickness resolved to 0, clamping to 1 mm")
		thickness = 1.0
	}

	b.linef("// base stock")
	outline := rs.BoardOutline()
	if outline != nil && len(outline.Points) >= 3 {
		surf := b.emitPathSurface(outline.Points)
		b.linef("base_out[] = Extrude {0, 0, %g} { Surface{%d}; };", thickness, surf)
	} else {
		tag := b.tag()
		b.linef("Rectangle(%d) = {-50, -50, 0, 100, 100, 0};", tag)
		b.linef("base_out[] = Extrude {0, 0, %g} { Surface{%d}; };", thickness, tag)
		warnings = append(warnings, "board outline missing or degenerate, using 100x100 fallback stock")
	}
	b.linef("v_main[] = {base_out[1]};")

	var normal, splitters []*scene.ResolvedShape
	for i := range rs.Shapes {
		s := &rs.Shapes[i]
		if s.Type == scene.ShapeBoardOutline || s.Type == scene.ShapeWireGuide {
			continue
		}
		if _, assigned := s.Depths[rs.TargetLayer]; !assigned {
			continue
		}
		if s.IsSplitter() {
			splitters = append(splitters, s)
		} else {
			normal = append(normal, s)
		}
	}
	for i, j := 0, len(normal)-1; i < j; i, j = i+1, j-1 {
		normal[i], normal[j] = normal[j], normal[i]
	}
	ordered := append(normal, splitters...)

	for _, s := range ordered {
		depth := s.Depths[rs.TargetLayer]

		surf, ok := b.emitProfile(s)
		if !ok {
			continue
		}
		b.linef("v_cut_list[] = Extrude {0, 0, %g} { Surface{%d}; };", thickness+1000.0, surf)
		b.linef("v_cut = v_cut_list[1];")
		b.linef("Translate {0, 0, -500} { Volume{v_cut}; }")
		b.linef("res_cut[] = BooleanDifference{ Volume{v_main[]}; Delete; }{ Volume{v_cut}; Delete; };")
		b.linef("v_main[] = res_cut[];")

		if remaining := thickness - depth; remaining > 1e-4 {
			keep, ok := b.emitProfile(s)
			if !ok {
				continue
			}
			b.linef("v_keep_list[] = Extrude {0, 0, %g} { Surface{%d}; };", remaining, keep)
			b.linef("v_keep = v_keep_list[1];")
			b.linef("res_union[] = BooleanUnion{ Volume{v_main[]}; Delete; }{ Volume{v_keep}; Delete; };")
			b.linef("v_main[] = res_union[];")
		}
	}

	return &Script{Geometry: b.sb.String(), Warnings: warnings}
}

// emitProfile writes one shape's planar profile surface and returns
// its tag. Shape types the planner has no profile for report false.
func (b *builder) emitProfile(s *scene.ResolvedShape) (int, bool) {
	switch s.Type {
	case scene.ShapeRect:
		if s.Width <= 0 || s.Height <= 0 {
			return 0, false
		}
		tag := b.tag()
		b.linef("Rectangle(%d) = {%g, %g, 0, %g, %g, %g};",
			tag, s.X-s.Width/2, s.Y-s.Height/2, s.Width, s.Height, s.CornerRadius)
		if s.Angle != 0 {
			b.linef("Rotate {{0, 0, 1}, {%g, %g, 0}, %g} { Surface{%d}; }",
				s.X, s.Y, s.Angle*math.Pi/180, tag)
		}
		return tag, true
	case scene.ShapeCircle:
		if s.Diameter <= 0 {
			return 0, false
		}
		tag := b.tag()
		b.linef("Disk(%d) = {%g, %g, 0, %g};", tag, s.X, s.Y, s.Diameter/2)
		return tag, true
	case scene.ShapeLine:
		if len(s.Points) < 2 {
			return 0, false
		}
		t := s.Thickness
		if t <= 0 {
			t = 1
		}
		center := export.DiscretizeResolved(s.Points, false)
		outline := export.StrokeOutline(center, t)
		if len(outline) < 3 {
			return 0, false
		}
		return b.emitLoopSurface(outline), true
	case scene.ShapePolygon:
		if len(s.Points) < 3 {
			return 0, false
		}
		return b.emitPathSurface(s.Points), true
	}
	return 0, false
}

// emitPathSurface writes a closed anchor path as points plus line or
// bezier edges, then a curve loop and plane surface. A segment with a
// handle on either end becomes a cubic bezier; a missing handle
// collapses its control point onto the adjacent anchor.
func (b *builder) emitPathSurface(points []scene.ResolvedPoint) int {
	n := len(points)
	anchorTags := make([]int, n)
	for i, p := range points {
		anchorTags[i] = b.tag()
		b.linef("Point(%d) = {%g, %g, 0, 1.0};", anchorTags[i], p.X, p.Y)
	}

	edgeTags := make([]int, 0, n)
	for i := 0; i < n; i++ {
		curr := points[i]
		next := points[(i+1)%n]
		ca := anchorTags[i]
		na := anchorTags[(i+1)%n]

		if curr.HandleOut == nil && next.HandleIn == nil {
			tag := b.tag()
			b.linef("Line(%d) = {%d, %d};", tag, ca, na)
			edgeTags = append(edgeTags, tag)
			continue
		}

		c1 := ca
		if curr.HandleOut != nil {
			c1 = b.tag()
			b.linef("Point(%d) = {%g, %g, 0, 1.0};", c1, curr.X+curr.HandleOut.X, curr.Y+curr.HandleOut.Y)
		}
		c2 := na
		if next.HandleIn != nil {
			c2 = b.tag()
			b.linef("Point(%d) = {%g, %g, 0, 1.0};", c2, next.X+next.HandleIn.X, next.Y+next.HandleIn.Y)
		}
		tag := b.tag()
		b.linef("Bezier(%d) = {%d, %d, %d, %d};", tag, ca, c1, c2, na)
		edgeTags = append(edgeTags, tag)
	}

	loop := b.tag()
	b.linef("Curve Loop(%d) = {%s};", loop, joinTags(edgeTags))
	surf := b.tag()
	b.linef("Plane Surface(%d) = {%d};", surf, loop)
	return surf
}

// emitLoopSurface writes an already-discretized closed polyline as
// straight segments, then a curve loop and plane surface.
func (b *builder) emitLoopSurface(pts []scene.Vec2) int {
	n := len(pts)
	pointTags := make([]int, n)
	for i, p := range pts {
		pointTags[i] = b.tag()
		b.linef("Point(%d) = {%g, %g, 0, 1.0};", pointTags[i], p.X, p.Y)
	}
	lineTags := make([]int, n)
	for i := 0; i < n; i++ {
		lineTags[i] = b.tag()
		b.linef("Line(%d) = {%d, %d};", lineTags[i], pointTags[i], pointTags[(i+1)%n])
	}
	loop := b.tag()
	b.linef("Curve Loop(%d) = {%s};", loop, joinTags(lineTags))
	surf := b.tag()
	b.linef("Plane Surface(%d) = {%d};", surf, loop)
	return surf
}

func joinTags(tags []int) string {
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = fmt.Sprintf("%d", t)
	}
	return strings.Join(parts, ", ")
}

// SurfaceScript wraps the geometry with the phase-1 trailer: mesh the
// boundary surfaces and save them for shell analysis.
func SurfaceScript(geometry, mshPath string) string {
	var sb strings.Builder
	sb.WriteString(geometry)
	sb.WriteString("Mesh 2;\n")
	sb.WriteString("Mesh.Format = 10; // Auto (4.1)\n")
	fmt.Fprintf(&sb, "Save %q;\n", strings.ReplaceAll(mshPath, "\\", "/"))
	return sb.String()
}

// VolumeScript emits the phase-2 program: include the phase-1 script,
// keep only the volume whose bounding-box center lies nearest the
// target centroid, then mesh it in 3D.
func VolumeScript(geoPath string, cx, cy, cz float64, mshPath string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Include %q;\n", strings.ReplaceAll(geoPath, "\\", "/"))
	sb.WriteString("vols[] = Volume \"*\";\n")
	sb.WriteString("best = vols[0];\n")
	sb.WriteString("bestDist = 1e30;\n")
	sb.WriteString("For i In {0 : #vols[]-1}\n")
	sb.WriteString("  bb[] = BoundingBox Volume{vols[i]};\n")
	sb.WriteString("  cx = (bb[0] + bb[3]) / 2;\n")
	sb.WriteString("  cy = (bb[1] + bb[4]) / 2;\n")
	sb.WriteString("  cz = (bb[2] + bb[5]) / 2;\n")
	fmt.Fprintf(&sb, "  d = (cx - %g)^2 + (cy - %g)^2 + (cz - %g)^2;\n", cx, cy, cz)
	sb.WriteString("  If (d < bestDist)\n")
	sb.WriteString("    bestDist = d;\n")
	sb.WriteString("    best = vols[i];\n")
	sb.WriteString("  EndIf\n")
	sb.WriteString("EndFor\n")
	sb.WriteString("For i In {0 : #vols[]-1}\n")
	sb.WriteString("  If (vols[i] != best)\n")
	sb.WriteString("    Recursive Delete { Volume{vols[i]}; }\n")
	sb.WriteString("  EndIf\n")
	sb.WriteString("EndFor\n")
	sb.WriteString("Mesh 3;\n")
	sb.WriteString("Mesh.Format = 10; // Auto (4.1)\n")
	fmt.Fprintf(&sb, "Save %q;\n", strings.ReplaceAll(mshPath, "\\", "/"))
	return sb.String()
}
