// Package export renders a resolved layer into fabrication artifacts.
// Profile cuts become stroked SVG or DXF outlines; carved layers become
// a grayscale depth map (SVG, with a PNG raster variant). STL requests
// forward a pre-computed byte buffer untouched.
package export

import (
	"fmt"
	"os"

	"github.com/chazu/cambium/pkg/scene"
)

// Point is one anchor of an outline or path, with optional cubic
// tangent handles relative to the anchor.
type Point struct {
	X         float64     `json:"x"`
	Y         float64     `json:"y"`
	HandleIn  *scene.Vec2 `json:"handleIn,omitempty"`
	HandleOut *scene.Vec2 `json:"handleOut,omitempty"`
}

// Shape is one cut or carve on the exported layer, fully resolved.
type Shape struct {
	Type          scene.ShapeType `json:"shapeType"`
	X             float64         `json:"x"`
	Y             float64         `json:"y"`
	Width         float64         `json:"width,omitempty"`
	Height        float64         `json:"height,omitempty"`
	Diameter      float64         `json:"diameter,omitempty"`
	Angle         float64         `json:"angle,omitempty"`
	CornerRadius  float64         `json:"cornerRadius,omitempty"`
	Thickness     float64         `json:"thickness,omitempty"`
	Points        []Point         `json:"points,omitempty"`
	Depth         float64         `json:"depth"`
	EndmillRadius float64         `json:"endmillRadius,omitempty"`
}

// Request is the export command payload.
type Request struct {
	Filepath       string  `json:"filepath"`
	FileType       string  `json:"fileType"`      // "SVG", "DXF", "PNG", "STL"
	MachiningType  string  `json:"machiningType"` // "Cut" or "Carved/Printed"
	CutDirection   string  `json:"cutDirection"`  // "Top" or "Bottom"
	Outline        []Point `json:"outline"`
	Shapes         []Shape `json:"shapes"`
	LayerThickness float64 `json:"layerThickness"`
	STLContent     []byte  `json:"stlContent,omitempty"`
}

// Write dispatches the request to the matching serializer.
func Write(req *Request) error {
	switch req.FileType {
	case "STL":
		if len(req.STLContent) == 0 {
			return fmt.Errorf("export: STL requested but no mesh content provided")
		}
		return os.WriteFile(req.Filepath, req.STLContent, 0o644)
	case "SVG":
		if req.MachiningType == "Carved/Printed" {
			return DepthMapSVG(req)
		}
		return ProfileSVG(req)
	case "PNG":
		return DepthMapPNG(req)
	case "DXF":
		return ProfileDXF(req)
	}
	return fmt.Errorf("export: unsupported file type %q", req.FileType)
}
