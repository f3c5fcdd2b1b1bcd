package export

import (
	"fmt"
	"os"

	svg "github.com/ajstarks/svgo/float"
	polyclip "github.com/ctessum/polyclip-go"
	"github.com/dhconnelly/rtreego"

	"github.com/chazu/cambium/pkg/scene"
)

// shapeEntry indexes one discretized shape in the overlap tree.
type shapeEntry struct {
	idx  int
	poly polyclip.Polygon
	rect rtreego.Rect
}

func (e *shapeEntry) Bounds() rtreego.Rect { return e.rect }

func contourRect(c polyclip.Contour) (rtreego.Rect, bool) {
	minX, minY, w, h := polyBounds(polyclip.Polygon{c})
	// rtreego rejects zero extents.
	if w <= 0 {
		w = 1e-9
	}
	if h <= 0 {
		h = 1e-9
	}
	r, err := rtreego.NewRect(rtreego.Point{minX, minY}, []float64{w, h})
	if err != nil {
		return rtreego.Rect{}, false
	}
	return r, true
}

func contourContainsPoly(outer polyclip.Contour, poly polyclip.Polygon) bool {
	for _, c := range poly {
		for _, p := range c {
			if !outer.Contains(p) {
				return false
			}
		}
	}
	return true
}

func polysOverlap(a, b polyclip.Polygon) bool {
	return len(a.Construct(polyclip.INTERSECTION, b)) > 0
}

// partitionIsolatedCircles splits the shape list into circles that
// overlap nothing and sit fully inside the board (kept parametric for
// clean toolpaths) and the pool that goes through the boolean engine.
// An r-tree over shape bounds keeps the pairwise test near-linear.
func partitionIsolatedCircles(req *Request) (polyclip.Polygon, []Shape, []Shape) {
	board, _ := boardPolygon(req.Outline)

	entries := make([]*shapeEntry, 0, len(req.Shapes))
	tree := rtreego.NewTree(2, 2, 8)
	for i := range req.Shapes {
		c, ok := ShapeContour(&req.Shapes[i])
		if !ok {
			continue
		}
		rect, ok := contourRect(c)
		if !ok {
			continue
		}
		e := &shapeEntry{idx: i, poly: polyclip.Polygon{c}, rect: rect}
		entries = append(entries, e)
		tree.Insert(e)
	}
	byIdx := make(map[int]*shapeEntry, len(entries))
	for _, e := range entries {
		byIdx[e.idx] = e
	}

	var isolated, pool []Shape
	for i := range req.Shapes {
		s := req.Shapes[i]
		e := byIdx[i]
		ok := s.Type == scene.ShapeCircle && e != nil
		if ok {
			for _, hit := range tree.SearchIntersect(e.rect) {
				other := hit.(*shapeEntry)
				if other.idx == i {
					continue
				}
				if polysOverlap(e.poly, other.poly) {
					ok = false
					break
				}
			}
		}
		if ok && len(board) > 0 {
			ok = contourContainsPoly(board[0], e.poly)
		}
		if ok {
			isolated = append(isolated, s)
		} else {
			pool = append(pool, s)
		}
	}
	return board, isolated, pool
}

// unionPool unions the pool shapes and clips the result to the board.
func unionPool(board polyclip.Polygon, pool []Shape) polyclip.Polygon {
	var united polyclip.Polygon
	for i := range pool {
		c, ok := ShapeContour(&pool[i])
		if !ok {
			continue
		}
		p := polyclip.Polygon{c}
		if united == nil {
			united = p
		} else {
			united = united.Construct(polyclip.UNION, p)
		}
	}
	if united == nil || len(board) == 0 {
		return nil
	}
	return united.Construct(polyclip.INTERSECTION, board)
}

const hairline = `stroke-width="0.1mm"`

// ProfileSVG writes the profile-cut view: the board exterior stroked
// black, the unioned cut pool stroked red, and isolated circles as
// parametric circle elements.
func ProfileSVG(req *Request) error {
	board, isolated, pool := partitionIsolatedCircles(req)
	united := unionPool(board, pool)

	tr := viewTransform(req)
	boardView := transformPoly(board, tr)
	minX, minY, w, h := polyBounds(boardView)

	f, err := os.Create(req.Filepath)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", req.Filepath, err)
	}
	defer f.Close()

	canvas := svg.New(f)
	canvas.StartviewUnit(w, h, "mm", minX, minY, w, h)
	canvas.Path(pathData(boardView), `fill="none"`, `stroke="black"`, hairline)

	if len(united) > 0 {
		canvas.Path(pathData(transformPoly(united, tr)), `fill="none"`, `stroke="red"`, hairline)
	}
	for _, c := range isolated {
		p := tr(polyclip.Point{X: c.X, Y: c.Y})
		canvas.Circle(p.X, p.Y, c.Diameter/2, `fill="none"`, `stroke="red"`, hairline)
	}
	canvas.End()
	return nil
}
