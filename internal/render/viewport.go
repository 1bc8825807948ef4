package render

import (
	"image"
	"math"

	"github.com/desertthunder/tunemap/internal/graph"
)

const (
	// NodeSize is the on-screen node diameter in pixels at any zoom.
	NodeSize = 40.0
	// PointerRadius is the clickable radius in pixels, not scaled with zoom.
	PointerRadius = 20
	// LabelGap is the space between a node's circle and its label, in graph units.
	LabelGap = 5.0
	// LinkWidth is the stroke width of links in pixels.
	LinkWidth = 2
)

// Viewport maps graph space onto an image.
type Viewport struct {
	Width, Height int
	// Scale is the zoom, the force-graph globalScale.
	Scale float64
	// Center is the graph point shown at the middle of the image.
	Center graph.Point
}

// Fit returns a viewport that shows every position with margin pixels to spare.
func Fit(pos map[string]graph.Point, width, height int, margin float64) Viewport {
	v := Viewport{Width: width, Height: height, Scale: 1}
	if len(pos) == 0 {
		return v
	}

	lo, hi := graph.Bounds(pos)
	v.Center = graph.Point{X: (lo.X + hi.X) / 2, Y: (lo.Y + hi.Y) / 2}

	availW := float64(width) - 2*margin
	availH := float64(height) - 2*margin
	spanX, spanY := hi.X-lo.X, hi.Y-lo.Y
	if availW <= 0 || availH <= 0 || (spanX == 0 && spanY == 0) {
		return v
	}

	scale := math.Inf(1)
	if spanX > 0 {
		scale = availW / spanX
	}
	if spanY > 0 {
		scale = math.Min(scale, availH/spanY)
	}
	v.Scale = scale
	return v
}

// ToScreen converts a graph point to pixel coordinates.
func (v Viewport) ToScreen(p graph.Point) (float64, float64) {
	scale := v.scale()
	x := (p.X-v.Center.X)*scale + float64(v.Width)/2
	y := (p.Y-v.Center.Y)*scale + float64(v.Height)/2
	return x, y
}

// ToGraph converts pixel coordinates back to a graph point.
func (v Viewport) ToGraph(x, y float64) graph.Point {
	scale := v.scale()
	return graph.Point{
		X: (x-float64(v.Width)/2)/scale + v.Center.X,
		Y: (y-float64(v.Height)/2)/scale + v.Center.Y,
	}
}

func (v Viewport) scale() float64 {
	if v.Scale <= 0 {
		return 1
	}
	return v.Scale
}

// Bounds is the image rectangle.
func (v Viewport) Bounds() image.Rectangle {
	return image.Rect(0, 0, v.Width, v.Height)
}

// nodeSize is the node diameter in graph units.
func (v Viewport) nodeSize() float64 {
	return NodeSize / v.scale()
}
