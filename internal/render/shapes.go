package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// kappa places cubic control points so four curves approximate a circle.
const kappa = 0.5522848

// discMask rasterizes an anti-aliased disc of radius r centred in a 2r x 2r alpha mask at the origin.
func discMask(r int) *image.Alpha {
	size := 2 * r
	mask := image.NewAlpha(image.Rect(0, 0, size, size))
	if r <= 0 {
		return mask
	}
	z := vector.NewRasterizer(size, size)
	addCircle(z, float32(r), float32(r), float32(r))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}

func addCircle(z *vector.Rasterizer, cx, cy, r float32) {
	k := r * kappa
	z.MoveTo(cx+r, cy)
	z.CubeTo(cx+r, cy+k, cx+k, cy+r, cx, cy+r)
	z.CubeTo(cx-k, cy+r, cx-r, cy+k, cx-r, cy)
	z.CubeTo(cx-r, cy-k, cx-k, cy-r, cx, cy-r)
	z.CubeTo(cx+k, cy-r, cx+r, cy-k, cx+r, cy)
	z.ClosePath()
}

// hard turns coverage into all-or-nothing so colour-coded areas never blend.
func hard(mask *image.Alpha) *image.Alpha {
	for i, a := range mask.Pix {
		if a >= 0x80 {
			mask.Pix[i] = 0xff
		} else {
			mask.Pix[i] = 0
		}
	}
	return mask
}

// fillCircle paints a disc of radius r centred on the pixel corner at center.
func fillCircle(dst draw.Image, center image.Point, r int, c color.Color) {
	fillMasked(dst, center, discMask(r), c)
}

func fillMasked(dst draw.Image, center image.Point, mask *image.Alpha, c color.Color) {
	r := mask.Bounds().Dx() / 2
	rect := image.Rect(center.X-r, center.Y-r, center.X+r, center.Y+r)
	draw.DrawMask(dst, rect, image.NewUniform(c), image.Point{}, mask, image.Point{}, draw.Over)
}

// lines accumulates straight strokes of one width and paints them in a single pass.
type lines struct {
	z     *vector.Rasterizer
	width float64
	empty bool
}

func newLines(bounds image.Rectangle, width int) *lines {
	return &lines{z: vector.NewRasterizer(bounds.Dx(), bounds.Dy()), width: float64(width), empty: true}
}

// add queues the segment (x0, y0)-(x1, y1) as a quad. All quads share one winding so overlaps stay opaque.
func (l *lines) add(x0, y0, x1, y1 float64) {
	dx, dy := x1-x0, y1-y0
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	nx, ny := -dy/length*l.width/2, dx/length*l.width/2

	l.z.MoveTo(float32(x0+nx), float32(y0+ny))
	l.z.LineTo(float32(x1+nx), float32(y1+ny))
	l.z.LineTo(float32(x1-nx), float32(y1-ny))
	l.z.LineTo(float32(x0-nx), float32(y0-ny))
	l.z.ClosePath()
	l.empty = false
}

func (l *lines) paint(dst draw.Image, c color.Color) {
	if l.empty {
		return
	}
	l.z.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{})
}
