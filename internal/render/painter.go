package render

import (
	"context"
	"image"
	"image/color"
	"math"

	"github.com/desertthunder/tunemap/internal/graph"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	Background = color.RGBA{0xf1, 0xf3, 0xf5, 0xff}
	LinkColor  = color.RGBA{0x99, 0x99, 0x99, 0xff}
	LabelColor = color.Black
)

// Painter rasterizes snapshots.
type Painter struct {
	Covers CoverSource
	Face   font.Face
}

// NewPainter creates a [Painter] that draws labels in a 7x13 bitmap face.
func NewPainter(covers CoverSource) *Painter {
	return &Painter{Covers: covers, Face: basicfont.Face7x13}
}

// Render draws links then nodes. Nodes without a position are skipped along with their links.
func (p *Painter) Render(ctx context.Context, snap *graph.Snapshot, pos map[string]graph.Point, v Viewport) *image.RGBA {
	img := image.NewRGBA(v.Bounds())
	draw.Draw(img, img.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)
	if snap == nil {
		return img
	}

	links := newLines(img.Bounds(), LinkWidth)
	for _, l := range snap.Links {
		src, ok1 := pos[l.Source]
		dst, ok2 := pos[l.Target]
		if !ok1 || !ok2 {
			continue
		}
		x0, y0 := v.ToScreen(src)
		x1, y1 := v.ToScreen(dst)
		links.add(x0, y0, x1, y1)
	}
	links.paint(img, LinkColor)

	for _, n := range snap.Nodes {
		pt, ok := pos[n.ID]
		if !ok {
			continue
		}
		p.paintNode(ctx, img, n, pt, v)
	}
	return img
}

// paintNode draws the clipped cover centred on the node and the title above it.
func (p *Painter) paintNode(ctx context.Context, img *image.RGBA, n graph.Node, pt graph.Point, v Viewport) {
	size := v.nodeSize()
	x, y := v.ToScreen(pt)
	diameter := int(math.Round(size * v.scale()))
	r := diameter / 2
	center := image.Pt(int(math.Round(x)), int(math.Round(y)))

	var cover image.Image
	if p.Covers != nil {
		cover = p.Covers.Cover(ctx, n.AlbumCover)
	} else {
		cover = Placeholder(diameter)
	}

	rect := image.Rect(center.X-r, center.Y-r, center.X-r+diameter, center.Y-r+diameter)
	scaled := image.NewRGBA(rect)
	draw.CatmullRom.Scale(scaled, rect, cover, cover.Bounds(), draw.Src, nil)
	draw.DrawMask(img, rect, scaled, rect.Min, discMask(r), image.Point{}, draw.Over)

	labelY := y - (size/2+LabelGap)*v.scale()
	p.drawLabel(img, n.Title, x, labelY)
}

// drawLabel centres text horizontally on x with its baseline at y.
func (p *Painter) drawLabel(img *image.RGBA, text string, x, y float64) {
	if text == "" || p.Face == nil {
		return
	}
	d := &font.Drawer{Dst: img, Src: image.NewUniform(LabelColor), Face: p.Face}
	width := d.MeasureString(text)
	d.Dot = fixed.Point26_6{
		X: fixed.I(int(math.Round(x))) - width/2,
		Y: fixed.I(int(math.Round(y))),
	}
	d.DrawString(text)
}
