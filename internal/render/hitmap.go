package render

import (
	"image"
	"image/color"
	"math"

	"github.com/desertthunder/tunemap/internal/graph"
)

// HitMap resolves pixels to nodes. Each node's pointer area is painted in a colour that encodes its index.
type HitMap struct {
	img   *image.RGBA
	nodes []graph.Node
}

// NewHitMap paints the pointer area of every positioned node. Later nodes win where areas overlap.
func NewHitMap(snap *graph.Snapshot, pos map[string]graph.Point, v Viewport) *HitMap {
	h := &HitMap{img: image.NewRGBA(v.Bounds())}
	if snap == nil {
		return h
	}
	area := hard(discMask(PointerRadius))
	for _, n := range snap.Nodes {
		pt, ok := pos[n.ID]
		if !ok {
			continue
		}
		h.nodes = append(h.nodes, n)
		x, y := v.ToScreen(pt)
		fillMasked(h.img, image.Pt(int(math.Round(x)), int(math.Round(y))), area, indexColor(len(h.nodes)))
	}
	return h
}

// NodeAt returns the node whose pointer area covers pixel (x, y).
func (h *HitMap) NodeAt(x, y int) (graph.Node, bool) {
	if !image.Pt(x, y).In(h.img.Bounds()) {
		return graph.Node{}, false
	}
	idx := colorIndex(h.img.RGBAAt(x, y))
	if idx == 0 || idx > len(h.nodes) {
		return graph.Node{}, false
	}
	return h.nodes[idx-1], true
}

// indexColor encodes i (1-based, 0 means empty) as an opaque colour.
func indexColor(i int) color.RGBA {
	return color.RGBA{R: uint8(i >> 16), G: uint8(i >> 8), B: uint8(i), A: 0xff}
}

func colorIndex(c color.RGBA) int {
	if c.A != 0xff {
		return 0
	}
	return int(c.R)<<16 | int(c.G)<<8 | int(c.B)
}
