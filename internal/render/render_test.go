package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/tunemap/internal/graph"
)

type solidCovers struct{ c color.Color }

func (s solidCovers) Cover(context.Context, string) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	draw.Draw(img, img.Bounds(), image.NewUniform(s.c), image.Point{}, draw.Src)
	return img
}

func pairSnapshot() *graph.Snapshot {
	return &graph.Snapshot{
		Nodes: []graph.Node{
			{ID: "a", Title: "Song A", Artist: "Artist A", AlbumCover: "a.jpg"},
			{ID: "b", Title: "Song B", Artist: "Artist B", AlbumCover: "b.jpg"},
		},
		Links: []graph.Link{{Source: "a", Target: "b", Distance: 100}},
	}
}

func pairPositions() map[string]graph.Point {
	return map[string]graph.Point{"a": {X: 0, Y: 0}, "b": {X: 100, Y: 0}}
}

func isRed(c color.RGBA) bool { return c.R > 0xf0 && c.G < 0x10 && c.B < 0x10 }

func TestViewport(t *testing.T) {
	t.Run("Fit centres and scales to the margin", func(t *testing.T) {
		v := Fit(pairPositions(), 400, 200, 50)
		if v.Scale != 3 {
			t.Errorf("expected scale 3, got %v", v.Scale)
		}
		if v.Center != (graph.Point{X: 50, Y: 0}) {
			t.Errorf("unexpected center %+v", v.Center)
		}
		x, y := v.ToScreen(graph.Point{})
		if x != 50 || y != 100 {
			t.Errorf("expected (50, 100), got (%v, %v)", x, y)
		}
	})

	t.Run("Fit with no positions", func(t *testing.T) {
		v := Fit(nil, 100, 100, 10)
		if v.Scale != 1 {
			t.Errorf("expected scale 1, got %v", v.Scale)
		}
	})

	t.Run("ToGraph inverts ToScreen", func(t *testing.T) {
		v := Viewport{Width: 300, Height: 200, Scale: 2.5, Center: graph.Point{X: 10, Y: -4}}
		p := graph.Point{X: 37, Y: 12}
		x, y := v.ToScreen(p)
		got := v.ToGraph(x, y)
		if got != p {
			t.Errorf("expected %+v, got %+v", p, got)
		}
	})

	t.Run("node size shrinks in graph units as zoom grows", func(t *testing.T) {
		v := Viewport{Scale: 4}
		if v.nodeSize() != 10 {
			t.Errorf("expected 10, got %v", v.nodeSize())
		}
	})
}

func TestPainter(t *testing.T) {
	ctx := context.Background()
	v := Viewport{Width: 400, Height: 200, Scale: 1, Center: graph.Point{X: 50}}

	t.Run("clips cover to a circle centred on the node", func(t *testing.T) {
		img := NewPainter(solidCovers{color.RGBA{0xff, 0, 0, 0xff}}).Render(ctx, pairSnapshot(), pairPositions(), v)

		if !isRed(img.RGBAAt(150, 100)) {
			t.Errorf("expected cover at node centre, got %v", img.RGBAAt(150, 100))
		}
		if !isRed(img.RGBAAt(165, 100)) {
			t.Errorf("expected cover inside radius, got %v", img.RGBAAt(165, 100))
		}
		if got := img.RGBAAt(131, 81); got != Background {
			t.Errorf("expected bounding box corner to stay background, got %v", got)
		}
	})

	t.Run("draws links between positioned nodes", func(t *testing.T) {
		img := NewPainter(solidCovers{color.RGBA{0xff, 0, 0, 0xff}}).Render(ctx, pairSnapshot(), pairPositions(), v)
		if got := img.RGBAAt(200, 100); got != LinkColor {
			t.Errorf("expected link colour at midpoint, got %v", got)
		}
	})

	t.Run("draws the title above the circle", func(t *testing.T) {
		img := NewPainter(solidCovers{color.RGBA{0xff, 0, 0, 0xff}}).Render(ctx, pairSnapshot(), pairPositions(), v)
		found := false
		for y := 60; y < 79 && !found; y++ {
			for x := 120; x < 181; x++ {
				if img.RGBAAt(x, y) == (color.RGBA{0, 0, 0, 0xff}) {
					found = true
					break
				}
			}
		}
		if !found {
			t.Error("expected label pixels above the node")
		}
	})

	t.Run("on-screen size is constant across zoom", func(t *testing.T) {
		zoomed := Viewport{Width: 400, Height: 200, Scale: 2, Center: graph.Point{X: 50}}
		img := NewPainter(solidCovers{color.RGBA{0xff, 0, 0, 0xff}}).Render(ctx, pairSnapshot(), pairPositions(), zoomed)
		if !isRed(img.RGBAAt(100, 115)) {
			t.Errorf("expected cover 15px below centre, got %v", img.RGBAAt(100, 115))
		}
		if got := img.RGBAAt(100, 125); got != Background {
			t.Errorf("expected background 25px below centre, got %v", got)
		}
	})

	t.Run("skips nodes without positions", func(t *testing.T) {
		pos := map[string]graph.Point{"a": {}}
		img := NewPainter(solidCovers{color.RGBA{0xff, 0, 0, 0xff}}).Render(ctx, pairSnapshot(), pos, v)
		if got := img.RGBAAt(200, 100); got != Background {
			t.Errorf("expected no link to an unplaced node, got %v", got)
		}
		if got := img.RGBAAt(250, 100); got != Background {
			t.Errorf("expected unplaced node to be skipped, got %v", got)
		}
	})

	t.Run("falls back to placeholder without a cover source", func(t *testing.T) {
		img := (&Painter{}).Render(ctx, pairSnapshot(), pairPositions(), v)
		if got := img.RGBAAt(150, 100); got == Background {
			t.Error("expected placeholder to be painted")
		}
	})

	t.Run("does not write positions into the snapshot", func(t *testing.T) {
		snap := pairSnapshot()
		NewPainter(nil).Render(ctx, snap, pairPositions(), v)
		for _, n := range snap.Nodes {
			if n.X != nil || n.Y != nil {
				t.Errorf("node %s gained coordinates", n.ID)
			}
		}
	})

	t.Run("nil snapshot renders background", func(t *testing.T) {
		img := NewPainter(nil).Render(ctx, nil, nil, v)
		if img.Bounds() != v.Bounds() {
			t.Errorf("unexpected bounds %v", img.Bounds())
		}
	})
}

func TestShapes(t *testing.T) {
	t.Run("disc mask is opaque inside and smooth at the edge", func(t *testing.T) {
		m := discMask(20)
		if m.Bounds() != image.Rect(0, 0, 40, 40) {
			t.Fatalf("unexpected bounds %v", m.Bounds())
		}
		if a := m.AlphaAt(20, 20).A; a != 0xff {
			t.Errorf("expected opaque centre, got %d", a)
		}
		if a := m.AlphaAt(0, 0).A; a != 0 {
			t.Errorf("expected empty corner, got %d", a)
		}
		partial := false
		for x := 0; x < 40; x++ {
			if a := m.AlphaAt(x, 6).A; a > 0 && a < 0xff {
				partial = true
			}
		}
		if !partial {
			t.Error("expected anti-aliased pixels along the rim")
		}
	})

	t.Run("hard mask has no partial coverage", func(t *testing.T) {
		for _, a := range hard(discMask(20)).Pix {
			if a != 0 && a != 0xff {
				t.Fatalf("unexpected coverage %d", a)
			}
		}
	})

	t.Run("lines stroke their width and skip zero length", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 20, 20))
		l := newLines(img.Bounds(), 2)
		l.add(5, 5, 5, 5)
		l.paint(img, LinkColor)
		if got := img.RGBAAt(5, 5); got != (color.RGBA{}) {
			t.Errorf("expected nothing for a zero-length segment, got %v", got)
		}

		l.add(2, 10, 18, 10)
		l.paint(img, LinkColor)
		if got := img.RGBAAt(10, 9); got != LinkColor {
			t.Errorf("expected stroke above the centre line, got %v", got)
		}
		if got := img.RGBAAt(10, 10); got != LinkColor {
			t.Errorf("expected stroke below the centre line, got %v", got)
		}
		if got := img.RGBAAt(10, 12); got != (color.RGBA{}) {
			t.Errorf("expected stroke to be 2px, got %v", got)
		}
	})
}

func TestHitMap(t *testing.T) {
	v := Viewport{Width: 400, Height: 200, Scale: 1, Center: graph.Point{X: 50}}
	h := NewHitMap(pairSnapshot(), pairPositions(), v)

	tests := []struct {
		name string
		x, y int
		want string
	}{
		{"centre of a", 150, 100, "a"},
		{"inside pointer area of a", 165, 100, "a"},
		{"centre of b", 250, 100, "b"},
		{"between nodes", 200, 100, ""},
		{"outside the image", -1, 0, ""},
		{"far corner", 399, 199, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := h.NodeAt(tt.x, tt.y)
			if tt.want == "" {
				if ok {
					t.Errorf("expected no node, got %s", n.ID)
				}
				return
			}
			if !ok || n.ID != tt.want {
				t.Errorf("expected %s, got %q (ok=%v)", tt.want, n.ID, ok)
			}
		})
	}

	t.Run("pointer radius is not scaled by zoom", func(t *testing.T) {
		zoomed := Viewport{Width: 400, Height: 200, Scale: 4}
		h := NewHitMap(pairSnapshot(), pairPositions(), zoomed)
		if n, ok := h.NodeAt(219, 100); !ok || n.ID != "a" {
			t.Errorf("expected a at 19px, got %q (ok=%v)", n.ID, ok)
		}
		if _, ok := h.NodeAt(221, 100); ok {
			t.Error("expected nothing at 21px")
		}
	})

	t.Run("later nodes win overlaps", func(t *testing.T) {
		pos := map[string]graph.Point{"a": {X: 0}, "b": {X: 10}}
		h := NewHitMap(pairSnapshot(), pos, Viewport{Width: 100, Height: 100})
		if n, ok := h.NodeAt(55, 50); !ok || n.ID != "b" {
			t.Errorf("expected b, got %q (ok=%v)", n.ID, ok)
		}
	})
}

func TestCoverLoader(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	draw.Draw(src, src.Bounds(), image.NewUniform(color.RGBA{0, 0, 0xff, 0xff}), image.Point{}, draw.Src)
	var encoded bytes.Buffer
	if err := png.Encode(&encoded, src); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}

	var hits, flaky atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/flaky.png":
			if flaky.Add(1) == 1 {
				http.Error(w, "busy", http.StatusServiceUnavailable)
				return
			}
			w.Write(encoded.Bytes())
		case "/cover.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(encoded.Bytes())
		case "/garbage":
			w.Write([]byte("not an image"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()

	t.Run("decodes and caches", func(t *testing.T) {
		l := NewCoverLoader(srv.Client(), nil)
		hits.Store(0)
		first := l.Cover(ctx, srv.URL+"/cover.png")
		second := l.Cover(ctx, srv.URL+"/cover.png")
		if first.Bounds().Dx() != 8 {
			t.Errorf("expected 8px cover, got %v", first.Bounds())
		}
		if first != second {
			t.Error("expected cached image on second call")
		}
		if hits.Load() != 1 {
			t.Errorf("expected 1 request, got %d", hits.Load())
		}
	})

	t.Run("cancelled caller does not poison the cache", func(t *testing.T) {
		l := NewCoverLoader(srv.Client(), nil)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		l.Cover(cancelled, srv.URL+"/cover.png")
		img := l.Cover(ctx, srv.URL+"/cover.png")
		if img == l.placeholder || img.Bounds().Dx() != 8 {
			t.Errorf("expected the real cover after a cancelled request, got %v", img.Bounds())
		}
	})

	t.Run("retries after a server error", func(t *testing.T) {
		l := NewCoverLoader(srv.Client(), nil)
		flaky.Store(0)
		if img := l.Cover(ctx, srv.URL+"/flaky.png"); img != l.placeholder {
			t.Error("expected placeholder while the server is failing")
		}
		if img := l.Cover(ctx, srv.URL+"/flaky.png"); img.Bounds().Dx() != 8 {
			t.Errorf("expected the real cover once the server recovers, got %v", img.Bounds())
		}
		if flaky.Load() != 2 {
			t.Errorf("expected 2 requests, got %d", flaky.Load())
		}
	})

	t.Run("permanent failures are cached", func(t *testing.T) {
		l := NewCoverLoader(srv.Client(), nil)
		hits.Store(0)
		l.Cover(ctx, srv.URL+"/missing")
		l.Cover(ctx, srv.URL+"/missing")
		if hits.Load() != 1 {
			t.Errorf("expected 1 request for a missing cover, got %d", hits.Load())
		}
	})

	t.Run("falls back to placeholder", func(t *testing.T) {
		l := NewCoverLoader(srv.Client(), nil)
		for _, url := range []string{"", graph.PlaceholderCover, srv.URL + "/missing", srv.URL + "/garbage"} {
			if img := l.Cover(ctx, url); img != l.placeholder {
				t.Errorf("expected placeholder for %q", url)
			}
		}
	})
}

func TestMapPage(t *testing.T) {
	t.Run("embeds snapshot and force-graph settings", func(t *testing.T) {
		var buf bytes.Buffer
		page := MapPage{Title: "Road Trip", Snapshot: pairSnapshot()}
		if err := page.Render(&buf); err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		out := buf.String()
		for _, want := range []string{
			"<title>Road Trip | tunemap</title>",
			ForceGraphURL,
			".enableNodeDrag(false)",
			"${n.title} by ${n.artist}",
			"nodePointerAreaPaint",
			`"id":"a"`,
			`"albumCover":"b.jpg"`,
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("fetches the graph when nothing is embedded", func(t *testing.T) {
		var buf bytes.Buffer
		if err := (MapPage{LiveURL: "/api/graph/live"}).Render(&buf); err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, "EMBEDDED =  null") && !strings.Contains(out, "EMBEDDED = null") {
			t.Error("expected no embedded snapshot")
		}
		if !strings.Contains(out, `\/api\/graph`) && !strings.Contains(out, "/api/graph") {
			t.Error("expected graph url")
		}
		if !strings.Contains(out, "Recommendation Map") {
			t.Error("expected default title")
		}
	})

	t.Run("escapes the title", func(t *testing.T) {
		var buf bytes.Buffer
		if err := (MapPage{Title: "<b>mix</b>"}).Render(&buf); err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		if strings.Contains(buf.String(), "<b>mix</b>") {
			t.Error("expected title to be escaped")
		}
	})
}
