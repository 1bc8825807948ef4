package render

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"

	"github.com/desertthunder/tunemap/internal/graph"
)

// ForceGraphURL is the CDN build of the force-graph library.
const ForceGraphURL = "https://unpkg.com/force-graph"

//go:embed map.html.tmpl
var mapTemplate string

var pageTemplate = template.Must(template.New("map").Parse(mapTemplate))

// MapPage is the browser view of a recommendation map.
//
// With a Snapshot the page is self-contained. Otherwise it fetches GraphURL and, when LiveURL is
// set, listens there for replacement snapshots.
type MapPage struct {
	Title    string
	Distance float64
	Snapshot *graph.Snapshot
	GraphURL string
	LiveURL  string
}

type pageData struct {
	MapPage
	ForceGraphURL string
	NodeSize      float64
	PointerRadius int
	LabelGap      float64
	LinkWidth     int
}

// Render writes the page.
func (p MapPage) Render(w io.Writer) error {
	if p.Title == "" {
		p.Title = "Recommendation Map"
	}
	if p.Distance <= 0 {
		p.Distance = graph.DefaultDistance
	}
	if p.Snapshot == nil && p.GraphURL == "" {
		p.GraphURL = "/api/graph"
	}

	data := pageData{
		MapPage:       p,
		ForceGraphURL: ForceGraphURL,
		NodeSize:      NodeSize,
		PointerRadius: PointerRadius,
		LabelGap:      LabelGap,
		LinkWidth:     LinkWidth,
	}
	if err := pageTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render map page: %w", err)
	}
	return nil
}
