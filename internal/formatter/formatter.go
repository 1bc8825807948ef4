// package formatter exports recommendation maps to various formats (JSON, CSV, Markdown, plain text, Graphviz DOT)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/tunemap/internal/graph"
	"github.com/desertthunder/tunemap/internal/models"
	"github.com/desertthunder/tunemap/internal/shared"
)

// Format is an export file format.
type Format string

const (
	JSON     Format = "json"
	CSV      Format = "csv"
	Markdown Format = "md"
	Text     Format = "txt"
	DOT      Format = "dot"
)

// Formats lists the formats this package writes.
var Formats = []Format{JSON, CSV, Markdown, Text, DOT}

// ParseFormat accepts a format name or common alias.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "md", "markdown":
		return Markdown, nil
	case "txt", "text":
		return Text, nil
	case "dot", "graphviz":
		return DOT, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, s)
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string { return "." + string(f) }

// MapExport is a built map with the playlist it was seeded from.
type MapExport struct {
	Playlist    models.Playlist `json:"playlist"`
	Snapshot    *graph.Snapshot `json:"graph"`
	GeneratedAt time.Time       `json:"generated_at"`
}

func (e *MapExport) validate() error {
	if e == nil || e.Snapshot == nil || len(e.Snapshot.Nodes) == 0 {
		return fmt.Errorf("%w: empty map", shared.ErrInvalidInput)
	}
	return nil
}

func (e *MapExport) title() string {
	if e.Playlist.Name != "" {
		return e.Playlist.Name
	}
	seed, _ := e.Snapshot.Seed()
	return seed.Title
}

func role(i int) string {
	if i == 0 {
		return "seed"
	}
	return "recommendation"
}

// Export renders e in format f.
func Export(e *MapExport, f Format) ([]byte, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	switch f {
	case JSON:
		return shared.MarshalJSON(e, true)
	case CSV:
		return ExportToCSV(e)
	case Markdown:
		return ExportToMarkdown(e)
	case Text:
		return ExportToText(e)
	case DOT:
		return ExportToDOT(e)
	}
	return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, f)
}

// ExportToCSV writes one row per node with columns: ID, Title, Artist, Album, Duration, Role, Distance
func ExportToCSV(e *MapExport) ([]byte, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "Duration", "Role", "Distance"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	distances := make(map[string]float64, len(e.Snapshot.Links))
	for _, l := range e.Snapshot.Links {
		distances[l.Target] = l.Distance
	}

	for i, n := range e.Snapshot.Nodes {
		distance := ""
		if d, ok := distances[n.ID]; ok {
			distance = strconv.FormatFloat(d, 'f', -1, 64)
		}
		record := []string{
			n.ID,
			n.Title,
			n.Artist,
			n.Album,
			shared.FormatDuration(n.DurationMS),
			role(i),
			distance,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown writes the seed with its cover followed by the numbered recommendations
func ExportToMarkdown(e *MapExport) ([]byte, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	seed, _ := e.Snapshot.Seed()

	buf.WriteString(fmt.Sprintf("# %s\n\n", e.title()))
	buf.WriteString(fmt.Sprintf("![%s](%s)\n\n", seed.Title, seed.AlbumCover))
	buf.WriteString(fmt.Sprintf("**Seed**: %s\n", seed.Label()))
	if e.Playlist.ID != "" {
		buf.WriteString(fmt.Sprintf("**Playlist**: %s (%s)\n", e.Playlist.ID, e.Playlist.OwnerName()))
	}
	buf.WriteString(fmt.Sprintf("**Recommendations**: %d\n\n", len(e.Snapshot.Nodes)-1))

	buf.WriteString("## Recommendations\n\n")
	for i, n := range e.Snapshot.Nodes[1:] {
		albumPart := ""
		if n.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", n.Album)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s]\n", i+1, n.Artist, n.Title, albumPart, shared.FormatDuration(n.DurationMS)))
	}

	return buf.Bytes(), nil
}

// ExportToText writes a plain list of the seed and its recommendations
func ExportToText(e *MapExport) ([]byte, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	seed, _ := e.Snapshot.Seed()

	buf.WriteString(fmt.Sprintf("Map: %s\n", e.title()))
	buf.WriteString(fmt.Sprintf("Seed: %s - %s\n", seed.Artist, seed.Title))
	buf.WriteString(fmt.Sprintf("Recommendations: %d\n\n", len(e.Snapshot.Nodes)-1))

	for i, n := range e.Snapshot.Nodes[1:] {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, n.Artist, n.Title))
	}

	return buf.Bytes(), nil
}

// ExportToDOT writes a Graphviz digraph. Edge len carries the link distance in points.
func ExportToDOT(e *MapExport) ([]byte, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("digraph %s {\n", strconv.Quote(e.title())))
	buf.WriteString("  layout=neato;\n  node [shape=circle, style=filled, fillcolor=\"#1DB954\", fontname=\"Helvetica\"];\n")

	for i, n := range e.Snapshot.Nodes {
		attrs := fmt.Sprintf("label=%s, tooltip=%s", strconv.Quote(n.Title), strconv.Quote(n.Label()))
		if i == 0 {
			attrs += ", penwidth=3"
		}
		buf.WriteString(fmt.Sprintf("  %s [%s];\n", strconv.Quote(n.ID), attrs))
	}
	for _, l := range e.Snapshot.Links {
		buf.WriteString(fmt.Sprintf("  %s -> %s [len=%s];\n",
			strconv.Quote(l.Source), strconv.Quote(l.Target), strconv.FormatFloat(l.Distance/72, 'f', 2, 64)))
	}
	buf.WriteString("}\n")

	return buf.Bytes(), nil
}

// WriteExport writes e in format f to path, creating the parent directory.
//
// Defaults to {seed id}{ext} when path is empty.
func WriteExport(e *MapExport, f Format, path string) (string, error) {
	data, err := Export(e, f)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", f, err)
	}

	if path == "" {
		seed, _ := e.Snapshot.Seed()
		path = seed.ID + f.Ext()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", f, err)
	}
	return path, nil
}

// ReadExport loads a JSON export written by [WriteExport] and validates its graph.
func ReadExport(path string) (*MapExport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}

	var e MapExport
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedPayload, err)
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	if err := e.Snapshot.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
