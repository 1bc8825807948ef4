package main

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/tunemap/internal/formatter"
	"github.com/desertthunder/tunemap/internal/graph"
	"github.com/desertthunder/tunemap/internal/models"
	"github.com/desertthunder/tunemap/internal/render"
	"github.com/desertthunder/tunemap/internal/shared"
	"github.com/desertthunder/tunemap/internal/tasks"
	"github.com/urfave/cli/v3"
)

const (
	formatPNG  = "png"
	formatHTML = "html"
	viewMargin = 60
)

type hitResult struct {
	Node      graph.Node   `json:"node"`
	Connected []graph.Node `json:"connected"`
}

// MapBuild generates the recommendation map for a playlist and exports it.
//
// With --all every playlist is mapped by the bulk worker pool into --output.
func (r *Runner) MapBuild(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}

	format := strings.ToLower(cmd.String("format"))
	if cmd.Bool("all") {
		return r.mapAll(ctx, cmd, format)
	}

	id := cmd.StringArg("playlist")
	if id == "" {
		return fmt.Errorf("%w: playlist ID (or --all)", shared.ErrMissingArgument)
	}
	if format != formatPNG && format != formatHTML {
		if _, err := formatter.ParseFormat(format); err != nil {
			return err
		}
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range progress {
			r.logger.Info(u.Message, "phase", u.Phase, "step", u.Step, "total", u.Total)
		}
	}()

	result, err := r.engine.Generate(ctx, id, progress)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	export := &formatter.MapExport{
		Playlist:    models.Playlist{ID: id},
		Snapshot:    result.Snapshot,
		GeneratedAt: time.Now().UTC(),
	}
	path, err := r.writeMap(ctx, export, format, cmd.String("output"), cmd.Int("width"), cmd.Int("height"))
	if err != nil {
		return err
	}

	seed, _ := result.Snapshot.Seed()
	r.writePlain("✓ Map for %s with %d songs written to %s\n", seed.Label(), len(result.Snapshot.Nodes), path)
	return nil
}

func (r *Runner) mapAll(ctx context.Context, cmd *cli.Command, format string) error {
	f, err := formatter.ParseFormat(format)
	if err != nil {
		return err
	}

	playlists, err := r.service.GetPlaylists(ctx)
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range progress {
			if u.Phase == tasks.ExportMap {
				r.writePlain("[%d/%d] %s\n", u.Step, u.Total, u.Message)
			}
		}
	}()

	result, err := r.engine.BulkMap(ctx, progress, playlists, tasks.BulkMapOpts{
		Format:     f,
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
	})
	close(progress)
	<-done
	if err != nil {
		return err
	}

	r.writePlainln("✓ %d/%d maps exported to %s", result.Successful, result.TotalPlaylists, result.OutputDirectory)
	for _, res := range result.Results {
		if !res.Success {
			r.writePlain("✗ %s: %s\n", res.PlaylistName, res.ErrorMessage)
		}
	}
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}
	return nil
}

// writeMap writes export as a formatter export, a PNG rendering or a standalone HTML page.
func (r *Runner) writeMap(ctx context.Context, export *formatter.MapExport, format, path string, width, height int) (string, error) {
	switch format {
	case formatPNG:
		return r.writeMapFile(export, formatPNG, path, func(f *os.File) error {
			snap, pos, v := r.layout(export.Snapshot, width, height)
			painter := render.NewPainter(render.NewCoverLoader(r.httpClient, r.logger))
			return png.Encode(f, painter.Render(ctx, snap, pos, v))
		})
	case formatHTML:
		return r.writeMapFile(export, formatHTML, path, func(f *os.File) error {
			page := render.MapPage{
				Title:    export.Playlist.Name,
				Distance: r.config.Graph.LinkDistance,
				Snapshot: export.Snapshot,
			}
			return page.Render(f)
		})
	default:
		f, err := formatter.ParseFormat(format)
		if err != nil {
			return "", err
		}
		return formatter.WriteExport(export, f, path)
	}
}

func (r *Runner) writeMapFile(export *formatter.MapExport, ext, path string, write func(*os.File) error) (string, error) {
	if path == "" {
		seed, _ := export.Snapshot.Seed()
		path = seed.ID + "." + ext
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s file: %w", ext, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write %s file: %w", ext, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", ext, err)
	}
	return path, nil
}

// layout positions snap radially and fits it to a width x height image, falling back to the configured size.
func (r *Runner) layout(snap *graph.Snapshot, width, height int) (*graph.Snapshot, map[string]graph.Point, render.Viewport) {
	if width <= 0 {
		width = r.config.Graph.Width
	}
	if height <= 0 {
		height = r.config.Graph.Height
	}
	pos := graph.RadialLayout{}.Positions(snap)
	return snap, pos, render.Fit(pos, width, height, viewMargin)
}

// MapHit resolves a pixel of the PNG rendering of an exported map back to its song.
func (r *Runner) MapHit(ctx context.Context, cmd *cli.Command) error {
	file := cmd.StringArg("file")
	if file == "" {
		return fmt.Errorf("%w: exported map file", shared.ErrMissingArgument)
	}

	export, err := formatter.ReadExport(file)
	if err != nil {
		return err
	}

	snap, pos, v := r.layout(export.Snapshot, cmd.Int("width"), cmd.Int("height"))
	x, y := cmd.Int("x"), cmd.Int("y")
	node, ok := render.NewHitMap(snap, pos, v).NodeAt(x, y)
	if !ok {
		return fmt.Errorf("%w: no song at (%d, %d)", shared.ErrInvalidInput, x, y)
	}

	connected := snap.Neighbors(node.ID)
	if cmd.Bool("json") {
		return r.writeJSON(hitResult{Node: node, Connected: connected}, cmd.Bool("pretty"))
	}

	r.writePlainHeader(node.Label())
	if node.Album != "" {
		r.writePlain("Album: %s\n", node.Album)
	}
	r.writePlain("Duration: %s\n", shared.FormatDuration(node.DurationMS))
	r.writePlain("Connected songs:\n")
	for _, n := range connected {
		r.writePlain("  - %s\n", n.Label())
	}
	return nil
}
