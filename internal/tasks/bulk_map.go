package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/tunemap/internal/formatter"
	"github.com/desertthunder/tunemap/internal/models"
	"github.com/desertthunder/tunemap/internal/shared"
	"golang.org/x/time/rate"
)

// BulkMapOpts contains configuration for bulk map exports.
type BulkMapOpts struct {
	Format     formatter.Format // Export format (default: json)
	OutputDir  string           // Base output directory (default: tunemap_export_{epoch})
	NumWorkers int              // Concurrent workers (default: 3)
	RateLimit  float64          // Playlists started per second (default: 2)
}

// PlaylistMapResult is the outcome for one playlist.
type PlaylistMapResult struct {
	PlaylistID   string `json:"playlist_id"`
	PlaylistName string `json:"playlist_name"`
	Success      bool   `json:"success"`
	File         string `json:"file,omitempty"`
	Nodes        int    `json:"nodes,omitempty"`
	Error        error  `json:"-"`
	ErrorMessage string `json:"error,omitempty"`
}

// BulkMapResult summarizes a bulk run. It is also written as the manifest.
type BulkMapResult struct {
	TotalPlaylists  int                 `json:"total_playlists"`
	Successful      int                 `json:"successful"`
	Failed          int                 `json:"failed"`
	OutputDirectory string              `json:"output_directory"`
	Format          formatter.Format    `json:"format"`
	Results         []PlaylistMapResult `json:"results"`
	ManifestPath    string              `json:"-"`
}

// BulkMap builds and exports a map for each playlist with a rate-limited worker pool.
//
// Results never reach the graph store. A failing playlist is recorded and the rest continue.
func (e *MapEngine) BulkMap(ctx context.Context, prog chan<- ProgressUpdate, playlists []models.Playlist, opts BulkMapOpts) (*BulkMapResult, error) {
	if e.library == nil {
		return nil, fmt.Errorf("%w: API client not initialized", shared.ErrServiceUnavailable)
	}
	if len(playlists) == 0 {
		return nil, fmt.Errorf("%w: no playlists to map", shared.ErrInvalidInput)
	}

	if opts.Format == "" {
		opts.Format = formatter.JSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("tunemap_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkMapResult{
		TotalPlaylists:  len(playlists),
		OutputDirectory: opts.OutputDir,
		Format:          opts.Format,
		Results:         make([]PlaylistMapResult, 0, len(playlists)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan models.Playlist, len(playlists))
	results := make(chan PlaylistMapResult, len(playlists))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.mapWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, pl := range playlists {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			sendProgress(prog, exportingMapUpdate(i+1, len(playlists), pl.Name))
			jobs <- pl
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		if res.Success {
			result.Successful++
			sendProgress(prog, exportCompletedUpdate(completed, len(playlists), res.PlaylistName, res.File))
		} else {
			result.Failed++
			res.ErrorMessage = res.Error.Error()
			sendProgress(prog, exportFailedUpdate(completed, len(playlists), res.PlaylistName, res.Error))
		}
		result.Results = append(result.Results, res)
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, "manifest.json")
	data, err := shared.MarshalJSON(result, true)
	if err != nil {
		return result, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return result, fmt.Errorf("maps exported but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

func (e *MapEngine) mapWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan models.Playlist, results chan<- PlaylistMapResult, opts BulkMapOpts) {
	defer wg.Done()

	for pl := range jobs {
		if ctx.Err() != nil {
			return
		}
		results <- e.mapSinglePlaylist(ctx, pl, opts)
	}
}

func (e *MapEngine) mapSinglePlaylist(ctx context.Context, pl models.Playlist, opts BulkMapOpts) PlaylistMapResult {
	res := PlaylistMapResult{PlaylistID: pl.ID, PlaylistName: pl.Name}
	if res.PlaylistName == "" {
		res.PlaylistName = fmt.Sprintf("Unknown (%s)", pl.ID)
	}

	built, err := e.build(ctx, pl.ID, nil)
	if err != nil {
		res.Error = err
		return res
	}

	export := &formatter.MapExport{Playlist: pl, Snapshot: built.Snapshot, GeneratedAt: time.Now().UTC()}
	path := filepath.Join(opts.OutputDir, pl.ID+opts.Format.Ext())
	file, err := formatter.WriteExport(export, opts.Format, path)
	if err != nil {
		res.Error = err
		return res
	}

	res.Success = true
	res.File = file
	res.Nodes = len(built.Snapshot.Nodes)
	return res
}
