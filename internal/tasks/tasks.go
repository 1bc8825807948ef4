package tasks

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunemap/internal/graph"
	"github.com/desertthunder/tunemap/internal/models"
	"github.com/desertthunder/tunemap/internal/services"
	"github.com/desertthunder/tunemap/internal/shared"
)

// MapResult is everything gathered while generating one map.
type MapResult struct {
	PlaylistID      string
	Seed            models.Track
	Tracks          []models.Track
	Recommendations []models.Track
	Snapshot        *graph.Snapshot
}

// MapOptions tunes the recommendation request and link distance.
type MapOptions struct {
	Limit    int
	Market   string
	Distance float64
}

// MapEngine turns a playlist into a recommendation map.
type MapEngine struct {
	library services.Library
	store   *graph.Store
	logger  *log.Logger
	opts    MapOptions
}

// NewMapEngine creates a [MapEngine]. store may be nil when results are only exported.
func NewMapEngine(library services.Library, store *graph.Store, logger *log.Logger, opts MapOptions) *MapEngine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if opts.Distance <= 0 {
		opts.Distance = graph.DefaultDistance
	}
	return &MapEngine{library: library, store: store, logger: logger, opts: opts}
}

// Store returns the graph store maps are published to.
func (e *MapEngine) Store() *graph.Store { return e.store }

// Generate builds the map for playlistID and publishes it to the store.
//
// The store is only touched once every step has succeeded.
func (e *MapEngine) Generate(ctx context.Context, playlistID string, progress chan<- ProgressUpdate) (*MapResult, error) {
	result, err := e.build(ctx, playlistID, progress)
	if err != nil {
		return nil, err
	}

	if e.store != nil {
		if err := e.store.Replace(result.Snapshot); err != nil {
			return nil, fmt.Errorf("failed to publish map: %w", err)
		}
	}
	return result, nil
}

func (e *MapEngine) build(ctx context.Context, playlistID string, progress chan<- ProgressUpdate) (*MapResult, error) {
	if e.library == nil {
		return nil, fmt.Errorf("%w: API client not initialized", shared.ErrServiceUnavailable)
	}
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	logger := e.logger.With("playlist", playlistID)

	sendProgress(progress, fetchTracksUpdate(playlistID))
	tracks, err := e.library.GetPlaylistTracks(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	seed, err := graph.SeedFromPlaylist(tracks)
	if err != nil {
		return nil, err
	}
	logger.Debug("seed selected", "track", seed.ID, "name", seed.Name)

	sendProgress(progress, fetchRecommendationsUpdate(seed))
	recs, err := e.library.GetRecommendations(ctx, services.RecommendationQuery{
		SeedTracks: []string{seed.ID},
		Limit:      e.opts.Limit,
		Market:     e.opts.Market,
	})
	if err != nil {
		return nil, err
	}

	snap, err := graph.BuildWithDistance(seed, recs, e.opts.Distance)
	if err != nil {
		return nil, err
	}
	sendProgress(progress, buildGraphUpdate(snap))
	logger.Info("map built", "nodes", len(snap.Nodes), "links", len(snap.Links))

	return &MapResult{
		PlaylistID:      playlistID,
		Seed:            *seed,
		Tracks:          tracks,
		Recommendations: recs,
		Snapshot:        snap,
	}, nil
}
