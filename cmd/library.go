package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tunemap/internal/models"
	"github.com/desertthunder/tunemap/internal/services"
	"github.com/desertthunder/tunemap/internal/shared"
	"github.com/urfave/cli/v3"
)

// LibraryPlaylists lists the user's playlists with an optional limit.
func (r *Runner) LibraryPlaylists(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}

	playlists, err := r.service.GetPlaylists(ctx)
	if err != nil {
		return err
	}
	if limit := cmd.Int("limit"); limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		r.writePlain("   ID: %s | Tracks: %d | Owner: %s\n", p.ID, p.Tracks.Total, p.OwnerName())
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
	}
	return nil
}

// LibraryTopTracks lists the user's top tracks for --range.
func (r *Runner) LibraryTopTracks(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}

	timeRange := models.TimeRange(cmd.String("range"))
	if !timeRange.Valid() {
		return fmt.Errorf("%w: %q", shared.ErrInvalidTimeRange, timeRange)
	}

	tracks, err := r.service.GetTopTracks(ctx, timeRange)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Top tracks (%s)", timeRange))
	r.writeTracks(tracks)
	return nil
}

// LibraryTracks lists the tracks of one playlist.
func (r *Runner) LibraryTracks(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}

	id := cmd.StringArg("playlist")
	if id == "" {
		return fmt.Errorf("%w: playlist ID", shared.ErrMissingArgument)
	}

	tracks, err := r.service.GetPlaylistTracks(ctx, id)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	r.writePlain("Playlist %s has %d tracks:\n\n", id, len(tracks))
	r.writeTracks(tracks)
	return nil
}

// LibraryRecommend fetches recommendations for the given seeds.
func (r *Runner) LibraryRecommend(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}

	query := services.RecommendationQuery{
		SeedTracks:  cmd.StringSlice("track"),
		SeedArtists: cmd.StringSlice("artist"),
		SeedGenres:  cmd.StringSlice("genre"),
		Limit:       cmd.Int("limit"),
		Market:      cmd.String("market"),
	}
	if !query.HasSeeds() {
		return fmt.Errorf("%w: pass at least one --track, --artist or --genre", shared.ErrMissingSeeds)
	}

	tracks, err := r.service.GetRecommendations(ctx, query)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d recommendations:\n\n", len(tracks))
	r.writeTracks(tracks)
	return nil
}

func (r *Runner) writeTracks(tracks []models.Track) {
	for i, t := range tracks {
		r.writePlain("%d. %s - %s (%s)\n", i+1, t.PrimaryArtist(), t.Name, shared.FormatDuration(t.DurationMS))
	}
}
