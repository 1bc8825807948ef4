package tasks

import (
	"context"

	"github.com/desertthunder/tunemap/internal/models"
	"github.com/desertthunder/tunemap/internal/services"
	"github.com/desertthunder/tunemap/internal/session"
	"golang.org/x/sync/errgroup"
)

// Dashboard is the joined result of the dashboard's fetches.
type Dashboard struct {
	Profile   *models.UserProfile `json:"profile"`
	Playlists []models.Playlist   `json:"playlists"`
	TopTracks []models.Track      `json:"topTracks"`
	TimeRange models.TimeRange    `json:"timeRange"`
}

// LoadDashboard reads the stored profile and fetches playlists and top tracks concurrently.
//
// Nothing is returned until both fetches finish. The first failure cancels the other.
func LoadDashboard(ctx context.Context, library services.Library, store *session.Store, timeRange models.TimeRange, progress chan<- ProgressUpdate) (*Dashboard, error) {
	profile, err := store.Profile()
	if err != nil {
		return nil, err
	}
	if timeRange == "" {
		timeRange = models.MediumTerm
	}

	d := &Dashboard{Profile: profile, TimeRange: timeRange}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sendProgress(progress, fetchPlaylistsUpdate(false, 0))
		playlists, err := library.GetPlaylists(gctx)
		if err != nil {
			return err
		}
		d.Playlists = playlists
		sendProgress(progress, fetchPlaylistsUpdate(true, len(playlists)))
		return nil
	})

	g.Go(func() error {
		sendProgress(progress, fetchTopTracksUpdate(false, 0, timeRange))
		tracks, err := library.GetTopTracks(gctx, timeRange)
		if err != nil {
			return err
		}
		d.TopTracks = tracks
		sendProgress(progress, fetchTopTracksUpdate(true, len(tracks), timeRange))
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}
