package services

import (
	"context"

	"github.com/desertthunder/tunemap/internal/models"
)

// Authenticator starts and completes a login through the backend.
type Authenticator interface {
	// InitiateLogin returns the provider authorization URL to open in a browser.
	InitiateLogin(ctx context.Context) (string, error)

	// HandleCallback exchanges an authorization code and persists the resulting session.
	HandleCallback(ctx context.Context, code string) (*models.UserProfile, error)
}

// Library reads the authenticated user's music library.
type Library interface {
	GetPlaylists(ctx context.Context) ([]models.Playlist, error)
	GetTopTracks(ctx context.Context, timeRange models.TimeRange) ([]models.Track, error)
	GetPlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error)
	GetRecommendations(ctx context.Context, query RecommendationQuery) ([]models.Track, error)
}

// Service is everything the backend proxy offers.
type Service interface {
	Authenticator
	Library
}

var _ Service = (*Client)(nil)

// RecommendationQuery selects recommendations by seed.
//
// At least one seed list must be non-empty. Zero Limit and empty Market take the client's defaults.
type RecommendationQuery struct {
	SeedTracks  []string
	SeedArtists []string
	SeedGenres  []string
	Limit       int
	Market      string
}

// HasSeeds reports whether any seed list is non-empty.
func (q RecommendationQuery) HasSeeds() bool {
	return len(q.SeedTracks) > 0 || len(q.SeedArtists) > 0 || len(q.SeedGenres) > 0
}
