package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/tunemap/internal/models"
	"github.com/desertthunder/tunemap/internal/session"
	"github.com/desertthunder/tunemap/internal/shared"
)

type authResponse struct {
	AuthURL string `json:"authUrl"`
}

type callbackRequest struct {
	Code string `json:"code"`
}

type callbackResponse struct {
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
	JWTToken     string          `json:"jwtToken"`
	UserData     json.RawMessage `json:"userData"`
}

type playlistsResponse struct {
	Items *[]models.Playlist `json:"items"`
}

type tracksResponse struct {
	Items *[]models.Track `json:"items"`
}

type playlistItem struct {
	Track *models.Track `json:"track"`
}

type playlistTracksResponse struct {
	Items *[]playlistItem `json:"items"`
}

type recommendationsResponse struct {
	Tracks *[]models.Track `json:"tracks"`
}

func missingField(name string) error {
	return fmt.Errorf("%w: missing %q", shared.ErrMalformedPayload, name)
}

// InitiateLogin asks the backend for the provider authorization URL.
func (c *Client) InitiateLogin(ctx context.Context) (string, error) {
	r, _ := newRequest(http.MethodGet, "/auth", nil, nil)

	var resp authResponse
	if err := c.do(ctx, r, &resp); err != nil {
		return "", err
	}
	if resp.AuthURL == "" {
		return "", missingField("authUrl")
	}
	return resp.AuthURL, nil
}

// HandleCallback exchanges code for a session, persists all four values and returns the profile.
func (c *Client) HandleCallback(ctx context.Context, code string) (*models.UserProfile, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}

	r, err := newRequest(http.MethodPost, "/callback", nil, callbackRequest{Code: code})
	if err != nil {
		return nil, err
	}

	var resp callbackResponse
	if err := c.do(ctx, r, &resp); err != nil {
		return nil, err
	}

	profile, err := models.ParseUserProfile(resp.UserData)
	if err != nil {
		return nil, fmt.Errorf("%w: userData: %v", shared.ErrMalformedPayload, err)
	}

	tokens := session.Tokens{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		SessionToken: resp.JWTToken,
		Profile:      profile.Raw,
	}
	if err := tokens.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrMalformedPayload, err)
	}
	if err := c.store.Save(tokens); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	c.logger.Info("session created", "user", profile.ID)
	return profile, nil
}

// GetPlaylists lists the user's playlists.
func (c *Client) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	r, _ := newRequest(http.MethodGet, "/playlists", nil, nil)

	var resp playlistsResponse
	if err := c.do(ctx, r, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		return nil, missingField("items")
	}
	return *resp.Items, nil
}

// GetTopTracks lists the user's top tracks for timeRange, which defaults to [models.MediumTerm].
func (c *Client) GetTopTracks(ctx context.Context, timeRange models.TimeRange) ([]models.Track, error) {
	if timeRange == "" {
		timeRange = models.MediumTerm
	}
	if !timeRange.Valid() {
		return nil, fmt.Errorf("%w: %q", shared.ErrInvalidTimeRange, timeRange)
	}

	query := url.Values{"time_range": {string(timeRange)}}
	r, _ := newRequest(http.MethodGet, "/top-tracks", query, nil)

	var resp tracksResponse
	if err := c.do(ctx, r, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		return nil, missingField("items")
	}
	return *resp.Items, nil
}

// GetPlaylistTracks lists the tracks of a playlist in playlist order. Entries without a track are skipped.
func (c *Client) GetPlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	r, _ := newRequest(http.MethodGet, "/playlist/"+url.PathEscape(playlistID)+"/tracks", nil, nil)

	var resp playlistTracksResponse
	if err := c.do(ctx, r, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		return nil, missingField("items")
	}

	tracks := make([]models.Track, 0, len(*resp.Items))
	for _, item := range *resp.Items {
		if item.Track == nil {
			continue
		}
		tracks = append(tracks, *item.Track)
	}
	return tracks, nil
}

// GetRecommendations returns at most query.Limit tracks recommended from the seeds.
func (c *Client) GetRecommendations(ctx context.Context, query RecommendationQuery) ([]models.Track, error) {
	if !query.HasSeeds() {
		return nil, shared.ErrMissingSeeds
	}
	if query.Limit <= 0 {
		query.Limit = c.limit
	}
	if query.Market == "" {
		query.Market = c.market
	}

	params := url.Values{}
	if len(query.SeedTracks) > 0 {
		params.Set("seed_tracks", strings.Join(query.SeedTracks, ","))
	}
	if len(query.SeedArtists) > 0 {
		params.Set("seed_artists", strings.Join(query.SeedArtists, ","))
	}
	if len(query.SeedGenres) > 0 {
		params.Set("seed_genres", strings.Join(query.SeedGenres, ","))
	}
	params.Set("limit", strconv.Itoa(query.Limit))
	params.Set("market", query.Market)

	r, _ := newRequest(http.MethodGet, "/recommendations", params, nil)

	var resp recommendationsResponse
	if err := c.do(ctx, r, &resp); err != nil {
		return nil, err
	}
	if resp.Tracks == nil {
		return nil, missingField("tracks")
	}

	tracks := *resp.Tracks
	if len(tracks) > query.Limit {
		tracks = tracks[:query.Limit]
	}
	return tracks, nil
}
