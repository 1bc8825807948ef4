package session

import (
	"encoding/json"
	"fmt"

	"github.com/desertthunder/tunemap/internal/models"
	"github.com/desertthunder/tunemap/internal/shared"
	"golang.org/x/oauth2"
)

// Fixed storage keys.
const (
	KeyAccessToken  = "spotify_access_token"
	KeyRefreshToken = "spotify_refresh_token"
	KeySessionToken = "jwt_token"
	KeyUserData     = "user_data"
)

var allKeys = []string{KeyAccessToken, KeyRefreshToken, KeySessionToken, KeyUserData}

// Tokens is the full set of values created by a successful authentication callback.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	SessionToken string
	Profile      json.RawMessage
}

// Validate checks that all four values are present and the profile is JSON.
func (t Tokens) Validate() error {
	switch {
	case t.AccessToken == "":
		return fmt.Errorf("%w: missing access token", shared.ErrInvalidInput)
	case t.RefreshToken == "":
		return fmt.Errorf("%w: missing refresh token", shared.ErrInvalidInput)
	case t.SessionToken == "":
		return fmt.Errorf("%w: missing session token", shared.ErrInvalidInput)
	case len(t.Profile) == 0:
		return fmt.Errorf("%w: missing user data", shared.ErrInvalidInput)
	case !json.Valid(t.Profile):
		return fmt.Errorf("%w: user data is not valid JSON", shared.ErrInvalidInput)
	}
	return nil
}

// Store reads and writes session values through a [Storage].
type Store struct {
	storage Storage
}

// NewStore creates a [Store]. A nil storage falls back to [MemoryStorage].
func NewStore(storage Storage) *Store {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	return &Store{storage: storage}
}

// Save persists all four values in one write. Nothing is written unless they validate.
func (s *Store) Save(t Tokens) error {
	if err := t.Validate(); err != nil {
		return err
	}

	values := map[string]string{
		KeyAccessToken:  t.AccessToken,
		KeyRefreshToken: t.RefreshToken,
		KeySessionToken: t.SessionToken,
		KeyUserData:     string(t.Profile),
	}
	if err := s.storage.SetMany(values); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

// Load reads all values; missing keys come back empty.
func (s *Store) Load() (Tokens, error) {
	var t Tokens
	var err error
	if t.AccessToken, err = s.get(KeyAccessToken); err != nil {
		return Tokens{}, err
	}
	if t.RefreshToken, err = s.get(KeyRefreshToken); err != nil {
		return Tokens{}, err
	}
	if t.SessionToken, err = s.get(KeySessionToken); err != nil {
		return Tokens{}, err
	}
	profile, err := s.get(KeyUserData)
	if err != nil {
		return Tokens{}, err
	}
	if profile != "" {
		t.Profile = json.RawMessage(profile)
	}
	return t, nil
}

func (s *Store) get(key string) (string, error) {
	v, _, err := s.storage.Get(key)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return v, nil
}

// AccessToken returns the provider access token, or "".
func (s *Store) AccessToken() string {
	v, _ := s.get(KeyAccessToken)
	return v
}

// RefreshToken returns the provider refresh token, or "".
func (s *Store) RefreshToken() string {
	v, _ := s.get(KeyRefreshToken)
	return v
}

// SessionToken returns the backend session token, or "".
func (s *Store) SessionToken() string {
	v, _ := s.get(KeySessionToken)
	return v
}

// SetAccessToken replaces the provider access token after a refresh.
func (s *Store) SetAccessToken(token string) error {
	if token == "" {
		return fmt.Errorf("%w: empty access token", shared.ErrInvalidInput)
	}
	return s.storage.Set(KeyAccessToken, token)
}

// Authenticated reports whether a session token is present.
//
// This is the route guard predicate. It does not check validity or expiry.
func (s *Store) Authenticated() bool {
	return s.SessionToken() != ""
}

// Profile decodes the stored user profile.
func (s *Store) Profile() (*models.UserProfile, error) {
	raw, err := s.get(KeyUserData)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, shared.ErrNotAuthenticated
	}
	profile, err := models.ParseUserProfile([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: stored user data: %v", shared.ErrMalformedPayload, err)
	}
	return profile, nil
}

// ProviderToken returns the provider credentials as an [oauth2.Token], or nil when there is no access token.
func (s *Store) ProviderToken() *oauth2.Token {
	access := s.AccessToken()
	if access == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: s.RefreshToken(),
		TokenType:    "Bearer",
	}
}

// Clear removes every session value.
func (s *Store) Clear() error {
	if err := s.storage.Delete(allKeys...); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
