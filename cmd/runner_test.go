package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunemap/internal/graph"
	"github.com/desertthunder/tunemap/internal/models"
	"github.com/desertthunder/tunemap/internal/render"
	"github.com/desertthunder/tunemap/internal/services"
	"github.com/desertthunder/tunemap/internal/session"
	"github.com/desertthunder/tunemap/internal/shared"
	tu "github.com/desertthunder/tunemap/internal/testing"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// fakeService serves a fixed library and records the last recommendation query.
type fakeService struct {
	mu        sync.Mutex
	playlists []models.Playlist
	tracks    []models.Track
	recs      []models.Track
	query     services.RecommendationQuery
	err       error
}

func newFakeService() *fakeService {
	return &fakeService{
		playlists: []models.Playlist{
			{ID: "pl1", Name: "Road Trip", Tracks: models.TrackRef{Total: 2}, Owner: models.Owner{DisplayName: "Test User"}},
			{ID: "pl2", Name: "Focus", Tracks: models.TrackRef{Total: 1}},
		},
		tracks: []models.Track{
			tu.Track("seed", "Seed Song", "Seed Artist", ""),
			tu.Track("other", "Other Song", "Other Artist", ""),
		},
		recs: []models.Track{
			tu.Track("rec1", "Rec One", "Artist One", ""),
			tu.Track("rec2", "Rec Two", "Artist Two", ""),
		},
	}
}

func (f *fakeService) InitiateLogin(ctx context.Context) (string, error) {
	return "https://accounts.example.com/authorize", f.err
}

func (f *fakeService) HandleCallback(ctx context.Context, code string) (*models.UserProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return models.ParseUserProfile([]byte(tu.ProfileJSON))
}

func (f *fakeService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	return f.playlists, f.err
}

func (f *fakeService) GetTopTracks(ctx context.Context, timeRange models.TimeRange) ([]models.Track, error) {
	return f.tracks, f.err
}

func (f *fakeService) GetPlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	return f.tracks, f.err
}

func (f *fakeService) GetRecommendations(ctx context.Context, query services.RecommendationQuery) ([]models.Track, error) {
	f.mu.Lock()
	f.query = query
	f.mu.Unlock()
	return f.recs, f.err
}

type refreshingService struct {
	*fakeService
	expiry time.Time
}

func (s *refreshingService) RefreshAccessToken(ctx context.Context) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "fresh", Expiry: s.expiry}, nil
}

func testRunner(t *testing.T, svc services.Service) (*Runner, *bytes.Buffer) {
	t.Helper()
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Service:     svc,
		Logger:      log.New(io.Discard),
		Output:      output,
		OpenBrowser: func(string) error { return nil },
	})
	return runner, output
}

func signIn(t *testing.T, store *session.Store) {
	t.Helper()
	err := store.Save(session.Tokens{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		SessionToken: tu.SessionToken(t, "user-1", time.Now().Add(time.Hour)),
		Profile:      json.RawMessage(tu.ProfileJSON),
	})
	if err != nil {
		t.Fatalf("failed to save session: %v", err)
	}
}

// run executes args against a fresh command tree built from r.
func run(r *Runner, args ...string) error {
	app := &cli.Command{Name: "tunemap", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"tunemap"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			store := session.NewStore(nil)
			svc := newFakeService()

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Store:      store,
				Service:    svc,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.store != store {
				t.Error("expected store to be set")
			}
			if runner.engine == nil || runner.engine.Store() != runner.graphs {
				t.Error("expected engine publishing to the runner's graph store")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})
			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{HTTPClient: nil})
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("with nil store uses memory", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.store == nil {
				t.Fatal("expected default store")
			}
			if runner.store.Authenticated() {
				t.Error("expected empty session")
			}
		})

		t.Run("without service has no engine", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.engine != nil {
				t.Error("expected nil engine")
			}
			if err := runner.requireService(); !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})

		t.Run("login timeout defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.loginTimeout != defaultLoginTimeout {
				t.Errorf("expected %v, got %v", defaultLoginTimeout, runner.loginTimeout)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "auth", "library", "map", "serve", "tui"} {
			if !names[want] {
				t.Errorf("expected %q command to be registered", want)
			}
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("setup config writes the template once", func(t *testing.T) {
		runner, output := testRunner(t, nil)
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := run(runner, "setup", "config", "--config", path); err != nil {
			t.Fatalf("setup config failed: %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(output.String(), path) {
			t.Errorf("expected path in output, got %q", output.String())
		}
		if _, err := shared.LoadConfig(path); err != nil {
			t.Errorf("expected written config to load, got %v", err)
		}

		if err := run(runner, "setup", "config", "--config", path); err == nil {
			t.Error("expected error when config already exists")
		}
	})

	t.Run("setup database runs migrations", func(t *testing.T) {
		dir := t.TempDir()
		runner, _ := testRunner(t, nil)
		runner.config.Database.Path = filepath.Join(dir, "data", "tunemap.db")

		if err := run(runner, "setup", "database", "--config", filepath.Join(dir, "config.toml")); err != nil {
			t.Fatalf("setup database failed: %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "data", "tunemap.db"))
		tu.AssertFileExists(t, filepath.Join(dir, "config.toml"))
	})
}

func TestAuthCommands(t *testing.T) {
	t.Run("status when signed out", func(t *testing.T) {
		runner, output := testRunner(t, newFakeService())
		if err := run(runner, "auth", "status"); err != nil {
			t.Fatalf("auth status failed: %v", err)
		}
		if !strings.Contains(output.String(), "Not signed in") {
			t.Errorf("expected signed-out message, got %q", output.String())
		}
	})

	t.Run("status JSON reads profile and claims", func(t *testing.T) {
		runner, output := testRunner(t, newFakeService())
		signIn(t, runner.store)

		if err := run(runner, "auth", "status", "--json"); err != nil {
			t.Fatalf("auth status failed: %v", err)
		}

		var got authStatus
		if err := json.Unmarshal(output.Bytes(), &got); err != nil {
			t.Fatalf("failed to decode status: %v", err)
		}
		if !got.Authenticated || got.UserID != "user-1" || got.DisplayName != "Test User" {
			t.Errorf("unexpected status %+v", got)
		}
		if got.ExpiresAt == nil || got.Expired {
			t.Errorf("expected unexpired session with expiry, got %+v", got)
		}
	})

	t.Run("status flags an expired session token", func(t *testing.T) {
		runner, output := testRunner(t, newFakeService())
		err := runner.store.Save(session.Tokens{
			AccessToken:  "a",
			RefreshToken: "r",
			SessionToken: tu.SessionToken(t, "user-1", time.Now().Add(-time.Hour)),
			Profile:      json.RawMessage(tu.ProfileJSON),
		})
		if err != nil {
			t.Fatalf("failed to save session: %v", err)
		}

		if err := run(runner, "auth", "status"); err != nil {
			t.Fatalf("auth status failed: %v", err)
		}
		if !strings.Contains(output.String(), "Session expired") {
			t.Errorf("expected expired notice, got %q", output.String())
		}
	})

	t.Run("logout clears every token", func(t *testing.T) {
		runner, output := testRunner(t, newFakeService())
		signIn(t, runner.store)

		if err := run(runner, "auth", "logout"); err != nil {
			t.Fatalf("auth logout failed: %v", err)
		}
		if runner.store.Authenticated() || runner.store.AccessToken() != "" || runner.store.RefreshToken() != "" {
			t.Error("expected session to be cleared")
		}
		if !strings.Contains(output.String(), "Signed out") {
			t.Errorf("expected confirmation, got %q", output.String())
		}
	})

	t.Run("exchange prints the profile", func(t *testing.T) {
		runner, output := testRunner(t, newFakeService())
		if err := run(runner, "auth", "exchange", "--code", "abc"); err != nil {
			t.Fatalf("auth exchange failed: %v", err)
		}
		if !strings.Contains(output.String(), "Signed in as Test User") {
			t.Errorf("expected profile name, got %q", output.String())
		}
	})

	t.Run("exchange requires a code", func(t *testing.T) {
		runner, _ := testRunner(t, newFakeService())
		if err := run(runner, "auth", "exchange"); err == nil {
			t.Error("expected error without --code")
		}
	})

	t.Run("refresh prints the new expiry", func(t *testing.T) {
		svc := &refreshingService{fakeService: newFakeService(), expiry: time.Now().Add(time.Hour)}
		runner, output := testRunner(t, svc)
		if err := run(runner, "auth", "refresh"); err != nil {
			t.Fatalf("auth refresh failed: %v", err)
		}
		if !strings.Contains(output.String(), "refreshed") || !strings.Contains(output.String(), "Expires at") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("refresh unsupported by service", func(t *testing.T) {
		runner, _ := testRunner(t, newFakeService())
		if err := run(runner, "auth", "refresh"); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find a free port: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestLogin(t *testing.T) {
	noRedirect := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	t.Run("stores the session delivered to the callback", func(t *testing.T) {
		runner, output := testRunner(t, newFakeService())
		runner.config.Server.Host = "127.0.0.1"
		runner.config.Server.Port = freePort(t)

		var opened string
		var status int
		runner.openBrowser = func(authURL string) error {
			opened = authURL
			q := url.Values{
				"access_token":  {"access-1"},
				"refresh_token": {"refresh-1"},
				"jwt_token":     {tu.SessionToken(t, "user-1", time.Now().Add(time.Hour))},
				"user_data":     {tu.ProfileJSON},
			}
			resp, err := noRedirect.Get(fmt.Sprintf("http://%s/callback?%s", runner.config.Server.Addr(), q.Encode()))
			if err != nil {
				return err
			}
			resp.Body.Close()
			status = resp.StatusCode
			return nil
		}

		profile, err := runner.login(context.Background())
		if err != nil {
			t.Fatalf("login failed: %v", err)
		}
		if profile.ID != "user-1" {
			t.Errorf("expected user-1, got %q", profile.ID)
		}
		if opened != "https://accounts.example.com/authorize" {
			t.Errorf("expected backend auth URL to be opened, got %q", opened)
		}
		if status != http.StatusFound {
			t.Errorf("expected callback redirect, got %d", status)
		}
		if runner.store.AccessToken() != "access-1" || !runner.store.Authenticated() {
			t.Error("expected session to be stored")
		}
		if !strings.Contains(output.String(), "Waiting for authorization") {
			t.Errorf("expected waiting message, got %q", output.String())
		}
	})

	t.Run("reports a callback error", func(t *testing.T) {
		runner, _ := testRunner(t, newFakeService())
		runner.config.Server.Host = "127.0.0.1"
		runner.config.Server.Port = freePort(t)
		runner.openBrowser = func(string) error {
			resp, err := noRedirect.Get(fmt.Sprintf("http://%s/callback?error=access_denied", runner.config.Server.Addr()))
			if err != nil {
				return err
			}
			resp.Body.Close()
			return nil
		}

		if _, err := runner.login(context.Background()); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
		if runner.store.Authenticated() {
			t.Error("expected no session after a failed callback")
		}
	})

	t.Run("times out without a callback", func(t *testing.T) {
		runner, _ := testRunner(t, newFakeService())
		runner.config.Server.Host = "127.0.0.1"
		runner.config.Server.Port = freePort(t)
		runner.loginTimeout = 50 * time.Millisecond

		if _, err := runner.login(context.Background()); !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("fails when the backend refuses to start a login", func(t *testing.T) {
		svc := newFakeService()
		svc.err = shared.ErrServiceUnavailable
		runner, _ := testRunner(t, svc)
		runner.config.Server.Host = "127.0.0.1"
		runner.config.Server.Port = freePort(t)

		if _, err := runner.login(context.Background()); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestLibraryCommands(t *testing.T) {
	t.Run("playlists plain", func(t *testing.T) {
		runner, output := testRunner(t, newFakeService())
		if err := run(runner, "library", "playlists"); err != nil {
			t.Fatalf("library playlists failed: %v", err)
		}
		out := output.String()
		for _, want := range []string{"Found 2 playlists", "Road Trip", "Owner: Test User", "Owner: Unknown"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output, got %q", want, out)
			}
		}
	})

	t.Run("playlists JSON with limit", func(t *testing.T) {
		runner, output := testRunner(t, newFakeService())
		if err := run(runner, "library", "playlists", "--json", "--limit", "1"); err != nil {
			t.Fatalf("library playlists failed: %v", err)
		}
		var got []models.Playlist
		if err := json.Unmarshal(output.Bytes(), &got); err != nil {
			t.Fatalf("failed to decode playlists: %v", err)
		}
		if len(got) != 1 || got[0].ID != "pl1" {
			t.Errorf("expected only pl1, got %+v", got)
		}
	})

	t.Run("top tracks rejects unknown range", func(t *testing.T) {
		runner, _ := testRunner(t, newFakeService())
		if err := run(runner, "library", "top-tracks", "--range", "forever"); !errors.Is(err, shared.ErrInvalidTimeRange) {
			t.Errorf("expected ErrInvalidTimeRange, got %v", err)
		}
	})

	t.Run("top tracks", func(t *testing.T) {
		runner, output := testRunner(t, newFakeService())
		if err := run(runner, "library", "top-tracks", "--range", "short_term"); err != nil {
			t.Fatalf("top-tracks failed: %v", err)
		}
		if !strings.Contains(output.String(), "Seed Artist - Seed Song") {
			t.Errorf("expected track listing, got %q", output.String())
		}
	})

	t.Run("tracks requires a playlist", func(t *testing.T) {
		runner, _ := testRunner(t, newFakeService())
		if err := run(runner, "library", "tracks"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("recommend requires a seed", func(t *testing.T) {
		runner, _ := testRunner(t, newFakeService())
		if err := run(runner, "library", "recommend"); !errors.Is(err, shared.ErrMissingSeeds) {
			t.Errorf("expected ErrMissingSeeds, got %v", err)
		}
	})

	t.Run("recommend passes seeds through", func(t *testing.T) {
		svc := newFakeService()
		runner, output := testRunner(t, svc)
		err := run(runner, "library", "recommend", "--track", "t1", "--genre", "jazz", "--limit", "3", "--market", "GB")
		if err != nil {
			t.Fatalf("recommend failed: %v", err)
		}
		q := svc.query
		if len(q.SeedTracks) != 1 || q.SeedTracks[0] != "t1" || len(q.SeedGenres) != 1 || q.Limit != 3 || q.Market != "GB" {
			t.Errorf("unexpected query %+v", q)
		}
		if !strings.Contains(output.String(), "Found 2 recommendations") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("without a backend client", func(t *testing.T) {
		runner, _ := testRunner(t, nil)
		if err := run(runner, "library", "playlists"); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestMapCommands(t *testing.T) {
	t.Run("build exports JSON and publishes the map", func(t *testing.T) {
		runner, output := testRunner(t, newFakeService())
		path := filepath.Join(t.TempDir(), "map.json")

		if err := run(runner, "map", "build", "--output", path, "pl1"); err != nil {
			t.Fatalf("map build failed: %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(output.String(), "Seed Song by Seed Artist") {
			t.Errorf("expected seed label, got %q", output.String())
		}
		snap, version := runner.graphs.Current()
		if snap == nil || version != 1 || len(snap.Nodes) != 3 {
			t.Errorf("expected published 3-node map at version 1, got %v (v%d)", snap, version)
		}
	})

	t.Run("build rejects unknown format before fetching", func(t *testing.T) {
		runner, _ := testRunner(t, newFakeService())
		if err := run(runner, "map", "build", "--format", "svg", "pl1"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if snap, _ := runner.graphs.Current(); snap != nil {
			t.Error("expected no map to be published")
		}
	})

	t.Run("build requires a playlist", func(t *testing.T) {
		runner, _ := testRunner(t, newFakeService())
		if err := run(runner, "map", "build"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("build fails on an empty playlist", func(t *testing.T) {
		svc := newFakeService()
		svc.tracks = nil
		runner, _ := testRunner(t, svc)
		if err := run(runner, "map", "build", "--output", filepath.Join(t.TempDir(), "m.json"), "pl1"); !errors.Is(err, shared.ErrNoTracks) {
			t.Errorf("expected ErrNoTracks, got %v", err)
		}
	})

	t.Run("build renders PNG at the requested size", func(t *testing.T) {
		runner, _ := testRunner(t, newFakeService())
		path := filepath.Join(t.TempDir(), "map.png")

		if err := run(runner, "map", "build", "--format", "png", "--output", path, "--width", "320", "--height", "200", "pl1"); err != nil {
			t.Fatalf("map build failed: %v", err)
		}
		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("failed to open png: %v", err)
		}
		defer f.Close()
		img, err := png.Decode(f)
		if err != nil {
			t.Fatalf("failed to decode png: %v", err)
		}
		if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 200 {
			t.Errorf("expected 320x200, got %v", b)
		}
	})

	t.Run("build writes a standalone HTML page", func(t *testing.T) {
		runner, _ := testRunner(t, newFakeService())
		path := filepath.Join(t.TempDir(), "map.html")

		if err := run(runner, "map", "build", "--format", "html", "--output", path, "pl1"); err != nil {
			t.Fatalf("map build failed: %v", err)
		}
		page := tu.MustReadFile(t, path)
		if !strings.Contains(page, render.ForceGraphURL) || !strings.Contains(page, "Rec One") {
			t.Errorf("expected embedded graph page, got %s", page)
		}
	})

	t.Run("build all writes one file per playlist and a manifest", func(t *testing.T) {
		runner, output := testRunner(t, newFakeService())
		dir := filepath.Join(t.TempDir(), "exports")

		if err := run(runner, "map", "build", "--all", "--format", "csv", "--output", dir); err != nil {
			t.Fatalf("map build --all failed: %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "manifest.json"))
		if !strings.Contains(output.String(), "2/2 maps exported") {
			t.Errorf("expected summary, got %q", output.String())
		}
		if snap, _ := runner.graphs.Current(); snap != nil {
			t.Error("expected bulk export to leave the graph store untouched")
		}
	})

	t.Run("hit resolves a pixel to its song", func(t *testing.T) {
		runner, output := testRunner(t, newFakeService())
		path := filepath.Join(t.TempDir(), "map.json")
		if err := run(runner, "map", "build", "--output", path, "pl1"); err != nil {
			t.Fatalf("map build failed: %v", err)
		}

		snap, _ := runner.graphs.Current()
		pos := graph.RadialLayout{}.Positions(snap)
		v := render.Fit(pos, 400, 300, viewMargin)
		x, y := v.ToScreen(pos["rec1"])

		output.Reset()
		err := run(runner, "map", "hit", "--x", fmt.Sprint(int(x)), "--y", fmt.Sprint(int(y)), "--width", "400", "--height", "300", "--json", path)
		if err != nil {
			t.Fatalf("map hit failed: %v", err)
		}
		var got hitResult
		if err := json.Unmarshal(output.Bytes(), &got); err != nil {
			t.Fatalf("failed to decode hit: %v", err)
		}
		if got.Node.ID != "rec1" {
			t.Errorf("expected rec1, got %q", got.Node.ID)
		}
		if len(got.Connected) != 1 || got.Connected[0].ID != "seed" {
			t.Errorf("expected seed as only connection, got %+v", got.Connected)
		}
	})

	t.Run("hit misses empty space", func(t *testing.T) {
		runner, _ := testRunner(t, newFakeService())
		path := filepath.Join(t.TempDir(), "map.json")
		if err := run(runner, "map", "build", "--output", path, "pl1"); err != nil {
			t.Fatalf("map build failed: %v", err)
		}
		if err := run(runner, "map", "hit", "--x", "0", "--y", "0", path); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestServe(t *testing.T) {
	t.Run("requires a backend client", func(t *testing.T) {
		runner, _ := testRunner(t, nil)
		if _, err := runner.newApp(); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("app shares the runner's session and graph store", func(t *testing.T) {
		runner, _ := testRunner(t, newFakeService())
		signIn(t, runner.store)
		app, err := runner.newApp()
		if err != nil {
			t.Fatalf("newApp failed: %v", err)
		}

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/graph", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404 before any map, got %d", rec.Code)
		}

		if err := run(runner, "map", "build", "--output", filepath.Join(t.TempDir(), "m.json"), "pl1"); err != nil {
			t.Fatalf("map build failed: %v", err)
		}
		rec = httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/graph", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200 once a map exists, got %d", rec.Code)
		}
	})
}
