package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/desertthunder/tunemap/internal/models"
	"github.com/desertthunder/tunemap/internal/server"
	"github.com/desertthunder/tunemap/internal/session"
	"github.com/desertthunder/tunemap/internal/shared"
	"github.com/urfave/cli/v3"
)

type authStatus struct {
	Authenticated bool       `json:"authenticated"`
	UserID        string     `json:"user_id,omitempty"`
	DisplayName   string     `json:"display_name,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Expired       bool       `json:"expired"`
}

// AuthLogin signs in through the browser.
//
// Starts the callback server, opens the backend's authorization URL and waits for the redirect.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	profile, err := r.login(ctx)
	if err != nil {
		return err
	}

	r.writePlainln("✓ Signed in as %s", profile.Name())
	r.writePlain("You can now use: tunemap library playlists\n")
	return nil
}

// login runs the browser flow and blocks until the callback has stored a session.
func (r *Runner) login(ctx context.Context) (*models.UserProfile, error) {
	if err := r.requireService(); err != nil {
		return nil, err
	}

	callback := server.NewCallbackHandler(r.store, r.logger)
	router := server.NewMuxRouter()
	router.Use(server.WithRequestID, server.Logging(r.logger), server.Recover(r.logger))
	router.Handler(callback)
	router.Handle(http.MethodGet, "/dashboard", http.HandlerFunc(server.SignedIn))

	addr := r.config.Server.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to listen on %s: %v", shared.ErrTransport, addr, err)
	}

	httpServer := &http.Server{Handler: router}
	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting callback server at %v", ln.Addr())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	authURL, err := r.service.InitiateLogin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start login: %w", err)
	}

	r.writePlain("→ Opening browser to sign in...\n")
	if err := r.openBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%v timeout)...\n", r.loginTimeout)

	timeout := time.NewTimer(r.loginTimeout)
	defer timeout.Stop()

	var result server.CallbackResult
	select {
	case result = <-callback.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after %v", shared.ErrTimeout, r.loginTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := result.Error(); err != nil {
		return nil, fmt.Errorf("authorization failed: %w", err)
	}
	if result.Profile == nil {
		return nil, fmt.Errorf("%w: no profile received", shared.ErrAuthFailed)
	}
	return result.Profile, nil
}

// AuthExchange completes a login from an authorization code without the browser redirect.
func (r *Runner) AuthExchange(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}

	profile, err := r.service.HandleCallback(ctx, cmd.String("code"))
	if err != nil {
		return err
	}

	r.writePlain("✓ Signed in as %s\n", profile.Name())
	return nil
}

// AuthStatus prints who is signed in and when the session token expires.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	status := r.status()

	if cmd.Bool("json") {
		return r.writeJSON(status, cmd.Bool("pretty"))
	}

	if !status.Authenticated {
		r.writePlain("✗ Not signed in. Run 'tunemap auth login'\n")
		return nil
	}

	r.writePlain("✓ Signed in as %s (%s)\n", status.DisplayName, status.UserID)
	switch {
	case status.ExpiresAt == nil:
		r.writePlain("Session expiry: unknown\n")
	case status.Expired:
		r.writePlain("Session expired at %s\n", status.ExpiresAt.Local().Format(time.RFC1123))
	default:
		r.writePlain("Session expires at %s\n", status.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

func (r *Runner) status() authStatus {
	if !r.store.Authenticated() {
		return authStatus{}
	}

	status := authStatus{Authenticated: true}
	if profile, err := r.store.Profile(); err == nil {
		status.UserID = profile.ID
		status.DisplayName = profile.Name()
	} else {
		r.logger.Warn("stored profile unreadable", "error", err)
	}

	claims, err := session.ParseClaims(r.store.SessionToken())
	if err != nil {
		r.logger.Debug("session token has no readable claims", "error", err)
		return status
	}
	if status.UserID == "" {
		status.UserID = claims.UserID
	}
	if !claims.ExpiresAt.IsZero() {
		expires := claims.ExpiresAt
		status.ExpiresAt = &expires
		status.Expired = claims.Expired(time.Now())
	}
	return status
}

// AuthRefresh renews the access token immediately.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	refresher, ok := r.service.(Refresher)
	if !ok {
		return fmt.Errorf("%w: token refresh not supported", shared.ErrServiceUnavailable)
	}

	token, err := refresher.RefreshAccessToken(ctx)
	if err != nil {
		return err
	}

	r.writePlain("✓ Access token refreshed\n")
	if !token.Expiry.IsZero() {
		r.writePlain("Expires at %s\n", token.Expiry.Local().Format(time.RFC1123))
	}
	return nil
}

// AuthLogout clears the stored session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	r.writePlain("✓ Signed out\n")
	return nil
}
