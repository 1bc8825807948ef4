package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunemap/internal/models"
	"github.com/desertthunder/tunemap/internal/session"
	"github.com/desertthunder/tunemap/internal/shared"
)

// ErrorRedirectSeconds is how long the callback error page waits before returning to the landing page.
const ErrorRedirectSeconds = 3

// CallbackResult is the outcome of a browser redirect from the backend.
type CallbackResult struct {
	Profile *models.UserProfile
	err     error
}

func (c *CallbackResult) Error() error {
	return c.err
}

// CallbackHandler receives the backend's redirect after login and persists the session.
type CallbackHandler struct {
	store      *session.Store
	logger     *log.Logger
	resultChan chan CallbackResult
	once       sync.Once
}

// NewCallbackHandler creates a handler that saves tokens into store.
func NewCallbackHandler(store *session.Store, logger *log.Logger) *CallbackHandler {
	return &CallbackHandler{
		store:      store,
		logger:     logger,
		resultChan: make(chan CallbackResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP reads the four session values from the query and saves them.
//
// On success it redirects to /dashboard. Otherwise it shows the error and returns to / after
// [ErrorRedirectSeconds]. Nothing is saved unless all four values are present.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	profile, err := h.persist(r)
	if err != nil {
		h.logger.Warn("authentication callback failed", "error", err)
		h.Send(CallbackResult{err: err})
		writeCallbackError(w, err)
		return
	}

	h.logger.Info("authenticated", "user", profile.ID)
	h.Send(CallbackResult{Profile: profile})
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (h *CallbackHandler) persist(r *http.Request) (*models.UserProfile, error) {
	q := r.URL.Query()
	if msg := q.Get("error"); msg != "" {
		return nil, fmt.Errorf("%w: %s", shared.ErrAuthFailed, msg)
	}

	tokens := session.Tokens{
		AccessToken:  q.Get("access_token"),
		RefreshToken: q.Get("refresh_token"),
		SessionToken: q.Get("jwt_token"),
		Profile:      json.RawMessage(q.Get("user_data")),
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" || tokens.SessionToken == "" || len(tokens.Profile) == 0 {
		return nil, fmt.Errorf("%w: missing required authentication data", shared.ErrAuthFailed)
	}

	profile, err := models.ParseUserProfile(tokens.Profile)
	if err != nil {
		return nil, fmt.Errorf("%w: user data: %w", shared.ErrAuthFailed, err)
	}
	if err := h.store.Save(tokens); err != nil {
		return nil, err
	}
	return profile, nil
}

// Send sends the result through the channel (only once).
func (h *CallbackHandler) Send(result CallbackResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving the first callback.
//
// Channel will receive exactly one result and then be closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.resultChan
}

func writeCallbackError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if !errors.Is(err, shared.ErrAuthFailed) && !errors.Is(err, shared.ErrInvalidInput) {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	renderPage(w, callbackErrorPage, struct {
		Message string
		Seconds int
	}{err.Error(), ErrorRedirectSeconds})
}
