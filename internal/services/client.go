package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunemap/internal/session"
	"github.com/desertthunder/tunemap/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "http://localhost:5000/api/spotify"
	DefaultLimit   = 5
	DefaultMarket  = "US"

	headerAccessToken = "Spotify-Access-Token"
	headerRequestID   = "X-Request-ID"
)

// Options configures a [Client]. Only Store is required.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Store      *session.Store
	Logger     *log.Logger
	Limiter    *rate.Limiter

	// Recommendation defaults.
	Limit  int
	Market string

	// OnUnauthenticated runs after the session has been cleared because it could not be refreshed.
	OnUnauthenticated func()
}

// Client talks to the backend proxy on behalf of the stored session.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      *session.Store
	logger     *log.Logger
	limiter    *rate.Limiter
	limit      int
	market     string

	refreshes singleflight.Group

	mu       sync.RWMutex
	onUnauth func()
}

// NewClient creates a [Client] from opts.
func NewClient(opts Options) (*Client, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: session store is required", shared.ErrInvalidArgument)
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("%w: base url %q: %v", shared.ErrInvalidConfig, baseURL, err)
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: opts.HTTPClient,
		store:      opts.Store,
		logger:     opts.Logger,
		limiter:    opts.Limiter,
		limit:      opts.Limit,
		market:     opts.Market,
		onUnauth:   opts.OnUnauthenticated,
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	if c.limiter == nil {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
	}
	if c.limit <= 0 {
		c.limit = DefaultLimit
	}
	if c.market == "" {
		c.market = DefaultMarket
	}
	return c, nil
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Store returns the session store the client reads credentials from.
func (c *Client) Store() *session.Store { return c.store }

// OnUnauthenticated replaces the hook run after the session has been cleared.
func (c *Client) OnUnauthenticated(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauth = fn
}

// request is one logical request. Its retried flag survives the replay.
type request struct {
	id      string
	method  string
	path    string
	query   url.Values
	body    []byte
	retried bool
}

func newRequest(method, path string, query url.Values, body any) (*request, error) {
	r := &request{id: shared.GenerateID(), method: method, path: path, query: query}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		r.body = data
	}
	return r, nil
}

func (c *Client) build(ctx context.Context, r *request) (*http.Request, error) {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerRequestID, r.id)
	return req, nil
}

// authorize sets both credentials from the store and returns the access token that was sent.
func (c *Client) authorize(req *http.Request) string {
	if token := c.store.SessionToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.Header.Del("Authorization")
	}

	access := c.store.AccessToken()
	if access != "" {
		req.Header.Set(headerAccessToken, access)
	} else {
		req.Header.Del(headerAccessToken)
	}
	return access
}

func (c *Client) send(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrTransport, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrTransport, err)
	}
	return resp, nil
}

// do runs r, refreshing and replaying it once on 401, and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, r *request, out any) error {
	req, err := c.build(ctx, r)
	if err != nil {
		return err
	}
	logger := c.logger.With("request_id", r.id, "method", r.method, "path", r.path)

	for {
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return fmt.Errorf("failed to reset request body: %w", err)
			}
			req.Body = body
		}
		sent := c.authorize(req)

		logger.Debug("sending request", "retried", r.retried)
		resp, err := c.send(ctx, req)
		if err != nil {
			return err
		}

		if resp.StatusCode != http.StatusUnauthorized {
			defer resp.Body.Close()
			return decodeResponse(resp, out)
		}
		drain(resp)

		if r.retried {
			logger.Warn("request rejected after refresh")
			return c.unauthenticated(fmt.Errorf("%w: %s %s rejected after refresh", shared.ErrNotAuthenticated, r.method, r.path))
		}
		r.retried = true

		if _, err := c.refreshFrom(ctx, sent); err != nil {
			logger.Warn("refresh failed", "error", err)
			return c.unauthenticated(fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, err))
		}
		logger.Debug("replaying request after refresh")
	}
}

// RefreshAccessToken exchanges the stored refresh token for a new access token and persists it.
func (c *Client) RefreshAccessToken(ctx context.Context) (*oauth2.Token, error) {
	return c.refreshFrom(ctx, "")
}

// refreshFrom refreshes unless the stored access token already differs from stale,
// which means another caller refreshed while this request was in flight.
func (c *Client) refreshFrom(ctx context.Context, stale string) (*oauth2.Token, error) {
	// The first caller's cancellation must not fail the callers that joined it.
	v, err, joined := c.refreshes.Do("refresh", func() (any, error) {
		if stale != "" {
			if current := c.store.AccessToken(); current != "" && current != stale {
				return c.store.ProviderToken(), nil
			}
		}
		return c.refresh(context.WithoutCancel(ctx))
	})
	if joined {
		c.logger.Debug("joined in-flight refresh")
	}
	if err != nil {
		return nil, err
	}
	return v.(*oauth2.Token), nil
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

func (c *Client) refresh(ctx context.Context) (*oauth2.Token, error) {
	refreshToken := c.store.RefreshToken()
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	r, err := newRequest(http.MethodPost, "/refresh", nil, refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}
	req, err := c.build(ctx, r)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}
	defer resp.Body.Close()

	var payload refreshResponse
	if err := decodeResponse(resp, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}
	if payload.AccessToken == "" {
		return nil, fmt.Errorf("%w: %w: missing accessToken", shared.ErrRefreshFailed, shared.ErrMalformedPayload)
	}
	if err := c.store.SetAccessToken(payload.AccessToken); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}

	c.logger.Info("access token refreshed")
	return &oauth2.Token{AccessToken: payload.AccessToken, RefreshToken: refreshToken, TokenType: "Bearer"}, nil
}

func (c *Client) unauthenticated(cause error) error {
	if err := c.store.Clear(); err != nil {
		c.logger.Error("failed to clear session", "error", err)
	}

	c.mu.RLock()
	hook := c.onUnauth
	c.mu.RUnlock()
	if hook != nil {
		hook()
	}
	return cause
}

// StatusError is a non-2xx response other than 401.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v: status %d", shared.ErrAPIRequest, e.StatusCode)
	}
	return fmt.Sprintf("%v: status %d: %s", shared.ErrAPIRequest, e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error { return shared.ErrAPIRequest }

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func decodeResponse(resp *http.Response, out any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %w", shared.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &StatusError{StatusCode: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil {
			se.Message = eb.Message
			if se.Message == "" {
				se.Message = eb.Error
			}
		}
		return se
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &typeErr):
			return fmt.Errorf("%w: field %q is not %s", shared.ErrMalformedPayload, typeErr.Field, typeErr.Type)
		case errors.As(err, &syntaxErr):
			return fmt.Errorf("%w: invalid JSON at offset %d", shared.ErrMalformedPayload, syntaxErr.Offset)
		default:
			return fmt.Errorf("%w: %v", shared.ErrMalformedPayload, err)
		}
	}
	return nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
