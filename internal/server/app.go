package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunemap/internal/graph"
	"github.com/desertthunder/tunemap/internal/models"
	"github.com/desertthunder/tunemap/internal/render"
	"github.com/desertthunder/tunemap/internal/services"
	"github.com/desertthunder/tunemap/internal/session"
	"github.com/desertthunder/tunemap/internal/shared"
	"github.com/desertthunder/tunemap/internal/tasks"
)

const (
	defaultWidth  = 1200
	defaultHeight = 800
	viewMargin    = 60
	// MaxDimension caps the width and height of a rendered map.
	MaxDimension = 4096
)

// Options wires an [App].
type Options struct {
	Store   *session.Store
	Auth    services.Authenticator
	Library services.Library
	Engine  *tasks.MapEngine
	Painter *render.Painter
	Layout  graph.Layout
	Logger  *log.Logger
	// Width and Height size rendered PNGs unless the request overrides them.
	Width, Height int
	Distance      float64
}

// App is the local web server: landing, auth callback, dashboard and map routes.
type App struct {
	opts     Options
	router   *MuxRouter
	callback *CallbackHandler
	graphs   *graph.Store
}

// New registers every route. Options.Store and Options.Engine are required.
func New(opts Options) (*App, error) {
	if opts.Store == nil || opts.Engine == nil {
		return nil, fmt.Errorf("%w: session store and map engine are required", shared.ErrInvalidArgument)
	}
	if opts.Engine.Store() == nil {
		return nil, fmt.Errorf("%w: map engine has no graph store", shared.ErrInvalidArgument)
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Layout == nil {
		opts.Layout = graph.RadialLayout{}
	}
	if opts.Painter == nil {
		opts.Painter = render.NewPainter(render.NewCoverLoader(nil, opts.Logger))
	}
	if opts.Width <= 0 || opts.Width > MaxDimension {
		opts.Width = defaultWidth
	}
	if opts.Height <= 0 || opts.Height > MaxDimension {
		opts.Height = defaultHeight
	}

	a := &App{
		opts:     opts,
		router:   NewMuxRouter(),
		callback: NewCallbackHandler(opts.Store, opts.Logger),
		graphs:   opts.Engine.Store(),
	}
	a.routes()
	return a, nil
}

func (a *App) routes() {
	r := a.router
	r.Use(WithRequestID, Logging(a.opts.Logger), Recover(a.opts.Logger))

	r.Handle(http.MethodGet, "/", http.HandlerFunc(a.landing))
	r.Handle(http.MethodGet, "/login", http.HandlerFunc(a.login))
	r.Handle(http.MethodGet, "/logout", http.HandlerFunc(a.logout))
	r.Handler(a.callback)

	guard := RequireSession(a.opts.Store)
	r.Handle(http.MethodGet, "/dashboard", guard(http.HandlerFunc(a.dashboard)))
	r.Handle(http.MethodGet, "/map", guard(http.HandlerFunc(a.mapPage)))
	r.Handle(http.MethodGet, "/api/graph", guard(http.HandlerFunc(a.getGraph)))
	r.Handle(http.MethodGet, "/api/graph.png", guard(http.HandlerFunc(a.graphPNG)))
	r.Handle(http.MethodGet, "/api/graph/hit", guard(http.HandlerFunc(a.hit)))
	r.Handle(http.MethodGet, "/api/graph/live", guard(NewLiveHandler(a.graphs, a.opts.Logger)))
	r.Handle(http.MethodPost, "/api/graph/{playlistID}", guard(http.HandlerFunc(a.generate)))
}

// ServeHTTP implements [http.Handler].
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Callback exposes the callback handler so a login flow can wait on its result.
func (a *App) Callback() *CallbackHandler {
	return a.callback
}

// Serve runs an [http.Server] on addr until ctx is cancelled.
func (a *App) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: a}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return srv.Shutdown(context.WithoutCancel(ctx))
	}
}

func (a *App) landing(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Authenticated bool
		Name          string
	}{Authenticated: a.opts.Store.Authenticated()}
	if data.Authenticated {
		if p, err := a.opts.Store.Profile(); err == nil {
			data.Name = p.Name()
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderPage(w, landingPage, data)
}

func (a *App) login(w http.ResponseWriter, r *http.Request) {
	if a.opts.Auth == nil {
		a.fail(w, r, fmt.Errorf("%w: login", shared.ErrServiceUnavailable))
		return
	}
	authURL, err := a.opts.Auth.InitiateLogin(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (a *App) logout(w http.ResponseWriter, r *http.Request) {
	if err := a.opts.Store.Clear(); err != nil {
		a.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *App) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := tasks.LoadDashboard(r.Context(), a.opts.Library, a.opts.Store, models.TimeRange(r.URL.Query().Get("time_range")), nil)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *App) mapPage(w http.ResponseWriter, r *http.Request) {
	page := render.MapPage{
		Distance: a.opts.Distance,
		GraphURL: "/api/graph",
		LiveURL:  "/api/graph/live",
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Render(w); err != nil {
		a.opts.Logger.Error("map page", "error", err)
	}
}

func (a *App) getGraph(w http.ResponseWriter, r *http.Request) {
	snap, version := a.graphs.Current()
	if snap == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no map has been generated"})
		return
	}
	w.Header().Set("X-Graph-Version", strconv.FormatUint(version, 10))
	writeJSON(w, http.StatusOK, snap)
}

func (a *App) generate(w http.ResponseWriter, r *http.Request) {
	if a.opts.Library == nil {
		a.fail(w, r, fmt.Errorf("%w: library", shared.ErrServiceUnavailable))
		return
	}
	result, err := a.opts.Engine.Generate(r.Context(), Var(r, "playlistID"), nil)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result.Snapshot)
}

// view lays out the current snapshot for a width x height image taken from the query.
func (a *App) view(r *http.Request) (*graph.Snapshot, map[string]graph.Point, render.Viewport, error) {
	width, err := dimension(r, "width", a.opts.Width)
	if err != nil {
		return nil, nil, render.Viewport{}, err
	}
	height, err := dimension(r, "height", a.opts.Height)
	if err != nil {
		return nil, nil, render.Viewport{}, err
	}
	snap, _ := a.graphs.Current()
	if snap == nil {
		return nil, nil, render.Viewport{}, fmt.Errorf("%w: no map has been generated", shared.ErrNoTracks)
	}
	pos := a.opts.Layout.Positions(snap)
	return snap, pos, render.Fit(pos, width, height, viewMargin), nil
}

func (a *App) graphPNG(w http.ResponseWriter, r *http.Request) {
	snap, pos, v, err := a.view(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, a.opts.Painter.Render(r.Context(), snap, pos, v)); err != nil {
		a.fail(w, r, fmt.Errorf("failed to encode map: %w", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		a.opts.Logger.Warn("write map", "error", err)
	}
}

type hitResponse struct {
	Node      graph.Node   `json:"node"`
	Connected []graph.Node `json:"connected"`
}

func (a *App) hit(w http.ResponseWriter, r *http.Request) {
	x, errX := intParam(r, "x", -1)
	y, errY := intParam(r, "y", -1)
	if err := errors.Join(errX, errY); err != nil {
		a.fail(w, r, err)
		return
	}
	snap, pos, v, err := a.view(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	n, ok := render.NewHitMap(snap, pos, v).NodeAt(x, y)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no node at that point"})
		return
	}
	writeJSON(w, http.StatusOK, hitResponse{Node: n, Connected: snap.Neighbors(n.ID)})
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s=%q", shared.ErrInvalidArgument, name, raw)
	}
	return v, nil
}

// dimension reads an image size from the query. It must lie in [1, MaxDimension].
func dimension(r *http.Request, name string, fallback int) (int, error) {
	v, err := intParam(r, name, fallback)
	if err != nil {
		return 0, err
	}
	if v < 1 || v > MaxDimension {
		return 0, fmt.Errorf("%w: %s must be between 1 and %d, got %d", shared.ErrInvalidArgument, name, MaxDimension, v)
	}
	return v, nil
}

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps an error to the status shown to the browser.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrInvalidTimeRange),
		errors.Is(err, shared.ErrMissingSeeds):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNoTracks):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, shared.ErrTransport),
		errors.Is(err, shared.ErrAPIRequest),
		errors.Is(err, shared.ErrMalformedPayload),
		errors.Is(err, shared.ErrRefreshFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as JSON for API routes and as an HTML page otherwise.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	a.opts.Logger.Warn("request failed", "path", r.URL.Path, "status", status, "error", err, "request_id", RequestID(r.Context()))

	if r.URL.Path == "/dashboard" || strings.HasPrefix(r.URL.Path, "/api/") {
		writeJSON(w, status, errorBody{Error: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	renderPage(w, errorPage, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
