package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunemap/internal/graph"
	"github.com/desertthunder/tunemap/internal/services"
	"github.com/desertthunder/tunemap/internal/session"
	"github.com/desertthunder/tunemap/internal/shared"
	"github.com/desertthunder/tunemap/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const defaultLoginTimeout = 2 * time.Minute

// Refresher is implemented by services that can renew the access token on demand.
type Refresher interface {
	RefreshAccessToken(ctx context.Context) (*oauth2.Token, error)
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config       *shared.Config
	configPath   string
	store        *session.Store
	service      services.Service
	httpClient   *http.Client
	logger       *log.Logger
	output       io.Writer
	graphs       *graph.Store
	engine       *tasks.MapEngine
	openBrowser  func(string) error
	loginTimeout time.Duration
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Store      *session.Store
	Service    services.Service
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer

	// OpenBrowser defaults to [shared.OpenBrowser].
	OpenBrowser  func(string) error
	LoginTimeout time.Duration
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Store == nil {
		opts.Store = session.NewStore(session.NewMemoryStorage())
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}
	if opts.LoginTimeout <= 0 {
		opts.LoginTimeout = defaultLoginTimeout
	}

	graphs := graph.NewStore()
	var engine *tasks.MapEngine
	if opts.Service != nil {
		engine = tasks.NewMapEngine(opts.Service, graphs, opts.Logger, tasks.MapOptions{
			Limit:    opts.Config.Graph.RecommendationLimit,
			Market:   opts.Config.Graph.Market,
			Distance: opts.Config.Graph.LinkDistance,
		})
	}

	return &Runner{
		config:       opts.Config,
		configPath:   opts.ConfigPath,
		store:        opts.Store,
		service:      opts.Service,
		httpClient:   opts.HTTPClient,
		logger:       opts.Logger,
		output:       opts.Output,
		graphs:       graphs,
		engine:       engine,
		openBrowser:  opts.OpenBrowser,
		loginTimeout: opts.LoginTimeout,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, libraryCommand, mapCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// requireService fails when the backend client could not be built from config.
func (r *Runner) requireService() error {
	if r.service == nil || r.engine == nil {
		return fmt.Errorf("%w: backend client not initialized", shared.ErrServiceUnavailable)
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
