package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/desertthunder/tunemap/internal/services"
	"github.com/desertthunder/tunemap/internal/session"
	"github.com/desertthunder/tunemap/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	if err := shared.LoadEnv(); err != nil {
		logger.Warn("failed to load .env", "error", err)
	}

	configPath := os.Getenv("TUNEMAP_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		}
	}
	if err := config.ApplyEnv(); err != nil {
		logger.Fatalf("invalid environment: %v", err)
	}
	if err := shared.SetLogLevelString(logger, config.Log.Level); err != nil {
		logger.Warn("ignoring log level", "error", err)
	}

	storage, closer, err := session.Open(config)
	if err != nil {
		logger.Fatalf("failed to open session storage: %v", err)
	}
	defer closer.Close()
	store := session.NewStore(storage)

	httpClient := &http.Client{Timeout: config.API.Timeout()}

	var limiter *rate.Limiter
	if config.API.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.API.RateLimit), max(config.API.Burst, 1))
	}

	var service services.Service
	client, err := services.NewClient(services.Options{
		BaseURL:    config.API.BaseURL,
		HTTPClient: httpClient,
		Store:      store,
		Logger:     logger,
		Limiter:    limiter,
		Limit:      config.Graph.RecommendationLimit,
		Market:     config.Graph.Market,
		OnUnauthenticated: func() {
			logger.Warn("session expired, run `tunemap auth login` to sign in again")
		},
	})
	if err != nil {
		logger.Warn("backend client unavailable", "error", err)
	} else {
		service = client
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Store:      store,
		Service:    service,
		HTTPClient: httpClient,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "tunemap",
		Usage:    "Explore recommendation maps built from your playlists",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			return
		}
		closer.Close()
		logger.Fatalf("application error: %v", err)
	}
}
