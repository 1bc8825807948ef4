package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/tunemap/internal/render"
	"github.com/desertthunder/tunemap/internal/server"
	"github.com/urfave/cli/v3"
)

// newApp wires the web server to the runner's session, backend client and map engine.
func (r *Runner) newApp() (*server.App, error) {
	if err := r.requireService(); err != nil {
		return nil, err
	}
	return server.New(server.Options{
		Store:    r.store,
		Auth:     r.service,
		Library:  r.service,
		Engine:   r.engine,
		Painter:  render.NewPainter(render.NewCoverLoader(r.httpClient, r.logger)),
		Logger:   r.logger,
		Width:    r.config.Graph.Width,
		Height:   r.config.Graph.Height,
		Distance: r.config.Graph.LinkDistance,
	})
}

// Serve runs the local web server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	app, err := r.newApp()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := r.config.Server.Addr()
	url := "http://" + addr + "/"
	r.writePlain("→ Serving tunemap on %s (Ctrl+C to stop)\n", url)
	if cmd.Bool("open") {
		if err := r.openBrowser(url); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
		}
	}

	if err := app.Serve(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	r.logger.Info("server stopped")
	return nil
}
