package main

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunemap/internal/shared"
	"github.com/desertthunder/tunemap/internal/ui"
	"github.com/urfave/cli/v3"
)

const defaultTUILog = "./tmp/tunemap-tui.log"

// TUI launches the interactive terminal UI.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}

	path := shared.ExpandPath(r.config.Log.File)
	if path == "" {
		path = defaultTUILog
	}
	// Redirect logs to file to avoid interfering with TUI rendering
	w, err := shared.NewFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	defer w.Close()
	r.logger.SetOutput(w)
	r.logger.SetFormatter(log.LogfmtFormatter)
	r.output = io.Discard

	model := ui.NewModel(ctx, ui.Deps{
		Session: r.store,
		Library: r.service,
		Engine:  r.engine,
		Login:   r.login,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
