package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/mfx/internal/shared"
	"github.com/desertthunder/mfx/internal/ui"
	"github.com/urfave/cli/v3"
)

// Panel launches the interactive terminal panel for browsing mirrored experiments.
func (r *Runner) Panel(ctx context.Context, cmd *cli.Command) error {
	datasetName := cmd.String("dataset")
	if datasetName == "" {
		return fmt.Errorf("%w: --dataset flag is required", shared.ErrMissingArgument)
	}

	if r.engine == nil {
		return fmt.Errorf("%w: mirror engine not initialized", shared.ErrServiceUnavailable)
	}

	// Redirect logs to file to avoid interfering with panel rendering
	fileLogger, err := shared.NewFileLogger("./tmp/mfx-panel.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.logger = fileLogger

	db, store, err := r.openRegistry()
	if err != nil {
		return err
	}
	defer db.Close()

	dataset, err := store.GetDataset(datasetName)
	if err != nil {
		return fmt.Errorf("failed to open dataset: %w", err)
	}

	model := ui.NewModel(ctx, dataset, r.engine)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running panel: %w", err)
	}

	return nil
}

// panelCommand launches the terminal panel
func panelCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "panel",
		Usage: "Browse mirrored experiments in an interactive panel",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "dataset",
				Aliases:  []string{"d"},
				Usage:    "Dataset whose registry to browse",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Panel,
	}
}
