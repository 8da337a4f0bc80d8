package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/desertthunder/mfx/internal/shared"
	"github.com/urfave/cli/v3"
)

// MLflowExperiment fetches a single experiment from the tracking server by name.
func (r *Runner) MLflowExperiment(ctx context.Context, cmd *cli.Command) error {
	name := cmd.String("name")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	if name == "" {
		return fmt.Errorf("%w: --name flag is required", shared.ErrMissingArgument)
	}

	if r.client == nil {
		return fmt.Errorf("%w: tracking client not initialized", shared.ErrServiceUnavailable)
	}

	if err := r.authenticate(ctx); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	r.logger.Infof("fetching experiment %v", name)

	exp, err := r.client.GetExperimentByName(ctx, name)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if useJSON {
		return r.writeJSON(exp, pretty)
	}

	r.writePlain("Experiment: %s\n", exp.Name)
	r.writePlain("  ID: %s\n", exp.ExperimentID)
	r.writePlain("  Stage: %s\n", exp.LifecycleStage)
	if exp.ArtifactLocation != "" {
		r.writePlain("  Artifacts: %s\n", exp.ArtifactLocation)
	}
	r.writePlain("  Created: %s\n", shared.FormatMillis(exp.CreationTime))

	tags := exp.TagMap()
	if len(tags) > 0 {
		r.writePlain("  Tags:\n")
		keys := make([]string, 0, len(tags))
		for k := range tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			r.writePlain("    %s: %s\n", k, tags[k])
		}
	}

	return nil
}

// MLflowRun fetches a single run from the tracking server by ID.
func (r *Runner) MLflowRun(ctx context.Context, cmd *cli.Command) error {
	runID := cmd.String("id")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	if runID == "" {
		return fmt.Errorf("%w: --id flag is required", shared.ErrMissingArgument)
	}

	if r.client == nil {
		return fmt.Errorf("%w: tracking client not initialized", shared.ErrServiceUnavailable)
	}

	if err := r.authenticate(ctx); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	r.logger.Infof("fetching run %v", runID)

	run, err := r.client.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if useJSON {
		return r.writeJSON(run, pretty)
	}

	name, err := run.DisplayName()
	if err != nil {
		name = "(unnamed)"
	}

	r.writePlain("Run: %s\n", name)
	r.writePlain("  ID: %s\n", run.Info.RunID)
	r.writePlain("  Experiment: %s\n", run.Info.ExperimentID)
	r.writePlain("  Status: %s\n", run.Info.Status)
	r.writePlain("  Started: %s\n", shared.FormatMillis(run.Info.StartTime))

	metrics := run.MetricMap()
	if len(metrics) > 0 {
		r.writePlain("  Metrics:\n")
		keys := make([]string, 0, len(metrics))
		for k := range metrics {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			r.writePlain("    %s: %g\n", k, metrics[k])
		}
	}

	return nil
}

// MLflowSearchExperiments lists experiments on the tracking server with optional limit.
func (r *Runner) MLflowSearchExperiments(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")
	save := cmd.Bool("save")

	if r.client == nil {
		return fmt.Errorf("%w: tracking client not initialized", shared.ErrServiceUnavailable)
	}

	if err := r.authenticate(ctx); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	r.logger.Infof("searching experiments with limit %v", limit)

	experiments, err := r.client.SearchExperiments(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if limit > 0 && int(limit) < len(experiments) {
		experiments = experiments[:limit]
	}

	if save {
		saveFile := "mlflow_experiments.json"
		data, err := shared.MarshalJSON(experiments, true)
		if err != nil {
			return fmt.Errorf("failed to marshal experiments: %w", err)
		}
		if err := os.WriteFile(saveFile, data, 0644); err != nil {
			r.logger.Warn("failed to save experiments", "error", err)
		} else {
			r.logger.Info("experiments saved", "file", saveFile)
		}
	}

	if useJSON {
		return r.writeJSON(experiments, pretty)
	}

	r.writePlain("Found %d experiments:\n\n", len(experiments))
	for i, exp := range experiments {
		r.writePlain("%d. %s\n", i+1, exp.Name)
		r.writePlain("   ID: %s\n", exp.ExperimentID)
		r.writePlain("   Stage: %s\n", exp.LifecycleStage)
		r.writePlain("   Created: %s\n", shared.FormatMillis(exp.CreationTime))
		r.writePlain("\n")
	}

	return nil
}

// MLflowSearchRuns lists runs belonging to an experiment on the tracking server.
func (r *Runner) MLflowSearchRuns(ctx context.Context, cmd *cli.Command) error {
	experimentID := cmd.String("experiment-id")
	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	if experimentID == "" {
		return fmt.Errorf("%w: --experiment-id flag is required", shared.ErrMissingArgument)
	}

	if r.client == nil {
		return fmt.Errorf("%w: tracking client not initialized", shared.ErrServiceUnavailable)
	}

	if err := r.authenticate(ctx); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	r.logger.Infof("searching runs for experiment %v", experimentID)

	runs, err := r.client.SearchRuns(ctx, experimentID)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if limit > 0 && int(limit) < len(runs) {
		runs = runs[:limit]
	}

	if useJSON {
		return r.writeJSON(runs, pretty)
	}

	r.writePlain("Found %d runs:\n\n", len(runs))
	for i, run := range runs {
		name, err := run.DisplayName()
		if err != nil {
			name = "(unnamed)"
		}
		r.writePlain("%d. %s\n", i+1, name)
		r.writePlain("   ID: %s\n", run.Info.RunID)
		r.writePlain("   Status: %s\n", run.Info.Status)
		r.writePlain("   Started: %s\n", shared.FormatMillis(run.Info.StartTime))
		r.writePlain("\n")
	}

	return nil
}

// mlflowCommand handles direct reads against the tracking server
func mlflowCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "mlflow",
		Usage: "Inspect experiments and runs on the tracking server",
		Commands: []*cli.Command{
			{
				Name:  "experiment",
				Usage: "Fetch an experiment by name",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Aliases:  []string{"n"},
						Usage:    "Experiment name",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
						Value: true,
					},
				},
				Action: r.MLflowExperiment,
			},
			{
				Name:  "run",
				Usage: "Fetch a run by ID",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Run ID",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
						Value: true,
					},
				},
				Action: r.MLflowRun,
			},
			{
				Name:  "experiments",
				Usage: "List experiments on the tracking server",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of experiments to show",
						Value: 50,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
						Value: true,
					},
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Save results to mlflow_experiments.json",
					},
				},
				Action: r.MLflowSearchExperiments,
			},
			{
				Name:  "runs",
				Usage: "List runs for an experiment",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "experiment-id",
						Aliases:  []string{"e"},
						Usage:    "Experiment ID to search",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 50,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
						Value: true,
					},
				},
				Action: r.MLflowSearchRuns,
			},
		},
	}
}
