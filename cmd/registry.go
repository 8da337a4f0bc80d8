package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/mfx/internal/formatter"
	"github.com/desertthunder/mfx/internal/models"
	"github.com/desertthunder/mfx/internal/shared"
	"github.com/urfave/cli/v3"
)

// RegistryDatasets lists datasets that have a local registry.
func (r *Runner) RegistryDatasets(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	db, store, err := r.openRegistry()
	if err != nil {
		return err
	}
	defer db.Close()

	datasets, err := store.ListDatasets()
	if err != nil {
		return fmt.Errorf("failed to list datasets: %w", err)
	}

	if useJSON {
		return r.writeJSON(datasets, pretty)
	}

	r.writePlain("Datasets: %d\n\n", len(datasets))
	for i, name := range datasets {
		r.writePlain("%d. %s\n", i+1, name)
	}

	return nil
}

// RegistryList lists the record keys in a dataset's registry.
func (r *Runner) RegistryList(ctx context.Context, cmd *cli.Command) error {
	datasetName := cmd.String("dataset")
	method := cmd.String("method")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	if datasetName == "" {
		return fmt.Errorf("%w: --dataset flag is required", shared.ErrMissingArgument)
	}

	db, store, err := r.openRegistry()
	if err != nil {
		return err
	}
	defer db.Close()

	dataset, err := store.GetDataset(datasetName)
	if err != nil {
		return fmt.Errorf("failed to open dataset: %w", err)
	}

	if method != "" {
		infos, err := dataset.ListRunInfos(method)
		if err != nil {
			return fmt.Errorf("failed to list records: %w", err)
		}

		keys := make([]string, 0, len(infos))
		for _, info := range infos {
			keys = append(keys, info.Key)
		}

		if useJSON {
			return r.writeJSON(keys, pretty)
		}

		r.writePlain("Records in '%s' (%s): %d\n\n", datasetName, method, len(keys))
		for i, key := range keys {
			r.writePlain("%d. %s\n", i+1, key)
		}
		return nil
	}

	keys, err := dataset.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	if useJSON {
		return r.writeJSON(keys, pretty)
	}

	r.writePlain("Records in '%s': %d\n\n", datasetName, len(keys))
	for i, key := range keys {
		r.writePlain("%d. %s\n", i+1, key)
	}

	return nil
}

// RegistryShow prints a single registry record.
func (r *Runner) RegistryShow(ctx context.Context, cmd *cli.Command) error {
	datasetName := cmd.String("dataset")
	key := cmd.String("key")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	if datasetName == "" {
		return fmt.Errorf("%w: --dataset flag is required", shared.ErrMissingArgument)
	}
	if key == "" {
		return fmt.Errorf("%w: --key flag is required", shared.ErrMissingArgument)
	}

	db, store, err := r.openRegistry()
	if err != nil {
		return err
	}
	defer db.Close()

	dataset, err := store.GetDataset(datasetName)
	if err != nil {
		return fmt.Errorf("failed to open dataset: %w", err)
	}

	info, err := dataset.GetRunInfo(key)
	if err != nil {
		return fmt.Errorf("failed to read record: %w", err)
	}

	if useJSON {
		return r.writeJSON(info.Config, pretty)
	}

	switch rec := info.Config.(type) {
	case *models.ExperimentRecord:
		r.writePlain("Experiment: %s\n", rec.ExperimentName)
		r.writePlain("  ID: %s\n", rec.ExperimentID)
		r.writePlain("  Tracking URI: %s\n", rec.TrackingURI)
		r.writePlain("  Created: %s\n", shared.FormatMillis(rec.CreatedAt))
		r.writePlain("  Linked runs: %d\n", len(rec.Runs))
		for _, name := range rec.Runs {
			r.writePlain("    - %s\n", name)
		}
	case *models.RunRecord:
		r.writePlain("Run: %s\n", rec.RunName)
		r.writePlain("  ID: %s\n", rec.RunID)
		r.writePlain("  Experiment: %s\n", rec.ExperimentID)
		if rec.ArtifactURI != "" {
			r.writePlain("  Artifacts: %s\n", rec.ArtifactURI)
		}
		for k, v := range rec.Metrics {
			r.writePlain("  %s: %g\n", k, v)
		}
	default:
		return r.writeJSON(info.Config, true)
	}

	return nil
}

// RegistryExport writes a dataset's registry records to a file.
func (r *Runner) RegistryExport(ctx context.Context, cmd *cli.Command) error {
	datasetName := cmd.String("dataset")
	format := cmd.String("format")
	output := cmd.String("output")

	if datasetName == "" {
		return fmt.Errorf("%w: --dataset flag is required", shared.ErrMissingArgument)
	}

	db, store, err := r.openRegistry()
	if err != nil {
		return err
	}
	defer db.Close()

	dataset, err := store.GetDataset(datasetName)
	if err != nil {
		return fmt.Errorf("failed to open dataset: %w", err)
	}

	infos, err := dataset.ListRunInfos("")
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	path, err := formatter.WriteRecordsExport(datasetName, infos, format, output)
	if err != nil {
		return fmt.Errorf("failed to export registry: %w", err)
	}

	r.logger.Infof("exported %v records to %v", len(infos), path)
	r.writePlain("✓ Exported %d records to %s\n", len(infos), path)

	return nil
}

// registryCommand handles reads and exports against local dataset registries
func registryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "registry",
		Usage: "Inspect and export local dataset registries",
		Commands: []*cli.Command{
			{
				Name:  "datasets",
				Usage: "List datasets with a local registry",
				Flags: []cli.Flag{
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
				Action: r.RegistryDatasets,
			},
			{
				Name:  "list",
				Usage: "List record keys in a dataset registry",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "dataset",
						Aliases:  []string{"d"},
						Usage:    "Dataset name",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "method",
						Usage: "Filter by method tag (mlflow_experiment or mlflow_run)",
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
				Action: r.RegistryList,
			},
			{
				Name:  "show",
				Usage: "Show a single registry record",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "dataset",
						Aliases:  []string{"d"},
						Usage:    "Dataset name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "key",
						Aliases:  []string{"k"},
						Usage:    "Registry key",
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
				Action: r.RegistryShow,
			},
			{
				Name:  "export",
				Usage: "Export a dataset registry to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "dataset",
						Aliases:  []string{"d"},
						Usage:    "Dataset name",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: json, csv, or markdown",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
					},
				},
				Action: r.RegistryExport,
			},
		},
	}
}
