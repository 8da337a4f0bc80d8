package main

import (
	"context"

	"github.com/desertthunder/mfx/internal/formatter"
	"github.com/desertthunder/mfx/internal/mirror"
	"github.com/desertthunder/mfx/internal/registry"
	"github.com/urfave/cli/v3"
)

// MirrorLog mirrors an experiment (and optionally one run) into a dataset's registry.
func (r *Runner) MirrorLog(ctx context.Context, cmd *cli.Command) error {
	datasetName := cmd.String("dataset")
	experimentName := cmd.String("experiment")
	runID := cmd.String("run-id")
	viewFilter := cmd.String("view")

	if err := r.authenticate(ctx); err != nil {
		return err
	}

	db, store, err := r.openRegistry()
	if err != nil {
		return err
	}
	defer db.Close()

	dataset, err := store.Dataset(datasetName)
	if err != nil {
		return err
	}

	var coll registry.Collection = dataset
	if viewFilter != "" {
		// Logging against a view still writes to the root dataset's registry
		coll = registry.NewView(dataset, viewFilter)
	}

	r.logger.Info("mirroring", "dataset", coll.Name(), "experiment", experimentName, "run", runID)

	progressCh := make(chan mirror.ProgressUpdate, 50)
	go func() {
		for update := range progressCh {
			switch update.Phase {
			case mirror.FetchExperiment, mirror.FetchRun:
				r.writePlain("📥 %s\n", update.Message)
			case mirror.RegisterExperiment, mirror.RegisterRun:
				r.writePlain("📝 %s\n", update.Message)
			case mirror.LinkRun:
				r.writePlain("🔗 %s\n", update.Message)
			}
		}
	}()

	err = r.engine.LogRun(ctx, progressCh, coll, experimentName, runID)
	close(progressCh)

	if err != nil {
		return err
	}

	r.writePlain("\n✓ Mirrored into '%s'\n", dataset.Name())
	return nil
}

// MirrorLinks prints tracking-server URLs for a dataset's mirrored experiments.
func (r *Runner) MirrorLinks(ctx context.Context, cmd *cli.Command) error {
	datasetName := cmd.String("dataset")
	useJSON := cmd.Bool("json")
	save := cmd.Bool("save")
	format := cmd.String("format")
	outputPath := cmd.String("output")

	db, store, err := r.openRegistry()
	if err != nil {
		return err
	}
	defer db.Close()

	dataset, err := store.GetDataset(datasetName)
	if err != nil {
		return err
	}

	links, err := r.engine.ExperimentLinks(dataset)
	if err != nil {
		return err
	}

	if save {
		path, err := formatter.WriteLinksExport(links, format, outputPath)
		if err != nil {
			return err
		}
		r.logger.Info("links saved", "file", path)
		r.writePlain("✓ Links saved to %s\n", path)
		return nil
	}

	if useJSON {
		return r.writeJSON(links, true)
	}

	r.output.Write(formatter.ExportLinksToText(links))
	return nil
}

// MirrorSync bulk-attaches every run of an experiment into a dataset's registry.
func (r *Runner) MirrorSync(ctx context.Context, cmd *cli.Command) error {
	datasetName := cmd.String("dataset")
	experimentName := cmd.String("experiment")
	workers := cmd.Int("workers")
	rateLimit := cmd.Float("rate")

	if err := r.authenticate(ctx); err != nil {
		return err
	}

	db, store, err := r.openRegistry()
	if err != nil {
		return err
	}
	defer db.Close()

	dataset, err := store.Dataset(datasetName)
	if err != nil {
		return err
	}

	r.logger.Info("syncing experiment", "dataset", datasetName, "experiment", experimentName)
	r.writePlain("Syncing experiment '%s' into '%s'...\n\n", experimentName, datasetName)

	progressCh := make(chan mirror.ProgressUpdate, 50)
	go func() {
		for update := range progressCh {
			switch update.Phase {
			case mirror.SearchRuns:
				r.writePlain("🔍 %s\n", update.Message)
			case mirror.RegisterRun:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()

	result, err := r.engine.SyncExperiment(ctx, progressCh, dataset, experimentName, mirror.SyncOpts{
		NumWorkers: int(workers),
		RateLimit:  rateLimit,
	})
	close(progressCh)

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Sync Complete!")
	r.writePlain("Experiment: %s\n", result.ExperimentName)
	r.writePlain("Attached: %d/%d runs\n", result.AttachedRuns, result.TotalRuns)

	if result.FailedRuns > 0 {
		r.writePlain("\nFailed to attach %d runs:\n", result.FailedRuns)
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  - %s: %v\n", res.RunID, res.Error)
			}
		}
	}

	return nil
}

// mirrorCommand handles mirroring operations between the tracking server and dataset registries
func mirrorCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "mirror",
		Usage: "Mirror experiments and runs into dataset registries",
		Commands: []*cli.Command{
			{
				Name:  "log",
				Usage: "Mirror an experiment, and optionally one run, into a dataset",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "dataset",
						Aliases:  []string{"d"},
						Usage:    "Dataset whose registry receives the records",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "experiment",
						Aliases:  []string{"e"},
						Usage:    "Experiment display name on the tracking server",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "run-id",
						Usage: "Run ID to attach (omit to mirror the experiment alone)",
					},
					&cli.StringFlag{
						Name:  "view",
						Usage: "View filter expression (records still land on the root dataset)",
					},
				},
				Action: r.MirrorLog,
			},
			{
				Name:  "links",
				Usage: "List tracking-server URLs for a dataset's experiments",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "dataset",
						Aliases:  []string{"d"},
						Usage:    "Dataset to read",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Save links to a file",
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Export format: json, csv, txt",
						Value: "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
					},
				},
				Action: r.MirrorLinks,
			},
			{
				Name:  "sync",
				Usage: "Bulk-attach every run of an experiment",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "dataset",
						Aliases:  []string{"d"},
						Usage:    "Dataset whose registry receives the records",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "experiment",
						Aliases:  []string{"e"},
						Usage:    "Experiment display name on the tracking server",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent fetch workers",
						Value: 5,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Requests per second against the tracking server",
						Value: 5.0,
					},
				},
				Action: r.MirrorSync,
			},
		},
	}
}
