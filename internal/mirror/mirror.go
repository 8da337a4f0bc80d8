package mirror

import (
	"context"
	"fmt"

	"github.com/desertthunder/mfx/internal/mlflow"
	"github.com/desertthunder/mfx/internal/models"
	"github.com/desertthunder/mfx/internal/registry"
	"github.com/desertthunder/mfx/internal/shared"
)

// RunMirror defines operations for mirroring tracking-server state into dataset registries.
type RunMirror interface {
	// LogRun ensures the experiment record exists for the collection's root
	// dataset, then attaches the run when a run id is given.
	LogRun(ctx context.Context, progress chan<- ProgressUpdate, coll registry.Collection, experimentName, runID string) error

	// EnsureExperimentRecord creates the experiment record if the dataset
	// does not already have one. Existing records are left untouched.
	EnsureExperimentRecord(ctx context.Context, progress chan<- ProgressUpdate, dataset *registry.Dataset, experimentName string) error

	// AttachRunRecord snapshots a run into the registry and links its
	// display name to the parent experiment record.
	AttachRunRecord(ctx context.Context, progress chan<- ProgressUpdate, dataset *registry.Dataset, experimentName, runID string) error

	// ExperimentLinks returns tracking-server URLs for every experiment
	// record in the dataset's registry.
	ExperimentLinks(dataset *registry.Dataset) (*models.LinkList, error)

	// SyncExperiment attaches every run of an experiment in bulk.
	SyncExperiment(ctx context.Context, progress chan<- ProgressUpdate, dataset *registry.Dataset, experimentName string, opts SyncOpts) (*SyncResult, error)
}

// Engine implements RunMirror against a tracking-server client.
// Contains dependencies on the MLflow client and a default tracking URI.
type Engine struct {
	client      mlflow.Client
	trackingURI string
}

// NewEngine creates a new Engine with the provided client.
//
// trackingURI is the URI recorded on new experiment records and used as
// the fallback when building links for records that predate it.
func NewEngine(client mlflow.Client, trackingURI string) *Engine {
	return &Engine{
		client:      client,
		trackingURI: trackingURI,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// LogRun mirrors tracking-server state for a collection.
//
// The registry always belongs to the root dataset; logging against a view
// writes through to the dataset that owns it. An empty runID mirrors the
// experiment alone.
func (e *Engine) LogRun(ctx context.Context, progress chan<- ProgressUpdate, coll registry.Collection, experimentName, runID string) error {
	if coll == nil {
		return fmt.Errorf("%w: collection", shared.ErrMissingArgument)
	}
	if experimentName == "" {
		return fmt.Errorf("%w: experiment name", shared.ErrMissingArgument)
	}

	dataset := coll.Root()

	if err := e.EnsureExperimentRecord(ctx, progress, dataset, experimentName); err != nil {
		return err
	}

	if runID == "" {
		return nil
	}

	return e.AttachRunRecord(ctx, progress, dataset, experimentName, runID)
}

// EnsureExperimentRecord mirrors an experiment into the dataset's registry.
//
// When a record already exists under the experiment name the call is a
// no-op, even if the tracking server has since changed; refreshing an
// experiment record requires re-registration through attachment.
func (e *Engine) EnsureExperimentRecord(ctx context.Context, progress chan<- ProgressUpdate, dataset *registry.Dataset, experimentName string) error {
	if e.client == nil {
		return fmt.Errorf("%w: tracking client not initialized", shared.ErrServiceUnavailable)
	}

	exists, err := dataset.HasRun(experimentName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	e.sendProgress(progress, fetchExperimentUpdate(1, 2, experimentName))

	exp, err := e.client.GetExperimentByName(ctx, experimentName)
	if err != nil {
		return err
	}

	rec := &models.ExperimentRecord{
		Method:           models.MethodExperiment,
		ArtifactLocation: exp.ArtifactLocation,
		CreatedAt:        exp.CreationTime,
		ExperimentName:   exp.Name,
		ExperimentID:     exp.ExperimentID,
		TrackingURI:      e.trackingURI,
		Tags:             exp.TagMap(),
		Runs:             []string{},
	}

	if err := dataset.RegisterRun(rec.Key(), rec); err != nil {
		return err
	}

	e.sendProgress(progress, registerExperimentUpdate(2, 2, rec))
	return nil
}

// AttachRunRecord snapshots a run and links it to its parent experiment record.
//
// The run snapshot is keyed by the normalized display name and overwrites
// any previous snapshot under that key. The parent link appends the raw
// display name only when it is not already linked, so re-attachment
// refreshes the snapshot without duplicating the link.
//
// The experiment record must already exist; callers that cannot guarantee
// that should go through [Engine.LogRun].
func (e *Engine) AttachRunRecord(ctx context.Context, progress chan<- ProgressUpdate, dataset *registry.Dataset, experimentName, runID string) error {
	if e.client == nil {
		return fmt.Errorf("%w: tracking client not initialized", shared.ErrServiceUnavailable)
	}
	if runID == "" {
		return fmt.Errorf("%w: run id", shared.ErrMissingArgument)
	}

	e.sendProgress(progress, fetchRunUpdate(1, 3, runID))

	run, err := e.client.GetRun(ctx, runID)
	if err != nil {
		return err
	}

	rec, err := buildRunRecord(run)
	if err != nil {
		return err
	}

	if err := dataset.RegisterRun(rec.Key(), rec); err != nil {
		return err
	}
	e.sendProgress(progress, registerRunUpdate(2, 3, rec))

	appended, err := linkRunToExperiment(dataset, experimentName, rec.RunName)
	if err != nil {
		return err
	}
	if appended {
		e.sendProgress(progress, linkRunUpdate(3, 3, rec.RunName, experimentName))
	}
	return nil
}

// ExperimentLinks builds tracking-server URLs for every mirrored experiment.
//
// Records stored without a tracking URI fall back to the engine's default.
// The URL list is never nil so callers can serialize an empty registry as
// an empty list.
func (e *Engine) ExperimentLinks(dataset *registry.Dataset) (*models.LinkList, error) {
	infos, err := dataset.ListRunInfos(models.MethodExperiment)
	if err != nil {
		return nil, err
	}

	links := &models.LinkList{URLs: []models.ExperimentLink{}}
	for _, info := range infos {
		rec, ok := info.Config.(*models.ExperimentRecord)
		if !ok {
			return nil, fmt.Errorf("record %q is not an experiment record", info.Key)
		}

		uri := rec.TrackingURI
		if uri == "" {
			uri = e.trackingURI
		}

		links.URLs = append(links.URLs, models.ExperimentLink{
			URL:  fmt.Sprintf("%s/#/experiments/%s", uri, rec.ExperimentID),
			Name: rec.ExperimentName,
		})
	}
	return links, nil
}

// buildRunRecord converts a tracking-server run into its registry record.
func buildRunRecord(run *mlflow.Run) (*models.RunRecord, error) {
	displayName, err := run.DisplayName()
	if err != nil {
		return nil, fmt.Errorf("%w: run %s", err, run.Info.RunID)
	}

	return &models.RunRecord{
		Method:       models.MethodRun,
		RunName:      displayName,
		RunID:        run.Info.RunID,
		RunUUID:      run.Info.RunUUID,
		ExperimentID: run.Info.ExperimentID,
		ArtifactURI:  run.Info.ArtifactURI,
		Metrics:      run.MetricMap(),
		Tags:         run.TagMap(),
	}, nil
}

// linkRunToExperiment appends a run display name to the experiment record's
// run list. Reports whether the name was newly linked.
func linkRunToExperiment(dataset *registry.Dataset, experimentName, displayName string) (bool, error) {
	info, err := dataset.GetRunInfo(experimentName)
	if err != nil {
		return false, fmt.Errorf("experiment record not registered: %w", err)
	}

	expRec, ok := info.Config.(*models.ExperimentRecord)
	if !ok {
		return false, fmt.Errorf("record %q is not an experiment record", experimentName)
	}

	if !expRec.AppendRun(displayName) {
		return false, nil
	}

	if err := dataset.UpdateRunConfig(experimentName, expRec); err != nil {
		return false, err
	}
	return true, nil
}
