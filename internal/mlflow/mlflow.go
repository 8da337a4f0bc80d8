// package mlflow defines interface Client for interacting with MLflow tracking servers
package mlflow

import (
	"context"

	"github.com/desertthunder/mfx/internal/shared"
)

// RunNameTag is the system tag MLflow stores a run's display name under.
const RunNameTag = "mlflow.runName"

// Client defines the interface for experiment tracking backends that the run mirror reads from.
type Client interface {
	// Authenticate configures credentials for subsequent requests.
	// Returns an error if the credentials are malformed.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// GetExperimentByName retrieves experiment metadata by display name.
	GetExperimentByName(ctx context.Context, name string) (*Experiment, error)

	// GetRun retrieves a single run by its tracking-server id.
	GetRun(ctx context.Context, runID string) (*Run, error)

	// SearchExperiments retrieves all active experiments on the server.
	SearchExperiments(ctx context.Context) ([]Experiment, error)

	// SearchRuns retrieves all runs belonging to the given experiment.
	SearchRuns(ctx context.Context, experimentID string) ([]Run, error)

	// Name returns the name of the backend (e.g., "MLflow")
	Name() string
}

// ExperimentTag is a key/value tag attached to an experiment.
type ExperimentTag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Experiment represents an MLflow experiment.
type Experiment struct {
	ExperimentID     string          `json:"experiment_id"`
	Name             string          `json:"name"`
	ArtifactLocation string          `json:"artifact_location"`
	LifecycleStage   string          `json:"lifecycle_stage"`
	CreationTime     int64           `json:"creation_time"` // Epoch millis
	LastUpdateTime   int64           `json:"last_update_time"`
	Tags             []ExperimentTag `json:"tags"`
}

// TagMap flattens the experiment's tag list into a map.
func (e *Experiment) TagMap() map[string]string {
	tags := make(map[string]string, len(e.Tags))
	for _, t := range e.Tags {
		tags[t.Key] = t.Value
	}
	return tags
}

// RunInfo holds a run's identity and lifecycle fields.
type RunInfo struct {
	RunID          string `json:"run_id"`
	RunUUID        string `json:"run_uuid"` // Deprecated alias of RunID, still reported by the API
	RunName        string `json:"run_name"`
	ExperimentID   string `json:"experiment_id"`
	Status         string `json:"status"`
	StartTime      int64  `json:"start_time"`
	EndTime        int64  `json:"end_time"`
	ArtifactURI    string `json:"artifact_uri"`
	LifecycleStage string `json:"lifecycle_stage"`
}

// Metric is the latest logged value for one metric key.
type Metric struct {
	Key       string  `json:"key"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"`
	Step      int64   `json:"step"`
}

// Param is a logged hyperparameter.
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RunTag is a key/value tag attached to a run.
type RunTag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RunData holds a run's logged metrics, params, and tags.
type RunData struct {
	Metrics []Metric `json:"metrics"`
	Params  []Param  `json:"params"`
	Tags    []RunTag `json:"tags"`
}

// Run represents an MLflow run.
type Run struct {
	Info RunInfo `json:"info"`
	Data RunData `json:"data"`
}

// TagMap flattens the run's tag list into a map.
func (r *Run) TagMap() map[string]string {
	tags := make(map[string]string, len(r.Data.Tags))
	for _, t := range r.Data.Tags {
		tags[t.Key] = t.Value
	}
	return tags
}

// MetricMap flattens the run's metrics into a map of latest values.
func (r *Run) MetricMap() map[string]float64 {
	metrics := make(map[string]float64, len(r.Data.Metrics))
	for _, m := range r.Data.Metrics {
		metrics[m.Key] = m.Value
	}
	return metrics
}

// DisplayName returns the run's display name from its mlflow.runName tag.
//
// Runs logged without the tag cannot be mirrored; the error carries
// [shared.ErrMissingRunName].
func (r *Run) DisplayName() (string, error) {
	for _, t := range r.Data.Tags {
		if t.Key == RunNameTag && t.Value != "" {
			return t.Value, nil
		}
	}
	return "", shared.ErrMissingRunName
}
