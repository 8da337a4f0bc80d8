// package models defines the data model for the run mirror service
package models

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/desertthunder/mfx/internal/shared"
)

// Method tags discriminate the two mirrored record kinds in a registry.
const (
	MethodExperiment = "mlflow_experiment"
	MethodRun        = "mlflow_run"
)

// RecordConfig is the interface implemented by all mirrored record kinds.
//
// A record knows its method tag and the registry key it is stored under.
type RecordConfig interface {
	RecordMethod() string // RecordMethod returns the method tag discriminating the record kind
	Key() string          // Key returns the registry key the record is stored under
	Validate() error      // Validate checks required fields and returns an error if any are missing
}

// ExperimentRecord mirrors one MLflow experiment into a dataset registry.
//
// The registry key is the experiment name. Runs holds the raw display
// names of runs attached so far and is the only field that mutates after
// creation.
type ExperimentRecord struct {
	Method           string            `json:"method"`
	ArtifactLocation string            `json:"artifact_location"`
	CreatedAt        int64             `json:"created_at"` // Creation time in epoch millis, as reported by the tracking server
	ExperimentName   string            `json:"experiment_name"`
	ExperimentID     string            `json:"experiment_id"`
	TrackingURI      string            `json:"tracking_uri"`
	Tags             map[string]string `json:"tags"`
	Runs             []string          `json:"runs"`
}

func (r *ExperimentRecord) RecordMethod() string { return MethodExperiment }

// Key returns the registry key, which for experiments is the experiment name.
func (r *ExperimentRecord) Key() string { return r.ExperimentName }

// Validate checks that the record carries its method tag and identifying fields.
func (r *ExperimentRecord) Validate() error {
	if r.Method != MethodExperiment {
		return fmt.Errorf("invalid method tag %q for experiment record", r.Method)
	}
	if r.ExperimentName == "" {
		return fmt.Errorf("experiment record missing experiment_name")
	}
	if r.ExperimentID == "" {
		return fmt.Errorf("experiment record missing experiment_id")
	}
	return nil
}

// HasRun reports whether the given run display name is already linked.
func (r *ExperimentRecord) HasRun(displayName string) bool {
	return slices.Contains(r.Runs, displayName)
}

// AppendRun links a run display name to the experiment if not already present.
//
// Returns true if the name was appended. Keeping the append conditional
// makes run attachment idempotent at the parent-link level.
func (r *ExperimentRecord) AppendRun(displayName string) bool {
	if r.HasRun(displayName) {
		return false
	}
	r.Runs = append(r.Runs, displayName)
	return true
}

// RunRecord mirrors one MLflow run into a dataset registry.
//
// The registry key is the normalized run display name. Metrics and tags
// are snapshots taken at attach time.
type RunRecord struct {
	Method       string             `json:"method"`
	RunName      string             `json:"run_name"` // Original display name, before normalization
	RunID        string             `json:"run_id"`
	RunUUID      string             `json:"run_uuid"`
	ExperimentID string             `json:"experiment_id"`
	ArtifactURI  string             `json:"artifact_uri"`
	Metrics      map[string]float64 `json:"metrics"`
	Tags         map[string]string  `json:"tags"`
}

func (r *RunRecord) RecordMethod() string { return MethodRun }

// Key returns the registry key, the hyphen-free form of the display name.
func (r *RunRecord) Key() string { return shared.NormalizeRunKey(r.RunName) }

// Validate checks that the record carries its method tag and identifying fields.
func (r *RunRecord) Validate() error {
	if r.Method != MethodRun {
		return fmt.Errorf("invalid method tag %q for run record", r.Method)
	}
	if r.RunName == "" {
		return fmt.Errorf("run record missing run_name")
	}
	if r.RunID == "" {
		return fmt.Errorf("run record missing run_id")
	}
	return nil
}

// EncodeConfig serializes a record for registry storage.
func EncodeConfig(cfg RecordConfig) ([]byte, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s record: %w", cfg.RecordMethod(), err)
	}
	return data, nil
}

// DecodeConfig restores a concrete record from its method tag and stored JSON.
func DecodeConfig(method string, data []byte) (RecordConfig, error) {
	switch method {
	case MethodExperiment:
		var rec ExperimentRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode experiment record: %w", err)
		}
		return &rec, nil
	case MethodRun:
		var rec RunRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode run record: %w", err)
		}
		return &rec, nil
	default:
		return nil, fmt.Errorf("unknown record method %q", method)
	}
}

// ExperimentLink pairs an experiment's display name with its tracking server URL.
type ExperimentLink struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// LinkList is the URL listing returned to UI layers and operators.
type LinkList struct {
	URLs []ExperimentLink `json:"urls"`
}
