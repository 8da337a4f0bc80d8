package mirror

import (
	"fmt"

	"github.com/desertthunder/mfx/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchExperiment Phase = iota
	RegisterExperiment
	SearchRuns
	FetchRun
	RegisterRun
	LinkRun
)

func (p Phase) String() string {
	switch p {
	case FetchExperiment:
		return "fetch_experiment"
	case RegisterExperiment:
		return "register_experiment"
	case SearchRuns:
		return "search_runs"
	case FetchRun:
		return "fetch_run"
	case RegisterRun:
		return "register_run"
	case LinkRun:
		return "link_run"
	default:
		return ""
	}
}

func fetchExperimentUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchExperiment,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching experiment (%s)...", name),
	}
}

func registerExperimentUpdate(step, total int, rec *models.ExperimentRecord) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RegisterExperiment,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Experiment registered: %s (ID: %s)", rec.ExperimentName, rec.ExperimentID),
		Data:    rec,
	}
}

func searchRunsUpdate(step, total int, experimentID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchRuns,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Searching runs in experiment %s...", experimentID),
	}
}

func fetchRunUpdate(step, total int, runID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchRun,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching run %s...", step, total, runID),
	}
}

func registerRunUpdate(step, total int, rec *models.RunRecord) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RegisterRun,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Run registered: %s", step, total, rec.RunName),
		Data:    rec,
	}
}

func linkRunUpdate(step, total int, displayName, experimentName string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LinkRun,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Linked %s to %s", displayName, experimentName),
	}
}

func attachFailedUpdate(step, total int, runID string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RegisterRun,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, runID, err),
	}
}
