package mirror

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/desertthunder/mfx/internal/mlflow"
	"github.com/desertthunder/mfx/internal/models"
	"github.com/desertthunder/mfx/internal/registry"
	"github.com/desertthunder/mfx/internal/shared"
	tu "github.com/desertthunder/mfx/internal/testing"
)

type mockClient struct {
	name               string
	experiments        map[string]*mlflow.Experiment
	runs               map[string]*mlflow.Run
	searchRunResults   map[string][]mlflow.Run
	authenticateErr    error
	getExperimentErr   error
	getRunErr          error
	searchRunsErr      error
	getExperimentCalls int
	getRunCalls        int
}

func (m *mockClient) Name() string {
	return m.name
}

func (m *mockClient) Authenticate(ctx context.Context, credentials map[string]string) error {
	return m.authenticateErr
}

func (m *mockClient) GetExperimentByName(ctx context.Context, name string) (*mlflow.Experiment, error) {
	m.getExperimentCalls++
	if m.getExperimentErr != nil {
		return nil, m.getExperimentErr
	}
	if exp, ok := m.experiments[name]; ok {
		return exp, nil
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrExperimentNotFound, name)
}

func (m *mockClient) GetRun(ctx context.Context, runID string) (*mlflow.Run, error) {
	m.getRunCalls++
	if m.getRunErr != nil {
		return nil, m.getRunErr
	}
	if run, ok := m.runs[runID]; ok {
		return run, nil
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrRunNotFound, runID)
}

func (m *mockClient) SearchExperiments(ctx context.Context) ([]mlflow.Experiment, error) {
	exps := make([]mlflow.Experiment, 0, len(m.experiments))
	for _, e := range m.experiments {
		exps = append(exps, *e)
	}
	return exps, nil
}

func (m *mockClient) SearchRuns(ctx context.Context, experimentID string) ([]mlflow.Run, error) {
	if m.searchRunsErr != nil {
		return nil, m.searchRunsErr
	}
	return m.searchRunResults[experimentID], nil
}

// newTestDataset creates a dataset backed by an in-memory registry database.
func newTestDataset(t *testing.T) (*registry.Dataset, *sql.DB) {
	t.Helper()

	db := tu.MustOpenDB(t)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	ds, err := registry.NewStore(db).Dataset("quickstart")
	if err != nil {
		db.Close()
		t.Fatalf("failed to create dataset: %v", err)
	}
	return ds, db
}

func testExperiment(name, id string) *mlflow.Experiment {
	return &mlflow.Experiment{
		ExperimentID:     id,
		Name:             name,
		ArtifactLocation: "s3://bucket/" + id,
		LifecycleStage:   "active",
		CreationTime:     1700000000000,
		Tags:             []mlflow.ExperimentTag{{Key: "team", Value: "vision"}},
	}
}

func testRun(runID, experimentID, displayName string) *mlflow.Run {
	tags := []mlflow.RunTag{}
	if displayName != "" {
		tags = append(tags, mlflow.RunTag{Key: mlflow.RunNameTag, Value: displayName})
	}
	return &mlflow.Run{
		Info: mlflow.RunInfo{
			RunID:        runID,
			RunUUID:      runID,
			RunName:      displayName,
			ExperimentID: experimentID,
			Status:       "FINISHED",
			ArtifactURI:  "s3://bucket/" + experimentID + "/" + runID,
		},
		Data: mlflow.RunData{
			Metrics: []mlflow.Metric{{Key: "accuracy", Value: 0.97}},
			Tags:    tags,
		},
	}
}

func TestEngine_EnsureExperimentRecord(t *testing.T) {
	ctx := context.Background()

	t.Run("creates record from tracking server", func(t *testing.T) {
		ds, db := newTestDataset(t)
		defer db.Close()

		client := &mockClient{
			name:        "MLflow",
			experiments: map[string]*mlflow.Experiment{"clf": testExperiment("clf", "42")},
		}
		engine := NewEngine(client, "http://localhost:8080")

		if err := engine.EnsureExperimentRecord(ctx, nil, ds, "clf"); err != nil {
			t.Fatalf("failed to ensure experiment record: %v", err)
		}

		info, err := ds.GetRunInfo("clf")
		if err != nil {
			t.Fatalf("failed to get record: %v", err)
		}
		rec, ok := info.Config.(*models.ExperimentRecord)
		if !ok {
			t.Fatalf("expected experiment record, got %T", info.Config)
		}
		if rec.ExperimentID != "42" {
			t.Errorf("expected experiment id 42, got %s", rec.ExperimentID)
		}
		if rec.TrackingURI != "http://localhost:8080" {
			t.Errorf("expected tracking uri recorded, got %s", rec.TrackingURI)
		}
		if rec.CreatedAt != 1700000000000 {
			t.Errorf("expected creation time from server, got %d", rec.CreatedAt)
		}
		if rec.Tags["team"] != "vision" {
			t.Errorf("expected tags copied, got %v", rec.Tags)
		}
		if rec.Runs == nil || len(rec.Runs) != 0 {
			t.Errorf("expected empty runs list, got %v", rec.Runs)
		}
	})

	t.Run("is a no-op when record exists", func(t *testing.T) {
		ds, db := newTestDataset(t)
		defer db.Close()

		client := &mockClient{
			experiments: map[string]*mlflow.Experiment{"clf": testExperiment("clf", "42")},
		}
		engine := NewEngine(client, "http://localhost:8080")

		if err := engine.EnsureExperimentRecord(ctx, nil, ds, "clf"); err != nil {
			t.Fatalf("first ensure failed: %v", err)
		}
		if err := engine.EnsureExperimentRecord(ctx, nil, ds, "clf"); err != nil {
			t.Fatalf("second ensure failed: %v", err)
		}

		if client.getExperimentCalls != 1 {
			t.Errorf("expected 1 server fetch, got %d", client.getExperimentCalls)
		}
	})

	t.Run("propagates experiment not found", func(t *testing.T) {
		ds, db := newTestDataset(t)
		defer db.Close()

		engine := NewEngine(&mockClient{experiments: map[string]*mlflow.Experiment{}}, "http://localhost:8080")

		err := engine.EnsureExperimentRecord(ctx, nil, ds, "missing")
		if !errors.Is(err, shared.ErrExperimentNotFound) {
			t.Errorf("expected ErrExperimentNotFound, got %v", err)
		}
	})

	t.Run("requires a client", func(t *testing.T) {
		ds, db := newTestDataset(t)
		defer db.Close()

		engine := NewEngine(nil, "http://localhost:8080")

		err := engine.EnsureExperimentRecord(ctx, nil, ds, "clf")
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestEngine_AttachRunRecord(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*Engine, *mockClient, *registry.Dataset, *sql.DB) {
		t.Helper()
		ds, db := newTestDataset(t)
		client := &mockClient{
			experiments: map[string]*mlflow.Experiment{"clf": testExperiment("clf", "42")},
			runs: map[string]*mlflow.Run{
				"abc123": testRun("abc123", "42", "brave-finch-1"),
			},
		}
		engine := NewEngine(client, "http://localhost:8080")
		if err := engine.EnsureExperimentRecord(ctx, nil, ds, "clf"); err != nil {
			db.Close()
			t.Fatalf("failed to ensure experiment: %v", err)
		}
		return engine, client, ds, db
	}

	t.Run("registers snapshot under normalized key and links parent", func(t *testing.T) {
		engine, _, ds, db := setup(t)
		defer db.Close()

		if err := engine.AttachRunRecord(ctx, nil, ds, "clf", "abc123"); err != nil {
			t.Fatalf("failed to attach run: %v", err)
		}

		info, err := ds.GetRunInfo("brave_finch_1")
		if err != nil {
			t.Fatalf("run record not found under normalized key: %v", err)
		}
		rec, ok := info.Config.(*models.RunRecord)
		if !ok {
			t.Fatalf("expected run record, got %T", info.Config)
		}
		if rec.RunName != "brave-finch-1" {
			t.Errorf("expected original display name preserved, got %s", rec.RunName)
		}
		if rec.Metrics["accuracy"] != 0.97 {
			t.Errorf("expected metrics snapshot, got %v", rec.Metrics)
		}

		parent, err := ds.GetRunInfo("clf")
		if err != nil {
			t.Fatalf("failed to get experiment record: %v", err)
		}
		expRec := parent.Config.(*models.ExperimentRecord)
		if len(expRec.Runs) != 1 || expRec.Runs[0] != "brave-finch-1" {
			t.Errorf("expected raw display name linked, got %v", expRec.Runs)
		}
	})

	t.Run("re-attachment refreshes snapshot without duplicating link", func(t *testing.T) {
		engine, client, ds, db := setup(t)
		defer db.Close()

		if err := engine.AttachRunRecord(ctx, nil, ds, "clf", "abc123"); err != nil {
			t.Fatalf("first attach failed: %v", err)
		}

		client.runs["abc123"].Data.Metrics = []mlflow.Metric{{Key: "accuracy", Value: 0.99}}
		if err := engine.AttachRunRecord(ctx, nil, ds, "clf", "abc123"); err != nil {
			t.Fatalf("second attach failed: %v", err)
		}

		info, err := ds.GetRunInfo("brave_finch_1")
		if err != nil {
			t.Fatalf("failed to get run record: %v", err)
		}
		if got := info.Config.(*models.RunRecord).Metrics["accuracy"]; got != 0.99 {
			t.Errorf("expected refreshed snapshot, got accuracy %v", got)
		}

		parent, _ := ds.GetRunInfo("clf")
		if runs := parent.Config.(*models.ExperimentRecord).Runs; len(runs) != 1 {
			t.Errorf("expected single link after re-attach, got %v", runs)
		}
	})

	t.Run("fails when run has no display name tag", func(t *testing.T) {
		engine, client, ds, db := setup(t)
		defer db.Close()

		client.runs["nameless"] = testRun("nameless", "42", "")

		err := engine.AttachRunRecord(ctx, nil, ds, "clf", "nameless")
		if !errors.Is(err, shared.ErrMissingRunName) {
			t.Errorf("expected ErrMissingRunName, got %v", err)
		}
	})

	t.Run("propagates run not found", func(t *testing.T) {
		engine, _, ds, db := setup(t)
		defer db.Close()

		err := engine.AttachRunRecord(ctx, nil, ds, "clf", "ghost")
		if !errors.Is(err, shared.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("fails when experiment record is missing", func(t *testing.T) {
		ds, db := newTestDataset(t)
		defer db.Close()

		client := &mockClient{
			runs: map[string]*mlflow.Run{"abc123": testRun("abc123", "42", "brave-finch-1")},
		}
		engine := NewEngine(client, "http://localhost:8080")

		err := engine.AttachRunRecord(ctx, nil, ds, "clf", "abc123")
		if !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound, got %v", err)
		}
	})

	t.Run("requires a run id", func(t *testing.T) {
		engine, _, ds, db := setup(t)
		defer db.Close()

		err := engine.AttachRunRecord(ctx, nil, ds, "clf", "")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestEngine_LogRun(t *testing.T) {
	ctx := context.Background()

	t.Run("ensures and attaches through a view", func(t *testing.T) {
		ds, db := newTestDataset(t)
		defer db.Close()

		client := &mockClient{
			experiments: map[string]*mlflow.Experiment{"clf": testExperiment("clf", "42")},
			runs:        map[string]*mlflow.Run{"abc123": testRun("abc123", "42", "brave-finch-1")},
		}
		engine := NewEngine(client, "http://localhost:8080")

		view := registry.NewView(ds, "label == 'cat'")
		if err := engine.LogRun(ctx, nil, view, "clf", "abc123"); err != nil {
			t.Fatalf("failed to log run: %v", err)
		}

		// Records land in the root dataset's registry, not in the view.
		if _, err := ds.GetRunInfo("clf"); err != nil {
			t.Errorf("expected experiment record on root dataset: %v", err)
		}
		if _, err := ds.GetRunInfo("brave_finch_1"); err != nil {
			t.Errorf("expected run record on root dataset: %v", err)
		}
	})

	t.Run("empty run id mirrors experiment only", func(t *testing.T) {
		ds, db := newTestDataset(t)
		defer db.Close()

		client := &mockClient{
			experiments: map[string]*mlflow.Experiment{"clf": testExperiment("clf", "42")},
		}
		engine := NewEngine(client, "http://localhost:8080")

		if err := engine.LogRun(ctx, nil, ds, "clf", ""); err != nil {
			t.Fatalf("failed to log experiment: %v", err)
		}

		keys, err := ds.ListRuns()
		if err != nil {
			t.Fatalf("failed to list records: %v", err)
		}
		if len(keys) != 1 || keys[0] != "clf" {
			t.Errorf("expected only the experiment record, got %v", keys)
		}
		if client.getRunCalls != 0 {
			t.Errorf("expected no run fetch, got %d", client.getRunCalls)
		}
	})

	t.Run("requires an experiment name", func(t *testing.T) {
		ds, db := newTestDataset(t)
		defer db.Close()

		engine := NewEngine(&mockClient{}, "http://localhost:8080")

		err := engine.LogRun(ctx, nil, ds, "", "abc123")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("requires a collection", func(t *testing.T) {
		engine := NewEngine(&mockClient{}, "http://localhost:8080")

		err := engine.LogRun(ctx, nil, nil, "clf", "abc123")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("reports progress on the channel", func(t *testing.T) {
		ds, db := newTestDataset(t)
		defer db.Close()

		client := &mockClient{
			experiments: map[string]*mlflow.Experiment{"clf": testExperiment("clf", "42")},
			runs:        map[string]*mlflow.Run{"abc123": testRun("abc123", "42", "brave-finch-1")},
		}
		engine := NewEngine(client, "http://localhost:8080")

		progress := make(chan ProgressUpdate, 16)
		if err := engine.LogRun(ctx, progress, ds, "clf", "abc123"); err != nil {
			t.Fatalf("failed to log run: %v", err)
		}
		close(progress)

		phases := map[Phase]bool{}
		for update := range progress {
			phases[update.Phase] = true
		}
		for _, want := range []Phase{FetchExperiment, RegisterExperiment, FetchRun, RegisterRun, LinkRun} {
			if !phases[want] {
				t.Errorf("expected %s update", want)
			}
		}
	})
}

func TestEngine_ExperimentLinks(t *testing.T) {
	ctx := context.Background()

	t.Run("builds one URL per experiment record", func(t *testing.T) {
		ds, db := newTestDataset(t)
		defer db.Close()

		client := &mockClient{
			experiments: map[string]*mlflow.Experiment{
				"clf": testExperiment("clf", "42"),
				"seg": testExperiment("seg", "43"),
			},
			runs: map[string]*mlflow.Run{"abc123": testRun("abc123", "42", "brave-finch-1")},
		}
		engine := NewEngine(client, "http://localhost:8080")

		if err := engine.LogRun(ctx, nil, ds, "clf", "abc123"); err != nil {
			t.Fatalf("failed to log run: %v", err)
		}
		if err := engine.LogRun(ctx, nil, ds, "seg", ""); err != nil {
			t.Fatalf("failed to log experiment: %v", err)
		}

		links, err := engine.ExperimentLinks(ds)
		if err != nil {
			t.Fatalf("failed to build links: %v", err)
		}

		// Run records are excluded; order follows registration order.
		if len(links.URLs) != 2 {
			t.Fatalf("expected 2 links, got %d", len(links.URLs))
		}
		if links.URLs[0].URL != "http://localhost:8080/#/experiments/42" {
			t.Errorf("unexpected URL: %s", links.URLs[0].URL)
		}
		if links.URLs[0].Name != "clf" || links.URLs[1].Name != "seg" {
			t.Errorf("unexpected names: %v", links.URLs)
		}
	})

	t.Run("falls back to engine tracking URI", func(t *testing.T) {
		ds, db := newTestDataset(t)
		defer db.Close()

		rec := &models.ExperimentRecord{
			Method:         models.MethodExperiment,
			ExperimentName: "legacy",
			ExperimentID:   "7",
			Tags:           map[string]string{},
			Runs:           []string{},
		}
		if err := ds.RegisterRun(rec.Key(), rec); err != nil {
			t.Fatalf("failed to register record: %v", err)
		}

		engine := NewEngine(&mockClient{}, "https://mlflow.internal")
		links, err := engine.ExperimentLinks(ds)
		if err != nil {
			t.Fatalf("failed to build links: %v", err)
		}
		if links.URLs[0].URL != "https://mlflow.internal/#/experiments/7" {
			t.Errorf("expected fallback URI, got %s", links.URLs[0].URL)
		}
	})

	t.Run("empty registry yields empty list", func(t *testing.T) {
		ds, db := newTestDataset(t)
		defer db.Close()

		engine := NewEngine(&mockClient{}, "http://localhost:8080")
		links, err := engine.ExperimentLinks(ds)
		if err != nil {
			t.Fatalf("failed to build links: %v", err)
		}
		if links.URLs == nil {
			t.Fatal("expected non-nil URL list")
		}
		if len(links.URLs) != 0 {
			t.Errorf("expected no links, got %v", links.URLs)
		}
	})
}
