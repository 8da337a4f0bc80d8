// package testing contains shared testing utilities
package testing

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/mfx/internal/mlflow"
	"github.com/desertthunder/mfx/internal/shared"
)

// MockClient is a test double for [mlflow.Client]
type MockClient struct {
	Experiments map[string]*mlflow.Experiment
	Runs        map[string]*mlflow.Run
}

func (m *MockClient) Authenticate(ctx context.Context, credentials map[string]string) error {
	return nil
}

func (m *MockClient) GetExperimentByName(ctx context.Context, name string) (*mlflow.Experiment, error) {
	if exp, ok := m.Experiments[name]; ok {
		return exp, nil
	}
	return nil, shared.ErrExperimentNotFound
}

func (m *MockClient) GetRun(ctx context.Context, runID string) (*mlflow.Run, error) {
	if run, ok := m.Runs[runID]; ok {
		return run, nil
	}
	return nil, shared.ErrRunNotFound
}

func (m *MockClient) SearchExperiments(ctx context.Context) ([]mlflow.Experiment, error) {
	exps := make([]mlflow.Experiment, 0, len(m.Experiments))
	for _, e := range m.Experiments {
		exps = append(exps, *e)
	}
	return exps, nil
}

func (m *MockClient) SearchRuns(ctx context.Context, experimentID string) ([]mlflow.Run, error) {
	var runs []mlflow.Run
	for _, r := range m.Runs {
		if r.Info.ExperimentID == experimentID {
			runs = append(runs, *r)
		}
	}
	return runs, nil
}

func (m *MockClient) Name() string { return "mock" }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// MustOpenDB creates an in-memory registry database with migrations applied.
func MustOpenDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
