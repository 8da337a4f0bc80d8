package formatter

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/mfx/internal/models"
	"github.com/desertthunder/mfx/internal/registry"
	tu "github.com/desertthunder/mfx/internal/testing"
)

func testLinks() *models.LinkList {
	return &models.LinkList{
		URLs: []models.ExperimentLink{
			{Name: "clf", URL: "http://localhost:8080/#/experiments/42"},
			{Name: "seg", URL: "http://localhost:8080/#/experiments/43"},
		},
	}
}

func testInfos() []*registry.RunInfo {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []*registry.RunInfo{
		{
			Key: "clf",
			Config: &models.ExperimentRecord{
				Method:         models.MethodExperiment,
				ExperimentName: "clf",
				ExperimentID:   "42",
				TrackingURI:    "http://localhost:8080",
				CreatedAt:      1700000000000,
				Tags:           map[string]string{},
				Runs:           []string{"brave-finch-1"},
			},
			CreatedAt: ts,
			UpdatedAt: ts,
		},
		{
			Key: "brave_finch_1",
			Config: &models.RunRecord{
				Method:       models.MethodRun,
				RunName:      "brave-finch-1",
				RunID:        "abc123",
				ExperimentID: "42",
				Metrics:      map[string]float64{"accuracy": 0.97, "loss": 0.08},
				Tags:         map[string]string{},
			},
			CreatedAt: ts,
			UpdatedAt: ts,
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportLinksToCSV", func(t *testing.T) {
		data, err := ExportLinksToCSV(testLinks())
		if err != nil {
			t.Fatalf("ExportLinksToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Name,URL") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "clf,http://localhost:8080/#/experiments/42") {
			t.Errorf("CSV missing link row, got: %s", output)
		}
	})

	t.Run("ExportLinksToText", func(t *testing.T) {
		output := string(ExportLinksToText(testLinks()))

		if !strings.Contains(output, "Experiments: 2") {
			t.Errorf("text missing count, got: %s", output)
		}
		if !strings.Contains(output, "1. clf") {
			t.Errorf("text missing numbered entry, got: %s", output)
		}
		if !strings.Contains(output, "http://localhost:8080/#/experiments/43") {
			t.Errorf("text missing URL, got: %s", output)
		}
	})

	t.Run("ExportRecordsToCSV", func(t *testing.T) {
		data, err := ExportRecordsToCSV(testInfos())
		if err != nil {
			t.Fatalf("ExportRecordsToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Key,Method,Name,ID,Created,Updated") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "clf,mlflow_experiment,clf,42") {
			t.Errorf("CSV missing experiment row, got: %s", output)
		}
		if !strings.Contains(output, "brave_finch_1,mlflow_run,brave-finch-1,abc123") {
			t.Errorf("CSV missing run row, got: %s", output)
		}
	})

	t.Run("ExportRecordsToMarkdown", func(t *testing.T) {
		output := string(ExportRecordsToMarkdown("quickstart", testInfos()))

		if !strings.Contains(output, "# quickstart") {
			t.Errorf("Markdown missing title")
		}
		if !strings.Contains(output, "## Experiments") || !strings.Contains(output, "## Runs") {
			t.Errorf("Markdown missing sections, got: %s", output)
		}
		if !strings.Contains(output, "### clf") {
			t.Errorf("Markdown missing experiment heading")
		}
		if !strings.Contains(output, "1. brave-finch-1") {
			t.Errorf("Markdown missing linked run")
		}
		if !strings.Contains(output, "| accuracy | 0.97 |") {
			t.Errorf("Markdown missing metric row, got: %s", output)
		}
	})
}

func TestWriteExports(t *testing.T) {
	t.Run("WriteLinksExport json default", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "links.json")

		written, err := WriteLinksExport(testLinks(), "json", path)
		if err != nil {
			t.Fatalf("WriteLinksExport failed: %v", err)
		}
		if written != path {
			t.Errorf("expected path %s, got %s", path, written)
		}

		content := tu.MustReadFile(t, path)
		var links models.LinkList
		if err := json.Unmarshal([]byte(content), &links); err != nil {
			t.Fatalf("export is not valid JSON: %v", err)
		}
		if len(links.URLs) != 2 {
			t.Errorf("expected 2 links, got %d", len(links.URLs))
		}
	})

	t.Run("WriteLinksExport csv", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "links.csv")

		if _, err := WriteLinksExport(testLinks(), "csv", path); err != nil {
			t.Fatalf("WriteLinksExport failed: %v", err)
		}

		tu.AssertFileExists(t, path)
		content := tu.MustReadFile(t, path)
		if !strings.Contains(content, "Name,URL") {
			t.Errorf("expected CSV content, got: %s", content)
		}
	})

	t.Run("WriteRecordsExport markdown", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "records.md")

		if _, err := WriteRecordsExport("quickstart", testInfos(), "markdown", path); err != nil {
			t.Fatalf("WriteRecordsExport failed: %v", err)
		}

		content := tu.MustReadFile(t, path)
		if !strings.Contains(content, "# quickstart") {
			t.Errorf("expected Markdown content, got: %s", content)
		}
	})

	t.Run("WriteRecordsExport json keys records by registry key", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "records.json")

		if _, err := WriteRecordsExport("quickstart", testInfos(), "json", path); err != nil {
			t.Fatalf("WriteRecordsExport failed: %v", err)
		}

		content := tu.MustReadFile(t, path)
		var out map[string]json.RawMessage
		if err := json.Unmarshal([]byte(content), &out); err != nil {
			t.Fatalf("export is not valid JSON: %v", err)
		}
		if _, ok := out["brave_finch_1"]; !ok {
			t.Errorf("expected record keyed by normalized name, got keys: %v", out)
		}
	})
}
