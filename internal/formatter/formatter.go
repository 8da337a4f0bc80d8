// package formatter provides functions to export registry records and experiment links to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"github.com/desertthunder/mfx/internal/models"
	"github.com/desertthunder/mfx/internal/registry"
	"github.com/desertthunder/mfx/internal/shared"
)

// ExportLinksToCSV converts a LinkList to CSV format with columns: Name, URL
func ExportLinksToCSV(links *models.LinkList) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Name", "URL"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, link := range links.URLs {
		if err := writer.Write([]string{link.Name, link.URL}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportLinksToText converts a LinkList to plain text format, one link per line
func ExportLinksToText(links *models.LinkList) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Experiments: %d\n\n", len(links.URLs)))
	for i, link := range links.URLs {
		buf.WriteString(fmt.Sprintf("%d. %s\n   %s\n", i+1, link.Name, link.URL))
	}

	return buf.Bytes()
}

// ExportRecordsToCSV converts registry records to CSV format with columns: Key, Method, Name, ID, Created, Updated
func ExportRecordsToCSV(infos []*registry.RunInfo) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Key", "Method", "Name", "ID", "Created", "Updated"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, info := range infos {
		name, id := recordIdentity(info.Config)
		record := []string{
			info.Key,
			info.Config.RecordMethod(),
			name,
			id,
			info.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			info.UpdatedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportRecordsToMarkdown converts registry records to a Markdown report.
//
// Experiments and runs render in separate sections; runs list their
// metric snapshots in sorted key order for stable output.
func ExportRecordsToMarkdown(datasetName string, infos []*registry.RunInfo) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", datasetName))
	buf.WriteString(fmt.Sprintf("**Records**: %d\n\n", len(infos)))

	var experiments, runs []*registry.RunInfo
	for _, info := range infos {
		switch info.Config.RecordMethod() {
		case models.MethodExperiment:
			experiments = append(experiments, info)
		case models.MethodRun:
			runs = append(runs, info)
		}
	}

	if len(experiments) > 0 {
		buf.WriteString("## Experiments\n\n")
		for _, info := range experiments {
			rec := info.Config.(*models.ExperimentRecord)
			buf.WriteString(fmt.Sprintf("### %s\n\n", rec.ExperimentName))
			buf.WriteString(fmt.Sprintf("**ID**: %s\n", rec.ExperimentID))
			buf.WriteString(fmt.Sprintf("**Created**: %s\n", shared.FormatMillis(rec.CreatedAt)))
			if rec.TrackingURI != "" {
				buf.WriteString(fmt.Sprintf("**Tracking URI**: %s\n", rec.TrackingURI))
			}
			buf.WriteString(fmt.Sprintf("**Runs**: %d\n\n", len(rec.Runs)))
			for i, name := range rec.Runs {
				buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, name))
			}
			if len(rec.Runs) > 0 {
				buf.WriteString("\n")
			}
		}
	}

	if len(runs) > 0 {
		buf.WriteString("## Runs\n\n")
		for _, info := range runs {
			rec := info.Config.(*models.RunRecord)
			buf.WriteString(fmt.Sprintf("### %s\n\n", rec.RunName))
			buf.WriteString(fmt.Sprintf("**ID**: %s\n", rec.RunID))
			buf.WriteString(fmt.Sprintf("**Experiment**: %s\n", rec.ExperimentID))
			if len(rec.Metrics) > 0 {
				buf.WriteString("\n| Metric | Value |\n|---|---|\n")
				keys := make([]string, 0, len(rec.Metrics))
				for k := range rec.Metrics {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					buf.WriteString(fmt.Sprintf("| %s | %g |\n", k, rec.Metrics[k]))
				}
			}
			buf.WriteString("\n")
		}
	}

	return buf.Bytes()
}

// recordIdentity extracts the display name and tracking-server id from a record.
func recordIdentity(cfg models.RecordConfig) (name, id string) {
	switch rec := cfg.(type) {
	case *models.ExperimentRecord:
		return rec.ExperimentName, rec.ExperimentID
	case *models.RunRecord:
		return rec.RunName, rec.RunID
	default:
		return "", ""
	}
}

// WriteLinksExport writes a LinkList to disk in the given format.
//
// Supported formats: csv, txt, json (default). Returns the written path.
func WriteLinksExport(links *models.LinkList, format, path string) (string, error) {
	if path == "" {
		path = "experiment_links." + normalizeFormat(format)
	}

	var (
		data []byte
		err  error
	)
	switch format {
	case "csv":
		data, err = ExportLinksToCSV(links)
	case "txt":
		data = ExportLinksToText(links)
	default:
		data, err = shared.MarshalJSON(links, true)
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate %s export: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

// WriteRecordsExport writes a dataset's registry records to disk in the given format.
//
// Supported formats: csv, markdown, json (default). Returns the written path.
func WriteRecordsExport(datasetName string, infos []*registry.RunInfo, format, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_records.%s", datasetName, normalizeFormat(format))
	}

	var (
		data []byte
		err  error
	)
	switch format {
	case "csv":
		data, err = ExportRecordsToCSV(infos)
	case "markdown":
		data = ExportRecordsToMarkdown(datasetName, infos)
	default:
		data, err = recordsJSON(infos)
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate %s export: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

// recordsJSON serializes records as a key-to-config JSON object.
func recordsJSON(infos []*registry.RunInfo) ([]byte, error) {
	out := make(map[string]models.RecordConfig, len(infos))
	for _, info := range infos {
		out[info.Key] = info.Config
	}
	return shared.MarshalJSON(out, true)
}

func normalizeFormat(format string) string {
	switch format {
	case "csv":
		return "csv"
	case "txt":
		return "txt"
	case "markdown":
		return "md"
	default:
		return "json"
	}
}
