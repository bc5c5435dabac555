package pipeline

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"go-batch-pipeline/internal/model"
	"go-batch-pipeline/pkg/utils"
	"log/slog"
	"os"
	"sort"
	"time"
)

// ErrUnsupportedFormat is returned for an export format other than json or csv.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// RunOutput is everything one run produces.
type RunOutput struct {
	ID      string
	Results []model.TransformedRecord
	Errors  []model.RecordError
	Stats   model.Stats
}

// Exporter writes a run's results, errors and stats under its own directory.
// Results are written in the configured format; errors and stats are always
// JSON.
type Exporter struct {
	outputs *utils.OutputManager
	format  string
	logger  *slog.Logger
	now     func() time.Time
}

func NewExporter(outputs *utils.OutputManager, format string, logger *slog.Logger) (*Exporter, error) {
	switch format {
	case "json", "csv":
	default:
		return nil, fmt.Errorf("export: %w: %q", ErrUnsupportedFormat, format)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{outputs: outputs, format: format, logger: logger, now: time.Now}, nil
}

// Export writes every file for run and returns one ExportResult per file. It
// stops at the first file that cannot be written.
func (e *Exporter) Export(ctx context.Context, run RunOutput) ([]model.ExportResult, error) {
	if run.ID == "" {
		run.ID = e.outputs.NewRunID()
	}

	type job struct {
		kind, file string
		write      func(path string) (int, error)
	}
	jobs := []job{
		{"results", "results." + e.format, func(path string) (int, error) {
			if e.format == "csv" {
				return writeRecordsCSV(path, run.Results)
			}
			return e.writeJSON(path, run.ID, "results", len(run.Results), run.Results)
		}},
		{"errors", "errors.json", func(path string) (int, error) {
			return e.writeJSON(path, run.ID, "errors", len(run.Errors), run.Errors)
		}},
		{"stats", "stats.json", func(path string) (int, error) {
			return e.writeJSON(path, run.ID, "stats", run.Stats.Count, run.Stats)
		}},
	}

	results := make([]model.ExportResult, 0, len(jobs))
	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		path, err := e.outputs.GetOutputFilePath(run.ID, j.file)
		if err != nil {
			return results, fmt.Errorf("export: %w", err)
		}
		n, err := j.write(path)
		res := model.ExportResult{
			Type:        j.kind,
			Format:      e.outputs.GetFileType(path),
			Path:        path,
			RecordCount: n,
			Success:     err == nil,
			Timestamp:   e.now().UTC(),
		}
		if err != nil {
			res.Error = err.Error()
			results = append(results, res)
			e.logger.Error("export failed", "type", j.kind, "path", path, "error", err)
			return results, fmt.Errorf("export %s: %w", j.kind, err)
		}
		results = append(results, res)
		e.logger.Info("exported", "type", j.kind, "path", path, "records", n)
	}
	return results, nil
}

func (e *Exporter) writeJSON(path, runID, exportType string, count int, data any) (int, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := map[string]interface{}{
		"export_info": map[string]interface{}{
			"run_id":       runID,
			"exported_at":  e.now().UTC(),
			"record_count": count,
			"export_type":  exportType,
		},
		"data": data,
	}
	if err := encoder.Encode(exportData); err != nil {
		return 0, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return count, file.Close()
}

// writeRecordsCSV writes one row per record with the sorted union of field
// names as the header. Missing fields are left blank.
func writeRecordsCSV(path string, records []model.TransformedRecord) (int, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	keys := make(map[string]struct{})
	for _, rec := range records {
		for k := range rec {
			keys[k] = struct{}{}
		}
	}
	header := make([]string, 0, len(keys))
	for k := range keys {
		header = append(header, k)
	}
	sort.Strings(header)

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	recordCount := 0
	row := make([]string, len(header))
	for _, rec := range records {
		for i, k := range header {
			if v, ok := rec[k]; ok {
				row[i] = v.String()
			} else {
				row[i] = ""
			}
		}
		if err := writer.Write(row); err != nil {
			return recordCount, fmt.Errorf("failed to write row: %w", err)
		}
		recordCount++
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return recordCount, fmt.Errorf("failed to flush csv: %w", err)
	}
	return recordCount, file.Close()
}
