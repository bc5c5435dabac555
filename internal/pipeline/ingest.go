package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"go-batch-pipeline/internal/model"
	"go-batch-pipeline/pkg/utils"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedSource is returned for an input whose format cannot be told
// from its extension.
var ErrUnsupportedSource = errors.New("unsupported source format")

// ReadRecords loads every record from a .csv or .json file.
func ReadRecords(ctx context.Context, path string, logger *slog.Logger) ([]model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(ctx, f, logger)
	case ".json":
		return ReadJSON(ctx, f, logger)
	default:
		return nil, fmt.Errorf("ingest: %w: %s", ErrUnsupportedSource, path)
	}
}

// ReadCSV reads a header row followed by data rows. Numeric-looking cells
// become numbers. Rows that fail to parse are logged and skipped.
func ReadCSV(ctx context.Context, r io.Reader, logger *slog.Logger) ([]model.Record, error) {
	if logger == nil {
		logger = slog.Default()
	}
	reader := csv.NewReader(r)
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []model.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ingest: read csv header: %w", err)
	}
	for i, h := range headers {
		headers[i] = strings.ReplaceAll(strings.TrimSpace(h), `"`, "")
	}

	records := make([]model.Record, 0)
	dropped := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, fmt.Errorf("ingest: read csv: %w", err)
			}
			dropped++
			logger.Warn("dropping malformed csv row", "line", perr.Line, "error", perr.Err)
			continue
		}

		rec := make(model.Record, len(headers))
		for i, h := range headers {
			rec[h] = model.FromAny(utils.ParseValue(row[i]))
		}
		records = append(records, rec)
	}

	logger.Debug("csv ingestion done", "records", len(records), "dropped", dropped)
	return records, nil
}

// ReadJSON accepts either an array of objects or a single object. Array items
// that are not objects are logged and skipped.
func ReadJSON(ctx context.Context, r io.Reader, logger *slog.Logger) ([]model.Record, error) {
	if logger == nil {
		logger = slog.Default()
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ingest: read json: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("ingest: decode json: %w", err)
	}

	switch data := raw.(type) {
	case []any:
		records := make([]model.Record, 0, len(data))
		for i, item := range data {
			m, ok := item.(map[string]any)
			if !ok {
				logger.Warn("dropping non-object json item", "index", i)
				continue
			}
			records = append(records, model.RecordFromMap(m))
		}
		return records, nil
	case map[string]any:
		return []model.Record{model.RecordFromMap(data)}, nil
	default:
		return nil, fmt.Errorf("ingest: unexpected json structure %T", raw)
	}
}
