package model

import (
	"encoding/json"
	"log/slog"
)

// RecordError pairs a rejected input record with the reason it was rejected.
type RecordError struct {
	Record Record `json:"record"`
	Reason string `json:"reason"`
}

// BatchResult partitions one batch into accepted and rejected records, each
// list in input order.
type BatchResult struct {
	SuccessCount int                 `json:"success_count"`
	FailedCount  int                 `json:"failed_count"`
	Results      []TransformedRecord `json:"results"`
	Errors       []RecordError       `json:"errors"`
}

// Total is the number of records the batch was built from.
func (b BatchResult) Total() int { return b.SuccessCount + b.FailedCount }

func (b BatchResult) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("success", b.SuccessCount),
		slog.Int("failed", b.FailedCount),
	)
}

// Stats summarizes the numeric "value" and "category" fields of a record set.
// A zero Count means no numeric value was seen; only the count is meaningful
// then and nothing else is encoded.
type Stats struct {
	Count      int            `json:"count"`
	Total      float64        `json:"total"`
	Average    float64        `json:"average"`
	Max        float64        `json:"max"`
	Min        float64        `json:"min"`
	Categories map[string]int `json:"categories"`
}

// Empty reports whether s is the degenerate form.
func (s Stats) Empty() bool { return s.Count == 0 }

func (s Stats) MarshalJSON() ([]byte, error) {
	if s.Empty() {
		return []byte(`{"count":0}`), nil
	}
	type stats Stats
	out := stats(s)
	if out.Categories == nil {
		out.Categories = map[string]int{}
	}
	return json.Marshal(out)
}

func (s Stats) LogValue() slog.Value {
	if s.Empty() {
		return slog.GroupValue(slog.Int("count", 0))
	}
	return slog.GroupValue(
		slog.Int("count", s.Count),
		slog.Float64("total", s.Total),
		slog.Float64("average", s.Average),
		slog.Float64("max", s.Max),
		slog.Float64("min", s.Min),
		slog.Int("categories", len(s.Categories)),
	)
}
