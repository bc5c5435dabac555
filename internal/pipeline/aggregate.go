package pipeline

import (
	"go-batch-pipeline/internal/model"
	"math"
)

// Field names read by Aggregate.
const (
	ValueField    = "value"
	CategoryField = "category"
)

// Aggregate summarizes records in one pass. Numeric "value" fields feed the
// count, total, min and max; every record with a "category" field is counted
// in the histogram. When no numeric value is seen the degenerate Stats (count
// zero) is returned. Any record map type works, raw or transformed.
func Aggregate[R ~map[string]model.Value](records []R) model.Stats {
	var (
		count      int
		total      float64
		lo         = math.Inf(1)
		hi         = math.Inf(-1)
		categories = make(map[string]int)
	)

	for _, rec := range records {
		if v, ok := rec[ValueField]; ok {
			if n, ok := v.Number(); ok {
				count++
				total += n
				lo = math.Min(lo, n)
				hi = math.Max(hi, n)
			}
		}
		if c, ok := rec[CategoryField]; ok {
			categories[c.String()]++
		}
	}

	if count == 0 {
		return model.Stats{}
	}
	return model.Stats{
		Count:      count,
		Total:      total,
		Average:    total / float64(count),
		Max:        hi,
		Min:        lo,
		Categories: categories,
	}
}
