package pipeline

import (
	"errors"
	"fmt"
	"go-batch-pipeline/internal/model"
)

// ErrTransform marks a record that could not be transformed.
var ErrTransform = errors.New("transform failed")

// Transformer normalizes every field of a record and stamps it with
// processing metadata.
type Transformer struct {
	clock Clock
}

// NewTransformer returns a Transformer reading time from clock. A nil clock
// falls back to SystemClock.
func NewTransformer(clock Clock) *Transformer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Transformer{clock: clock}
}

// Transform returns a normalized copy of rec with __processed and __timestamp
// set. Input fields using those names are overwritten. rec is never modified.
func (t *Transformer) Transform(rec model.Record) (model.TransformedRecord, error) {
	ts, err := t.clock.NowEpochSeconds()
	if err != nil {
		return nil, fmt.Errorf("%w: read clock: %w", ErrTransform, err)
	}

	out := make(model.TransformedRecord, len(rec)+2)
	for name, v := range rec {
		out[name] = Normalize(v)
	}
	out[model.ProcessedKey] = model.Other(true)
	out[model.TimestampKey] = model.Int(ts)
	return out, nil
}
