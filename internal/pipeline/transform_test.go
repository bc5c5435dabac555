package pipeline_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-batch-pipeline/internal/model"
	"go-batch-pipeline/internal/pipeline"
)

func TestTransform(t *testing.T) {
	tr := pipeline.NewTransformer(pipeline.FixedClock(1700000000))
	in := model.Record{
		"id":    model.Int(1),
		"name":  model.Text("  Alice "),
		"value": model.Number(3.14159),
		"flag":  model.Other(false),
	}

	out, err := tr.Transform(in)
	require.NoError(t, err)

	assert.True(t, out.Processed())
	assert.Equal(t, int64(1700000000), out.Timestamp())
	name, _ := out["name"].Text()
	assert.Equal(t, "alice", name)
	v, _ := out["value"].Number()
	assert.Equal(t, 3.14, v)
	assert.Equal(t, false, out["flag"].Any())
	assert.Len(t, out, 6)

	// input untouched
	orig, _ := in["name"].Text()
	assert.Equal(t, "  Alice ", orig)
	assert.Len(t, in, 4)
}

func TestTransformOverwritesReservedKeys(t *testing.T) {
	tr := pipeline.NewTransformer(pipeline.FixedClock(5))
	out, err := tr.Transform(model.Record{
		model.ProcessedKey: model.Text("no"),
		model.TimestampKey: model.Int(1),
	})
	require.NoError(t, err)
	assert.True(t, out.Processed())
	assert.Equal(t, int64(5), out.Timestamp())
}

func TestTransformClockFailure(t *testing.T) {
	boom := errors.New("clock unavailable")
	tr := pipeline.NewTransformer(pipeline.ClockFunc(func() (int64, error) { return 0, boom }))

	_, err := tr.Transform(model.Record{"id": model.Int(1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrTransform)
	assert.ErrorIs(t, err, boom)
}

func TestNewTransformerDefaultsToSystemClock(t *testing.T) {
	out, err := pipeline.NewTransformer(nil).Transform(model.Record{})
	require.NoError(t, err)
	assert.Greater(t, out.Timestamp(), int64(0))
}
