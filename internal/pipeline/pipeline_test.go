package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"go-batch-pipeline/internal/logger"
	"go-batch-pipeline/internal/model"
	"go-batch-pipeline/internal/pipeline"
)

func newProcessor(t *testing.T, required []string, opts ...pipeline.Option) *pipeline.Processor {
	t.Helper()
	opts = append([]pipeline.Option{
		pipeline.WithClock(pipeline.FixedClock(1700000000)),
		pipeline.WithLogger(logger.Discard()),
	}, opts...)
	p, err := pipeline.NewProcessor(pipeline.Config{RequiredFields: required, BatchSizeHint: 100}, opts...)
	require.NoError(t, err)
	return p
}

func TestProcessBatchAccepts(t *testing.T) {
	p := newProcessor(t, []string{"id", "value"})

	res, err := p.ProcessBatch(context.Background(), []model.Record{{"id": model.Int(1), "value": model.Int(42)}})
	require.NoError(t, err)

	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, 0, res.FailedCount)
	require.Len(t, res.Results, 1)
	assert.Empty(t, res.Errors)
	assert.True(t, res.Results[0].Processed())
	assert.Equal(t, int64(1700000000), res.Results[0].Timestamp())
}

func TestProcessBatchRejectsMissingField(t *testing.T) {
	p := newProcessor(t, []string{"id", "value"})
	in := model.Record{"id": model.Int(1)}

	res, err := p.ProcessBatch(context.Background(), []model.Record{in})
	require.NoError(t, err)

	assert.Equal(t, 0, res.SuccessCount)
	assert.Equal(t, 1, res.FailedCount)
	assert.Empty(t, res.Results)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, pipeline.ReasonValidationFailed, res.Errors[0].Reason)
	assert.Equal(t, in, res.Errors[0].Record)
}

func TestProcessBatchEmpty(t *testing.T) {
	p := newProcessor(t, []string{"id"})

	res, err := p.ProcessBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.SuccessCount)
	assert.Equal(t, 0, res.FailedCount)
	assert.NotNil(t, res.Results)
	assert.NotNil(t, res.Errors)
}

func TestProcessBatchClockFailureIsPerRecord(t *testing.T) {
	var calls atomic.Int64
	clock := pipeline.ClockFunc(func() (int64, error) {
		if calls.Add(1) == 2 {
			return 0, errors.New("clock unavailable")
		}
		return 10, nil
	})
	p := newProcessor(t, nil, pipeline.WithClock(clock), pipeline.WithWorkers(1))

	batch := []model.Record{{"n": model.Int(0)}, {"n": model.Int(1)}, {"n": model.Int(2)}}
	res, err := p.ProcessBatch(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, 2, res.SuccessCount)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, batch[1], res.Errors[0].Record)
	assert.Contains(t, res.Errors[0].Reason, "clock unavailable")
	assert.Contains(t, res.Errors[0].Reason, pipeline.ErrTransform.Error())
}

func mixedBatch(n int) []model.Record {
	batch := make([]model.Record, n)
	for i := range batch {
		rec := model.Record{"id": model.Int(int64(i)), "name": model.Text(fmt.Sprintf(" Item %d ", i))}
		if i%3 != 0 {
			rec["value"] = model.Number(float64(i) + 0.456)
		}
		batch[i] = rec
	}
	return batch
}

func TestProcessBatchStableAcrossWorkerCounts(t *testing.T) {
	batch := mixedBatch(200)

	base, err := newProcessor(t, []string{"id", "value"}, pipeline.WithWorkers(1)).ProcessBatch(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, len(batch), base.SuccessCount+base.FailedCount)

	for _, workers := range []int{2, 7, 64} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			p := newProcessor(t, []string{"id", "value"}, pipeline.WithWorkers(workers))
			assert.Equal(t, workers, p.Workers())

			res, err := p.ProcessBatch(context.Background(), batch)
			require.NoError(t, err)
			assert.Equal(t, base, res)
		})
	}

	// input order is preserved within each partition
	prev := int64(-1)
	for _, rec := range base.Results {
		id, _ := rec["id"].Number()
		assert.Greater(t, int64(id), prev)
		prev = int64(id)
	}
	prev = -1
	for _, e := range base.Errors {
		id, _ := e.Record["id"].Number()
		assert.Greater(t, int64(id), prev)
		prev = int64(id)
	}
}

func TestProcessBatchCountInvariant(t *testing.T) {
	p := newProcessor(t, []string{"value"})
	for _, n := range []int{0, 1, 2, 3, 10, 99} {
		res, err := p.ProcessBatch(context.Background(), mixedBatch(n))
		require.NoError(t, err)
		assert.Equal(t, n, res.SuccessCount+res.FailedCount)
		assert.Len(t, res.Results, res.SuccessCount)
		assert.Len(t, res.Errors, res.FailedCount)
	}
}

func TestProcessBatchDoesNotMutateInput(t *testing.T) {
	p := newProcessor(t, nil)
	batch := []model.Record{{"name": model.Text("  UPPER  ")}}

	_, err := p.ProcessBatch(context.Background(), batch)
	require.NoError(t, err)

	s, _ := batch[0]["name"].Text()
	assert.Equal(t, "  UPPER  ", s)
	assert.Len(t, batch[0], 1)
}

func TestProcessBatchCancelled(t *testing.T) {
	p := newProcessor(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.ProcessBatch(ctx, mixedBatch(10))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.SuccessCount+res.FailedCount)
	assert.Nil(t, res.Results)
}

func TestNewProcessorRejectsBadRequiredFields(t *testing.T) {
	_, err := pipeline.NewProcessor(pipeline.Config{RequiredFields: []string{"id", "id"}})
	assert.ErrorIs(t, err, pipeline.ErrInvalidRequiredFields)
}

func TestNewProcessorDefaultWorkers(t *testing.T) {
	p, err := pipeline.NewProcessor(pipeline.Config{})
	require.NoError(t, err)
	assert.Positive(t, p.Workers())

	p, err = pipeline.NewProcessor(pipeline.Config{Workers: 3}, pipeline.WithWorkers(0))
	require.NoError(t, err)
	assert.Equal(t, 3, p.Workers())
}

func TestProcessBatchTelemetry(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))

	p := newProcessor(t, []string{"id", "value"},
		pipeline.WithMeter(mp.Meter("test")),
		pipeline.WithTracer(tp.Tracer("test")),
	)
	_, err := p.ProcessBatch(context.Background(), mixedBatch(9))
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := map[string]int64{}
	var sawHistogram bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch m.Name {
			case "pipeline.records":
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				for _, dp := range sum.DataPoints {
					outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
					counts[outcome.AsString()] += dp.Value
				}
			case "pipeline.batch.duration":
				sawHistogram = true
			}
		}
	}
	assert.Equal(t, map[string]int64{"success": 6, "validation_failed": 3}, counts)
	assert.True(t, sawHistogram)

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "pipeline.ProcessBatch", ended[0].Name())
}
