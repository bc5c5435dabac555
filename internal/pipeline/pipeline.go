package pipeline

import (
	"context"
	"fmt"
	"go-batch-pipeline/internal/model"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ReasonValidationFailed is the error reason for records missing a required
// field.
const ReasonValidationFailed = "validation_failed"

const instrumentationName = "go-batch-pipeline/internal/pipeline"

// Record outcomes reported on the pipeline.records counter.
const (
	outcomeSuccess         = "success"
	outcomeValidation      = "validation_failed"
	outcomeTransformFailed = "transform_failed"
)

// Config drives a Processor.
type Config struct {
	// RequiredFields must all be present for a record to be accepted.
	RequiredFields []string
	// BatchSizeHint is the preferred number of records per ProcessBatch call.
	// The Processor itself accepts batches of any size.
	BatchSizeHint int
	// Workers bounds per-batch parallelism. Zero means GOMAXPROCS.
	Workers int
}

// Option customizes a Processor.
type Option func(*Processor)

// WithClock sets the clock used for __timestamp.
func WithClock(c Clock) Option {
	return func(p *Processor) { p.transformer = NewTransformer(c) }
}

// WithWorkers overrides Config.Workers.
func WithWorkers(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithMeter(m metric.Meter) Option {
	return func(p *Processor) { p.meter = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(p *Processor) { p.tracer = t }
}

// Processor runs batches through transform and validation.
type Processor struct {
	transformer *Transformer
	validator   *Validator
	workers     int
	logger      *slog.Logger
	meter       metric.Meter
	tracer      trace.Tracer

	records       metric.Int64Counter
	batchDuration metric.Float64Histogram
}

// NewProcessor builds a Processor. Invalid required field names are reported
// here rather than per record.
func NewProcessor(cfg Config, opts ...Option) (*Processor, error) {
	validator, err := NewValidator(cfg.RequiredFields)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	p := &Processor{
		transformer: NewTransformer(SystemClock{}),
		validator:   validator,
		workers:     cfg.Workers,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.workers <= 0 {
		p.workers = runtime.GOMAXPROCS(0)
	}
	if p.meter == nil {
		p.meter = otel.GetMeterProvider().Meter(instrumentationName)
	}
	if p.tracer == nil {
		p.tracer = otel.GetTracerProvider().Tracer(instrumentationName)
	}

	p.records, err = p.meter.Int64Counter("pipeline.records",
		metric.WithDescription("Records processed, by outcome"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("pipeline: create records counter: %w", err)
	}
	p.batchDuration, err = p.meter.Float64Histogram("pipeline.batch.duration",
		metric.WithDescription("Wall time spent in ProcessBatch"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("pipeline: create batch duration histogram: %w", err)
	}
	return p, nil
}

// Workers reports the effective parallelism bound.
func (p *Processor) Workers() int { return p.workers }

// outcome is the per-record slot written by exactly one worker.
type outcome struct {
	result model.TransformedRecord
	reason string
	kind   string
}

// ProcessBatch transforms and validates every record independently. A record
// that fails either step lands in Errors with its reason; it never fails the
// call. Results and Errors both follow input order regardless of worker count.
// The only error returned is cancellation of ctx, in which case no partial
// result is produced.
func (p *Processor) ProcessBatch(ctx context.Context, records []model.Record) (model.BatchResult, error) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "pipeline.ProcessBatch",
		trace.WithAttributes(attribute.Int("batch.size", len(records))),
	)
	defer span.End()

	outcomes := make([]outcome, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, rec := range records {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = p.processRecord(rec)
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		span.RecordError(err)
		return model.BatchResult{}, fmt.Errorf("pipeline: process batch: %w", err)
	}

	result := model.BatchResult{
		Results: make([]model.TransformedRecord, 0, len(records)),
		Errors:  make([]model.RecordError, 0),
	}
	counts := make(map[string]int64, 3)
	for i, o := range outcomes {
		counts[o.kind]++
		if o.kind == outcomeSuccess {
			result.Results = append(result.Results, o.result)
			continue
		}
		p.logger.DebugContext(ctx, "record rejected", "index", i, "reason", o.reason)
		result.Errors = append(result.Errors, model.RecordError{
			Record: records[i].Clone(),
			Reason: o.reason,
		})
	}
	result.SuccessCount = len(result.Results)
	result.FailedCount = len(result.Errors)

	for kind, n := range counts {
		p.records.Add(ctx, n, metric.WithAttributes(attribute.String("outcome", kind)))
	}
	elapsed := time.Since(start)
	p.batchDuration.Record(ctx, elapsed.Seconds())
	span.SetAttributes(
		attribute.Int("batch.success", result.SuccessCount),
		attribute.Int("batch.failed", result.FailedCount),
	)
	p.logger.InfoContext(ctx, "batch processed",
		"records", len(records),
		"result", result,
		"duration", elapsed,
	)
	return result, nil
}

func (p *Processor) processRecord(rec model.Record) outcome {
	transformed, err := p.transformer.Transform(rec)
	if err != nil {
		return outcome{reason: err.Error(), kind: outcomeTransformFailed}
	}
	if !p.validator.Validate(transformed) {
		return outcome{reason: ReasonValidationFailed, kind: outcomeValidation}
	}
	return outcome{result: transformed, kind: outcomeSuccess}
}
