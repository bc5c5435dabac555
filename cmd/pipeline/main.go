package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"go-batch-pipeline/internal/config"
	"go-batch-pipeline/internal/logger"
	"go-batch-pipeline/internal/model"
	"go-batch-pipeline/internal/pipeline"
	"go-batch-pipeline/internal/store"
	"go-batch-pipeline/internal/telemetry"
	"go-batch-pipeline/pkg/utils"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// .env is optional
	_ = godotenv.Load()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		fmt.Fprintf(os.Stderr, "pipeline: %v\n", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("pipeline", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a YAML config file")
	inputPath := fs.String("input", "", "CSV or JSON file to process")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inputPath == "" {
		fs.Usage()
		return errors.New("-input is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, stderr)
	log.Info("pipeline starting",
		"version", version,
		"input", *inputPath,
		"required_fields", cfg.Pipeline.RequiredFields,
		"batch_size", cfg.Pipeline.BatchSize,
	)

	otelShutdown, err := telemetry.Init(ctx, telemetry.Settings{
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     version,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		return err
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	db, err := store.Open(cfg.Store.DSN, log)
	if err != nil {
		return err
	}
	if err := db.Connect(ctx); err != nil {
		return err
	}
	defer db.Close()

	const scope = "go-batch-pipeline/cmd/pipeline"
	proc, err := pipeline.NewProcessor(pipeline.Config{
		RequiredFields: cfg.Pipeline.RequiredFields,
		BatchSizeHint:  cfg.Pipeline.BatchSize,
		Workers:        cfg.Pipeline.Workers,
	},
		pipeline.WithLogger(log),
		pipeline.WithMeter(telemetry.Meter(scope)),
		pipeline.WithTracer(telemetry.Tracer(scope)),
	)
	if err != nil {
		return err
	}

	records, err := pipeline.ReadRecords(ctx, *inputPath, log)
	if err != nil {
		return err
	}

	var (
		summary pipeline.Summary
		results []model.TransformedRecord
		rejects []model.RecordError
	)
	for _, batch := range utils.Chunk(records, cfg.Pipeline.BatchSize) {
		res, err := proc.ProcessBatch(ctx, batch)
		if err != nil {
			return err
		}
		summary.Add(res)

		ids, err := store.SaveAll(ctx, db, res.Results)
		summary.Saved += len(ids)
		if err != nil {
			return err
		}
		results = append(results, res.Results...)
		rejects = append(rejects, res.Errors...)
	}

	summary.Stats = pipeline.Aggregate(results)
	log.Info("run complete", "batches", summary.Batches, "stats", summary.Stats)

	if cfg.Output.Dir != "" {
		if err := export(ctx, cfg.Output, log, pipeline.RunOutput{
			Results: results,
			Errors:  rejects,
			Stats:   summary.Stats,
		}); err != nil {
			return err
		}
	}

	return pipeline.RenderSummary(stdout, summary)
}

func export(ctx context.Context, out config.OutputConfig, log *slog.Logger, run pipeline.RunOutput) error {
	exporter, err := pipeline.NewExporter(utils.NewOutputManager(out.Dir), out.Format, log)
	if err != nil {
		return err
	}
	_, err = exporter.Export(ctx, run)
	return err
}
