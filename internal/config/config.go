// Package config loads pipeline settings from a YAML file and the
// environment. Environment variables override file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrInvalidBatchSize    = errors.New("pipeline.batch_size must be at least 1")
	ErrInvalidWorkers      = errors.New("pipeline.workers must be non-negative")
	ErrEmptyRequiredField  = errors.New("pipeline.required_fields must not contain empty names")
	ErrMissingDSN          = errors.New("store.dsn is required")
	ErrInvalidLogLevel     = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat    = errors.New("logging.format must be 'text' or 'json'")
	ErrInvalidOutputFormat = errors.New("output.format must be 'json' or 'csv'")
	ErrMissingServiceName  = errors.New("telemetry.service_name is required when an endpoint is set")
)

// Config is the complete runtime configuration.
type Config struct {
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Store     StoreConfig     `yaml:"store"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Output    OutputConfig    `yaml:"output"`
}

// PipelineConfig controls batch processing.
type PipelineConfig struct {
	RequiredFields []string `yaml:"required_fields"`
	BatchSize      int      `yaml:"batch_size"`
	Workers        int      `yaml:"workers"`
}

// StoreConfig selects the persistence backend. The DSN scheme picks the
// driver: memory://, sqlite://path or postgres://...
type StoreConfig struct {
	DSN string `yaml:"dsn"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TelemetryConfig enables OTLP export when Endpoint is set.
type TelemetryConfig struct {
	Endpoint    string `yaml:"otlp_endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// OutputConfig controls where run results are exported. An empty Dir
// disables export.
type OutputConfig struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Pipeline: PipelineConfig{
			BatchSize: 100,
			Workers:   4,
		},
		Store:     StoreConfig{DSN: "memory://"},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Telemetry: TelemetryConfig{ServiceName: "go-batch-pipeline"},
		Output:    OutputConfig{Format: "json"},
	}
}

// Load reads path (when non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Pipeline.RequiredFields = envList("PIPELINE_REQUIRED_FIELDS", c.Pipeline.RequiredFields)
	c.Pipeline.BatchSize = envInt("PIPELINE_BATCH_SIZE", c.Pipeline.BatchSize)
	c.Pipeline.Workers = envInt("PIPELINE_WORKERS", c.Pipeline.Workers)
	c.Store.DSN = envStr("DATABASE_URL", c.Store.DSN)
	c.Logging.Level = envStr("PIPELINE_LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = envStr("PIPELINE_LOG_FORMAT", c.Logging.Format)
	c.Telemetry.Endpoint = envStr("OTEL_EXPORTER_OTLP_ENDPOINT", c.Telemetry.Endpoint)
	c.Telemetry.ServiceName = envStr("OTEL_SERVICE_NAME", c.Telemetry.ServiceName)
	c.Telemetry.Insecure = envBool("OTEL_EXPORTER_OTLP_INSECURE", c.Telemetry.Insecure)
	c.Output.Dir = envStr("PIPELINE_OUTPUT_DIR", c.Output.Dir)
	c.Output.Format = envStr("PIPELINE_OUTPUT_FORMAT", c.Output.Format)
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c Config) Validate() error {
	if c.Pipeline.BatchSize < 1 {
		return ErrInvalidBatchSize
	}
	if c.Pipeline.Workers < 0 {
		return ErrInvalidWorkers
	}
	for i, f := range c.Pipeline.RequiredFields {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("%w: required_fields[%d]", ErrEmptyRequiredField, i)
		}
	}
	if c.Store.DSN == "" {
		return ErrMissingDSN
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return ErrInvalidLogFormat
	}
	switch c.Output.Format {
	case "json", "csv":
	default:
		return ErrInvalidOutputFormat
	}
	if c.Telemetry.Endpoint != "" && c.Telemetry.ServiceName == "" {
		return ErrMissingServiceName
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

// envList splits a comma-separated variable, trimming each entry.
func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
