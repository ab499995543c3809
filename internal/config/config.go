package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"sensorgrid/domain/core"
	"sensorgrid/internal/errors"
	"sensorgrid/internal/resample"
)

// FailureMode decides what a partition error does to the run.
type FailureMode string

const (
	// FailAbort stops the run on the first failed partition.
	FailAbort FailureMode = "abort"
	// FailSkip logs the failure, leaves the partition out and carries on.
	FailSkip FailureMode = "skip"
)

// Config represents the complete application configuration
type Config struct {
	Pipeline PipelineConfig
	Paths    PathConfig
	Sink     SinkConfig
	LogLevel string
}

// PipelineConfig holds the settings that fix a run's output. They are process-wide
// and do not change during a run.
type PipelineConfig struct {
	Variables        []core.VariableKey
	BucketWidth      time.Duration
	AnchorHour       int
	FineResolution   time.Duration
	CoarseResolution time.Duration
	Rounding         resample.RoundingMode
	JoinStrategy     resample.JoinStrategy
	Workers          int
	FailureMode      FailureMode
}

// PathConfig holds file system paths
type PathConfig struct {
	DataDir    string
	OutputPath string
	ReportPath string
}

// SinkConfig holds the optional SQL sink settings
type SinkConfig struct {
	Driver string // postgres or sqlite3
	DSN    string
}

// Defaults used when the environment does not say otherwise.
const (
	DefaultVariables        = "PM10,PM1,CO,NO2"
	DefaultBucketWidth      = 12 * time.Hour
	DefaultAnchorHour       = 7
	DefaultFineResolution   = time.Minute
	DefaultCoarseResolution = 15 * time.Minute
	DefaultWorkers          = 4
)

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	pipeline, err := loadPipelineConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load pipeline configuration")
	}
	config.Pipeline = *pipeline

	config.Paths = *loadPathConfig()
	config.Sink = *loadSinkConfig()
	config.LogLevel = getEnvOrDefault("LOG_LEVEL", "INFO")

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadPipelineConfig() (*PipelineConfig, error) {
	variables, err := core.ParseVariableList(getEnvOrDefault("SENSOR_VARS", DefaultVariables))
	if err != nil {
		return nil, errors.Wrap(core.NewConfigurationError("SENSOR_VARS", err.Error()), "invalid variable set")
	}

	rounding, err := resample.ParseRoundingMode(getEnvOrDefault("ROUNDING", string(resample.RoundHalfEven)))
	if err != nil {
		return nil, errors.Wrap(core.NewConfigurationError("ROUNDING", err.Error()), "invalid rounding mode")
	}

	strategy, err := resample.ParseJoinStrategy(getEnvOrDefault("JOIN_STRATEGY", string(resample.JoinInner)))
	if err != nil {
		return nil, errors.Wrap(core.NewConfigurationError("JOIN_STRATEGY", err.Error()), "invalid join strategy")
	}

	width, err := getEnvDurationOrDefault("BUCKET_WIDTH", DefaultBucketWidth)
	if err != nil {
		return nil, errors.Wrap(err, "invalid bucket width")
	}
	anchor, err := getEnvIntOrDefault("ANCHOR_HOUR", DefaultAnchorHour)
	if err != nil {
		return nil, errors.Wrap(err, "invalid anchor hour")
	}
	fine, err := getEnvDurationOrDefault("FINE_RESOLUTION", DefaultFineResolution)
	if err != nil {
		return nil, errors.Wrap(err, "invalid fine resolution")
	}
	coarse, err := getEnvDurationOrDefault("COARSE_RESOLUTION", DefaultCoarseResolution)
	if err != nil {
		return nil, errors.Wrap(err, "invalid coarse resolution")
	}
	workers, err := getEnvIntOrDefault("WORKERS", DefaultWorkers)
	if err != nil {
		return nil, errors.Wrap(err, "invalid worker count")
	}

	return &PipelineConfig{
		Variables:        variables,
		BucketWidth:      width,
		AnchorHour:       anchor,
		FineResolution:   fine,
		CoarseResolution: coarse,
		Rounding:         rounding,
		JoinStrategy:     strategy,
		Workers:          workers,
		FailureMode:      FailureMode(strings.ToLower(getEnvOrDefault("FAILURE_MODE", string(FailAbort)))),
	}, nil
}

func loadPathConfig() *PathConfig {
	return &PathConfig{
		DataDir:    getEnvOrDefault("DATA_DIR", "."),
		OutputPath: getEnvOrDefault("OUTPUT_PATH", ""),
		ReportPath: getEnvOrDefault("REPORT_PATH", ""),
	}
}

func loadSinkConfig() *SinkConfig {
	return &SinkConfig{
		Driver: getEnvOrDefault("SINK_DRIVER", "postgres"),
		DSN:    getEnvOrDefault("SINK_DSN", ""),
	}
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if err := c.Pipeline.Validate(); err != nil {
		return err
	}
	if c.Sink.DSN != "" && c.Sink.Driver != "postgres" && c.Sink.Driver != "sqlite3" {
		return errors.ConfigInvalid(fmt.Sprintf("unsupported sink driver %q (use postgres or sqlite3)", c.Sink.Driver))
	}
	return nil
}

// Validate checks the pipeline settings. Errors wrap core.ErrConfiguration.
func (p *PipelineConfig) Validate() error {
	if len(p.Variables) == 0 {
		return errors.ConfigInvalid("at least one tracked variable is required")
	}
	if p.BucketWidth <= 0 {
		return errors.ConfigInvalid(fmt.Sprintf("bucket width must be positive, got %s", p.BucketWidth))
	}
	if p.AnchorHour < 0 || p.AnchorHour >= 24 {
		return errors.ConfigInvalid(fmt.Sprintf("anchor hour must be in [0,24), got %d", p.AnchorHour))
	}
	if p.FineResolution <= 0 {
		return errors.ConfigInvalid(fmt.Sprintf("fine resolution must be positive, got %s", p.FineResolution))
	}
	if p.CoarseResolution <= 0 {
		return errors.ConfigInvalid(fmt.Sprintf("coarse resolution must be positive, got %s", p.CoarseResolution))
	}
	if p.CoarseResolution < p.FineResolution {
		return errors.ConfigInvalid(fmt.Sprintf("coarse resolution %s is finer than fine resolution %s",
			p.CoarseResolution, p.FineResolution))
	}
	if p.Workers < 1 {
		return errors.ConfigInvalid(fmt.Sprintf("workers must be at least 1, got %d", p.Workers))
	}
	if p.FailureMode != FailAbort && p.FailureMode != FailSkip {
		return errors.ConfigInvalid(fmt.Sprintf("unknown failure mode %q (use abort or skip)", p.FailureMode))
	}
	return nil
}

// BucketSpec returns the bucket grid of the run.
func (p *PipelineConfig) BucketSpec() resample.BucketSpec {
	return resample.NewBucketSpec(p.BucketWidth, p.AnchorHour)
}

// FullDay reports whether the run uses the two-bucket day split.
func (p *PipelineConfig) FullDay() bool {
	return p.BucketSpec().FullDay()
}

// Fingerprint hashes the settings that determine the output table.
func (p *PipelineConfig) Fingerprint() core.Hash {
	return core.ConfigFingerprint(p.Variables, map[string]interface{}{
		"bucket_width":      p.BucketWidth,
		"anchor_hour":       p.AnchorHour,
		"fine_resolution":   p.FineResolution,
		"coarse_resolution": p.CoarseResolution,
		"rounding":          p.Rounding,
		"join_strategy":     p.JoinStrategy,
	})
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault returns the default only when key is unset. A value that does
// not parse is a configuration error.
func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, core.NewConfigurationError(key, fmt.Sprintf("%q is not an integer", value))
	}
	return intValue, nil
}

// getEnvDurationOrDefault takes Go duration syntax ("30m", "12h").
func getEnvDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, core.NewConfigurationError(key, fmt.Sprintf("%q is not a duration (use Go syntax such as 30m or 12h)", value))
	}
	return duration, nil
}
