package config

import (
	"testing"
	"time"

	"sensorgrid/domain/core"
	"sensorgrid/internal/errors"
	"sensorgrid/internal/resample"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"SENSOR_VARS", "BUCKET_WIDTH", "ANCHOR_HOUR", "FINE_RESOLUTION", "COARSE_RESOLUTION",
		"ROUNDING", "JOIN_STRATEGY", "WORKERS", "FAILURE_MODE", "DATA_DIR", "OUTPUT_PATH",
		"REPORT_PATH", "SINK_DRIVER", "SINK_DSN", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	p := cfg.Pipeline
	assert.Equal(t, []core.VariableKey{"PM10", "PM1", "CO", "NO2"}, p.Variables)
	assert.Equal(t, 12*time.Hour, p.BucketWidth)
	assert.Equal(t, 7, p.AnchorHour)
	assert.Equal(t, time.Minute, p.FineResolution)
	assert.Equal(t, 15*time.Minute, p.CoarseResolution)
	assert.Equal(t, resample.RoundHalfEven, p.Rounding)
	assert.Equal(t, resample.JoinInner, p.JoinStrategy)
	assert.Equal(t, FailAbort, p.FailureMode)
	assert.Equal(t, 4, p.Workers)
	assert.True(t, p.FullDay())
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, ".", cfg.Paths.DataDir)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SENSOR_VARS", "NO2, CO")
	t.Setenv("BUCKET_WIDTH", "1h")
	t.Setenv("ROUNDING", "half_up")
	t.Setenv("JOIN_STRATEGY", "outer")
	t.Setenv("WORKERS", "2")
	t.Setenv("FAILURE_MODE", "SKIP")

	cfg, err := Load()
	require.NoError(t, err)

	p := cfg.Pipeline
	assert.Equal(t, []core.VariableKey{"NO2", "CO"}, p.Variables)
	assert.Equal(t, time.Hour, p.BucketWidth)
	assert.False(t, p.FullDay())
	assert.Equal(t, resample.RoundHalfUp, p.Rounding)
	assert.Equal(t, resample.JoinOuter, p.JoinStrategy)
	assert.Equal(t, 2, p.Workers)
	assert.Equal(t, FailSkip, p.FailureMode)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"anchor out of range", "ANCHOR_HOUR", "24"},
		{"negative anchor", "ANCHOR_HOUR", "-1"},
		{"zero width", "BUCKET_WIDTH", "0s"},
		{"zero fine resolution", "FINE_RESOLUTION", "0s"},
		{"unknown rounding", "ROUNDING", "banker"},
		{"unknown join", "JOIN_STRATEGY", "left"},
		{"unknown failure mode", "FAILURE_MODE", "retry"},
		{"zero workers", "WORKERS", "0"},
		{"empty variable", "SENSOR_VARS", "PM10,,CO"},
		{"pandas width alias", "BUCKET_WIDTH", "30min"},
		{"unparseable anchor", "ANCHOR_HOUR", "seven"},
		{"unparseable fine resolution", "FINE_RESOLUTION", "1 minute"},
		{"unparseable coarse resolution", "COARSE_RESOLUTION", "15T"},
		{"unparseable workers", "WORKERS", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.True(t, core.IsConfigurationError(err), "expected configuration error, got %v", err)
		})
	}
}

func TestLoad_UnparseableValueNamesKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("BUCKET_WIDTH", "30min")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.True(t, core.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "BUCKET_WIDTH")
	assert.Contains(t, err.Error(), "30min")
}

func TestValidate_CoarseFinerThanFine(t *testing.T) {
	p := PipelineConfig{
		Variables:        []core.VariableKey{"A"},
		BucketWidth:      time.Hour,
		FineResolution:   15 * time.Minute,
		CoarseResolution: time.Minute,
		Workers:          1,
		FailureMode:      FailAbort,
	}

	err := p.Validate()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestValidate_UnsupportedSinkDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("SINK_DSN", "whatever")
	t.Setenv("SINK_DRIVER", "mysql")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, core.IsConfigurationError(err))
}

func TestFingerprint(t *testing.T) {
	base := PipelineConfig{
		Variables:        []core.VariableKey{"A", "B"},
		BucketWidth:      12 * time.Hour,
		AnchorHour:       7,
		FineResolution:   time.Minute,
		CoarseResolution: 15 * time.Minute,
		Rounding:         resample.RoundHalfEven,
		JoinStrategy:     resample.JoinInner,
	}
	same := base
	same.Workers = 8

	other := base
	other.AnchorHour = 6

	assert.Equal(t, base.Fingerprint(), same.Fingerprint(), "workers do not change the output")
	assert.NotEqual(t, base.Fingerprint(), other.Fingerprint())
}
