package main

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sensorgrid/domain/core"
	"sensorgrid/internal/config"
	"sensorgrid/internal/resample"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyRunFlags(t *testing.T) {
	cmd := newRunCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--vars", "NO2,CO", "--width", "1h", "--join", "outer", "--workers", "1"}))

	cfg := &config.Config{Pipeline: config.PipelineConfig{
		Variables:        []core.VariableKey{"PM10"},
		BucketWidth:      12 * time.Hour,
		AnchorHour:       7,
		FineResolution:   time.Minute,
		CoarseResolution: 15 * time.Minute,
		Rounding:         resample.RoundHalfEven,
		JoinStrategy:     resample.JoinInner,
		Workers:          4,
		FailureMode:      config.FailAbort,
	}}

	f := runFlags{vars: "NO2,CO", width: time.Hour, join: "outer", workers: 1}
	require.NoError(t, applyRunFlags(cmd, cfg, f))

	assert.Equal(t, []core.VariableKey{"NO2", "CO"}, cfg.Pipeline.Variables)
	assert.Equal(t, time.Hour, cfg.Pipeline.BucketWidth)
	assert.Equal(t, resample.JoinOuter, cfg.Pipeline.JoinStrategy)
	assert.Equal(t, 1, cfg.Pipeline.Workers)
	assert.Equal(t, 7, cfg.Pipeline.AnchorHour, "unset flags keep the environment value")
}

func TestApplyRunFlags_Invalid(t *testing.T) {
	cmd := newRunCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--anchor", "30"}))

	cfg := &config.Config{Pipeline: config.PipelineConfig{
		Variables:        []core.VariableKey{"PM10"},
		BucketWidth:      12 * time.Hour,
		FineResolution:   time.Minute,
		CoarseResolution: 15 * time.Minute,
		Workers:          1,
		FailureMode:      config.FailAbort,
	}}

	err := applyRunFlags(cmd, cfg, runFlags{anchor: 30})
	require.Error(t, err)
	assert.True(t, core.IsConfigurationError(err))
}

func TestRunPipeline_WritesOutputAndReport(t *testing.T) {
	root := t.TempDir()
	week := filepath.Join(root, "week1")
	require.NoError(t, os.MkdirAll(week, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(week, "data.csv"), []byte(
		"Sensor Name,Variable,Units,Timestamp,Value,Flagged as Suspect Reading\n"+
			"S1,PM10,ugm -3,2019-12-02 07:00:10,10,False\n"+
			"S1,NO2,ugm -3,2019-12-02 07:00:40,20,False\n"+
			"S1,PM10,ugm -3,2019-12-02 09:00:00,30,False\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(week, "sensors.csv"), []byte(
		"Sensor Name,Sensor Centroid Longitude,Sensor Centroid Latitude\nS1,-1.61,54.97\n"), 0o644))

	cfg := &config.Config{
		Pipeline: config.PipelineConfig{
			Variables:        []core.VariableKey{"PM10", "NO2"},
			BucketWidth:      12 * time.Hour,
			AnchorHour:       7,
			FineResolution:   time.Minute,
			CoarseResolution: 15 * time.Minute,
			Rounding:         resample.RoundHalfEven,
			JoinStrategy:     resample.JoinInner,
			Workers:          2,
			FailureMode:      config.FailAbort,
		},
		Paths:    config.PathConfig{DataDir: root, ReportPath: filepath.Join(root, "report.md")},
		LogLevel: "ERROR",
	}

	require.NoError(t, runPipeline(context.Background(), cfg))

	file, err := os.Open(filepath.Join(root, "output", "output12H.csv"))
	require.NoError(t, err)
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)

	// 07:00:10 and 07:00:40 round to 07:00 and 07:01; both land on the 07:00 coarse
	// slot and the second row is dropped as a (sensor, timestamp) duplicate
	require.Len(t, rows, 2)
	assert.Equal(t, "Time", rows[0][len(rows[0])-1])
	assert.Equal(t, "2019-12-02 07:00:00", rows[1][1])
	assert.Equal(t, "20", rows[1][10], "PM10 mean over the 07:00 bucket")
	assert.Equal(t, "20", rows[1][11])
	assert.Equal(t, "Day", rows[1][12])

	report, err := os.ReadFile(filepath.Join(root, "report.md"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "| week1 |")
}
