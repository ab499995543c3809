package testkit

import (
	"context"
	"testing"

	"sensorgrid/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSensorDataGenerator_Deterministic(t *testing.T) {
	a := NewSensorDataGenerator(DefaultSensorConfig()).GeneratePartitions()
	b := NewSensorDataGenerator(DefaultSensorConfig()).GeneratePartitions()
	assert.Equal(t, a, b)

	other := DefaultSensorConfig()
	other.Seed = 7
	assert.NotEqual(t, a, NewSensorDataGenerator(other).GeneratePartitions())
}

func TestSensorDataGenerator_Shape(t *testing.T) {
	cfg := DefaultSensorConfig()
	cfg.MissingRate = 0
	partitions := NewSensorDataGenerator(cfg).GeneratePartitions()

	require.Len(t, partitions, 2)
	assert.Equal(t, core.PartitionID("week1"), partitions[0].ID)
	assert.Equal(t, core.PartitionID("week2"), partitions[1].ID)

	p := partitions[0]
	assert.Len(t, p.Locations, cfg.SensorsPerPartition)

	perSeries := int(cfg.Span / cfg.Interval)
	total := (cfg.SensorsPerPartition + cfg.UnresolvedSensors) * len(cfg.Variables) * perSeries
	assert.Len(t, p.Readings, total)

	end := cfg.StartDate.Add(cfg.Span + cfg.Interval)
	for _, r := range p.Readings {
		assert.False(t, r.Timestamp.Before(cfg.StartDate))
		assert.True(t, r.Timestamp.Before(end))
		assert.Greater(t, r.Value, 0.0)
	}
}

func TestInMemorySource(t *testing.T) {
	partitions := NewSensorDataGenerator(DefaultSensorConfig()).GeneratePartitions()
	src := NewInMemorySource(partitions...)
	src.FailOn("week0", assert.AnError)
	ctx := context.Background()

	ids, err := src.ListPartitions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.PartitionID{"week0", "week1", "week2"}, ids)

	_, err = src.LoadPartition(ctx, "week0")
	assert.ErrorIs(t, err, assert.AnError)

	p, err := src.LoadPartition(ctx, "week1")
	require.NoError(t, err)
	p.Readings[0].Value = -1
	assert.NotEqual(t, -1.0, partitions[0].Readings[0].Value, "loads return copies")

	_, err = src.LoadPartition(ctx, "missing")
	assert.True(t, core.IsNotFoundError(err))
	assert.Equal(t, []core.PartitionID{"week0", "week1", "missing"}, src.Loads())
}
