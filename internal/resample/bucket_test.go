package resample

import (
	"testing"
	"time"

	"sensorgrid/domain/core"
	"sensorgrid/domain/sensor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var vars = []core.VariableKey{"A", "B"}

func TestBucketSpec_StartEpochAligned(t *testing.T) {
	spec := NewBucketSpec(10*time.Minute, 7)
	assert.False(t, spec.FullDay())

	assert.Equal(t, minutes(0), spec.Start(minutes(0)))
	assert.Equal(t, minutes(0), spec.Start(minutes(9)))
	assert.Equal(t, minutes(10), spec.Start(minutes(10)))
	assert.Equal(t, minutes(0), spec.Start(minutes(10).Add(-time.Nanosecond)))
}

func TestBucketSpec_AnchorIgnoredOutsideFullDay(t *testing.T) {
	spec := NewBucketSpec(6*time.Hour, 7)
	assert.Equal(t, t0.Add(6*time.Hour), spec.Start(t0.Add(7*time.Hour)))
}

func TestBucketSpec_FullDayAnchor(t *testing.T) {
	spec := NewBucketSpec(HalfDay, 7)
	require.True(t, spec.FullDay())

	tests := []struct {
		at       time.Duration
		expected time.Time
	}{
		{6*time.Hour + 59*time.Minute, t0.Add(-5 * time.Hour)},
		{7 * time.Hour, t0.Add(7 * time.Hour)},
		{13 * time.Hour, t0.Add(7 * time.Hour)},
		{18*time.Hour + 59*time.Minute, t0.Add(7 * time.Hour)},
		{19 * time.Hour, t0.Add(19 * time.Hour)},
		{23 * time.Hour, t0.Add(19 * time.Hour)},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, spec.Start(t0.Add(test.at)), "offset %s", test.at)
	}
}

func TestAggregate_MeanPerBucket(t *testing.T) {
	details := []sensor.DetailRecord{
		detail("S1", "A", 1, minutes(0)),
		detail("S1", "A", 2, minutes(5)),
		detail("S1", "B", 10, minutes(0)),
		detail("S1", "A", 3, minutes(10)),
		detail("S1", "B", 30, minutes(10)),
	}
	rows := Reshape(details, vars)
	spec := NewBucketSpec(10*time.Minute, 0)

	a := Aggregate(rows, "A", spec)
	assert.Equal(t, map[time.Time]float64{minutes(0): 1.5, minutes(10): 3}, tableMeans(a))

	b := Aggregate(rows, "B", spec)
	assert.Equal(t, map[time.Time]float64{minutes(0): 10, minutes(10): 30}, tableMeans(b))
}

func TestAggregate_HalfOpenBoundaries(t *testing.T) {
	details := []sensor.DetailRecord{
		detail("S1", "A", 4, minutes(9)),
		detail("S1", "A", 8, minutes(10)),
		detail("S1", "A", 6, minutes(19)),
	}
	table := Aggregate(Reshape(details, vars), "A", NewBucketSpec(10*time.Minute, 0))

	require.Len(t, table.Buckets, 2)
	assert.Equal(t, minutes(0), table.Buckets[0].Start)
	assert.Equal(t, 4.0, table.Buckets[0].Mean)
	assert.Equal(t, minutes(10), table.Buckets[1].Start)
	assert.Equal(t, 7.0, table.Buckets[1].Mean)
}

func TestAggregate_BackfillsGapsFromTheFuture(t *testing.T) {
	details := []sensor.DetailRecord{
		detail("S1", "A", 1, minutes(0)),
		detail("S1", "B", 99, minutes(21)),
		detail("S1", "A", 5, minutes(25)),
	}
	rows := Reshape(details, vars)
	spec := NewBucketSpec(10*time.Minute, 0)

	a := Aggregate(rows, "A", spec)
	require.Len(t, a.Buckets, 3)
	assert.False(t, a.Buckets[0].Backfilled)
	assert.Equal(t, 1.0, a.Buckets[0].Mean)
	assert.True(t, a.Buckets[1].Backfilled)
	assert.Equal(t, 5.0, a.Buckets[1].Mean, "middle gap takes the following bucket's mean, not the previous one")

	// B has nothing before minute 20: both leading buckets come from the future
	b := Aggregate(rows, "B", spec)
	assert.Equal(t, map[time.Time]float64{minutes(0): 99, minutes(10): 99, minutes(20): 99}, tableMeans(b))
}

func TestAggregate_TrailingEmptyBucketsAreAbsent(t *testing.T) {
	details := []sensor.DetailRecord{
		detail("S1", "A", 1, minutes(0)),
		detail("S1", "B", 10, minutes(0)),
		detail("S1", "A", 2, minutes(20)),
	}
	b := Aggregate(Reshape(details, vars), "B", NewBucketSpec(10*time.Minute, 0))

	require.Len(t, b.Buckets, 1)
	assert.Equal(t, minutes(0), b.Buckets[0].Start)
}

func TestAggregate_EmptyVariable(t *testing.T) {
	details := []sensor.DetailRecord{
		detail("S1", "A", 1, minutes(0)),
	}
	table := Aggregate(Reshape(details, vars), "B", NewBucketSpec(10*time.Minute, 0))
	assert.True(t, table.IsEmpty())
	assert.Equal(t, core.VariableKey("B"), table.Variable)

	assert.True(t, Aggregate(nil, "A", NewBucketSpec(10*time.Minute, 0)).IsEmpty())
}

func TestAggregate_UnsortedInput(t *testing.T) {
	details := []sensor.DetailRecord{
		detail("S1", "A", 3, minutes(10)),
		detail("S1", "A", 1, minutes(0)),
		detail("S1", "A", 2, minutes(5)),
	}
	table := Aggregate(Reshape(details, vars), "A", NewBucketSpec(10*time.Minute, 0))
	assert.Equal(t, map[time.Time]float64{minutes(0): 1.5, minutes(10): 3}, tableMeans(table))
	assert.True(t, table.Buckets[0].Start.Before(table.Buckets[1].Start))
}

func TestBackfill(t *testing.T) {
	in := []sensor.AggregateRecord{
		{Start: minutes(0)},
		{Start: minutes(10), Mean: 2, Present: true},
		{Start: minutes(20)},
		{Start: minutes(30)},
		{Start: minutes(40), Mean: 4, Present: true},
		{Start: minutes(50)},
	}
	out := Backfill(in)

	require.Len(t, out, len(in))
	expected := []struct {
		mean    float64
		present bool
	}{
		{2, true}, {2, true}, {4, true}, {4, true}, {4, true}, {0, false},
	}
	for i, e := range expected {
		assert.Equal(t, e.present, out[i].Present, "bucket %d", i)
		assert.Equal(t, e.mean, out[i].Mean, "bucket %d", i)
	}
	assert.False(t, in[0].Present, "input must not be modified")
}

func TestBucketSpec_GridSize(t *testing.T) {
	spec := NewBucketSpec(10*time.Minute, 7)
	assert.Zero(t, spec.GridSize(nil))
	assert.Equal(t, int64(1), spec.GridSize([]time.Time{minutes(3), minutes(9)}))
	assert.Equal(t, int64(3), spec.GridSize([]time.Time{minutes(25), minutes(0), minutes(12)}))

	halfDay := NewBucketSpec(12*time.Hour, 7)
	assert.Equal(t, int64(2), halfDay.GridSize([]time.Time{t0.Add(6 * time.Hour), t0.Add(8 * time.Hour)}))
}

func TestCheckGrid_StrayTimestamp(t *testing.T) {
	spec := NewBucketSpec(time.Minute, 7)
	details := []sensor.DetailRecord{
		detail("S1", "A", 1, minutes(0)),
		detail("S1", "A", 2, minutes(30)),
	}
	require.NoError(t, CheckGrid("S1", details, spec))

	details = append(details, detail("S1", "A", 3, t0.AddDate(-5, 0, 0)))
	err := CheckGrid("S1", details, spec)
	require.Error(t, err)
	assert.True(t, core.IsMalformedInput(err))
	assert.Contains(t, err.Error(), "S1")
}
