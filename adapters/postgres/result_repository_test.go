package postgres

import (
	"context"
	"testing"
	"time"

	"sensorgrid/domain/core"
	"sensorgrid/domain/sensor"
	"sensorgrid/internal/migration"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	db, err := Connect(ctx, "sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migration.NewRunner().Run(ctx, db))
	return db
}

func sampleTable() *sensor.ResultTable {
	at := time.Date(2019, 12, 2, 7, 0, 0, 0, time.UTC)
	return &sensor.ResultTable{
		Variables: []core.VariableKey{"PM10", "NO2"},
		FullDay:   true,
		Records: []sensor.FusedRecord{
			{
				Sensor: "S2", Timestamp: at, Partition: "week1", Weekday: time.Monday, DayOfMonth: 2,
				Epoch: at.Unix(), Slice: at.Unix() / 900, Relative: 2 * time.Minute,
				Longitude: -1.62, Latitude: 54.98,
				Means:  map[core.VariableKey]float64{"PM10": 3, "NO2": 4},
				Period: sensor.PeriodDay,
			},
			{
				Sensor: "S1", Timestamp: at.Add(12 * time.Hour), Partition: "week1", Weekday: time.Monday, DayOfMonth: 2,
				Epoch: at.Add(12 * time.Hour).Unix(), Slice: at.Add(12*time.Hour).Unix() / 900,
				Longitude: -1.61, Latitude: 54.97,
				Means:  map[core.VariableKey]float64{"PM10": 1},
				Period: sensor.PeriodNight,
			},
		},
	}
}

func TestResultRepository_Write(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	runID := core.RunID("run-1")

	sink := NewResultRepository(db, runID, core.NewHash([]byte("cfg")))
	require.NoError(t, sink.Write(ctx, sampleTable()))

	count, err := CountRunRecords(ctx, db, runID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	rows, err := ListRunRecords(ctx, db, runID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "S1", first.SensorName)
	assert.Equal(t, "Night", first.Period)
	assert.True(t, time.Date(2019, 12, 2, 19, 0, 0, 0, time.UTC).Equal(first.Timestamp))
	means, err := first.DecodeMeans()
	require.NoError(t, err)
	assert.Equal(t, map[core.VariableKey]float64{"PM10": 1}, means)

	second := rows[1]
	assert.Equal(t, "S2", second.SensorName)
	assert.Equal(t, "Monday", second.Weekday)
	assert.Equal(t, int64(120), second.RelativeSeconds)
	assert.Equal(t, -1.62, second.Longitude)
}

func TestResultRepository_RewriteReplacesRun(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	runID := core.RunID("run-2")
	sink := NewResultRepository(db, runID, core.NewHash([]byte("cfg")))

	require.NoError(t, sink.Write(ctx, sampleTable()))
	table := sampleTable()
	table.Records = table.Records[:1]
	require.NoError(t, sink.Write(ctx, table))

	rows, err := ListRunRecords(ctx, db, runID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestCountRunRecords_UnknownRun(t *testing.T) {
	db := setupDB(t)

	_, err := CountRunRecords(context.Background(), db, "nope")
	require.Error(t, err)
	assert.True(t, core.IsNotFoundError(err))
}
