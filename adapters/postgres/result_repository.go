package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"sensorgrid/domain/core"
	"sensorgrid/domain/sensor"
	"sensorgrid/internal/errors"
	"sensorgrid/ports"

	"github.com/jmoiron/sqlx"
)

// FusedRow is one stored row of fused_records.
type FusedRow struct {
	RunID           string    `db:"run_id"`
	SensorName      string    `db:"sensor_name"`
	Timestamp       time.Time `db:"ts"`
	PartitionID     string    `db:"partition_id"`
	Weekday         string    `db:"weekday"`
	DayOfMonth      int       `db:"day_of_month"`
	UnixSeconds     int64     `db:"unix_seconds"`
	Slice           int64     `db:"slice"`
	RelativeSeconds int64     `db:"relative_seconds"`
	Longitude       float64   `db:"longitude"`
	Latitude        float64   `db:"latitude"`
	Means           string    `db:"means"`
	Period          string    `db:"period"`
}

// DecodeMeans parses the JSON means column.
func (r FusedRow) DecodeMeans() (map[core.VariableKey]float64, error) {
	means := make(map[core.VariableKey]float64)
	if r.Means == "" {
		return means, nil
	}
	if err := json.Unmarshal([]byte(r.Means), &means); err != nil {
		return nil, fmt.Errorf("failed to unmarshal means: %w", err)
	}
	return means, nil
}

// resultRepository stores result tables in fused_records, one run at a time
type resultRepository struct {
	db          *sqlx.DB
	runID       core.RunID
	fingerprint core.Hash
}

// NewResultRepository creates a SQL result sink that tags rows with runID
func NewResultRepository(db *sqlx.DB, runID core.RunID, fingerprint core.Hash) ports.ResultSink {
	return &resultRepository{db: db, runID: runID, fingerprint: fingerprint}
}

// Write inserts the run header and every record in one transaction. Writing the same
// run twice replaces its rows.
func (r *resultRepository) Write(ctx context.Context, table *sensor.ResultTable) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.SinkError("sql", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM fused_records WHERE run_id = ?`), r.runID); err != nil {
		return errors.SinkError("sql", fmt.Errorf("failed to clear run: %w", err))
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM fusion_runs WHERE run_id = ?`), r.runID); err != nil {
		return errors.SinkError("sql", fmt.Errorf("failed to clear run: %w", err))
	}

	variables := make([]string, len(table.Variables))
	for i, v := range table.Variables {
		variables[i] = string(v)
	}
	_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO fusion_runs (
		run_id, fingerprint, variables, full_day, row_count, created_at
	) VALUES (?, ?, ?, ?, ?, ?)`),
		r.runID, r.fingerprint, strings.Join(variables, ","), table.FullDay, len(table.Records), time.Now().UTC(),
	)
	if err != nil {
		return errors.SinkError("sql", fmt.Errorf("failed to insert run: %w", err))
	}

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`INSERT INTO fused_records (
		run_id, sensor_name, ts, partition_id, weekday, day_of_month, unix_seconds, slice,
		relative_seconds, longitude, latitude, means, period
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return errors.SinkError("sql", fmt.Errorf("failed to prepare insert: %w", err))
	}
	defer stmt.Close()

	for _, rec := range table.Records {
		meansJSON, err := json.Marshal(rec.Means)
		if err != nil {
			return errors.SinkError("sql", fmt.Errorf("failed to marshal means: %w", err))
		}
		_, err = stmt.ExecContext(ctx,
			r.runID, rec.Sensor, rec.Timestamp.UTC(), rec.Partition, rec.Weekday.String(), rec.DayOfMonth,
			rec.Epoch, rec.Slice, int64(rec.Relative/time.Second), rec.Longitude, rec.Latitude,
			string(meansJSON), string(rec.Period),
		)
		if err != nil {
			return errors.SinkError("sql", fmt.Errorf("failed to insert record %s@%s: %w",
				rec.Sensor, rec.Timestamp.Format(time.RFC3339), err))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.SinkError("sql", err)
	}
	return nil
}

// ListRunRecords returns the stored rows of a run ordered by sensor and timestamp.
func ListRunRecords(ctx context.Context, db *sqlx.DB, runID core.RunID) ([]FusedRow, error) {
	var rows []FusedRow
	err := db.SelectContext(ctx, &rows, db.Rebind(`SELECT
		run_id, sensor_name, ts, partition_id, weekday, day_of_month, unix_seconds, slice,
		relative_seconds, longitude, latitude, means, period
	FROM fused_records WHERE run_id = ? ORDER BY sensor_name, ts`), runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list records of run %s: %w", runID, err)
	}
	return rows, nil
}

// CountRunRecords returns the row count recorded for a run.
func CountRunRecords(ctx context.Context, db *sqlx.DB, runID core.RunID) (int, error) {
	var count int
	err := db.GetContext(ctx, &count, db.Rebind(`SELECT row_count FROM fusion_runs WHERE run_id = ?`), runID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, fmt.Errorf("%w: run %s", core.ErrNotFound, runID)
		}
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}
