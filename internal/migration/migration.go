package migration

import (
	"context"

	"sensorgrid/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations. The statements are portable
// between PostgreSQL and SQLite.
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createFusionRunsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create fusion_runs table")
	}

	if err := r.createFusedRecordsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create fused_records table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createFusionRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS fusion_runs (
			run_id VARCHAR(64) PRIMARY KEY,
			fingerprint VARCHAR(64) NOT NULL,
			variables TEXT NOT NULL,
			full_day BOOLEAN NOT NULL DEFAULT false,
			row_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createFusedRecordsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS fused_records (
			run_id VARCHAR(64) NOT NULL REFERENCES fusion_runs(run_id) ON DELETE CASCADE,
			sensor_name VARCHAR(255) NOT NULL,
			ts TIMESTAMP NOT NULL,
			partition_id VARCHAR(255) NOT NULL,
			weekday VARCHAR(16) NOT NULL,
			day_of_month INTEGER NOT NULL,
			unix_seconds BIGINT NOT NULL,
			slice BIGINT NOT NULL,
			relative_seconds BIGINT NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			means TEXT NOT NULL,
			period VARCHAR(8) NOT NULL DEFAULT '',
			PRIMARY KEY (run_id, sensor_name, ts)
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_fused_records_partition ON fused_records(run_id, partition_id)`,
		`CREATE INDEX IF NOT EXISTS idx_fused_records_ts ON fused_records(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_fusion_runs_fingerprint ON fusion_runs(fingerprint)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
