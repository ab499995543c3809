package container

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"sensorgrid/adapters/excel"
	"sensorgrid/adapters/postgres"
	"sensorgrid/app"
	"sensorgrid/domain/core"
	"sensorgrid/internal"
	"sensorgrid/internal/config"
	"sensorgrid/internal/migration"
	"sensorgrid/ports"

	"github.com/jmoiron/sqlx"
	"go.uber.org/multierr"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	// Ports
	Source ports.PartitionSource

	// Services
	Pipeline *app.PipelineService
}

// New creates a new dependency injection container. cfg must already be validated.
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	logger := internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))
	c := &Container{
		Config: cfg,
		Logger: logger,
		Source: excel.NewDirectorySource(cfg.Paths.DataDir, logger),
	}
	c.Pipeline = app.NewPipelineService(c.Source, cfg.Pipeline, logger)

	return c, nil
}

// WithSource swaps the partition source and rebuilds the pipeline around it.
func (c *Container) WithSource(source ports.PartitionSource) *Container {
	c.Source = source
	c.Pipeline = app.NewPipelineService(source, c.Config.Pipeline, c.Logger)
	return c
}

// Connect opens the SQL sink database when a DSN is configured. Without one it does
// nothing.
func (c *Container) Connect(ctx context.Context) error {
	if c.Config.Sink.DSN == "" {
		return nil
	}
	db, err := postgres.Connect(ctx, c.Config.Sink.Driver, c.Config.Sink.DSN)
	if err != nil {
		return err
	}
	return c.InitWithDatabase(ctx, db)
}

// InitWithDatabase attaches db and brings its schema up to date
func (c *Container) InitWithDatabase(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}
	c.DB = db

	runner := migration.NewRunner()
	if err := runner.Run(ctx, db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	c.Logger.Debug("Container initialized with %s database (schema %s)", db.DriverName(), runner.Version())
	return nil
}

// OutputPath returns the configured output file, or output/output<width>.csv under the
// data directory.
func (c *Container) OutputPath() string {
	if c.Config.Paths.OutputPath != "" {
		return c.Config.Paths.OutputPath
	}
	return DefaultOutputPath(c.Config.Paths.DataDir, c.Config.Pipeline.BucketWidth)
}

// Sinks returns the sinks for a finished run: the output file, plus the SQL sink when a
// database is attached.
func (c *Container) Sinks(runID core.RunID, fingerprint core.Hash) ports.MultiSink {
	sinks := ports.MultiSink{excel.NewFileSink(c.OutputPath(), c.Logger)}
	if c.DB != nil {
		sinks = append(sinks, postgres.NewResultRepository(c.DB, runID, fingerprint))
	}
	return sinks
}

// Shutdown releases the database and flushes the logger
func (c *Container) Shutdown(ctx context.Context) error {
	var err error
	if c.DB != nil {
		err = multierr.Append(err, c.DB.Close())
		c.DB = nil
	}
	// syncing stderr fails on some terminals; it is not worth failing the run over
	_ = c.Logger.Sync()
	return err
}

// DefaultOutputPath names the output after the bucket width, e.g. output/output12H.csv.
func DefaultOutputPath(dataDir string, width time.Duration) string {
	return filepath.Join(dataDir, "output", "output"+WidthLabel(width)+".csv")
}

// WidthLabel formats a bucket width the way the output file names expect: 12H, 15T.
func WidthLabel(width time.Duration) string {
	switch {
	case width%time.Hour == 0:
		return fmt.Sprintf("%dH", width/time.Hour)
	case width%time.Minute == 0:
		return fmt.Sprintf("%dT", width/time.Minute)
	default:
		return width.String()
	}
}
