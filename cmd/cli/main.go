package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sensorgrid/adapters/excel"
	"sensorgrid/adapters/postgres"
	"sensorgrid/domain/core"
	"sensorgrid/internal"
	"sensorgrid/internal/config"
	"sensorgrid/internal/container"
	"sensorgrid/internal/migration"
	"sensorgrid/internal/resample"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func main() {
	// Load environment variables from .env file; a missing file is fine
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "sensorgrid",
		Short: "Resample and fuse sensor readings into a bucketed time series",
		Long: `sensorgrid reads partitioned sensor readings, averages each tracked variable over
fixed time buckets, fuses the variables per sensor and writes one deduplicated table.

Settings come from the environment (or a .env file); flags override them.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newPartitionsCmd(),
		newMigrateCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runFlags holds the command line overrides of the run command.
type runFlags struct {
	dataDir     string
	output      string
	report      string
	vars        string
	width       time.Duration
	anchor      int
	join        string
	rounding    string
	workers     int
	failureMode string
	sinkDriver  string
	sinkDSN     string
}

func newRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the resampling pipeline over a data directory",
		Long: `Run the pipeline over every partition (subdirectory with a data file) of the
data directory and write the fused table.

Example: sensorgrid run --data-dir ./december2019 --width 12h --anchor 7 --vars PM10,NO2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := applyRunFlags(cmd, cfg, f); err != nil {
				return err
			}
			return runPipeline(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&f.dataDir, "data-dir", "", "Directory holding one subdirectory per partition (DATA_DIR)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output file, .csv or .xlsx (OUTPUT_PATH)")
	cmd.Flags().StringVar(&f.report, "report", "", "Run report file, .md or .html (REPORT_PATH)")
	cmd.Flags().StringVar(&f.vars, "vars", "", "Comma separated tracked variables (SENSOR_VARS)")
	cmd.Flags().DurationVar(&f.width, "width", config.DefaultBucketWidth, "Bucket width; 12h enables Day/Night labels (BUCKET_WIDTH)")
	cmd.Flags().IntVar(&f.anchor, "anchor", config.DefaultAnchorHour, "Hour of day the 12h buckets start at (ANCHOR_HOUR)")
	cmd.Flags().StringVar(&f.join, "join", "", "Variable join strategy: inner|outer (JOIN_STRATEGY)")
	cmd.Flags().StringVar(&f.rounding, "rounding", "", "Timestamp rounding: half_even|half_up (ROUNDING)")
	cmd.Flags().IntVar(&f.workers, "workers", config.DefaultWorkers, "Concurrent sensors per partition (WORKERS)")
	cmd.Flags().StringVar(&f.failureMode, "failure-mode", "", "On a bad partition: abort|skip (FAILURE_MODE)")
	cmd.Flags().StringVar(&f.sinkDriver, "sink-driver", "", "SQL sink driver: postgres|sqlite3 (SINK_DRIVER)")
	cmd.Flags().StringVar(&f.sinkDSN, "sink-dsn", "", "Also store the table in this database (SINK_DSN)")

	return cmd
}

// applyRunFlags copies every flag the user set over the environment configuration and
// validates the result.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config, f runFlags) error {
	flags := cmd.Flags()
	p := &cfg.Pipeline

	if flags.Changed("data-dir") {
		cfg.Paths.DataDir = f.dataDir
	}
	if flags.Changed("output") {
		cfg.Paths.OutputPath = f.output
	}
	if flags.Changed("report") {
		cfg.Paths.ReportPath = f.report
	}
	if flags.Changed("vars") {
		vars, err := core.ParseVariableList(f.vars)
		if err != nil {
			return core.NewConfigurationError("--vars", err.Error())
		}
		p.Variables = vars
	}
	if flags.Changed("width") {
		p.BucketWidth = f.width
	}
	if flags.Changed("anchor") {
		p.AnchorHour = f.anchor
	}
	if flags.Changed("join") {
		strategy, err := resample.ParseJoinStrategy(f.join)
		if err != nil {
			return core.NewConfigurationError("--join", err.Error())
		}
		p.JoinStrategy = strategy
	}
	if flags.Changed("rounding") {
		mode, err := resample.ParseRoundingMode(f.rounding)
		if err != nil {
			return core.NewConfigurationError("--rounding", err.Error())
		}
		p.Rounding = mode
	}
	if flags.Changed("workers") {
		p.Workers = f.workers
	}
	if flags.Changed("failure-mode") {
		p.FailureMode = config.FailureMode(f.failureMode)
	}
	if flags.Changed("sink-driver") {
		cfg.Sink.Driver = f.sinkDriver
	}
	if flags.Changed("sink-dsn") {
		cfg.Sink.DSN = f.sinkDSN
	}

	return cfg.Validate()
}

func runPipeline(ctx context.Context, cfg *config.Config) error {
	c, err := container.New(cfg)
	if err != nil {
		return err
	}
	defer c.Shutdown(ctx)

	if err := c.Connect(ctx); err != nil {
		return err
	}

	result, err := c.Pipeline.Run(ctx)
	if err != nil {
		return err
	}

	rep := result.Report
	if err := c.Sinks(rep.RunID, rep.Fingerprint).Write(ctx, result.Table); err != nil {
		return err
	}

	if cfg.Paths.ReportPath != "" {
		if err := rep.WriteFile(cfg.Paths.ReportPath); err != nil {
			return err
		}
		c.Logger.Info("Wrote run report to %s", cfg.Paths.ReportPath)
	}

	fmt.Printf("Run %s: %d rows, %d partitions, %d duplicates dropped, %s\n",
		rep.RunID, rep.Rows, len(rep.Partitions)-rep.SkippedPartitions(), rep.DuplicatesDropped,
		rep.Duration().Round(time.Millisecond))
	fmt.Printf("Output: %s\n", c.OutputPath())

	if result.Failures != nil {
		for _, failure := range multierr.Errors(result.Failures) {
			fmt.Fprintf(os.Stderr, "skipped: %v\n", failure)
		}
	}
	return nil
}

func newPartitionsCmd() *cobra.Command {
	var dataDir string
	var load bool

	cmd := &cobra.Command{
		Use:   "partitions",
		Short: "List the partitions of a data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dataDir == "" {
				dataDir = os.Getenv("DATA_DIR")
			}
			if dataDir == "" {
				dataDir = "."
			}

			source := excel.NewDirectorySource(dataDir, internal.NewDefaultLogger())
			ids, err := source.ListPartitions(cmd.Context())
			if err != nil {
				return err
			}

			for _, id := range ids {
				if !load {
					fmt.Println(id)
					continue
				}
				p, err := source.LoadPartition(cmd.Context(), id)
				if err != nil {
					fmt.Printf("%s\terror: %v\n", id, err)
					continue
				}
				fmt.Printf("%s\t%d readings\t%d sensors\n", id, len(p.Readings), len(p.SensorOrder()))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory (DATA_DIR)")
	cmd.Flags().BoolVar(&load, "load", false, "Load each partition and print its reading and sensor counts")

	return cmd
}

func newMigrateCmd() *cobra.Command {
	var driver, dsn string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the result tables in the SQL sink database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				dsn = os.Getenv("SINK_DSN")
			}
			if dsn == "" {
				return core.NewConfigurationError("SINK_DSN", "is required")
			}

			db, err := postgres.Connect(cmd.Context(), driver, dsn)
			if err != nil {
				return err
			}
			defer db.Close()

			runner := migration.NewRunner()
			if err := runner.Run(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Printf("Migrations applied (version %s)\n", runner.Version())
			return nil
		},
	}

	driverDefault := os.Getenv("SINK_DRIVER")
	if driverDefault == "" {
		driverDefault = "postgres"
	}
	cmd.Flags().StringVar(&driver, "driver", driverDefault, "Database driver: postgres|sqlite3")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Database connection string (SINK_DSN)")

	return cmd
}
