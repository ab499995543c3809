package app

import (
	"context"
	"sort"

	"sensorgrid/domain/core"
	"sensorgrid/domain/sensor"
	"sensorgrid/internal"
	"sensorgrid/internal/combine"
	"sensorgrid/internal/config"
	"sensorgrid/internal/detail"
	"sensorgrid/internal/errors"
	"sensorgrid/internal/report"
	"sensorgrid/internal/resample"
	"sensorgrid/ports"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// PipelineService runs the resampling pipeline over every partition of a source.
type PipelineService struct {
	source     ports.PartitionSource
	cfg        config.PipelineConfig
	engine     *resample.Engine
	detailOpts detail.Options
	logger     *internal.Logger
}

// RunResult is the output of one run.
type RunResult struct {
	Table  *sensor.ResultTable
	Report *report.RunReport
	// Failures holds the errors of partitions skipped under FailSkip.
	Failures error
}

// NewPipelineService creates a pipeline service. cfg must already be validated.
func NewPipelineService(source ports.PartitionSource, cfg config.PipelineConfig, logger *internal.Logger) *PipelineService {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	spec := cfg.BucketSpec()
	return &PipelineService{
		source: source,
		cfg:    cfg,
		engine: &resample.Engine{
			Variables: cfg.Variables,
			Spec:      spec,
			Coarse:    resample.NewNormalizer(cfg.CoarseResolution, cfg.Rounding),
			Strategy:  cfg.JoinStrategy,
		},
		detailOpts: detail.Options{
			Variables:        cfg.Variables,
			Fine:             resample.NewNormalizer(cfg.FineResolution, cfg.Rounding),
			CoarseResolution: cfg.CoarseResolution,
		},
		logger: logger,
	}
}

// sensorJob is the unit of work handed to a worker. details is private to the job.
type sensorJob struct {
	slot      int
	partition core.PartitionID
	sensor    core.SensorID
	details   []sensor.DetailRecord
}

// partitionOutcome is what one partition contributes before combining.
type partitionOutcome struct {
	summary   report.PartitionSummary
	sensors   []resample.SensorResult // metadata order; sensors without data are zero
	empty     int
	backfills int
}

// Run processes all partitions in id order and returns the combined, deduplicated and
// labelled result table. Partitions are processed one at a time; the sensors of a
// partition run concurrently, bounded by the configured worker count.
func (s *PipelineService) Run(ctx context.Context) (*RunResult, error) {
	rep := report.New(s.cfg.Variables, s.cfg.Fingerprint(), s.engine.Spec.FullDay())
	s.logger.Info("Starting run %s (fingerprint %s, variables %v, bucket %s)",
		rep.RunID, rep.Fingerprint.Short(), s.cfg.Variables, s.cfg.BucketWidth)

	ids, err := s.source.ListPartitions(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list partitions")
	}
	ids = sortedPartitions(ids)
	s.logger.Info("Found %d partitions", len(ids))

	combiner := combine.NewCombiner()
	var failures error

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		outcome, err := s.processPartition(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if s.cfg.FailureMode != config.FailSkip {
				return nil, err
			}
			s.logger.Warn("Skipping partition %s: %v", id, err)
			failures = multierr.Append(failures, err)
			rep.Partitions = append(rep.Partitions, report.PartitionSummary{ID: id, Error: err.Error()})
			continue
		}

		combiner.OpenPartition(id)
		for _, res := range outcome.sensors {
			combiner.AddSensor(res.Records)
		}
		outcome.summary.Rows = combiner.ClosePartition()
		rep.Partitions = append(rep.Partitions, outcome.summary)
		rep.EmptyAggregates += outcome.empty
		rep.BackfilledBuckets += outcome.backfills

		s.logger.Debug("Partition %s: %d sensors, %d rows", id, outcome.summary.Sensors, outcome.summary.Rows)
	}

	records, dropped := combiner.Result()
	if dropped > 0 {
		s.logger.Info("Dropped %d duplicate (sensor, timestamp) rows", dropped)
	}

	table := &sensor.ResultTable{
		Variables: append([]core.VariableKey(nil), s.cfg.Variables...),
		FullDay:   s.engine.Spec.FullDay(),
		Records:   records,
	}
	rep.DuplicatesDropped = dropped
	rep.Labeled = resample.LabelPeriods(table.Records, s.engine.Spec)
	rep.Finish(table)

	s.logger.Info("Run %s finished: %d rows from %d partitions (%d skipped) in %s",
		rep.RunID, rep.Rows, len(ids)-rep.SkippedPartitions(), rep.SkippedPartitions(), rep.Duration())

	return &RunResult{Table: table, Report: rep, Failures: failures}, nil
}

func (s *PipelineService) processPartition(ctx context.Context, id core.PartitionID) (*partitionOutcome, error) {
	p, err := s.source.LoadPartition(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load partition %s", id)
	}
	if p.ID == "" {
		p.ID = id
	}

	details, stats, err := detail.Build(p, s.detailOpts)
	if err != nil {
		return nil, errors.MalformedInput(id, err)
	}
	if stats.Unresolved > 0 {
		s.logger.Warn("Partition %s: dropped %d readings of sensors missing from metadata", id, stats.Unresolved)
	}
	s.logger.Debug("Partition %s: %d readings, %d suspect, %d untracked, %d kept",
		id, stats.Readings, stats.Suspect, stats.Untracked, stats.Kept)

	outcome := &partitionOutcome{
		summary: report.PartitionSummary{
			ID:         id,
			Readings:   stats.Readings,
			Unresolved: stats.Unresolved,
			Suspect:    stats.Suspect,
			Untracked:  stats.Untracked,
		},
	}

	groups := detail.GroupBySensor(details)
	order := p.SensorOrder()
	outcome.sensors = make([]resample.SensorResult, len(order))

	for _, sensorID := range order {
		if err := resample.CheckGrid(sensorID, groups[sensorID], s.engine.Spec); err != nil {
			return nil, errors.MalformedInput(id, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(s.cfg.Workers))

	for i, sensorID := range order {
		rows := groups[sensorID]
		if len(rows) == 0 {
			continue
		}
		outcome.summary.Sensors++

		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		job := sensorJob{slot: i, partition: id, sensor: sensorID, details: rows}
		g.Go(func() error {
			defer sem.Release(1)
			if err := gctx.Err(); err != nil {
				return err
			}
			s.logger.Trace("Partition %s: resampling sensor %s (%d rows)", job.partition, job.sensor, len(job.details))
			outcome.sensors[job.slot] = s.engine.Process(job.sensor, job.details)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, res := range outcome.sensors {
		for _, v := range res.EmptyVariables {
			s.logger.Debug("Partition %s: %v", id, core.NewEmptyAggregateError(res.Sensor, v))
		}
		outcome.empty += len(res.EmptyVariables)
		outcome.backfills += res.Backfilled
	}

	return outcome, nil
}

// sortedPartitions drops repeated ids and sorts the rest as plain strings.
func sortedPartitions(ids []core.PartitionID) []core.PartitionID {
	out := make([]core.PartitionID, 0, len(ids))
	seen := make(map[core.PartitionID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
