// Package sensor holds the records that flow through the resampling pipeline, from raw
// readings to the fused, bucket-aligned rows of the final table.
package sensor

import (
	"time"

	"sensorgrid/domain/core"
)

// Reading is one raw observation as delivered by the partition source.
type Reading struct {
	Sensor    core.SensorID
	Variable  core.VariableKey
	Value     float64
	Timestamp time.Time
	Suspect   bool
	Units     string
}

// Location is the position of a sensor within one partition's metadata.
type Location struct {
	Sensor    core.SensorID
	Longitude float64
	Latitude  float64
}

// Partition is one disjoint slice of the dataset (e.g. a calendar week).
type Partition struct {
	ID        core.PartitionID
	Readings  []Reading
	Locations []Location
}

// SensorOrder returns the sensors named by the partition metadata in file order,
// ignoring repeated rows.
func (p *Partition) SensorOrder() []core.SensorID {
	seen := make(map[core.SensorID]bool, len(p.Locations))
	order := make([]core.SensorID, 0, len(p.Locations))
	for _, loc := range p.Locations {
		if seen[loc.Sensor] {
			continue
		}
		seen[loc.Sensor] = true
		order = append(order, loc.Sensor)
	}
	return order
}

// DetailRecord is a reading enriched with partition, calendar and location fields.
type DetailRecord struct {
	Reading

	Partition  core.PartitionID
	Weekday    time.Weekday
	DayOfMonth int
	Epoch      int64         // seconds since the Unix epoch, fine resolution
	Slice      int64         // Epoch divided by the coarse resolution
	Relative   time.Duration // elapsed since the partition's earliest reading
	Longitude  float64
	Latitude   float64
}

// WideRow is a detail record with one optional column per tracked variable. Only the
// column matching the row's own variable is populated.
type WideRow struct {
	DetailRecord
	Columns map[core.VariableKey]float64
}

// Value returns the row's value for variable and whether it is present.
func (r WideRow) Value(variable core.VariableKey) (float64, bool) {
	v, ok := r.Columns[variable]
	return v, ok
}

// AggregateRecord is one bucket of a variable's aggregate series.
type AggregateRecord struct {
	Start      time.Time
	Mean       float64
	Present    bool
	Backfilled bool // Mean was copied from the next non-empty bucket
}

// AggregateTable is the bucket series of one variable for one sensor, ordered by start.
type AggregateTable struct {
	Variable core.VariableKey
	Buckets  []AggregateRecord
}

// IsEmpty reports whether the table holds no buckets.
func (t AggregateTable) IsEmpty() bool {
	return len(t.Buckets) == 0
}

// FusedBucket is one row of the multi-variable table: a bucket start and the mean of
// every variable that has a value for it.
type FusedBucket struct {
	Start time.Time
	Means map[core.VariableKey]float64
}

// Period labels a half-day bucket in full-day mode.
type Period string

const (
	PeriodNone  Period = ""
	PeriodDay   Period = "Day"
	PeriodNight Period = "Night"
)

// FusedRecord is a detail row joined with its bucket's means. Raw variable, value,
// suspect flag and units are not carried.
type FusedRecord struct {
	Sensor     core.SensorID
	Timestamp  time.Time // coarse resolution, equals the bucket start
	Partition  core.PartitionID
	Weekday    time.Weekday
	DayOfMonth int
	Epoch      int64
	Slice      int64
	Relative   time.Duration
	Longitude  float64
	Latitude   float64
	Means      map[core.VariableKey]float64 // absent key means missing, never zero
	Period     Period
}

// Mean returns the mean of variable and whether it is present.
func (r FusedRecord) Mean(variable core.VariableKey) (float64, bool) {
	v, ok := r.Means[variable]
	return v, ok
}

// ResultTable is the combined output of a run.
type ResultTable struct {
	Variables []core.VariableKey
	FullDay   bool
	Records   []FusedRecord
}
