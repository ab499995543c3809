package resample

import (
	"fmt"
	"time"

	"sensorgrid/domain/core"
	"sensorgrid/domain/sensor"

	"gonum.org/v1/gonum/stat"
)

// HalfDay is the bucket width that switches on full-day mode: two buckets per day
// whose boundaries sit on the anchor hour and twelve hours later.
const HalfDay = 12 * time.Hour

// MaxBuckets bounds the grid of a single sensor. Aggregate allocates every bucket
// between the first and the last, so a stray timestamp years away from the rest
// would otherwise cost memory in proportion to the gap.
const MaxBuckets = 1 << 20

// BucketSpec describes the bucket grid of a run.
type BucketSpec struct {
	Width  time.Duration
	Anchor time.Duration // offset from midnight, only used in full-day mode
}

// NewBucketSpec builds a spec from a width and an anchor hour of day.
func NewBucketSpec(width time.Duration, anchorHour int) BucketSpec {
	return BucketSpec{Width: width, Anchor: time.Duration(anchorHour) * time.Hour}
}

// FullDay reports whether the grid is the two-bucket day split.
func (s BucketSpec) FullDay() bool {
	return s.Width == HalfDay
}

// offset is the shift applied to epoch-aligned boundaries.
func (s BucketSpec) offset() int64 {
	if !s.FullDay() {
		return 0
	}
	return int64(s.Anchor)
}

// Start returns the start of the bucket containing t. Buckets are half-open, so a
// timestamp on a boundary belongs to the bucket that starts there.
func (s BucketSpec) Start(t time.Time) time.Time {
	w := int64(s.Width)
	off := s.offset()
	return time.Unix(0, floorDiv(t.UnixNano()-off, w)*w+off).UTC()
}

// GridSize returns how many buckets Aggregate allocates for the given timestamps.
func (s BucketSpec) GridSize(times []time.Time) int64 {
	if len(times) == 0 || s.Width <= 0 {
		return 0
	}
	w := int64(s.Width)
	off := s.offset()
	first := floorDiv(times[0].UnixNano()-off, w)
	last := first
	for _, t := range times[1:] {
		idx := floorDiv(t.UnixNano()-off, w)
		if idx < first {
			first = idx
		}
		if idx > last {
			last = idx
		}
	}
	return last - first + 1
}

// CheckGrid fails with core.ErrMalformedInput when one sensor's readings span more
// than MaxBuckets buckets.
func CheckGrid(id core.SensorID, details []sensor.DetailRecord, spec BucketSpec) error {
	times := make([]time.Time, len(details))
	for i, d := range details {
		times[i] = d.Timestamp
	}
	if n := spec.GridSize(times); n > MaxBuckets {
		return fmt.Errorf("%w: sensor %s spans %d buckets of %s (limit %d)",
			core.ErrMalformedInput, id, n, spec.Width, MaxBuckets)
	}
	return nil
}

// Aggregate computes the mean of variable per bucket for one sensor's rows.
//
// The grid runs from the first to the last bucket touched by any row, whatever its
// variable, so all variables of a sensor share one grid. Buckets without a present
// value are backfilled from the next non-empty bucket; trailing buckets left empty
// are dropped. A variable with no present values yields an empty table.
func Aggregate(rows []sensor.WideRow, variable core.VariableKey, spec BucketSpec) sensor.AggregateTable {
	table := sensor.AggregateTable{Variable: variable}
	if len(rows) == 0 || spec.Width <= 0 {
		return table
	}

	first := spec.Start(rows[0].Timestamp)
	last := first
	for _, row := range rows[1:] {
		start := spec.Start(row.Timestamp)
		if start.Before(first) {
			first = start
		}
		if start.After(last) {
			last = start
		}
	}

	n := int(last.Sub(first)/spec.Width) + 1
	values := make([][]float64, n)
	for _, row := range rows {
		v, ok := row.Value(variable)
		if !ok {
			continue
		}
		idx := int(spec.Start(row.Timestamp).Sub(first) / spec.Width)
		values[idx] = append(values[idx], v)
	}

	buckets := make([]sensor.AggregateRecord, n)
	for i := range buckets {
		buckets[i].Start = first.Add(time.Duration(i) * spec.Width)
		if len(values[i]) > 0 {
			buckets[i].Mean = stat.Mean(values[i], nil)
			buckets[i].Present = true
		}
	}

	for _, b := range Backfill(buckets) {
		if b.Present {
			table.Buckets = append(table.Buckets, b)
		}
	}
	return table
}

// Backfill fills every empty bucket with the mean of the nearest following non-empty
// bucket. Values never move forward in time, so empty buckets after the last non-empty
// one stay empty.
func Backfill(buckets []sensor.AggregateRecord) []sensor.AggregateRecord {
	out := make([]sensor.AggregateRecord, len(buckets))
	copy(out, buckets)

	var next *sensor.AggregateRecord
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Present {
			next = &out[i]
			continue
		}
		if next != nil {
			out[i].Mean = next.Mean
			out[i].Present = true
			out[i].Backfilled = true
		}
	}
	return out
}
