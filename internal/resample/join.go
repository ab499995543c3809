package resample

import (
	"time"

	"sensorgrid/domain/core"
	"sensorgrid/domain/sensor"
)

// rowKey identifies a fused row by every column it carries. Means are not part of the
// key because they are a function of the timestamp.
type rowKey struct {
	sensor    core.SensorID
	timestamp int64
	partition core.PartitionID
	epoch     int64
	longitude float64
	latitude  float64
}

// JoinDetail attaches the fused bucket means to every detail row whose coarse-rounded
// timestamp equals a bucket start. Rows without a matching bucket are dropped, and so
// are rows that end up identical to an earlier one (several variables read in the same
// minute collapse to one row). Detail order is preserved.
//
// Rows of the same bucket share one Means map; treat it as read-only.
func JoinDetail(details []sensor.DetailRecord, coarse Normalizer, fused []sensor.FusedBucket) []sensor.FusedRecord {
	byStart := make(map[int64]map[core.VariableKey]float64, len(fused))
	for _, fb := range fused {
		byStart[fb.Start.UnixNano()] = fb.Means
	}

	seen := make(map[rowKey]bool, len(details))
	out := make([]sensor.FusedRecord, 0, len(details))
	for _, d := range details {
		at := coarse.Round(d.Timestamp)
		means, ok := byStart[at.UnixNano()]
		if !ok {
			continue
		}

		key := rowKey{
			sensor:    d.Sensor,
			timestamp: at.UnixNano(),
			partition: d.Partition,
			epoch:     d.Epoch,
			longitude: d.Longitude,
			latitude:  d.Latitude,
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		out = append(out, fusedFromDetail(d, at, means))
	}
	return out
}

func fusedFromDetail(d sensor.DetailRecord, at time.Time, means map[core.VariableKey]float64) sensor.FusedRecord {
	return sensor.FusedRecord{
		Sensor:     d.Sensor,
		Timestamp:  at,
		Partition:  d.Partition,
		Weekday:    d.Weekday,
		DayOfMonth: d.DayOfMonth,
		Epoch:      d.Epoch,
		Slice:      d.Slice,
		Relative:   d.Relative,
		Longitude:  d.Longitude,
		Latitude:   d.Latitude,
		Means:      means,
	}
}
