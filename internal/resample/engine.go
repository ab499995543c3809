package resample

import (
	"sensorgrid/domain/core"
	"sensorgrid/domain/sensor"
)

// Engine runs the per-sensor steps: reshape, aggregate each variable, fuse, join.
// It holds no state between calls and is safe for concurrent use.
type Engine struct {
	Variables []core.VariableKey
	Spec      BucketSpec
	Coarse    Normalizer
	Strategy  JoinStrategy
}

// SensorResult is the output of one sensor within one partition.
type SensorResult struct {
	Sensor         core.SensorID
	Records        []sensor.FusedRecord
	Tables         []sensor.AggregateTable
	Fused          []sensor.FusedBucket
	EmptyVariables []core.VariableKey
	Backfilled     int
}

// Process resamples the detail rows of a single sensor. details must all belong to
// the same sensor and carry fine-resolution timestamps.
func (e *Engine) Process(id core.SensorID, details []sensor.DetailRecord) SensorResult {
	result := SensorResult{Sensor: id}
	if len(details) == 0 {
		result.EmptyVariables = append(result.EmptyVariables, e.Variables...)
		return result
	}

	wide := Reshape(details, e.Variables)

	result.Tables = make([]sensor.AggregateTable, 0, len(e.Variables))
	for _, v := range e.Variables {
		table := Aggregate(wide, v, e.Spec)
		if table.IsEmpty() {
			result.EmptyVariables = append(result.EmptyVariables, v)
		}
		for _, b := range table.Buckets {
			if b.Backfilled {
				result.Backfilled++
			}
		}
		result.Tables = append(result.Tables, table)
	}

	result.Fused = Fuse(result.Tables, e.Strategy)
	result.Records = JoinDetail(details, e.Coarse, result.Fused)
	return result
}
