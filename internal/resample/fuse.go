package resample

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"sensorgrid/domain/core"
	"sensorgrid/domain/sensor"
)

// JoinStrategy selects how per-variable aggregate tables are fused.
type JoinStrategy string

const (
	// JoinInner keeps only buckets present in every non-empty variable table. A bucket
	// missing from one variable is dropped even if the others have data for it.
	JoinInner JoinStrategy = "inner"
	// JoinOuter keeps the union of buckets; a variable without a value for a bucket is
	// left missing.
	JoinOuter JoinStrategy = "outer"
)

// ParseJoinStrategy parses a join strategy name.
func ParseJoinStrategy(s string) (JoinStrategy, error) {
	switch JoinStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case JoinInner, "":
		return JoinInner, nil
	case JoinOuter:
		return JoinOuter, nil
	default:
		return "", fmt.Errorf("unknown join strategy %q (use inner or outer)", s)
	}
}

// Fuse merges the aggregate tables of one sensor into one table keyed by bucket start,
// folding the tables in the given order. Empty tables are skipped: they add neither
// rows nor columns. The result is sorted by bucket start.
func Fuse(tables []sensor.AggregateTable, strategy JoinStrategy) []sensor.FusedBucket {
	var acc map[int64]*sensor.FusedBucket
	for _, table := range tables {
		if table.IsEmpty() {
			continue
		}
		if acc == nil {
			acc = make(map[int64]*sensor.FusedBucket, len(table.Buckets))
			for _, b := range table.Buckets {
				addMean(acc, b.Start, table.Variable, b.Mean)
			}
			continue
		}

		switch strategy {
		case JoinOuter:
			for _, b := range table.Buckets {
				addMean(acc, b.Start, table.Variable, b.Mean)
			}
		default:
			next := make(map[int64]*sensor.FusedBucket, len(acc))
			for _, b := range table.Buckets {
				fb, ok := acc[b.Start.UnixNano()]
				if !ok {
					continue
				}
				fb.Means[table.Variable] = b.Mean
				next[b.Start.UnixNano()] = fb
			}
			acc = next
		}
	}

	fused := make([]sensor.FusedBucket, 0, len(acc))
	for _, fb := range acc {
		fused = append(fused, *fb)
	}
	sort.Slice(fused, func(i, j int) bool {
		return fused[i].Start.Before(fused[j].Start)
	})
	return fused
}

func addMean(acc map[int64]*sensor.FusedBucket, start time.Time, variable core.VariableKey, mean float64) {
	key := start.UnixNano()
	fb, ok := acc[key]
	if !ok {
		fb = &sensor.FusedBucket{Start: start, Means: make(map[core.VariableKey]float64)}
		acc[key] = fb
	}
	fb.Means[variable] = mean
}
