// Package detail turns a loaded partition into detail records: timestamps on the fine
// grid, calendar and relative-time fields, sensor location, and the suspect and
// variable-set filters applied.
package detail

import (
	"fmt"
	"time"

	"sensorgrid/domain/core"
	"sensorgrid/domain/sensor"
	"sensorgrid/internal/resample"
)

// Options controls detail enrichment.
type Options struct {
	Variables        []core.VariableKey
	Fine             resample.Normalizer
	CoarseResolution time.Duration // width of the Slice id
}

// Stats counts what happened to a partition's readings.
type Stats struct {
	Readings   int
	Unresolved int // dropped: sensor missing from the partition metadata
	Suspect    int // dropped: flagged as suspect
	Untracked  int // dropped: variable outside the tracked set
	Kept       int
}

// Build validates and enriches the readings of p. Relative time is measured from the
// earliest reading of the whole partition, before any filtering. A reading without a
// sensor, variable or timestamp makes the partition malformed.
func Build(p *sensor.Partition, opts Options) ([]sensor.DetailRecord, Stats, error) {
	stats := Stats{Readings: len(p.Readings)}

	if err := validate(p); err != nil {
		return nil, stats, err
	}

	tracked := make(map[core.VariableKey]bool, len(opts.Variables))
	for _, v := range opts.Variables {
		tracked[v] = true
	}

	locations := make(map[core.SensorID]sensor.Location, len(p.Locations))
	for _, loc := range p.Locations {
		if _, ok := locations[loc.Sensor]; !ok {
			locations[loc.Sensor] = loc
		}
	}

	fine := make([]time.Time, len(p.Readings))
	var minEpoch int64
	for i, r := range p.Readings {
		fine[i] = opts.Fine.Round(r.Timestamp)
		if epoch := fine[i].Unix(); i == 0 || epoch < minEpoch {
			minEpoch = epoch
		}
	}

	sliceWidth := int64(opts.CoarseResolution / time.Second)
	if sliceWidth <= 0 {
		sliceWidth = 1
	}

	details := make([]sensor.DetailRecord, 0, len(p.Readings))
	for i, r := range p.Readings {
		loc, ok := locations[r.Sensor]
		if !ok {
			stats.Unresolved++
			continue
		}
		if r.Suspect {
			stats.Suspect++
			continue
		}
		if !tracked[r.Variable] {
			stats.Untracked++
			continue
		}

		at := fine[i]
		epoch := at.Unix()
		r.Timestamp = at
		details = append(details, sensor.DetailRecord{
			Reading:    r,
			Partition:  p.ID,
			Weekday:    at.Weekday(),
			DayOfMonth: at.Day(),
			Epoch:      epoch,
			Slice:      sliceOf(epoch, sliceWidth),
			Relative:   time.Duration(epoch-minEpoch) * time.Second,
			Longitude:  loc.Longitude,
			Latitude:   loc.Latitude,
		})
	}
	stats.Kept = len(details)
	return details, stats, nil
}

// GroupBySensor splits details per sensor, keeping each sensor's rows in input order.
func GroupBySensor(details []sensor.DetailRecord) map[core.SensorID][]sensor.DetailRecord {
	groups := make(map[core.SensorID][]sensor.DetailRecord)
	for _, d := range details {
		groups[d.Sensor] = append(groups[d.Sensor], d)
	}
	return groups
}

func validate(p *sensor.Partition) error {
	for i, r := range p.Readings {
		switch {
		case r.Sensor == "":
			return core.NewMalformedRowError(p.ID, i+1, "reading has no sensor name")
		case r.Variable == "":
			return core.NewMalformedRowError(p.ID, i+1, "reading has no variable")
		case r.Timestamp.IsZero():
			return core.NewMalformedRowError(p.ID, i+1, "reading has no timestamp")
		}
	}
	for i, loc := range p.Locations {
		if loc.Sensor == "" {
			return core.NewMalformedInputError(p.ID, fmt.Sprintf("sensor metadata row %d has no sensor name", i+1))
		}
	}
	return nil
}

func sliceOf(epoch, width int64) int64 {
	q := epoch / width
	if epoch%width != 0 && epoch < 0 {
		q--
	}
	return q
}
