package resample

import (
	"time"

	"sensorgrid/domain/sensor"
)

const day = 24 * time.Hour

// PeriodOf labels t with the half-day bucket it falls in: "Day" for the twelve hours
// starting at the anchor, "Night" for the twelve hours after that. Time of day is taken
// in UTC, the zone the normalizer produces.
func PeriodOf(t time.Time, anchor time.Duration) sensor.Period {
	u := t.UTC()
	sinceMidnight := time.Duration(u.Hour())*time.Hour +
		time.Duration(u.Minute())*time.Minute +
		time.Duration(u.Second())*time.Second +
		time.Duration(u.Nanosecond())

	rel := (sinceMidnight - anchor) % day
	if rel < 0 {
		rel += day
	}
	if rel < HalfDay {
		return sensor.PeriodDay
	}
	return sensor.PeriodNight
}

// LabelPeriods sets the Day/Night label of every record when the spec is in full-day
// mode and returns how many records were labeled. Outside full-day mode records are
// left untouched. Labeling twice gives the same result as labeling once.
func LabelPeriods(records []sensor.FusedRecord, spec BucketSpec) int {
	if !spec.FullDay() {
		return 0
	}
	for i := range records {
		records[i].Period = PeriodOf(records[i].Timestamp, spec.Anchor)
	}
	return len(records)
}
