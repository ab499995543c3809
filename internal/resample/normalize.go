// Package resample is the time-series engine: it puts readings on a common grid,
// pivots them per variable, computes bucket means with backfill, fuses the variables
// and joins the result back onto the detail rows.
package resample

import (
	"fmt"
	"strings"
	"time"
)

// RoundingMode selects how a timestamp exactly halfway between two grid points is rounded.
type RoundingMode string

const (
	// RoundHalfEven rounds ties to the even grid multiple.
	RoundHalfEven RoundingMode = "half_even"
	// RoundHalfUp rounds ties to the later grid point.
	RoundHalfUp RoundingMode = "half_up"
)

// ParseRoundingMode parses a rounding mode name.
func ParseRoundingMode(s string) (RoundingMode, error) {
	switch RoundingMode(strings.ToLower(strings.TrimSpace(s))) {
	case RoundHalfEven, "":
		return RoundHalfEven, nil
	case RoundHalfUp:
		return RoundHalfUp, nil
	default:
		return "", fmt.Errorf("unknown rounding mode %q (use half_even or half_up)", s)
	}
}

// Normalizer rounds timestamps to the nearest multiple of Resolution counted from the
// Unix epoch. Results are in UTC.
type Normalizer struct {
	Resolution time.Duration
	Mode       RoundingMode
}

// NewNormalizer creates a normalizer for the given grid resolution.
func NewNormalizer(resolution time.Duration, mode RoundingMode) Normalizer {
	return Normalizer{Resolution: resolution, Mode: mode}
}

// Round returns t rounded onto the grid.
func (n Normalizer) Round(t time.Time) time.Time {
	res := int64(n.Resolution)
	if res <= 0 {
		return t.UTC()
	}

	nanos := t.UnixNano()
	q := floorDiv(nanos, res)
	rem := nanos - q*res

	switch {
	case rem > res-rem:
		q++
	case rem == res-rem:
		if n.Mode == RoundHalfUp || q%2 != 0 {
			q++
		}
	}
	return time.Unix(0, q*res).UTC()
}

// RoundAll rounds every timestamp in place order and returns a new slice.
func (n Normalizer) RoundAll(ts []time.Time) []time.Time {
	out := make([]time.Time, len(ts))
	for i, t := range ts {
		out[i] = n.Round(t)
	}
	return out
}

// floorDiv divides rounding towards negative infinity.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
