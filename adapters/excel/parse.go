package excel

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"sensorgrid/domain/core"
	"sensorgrid/domain/sensor"

	"github.com/xuri/excelize/v2"
)

// parseReadings converts the rows of a data file. An empty value cell is a missing
// reading (NaN); everything else must parse.
func parseReadings(id core.PartitionID, data *SheetData, cols Columns) ([]sensor.Reading, error) {
	for _, required := range []string{cols.Sensor, cols.Variable, cols.Value, cols.Timestamp} {
		if !data.HasColumn(required) {
			return nil, core.NewMalformedInputError(id, fmt.Sprintf("data file has no %q column", required))
		}
	}

	readings := make([]sensor.Reading, 0, len(data.Rows))
	for i, row := range data.Rows {
		rowNum := i + 1

		value := math.NaN()
		if raw := row[cols.Value]; raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, core.NewMalformedRowError(id, rowNum, fmt.Sprintf("invalid value %q", raw))
			}
			value = v
		}

		ts, err := parseTimestamp(row[cols.Timestamp], data.DateSerials())
		if err != nil {
			return nil, core.NewMalformedRowError(id, rowNum, err.Error())
		}

		suspect, err := parseFlag(row[cols.Suspect])
		if err != nil {
			return nil, core.NewMalformedRowError(id, rowNum, err.Error())
		}

		readings = append(readings, sensor.Reading{
			Sensor:    core.SensorID(row[cols.Sensor]),
			Variable:  core.VariableKey(row[cols.Variable]),
			Value:     value,
			Timestamp: ts,
			Suspect:   suspect,
			Units:     row[cols.Units],
		})
	}
	return readings, nil
}

// parseLocations converts the rows of a sensors file.
func parseLocations(id core.PartitionID, data *SheetData, cols Columns) ([]sensor.Location, error) {
	for _, required := range []string{cols.Sensor, cols.Longitude, cols.Latitude} {
		if !data.HasColumn(required) {
			return nil, core.NewMalformedInputError(id, fmt.Sprintf("sensors file has no %q column", required))
		}
	}

	locations := make([]sensor.Location, 0, len(data.Rows))
	for i, row := range data.Rows {
		rowNum := i + 1
		lon, err := parseCoordinate(row[cols.Longitude])
		if err != nil {
			return nil, core.NewMalformedRowError(id, rowNum, "longitude: "+err.Error())
		}
		lat, err := parseCoordinate(row[cols.Latitude])
		if err != nil {
			return nil, core.NewMalformedRowError(id, rowNum, "latitude: "+err.Error())
		}
		locations = append(locations, sensor.Location{
			Sensor:    core.SensorID(row[cols.Sensor]),
			Longitude: lon,
			Latitude:  lat,
		})
	}
	return locations, nil
}

// Timestamps must fit in int64 nanoseconds since the epoch, the range the bucket
// arithmetic works in.
var (
	minTimestamp = time.Unix(0, math.MinInt64).UTC()
	maxTimestamp = time.Unix(0, math.MaxInt64).UTC()
)

// parseTimestamp accepts the textual layouts in timestampLayouts. Bare numbers are
// read as Excel date serials when serials is set and rejected otherwise.
func parseTimestamp(raw string, serials bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}

	t, err := parseTimestampText(raw, serials)
	if err != nil {
		return time.Time{}, err
	}
	if t.Before(minTimestamp) || t.After(maxTimestamp) {
		return time.Time{}, fmt.Errorf("timestamp %q out of range", raw)
	}
	return t, nil
}

func parseTimestampText(raw string, serials bool) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
	}
	if !serials {
		return time.Time{}, fmt.Errorf("numeric timestamp %q (only workbook cells may hold date serials)", raw)
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date serial %q: %v", raw, err)
	}
	return t.UTC(), nil
}

// parseFlag reads the suspect column. A missing cell means not suspect.
func parseFlag(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "0", "false", "f", "no", "n":
		return false, nil
	case "1", "true", "t", "yes", "y":
		return true, nil
	default:
		return false, fmt.Errorf("invalid suspect flag %q", raw)
	}
}

func parseCoordinate(raw string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("missing")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	return v, nil
}
