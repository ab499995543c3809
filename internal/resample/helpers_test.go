package resample

import (
	"time"

	"sensorgrid/domain/core"
	"sensorgrid/domain/sensor"
)

var t0 = time.Date(2019, 12, 2, 0, 0, 0, 0, time.UTC)

func minutes(n int) time.Time {
	return t0.Add(time.Duration(n) * time.Minute)
}

func detail(s core.SensorID, v core.VariableKey, value float64, at time.Time) sensor.DetailRecord {
	return sensor.DetailRecord{
		Reading: sensor.Reading{
			Sensor:    s,
			Variable:  v,
			Value:     value,
			Timestamp: at,
		},
		Partition: "week1",
		Epoch:     at.Unix(),
	}
}

func tableMeans(table sensor.AggregateTable) map[time.Time]float64 {
	out := make(map[time.Time]float64, len(table.Buckets))
	for _, b := range table.Buckets {
		out[b.Start] = b.Mean
	}
	return out
}
