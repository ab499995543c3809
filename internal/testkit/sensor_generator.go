package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"sensorgrid/domain/core"
	"sensorgrid/domain/sensor"
)

// SensorGeneratorConfig configures the synthetic sensor data generator
type SensorGeneratorConfig struct {
	Partitions          int
	SensorsPerPartition int
	Variables           []core.VariableKey
	Interval            time.Duration // mean spacing between readings of one variable
	Span                time.Duration // length of each partition
	StartDate           time.Time
	SuspectRate         float64
	MissingRate         float64 // chance a variable has no readings at all for a sensor
	UnresolvedSensors   int     // sensors that read but are absent from the metadata
	Seed                int64
}

// DefaultSensorConfig returns a small week-long city centre dataset
func DefaultSensorConfig() SensorGeneratorConfig {
	return SensorGeneratorConfig{
		Partitions:          2,
		SensorsPerPartition: 6,
		Variables:           []core.VariableKey{"PM10", "PM1", "CO", "NO2"},
		Interval:            10 * time.Minute,
		Span:                7 * 24 * time.Hour,
		StartDate:           time.Date(2019, 12, 2, 0, 0, 0, 0, time.UTC),
		SuspectRate:         0.02,
		MissingRate:         0.05,
		UnresolvedSensors:   1,
		Seed:                42,
	}
}

// SensorDataGenerator generates partitions of noisy, diurnal sensor readings
type SensorDataGenerator struct {
	config SensorGeneratorConfig
	rng    *rand.Rand
}

// NewSensorDataGenerator creates a new generator; equal seeds give equal data
func NewSensorDataGenerator(config SensorGeneratorConfig) *SensorDataGenerator {
	return &SensorDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// GeneratePartitions generates consecutive partitions named week1, week2, ...
// Sensor names repeat across partitions so the run-level dedup has work to do.
func (g *SensorDataGenerator) GeneratePartitions() []*sensor.Partition {
	partitions := make([]*sensor.Partition, 0, g.config.Partitions)
	for i := 0; i < g.config.Partitions; i++ {
		id := core.PartitionID(fmt.Sprintf("week%d", i+1))
		start := g.config.StartDate.Add(time.Duration(i) * g.config.Span)
		partitions = append(partitions, g.generatePartition(id, start))
	}
	return partitions
}

func (g *SensorDataGenerator) generatePartition(id core.PartitionID, start time.Time) *sensor.Partition {
	p := &sensor.Partition{ID: id}

	total := g.config.SensorsPerPartition + g.config.UnresolvedSensors
	for s := 0; s < total; s++ {
		name := core.SensorID(fmt.Sprintf("PER_AIRMON_MESH%04d", 1000+s))
		if s < g.config.SensorsPerPartition {
			p.Locations = append(p.Locations, sensor.Location{
				Sensor:    name,
				Longitude: -1.62 + g.rng.Float64()*0.02,
				Latitude:  54.97 + g.rng.Float64()*0.02,
			})
		}

		for _, v := range g.config.Variables {
			if g.rng.Float64() < g.config.MissingRate {
				continue
			}
			p.Readings = append(p.Readings, g.generateSeries(name, v, start)...)
		}
	}

	// sources do not deliver readings sorted
	g.rng.Shuffle(len(p.Readings), func(i, j int) {
		p.Readings[i], p.Readings[j] = p.Readings[j], p.Readings[i]
	})
	return p
}

// generateSeries produces one variable's readings with a daily cycle and jittered timing
func (g *SensorDataGenerator) generateSeries(name core.SensorID, v core.VariableKey, start time.Time) []sensor.Reading {
	base := 5 + g.rng.Float64()*40
	var readings []sensor.Reading
	end := start.Add(g.config.Span)
	for t := start; t.Before(end); t = t.Add(g.config.Interval) {
		jitter := time.Duration(g.rng.Int63n(int64(g.config.Interval / 2)))
		at := t.Add(jitter)
		hour := float64(at.Hour()) + float64(at.Minute())/60
		value := base * (1 + 0.4*math.Sin(2*math.Pi*(hour-7)/24)) * (0.9 + 0.2*g.rng.Float64())

		readings = append(readings, sensor.Reading{
			Sensor:    name,
			Variable:  v,
			Value:     math.Round(value*100) / 100,
			Timestamp: at,
			Suspect:   g.rng.Float64() < g.config.SuspectRate,
			Units:     unitsFor(v),
		})
	}
	return readings
}

func unitsFor(v core.VariableKey) string {
	switch v {
	case "CO":
		return "ppm"
	default:
		return "ugm -3"
	}
}
