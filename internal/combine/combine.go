// Package combine concatenates per-sensor results into partitions, partitions into the
// run result, and deduplicates the result on (sensor, timestamp).
package combine

import (
	"sensorgrid/domain/core"
	"sensorgrid/domain/sensor"
)

// Combiner accumulates fused records in the order they are added. It is not safe for
// concurrent use; callers feed it from a single goroutine in a fixed order.
type Combiner struct {
	records    []sensor.FusedRecord
	partition  []sensor.FusedRecord
	partitions []core.PartitionID
	open       core.PartitionID
}

// NewCombiner creates an empty combiner.
func NewCombiner() *Combiner {
	return &Combiner{}
}

// OpenPartition starts collecting sensors for a partition.
func (c *Combiner) OpenPartition(id core.PartitionID) {
	c.open = id
	c.partition = c.partition[:0]
}

// AddSensor appends one sensor's records to the open partition.
func (c *Combiner) AddSensor(records []sensor.FusedRecord) {
	c.partition = append(c.partition, records...)
}

// ClosePartition appends the open partition to the run result and returns the number
// of rows it contributed.
func (c *Combiner) ClosePartition() int {
	n := len(c.partition)
	c.records = append(c.records, c.partition...)
	c.partitions = append(c.partitions, c.open)
	c.partition = c.partition[:0]
	c.open = ""
	return n
}

// DiscardPartition drops whatever was collected for the open partition.
func (c *Combiner) DiscardPartition() {
	c.partition = c.partition[:0]
	c.open = ""
}

// Partitions returns the partitions closed so far, in order.
func (c *Combiner) Partitions() []core.PartitionID {
	return append([]core.PartitionID(nil), c.partitions...)
}

// Len returns the number of rows collected from closed partitions.
func (c *Combiner) Len() int {
	return len(c.records)
}

// Result deduplicates the concatenated records and returns them together with the
// number of rows removed.
func (c *Combiner) Result() ([]sensor.FusedRecord, int) {
	return Deduplicate(c.records)
}

type dedupKey struct {
	sensor    core.SensorID
	timestamp int64
}

// Deduplicate keeps the first record of every (sensor, timestamp) pair, in input order,
// and returns the survivors with the number of records dropped.
func Deduplicate(records []sensor.FusedRecord) ([]sensor.FusedRecord, int) {
	seen := make(map[dedupKey]bool, len(records))
	out := make([]sensor.FusedRecord, 0, len(records))
	for _, r := range records {
		key := dedupKey{sensor: r.Sensor, timestamp: r.Timestamp.UnixNano()}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out, len(records) - len(out)
}
