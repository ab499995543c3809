package ports

import (
	"context"

	"sensorgrid/domain/core"
	"sensorgrid/domain/sensor"
)

// PartitionSource supplies raw partitions (readings plus sensor metadata).
// Implementations must return partition ids in a stable order.
//
// The pipeline processes partitions in plain string order of their ids, and the
// earlier partition wins a duplicate (sensor, timestamp). "week10" sorts before
// "week2", so ids meant to run chronologically should be zero-padded ("week02").
type PartitionSource interface {
	// ListPartitions returns the ids of every partition the source can load
	ListPartitions(ctx context.Context) ([]core.PartitionID, error)

	// LoadPartition reads one partition. Unknown ids return an error wrapping
	// core.ErrPartitionNotFound; unreadable content wraps core.ErrMalformedInput.
	LoadPartition(ctx context.Context, id core.PartitionID) (*sensor.Partition, error)
}
