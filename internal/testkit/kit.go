// Package testkit holds in-memory ports and synthetic data for tests and local runs.
package testkit

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"sensorgrid/domain/core"
	"sensorgrid/domain/sensor"
)

// InMemorySource is a PartitionSource over a fixed set of partitions
type InMemorySource struct {
	mu         sync.RWMutex
	partitions map[core.PartitionID]*sensor.Partition
	failures   map[core.PartitionID]error
	loads      []core.PartitionID
}

// NewInMemorySource creates a source holding the given partitions
func NewInMemorySource(partitions ...*sensor.Partition) *InMemorySource {
	s := &InMemorySource{
		partitions: make(map[core.PartitionID]*sensor.Partition, len(partitions)),
		failures:   make(map[core.PartitionID]error),
	}
	for _, p := range partitions {
		s.partitions[p.ID] = p
	}
	return s
}

// FailOn makes LoadPartition return err for id
func (s *InMemorySource) FailOn(id core.PartitionID, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[id] = err
}

// ListPartitions implements ports.PartitionSource
func (s *InMemorySource) ListPartitions(ctx context.Context) ([]core.PartitionID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]core.PartitionID, 0, len(s.partitions)+len(s.failures))
	for id := range s.partitions {
		ids = append(ids, id)
	}
	for id := range s.failures {
		if _, ok := s.partitions[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// LoadPartition implements ports.PartitionSource. The returned partition is a copy.
func (s *InMemorySource) LoadPartition(ctx context.Context, id core.PartitionID) (*sensor.Partition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads = append(s.loads, id)

	if err, ok := s.failures[id]; ok {
		return nil, err
	}
	p, ok := s.partitions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrPartitionNotFound, id)
	}
	return &sensor.Partition{
		ID:        p.ID,
		Readings:  append([]sensor.Reading(nil), p.Readings...),
		Locations: append([]sensor.Location(nil), p.Locations...),
	}, nil
}

// Loads returns the partition ids loaded so far, in call order
func (s *InMemorySource) Loads() []core.PartitionID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.PartitionID(nil), s.loads...)
}

// MemorySink is a ResultSink that keeps every table written to it
type MemorySink struct {
	mu     sync.Mutex
	Tables []*sensor.ResultTable
}

// Write implements ports.ResultSink
func (m *MemorySink) Write(ctx context.Context, table *sensor.ResultTable) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tables = append(m.Tables, table)
	return nil
}

// Last returns the most recently written table, or nil
func (m *MemorySink) Last() *sensor.ResultTable {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Tables) == 0 {
		return nil
	}
	return m.Tables[len(m.Tables)-1]
}
