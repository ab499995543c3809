package excel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"sensorgrid/domain/core"
	"sensorgrid/domain/sensor"
	"sensorgrid/internal"
)

// DirectorySource reads partitions from a data directory: every subdirectory holding a
// data file is one partition, named after the subdirectory.
type DirectorySource struct {
	root    string
	columns Columns
	logger  *internal.Logger
}

// NewDirectorySource creates a source rooted at dir.
func NewDirectorySource(dir string, logger *internal.Logger) *DirectorySource {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &DirectorySource{root: dir, columns: DefaultColumns(), logger: logger}
}

// WithColumns overrides the header names.
func (s *DirectorySource) WithColumns(cols Columns) *DirectorySource {
	s.columns = cols
	return s
}

// ListPartitions returns the partition subdirectories in byte-wise name order
// ("week10" before "week2").
func (s *DirectorySource) ListPartitions(ctx context.Context) ([]core.PartitionID, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory %s: %w", s.root, err)
	}

	var ids []core.PartitionID
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}
		if _, ok := findFile(filepath.Join(s.root, entry.Name()), DataFileBase, dataExtensions); !ok {
			s.logger.Trace("Ignoring directory %s: no data file", entry.Name())
			continue
		}
		ids = append(ids, core.PartitionID(entry.Name()))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// LoadPartition reads the data and sensors files of one partition.
func (s *DirectorySource) LoadPartition(ctx context.Context, id core.PartitionID) (*sensor.Partition, error) {
	dir := filepath.Join(s.root, string(id))
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", core.ErrPartitionNotFound, id)
	}

	dataPath, ok := findFile(dir, DataFileBase, dataExtensions)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no data file", core.ErrPartitionNotFound, id)
	}
	sensorsPath, ok := findFile(dir, SensorsFileBase, sensorsExtensions)
	if !ok {
		return nil, core.NewMalformedInputError(id, "no sensors file")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := NewDataReader(dataPath, s.logger).ReadData()
	if err != nil {
		return nil, core.NewMalformedInputError(id, err.Error())
	}
	readings, err := parseReadings(id, data, s.columns)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	meta, err := NewDataReader(sensorsPath, s.logger).ReadData()
	if err != nil {
		return nil, core.NewMalformedInputError(id, err.Error())
	}
	locations, err := parseLocations(id, meta, s.columns)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Loaded partition %s: %d readings, %d sensors", id, len(readings), len(locations))
	return &sensor.Partition{ID: id, Readings: readings, Locations: locations}, nil
}

func findFile(dir, base string, extensions []string) (string, bool) {
	for _, ext := range extensions {
		path := filepath.Join(dir, base+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}
