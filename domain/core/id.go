package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// v7 keeps run ids sortable by start time; fall back to v4 on failure
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	RunID       ID
	PartitionID ID
	SensorID    ID
	VariableKey ID
)

// String conversions for domain IDs
func (id RunID) String() string       { return ID(id).String() }
func (id PartitionID) String() string { return ID(id).String() }
func (id SensorID) String() string    { return ID(id).String() }
func (id VariableKey) String() string  { return ID(id).String() }

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("run ID cannot be empty")
	}
	return RunID(s), nil
}

// ParsePartitionID parses a string into PartitionID
func ParsePartitionID(s string) (PartitionID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("partition ID cannot be empty")
	}
	return PartitionID(strings.TrimSpace(s)), nil
}

// ParseSensorID parses a string into SensorID
func ParseSensorID(s string) (SensorID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("sensor ID cannot be empty")
	}
	return SensorID(strings.TrimSpace(s)), nil
}

// ParseVariableKey parses a string into VariableKey
func ParseVariableKey(s string) (VariableKey, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("variable key cannot be empty")
	}
	return VariableKey(strings.TrimSpace(s)), nil
}

// ParseVariableList parses a comma separated list of variable keys, keeping order
// and dropping repeats.
func ParseVariableList(s string) ([]VariableKey, error) {
	var keys []VariableKey
	seen := make(map[VariableKey]bool)
	for _, part := range strings.Split(s, ",") {
		key, err := ParseVariableKey(part)
		if err != nil {
			return nil, fmt.Errorf("invalid variable list %q: %w", s, err)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys, nil
}
