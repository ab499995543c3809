package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Input errors
	ErrMalformedInput   = errors.New("malformed input")
	ErrUnresolvedSensor = errors.New("unresolved sensor")
	ErrEmptyAggregate   = errors.New("empty aggregate")

	// Configuration errors
	ErrConfiguration = errors.New("invalid configuration")

	// Lookup errors
	ErrNotFound          = errors.New("resource not found")
	ErrPartitionNotFound = fmt.Errorf("%w: partition", ErrNotFound)
)

// Error constructors with context
func NewMalformedInputError(partition PartitionID, reason string) error {
	return fmt.Errorf("%w in partition %s: %s", ErrMalformedInput, partition, reason)
}

func NewMalformedRowError(partition PartitionID, row int, reason string) error {
	return fmt.Errorf("%w in partition %s, row %d: %s", ErrMalformedInput, partition, row, reason)
}

func NewConfigurationError(field string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrConfiguration, field, reason)
}

func NewEmptyAggregateError(sensor SensorID, variable VariableKey) error {
	return fmt.Errorf("%w: sensor %s has no present %s readings", ErrEmptyAggregate, sensor, variable)
}

// Error checking helpers
func IsMalformedInput(err error) bool {
	return errors.Is(err, ErrMalformedInput)
}

func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
