package ports

import (
	"context"

	"sensorgrid/domain/sensor"
)

// ResultSink persists a finished result table.
type ResultSink interface {
	Write(ctx context.Context, table *sensor.ResultTable) error
}

// SinkFunc adapts a plain function to ResultSink.
type SinkFunc func(ctx context.Context, table *sensor.ResultTable) error

// Write calls f.
func (f SinkFunc) Write(ctx context.Context, table *sensor.ResultTable) error {
	return f(ctx, table)
}

// MultiSink writes the table to every sink in order and stops on the first error.
type MultiSink []ResultSink

// Write implements ResultSink.
func (m MultiSink) Write(ctx context.Context, table *sensor.ResultTable) error {
	for _, s := range m {
		if err := s.Write(ctx, table); err != nil {
			return err
		}
	}
	return nil
}
