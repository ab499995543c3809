package resample

import (
	"math"

	"sensorgrid/domain/core"
	"sensorgrid/domain/sensor"
)

// Reshape pivots detail rows into wide form without grouping: every row keeps its
// position and gets a column for its own variable, provided that variable is tracked.
// All other variable columns stay absent, as does a NaN value.
func Reshape(details []sensor.DetailRecord, variables []core.VariableKey) []sensor.WideRow {
	tracked := make(map[core.VariableKey]bool, len(variables))
	for _, v := range variables {
		tracked[v] = true
	}

	rows := make([]sensor.WideRow, len(details))
	for i, d := range details {
		rows[i] = sensor.WideRow{DetailRecord: d, Columns: make(map[core.VariableKey]float64, 1)}
		if tracked[d.Variable] && !math.IsNaN(d.Value) {
			rows[i].Columns[d.Variable] = d.Value
		}
	}
	return rows
}
