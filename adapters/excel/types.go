package excel

// RawRowData represents a row of raw sheet data as string key-value pairs
type RawRowData map[string]string

// SheetData represents a complete tabular file
type SheetData struct {
	Headers  []string     // Column headers
	Rows     []RawRowData // Data rows
	FileType string       // "xlsx", "csv" or "jsonl"
}

// DateSerials reports whether numeric date cells are Excel serials. Only workbooks
// store dates that way.
func (d *SheetData) DateSerials() bool {
	return d.FileType == "xlsx"
}

// HasColumn reports whether the header row names column.
func (d *SheetData) HasColumn(column string) bool {
	for _, h := range d.Headers {
		if h == column {
			return true
		}
	}
	return false
}
