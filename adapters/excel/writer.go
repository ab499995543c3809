package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sensorgrid/domain/sensor"
	"sensorgrid/internal"
	"sensorgrid/internal/errors"
	"sensorgrid/ports"

	"github.com/xuri/excelize/v2"
)

// TimestampLayout is the textual timestamp format of written tables.
const TimestampLayout = "2006-01-02 15:04:05"

// OutputSheet is the sheet name of XLSX output.
const OutputSheet = "output"

// Header returns the output column names for a table: the detail columns, one mean
// column per tracked variable, and the period column in full-day mode.
func Header(table *sensor.ResultTable) []string {
	header := []string{
		"Sensor Name", "Timestamp", "Week", "Week Day", "Date", "Unix", "Slice",
		"Relative Time", "Longitude", "Latitude",
	}
	for _, v := range table.Variables {
		header = append(header, "mean_"+string(v))
	}
	if table.FullDay {
		header = append(header, "Time")
	}
	return header
}

// recordValues returns the typed cells of one output row. A missing mean is nil.
func recordValues(table *sensor.ResultTable, rec sensor.FusedRecord) []interface{} {
	values := []interface{}{
		string(rec.Sensor),
		rec.Timestamp.UTC().Format(TimestampLayout),
		string(rec.Partition),
		rec.Weekday.String(),
		rec.DayOfMonth,
		rec.Epoch,
		rec.Slice,
		int64(rec.Relative / time.Second),
		rec.Longitude,
		rec.Latitude,
	}
	for _, v := range table.Variables {
		if mean, ok := rec.Mean(v); ok {
			values = append(values, mean)
		} else {
			values = append(values, nil)
		}
	}
	if table.FullDay {
		values = append(values, string(rec.Period))
	}
	return values
}

func formatCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// CSVSink writes the result table as a CSV file.
type CSVSink struct {
	path   string
	logger *internal.Logger
}

// NewCSVSink creates a CSV sink writing to path.
func NewCSVSink(path string, logger *internal.Logger) *CSVSink {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &CSVSink{path: path, logger: logger}
}

// Write implements ports.ResultSink.
func (s *CSVSink) Write(ctx context.Context, table *sensor.ResultTable) error {
	if err := ensureDir(s.path); err != nil {
		return errors.SinkError("csv", err)
	}
	file, err := os.Create(s.path)
	if err != nil {
		return errors.SinkError("csv", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(Header(table)); err != nil {
		return errors.SinkError("csv", err)
	}

	cells := make([]string, 0, len(Header(table)))
	for i, rec := range table.Records {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		cells = cells[:0]
		for _, v := range recordValues(table, rec) {
			cells = append(cells, formatCell(v))
		}
		if err := w.Write(cells); err != nil {
			return errors.SinkError("csv", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.SinkError("csv", err)
	}
	if err := file.Close(); err != nil {
		return errors.SinkError("csv", err)
	}

	s.logger.Info("Wrote %d rows to %s", len(table.Records), s.path)
	return nil
}

// XLSXSink writes the result table to a single-sheet workbook.
type XLSXSink struct {
	path   string
	logger *internal.Logger
}

// NewXLSXSink creates an XLSX sink writing to path.
func NewXLSXSink(path string, logger *internal.Logger) *XLSXSink {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &XLSXSink{path: path, logger: logger}
}

// Write implements ports.ResultSink.
func (s *XLSXSink) Write(ctx context.Context, table *sensor.ResultTable) error {
	if err := ensureDir(s.path); err != nil {
		return errors.SinkError("xlsx", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", OutputSheet); err != nil {
		return errors.SinkError("xlsx", err)
	}

	sw, err := f.NewStreamWriter(OutputSheet)
	if err != nil {
		return errors.SinkError("xlsx", err)
	}

	header := Header(table)
	headerCells := make([]interface{}, len(header))
	for i, h := range header {
		headerCells[i] = h
	}
	if err := sw.SetRow("A1", headerCells); err != nil {
		return errors.SinkError("xlsx", err)
	}

	for i, rec := range table.Records {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.SinkError("xlsx", err)
		}
		if err := sw.SetRow(cell, recordValues(table, rec)); err != nil {
			return errors.SinkError("xlsx", err)
		}
	}
	if err := sw.Flush(); err != nil {
		return errors.SinkError("xlsx", err)
	}
	if err := f.SaveAs(s.path); err != nil {
		return errors.SinkError("xlsx", err)
	}

	s.logger.Info("Wrote %d rows to %s", len(table.Records), s.path)
	return nil
}

// NewFileSink picks the sink for path by extension: .xlsx gets a workbook, anything
// else CSV.
func NewFileSink(path string, logger *internal.Logger) ports.ResultSink {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return NewXLSXSink(path, logger)
	}
	return NewCSVSink(path, logger)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
