package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"

	"carbon-scribe/dairy-footprint/internal/batch"
)

// CSVExporter writes tables as CSV
type CSVExporter struct {
	writer        *csv.Writer
	options       CSVOptions
	headerWritten bool
}

// CSVOptions configures CSV export behavior
type CSVOptions struct {
	Delimiter       rune   `json:"delimiter"`
	UseCRLF         bool   `json:"use_crlf"`
	TimestampFormat string `json:"timestamp_format"`
	NumberFormat    string `json:"number_format"` // e.g. "%.3f"; empty keeps full precision
	NullValue       string `json:"null_value"`
}

// DefaultCSVOptions returns default CSV export options
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Delimiter:       ',',
		TimestampFormat: time.RFC3339,
	}
}

// NewCSVExporter creates a new CSV exporter
func NewCSVExporter(w io.Writer, options CSVOptions) *CSVExporter {
	writer := csv.NewWriter(w)
	if options.Delimiter != 0 {
		writer.Comma = options.Delimiter
	}
	writer.UseCRLF = options.UseCRLF

	return &CSVExporter{
		writer:  writer,
		options: options,
	}
}

// WriteHeader writes the CSV header row
func (e *CSVExporter) WriteHeader(columns []string) error {
	if err := e.writer.Write(columns); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	e.headerWritten = true
	return nil
}

// WriteMapRows writes rows keyed by column, adding the header first if needed
func (e *CSVExporter) WriteMapRows(rows []map[string]any, columns []string) error {
	if !e.headerWritten {
		if err := e.WriteHeader(columns); err != nil {
			return err
		}
	}

	for _, row := range rows {
		record := make([]string, len(columns))
		for i, col := range columns {
			record[i] = e.formatValue(row[col])
		}
		if err := e.writer.Write(record); err != nil {
			return errors.Wrap(err, "failed to write row")
		}
	}
	return nil
}

// Flush writes any buffered data to the underlying writer
func (e *CSVExporter) Flush() error {
	e.writer.Flush()
	return e.writer.Error()
}

// formatValue formats a value for CSV output
func (e *CSVExporter) formatValue(val any) string {
	switch v := val.(type) {
	case nil:
		return e.options.NullValue
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		if e.options.NumberFormat != "" {
			return fmt.Sprintf(e.options.NumberFormat, v)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case *float64:
		if v == nil {
			return e.options.NullValue
		}
		return e.formatValue(*v)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		if v.IsZero() {
			return e.options.NullValue
		}
		return v.Format(e.options.TimestampFormat)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// WriteRunCSV writes one line per farm in FarmColumns order
func WriteRunCSV(run *batch.RunResult, w io.Writer) error {
	if run == nil {
		return errors.New("no run to export")
	}
	e := NewCSVExporter(w, DefaultCSVOptions())
	if err := e.WriteMapRows(farmRows(run), FarmColumns); err != nil {
		return err
	}
	return e.Flush()
}

// WriteRunCSVFile writes the per-farm CSV to path and returns the path written
func WriteRunCSVFile(run *batch.RunResult, path string) (string, error) {
	if run == nil {
		return "", errors.New("no run to export")
	}
	out, err := outputPath(path, "footprint_"+shortID(run.RunID), ".csv")
	if err != nil {
		return "", err
	}
	f, err := os.Create(out)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create %s", out)
	}
	defer f.Close()

	if err := WriteRunCSV(run, f); err != nil {
		return "", err
	}
	return out, f.Close()
}
