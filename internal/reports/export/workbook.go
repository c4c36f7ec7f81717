package export

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"carbon-scribe/dairy-footprint/internal/batch"
)

// Sheet names used by the run workbook and the input template
const (
	SheetSummary = "Summary"
	SheetFarms   = "Farms"
	SheetSources = "Sources"
	SheetColumns = "Columns"
)

// Output formats accepted by WriteRun
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
	FormatPDF  = "pdf"
)

// WriteRun writes a run in the given format. An empty format means xlsx.
func WriteRun(run *batch.RunResult, format, path string, includeDetails bool) (string, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "", FormatXLSX:
		return WriteRunWorkbook(run, path, includeDetails)
	case FormatCSV:
		return WriteRunCSVFile(run, path)
	case FormatPDF:
		return WriteRunPDF(run, path)
	}
	return "", errors.Wrapf(ErrUnsupportedFormat, "%q", format)
}

// WriteRunWorkbook writes a run to an .xlsx file and returns the path
// written. A directory path gets a file named after the run.
func WriteRunWorkbook(run *batch.RunResult, path string, includeDetails bool) (string, error) {
	if run == nil {
		return "", errors.New("no run to export")
	}
	out, err := outputPath(path, "footprint_"+shortID(run.RunID), ".xlsx")
	if err != nil {
		return "", err
	}

	wb := NewWorkbook(DefaultExcelOptions())
	defer wb.Close()

	if err := wb.AddSheet(SheetSummary, summaryColumns, summaryRows(run)); err != nil {
		return "", err
	}
	if err := wb.AddSheet(SheetFarms, FarmColumns, farmRows(run)); err != nil {
		return "", err
	}
	if includeDetails {
		if err := wb.AddSheet(SheetSources, SourceColumns, sourceRows(run)); err != nil {
			return "", err
		}
	}

	if err := wb.SaveAs(out); err != nil {
		return "", errors.Wrapf(err, "failed to save workbook %s", out)
	}
	return out, nil
}

// WriteTemplate writes an empty farm input workbook: a Farms sheet with the
// recognized headers and one example row, and a Columns sheet documenting them.
func WriteTemplate(path string) (string, error) {
	out, err := outputPath(path, "farm_template", ".xlsx")
	if err != nil {
		return "", err
	}

	example := make(map[string]any, len(batch.Columns))
	docs := make([]map[string]any, 0, len(batch.Columns))
	for _, c := range batch.Columns {
		if f, err := strconv.ParseFloat(c.Example, 64); err == nil && c.Name != "farm_id" {
			example[c.Name] = f
		} else {
			example[c.Name] = c.Example
		}
		required := "no"
		if c.Required {
			required = "yes"
		}
		docs = append(docs, map[string]any{
			"column":      c.Name,
			"required":    required,
			"unit":        c.Unit,
			"description": c.Description,
			"example":     c.Example,
		})
	}

	opts := DefaultExcelOptions()
	opts.NumberFormat = ""
	wb := NewWorkbook(opts)
	defer wb.Close()

	if err := wb.AddSheet(SheetFarms, batch.ColumnNames(), []map[string]any{example}); err != nil {
		return "", err
	}
	if err := wb.AddSheet(SheetColumns, []string{"column", "required", "unit", "description", "example"}, docs); err != nil {
		return "", err
	}

	if err := wb.SaveAs(out); err != nil {
		return "", errors.Wrapf(err, "failed to save template %s", out)
	}
	return out, nil
}

// outputPath resolves a file or directory argument to a file path with ext
func outputPath(path, defaultName, ext string) (string, error) {
	if path == "" {
		path = "."
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return filepath.Join(path, defaultName+ext), nil
	}
	if filepath.Ext(path) == "" {
		path += ext
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create directory for %s", path)
	}
	return path, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
