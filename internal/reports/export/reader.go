package export

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/xuri/excelize/v2"

	"carbon-scribe/dairy-footprint/internal/batch"
)

// ErrUnsupportedFormat is returned for file formats this package cannot read or write
var ErrUnsupportedFormat = errors.New("unsupported format")

// ReadFarmTable loads farm records from an .xlsx or .csv file. Cell-level
// problems are kept on each record; only unreadable files or a missing
// required header fail the whole table.
func ReadFarmTable(path string) ([]batch.FarmRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadFarmXLSX(f)
	case ".csv":
		return ReadFarmCSV(f)
	}
	return nil, errors.WithHint(errors.Wrapf(ErrUnsupportedFormat, "%s", path), "use an .xlsx or .csv file")
}

// ReadFarmXLSX reads the Farms sheet, or the first sheet when there is none
func ReadFarmXLSX(r io.Reader) ([]batch.FarmRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	sheet := sheets[0]
	for _, name := range sheets {
		if strings.EqualFold(name, SheetFarms) {
			sheet = name
			break
		}
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sheet %s", sheet)
	}
	return recordsFromRows(rows)
}

// ReadFarmCSV reads a header row followed by one farm per line
func ReadFarmCSV(r io.Reader) ([]batch.FarmRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse csv")
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return recordsFromRows(rows)
}

func recordsFromRows(rows [][]string) ([]batch.FarmRecord, error) {
	if len(rows) == 0 {
		return nil, errors.New("farm table is empty")
	}
	header := rows[0]
	if err := checkRequiredHeaders(header); err != nil {
		return nil, err
	}

	var records []batch.FarmRecord
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		values := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(row) {
				values[h] = row[i]
			}
		}
		records = append(records, batch.ParseRow(values))
	}
	return records, nil
}

func checkRequiredHeaders(header []string) error {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")] = true
	}
	var missing []string
	for _, c := range batch.Columns {
		if c.Required && c.Name != "farm_id" && !present[c.Name] {
			missing = append(missing, c.Name)
		}
	}
	if len(missing) > 0 {
		return errors.WithHint(
			errors.Newf("farm table is missing required columns: %s", strings.Join(missing, ", ")),
			"generate a template with the template command")
	}
	return nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
