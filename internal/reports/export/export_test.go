package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"carbon-scribe/dairy-footprint/internal/batch"
	"carbon-scribe/dairy-footprint/internal/emissions"
)

func ptr(v float64) *float64 { return &v }

func sampleRun(t *testing.T) *batch.RunResult {
	t.Helper()
	table := []batch.FarmRecord{
		{
			FarmID: "F1", MilkLitres: 750000, CowsMilking: 120, Region: "western_europe",
			SyntheticNKg: ptr(8000), DieselL: ptr(10000), ConcentrateKg: ptr(100000),
			AreaTotalHa: ptr(150),
		},
		{FarmID: "F2", MilkLitres: -1, CowsMilking: 80},
	}
	run, err := batch.NewRunner(nil, nil, nil, batch.Options{}).Run(context.Background(), table, emissions.Tier1, nil, "")
	require.NoError(t, err)
	return run
}

func TestWriteRunWorkbook(t *testing.T) {
	run := sampleRun(t)
	dir := t.TempDir()

	path, err := WriteRunWorkbook(run, filepath.Join(dir, "out"), true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetFarms, SheetSources}, f.GetSheetList())

	farms, err := f.GetRows(SheetFarms, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, farms, 3)
	assert.Equal(t, FarmColumns, farms[0])
	assert.Equal(t, "F1", farms[1][1])
	assert.Equal(t, "success", farms[1][2])
	assert.Equal(t, "failed", farms[2][2])
	assert.Contains(t, farms[2], "milk_litres")

	sources, err := f.GetRows(SheetSources)
	require.NoError(t, err)
	// header plus five sources of the one successful farm
	assert.Len(t, sources, 6)

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"run_id", run.RunID}, summary[1])
}

func TestWriteRunWorkbookWithoutDetails(t *testing.T) {
	run := sampleRun(t)
	dir := t.TempDir()

	path, err := WriteRunWorkbook(run, dir, false)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "footprint_"))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{SheetSummary, SheetFarms}, f.GetSheetList())

	_, err = WriteRunWorkbook(nil, dir, false)
	assert.Error(t, err)
}

func TestTemplateRoundTrip(t *testing.T) {
	path, err := WriteTemplate(t.TempDir())
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	rows, err := f.GetRows(SheetFarms)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, batch.ColumnNames(), rows[0])

	records, err := ReadFarmTable(path)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	require.NoError(t, rec.DecodeErr)
	assert.Equal(t, "FARM-001", rec.FarmID)
	assert.Equal(t, 750000.0, rec.MilkLitres)
	assert.Equal(t, "liquid_slurry", rec.ManureSystem)
	require.NotNil(t, rec.MilkDensity)
	assert.InDelta(t, 1.03, *rec.MilkDensity, 1e-12)

	// the example row is a valid farm
	run, err := batch.NewRunner(nil, nil, nil, batch.Options{}).Run(context.Background(), records, emissions.Tier2, nil, "")
	require.NoError(t, err)
	assert.Equal(t, 1, run.Summary.NFarmsSuccessful, "%+v", run.FarmResults[0].Failure)
}

func TestReadFarmCSV(t *testing.T) {
	input := "\ufefffarm_id,milk_litres,cows_milking,heifers,extra\n" +
		"A,500000,80,20,x\n" +
		",,,,\n" +
		"B,abc,40,,\n" +
		"C,300000,50\n"

	records, err := ReadFarmCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "A", records[0].FarmID)
	require.NotNil(t, records[0].Heifers)
	assert.Equal(t, 20.0, *records[0].Heifers)
	assert.Error(t, records[1].DecodeErr)
	assert.NoError(t, records[2].DecodeErr)
	assert.Nil(t, records[2].Heifers)
}

func TestReadFarmTableErrors(t *testing.T) {
	_, err := ReadFarmCSV(strings.NewReader("farm_id,cows_milking\nA,10\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "milk_litres")

	_, err = ReadFarmCSV(strings.NewReader(""))
	assert.Error(t, err)

	dir := t.TempDir()
	txt := filepath.Join(dir, "farms.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o644))
	_, err = ReadFarmTable(txt)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	_, err = ReadFarmTable(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestWriteRunCSV(t *testing.T) {
	run := sampleRun(t)
	var buf bytes.Buffer
	require.NoError(t, WriteRunCSV(run, &buf))

	lines, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, FarmColumns, lines[0])
	assert.Equal(t, "F1", lines[1][1])
	assert.NotEmpty(t, lines[1][3])
	assert.Equal(t, "", lines[2][3])

	path, err := WriteRunCSVFile(run, filepath.Join(t.TempDir(), "farms.csv"))
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "row,farm_id,status"))
}

func TestWriteRunPDF(t *testing.T) {
	run := sampleRun(t)

	g := NewPDFGenerator(DefaultPDFOptions())
	require.NoError(t, g.GenerateRunSummary(run))
	data, err := g.OutputToBytes()
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	path, err := WriteRunPDF(run, t.TempDir())
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestWriteRunFormats(t *testing.T) {
	run := sampleRun(t)
	dir := t.TempDir()

	for format, ext := range map[string]string{"": ".xlsx", "csv": ".csv", ".PDF": ".pdf"} {
		path, err := WriteRun(run, format, dir, false)
		require.NoError(t, err, format)
		assert.Equal(t, ext, filepath.Ext(path))
		assert.FileExists(t, path)
	}

	_, err := WriteRun(run, "docx", dir, false)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}
