package export

import (
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/xuri/excelize/v2"
)

// ExcelOptions configures workbook styling
type ExcelOptions struct {
	FreezeHeader bool               `json:"freeze_header"`
	AutoFilter   bool               `json:"auto_filter"`
	NumberFormat string             `json:"number_format"`
	HeaderStyle  *ExcelStyleConfig  `json:"header_style,omitempty"`
	DataStyle    *ExcelStyleConfig  `json:"data_style,omitempty"`
	ColumnWidths map[string]float64 `json:"column_widths,omitempty"`
	AutoWidth    bool               `json:"auto_width"`
}

// ExcelStyleConfig defines style for cells
type ExcelStyleConfig struct {
	FontBold  bool   `json:"font_bold"`
	FontSize  int    `json:"font_size"`
	FontColor string `json:"font_color"`
	FillColor string `json:"fill_color"`
	Alignment string `json:"alignment"` // left, center, right
	Border    bool   `json:"border"`
	WrapText  bool   `json:"wrap_text"`
}

// DefaultExcelOptions returns default workbook options
func DefaultExcelOptions() ExcelOptions {
	return ExcelOptions{
		FreezeHeader: true,
		AutoFilter:   true,
		NumberFormat: "#,##0.000",
		AutoWidth:    true,
		HeaderStyle: &ExcelStyleConfig{
			FontBold:  true,
			FontSize:  11,
			FillColor: "38761D",
			FontColor: "FFFFFF",
			Alignment: "center",
			Border:    true,
		},
		DataStyle: &ExcelStyleConfig{
			FontSize:  11,
			Alignment: "left",
			Border:    true,
		},
	}
}

// Workbook builds a multi-sheet Excel file, one table per sheet
type Workbook struct {
	file    *excelize.File
	options ExcelOptions
	styles  map[string]int
	sheets  int
}

// NewWorkbook creates an empty workbook
func NewWorkbook(options ExcelOptions) *Workbook {
	return &Workbook{
		file:    excelize.NewFile(),
		options: options,
		styles:  make(map[string]int),
	}
}

// AddSheet adds a sheet holding a header row and the given rows
func (w *Workbook) AddSheet(name string, columns []string, rows []map[string]any) error {
	if w.sheets == 0 {
		// reuse the default sheet so the workbook opens on the first table
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return errors.Wrapf(err, "failed to create sheet %s", name)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return errors.Wrapf(err, "failed to create sheet %s", name)
	}
	w.sheets++

	if err := w.writeHeader(name, columns); err != nil {
		return err
	}
	return w.writeRows(name, columns, rows)
}

func (w *Workbook) writeHeader(sheet string, columns []string) error {
	headerStyleID, err := w.style("header", w.options.HeaderStyle)
	if err != nil {
		return errors.Wrap(err, "failed to create header style")
	}

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := w.file.SetCellValue(sheet, cell, col); err != nil {
			return errors.Wrapf(err, "failed to write header %s", col)
		}
		if headerStyleID > 0 {
			_ = w.file.SetCellStyle(sheet, cell, cell, headerStyleID)
		}
	}

	if w.options.FreezeHeader {
		_ = w.file.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}
	return nil
}

func (w *Workbook) writeRows(sheet string, columns []string, rows []map[string]any) error {
	dataStyleID, err := w.style("data", w.options.DataStyle)
	if err != nil {
		return errors.Wrap(err, "failed to create data style")
	}
	numberStyleID, err := w.numberStyle()
	if err != nil {
		return errors.Wrap(err, "failed to create number style")
	}

	columnWidths := make(map[int]float64)
	for i, col := range columns {
		columnWidths[i] = estimateCellWidth(col)
	}

	for rowIdx, row := range rows {
		rowNum := rowIdx + 2
		for colIdx, colName := range columns {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowNum)
			val := row[colName]

			styleID := dataStyleID
			if err := w.setCellValue(sheet, cell, val); err != nil {
				return errors.Wrapf(err, "failed to set %s", cell)
			}
			if _, ok := val.(float64); ok && numberStyleID > 0 {
				styleID = numberStyleID
			}
			if styleID > 0 {
				_ = w.file.SetCellStyle(sheet, cell, cell, styleID)
			}

			if width := estimateCellWidth(val); width > columnWidths[colIdx] {
				columnWidths[colIdx] = width
			}
		}
	}

	if w.options.AutoFilter && len(rows) > 0 && len(columns) > 0 {
		lastCol, _ := excelize.CoordinatesToCellName(len(columns), len(rows)+1)
		_ = w.file.AutoFilter(sheet, "A1:"+lastCol, nil)
	}

	if w.options.AutoWidth {
		for colIdx, width := range columnWidths {
			colName, _ := excelize.ColumnNumberToName(colIdx + 1)
			// Min width 10, max width 60
			width = max(10, min(width, 60))
			_ = w.file.SetColWidth(sheet, colName, colName, width)
		}
	}
	for i, colName := range columns {
		if width, ok := w.options.ColumnWidths[colName]; ok {
			col, _ := excelize.ColumnNumberToName(i + 1)
			_ = w.file.SetColWidth(sheet, col, col, width)
		}
	}
	return nil
}

// setCellValue writes numbers as numbers and leaves nil cells empty
func (w *Workbook) setCellValue(sheet, cell string, val any) error {
	switch v := val.(type) {
	case nil:
		return w.file.SetCellValue(sheet, cell, "")
	case *float64:
		if v == nil {
			return w.file.SetCellValue(sheet, cell, "")
		}
		return w.file.SetCellValue(sheet, cell, *v)
	case time.Time:
		if v.IsZero() {
			return w.file.SetCellValue(sheet, cell, "")
		}
		return w.file.SetCellValue(sheet, cell, v.Format(time.RFC3339))
	default:
		return w.file.SetCellValue(sheet, cell, v)
	}
}

// style creates and caches an Excel style from config
func (w *Workbook) style(name string, config *ExcelStyleConfig) (int, error) {
	if config == nil {
		return 0, nil
	}
	if id, ok := w.styles[name]; ok {
		return id, nil
	}

	style := &excelize.Style{
		Font: &excelize.Font{
			Bold:  config.FontBold,
			Size:  float64(config.FontSize),
			Color: config.FontColor,
		},
	}
	if config.FillColor != "" {
		style.Fill = excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{config.FillColor},
		}
	}
	if config.Alignment != "" || config.WrapText {
		style.Alignment = &excelize.Alignment{
			Horizontal: config.Alignment,
			WrapText:   config.WrapText,
		}
	}
	if config.Border {
		style.Border = []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		}
	}

	id, err := w.file.NewStyle(style)
	if err != nil {
		return 0, err
	}
	w.styles[name] = id
	return id, nil
}

func (w *Workbook) numberStyle() (int, error) {
	if w.options.NumberFormat == "" {
		return 0, nil
	}
	if id, ok := w.styles["number"]; ok {
		return id, nil
	}
	style := &excelize.Style{CustomNumFmt: &w.options.NumberFormat}
	if w.options.DataStyle != nil && w.options.DataStyle.Border {
		style.Border = []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		}
	}
	id, err := w.file.NewStyle(style)
	if err != nil {
		return 0, err
	}
	w.styles["number"] = id
	return id, nil
}

// estimateCellWidth estimates the display width of a cell value
func estimateCellWidth(val any) float64 {
	if val == nil {
		return 0
	}
	return float64(len(fmt.Sprintf("%v", val)))*1.2 + 2
}

// WriteTo writes the workbook to a writer
func (w *Workbook) WriteTo(out io.Writer) error {
	return w.file.Write(out)
}

// SaveAs saves the workbook to a path
func (w *Workbook) SaveAs(path string) error {
	return w.file.SaveAs(path)
}

// Close releases the workbook
func (w *Workbook) Close() error {
	return w.file.Close()
}
