package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jung-kurt/gofpdf"

	"carbon-scribe/dairy-footprint/internal/batch"
)

// PDFGenerator renders run summaries as PDF
type PDFGenerator struct {
	pdf     *gofpdf.Fpdf
	options PDFOptions
}

// PDFOptions configures PDF generation
type PDFOptions struct {
	PageSize       string     `json:"page_size"`   // A4, Letter, Legal
	Orientation    string     `json:"orientation"` // portrait, landscape
	Title          string     `json:"title"`
	Subtitle       string     `json:"subtitle,omitempty"`
	DateFormat     string     `json:"date_format"`
	HeaderColor    PDFColor   `json:"header_color"`
	AlternateRows  bool       `json:"alternate_rows"`
	AlternateColor PDFColor   `json:"alternate_color"`
	FontFamily     string     `json:"font_family"`
	FontSize       float64    `json:"font_size"`
	HeaderFontSize float64    `json:"header_font_size"`
	TitleFontSize  float64    `json:"title_font_size"`
	Margins        PDFMargins `json:"margins"`
}

// PDFColor represents an RGB color
type PDFColor struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// PDFMargins represents page margins
type PDFMargins struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// DefaultPDFOptions returns default PDF options
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		PageSize:       "A4",
		Orientation:    "landscape",
		Title:          "Dairy Farm Carbon Footprint",
		DateFormat:     "2006-01-02",
		HeaderColor:    PDFColor{R: 56, G: 118, B: 29},
		AlternateRows:  true,
		AlternateColor: PDFColor{R: 242, G: 242, B: 242},
		FontFamily:     "Arial",
		FontSize:       9,
		HeaderFontSize: 9,
		TitleFontSize:  16,
		Margins: PDFMargins{
			Left:   12,
			Right:  12,
			Top:    15,
			Bottom: 15,
		},
	}
}

// NewPDFGenerator creates a new PDF generator
func NewPDFGenerator(options PDFOptions) *PDFGenerator {
	orientation := "P"
	if options.Orientation == "landscape" {
		orientation = "L"
	}

	pdf := gofpdf.New(orientation, "mm", options.PageSize, "")
	pdf.SetMargins(options.Margins.Left, options.Margins.Top, options.Margins.Right)
	pdf.SetAutoPageBreak(true, options.Margins.Bottom)

	g := &PDFGenerator{
		pdf:     pdf,
		options: options,
	}
	g.setFooter()
	return g
}

var pdfFarmColumns = []struct {
	key, label string
	width      float64
}{
	{"farm_id", "Farm", 40},
	{"status", "Status", 20},
	{"total_co2eq_kg", "Total kg CO2e", 32},
	{"enteric_co2eq_kg", "Enteric", 26},
	{"manure_co2eq_kg", "Manure", 26},
	{"soil_co2eq_kg", "Soil", 24},
	{"energy_co2eq_kg", "Energy", 24},
	{"inputs_co2eq_kg", "Inputs", 24},
	{"intensity_kg_co2eq_per_kg_fpcm", "kg CO2e/kg FPCM", 32},
	{"benchmark_label", "Benchmark", 21},
}

// GenerateRunSummary lays out the run summary followed by one row per farm
func (g *PDFGenerator) GenerateRunSummary(run *batch.RunResult) error {
	if run == nil {
		return errors.New("no run to render")
	}
	g.pdf.AddPage()
	g.addTitle()
	if g.options.Subtitle != "" {
		g.addSubtitle()
	}
	g.addDate(run.Summary.ProcessingDate)

	s := run.Summary
	g.AddSummarySection("Summary", [][2]string{
		{"Run", run.RunID},
		{"Tier", fmt.Sprintf("%d", s.Tier)},
		{"Boundary", fmt.Sprintf("%s (%s)", s.Scope, strings.Join(s.BoundariesUsed, ", "))},
		{"Farms", fmt.Sprintf("%d processed, %d successful, %d with errors", s.NFarmsProcessed, s.NFarmsSuccessful, s.NFarmsWithErrors)},
		{"Total emissions", fmt.Sprintf("%.1f t CO2e", s.TotalEmissionsCO2eq/1000)},
		{"Mean intensity", fmt.Sprintf("%.3f kg CO2e/kg FPCM", s.MeanIntensity)},
	})
	g.pdf.Ln(6)

	g.addTableHeader()
	g.addTableData(farmRows(run))
	return g.pdf.Error()
}

func (g *PDFGenerator) addTitle() {
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.TitleFontSize)
	g.pdf.SetTextColor(0, 0, 0)
	g.pdf.CellFormat(0, 10, g.options.Title, "", 1, "C", false, 0, "")
}

func (g *PDFGenerator) addSubtitle() {
	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize+2)
	g.pdf.SetTextColor(100, 100, 100)
	g.pdf.CellFormat(0, 8, g.options.Subtitle, "", 1, "C", false, 0, "")
}

func (g *PDFGenerator) addDate(t time.Time) {
	if t.IsZero() {
		t = time.Now()
	}
	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize-1)
	g.pdf.SetTextColor(128, 128, 128)
	g.pdf.CellFormat(0, 6, "Generated: "+t.Format(g.options.DateFormat), "", 1, "R", false, 0, "")
}

// AddSummarySection adds labelled lines in the order given
func (g *PDFGenerator) AddSummarySection(title string, items [][2]string) {
	g.pdf.Ln(4)
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.FontSize+2)
	g.pdf.SetTextColor(0, 0, 0)
	g.pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")

	for _, item := range items {
		g.pdf.SetFont(g.options.FontFamily, "B", g.options.FontSize)
		g.pdf.CellFormat(40, 6, item[0]+":", "", 0, "L", false, 0, "")
		g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
		g.pdf.CellFormat(0, 6, item[1], "", 1, "L", false, 0, "")
	}
}

func (g *PDFGenerator) addTableHeader() {
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.HeaderFontSize)
	g.pdf.SetFillColor(g.options.HeaderColor.R, g.options.HeaderColor.G, g.options.HeaderColor.B)
	g.pdf.SetTextColor(255, 255, 255)
	for _, col := range pdfFarmColumns {
		g.pdf.CellFormat(col.width, 8, col.label, "1", 0, "C", true, 0, "")
	}
	g.pdf.Ln(-1)
}

func (g *PDFGenerator) addTableData(rows []map[string]any) {
	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
	g.pdf.SetTextColor(0, 0, 0)

	_, pageHeight := g.pdf.GetPageSize()
	for i, row := range rows {
		if g.options.AlternateRows && i%2 == 1 {
			g.pdf.SetFillColor(g.options.AlternateColor.R, g.options.AlternateColor.G, g.options.AlternateColor.B)
		} else {
			g.pdf.SetFillColor(255, 255, 255)
		}

		if g.pdf.GetY()+7 > pageHeight-g.options.Margins.Bottom {
			g.pdf.AddPage()
			g.addTableHeader()
			g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
			g.pdf.SetTextColor(0, 0, 0)
		}

		for _, col := range pdfFarmColumns {
			val := formatPDFValue(row[col.key])
			// Truncate if too long
			maxChars := int(col.width / 2)
			if len(val) > maxChars {
				val = val[:maxChars-3] + "..."
			}
			align := "R"
			if _, isText := row[col.key].(string); isText {
				align = "L"
			}
			g.pdf.CellFormat(col.width, 7, val, "1", 0, align, true, 0, "")
		}
		g.pdf.Ln(-1)
	}
}

func formatPDFValue(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case float64:
		if v >= 1000 {
			return fmt.Sprintf("%.0f", v)
		}
		return fmt.Sprintf("%.3f", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (g *PDFGenerator) setFooter() {
	g.pdf.SetFooterFunc(func() {
		g.pdf.SetY(-12)
		g.pdf.SetFont(g.options.FontFamily, "", 8)
		g.pdf.SetTextColor(128, 128, 128)
		g.pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", g.pdf.PageNo()), "", 0, "C", false, 0, "")
	})
}

// WriteTo writes the PDF to a writer
func (g *PDFGenerator) WriteTo(w io.Writer) error {
	return g.pdf.Output(w)
}

// OutputToBytes returns the PDF as bytes
func (g *PDFGenerator) OutputToBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := g.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteRunPDF renders a run summary to path and returns the path written
func WriteRunPDF(run *batch.RunResult, path string) (string, error) {
	if run == nil {
		return "", errors.New("no run to export")
	}
	out, err := outputPath(path, "footprint_"+shortID(run.RunID), ".pdf")
	if err != nil {
		return "", err
	}
	g := NewPDFGenerator(DefaultPDFOptions())
	if err := g.GenerateRunSummary(run); err != nil {
		return "", errors.Wrap(err, "failed to render pdf")
	}
	if err := g.pdf.OutputFileAndClose(out); err != nil {
		return "", errors.Wrapf(err, "failed to save pdf %s", out)
	}
	return out, nil
}
