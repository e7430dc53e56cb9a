package pipeline

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"quotedesk/internal"
	"quotedesk/internal/util"
)

const maxSheetName = 31

type sheetStyles struct {
	title   int
	header  int
	cell    int
	summary int
}

type sheetWriter struct {
	f      *excelize.File
	sheet  string
	row    int
	widths map[int]int
}

func newSheetWriter(f *excelize.File, sheet string) *sheetWriter {
	return &sheetWriter{f: f, sheet: sheet, widths: map[int]int{}}
}

// append writes values to the next row and returns its number.
func (w *sheetWriter) append(values ...any) int {
	w.row++
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, w.row)
		_ = w.f.SetCellValue(w.sheet, cell, v)
		if n := len([]rune(fmt.Sprint(v))); n > w.widths[i+1] {
			w.widths[i+1] = n
		}
	}
	return w.row
}

func (w *sheetWriter) style(row, cols, style int) {
	if cols < 1 {
		cols = 1
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(cols, row)
	_ = w.f.SetCellStyle(w.sheet, first, last, style)
}

func (w *sheetWriter) merge(row, cols int) {
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(cols, row)
	_ = w.f.MergeCell(w.sheet, first, last)
}

func (w *sheetWriter) fitColumns() {
	for col, n := range w.widths {
		name, _ := excelize.ColumnNumberToName(col)
		width := float64(min(n+2, 50))
		_ = w.f.SetColWidth(w.sheet, name, name, width)
	}
}

func newStyles(f *excelize.File) (sheetStyles, error) {
	var s sheetStyles
	var err error
	s.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#764BA2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return s, fmt.Errorf("create title style: %w", err)
	}
	s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#667EEA"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorders(),
	})
	if err != nil {
		return s, fmt.Errorf("create header style: %w", err)
	}
	s.cell, err = f.NewStyle(&excelize.Style{Border: thinBorders()})
	if err != nil {
		return s, fmt.Errorf("create cell style: %w", err)
	}
	s.summary, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return s, fmt.Errorf("create summary style: %w", err)
	}
	return s, nil
}

func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{Type: side, Color: "#000000", Style: 1}
	}
	return borders
}

func save(f *excelize.File, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func sheetName(name string) string {
	if len(name) > maxSheetName {
		return name[:maxSheetName]
	}
	return name
}

func exportCell(value string) string {
	return util.PlainText(value)
}

func rowValues(headers []string, row internal.Row) []any {
	values := make([]any, len(headers))
	for i, h := range headers {
		values[i] = exportCell(row[h])
	}
	return values
}

func stringsToAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func writeTable(w *sheetWriter, styles sheetStyles, t internal.Table) {
	if len(t.Headers) > 0 {
		r := w.append(stringsToAny(t.Headers)...)
		w.style(r, len(t.Headers), styles.header)
	}
	for _, row := range t.Rows {
		r := w.append(rowValues(t.Headers, row)...)
		w.style(r, len(t.Headers), styles.cell)
	}
}

// ExportExtractedXLSX writes one sheet per table, named Page<p>_Table<n>.
func ExportExtractedXLSX(tables []internal.Table, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	defaultSheet := f.GetSheetName(0)
	perPage := map[int]int{}
	for _, t := range tables {
		page := max(t.Page, 1)
		perPage[page]++
		name := sheetName(fmt.Sprintf("Page%d_Table%d", page, perPage[page]))
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
		w := newSheetWriter(f, name)
		writeTable(w, styles, t)
		w.fitColumns()
	}
	if len(tables) > 0 {
		_ = f.DeleteSheet(defaultSheet)
	}
	return save(f, outputPath)
}

// OfferTotals sums every parseable cell under a header containing "total".
func OfferTotals(tables []internal.CostedTable, vatPercent float64) (subtotal, vat, grand float64) {
	for _, t := range tables {
		for _, row := range t.Rows {
			for key, value := range row {
				if !strings.Contains(strings.ToLower(key), "total") {
					continue
				}
				if v, ok := util.ParseNumber(value); ok {
					subtotal += v
				}
			}
		}
	}
	vat = subtotal * vatPercent / 100
	return subtotal, vat, subtotal + vat
}

// ExportOfferXLSX writes the commercial offer: factors, one item list per
// costed table, then subtotal, VAT and grand total.
func ExportOfferXLSX(tables []internal.CostedTable, factors internal.CostingFactors, vatPercent float64, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	sheet := "Offer"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("set sheet name: %w", err)
	}
	w := newSheetWriter(f, sheet)

	r := w.append("COMMERCIAL OFFER")
	w.merge(r, 6)
	w.style(r, 6, styles.title)
	w.append()

	w.append("Costing Factors Applied:")
	w.append(fmt.Sprintf("Net Margin: %g%%", factors.NetMargin))
	w.append(fmt.Sprintf("Freight: %g%%", factors.Freight))
	w.append(fmt.Sprintf("Customs: %g%%", factors.Customs))
	w.append(fmt.Sprintf("Installation: %g%%", factors.Installation))
	w.append(fmt.Sprintf("Exchange Rate: %g", factors.ExchangeRate))
	w.append(fmt.Sprintf("Additional: %g%%", factors.Additional))
	w.append()

	for i, t := range tables {
		r := w.append(fmt.Sprintf("Item List %d", i+1))
		w.merge(r, 6)
		writeTable(w, styles, t.Table)
		w.append()
	}

	subtotal, vat, grand := OfferTotals(tables, vatPercent)
	first := w.append("", "", "", "", "Subtotal:", round2(subtotal))
	w.append("", "", "", "", fmt.Sprintf("VAT (%g%%):", vatPercent), round2(vat))
	last := w.append("", "", "", "", "Grand Total:", round2(grand))
	for row := first; row <= last; row++ {
		cell, _ := excelize.CoordinatesToCellName(5, row)
		end, _ := excelize.CoordinatesToCellName(6, row)
		_ = f.SetCellStyle(sheet, cell, end, styles.summary)
	}

	w.fitColumns()
	return save(f, outputPath)
}

// ExportStitchedXLSX writes the stitched rows as-is to a single sheet.
func ExportStitchedXLSX(table internal.StitchedTable, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	sheet := "Stitched_Table"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("set sheet name: %w", err)
	}
	w := newSheetWriter(f, sheet)
	for i, row := range table.Rows {
		values := make([]any, len(row.Cells))
		for c, cell := range row.Cells {
			values[c] = exportCell(cell)
		}
		r := w.append(values...)
		if i == 0 && table.HasHeader {
			w.style(r, len(values), styles.header)
		} else {
			w.style(r, len(values), styles.cell)
		}
	}
	w.fitColumns()
	return save(f, outputPath)
}

var alternativeHeaders = []string{
	"item_table", "item_row", "description", "qty", "unit", "unit_rate", "total", "category", "subcategory",
	"tier", "brand", "country", "model", "price_range", "estimated_unit_rate", "estimated_total", "score", "features",
}

// ExportAlternativesXLSX writes one row per (item, alternative).
func ExportAlternativesXLSX(groups []internal.ItemAlternatives, tier internal.Tier, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	sheet := "Alternatives"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("set sheet name: %w", err)
	}
	w := newSheetWriter(f, sheet)

	r := w.append("VALUE ENGINEERED ALTERNATIVES - " + strings.ToUpper(string(tier)))
	w.merge(r, 8)
	w.style(r, 8, styles.title)
	w.append()

	r = w.append(stringsToAny(alternativeHeaders)...)
	w.style(r, len(alternativeHeaders), styles.header)

	for _, g := range groups {
		it := g.Item
		for _, alt := range g.Alternatives {
			r := w.append(
				it.Table, it.Row, exportCell(it.Description), derefFloat(it.Qty), util.DerefString(it.Unit),
				derefFloat(it.UnitRate), derefFloat(it.Total), string(it.Category), string(it.Subcategory),
				string(alt.Tier), alt.Brand, alt.Country, alt.Model, alt.PriceRange,
				alt.EstimatedUnitRate, derefFloat(alt.EstimatedTotal), alt.Score, strings.Join(alt.Features, "; "),
			)
			w.style(r, len(alternativeHeaders), styles.cell)
		}
	}
	w.fitColumns()
	return save(f, outputPath)
}

func derefFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
