package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"quotedesk/internal"
	"quotedesk/internal/util"
)

func openXLSX(t *testing.T, path string) *excelize.File {
	t.Helper()
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("not a valid workbook: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestExportExtractedXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "extracted.xlsx")
	tables := []internal.Table{
		{Headers: []string{"description", "qty"}, Rows: []internal.Row{{"description": "<b>Chair</b> <img src=\"x.png\">", "qty": "2"}}, Page: 1},
		{Headers: []string{"item"}, Rows: []internal.Row{{"item": "Desk"}}, Page: 1},
		{Headers: []string{"item"}, Rows: []internal.Row{{"item": "Sofa"}}, Page: 2},
	}
	if err := ExportExtractedXLSX(tables, path); err != nil {
		t.Fatal(err)
	}

	f := openXLSX(t, path)
	sheets := f.GetSheetList()
	want := []string{"Page1_Table1", "Page1_Table2", "Page2_Table1"}
	if len(sheets) != len(want) {
		t.Fatalf("sheets=%v", sheets)
	}
	for i := range want {
		if sheets[i] != want[i] {
			t.Fatalf("sheets=%v", sheets)
		}
	}
	if v, _ := f.GetCellValue("Page1_Table1", "A2"); v != "Chair" {
		t.Fatalf("A2=%q", v)
	}
	if v, _ := f.GetCellValue("Page1_Table1", "B1"); v != "qty" {
		t.Fatalf("B1=%q", v)
	}
}

func TestOfferTotals(t *testing.T) {
	tables := []internal.CostedTable{
		{Table: internal.Table{Headers: []string{"description", "total"}, Rows: []internal.Row{
			{"description": "Chair", "total": "1,000.00"},
			{"description": "Desk", "total": "n/a"},
		}}},
		{Table: internal.Table{Headers: []string{"Sub Total"}, Rows: []internal.Row{{"Sub Total": "500"}}}},
	}
	sub, vat, grand := OfferTotals(tables, 15)
	if sub != 1500 || vat != 225 || grand != 1725 {
		t.Fatalf("sub=%v vat=%v grand=%v", sub, vat, grand)
	}
}

func TestExportOfferXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offer.xlsx")
	factors := internal.DefaultCostingFactors()
	factors.NetMargin = 10
	costed := ApplyCostingAll([]internal.Table{{
		Headers: []string{"description", "qty", "unit rate", "total"},
		Rows:    []internal.Row{{"description": "Chair", "qty": "2", "unit rate": "100", "total": "200"}},
	}}, factors)

	if err := ExportOfferXLSX(costed, factors, 15, path); err != nil {
		t.Fatal(err)
	}
	f := openXLSX(t, path)
	if v, _ := f.GetCellValue("Offer", "A1"); v != "COMMERCIAL OFFER" {
		t.Fatalf("A1=%q", v)
	}
	if v, _ := f.GetCellValue("Offer", "A4"); v != "Net Margin: 10%" {
		t.Fatalf("A4=%q", v)
	}

	rows, err := f.GetRows("Offer")
	if err != nil {
		t.Fatal(err)
	}
	last := rows[len(rows)-1]
	if len(last) != 6 || last[4] != "Grand Total:" || last[5] != "253" {
		t.Fatalf("last=%q", last)
	}
}

func TestExportStitchedXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stitched.xlsx")
	st := internal.StitchedTable{
		Rows:      []internal.SourceRow{{Cells: []string{"Description", "Image"}}, {Cells: []string{"Chair", `<img src="imgs/a.jpg">`}}},
		HasHeader: true,
		RowCount:  2,
	}
	if err := ExportStitchedXLSX(st, path); err != nil {
		t.Fatal(err)
	}
	f := openXLSX(t, path)
	if v, _ := f.GetCellValue("Stitched_Table", "A2"); v != "Chair" {
		t.Fatalf("A2=%q", v)
	}
	if v, _ := f.GetCellValue("Stitched_Table", "B2"); v != "" {
		t.Fatalf("image markup leaked: %q", v)
	}
}

func TestExportAlternativesXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alts.xlsx")
	groups := []internal.ItemAlternatives{{
		Item: internal.Item{Description: "Task chair", Qty: util.FloatPtr(2), UnitRate: util.FloatPtr(300)},
		Alternatives: []internal.Alternative{
			{Tier: internal.TierMidRange, Brand: "Sedus", Model: "se:motion", EstimatedUnitRate: 350, EstimatedTotal: util.FloatPtr(700), Score: 0.8},
			{Tier: internal.TierMidRange, Brand: "Narbutas", Model: "Easy", EstimatedUnitRate: 375, Score: 0.7},
		},
	}}
	if err := ExportAlternativesXLSX(groups, internal.TierMidRange, path); err != nil {
		t.Fatal(err)
	}
	f := openXLSX(t, path)
	rows, _ := f.GetRows("Alternatives")
	if len(rows) != 5 {
		t.Fatalf("rows=%d", len(rows))
	}
	if rows[0][0] != "VALUE ENGINEERED ALTERNATIVES - MID_RANGE" || rows[3][10] != "Sedus" || rows[4][12] != "Easy" {
		t.Fatalf("rows=%q", rows)
	}
}
