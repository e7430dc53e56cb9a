package pipeline

import (
	"errors"
	"strings"
	"testing"

	"quotedesk/internal"
)

func rows(cells ...string) []internal.SourceRow {
	out := make([]internal.SourceRow, len(cells))
	for i, c := range cells {
		out[i] = internal.SourceRow{Cells: strings.Split(c, ",")}
	}
	return out
}

func page(n int, tables ...[]internal.SourceRow) internal.PageTables {
	p := internal.PageTables{Page: n}
	for _, t := range tables {
		p.Tables = append(p.Tables, internal.SourceTable{Rows: t})
	}
	return p
}

func rowTexts(st internal.StitchedTable) []string {
	out := make([]string, len(st.Rows))
	for i, r := range st.Rows {
		out[i] = strings.Join(r.Cells, ",")
	}
	return out
}

func TestStitchDropsRepeatedHeader(t *testing.T) {
	header := "SI.No,Description,Qty,Rate"
	st, err := StitchTables([]internal.PageTables{
		page(1, rows(header, "1,Task chair,10,450", "2,Desk,2,900")),
		page(2, rows(header, "3,Locker,4,300")),
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{header, "1,Task chair,10,450", "2,Desk,2,900", "3,Locker,4,300"}
	if strings.Join(rowTexts(st), "|") != strings.Join(want, "|") {
		t.Fatalf("rows=%v", rowTexts(st))
	}
	if !st.HasHeader || st.RowCount != 4 || st.PageCount != 2 {
		t.Fatalf("meta=%+v", st)
	}
}

func TestStitchWithoutHeader(t *testing.T) {
	st, err := StitchTables([]internal.PageTables{
		page(1, rows("1,Chair,10", "2,Sofa,1")),
		page(2, rows("3,Pouf,4"), rows("4,Bench,2")),
	})
	if err != nil {
		t.Fatal(err)
	}
	if st.HasHeader || st.RowCount != 4 {
		t.Fatalf("st=%+v", st)
	}
	if rowTexts(st)[3] != "4,Bench,2" {
		t.Fatalf("rows=%v", rowTexts(st))
	}
}

func TestStitchSkipsBlankAndExtendedHeaderRows(t *testing.T) {
	st, err := StitchTables([]internal.PageTables{
		page(1, rows("No,Description,Qty", "1,Chair,2")),
		page(2, rows("No,Description,Qty", ",,", "Image,Ref,Total", "2,Sofa,1")),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(rowTexts(st), "|"); got != "No,Description,Qty|1,Chair,2|2,Sofa,1" {
		t.Fatalf("rows=%s", got)
	}
}

func TestStitchHeaderMarkup(t *testing.T) {
	first := []internal.SourceRow{{Cells: []string{"Code", "Name"}, HeaderMarkup: true}, {Cells: []string{"A1", "Chair"}}}
	st, err := StitchTables([]internal.PageTables{
		page(1, rows("A0,Intro")),
		page(2, first),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !st.HasHeader || strings.Join(rowTexts(st), "|") != "A0,Intro|Code,Name|A1,Chair" {
		t.Fatalf("rows=%v", rowTexts(st))
	}
}

func TestStitchNothing(t *testing.T) {
	_, err := StitchTables(nil)
	if !errors.Is(err, internal.ErrNothingToStitch) {
		t.Fatalf("err=%v", err)
	}
	_, err = StitchTables([]internal.PageTables{page(1), page(2, nil)})
	if !errors.Is(err, internal.ErrNothingToStitch) {
		t.Fatalf("err=%v", err)
	}
}

func TestSourceTablesFromExtraction(t *testing.T) {
	result := internal.ExtractionResult{LayoutParsingResults: []internal.LayoutPage{
		{PrunedResult: internal.PrunedResult{ParsingResList: []internal.LayoutBlock{
			{BlockLabel: "text", BlockContent: "Dear Sir"},
			{BlockLabel: "table", BlockContent: `<table><tr><th>Description</th><th>Image</th></tr><tr><td><b>Task</b> chair</td><td><img src="imgs/a.jpg"></td></tr></table>`},
		}}},
		{},
	}}
	pages := SourceTablesFromExtraction(result)
	if len(pages) != 2 || pages[0].Page != 1 || len(pages[1].Tables) != 0 {
		t.Fatalf("pages=%+v", pages)
	}
	tbl := pages[0].Tables[0]
	if len(tbl.Rows) != 2 || !tbl.Rows[0].HeaderMarkup || tbl.Rows[1].HeaderMarkup {
		t.Fatalf("rows=%+v", tbl.Rows)
	}
	if tbl.Rows[1].Cells[0] != "Task chair" || !strings.Contains(tbl.Rows[1].Cells[1], `<img src="imgs/a.jpg"`) {
		t.Fatalf("cells=%q", tbl.Rows[1].Cells)
	}
}

func TestStitchedTableViews(t *testing.T) {
	st := internal.StitchedTable{
		Rows: []internal.SourceRow{
			{Cells: []string{"Description", "Qty"}},
			{Cells: []string{"Chair & desk", "2"}},
			{Cells: []string{"orphan"}},
		},
		HasHeader: true,
	}
	tb := st.Table()
	if strings.Join(tb.Headers, ",") != "description,qty" || len(tb.Rows) != 1 || tb.Rows[0]["qty"] != "2" {
		t.Fatalf("table=%+v", tb)
	}
	if html := st.HTML(); !strings.Contains(html, "Chair &amp; desk") || !strings.HasPrefix(html, "<table") {
		t.Fatalf("html=%s", html)
	}
}
