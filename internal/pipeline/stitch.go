package pipeline

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"quotedesk/internal"
	"quotedesk/internal/util"
)

// StitchTables merges the table fragments of consecutive pages into one table.
// The first fragment whose first row is header-like supplies the header; on
// every later header-like fragment that row, and any blank or header-like rows
// right after it, are dropped. Without any header the rows are concatenated.
func StitchTables(pages []internal.PageTables) (internal.StitchedTable, error) {
	out := internal.StitchedTable{PageCount: len(pages)}

	for _, page := range pages {
		for _, table := range page.Tables {
			if len(table.Rows) == 0 {
				continue
			}
			isHeader := IsHeaderRow(table.Rows[0])
			if !out.HasHeader && isHeader {
				out.HasHeader = true
				out.Rows = append(out.Rows, table.Rows...)
				continue
			}
			start := 0
			if isHeader {
				start = 1
				for start < len(table.Rows) {
					r := table.Rows[start]
					if !isBlankRow(r) && !isRepeatedHeaderRow(r) {
						break
					}
					start++
				}
			}
			out.Rows = append(out.Rows, table.Rows[start:]...)
		}
	}

	if len(out.Rows) == 0 {
		return internal.StitchedTable{}, internal.ErrNothingToStitch
	}
	out.RowCount = len(out.Rows)
	return out, nil
}

// SourceTablesFromExtraction collects the HTML table blocks of every page, in order.
func SourceTablesFromExtraction(result internal.ExtractionResult) []internal.PageTables {
	pages := make([]internal.PageTables, 0, len(result.LayoutParsingResults))
	for i, lp := range result.LayoutParsingResults {
		page := internal.PageTables{Page: i + 1}
		for _, block := range lp.PrunedResult.ParsingResList {
			if block.BlockLabel != "table" || strings.TrimSpace(block.BlockContent) == "" {
				continue
			}
			rows := ParseHTMLTableRows(block.BlockContent)
			if len(rows) > 0 {
				page.Tables = append(page.Tables, internal.SourceTable{Rows: rows})
			}
		}
		pages = append(pages, page)
	}
	return pages
}

// ParseHTMLTableRows reads every <tr> of an HTML fragment as a SourceRow.
func ParseHTMLTableRows(fragment string) []internal.SourceRow {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil
	}

	var rows []internal.SourceRow
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		row := internal.SourceRow{HeaderMarkup: tr.Find("th").Length() > 0}
		tr.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			html, err := cell.Html()
			if err != nil {
				html = cell.Text()
			}
			row.Cells = append(row.Cells, cellContent(html))
		})
		rows = append(rows, row)
	})
	return rows
}

// Cells keep <img> tags so image references survive; other markup becomes text.
func cellContent(html string) string {
	if !strings.Contains(html, "<img") {
		return util.PlainText(html)
	}
	return util.CollapseSpaces(html)
}
