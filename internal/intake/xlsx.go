package intake

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"quotedesk/internal"
)

// ReadXLSX turns every sheet into a table: the first non-empty row gives the
// lowercased headers and each later row must fit them.
func ReadXLSX(content []byte) ([]internal.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := []internal.Table{}
	for i, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		if t, ok := sheetTable(rows); ok {
			t.Page = i + 1
			out = append(out, t)
		}
	}
	return out, nil
}

func sheetTable(rows [][]string) (internal.Table, bool) {
	var headers []string
	t := internal.Table{Rows: []internal.Row{}}
	for _, raw := range rows {
		cells := trimCells(raw)
		if len(cells) == 0 {
			continue
		}
		if headers == nil {
			headers = make([]string, len(cells))
			for i, c := range cells {
				c = strings.ToLower(c)
				if c == "" {
					c = fmt.Sprintf("column %d", i+1)
				}
				headers[i] = c
			}
			t.Headers = headers
			continue
		}
		// excelize drops trailing blank cells, so only wider rows are misaligned.
		if len(cells) > len(headers) {
			continue
		}
		row := internal.Row{}
		for i, h := range headers {
			if i < len(cells) {
				row[h] = cells[i]
			} else {
				row[h] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, headers != nil
}

func trimCells(raw []string) []string {
	cells := make([]string, len(raw))
	last := -1
	for i, c := range raw {
		cells[i] = strings.TrimSpace(c)
		if cells[i] != "" {
			last = i
		}
	}
	return cells[:last+1]
}
