package pipeline

import (
	"strings"

	"quotedesk/internal"
)

// ParseMarkdownTable turns one pipe-delimited block into a Table. Header text is
// lowercased but otherwise kept literally; rows whose cell count differs from
// the header count are dropped. ok is false when the block has fewer than two
// lines or no header cells.
func ParseMarkdownTable(block string) (internal.Table, bool) {
	lines := make([]string, 0)
	for _, line := range strings.Split(block, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		return internal.Table{}, false
	}

	headers := splitCells(lines[0])
	if len(headers) == 0 {
		return internal.Table{}, false
	}
	for i, h := range headers {
		headers[i] = strings.ToLower(h)
	}

	table := internal.Table{Headers: headers, Rows: make([]internal.Row, 0, len(lines)-1)}
	for _, line := range lines[1:] {
		if isSeparatorLine(line) {
			continue
		}
		cells := splitCells(line)
		if len(cells) != len(headers) {
			continue
		}
		row := make(internal.Row, len(headers))
		for i, h := range headers {
			row[h] = cells[i]
		}
		table.Rows = append(table.Rows, row)
	}
	return table, true
}

func splitCells(line string) []string {
	parts := strings.Split(line, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isSeparatorLine(line string) bool {
	for _, r := range line {
		switch r {
		case '-', '|', ':', ' ':
		default:
			return false
		}
	}
	return true
}
