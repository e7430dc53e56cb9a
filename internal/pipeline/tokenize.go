package pipeline

import (
	"iter"
	"strings"

	"quotedesk/internal"
)

// TableBlocks yields every maximal run of consecutive lines containing '|'.
func TableBlocks(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		var block []string
		for line := range strings.Lines(text) {
			line = strings.TrimRight(line, "\r\n")
			if strings.Contains(line, "|") {
				block = append(block, line)
				continue
			}
			if len(block) > 0 {
				if !yield(strings.Join(block, "\n")) {
					return
				}
				block = nil
			}
		}
		if len(block) > 0 {
			yield(strings.Join(block, "\n"))
		}
	}
}

// ParseMarkdownTables tokenizes text and keeps every block that parses as a table.
func ParseMarkdownTables(text string) []internal.Table {
	var out []internal.Table
	for block := range TableBlocks(text) {
		if table, ok := ParseMarkdownTable(block); ok {
			out = append(out, table)
		}
	}
	return out
}
