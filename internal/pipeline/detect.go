package pipeline

import (
	"strings"

	"quotedesk/internal"
)

var (
	headerKeywords = []string{"si.no", "item", "description", "qty", "unit", "rate", "amount", "price"}
	// Header rows repeated on continuation pages often carry total, image or ref columns too.
	repeatedHeaderKeywords = append(append([]string{}, headerKeywords...), "total", "image", "ref")
)

// IsHeaderRow reports whether row looks like a table header: it uses header
// cell markup or its text contains a header keyword. A data row that happens
// to mention a keyword is a known false positive.
func IsHeaderRow(row internal.SourceRow) bool {
	return row.HeaderMarkup || containsKeyword(row.Text(), headerKeywords)
}

func isRepeatedHeaderRow(row internal.SourceRow) bool {
	return containsKeyword(row.Text(), repeatedHeaderKeywords)
}

func isBlankRow(row internal.SourceRow) bool {
	return row.Text() == ""
}

func containsKeyword(text string, keywords []string) bool {
	text = strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
