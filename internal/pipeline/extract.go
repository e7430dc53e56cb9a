package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"quotedesk/internal"
)

var (
	reHTMLTable = regexp.MustCompile(`(?is)<table\b.*?</table>`)

	mdConverter = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
)

// TablesFromExtraction parses the tables of every page's markdown, in page
// order. HTML tables embedded in the markdown are converted to pipe tables first.
func TablesFromExtraction(result internal.ExtractionResult) ([]internal.Table, error) {
	var out []internal.Table
	for i, page := range result.LayoutParsingResults {
		text, err := PipeTablesFromHTML(page.Markdown.Text)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		for block := range TableBlocks(text) {
			t, ok := ParseMarkdownTable(trimLeadingSeparators(block))
			if !ok {
				continue
			}
			t.Page = i + 1
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil, internal.ErrNoTables
	}
	return out, nil
}

// PipeTablesFromHTML replaces every <table> element in text with its pipe-table rendering.
func PipeTablesFromHTML(text string) (string, error) {
	if !strings.Contains(strings.ToLower(text), "<table") {
		return text, nil
	}
	var convErr error
	converted := reHTMLTable.ReplaceAllStringFunc(text, func(fragment string) string {
		if convErr != nil {
			return fragment
		}
		md, err := mdConverter.ConvertString(fragment)
		if err != nil {
			convErr = fmt.Errorf("convert html table: %w", err)
			return fragment
		}
		return "\n" + strings.TrimSpace(md) + "\n"
	})
	if convErr != nil {
		return "", convErr
	}
	return converted, nil
}

// Tables without <th> cells render with an empty header row; drop it so the
// first real row becomes the header.
func trimLeadingSeparators(block string) string {
	lines := strings.Split(block, "\n")
	for len(lines) > 0 && isSeparatorLine(strings.TrimSpace(lines[0])) {
		lines = lines[1:]
	}
	return strings.Join(lines, "\n")
}
