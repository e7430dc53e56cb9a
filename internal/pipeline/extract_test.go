package pipeline

import (
	"errors"
	"strings"
	"testing"

	"quotedesk/internal"
)

func TestTablesFromExtraction(t *testing.T) {
	result := internal.ExtractionResult{LayoutParsingResults: []internal.LayoutPage{
		{Markdown: internal.LayoutMarkdown{Text: "# Offer\n\n| Description | Qty |\n|---|---|\n| Chair | 2 |\n"}},
		{Markdown: internal.LayoutMarkdown{Text: "no tables here"}},
		{Markdown: internal.LayoutMarkdown{Text: `<table border="1"><tr><td>Description</td><td>Unit Price</td></tr><tr><td>Desk</td><td>900</td></tr></table>`}},
	}}

	tables, err := TablesFromExtraction(result)
	if err != nil {
		t.Fatal(err)
	}
	if len(tables) != 2 {
		t.Fatalf("tables=%+v", tables)
	}
	if tables[0].Page != 1 || tables[0].Rows[0]["qty"] != "2" {
		t.Fatalf("first=%+v", tables[0])
	}
	second := tables[1]
	if second.Page != 3 || strings.Join(second.Headers, ",") != "description,unit price" {
		t.Fatalf("second=%+v", second)
	}
	if len(second.Rows) != 1 || second.Rows[0]["unit price"] != "900" {
		t.Fatalf("rows=%v", second.Rows)
	}
}

func TestTablesFromExtractionEmpty(t *testing.T) {
	_, err := TablesFromExtraction(internal.ExtractionResult{LayoutParsingResults: []internal.LayoutPage{{}}})
	if !errors.Is(err, internal.ErrNoTables) {
		t.Fatalf("err=%v", err)
	}
}

func TestPipeTablesFromHTMLPassthrough(t *testing.T) {
	text := "| a | b |\n|---|---|\n| 1 | 2 |"
	got, err := PipeTablesFromHTML(text)
	if err != nil || got != text {
		t.Fatalf("got=%q err=%v", got, err)
	}
}
