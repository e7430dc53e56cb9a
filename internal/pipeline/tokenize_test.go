package pipeline

import (
	"slices"
	"strings"
	"testing"
)

const twoTables = `Quotation No. 42

| S.No | Description | Qty | Unit Rate | Total |
|---|---|---|---|---|
| 1 | Task chair | 10 | 450 | 4500 |
| 2 | Meeting table | 1 | 1200 | 1200 |
| 3 | broken row | 1 |

Terms: 50% advance
| Item | Price |
| --- | --- |
| Delivery | 300 |
`

func TestTableBlocks(t *testing.T) {
	blocks := slices.Collect(TableBlocks(twoTables))
	if len(blocks) != 2 {
		t.Fatalf("blocks=%d", len(blocks))
	}
	if !strings.HasPrefix(blocks[0], "| S.No") || strings.Count(blocks[0], "\n") != 4 {
		t.Fatalf("block0=%q", blocks[0])
	}
	if !strings.HasSuffix(blocks[1], "| Delivery | 300 |") {
		t.Fatalf("block1=%q", blocks[1])
	}
}

func TestTableBlocksRetokenize(t *testing.T) {
	blocks := slices.Collect(TableBlocks(twoTables))
	again := slices.Collect(TableBlocks(strings.Join(blocks, "\n\n")))
	if !slices.Equal(blocks, again) {
		t.Fatalf("first=%q second=%q", blocks, again)
	}
}

func TestTableBlocksEarlyStop(t *testing.T) {
	n := 0
	for range TableBlocks(twoTables) {
		n++
		break
	}
	if n != 1 {
		t.Fatalf("n=%d", n)
	}
}

func TestParseMarkdownTables(t *testing.T) {
	tables := ParseMarkdownTables(twoTables)
	if len(tables) != 2 {
		t.Fatalf("tables=%d", len(tables))
	}
	first := tables[0]
	if strings.Join(first.Headers, ",") != "s.no,description,qty,unit rate,total" {
		t.Fatalf("headers=%v", first.Headers)
	}
	if len(first.Rows) != 2 {
		t.Fatalf("rows=%v", first.Rows)
	}
	for _, tb := range tables {
		for _, row := range tb.Rows {
			if len(row) != len(tb.Headers) {
				t.Fatalf("row %v does not match headers %v", row, tb.Headers)
			}
		}
	}
	if tables[1].Rows[0]["price"] != "300" {
		t.Fatalf("rows=%v", tables[1].Rows)
	}
}

func TestParseMarkdownTableEdgeCases(t *testing.T) {
	if _, ok := ParseMarkdownTable("| only | header |"); ok {
		t.Fatal("single line block accepted")
	}

	tb, ok := ParseMarkdownTable("| A | B |\n|---|---|")
	if !ok || len(tb.Rows) != 0 || strings.Join(tb.Headers, ",") != "a,b" {
		t.Fatalf("tb=%+v ok=%v", tb, ok)
	}

	tb, ok = ParseMarkdownTable("| Rate | Rate |\n| 1 | 2 |")
	if !ok || len(tb.Rows) != 1 || tb.Rows[0]["rate"] != "2" {
		t.Fatalf("duplicate headers: %+v", tb)
	}

	tb, _ = ParseMarkdownTable("| a | b |\n| 1 |  | \n| 3 | 4 |")
	if len(tb.Rows) != 1 || tb.Rows[0]["a"] != "3" {
		t.Fatalf("empty cells: %+v", tb.Rows)
	}
}
