package pipeline

import (
	"testing"

	"quotedesk/internal"
)

func TestItemsFromTable(t *testing.T) {
	table := internal.Table{
		Headers: []string{"s.no", "image", "description", "qty", "unit rate", "total amount"},
		Rows: []internal.Row{
			{"s.no": "1", "image": `<img src="imgs/chair.jpg">`, "description": "Sedus task chair 650x600x1100 mm", "qty": "10 Nos", "unit rate": "OMR 450", "total amount": "4,500"},
			{"s.no": "2", "image": "", "description": "Meeting table", "qty": "2,5 sqm", "unit rate": "100", "total amount": "250"},
			{"s.no": "", "image": "", "description": "Sub Total", "qty": "", "unit rate": "", "total amount": "4,750"},
			{"s.no": "3", "image": "", "description": "", "qty": "1", "unit rate": "", "total amount": ""},
			{"s.no": "4", "image": "", "description": "Installation", "qty": "", "unit rate": "", "total amount": "200"},
		},
	}

	items := ItemsFromTable(2, table, DefaultBrands)
	if len(items) != 3 {
		t.Fatalf("items=%+v", items)
	}

	chair := items[0]
	if chair.Table != 2 || chair.Row != 0 || chair.SerialNo != "1" {
		t.Fatalf("chair=%+v", chair)
	}
	if chair.Qty == nil || *chair.Qty != 10 || chair.Unit == nil || *chair.Unit != "nos" {
		t.Fatalf("qty=%v unit=%v", chair.Qty, chair.Unit)
	}
	if chair.UnitRate == nil || *chair.UnitRate != 450 || chair.Total == nil || *chair.Total != 4500 {
		t.Fatalf("rate=%v total=%v", chair.UnitRate, chair.Total)
	}
	if chair.Brand != "Sedus" || chair.Dimensions != "650x600x1100 mm" || chair.Image != "imgs/chair.jpg" {
		t.Fatalf("brand=%q dims=%q image=%q", chair.Brand, chair.Dimensions, chair.Image)
	}
	if chair.Subcategory != internal.TaskChairs {
		t.Fatalf("class=%+v", chair.Classification)
	}

	table2 := items[1]
	if table2.Qty == nil || *table2.Qty != 2.5 || *table2.Unit != "sqm" || table2.Category != internal.CategoryDesking {
		t.Fatalf("item=%+v", table2)
	}

	install := items[2]
	if install.Qty != nil || install.Unit != nil || install.Category != internal.CategoryGeneral {
		t.Fatalf("install=%+v", install)
	}
}

func TestItemsColumnFallbacks(t *testing.T) {
	table := internal.Table{
		Headers: []string{"product", "quantity", "price", "amount"},
		Rows:    []internal.Row{{"product": "Visitor chair", "quantity": "4", "price": "120", "amount": "480"}},
	}
	items := ItemsFromTable(0, table, nil)
	if len(items) != 1 {
		t.Fatalf("items=%v", items)
	}
	it := items[0]
	if it.Description != "Visitor chair" || *it.UnitRate != 120 || *it.Total != 480 || *it.Qty != 4 {
		t.Fatalf("item=%+v", it)
	}

	table = internal.Table{
		Headers: []string{"column 1", "column 2"},
		Rows:    []internal.Row{{"column 1": "Pedestal ![](imgs/p.png)", "column 2": "x"}},
	}
	items = ItemsFromTable(0, table, nil)
	if len(items) != 1 || items[0].Description != "Pedestal" || items[0].Image != "imgs/p.png" {
		t.Fatalf("items=%+v", items)
	}
}

func TestExtractBrand(t *testing.T) {
	if got := ExtractBrand("chair by herman miller", DefaultBrands); got != "Herman Miller" {
		t.Fatalf("got=%q", got)
	}
	if got := ExtractBrand("the Ergohuman chair", DefaultBrands); got != "Ergohuman" {
		t.Fatalf("got=%q", got)
	}
	if got := ExtractBrand("plain chair", DefaultBrands); got != "" {
		t.Fatalf("got=%q", got)
	}
}

func TestItemsFromTables(t *testing.T) {
	tables := []internal.Table{
		{Headers: []string{"description", "qty"}, Rows: []internal.Row{{"description": "Sofa", "qty": "1"}}},
		{Headers: []string{"description", "qty"}, Rows: []internal.Row{{"description": "Locker", "qty": "3"}}},
	}
	items := ItemsFromTables(tables, nil)
	if len(items) != 2 || items[1].Table != 1 || items[1].Subcategory != internal.Lockers {
		t.Fatalf("items=%+v", items)
	}
}
