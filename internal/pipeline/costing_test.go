package pipeline

import (
	"encoding/json"
	"testing"

	"quotedesk/internal"
	"quotedesk/internal/util"
)

func TestApplyCostingFactorChain(t *testing.T) {
	table := internal.Table{Headers: []string{"description", "price"}, Rows: []internal.Row{{"description": "Chair", "price": "100.00"}}}
	factors := internal.DefaultCostingFactors()
	factors.NetMargin = 10
	factors.Freight = 5

	got := ApplyCosting(table, factors)
	if got.Rows[0]["price"] != "115.50" {
		t.Fatalf("price=%q", got.Rows[0]["price"])
	}
	if got.Rows[0]["description"] != "Chair" {
		t.Fatalf("description changed: %q", got.Rows[0]["description"])
	}
	if table.Rows[0]["price"] != "100.00" {
		t.Fatal("input table modified")
	}
}

func TestApplyCostingNeverLowersPrices(t *testing.T) {
	prices := []string{"1", "99.99", "$1,234.56", "OMR 50", "0"}
	factorSets := []internal.CostingFactors{
		{ExchangeRate: 1},
		{ExchangeRate: 1, NetMargin: 12.5, Installation: 3},
		{ExchangeRate: 2.6, Freight: 4, Customs: 5, Additional: 1},
	}
	for _, f := range factorSets {
		for _, p := range prices {
			got := ApplyCosting(internal.Table{Headers: []string{"amount"}, Rows: []internal.Row{{"amount": p}}}, f)
			before, _ := util.ParseNumber(p)
			after, ok := util.ParseNumber(got.Rows[0]["amount"])
			if !ok || after < before-0.005 {
				t.Fatalf("factors=%+v price=%q costed=%q", f, p, got.Rows[0]["amount"])
			}
		}
	}
}

func TestApplyCostingIdentity(t *testing.T) {
	table := internal.Table{
		Headers: []string{"item", "unit price", "cost"},
		Rows: []internal.Row{
			{"item": "Desk", "unit price": "100", "cost": "1,250.5"},
			{"item": "Note", "unit price": "on request", "cost": ""},
		},
	}
	got := ApplyCosting(table, internal.DefaultCostingFactors())
	if got.Rows[0]["unit price"] != "100.00" || got.Rows[0]["cost"] != "1250.50" {
		t.Fatalf("row0=%v", got.Rows[0])
	}
	if got.Rows[1]["unit price"] != "on request" || got.Rows[1]["cost"] != "" {
		t.Fatalf("unparseable cells must pass through: %v", got.Rows[1])
	}
}

func TestApplyCostingRecomputesTotal(t *testing.T) {
	table := internal.Table{
		Headers: []string{"qty", "unit_rate", "total"},
		Rows:    []internal.Row{{"qty": "3", "unit_rate": "50.00", "total": "999"}},
	}
	got := ApplyCosting(table, internal.DefaultCostingFactors())
	if got.Rows[0]["total"] != "150.00" || got.Rows[0]["qty"] != "3" {
		t.Fatalf("row=%v", got.Rows[0])
	}

	factors := internal.DefaultCostingFactors()
	factors.NetMargin = 10
	got = ApplyCosting(table, factors)
	if got.Rows[0]["unit_rate"] != "55.00" || got.Rows[0]["total"] != "165.00" {
		t.Fatalf("row=%v", got.Rows[0])
	}
}

func TestApplyCostingSquareMetreRate(t *testing.T) {
	table := internal.Table{
		Headers: []string{"description", "unit price"},
		Rows:    []internal.Row{{"description": "Carpet tiles", "unit price": "OMR 50 / m²"}},
	}
	got := ApplyCosting(table, internal.DefaultCostingFactors())
	if got.Rows[0]["unit price"] != "50.00" {
		t.Fatalf("row=%v", got.Rows[0])
	}
}

func TestApplyCostingEmptyTable(t *testing.T) {
	got := ApplyCosting(internal.Table{Headers: []string{"price"}}, internal.DefaultCostingFactors())
	if len(got.Rows) != 0 || len(got.Headers) != 1 {
		t.Fatalf("got=%+v", got)
	}
}

func TestCostingFactorsDefaults(t *testing.T) {
	var f internal.CostingFactors
	if err := json.Unmarshal([]byte(`{"net_margin": 20}`), &f); err != nil {
		t.Fatal(err)
	}
	if f.ExchangeRate != 1 || f.NetMargin != 20 {
		t.Fatalf("factors=%+v", f)
	}

	all := ApplyCostingAll([]internal.Table{
		{Headers: []string{"rate"}, Rows: []internal.Row{{"rate": "10"}}},
		{Headers: []string{"rate"}, Rows: []internal.Row{{"rate": "20"}}},
	}, f)
	if len(all) != 2 || all[1].Rows[0]["rate"] != "24.00" || all[0].Factors != f {
		t.Fatalf("all=%+v", all)
	}
}
