package pipeline

import (
	"maps"
	"slices"

	"quotedesk/internal"
	"quotedesk/internal/util"
)

// ApplyCosting rewrites every price column of table through the factor chain
// and, when quantity, unit rate and total columns are all present, recomputes
// the total from the costed unit rate. The input table is not modified.
func ApplyCosting(table internal.Table, factors internal.CostingFactors) internal.CostedTable {
	out := internal.CostedTable{
		Table:   internal.Table{Headers: slices.Clone(table.Headers), Page: table.Page},
		Factors: factors,
	}
	if len(table.Rows) == 0 {
		out.Rows = table.Rows
		return out
	}

	priceCols := FindColumns(table.Headers, RolePrice)
	qtyCol, rateCol, totalCol, recompute := totalColumns(table.Headers)

	out.Rows = make([]internal.Row, 0, len(table.Rows))
	for _, row := range table.Rows {
		updated := maps.Clone(row)
		for _, col := range priceCols {
			cell, ok := row[col]
			if !ok {
				continue
			}
			if v, ok := util.ParseNumber(cell); ok {
				updated[col] = util.FormatAmount(applyFactors(v, factors))
			}
		}

		if recompute {
			qty, qtyOK := util.ParseNumber(updated[qtyCol])
			rate, rateOK := util.ParseNumber(updated[rateCol])
			if qtyOK && rateOK {
				updated[totalCol] = util.FormatAmount(qty * rate)
			}
		}
		out.Rows = append(out.Rows, updated)
	}
	return out
}

func ApplyCostingAll(tables []internal.Table, factors internal.CostingFactors) []internal.CostedTable {
	out := make([]internal.CostedTable, 0, len(tables))
	for _, t := range tables {
		out = append(out, ApplyCosting(t, factors))
	}
	return out
}

// Factors apply in order: exchange rate, freight, customs, installation, net margin, additional.
func applyFactors(v float64, f internal.CostingFactors) float64 {
	v *= f.ExchangeRate
	v *= 1 + f.Freight/100
	v *= 1 + f.Customs/100
	v *= 1 + f.Installation/100
	v *= 1 + f.NetMargin/100
	v *= 1 + f.Additional/100
	return v
}

func totalColumns(headers []string) (qty, rate, total string, ok bool) {
	qty, qtyOK := FindColumn(headers, RoleQuantity)
	rate, rateOK := FindColumn(headers, RoleUnitRate, qty)
	total, totalOK := FindColumn(headers, RoleTotal, qty, rate)
	return qty, rate, total, qtyOK && rateOK && totalOK
}
