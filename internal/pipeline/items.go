package pipeline

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"quotedesk/internal"
	"quotedesk/internal/util"
)

var (
	DefaultBrands = []string{"Sedus", "Narbutas", "Sokoa", "B&T", "Herman Miller", "Steelcase", "Haworth", "Knoll"}

	reDimensions  = regexp.MustCompile(`\d+\s*[xX×]\s*\d+\s*[xX×]?\s*\d*\s*(?:mm|cm|inch|in|m|")`)
	reSummaryLine = regexp.MustCompile(`(?i)^(sub\s*-?\s*total|grand\s+total|total|vat|discount)\b`)
	reMarkdownImg = regexp.MustCompile(`!\[[^\]]*\]\(([^)\s]+)[^)]*\)`)
)

type itemColumns struct {
	description, serial, qty, unit, rate, total, image string
}

func resolveItemColumns(headers []string) itemColumns {
	var c itemColumns
	c.description, _ = FindColumn(headers, RoleDescription)
	c.serial, _ = FindColumn(headers, RoleSerial, c.description)
	c.qty, _ = FindColumn(headers, RoleQuantity)
	c.unit, _ = FindColumn(headers, RoleUnit, c.qty)
	c.total, _ = FindColumn(headers, RoleTotal, c.qty)
	var ok bool
	if c.rate, ok = FindColumn(headers, RoleUnitRate, c.qty, c.total); !ok {
		c.rate, _ = FindColumn(headers, RoleRate, c.qty, c.total)
	}
	if c.total == "" {
		for _, h := range FindColumns(headers, RolePrice) {
			n := util.NormalizeHeader(h)
			if h != c.rate && (strings.Contains(n, "total") || strings.Contains(n, "amount")) {
				c.total = h
				break
			}
		}
	}
	c.image, _ = FindColumn(headers, RoleImage)
	if c.description == "" {
		for _, h := range headers {
			if !slices.Contains([]string{c.serial, c.qty, c.unit, c.rate, c.total, c.image}, h) {
				c.description = h
				break
			}
		}
	}
	return c
}

// ItemsFromTable derives line items from a table. Rows without a description
// and summary rows (totals, VAT) are skipped. brands are matched
// case-insensitively in the description before falling back to the first
// capitalised word.
func ItemsFromTable(tableIdx int, table internal.Table, brands []string) []internal.Item {
	cols := resolveItemColumns(table.Headers)
	out := make([]internal.Item, 0, len(table.Rows))
	for i, row := range table.Rows {
		description := cellValue(row, cols.description)
		if description == "" || (reSummaryLine.MatchString(description) && strings.TrimSpace(row[cols.qty]) == "") {
			continue
		}

		item := internal.Item{
			Table:          tableIdx,
			Row:            i,
			SerialNo:       cellValue(row, cols.serial),
			Description:    description,
			UnitRate:       util.ParseNumberPtr(cellValue(row, cols.rate)),
			Total:          util.ParseNumberPtr(cellValue(row, cols.total)),
			Brand:          ExtractBrand(description, brands),
			Dimensions:     reDimensions.FindString(description),
			Image:          firstImage(row[cols.image], row[cols.description]),
			Classification: Classify(description),
		}

		qtyCell := cellValue(row, cols.qty)
		parsed := util.ParseQty(qtyCell)
		item.Qty = parsed.Qty
		if item.Qty == nil {
			item.Qty = util.ParseNumberPtr(qtyCell)
		}
		if unit := cellValue(row, cols.unit); unit != "" {
			item.Unit = util.StringPtr(unit)
		} else {
			item.Unit = parsed.Unit
		}
		out = append(out, item)
	}
	return out
}

func ItemsFromTables(tables []internal.Table, brands []string) []internal.Item {
	var out []internal.Item
	for i, t := range tables {
		out = append(out, ItemsFromTable(i, t, brands)...)
	}
	return out
}

// ExtractBrand returns the first known brand mentioned in description, else
// its first capitalised word longer than two characters, else "".
func ExtractBrand(description string, brands []string) string {
	lower := strings.ToLower(description)
	for _, b := range brands {
		if b != "" && strings.Contains(lower, strings.ToLower(b)) {
			return b
		}
	}
	for _, word := range strings.Fields(description) {
		first, _ := utf8.DecodeRuneInString(word)
		if unicode.IsUpper(first) && utf8.RuneCountInString(word) > 2 {
			return word
		}
	}
	return ""
}

func cellValue(row internal.Row, col string) string {
	if col == "" {
		return ""
	}
	return util.CollapseSpaces(reMarkdownImg.ReplaceAllString(util.PlainText(row[col]), ""))
}

func firstImage(cells ...string) string {
	for _, cell := range cells {
		if m := reMarkdownImg.FindStringSubmatch(cell); m != nil {
			return m[1]
		}
		if !strings.Contains(cell, "<img") {
			continue
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(cell))
		if err != nil {
			continue
		}
		if src, ok := doc.Find("img").First().Attr("src"); ok && src != "" {
			return src
		}
	}
	return ""
}
