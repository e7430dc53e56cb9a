package util

import (
	"regexp"
	"strconv"
	"strings"
)

const unitAlternation = `nos|no|numbers|pcs|pc|pieces|sets|set|each|ea|lm|rm|sqm|m2|lots|lot|units|unit`

var (
	unitPattern     = regexp.MustCompile(`(?i)\b(` + unitAlternation + `)\b`)
	withUnitPattern = regexp.MustCompile(`(?i)(?:^|[^0-9.,])(\d{1,3}(?:[\s,]\d{3})+(?:\.\d+)?|\d+(?:[.,]\d+)?)\s*(` + unitAlternation + `)\b`)
	numberPattern   = regexp.MustCompile(`(?:^|[^0-9.,])(\d{1,3}(?:[\s,]\d{3})+(?:\.\d+)?|\d+(?:[.,]\d+)?)`)
	reThousandComma = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+(?:\.\d+)?$`)
)

type ParsedQty struct {
	Qty    *float64
	Unit   *string
	QtyRaw *string
}

// ParseQty reads a quantity and optional unit from a cell such as "12 Nos" or "1,200 pcs".
// When several numbers are present the one followed by a unit wins, else the last.
func ParseQty(input string) ParsedQty {
	line := strings.ReplaceAll(input, " ", " ")

	qtyRaw := ""
	qtyToken := ""

	wm := withUnitPattern.FindAllStringSubmatch(line, -1)
	if len(wm) > 0 {
		last := wm[len(wm)-1]
		qtyRaw = strings.TrimSpace(last[1] + " " + last[2])
		qtyToken = strings.TrimSpace(last[1])
	} else {
		nm := numberPattern.FindAllStringSubmatch(line, -1)
		if len(nm) > 0 {
			last := nm[len(nm)-1]
			qtyRaw = strings.TrimSpace(last[1])
			qtyToken = strings.TrimSpace(last[1])
		}
	}

	var qtyPtr *float64
	if qtyToken != "" {
		if parsed, err := strconv.ParseFloat(normalizeNumericToken(qtyToken), 64); err == nil {
			qtyPtr = FloatPtr(parsed)
		}
	}

	var unitPtr *string
	if um := unitPattern.FindStringSubmatch(line); len(um) > 1 {
		unitPtr = StringPtr(NormalizeUnit(um[1]))
	}

	var qtyRawPtr *string
	if qtyRaw != "" {
		qtyRawPtr = &qtyRaw
	}

	return ParsedQty{Qty: qtyPtr, Unit: unitPtr, QtyRaw: qtyRawPtr}
}

func NormalizeUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	switch u {
	case "nos", "no", "numbers", "pcs", "pc", "pieces", "each", "ea", "unit", "units":
		return "nos"
	case "set", "sets":
		return "set"
	case "lm", "rm":
		return "lm"
	case "sqm", "m2":
		return "sqm"
	case "lot", "lots":
		return "lot"
	default:
		return u
	}
}

// Dots are always decimal points; commas group thousands or, on their own, mark decimals.
func normalizeNumericToken(token string) string {
	compact := strings.ReplaceAll(token, " ", "")
	if reThousandComma.MatchString(compact) {
		return strings.ReplaceAll(compact, ",", "")
	}
	if strings.Contains(compact, ",") && !strings.Contains(compact, ".") {
		return strings.ReplaceAll(compact, ",", ".")
	}
	return compact
}
