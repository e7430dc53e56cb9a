package util

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var reNonNumeric = regexp.MustCompile(`[^0-9.\-]`)

// foldDigits maps every decimal digit (Unicode Nd) to its ASCII form.
// Superscripts, fractions and circled numbers are not decimal digits and
// are left for the non-numeric filter to drop.
func foldDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x80 || !unicode.Is(unicode.Nd, r) {
			return r
		}
		return '0' + digitValue(r)
	}, s)
}

// digitValue relies on Nd ranges starting at a zero and running in blocks of ten.
func digitValue(r rune) rune {
	for _, rg := range unicode.Nd.R16 {
		if lo, hi := rune(rg.Lo), rune(rg.Hi); r >= lo && r <= hi {
			return (r - lo) % 10
		}
	}
	for _, rg := range unicode.Nd.R32 {
		if lo, hi := rune(rg.Lo), rune(rg.Hi); r >= lo && r <= hi {
			return (r - lo) % 10
		}
	}
	return 0
}

// ParseNumber extracts a float from a cell value. Everything except digits,
// '.' and '-' is dropped before parsing; ok is false when nothing parseable remains.
func ParseNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case json.Number:
		return ParseNumber(string(v))
	case *string:
		if v == nil {
			return 0, false
		}
		return ParseNumber(*v)
	case string:
		s := foldDigits(v)
		s = reNonNumeric.ReplaceAllString(s, "")
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return ParseNumber(fmt.Sprint(v))
	}
}

// ParseNumberPtr is ParseNumber returning nil for absent values.
func ParseNumberPtr(value any) *float64 {
	if f, ok := ParseNumber(value); ok {
		return FloatPtr(f)
	}
	return nil
}

func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
