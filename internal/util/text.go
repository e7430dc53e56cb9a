package util

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

var (
	reSpaces     = regexp.MustCompile(`\s+`)
	strictPolicy = bluemonday.StrictPolicy()
)

// NormalizeHeader folds a column header for role lookup: NFKC, lowercase,
// underscores as spaces, whitespace collapsed.
func NormalizeHeader(input string) string {
	s := strings.ToLower(norm.NFKC.String(input))
	s = strings.ReplaceAll(s, "_", " ")
	return CollapseSpaces(s)
}

// NormalizeText keeps only letters and digits, lowercased and single-spaced.
func NormalizeText(input string) string {
	s := strings.ToLower(norm.NFKC.String(input))
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)
	return CollapseSpaces(s)
}

func CollapseSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

func Tokenize(input string) []string {
	parts := strings.Fields(NormalizeText(input))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if len([]rune(p)) >= 2 {
			out = append(out, p)
		}
	}
	return out
}

// PlainText strips markup from a cell, leaving readable text.
func PlainText(input string) string {
	if !strings.ContainsAny(input, "<&") {
		return CollapseSpaces(input)
	}
	return CollapseSpaces(html.UnescapeString(strictPolicy.Sanitize(input)))
}

func DiceCoefficient(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	aPairs := bigrams(a)
	bPairs := bigrams(b)
	if len(aPairs) == 0 || len(bPairs) == 0 {
		return 0
	}

	bCount := map[string]int{}
	for _, p := range bPairs {
		bCount[p]++
	}
	inter := 0
	for _, p := range aPairs {
		if bCount[p] > 0 {
			inter++
			bCount[p]--
		}
	}

	return float64(2*inter) / float64(len(aPairs)+len(bPairs))
}

func bigrams(s string) []string {
	r := []rune(s)
	if len(r) < 2 {
		return nil
	}
	out := make([]string, 0, len(r)-1)
	for i := 0; i < len(r)-1; i++ {
		out = append(out, string(r[i:i+2]))
	}
	return out
}
