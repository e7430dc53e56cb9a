package pipeline

import (
	"slices"
	"strings"

	"quotedesk/internal/util"
)

type ColumnRole string

const (
	RolePrice       ColumnRole = "price"
	RoleQuantity    ColumnRole = "quantity"
	RoleUnitRate    ColumnRole = "unit_rate"
	RoleRate        ColumnRole = "rate"
	RoleTotal       ColumnRole = "total"
	RoleDescription ColumnRole = "description"
	RoleUnit        ColumnRole = "unit"
	RoleSerial      ColumnRole = "serial"
	RoleImage       ColumnRole = "image"
)

// A header plays a role when it contains any of contains, or equals any of
// exact (compared as is and with spaces removed).
type rolePatterns struct {
	contains []string
	exact    []string
}

var columnRoles = map[ColumnRole]rolePatterns{
	RolePrice:       {contains: []string{"rate", "price", "unit rate", "unit price", "amount", "total", "cost"}},
	RoleQuantity:    {contains: []string{"qty", "quantity"}},
	RoleUnitRate:    {contains: []string{"unit rate", "unit price"}},
	RoleRate:        {contains: []string{"rate", "price"}},
	RoleTotal:       {exact: []string{"total", "amount", "total amount", "total price"}},
	RoleDescription: {contains: []string{"description"}, exact: []string{"item", "items", "particulars", "product"}},
	RoleUnit:        {exact: []string{"unit", "units", "uom", "u/m"}},
	RoleSerial:      {exact: []string{"sn", "s.n", "s/n", "sl.no", "si.no", "s.no", "sr.no", "no", "no.", "#", "itemno", "itemno."}},
	RoleImage:       {contains: []string{"image", "photo", "picture", "img"}},
}

func MatchesRole(header string, role ColumnRole) bool {
	patterns, ok := columnRoles[role]
	if !ok {
		return false
	}
	h := util.NormalizeHeader(header)
	if h == "" {
		return false
	}
	for _, p := range patterns.contains {
		if strings.Contains(h, p) {
			return true
		}
	}
	compact := strings.ReplaceAll(h, " ", "")
	for _, p := range patterns.exact {
		if h == p || compact == p {
			return true
		}
	}
	return false
}

// FindColumn returns the first header, in header order, that plays role and is
// not listed in exclude.
func FindColumn(headers []string, role ColumnRole, exclude ...string) (string, bool) {
	for _, h := range headers {
		if slices.Contains(exclude, h) {
			continue
		}
		if MatchesRole(h, role) {
			return h, true
		}
	}
	return "", false
}

func FindColumns(headers []string, role ColumnRole) []string {
	var out []string
	for _, h := range headers {
		if MatchesRole(h, role) && !slices.Contains(out, h) {
			out = append(out, h)
		}
	}
	return out
}
