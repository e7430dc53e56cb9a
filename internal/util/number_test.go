package util

import (
	"encoding/json"
	"testing"
)

func TestParseNumber(t *testing.T) {
	cases := []struct {
		name  string
		input any
		want  float64
		ok    bool
	}{
		{name: "currency with thousands", input: "$1,234.56", want: 1234.56, ok: true},
		{name: "currency code", input: "OMR 50", want: 50, ok: true},
		{name: "surrounding space", input: "  75.5 ", want: 75.5, ok: true},
		{name: "negative", input: "-12.50", want: -12.5, ok: true},
		{name: "full width digits", input: "１２３", want: 123, ok: true},
		{name: "arabic indic digits", input: "٤٥", want: 45, ok: true},
		{name: "per square metre", input: "OMR 50 / m²", want: 50, ok: true},
		{name: "superscript unit", input: "50/m²", want: 50, ok: true},
		{name: "per square metre spelled", input: "OMR 120 per m²", want: 120, ok: true},
		{name: "vulgar fraction", input: "½", ok: false},
		{name: "circled number", input: "①", ok: false},
		{name: "float passthrough", input: 42.25, want: 42.25, ok: true},
		{name: "int passthrough", input: 3, want: 3, ok: true},
		{name: "json number", input: json.Number("9.5"), want: 9.5, ok: true},
		{name: "empty", input: "", ok: false},
		{name: "letters only", input: "abc", ok: false},
		{name: "two decimal points", input: "1.2.3", ok: false},
		{name: "stray dash", input: "-", ok: false},
		{name: "nil", input: nil, ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseNumber(tc.input)
			if ok != tc.ok {
				t.Fatalf("ok=%v want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestFormatAmount(t *testing.T) {
	cases := map[float64]string{
		100:     "100.00",
		115.5:   "115.50",
		0.125:   "0.12",
		1234.56: "1234.56",
	}
	for in, want := range cases {
		if got := FormatAmount(in); got != want {
			t.Errorf("FormatAmount(%v)=%q want %q", in, got, want)
		}
	}
}
