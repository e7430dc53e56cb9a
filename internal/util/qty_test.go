package util

import "testing"

func TestParseQty(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		want     float64
		wantUnit string
	}{
		{name: "nos", input: "12 Nos", want: 12, wantUnit: "nos"},
		{name: "thousand comma", input: "1,200 pcs", want: 1200, wantUnit: "nos"},
		{name: "thousand space", input: "1 000 pcs", want: 1000, wantUnit: "nos"},
		{name: "decimal comma", input: "2,5 sqm", want: 2.5, wantUnit: "sqm"},
		{name: "decimal dot", input: "2.5 lm", want: 2.5, wantUnit: "lm"},
		{name: "three decimals", input: "1.000 set", want: 1, wantUnit: "set"},
		{name: "dimension then qty", input: "1600x800 desk 4 sets", want: 4, wantUnit: "set"},
		{name: "bare number", input: "7", want: 7},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			parsed := ParseQty(tc.input)
			if parsed.Qty == nil {
				t.Fatalf("qty is nil")
			}
			if *parsed.Qty != tc.want {
				t.Fatalf("got %v want %v", *parsed.Qty, tc.want)
			}
			if DerefString(parsed.Unit) != tc.wantUnit {
				t.Fatalf("unit got %q want %q", DerefString(parsed.Unit), tc.wantUnit)
			}
		})
	}
}

func TestParseQtyNoNumber(t *testing.T) {
	parsed := ParseQty("as required")
	if parsed.Qty != nil {
		t.Fatalf("qty=%v", *parsed.Qty)
	}
}
