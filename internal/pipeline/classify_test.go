package pipeline

import (
	"testing"

	"quotedesk/internal"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		in   string
		cat  internal.Category
		sub  internal.Subcategory
	}{
		{"Executive Chair, leather, high back", internal.CategorySeating, internal.ExecutiveChairs},
		{"Ergonomic task chair with mesh back", internal.CategorySeating, internal.TaskChairs},
		{"Stacking chair for cafeteria", internal.CategorySeating, internal.VisitorChairs},
		{"3 seater sofa", internal.CategorySeating, internal.Sofas},
		{"Bar stool", internal.CategorySeating, internal.TaskChairs},
		{"Meeting table 2400x1200", internal.CategoryDesking, internal.MeetingTables},
		{"Mobile pedestal 3 drawers", internal.CategoryDesking, internal.Pedestals},
		{"Side table", internal.CategoryDesking, internal.Workstations},
		{"12 door locker", internal.CategoryDesking, internal.Lockers},
		{"Installation and delivery", internal.CategoryGeneral, internal.SubcategoryGeneral},
		{"", internal.CategoryGeneral, internal.SubcategoryGeneral},
	}
	for _, c := range cases {
		got := Classify(c.in)
		if got.Category != c.cat || got.Subcategory != c.sub {
			t.Errorf("Classify(%q)=%+v want %s/%s", c.in, got, c.cat, c.sub)
		}
	}
}

func TestClassifyExecutiveChairAnywhere(t *testing.T) {
	for _, in := range []string{
		"executive chair",
		"EXECUTIVE CHAIR with meeting table finish",
		"Visitor chair matching the Executive Chair",
		"Lounge sofa and executive chair set",
	} {
		got := Classify(in)
		if got.Category != internal.CategorySeating || got.Subcategory != internal.ExecutiveChairs {
			t.Errorf("Classify(%q)=%+v", in, got)
		}
	}
}
