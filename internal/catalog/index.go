package catalog

import (
	"strings"

	"quotedesk/internal"
	"quotedesk/internal/util"
)

type Entry struct {
	Tier        internal.Tier
	Category    internal.Category
	Subcategory internal.Subcategory
	Brand       Brand
	Model       Model
	PriceMin    float64
	PriceMax    float64
	// Normalized model name and features, used for text similarity.
	Text   string
	Tokens []string
}

func (e Entry) MidPrice() float64 {
	return (e.PriceMin + e.PriceMax) / 2
}

type Index struct {
	BySubcategory map[string][]Entry
	ByCategory    map[string][]Entry
}

func indexKey(parts ...string) string {
	return strings.Join(parts, "|")
}

func BuildIndex(tiers map[internal.Tier]TierSpec) *Index {
	idx := &Index{
		BySubcategory: map[string][]Entry{},
		ByCategory:    map[string][]Entry{},
	}

	for tier, spec := range tiers {
		for category, brands := range spec.Categories {
			for _, b := range brands {
				for sub, models := range b.Models {
					for _, m := range models {
						lo, hi, err := ParsePriceRange(m.PriceRange)
						if err != nil {
							continue
						}
						text := util.NormalizeText(m.Model + " " + strings.Join(m.Features, " "))
						e := Entry{
							Tier:        tier,
							Category:    category,
							Subcategory: sub,
							Brand:       b,
							Model:       m,
							PriceMin:    lo,
							PriceMax:    hi,
							Text:        text,
							Tokens:      util.Tokenize(text),
						}
						subKey := indexKey(string(tier), string(category), string(sub))
						catKey := indexKey(string(tier), string(category))
						idx.BySubcategory[subKey] = append(idx.BySubcategory[subKey], e)
						idx.ByCategory[catKey] = append(idx.ByCategory[catKey], e)
					}
				}
			}
		}
	}

	return idx
}

// Candidates returns the entries of the item's subcategory in tier, or the
// whole category when the subcategory has none.
func (idx *Index) Candidates(tier internal.Tier, c internal.Classification) []Entry {
	if list := idx.BySubcategory[indexKey(string(tier), string(c.Category), string(c.Subcategory))]; len(list) > 0 {
		return list
	}
	return idx.ByCategory[indexKey(string(tier), string(c.Category))]
}
