package catalog

import (
	"fmt"
	"math"
	"sort"

	"quotedesk/internal"
	"quotedesk/internal/util"
)

// Alternatives ranks catalogue models of the item's category in tier against
// the item: half text similarity, half closeness of the model's mid price to
// the item's unit rate scaled by the tier multiplier.
func (c *Catalog) Alternatives(item internal.Item, tier internal.Tier, limit int) ([]internal.Alternative, error) {
	multiplier, ok := c.Multiplier(tier)
	if !ok {
		return nil, fmt.Errorf("tier %s not in brand catalog", tier)
	}
	if item.Category == internal.CategoryGeneral || item.Category == "" {
		return []internal.Alternative{}, nil
	}

	target := 0.0
	if item.UnitRate != nil && *item.UnitRate > 0 {
		target = *item.UnitRate * multiplier
	}
	query := util.NormalizeText(item.Description)
	queryTokens := util.Tokenize(query)

	candidates := c.index.Candidates(tier, item.Classification)
	out := make([]internal.Alternative, 0, len(candidates))
	for _, e := range candidates {
		score := 0.5*scoreText(query, e.Text, queryTokens, e.Tokens) + 0.5*priceProximity(e.MidPrice(), target)
		alt := internal.Alternative{
			Tier:              tier,
			Brand:             e.Brand.Brand,
			Country:           e.Brand.Country,
			Website:           e.Brand.Website,
			Model:             e.Model.Model,
			Subcategory:       e.Subcategory,
			PriceRange:        e.Model.PriceRange,
			Features:          e.Model.Features,
			EstimatedUnitRate: e.MidPrice(),
			Score:             math.Round(score*10000) / 10000,
		}
		if item.Qty != nil {
			alt.EstimatedTotal = util.FloatPtr(e.MidPrice() * *item.Qty)
		}
		out = append(out, alt)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Model < out[j].Model
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func scoreText(query, candidate string, queryTokens, candidateTokens []string) float64 {
	dice := util.DiceCoefficient(query, candidate)
	if len(queryTokens) == 0 || len(candidateTokens) == 0 {
		return dice
	}

	set := map[string]struct{}{}
	for _, t := range candidateTokens {
		set[t] = struct{}{}
	}
	overlap := 0
	for _, t := range queryTokens {
		if _, ok := set[t]; ok {
			overlap++
		}
	}
	tokenScore := float64(overlap) / float64(len(queryTokens))
	return 0.65*dice + 0.35*tokenScore
}

func priceProximity(price, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return 1 / (1 + math.Abs(price-target)/target)
}
