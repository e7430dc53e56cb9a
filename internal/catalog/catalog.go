package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"quotedesk/internal"
)

//go:embed brands.yaml
var embeddedBrands []byte

type Model struct {
	Model      string   `yaml:"model"`
	PriceRange string   `yaml:"price_range"`
	Features   []string `yaml:"features"`
}

type Brand struct {
	Brand   string                           `yaml:"brand"`
	Country string                           `yaml:"country"`
	Website string                           `yaml:"website"`
	Models  map[internal.Subcategory][]Model `yaml:"models"`
}

type TierSpec struct {
	Multiplier float64                       `yaml:"multiplier"`
	Categories map[internal.Category][]Brand `yaml:"categories"`
}

type catalogFile struct {
	Tiers map[internal.Tier]TierSpec `yaml:"tiers"`
}

type Catalog struct {
	tiers  map[internal.Tier]TierSpec
	index  *Index
	brands []string
}

var tierAliases = map[string]internal.Tier{
	"budgetary": internal.TierBudgetary,
	"budget":    internal.TierBudgetary,
	"mid_range": internal.TierMidRange,
	"mid-range": internal.TierMidRange,
	"midrange":  internal.TierMidRange,
	"medium":    internal.TierMidRange,
	"high_end":  internal.TierHighEnd,
	"high-end":  internal.TierHighEnd,
	"premium":   internal.TierHighEnd,
}

func NormalizeTier(value string) (internal.Tier, error) {
	if t, ok := tierAliases[strings.ToLower(strings.TrimSpace(value))]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown budget tier: %q", value)
}

// Load reads the catalogue at path, or the built-in one when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Parse(embeddedBrands)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read brand catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse brand catalog: %w", err)
	}
	if len(f.Tiers) == 0 {
		return nil, errors.New("brand catalog has no tiers")
	}

	seen := map[string]struct{}{}
	var brands []string
	for tier, spec := range f.Tiers {
		if _, err := NormalizeTier(string(tier)); err != nil {
			return nil, err
		}
		if spec.Multiplier <= 0 {
			return nil, fmt.Errorf("tier %s: multiplier must be positive", tier)
		}
		for category, list := range spec.Categories {
			for _, b := range list {
				if strings.TrimSpace(b.Brand) == "" {
					return nil, fmt.Errorf("tier %s category %s: brand without name", tier, category)
				}
				for sub, models := range b.Models {
					for _, m := range models {
						if _, _, err := ParsePriceRange(m.PriceRange); err != nil {
							return nil, fmt.Errorf("%s %s/%s %q: %w", tier, category, sub, m.Model, err)
						}
					}
				}
				if _, ok := seen[b.Brand]; !ok {
					seen[b.Brand] = struct{}{}
					brands = append(brands, b.Brand)
				}
			}
		}
	}
	slices.Sort(brands)

	return &Catalog{tiers: f.Tiers, index: BuildIndex(f.Tiers), brands: brands}, nil
}

// Brands lists every brand name in the catalogue, sorted.
func (c *Catalog) Brands() []string {
	return slices.Clone(c.brands)
}

func (c *Catalog) Multiplier(tier internal.Tier) (float64, bool) {
	spec, ok := c.tiers[tier]
	return spec.Multiplier, ok
}

// ParsePriceRange reads "150-250" (or a single price) into its bounds.
func ParsePriceRange(value string) (float64, float64, error) {
	parts := strings.SplitN(value, "-", 2)
	lo, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad price range %q", value)
	}
	if len(parts) == 1 {
		return lo, lo, nil
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || hi < lo {
		return 0, 0, fmt.Errorf("bad price range %q", value)
	}
	return lo, hi, nil
}
