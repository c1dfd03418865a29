package services

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/sushiloyalty/loyalty-backend/internal/config"
	"github.com/sushiloyalty/loyalty-backend/internal/models"
)

// TierCatalog is the fixed set of redemption options.
type TierCatalog struct {
	tiers     []models.RedemptionTier
	minPoints int
}

// NewTierCatalog builds the catalog from configuration, cheapest tier first.
func NewTierCatalog(tiers []config.TierConfig, minPoints int) *TierCatalog {
	out := make([]models.RedemptionTier, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, models.RedemptionTier{
			PointsCost: t.PointsCost,
			Value:      decimal.NewFromFloat(t.Value),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PointsCost < out[j].PointsCost })
	return &TierCatalog{tiers: out, minPoints: minPoints}
}

// Tiers returns a copy of the configured tiers.
func (c *TierCatalog) Tiers() []models.RedemptionTier {
	out := make([]models.RedemptionTier, len(c.tiers))
	copy(out, c.tiers)
	return out
}

// Lookup finds the tier matching both the points cost and the value the
// client displayed. A mismatch means the client is out of date.
func (c *TierCatalog) Lookup(pointsCost int, value decimal.Decimal) (models.RedemptionTier, error) {
	if pointsCost < c.minPoints {
		return models.RedemptionTier{}, invalid("tierPointsCost", "redemptions start at %d points", c.minPoints)
	}
	for _, t := range c.tiers {
		if t.PointsCost != pointsCost {
			continue
		}
		if !t.Value.Equal(value) {
			return models.RedemptionTier{}, invalid("tierValue", "tier of %d points is worth %s, not %s",
				pointsCost, t.Value.String(), value.String())
		}
		return t, nil
	}
	return models.RedemptionTier{}, invalid("tierPointsCost", "no redemption tier costs %d points", pointsCost)
}
