package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/sushiloyalty/loyalty-backend/internal/config"
)

func testTiers() []config.TierConfig {
	return []config.TierConfig{
		{PointsCost: 2000, Value: 20},
		{PointsCost: 500, Value: 5},
		{PointsCost: 1000, Value: 10},
	}
}

func TestTierCatalogIsSortedAndCopied(t *testing.T) {
	catalog := NewTierCatalog(testTiers(), 500)

	tiers := catalog.Tiers()
	require.Len(t, tiers, 3)
	require.Equal(t, []int{500, 1000, 2000}, []int{tiers[0].PointsCost, tiers[1].PointsCost, tiers[2].PointsCost})

	tiers[0].PointsCost = 1
	require.Equal(t, 500, catalog.Tiers()[0].PointsCost)
}

func TestTierLookup(t *testing.T) {
	catalog := NewTierCatalog(testTiers(), 500)

	tier, err := catalog.Lookup(1000, decimal.NewFromInt(10))
	require.NoError(t, err)
	require.Equal(t, 1000, tier.PointsCost)

	// Trailing zeros do not matter.
	_, err = catalog.Lookup(500, decimal.RequireFromString("5.00"))
	require.NoError(t, err)

	_, err = catalog.Lookup(500, decimal.NewFromInt(6))
	require.ErrorIs(t, err, ErrValidation)

	_, err = catalog.Lookup(400, decimal.NewFromInt(4))
	require.ErrorIs(t, err, ErrValidation)

	_, err = catalog.Lookup(700, decimal.NewFromInt(7))
	require.ErrorIs(t, err, ErrValidation)
}
