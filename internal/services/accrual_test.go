package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestPointsForOrder(t *testing.T) {
	calc := NewCalculator(100, 0.10)

	cases := []struct {
		total string
		want  int
	}{
		{"0", 0},
		{"10.00", 100},
		{"20", 200},
		{"2.555", 25},
		{"0.09", 0},
		{"0.10", 1},
		{"19.99", 199},
		{"123.456", 1234},
	}
	for _, tc := range cases {
		got, err := calc.PointsForOrder(decimal.RequireFromString(tc.total))
		require.NoError(t, err, tc.total)
		require.Equal(t, tc.want, got, tc.total)
	}
}

func TestPointsForOrderRejectsNegativeTotals(t *testing.T) {
	calc := NewCalculator(100, 0.10)
	_, err := calc.PointsForOrder(decimal.RequireFromString("-5"))
	require.ErrorIs(t, err, ErrValidation)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "orderTotal", verr.Field)
}

func TestCurrencyToPointsFloorsAfterRounding(t *testing.T) {
	calc := NewCalculator(100, 0.10)

	require.Equal(t, 255, calc.CurrencyToPoints(decimal.RequireFromString("2.555")))
	require.Equal(t, 250, calc.CurrencyToPoints(decimal.RequireFromString("2.5")))
	// A float that lands a hair below the whole number is not undercounted.
	require.Equal(t, 250, calc.CurrencyToPoints(decimal.NewFromFloat(2.4999999999)))
	require.Equal(t, 0, calc.CurrencyToPoints(decimal.RequireFromString("-1")))
}

func TestPointsToCurrencyIsExact(t *testing.T) {
	calc := NewCalculator(100, 0.10)
	require.True(t, decimal.RequireFromString("12.34").Equal(calc.PointsToCurrency(1234)))
	require.True(t, decimal.RequireFromString("0.05").Equal(calc.PointsToCurrency(5)))
	require.True(t, decimal.Zero.Equal(calc.PointsToCurrency(0)))
}
