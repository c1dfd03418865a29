package services

import (
	"github.com/shopspring/decimal"
)

// Calculator converts between money and points. Results are always floored
// so that a customer is never credited more than the program promises.
type Calculator struct {
	pointsPerUnit decimal.Decimal
	accrualRate   decimal.Decimal
}

// NewCalculator creates a Calculator. With 100 points per currency unit and a
// 0.10 accrual rate a customer earns 10 points per unit spent.
func NewCalculator(pointsPerCurrencyUnit int, accrualRate float64) *Calculator {
	return &Calculator{
		pointsPerUnit: decimal.NewFromInt(int64(pointsPerCurrencyUnit)),
		accrualRate:   decimal.NewFromFloat(accrualRate),
	}
}

// PointsForOrder returns the points earned for an order total.
func (c *Calculator) PointsForOrder(total decimal.Decimal) (int, error) {
	if total.IsNegative() {
		return 0, invalid("orderTotal", "must not be negative, got %s", total.String())
	}
	return floorPoints(total.Mul(c.pointsPerUnit).Mul(c.accrualRate)), nil
}

// CurrencyToPoints returns how many points an amount of money is worth.
// Negative amounts are worth nothing.
func (c *Calculator) CurrencyToPoints(amount decimal.Decimal) int {
	if amount.IsNegative() {
		return 0
	}
	return floorPoints(amount.Mul(c.pointsPerUnit))
}

// PointsToCurrency returns the money value of points, for display only.
func (c *Calculator) PointsToCurrency(points int) decimal.Decimal {
	return decimal.NewFromInt(int64(points)).Div(c.pointsPerUnit)
}

// floorPoints rounds to two decimal places before flooring, so a product
// that is a hair below a whole number through representation error is not
// undercounted.
func floorPoints(raw decimal.Decimal) int {
	return int(raw.Round(2).Floor().IntPart())
}
