package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RedemptionTier is a fixed exchange of points for a currency-value reward.
type RedemptionTier struct {
	PointsCost int             `json:"pointsCost"`
	Value      decimal.Decimal `json:"value"`
}

// RedemptionRequest asks to exchange points for a tier's reward.
type RedemptionRequest struct {
	Email          string          `json:"email"`
	TierPointsCost int             `json:"tierPointsCost" binding:"required"`
	TierValue      decimal.Decimal `json:"tierValue"`
}

// CouponRequest asks the commerce platform for a single-use discount code.
// IdempotencyKey lets the platform collapse retried requests.
type CouponRequest struct {
	Email          string
	PointsCost     int
	Value          decimal.Decimal
	IdempotencyKey string
}

// Coupon is the discount artifact issued by the commerce platform.
type Coupon struct {
	ID       string          `json:"id"`
	Code     string          `json:"code"`
	Value    decimal.Decimal `json:"value"`
	Currency string          `json:"currency"`
	IssuedAt time.Time       `json:"issuedAt"`
}

// RedemptionResult is returned after a redemption is committed.
type RedemptionResult struct {
	Profile *Profile            `json:"profile"`
	Coupon  *Coupon             `json:"coupon"`
	Entry   *LoyaltyTransaction `json:"entry"`
}

// Reconciliation compares a profile's balance with its ledger.
type Reconciliation struct {
	Email              string `json:"email"`
	LoyaltyPoints      int    `json:"loyaltyPoints"`
	LedgerBalance      int    `json:"ledgerBalance"`
	PointsPendingClaim int    `json:"pointsPendingClaim"`
	Balanced           bool   `json:"balanced"`
}
