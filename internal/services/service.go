package services

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sushiloyalty/loyalty-backend/internal/models"
)

// LoyaltyService defines the interface for loyalty ledger operations
type LoyaltyService interface {
	// ApplyPurchase credits (or holds as pending) the points earned by a
	// completed order. Repeated deliveries of the same order are no-ops.
	ApplyPurchase(ctx context.Context, event models.OrderCompletedEvent) (*models.PurchaseResult, error)

	// ClaimAccount merges pending points and grants the one-time welcome bonus
	ClaimAccount(ctx context.Context, req models.ClaimRequest) (*models.ClaimResult, error)

	// Redeem exchanges points for a coupon of the requested tier
	Redeem(ctx context.Context, req models.RedemptionRequest) (*models.RedemptionResult, error)

	// GetProfile retrieves a profile by email
	GetProfile(ctx context.Context, email string) (*models.Profile, error)

	// History retrieves the ledger for an email, most recent first
	History(ctx context.Context, email string) ([]*models.LoyaltyTransaction, error)

	// Reconcile compares the stored balance with the sum of applied ledger entries
	Reconcile(ctx context.Context, email string) (*models.Reconciliation, error)

	Tiers() []models.RedemptionTier
	CurrencyToPoints(amount decimal.Decimal) int
	PointsToCurrency(points int) decimal.Decimal
}

// CouponIssuer is the external system that turns a redemption into a
// discount code usable at checkout.
type CouponIssuer interface {
	IssueCoupon(ctx context.Context, req models.CouponRequest) (*models.Coupon, error)
	// VoidCoupon cancels a coupon that was issued for a redemption that
	// could not be committed.
	VoidCoupon(ctx context.Context, couponID string) error
}
