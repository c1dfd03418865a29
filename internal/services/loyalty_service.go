package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sushiloyalty/loyalty-backend/internal/config"
	"github.com/sushiloyalty/loyalty-backend/internal/models"
	"github.com/sushiloyalty/loyalty-backend/internal/repositories"
	"github.com/sushiloyalty/loyalty-backend/internal/utils"
	"golang.org/x/exp/slog"
)

// Compile-time check to ensure LoyaltyServiceImpl implements LoyaltyService
var _ LoyaltyService = (*LoyaltyServiceImpl)(nil)

const (
	pendingMergedDescription = "pending points claimed"
	welcomeBonusDescription  = "welcome bonus"
	// profileRaceAttempts bounds the create-or-update loops that lose a
	// unique-email race to a concurrent request.
	profileRaceAttempts = 2
	voidTimeout         = 10 * time.Second
)

// LoyaltyServiceImpl handles accrual, claim and redemption against the ledger
type LoyaltyServiceImpl struct {
	profiles     repositories.ProfileRepository
	entries      repositories.LoyaltyTransactionRepository
	tx           repositories.TxRunner
	issuer       CouponIssuer
	calc         *Calculator
	tiers        *TierCatalog
	ledger       *LedgerRecorder
	welcomeBonus int
	now          func() time.Time
}

// Option configures a LoyaltyServiceImpl
type Option func(*LoyaltyServiceImpl)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *LoyaltyServiceImpl) { s.now = now }
}

// NewLoyaltyService creates a new LoyaltyServiceImpl
func NewLoyaltyService(
	profiles repositories.ProfileRepository,
	entries repositories.LoyaltyTransactionRepository,
	tx repositories.TxRunner,
	issuer CouponIssuer,
	cfg config.LoyaltyConfig,
	opts ...Option,
) *LoyaltyServiceImpl {
	s := &LoyaltyServiceImpl{
		profiles:     profiles,
		entries:      entries,
		tx:           tx,
		issuer:       issuer,
		calc:         NewCalculator(cfg.PointsPerCurrencyUnit, cfg.AccrualRate),
		tiers:        NewTierCatalog(cfg.RedemptionTiers, cfg.MinRedemptionPoints),
		welcomeBonus: cfg.WelcomeBonusPoints,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ledger = NewLedgerRecorder(entries, s.now)
	return s
}

// --- Accrual ---

// ApplyPurchase handles an order-completed event. Unclaimed (or unknown)
// customers accumulate pending points; claimed customers are credited.
func (s *LoyaltyServiceImpl) ApplyPurchase(ctx context.Context, event models.OrderCompletedEvent) (*models.PurchaseResult, error) {
	email, err := normalizeEmail(event.CustomerEmail)
	if err != nil {
		return nil, err
	}
	points, err := s.calc.PointsForOrder(event.OrderTotal)
	if err != nil {
		return nil, err
	}
	orderID := strings.TrimSpace(event.ExternalOrderID)

	if orderID != "" {
		seen, err := s.entries.ExistsForOrder(ctx, email, orderID, models.TransactionTypePurchase)
		if err != nil {
			return nil, fmt.Errorf("check order %s: %w", orderID, err)
		}
		if seen {
			slog.Info("Ignoring repeated order delivery", "email", utils.MaskEmail(email), "orderId", orderID)
			return &models.PurchaseResult{PointsEarned: points, Duplicate: true}, nil
		}
	}

	var result models.PurchaseResult
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		status, err := s.addPurchasePoints(ctx, email, points)
		if err != nil {
			return err
		}

		entry := &models.LoyaltyTransaction{
			Email:           email,
			Points:          points,
			TransactionType: models.TransactionTypePurchase,
			Status:          status,
			RelatedOrderID:  orderID,
		}
		if orderID != "" {
			entry.Description = "order " + orderID
		}
		if err := s.ledger.Record(ctx, entry); err != nil {
			return err
		}

		profile, err := s.profiles.FindByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("reload profile: %w", err)
		}
		result = models.PurchaseResult{PointsEarned: points, Status: status, Profile: profile}
		return nil
	})
	if errors.Is(err, repositories.ErrDuplicate) {
		// A concurrent delivery of the same order committed first.
		slog.Info("Ignoring repeated order delivery", "email", utils.MaskEmail(email), "orderId", orderID)
		return &models.PurchaseResult{PointsEarned: points, Duplicate: true}, nil
	}
	if err != nil {
		return nil, err
	}

	slog.Info("Purchase applied", "email", utils.MaskEmail(email), "orderId", orderID,
		"points", points, "status", result.Status)
	return &result, nil
}

// addPurchasePoints updates the right balance and reports which status the
// ledger entry must carry.
func (s *LoyaltyServiceImpl) addPurchasePoints(ctx context.Context, email string, points int) (models.TransactionStatus, error) {
	for attempt := 0; attempt < profileRaceAttempts; attempt++ {
		profile, err := s.profiles.FindByEmail(ctx, email)
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			now := s.now()
			err = s.profiles.Create(ctx, &models.Profile{
				Email:              email,
				PointsPendingClaim: points,
				CreatedAt:          now,
				UpdatedAt:          now,
			})
			if errors.Is(err, repositories.ErrDuplicate) {
				continue
			}
			if err != nil {
				return "", fmt.Errorf("create profile: %w", err)
			}
			return models.TransactionStatusPending, nil

		case err != nil:
			return "", fmt.Errorf("load profile: %w", err)

		case profile.HasClaimedAccount:
			return s.credit(ctx, email, points)

		default:
			err := s.profiles.IncrementPendingPoints(ctx, email, points)
			if errors.Is(err, repositories.ErrConditionFailed) {
				// Claimed between the read and the update.
				return s.credit(ctx, email, points)
			}
			if err != nil {
				return "", fmt.Errorf("add pending points: %w", err)
			}
			return models.TransactionStatusPending, nil
		}
	}
	return "", fmt.Errorf("create profile for %s: %w", utils.MaskEmail(email), repositories.ErrConditionFailed)
}

func (s *LoyaltyServiceImpl) credit(ctx context.Context, email string, points int) (models.TransactionStatus, error) {
	if err := s.profiles.IncrementPoints(ctx, email, points); err != nil {
		return "", fmt.Errorf("credit points: %w", err)
	}
	return models.TransactionStatusCredited, nil
}

// --- Claim ---

// ClaimAccount marks the account claimed, moves pending points into the
// spendable balance and grants the welcome bonus if it was never granted.
// Calling it again is harmless.
func (s *LoyaltyServiceImpl) ClaimAccount(ctx context.Context, req models.ClaimRequest) (*models.ClaimResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	region := models.Region(strings.ToUpper(strings.TrimSpace(string(req.PreferredRegion))))
	if region != "" && !region.Valid() {
		return nil, invalid("preferredRegion", "unsupported region %q", req.PreferredRegion)
	}

	var result models.ClaimResult
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		bonus, merged, err := s.claim(ctx, email, region)
		if err != nil {
			return err
		}

		if merged > 0 {
			if err := s.ledger.Record(ctx, &models.LoyaltyTransaction{
				Email:           email,
				Points:          merged,
				TransactionType: models.TransactionTypePurchase,
				Status:          models.TransactionStatusCredited,
				Description:     pendingMergedDescription,
			}); err != nil {
				return err
			}
		}
		if bonus > 0 {
			if err := s.ledger.Record(ctx, &models.LoyaltyTransaction{
				Email:           email,
				Points:          bonus,
				TransactionType: models.TransactionTypeWelcomeBonus,
				Status:          models.TransactionStatusCredited,
				Description:     welcomeBonusDescription,
			}); err != nil {
				return err
			}
		}

		profile, err := s.profiles.FindByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("reload profile: %w", err)
		}
		result = models.ClaimResult{Profile: profile, BonusGranted: bonus, PendingMerged: merged}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Account claimed", "email", utils.MaskEmail(email),
		"bonusGranted", result.BonusGranted, "pendingMerged", result.PendingMerged)
	return &result, nil
}

// claim performs the merge and returns the bonus granted and the pending
// points merged by this call.
func (s *LoyaltyServiceImpl) claim(ctx context.Context, email string, region models.Region) (int, int, error) {
	for attempt := 0; attempt < profileRaceAttempts; attempt++ {
		before, err := s.profiles.Claim(ctx, email, s.welcomeBonus, region)
		if err == nil {
			bonus := 0
			if !before.WelcomeBonusClaimed {
				bonus = s.welcomeBonus
			}
			return bonus, before.PointsPendingClaim, nil
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return 0, 0, fmt.Errorf("claim profile: %w", err)
		}

		now := s.now()
		err = s.profiles.Create(ctx, &models.Profile{
			Email:               email,
			LoyaltyPoints:       s.welcomeBonus,
			HasClaimedAccount:   true,
			WelcomeBonusClaimed: true,
			PreferredRegion:     region,
			CreatedAt:           now,
			UpdatedAt:           now,
		})
		if errors.Is(err, repositories.ErrDuplicate) {
			// Another request created the profile first; merge into it.
			continue
		}
		if err != nil {
			return 0, 0, fmt.Errorf("create profile: %w", err)
		}
		return s.welcomeBonus, 0, nil
	}
	return 0, 0, fmt.Errorf("claim profile for %s: %w", utils.MaskEmail(email), repositories.ErrConditionFailed)
}

// --- Redemption ---

// Redeem checks the balance, obtains a coupon from the issuer and only then
// debits the points. If the debit cannot be committed the coupon is voided.
func (s *LoyaltyServiceImpl) Redeem(ctx context.Context, req models.RedemptionRequest) (*models.RedemptionResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	tier, err := s.tiers.Lookup(req.TierPointsCost, req.TierValue)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return nil, &InsufficientBalanceError{Available: 0, Required: tier.PointsCost}
	case err != nil:
		return nil, fmt.Errorf("load profile: %w", err)
	case profile.LoyaltyPoints < tier.PointsCost:
		return nil, &InsufficientBalanceError{Available: profile.LoyaltyPoints, Required: tier.PointsCost}
	}

	coupon, err := s.issuer.IssueCoupon(ctx, models.CouponRequest{
		Email:          email,
		PointsCost:     tier.PointsCost,
		Value:          tier.Value,
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		slog.Error("Coupon issue failed", "email", utils.MaskEmail(email), "tier", tier.PointsCost, "error", err)
		return nil, &ExternalServiceError{Op: "issue coupon", Err: err}
	}

	var result models.RedemptionResult
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		updated, err := s.profiles.DecrementPoints(ctx, email, tier.PointsCost)
		if errors.Is(err, repositories.ErrConditionFailed) {
			available := 0
			if current, findErr := s.profiles.FindByEmail(ctx, email); findErr == nil {
				available = current.LoyaltyPoints
			}
			return &InsufficientBalanceError{Available: available, Required: tier.PointsCost}
		}
		if err != nil {
			return fmt.Errorf("debit points: %w", err)
		}

		entry := &models.LoyaltyTransaction{
			Email:           email,
			Points:          -tier.PointsCost,
			TransactionType: models.TransactionTypeRedemption,
			Status:          models.TransactionStatusRedeemed,
			Description:     "coupon " + coupon.Code,
		}
		if err := s.ledger.Record(ctx, entry); err != nil {
			return err
		}
		result = models.RedemptionResult{Profile: updated, Coupon: coupon, Entry: entry}
		return nil
	})
	if err != nil {
		s.voidCoupon(coupon, email)
		return nil, err
	}

	slog.Info("Points redeemed", "email", utils.MaskEmail(email), "tier", tier.PointsCost,
		"couponId", coupon.ID, "balance", result.Profile.LoyaltyPoints)
	return &result, nil
}

// voidCoupon compensates for a redemption that failed after the coupon was
// issued. It runs detached from the request so a cancelled request still
// releases the coupon.
func (s *LoyaltyServiceImpl) voidCoupon(coupon *models.Coupon, email string) {
	ctx, cancel := context.WithTimeout(context.Background(), voidTimeout)
	defer cancel()
	if err := s.issuer.VoidCoupon(ctx, coupon.ID); err != nil {
		slog.Error("Failed to void coupon after aborted redemption",
			"email", utils.MaskEmail(email), "couponId", coupon.ID, "error", err)
		return
	}
	slog.Warn("Voided coupon after aborted redemption", "email", utils.MaskEmail(email), "couponId", coupon.ID)
}

// --- Queries ---

// GetProfile retrieves a profile by email
func (s *LoyaltyServiceImpl) GetProfile(ctx context.Context, email string) (*models.Profile, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	return s.profiles.FindByEmail(ctx, email)
}

// History retrieves the ledger for an email, most recent first
func (s *LoyaltyServiceImpl) History(ctx context.Context, email string) ([]*models.LoyaltyTransaction, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	return s.ledger.History(ctx, email)
}

// Reconcile compares the stored balance with the applied ledger entries
func (s *LoyaltyServiceImpl) Reconcile(ctx context.Context, email string) (*models.Reconciliation, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	profile, err := s.profiles.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	entries, err := s.ledger.History(ctx, email)
	if err != nil {
		return nil, err
	}

	ledgerBalance := appliedBalance(entries)
	return &models.Reconciliation{
		Email:              email,
		LoyaltyPoints:      profile.LoyaltyPoints,
		LedgerBalance:      ledgerBalance,
		PointsPendingClaim: profile.PointsPendingClaim,
		Balanced:           ledgerBalance == profile.LoyaltyPoints,
	}, nil
}

// Tiers returns the redemption tiers, cheapest first
func (s *LoyaltyServiceImpl) Tiers() []models.RedemptionTier {
	return s.tiers.Tiers()
}

// CurrencyToPoints returns how many points an amount of money is worth
func (s *LoyaltyServiceImpl) CurrencyToPoints(amount decimal.Decimal) int {
	return s.calc.CurrencyToPoints(amount)
}

// PointsToCurrency returns the money value of points
func (s *LoyaltyServiceImpl) PointsToCurrency(points int) decimal.Decimal {
	return s.calc.PointsToCurrency(points)
}

func normalizeEmail(raw string) (string, error) {
	email := utils.NormalizeEmail(raw)
	if email == "" {
		return "", invalid("email", "is required")
	}
	if !utils.LooksLikeEmail(email) {
		return "", invalid("email", "%q is not an email address", raw)
	}
	return email, nil
}
