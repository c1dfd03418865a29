package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sushiloyalty/loyalty-backend/internal/models"
	"github.com/sushiloyalty/loyalty-backend/internal/repositories"
)

// LedgerRecorder appends entries to the loyalty ledger and reads them back.
// It has no update or delete path.
type LedgerRecorder struct {
	entries repositories.LoyaltyTransactionRepository
	now     func() time.Time
}

// NewLedgerRecorder creates a LedgerRecorder
func NewLedgerRecorder(entries repositories.LoyaltyTransactionRepository, now func() time.Time) *LedgerRecorder {
	if now == nil {
		now = time.Now
	}
	return &LedgerRecorder{entries: entries, now: now}
}

// Record validates and inserts entry, stamping its creation time in UTC.
func (l *LedgerRecorder) Record(ctx context.Context, entry *models.LoyaltyTransaction) error {
	if err := validateEntry(entry); err != nil {
		return err
	}
	entry.CreatedAt = l.now().UTC()
	if err := l.entries.Create(ctx, entry); err != nil {
		return fmt.Errorf("record %s entry: %w", entry.TransactionType, err)
	}
	return nil
}

// History returns every entry for email, most recent first.
func (l *LedgerRecorder) History(ctx context.Context, email string) ([]*models.LoyaltyTransaction, error) {
	entries, err := l.entries.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("load ledger history: %w", err)
	}
	return entries, nil
}

func validateEntry(entry *models.LoyaltyTransaction) error {
	if entry.Email == "" {
		return invalid("email", "is required")
	}
	if !entry.TransactionType.Valid() {
		return invalid("transactionType", "unknown type %q", entry.TransactionType)
	}
	if !entry.Status.Valid() {
		return invalid("status", "unknown status %q", entry.Status)
	}

	switch entry.TransactionType {
	case models.TransactionTypeRedemption:
		if entry.Points >= 0 {
			return invalid("points", "a redemption must be negative, got %d", entry.Points)
		}
		if entry.Status != models.TransactionStatusRedeemed {
			return invalid("status", "a redemption must be %q", models.TransactionStatusRedeemed)
		}
	case models.TransactionTypeWelcomeBonus:
		if entry.Points <= 0 {
			return invalid("points", "a welcome bonus must be positive, got %d", entry.Points)
		}
		if entry.Status != models.TransactionStatusCredited {
			return invalid("status", "a welcome bonus must be %q", models.TransactionStatusCredited)
		}
	case models.TransactionTypePurchase:
		// Zero-point purchases are kept for a complete audit trail.
		if entry.Points < 0 {
			return invalid("points", "a purchase must not be negative, got %d", entry.Points)
		}
		if entry.Status == models.TransactionStatusRedeemed {
			return invalid("status", "a purchase cannot be %q", models.TransactionStatusRedeemed)
		}
	}
	return nil
}

// appliedBalance sums the entries that are reflected in the spendable balance.
func appliedBalance(entries []*models.LoyaltyTransaction) int {
	total := 0
	for _, e := range entries {
		if e.Status.Applied() {
			total += e.Points
		}
	}
	return total
}
