package repositories

import (
	"context"
	"errors"

	"github.com/sushiloyalty/loyalty-backend/internal/models"
)

var (
	// ErrNotFound is returned when no record matches the lookup.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
	// ErrConditionFailed is returned when a conditional update matched no record,
	// e.g. a decrement against an insufficient balance.
	ErrConditionFailed = errors.New("update condition not met")
)

// ProfileRepository defines the interface for profile data operations.
// Every balance mutation is a single atomic storage operation.
type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	FindByEmail(ctx context.Context, email string) (*models.Profile, error)
	FindByID(ctx context.Context, id string) (*models.Profile, error)
	// IncrementPoints adds points to the spendable balance.
	IncrementPoints(ctx context.Context, email string, points int) error
	// IncrementPendingPoints adds points to pointsPendingClaim only while the
	// profile is unclaimed; ErrConditionFailed otherwise.
	IncrementPendingPoints(ctx context.Context, email string, points int) error
	// DecrementPoints subtracts points only when the balance covers them and
	// returns the updated profile; ErrConditionFailed otherwise.
	DecrementPoints(ctx context.Context, email string, points int) (*models.Profile, error)
	// Claim merges pending points and the welcome bonus (if not yet granted)
	// into the spendable balance and marks the account claimed. It returns the
	// profile as it was before the merge.
	Claim(ctx context.Context, email string, welcomeBonus int, region models.Region) (*models.Profile, error)
}

// LoyaltyTransactionRepository defines the interface for the append-only ledger
type LoyaltyTransactionRepository interface {
	// Create inserts an entry; ErrDuplicate when (email, relatedOrderId,
	// transactionType) already exists for a non-empty order id.
	Create(ctx context.Context, entry *models.LoyaltyTransaction) error
	// FindByEmail returns every entry for email, newest first.
	FindByEmail(ctx context.Context, email string) ([]*models.LoyaltyTransaction, error)
	ExistsForOrder(ctx context.Context, email, orderID string, transactionType models.TransactionType) (bool, error)
}

// TxRunner runs fn so that all repository calls made with the context it
// receives commit or roll back together.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
