package gormsql

import (
	"context"
	"time"

	"github.com/sushiloyalty/loyalty-backend/internal/models"
	"github.com/sushiloyalty/loyalty-backend/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Compile-time check to ensure LoyaltyTransactionRepository implements the interface
var _ repositories.LoyaltyTransactionRepository = (*LoyaltyTransactionRepository)(nil)

// LoyaltyTransactionRepository handles SQL operations for LoyaltyTransaction.
// It only ever inserts and reads.
type LoyaltyTransactionRepository struct {
	db *gorm.DB
}

// NewLoyaltyTransactionRepository creates a new LoyaltyTransactionRepository
func NewLoyaltyTransactionRepository(db *gorm.DB) *LoyaltyTransactionRepository {
	return &LoyaltyTransactionRepository{db: db}
}

// Create inserts a ledger entry. A conflict on the order uniqueness index is
// reported as ErrDuplicate.
func (r *LoyaltyTransactionRepository) Create(ctx context.Context, entry *models.LoyaltyTransaction) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	rec := newLoyaltyTransactionRecord(entry)
	result := conn(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrDuplicate
	}
	entry.ID = rec.ID
	return nil
}

// FindByEmail finds all ledger entries for an email, most recent first
func (r *LoyaltyTransactionRepository) FindByEmail(ctx context.Context, email string) ([]*models.LoyaltyTransaction, error) {
	var recs []loyaltyTransactionRecord
	err := conn(ctx, r.db).
		Where("email = ?", email).
		Order("created_at DESC, id DESC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}

	entries := make([]*models.LoyaltyTransaction, 0, len(recs))
	for i := range recs {
		entries = append(entries, recs[i].toModel())
	}
	return entries, nil
}

// ExistsForOrder reports whether an entry of the given type was already recorded for the order
func (r *LoyaltyTransactionRepository) ExistsForOrder(ctx context.Context, email, orderID string, transactionType models.TransactionType) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&loyaltyTransactionRecord{}).
		Where("email = ? AND related_order_id = ? AND transaction_type = ?", email, orderID, string(transactionType)).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
