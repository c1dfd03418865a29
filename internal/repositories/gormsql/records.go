package gormsql

import (
	"time"

	"github.com/google/uuid"
	"github.com/sushiloyalty/loyalty-backend/internal/models"
	"gorm.io/gorm"
)

type profileRecord struct {
	ID                  string `gorm:"type:varchar(36);primaryKey"`
	Email               string `gorm:"not null;uniqueIndex:uniq_profile_email"`
	LoyaltyPoints       int    `gorm:"not null;default:0;check:loyalty_points >= 0"`
	PointsPendingClaim  int    `gorm:"not null;default:0;check:points_pending_claim >= 0"`
	HasClaimedAccount   bool   `gorm:"not null;default:false"`
	WelcomeBonusClaimed bool   `gorm:"not null;default:false"`
	PreferredRegion     *string
	CreatedAt           time.Time `gorm:"not null"`
	UpdatedAt           time.Time `gorm:"not null"`
}

func (profileRecord) TableName() string { return "profiles" }

func (r *profileRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func (r *profileRecord) toModel() *models.Profile {
	p := &models.Profile{
		ID:                  r.ID,
		Email:               r.Email,
		LoyaltyPoints:       r.LoyaltyPoints,
		PointsPendingClaim:  r.PointsPendingClaim,
		HasClaimedAccount:   r.HasClaimedAccount,
		WelcomeBonusClaimed: r.WelcomeBonusClaimed,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
	if r.PreferredRegion != nil {
		p.PreferredRegion = models.Region(*r.PreferredRegion)
	}
	return p
}

func newProfileRecord(p *models.Profile) *profileRecord {
	r := &profileRecord{
		ID:                  p.ID,
		Email:               p.Email,
		LoyaltyPoints:       p.LoyaltyPoints,
		PointsPendingClaim:  p.PointsPendingClaim,
		HasClaimedAccount:   p.HasClaimedAccount,
		WelcomeBonusClaimed: p.WelcomeBonusClaimed,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
	if p.PreferredRegion != "" {
		region := string(p.PreferredRegion)
		r.PreferredRegion = &region
	}
	return r
}

// RelatedOrderID is NULL when absent so that the unique index only applies
// to entries tagged with an order.
type loyaltyTransactionRecord struct {
	ID              string    `gorm:"type:varchar(36);primaryKey"`
	Email           string    `gorm:"not null;uniqueIndex:uniq_ledger_order,priority:1;index:idx_ledger_email_created,priority:1"`
	Points          int       `gorm:"not null"`
	TransactionType string    `gorm:"not null;uniqueIndex:uniq_ledger_order,priority:3"`
	Status          string    `gorm:"not null"`
	RelatedOrderID  *string   `gorm:"uniqueIndex:uniq_ledger_order,priority:2"`
	Description     string    `gorm:"not null;default:''"`
	CreatedAt       time.Time `gorm:"not null;index:idx_ledger_email_created,priority:2"`
}

func (loyaltyTransactionRecord) TableName() string { return "loyalty_transactions" }

func (r *loyaltyTransactionRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func (r *loyaltyTransactionRecord) toModel() *models.LoyaltyTransaction {
	t := &models.LoyaltyTransaction{
		ID:              r.ID,
		Email:           r.Email,
		Points:          r.Points,
		TransactionType: models.TransactionType(r.TransactionType),
		Status:          models.TransactionStatus(r.Status),
		Description:     r.Description,
		CreatedAt:       r.CreatedAt,
	}
	if r.RelatedOrderID != nil {
		t.RelatedOrderID = *r.RelatedOrderID
	}
	return t
}

func newLoyaltyTransactionRecord(t *models.LoyaltyTransaction) *loyaltyTransactionRecord {
	r := &loyaltyTransactionRecord{
		ID:              t.ID,
		Email:           t.Email,
		Points:          t.Points,
		TransactionType: string(t.TransactionType),
		Status:          string(t.Status),
		Description:     t.Description,
		CreatedAt:       t.CreatedAt,
	}
	if t.RelatedOrderID != "" {
		orderID := t.RelatedOrderID
		r.RelatedOrderID = &orderID
	}
	return r
}
