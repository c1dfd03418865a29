package gormsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sushiloyalty/loyalty-backend/internal/models"
	"github.com/sushiloyalty/loyalty-backend/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Compile-time check to ensure ProfileRepository implements the interface
var _ repositories.ProfileRepository = (*ProfileRepository)(nil)

// claimAttempts bounds the compare-and-swap loop in Claim.
const claimAttempts = 5

// ProfileRepository handles SQL operations for Profile
type ProfileRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts a new profile; ErrDuplicate when the email already exists.
func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = r.now()
	}
	profile.UpdatedAt = profile.CreatedAt

	rec := newProfileRecord(profile)
	result := conn(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrDuplicate
	}
	profile.ID = rec.ID
	return nil
}

// FindByEmail finds a profile by email
func (r *ProfileRepository) FindByEmail(ctx context.Context, email string) (*models.Profile, error) {
	return r.first(ctx, "email = ?", email)
}

// FindByID finds a profile by ID
func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *ProfileRepository) first(ctx context.Context, query string, args ...interface{}) (*models.Profile, error) {
	var rec profileRecord
	err := conn(ctx, r.db).Where(query, args...).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// IncrementPoints atomically increments the spendable balance
func (r *ProfileRepository) IncrementPoints(ctx context.Context, email string, points int) error {
	if points < 0 {
		return errors.New("points to add must not be negative")
	}
	result := conn(ctx, r.db).Model(&profileRecord{}).
		Where("email = ?", email).
		Updates(map[string]interface{}{
			"loyalty_points": gorm.Expr("loyalty_points + ?", points),
			"updated_at":     r.now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// IncrementPendingPoints atomically increments pointsPendingClaim of an unclaimed profile
func (r *ProfileRepository) IncrementPendingPoints(ctx context.Context, email string, points int) error {
	if points < 0 {
		return errors.New("points to add must not be negative")
	}
	result := conn(ctx, r.db).Model(&profileRecord{}).
		Where("email = ? AND has_claimed_account = ?", email, false).
		Updates(map[string]interface{}{
			"points_pending_claim": gorm.Expr("points_pending_claim + ?", points),
			"updated_at":           r.now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrConditionFailed
	}
	return nil
}

// DecrementPoints atomically decrements the balance where loyalty_points >= points
func (r *ProfileRepository) DecrementPoints(ctx context.Context, email string, points int) (*models.Profile, error) {
	if points <= 0 {
		return nil, errors.New("points to subtract must be positive")
	}
	result := conn(ctx, r.db).Model(&profileRecord{}).
		Where("email = ? AND loyalty_points >= ?", email, points).
		Updates(map[string]interface{}{
			"loyalty_points": gorm.Expr("loyalty_points - ?", points),
			"updated_at":     r.now(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, repositories.ErrConditionFailed
	}
	return r.FindByEmail(ctx, email)
}

// Claim merges pending points and the welcome bonus with a compare-and-swap
// update guarded on the values that were read, so a concurrent accrual or
// claim forces a re-read instead of being overwritten.
func (r *ProfileRepository) Claim(ctx context.Context, email string, welcomeBonus int, region models.Region) (*models.Profile, error) {
	for attempt := 0; attempt < claimAttempts; attempt++ {
		before, err := r.FindByEmail(ctx, email)
		if err != nil {
			return nil, err
		}

		credit := before.PointsPendingClaim
		if !before.WelcomeBonusClaimed {
			credit += welcomeBonus
		}
		updates := map[string]interface{}{
			"loyalty_points":        gorm.Expr("loyalty_points + ?", credit),
			"points_pending_claim":  0,
			"has_claimed_account":   true,
			"welcome_bonus_claimed": true,
			"updated_at":            r.now(),
		}
		if region != "" {
			updates["preferred_region"] = string(region)
		}

		result := conn(ctx, r.db).Model(&profileRecord{}).
			Where("email = ? AND points_pending_claim = ? AND welcome_bonus_claimed = ?",
				email, before.PointsPendingClaim, before.WelcomeBonusClaimed).
			Updates(updates)
		if result.Error != nil {
			return nil, fmt.Errorf("claim profile: %w", result.Error)
		}
		if result.RowsAffected == 1 {
			return before, nil
		}
	}
	return nil, fmt.Errorf("claim profile %s: %w", email, repositories.ErrConditionFailed)
}
