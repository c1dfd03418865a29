package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sushiloyalty/loyalty-backend/internal/models"
	"github.com/sushiloyalty/loyalty-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure ProfileRepository implements the interface
var _ repositories.ProfileRepository = (*ProfileRepository)(nil)

// ProfileRepository handles MongoDB operations for Profile
type ProfileRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(db *mongo.Database) *ProfileRepository {
	return &ProfileRepository{
		collection: db.Collection("profiles"),
		now:        time.Now,
	}
}

// Create inserts a new profile. The email index is unique.
func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if profile.ID == "" {
		profile.ID = primitive.NewObjectID().Hex()
	}
	now := r.now()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = profile.CreatedAt

	_, err := r.collection.InsertOne(ctx, profile)
	if mongo.IsDuplicateKeyError(err) {
		return repositories.ErrDuplicate
	}
	return err
}

// FindByEmail finds a profile by email
func (r *ProfileRepository) FindByEmail(ctx context.Context, email string) (*models.Profile, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// FindByID finds a profile by ID
func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *ProfileRepository) findOne(ctx context.Context, filter bson.M) (*models.Profile, error) {
	var profile models.Profile
	err := r.collection.FindOne(ctx, filter).Decode(&profile)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// IncrementPoints atomically increments the spendable balance
func (r *ProfileRepository) IncrementPoints(ctx context.Context, email string, points int) error {
	if points < 0 {
		return errors.New("points to add must not be negative")
	}
	update := bson.M{
		"$inc": bson.M{"loyaltyPoints": points},
		"$set": bson.M{"updatedAt": r.now()},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"email": email}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// IncrementPendingPoints atomically increments pointsPendingClaim of an unclaimed profile
func (r *ProfileRepository) IncrementPendingPoints(ctx context.Context, email string, points int) error {
	if points < 0 {
		return errors.New("points to add must not be negative")
	}
	filter := bson.M{"email": email, "hasClaimedAccount": false}
	update := bson.M{
		"$inc": bson.M{"pointsPendingClaim": points},
		"$set": bson.M{"updatedAt": r.now()},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repositories.ErrConditionFailed
	}
	return nil
}

// DecrementPoints atomically decrements the balance where loyaltyPoints >= points
func (r *ProfileRepository) DecrementPoints(ctx context.Context, email string, points int) (*models.Profile, error) {
	if points <= 0 {
		return nil, errors.New("points to subtract must be positive")
	}
	filter := bson.M{"email": email, "loyaltyPoints": bson.M{"$gte": points}}
	update := bson.M{
		"$inc": bson.M{"loyaltyPoints": -points},
		"$set": bson.M{"updatedAt": r.now()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var profile models.Profile
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&profile)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repositories.ErrConditionFailed
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Claim merges pending points and the one-time welcome bonus in a single
// pipeline update and returns the pre-image.
func (r *ProfileRepository) Claim(ctx context.Context, email string, welcomeBonus int, region models.Region) (*models.Profile, error) {
	set := bson.D{
		{Key: "loyaltyPoints", Value: bson.D{{Key: "$add", Value: bson.A{
			"$loyaltyPoints",
			"$pointsPendingClaim",
			bson.D{{Key: "$cond", Value: bson.A{"$welcomeBonusClaimed", 0, welcomeBonus}}},
		}}}},
		{Key: "pointsPendingClaim", Value: 0},
		{Key: "hasClaimedAccount", Value: true},
		{Key: "welcomeBonusClaimed", Value: true},
		{Key: "updatedAt", Value: r.now()},
	}
	if region != "" {
		set = append(set, bson.E{Key: "preferredRegion", Value: string(region)})
	}
	pipeline := mongo.Pipeline{{{Key: "$set", Value: set}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var before models.Profile
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"email": email}, pipeline, opts).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("claim profile: %w", err)
	}
	return &before, nil
}
