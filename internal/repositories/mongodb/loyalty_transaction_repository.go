package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/sushiloyalty/loyalty-backend/internal/models"
	"github.com/sushiloyalty/loyalty-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure LoyaltyTransactionRepository implements the interface
var _ repositories.LoyaltyTransactionRepository = (*LoyaltyTransactionRepository)(nil)

// LoyaltyTransactionRepository handles MongoDB operations for LoyaltyTransaction.
// The collection is insert-only.
type LoyaltyTransactionRepository struct {
	collection *mongo.Collection
}

// NewLoyaltyTransactionRepository creates a new LoyaltyTransactionRepository
func NewLoyaltyTransactionRepository(db *mongo.Database) *LoyaltyTransactionRepository {
	return &LoyaltyTransactionRepository{
		collection: db.Collection("loyalty_transactions"),
	}
}

// Create inserts a new ledger entry
func (r *LoyaltyTransactionRepository) Create(ctx context.Context, entry *models.LoyaltyTransaction) error {
	if entry.ID == "" {
		entry.ID = primitive.NewObjectID().Hex()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, entry)
	if mongo.IsDuplicateKeyError(err) {
		return repositories.ErrDuplicate
	}
	return err
}

// FindByEmail finds all ledger entries for an email, most recent first
func (r *LoyaltyTransactionRepository) FindByEmail(ctx context.Context, email string) ([]*models.LoyaltyTransaction, error) {
	var entries []*models.LoyaltyTransaction
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"email": email}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}

	// Return empty slice instead of nil if no documents found
	if entries == nil {
		entries = []*models.LoyaltyTransaction{}
	}
	return entries, nil
}

// ExistsForOrder reports whether an entry of the given type was already recorded for the order
func (r *LoyaltyTransactionRepository) ExistsForOrder(ctx context.Context, email, orderID string, transactionType models.TransactionType) (bool, error) {
	filter := bson.M{
		"email":           email,
		"relatedOrderId":  orderID,
		"transactionType": transactionType,
	}
	err := r.collection.FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
