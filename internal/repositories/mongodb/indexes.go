package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the repositories rely on for uniqueness
// and history ordering. It is safe to call on every start.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	profileIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_profile_email"),
		},
	}
	if _, err := db.Collection("profiles").Indexes().CreateMany(ctx, profileIndexes); err != nil {
		return fmt.Errorf("create profile indexes: %w", err)
	}

	ledgerIndexes := []mongo.IndexModel{
		{
			// Only entries tagged with an order take part in de-duplication.
			Keys: bson.D{
				{Key: "email", Value: 1},
				{Key: "relatedOrderId", Value: 1},
				{Key: "transactionType", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_ledger_order").
				SetPartialFilterExpression(bson.M{"relatedOrderId": bson.M{"$type": "string"}}),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("ledger_email_created"),
		},
	}
	if _, err := db.Collection("loyalty_transactions").Indexes().CreateMany(ctx, ledgerIndexes); err != nil {
		return fmt.Errorf("create ledger indexes: %w", err)
	}
	return nil
}
