package services

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/sushiloyalty/loyalty-backend/internal/models"
	mongorepo "github.com/sushiloyalty/loyalty-backend/internal/repositories/mongodb"
	"github.com/sushiloyalty/loyalty-backend/pkg/mongodb"
)

// newMongoTestEnv runs the service on MONGODB_TEST_URI, in a database dropped
// after the test.
func newMongoTestEnv(t *testing.T) *testEnv {
	t.Helper()
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI is not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongodb.NewClient(ctx, uri, 5*time.Second, os.Getenv("MONGODB_TEST_TRANSACTIONS") == "true")
	require.NoError(t, err)

	db := client.Database("loyalty_svc_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	require.NoError(t, mongorepo.EnsureIndexes(ctx, db))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	env := &testEnv{
		profiles: mongorepo.NewProfileRepository(db),
		issuer:   &fakeIssuer{},
	}
	env.svc = NewLoyaltyService(
		env.profiles,
		mongorepo.NewLoyaltyTransactionRepository(db),
		client,
		env.issuer,
		testLoyaltyConfig(),
		WithClock(steppingClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))),
	)
	return env
}

func TestMongoGuestSignupAndRedemption(t *testing.T) {
	ctx := context.Background()
	env := newMongoTestEnv(t)

	res, err := env.svc.ApplyPurchase(ctx, order("m@x.com", "25", "order-1"))
	require.NoError(t, err)
	require.Equal(t, models.TransactionStatusPending, res.Status)
	require.Equal(t, 250, res.Profile.PointsPendingClaim)

	dup, err := env.svc.ApplyPurchase(ctx, order("m@x.com", "25", "order-1"))
	require.NoError(t, err)
	require.True(t, dup.Duplicate)

	claim, err := env.svc.ClaimAccount(ctx, models.ClaimRequest{Email: "M@x.com"})
	require.NoError(t, err)
	require.Equal(t, 1000, claim.BonusGranted)
	require.Equal(t, 250, claim.PendingMerged)
	require.Equal(t, 1250, claim.Profile.LoyaltyPoints)

	again, err := env.svc.ClaimAccount(ctx, models.ClaimRequest{Email: "m@x.com"})
	require.NoError(t, err)
	require.Equal(t, 0, again.BonusGranted)
	require.Equal(t, 1250, again.Profile.LoyaltyPoints)

	redeemed, err := env.svc.Redeem(ctx, models.RedemptionRequest{
		Email: "m@x.com", TierPointsCost: 500, TierValue: decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	require.Equal(t, 750, redeemed.Profile.LoyaltyPoints)

	_, err = env.svc.Redeem(ctx, models.RedemptionRequest{
		Email: "m@x.com", TierPointsCost: 2000, TierValue: decimal.NewFromInt(20),
	})
	var insufficient *InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, 1250, insufficient.Shortfall())

	history, err := env.svc.History(ctx, "m@x.com")
	require.NoError(t, err)
	require.Len(t, history, 4)
	require.Equal(t, models.TransactionTypeRedemption, history[0].TransactionType)
	require.Equal(t, models.TransactionStatusPending, history[3].Status)
	requireBalanced(t, env.svc, "m@x.com")
}

func TestMongoLostDebitRaceVoidsCoupon(t *testing.T) {
	ctx := context.Background()
	env := newMongoTestEnv(t)
	claimedBalance(t, env, "n@x.com", 1000)

	env.issuer.onIssue = func() {
		_, err := env.profiles.DecrementPoints(ctx, "n@x.com", 900)
		require.NoError(t, err)
	}
	_, err := env.svc.Redeem(ctx, models.RedemptionRequest{Email: "n@x.com", TierPointsCost: 500, TierValue: decimal.NewFromInt(5)})
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.Len(t, env.issuer.voided, 1)

	profile, err := env.svc.GetProfile(ctx, "n@x.com")
	require.NoError(t, err)
	require.Equal(t, 100, profile.LoyaltyPoints)
}
