package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	contributiondomain "github.com/wattshare/wattshare/internal/contribution/domain"
	purchasedomain "github.com/wattshare/wattshare/internal/purchase/domain"
	"github.com/wattshare/wattshare/internal/reconcile/domain"
	"github.com/wattshare/wattshare/internal/reconcile/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupReconcile(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&purchasedomain.Purchase{}, &contributiondomain.Contribution{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:   db,
		Log:  zap.NewNop(),
		Repo: repository.Provide(),
	})
	return svc, db, node
}

func addPurchase(t *testing.T, db *gorm.DB, node *snowflake.Node, date time.Time, tokens, payment, meter float64) snowflake.ID {
	t.Helper()
	purchase := purchasedomain.Purchase{
		ID:           node.Generate(),
		TotalTokens:  tokens,
		TotalPayment: payment,
		MeterReading: meter,
		PurchaseDate: date.UTC(),
		CreatedBy:    node.Generate(),
		CreatedAt:    date.UTC(),
		UpdatedAt:    date.UTC(),
	}
	require.NoError(t, db.Create(&purchase).Error)
	return purchase.ID
}

func addContribution(t *testing.T, db *gorm.DB, node *snowflake.Node, purchaseID, userID snowflake.ID, amount, tokensConsumed float64) snowflake.ID {
	t.Helper()
	now := time.Now().UTC()
	contribution := contributiondomain.Contribution{
		ID:                 node.Generate(),
		PurchaseID:         purchaseID,
		UserID:             userID,
		ContributionAmount: amount,
		MeterReading:       0,
		TokensConsumed:     tokensConsumed,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	require.NoError(t, db.Create(&contribution).Error)
	return contribution.ID
}

func storedTokensConsumed(t *testing.T, db *gorm.DB, id snowflake.ID) float64 {
	t.Helper()
	var value float64
	require.NoError(t, db.Raw(
		`SELECT tokens_consumed FROM user_contributions WHERE id = ?`, id,
	).Scan(&value).Error)
	return value
}

func TestRecalculateMeterDeltas(t *testing.T) {
	svc, db, node := setupReconcile(t)
	ctx := context.Background()
	user := node.Generate()

	// Three purchases: meter 5000 -> 5750 -> 6100. Stored values are junk.
	p1 := addPurchase(t, db, node, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 100, 250, 5000)
	p2 := addPurchase(t, db, node, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), 100, 250, 5750)
	p3 := addPurchase(t, db, node, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), 100, 250, 6100)
	c1 := addContribution(t, db, node, p1, user, 250, 999)
	c2 := addContribution(t, db, node, p2, user, 250, 999)
	c3 := addContribution(t, db, node, p3, user, 250, 999)

	summary, err := svc.RecalculateAllTokensConsumed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Scanned)
	assert.Equal(t, 3, summary.Updated)

	assert.Equal(t, 0.0, storedTokensConsumed(t, db, c1), "first purchase has no prior meter")
	assert.Equal(t, 750.0, storedTokensConsumed(t, db, c2))
	assert.Equal(t, 350.0, storedTokensConsumed(t, db, c3))
}

func TestRecalculateIdempotent(t *testing.T) {
	svc, db, node := setupReconcile(t)
	ctx := context.Background()
	user := node.Generate()

	p1 := addPurchase(t, db, node, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 100, 250, 5000)
	p2 := addPurchase(t, db, node, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), 100, 250, 5750)
	addContribution(t, db, node, p1, user, 250, 999)
	addContribution(t, db, node, p2, user, 250, 999)

	first, err := svc.RecalculateAllTokensConsumed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Updated)

	second, err := svc.RecalculateAllTokensConsumed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Scanned)
	assert.Equal(t, 0, second.Updated, "second pass must be a no-op")
}

func TestRecalculateClampsNegativeDelta(t *testing.T) {
	svc, db, node := setupReconcile(t)
	ctx := context.Background()
	user := node.Generate()

	// Meter rolls backwards between purchases, e.g. a replaced meter.
	p1 := addPurchase(t, db, node, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 100, 250, 5000)
	p2 := addPurchase(t, db, node, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), 100, 250, 4200)
	addContribution(t, db, node, p1, user, 250, 0)
	c2 := addContribution(t, db, node, p2, user, 250, 999)

	_, err := svc.RecalculateAllTokensConsumed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, storedTokensConsumed(t, db, c2))
}

func TestRecalculateSkipsUnfundedButKeepsMeterAdvance(t *testing.T) {
	svc, db, node := setupReconcile(t)
	ctx := context.Background()
	user := node.Generate()

	// Middle purchase has no contribution. The one after it still meters
	// against the middle purchase's reading.
	p1 := addPurchase(t, db, node, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 100, 250, 5000)
	addPurchase(t, db, node, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), 100, 250, 5750)
	p3 := addPurchase(t, db, node, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), 100, 250, 6100)
	addContribution(t, db, node, p1, user, 250, 0)
	c3 := addContribution(t, db, node, p3, user, 250, 0)

	summary, err := svc.RecalculateAllTokensConsumed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Scanned)

	assert.Equal(t, 350.0, storedTokensConsumed(t, db, c3))
}

func TestMemberBalancesFairShare(t *testing.T) {
	svc, db, node := setupReconcile(t)
	ctx := context.Background()
	alice := node.Generate()
	bob := node.Generate()

	// Purchase 1: 100 tokens for 250, funded by alice. First purchase, so her
	// effective consumption is 0 and the fair share is 0.
	p1 := addPurchase(t, db, node, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 100, 250, 5000)
	addContribution(t, db, node, p1, alice, 250, 0)

	// Purchase 2: 100 tokens for 200, funded by bob, 50 tokens consumed.
	// Fair share = (50 / 100) * 200 = 100.
	p2 := addPurchase(t, db, node, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), 100, 200, 5050)
	addContribution(t, db, node, p2, bob, 200, 50)

	balances, err := svc.MemberBalances(ctx)
	require.NoError(t, err)
	require.Len(t, balances, 2)

	assert.Equal(t, alice, balances[0].UserID)
	assert.Equal(t, 250.0, balances[0].Contributed)
	assert.Equal(t, 0.0, balances[0].FairShare)
	assert.Equal(t, 250.0, balances[0].Balance)

	assert.Equal(t, bob, balances[1].UserID)
	assert.Equal(t, 200.0, balances[1].Contributed)
	assert.InDelta(t, 100.0, balances[1].FairShare, 1e-9)
	assert.InDelta(t, 100.0, balances[1].Balance, 1e-9)

	global, err := svc.CalculateGlobalBalance(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 350.0, global, 1e-9)
}

func TestMemberBalancesZeroTokenPurchase(t *testing.T) {
	svc, db, node := setupReconcile(t)
	ctx := context.Background()
	user := node.Generate()

	// A zero-token purchase must not divide by zero.
	p1 := addPurchase(t, db, node, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 100, 250, 5000)
	addContribution(t, db, node, p1, user, 250, 0)
	p2 := addPurchase(t, db, node, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), 0, 100, 5100)
	addContribution(t, db, node, p2, user, 100, 100)

	balances, err := svc.MemberBalances(ctx)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, 0.0, balances[0].FairShare)
	assert.Equal(t, 350.0, balances[0].Balance)
}
