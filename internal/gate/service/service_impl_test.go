package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	authdomain "github.com/wattshare/wattshare/internal/auth/domain"
	"github.com/wattshare/wattshare/internal/cache"
	"github.com/wattshare/wattshare/internal/clock"
	"github.com/wattshare/wattshare/internal/config"
	contributiondomain "github.com/wattshare/wattshare/internal/contribution/domain"
	"github.com/wattshare/wattshare/internal/gate/domain"
	"github.com/wattshare/wattshare/internal/gate/repository"
	purchasedomain "github.com/wattshare/wattshare/internal/purchase/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupGate(t *testing.T) (domain.Service, *gorm.DB, *clock.FakeClock, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&purchasedomain.Purchase{}, &contributiondomain.Contribution{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:     db,
		Log:    zap.NewNop(),
		Repo:   repository.Provide(),
		Holder: config.NewStaticHouseholdConfigHolder(config.DefaultHouseholdConfig()),
		Cache:  cache.NewTTLCacheWithClock[string, domain.Status](clk),
	})
	return svc, db, clk, node
}

func seedPurchase(t *testing.T, db *gorm.DB, node *snowflake.Node, date time.Time, meter float64) snowflake.ID {
	t.Helper()
	purchase := purchasedomain.Purchase{
		ID:           node.Generate(),
		TotalTokens:  100,
		TotalPayment: 250,
		MeterReading: meter,
		PurchaseDate: date.UTC(),
		CreatedBy:    node.Generate(),
		CreatedAt:    date.UTC(),
		UpdatedAt:    date.UTC(),
	}
	if err := db.Create(&purchase).Error; err != nil {
		t.Fatalf("seed purchase: %v", err)
	}
	return purchase.ID
}

func seedContribution(t *testing.T, db *gorm.DB, node *snowflake.Node, purchaseID snowflake.ID, createdAt time.Time) snowflake.ID {
	t.Helper()
	contribution := contributiondomain.Contribution{
		ID:                 node.Generate(),
		PurchaseID:         purchaseID,
		UserID:             node.Generate(),
		ContributionAmount: 250,
		MeterReading:       1000,
		CreatedAt:          createdAt.UTC(),
		UpdatedAt:          createdAt.UTC(),
	}
	if err := db.Create(&contribution).Error; err != nil {
		t.Fatalf("seed contribution: %v", err)
	}
	return contribution.ID
}

func member() authdomain.Actor { return authdomain.Actor{Role: authdomain.RoleMember} }
func admin() authdomain.Actor  { return authdomain.Actor{Role: authdomain.RoleAdmin} }

func TestCanAcceptContributionOldestFirst(t *testing.T) {
	svc, db, _, node := setupGate(t)
	ctx := context.Background()

	oldest := seedPurchase(t, db, node, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 5000)
	newer := seedPurchase(t, db, node, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), 5750)

	decision, err := svc.CanAcceptContribution(ctx, newer, member())
	if err != nil {
		t.Fatalf("gate check: %v", err)
	}
	if decision.Allowed {
		t.Fatal("expected denial for newer purchase while an older one is unfunded")
	}
	if decision.ReasonCode != domain.ReasonSequentialContributionRequired {
		t.Fatalf("reason code = %s", decision.ReasonCode)
	}
	if decision.NextAvailablePurchaseID == nil || *decision.NextAvailablePurchaseID != oldest {
		t.Fatalf("next available = %v, want %s", decision.NextAvailablePurchaseID, oldest)
	}

	decision, err = svc.CanAcceptContribution(ctx, oldest, member())
	if err != nil {
		t.Fatalf("gate check: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("expected the oldest unfunded purchase to accept contributions, got %s", decision.ReasonCode)
	}
}

func TestCanAcceptContributionAdminBypass(t *testing.T) {
	svc, db, _, node := setupGate(t)
	ctx := context.Background()

	seedPurchase(t, db, node, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 5000)
	newer := seedPurchase(t, db, node, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), 5750)

	decision, err := svc.CanAcceptContribution(ctx, newer, admin())
	if err != nil {
		t.Fatalf("gate check: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("expected admin bypass, got %s", decision.ReasonCode)
	}
}

func TestCanAcceptContributionAlreadyFunded(t *testing.T) {
	svc, db, _, node := setupGate(t)
	ctx := context.Background()

	funded := seedPurchase(t, db, node, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 5000)
	seedContribution(t, db, node, funded, time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC))

	// Funded is funded for everyone, including admins.
	decision, err := svc.CanAcceptContribution(ctx, funded, admin())
	if err != nil {
		t.Fatalf("gate check: %v", err)
	}
	if decision.Allowed || decision.ReasonCode != domain.ReasonPurchaseAlreadyFunded {
		t.Fatalf("decision = %+v", decision)
	}
}

func TestCanAcceptContributionUnknownPurchase(t *testing.T) {
	svc, _, _, node := setupGate(t)

	_, err := svc.CanAcceptContribution(context.Background(), node.Generate(), member())
	if err != purchasedomain.ErrPurchaseNotFound {
		t.Fatalf("err = %v, want ErrPurchaseNotFound", err)
	}
}

func TestCanCreatePurchasePreviousUnfunded(t *testing.T) {
	svc, db, _, node := setupGate(t)
	ctx := context.Background()

	previous := seedPurchase(t, db, node, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 5000)
	newDate := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

	decision, err := svc.CanCreatePurchase(ctx, newDate, member())
	if err != nil {
		t.Fatalf("gate check: %v", err)
	}
	if decision.Allowed {
		t.Fatal("expected denial while the previous purchase is unfunded")
	}
	if decision.ReasonCode != domain.ReasonPreviousPurchaseUnfunded {
		t.Fatalf("reason code = %s", decision.ReasonCode)
	}
	if decision.BlockingPurchaseID == nil || *decision.BlockingPurchaseID != previous {
		t.Fatalf("blocking = %v, want %s", decision.BlockingPurchaseID, previous)
	}

	// Admin override and funded-previous both clear the gate.
	decision, err = svc.CanCreatePurchase(ctx, newDate, admin())
	if err != nil || !decision.Allowed {
		t.Fatalf("admin decision = %+v err = %v", decision, err)
	}

	seedContribution(t, db, node, previous, time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC))
	decision, err = svc.CanCreatePurchase(ctx, newDate, member())
	if err != nil || !decision.Allowed {
		t.Fatalf("funded-previous decision = %+v err = %v", decision, err)
	}
}

func TestCanCreateFirstPurchase(t *testing.T) {
	svc, _, _, _ := setupGate(t)

	decision, err := svc.CanCreatePurchase(context.Background(), time.Now().UTC(), member())
	if err != nil || !decision.Allowed {
		t.Fatalf("decision = %+v err = %v", decision, err)
	}
}

func TestCanDeleteContributionLatestOnly(t *testing.T) {
	svc, db, _, node := setupGate(t)
	ctx := context.Background()

	first := seedPurchase(t, db, node, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 5000)
	second := seedPurchase(t, db, node, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), 5750)
	older := seedContribution(t, db, node, first, time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC))
	latest := seedContribution(t, db, node, second, time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC))

	decision, err := svc.CanDeleteContribution(ctx, older)
	if err != nil {
		t.Fatalf("gate check: %v", err)
	}
	if decision.Allowed || decision.ReasonCode != domain.ReasonGlobalLatestContributionOnly {
		t.Fatalf("decision = %+v", decision)
	}

	decision, err = svc.CanDeleteContribution(ctx, latest)
	if err != nil {
		t.Fatalf("gate check: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("expected the latest contribution to be deletable, got %s", decision.ReasonCode)
	}
}

func TestCanDeleteContributionWouldStrandNewerPurchase(t *testing.T) {
	svc, db, _, node := setupGate(t)
	ctx := context.Background()

	first := seedPurchase(t, db, node, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 5000)
	unfunded := seedPurchase(t, db, node, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), 5750)
	latest := seedContribution(t, db, node, first, time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC))

	decision, err := svc.CanDeleteContribution(ctx, latest)
	if err != nil {
		t.Fatalf("gate check: %v", err)
	}
	if decision.Allowed || decision.ReasonCode != domain.ReasonPreventMultipleUnconsumedPurchases {
		t.Fatalf("decision = %+v", decision)
	}
	if decision.BlockingPurchaseID == nil || *decision.BlockingPurchaseID != unfunded {
		t.Fatalf("blocking = %v, want %s", decision.BlockingPurchaseID, unfunded)
	}
}

func TestStatusCacheExpiryAndInvalidation(t *testing.T) {
	svc, db, clk, node := setupGate(t)
	ctx := context.Background()

	seedPurchase(t, db, node, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 5000)

	status, err := svc.FindOldestPurchaseWithoutContribution(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.CountWithoutContribution != 1 {
		t.Fatalf("count = %d", status.CountWithoutContribution)
	}

	// A second unfunded purchase is invisible until the cache expires.
	seedPurchase(t, db, node, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), 5750)
	status, err = svc.FindOldestPurchaseWithoutContribution(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.CountWithoutContribution != 1 {
		t.Fatalf("expected cached count 1, got %d", status.CountWithoutContribution)
	}

	clk.Advance(6 * time.Second)
	status, err = svc.FindOldestPurchaseWithoutContribution(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.CountWithoutContribution != 2 {
		t.Fatalf("expected refreshed count 2, got %d", status.CountWithoutContribution)
	}

	seedPurchase(t, db, node, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), 6000)
	svc.InvalidateCache()
	status, err = svc.FindOldestPurchaseWithoutContribution(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.CountWithoutContribution != 3 {
		t.Fatalf("expected count 3 after invalidation, got %d", status.CountWithoutContribution)
	}
}

func TestStatusAllSatisfied(t *testing.T) {
	svc, db, _, node := setupGate(t)
	ctx := context.Background()

	purchase := seedPurchase(t, db, node, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 5000)
	seedContribution(t, db, node, purchase, time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC))

	status, err := svc.FindOldestPurchaseWithoutContribution(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.AllSatisfied || status.Purchase != nil {
		t.Fatalf("status = %+v", status)
	}
}
