package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/wattshare/wattshare/internal/audit/domain"
	auditrepository "github.com/wattshare/wattshare/internal/audit/repository"
	auditservice "github.com/wattshare/wattshare/internal/audit/service"
	authdomain "github.com/wattshare/wattshare/internal/auth/domain"
	chronologydomain "github.com/wattshare/wattshare/internal/chronology/domain"
	chronologyrepository "github.com/wattshare/wattshare/internal/chronology/repository"
	chronologyservice "github.com/wattshare/wattshare/internal/chronology/service"
	"github.com/wattshare/wattshare/internal/config"
	"github.com/wattshare/wattshare/internal/contribution/domain"
	"github.com/wattshare/wattshare/internal/contribution/repository"
	gatedomain "github.com/wattshare/wattshare/internal/gate/domain"
	gaterepository "github.com/wattshare/wattshare/internal/gate/repository"
	gateservice "github.com/wattshare/wattshare/internal/gate/service"
	meterreadingdomain "github.com/wattshare/wattshare/internal/meterreading/domain"
	purchasedomain "github.com/wattshare/wattshare/internal/purchase/domain"
	purchaserepository "github.com/wattshare/wattshare/internal/purchase/repository"
	reconcilerepository "github.com/wattshare/wattshare/internal/reconcile/repository"
	reconcileservice "github.com/wattshare/wattshare/internal/reconcile/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type contributionFixture struct {
	svc  domain.Service
	db   *gorm.DB
	node *snowflake.Node
}

func setupContribution(t *testing.T) contributionFixture {
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

	if err := db.AutoMigrate(
		&purchasedomain.Purchase{},
		&domain.Contribution{},
		&meterreadingdomain.MeterReading{},
		&auditdomain.AuditLog{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	log := zap.NewNop()
	holder := config.NewStaticHouseholdConfigHolder(config.DefaultHouseholdConfig())

	auditSvc := auditservice.NewService(auditservice.Params{
		DB: db, Log: log, GenID: node, Repo: auditrepository.Provide(),
	})
	gateSvc := gateservice.New(gateservice.Params{
		DB: db, Log: log, Repo: gaterepository.Provide(), Holder: holder,
	})
	chronoSvc := chronologyservice.New(chronologyservice.Params{
		Log: log, Repo: chronologyrepository.Provide(),
	})
	reconcileSvc := reconcileservice.New(reconcileservice.Params{
		DB: db, Log: log, Repo: reconcilerepository.Provide(),
	})

	svc := New(Params{
		DB:           db,
		Log:          log,
		GenID:        node,
		Repo:         repository.Provide(),
		PurchaseRepo: purchaserepository.Provide(),
		Gate:         gateSvc,
		Chronology:   chronoSvc,
		Reconcile:    reconcileSvc,
		Audit:        auditSvc,
	})

	return contributionFixture{svc: svc, db: db, node: node}
}

func (f contributionFixture) purchase(t *testing.T, date time.Time, meter float64) *purchasedomain.Purchase {
	t.Helper()
	purchase := purchasedomain.Purchase{
		ID:           f.node.Generate(),
		TotalTokens:  100,
		TotalPayment: 250,
		MeterReading: meter,
		PurchaseDate: date.UTC(),
		CreatedBy:    f.node.Generate(),
		CreatedAt:    date.UTC(),
		UpdatedAt:    date.UTC(),
	}
	if err := f.db.Create(&purchase).Error; err != nil {
		t.Fatalf("seed purchase: %v", err)
	}
	return &purchase
}

func memberActor(id snowflake.ID) authdomain.Actor {
	return authdomain.Actor{UserID: id, Role: authdomain.RoleMember}
}

func TestCreateContributionComputesTokensConsumed(t *testing.T) {
	f := setupContribution(t)
	ctx := context.Background()
	user := memberActor(f.node.Generate())

	first := f.purchase(t, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 5000)
	second := f.purchase(t, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), 5750)

	// First purchase: no prior purchase to meter against.
	c1, err := f.svc.Create(ctx, user, domain.CreateContributionRequest{
		PurchaseID:         first.ID.String(),
		ContributionAmount: 250,
		MeterReading:       5000,
	})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	if c1.TokensConsumed != 0 {
		t.Fatalf("first tokens consumed = %v, want 0", c1.TokensConsumed)
	}

	// Second purchase: delta against the first purchase's meter.
	c2, err := f.svc.Create(ctx, user, domain.CreateContributionRequest{
		PurchaseID:         second.ID.String(),
		ContributionAmount: 250,
		MeterReading:       5750,
	})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if c2.TokensConsumed != 750 {
		t.Fatalf("second tokens consumed = %v, want 750", c2.TokensConsumed)
	}
}

func TestCreateContributionSequentialDenied(t *testing.T) {
	f := setupContribution(t)
	ctx := context.Background()
	user := memberActor(f.node.Generate())

	oldest := f.purchase(t, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 5000)
	newer := f.purchase(t, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), 5750)

	_, err := f.svc.Create(ctx, user, domain.CreateContributionRequest{
		PurchaseID:         newer.ID.String(),
		ContributionAmount: 250,
		MeterReading:       5750,
	})
	var denied *gatedomain.DeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("err = %v, want gate denial", err)
	}
	if denied.Decision.ReasonCode != gatedomain.ReasonSequentialContributionRequired {
		t.Fatalf("reason code = %s", denied.Decision.ReasonCode)
	}
	if denied.Decision.NextAvailablePurchaseID == nil || *denied.Decision.NextAvailablePurchaseID != oldest.ID {
		t.Fatalf("next available = %v", denied.Decision.NextAvailablePurchaseID)
	}
}

func TestCreateContributionDuplicate(t *testing.T) {
	f := setupContribution(t)
	ctx := context.Background()
	user := memberActor(f.node.Generate())

	purchase := f.purchase(t, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 5000)

	if _, err := f.svc.Create(ctx, user, domain.CreateContributionRequest{
		PurchaseID:         purchase.ID.String(),
		ContributionAmount: 250,
		MeterReading:       5000,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := f.svc.Create(ctx, user, domain.CreateContributionRequest{
		PurchaseID:         purchase.ID.String(),
		ContributionAmount: 100,
		MeterReading:       5000,
	})
	if !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}

func TestCreateContributionMeterReadingMustMatchPurchase(t *testing.T) {
	f := setupContribution(t)
	ctx := context.Background()
	user := memberActor(f.node.Generate())

	purchase := f.purchase(t, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 5000)

	_, err := f.svc.Create(ctx, user, domain.CreateContributionRequest{
		PurchaseID:         purchase.ID.String(),
		ContributionAmount: 250,
		MeterReading:       4990,
	})
	var invalid *chronologydomain.ValidationError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want chronology violation", err)
	}
	if invalid.Result.SuggestedMinimum == nil || *invalid.Result.SuggestedMinimum != 5000 {
		t.Fatalf("suggested minimum = %v", invalid.Result.SuggestedMinimum)
	}
}

func TestDeleteContributionLatestOnly(t *testing.T) {
	f := setupContribution(t)
	ctx := context.Background()
	user := memberActor(f.node.Generate())

	first := f.purchase(t, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 5000)
	second := f.purchase(t, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), 5750)

	c1, err := f.svc.Create(ctx, user, domain.CreateContributionRequest{
		PurchaseID:         first.ID.String(),
		ContributionAmount: 250,
		MeterReading:       5000,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	c2, err := f.svc.Create(ctx, user, domain.CreateContributionRequest{
		PurchaseID:         second.ID.String(),
		ContributionAmount: 250,
		MeterReading:       5750,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = f.svc.Delete(ctx, user, c1.ID.String())
	var denied *gatedomain.DeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("err = %v, want gate denial", err)
	}
	if denied.Decision.ReasonCode != gatedomain.ReasonGlobalLatestContributionOnly {
		t.Fatalf("reason code = %s", denied.Decision.ReasonCode)
	}

	if err := f.svc.Delete(ctx, user, c2.ID.String()); err != nil {
		t.Fatalf("delete latest: %v", err)
	}
	if _, err := f.svc.Get(ctx, c2.ID.String()); !errors.Is(err, domain.ErrContributionNotFound) {
		t.Fatalf("err = %v, want ErrContributionNotFound", err)
	}
}

func TestContributionAuditTrail(t *testing.T) {
	f := setupContribution(t)
	ctx := context.Background()
	user := memberActor(f.node.Generate())

	purchase := f.purchase(t, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 5000)
	if _, err := f.svc.Create(ctx, user, domain.CreateContributionRequest{
		PurchaseID:         purchase.ID.String(),
		ContributionAmount: 250,
		MeterReading:       5000,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	var count int64
	if err := f.db.Model(&auditdomain.AuditLog{}).
		Where("action = ?", "contribution.created").
		Count(&count).Error; err != nil {
		t.Fatalf("count audit rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("audit rows = %d, want 1", count)
	}
}
