package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/wattshare/wattshare/internal/chronology/domain"
	"github.com/wattshare/wattshare/internal/chronology/repository"
	contributiondomain "github.com/wattshare/wattshare/internal/contribution/domain"
	meterreadingdomain "github.com/wattshare/wattshare/internal/meterreading/domain"
	purchasedomain "github.com/wattshare/wattshare/internal/purchase/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupChronology(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
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
		&contributiondomain.Contribution{},
		&meterreadingdomain.MeterReading{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	svc := New(Params{Log: zap.NewNop(), Repo: repository.Provide()})
	return svc, db, node
}

func chronoPurchase(t *testing.T, db *gorm.DB, node *snowflake.Node, date time.Time, meter float64) snowflake.ID {
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

func chronoReading(t *testing.T, db *gorm.DB, node *snowflake.Node, date time.Time, reading float64) snowflake.ID {
	t.Helper()
	row := meterreadingdomain.MeterReading{
		ID:          node.Generate(),
		UserID:      node.Generate(),
		Reading:     reading,
		ReadingDate: date.UTC(),
		CreatedAt:   date.UTC(),
		UpdatedAt:   date.UTC(),
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("seed meter reading: %v", err)
	}
	return row.ID
}

func TestValidateChronologyEmptyTimeline(t *testing.T) {
	svc, db, _ := setupChronology(t)

	result, err := svc.ValidateChronology(context.Background(), db, 100, time.Now().UTC(), nil)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !result.Valid {
		t.Fatalf("result = %+v", result)
	}
}

func TestValidateChronologyAgainstMergedTimeline(t *testing.T) {
	svc, db, node := setupChronology(t)
	ctx := context.Background()

	// Purchase on Jan 10 at 5000, standalone reading on Jan 20 at 5100.
	chronoPurchase(t, db, node, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 5000)
	chronoReading(t, db, node, time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC), 5100)

	// A Feb reading below the Jan 20 event is rejected and the conflict is
	// the standalone reading, not the purchase.
	result, err := svc.ValidateChronology(ctx, db, 5050, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), nil)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.Valid {
		t.Fatal("expected rejection below the last event")
	}
	if result.SuggestedMinimum == nil || *result.SuggestedMinimum != 5100 {
		t.Fatalf("suggested minimum = %v", result.SuggestedMinimum)
	}
	if result.Conflict == nil || result.Conflict.Source != domain.SourceMeterReading {
		t.Fatalf("conflict = %+v", result.Conflict)
	}

	// Equal to the last reading is fine.
	result, err = svc.ValidateChronology(ctx, db, 5100, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), nil)
	if err != nil || !result.Valid {
		t.Fatalf("result = %+v err = %v", result, err)
	}
}

func TestValidateChronologyExclusionForEdits(t *testing.T) {
	svc, db, node := setupChronology(t)
	ctx := context.Background()

	readingID := chronoReading(t, db, node, time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC), 5100)

	// Moving the reading itself down must not conflict with its own old row.
	exclude := &domain.Exclusion{Source: domain.SourceMeterReading, RecordID: readingID}
	result, err := svc.ValidateChronology(ctx, db, 5000, time.Date(2026, 1, 21, 0, 0, 0, 0, time.UTC), exclude)
	if err != nil || !result.Valid {
		t.Fatalf("result = %+v err = %v", result, err)
	}

	// Without the exclusion it conflicts.
	result, err = svc.ValidateChronology(ctx, db, 5000, time.Date(2026, 1, 21, 0, 0, 0, 0, time.UTC), nil)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.Valid {
		t.Fatal("expected self-conflict without exclusion")
	}
}

func TestValidateForward(t *testing.T) {
	svc, db, node := setupChronology(t)
	ctx := context.Background()

	chronoReading(t, db, node, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), 5200)

	// Backdated reading above the later event is rejected.
	result, err := svc.ValidateForward(ctx, db, 5300, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), nil)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.Valid {
		t.Fatal("expected rejection above a later reading")
	}
	if result.Conflict == nil || result.Conflict.Reading != 5200 {
		t.Fatalf("conflict = %+v", result.Conflict)
	}

	result, err = svc.ValidateForward(ctx, db, 5150, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), nil)
	if err != nil || !result.Valid {
		t.Fatalf("result = %+v err = %v", result, err)
	}
}

func TestValidateContributionMeterReadingExactMatch(t *testing.T) {
	svc, db, node := setupChronology(t)
	ctx := context.Background()

	purchaseID := chronoPurchase(t, db, node, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 5000)

	result, err := svc.ValidateContributionMeterReading(ctx, db, 5000, purchaseID)
	if err != nil || !result.Valid {
		t.Fatalf("result = %+v err = %v", result, err)
	}

	result, err = svc.ValidateContributionMeterReading(ctx, db, 4999, purchaseID)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.Valid {
		t.Fatal("expected mismatch rejection")
	}
	if result.SuggestedMinimum == nil || *result.SuggestedMinimum != 5000 {
		t.Fatalf("suggested minimum = %v", result.SuggestedMinimum)
	}
}

func TestValidateContributionMeterReadingUnknownPurchase(t *testing.T) {
	svc, db, node := setupChronology(t)

	_, err := svc.ValidateContributionMeterReading(context.Background(), db, 5000, node.Generate())
	if err != domain.ErrPurchaseNotFound {
		t.Fatalf("err = %v, want ErrPurchaseNotFound", err)
	}
}
