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
	"github.com/wattshare/wattshare/internal/backup/domain"
	"github.com/wattshare/wattshare/internal/backup/repository"
	"github.com/wattshare/wattshare/internal/config"
	contributiondomain "github.com/wattshare/wattshare/internal/contribution/domain"
	gaterepository "github.com/wattshare/wattshare/internal/gate/repository"
	gateservice "github.com/wattshare/wattshare/internal/gate/service"
	meterreadingdomain "github.com/wattshare/wattshare/internal/meterreading/domain"
	purchasedomain "github.com/wattshare/wattshare/internal/purchase/domain"
	receiptdomain "github.com/wattshare/wattshare/internal/receipt/domain"
	reconcilerepository "github.com/wattshare/wattshare/internal/reconcile/repository"
	reconcileservice "github.com/wattshare/wattshare/internal/reconcile/service"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupBackup(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
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
		&authdomain.User{},
		&authdomain.Session{},
		&purchasedomain.Purchase{},
		&contributiondomain.Contribution{},
		&meterreadingdomain.MeterReading{},
		&receiptdomain.Receipt{},
		&auditdomain.AuditLog{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	log := zap.NewNop()
	auditSvc := auditservice.NewService(auditservice.Params{
		DB: db, Log: log, GenID: node, Repo: auditrepository.Provide(),
	})
	gateSvc := gateservice.New(gateservice.Params{
		DB: db, Log: log, Repo: gaterepository.Provide(),
		Holder: config.NewStaticHouseholdConfigHolder(config.DefaultHouseholdConfig()),
	})
	reconcileSvc := reconcileservice.New(reconcileservice.Params{
		DB: db, Log: log, Repo: reconcilerepository.Provide(),
	})

	svc := New(Params{
		DB:        db,
		Log:       log,
		Repo:      repository.Provide(),
		Reconcile: reconcileSvc,
		Gate:      gateSvc,
		Audit:     auditSvc,
	})
	return svc, db, node
}

func seedHousehold(t *testing.T, db *gorm.DB, node *snowflake.Node) {
	t.Helper()
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	hash := "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA"

	user := authdomain.User{
		ID: node.Generate(), Email: "alice@example.com", DisplayName: "Alice",
		PasswordHash: &hash, Role: authdomain.RoleAdmin,
		Permissions: datatypes.JSONMap{}, Active: true,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	p1 := purchasedomain.Purchase{
		ID: node.Generate(), TotalTokens: 100, TotalPayment: 250, MeterReading: 5000,
		PurchaseDate: now, CreatedBy: user.ID, CreatedAt: now, UpdatedAt: now,
	}
	p2 := purchasedomain.Purchase{
		ID: node.Generate(), TotalTokens: 100, TotalPayment: 250, MeterReading: 5750,
		PurchaseDate: now.AddDate(0, 1, 0), CreatedBy: user.ID,
		CreatedAt: now.AddDate(0, 1, 0), UpdatedAt: now.AddDate(0, 1, 0),
	}
	if err := db.Create(&p1).Error; err != nil {
		t.Fatalf("seed purchase: %v", err)
	}
	if err := db.Create(&p2).Error; err != nil {
		t.Fatalf("seed purchase: %v", err)
	}

	c1 := contributiondomain.Contribution{
		ID: node.Generate(), PurchaseID: p1.ID, UserID: user.ID,
		ContributionAmount: 250, MeterReading: 5000, TokensConsumed: 0,
		CreatedAt: now, UpdatedAt: now,
	}
	c2 := contributiondomain.Contribution{
		ID: node.Generate(), PurchaseID: p2.ID, UserID: user.ID,
		ContributionAmount: 250, MeterReading: 5750, TokensConsumed: 750,
		CreatedAt: now.AddDate(0, 1, 0), UpdatedAt: now.AddDate(0, 1, 0),
	}
	if err := db.Create(&c1).Error; err != nil {
		t.Fatalf("seed contribution: %v", err)
	}
	if err := db.Create(&c2).Error; err != nil {
		t.Fatalf("seed contribution: %v", err)
	}

	reading := meterreadingdomain.MeterReading{
		ID: node.Generate(), UserID: user.ID, Reading: 5800,
		ReadingDate: now.AddDate(0, 1, 5), CreatedAt: now, UpdatedAt: now,
	}
	if err := db.Create(&reading).Error; err != nil {
		t.Fatalf("seed reading: %v", err)
	}

	receipt := receiptdomain.Receipt{
		ID: node.Generate(), PurchaseID: p1.ID, FileName: "eskom.pdf",
		MimeType: "application/pdf", TotalAmount: 250, UploadedBy: user.ID, CreatedAt: now,
	}
	if err := db.Create(&receipt).Error; err != nil {
		t.Fatalf("seed receipt: %v", err)
	}
}

func TestExportEncodeDecodeRestoreRoundTrip(t *testing.T) {
	svc, db, node := setupBackup(t)
	ctx := context.Background()
	seedHousehold(t, db, node)

	doc, err := svc.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if doc.Metadata.Type != domain.TypeFull {
		t.Fatalf("type = %q", doc.Metadata.Type)
	}
	if doc.Metadata.RecordCounts["tokenPurchases"] != 2 {
		t.Fatalf("record counts = %v", doc.Metadata.RecordCounts)
	}

	for _, compress := range []bool{false, true} {
		raw, err := svc.Encode(doc, domain.ExportOptions{Compress: compress})
		if err != nil {
			t.Fatalf("encode compress=%v: %v", compress, err)
		}
		decoded, err := svc.Decode(raw)
		if err != nil {
			t.Fatalf("decode compress=%v: %v", compress, err)
		}
		if decoded.Metadata.ID != doc.Metadata.ID {
			t.Fatalf("decoded id = %q, want %q", decoded.Metadata.ID, doc.Metadata.ID)
		}
		if len(decoded.TokenPurchases) != 2 || len(decoded.UserContributions) != 2 {
			t.Fatalf("decoded counts: %d purchases, %d contributions",
				len(decoded.TokenPurchases), len(decoded.UserContributions))
		}
	}

	// Dirty the live data, then restore the snapshot over it.
	if err := db.Exec(`UPDATE user_contributions SET tokens_consumed = 999`).Error; err != nil {
		t.Fatalf("dirty data: %v", err)
	}
	if err := db.Exec(`DELETE FROM receipts`).Error; err != nil {
		t.Fatalf("dirty data: %v", err)
	}

	if err := svc.Restore(ctx, doc); err != nil {
		t.Fatalf("restore: %v", err)
	}

	after, err := svc.Export(ctx)
	if err != nil {
		t.Fatalf("export after restore: %v", err)
	}
	if len(after.TokenPurchases) != 2 || len(after.ReceiptData) != 1 {
		t.Fatalf("after restore: %d purchases, %d receipts",
			len(after.TokenPurchases), len(after.ReceiptData))
	}

	// Restore recomputes consumption from the meter deltas.
	var consumed []float64
	if err := db.Raw(
		`SELECT tokens_consumed FROM user_contributions ORDER BY tokens_consumed ASC`,
	).Scan(&consumed).Error; err != nil {
		t.Fatalf("read contributions: %v", err)
	}
	if len(consumed) != 2 || consumed[0] != 0 || consumed[1] != 750 {
		t.Fatalf("tokens consumed after restore = %v", consumed)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	svc, _, _ := setupBackup(t)

	_, err := svc.Decode([]byte("definitely not a backup"))
	if !errors.Is(err, domain.ErrInvalidDocument) {
		t.Fatalf("err = %v, want ErrInvalidDocument", err)
	}
}

func TestRestoreRejectsUnknownType(t *testing.T) {
	svc, _, _ := setupBackup(t)
	ctx := context.Background()

	if err := svc.Restore(ctx, nil); !errors.Is(err, domain.ErrInvalidDocument) {
		t.Fatalf("err = %v, want ErrInvalidDocument", err)
	}

	doc := &domain.Document{Metadata: domain.Metadata{Type: "incremental"}}
	if err := svc.Restore(ctx, doc); !errors.Is(err, domain.ErrInvalidType) {
		t.Fatalf("err = %v, want ErrInvalidType", err)
	}
}

func TestRestoreRejectsBadSnapshotID(t *testing.T) {
	svc, _, _ := setupBackup(t)

	doc := &domain.Document{
		Metadata: domain.Metadata{Type: domain.TypeFull},
		Users:    []domain.UserSnapshot{{ID: "not-an-id"}},
	}
	if err := svc.Restore(context.Background(), doc); !errors.Is(err, domain.ErrInvalidDocument) {
		t.Fatalf("err = %v, want ErrInvalidDocument", err)
	}
}
