package domain

import (
	"context"

	authdomain "github.com/wattshare/wattshare/internal/auth/domain"
	contributiondomain "github.com/wattshare/wattshare/internal/contribution/domain"
	meterreadingdomain "github.com/wattshare/wattshare/internal/meterreading/domain"
	purchasedomain "github.com/wattshare/wattshare/internal/purchase/domain"
	receiptdomain "github.com/wattshare/wattshare/internal/receipt/domain"
	"gorm.io/gorm"
)

type Repository interface {
	LoadUsers(ctx context.Context, db *gorm.DB) ([]authdomain.User, error)
	LoadSessions(ctx context.Context, db *gorm.DB) ([]authdomain.Session, error)
	LoadPurchases(ctx context.Context, db *gorm.DB) ([]purchasedomain.Purchase, error)
	LoadContributions(ctx context.Context, db *gorm.DB) ([]contributiondomain.Contribution, error)
	LoadMeterReadings(ctx context.Context, db *gorm.DB) ([]meterreadingdomain.MeterReading, error)
	LoadReceipts(ctx context.Context, db *gorm.DB) ([]receiptdomain.Receipt, error)

	// WipeManagedTables clears every table the backup document covers, in
	// dependency order.
	WipeManagedTables(ctx context.Context, db *gorm.DB) error

	InsertUsers(ctx context.Context, db *gorm.DB, rows []authdomain.User) error
	InsertSessions(ctx context.Context, db *gorm.DB, rows []authdomain.Session) error
	InsertPurchases(ctx context.Context, db *gorm.DB, rows []purchasedomain.Purchase) error
	InsertContributions(ctx context.Context, db *gorm.DB, rows []contributiondomain.Contribution) error
	InsertMeterReadings(ctx context.Context, db *gorm.DB, rows []meterreadingdomain.MeterReading) error
	InsertReceipts(ctx context.Context, db *gorm.DB, rows []receiptdomain.Receipt) error
}
