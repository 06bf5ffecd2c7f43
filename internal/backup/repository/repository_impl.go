package repository

import (
	"context"

	authdomain "github.com/wattshare/wattshare/internal/auth/domain"
	"github.com/wattshare/wattshare/internal/backup/domain"
	contributiondomain "github.com/wattshare/wattshare/internal/contribution/domain"
	meterreadingdomain "github.com/wattshare/wattshare/internal/meterreading/domain"
	purchasedomain "github.com/wattshare/wattshare/internal/purchase/domain"
	receiptdomain "github.com/wattshare/wattshare/internal/receipt/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) LoadUsers(ctx context.Context, db *gorm.DB) ([]authdomain.User, error) {
	var rows []authdomain.User
	err := db.WithContext(ctx).Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *repo) LoadSessions(ctx context.Context, db *gorm.DB) ([]authdomain.Session, error) {
	var rows []authdomain.Session
	err := db.WithContext(ctx).Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *repo) LoadPurchases(ctx context.Context, db *gorm.DB) ([]purchasedomain.Purchase, error) {
	var rows []purchasedomain.Purchase
	err := db.WithContext(ctx).Order("purchase_date ASC, id ASC").Find(&rows).Error
	return rows, err
}

func (r *repo) LoadContributions(ctx context.Context, db *gorm.DB) ([]contributiondomain.Contribution, error) {
	var rows []contributiondomain.Contribution
	err := db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&rows).Error
	return rows, err
}

func (r *repo) LoadMeterReadings(ctx context.Context, db *gorm.DB) ([]meterreadingdomain.MeterReading, error) {
	var rows []meterreadingdomain.MeterReading
	err := db.WithContext(ctx).Order("reading_date ASC, id ASC").Find(&rows).Error
	return rows, err
}

func (r *repo) LoadReceipts(ctx context.Context, db *gorm.DB) ([]receiptdomain.Receipt, error) {
	var rows []receiptdomain.Receipt
	err := db.WithContext(ctx).Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *repo) WipeManagedTables(ctx context.Context, db *gorm.DB) error {
	tables := []string{
		"receipts",
		"user_contributions",
		"meter_readings",
		"token_purchases",
		"sessions",
		"users",
	}
	for _, table := range tables {
		if err := db.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) InsertUsers(ctx context.Context, db *gorm.DB, rows []authdomain.User) error {
	return insertAll(ctx, db, rows)
}

func (r *repo) InsertSessions(ctx context.Context, db *gorm.DB, rows []authdomain.Session) error {
	return insertAll(ctx, db, rows)
}

func (r *repo) InsertPurchases(ctx context.Context, db *gorm.DB, rows []purchasedomain.Purchase) error {
	return insertAll(ctx, db, rows)
}

func (r *repo) InsertContributions(ctx context.Context, db *gorm.DB, rows []contributiondomain.Contribution) error {
	return insertAll(ctx, db, rows)
}

func (r *repo) InsertMeterReadings(ctx context.Context, db *gorm.DB, rows []meterreadingdomain.MeterReading) error {
	return insertAll(ctx, db, rows)
}

func (r *repo) InsertReceipts(ctx context.Context, db *gorm.DB, rows []receiptdomain.Receipt) error {
	return insertAll(ctx, db, rows)
}

func insertAll[T any](ctx context.Context, db *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(rows, 200).Error
}
