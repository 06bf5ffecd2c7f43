package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/wattshare/wattshare/internal/purchase/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, purchase *domain.Purchase) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO token_purchases (
			id, total_tokens, total_payment, meter_reading, purchase_date,
			is_emergency, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		purchase.ID,
		purchase.TotalTokens,
		purchase.TotalPayment,
		purchase.MeterReading,
		purchase.PurchaseDate,
		purchase.IsEmergency,
		purchase.CreatedBy,
		purchase.CreatedAt,
		purchase.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, purchase *domain.Purchase) error {
	purchase.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Exec(
		`UPDATE token_purchases SET
			total_tokens = ?, total_payment = ?, meter_reading = ?,
			purchase_date = ?, is_emergency = ?, updated_at = ?
		 WHERE id = ?`,
		purchase.TotalTokens,
		purchase.TotalPayment,
		purchase.MeterReading,
		purchase.PurchaseDate,
		purchase.IsEmergency,
		purchase.UpdatedAt,
		purchase.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM token_purchases WHERE id = ?`, id,
	).Error
}

func (r *repo) DeleteDependents(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) error {
	if err := db.WithContext(ctx).Exec(
		`DELETE FROM receipts WHERE purchase_id = ?`, purchaseID,
	).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Exec(
		`DELETE FROM user_contributions WHERE purchase_id = ?`, purchaseID,
	).Error
}

func (r *repo) SyncContributionMeterReading(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID, reading float64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE user_contributions SET meter_reading = ?, updated_at = ? WHERE purchase_id = ?`,
		reading,
		time.Now().UTC(),
		purchaseID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Purchase, error) {
	var purchase domain.Purchase
	err := db.WithContext(ctx).Where("id = ?", id).First(&purchase).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPurchaseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Purchase, error) {
	var purchases []*domain.Purchase
	stmt := db.WithContext(ctx).Model(&domain.Purchase{})

	if filter.StartDate != nil {
		stmt = stmt.Where("purchase_date >= ?", filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		stmt = stmt.Where("purchase_date <= ?", filter.EndDate.UTC())
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&purchases).Error; err != nil {
		return nil, err
	}
	return purchases, nil
}
