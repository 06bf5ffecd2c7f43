package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	contributiondomain "github.com/wattshare/wattshare/internal/contribution/domain"
	"github.com/wattshare/wattshare/internal/gate/domain"
	purchasedomain "github.com/wattshare/wattshare/internal/purchase/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) PurchasesWithoutContribution(ctx context.Context, db *gorm.DB) ([]*purchasedomain.Purchase, error) {
	var purchases []*purchasedomain.Purchase
	err := db.WithContext(ctx).Raw(
		`SELECT tp.*
		 FROM token_purchases tp
		 LEFT JOIN user_contributions uc ON uc.purchase_id = tp.id
		 WHERE uc.id IS NULL
		 ORDER BY tp.purchase_date ASC, tp.id ASC`,
	).Scan(&purchases).Error
	if err != nil {
		return nil, err
	}
	return purchases, nil
}

func (r *repo) HasContribution(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&contributiondomain.Contribution{}).
		Where("purchase_id = ?", purchaseID).
		Count(&count).Error
	return count > 0, err
}

func (r *repo) PurchaseExists(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&purchasedomain.Purchase{}).
		Where("id = ?", purchaseID).
		Count(&count).Error
	return count > 0, err
}

func (r *repo) MostRecentPurchaseBefore(ctx context.Context, db *gorm.DB, date time.Time) (*purchasedomain.Purchase, error) {
	var purchase purchasedomain.Purchase
	err := db.WithContext(ctx).
		Where("purchase_date < ?", date.UTC()).
		Order("purchase_date DESC, id DESC").
		First(&purchase).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *repo) LatestContribution(ctx context.Context, db *gorm.DB) (*contributiondomain.Contribution, error) {
	var contribution contributiondomain.Contribution
	err := db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		First(&contribution).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &contribution, nil
}

func (r *repo) LatestPurchase(ctx context.Context, db *gorm.DB) (*purchasedomain.Purchase, error) {
	var purchase purchasedomain.Purchase
	err := db.WithContext(ctx).
		Order("purchase_date DESC, id DESC").
		First(&purchase).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}
