package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/wattshare/wattshare/internal/contribution/domain"
	"github.com/wattshare/wattshare/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, dbh *gorm.DB, contribution *domain.Contribution) error {
	err := dbh.WithContext(ctx).Exec(
		`INSERT INTO user_contributions (
			id, purchase_id, user_id, contribution_amount, meter_reading,
			tokens_consumed, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		contribution.ID,
		contribution.PurchaseID,
		contribution.UserID,
		contribution.ContributionAmount,
		contribution.MeterReading,
		contribution.TokensConsumed,
		contribution.CreatedAt,
		contribution.UpdatedAt,
	).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrDuplicate
	}
	return err
}

func (r *repo) Update(ctx context.Context, dbh *gorm.DB, contribution *domain.Contribution) error {
	contribution.UpdatedAt = time.Now().UTC()
	return dbh.WithContext(ctx).Exec(
		`UPDATE user_contributions SET
			contribution_amount = ?, meter_reading = ?, tokens_consumed = ?, updated_at = ?
		 WHERE id = ?`,
		contribution.ContributionAmount,
		contribution.MeterReading,
		contribution.TokensConsumed,
		contribution.UpdatedAt,
		contribution.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, dbh *gorm.DB, id snowflake.ID) error {
	return dbh.WithContext(ctx).Exec(
		`DELETE FROM user_contributions WHERE id = ?`, id,
	).Error
}

func (r *repo) FindByID(ctx context.Context, dbh *gorm.DB, id snowflake.ID) (*domain.Contribution, error) {
	var contribution domain.Contribution
	err := dbh.WithContext(ctx).Where("id = ?", id).First(&contribution).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrContributionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &contribution, nil
}

func (r *repo) FindByPurchaseID(ctx context.Context, dbh *gorm.DB, purchaseID snowflake.ID) (*domain.Contribution, error) {
	var contribution domain.Contribution
	err := dbh.WithContext(ctx).Where("purchase_id = ?", purchaseID).First(&contribution).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrContributionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &contribution, nil
}

func (r *repo) List(ctx context.Context, dbh *gorm.DB, filter domain.ListFilter) ([]*domain.Contribution, error) {
	var contributions []*domain.Contribution
	stmt := dbh.WithContext(ctx).Model(&domain.Contribution{})

	if filter.UserID != 0 {
		stmt = stmt.Where("user_id = ?", filter.UserID)
	}
	if filter.StartDate != nil {
		stmt = stmt.Where("created_at >= ?", filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		stmt = stmt.Where("created_at <= ?", filter.EndDate.UTC())
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

	if err := stmt.Find(&contributions).Error; err != nil {
		return nil, err
	}
	return contributions, nil
}

func (r *repo) PreviousMeterReading(ctx context.Context, dbh *gorm.DB, before time.Time) (float64, bool, error) {
	var row struct {
		MeterReading float64 `gorm:"column:meter_reading"`
	}
	err := dbh.WithContext(ctx).Raw(
		`SELECT meter_reading
		 FROM token_purchases
		 WHERE purchase_date < ?
		 ORDER BY purchase_date DESC, id DESC
		 LIMIT 1`,
		before.UTC(),
	).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return row.MeterReading, true, nil
}
