package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/wattshare/wattshare/internal/reconcile/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) PurchasesWithContribution(ctx context.Context, db *gorm.DB) ([]domain.PurchaseRow, error) {
	var rows []domain.PurchaseRow
	err := db.WithContext(ctx).Raw(
		`SELECT
			tp.id AS purchase_id,
			tp.purchase_date,
			tp.total_tokens,
			tp.total_payment,
			tp.meter_reading,
			uc.id AS contribution_id,
			uc.user_id,
			uc.contribution_amount,
			uc.tokens_consumed
		 FROM token_purchases tp
		 LEFT JOIN user_contributions uc ON uc.purchase_id = tp.id
		 ORDER BY tp.purchase_date ASC, tp.id ASC`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) UpdateTokensConsumed(ctx context.Context, db *gorm.DB, contributionID snowflake.ID, value float64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE user_contributions SET tokens_consumed = ?, updated_at = ? WHERE id = ?`,
		value,
		time.Now().UTC(),
		contributionID,
	).Error
}
