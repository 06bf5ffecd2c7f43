package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	// RecalculateAllTokensConsumed rewrites every contribution's
	// tokens_consumed from the purchase meter deltas. Idempotent.
	RecalculateAllTokensConsumed(ctx context.Context) (Summary, error)
	// RecalculateWithDB is the same pass against a caller-supplied handle,
	// for running inside a transaction.
	RecalculateWithDB(ctx context.Context, db *gorm.DB) (Summary, error)
	// CalculateGlobalBalance returns total contributions minus total fair
	// shares across the whole household.
	CalculateGlobalBalance(ctx context.Context) (float64, error)
	// MemberBalances buckets the same pass per member.
	MemberBalances(ctx context.Context) ([]MemberBalance, error)
}

type Repository interface {
	// PurchasesWithContribution returns every purchase with its optional
	// contribution, ordered by purchase_date ascending.
	PurchasesWithContribution(ctx context.Context, db *gorm.DB) ([]PurchaseRow, error)
	UpdateTokensConsumed(ctx context.Context, db *gorm.DB, contributionID snowflake.ID, value float64) error
}
