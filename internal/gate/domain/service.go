package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/wattshare/wattshare/internal/auth/domain"
	contributiondomain "github.com/wattshare/wattshare/internal/contribution/domain"
	purchasedomain "github.com/wattshare/wattshare/internal/purchase/domain"
	"gorm.io/gorm"
)

type Service interface {
	FindOldestPurchaseWithoutContribution(ctx context.Context) (Status, error)
	CanAcceptContribution(ctx context.Context, purchaseID snowflake.ID, actor authdomain.Actor) (Decision, error)
	CanCreatePurchase(ctx context.Context, newPurchaseDate time.Time, actor authdomain.Actor) (Decision, error)
	CanDeleteContribution(ctx context.Context, contributionID snowflake.ID) (Decision, error)
	// InvalidateCache drops the cached queue head. Every purchase or
	// contribution mutation must call it.
	InvalidateCache()
}

type Repository interface {
	// PurchasesWithoutContribution lists unfunded purchases ordered by
	// purchase_date ascending.
	PurchasesWithoutContribution(ctx context.Context, db *gorm.DB) ([]*purchasedomain.Purchase, error)
	HasContribution(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) (bool, error)
	PurchaseExists(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) (bool, error)
	// MostRecentPurchaseBefore returns the latest purchase dated strictly
	// before the given date, or nil when none.
	MostRecentPurchaseBefore(ctx context.Context, db *gorm.DB, date time.Time) (*purchasedomain.Purchase, error)
	// LatestContribution returns the newest contribution by created_at, or
	// nil when none.
	LatestContribution(ctx context.Context, db *gorm.DB) (*contributiondomain.Contribution, error)
	// LatestPurchase returns the newest purchase by purchase_date, or nil
	// when none.
	LatestPurchase(ctx context.Context, db *gorm.DB) (*purchasedomain.Purchase, error)
}
