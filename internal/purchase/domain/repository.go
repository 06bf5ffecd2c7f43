package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Cursor    *Cursor
	Limit     int
}

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, purchase *Purchase) error
	Update(ctx context.Context, db *gorm.DB, purchase *Purchase) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Purchase, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Purchase, error)
	// DeleteDependents removes the contribution and receipt rows that hang
	// off a purchase, ahead of deleting the purchase itself.
	DeleteDependents(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) error
	// SyncContributionMeterReading keeps a linked contribution's meter
	// reading equal to the purchase's after an edit.
	SyncContributionMeterReading(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID, reading float64) error
}
