package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	UserID    snowflake.ID
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
	Insert(ctx context.Context, db *gorm.DB, contribution *Contribution) error
	Update(ctx context.Context, db *gorm.DB, contribution *Contribution) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Contribution, error)
	FindByPurchaseID(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) (*Contribution, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Contribution, error)
	// PreviousMeterReading returns the meter reading of the most recent
	// purchase dated strictly before the given date, or false when none.
	PreviousMeterReading(ctx context.Context, db *gorm.DB, before time.Time) (float64, bool, error)
}
