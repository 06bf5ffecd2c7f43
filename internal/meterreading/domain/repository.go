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
	Insert(ctx context.Context, db *gorm.DB, reading *MeterReading) error
	Update(ctx context.Context, db *gorm.DB, reading *MeterReading) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*MeterReading, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*MeterReading, error)
}
