package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	// FindLastReadingBefore returns the most recent event dated at or
	// before the given date, or nil when the timeline is empty.
	FindLastReadingBefore(ctx context.Context, db *gorm.DB, date time.Time, exclude *Exclusion) (*ReadingEvent, error)
	// ValidateChronology checks a new reading against the last event at or
	// before its date.
	ValidateChronology(ctx context.Context, db *gorm.DB, newReading float64, date time.Time, exclude *Exclusion) (Result, error)
	// ValidateContributionMeterReading checks the exact-match rule against
	// the parent purchase.
	ValidateContributionMeterReading(ctx context.Context, db *gorm.DB, reading float64, purchaseID snowflake.ID) (Result, error)
	// ValidateForward checks that an edited reading does not exceed any
	// strictly later event.
	ValidateForward(ctx context.Context, db *gorm.DB, newReading float64, date time.Time, exclude *Exclusion) (Result, error)
}

type Repository interface {
	// LastEventBefore returns the latest event with date <= the given date.
	LastEventBefore(ctx context.Context, db *gorm.DB, date time.Time, exclude *Exclusion) (*ReadingEvent, error)
	// FirstEventAfter returns the earliest event with date > the given date.
	FirstEventAfter(ctx context.Context, db *gorm.DB, date time.Time, exclude *Exclusion) (*ReadingEvent, error)
	// PurchaseMeterReading returns the meter reading stored on a purchase.
	PurchaseMeterReading(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) (float64, error)
}

var ErrPurchaseNotFound = errors.New("purchase not found")
