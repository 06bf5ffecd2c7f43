package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/wattshare/wattshare/internal/chronology/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// eventsQuery merges the three ledgers into one timeline. Contributions
// carry the parent purchase's date.
const eventsQuery = `
SELECT source, record_id, reading, event_date FROM (
	SELECT 'purchase' AS source, id AS record_id, meter_reading AS reading, purchase_date AS event_date
	FROM token_purchases
	UNION ALL
	SELECT 'contribution' AS source, uc.id AS record_id, uc.meter_reading AS reading, tp.purchase_date AS event_date
	FROM user_contributions uc
	JOIN token_purchases tp ON tp.id = uc.purchase_id
	UNION ALL
	SELECT 'meter_reading' AS source, id AS record_id, reading, reading_date AS event_date
	FROM meter_readings
) events
`

type eventRow struct {
	Source    string    `gorm:"column:source"`
	RecordID  int64     `gorm:"column:record_id"`
	Reading   float64   `gorm:"column:reading"`
	EventDate time.Time `gorm:"column:event_date"`
}

func (r *repo) LastEventBefore(ctx context.Context, db *gorm.DB, date time.Time, exclude *domain.Exclusion) (*domain.ReadingEvent, error) {
	query := eventsQuery + `WHERE event_date <= ?`
	args := []any{date.UTC()}
	query, args = appendExclusion(query, args, exclude)
	query += ` ORDER BY event_date DESC LIMIT 1`
	return r.one(ctx, db, query, args)
}

func (r *repo) FirstEventAfter(ctx context.Context, db *gorm.DB, date time.Time, exclude *domain.Exclusion) (*domain.ReadingEvent, error) {
	query := eventsQuery + `WHERE event_date > ?`
	args := []any{date.UTC()}
	query, args = appendExclusion(query, args, exclude)
	query += ` ORDER BY event_date ASC LIMIT 1`
	return r.one(ctx, db, query, args)
}

func (r *repo) one(ctx context.Context, db *gorm.DB, query string, args []any) (*domain.ReadingEvent, error) {
	var row eventRow
	err := db.WithContext(ctx).Raw(query, args...).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.ReadingEvent{
		Source:   domain.EventSource(row.Source),
		RecordID: snowflake.ID(row.RecordID),
		Reading:  row.Reading,
		Date:     row.EventDate,
	}, nil
}

func (r *repo) PurchaseMeterReading(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) (float64, error) {
	var row struct {
		MeterReading float64 `gorm:"column:meter_reading"`
	}
	err := db.WithContext(ctx).
		Raw(`SELECT meter_reading FROM token_purchases WHERE id = ?`, purchaseID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, domain.ErrPurchaseNotFound
	}
	if err != nil {
		return 0, err
	}
	return row.MeterReading, nil
}

func appendExclusion(query string, args []any, exclude *domain.Exclusion) (string, []any) {
	if exclude == nil {
		return query, args
	}
	query += ` AND NOT (source = ? AND record_id = ?)`
	return query, append(args, string(exclude.Source), exclude.RecordID)
}
