package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/wattshare/wattshare/internal/meterreading/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, reading *domain.MeterReading) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO meter_readings (
			id, user_id, reading, reading_date, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		reading.ID,
		reading.UserID,
		reading.Reading,
		reading.ReadingDate,
		reading.Notes,
		reading.CreatedAt,
		reading.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, reading *domain.MeterReading) error {
	reading.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Exec(
		`UPDATE meter_readings SET
			reading = ?, reading_date = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		reading.Reading,
		reading.ReadingDate,
		reading.Notes,
		reading.UpdatedAt,
		reading.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM meter_readings WHERE id = ?`, id,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.MeterReading, error) {
	var reading domain.MeterReading
	err := db.WithContext(ctx).Where("id = ?", id).First(&reading).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMeterReadingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reading, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.MeterReading, error) {
	var readings []*domain.MeterReading
	stmt := db.WithContext(ctx).Model(&domain.MeterReading{})

	if filter.StartDate != nil {
		stmt = stmt.Where("reading_date >= ?", filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		stmt = stmt.Where("reading_date <= ?", filter.EndDate.UTC())
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

	if err := stmt.Find(&readings).Error; err != nil {
		return nil, err
	}
	return readings, nil
}
