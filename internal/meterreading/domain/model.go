// Package domain contains core types for standalone meter readings.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// MeterReading is a standalone reading of the shared meter, outside any
// purchase or contribution.
type MeterReading struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID      snowflake.ID `gorm:"column:user_id;not null;index" json:"user_id"`
	Reading     float64      `gorm:"column:reading;not null" json:"reading"`
	ReadingDate time.Time    `gorm:"column:reading_date;not null;index" json:"reading_date"`
	Notes       string       `gorm:"column:notes;type:text" json:"notes,omitempty"`
	CreatedAt   time.Time    `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"column:updated_at;not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (MeterReading) TableName() string { return "meter_readings" }
