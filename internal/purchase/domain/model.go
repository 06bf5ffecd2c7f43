// Package domain contains core types for the purchase ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Purchase is one bulk prepaid token purchase. The meter reading is the
// value on the shared meter at purchase time.
type Purchase struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	TotalTokens  float64      `gorm:"column:total_tokens;not null" json:"total_tokens"`
	TotalPayment float64      `gorm:"column:total_payment;not null" json:"total_payment"`
	MeterReading float64      `gorm:"column:meter_reading;not null" json:"meter_reading"`
	PurchaseDate time.Time    `gorm:"column:purchase_date;not null;index" json:"purchase_date"`
	IsEmergency  bool         `gorm:"column:is_emergency;not null;default:false" json:"is_emergency"`
	CreatedBy    snowflake.ID `gorm:"column:created_by;not null" json:"created_by"`
	CreatedAt    time.Time    `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"column:updated_at;not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Purchase) TableName() string { return "token_purchases" }
