// Package domain contains core types for the contribution ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Contribution is a member funding exactly one purchase. The meter reading
// must match the parent purchase's reading; tokens consumed is derived from
// the previous purchase's reading and overwritten by recomputes.
type Contribution struct {
	ID                 snowflake.ID `gorm:"primaryKey" json:"id"`
	PurchaseID         snowflake.ID `gorm:"column:purchase_id;not null;uniqueIndex" json:"purchase_id"`
	UserID             snowflake.ID `gorm:"column:user_id;not null;index" json:"user_id"`
	ContributionAmount float64      `gorm:"column:contribution_amount;not null" json:"contribution_amount"`
	MeterReading       float64      `gorm:"column:meter_reading;not null" json:"meter_reading"`
	TokensConsumed     float64      `gorm:"column:tokens_consumed;not null;default:0" json:"tokens_consumed"`
	CreatedAt          time.Time    `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time    `gorm:"column:updated_at;not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Contribution) TableName() string { return "user_contributions" }
