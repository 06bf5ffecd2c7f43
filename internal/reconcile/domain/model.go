// Package domain contains types for consumption and balance reconciliation.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Summary reports a recompute pass.
type Summary struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
}

// MemberBalance is one member's running position: what they paid in minus
// their metered fair share across all funded purchases.
type MemberBalance struct {
	UserID      snowflake.ID `json:"user_id"`
	Contributed float64      `json:"contributed"`
	FairShare   float64      `json:"fair_share"`
	Balance     float64      `json:"balance"`
}

// PurchaseRow is one purchase joined to its optional contribution, the unit
// both recompute passes walk in purchase-date order.
type PurchaseRow struct {
	PurchaseID         snowflake.ID  `gorm:"column:purchase_id"`
	PurchaseDate       time.Time     `gorm:"column:purchase_date"`
	TotalTokens        float64       `gorm:"column:total_tokens"`
	TotalPayment       float64       `gorm:"column:total_payment"`
	MeterReading       float64       `gorm:"column:meter_reading"`
	ContributionID     *snowflake.ID `gorm:"column:contribution_id"`
	UserID             *snowflake.ID `gorm:"column:user_id"`
	ContributionAmount *float64      `gorm:"column:contribution_amount"`
	TokensConsumed     *float64      `gorm:"column:tokens_consumed"`
}
