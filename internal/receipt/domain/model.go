// Package domain contains core types for purchase receipts.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/wattshare/wattshare/internal/auth/domain"
	"gorm.io/gorm"
)

// Receipt records the uploaded proof of payment for a purchase. The stored
// total must match the purchase payment within the configured epsilon.
type Receipt struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	PurchaseID  snowflake.ID `gorm:"column:purchase_id;not null;uniqueIndex" json:"purchase_id"`
	FileName    string       `gorm:"column:file_name;type:text;not null" json:"file_name"`
	MimeType    string       `gorm:"column:mime_type;type:text;not null" json:"mime_type"`
	TotalAmount float64      `gorm:"column:total_amount;not null" json:"total_amount"`
	UploadedBy  snowflake.ID `gorm:"column:uploaded_by;not null" json:"uploaded_by"`
	CreatedAt   time.Time    `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Receipt) TableName() string { return "receipts" }

type CreateReceiptRequest struct {
	PurchaseID  string  `json:"purchase_id"`
	FileName    string  `json:"file_name"`
	MimeType    string  `json:"mime_type"`
	TotalAmount float64 `json:"total_amount"`
}

type Service interface {
	Create(ctx context.Context, actor authdomain.Actor, req CreateReceiptRequest) (*Receipt, error)
	GetByPurchase(ctx context.Context, purchaseID string) (*Receipt, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, receipt *Receipt) error
	FindByPurchaseID(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) (*Receipt, error)
}

var (
	ErrReceiptNotFound = errors.New("receipt not found")
	ErrDuplicate       = errors.New("purchase already has a receipt")
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidFileName = errors.New("invalid_file_name")
	ErrAmountMismatch  = errors.New("receipt total does not match purchase payment")
)
