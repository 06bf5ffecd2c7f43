package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/wattshare/wattshare/internal/receipt/domain"
	"github.com/wattshare/wattshare/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, dbh *gorm.DB, receipt *domain.Receipt) error {
	err := dbh.WithContext(ctx).Exec(
		`INSERT INTO receipts (
			id, purchase_id, file_name, mime_type, total_amount, uploaded_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		receipt.ID,
		receipt.PurchaseID,
		receipt.FileName,
		receipt.MimeType,
		receipt.TotalAmount,
		receipt.UploadedBy,
		receipt.CreatedAt,
	).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrDuplicate
	}
	return err
}

func (r *repo) FindByPurchaseID(ctx context.Context, dbh *gorm.DB, purchaseID snowflake.ID) (*domain.Receipt, error) {
	var receipt domain.Receipt
	err := dbh.WithContext(ctx).Where("purchase_id = ?", purchaseID).First(&receipt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrReceiptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}
