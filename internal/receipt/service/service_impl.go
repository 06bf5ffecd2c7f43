package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/wattshare/wattshare/internal/audit/domain"
	authdomain "github.com/wattshare/wattshare/internal/auth/domain"
	"github.com/wattshare/wattshare/internal/config"
	purchasedomain "github.com/wattshare/wattshare/internal/purchase/domain"
	"github.com/wattshare/wattshare/internal/receipt/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Holder       *config.HouseholdConfigHolder
	Repo         domain.Repository
	PurchaseRepo purchasedomain.Repository
	Audit        auditdomain.Service
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	holder       *config.HouseholdConfigHolder
	repo         domain.Repository
	purchaseRepo purchasedomain.Repository
	audit        auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("receipt.service"),
		genID:        p.GenID,
		holder:       p.Holder,
		repo:         p.Repo,
		purchaseRepo: p.PurchaseRepo,
		audit:        p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, actor authdomain.Actor, req domain.CreateReceiptRequest) (*domain.Receipt, error) {
	purchaseID, err := snowflake.ParseString(strings.TrimSpace(req.PurchaseID))
	if err != nil || purchaseID == 0 {
		return nil, domain.ErrInvalidID
	}
	fileName := strings.TrimSpace(req.FileName)
	if fileName == "" {
		return nil, domain.ErrInvalidFileName
	}
	mimeType := strings.TrimSpace(req.MimeType)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	purchase, err := s.purchaseRepo.FindByID(ctx, s.db, purchaseID)
	if err != nil {
		return nil, err
	}

	epsilon := s.holder.Current().ReceiptEpsilon
	if math.Abs(req.TotalAmount-purchase.TotalPayment) > epsilon {
		return nil, domain.ErrAmountMismatch
	}

	receipt := &domain.Receipt{
		ID:          s.genID.Generate(),
		PurchaseID:  purchaseID,
		FileName:    fileName,
		MimeType:    mimeType,
		TotalAmount: req.TotalAmount,
		UploadedBy:  actor.UserID,
		CreatedAt:   time.Now().UTC(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, receipt); err != nil {
			return err
		}
		actorID := actor.UserID.String()
		target := receipt.ID.String()
		return s.audit.RecordWithDB(ctx, tx, auditdomain.Entry{
			ActorID:    &actorID,
			Action:     "receipt.created",
			TargetType: "receipt",
			TargetID:   &target,
			NewValues: map[string]any{
				"purchase_id":  purchaseID.String(),
				"file_name":    fileName,
				"total_amount": receipt.TotalAmount,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("receipt recorded",
		zap.String("receipt_id", receipt.ID.String()),
		zap.String("purchase_id", purchaseID.String()),
	)
	return receipt, nil
}

func (s *Service) GetByPurchase(ctx context.Context, purchaseID string) (*domain.Receipt, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(purchaseID))
	if err != nil || parsed == 0 {
		return nil, domain.ErrInvalidID
	}
	return s.repo.FindByPurchaseID(ctx, s.db, parsed)
}
