package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/wattshare/wattshare/internal/audit/domain"
	authdomain "github.com/wattshare/wattshare/internal/auth/domain"
	chronologydomain "github.com/wattshare/wattshare/internal/chronology/domain"
	gatedomain "github.com/wattshare/wattshare/internal/gate/domain"
	"github.com/wattshare/wattshare/internal/purchase/domain"
	reconciledomain "github.com/wattshare/wattshare/internal/reconcile/domain"
	"github.com/wattshare/wattshare/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	Gate       gatedomain.Service
	Chronology chronologydomain.Service
	Reconcile  reconciledomain.Service
	Audit      auditdomain.Service
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	gate       gatedomain.Service
	chronology chronologydomain.Service
	reconcile  reconciledomain.Service
	audit      auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("purchase.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		gate:       p.Gate,
		chronology: p.Chronology,
		reconcile:  p.Reconcile,
		audit:      p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, actor authdomain.Actor, req domain.CreatePurchaseRequest) (*domain.Purchase, error) {
	if req.TotalTokens <= 0 {
		return nil, domain.ErrInvalidTokens
	}
	if req.TotalPayment <= 0 {
		return nil, domain.ErrInvalidPayment
	}
	if req.MeterReading < 0 {
		return nil, domain.ErrInvalidMeterReading
	}
	if req.PurchaseDate.IsZero() {
		return nil, domain.ErrInvalidDate
	}

	result, err := s.chronology.ValidateChronology(ctx, s.db, req.MeterReading, req.PurchaseDate, nil)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, chronologydomain.Invalid(result)
	}

	decision, err := s.gate.CanCreatePurchase(ctx, req.PurchaseDate, actor)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, gatedomain.Deny(decision)
	}

	now := time.Now().UTC()
	purchase := &domain.Purchase{
		ID:           s.genID.Generate(),
		TotalTokens:  req.TotalTokens,
		TotalPayment: req.TotalPayment,
		MeterReading: req.MeterReading,
		PurchaseDate: req.PurchaseDate.UTC(),
		IsEmergency:  req.IsEmergency,
		CreatedBy:    actor.UserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, purchase); err != nil {
			return err
		}
		return s.recordAudit(ctx, tx, actor, "purchase.created", purchase.ID, nil, purchaseValues(purchase))
	})
	if err != nil {
		return nil, err
	}

	s.gate.InvalidateCache()
	s.log.Info("purchase created",
		zap.String("purchase_id", purchase.ID.String()),
		zap.Float64("total_tokens", purchase.TotalTokens),
		zap.Bool("is_emergency", purchase.IsEmergency),
	)
	return purchase, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Purchase, error) {
	parsed, err := parseID(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	return s.repo.FindByID(ctx, s.db, parsed)
}

func (s *Service) List(ctx context.Context, req domain.ListPurchaseRequest) (domain.ListPurchaseResponse, error) {
	var cursor *domain.Cursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListPurchaseResponse{}, domain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return domain.ListPurchaseResponse{}, domain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return domain.ListPurchaseResponse{}, domain.ErrInvalidPageToken
		}
		cursor = &domain.Cursor{ID: id, CreatedAt: createdAt}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}

	purchases, err := s.repo.List(ctx, s.db, domain.ListFilter{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Cursor:    cursor,
		Limit:     int(pageSize),
	})
	if err != nil {
		return domain.ListPurchaseResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(purchases, pageSize, func(p *domain.Purchase) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        p.ID.String(),
			CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(purchases) > int(pageSize) {
		purchases = purchases[:pageSize]
	}

	out := make([]domain.Purchase, 0, len(purchases))
	for _, p := range purchases {
		out = append(out, *p)
	}
	return domain.ListPurchaseResponse{PageInfo: *pageInfo, Purchases: out}, nil
}

func (s *Service) Update(ctx context.Context, actor authdomain.Actor, req domain.UpdatePurchaseRequest) (*domain.Purchase, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	purchase, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	oldValues := purchaseValues(purchase)

	if req.TotalTokens != nil {
		if *req.TotalTokens <= 0 {
			return nil, domain.ErrInvalidTokens
		}
		purchase.TotalTokens = *req.TotalTokens
	}
	if req.TotalPayment != nil {
		if *req.TotalPayment <= 0 {
			return nil, domain.ErrInvalidPayment
		}
		purchase.TotalPayment = *req.TotalPayment
	}
	if req.MeterReading != nil {
		if *req.MeterReading < 0 {
			return nil, domain.ErrInvalidMeterReading
		}
		purchase.MeterReading = *req.MeterReading
	}
	if req.PurchaseDate != nil {
		if req.PurchaseDate.IsZero() {
			return nil, domain.ErrInvalidDate
		}
		purchase.PurchaseDate = req.PurchaseDate.UTC()
	}
	if req.IsEmergency != nil {
		purchase.IsEmergency = *req.IsEmergency
	}

	exclude := &chronologydomain.Exclusion{
		Source:   chronologydomain.SourcePurchase,
		RecordID: purchase.ID,
	}
	result, err := s.chronology.ValidateChronology(ctx, s.db, purchase.MeterReading, purchase.PurchaseDate, exclude)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, chronologydomain.Invalid(result)
	}
	result, err = s.chronology.ValidateForward(ctx, s.db, purchase.MeterReading, purchase.PurchaseDate, exclude)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, chronologydomain.Invalid(result)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, purchase); err != nil {
			return err
		}
		if err := s.repo.SyncContributionMeterReading(ctx, tx, purchase.ID, purchase.MeterReading); err != nil {
			return err
		}
		if _, err := s.reconcile.RecalculateWithDB(ctx, tx); err != nil {
			return err
		}
		return s.recordAudit(ctx, tx, actor, "purchase.updated", purchase.ID, oldValues, purchaseValues(purchase))
	})
	if err != nil {
		return nil, err
	}

	s.gate.InvalidateCache()
	return purchase, nil
}

func (s *Service) Delete(ctx context.Context, actor authdomain.Actor, id string) error {
	parsed, err := parseID(id)
	if err != nil {
		return domain.ErrInvalidID
	}

	purchase, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.DeleteDependents(ctx, tx, purchase.ID); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, tx, purchase.ID); err != nil {
			return err
		}
		if _, err := s.reconcile.RecalculateWithDB(ctx, tx); err != nil {
			return err
		}
		return s.recordAudit(ctx, tx, actor, "purchase.deleted", purchase.ID, purchaseValues(purchase), nil)
	})
	if err != nil {
		return err
	}

	s.gate.InvalidateCache()
	s.log.Info("purchase deleted", zap.String("purchase_id", purchase.ID.String()))
	return nil
}

func (s *Service) recordAudit(ctx context.Context, db *gorm.DB, actor authdomain.Actor, action string, targetID snowflake.ID, oldValues, newValues map[string]any) error {
	actorID := actor.UserID.String()
	target := targetID.String()
	return s.audit.RecordWithDB(ctx, db, auditdomain.Entry{
		ActorID:    &actorID,
		Action:     action,
		TargetType: "purchase",
		TargetID:   &target,
		OldValues:  oldValues,
		NewValues:  newValues,
	})
}

func purchaseValues(p *domain.Purchase) map[string]any {
	return map[string]any{
		"total_tokens":  p.TotalTokens,
		"total_payment": p.TotalPayment,
		"meter_reading": p.MeterReading,
		"purchase_date": p.PurchaseDate.UTC().Format(time.RFC3339),
		"is_emergency":  p.IsEmergency,
	}
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
