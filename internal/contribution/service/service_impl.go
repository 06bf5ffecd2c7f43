package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/wattshare/wattshare/internal/audit/domain"
	authdomain "github.com/wattshare/wattshare/internal/auth/domain"
	chronologydomain "github.com/wattshare/wattshare/internal/chronology/domain"
	"github.com/wattshare/wattshare/internal/contribution/domain"
	gatedomain "github.com/wattshare/wattshare/internal/gate/domain"
	purchasedomain "github.com/wattshare/wattshare/internal/purchase/domain"
	reconciledomain "github.com/wattshare/wattshare/internal/reconcile/domain"
	"github.com/wattshare/wattshare/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Repo         domain.Repository
	PurchaseRepo purchasedomain.Repository
	Gate         gatedomain.Service
	Chronology   chronologydomain.Service
	Reconcile    reconciledomain.Service
	Audit        auditdomain.Service
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	repo         domain.Repository
	purchaseRepo purchasedomain.Repository
	gate         gatedomain.Service
	chronology   chronologydomain.Service
	reconcile    reconciledomain.Service
	audit        auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("contribution.service"),
		genID:        p.GenID,
		repo:         p.Repo,
		purchaseRepo: p.PurchaseRepo,
		gate:         p.Gate,
		chronology:   p.Chronology,
		reconcile:    p.Reconcile,
		audit:        p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, actor authdomain.Actor, req domain.CreateContributionRequest) (*domain.Contribution, error) {
	if req.ContributionAmount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if req.MeterReading < 0 {
		return nil, domain.ErrInvalidMeterReading
	}
	purchaseID, err := snowflake.ParseString(strings.TrimSpace(req.PurchaseID))
	if err != nil || purchaseID == 0 {
		return nil, domain.ErrInvalidID
	}

	parent, err := s.purchaseRepo.FindByID(ctx, s.db, purchaseID)
	if err != nil {
		return nil, err
	}

	result, err := s.chronology.ValidateContributionMeterReading(ctx, s.db, req.MeterReading, purchaseID)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, chronologydomain.Invalid(result)
	}

	decision, err := s.gate.CanAcceptContribution(ctx, purchaseID, actor)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		if decision.ReasonCode == gatedomain.ReasonPurchaseAlreadyFunded {
			return nil, domain.ErrDuplicate
		}
		return nil, gatedomain.Deny(decision)
	}

	tokens := 0.0
	if prev, ok, err := s.repo.PreviousMeterReading(ctx, s.db, parent.PurchaseDate); err != nil {
		return nil, err
	} else if ok {
		tokens = parent.MeterReading - prev
		if tokens < 0 {
			tokens = 0
		}
	}

	now := time.Now().UTC()
	contribution := &domain.Contribution{
		ID:                 s.genID.Generate(),
		PurchaseID:         purchaseID,
		UserID:             actor.UserID,
		ContributionAmount: req.ContributionAmount,
		MeterReading:       req.MeterReading,
		TokensConsumed:     tokens,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, contribution); err != nil {
			return err
		}
		return s.recordAudit(ctx, tx, actor, "contribution.created", contribution.ID, nil, contributionValues(contribution))
	})
	if err != nil {
		return nil, err
	}

	s.gate.InvalidateCache()
	s.log.Info("contribution created",
		zap.String("contribution_id", contribution.ID.String()),
		zap.String("purchase_id", purchaseID.String()),
		zap.Float64("tokens_consumed", tokens),
	)
	return contribution, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Contribution, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed == 0 {
		return nil, domain.ErrInvalidID
	}
	return s.repo.FindByID(ctx, s.db, parsed)
}

func (s *Service) List(ctx context.Context, req domain.ListContributionRequest) (domain.ListContributionResponse, error) {
	var cursor *domain.Cursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListContributionResponse{}, domain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return domain.ListContributionResponse{}, domain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return domain.ListContributionResponse{}, domain.ErrInvalidPageToken
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

	filter := domain.ListFilter{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Cursor:    cursor,
		Limit:     int(pageSize),
	}
	if raw := strings.TrimSpace(req.UserID); raw != "" {
		userID, err := snowflake.ParseString(raw)
		if err != nil || userID == 0 {
			return domain.ListContributionResponse{}, domain.ErrInvalidID
		}
		filter.UserID = userID
	}

	contributions, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListContributionResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(contributions, pageSize, func(c *domain.Contribution) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        c.ID.String(),
			CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(contributions) > int(pageSize) {
		contributions = contributions[:pageSize]
	}

	out := make([]domain.Contribution, 0, len(contributions))
	for _, c := range contributions {
		out = append(out, *c)
	}
	return domain.ListContributionResponse{PageInfo: *pageInfo, Contributions: out}, nil
}

func (s *Service) Update(ctx context.Context, actor authdomain.Actor, req domain.UpdateContributionRequest) (*domain.Contribution, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || id == 0 {
		return nil, domain.ErrInvalidID
	}

	contribution, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	oldValues := contributionValues(contribution)

	if req.ContributionAmount != nil {
		if *req.ContributionAmount <= 0 {
			return nil, domain.ErrInvalidAmount
		}
		contribution.ContributionAmount = *req.ContributionAmount
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, contribution); err != nil {
			return err
		}
		return s.recordAudit(ctx, tx, actor, "contribution.updated", contribution.ID, oldValues, contributionValues(contribution))
	})
	if err != nil {
		return nil, err
	}
	return contribution, nil
}

func (s *Service) Delete(ctx context.Context, actor authdomain.Actor, id string) error {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed == 0 {
		return domain.ErrInvalidID
	}

	contribution, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return err
	}

	decision, err := s.gate.CanDeleteContribution(ctx, contribution.ID)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return gatedomain.Deny(decision)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Delete(ctx, tx, contribution.ID); err != nil {
			return err
		}
		if _, err := s.reconcile.RecalculateWithDB(ctx, tx); err != nil {
			return err
		}
		return s.recordAudit(ctx, tx, actor, "contribution.deleted", contribution.ID, contributionValues(contribution), nil)
	})
	if err != nil {
		return err
	}

	s.gate.InvalidateCache()
	s.log.Info("contribution deleted", zap.String("contribution_id", contribution.ID.String()))
	return nil
}

func (s *Service) recordAudit(ctx context.Context, db *gorm.DB, actor authdomain.Actor, action string, targetID snowflake.ID, oldValues, newValues map[string]any) error {
	actorID := actor.UserID.String()
	target := targetID.String()
	return s.audit.RecordWithDB(ctx, db, auditdomain.Entry{
		ActorID:    &actorID,
		Action:     action,
		TargetType: "contribution",
		TargetID:   &target,
		OldValues:  oldValues,
		NewValues:  newValues,
	})
}

func contributionValues(c *domain.Contribution) map[string]any {
	return map[string]any{
		"purchase_id":         c.PurchaseID.String(),
		"user_id":             c.UserID.String(),
		"contribution_amount": c.ContributionAmount,
		"meter_reading":       c.MeterReading,
		"tokens_consumed":     c.TokensConsumed,
	}
}
