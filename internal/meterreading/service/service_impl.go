package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/wattshare/wattshare/internal/audit/domain"
	authdomain "github.com/wattshare/wattshare/internal/auth/domain"
	chronologydomain "github.com/wattshare/wattshare/internal/chronology/domain"
	"github.com/wattshare/wattshare/internal/meterreading/domain"
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
	Chronology chronologydomain.Service
	Audit      auditdomain.Service
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	chronology chronologydomain.Service
	audit      auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("meterreading.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		chronology: p.Chronology,
		audit:      p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, actor authdomain.Actor, req domain.CreateMeterReadingRequest) (*domain.MeterReading, error) {
	if req.Reading < 0 {
		return nil, domain.ErrInvalidReading
	}
	if req.ReadingDate.IsZero() {
		return nil, domain.ErrInvalidDate
	}

	result, err := s.chronology.ValidateChronology(ctx, s.db, req.Reading, req.ReadingDate, nil)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, chronologydomain.Invalid(result)
	}
	result, err = s.chronology.ValidateForward(ctx, s.db, req.Reading, req.ReadingDate, nil)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, chronologydomain.Invalid(result)
	}

	now := time.Now().UTC()
	reading := &domain.MeterReading{
		ID:          s.genID.Generate(),
		UserID:      actor.UserID,
		Reading:     req.Reading,
		ReadingDate: req.ReadingDate.UTC(),
		Notes:       strings.TrimSpace(req.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, reading); err != nil {
			return err
		}
		return s.recordAudit(ctx, tx, actor, "meter_reading.created", reading.ID, nil, readingValues(reading))
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("meter reading recorded",
		zap.String("reading_id", reading.ID.String()),
		zap.Float64("reading", reading.Reading),
	)
	return reading, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.MeterReading, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed == 0 {
		return nil, domain.ErrInvalidID
	}
	return s.repo.FindByID(ctx, s.db, parsed)
}

func (s *Service) List(ctx context.Context, req domain.ListMeterReadingRequest) (domain.ListMeterReadingResponse, error) {
	var cursor *domain.Cursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListMeterReadingResponse{}, domain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return domain.ListMeterReadingResponse{}, domain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return domain.ListMeterReadingResponse{}, domain.ErrInvalidPageToken
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

	readings, err := s.repo.List(ctx, s.db, domain.ListFilter{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Cursor:    cursor,
		Limit:     int(pageSize),
	})
	if err != nil {
		return domain.ListMeterReadingResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(readings, pageSize, func(m *domain.MeterReading) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        m.ID.String(),
			CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(readings) > int(pageSize) {
		readings = readings[:pageSize]
	}

	out := make([]domain.MeterReading, 0, len(readings))
	for _, m := range readings {
		out = append(out, *m)
	}
	return domain.ListMeterReadingResponse{PageInfo: *pageInfo, MeterReadings: out}, nil
}

func (s *Service) Update(ctx context.Context, actor authdomain.Actor, req domain.UpdateMeterReadingRequest) (*domain.MeterReading, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || id == 0 {
		return nil, domain.ErrInvalidID
	}

	reading, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	oldValues := readingValues(reading)

	if req.Reading != nil {
		if *req.Reading < 0 {
			return nil, domain.ErrInvalidReading
		}
		reading.Reading = *req.Reading
	}
	if req.ReadingDate != nil {
		if req.ReadingDate.IsZero() {
			return nil, domain.ErrInvalidDate
		}
		reading.ReadingDate = req.ReadingDate.UTC()
	}
	if req.Notes != nil {
		reading.Notes = strings.TrimSpace(*req.Notes)
	}

	exclude := &chronologydomain.Exclusion{
		Source:   chronologydomain.SourceMeterReading,
		RecordID: reading.ID,
	}
	result, err := s.chronology.ValidateChronology(ctx, s.db, reading.Reading, reading.ReadingDate, exclude)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, chronologydomain.Invalid(result)
	}
	result, err = s.chronology.ValidateForward(ctx, s.db, reading.Reading, reading.ReadingDate, exclude)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, chronologydomain.Invalid(result)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, reading); err != nil {
			return err
		}
		return s.recordAudit(ctx, tx, actor, "meter_reading.updated", reading.ID, oldValues, readingValues(reading))
	})
	if err != nil {
		return nil, err
	}
	return reading, nil
}

func (s *Service) Delete(ctx context.Context, actor authdomain.Actor, id string) error {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed == 0 {
		return domain.ErrInvalidID
	}

	reading, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Delete(ctx, tx, reading.ID); err != nil {
			return err
		}
		return s.recordAudit(ctx, tx, actor, "meter_reading.deleted", reading.ID, readingValues(reading), nil)
	})
	if err != nil {
		return err
	}

	s.log.Info("meter reading deleted", zap.String("reading_id", reading.ID.String()))
	return nil
}

func (s *Service) recordAudit(ctx context.Context, db *gorm.DB, actor authdomain.Actor, action string, targetID snowflake.ID, oldValues, newValues map[string]any) error {
	actorID := actor.UserID.String()
	target := targetID.String()
	return s.audit.RecordWithDB(ctx, db, auditdomain.Entry{
		ActorID:    &actorID,
		Action:     action,
		TargetType: "meter_reading",
		TargetID:   &target,
		OldValues:  oldValues,
		NewValues:  newValues,
	})
}

func readingValues(m *domain.MeterReading) map[string]any {
	return map[string]any{
		"user_id":      m.UserID.String(),
		"reading":      m.Reading,
		"reading_date": m.ReadingDate.UTC().Format(time.RFC3339),
		"notes":        m.Notes,
	}
}
