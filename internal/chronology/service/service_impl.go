package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/wattshare/wattshare/internal/chronology/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		log:  p.Log.Named("chronology.service"),
		repo: p.Repo,
	}
}

func (s *Service) FindLastReadingBefore(ctx context.Context, db *gorm.DB, date time.Time, exclude *domain.Exclusion) (*domain.ReadingEvent, error) {
	return s.repo.LastEventBefore(ctx, db, date, exclude)
}

func (s *Service) ValidateChronology(ctx context.Context, db *gorm.DB, newReading float64, date time.Time, exclude *domain.Exclusion) (domain.Result, error) {
	last, err := s.repo.LastEventBefore(ctx, db, date, exclude)
	if err != nil {
		return domain.Result{}, err
	}
	if last == nil {
		return domain.Ok(), nil
	}
	if newReading >= last.Reading {
		return domain.Ok(), nil
	}

	minimum := last.Reading
	return domain.Result{
		Valid: false,
		Message: fmt.Sprintf(
			"meter reading %.2f is lower than the %s reading %.2f recorded on %s",
			newReading, last.Source, last.Reading, last.Date.UTC().Format("2006-01-02"),
		),
		SuggestedMinimum: &minimum,
		Conflict:         last,
	}, nil
}

func (s *Service) ValidateContributionMeterReading(ctx context.Context, db *gorm.DB, reading float64, purchaseID snowflake.ID) (domain.Result, error) {
	expected, err := s.repo.PurchaseMeterReading(ctx, db, purchaseID)
	if err != nil {
		return domain.Result{}, err
	}
	if reading == expected {
		return domain.Ok(), nil
	}

	minimum := expected
	return domain.Result{
		Valid: false,
		Message: fmt.Sprintf(
			"contribution meter reading %.2f must equal the purchase meter reading %.2f",
			reading, expected,
		),
		SuggestedMinimum: &minimum,
	}, nil
}

func (s *Service) ValidateForward(ctx context.Context, db *gorm.DB, newReading float64, date time.Time, exclude *domain.Exclusion) (domain.Result, error) {
	next, err := s.repo.FirstEventAfter(ctx, db, date, exclude)
	if err != nil {
		return domain.Result{}, err
	}
	if next == nil {
		return domain.Ok(), nil
	}
	if newReading <= next.Reading {
		return domain.Ok(), nil
	}

	s.log.Debug("forward chronology conflict",
		zap.Float64("new_reading", newReading),
		zap.Float64("next_reading", next.Reading),
	)
	return domain.Result{
		Valid: false,
		Message: fmt.Sprintf(
			"meter reading %.2f exceeds the later %s reading %.2f recorded on %s",
			newReading, next.Source, next.Reading, next.Date.UTC().Format("2006-01-02"),
		),
		Conflict: next,
	}, nil
}
