package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/wattshare/wattshare/internal/auth/domain"
	"github.com/wattshare/wattshare/internal/cache"
	"github.com/wattshare/wattshare/internal/config"
	"github.com/wattshare/wattshare/internal/gate/domain"
	purchasedomain "github.com/wattshare/wattshare/internal/purchase/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const statusCacheKey = "oldest_unfunded"

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Repo   domain.Repository
	Holder *config.HouseholdConfigHolder
	Cache  cache.Cache[string, domain.Status] `optional:"true"`
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	repo   domain.Repository
	holder *config.HouseholdConfigHolder
	cache  cache.Cache[string, domain.Status]
}

func New(p Params) domain.Service {
	c := p.Cache
	if c == nil {
		c = cache.NewTTLCache[string, domain.Status]()
	}
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("gate.service"),
		repo:   p.Repo,
		holder: p.Holder,
		cache:  c,
	}
}

func (s *Service) FindOldestPurchaseWithoutContribution(ctx context.Context) (domain.Status, error) {
	if status, ok := s.cache.Get(statusCacheKey); ok {
		return status, nil
	}

	unfunded, err := s.repo.PurchasesWithoutContribution(ctx, s.db)
	if err != nil {
		return domain.Status{}, err
	}

	status := domain.Status{
		CountWithoutContribution: len(unfunded),
		AllSatisfied:             len(unfunded) == 0,
	}
	if len(unfunded) > 0 {
		status.Purchase = unfunded[0]
	}

	s.cache.Set(statusCacheKey, status, s.holder.Current().GateCacheTTL())
	return status, nil
}

func (s *Service) CanAcceptContribution(ctx context.Context, purchaseID snowflake.ID, actor authdomain.Actor) (domain.Decision, error) {
	exists, err := s.repo.PurchaseExists(ctx, s.db, purchaseID)
	if err != nil {
		return domain.Decision{}, err
	}
	if !exists {
		return domain.Decision{}, purchasedomain.ErrPurchaseNotFound
	}

	funded, err := s.repo.HasContribution(ctx, s.db, purchaseID)
	if err != nil {
		return domain.Decision{}, err
	}
	if funded {
		return domain.Decision{
			Allowed:    false,
			Reason:     "this purchase already has a contribution",
			ReasonCode: domain.ReasonPurchaseAlreadyFunded,
		}, nil
	}

	if actor.IsAdmin() {
		return domain.Allow(), nil
	}

	status, err := s.FindOldestPurchaseWithoutContribution(ctx)
	if err != nil {
		return domain.Decision{}, err
	}
	if status.Purchase == nil || status.Purchase.ID == purchaseID {
		return domain.Allow(), nil
	}

	oldest := status.Purchase.ID
	return domain.Decision{
		Allowed: false,
		Reason: fmt.Sprintf(
			"contributions must fund the oldest open purchase first (dated %s)",
			status.Purchase.PurchaseDate.UTC().Format("2006-01-02"),
		),
		ReasonCode:              domain.ReasonSequentialContributionRequired,
		NextAvailablePurchaseID: &oldest,
	}, nil
}

func (s *Service) CanCreatePurchase(ctx context.Context, newPurchaseDate time.Time, actor authdomain.Actor) (domain.Decision, error) {
	if actor.IsAdmin() {
		return domain.Allow(), nil
	}

	previous, err := s.repo.MostRecentPurchaseBefore(ctx, s.db, newPurchaseDate)
	if err != nil {
		return domain.Decision{}, err
	}
	if previous == nil {
		return domain.Allow(), nil
	}

	funded, err := s.repo.HasContribution(ctx, s.db, previous.ID)
	if err != nil {
		return domain.Decision{}, err
	}
	if funded {
		return domain.Allow(), nil
	}

	blocking := previous.ID
	return domain.Decision{
		Allowed: false,
		Reason: fmt.Sprintf(
			"the previous purchase (dated %s) has no contribution yet",
			previous.PurchaseDate.UTC().Format("2006-01-02"),
		),
		ReasonCode:         domain.ReasonPreviousPurchaseUnfunded,
		BlockingPurchaseID: &blocking,
	}, nil
}

func (s *Service) CanDeleteContribution(ctx context.Context, contributionID snowflake.ID) (domain.Decision, error) {
	latest, err := s.repo.LatestContribution(ctx, s.db)
	if err != nil {
		return domain.Decision{}, err
	}
	if latest == nil || latest.ID != contributionID {
		return domain.Decision{
			Allowed:    false,
			Reason:     "only the most recent contribution can be deleted",
			ReasonCode: domain.ReasonGlobalLatestContributionOnly,
		}, nil
	}

	latestPurchase, err := s.repo.LatestPurchase(ctx, s.db)
	if err != nil {
		return domain.Decision{}, err
	}
	if latestPurchase != nil && latestPurchase.ID != latest.PurchaseID {
		funded, err := s.repo.HasContribution(ctx, s.db, latestPurchase.ID)
		if err != nil {
			return domain.Decision{}, err
		}
		if !funded {
			blocking := latestPurchase.ID
			return domain.Decision{
				Allowed: false,
				Reason: "deleting this contribution would leave more than one " +
					"purchase without a contribution",
				ReasonCode:         domain.ReasonPreventMultipleUnconsumedPurchases,
				BlockingPurchaseID: &blocking,
			}, nil
		}
	}

	return domain.Allow(), nil
}

func (s *Service) InvalidateCache() {
	s.cache.Invalidate(statusCacheKey)
	s.log.Debug("gate cache invalidated")
}
