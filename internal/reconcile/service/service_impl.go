package service

import (
	"context"
	"sort"

	"github.com/bwmarrin/snowflake"
	"github.com/wattshare/wattshare/internal/reconcile/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("reconcile.service"),
		repo: p.Repo,
	}
}

func (s *Service) RecalculateAllTokensConsumed(ctx context.Context) (domain.Summary, error) {
	return s.RecalculateWithDB(ctx, s.db)
}

func (s *Service) RecalculateWithDB(ctx context.Context, db *gorm.DB) (domain.Summary, error) {
	rows, err := s.repo.PurchasesWithContribution(ctx, db)
	if err != nil {
		return domain.Summary{}, err
	}
	sortByPurchaseDate(rows)

	summary := domain.Summary{Scanned: len(rows)}
	prev := 0.0
	for i, row := range rows {
		correct := 0.0
		if i > 0 {
			correct = row.MeterReading - prev
			if correct < 0 {
				correct = 0
			}
		}

		if row.ContributionID != nil && (row.TokensConsumed == nil || *row.TokensConsumed != correct) {
			if err := s.repo.UpdateTokensConsumed(ctx, db, *row.ContributionID, correct); err != nil {
				return summary, err
			}
			summary.Updated++
		}

		// The meter advances with every purchase, funded or not.
		prev = row.MeterReading
	}

	if summary.Updated > 0 {
		s.log.Info("tokens consumed recalculated",
			zap.Int("scanned", summary.Scanned),
			zap.Int("updated", summary.Updated),
		)
	}
	return summary, nil
}

func (s *Service) CalculateGlobalBalance(ctx context.Context) (float64, error) {
	balances, err := s.MemberBalances(ctx)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, b := range balances {
		total += b.Balance
	}
	return total, nil
}

func (s *Service) MemberBalances(ctx context.Context) ([]domain.MemberBalance, error) {
	rows, err := s.repo.PurchasesWithContribution(ctx, s.db)
	if err != nil {
		return nil, err
	}
	sortByPurchaseDate(rows)

	byUser := map[snowflake.ID]*domain.MemberBalance{}
	var order []snowflake.ID
	for i, row := range rows {
		if row.ContributionID == nil || row.UserID == nil {
			continue
		}

		tokens := 0.0
		if row.TokensConsumed != nil {
			tokens = *row.TokensConsumed
		}
		// The earliest purchase has nothing before it to meter against,
		// whatever its stored value says.
		if i == 0 {
			tokens = 0
		}

		fairShare := 0.0
		if row.TotalTokens != 0 {
			fairShare = (tokens / row.TotalTokens) * row.TotalPayment
		}

		amount := 0.0
		if row.ContributionAmount != nil {
			amount = *row.ContributionAmount
		}

		entry, ok := byUser[*row.UserID]
		if !ok {
			entry = &domain.MemberBalance{UserID: *row.UserID}
			byUser[*row.UserID] = entry
			order = append(order, *row.UserID)
		}
		entry.Contributed += amount
		entry.FairShare += fairShare
		entry.Balance += amount - fairShare
	}

	out := make([]domain.MemberBalance, 0, len(order))
	for _, id := range order {
		out = append(out, *byUser[id])
	}
	return out, nil
}

func sortByPurchaseDate(rows []domain.PurchaseRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].PurchaseDate.Equal(rows[j].PurchaseDate) {
			return rows[i].PurchaseID < rows[j].PurchaseID
		}
		return rows[i].PurchaseDate.Before(rows[j].PurchaseDate)
	})
}
