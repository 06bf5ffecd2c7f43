package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/wattshare/wattshare/internal/auth/domain"
	"github.com/wattshare/wattshare/internal/config"
	meterreadingdomain "github.com/wattshare/wattshare/internal/meterreading/domain"
	"github.com/wattshare/wattshare/internal/providers/pdf"
	reconciledomain "github.com/wattshare/wattshare/internal/reconcile/domain"
	"github.com/wattshare/wattshare/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	Holder        *config.HouseholdConfigHolder
	ReconcileRepo reconciledomain.Repository
	Reconcile     reconciledomain.Service
	ReadingRepo   meterreadingdomain.Repository
	AuthRepo      authdomain.Repository
	PDF           pdf.Provider
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	holder        *config.HouseholdConfigHolder
	reconcileRepo reconciledomain.Repository
	reconcile     reconciledomain.Service
	readingRepo   meterreadingdomain.Repository
	authRepo      authdomain.Repository
	pdf           pdf.Provider
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("report.service"),
		holder:        p.Holder,
		reconcileRepo: p.ReconcileRepo,
		reconcile:     p.Reconcile,
		readingRepo:   p.ReadingRepo,
		authRepo:      p.AuthRepo,
		pdf:           p.PDF,
	}
}

func (s *Service) ExportCSV(ctx context.Context, table string, w io.Writer) error {
	switch table {
	case domain.TablePurchases:
		return s.purchasesCSV(ctx, w)
	case domain.TableContributions:
		return s.contributionsCSV(ctx, w)
	case domain.TableMeterReadings:
		return s.meterReadingsCSV(ctx, w)
	default:
		return domain.ErrUnknownTable
	}
}

func (s *Service) purchasesCSV(ctx context.Context, w io.Writer) error {
	rows, err := s.reconcileRepo.PurchasesWithContribution(ctx, s.db)
	if err != nil {
		return err
	}

	out := csv.NewWriter(w)
	if err := out.Write([]string{
		"id", "purchase_date", "total_tokens", "total_payment", "meter_reading", "has_contribution",
	}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.PurchaseID.String(),
			row.PurchaseDate.UTC().Format("2006-01-02"),
			formatFloat(row.TotalTokens),
			formatFloat(row.TotalPayment),
			formatFloat(row.MeterReading),
			strconv.FormatBool(row.ContributionID != nil),
		}
		if err := out.Write(record); err != nil {
			return err
		}
	}
	out.Flush()
	return out.Error()
}

func (s *Service) contributionsCSV(ctx context.Context, w io.Writer) error {
	rows, err := s.reconcileRepo.PurchasesWithContribution(ctx, s.db)
	if err != nil {
		return err
	}
	names, err := s.displayNames(ctx)
	if err != nil {
		return err
	}

	out := csv.NewWriter(w)
	if err := out.Write([]string{
		"id", "purchase_id", "purchase_date", "member", "contribution_amount", "meter_reading", "tokens_consumed",
	}); err != nil {
		return err
	}
	for _, row := range rows {
		if row.ContributionID == nil {
			continue
		}
		record := []string{
			row.ContributionID.String(),
			row.PurchaseID.String(),
			row.PurchaseDate.UTC().Format("2006-01-02"),
			memberName(names, row.UserID),
			formatFloat(deref(row.ContributionAmount)),
			formatFloat(row.MeterReading),
			formatFloat(deref(row.TokensConsumed)),
		}
		if err := out.Write(record); err != nil {
			return err
		}
	}
	out.Flush()
	return out.Error()
}

func (s *Service) meterReadingsCSV(ctx context.Context, w io.Writer) error {
	readings, err := s.readingRepo.List(ctx, s.db, meterreadingdomain.ListFilter{})
	if err != nil {
		return err
	}
	names, err := s.displayNames(ctx)
	if err != nil {
		return err
	}

	out := csv.NewWriter(w)
	if err := out.Write([]string{
		"id", "reading_date", "reading", "member", "notes",
	}); err != nil {
		return err
	}
	for _, reading := range readings {
		userID := reading.UserID
		record := []string{
			reading.ID.String(),
			reading.ReadingDate.UTC().Format("2006-01-02"),
			formatFloat(reading.Reading),
			memberName(names, &userID),
			reading.Notes,
		}
		if err := out.Write(record); err != nil {
			return err
		}
	}
	out.Flush()
	return out.Error()
}

func (s *Service) SettlementCSV(ctx context.Context, w io.Writer) error {
	rows, err := s.reconcileRepo.PurchasesWithContribution(ctx, s.db)
	if err != nil {
		return err
	}
	names, err := s.displayNames(ctx)
	if err != nil {
		return err
	}

	out := csv.NewWriter(w)
	if err := out.Write([]string{
		"purchase_id", "purchase_date", "total_tokens", "total_payment",
		"member", "contribution_amount", "tokens_consumed", "fair_share", "running_balance",
	}); err != nil {
		return err
	}

	running := 0.0
	for i, row := range rows {
		member := ""
		contribution := 0.0
		tokens := 0.0
		fairShare := 0.0
		if row.ContributionID != nil {
			member = memberName(names, row.UserID)
			contribution = deref(row.ContributionAmount)
			tokens = deref(row.TokensConsumed)
			if i == 0 {
				tokens = 0
			}
			if row.TotalTokens != 0 {
				fairShare = (tokens / row.TotalTokens) * row.TotalPayment
			}
			running += contribution - fairShare
		}

		record := []string{
			row.PurchaseID.String(),
			row.PurchaseDate.UTC().Format("2006-01-02"),
			formatFloat(row.TotalTokens),
			formatFloat(row.TotalPayment),
			member,
			formatFloat(contribution),
			formatFloat(tokens),
			formatFloat(fairShare),
			formatFloat(running),
		}
		if err := out.Write(record); err != nil {
			return err
		}
	}
	out.Flush()
	return out.Error()
}

func (s *Service) StatementPDF(ctx context.Context) (io.Reader, error) {
	rows, err := s.reconcileRepo.PurchasesWithContribution(ctx, s.db)
	if err != nil {
		return nil, err
	}
	names, err := s.displayNames(ctx)
	if err != nil {
		return nil, err
	}
	balances, err := s.reconcile.MemberBalances(ctx)
	if err != nil {
		return nil, err
	}
	global, err := s.reconcile.CalculateGlobalBalance(ctx)
	if err != nil {
		return nil, err
	}

	household := s.holder.Current()
	money := func(v float64) string {
		return household.CurrencySymbol + strconv.FormatFloat(v, 'f', household.CurrencyPrecision, 64)
	}

	data := pdf.StatementData{
		HouseholdName: household.HouseholdName,
		Period:        statementPeriod(rows),
		GeneratedAt:   time.Now().UTC().Format("2006-01-02 15:04 MST"),
		EnergyUnit:    household.EnergyUnit,
		GlobalBalance: money(global),
	}

	for i, row := range rows {
		line := pdf.StatementLine{
			PurchaseDate: row.PurchaseDate.UTC().Format("2006-01-02"),
			Tokens:       formatFloat(row.TotalTokens),
			Payment:      money(row.TotalPayment),
			MeterReading: formatFloat(row.MeterReading),
		}
		if row.ContributionID != nil {
			tokens := deref(row.TokensConsumed)
			if i == 0 {
				tokens = 0
			}
			fairShare := 0.0
			if row.TotalTokens != 0 {
				fairShare = (tokens / row.TotalTokens) * row.TotalPayment
			}
			line.ContributorName = memberName(names, row.UserID)
			line.Contribution = money(deref(row.ContributionAmount))
			line.TokensConsumed = formatFloat(tokens)
			line.FairShare = money(fairShare)
		}
		data.Lines = append(data.Lines, line)
	}

	for _, balance := range balances {
		userID := balance.UserID
		data.Members = append(data.Members, pdf.MemberLine{
			Name:        memberName(names, &userID),
			Contributed: money(balance.Contributed),
			FairShare:   money(balance.FairShare),
			Balance:     money(balance.Balance),
		})
	}

	return s.pdf.GenerateStatement(ctx, data)
}

func (s *Service) displayNames(ctx context.Context) (map[snowflake.ID]string, error) {
	users, err := s.authRepo.ListUsers(ctx, s.db)
	if err != nil {
		return nil, err
	}
	names := make(map[snowflake.ID]string, len(users))
	for _, user := range users {
		names[user.ID] = user.DisplayName
	}
	return names, nil
}

func statementPeriod(rows []reconciledomain.PurchaseRow) string {
	if len(rows) == 0 {
		return "no purchases"
	}
	first := rows[0].PurchaseDate
	last := rows[0].PurchaseDate
	for _, row := range rows[1:] {
		if row.PurchaseDate.Before(first) {
			first = row.PurchaseDate
		}
		if row.PurchaseDate.After(last) {
			last = row.PurchaseDate
		}
	}
	return fmt.Sprintf("%s to %s", first.UTC().Format("2006-01-02"), last.UTC().Format("2006-01-02"))
}

func memberName(names map[snowflake.ID]string, id *snowflake.ID) string {
	if id == nil {
		return ""
	}
	if name, ok := names[*id]; ok {
		return name
	}
	return id.String()
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
