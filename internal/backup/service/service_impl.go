package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/snappy"
	"github.com/oklog/ulid/v2"
	auditdomain "github.com/wattshare/wattshare/internal/audit/domain"
	authdomain "github.com/wattshare/wattshare/internal/auth/domain"
	"github.com/wattshare/wattshare/internal/backup/domain"
	contributiondomain "github.com/wattshare/wattshare/internal/contribution/domain"
	gatedomain "github.com/wattshare/wattshare/internal/gate/domain"
	meterreadingdomain "github.com/wattshare/wattshare/internal/meterreading/domain"
	purchasedomain "github.com/wattshare/wattshare/internal/purchase/domain"
	receiptdomain "github.com/wattshare/wattshare/internal/receipt/domain"
	reconciledomain "github.com/wattshare/wattshare/internal/reconcile/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Repo      domain.Repository
	Reconcile reconciledomain.Service
	Gate      gatedomain.Service
	Audit     auditdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	repo      domain.Repository
	reconcile reconciledomain.Service
	gate      gatedomain.Service
	audit     auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("backup.service"),
		repo:      p.Repo,
		reconcile: p.Reconcile,
		gate:      p.Gate,
		audit:     p.Audit,
	}
}

func (s *Service) Export(ctx context.Context) (*domain.Document, error) {
	users, err := s.repo.LoadUsers(ctx, s.db)
	if err != nil {
		return nil, err
	}
	sessions, err := s.repo.LoadSessions(ctx, s.db)
	if err != nil {
		return nil, err
	}
	purchases, err := s.repo.LoadPurchases(ctx, s.db)
	if err != nil {
		return nil, err
	}
	contributions, err := s.repo.LoadContributions(ctx, s.db)
	if err != nil {
		return nil, err
	}
	readings, err := s.repo.LoadMeterReadings(ctx, s.db)
	if err != nil {
		return nil, err
	}
	receipts, err := s.repo.LoadReceipts(ctx, s.db)
	if err != nil {
		return nil, err
	}

	doc := &domain.Document{
		Metadata: domain.Metadata{
			ID:        ulid.Make().String(),
			Timestamp: time.Now().UTC(),
			Type:      domain.TypeFull,
			RecordCounts: map[string]int{
				"users":              len(users),
				"tokenPurchases":     len(purchases),
				"userContributions":  len(contributions),
				"meterReadings":      len(readings),
				"receiptData":        len(receipts),
				"accounts":           0,
				"sessions":           len(sessions),
				"verificationTokens": 0,
			},
		},
		Users:              make([]domain.UserSnapshot, 0, len(users)),
		TokenPurchases:     make([]domain.PurchaseSnapshot, 0, len(purchases)),
		UserContributions:  make([]domain.ContributionSnapshot, 0, len(contributions)),
		MeterReadings:      make([]domain.MeterReadingSnapshot, 0, len(readings)),
		ReceiptData:        make([]domain.ReceiptSnapshot, 0, len(receipts)),
		Accounts:           []map[string]any{},
		Sessions:           make([]domain.SessionSnapshot, 0, len(sessions)),
		VerificationTokens: []map[string]any{},
	}

	for i := range users {
		doc.Users = append(doc.Users, userSnapshot(&users[i]))
	}
	for i := range sessions {
		doc.Sessions = append(doc.Sessions, sessionSnapshot(&sessions[i]))
	}
	for i := range purchases {
		doc.TokenPurchases = append(doc.TokenPurchases, purchaseSnapshot(&purchases[i]))
	}
	for i := range contributions {
		doc.UserContributions = append(doc.UserContributions, contributionSnapshot(&contributions[i]))
	}
	for i := range readings {
		doc.MeterReadings = append(doc.MeterReadings, meterReadingSnapshot(&readings[i]))
	}
	for i := range receipts {
		doc.ReceiptData = append(doc.ReceiptData, receiptSnapshot(&receipts[i]))
	}

	s.log.Info("backup exported",
		zap.String("backup_id", doc.Metadata.ID),
		zap.Int("purchases", len(purchases)),
	)
	return doc, nil
}

func (s *Service) Encode(doc *domain.Document, opts domain.ExportOptions) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	if opts.Compress {
		return snappy.Encode(nil, raw), nil
	}
	return raw, nil
}

func (s *Service) Decode(raw []byte) (*domain.Document, error) {
	var doc domain.Document
	if err := json.Unmarshal(raw, &doc); err == nil {
		return &doc, nil
	}
	decoded, err := snappy.Decode(nil, raw)
	if err != nil {
		return nil, domain.ErrInvalidDocument
	}
	if err := json.Unmarshal(decoded, &doc); err != nil {
		return nil, domain.ErrInvalidDocument
	}
	return &doc, nil
}

func (s *Service) Restore(ctx context.Context, doc *domain.Document) error {
	if doc == nil {
		return domain.ErrInvalidDocument
	}
	if doc.Metadata.Type != "" && doc.Metadata.Type != domain.TypeFull {
		return domain.ErrInvalidType
	}

	users, err := usersFromSnapshots(doc.Users)
	if err != nil {
		return err
	}
	sessions, err := sessionsFromSnapshots(doc.Sessions)
	if err != nil {
		return err
	}
	purchases, err := purchasesFromSnapshots(doc.TokenPurchases)
	if err != nil {
		return err
	}
	contributions, err := contributionsFromSnapshots(doc.UserContributions)
	if err != nil {
		return err
	}
	readings, err := meterReadingsFromSnapshots(doc.MeterReadings)
	if err != nil {
		return err
	}
	receipts, err := receiptsFromSnapshots(doc.ReceiptData)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.WipeManagedTables(ctx, tx); err != nil {
			return err
		}
		if err := s.repo.InsertUsers(ctx, tx, users); err != nil {
			return err
		}
		if err := s.repo.InsertSessions(ctx, tx, sessions); err != nil {
			return err
		}
		if err := s.repo.InsertPurchases(ctx, tx, purchases); err != nil {
			return err
		}
		if err := s.repo.InsertContributions(ctx, tx, contributions); err != nil {
			return err
		}
		if err := s.repo.InsertMeterReadings(ctx, tx, readings); err != nil {
			return err
		}
		if err := s.repo.InsertReceipts(ctx, tx, receipts); err != nil {
			return err
		}
		if _, err := s.reconcile.RecalculateWithDB(ctx, tx); err != nil {
			return err
		}
		backupID := doc.Metadata.ID
		return s.audit.RecordWithDB(ctx, tx, auditdomain.Entry{
			Action:     "backup.restored",
			TargetType: "backup",
			TargetID:   &backupID,
			NewValues: map[string]any{
				"record_counts": doc.Metadata.RecordCounts,
			},
		})
	})
	if err != nil {
		return err
	}

	s.gate.InvalidateCache()
	s.log.Info("backup restored",
		zap.String("backup_id", doc.Metadata.ID),
		zap.Int("purchases", len(purchases)),
	)
	return nil
}

func userSnapshot(u *authdomain.User) domain.UserSnapshot {
	return domain.UserSnapshot{
		ID:                  u.ID.String(),
		Email:               u.Email,
		DisplayName:         u.DisplayName,
		PasswordHash:        u.PasswordHash,
		Role:                u.Role,
		Permissions:         u.Permissions,
		Active:              u.Active,
		Locked:              u.Locked,
		FailedLoginAttempts: u.FailedLoginAttempts,
		LastLoginAt:         u.LastLoginAt,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}

func sessionSnapshot(s *authdomain.Session) domain.SessionSnapshot {
	return domain.SessionSnapshot{
		ID:               s.ID.String(),
		UserID:           s.UserID.String(),
		SessionTokenHash: s.SessionTokenHash,
		UserAgent:        s.UserAgent,
		IPAddress:        s.IPAddress,
		ExpiresAt:        s.ExpiresAt,
		RevokedAt:        s.RevokedAt,
		CreatedAt:        s.CreatedAt,
		LastSeenAt:       s.LastSeenAt,
	}
}

func purchaseSnapshot(p *purchasedomain.Purchase) domain.PurchaseSnapshot {
	return domain.PurchaseSnapshot{
		ID:           p.ID.String(),
		TotalTokens:  p.TotalTokens,
		TotalPayment: p.TotalPayment,
		MeterReading: p.MeterReading,
		PurchaseDate: p.PurchaseDate,
		IsEmergency:  p.IsEmergency,
		CreatedBy:    p.CreatedBy.String(),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func contributionSnapshot(c *contributiondomain.Contribution) domain.ContributionSnapshot {
	return domain.ContributionSnapshot{
		ID:                 c.ID.String(),
		PurchaseID:         c.PurchaseID.String(),
		UserID:             c.UserID.String(),
		ContributionAmount: c.ContributionAmount,
		MeterReading:       c.MeterReading,
		TokensConsumed:     c.TokensConsumed,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}

func meterReadingSnapshot(m *meterreadingdomain.MeterReading) domain.MeterReadingSnapshot {
	return domain.MeterReadingSnapshot{
		ID:          m.ID.String(),
		UserID:      m.UserID.String(),
		Reading:     m.Reading,
		ReadingDate: m.ReadingDate,
		Notes:       m.Notes,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func receiptSnapshot(r *receiptdomain.Receipt) domain.ReceiptSnapshot {
	return domain.ReceiptSnapshot{
		ID:          r.ID.String(),
		PurchaseID:  r.PurchaseID.String(),
		FileName:    r.FileName,
		MimeType:    r.MimeType,
		TotalAmount: r.TotalAmount,
		UploadedBy:  r.UploadedBy.String(),
		CreatedAt:   r.CreatedAt,
	}
}

func usersFromSnapshots(snapshots []domain.UserSnapshot) ([]authdomain.User, error) {
	out := make([]authdomain.User, 0, len(snapshots))
	for _, snap := range snapshots {
		id, err := parseSnapshotID(snap.ID)
		if err != nil {
			return nil, err
		}
		perms := datatypes.JSONMap{}
		for key, value := range snap.Permissions {
			perms[key] = value
		}
		out = append(out, authdomain.User{
			ID:                  id,
			Email:               snap.Email,
			DisplayName:         snap.DisplayName,
			PasswordHash:        snap.PasswordHash,
			Role:                snap.Role,
			Permissions:         perms,
			Active:              snap.Active,
			Locked:              snap.Locked,
			FailedLoginAttempts: snap.FailedLoginAttempts,
			LastLoginAt:         snap.LastLoginAt,
			CreatedAt:           snap.CreatedAt,
			UpdatedAt:           snap.UpdatedAt,
		})
	}
	return out, nil
}

func sessionsFromSnapshots(snapshots []domain.SessionSnapshot) ([]authdomain.Session, error) {
	out := make([]authdomain.Session, 0, len(snapshots))
	for _, snap := range snapshots {
		id, err := parseSnapshotID(snap.ID)
		if err != nil {
			return nil, err
		}
		userID, err := parseSnapshotID(snap.UserID)
		if err != nil {
			return nil, err
		}
		out = append(out, authdomain.Session{
			ID:               id,
			UserID:           userID,
			SessionTokenHash: snap.SessionTokenHash,
			UserAgent:        snap.UserAgent,
			IPAddress:        snap.IPAddress,
			ExpiresAt:        snap.ExpiresAt,
			RevokedAt:        snap.RevokedAt,
			CreatedAt:        snap.CreatedAt,
			LastSeenAt:       snap.LastSeenAt,
		})
	}
	return out, nil
}

func purchasesFromSnapshots(snapshots []domain.PurchaseSnapshot) ([]purchasedomain.Purchase, error) {
	out := make([]purchasedomain.Purchase, 0, len(snapshots))
	for _, snap := range snapshots {
		id, err := parseSnapshotID(snap.ID)
		if err != nil {
			return nil, err
		}
		createdBy, err := parseSnapshotID(snap.CreatedBy)
		if err != nil {
			return nil, err
		}
		out = append(out, purchasedomain.Purchase{
			ID:           id,
			TotalTokens:  snap.TotalTokens,
			TotalPayment: snap.TotalPayment,
			MeterReading: snap.MeterReading,
			PurchaseDate: snap.PurchaseDate,
			IsEmergency:  snap.IsEmergency,
			CreatedBy:    createdBy,
			CreatedAt:    snap.CreatedAt,
			UpdatedAt:    snap.UpdatedAt,
		})
	}
	return out, nil
}

func contributionsFromSnapshots(snapshots []domain.ContributionSnapshot) ([]contributiondomain.Contribution, error) {
	out := make([]contributiondomain.Contribution, 0, len(snapshots))
	for _, snap := range snapshots {
		id, err := parseSnapshotID(snap.ID)
		if err != nil {
			return nil, err
		}
		purchaseID, err := parseSnapshotID(snap.PurchaseID)
		if err != nil {
			return nil, err
		}
		userID, err := parseSnapshotID(snap.UserID)
		if err != nil {
			return nil, err
		}
		out = append(out, contributiondomain.Contribution{
			ID:                 id,
			PurchaseID:         purchaseID,
			UserID:             userID,
			ContributionAmount: snap.ContributionAmount,
			MeterReading:       snap.MeterReading,
			TokensConsumed:     snap.TokensConsumed,
			CreatedAt:          snap.CreatedAt,
			UpdatedAt:          snap.UpdatedAt,
		})
	}
	return out, nil
}

func meterReadingsFromSnapshots(snapshots []domain.MeterReadingSnapshot) ([]meterreadingdomain.MeterReading, error) {
	out := make([]meterreadingdomain.MeterReading, 0, len(snapshots))
	for _, snap := range snapshots {
		id, err := parseSnapshotID(snap.ID)
		if err != nil {
			return nil, err
		}
		userID, err := parseSnapshotID(snap.UserID)
		if err != nil {
			return nil, err
		}
		out = append(out, meterreadingdomain.MeterReading{
			ID:          id,
			UserID:      userID,
			Reading:     snap.Reading,
			ReadingDate: snap.ReadingDate,
			Notes:       snap.Notes,
			CreatedAt:   snap.CreatedAt,
			UpdatedAt:   snap.UpdatedAt,
		})
	}
	return out, nil
}

func receiptsFromSnapshots(snapshots []domain.ReceiptSnapshot) ([]receiptdomain.Receipt, error) {
	out := make([]receiptdomain.Receipt, 0, len(snapshots))
	for _, snap := range snapshots {
		id, err := parseSnapshotID(snap.ID)
		if err != nil {
			return nil, err
		}
		purchaseID, err := parseSnapshotID(snap.PurchaseID)
		if err != nil {
			return nil, err
		}
		uploadedBy, err := parseSnapshotID(snap.UploadedBy)
		if err != nil {
			return nil, err
		}
		out = append(out, receiptdomain.Receipt{
			ID:          id,
			PurchaseID:  purchaseID,
			FileName:    snap.FileName,
			MimeType:    snap.MimeType,
			TotalAmount: snap.TotalAmount,
			UploadedBy:  uploadedBy,
			CreatedAt:   snap.CreatedAt,
		})
	}
	return out, nil
}

func parseSnapshotID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidDocument
	}
	return id, nil
}
