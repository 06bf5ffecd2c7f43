package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/wattshare/wattshare/internal/auth/domain"
	"github.com/wattshare/wattshare/internal/auth/password"
	"github.com/wattshare/wattshare/internal/auth/session"
	"github.com/wattshare/wattshare/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	minPasswordLength = 8

	// After this many consecutive failures the account locks and stays
	// locked until an admin unlocks it.
	maxFailedLoginAttempts = 5
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Cfg   config.Config
	Repo  domain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	sessionTTL time.Duration
}

func New(p Params) domain.Service {
	ttl := time.Duration(p.Cfg.SessionTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("auth.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		sessionTTL: ttl,
	}
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindUserByEmail(ctx, s.db, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !user.Active {
		return nil, domain.ErrAccountInactive
	}
	if user.Locked {
		return nil, domain.ErrAccountLocked
	}
	if user.PasswordHash == nil || !password.Verify(req.Password, *user.PasswordHash) {
		user.FailedLoginAttempts++
		if user.FailedLoginAttempts >= maxFailedLoginAttempts {
			user.Locked = true
			s.log.Warn("account locked after repeated failures",
				zap.String("user_id", user.ID.String()),
				zap.Int("attempts", user.FailedLoginAttempts),
			)
		}
		if updateErr := s.repo.UpdateUser(ctx, s.db, user); updateErr != nil {
			return nil, updateErr
		}
		if user.Locked {
			return nil, domain.ErrAccountLocked
		}
		return nil, domain.ErrInvalidCredentials
	}

	rawToken, err := session.NewToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sess := &domain.Session{
		ID:               s.genID.Generate(),
		UserID:           user.ID,
		SessionTokenHash: session.HashToken(rawToken),
		UserAgent:        strings.TrimSpace(req.UserAgent),
		IPAddress:        strings.TrimSpace(req.IPAddress),
		ExpiresAt:        now.Add(s.sessionTTL),
		CreatedAt:        now,
		LastSeenAt:       now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user.FailedLoginAttempts = 0
		user.LastLoginAt = &now
		if err := s.repo.UpdateUser(ctx, tx, user); err != nil {
			return err
		}
		return s.repo.InsertSession(ctx, tx, sess)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("login",
		zap.String("user_id", user.ID.String()),
		zap.String("session_id", sess.ID.String()),
	)
	return &domain.LoginResult{
		User:      user,
		RawToken:  rawToken,
		ExpiresAt: sess.ExpiresAt,
		SessionID: sess.ID,
	}, nil
}

func (s *Service) Logout(ctx context.Context, rawToken string) error {
	sess, err := s.repo.FindSessionByTokenHash(ctx, s.db, session.HashToken(rawToken))
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.repo.RevokeSession(ctx, s.db, sess.ID)
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.Session, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, domain.ErrInvalidSession
	}

	sess, err := s.repo.FindSessionByTokenHash(ctx, s.db, session.HashToken(rawToken))
	if err != nil {
		return nil, err
	}
	if sess.RevokedAt != nil {
		return nil, domain.ErrSessionRevoked
	}
	if time.Now().UTC().After(sess.ExpiresAt) {
		return nil, domain.ErrSessionExpired
	}

	if err := s.repo.TouchSession(ctx, s.db, sess.ID); err != nil {
		s.log.Warn("touch session", zap.Error(err))
	}
	return sess, nil
}

func (s *Service) CurrentUser(ctx context.Context, userID snowflake.ID) (*domain.User, error) {
	return s.repo.FindUserByID(ctx, s.db, userID)
}

func (s *Service) ChangePassword(ctx context.Context, userID snowflake.ID, currentPassword, newPassword string) error {
	if len(strings.TrimSpace(newPassword)) < minPasswordLength {
		return domain.ErrInvalidPassword
	}

	user, err := s.repo.FindUserByID(ctx, s.db, userID)
	if err != nil {
		return err
	}
	if user.PasswordHash == nil || !password.Verify(currentPassword, *user.PasswordHash) {
		return domain.ErrInvalidCredentials
	}

	hashed, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = &hashed
	return s.repo.UpdateUser(ctx, s.db, user)
}

func (s *Service) CreateUser(ctx context.Context, actor domain.Actor, req domain.CreateUserRequest) (*domain.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}
	if len(strings.TrimSpace(req.Password)) < minPasswordLength {
		return nil, domain.ErrInvalidPassword
	}

	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = domain.RoleMember
	}
	if role != domain.RoleAdmin && role != domain.RoleMember {
		return nil, domain.ErrInvalidRole
	}

	if _, err := s.repo.FindUserByEmail(ctx, s.db, email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = defaultDisplayName(email)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           s.genID.Generate(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: &hashed,
		Role:         role,
		Permissions:  permissionsJSON(req.Permissions),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.InsertUser(ctx, s.db, user); err != nil {
		return nil, err
	}

	s.log.Info("user created",
		zap.String("user_id", user.ID.String()),
		zap.String("role", user.Role),
		zap.String("created_by", actor.UserID.String()),
	)
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.repo.ListUsers(ctx, s.db)
}

func (s *Service) UpdateUser(ctx context.Context, actor domain.Actor, req domain.UpdateUserRequest) (*domain.User, error) {
	id, err := domain.ParseID(req.ID)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	user, err := s.repo.FindUserByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name != "" {
			user.DisplayName = name
		}
	}
	if req.Role != nil {
		role := strings.TrimSpace(*req.Role)
		if role != domain.RoleAdmin && role != domain.RoleMember {
			return nil, domain.ErrInvalidRole
		}
		user.Role = role
	}
	if req.Permissions != nil {
		user.Permissions = permissionsJSON(req.Permissions)
	}
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := s.repo.UpdateUser(ctx, s.db, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) UnlockUser(ctx context.Context, actor domain.Actor, userID string) error {
	id, err := domain.ParseID(userID)
	if err != nil {
		return domain.ErrInvalidID
	}

	user, err := s.repo.FindUserByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	user.Locked = false
	user.FailedLoginAttempts = 0
	if err := s.repo.UpdateUser(ctx, s.db, user); err != nil {
		return err
	}

	s.log.Info("account unlocked",
		zap.String("user_id", user.ID.String()),
		zap.String("unlocked_by", actor.UserID.String()),
	)
	return nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", domain.ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", domain.ErrInvalidEmail
	}
	return email, nil
}

func defaultDisplayName(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}

func permissionsJSON(perms map[string]bool) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for key, allowed := range perms {
		out[key] = allowed
	}
	return out
}
