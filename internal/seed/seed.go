// Package seed bootstraps the first admin account so a fresh install can
// log in without manual SQL.
package seed

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/wattshare/wattshare/internal/auth/domain"
	"github.com/wattshare/wattshare/internal/auth/password"
	"github.com/wattshare/wattshare/internal/config"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EnsureAdmin creates the bootstrap admin user when the users table is
// empty. Idempotent across restarts.
func EnsureAdmin(db *gorm.DB, cfg config.Config, genID *snowflake.Node) error {
	var count int64
	if err := db.Model(&authdomain.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	email := strings.ToLower(strings.TrimSpace(cfg.BootstrapAdminEmail))
	if email == "" {
		return nil
	}

	hashed, err := password.Hash(cfg.BootstrapAdminPassword)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	admin := authdomain.User{
		ID:           genID.Generate(),
		Email:        email,
		DisplayName:  "Administrator",
		PasswordHash: &hashed,
		Role:         authdomain.RoleAdmin,
		Permissions:  datatypes.JSONMap{},
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return db.Create(&admin).Error
}
