// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// User represents a household member account.
type User struct {
	ID                  snowflake.ID      `gorm:"primaryKey" json:"id"`
	Email               string            `gorm:"type:text;not null;uniqueIndex" json:"email"`
	DisplayName         string            `gorm:"type:text;not null" json:"display_name"`
	PasswordHash        *string           `gorm:"type:text" json:"-"`
	Role                string            `gorm:"type:text;not null;default:'member'" json:"role"`
	Permissions         datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"permissions"`
	Active              bool              `gorm:"not null;default:true" json:"active"`
	Locked              bool              `gorm:"not null;default:false" json:"locked"`
	FailedLoginAttempts int               `gorm:"not null;default:0" json:"-"`
	LastLoginAt         *time.Time        `json:"last_login_at,omitempty"`
	CreatedAt           time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// Session represents a persisted login session.
type Session struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	UserID           snowflake.ID `gorm:"column:user_id;not null;index"`
	SessionTokenHash string       `gorm:"column:session_token_hash;type:text;not null;uniqueIndex"`
	UserAgent        string       `gorm:"column:user_agent;type:text"`
	IPAddress        string       `gorm:"column:ip_address;type:text"`
	ExpiresAt        time.Time    `gorm:"column:expires_at;not null;index"`
	RevokedAt        *time.Time   `gorm:"column:revoked_at"`
	CreatedAt        time.Time    `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	LastSeenAt       time.Time    `gorm:"column:last_seen_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }

// Actor is the resolved identity a request acts as. Gate and authorization
// decisions take an Actor value instead of a raw role string.
type Actor struct {
	UserID      snowflake.ID
	Role        string
	Permissions map[string]bool
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// Can reports whether the actor's permission bag grants a capability.
// Admins hold every capability implicitly.
func (a Actor) Can(capability string) bool {
	if a.IsAdmin() {
		return true
	}
	return a.Permissions[capability]
}

// ActorForUser builds an Actor from a stored user row.
func ActorForUser(u *User) Actor {
	perms := make(map[string]bool, len(u.Permissions))
	for key, raw := range u.Permissions {
		if allowed, ok := raw.(bool); ok {
			perms[key] = allowed
		}
	}
	return Actor{UserID: u.ID, Role: u.Role, Permissions: perms}
}
