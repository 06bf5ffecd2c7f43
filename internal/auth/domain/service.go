package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	Authenticate(ctx context.Context, rawToken string) (*Session, error)
	CurrentUser(ctx context.Context, userID snowflake.ID) (*User, error)
	ChangePassword(ctx context.Context, userID snowflake.ID, currentPassword, newPassword string) error

	CreateUser(ctx context.Context, actor Actor, req CreateUserRequest) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, actor Actor, req UpdateUserRequest) (*User, error)
	UnlockUser(ctx context.Context, actor Actor, userID string) error
}

type LoginRequest struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

type LoginResult struct {
	User      *User
	RawToken  string
	ExpiresAt time.Time
	SessionID snowflake.ID
}

type CreateUserRequest struct {
	Email       string
	DisplayName string
	Password    string
	Role        string
	Permissions map[string]bool
}

type UpdateUserRequest struct {
	ID          string
	DisplayName *string
	Role        *string
	Permissions map[string]bool
	Active      *bool
}
