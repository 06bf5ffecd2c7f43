// Package authorization enforces role and per-user capability policies.
package authorization

import (
	"context"
	"errors"

	authdomain "github.com/wattshare/wattshare/internal/auth/domain"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid actor")
	ErrInvalidObject = errors.New("invalid object")
	ErrInvalidAction = errors.New("invalid action")
)

type Service interface {
	// Authorize returns nil when the actor may perform action on object.
	Authorize(ctx context.Context, actor authdomain.Actor, object string, action string) error
	// SyncUserPolicies rewrites the per-user capability policies after a
	// permission bag changes.
	SyncUserPolicies(actor authdomain.Actor) error
}
