package authorization

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	authdomain "github.com/wattshare/wattshare/internal/auth/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupAuthorization(t *testing.T) (Service, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	enforcer, err := NewEnforcer(db)
	if err != nil {
		t.Fatalf("new enforcer: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	svc := NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
	return svc, node
}

func TestRolePolicies(t *testing.T) {
	svc, node := setupAuthorization(t)
	ctx := context.Background()

	member := authdomain.Actor{UserID: node.Generate(), Role: authdomain.RoleMember}
	admin := authdomain.Actor{UserID: node.Generate(), Role: authdomain.RoleAdmin}

	if err := svc.Authorize(ctx, member, ObjectPurchase, ActionPurchaseCreate); err != nil {
		t.Fatalf("member create purchase: %v", err)
	}
	if err := svc.Authorize(ctx, member, ObjectPurchase, ActionPurchaseDelete); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	if err := svc.Authorize(ctx, admin, ObjectPurchase, ActionPurchaseDelete); err != nil {
		t.Fatalf("admin delete purchase: %v", err)
	}
	if err := svc.Authorize(ctx, member, ObjectBackup, ActionBackupRestore); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestPermissionBagGrantsAndRevokes(t *testing.T) {
	svc, node := setupAuthorization(t)
	ctx := context.Background()
	id := node.Generate()

	// A member with an explicit capability grant gets past the role policy.
	granted := authdomain.Actor{
		UserID:      id,
		Role:        authdomain.RoleMember,
		Permissions: map[string]bool{"purchase.delete": true},
	}
	if err := svc.Authorize(ctx, granted, ObjectPurchase, ActionPurchaseDelete); err != nil {
		t.Fatalf("granted member: %v", err)
	}

	// Dropping the capability from the bag revokes the policy on next check.
	revoked := authdomain.Actor{UserID: id, Role: authdomain.RoleMember}
	if err := svc.Authorize(ctx, revoked, ObjectPurchase, ActionPurchaseDelete); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	// A grant flagged false is the same as no grant.
	denied := authdomain.Actor{
		UserID:      id,
		Role:        authdomain.RoleMember,
		Permissions: map[string]bool{"purchase.delete": false},
	}
	if err := svc.Authorize(ctx, denied, ObjectPurchase, ActionPurchaseDelete); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestAuthorizeRejectsBadInput(t *testing.T) {
	svc, node := setupAuthorization(t)
	ctx := context.Background()
	actor := authdomain.Actor{UserID: node.Generate(), Role: authdomain.RoleMember}

	if err := svc.Authorize(ctx, authdomain.Actor{}, ObjectPurchase, ActionPurchaseView); !errors.Is(err, ErrInvalidActor) {
		t.Fatalf("err = %v, want ErrInvalidActor", err)
	}
	if err := svc.Authorize(ctx, actor, "  ", ActionPurchaseView); !errors.Is(err, ErrInvalidObject) {
		t.Fatalf("err = %v, want ErrInvalidObject", err)
	}
	if err := svc.Authorize(ctx, actor, ObjectPurchase, ""); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("err = %v, want ErrInvalidAction", err)
	}
}

func TestRoleChangeReplacesGrouping(t *testing.T) {
	svc, node := setupAuthorization(t)
	ctx := context.Background()
	id := node.Generate()

	admin := authdomain.Actor{UserID: id, Role: authdomain.RoleAdmin}
	if err := svc.Authorize(ctx, admin, ObjectBackup, ActionBackupRestore); err != nil {
		t.Fatalf("admin restore: %v", err)
	}

	// Demoted to member, the old admin grouping must not linger.
	member := authdomain.Actor{UserID: id, Role: authdomain.RoleMember}
	if err := svc.Authorize(ctx, member, ObjectBackup, ActionBackupRestore); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}
