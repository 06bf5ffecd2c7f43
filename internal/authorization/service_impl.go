package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/wattshare/wattshare/internal/audit/domain"
	authdomain "github.com/wattshare/wattshare/internal/auth/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectPurchase     = "purchase"
	ObjectContribution = "contribution"
	ObjectMeterReading = "meter_reading"
	ObjectReceipt      = "receipt"
	ObjectBalance      = "balance"
	ObjectReconcile    = "reconcile"
	ObjectBackup       = "backup"
	ObjectReport       = "report"
	ObjectUser         = "user"
	ObjectAuditLog     = "audit_log"
)

const (
	ActionPurchaseView   = "purchase.view"
	ActionPurchaseCreate = "purchase.create"
	ActionPurchaseUpdate = "purchase.update"
	ActionPurchaseDelete = "purchase.delete"

	ActionContributionView   = "contribution.view"
	ActionContributionCreate = "contribution.create"
	ActionContributionUpdate = "contribution.update"
	ActionContributionDelete = "contribution.delete"

	ActionMeterReadingView   = "meter_reading.view"
	ActionMeterReadingCreate = "meter_reading.create"
	ActionMeterReadingUpdate = "meter_reading.update"
	ActionMeterReadingDelete = "meter_reading.delete"

	ActionReceiptView     = "receipt.view"
	ActionReceiptGenerate = "receipt.generate"

	ActionBalanceView  = "balance.view"
	ActionReconcileRun = "reconcile.run"

	ActionBackupCreate  = "backup.create"
	ActionBackupRestore = "backup.restore"

	ActionReportView   = "report.view"
	ActionReportExport = "report.export"

	ActionUserView   = "user.view"
	ActionUserManage = "user.manage"

	ActionAuditLogView = "audit_log.view"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor authdomain.Actor, object string, action string) error {
	if actor.UserID == 0 {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := subjectForUser(actor)
	roleName := fmt.Sprintf("role:%s", strings.ToLower(strings.TrimSpace(actor.Role)))
	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}
	if err := s.SyncUserPolicies(actor); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, actor, object, action)
		return ErrForbidden
	}

	if shouldAuditGrant(action) {
		s.auditGranted(ctx, actor, object, action)
	}
	return nil
}

// SyncUserPolicies materializes the user's permission bag as per-user
// policies so capability grants survive role checks.
func (s *ServiceImpl) SyncUserPolicies(actor authdomain.Actor) error {
	subject := subjectForUser(actor)

	existing, err := s.enforcer.GetFilteredPolicy(0, subject)
	if err != nil {
		return err
	}
	want := make(map[string]bool, len(actor.Permissions))
	for capability, allowed := range actor.Permissions {
		if !allowed {
			continue
		}
		object, action, ok := splitCapability(capability)
		if !ok {
			continue
		}
		want[object+"\x00"+action] = true
	}

	for _, rule := range existing {
		if len(rule) < 3 {
			continue
		}
		key := rule[1] + "\x00" + rule[2]
		if want[key] {
			delete(want, key)
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		if _, err := s.enforcer.RemovePolicy(params...); err != nil {
			return err
		}
	}
	for key := range want {
		object, action, _ := strings.Cut(key, "\x00")
		if _, err := s.enforcer.AddPolicy(subject, object, action); err != nil {
			return err
		}
	}
	return nil
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actor authdomain.Actor, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	actorID := actor.UserID.String()
	targetID := "capability"
	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		ActorID:    &actorID,
		Action:     "authorization.denied",
		TargetType: "authorization",
		TargetID:   &targetID,
		NewValues: map[string]any{
			"object": object,
			"action": action,
			"role":   actor.Role,
		},
	})
}

func (s *ServiceImpl) auditGranted(ctx context.Context, actor authdomain.Actor, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	actorID := actor.UserID.String()
	targetID := "capability"
	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		ActorID:    &actorID,
		Action:     "authorization.granted",
		TargetType: "authorization",
		TargetID:   &targetID,
		NewValues: map[string]any{
			"object": object,
			"action": action,
			"role":   actor.Role,
		},
	})
}

func subjectForUser(actor authdomain.Actor) string {
	return fmt.Sprintf("user:%s", actor.UserID.String())
}

func splitCapability(capability string) (string, string, bool) {
	object, _, found := strings.Cut(capability, ".")
	if !found || object == "" {
		return "", "", false
	}
	return object, capability, true
}

func shouldAuditGrant(action string) bool {
	switch action {
	case ActionBackupRestore, ActionUserManage, ActionReconcileRun:
		return true
	default:
		return false
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Every member records purchases, own contributions, and readings.
		{"role:member", ObjectPurchase, ActionPurchaseView},
		{"role:member", ObjectPurchase, ActionPurchaseCreate},
		{"role:member", ObjectPurchase, ActionPurchaseUpdate},
		{"role:member", ObjectContribution, ActionContributionView},
		{"role:member", ObjectContribution, ActionContributionCreate},
		{"role:member", ObjectContribution, ActionContributionUpdate},
		{"role:member", ObjectContribution, ActionContributionDelete},
		{"role:member", ObjectMeterReading, ActionMeterReadingView},
		{"role:member", ObjectMeterReading, ActionMeterReadingCreate},
		{"role:member", ObjectReceipt, ActionReceiptView},
		{"role:member", ObjectReceipt, ActionReceiptGenerate},
		{"role:member", ObjectBalance, ActionBalanceView},
		{"role:member", ObjectReport, ActionReportView},

		// Admin permissions
		{"role:admin", ObjectPurchase, ActionPurchaseView},
		{"role:admin", ObjectPurchase, ActionPurchaseCreate},
		{"role:admin", ObjectPurchase, ActionPurchaseUpdate},
		{"role:admin", ObjectPurchase, ActionPurchaseDelete},
		{"role:admin", ObjectContribution, ActionContributionView},
		{"role:admin", ObjectContribution, ActionContributionCreate},
		{"role:admin", ObjectContribution, ActionContributionUpdate},
		{"role:admin", ObjectContribution, ActionContributionDelete},
		{"role:admin", ObjectMeterReading, ActionMeterReadingView},
		{"role:admin", ObjectMeterReading, ActionMeterReadingCreate},
		{"role:admin", ObjectMeterReading, ActionMeterReadingUpdate},
		{"role:admin", ObjectMeterReading, ActionMeterReadingDelete},
		{"role:admin", ObjectReceipt, ActionReceiptView},
		{"role:admin", ObjectReceipt, ActionReceiptGenerate},
		{"role:admin", ObjectBalance, ActionBalanceView},
		{"role:admin", ObjectReconcile, ActionReconcileRun},
		{"role:admin", ObjectBackup, ActionBackupCreate},
		{"role:admin", ObjectBackup, ActionBackupRestore},
		{"role:admin", ObjectReport, ActionReportView},
		{"role:admin", ObjectReport, ActionReportExport},
		{"role:admin", ObjectUser, ActionUserView},
		{"role:admin", ObjectUser, ActionUserManage},
		{"role:admin", ObjectAuditLog, ActionAuditLogView},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
