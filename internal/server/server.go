// Package server wires the HTTP surface: gin engine, middleware chain and
// route registration for every module.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wattshare/wattshare/internal/audit"
	auditdomain "github.com/wattshare/wattshare/internal/audit/domain"
	"github.com/wattshare/wattshare/internal/auth"
	authdomain "github.com/wattshare/wattshare/internal/auth/domain"
	"github.com/wattshare/wattshare/internal/auth/session"
	"github.com/wattshare/wattshare/internal/authorization"
	"github.com/wattshare/wattshare/internal/backup"
	backupdomain "github.com/wattshare/wattshare/internal/backup/domain"
	"github.com/wattshare/wattshare/internal/chronology"
	"github.com/wattshare/wattshare/internal/config"
	"github.com/wattshare/wattshare/internal/contribution"
	contributiondomain "github.com/wattshare/wattshare/internal/contribution/domain"
	"github.com/wattshare/wattshare/internal/gate"
	gatedomain "github.com/wattshare/wattshare/internal/gate/domain"
	"github.com/wattshare/wattshare/internal/meterreading"
	meterreadingdomain "github.com/wattshare/wattshare/internal/meterreading/domain"
	obsmiddleware "github.com/wattshare/wattshare/internal/observability/logger"
	obsmetrics "github.com/wattshare/wattshare/internal/observability/metrics"
	"github.com/wattshare/wattshare/internal/providers/pdf"
	"github.com/wattshare/wattshare/internal/purchase"
	purchasedomain "github.com/wattshare/wattshare/internal/purchase/domain"
	"github.com/wattshare/wattshare/internal/receipt"
	receiptdomain "github.com/wattshare/wattshare/internal/receipt/domain"
	"github.com/wattshare/wattshare/internal/reconcile"
	reconciledomain "github.com/wattshare/wattshare/internal/reconcile/domain"
	"github.com/wattshare/wattshare/internal/report"
	reportdomain "github.com/wattshare/wattshare/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	auth.Module,
	chronology.Module,
	gate.Module,
	reconcile.Module,
	purchase.Module,
	contribution.Module,
	meterreading.Module,
	receipt.Module,
	backup.Module,
	pdf.Module,
	report.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	sessions        *session.Manager
	loginLimiter    *rateLimiter
	authsvc         authdomain.Service
	authzSvc        authorization.Service
	auditSvc        auditdomain.Service
	purchaseSvc     purchasedomain.Service
	contributionSvc contributiondomain.Service
	meterReadingSvc meterreadingdomain.Service
	receiptSvc      receiptdomain.Service
	gateSvc         gatedomain.Service
	reconcileSvc    reconciledomain.Service
	backupSvc       backupdomain.Service
	reportSvc       reportdomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Sessions        *session.Manager
	Authsvc         authdomain.Service
	AuthzSvc        authorization.Service
	AuditSvc        auditdomain.Service
	PurchaseSvc     purchasedomain.Service
	ContributionSvc contributiondomain.Service
	MeterReadingSvc meterreadingdomain.Service
	ReceiptSvc      receiptdomain.Service
	GateSvc         gatedomain.Service
	ReconcileSvc    reconciledomain.Service
	BackupSvc       backupdomain.Service
	ReportSvc       reportdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		log:             p.Log.Named("http.server"),
		genID:           p.GenID,
		sessions:        p.Sessions,
		loginLimiter:    newRateLimiter(10, time.Minute),
		authsvc:         p.Authsvc,
		authzSvc:        p.AuthzSvc,
		auditSvc:        p.AuditSvc,
		purchaseSvc:     p.PurchaseSvc,
		contributionSvc: p.ContributionSvc,
		meterReadingSvc: p.MeterReadingSvc,
		receiptSvc:      p.ReceiptSvc,
		gateSvc:         p.GateSvc,
		reconcileSvc:    p.ReconcileSvc,
		backupSvc:       p.BackupSvc,
		reportSvc:       p.ReportSvc,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.LoginRateLimit(), s.Login)
	auth.POST("/logout", s.Logout)
	auth.POST("/change-password", s.AuthRequired(), s.ChangePassword)
	auth.GET("/me", s.AuthRequired(), s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	// -------- Purchases --------
	api.GET("/purchases", s.authorize(authorization.ObjectPurchase, authorization.ActionPurchaseView), s.ListPurchases)
	api.POST("/purchases", s.authorize(authorization.ObjectPurchase, authorization.ActionPurchaseCreate), s.CreatePurchase)
	api.GET("/purchases/:id", s.authorize(authorization.ObjectPurchase, authorization.ActionPurchaseView), s.GetPurchaseByID)

	// -------- Contributions --------
	api.GET("/contributions", s.authorize(authorization.ObjectContribution, authorization.ActionContributionView), s.ListContributions)
	api.POST("/contributions", s.authorize(authorization.ObjectContribution, authorization.ActionContributionCreate), s.CreateContribution)
	api.GET("/contributions/:id", s.authorize(authorization.ObjectContribution, authorization.ActionContributionView), s.GetContributionByID)
	api.PATCH("/contributions/:id", s.authorize(authorization.ObjectContribution, authorization.ActionContributionUpdate), s.UpdateContribution)
	api.DELETE("/contributions/:id", s.authorize(authorization.ObjectContribution, authorization.ActionContributionDelete), s.DeleteContribution)

	// -------- Meter readings --------
	api.GET("/meter-readings", s.authorize(authorization.ObjectMeterReading, authorization.ActionMeterReadingView), s.ListMeterReadings)
	api.POST("/meter-readings", s.authorize(authorization.ObjectMeterReading, authorization.ActionMeterReadingCreate), s.CreateMeterReading)
	api.GET("/meter-readings/:id", s.authorize(authorization.ObjectMeterReading, authorization.ActionMeterReadingView), s.GetMeterReadingByID)
	api.PATCH("/meter-readings/:id", s.authorize(authorization.ObjectMeterReading, authorization.ActionMeterReadingUpdate), s.UpdateMeterReading)
	api.DELETE("/meter-readings/:id", s.authorize(authorization.ObjectMeterReading, authorization.ActionMeterReadingDelete), s.DeleteMeterReading)

	// -------- Receipts --------
	api.GET("/purchases/:id/receipt", s.authorize(authorization.ObjectReceipt, authorization.ActionReceiptView), s.GetReceiptByPurchase)
	api.POST("/purchases/:id/receipt", s.authorize(authorization.ObjectReceipt, authorization.ActionReceiptGenerate), s.CreateReceipt)

	// -------- Gate / balances --------
	api.GET("/gate/next", s.GetNextFundablePurchase)
	api.GET("/balance", s.authorize(authorization.ObjectBalance, authorization.ActionBalanceView), s.GetBalance)

	// -------- Reports --------
	api.GET("/reports/export.csv", s.authorize(authorization.ObjectReport, authorization.ActionReportExport), s.ExportCSV)
	api.GET("/reports/settlement.csv", s.authorize(authorization.ObjectReport, authorization.ActionReportExport), s.SettlementCSV)
	api.GET("/reports/statement.pdf", s.authorize(authorization.ObjectReport, authorization.ActionReportView), s.StatementPDF)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/admin", s.AuthRequired(), s.RequireRole(authdomain.RoleAdmin))

	admin.PATCH("/purchases/:id", s.authorize(authorization.ObjectPurchase, authorization.ActionPurchaseUpdate), s.UpdatePurchase)
	admin.DELETE("/purchases/:id", s.authorize(authorization.ObjectPurchase, authorization.ActionPurchaseDelete), s.DeletePurchase)

	admin.POST("/recalculate", s.authorize(authorization.ObjectReconcile, authorization.ActionReconcileRun), s.Recalculate)

	admin.GET("/backup", s.authorize(authorization.ObjectBackup, authorization.ActionBackupCreate), s.ExportBackup)
	admin.POST("/restore", s.authorize(authorization.ObjectBackup, authorization.ActionBackupRestore), s.RestoreBackup)

	admin.GET("/users", s.authorize(authorization.ObjectUser, authorization.ActionUserView), s.ListUsers)
	admin.POST("/users", s.authorize(authorization.ObjectUser, authorization.ActionUserManage), s.CreateUser)
	admin.PATCH("/users/:id", s.authorize(authorization.ObjectUser, authorization.ActionUserManage), s.UpdateUser)
	admin.POST("/users/:id/unlock", s.authorize(authorization.ObjectUser, authorization.ActionUserManage), s.UnlockUser)

	admin.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}
