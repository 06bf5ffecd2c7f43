package migration

import (
	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/wattshare/wattshare/internal/audit/domain"
	authdomain "github.com/wattshare/wattshare/internal/auth/domain"
	"github.com/wattshare/wattshare/internal/config"
	contributiondomain "github.com/wattshare/wattshare/internal/contribution/domain"
	meterreadingdomain "github.com/wattshare/wattshare/internal/meterreading/domain"
	purchasedomain "github.com/wattshare/wattshare/internal/purchase/domain"
	receiptdomain "github.com/wattshare/wattshare/internal/receipt/domain"
	"github.com/wattshare/wattshare/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, genID *snowflake.Node) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite: the migrate postgres driver does not apply, let gorm
			// derive the schema from the models.
			if err := conn.AutoMigrate(
				&authdomain.User{},
				&authdomain.Session{},
				&purchasedomain.Purchase{},
				&contributiondomain.Contribution{},
				&meterreadingdomain.MeterReading{},
				&receiptdomain.Receipt{},
				&auditdomain.AuditLog{},
			); err != nil {
				return err
			}
		}

		return seed.EnsureAdmin(conn, cfg, genID)
	}),
)
