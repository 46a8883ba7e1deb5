package migration

import (
	alertdomain "github.com/smallbiznis/retailpulse/internal/alert/domain"
	"github.com/smallbiznis/retailpulse/internal/config"
	customerdomain "github.com/smallbiznis/retailpulse/internal/customer/domain"
	orderdomain "github.com/smallbiznis/retailpulse/internal/order/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// Versioned SQL runs on postgres; other dialects fall back to
		// schema sync, which covers local and test setups.
		if cfg.DBType != "postgres" {
			return conn.AutoMigrate(
				&customerdomain.CustomerProfile{},
				&customerdomain.Transaction{},
				&orderdomain.Order{},
				&alertdomain.Alert{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
