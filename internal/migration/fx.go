package migration

import (
	"github.com/smallbiznis/millrun/internal/config"
	pkgdb "github.com/smallbiznis/millrun/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if cfg.DBType == pkgdb.TypePostgres || cfg.DBType == "" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		log.Named("migrations").Info("auto-migrating schema", zap.String("db_type", cfg.DBType))
		return AutoMigrate(conn)
	}),
)
