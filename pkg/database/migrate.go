package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/RodrigoBertipalha/AppColheita/config"
)

//go:embed migrations/postgres/*.sql
var migrationsFS embed.FS

// RunMigrations 执行数据库迁移
//   - PostgreSQL：golang-migrate 执行内嵌 SQL，自动检测版本
//   - SQLite：设备端单文件库，直接 AutoMigrate 传入的模型
func RunMigrations(db *gorm.DB, driver string, logger *zap.Logger, models ...interface{}) error {
	switch driver {
	case config.DriverPostgres:
		return runPostgresMigrations(db, logger)
	case config.DriverSQLite:
		if err := db.AutoMigrate(models...); err != nil {
			return fmt.Errorf("AutoMigrate 失败: %w", err)
		}
		logger.Info("数据库迁移完成", zap.String("driver", driver), zap.Int("models", len(models)))
		return nil
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", driver)
	}
}

func runPostgresMigrations(db *gorm.DB, logger *zap.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations/postgres")
	if err != nil {
		return fmt.Errorf("加载迁移文件失败: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("创建迁移驱动失败: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("初始化迁移实例失败: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("执行迁移失败: %w", err)
	}

	version, dirty, _ := m.Version()
	if dirty {
		logger.Warn("数据库迁移处于 dirty 状态", zap.Uint("version", version))
	} else {
		logger.Info("数据库迁移完成", zap.String("driver", "postgres"), zap.Uint("version", version))
	}

	return nil
}
