package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"github.com/RodrigoBertipalha/AppColheita/config"
)

type probe struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func TestNewDB_SQLiteCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "colheita.db")
	cfg := &config.DatabaseConfig{Driver: config.DriverSQLite, Path: path}

	db, err := NewDB(cfg, "silent", zap.NewNop())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, RunMigrations(db, config.DriverSQLite, zap.NewNop(), &probe{}))
	require.NoError(t, db.Create(&probe{Name: "a"}).Error)

	var count int64
	require.NoError(t, db.Model(&probe{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var fk int
	require.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	assert.Equal(t, 1, fk, "外键必须开启，级联删除依赖它")
}

func TestNewDB_UnsupportedDriver(t *testing.T) {
	_, err := NewDB(&config.DatabaseConfig{Driver: "oracle"}, "info", zap.NewNop())
	assert.Error(t, err)
}

func TestRunMigrations_UnsupportedDriver(t *testing.T) {
	assert.Error(t, RunMigrations(nil, "oracle", zap.NewNop()))
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Info, gormLogLevel("debug"))
	assert.Equal(t, gormlogger.Error, gormLogLevel("error"))
	assert.Equal(t, gormlogger.Silent, gormLogLevel("silent"))
	assert.Equal(t, gormlogger.Warn, gormLogLevel("info"))
}
