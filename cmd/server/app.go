package main

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/RodrigoBertipalha/AppColheita/config"
	"github.com/RodrigoBertipalha/AppColheita/internal/model"
	"github.com/RodrigoBertipalha/AppColheita/internal/repository"
	"github.com/RodrigoBertipalha/AppColheita/internal/service"
	"github.com/RodrigoBertipalha/AppColheita/pkg/database"
	"github.com/RodrigoBertipalha/AppColheita/pkg/metrics"
	"github.com/RodrigoBertipalha/AppColheita/pkg/redis"
)

// app 一次命令执行所需的全部依赖
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *gorm.DB
	rdb     *redis.Client // 未启用或连接失败时为 nil
	metrics *metrics.Metrics
	repo    *repository.Repository
	svc     *service.Service
}

// newApp 连接数据库、执行迁移并组装服务
// withRedis 为 false 时不连接 Redis（一次性命令不需要限流与分布式锁）
func newApp(cfg *config.Config, logger *zap.Logger, withRedis bool) (*app, error) {
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	if err := database.RunMigrations(db, cfg.Database.Driver, logger, model.AllModels()...); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, db: db}

	if withRedis && cfg.Redis.Enabled {
		rdb, err := redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			// 降级运行：扫码不限流，导入不加分布式锁
			logger.Warn("Redis 连接失败，限流与导入锁将不可用", zap.Error(err))
		} else {
			a.rdb = rdb
		}
	}

	m, err := metrics.New()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("初始化指标失败: %w", err)
	}
	a.metrics = m

	// rdb 为 nil 时必须传入 nil 接口，而不是包着 nil 指针的接口
	var locker service.Locker
	if a.rdb != nil {
		locker = a.rdb
	}

	a.repo = repository.NewRepository(db)
	a.svc = service.NewService(cfg, a.repo, locker, m, logger)
	return a, nil
}

// Close 释放数据库与 Redis 连接
func (a *app) Close() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Warn("关闭 Redis 连接失败", zap.Error(err))
		}
	}
	closeDB(a.db)
}

func closeDB(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
