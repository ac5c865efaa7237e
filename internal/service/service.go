package service

import (
	"go.uber.org/zap"

	"github.com/RodrigoBertipalha/AppColheita/config"
	"github.com/RodrigoBertipalha/AppColheita/internal/repository"
	"github.com/RodrigoBertipalha/AppColheita/pkg/metrics"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Field   FieldService
	Harvest HarvestService
	Import  ImportService
	Export  ExportService
	Backup  BackupService
}

// NewService 创建 Service 聚合
// locker 与 m 均可为 nil
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	locker Locker,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	backup := NewBackupService(repo.DB(), &cfg.Database, &cfg.Backup, logger)

	var importBackup BackupService
	if cfg.Backup.Enabled {
		importBackup = backup
	}

	return &Service{
		Field:   NewFieldService(repo, logger),
		Harvest: NewHarvestService(repo, m, logger),
		Import:  NewImportService(repo, &cfg.Import, importBackup, locker, m, logger),
		Export:  NewExportService(repo, &cfg.Export, logger),
		Backup:  backup,
	}
}
