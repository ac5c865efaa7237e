package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/RodrigoBertipalha/AppColheita/config"
)

// ── 备份模块业务错误 ──

var (
	ErrBackupUnsupported = errors.New("当前数据库驱动不支持文件备份")
	ErrNoBackup          = errors.New("没有可用的备份")
)

const (
	backupPrefix = "colheita_backup_"
	backupSuffix = ".db"
)

// BackupInfo 备份文件信息
type BackupInfo struct {
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// BackupService SQLite 数据库文件备份
type BackupService interface {
	// Backup 在线备份当前数据库，返回备份文件路径
	Backup(ctx context.Context) (string, error)
	// RestoreLatest 用最新备份覆盖数据库文件，调用前必须关闭所有连接
	RestoreLatest(ctx context.Context) (string, error)
	List() ([]BackupInfo, error)
}

type backupService struct {
	db     *gorm.DB
	dbCfg  *config.DatabaseConfig
	cfg    *config.BackupConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewBackupService 创建 BackupService 实例；仅做恢复时 db 可以为 nil
func NewBackupService(db *gorm.DB, dbCfg *config.DatabaseConfig, cfg *config.BackupConfig, logger *zap.Logger) BackupService {
	return &backupService{db: db, dbCfg: dbCfg, cfg: cfg, logger: logger, now: time.Now}
}

// ────────────────────── Backup ──────────────────────

func (s *backupService) Backup(ctx context.Context) (string, error) {
	if s.dbCfg.Driver != config.DriverSQLite {
		return "", ErrBackupUnsupported
	}
	if s.db == nil {
		return "", errors.New("备份需要打开的数据库连接")
	}
	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("创建备份目录失败: %w", err)
	}

	path := filepath.Join(s.cfg.Dir, fmt.Sprintf("%s%d%s", backupPrefix, s.now().UnixMilli(), backupSuffix))
	// VACUUM INTO 生成一致的快照文件
	if err := s.db.WithContext(ctx).Exec("VACUUM INTO ?", path).Error; err != nil {
		s.logger.Error("数据库备份失败", zap.String("path", path), zap.Error(err))
		return "", fmt.Errorf("数据库备份失败: %w", err)
	}

	s.prune()
	s.logger.Info("数据库已备份", zap.String("path", path))
	return path, nil
}

// prune 只保留最新的 keep 份备份
func (s *backupService) prune() {
	backups, err := s.List()
	if err != nil {
		s.logger.Warn("列出备份失败", zap.Error(err))
		return
	}
	keep := s.cfg.Keep
	if keep < 1 {
		keep = 1
	}
	for _, b := range backups[min(keep, len(backups)):] {
		if err := os.Remove(b.Path); err != nil {
			s.logger.Warn("删除旧备份失败", zap.String("path", b.Path), zap.Error(err))
		}
	}
}

// ────────────────────── List ──────────────────────

// List 按时间倒序列出备份
func (s *backupService) List() ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var backups []BackupInfo
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, backupSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupInfo{
			Path:      filepath.Join(s.cfg.Dir, name),
			SizeBytes: info.Size(),
			CreatedAt: info.ModTime(),
		})
	}
	// 文件名中的毫秒时间戳位数固定，字典序即时间序
	sort.Slice(backups, func(i, j int) bool {
		return filepath.Base(backups[i].Path) > filepath.Base(backups[j].Path)
	})
	return backups, nil
}

// ────────────────────── RestoreLatest ──────────────────────

func (s *backupService) RestoreLatest(_ context.Context) (string, error) {
	if s.dbCfg.Driver != config.DriverSQLite {
		return "", ErrBackupUnsupported
	}
	backups, err := s.List()
	if err != nil {
		return "", err
	}
	if len(backups) == 0 {
		return "", ErrNoBackup
	}
	latest := backups[0].Path

	if dir := filepath.Dir(s.dbCfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("创建数据库目录失败: %w", err)
		}
	}
	tmp := s.dbCfg.Path + ".restore"
	if err := copyFile(latest, tmp); err != nil {
		return "", fmt.Errorf("复制备份失败: %w", err)
	}
	// 旧库的 WAL 与共享内存文件不能与恢复后的库混用
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(s.dbCfg.Path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("清理 %s 文件失败: %w", suffix, err)
		}
	}
	if err := os.Rename(tmp, s.dbCfg.Path); err != nil {
		return "", fmt.Errorf("替换数据库文件失败: %w", err)
	}

	s.logger.Info("已从备份恢复数据库", zap.String("backup", latest), zap.String("db", s.dbCfg.Path))
	return latest, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
