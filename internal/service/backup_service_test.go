package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/RodrigoBertipalha/AppColheita/config"
	"github.com/RodrigoBertipalha/AppColheita/internal/model"
)

func TestBackupService_BackupAndPrune(t *testing.T) {
	repo, db, dbCfg := newSQLiteRepo(t)
	dir := filepath.Join(t.TempDir(), "backups")
	svc := NewBackupService(db, dbCfg, &config.BackupConfig{Enabled: true, Dir: dir, Keep: 2}, zap.NewNop())

	clock := time.UnixMilli(1_700_000_000_000)
	svc.(*backupService).now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	field := &model.Field{Name: "talhao", ImportedAt: time.Now().UTC(), SourcePath: "/tmp/t.xlsx"}
	if err := repo.Field.Create(context.Background(), field); err != nil {
		t.Fatal(err)
	}

	var paths []string
	for i := 0; i < 3; i++ {
		path, err := svc.Backup(context.Background())
		if err != nil {
			t.Fatalf("第 %d 次备份失败: %v", i+1, err)
		}
		paths = append(paths, path)
	}

	backups, err := svc.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 2 {
		t.Fatalf("只应保留 2 份备份，实际 %d", len(backups))
	}
	if backups[0].Path != paths[2] || backups[1].Path != paths[1] {
		t.Errorf("备份应按时间倒序: %+v", backups)
	}
	if _, err := os.Stat(paths[0]); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("最旧的备份应被删除: %v", err)
	}
	if backups[0].SizeBytes == 0 {
		t.Error("备份文件不应为空")
	}
}

func TestBackupService_RestoreLatest(t *testing.T) {
	repo, db, dbCfg := newSQLiteRepo(t)
	dir := filepath.Join(t.TempDir(), "backups")
	backupCfg := &config.BackupConfig{Enabled: true, Dir: dir, Keep: 5}
	svc := NewBackupService(db, dbCfg, backupCfg, zap.NewNop())
	ctx := context.Background()

	field := &model.Field{Name: "antes", ImportedAt: time.Now().UTC(), SourcePath: "/tmp/a.xlsx"}
	if err := repo.Field.Create(ctx, field); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Backup(ctx); err != nil {
		t.Fatal(err)
	}
	if err := repo.Field.Delete(ctx, field.ID); err != nil {
		t.Fatal(err)
	}

	// 恢复前必须关闭全部连接
	sqlDB, _ := db.DB()
	_ = sqlDB.Close()

	restorer := NewBackupService(nil, dbCfg, backupCfg, zap.NewNop())
	if _, err := restorer.RestoreLatest(ctx); err != nil {
		t.Fatalf("RestoreLatest 应成功: %v", err)
	}

	reopened, _, _ := reopenSQLite(t, dbCfg)
	fields, err := reopened.Field.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 1 || fields[0].Name != "antes" {
		t.Errorf("恢复后应回到备份时的数据: %+v", fields)
	}
}

func TestBackupService_NoBackup(t *testing.T) {
	dbCfg := &config.DatabaseConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "x.db")}
	svc := NewBackupService(nil, dbCfg, &config.BackupConfig{Dir: filepath.Join(t.TempDir(), "none"), Keep: 1}, zap.NewNop())

	if _, err := svc.RestoreLatest(context.Background()); !errors.Is(err, ErrNoBackup) {
		t.Fatalf("期望 ErrNoBackup，实际 %v", err)
	}
	backups, err := svc.List()
	if err != nil || len(backups) != 0 {
		t.Errorf("备份目录不存在时应返回空列表: %v, %v", backups, err)
	}
}

func TestBackupService_PostgresUnsupported(t *testing.T) {
	dbCfg := &config.DatabaseConfig{Driver: config.DriverPostgres}
	svc := NewBackupService(nil, dbCfg, &config.BackupConfig{Dir: t.TempDir(), Keep: 1}, zap.NewNop())

	if _, err := svc.Backup(context.Background()); !errors.Is(err, ErrBackupUnsupported) {
		t.Errorf("期望 ErrBackupUnsupported，实际 %v", err)
	}
	if _, err := svc.RestoreLatest(context.Background()); !errors.Is(err, ErrBackupUnsupported) {
		t.Errorf("期望 ErrBackupUnsupported，实际 %v", err)
	}
}
