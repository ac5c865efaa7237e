package service

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/RodrigoBertipalha/AppColheita/config"
	"github.com/RodrigoBertipalha/AppColheita/internal/model"
	"github.com/RodrigoBertipalha/AppColheita/internal/repository"
	"github.com/RodrigoBertipalha/AppColheita/pkg/database"
)

var sheetHeader = []string{"Loc Seq", "entry book name", "range", "row", "recid", "tier", "plot", "GrupoId", "Decision"}

// sheetRow 生成一行标准表格数据
func sheetRow(recid, group, decision string) []string {
	return []string{"1", "EB-1", "10", "1", recid, "A", "101", group, decision}
}

// writeSheet 在临时目录写入一个单工作表的 xlsx 文件
func writeSheet(t *testing.T, name string, header []string, rows ...[]string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	all := append([][]string{header}, rows...)
	for i, row := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("计算单元格坐标失败: %v", err)
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow("Sheet1", cell, &values); err != nil {
			t.Fatalf("写入表格行失败: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("保存表格失败: %v", err)
	}
	return path
}

// readSheet 读取第一个工作表的全部行
func readSheet(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("打开表格失败: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("读取表格失败: %v", err)
	}
	return rows
}

// newSQLiteRepo 基于临时文件 SQLite 的真实仓储
func newSQLiteRepo(t *testing.T) (*repository.Repository, *gorm.DB, *config.DatabaseConfig) {
	t.Helper()
	return reopenSQLite(t, &config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "colheita.db"),
	})
}

// reopenSQLite 打开已有的 SQLite 文件，必要时建表
func reopenSQLite(t *testing.T, cfg *config.DatabaseConfig) (*repository.Repository, *gorm.DB, *config.DatabaseConfig) {
	t.Helper()
	db, err := database.NewDB(cfg, "silent", zap.NewNop())
	if err != nil {
		t.Fatalf("打开数据库失败: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取连接池失败: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.RunMigrations(db, config.DriverSQLite, zap.NewNop(), model.AllModels()...); err != nil {
		t.Fatalf("建表失败: %v", err)
	}
	return repository.NewRepository(db), db, cfg
}
