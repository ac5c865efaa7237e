package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/RodrigoBertipalha/AppColheita/config"
	"github.com/RodrigoBertipalha/AppColheita/internal/repository"
	"github.com/RodrigoBertipalha/AppColheita/internal/spreadsheet"
)

// ── 导出模块业务错误 ──

var ErrExportSourceMissing = errors.New("导出失败：原始表格不存在或无法读取")

// ExportResult 导出文件信息
type ExportResult struct {
	Path     string
	FileName string
	Plots    int
}

// ExportService 导出带收获状态的表格
type ExportService interface {
	// Export outDir 为空时使用配置的导出目录
	Export(ctx context.Context, fieldID uint, outDir string) (*ExportResult, error)
}

type exportService struct {
	repo   *repository.Repository
	cfg    *config.ExportConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, cfg *config.ExportConfig, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, cfg: cfg, logger: logger, now: time.Now}
}

// Export 重新打开田块的源表格，追加 harvested / discarded 列后另存
// 文件名: <田块名>_<yyyyMMdd_HHmmss>.xlsx
func (s *exportService) Export(ctx context.Context, fieldID uint, outDir string) (*ExportResult, error) {
	field, err := loadField(ctx, s.repo, fieldID)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(field.SourcePath); err != nil {
		s.logger.Warn("导出源表格不存在", zap.String("path", field.SourcePath), zap.Error(err))
		return nil, ErrExportSourceMissing
	}

	plots, err := s.repo.Plot.ListByField(ctx, fieldID)
	if err != nil {
		s.logger.Error("查询地块失败", zap.Uint("field_id", fieldID), zap.Error(err))
		return nil, err
	}

	updates := make(map[string]map[string]float64, len(plots))
	for _, p := range plots {
		updates[p.Recid] = map[string]float64{
			spreadsheet.ColumnHarvested: boolMarker(p.Harvested),
			spreadsheet.ColumnDiscarded: boolMarker(p.Discarded),
		}
	}

	if outDir == "" {
		outDir = s.cfg.OutputDir
	}
	fileName := fmt.Sprintf("%s_%s.xlsx", safeFileName(field.Name), s.now().Format("20060102_150405"))
	dst := filepath.Join(outDir, fileName)

	if err := spreadsheet.PatchColumns(field.SourcePath, dst, updates); err != nil {
		var sue *spreadsheet.SourceUnreadableError
		if errors.As(err, &sue) {
			s.logger.Warn("导出源表格无法读取", zap.String("path", field.SourcePath), zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrExportSourceMissing, err)
		}
		s.logger.Error("写入导出表格失败", zap.String("path", dst), zap.Error(err))
		return nil, err
	}

	s.logger.Info("田块已导出",
		zap.Uint("field_id", fieldID),
		zap.String("path", dst),
		zap.Int("plots", len(plots)),
	)
	return &ExportResult{Path: dst, FileName: fileName, Plots: len(plots)}, nil
}

func boolMarker(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// safeFileName 去掉田块名中的路径分隔符
func safeFileName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	if name == "" {
		return "campo"
	}
	return name
}
