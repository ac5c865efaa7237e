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
	"gorm.io/gorm"

	"github.com/RodrigoBertipalha/AppColheita/config"
	"github.com/RodrigoBertipalha/AppColheita/internal/dto"
	"github.com/RodrigoBertipalha/AppColheita/internal/model"
	"github.com/RodrigoBertipalha/AppColheita/internal/repository"
	"github.com/RodrigoBertipalha/AppColheita/internal/spreadsheet"
	"github.com/RodrigoBertipalha/AppColheita/pkg/metrics"
)

// ── 导入模块业务错误 ──

var (
	ErrInvalidStrategy  = errors.New("导入策略无效，仅支持 replace / merge")
	ErrImportInProgress = errors.New("已有导入正在进行，请稍后再试")
	ErrImportNoRows     = errors.New("表格中没有可导入的地块")
)

// importLockKey 导入互斥锁
const importLockKey = "import:lock"

// Locker 分布式互斥锁（由 Redis 客户端实现）
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// ImportRequest 导入参数
type ImportRequest struct {
	Path        string // 已落盘的源表格
	DisplayName string // 用户看到的文件名，用于推出田块名
	Strategy    string // replace / merge，为空时按 merge 处理
}

// ImportService 表格导入业务接口
type ImportService interface {
	Preview(ctx context.Context, path, displayName string, limit int) (*dto.PreviewResponse, error)
	Import(ctx context.Context, req *ImportRequest) (*dto.ImportResponse, error)
	ListSessions(ctx context.Context, limit int) ([]dto.ImportSessionResponse, error)
}

type importService struct {
	repo    *repository.Repository
	cfg     *config.ImportConfig
	backup  BackupService // nil 时导入前不备份
	locker  Locker        // nil 时不加锁
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewImportService 创建 ImportService 实例
func NewImportService(
	repo *repository.Repository,
	cfg *config.ImportConfig,
	backup BackupService,
	locker Locker,
	m *metrics.Metrics,
	logger *zap.Logger,
) ImportService {
	return &importService{
		repo:    repo,
		cfg:     cfg,
		backup:  backup,
		locker:  locker,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// reconcileOutcome 对账结果
type reconcileOutcome struct {
	Field         *model.Field
	Session       *model.ImportSession
	RowsProcessed int
	NewRows       int
}

// ────────────────────── Preview ──────────────────────

func (s *importService) Preview(_ context.Context, path, displayName string, limit int) (*dto.PreviewResponse, error) {
	if limit <= 0 {
		limit = s.cfg.PreviewRows
	}
	headers, rows, err := spreadsheet.Preview(path, limit)
	if err != nil {
		return nil, err
	}

	resp := &dto.PreviewResponse{
		FileName: displayName,
		Headers:  headers,
		Rows:     rows,
	}
	var mce *spreadsheet.MissingColumnsError
	if _, err := spreadsheet.Normalize(headers, nil); errors.As(err, &mce) {
		for _, c := range mce.Missing {
			resp.MissingColumns = append(resp.MissingColumns, c.Header())
		}
	}
	return resp, nil
}

// ────────────────────── Import ──────────────────────

func (s *importService) Import(ctx context.Context, req *ImportRequest) (*dto.ImportResponse, error) {
	strategy := strings.ToLower(strings.TrimSpace(req.Strategy))
	if strategy == "" {
		strategy = model.ImportStrategyMerge
	}
	if strategy != model.ImportStrategyReplace && strategy != model.ImportStrategyMerge {
		return nil, ErrInvalidStrategy
	}

	release, err := s.acquireLock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	resp, err := s.runImport(ctx, req, strategy)
	if err != nil {
		s.metrics.ObserveImport(strategy, "error")
		return nil, err
	}
	s.metrics.ObserveImport(strategy, "success")
	return resp, nil
}

func (s *importService) runImport(ctx context.Context, req *ImportRequest, strategy string) (*dto.ImportResponse, error) {
	info, err := os.Stat(req.Path)
	if err != nil {
		return nil, &spreadsheet.SourceUnreadableError{Path: req.Path, Err: err}
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = filepath.Base(req.Path)
	}
	parsed, err := spreadsheet.ParseFile(req.Path, displayName, s.logger)
	if err != nil {
		s.logger.Warn("解析导入表格失败", zap.String("file", displayName), zap.Error(err))
		return nil, err
	}
	s.metrics.AddImportRows("parsed", len(parsed.Plots))
	s.metrics.AddImportRows("skipped", parsed.RowsSkipped)
	if len(parsed.Plots) == 0 {
		return nil, ErrImportNoRows
	}

	backupPath, err := s.backupBeforeImport(ctx)
	if err != nil {
		return nil, err
	}

	// 导入过程中调用方断开也要写完，避免半导入状态
	writeCtx := context.WithoutCancel(ctx)
	var outcome *reconcileOutcome
	switch strategy {
	case model.ImportStrategyReplace:
		outcome, err = s.replace(writeCtx, parsed, info.Size())
	default:
		outcome, err = s.merge(writeCtx, parsed, info.Size())
	}
	if err != nil {
		s.logger.Error("导入失败",
			zap.String("file", displayName),
			zap.String("strategy", strategy),
			zap.Error(err),
		)
		return nil, err
	}
	s.metrics.AddImportRows("new", outcome.NewRows)

	s.logger.Info("导入完成",
		zap.String("file", displayName),
		zap.String("strategy", strategy),
		zap.Uint("field_id", outcome.Field.ID),
		zap.Int("rows_processed", outcome.RowsProcessed),
		zap.Int("new_rows", outcome.NewRows),
		zap.Int("rows_skipped", parsed.RowsSkipped),
	)

	return &dto.ImportResponse{
		SessionID:     outcome.Session.ID,
		Field:         toFieldResponse(outcome.Field),
		Strategy:      strategy,
		RowsRead:      parsed.RowsRead,
		RowsSkipped:   parsed.RowsSkipped,
		RowsProcessed: outcome.RowsProcessed,
		NewRows:       outcome.NewRows,
		BackupPath:    backupPath,
	}, nil
}

// ────────────────────── Replace ──────────────────────

// replace 清空全部田块后整体写入，所有地块都计为新增
func (s *importService) replace(ctx context.Context, parsed *spreadsheet.ParseResult, size int64) (*reconcileOutcome, error) {
	var outcome *reconcileOutcome
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Field.DeleteAll(ctx); err != nil {
			return fmt.Errorf("清空田块失败: %w", err)
		}

		field := &model.Field{
			Name:       parsed.FieldName,
			ImportedAt: s.now().UTC(),
			SourcePath: parsed.SourcePath,
		}
		if err := tx.Field.Create(ctx, field); err != nil {
			return fmt.Errorf("创建田块失败: %w", err)
		}

		plots := s.stampPlots(parsed.Plots, field.ID)
		if err := tx.Plot.UpsertBatch(ctx, plots); err != nil {
			return fmt.Errorf("写入地块失败: %w", err)
		}

		n := len(parsed.Plots)
		session, err := s.recordSession(ctx, tx, field, size, n, n, model.ImportStrategyReplace)
		if err != nil {
			return err
		}
		outcome = &reconcileOutcome{Field: field, Session: session, RowsProcessed: n, NewRows: n}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// ────────────────────── Merge ──────────────────────

// merge 沿用最近田块的 ID；已存在的地块整条保留存储中的版本
func (s *importService) merge(ctx context.Context, parsed *spreadsheet.ParseResult, size int64) (*reconcileOutcome, error) {
	var outcome *reconcileOutcome
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		latest, err := tx.Field.GetLatest(ctx)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("查询最近田块失败: %w", err)
		}

		field := &model.Field{
			Name:       parsed.FieldName,
			ImportedAt: s.now().UTC(),
			SourcePath: parsed.SourcePath,
		}
		if latest != nil {
			field.ID = latest.ID
			field.CreatedAt = latest.CreatedAt
			if err := tx.Field.Upsert(ctx, field); err != nil {
				return fmt.Errorf("更新田块失败: %w", err)
			}
		} else if err := tx.Field.Create(ctx, field); err != nil {
			return fmt.Errorf("创建田块失败: %w", err)
		}

		stamped := s.stampPlots(parsed.Plots, field.ID)
		queue := make([]model.Plot, 0, len(stamped))
		newRows := 0
		for _, p := range stamped {
			existing, err := tx.Plot.GetByRecid(ctx, p.Recid)
			if err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("查询地块 %s 失败: %w", p.Recid, err)
				}
				newRows++
				queue = append(queue, p)
				continue
			}
			// 已存在的地块原样保留
			queue = append(queue, *existing)
		}

		if err := tx.Plot.UpsertBatch(ctx, queue); err != nil {
			return fmt.Errorf("写入地块失败: %w", err)
		}

		n := len(parsed.Plots)
		session, err := s.recordSession(ctx, tx, field, size, n, newRows, model.ImportStrategyMerge)
		if err != nil {
			return err
		}
		outcome = &reconcileOutcome{Field: field, Session: session, RowsProcessed: n, NewRows: newRows}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// ────────────────────── ListSessions ──────────────────────

func (s *importService) ListSessions(ctx context.Context, limit int) ([]dto.ImportSessionResponse, error) {
	if limit <= 0 {
		limit = 20
	}
	sessions, err := s.repo.ImportSession.ListRecent(ctx, limit)
	if err != nil {
		s.logger.Error("查询导入记录失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.ImportSessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, dto.ImportSessionResponse{
			ID:            sess.ID,
			FieldID:       sess.FieldID,
			SourcePath:    sess.SourcePath,
			SizeBytes:     sess.SizeBytes,
			RowsProcessed: sess.RowsProcessed,
			NewRows:       sess.NewRows,
			Strategy:      sess.Strategy,
			ImportedAt:    sess.ImportedAt.UTC().Format(timeLayout),
		})
	}
	return result, nil
}

// ────────────────────── 辅助 ──────────────────────

// stampPlots 写入田块 ID；同一 recid 出现多次时以最后一行为准
func (s *importService) stampPlots(parsed []model.Plot, fieldID uint) []model.Plot {
	index := make(map[string]int, len(parsed))
	plots := make([]model.Plot, 0, len(parsed))
	for _, p := range parsed {
		p.FieldID = fieldID
		if i, dup := index[p.Recid]; dup {
			plots[i] = p
			continue
		}
		index[p.Recid] = len(plots)
		plots = append(plots, p)
	}
	if dups := len(parsed) - len(plots); dups > 0 {
		s.logger.Warn("表格中存在重复 recid，保留最后一行", zap.Int("duplicates", dups))
	}
	return plots
}

func (s *importService) recordSession(ctx context.Context, tx *repository.Repository, field *model.Field, size int64, rows, newRows int, strategy string) (*model.ImportSession, error) {
	session := &model.ImportSession{
		FieldID:       field.ID,
		SourcePath:    field.SourcePath,
		SizeBytes:     size,
		RowsProcessed: rows,
		NewRows:       newRows,
		Strategy:      strategy,
		ImportedAt:    field.ImportedAt,
	}
	if err := tx.ImportSession.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("记录导入会话失败: %w", err)
	}
	return session, nil
}

// acquireLock 获取导入锁；Redis 不可用时降级为不加锁
func (s *importService) acquireLock(ctx context.Context) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}
	ttl := s.cfg.LockTTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	token, ok, err := s.locker.AcquireLock(ctx, importLockKey, ttl)
	if err != nil {
		s.logger.Warn("获取导入锁失败，降级为不加锁", zap.Error(err))
		return noop, nil
	}
	if !ok {
		return nil, ErrImportInProgress
	}
	return func() {
		if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), importLockKey, token); err != nil {
			s.logger.Warn("释放导入锁失败", zap.Error(err))
		}
	}, nil
}

// backupBeforeImport 导入前备份；驱动不支持时跳过
func (s *importService) backupBeforeImport(ctx context.Context) (string, error) {
	if s.backup == nil {
		return "", nil
	}
	path, err := s.backup.Backup(ctx)
	if err != nil {
		if errors.Is(err, ErrBackupUnsupported) {
			s.logger.Debug("当前驱动不支持备份，跳过")
			return "", nil
		}
		return "", fmt.Errorf("导入前备份失败: %w", err)
	}
	return path, nil
}
