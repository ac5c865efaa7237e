package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/RodrigoBertipalha/AppColheita/internal/dto"
	"github.com/RodrigoBertipalha/AppColheita/internal/model"
	"github.com/RodrigoBertipalha/AppColheita/internal/repository"
	"github.com/RodrigoBertipalha/AppColheita/pkg/metrics"
)

// ── 收获模块业务错误 ──

var (
	ErrPlotDiscarded = errors.New("地块已淘汰，不能标记为已收获")
	ErrNothingToUndo = errors.New("没有可撤销的收获记录")
	ErrEmptyGroup    = errors.New("分组不能为空")
	ErrEmptyRecids   = errors.New("recid 列表不能为空")
)

// HarvestService 收获状态变更业务接口
// 每次成功变更后都从存储重新统计进度
type HarvestService interface {
	MarkByRecid(ctx context.Context, fieldID uint, recid string, harvested bool) (*dto.ScanResponse, error)
	MarkByGroup(ctx context.Context, fieldID uint, groupID string, harvested bool) (*dto.GroupHarvestResponse, error)
	MarkByRecids(ctx context.Context, fieldID uint, recids []string, harvested bool) (*dto.BatchHarvestResponse, error)
	UndoLast(ctx context.Context, fieldID uint) (*dto.UndoResponse, error)
	Counts(ctx context.Context, fieldID uint) (*model.HarvestCounts, error)
	LocateGroup(ctx context.Context, fieldID uint, recid string) (*dto.LocateGroupResponse, error)
}

type harvestService struct {
	repo     *repository.Repository
	resolver *Resolver
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewHarvestService 创建 HarvestService 实例
func NewHarvestService(repo *repository.Repository, m *metrics.Metrics, logger *zap.Logger) HarvestService {
	return &harvestService{
		repo:     repo,
		resolver: NewResolver(repo.Plot),
		metrics:  m,
		logger:   logger,
	}
}

// ────────────────────── MarkByRecid ──────────────────────

func (s *harvestService) MarkByRecid(ctx context.Context, fieldID uint, recid string, harvested bool) (*dto.ScanResponse, error) {
	if _, err := loadField(ctx, s.repo, fieldID); err != nil {
		return nil, err
	}

	plot, tier, err := s.resolver.Resolve(ctx, fieldID, recid)
	if err != nil {
		if errors.Is(err, ErrPlotNotFound) {
			return nil, s.notFound(ctx, fieldID, recid)
		}
		if !errors.Is(err, ErrEmptyRecid) {
			s.logger.Error("解析 recid 失败", zap.String("recid", recid), zap.Error(err))
		}
		return nil, err
	}

	if plot.Discarded && harvested {
		return nil, ErrPlotDiscarded
	}

	// 写入不随请求取消而中断
	if err := s.repo.Plot.UpdateStatus(context.WithoutCancel(ctx), plot.Recid, harvested); err != nil {
		s.logger.Error("更新收获状态失败", zap.String("recid", plot.Recid), zap.Error(err))
		return nil, err
	}
	plot.Harvested = harvested
	s.metrics.ObserveStatusUpdate("scan", 1)

	counts, err := s.counts(ctx, fieldID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("地块收获状态已更新",
		zap.String("recid", plot.Recid),
		zap.String("input", recid),
		zap.String("matched_by", string(tier)),
		zap.Bool("harvested", harvested),
	)

	return &dto.ScanResponse{
		Plot:      toPlotResponse(plot),
		MatchedBy: string(tier),
		Counts:    counts,
	}, nil
}

// ────────────────────── MarkByGroup ──────────────────────

// MarkByGroup 标记收获时跳过已淘汰地块，取消收获时整组清除
func (s *harvestService) MarkByGroup(ctx context.Context, fieldID uint, groupID string, harvested bool) (*dto.GroupHarvestResponse, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return nil, ErrEmptyGroup
	}
	if _, err := loadField(ctx, s.repo, fieldID); err != nil {
		return nil, err
	}

	affected, err := s.repo.Plot.UpdateStatusByGroup(context.WithoutCancel(ctx), fieldID, groupID, harvested)
	if err != nil {
		s.logger.Error("整组更新收获状态失败", zap.String("group_id", groupID), zap.Error(err))
		return nil, err
	}

	stats, err := s.repo.Plot.GetGroupStats(ctx, fieldID, groupID)
	if err != nil {
		s.logger.Error("查询分组统计失败", zap.String("group_id", groupID), zap.Error(err))
		return nil, err
	}
	if stats.Total == 0 {
		return nil, ErrGroupNotFound
	}
	s.metrics.ObserveStatusUpdate("group", affected)

	counts, err := s.counts(ctx, fieldID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("分组收获状态已更新",
		zap.Uint("field_id", fieldID),
		zap.String("group_id", groupID),
		zap.Bool("harvested", harvested),
		zap.Int64("affected", affected),
	)

	return &dto.GroupHarvestResponse{
		GroupID:        groupID,
		Affected:       affected,
		GroupSize:      stats.Total,
		GroupHarvested: stats.Harvested,
		Counts:         counts,
	}, nil
}

// ────────────────────── MarkByRecids ──────────────────────

// MarkByRecids 多选列表标记，只做精确匹配
func (s *harvestService) MarkByRecids(ctx context.Context, fieldID uint, recids []string, harvested bool) (*dto.BatchHarvestResponse, error) {
	ids := normalizeRecids(recids)
	if len(ids) == 0 {
		return nil, ErrEmptyRecids
	}
	if _, err := loadField(ctx, s.repo, fieldID); err != nil {
		return nil, err
	}

	affected, err := s.repo.Plot.UpdateStatusByRecids(context.WithoutCancel(ctx), fieldID, ids, harvested)
	if err != nil {
		s.logger.Error("批量更新收获状态失败", zap.Int("count", len(ids)), zap.Error(err))
		return nil, err
	}
	s.metrics.ObserveStatusUpdate("batch", affected)

	counts, err := s.counts(ctx, fieldID)
	if err != nil {
		return nil, err
	}
	return &dto.BatchHarvestResponse{Affected: affected, Counts: counts}, nil
}

// ────────────────────── UndoLast ──────────────────────

// UndoLast 撤销 recid 最大的已收获地块
func (s *harvestService) UndoLast(ctx context.Context, fieldID uint) (*dto.UndoResponse, error) {
	if _, err := loadField(ctx, s.repo, fieldID); err != nil {
		return nil, err
	}

	plot, err := s.repo.Plot.GetLastHarvested(ctx, fieldID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNothingToUndo
		}
		s.logger.Error("查询最近收获地块失败", zap.Uint("field_id", fieldID), zap.Error(err))
		return nil, err
	}

	if err := s.repo.Plot.UpdateStatus(context.WithoutCancel(ctx), plot.Recid, false); err != nil {
		s.logger.Error("撤销收获失败", zap.String("recid", plot.Recid), zap.Error(err))
		return nil, err
	}
	plot.Harvested = false
	s.metrics.ObserveStatusUpdate("undo", 1)

	counts, err := s.counts(ctx, fieldID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("已撤销收获", zap.String("recid", plot.Recid))
	return &dto.UndoResponse{Plot: toPlotResponse(plot), Counts: counts}, nil
}

// ────────────────────── Counts / LocateGroup ──────────────────────

func (s *harvestService) Counts(ctx context.Context, fieldID uint) (*model.HarvestCounts, error) {
	if _, err := loadField(ctx, s.repo, fieldID); err != nil {
		return nil, err
	}
	counts, err := s.counts(ctx, fieldID)
	if err != nil {
		return nil, err
	}
	return &counts, nil
}

// LocateGroup 由扫描到的 recid 确定分组，返回组内未淘汰地块
func (s *harvestService) LocateGroup(ctx context.Context, fieldID uint, recid string) (*dto.LocateGroupResponse, error) {
	recid = strings.TrimSpace(recid)
	if recid == "" {
		return nil, ErrEmptyRecid
	}
	if _, err := loadField(ctx, s.repo, fieldID); err != nil {
		return nil, err
	}

	plot, err := s.repo.Plot.GetByRecidInField(ctx, fieldID, recid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.notFound(ctx, fieldID, recid)
		}
		s.logger.Error("查询地块失败", zap.String("recid", recid), zap.Error(err))
		return nil, err
	}
	if plot.Discarded {
		return nil, ErrPlotDiscarded
	}

	plots, err := s.repo.Plot.ListByGroup(ctx, fieldID, plot.GroupID, false)
	if err != nil {
		s.logger.Error("查询分组地块失败", zap.String("group_id", plot.GroupID), zap.Error(err))
		return nil, err
	}
	return &dto.LocateGroupResponse{
		Recid:   plot.Recid,
		GroupID: plot.GroupID,
		Plots:   toPlotResponses(plots),
	}, nil
}

// ────────────────────── 辅助 ──────────────────────

func (s *harvestService) counts(ctx context.Context, fieldID uint) (model.HarvestCounts, error) {
	counts, err := loadCounts(ctx, s.repo.Plot, fieldID)
	if err != nil {
		s.logger.Error("统计田块进度失败", zap.Uint("field_id", fieldID), zap.Error(err))
	}
	return counts, err
}

// notFound 构造带候选的 NotFoundError；候选查询失败不影响主错误
func (s *harvestService) notFound(ctx context.Context, fieldID uint, recid string) error {
	suggestions, err := s.resolver.Suggest(ctx, fieldID, recid, suggestionLimit)
	if err != nil {
		s.logger.Warn("查询近似 recid 失败", zap.String("recid", recid), zap.Error(err))
	}
	return &NotFoundError{Recid: strings.TrimSpace(recid), Suggestions: suggestions}
}

// normalizeRecids 去空白、去空串、去重，保持原顺序
func normalizeRecids(recids []string) []string {
	seen := make(map[string]struct{}, len(recids))
	ids := make([]string, 0, len(recids))
	for _, r := range recids {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		ids = append(ids, r)
	}
	return ids
}
