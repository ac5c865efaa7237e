package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/RodrigoBertipalha/AppColheita/internal/dto"
	"github.com/RodrigoBertipalha/AppColheita/internal/model"
	"github.com/RodrigoBertipalha/AppColheita/internal/repository"
)

// ── 田块模块业务错误 ──

var (
	ErrFieldNotFound = errors.New("田块不存在")
	ErrNoField       = errors.New("尚未导入任何田块")
	ErrGroupNotFound = errors.New("分组不存在")
)

const timeLayout = "2006-01-02T15:04:05Z"

// FieldService 田块与进度看板业务接口
type FieldService interface {
	Current(ctx context.Context) (*dto.FieldResponse, error)
	Get(ctx context.Context, id uint) (*dto.FieldResponse, error)
	List(ctx context.Context) ([]dto.FieldResponse, error)
	Delete(ctx context.Context, id uint) error
	Dashboard(ctx context.Context, id uint) (*dto.DashboardResponse, error)
	ListPlots(ctx context.Context, id uint, req *dto.PlotListRequest) ([]dto.PlotResponse, int64, error)
	ListGroups(ctx context.Context, id uint) ([]dto.GroupStatsResponse, error)
	GroupPlots(ctx context.Context, id uint, groupID string, includeDiscarded bool) ([]dto.PlotResponse, error)
}

type fieldService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewFieldService 创建 FieldService 实例
func NewFieldService(repo *repository.Repository, logger *zap.Logger) FieldService {
	return &fieldService{repo: repo, logger: logger}
}

// ────────────────────── Current / Get / List ──────────────────────

func (s *fieldService) Current(ctx context.Context) (*dto.FieldResponse, error) {
	field, err := s.repo.Field.GetLatest(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoField
		}
		s.logger.Error("查询当前田块失败", zap.Error(err))
		return nil, err
	}
	resp := toFieldResponse(field)
	return &resp, nil
}

func (s *fieldService) Get(ctx context.Context, id uint) (*dto.FieldResponse, error) {
	field, err := loadField(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	resp := toFieldResponse(field)
	return &resp, nil
}

func (s *fieldService) List(ctx context.Context) ([]dto.FieldResponse, error) {
	fields, err := s.repo.Field.List(ctx)
	if err != nil {
		s.logger.Error("查询田块列表失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.FieldResponse, 0, len(fields))
	for i := range fields {
		result = append(result, toFieldResponse(&fields[i]))
	}
	return result, nil
}

// ────────────────────── Delete ──────────────────────

func (s *fieldService) Delete(ctx context.Context, id uint) error {
	err := s.repo.Field.Delete(context.WithoutCancel(ctx), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFieldNotFound
		}
		s.logger.Error("删除田块失败", zap.Uint("field_id", id), zap.Error(err))
		return err
	}
	s.logger.Info("田块已删除", zap.Uint("field_id", id))
	return nil
}

// ────────────────────── Dashboard ──────────────────────

// Dashboard 各项计数彼此独立，并发查询
func (s *fieldService) Dashboard(ctx context.Context, id uint) (*dto.DashboardResponse, error) {
	field, err := loadField(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}

	var (
		total, harvested, discarded int64
		stats                       []model.GroupStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = s.repo.Plot.CountTotal(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		harvested, err = s.repo.Plot.CountHarvested(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		discarded, err = s.repo.Plot.CountDiscarded(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = s.repo.Plot.ListGroupStats(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("统计田块进度失败", zap.Uint("field_id", id), zap.Error(err))
		return nil, err
	}

	return &dto.DashboardResponse{
		Field:  toFieldResponse(field),
		Counts: model.NewHarvestCounts(total, harvested, discarded),
		Groups: toGroupStatsResponses(stats),
	}, nil
}

// ────────────────────── Plots / Groups ──────────────────────

func (s *fieldService) ListPlots(ctx context.Context, id uint, req *dto.PlotListRequest) ([]dto.PlotResponse, int64, error) {
	if _, err := loadField(ctx, s.repo, id); err != nil {
		return nil, 0, err
	}
	plots, total, err := s.repo.Plot.List(ctx, repository.PlotFilter{
		FieldID:          id,
		Search:           req.Search,
		GroupID:          req.GroupID,
		IncludeDiscarded: req.IncludeDiscarded,
		Offset:           req.GetOffset(),
		Limit:            req.GetPageSize(),
	})
	if err != nil {
		s.logger.Error("查询地块列表失败", zap.Uint("field_id", id), zap.Error(err))
		return nil, 0, err
	}
	return toPlotResponses(plots), total, nil
}

func (s *fieldService) ListGroups(ctx context.Context, id uint) ([]dto.GroupStatsResponse, error) {
	if _, err := loadField(ctx, s.repo, id); err != nil {
		return nil, err
	}
	stats, err := s.repo.Plot.ListGroupStats(ctx, id)
	if err != nil {
		s.logger.Error("查询分组统计失败", zap.Uint("field_id", id), zap.Error(err))
		return nil, err
	}
	return toGroupStatsResponses(stats), nil
}

func (s *fieldService) GroupPlots(ctx context.Context, id uint, groupID string, includeDiscarded bool) ([]dto.PlotResponse, error) {
	if _, err := loadField(ctx, s.repo, id); err != nil {
		return nil, err
	}
	plots, err := s.repo.Plot.ListByGroup(ctx, id, groupID, includeDiscarded)
	if err != nil {
		s.logger.Error("查询分组地块失败", zap.Uint("field_id", id), zap.String("group_id", groupID), zap.Error(err))
		return nil, err
	}
	if len(plots) == 0 {
		stats, err := s.repo.Plot.GetGroupStats(ctx, id, groupID)
		if err != nil {
			return nil, err
		}
		if stats.Total == 0 {
			return nil, ErrGroupNotFound
		}
	}
	return toPlotResponses(plots), nil
}

// ────────────────────── 共用辅助 ──────────────────────

// loadField 按 ID 查询田块，不存在时返回 ErrFieldNotFound
func loadField(ctx context.Context, repo *repository.Repository, id uint) (*model.Field, error) {
	field, err := repo.Field.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFieldNotFound
		}
		return nil, err
	}
	return field, nil
}

// loadCounts 从存储重新统计田块进度
func loadCounts(ctx context.Context, plots repository.PlotRepository, fieldID uint) (model.HarvestCounts, error) {
	total, err := plots.CountTotal(ctx, fieldID)
	if err != nil {
		return model.HarvestCounts{}, err
	}
	harvested, err := plots.CountHarvested(ctx, fieldID)
	if err != nil {
		return model.HarvestCounts{}, err
	}
	discarded, err := plots.CountDiscarded(ctx, fieldID)
	if err != nil {
		return model.HarvestCounts{}, err
	}
	return model.NewHarvestCounts(total, harvested, discarded), nil
}

func toFieldResponse(f *model.Field) dto.FieldResponse {
	return dto.FieldResponse{
		ID:         f.ID,
		Name:       f.Name,
		ImportedAt: f.ImportedAt.UTC().Format(timeLayout),
		SourcePath: f.SourcePath,
	}
}

func toPlotResponse(p *model.Plot) dto.PlotResponse {
	return dto.PlotResponse{
		Recid:         p.Recid,
		FieldID:       p.FieldID,
		LocSeq:        p.LocSeq,
		EntryBookName: p.EntryBookName,
		Range:         p.Range,
		Row:           p.Row,
		Tier:          p.Tier,
		Plot:          p.PlotLabel,
		GroupID:       p.GroupID,
		Harvested:     p.Harvested,
		Discarded:     p.Discarded,
		Decision:      p.Decision,
		Status:        p.Status(),
	}
}

func toPlotResponses(plots []model.Plot) []dto.PlotResponse {
	result := make([]dto.PlotResponse, 0, len(plots))
	for i := range plots {
		result = append(result, toPlotResponse(&plots[i]))
	}
	return result
}

func toGroupStatsResponses(stats []model.GroupStats) []dto.GroupStatsResponse {
	result := make([]dto.GroupStatsResponse, 0, len(stats))
	for _, g := range stats {
		result = append(result, dto.GroupStatsResponse{
			GroupID:             g.GroupID,
			Total:               g.Total,
			Harvested:           g.Harvested,
			Discarded:           g.Discarded,
			HarvestedPercentage: g.HarvestedPercentage(),
		})
	}
	return result
}
