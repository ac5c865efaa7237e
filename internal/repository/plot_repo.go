package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/RodrigoBertipalha/AppColheita/internal/model"
)

// upsertBatchSize 批量写入时每批的地块数
const upsertBatchSize = 200

// PlotFilter 地块列表查询条件
type PlotFilter struct {
	FieldID          uint
	Search           string // recid 模糊搜索
	GroupID          string
	IncludeDiscarded bool
	Offset           int
	Limit            int
}

// PlotRepository 地块数据访问接口
// fieldID 为 0 表示不限定田块
type PlotRepository interface {
	UpsertBatch(ctx context.Context, plots []model.Plot) error
	GetByRecid(ctx context.Context, recid string) (*model.Plot, error)
	GetByRecidInField(ctx context.Context, fieldID uint, recid string) (*model.Plot, error)
	FindByRecidContaining(ctx context.Context, fragment string) (*model.Plot, error)
	ListByField(ctx context.Context, fieldID uint) ([]model.Plot, error)
	List(ctx context.Context, filter PlotFilter) ([]model.Plot, int64, error)
	ListByGroup(ctx context.Context, fieldID uint, groupID string, includeDiscarded bool) ([]model.Plot, error)

	UpdateStatus(ctx context.Context, recid string, harvested bool) error
	UpdateStatusByGroup(ctx context.Context, fieldID uint, groupID string, harvested bool) (int64, error)
	UpdateStatusByRecids(ctx context.Context, fieldID uint, recids []string, harvested bool) (int64, error)

	CountTotal(ctx context.Context, fieldID uint) (int64, error)
	CountHarvested(ctx context.Context, fieldID uint) (int64, error)
	CountDiscarded(ctx context.Context, fieldID uint) (int64, error)
	GetGroupStats(ctx context.Context, fieldID uint, groupID string) (*model.GroupStats, error)
	ListDistinctGroups(ctx context.Context, fieldID uint) ([]string, error)
	ListGroupStats(ctx context.Context, fieldID uint) ([]model.GroupStats, error)

	GetLastHarvested(ctx context.Context, fieldID uint) (*model.Plot, error)
	DeleteByField(ctx context.Context, fieldID uint) error
}

// plotRepo PlotRepository 的 GORM 实现
type plotRepo struct {
	db *gorm.DB
}

// NewPlotRepo 创建 PlotRepository 实例
func NewPlotRepo(db *gorm.DB) PlotRepository {
	return &plotRepo{db: db}
}

// scoped 按田块限定查询范围
func scoped(db *gorm.DB, fieldID uint) *gorm.DB {
	if fieldID == 0 {
		return db
	}
	return db.Where("field_id = ?", fieldID)
}

// ────────────────────── 写入 ──────────────────────

// UpsertBatch 按 recid 冲突覆盖全部列，分批写入
func (r *plotRepo) UpsertBatch(ctx context.Context, plots []model.Plot) error {
	if len(plots) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "recid"}},
			UpdateAll: true,
		}).
		CreateInBatches(plots, upsertBatchSize).Error
}

// UpdateStatus 按 recid 设置收获状态
func (r *plotRepo) UpdateStatus(ctx context.Context, recid string, harvested bool) error {
	result := r.db.WithContext(ctx).
		Model(&model.Plot{}).
		Where("recid = ?", recid).
		Update("harvested", harvested)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateStatusByGroup 整组设置收获状态
// 标记收获时跳过已淘汰地块；取消收获时整组清除
func (r *plotRepo) UpdateStatusByGroup(ctx context.Context, fieldID uint, groupID string, harvested bool) (int64, error) {
	query := scoped(r.db.WithContext(ctx).Model(&model.Plot{}), fieldID).
		Where("group_id = ?", groupID)
	if harvested {
		query = query.Where("discarded = ?", false)
	}
	result := query.Update("harvested", harvested)
	return result.RowsAffected, result.Error
}

// UpdateStatusByRecids 按 recid 列表设置收获状态，仅精确匹配
func (r *plotRepo) UpdateStatusByRecids(ctx context.Context, fieldID uint, recids []string, harvested bool) (int64, error) {
	if len(recids) == 0 {
		return 0, nil
	}
	query := scoped(r.db.WithContext(ctx).Model(&model.Plot{}), fieldID).
		Where("recid IN ?", recids)
	if harvested {
		query = query.Where("discarded = ?", false)
	}
	result := query.Update("harvested", harvested)
	return result.RowsAffected, result.Error
}

func (r *plotRepo) DeleteByField(ctx context.Context, fieldID uint) error {
	return r.db.WithContext(ctx).
		Where("field_id = ?", fieldID).
		Delete(&model.Plot{}).Error
}

// ────────────────────── 查询 ──────────────────────

func (r *plotRepo) GetByRecid(ctx context.Context, recid string) (*model.Plot, error) {
	var plot model.Plot
	err := r.db.WithContext(ctx).
		Where("recid = ?", recid).
		First(&plot).Error
	if err != nil {
		return nil, err
	}
	return &plot, nil
}

func (r *plotRepo) GetByRecidInField(ctx context.Context, fieldID uint, recid string) (*model.Plot, error) {
	var plot model.Plot
	err := scoped(r.db.WithContext(ctx), fieldID).
		Where("recid = ?", recid).
		First(&plot).Error
	if err != nil {
		return nil, err
	}
	return &plot, nil
}

// FindByRecidContaining 全库 recid 包含 fragment 的第一条（按 recid 升序）
func (r *plotRepo) FindByRecidContaining(ctx context.Context, fragment string) (*model.Plot, error) {
	var plot model.Plot
	err := r.db.WithContext(ctx).
		Where(`recid LIKE ? ESCAPE '\'`, "%"+escapeLike(fragment)+"%").
		Order("recid ASC").
		First(&plot).Error
	if err != nil {
		return nil, err
	}
	return &plot, nil
}

func (r *plotRepo) ListByField(ctx context.Context, fieldID uint) ([]model.Plot, error) {
	var plots []model.Plot
	err := r.db.WithContext(ctx).
		Where("field_id = ?", fieldID).
		Order("recid ASC").
		Find(&plots).Error
	return plots, err
}

// List 分页查询地块，返回当前页与总数
func (r *plotRepo) List(ctx context.Context, filter PlotFilter) ([]model.Plot, int64, error) {
	query := scoped(r.db.WithContext(ctx).Model(&model.Plot{}), filter.FieldID)
	if filter.Search != "" {
		query = query.Where(`recid LIKE ? ESCAPE '\'`, "%"+escapeLike(filter.Search)+"%")
	}
	if filter.GroupID != "" {
		query = query.Where("group_id = ?", filter.GroupID)
	}
	if !filter.IncludeDiscarded {
		query = query.Where("discarded = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var plots []model.Plot
	page := query.Order("recid ASC")
	if filter.Limit > 0 {
		page = page.Offset(filter.Offset).Limit(filter.Limit)
	}
	if err := page.Find(&plots).Error; err != nil {
		return nil, 0, err
	}
	return plots, total, nil
}

func (r *plotRepo) ListByGroup(ctx context.Context, fieldID uint, groupID string, includeDiscarded bool) ([]model.Plot, error) {
	var plots []model.Plot
	query := scoped(r.db.WithContext(ctx), fieldID).
		Where("group_id = ?", groupID)
	if !includeDiscarded {
		query = query.Where("discarded = ?", false)
	}
	err := query.Order("recid ASC").Find(&plots).Error
	return plots, err
}

// GetLastHarvested 已收获地块中 recid 最大的一条（撤销使用）
func (r *plotRepo) GetLastHarvested(ctx context.Context, fieldID uint) (*model.Plot, error) {
	var plot model.Plot
	err := scoped(r.db.WithContext(ctx), fieldID).
		Where("harvested = ?", true).
		Order("recid DESC").
		First(&plot).Error
	if err != nil {
		return nil, err
	}
	return &plot, nil
}

// ────────────────────── 统计 ──────────────────────

func (r *plotRepo) CountTotal(ctx context.Context, fieldID uint) (int64, error) {
	var count int64
	err := scoped(r.db.WithContext(ctx).Model(&model.Plot{}), fieldID).
		Count(&count).Error
	return count, err
}

func (r *plotRepo) CountHarvested(ctx context.Context, fieldID uint) (int64, error) {
	var count int64
	err := scoped(r.db.WithContext(ctx).Model(&model.Plot{}), fieldID).
		Where("harvested = ?", true).
		Count(&count).Error
	return count, err
}

func (r *plotRepo) CountDiscarded(ctx context.Context, fieldID uint) (int64, error) {
	var count int64
	err := scoped(r.db.WithContext(ctx).Model(&model.Plot{}), fieldID).
		Where("discarded = ?", true).
		Count(&count).Error
	return count, err
}

const groupStatsSelect = "group_id, COUNT(*) AS total, " +
	"COALESCE(SUM(CASE WHEN harvested THEN 1 ELSE 0 END), 0) AS harvested, " +
	"COALESCE(SUM(CASE WHEN discarded THEN 1 ELSE 0 END), 0) AS discarded"

// GetGroupStats 单个分组的统计；分组不存在时返回全零统计
func (r *plotRepo) GetGroupStats(ctx context.Context, fieldID uint, groupID string) (*model.GroupStats, error) {
	var rows []model.GroupStats
	err := scoped(r.db.WithContext(ctx).Model(&model.Plot{}), fieldID).
		Select(groupStatsSelect).
		Where("group_id = ?", groupID).
		Group("group_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &model.GroupStats{GroupID: groupID}, nil
	}
	return &rows[0], nil
}

func (r *plotRepo) ListDistinctGroups(ctx context.Context, fieldID uint) ([]string, error) {
	var groups []string
	err := scoped(r.db.WithContext(ctx).Model(&model.Plot{}), fieldID).
		Distinct("group_id").
		Order("group_id ASC").
		Pluck("group_id", &groups).Error
	return groups, err
}

func (r *plotRepo) ListGroupStats(ctx context.Context, fieldID uint) ([]model.GroupStats, error) {
	var stats []model.GroupStats
	err := scoped(r.db.WithContext(ctx).Model(&model.Plot{}), fieldID).
		Select(groupStatsSelect).
		Group("group_id").
		Order("group_id ASC").
		Scan(&stats).Error
	return stats, err
}

// escapeLike 转义 LIKE 通配符，使目标串按字面匹配
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
