package dto

import "github.com/RodrigoBertipalha/AppColheita/internal/model"

// ── 收获模块 DTO ──

// ScanRequest 扫码/输入 recid 标记
// harvested 省略时视为 true
type ScanRequest struct {
	Recid     string `json:"recid"     binding:"required,max=256"`
	Harvested *bool  `json:"harvested"`
}

// GroupHarvestRequest 整组标记；recids 非空时只标记所选地块
type GroupHarvestRequest struct {
	GroupID   string   `json:"group_id"  binding:"required,max=255"`
	Harvested *bool    `json:"harvested"`
	Recids    []string `json:"recids"    binding:"omitempty,max=5000"`
}

// BatchHarvestRequest 按 recid 列表标记
type BatchHarvestRequest struct {
	Recids    []string `json:"recids"    binding:"required,min=1,max=5000"`
	Harvested *bool    `json:"harvested"`
}

// LocateRequest 查询地块所在分组
type LocateRequest struct {
	Recid string `form:"recid" binding:"required,max=256"`
}

// HarvestedOrDefault harvested 字段缺省为 true
func HarvestedOrDefault(v *bool) bool {
	if v == nil {
		return true
	}
	return *v
}

// ScanResponse 扫码标记结果
type ScanResponse struct {
	Plot      PlotResponse        `json:"plot"`
	MatchedBy string              `json:"matched_by"` // exact / partial / pattern
	Counts    model.HarvestCounts `json:"counts"`
}

// GroupHarvestResponse 整组标记结果
type GroupHarvestResponse struct {
	GroupID        string              `json:"group_id"`
	Affected       int64               `json:"affected"`
	GroupSize      int64               `json:"group_size"`
	GroupHarvested int64               `json:"group_harvested"`
	Counts         model.HarvestCounts `json:"counts"`
}

// BatchHarvestResponse 批量标记结果
type BatchHarvestResponse struct {
	Affected int64               `json:"affected"`
	Counts   model.HarvestCounts `json:"counts"`
}

// UndoResponse 撤销结果
type UndoResponse struct {
	Plot   PlotResponse        `json:"plot"`
	Counts model.HarvestCounts `json:"counts"`
}

// LocateGroupResponse 地块所在分组及组内未淘汰地块
type LocateGroupResponse struct {
	Recid   string         `json:"recid"`
	GroupID string         `json:"group_id"`
	Plots   []PlotResponse `json:"plots"`
}

// NotFoundData 未找到地块时返回的建议
type NotFoundData struct {
	Recid       string   `json:"recid"`
	Suggestions []string `json:"suggestions"`
}
