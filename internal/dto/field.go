package dto

import "github.com/RodrigoBertipalha/AppColheita/internal/model"

// ── 田块模块 DTO ──

// FieldResponse 田块信息
type FieldResponse struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	ImportedAt string `json:"imported_at"`
	SourcePath string `json:"source_path"`
}

// GroupStatsResponse 分组进度
type GroupStatsResponse struct {
	GroupID             string  `json:"group_id"`
	Total               int64   `json:"total"`
	Harvested           int64   `json:"harvested"`
	Discarded           int64   `json:"discarded"`
	HarvestedPercentage float64 `json:"harvested_percentage"`
}

// DashboardResponse 田块进度看板
type DashboardResponse struct {
	Field  FieldResponse        `json:"field"`
	Counts model.HarvestCounts  `json:"counts"`
	Groups []GroupStatsResponse `json:"groups"`
}

// PlotResponse 地块信息
type PlotResponse struct {
	Recid         string `json:"recid"`
	FieldID       uint   `json:"field_id"`
	LocSeq        string `json:"loc_seq"`
	EntryBookName string `json:"entry_book_name"`
	Range         string `json:"range"`
	Row           string `json:"row"`
	Tier          string `json:"tier"`
	Plot          string `json:"plot"`
	GroupID       string `json:"group_id"`
	Harvested     bool   `json:"harvested"`
	Discarded     bool   `json:"discarded"`
	Decision      string `json:"decision,omitempty"`
	Status        string `json:"status"`
}

// PlotListRequest 地块列表查询参数
type PlotListRequest struct {
	PaginationRequest
	Search           string `form:"search"            binding:"omitempty,max=128"`
	GroupID          string `form:"group_id"          binding:"omitempty,max=255"`
	IncludeDiscarded bool   `form:"include_discarded"`
}

// GroupPlotsRequest 分组地块查询参数
type GroupPlotsRequest struct {
	IncludeDiscarded bool `form:"include_discarded"`
}
