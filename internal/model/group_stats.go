package model

// GroupStats 分组统计（聚合查询结果，不落库）
type GroupStats struct {
	GroupID   string `gorm:"column:group_id"  json:"group_id"`
	Total     int64  `gorm:"column:total"     json:"total"`
	Harvested int64  `gorm:"column:harvested" json:"harvested"`
	Discarded int64  `gorm:"column:discarded" json:"discarded"`
}

// HarvestedPercentage 已收获百分比，total 为 0 时返回 0；展示层再决定精度
func (g GroupStats) HarvestedPercentage() float64 {
	if g.Total == 0 {
		return 0
	}
	return float64(g.Harvested) * 100 / float64(g.Total)
}

// HarvestCounts 田块进度计数，每次变更后都从存储重新统计
type HarvestCounts struct {
	Total     int64 `json:"total"`
	Harvested int64 `json:"harvested"`
	Discarded int64 `json:"discarded"`
	Eligible  int64 `json:"eligible"`
	Remaining int64 `json:"remaining"`
}

// NewHarvestCounts 由三个基础计数推出 eligible / remaining
func NewHarvestCounts(total, harvested, discarded int64) HarvestCounts {
	eligible := total - discarded
	return HarvestCounts{
		Total:     total,
		Harvested: harvested,
		Discarded: discarded,
		Eligible:  eligible,
		Remaining: eligible - harvested,
	}
}
