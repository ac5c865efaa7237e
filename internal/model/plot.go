package model

// Plot 地块表，对应 plots
// recid 由源表格提供，全库唯一（不仅在田块内唯一），不自动生成
type Plot struct {
	Recid         string `gorm:"type:varchar(128);primaryKey"          json:"recid"`
	FieldID       uint   `gorm:"not null;index"                        json:"field_id"`
	Field         *Field `gorm:"foreignKey:FieldID;constraint:OnDelete:CASCADE" json:"-"`
	LocSeq        string `gorm:"type:varchar(255);not null"            json:"loc_seq"`
	EntryBookName string `gorm:"type:varchar(255);not null"            json:"entry_book_name"`
	Range         string `gorm:"column:range;type:varchar(255);not null" json:"range"`
	Row           string `gorm:"column:row;type:varchar(255);not null"   json:"row"`
	Tier          string `gorm:"type:varchar(255);not null"            json:"tier"`
	PlotLabel     string `gorm:"column:plot;type:varchar(255);not null" json:"plot"`
	GroupID       string `gorm:"type:varchar(255);not null;index"      json:"group_id"`
	Harvested     bool   `gorm:"not null"                              json:"harvested"`
	Discarded     bool   `gorm:"not null"                              json:"discarded"`
	Decision      string `gorm:"type:text;not null"                    json:"decision"` // 源表格中的原始决策文本
	BaseModel
}

// TableName 指定表名
func (Plot) TableName() string { return "plots" }

// Status 地块状态（由 harvested × discarded 推出，不单独存储）
func (p *Plot) Status() string {
	switch {
	case p.Discarded:
		return PlotStatusDiscarded
	case p.Harvested:
		return PlotStatusHarvested
	default:
		return PlotStatusPending
	}
}

// 地块状态
const (
	PlotStatusPending   = "pending"
	PlotStatusHarvested = "harvested"
	PlotStatusDiscarded = "discarded"
)
