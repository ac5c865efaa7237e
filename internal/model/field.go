package model

import "time"

// Field 田块表，对应 fields
// 一次导入的工作数据集；最近导入的一条即为"当前田块"
type Field struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"        json:"id"`
	Name       string    `gorm:"type:varchar(255);not null"      json:"name"`
	ImportedAt time.Time `gorm:"not null;index"                  json:"imported_at"`
	SourcePath string    `gorm:"type:varchar(1024);not null"     json:"source_path"` // 源表格位置，导出时重新打开
	BaseModel
}

// TableName 指定表名
func (Field) TableName() string { return "fields" }
