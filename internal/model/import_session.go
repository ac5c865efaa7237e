package model

import "time"

// ImportSession 导入记录表，对应 import_sessions（只追加，不修改）
type ImportSession struct {
	ID            uint      `gorm:"primaryKey;autoIncrement"     json:"id"`
	FieldID       uint      `gorm:"not null;index"               json:"field_id"`
	SourcePath    string    `gorm:"type:varchar(1024);not null"  json:"source_path"`
	SizeBytes     int64     `gorm:"not null"                     json:"size_bytes"`
	RowsProcessed int       `gorm:"not null"                     json:"rows_processed"`
	NewRows       int       `gorm:"not null"                     json:"new_rows"`
	Strategy      string    `gorm:"type:varchar(16);not null"    json:"strategy"`
	ImportedAt    time.Time `gorm:"not null;index"               json:"imported_at"`
}

// TableName 指定表名
func (ImportSession) TableName() string { return "import_sessions" }

// 导入策略
const (
	ImportStrategyReplace = "replace"
	ImportStrategyMerge   = "merge"
)
