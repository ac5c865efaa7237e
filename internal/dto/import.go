package dto

import "github.com/RodrigoBertipalha/AppColheita/internal/spreadsheet"

// ── 导入模块 DTO ──

// ImportForm 导入表单字段（文件另取）
type ImportForm struct {
	Strategy string `form:"strategy" binding:"omitempty,oneof=replace merge"`
}

// PreviewForm 预览表单字段
type PreviewForm struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

// ImportSessionListRequest 导入记录查询参数
type ImportSessionListRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// PreviewResponse 导入预览
type PreviewResponse struct {
	FileName       string                   `json:"file_name"`
	Headers        []string                 `json:"headers"`
	Rows           []spreadsheet.PreviewRow `json:"rows"`
	MissingColumns []string                 `json:"missing_columns,omitempty"`
}

// ImportResponse 导入结果
type ImportResponse struct {
	SessionID     uint          `json:"session_id"`
	Field         FieldResponse `json:"field"`
	Strategy      string        `json:"strategy"`
	RowsRead      int           `json:"rows_read"`
	RowsSkipped   int           `json:"rows_skipped"`
	RowsProcessed int           `json:"rows_processed"`
	NewRows       int           `json:"new_rows"`
	BackupPath    string        `json:"backup_path,omitempty"`
}

// ImportSessionResponse 导入记录
type ImportSessionResponse struct {
	ID            uint   `json:"id"`
	FieldID       uint   `json:"field_id"`
	SourcePath    string `json:"source_path"`
	SizeBytes     int64  `json:"size_bytes"`
	RowsProcessed int    `json:"rows_processed"`
	NewRows       int    `json:"new_rows"`
	Strategy      string `json:"strategy"`
	ImportedAt    string `json:"imported_at"`
}
