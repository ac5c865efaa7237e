package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/RodrigoBertipalha/AppColheita/internal/service"
	"github.com/RodrigoBertipalha/AppColheita/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportField 导出带收获状态的表格
// GET /api/v1/fields/:id/export
func (h *ExportHandler) ExportField(c *gin.Context) {
	id, ok := MustGetFieldID(c)
	if !ok {
		return
	}

	result, err := h.exportSvc.Export(c.Request.Context(), id, "")
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.FileAttachment(result.Path, result.FileName)
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrFieldNotFound):
		response.NotFound(c, 23001, "田块不存在")
	case errors.Is(err, service.ErrExportSourceMissing):
		response.NotFound(c, 24001, "原始表格不存在或无法读取，无法导出")
	default:
		response.InternalError(c)
	}
}
