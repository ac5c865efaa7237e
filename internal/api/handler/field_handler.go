package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/RodrigoBertipalha/AppColheita/internal/dto"
	"github.com/RodrigoBertipalha/AppColheita/internal/service"
	"github.com/RodrigoBertipalha/AppColheita/pkg/response"
)

// FieldHandler 田块模块 HTTP 处理器
type FieldHandler struct {
	fieldSvc service.FieldService
}

// NewFieldHandler 创建 FieldHandler
func NewFieldHandler(fieldSvc service.FieldService) *FieldHandler {
	return &FieldHandler{fieldSvc: fieldSvc}
}

// ListFields 获取田块列表
// GET /api/v1/fields
func (h *FieldHandler) ListFields(c *gin.Context) {
	fields, err := h.fieldSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": fields})
}

// GetCurrentField 获取当前田块（最近一次导入）
// GET /api/v1/fields/current
func (h *FieldHandler) GetCurrentField(c *gin.Context) {
	field, err := h.fieldSvc.Current(c.Request.Context())
	if err != nil {
		h.handleFieldError(c, err)
		return
	}
	response.OK(c, field)
}

// GetField 获取田块详情
// GET /api/v1/fields/:id
func (h *FieldHandler) GetField(c *gin.Context) {
	id, ok := MustGetFieldID(c)
	if !ok {
		return
	}
	field, err := h.fieldSvc.Get(c.Request.Context(), id)
	if err != nil {
		h.handleFieldError(c, err)
		return
	}
	response.OK(c, field)
}

// DeleteField 删除田块及其地块
// DELETE /api/v1/fields/:id
func (h *FieldHandler) DeleteField(c *gin.Context) {
	id, ok := MustGetFieldID(c)
	if !ok {
		return
	}
	if err := h.fieldSvc.Delete(c.Request.Context(), id); err != nil {
		h.handleFieldError(c, err)
		return
	}
	response.OK(c, nil)
}

// GetDashboard 田块进度看板
// GET /api/v1/fields/:id/dashboard
func (h *FieldHandler) GetDashboard(c *gin.Context) {
	id, ok := MustGetFieldID(c)
	if !ok {
		return
	}
	dash, err := h.fieldSvc.Dashboard(c.Request.Context(), id)
	if err != nil {
		h.handleFieldError(c, err)
		return
	}
	response.OK(c, dash)
}

// ListPlots 分页查询地块
// GET /api/v1/fields/:id/plots?page=&page_size=&search=&group_id=&include_discarded=
func (h *FieldHandler) ListPlots(c *gin.Context) {
	id, ok := MustGetFieldID(c)
	if !ok {
		return
	}
	var req dto.PlotListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	plots, total, err := h.fieldSvc.ListPlots(c.Request.Context(), id, &req)
	if err != nil {
		h.handleFieldError(c, err)
		return
	}
	response.OKPage(c, plots, total, req.GetPage(), req.GetPageSize())
}

// ListGroups 分组进度列表
// GET /api/v1/fields/:id/groups
func (h *FieldHandler) ListGroups(c *gin.Context) {
	id, ok := MustGetFieldID(c)
	if !ok {
		return
	}
	groups, err := h.fieldSvc.ListGroups(c.Request.Context(), id)
	if err != nil {
		h.handleFieldError(c, err)
		return
	}
	response.OK(c, gin.H{"list": groups})
}

// GroupPlots 分组内地块
// GET /api/v1/fields/:id/groups/:group_id/plots
func (h *FieldHandler) GroupPlots(c *gin.Context) {
	id, ok := MustGetFieldID(c)
	if !ok {
		return
	}
	var req dto.GroupPlotsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	plots, err := h.fieldSvc.GroupPlots(c.Request.Context(), id, c.Param("group_id"), req.IncludeDiscarded)
	if err != nil {
		h.handleFieldError(c, err)
		return
	}
	response.OK(c, gin.H{"list": plots})
}

// handleFieldError 统一处理田块模块业务错误
func (h *FieldHandler) handleFieldError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrFieldNotFound):
		response.NotFound(c, 23001, "田块不存在")
	case errors.Is(err, service.ErrNoField):
		response.NotFound(c, 23002, "尚未导入任何田块")
	case errors.Is(err, service.ErrGroupNotFound):
		response.NotFound(c, 23003, "分组不存在")
	default:
		response.InternalError(c)
	}
}
