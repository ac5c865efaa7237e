package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RodrigoBertipalha/AppColheita/internal/dto"
	"github.com/RodrigoBertipalha/AppColheita/internal/service"
	"github.com/RodrigoBertipalha/AppColheita/pkg/response"
)

// HarvestHandler 收获模块 HTTP 处理器
type HarvestHandler struct {
	harvestSvc service.HarvestService
}

// NewHarvestHandler 创建 HarvestHandler
func NewHarvestHandler(harvestSvc service.HarvestService) *HarvestHandler {
	return &HarvestHandler{harvestSvc: harvestSvc}
}

// Scan 扫码或手动输入 recid 标记收获
// POST /api/v1/fields/:id/harvest/scan
func (h *HarvestHandler) Scan(c *gin.Context) {
	id, ok := MustGetFieldID(c)
	if !ok {
		return
	}
	var req dto.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.harvestSvc.MarkByRecid(c.Request.Context(), id, req.Recid, dto.HarvestedOrDefault(req.Harvested))
	if err != nil {
		h.handleHarvestError(c, err)
		return
	}
	response.OK(c, result)
}

// MarkGroup 整组标记；请求中带 recids 时只标记所选地块
// POST /api/v1/fields/:id/harvest/group
func (h *HarvestHandler) MarkGroup(c *gin.Context) {
	id, ok := MustGetFieldID(c)
	if !ok {
		return
	}
	var req dto.GroupHarvestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	harvested := dto.HarvestedOrDefault(req.Harvested)

	if len(req.Recids) > 0 {
		result, err := h.harvestSvc.MarkByRecids(c.Request.Context(), id, req.Recids, harvested)
		if err != nil {
			h.handleHarvestError(c, err)
			return
		}
		response.OK(c, result)
		return
	}

	result, err := h.harvestSvc.MarkByGroup(c.Request.Context(), id, req.GroupID, harvested)
	if err != nil {
		h.handleHarvestError(c, err)
		return
	}
	response.OK(c, result)
}

// MarkBatch 按 recid 列表标记
// POST /api/v1/fields/:id/harvest/batch
func (h *HarvestHandler) MarkBatch(c *gin.Context) {
	id, ok := MustGetFieldID(c)
	if !ok {
		return
	}
	var req dto.BatchHarvestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.harvestSvc.MarkByRecids(c.Request.Context(), id, req.Recids, dto.HarvestedOrDefault(req.Harvested))
	if err != nil {
		h.handleHarvestError(c, err)
		return
	}
	response.OK(c, result)
}

// Undo 撤销最近的收获标记
// POST /api/v1/fields/:id/harvest/undo
func (h *HarvestHandler) Undo(c *gin.Context) {
	id, ok := MustGetFieldID(c)
	if !ok {
		return
	}
	result, err := h.harvestSvc.UndoLast(c.Request.Context(), id)
	if err != nil {
		h.handleHarvestError(c, err)
		return
	}
	response.OK(c, result)
}

// GetCounts 田块收获计数
// GET /api/v1/fields/:id/harvest/counts
func (h *HarvestHandler) GetCounts(c *gin.Context) {
	id, ok := MustGetFieldID(c)
	if !ok {
		return
	}
	counts, err := h.harvestSvc.Counts(c.Request.Context(), id)
	if err != nil {
		h.handleHarvestError(c, err)
		return
	}
	response.OK(c, counts)
}

// Locate 根据扫描的 recid 定位分组
// GET /api/v1/fields/:id/harvest/locate?recid=xxx
func (h *HarvestHandler) Locate(c *gin.Context) {
	id, ok := MustGetFieldID(c)
	if !ok {
		return
	}
	var req dto.LocateRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "recid 不能为空")
		return
	}

	result, err := h.harvestSvc.LocateGroup(c.Request.Context(), id, req.Recid)
	if err != nil {
		h.handleHarvestError(c, err)
		return
	}
	response.OK(c, result)
}

// handleHarvestError 统一处理收获模块业务错误
func (h *HarvestHandler) handleHarvestError(c *gin.Context, err error) {
	var nf *service.NotFoundError
	switch {
	case errors.As(err, &nf):
		response.ErrorWithData(c, http.StatusNotFound, 22001, "地块不存在", dto.NotFoundData{
			Recid:       nf.Recid,
			Suggestions: nf.Suggestions,
		})
	case errors.Is(err, service.ErrPlotNotFound):
		response.NotFound(c, 22001, "地块不存在")
	case errors.Is(err, service.ErrPlotDiscarded):
		response.Conflict(c, 22002, "地块已淘汰，不能标记为已收获")
	case errors.Is(err, service.ErrNothingToUndo):
		response.BadRequest(c, 22003, "没有可撤销的收获记录")
	case errors.Is(err, service.ErrGroupNotFound):
		response.NotFound(c, 22004, "分组不存在")
	case errors.Is(err, service.ErrEmptyRecid),
		errors.Is(err, service.ErrEmptyRecids),
		errors.Is(err, service.ErrEmptyGroup):
		response.BadRequest(c, 22005, "recid 或分组不能为空")
	case errors.Is(err, service.ErrFieldNotFound):
		response.NotFound(c, 23001, "田块不存在")
	default:
		response.InternalError(c)
	}
}
