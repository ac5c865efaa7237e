package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RodrigoBertipalha/AppColheita/internal/dto"
	"github.com/RodrigoBertipalha/AppColheita/internal/service"
	"github.com/RodrigoBertipalha/AppColheita/internal/spreadsheet"
	"github.com/RodrigoBertipalha/AppColheita/pkg/response"
)

// 允许上传的表格扩展名
var allowedSheetExts = map[string]bool{".xlsx": true, ".xlsm": true}

// ImportHandler 导入模块 HTTP 处理器
type ImportHandler struct {
	importSvc service.ImportService
	uploadDir string
	logger    *zap.Logger
}

// NewImportHandler 创建 ImportHandler
// 上传文件保存在 uploadDir，导出时需要重新打开
func NewImportHandler(importSvc service.ImportService, uploadDir string, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{importSvc: importSvc, uploadDir: uploadDir, logger: logger}
}

// Preview 预览上传表格的前若干行
// POST /api/v1/imports/preview (multipart: file, limit)
func (h *ImportHandler) Preview(c *gin.Context) {
	var form dto.PreviewForm
	if err := c.ShouldBind(&form); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	file, ok := h.mustGetSheet(c)
	if !ok {
		return
	}

	path, err := h.saveUpload(c, file)
	if err != nil {
		h.logger.Error("保存上传文件失败", zap.String("file", file.Filename), zap.Error(err))
		response.InternalError(c)
		return
	}
	defer os.Remove(path)

	result, err := h.importSvc.Preview(c.Request.Context(), path, file.Filename, form.Limit)
	if err != nil {
		h.handleImportError(c, err)
		return
	}
	response.OK(c, result)
}

// Import 上传表格并导入
// POST /api/v1/imports (multipart: file, strategy)
func (h *ImportHandler) Import(c *gin.Context) {
	var form dto.ImportForm
	if err := c.ShouldBind(&form); err != nil {
		response.BadRequest(c, 21007, "导入策略无效，仅支持 replace / merge")
		return
	}
	file, ok := h.mustGetSheet(c)
	if !ok {
		return
	}

	path, err := h.saveUpload(c, file)
	if err != nil {
		h.logger.Error("保存上传文件失败", zap.String("file", file.Filename), zap.Error(err))
		response.InternalError(c)
		return
	}

	result, err := h.importSvc.Import(c.Request.Context(), &service.ImportRequest{
		Path:        path,
		DisplayName: file.Filename,
		Strategy:    form.Strategy,
	})
	if err != nil {
		// 导入失败的文件不会被任何田块引用
		_ = os.Remove(path)
		h.handleImportError(c, err)
		return
	}
	response.Created(c, result)
}

// ListSessions 最近的导入记录
// GET /api/v1/imports?limit=20
func (h *ImportHandler) ListSessions(c *gin.Context) {
	var req dto.ImportSessionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	sessions, err := h.importSvc.ListSessions(c.Request.Context(), req.Limit)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": sessions})
}

// mustGetSheet 读取 multipart 中的 file 字段并校验扩展名
func (h *ImportHandler) mustGetSheet(c *gin.Context) (*multipart.FileHeader, bool) {
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, 21001, "请上传表格文件")
		return nil, false
	}
	if !allowedSheetExts[strings.ToLower(filepath.Ext(file.Filename))] {
		response.BadRequest(c, 21002, "仅支持 .xlsx 格式的表格")
		return nil, false
	}
	return file, true
}

// saveUpload 以随机文件名落盘，保留原扩展名
func (h *ImportHandler) saveUpload(c *gin.Context, file *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", err
	}
	name := uuid.New().String() + strings.ToLower(filepath.Ext(file.Filename))
	path := filepath.Join(h.uploadDir, name)
	if err := c.SaveUploadedFile(file, path); err != nil {
		return "", err
	}
	return path, nil
}

// handleImportError 统一处理导入模块业务错误
func (h *ImportHandler) handleImportError(c *gin.Context, err error) {
	var (
		mce *spreadsheet.MissingColumnsError
		sue *spreadsheet.SourceUnreadableError
	)
	switch {
	case errors.As(err, &mce):
		missing := make([]string, 0, len(mce.Missing))
		for _, col := range mce.Missing {
			missing = append(missing, col.Header())
		}
		response.ErrorWithData(c, http.StatusUnprocessableEntity, 21003, "表格缺少必需列", gin.H{"missing_columns": missing})
	case errors.As(err, &sue), errors.Is(err, spreadsheet.ErrNoSheet):
		response.BadRequest(c, 21004, "表格无法读取")
	case errors.Is(err, service.ErrImportNoRows):
		response.BadRequest(c, 21005, "表格中没有可导入的地块")
	case errors.Is(err, service.ErrImportInProgress):
		response.Conflict(c, 21006, "已有导入正在进行，请稍后再试")
	case errors.Is(err, service.ErrInvalidStrategy):
		response.BadRequest(c, 21007, "导入策略无效，仅支持 replace / merge")
	default:
		response.InternalError(c)
	}
}
