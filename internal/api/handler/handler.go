package handler

import (
	"go.uber.org/zap"

	"github.com/RodrigoBertipalha/AppColheita/config"
	"github.com/RodrigoBertipalha/AppColheita/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Field   *FieldHandler
	Harvest *HarvestHandler
	Import  *ImportHandler
	Export  *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Field:   NewFieldHandler(svc.Field),
		Harvest: NewHarvestHandler(svc.Harvest),
		Import:  NewImportHandler(svc.Import, cfg.Import.UploadDir, logger),
		Export:  NewExportHandler(svc.Export),
	}
}
