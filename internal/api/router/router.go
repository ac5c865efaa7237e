package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/RodrigoBertipalha/AppColheita/config"
	"github.com/RodrigoBertipalha/AppColheita/internal/api/handler"
	"github.com/RodrigoBertipalha/AppColheita/internal/api/middleware"
	"github.com/RodrigoBertipalha/AppColheita/pkg/metrics"
	"github.com/RodrigoBertipalha/AppColheita/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb、db、m 均可为 nil
func Setup(cfg *config.Config, h *handler.Handler, rdb *redis.Client, db *gorm.DB, m *metrics.Metrics, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.MaxMultipartMemory = 8 << 20

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(m))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		status := gin.H{"status": "ok"}
		if db != nil {
			if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": "down"})
				return
			}
		}
		if rdb != nil {
			status["redis"] = "up"
			if err := rdb.Ping(c.Request.Context()); err != nil {
				status["redis"] = "down"
			}
		}
		c.JSON(http.StatusOK, status)
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 田块模块
		fields := v1.Group("/fields")
		{
			fields.GET("", h.Field.ListFields)
			fields.GET("/current", h.Field.GetCurrentField)
			fields.GET("/:id", h.Field.GetField)
			fields.DELETE("/:id", h.Field.DeleteField)
			fields.GET("/:id/dashboard", h.Field.GetDashboard)
			fields.GET("/:id/plots", h.Field.ListPlots)
			fields.GET("/:id/groups", h.Field.ListGroups)
			fields.GET("/:id/groups/:group_id/plots", h.Field.GroupPlots)

			// 导出模块
			fields.GET("/:id/export", h.Export.ExportField)

			// 收获模块
			harvest := fields.Group("/:id/harvest")
			{
				harvest.POST("/scan",
					middleware.RateLimit(rdb, cfg.Server.ScanRateLimit, cfg.Server.ScanRateWindow),
					h.Harvest.Scan)
				harvest.POST("/group", h.Harvest.MarkGroup)
				harvest.POST("/batch", h.Harvest.MarkBatch)
				harvest.POST("/undo", h.Harvest.Undo)
				harvest.GET("/counts", h.Harvest.GetCounts)
				harvest.GET("/locate", h.Harvest.Locate)
			}
		}

		// 导入模块
		imports := v1.Group("/imports")
		imports.Use(middleware.BodyLimit(cfg.Server.MaxUploadMB << 20))
		{
			imports.GET("", h.Import.ListSessions)
			imports.POST("", h.Import.Import)
			imports.POST("/preview", h.Import.Preview)
		}
	}

	return r
}
