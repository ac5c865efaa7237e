package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/RodrigoBertipalha/AppColheita/pkg/metrics"
)

// Metrics 请求计数与耗时中间件
// path 使用路由模板，未匹配的路由统一记为 "unmatched"，避免标签基数失控
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
