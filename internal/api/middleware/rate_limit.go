package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/RodrigoBertipalha/AppColheita/pkg/redis"
	"github.com/RodrigoBertipalha/AppColheita/pkg/response"
)

// RateLimit 基于 Redis 滑动窗口的速率限制中间件
// 用于扫码接口，防止扫码枪连发把同一批请求重复提交
// rdb 为 nil 或 Redis 出错时降级放行
func RateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		key := fmt.Sprintf("rate_limit:%s:%s", c.ClientIP(), c.FullPath())
		allowed, err := rdb.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			c.Next()
			return
		}

		if !allowed {
			response.TooManyRequests(c, 10004, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}
