package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/RodrigoBertipalha/AppColheita/pkg/response"
)

// MustGetFieldID 从路径参数 :id 中解析田块 ID。
// 解析失败时写入 400 响应并返回 false，调用方应直接 return。
func MustGetFieldID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, 10001, "田块ID无效")
		return 0, false
	}
	return uint(id), true
}
