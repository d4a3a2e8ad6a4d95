// Package middleware 提供API层的通用gin中间件
package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/LENAX/flow-engine/pkg/api/dto"
)

// Recovery panic恢复中间件
// 单个请求的panic不拖垮引擎进程，落日志后返回统一错误响应
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("❌ [API] 请求处理panic: %s %s, Error=%v\n%s",
					c.Request.Method, c.Request.URL.Path, err, debug.Stack())

				c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(
					500,
					"服务内部错误",
				))
				c.Abort()
			}
		}()
		c.Next()
	}
}
