package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zeromicro/go-zero/core/limit"

	"gas-relay-sol/internal/pkg/logger"
)

// RateLimit 中间件：按来源 IP 做周期限流，超额请求不进入赞助流水线
func RateLimit(l *limit.PeriodLimit) gin.HandlerFunc {
	return func(c *gin.Context) {
		code, err := l.Take(c.ClientIP())
		if err != nil {
			// 限流存储故障时放行，限流是保护措施而不是准入条件
			logger.Warnf("[middleware] 限流计数失败: %v", err)
			c.Next()
			return
		}
		if code == limit.OverQuota {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"status":  "error",
				"message": "rate limit exceeded",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
