package handler

import (
	"github.com/gin-gonic/gin"

	"gas-relay-sol/internal/middleware"
	"gas-relay-sol/internal/svc"
)

// RegisterRoutes 注册 HTTP 路由；限流与 CORS 在流水线之前生效
func RegisterRoutes(r *gin.Engine, svcCtx *svc.RelayServiceContext) {
	r.Use(middleware.Cors())
	if svcCtx.Limiter != nil {
		r.Use(middleware.RateLimit(svcCtx.Limiter))
	}

	r.POST("/relay/sponsor", sponsorHandler(svcCtx))
	r.GET("/health", healthHandler(svcCtx))
}
