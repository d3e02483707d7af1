package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gas-relay-sol/internal/svc"
)

// healthHandler 存活探针，顺带暴露托管账户地址便于客户端构造交易
func healthHandler(svcCtx *svc.RelayServiceContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"payer":  svcCtx.Signer.PublicKey().String(),
		})
	}
}
