package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gas-relay-sol/internal/logic/outcome"
	"gas-relay-sol/internal/svc"
)

// sponsorRequest 是赞助接口的请求体
type sponsorRequest struct {
	// base64 编码的 wire 交易，fee payer 必须是本服务的托管账户
	Transaction string `json:"transaction"`
	// scoredChallenge 模式下的风控 token，可选
	Challenge string `json:"challenge"`
}

// sponsorHandler 处理 POST /relay/sponsor。
// 成功 200，所有校验/模拟/提交失败统一 400：客户端的补救方式都是
// 换新 blockhash 重建交易后重试。
func sponsorHandler(svcCtx *svc.RelayServiceContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sponsorRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Transaction == "" {
			c.JSON(http.StatusBadRequest, outcome.Result{
				Status:  "error",
				Message: outcome.MsgInvalidTransaction,
			})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(),
			time.Duration(svcCtx.RequestTimeoutMs())*time.Millisecond)
		defer cancel()

		res := svcCtx.Pipeline.Sponsor(ctx, req.Transaction, req.Challenge)
		if res.Status != "ok" {
			c.JSON(http.StatusBadRequest, res)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
