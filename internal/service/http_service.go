package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gas-relay-sol/internal/pkg/logger"
)

// HttpService 把 gin 引擎包装成 go-zero ServiceGroup 可托管的服务
type HttpService struct {
	server *http.Server
}

func NewHttpService(addr string, engine *gin.Engine) *HttpService {
	return &HttpService{
		server: &http.Server{
			Addr:              addr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *HttpService) Start() {
	logger.Infof("HTTP 服务监听 %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorf("HTTP 服务异常退出: %v", err)
	}
}

func (s *HttpService) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		logger.Warnf("HTTP 服务关闭超时: %v", err)
	}
}
