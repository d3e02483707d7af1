package main

import (
	"flag"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
	zerosvc "github.com/zeromicro/go-zero/core/service"

	"gas-relay-sol/internal/config"
	"gas-relay-sol/internal/handler"
	"gas-relay-sol/internal/pkg/logger"
	"gas-relay-sol/internal/service"
	"gas-relay-sol/internal/svc"
)

var configFile = flag.String("f", "etc/relay.yaml", "the config file")

func main() {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
		}
	}()

	flag.Parse()

	var c config.RelayConfig
	conf.MustLoad(*configFile, &c)

	if err := logger.Init(c.LogConf.ToLogOption()); err != nil {
		panic(err)
	}
	defer logger.Sync()

	serviceContext, err := svc.NewRelayServiceContext(c)
	if err != nil {
		panic(err)
	}
	defer serviceContext.Close()

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	handler.RegisterRoutes(engine, serviceContext)

	listenAddr := c.ListenAddr
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	sg := zerosvc.NewServiceGroup()
	sg.Add(service.NewHttpService(listenAddr, engine))

	logx.Infof("Starting gas relay service")

	// 启动服务
	sg.Start()

	// 等待退出信号
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logx.Info("Shutting down services...")
	sg.Stop()
}
