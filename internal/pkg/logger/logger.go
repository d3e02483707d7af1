package logger

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOption 表示日志初始化参数（由 config.LogConfig.ToLogOption 构造）
type LogOption struct {
	Format   string // "console" 或 "json"
	LogDir   string // 日志目录，为空则只输出到 stdout
	Level    string // debug / info / warn / error
	Compress bool   // 是否压缩旧日志文件
}

var (
	mu     sync.Mutex
	sugar  *zap.SugaredLogger
	atomLv = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

func init() {
	// 未显式 Init 时也能输出（测试、工具场景）
	core := zapcore.NewCore(consoleEncoder(), zapcore.Lock(os.Stdout), atomLv)
	sugar = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

// Init 按配置初始化全局日志器，进程启动时调用一次
func Init(opt LogOption) error {
	mu.Lock()
	defer mu.Unlock()

	atomLv.SetLevel(parseLevel(opt.Level))

	var enc zapcore.Encoder
	if strings.EqualFold(opt.Format, "json") {
		enc = jsonEncoder()
	} else {
		enc = consoleEncoder()
	}

	syncers := []zapcore.WriteSyncer{zapcore.Lock(os.Stdout)}
	if opt.LogDir != "" {
		if err := os.MkdirAll(opt.LogDir, 0o755); err != nil {
			return err
		}
		// lumberjack 负责滚动与清理
		syncers = append(syncers, zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(opt.LogDir, "relay.log"),
			MaxSize:    256, // MB
			MaxBackups: 10,
			MaxAge:     7, // 天
			Compress:   opt.Compress,
		}))
	}

	core := zapcore.NewCore(enc, zapcore.NewMultiWriteSyncer(syncers...), atomLv)
	sugar = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
	return nil
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

func consoleEncoder() zapcore.Encoder {
	return zapcore.NewConsoleEncoder(encoderConfig())
}

func jsonEncoder() zapcore.Encoder {
	return zapcore.NewJSONEncoder(encoderConfig())
}

// Sync 刷盘，进程退出前调用
func Sync() {
	_ = sugar.Sync()
}

func Debugf(format string, args ...interface{}) {
	sugar.Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	sugar.Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	sugar.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	sugar.Errorf(format, args...)
}
