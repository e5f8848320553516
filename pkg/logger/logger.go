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

// LogOption 日志初始化选项（由 config.LogConfig 转换而来）
type LogOption struct {
	Format   string // 日志格式："console" 或 "json"
	LogDir   string // 日志目录，为空时仅输出到 stdout
	Level    string // 日志级别：debug / info / warn / error
	Compress bool   // 是否压缩轮转后的旧日志
}

var (
	mu     sync.Mutex
	sugar  *zap.SugaredLogger
	atomic = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

func init() {
	// 默认 logger：console 格式输出到 stdout，Init 之前也可安全使用
	sugar = buildLogger(LogOption{Format: "console"})
}

// Init 按配置重建全局 logger，可重复调用（以最后一次为准）
func Init(opt LogOption) {
	mu.Lock()
	defer mu.Unlock()

	if old := sugar; old != nil {
		_ = old.Sync()
	}
	sugar = buildLogger(opt)
}

func buildLogger(opt LogOption) *zap.SugaredLogger {
	atomic.SetLevel(parseLevel(opt.Level))

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var enc zapcore.Encoder
	if strings.EqualFold(opt.Format, "json") {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	syncers := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	if opt.LogDir != "" {
		// 按大小轮转：单文件 128MB，保留 7 天
		syncers = append(syncers, zapcore.AddSync(&lumberjack.Logger{
			Filename: filepath.Join(opt.LogDir, "engine.log"),
			MaxSize:  128,
			MaxAge:   7,
			Compress: opt.Compress,
		}))
	}

	core := zapcore.NewCore(enc, zapcore.NewMultiWriteSyncer(syncers...), atomic)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
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

func Debugf(format string, args ...any) { sugar.Debugf(format, args...) }
func Infof(format string, args ...any)  { sugar.Infof(format, args...) }
func Warnf(format string, args ...any)  { sugar.Warnf(format, args...) }
func Errorf(format string, args ...any) { sugar.Errorf(format, args...) }

// Sync 刷新缓冲区（进程退出前调用）
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	_ = sugar.Sync()
}
