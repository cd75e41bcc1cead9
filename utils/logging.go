package utils

import (
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var current atomic.Pointer[zap.SugaredLogger]

func init() {
	current.Store(newLogger(zapcore.InfoLevel, ""))
}

func log() *zap.SugaredLogger {
	return current.Load()
}

func newLogger(level zapcore.Level, file string) *zap.SugaredLogger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stderr)}
	if file != "" {
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}))
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.NewMultiWriteSyncer(sinks...), level)
	return zap.New(core).Sugar()
}

// InitLogger swaps the package logger atomically, so it is safe while other
// goroutines log. An empty file logs to stderr only.
func InitLogger(level, file string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return err
	}
	current.Store(newLogger(lvl, file))
	return nil
}

func SyncLogger() {
	_ = log().Sync()
}

func LogInfo(msg string, args ...interface{}) {
	log().Infof(msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	log().Warnf(msg, args...)
}

func LogError(msg string, args ...interface{}) {
	log().Errorf(msg, args...)
}

func LogDebug(msg string, args ...interface{}) {
	log().Debugf(msg, args...)
}

func LogDB(msg string, args ...interface{}) {
	log().Named("db").Debugf(msg, args...)
}

func LogHTTP(msg string, args ...interface{}) {
	log().Named("http").Infof(msg, args...)
}

func LogImport(msg string, args ...interface{}) {
	log().Named("import").Infof(msg, args...)
}

func LogSession(msg string, args ...interface{}) {
	log().Named("session").Infof(msg, args...)
}

func LogStartup(msg string, args ...interface{}) {
	log().Named("startup").Infof(msg, args...)
}

func LogShutdown(msg string, args ...interface{}) {
	log().Named("shutdown").Infof(msg, args...)
}
