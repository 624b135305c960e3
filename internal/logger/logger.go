package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FORMAT_CONSOLE = "console"
	FORMAT_JSON    = "json"
)

// NewLogger 根据日志级别与输出格式构建日志器，未知级别退回 info
func NewLogger(logLevel, format string) (*zap.Logger, error) {
	var cfg zap.Config

	switch strings.ToLower(format) {
	case FORMAT_JSON:
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case "", FORMAT_CONSOLE:
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("未知的日志格式: %s", format)
	}

	level, err := zapcore.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		level = zapcore.InfoLevel
	}
	cfg.Level.SetLevel(level)

	return cfg.Build()
}

func InitLogger(logLevel, format string) {
	lgr, err := NewLogger(logLevel, format)
	if err != nil {
		panic(fmt.Errorf("构建日志器失败: %w", err))
	}

	zap.ReplaceGlobals(lgr)
}
