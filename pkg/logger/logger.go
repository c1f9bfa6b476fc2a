package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/config"
)

// NewLogger 根据配置初始化 Zap 日志实例
// 返回的 AtomicLevel 可用于运行时调整日志级别
func NewLogger(cfg *config.LogConfig) (*zap.Logger, zap.AtomicLevel, error) {
	var zapCfg zap.Config

	switch cfg.Format {
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		zapCfg = zap.NewProductionConfig()
	}

	// 解析日志级别
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("无效的日志级别 %q: %w", cfg.Level, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("初始化日志器失败: %w", err)
	}

	return logger, zapCfg.Level, nil
}

// SetLevel 热更新日志级别，非法级别忽略并返回错误
func SetLevel(atom zap.AtomicLevel, level string) error {
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("无效的日志级别 %q: %w", level, err)
	}
	atom.SetLevel(l)
	return nil
}
