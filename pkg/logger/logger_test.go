package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/config"
)

func TestNewLogger_InvalidLevel(t *testing.T) {
	if _, _, err := NewLogger(&config.LogConfig{Level: "loud", Format: "json"}); err == nil {
		t.Fatal("非法日志级别应返回错误")
	}
}

func TestSetLevel(t *testing.T) {
	logger, atom, err := NewLogger(&config.LogConfig{Level: "info", Format: "console"})
	if err != nil {
		t.Fatalf("NewLogger 失败: %v", err)
	}
	defer logger.Sync()

	if err := SetLevel(atom, "debug"); err != nil {
		t.Fatalf("SetLevel 失败: %v", err)
	}
	if atom.Level() != zapcore.DebugLevel {
		t.Errorf("期望 debug，实际=%s", atom.Level())
	}
	if err := SetLevel(atom, "nope"); err == nil {
		t.Error("非法级别应返回错误")
	}
}
