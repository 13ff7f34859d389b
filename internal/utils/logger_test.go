package utils

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLoggerLevel(t *testing.T) {
	logger := NewLogger("debug", "text")
	if logger.GetLevel() != logrus.DebugLevel {
		t.Errorf("expected debug level, got %v", logger.GetLevel())
	}
}

func TestNewLoggerBadLevelFallsBackToInfo(t *testing.T) {
	logger := NewLogger("nonsense", "text")
	if logger.GetLevel() != logrus.InfoLevel {
		t.Errorf("expected info level fallback, got %v", logger.GetLevel())
	}
}

func TestNewLoggerFormat(t *testing.T) {
	if _, ok := NewLogger("info", "json").Formatter.(*logrus.JSONFormatter); !ok {
		t.Error("expected JSON formatter for json format")
	}
	if _, ok := NewLogger("info", "text").Formatter.(*logrus.TextFormatter); !ok {
		t.Error("expected text formatter for text format")
	}
	if _, ok := NewLogger("info", "").Formatter.(*logrus.TextFormatter); !ok {
		t.Error("expected text formatter by default")
	}
}
