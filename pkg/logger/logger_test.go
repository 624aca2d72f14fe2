package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewParsesLevel(t *testing.T) {
	for _, development := range []bool{true, false} {
		l, err := New("debug", development, "test")
		if err != nil {
			t.Fatalf("development=%v: %v", development, err)
		}
		if !l.Core().Enabled(zapcore.DebugLevel) {
			t.Fatalf("development=%v: debug should be enabled", development)
		}
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("loud", false, "test"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
