package logging

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func TestNew_DefaultLevel(t *testing.T) {
	logger := New("", "text")
	if logger == nil {
		t.Fatal("Expected non-nil logger")
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Expected debug level to be disabled by default")
	}
}

func TestNew_DebugLevel(t *testing.T) {
	logger := New("debug", "text")
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Expected debug level to be enabled")
	}
}

func TestNew_ErrorLevel(t *testing.T) {
	logger := New("error", "text")
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Expected info level to be disabled at error level")
	}
}

func TestNew_JSONFormat(t *testing.T) {
	logger := New("info", "json")
	if logger == nil {
		t.Fatal("Expected non-nil logger for JSON format")
	}
}

func TestWithLogger_And_FromContext(t *testing.T) {
	ctx := context.Background()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx = WithLogger(ctx, custom)

	if got := FromContext(ctx); got != custom {
		t.Error("Expected logger from context")
	}

	if got := FromContext(context.Background()); got == nil {
		t.Error("Expected default logger for empty context")
	}
}
