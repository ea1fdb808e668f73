package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestLogConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FORMAT", "TEXT")

	cfg := LogConfigFromEnv(nil)
	if cfg.Level != slog.LevelWarn {
		t.Errorf("expected WARN, got %s", cfg.Level)
	}
	if cfg.Format != "text" {
		t.Errorf("expected text format, got %s", cfg.Format)
	}

	t.Setenv("LOG_LEVEL", "verbose")
	t.Setenv("LOG_FORMAT", "")

	cfg = LogConfigFromEnv(nil)
	if cfg.Level != slog.LevelInfo {
		t.Errorf("expected INFO fallback, got %s", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected json format, got %s", cfg.Format)
	}
}

func TestRunLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: slog.LevelInfo, Format: "json", Output: &buf})

	TaskLogger(RunLogger(logger, "release", "run-1"), "build").Info("task done")

	var rec struct {
		Msg  string `json:"msg"`
		Task string `json:"task_id"`
		Run  struct {
			Graph string `json:"graph"`
			ID    string `json:"id"`
		} `json:"run"`
	}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log record: %v (%s)", err, buf.String())
	}
	if rec.Msg != "task done" || rec.Task != "build" || rec.Run.Graph != "release" || rec.Run.ID != "run-1" {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestNewLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: slog.LevelWarn, Format: "text", Output: &buf})

	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) != slog.Default() {
		t.Error("expected default logger without value in context")
	}

	logger := Nop()
	if FromContext(WithLogger(context.Background(), logger)) != logger {
		t.Error("expected logger from context")
	}
}
