package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogConfig — параметры логгера.
type LogConfig struct {
	Level  slog.Level
	Format string // "json" или "text"
	Output io.Writer
}

// LogConfigFromEnv читает LOG_LEVEL (DEBUG, INFO, WARN, ERROR; по умолчанию INFO)
// и LOG_FORMAT (json по умолчанию, text для разработки).
func LogConfigFromEnv(w io.Writer) LogConfig {
	cfg := LogConfig{Level: slog.LevelInfo, Format: "json", Output: w}

	if err := cfg.Level.UnmarshalText([]byte(strings.ToUpper(os.Getenv("LOG_LEVEL")))); err != nil {
		cfg.Level = slog.LevelInfo
	}
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "text") {
		cfg.Format = "text"
	}
	return cfg
}

// NewLogger собирает slog.Logger по конфигурации.
// На уровне DEBUG в записи добавляется место вызова.
func NewLogger(cfg LogConfig) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.Level <= slog.LevelDebug,
	}

	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(cfg.Output, opts))
	}
	return slog.New(slog.NewJSONHandler(cfg.Output, opts))
}

// SetupLogger создаёт логгер сервиса в stdout по переменным окружения
// и делает его глобальным.
func SetupLogger(service string) *slog.Logger {
	logger := NewLogger(LogConfigFromEnv(os.Stdout)).With("service", service)
	slog.SetDefault(logger)
	return logger
}

type loggerKey struct{}

// WithLogger кладёт логгер в контекст.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext достаёт логгер из контекста, иначе slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// RunLogger — логгер одного run: имя графа и run_id.
func RunLogger(logger *slog.Logger, graph, runID string) *slog.Logger {
	return logger.With(slog.Group("run", "graph", graph, "id", runID))
}

// TaskLogger — логгер одной задачи.
func TaskLogger(logger *slog.Logger, taskID string) *slog.Logger {
	return logger.With("task_id", taskID)
}

// Nop возвращает логгер, отбрасывающий все записи.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
