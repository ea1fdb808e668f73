package steps

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// StepTypeLog — тип шага записи в лог. Используется для задач без типа.
	StepTypeLog = "log"

	// StepTypeNoop — тип пустого шага.
	StepTypeNoop = "noop"

	configMessage = "message"
	configLevel   = "level"
	configFields  = "fields"
)

// LogStep пишет запись о выполнении задачи.
//
// Конфигурация:
//
//	{
//	    "message": "deploying {{ .Inputs.env }}",  // по умолчанию "<task> executed"
//	    "level": "info",                          // debug, info, warn, error
//	    "fields": {"env": "{{ .Inputs.env }}"}
//	}
type LogStep struct{}

// NewLogStep создаёт новый LogStep.
func NewLogStep() *LogStep {
	return &LogStep{}
}

// Type возвращает тип шага.
func (s *LogStep) Type() string {
	return StepTypeLog
}

// Execute пишет сообщение в лог запроса.
func (s *LogStep) Execute(ctx context.Context, req *Request) error {
	msg := GetConfigString(req.Config, configMessage)
	if msg == "" {
		msg = req.TaskName + " executed"
	}

	fields := GetConfigMapString(req.Config, configFields)
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}

	req.Logger.Log(ctx, parseLevel(GetConfigString(req.Config, configLevel)), msg, args...)
	return nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NoopStep ничего не делает. Полезен для задач-агрегаторов.
type NoopStep struct{}

// NewNoopStep создаёт новый NoopStep.
func NewNoopStep() *NoopStep {
	return &NoopStep{}
}

// Type возвращает тип шага.
func (s *NoopStep) Type() string {
	return StepTypeNoop
}

// Execute сразу возвращает nil.
func (s *NoopStep) Execute(context.Context, *Request) error {
	return nil
}
