package steps

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Ошибки шагов.
var (
	// ErrStepNotFound — тип шага не найден в реестре.
	ErrStepNotFound = errors.New("step type not found")

	// ErrInvalidConfig — невалидная конфигурация шага.
	ErrInvalidConfig = errors.New("invalid step config")

	// ErrStepCancelled — выполнение шага отменено или превышен таймаут.
	ErrStepCancelled = errors.New("step execution cancelled")

	// ErrUnexpectedStatus — HTTP ответ с неожиданным статусом.
	ErrUnexpectedStatus = errors.New("unexpected http status")

	// ErrCommandFailed — команда завершилась с ненулевым кодом.
	ErrCommandFailed = errors.New("command failed")
)

// Step — интерфейс для типов действий.
//
// Каждый тип (log, noop, delay, http, exec) реализует этот интерфейс.
// Результат действия не используется: важен только факт успеха.
type Step interface {
	// Type возвращает тип шага.
	Type() string

	// Execute выполняет действие.
	// Шаг должен проверять ctx.Done() для graceful shutdown.
	Execute(ctx context.Context, req *Request) error
}

// Request — входные данные для выполнения шага.
type Request struct {
	// TaskID — идентификатор задачи.
	TaskID string

	// TaskName — отображаемое имя задачи.
	TaskName string

	// Config — конфигурация (уже отрендеренная через engine.RenderConfig).
	Config map[string]any

	// Logger — логгер с task_id.
	Logger *slog.Logger

	// Timeout — таймаут задачи, 0 — без ограничения.
	Timeout time.Duration
}

// NewRequest создаёт новый Request.
func NewRequest(taskID string, config map[string]any, logger *slog.Logger, timeout time.Duration) *Request {
	if config == nil {
		config = make(map[string]any)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Request{
		TaskID:   taskID,
		TaskName: taskID,
		Config:   config,
		Logger:   logger,
		Timeout:  timeout,
	}
}

// GetConfigString извлекает строковое значение из конфига.
func GetConfigString(config map[string]any, key string) string {
	if v, ok := config[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetConfigInt извлекает числовое значение из конфига.
func GetConfigInt(config map[string]any, key string) int {
	if v, ok := config[key]; ok {
		if n, ok := toInt(v); ok {
			return n
		}
	}
	return 0
}

// GetConfigBool извлекает булево значение из конфига.
func GetConfigBool(config map[string]any, key string, defaultVal bool) bool {
	if v, ok := config[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}

// GetConfigMapString извлекает map[string]string из конфига.
func GetConfigMapString(config map[string]any, key string) map[string]string {
	if v, ok := config[key]; ok {
		switch m := v.(type) {
		case map[string]string:
			return m
		case map[string]any:
			result := make(map[string]string)
			for k, val := range m {
				if s, ok := val.(string); ok {
					result[k] = s
				}
			}
			return result
		}
	}
	return nil
}

// GetConfigStrings извлекает список строк из конфига.
func GetConfigStrings(config map[string]any, key string) []string {
	v, ok := config[key]
	if !ok {
		return nil
	}

	switch list := v.(type) {
	case []string:
		return list
	case []any:
		result := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	}
	return nil
}

// GetConfigInts извлекает список чисел из конфига.
// Одиночное число возвращается как список из одного элемента.
func GetConfigInts(config map[string]any, key string) []int {
	v, ok := config[key]
	if !ok {
		return nil
	}

	if n, ok := toInt(v); ok {
		return []int{n}
	}

	switch list := v.(type) {
	case []int:
		return list
	case []any:
		result := make([]int, 0, len(list))
		for _, item := range list {
			if n, ok := toInt(item); ok {
				result = append(result, n)
			}
		}
		return result
	}
	return nil
}

// toInt приводит числа из JSON (float64) и YAML (int) к int.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
