package engine

import (
	"errors"
	"strings"
)

// Ошибки выполнения.
var (
	// ErrNilTask — передана nil задача (корень или зависимость).
	ErrNilTask = errors.New("task is nil")

	// ErrCyclicDependency — обход вернулся в задачу, которая ещё на текущем пути.
	ErrCyclicDependency = errors.New("circular reference detected")
)

// Ошибки валидации GraphSpec.
var (
	// ErrEmptyGraph — граф не содержит задач.
	ErrEmptyGraph = errors.New("graph spec has no tasks")

	// ErrEmptyTaskID — задача не имеет ID.
	ErrEmptyTaskID = errors.New("task has empty ID")

	// ErrDuplicateTaskID — несколько задач с одинаковым ID.
	ErrDuplicateTaskID = errors.New("duplicate task ID")

	// ErrUnknownTaskType — неизвестный тип задачи.
	ErrUnknownTaskType = errors.New("unknown task type")

	// ErrMissingDependency — задача зависит от несуществующей задачи.
	ErrMissingDependency = errors.New("task depends on unknown task")

	// ErrInvalidTimeout — отрицательный timeout_sec.
	ErrInvalidTimeout = errors.New("invalid task timeout")

	// ErrUnknownFormat — формат файла графа не поддерживается.
	ErrUnknownFormat = errors.New("unknown graph format")
)

// Ошибки рендеринга шаблонов.
var (
	// ErrTemplateRender — ошибка рендеринга шаблона.
	ErrTemplateRender = errors.New("template render failed")

	// ErrTemplateParse — ошибка парсинга шаблона.
	ErrTemplateParse = errors.New("template parse failed")
)

// CycleError — обнаруженный цикл с путём от повторно встреченной задачи
// до неё же: [A B C A].
type CycleError struct {
	Path []string
}

// Error реализует интерфейс error.
func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return ErrCyclicDependency.Error()
	}
	return ErrCyclicDependency.Error() + ": " + strings.Join(e.Path, " -> ")
}

// Unwrap возвращает ErrCyclicDependency.
func (e *CycleError) Unwrap() error {
	return ErrCyclicDependency
}

// TaskError — действие задачи завершилось ошибкой.
type TaskError struct {
	TaskID string // ID задачи
	Err    error  // ошибка действия
}

// Error реализует интерфейс error.
func (e *TaskError) Error() string {
	return "task " + e.TaskID + ": " + e.Err.Error()
}

// Unwrap возвращает ошибку действия.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	TaskID  string // ID задачи, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.TaskID != "" {
		return "task " + e.TaskID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(taskID, field, message string, err error) *ValidationError {
	return &ValidationError{
		TaskID:  taskID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
