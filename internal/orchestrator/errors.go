package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrInvalidGraph — GraphSpec не прошёл валидацию или не удалось
	// построить действия задач.
	ErrInvalidGraph = errors.New("invalid graph")

	// ErrRootRequired — корень не указан, а в графе несколько целевых задач.
	ErrRootRequired = errors.New("root task required")

	// ErrUnknownRoot — корневая задача отсутствует в графе.
	ErrUnknownRoot = errors.New("unknown root task")
)

// IsInvalidRequest возвращает true для ошибок, вызванных содержимым
// запроса (граф или корень), а не выполнением задач.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidGraph) ||
		errors.Is(err, ErrRootRequired) ||
		errors.Is(err, ErrUnknownRoot)
}
