package domain

// VisitState — отметка обхода задачи в пределах одного Engine.
//
// Жизненный цикл:
//
//	UNVISITED → IN_PROGRESS → DONE
//
// Повторный заход в задачу со статусом IN_PROGRESS означает цикл.
type VisitState int

const (
	// VisitUnvisited — задача ещё не встречалась при обходе.
	VisitUnvisited VisitState = iota

	// VisitInProgress — задача на текущем пути обхода, зависимости ещё выполняются.
	VisitInProgress

	// VisitDone — задача и все её зависимости выполнены.
	VisitDone
)

// String возвращает строковое представление VisitState.
func (s VisitState) String() string {
	switch s {
	case VisitUnvisited:
		return "UNVISITED"
	case VisitInProgress:
		return "IN_PROGRESS"
	case VisitDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// RunStatus — статус выполнения run.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED
type RunStatus string

const (
	// RunStatusPending — run создан, но ещё не начал выполняться.
	RunStatusPending RunStatus = "PENDING"

	// RunStatusRunning — run в процессе выполнения.
	RunStatusRunning RunStatus = "RUNNING"

	// RunStatusSucceeded — все задачи графа выполнены.
	RunStatusSucceeded RunStatus = "SUCCEEDED"

	// RunStatusFailed — обход прерван (цикл, ошибка действия, невалидный граф).
	RunStatusFailed RunStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный (run завершён).
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusSucceeded, RunStatusFailed:
		return true
	default:
		return false
	}
}

// ParseRunStatus парсит строку в RunStatus.
// Возвращает false для неизвестного значения.
func ParseRunStatus(s string) (RunStatus, bool) {
	switch RunStatus(s) {
	case RunStatusPending, RunStatusRunning, RunStatusSucceeded, RunStatusFailed:
		return RunStatus(s), true
	default:
		return "", false
	}
}
