package engine

import "context"

// Action — работа задачи. Вызывается Engine не более одного раза за обход,
// после всех зависимостей.
type Action func(ctx context.Context) error

// Task — узел графа зависимостей.
//
// ID и зависимости задаются при построении и не меняются Engine.
// Отметка обхода хранится не в задаче, а в Engine, поэтому один и тот же
// граф можно выполнять несколькими независимыми Engine.
type Task struct {
	id     string
	deps   []*Task
	action Action
}

// NewTask создаёт задачу. nil action означает задачу без действия.
// Зависимости копируются.
func NewTask(id string, action Action, deps ...*Task) *Task {
	t := &Task{id: id, action: action}
	t.deps = append(t.deps, deps...)
	return t
}

// ID возвращает идентификатор задачи.
func (t *Task) ID() string {
	return t.id
}

// Dependencies возвращает копию списка зависимостей в объявленном порядке.
func (t *Task) Dependencies() []*Task {
	deps := make([]*Task, len(t.deps))
	copy(deps, t.deps)
	return deps
}

// DependsOn добавляет зависимости в конец списка.
// Используется при построении графа, до передачи задачи в Engine.
func (t *Task) DependsOn(deps ...*Task) *Task {
	t.deps = append(t.deps, deps...)
	return t
}

// String возвращает представление задачи для логов.
func (t *Task) String() string {
	return "Task(" + t.id + ")"
}
