package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/taskdep/internal/domain"
)

// Observer получает события обхода (метрики, трассировка).
// Вызывается синхронно из горутины обхода.
type Observer interface {
	// TaskCompleted — действие задачи выполнено.
	TaskCompleted(taskID string, d time.Duration)

	// TaskFailed — действие задачи вернуло ошибку.
	TaskFailed(taskID string, err error)

	// CycleDetected — обход обнаружил цикл.
	CycleDetected(path []string)
}

// Config — конфигурация Engine.
type Config struct {
	Logger   *slog.Logger
	Observer Observer // опционально
}

// Engine выполняет задачи в порядке зависимостей.
//
// Engine хранит отметки обхода и накопленный execution record между
// вызовами Execute: задача, выполненная в одном вызове, не выполняется
// повторно в следующем, а record продолжает расти. Reset сбрасывает
// состояние. Для независимого запуска используйте пакетную функцию Execute.
//
// Engine не потокобезопасен.
type Engine struct {
	logger   *slog.Logger
	observer Observer
	state    *traversal
}

// traversal — состояние обхода: отметки задач и execution record.
type traversal struct {
	visits map[*Task]domain.VisitState
	record []string
}

func newTraversal() *traversal {
	return &traversal{
		visits: make(map[*Task]domain.VisitState),
		record: make([]string, 0),
	}
}

// frame — задача на стеке обхода и индекс следующей зависимости.
type frame struct {
	task *Task
	next int
}

// New создаёт новый Engine.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		logger:   logger,
		observer: cfg.Observer,
		state:    newTraversal(),
	}
}

// Execute выполняет root и все задачи, от которых он зависит.
//
// Каждая задача выполняется один раз, после всех своих зависимостей;
// зависимости обходятся в объявленном порядке. Возвращает копию
// накопленного execution record, последний элемент — root.
//
// Ошибки:
//   - ErrNilTask — root равен nil (состояние не меняется)
//   - *CycleError (errors.Is ErrCyclicDependency) — найден цикл
//   - *TaskError — действие задачи вернуло ошибку
//
// После ошибки отметки не откатываются, Engine нужно сбросить через Reset.
func (e *Engine) Execute(ctx context.Context, root *Task) ([]string, error) {
	if root == nil {
		return nil, ErrNilTask
	}

	if err := e.walk(ctx, root, e.state, true); err != nil {
		return nil, err
	}

	return e.Record(), nil
}

// Record возвращает копию накопленного execution record.
func (e *Engine) Record() []string {
	record := make([]string, len(e.state.record))
	copy(record, e.state.record)
	return record
}

// State возвращает отметку обхода задачи.
func (e *Engine) State(t *Task) domain.VisitState {
	return e.state.visits[t]
}

// Reset сбрасывает отметки обхода и execution record.
func (e *Engine) Reset() {
	e.state = newTraversal()
}

// Execute выполняет root новым Engine: execution record содержит только
// задачи этого вызова.
func Execute(ctx context.Context, root *Task) ([]string, error) {
	return New(Config{}).Execute(ctx, root)
}

// Plan возвращает порядок, в котором Execute выполнил бы задачи, не вызывая
// действий. Циклы обнаруживаются так же, как при выполнении.
func Plan(root *Task) ([]string, error) {
	if root == nil {
		return nil, ErrNilTask
	}

	e := New(Config{})
	if err := e.walk(context.Background(), root, e.state, false); err != nil {
		return nil, err
	}
	return e.Record(), nil
}

// PlanAll строит общий порядок для нескольких корней за один обход:
// задачи, уже попавшие в порядок, повторно не обходятся. Цикл находится,
// из какого бы корня он ни был достижим.
func PlanAll(roots ...*Task) ([]string, error) {
	e := New(Config{})
	for _, root := range roots {
		if root == nil {
			return nil, ErrNilTask
		}
		if err := e.walk(context.Background(), root, e.state, false); err != nil {
			return nil, err
		}
	}
	return e.Record(), nil
}

// walk — обход в глубину с явным стеком (post-order).
//
// Задача помечается IN_PROGRESS при входе и DONE после выполнения действия.
// Встреча IN_PROGRESS задачи означает, что она предок самой себя на текущем
// пути. DONE задачи пропускаются без побочных эффектов.
func (e *Engine) walk(ctx context.Context, root *Task, st *traversal, invoke bool) error {
	stack := make([]frame, 0, 16)

	enter := func(t *Task) error {
		switch st.visits[t] {
		case domain.VisitInProgress:
			return e.cycle(stack, t)
		case domain.VisitDone:
			return nil
		}
		st.visits[t] = domain.VisitInProgress
		stack = append(stack, frame{task: t})
		return nil
	}

	if err := enter(root); err != nil {
		return err
	}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		if top.next < len(top.task.deps) {
			dep := top.task.deps[top.next]
			top.next++
			if dep == nil {
				return fmt.Errorf("%w: dependency %d of %s", ErrNilTask, top.next-1, top.task.id)
			}
			if err := enter(dep); err != nil {
				return err
			}
			continue
		}

		t := top.task
		stack = stack[:len(stack)-1]

		if invoke {
			if err := e.invoke(ctx, t); err != nil {
				return err
			}
		}

		st.visits[t] = domain.VisitDone
		st.record = append(st.record, t.id)
	}

	return nil
}

// invoke вызывает действие задачи.
func (e *Engine) invoke(ctx context.Context, t *Task) error {
	if t.action == nil {
		e.logger.Debug("task executed", "task_id", t.id, "action", false)
		return nil
	}

	start := time.Now()
	if err := t.action(ctx); err != nil {
		e.logger.Warn("task failed", "task_id", t.id, "error", err)
		if e.observer != nil {
			e.observer.TaskFailed(t.id, err)
		}
		return &TaskError{TaskID: t.id, Err: err}
	}
	elapsed := time.Since(start)

	e.logger.Debug("task executed", "task_id", t.id, "duration", elapsed)
	if e.observer != nil {
		e.observer.TaskCompleted(t.id, elapsed)
	}
	return nil
}

// cycle строит CycleError по текущему стеку: путь от повторно
// встреченной задачи до вершины стека, замкнутый на неё же.
func (e *Engine) cycle(stack []frame, t *Task) error {
	start := 0
	for i := range stack {
		if stack[i].task == t {
			start = i
			break
		}
	}

	path := make([]string, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		path = append(path, f.task.id)
	}
	path = append(path, t.id)

	e.logger.Warn("circular reference detected", "path", path)
	if e.observer != nil {
		e.observer.CycleDetected(path)
	}
	return &CycleError{Path: path}
}
