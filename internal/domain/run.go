package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run — один запуск графа от выбранной корневой задачи: из CLI, API,
// по расписанию или из очереди run.requested. Каждый run обходит граф
// собственным Engine, отметки обхода между runs не разделяются.
type Run struct {
	ID     uuid.UUID      `json:"id"`
	Graph  string         `json:"graph"`
	Root   string         `json:"root"`
	Status RunStatus      `json:"status"`
	Inputs map[string]any `json:"inputs,omitempty"`

	// Order — execution record: выполненные задачи в порядке завершения.
	// У успешного run последним идёт Root. У неуспешного здесь задачи,
	// завершённые до ошибки.
	Order []string `json:"order"`

	// DryRun — порядок вычислен без вызова действий.
	DryRun bool `json:"dry_run,omitempty"`

	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewRun создаёт run в статусе PENDING.
func NewRun(graph, root string, inputs map[string]any) *Run {
	return &Run{
		ID:        uuid.New(),
		Graph:     graph,
		Root:      root,
		Status:    RunStatusPending,
		Inputs:    inputs,
		Order:     []string{},
		CreatedAt: time.Now().UTC(),
	}
}

// Duration — время от старта до завершения, 0 для незавершённого run.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// IsFinished сообщает, что run в финальном статусе.
func (r *Run) IsFinished() bool {
	return r.Status.IsTerminal()
}

// MarkRunning переводит run в RUNNING.
func (r *Run) MarkRunning() {
	now := time.Now().UTC()
	r.Status = RunStatusRunning
	r.StartedAt = &now
}

// MarkSucceeded завершает run с execution record.
func (r *Run) MarkSucceeded(order []string) {
	r.Order = order
	r.finish(RunStatusSucceeded)
}

// MarkFailed завершает run с ошибкой. Order не меняется.
func (r *Run) MarkFailed(err string) {
	r.Error = err
	r.finish(RunStatusFailed)
}

func (r *Run) finish(status RunStatus) {
	now := time.Now().UTC()
	r.Status = status
	r.FinishedAt = &now
}
