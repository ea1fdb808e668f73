package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/taskdep/internal/domain"
)

// Run DTOs

// CreateRunRequest — запрос на выполнение графа.
type CreateRunRequest struct {
	Spec   *domain.GraphSpec `json:"spec" yaml:"spec"`
	Root   string            `json:"root,omitempty" yaml:"root,omitempty"`
	Inputs map[string]any    `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	DryRun bool              `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`

	// Async — поставить в очередь вместо синхронного выполнения.
	Async bool `json:"async,omitempty" yaml:"async,omitempty"`
}

// RunResponse — ответ с run.
type RunResponse struct {
	ID         uuid.UUID      `json:"id"`
	Graph      string         `json:"graph"`
	Root       string         `json:"root"`
	Status     string         `json:"status"`
	Inputs     map[string]any `json:"inputs,omitempty"`
	Order      []string       `json:"order"`
	DryRun     bool           `json:"dry_run,omitempty"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	DurationMs int64          `json:"duration_ms,omitempty"`
	Error      string         `json:"error,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// RunFromDomain конвертирует domain.Run в RunResponse.
func RunFromDomain(r domain.Run) RunResponse {
	order := r.Order
	if order == nil {
		order = []string{}
	}

	return RunResponse{
		ID:         r.ID,
		Graph:      r.Graph,
		Root:       r.Root,
		Status:     string(r.Status),
		Inputs:     r.Inputs,
		Order:      order,
		DryRun:     r.DryRun,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		DurationMs: r.Duration().Milliseconds(),
		Error:      r.Error,
		CreatedAt:  r.CreatedAt,
	}
}

// QueuedRunResponse — ответ на асинхронный запуск.
type QueuedRunResponse struct {
	MessageID string `json:"message_id"`
}

// Plan DTOs

// PlanRequest — запрос порядка выполнения.
type PlanRequest struct {
	Spec *domain.GraphSpec `json:"spec" yaml:"spec"`
	Root string            `json:"root,omitempty" yaml:"root,omitempty"`
}

// PlanResponse — порядок выполнения.
type PlanResponse struct {
	Root  string   `json:"root"`
	Order []string `json:"order"`
}
