package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/taskdep/internal/domain"
	"github.com/shaiso/taskdep/internal/mq"
	"github.com/shaiso/taskdep/internal/orchestrator"
	"github.com/shaiso/taskdep/internal/repo"
	"github.com/shaiso/taskdep/internal/telemetry"
)

// Runner выполняет и планирует графы. Реализуется *orchestrator.Orchestrator.
type Runner interface {
	Run(ctx context.Context, req orchestrator.RunRequest) (*domain.Run, error)
	Plan(spec *domain.GraphSpec, root string) (*orchestrator.PlanResult, error)
}

// RunReader читает историю runs. Реализуется *repo.RunRepo.
type RunReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	List(ctx context.Context, filter repo.RunFilter) ([]domain.Run, error)
}

// RunQueue ставит графы в очередь. Реализуется *mq.Publisher.
type RunQueue interface {
	PublishRunRequested(ctx context.Context, payload mq.RunRequestedPayload) (string, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	runner  Runner
	runs    RunReader
	queue   RunQueue
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Runner  Runner
	Runs    RunReader // опционально: без него /runs для чтения недоступны
	Queue   RunQueue  // опционально: без него async runs недоступны
	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		runner:  cfg.Runner,
		runs:    cfg.Runs,
		queue:   cfg.Queue,
		metrics: cfg.Metrics,
		logger:  logger,
	}
}
