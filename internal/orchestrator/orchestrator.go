package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/taskdep/internal/domain"
	"github.com/shaiso/taskdep/internal/engine"
	"github.com/shaiso/taskdep/internal/steps"
	"github.com/shaiso/taskdep/internal/telemetry"
)

// storeTimeout — таймаут сохранения run и публикации событий.
// Используется отдельный контекст, чтобы отменённый run всё равно
// был финализирован.
const storeTimeout = 5 * time.Second

// RunStore сохраняет историю runs.
type RunStore interface {
	Create(ctx context.Context, run *domain.Run) error
	Update(ctx context.Context, run *domain.Run) error
}

// EventPublisher публикует события о runs.
type EventPublisher interface {
	PublishRunFinished(ctx context.Context, run *domain.Run) error
}

// Orchestrator выполняет графы задач.
//
// Каждый Run использует новый engine.Engine, поэтому отметки обхода
// не переходят между runs. Ошибки хранилища и публикации логируются
// и не меняют результат run.
type Orchestrator struct {
	store     RunStore
	publisher EventPublisher
	registry  *steps.Registry
	env       map[string]string
	metrics   *telemetry.Metrics
	logger    *slog.Logger
}

// Config — конфигурация Orchestrator.
type Config struct {
	Store     RunStore           // опционально
	Publisher EventPublisher     // опционально
	Registry  *steps.Registry    // по умолчанию steps.ServiceRegistry(false), без exec
	Metrics   *telemetry.Metrics // опционально
	Logger    *slog.Logger

	// Env — переменные {{ .Env.X }} в конфигурации задач.
	// nil — пустое окружение: окружение процесса не передаётся неявно.
	Env map[string]string
}

// New создаёт новый Orchestrator.
func New(cfg Config) *Orchestrator {
	registry := cfg.Registry
	if registry == nil {
		registry = steps.ServiceRegistry(false)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		store:     cfg.Store,
		publisher: cfg.Publisher,
		registry:  registry,
		env:       cfg.Env,
		metrics:   cfg.Metrics,
		logger:    logger,
	}
}

// RunRequest — запрос на выполнение графа.
type RunRequest struct {
	// Spec — граф задач.
	Spec *domain.GraphSpec

	// Root — ID корневой задачи. Пустой — единственная целевая задача графа.
	Root string

	// Inputs — входные параметры поверх Spec.Inputs.
	Inputs map[string]any

	// DryRun — вычислить порядок без вызова действий.
	DryRun bool
}

// PlanResult — порядок выполнения без запуска.
type PlanResult struct {
	Root  string   `json:"root"`
	Order []string `json:"order"`
}

// Run выполняет граф и возвращает финализированный run.
//
// Run возвращается всегда, в том числе при
// ошибке: тогда он в статусе FAILED, а Order содержит задачи,
// выполненные до сбоя. Ошибки:
//   - ErrInvalidGraph, ErrRootRequired, ErrUnknownRoot — некорректный запрос
//   - engine.ErrCyclicDependency — в графе цикл
//   - *engine.TaskError — действие задачи завершилось ошибкой
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (*domain.Run, error) {
	graphName := ""
	if req.Spec != nil {
		graphName = req.Spec.Name
	}

	run := domain.NewRun(graphName, req.Root, req.Inputs)
	run.DryRun = req.DryRun

	logger := telemetry.RunLogger(o.logger, graphName, run.ID.String())
	ctx = telemetry.WithLogger(ctx, logger)

	o.create(ctx, run, logger)

	run.MarkRunning()
	logger.Info("run started", "root", req.Root, "dry_run", req.DryRun)

	execErr := o.execute(ctx, run, req, logger)
	if execErr != nil {
		run.MarkFailed(execErr.Error())
		logger.Warn("run failed", "error", execErr, "completed", len(run.Order))
	} else {
		run.MarkSucceeded(run.Order)
		logger.Info("run succeeded", "tasks", len(run.Order), "duration", run.Duration())
	}

	o.finish(ctx, run, logger)

	return run, execErr
}

// Plan возвращает порядок выполнения графа без вызова действий и без
// сохранения run. Типы задач проверяются по реестру, как при Run.
func (o *Orchestrator) Plan(spec *domain.GraphSpec, root string) (*PlanResult, error) {
	graph, err := engine.BuildGraph(spec, o.checkStep)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGraph, err)
	}

	root, err = ResolveRoot(graph, root)
	if err != nil {
		return nil, err
	}

	order, err := engine.Plan(graph.Task(root))
	if err != nil {
		return nil, err
	}

	return &PlanResult{Root: root, Order: order}, nil
}

// checkStep — ActionFactory для Plan: только проверяет, что тип задачи
// зарегистрирован.
func (o *Orchestrator) checkStep(def *domain.TaskDef) (engine.Action, error) {
	stepType := def.Type
	if stepType == "" {
		stepType = steps.StepTypeLog
	}
	if _, err := o.registry.Get(stepType); err != nil {
		return nil, err
	}
	return nil, nil
}

// execute строит граф и выполняет его. Заполняет run.Root и run.Order.
func (o *Orchestrator) execute(ctx context.Context, run *domain.Run, req RunRequest, logger *slog.Logger) error {
	var inputs map[string]any
	if req.Spec != nil {
		inputs = engine.MergeInputs(req.Spec.Inputs, req.Inputs)
	}

	factory := steps.NewActionFactory(o.registry, inputs, o.env, logger)

	graph, err := engine.BuildGraph(req.Spec, factory)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidGraph, err)
	}

	root, err := ResolveRoot(graph, req.Root)
	if err != nil {
		return err
	}
	run.Root = root

	if req.DryRun {
		order, err := engine.Plan(graph.Task(root))
		if err != nil {
			return err
		}
		run.Order = order
		return nil
	}

	cfg := engine.Config{Logger: logger}
	if o.metrics != nil {
		cfg.Observer = o.metrics
	}
	eng := engine.New(cfg)

	order, err := eng.Execute(ctx, graph.Task(root))
	if err != nil {
		run.Order = eng.Record()
		return err
	}

	run.Order = order
	return nil
}

// ResolveRoot выбирает корневую задачу.
//
// Пустой root допустим, если в графе ровно одна целевая задача
// (задача, от которой никто не зависит).
func ResolveRoot(graph *engine.Graph, root string) (string, error) {
	if root != "" {
		if graph.Task(root) == nil {
			return "", fmt.Errorf("%w: %s", ErrUnknownRoot, root)
		}
		return root, nil
	}

	targets := graph.Targets()
	switch len(targets) {
	case 1:
		return targets[0], nil
	case 0:
		// Все задачи участвуют в циклах: любой корень выявит цикл.
		return graph.IDs()[0], nil
	default:
		return "", fmt.Errorf("%w: graph has %d targets: %v", ErrRootRequired, len(targets), targets)
	}
}

// create сохраняет новый run.
func (o *Orchestrator) create(ctx context.Context, run *domain.Run, logger *slog.Logger) {
	if o.store == nil {
		return
	}

	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()

	if err := o.store.Create(storeCtx, run); err != nil {
		logger.Error("failed to store run", "error", err)
	}
}

// finish сохраняет финальное состояние run, публикует run.finished
// и обновляет метрики.
func (o *Orchestrator) finish(ctx context.Context, run *domain.Run, logger *slog.Logger) {
	o.metrics.RunFinished(run)

	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()

	if o.store != nil {
		if err := o.store.Update(storeCtx, run); err != nil {
			logger.Error("failed to update run", "error", err)
		}
	}

	if o.publisher != nil {
		if err := o.publisher.PublishRunFinished(storeCtx, run); err != nil {
			logger.Error("failed to publish run.finished", "error", err)
		}
	}
}

// IsExecutionFailure возвращает true, если run завершился с ошибкой
// действия задачи (а не из-за графа).
func IsExecutionFailure(err error) bool {
	var taskErr *engine.TaskError
	return errors.As(err, &taskErr)
}
