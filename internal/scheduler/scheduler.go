package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/taskdep/internal/domain"
	"github.com/shaiso/taskdep/internal/engine"
	"github.com/shaiso/taskdep/internal/orchestrator"
)

// Runner выполняет run. Реализуется *orchestrator.Orchestrator.
type Runner interface {
	Run(ctx context.Context, req orchestrator.RunRequest) (*domain.Run, error)
}

// Store хранит состояние расписаний между рестартами и сменой лидера.
// Реализуется *repo.ScheduleRepo.
type Store interface {
	List(ctx context.Context) ([]domain.Schedule, error)
	Save(ctx context.Context, sched *domain.Schedule) error
}

// GraphLoader загружает граф по пути из schedule.
type GraphLoader func(path string) (*domain.GraphSpec, error)

// Scheduler — планировщик, запускающий графы по расписанию.
type Scheduler struct {
	runner    Runner
	store     Store
	loadGraph GraphLoader
	logger    *slog.Logger

	mu        sync.Mutex
	schedules []domain.Schedule
}

// Config — конфигурация Scheduler.
type Config struct {
	Runner    Runner
	Store     Store // опционально, без него состояние только в памяти
	Schedules []domain.Schedule
	LoadGraph GraphLoader // default: engine.ParseFile
	Logger    *slog.Logger

	// Now — момент, от которого вычисляется первый NextDueAt (default: time.Now()).
	Now time.Time
}

// New создаёт новый Scheduler и вычисляет первый NextDueAt для
// расписаний, у которых он не задан.
func New(cfg Config) *Scheduler {
	loadGraph := cfg.LoadGraph
	if loadGraph == nil {
		loadGraph = engine.ParseFile
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := cfg.Now
	if now.IsZero() {
		now = time.Now()
	}

	schedules := make([]domain.Schedule, len(cfg.Schedules))
	copy(schedules, cfg.Schedules)

	for i := range schedules {
		sched := &schedules[i]
		if sched.NextDueAt != nil {
			continue
		}

		next, err := CalculateNextDue(sched, now)
		if err != nil {
			logger.Error("failed to calculate next due, schedule disabled",
				"schedule_name", sched.Name,
				"error", err,
			)
			sched.Enabled = false
			continue
		}
		sched.NextDueAt = &next
	}

	return &Scheduler{
		runner:    cfg.Runner,
		store:     cfg.Store,
		loadGraph: loadGraph,
		logger:    logger,
		schedules: schedules,
	}
}

// Schedules возвращает копию текущего состояния расписаний.
func (s *Scheduler) Schedules() []domain.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]domain.Schedule, len(s.schedules))
	copy(result, s.schedules)
	return result
}

// Restore загружает сохранённое состояние расписаний и записывает текущее.
//
// Вызывается при получении лидерства: прежний лидер мог продвинуть
// NextDueAt. LastRunAt и LastRunID восстанавливаются всегда, NextDueAt
// только если cron, интервал и часовой пояс не изменились в файле.
// Пропущенный за время простоя запуск выполнится на ближайшем тике один раз.
func (s *Scheduler) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	stored, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("load schedule state: %w", err)
	}

	byName := make(map[string]domain.Schedule, len(stored))
	for _, st := range stored {
		byName[st.Name] = st
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.schedules {
		sched := &s.schedules[i]
		if st, ok := byName[sched.Name]; ok {
			sched.LastRunAt = st.LastRunAt
			sched.LastRunID = st.LastRunID
			if sameTiming(sched, &st) && st.NextDueAt != nil {
				sched.NextDueAt = st.NextDueAt
			}
		}
		if err := s.store.Save(ctx, sched); err != nil {
			return fmt.Errorf("save schedule %s: %w", sched.Name, err)
		}
	}

	s.logger.Info("schedule state restored", "stored", len(stored), "schedules", len(s.schedules))
	return nil
}

// sameTiming — совпадают ли параметры, от которых зависит NextDueAt.
func sameTiming(a, b *domain.Schedule) bool {
	return a.CronExpr == b.CronExpr && a.IntervalSec == b.IntervalSec && a.Timezone == b.Timezone
}

// Tick выполняет один тик планировщика.
//
// Для каждого due schedule загружает граф, выполняет run и сдвигает
// NextDueAt. Ошибка одного schedule не блокирует остальные.
// Возвращает количество запущенных runs.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due, started int
	for i := range s.schedules {
		sched := &s.schedules[i]
		if !sched.IsDue(now) {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		due++

		err := s.processSchedule(ctx, sched, now)
		s.persist(ctx, sched)
		if err != nil {
			s.logger.Error("failed to process schedule",
				"schedule_name", sched.Name,
				"error", err,
			)
			continue
		}
		started++
	}

	if due > 0 {
		s.logger.Info("scheduler tick completed",
			"due", due,
			"runs_started", started,
		)
	}

	return started
}

// persist сохраняет состояние расписания. Ошибка хранилища логируется:
// расписание продолжает работать по состоянию в памяти.
func (s *Scheduler) persist(ctx context.Context, sched *domain.Schedule) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(context.WithoutCancel(ctx), sched); err != nil {
		s.logger.Error("failed to save schedule state",
			"schedule_name", sched.Name,
			"error", err,
		)
	}
}

// processSchedule выполняет один schedule.
// NextDueAt сдвигается при любом исходе, чтобы сломанный schedule
// не запускался на каждом тике.
func (s *Scheduler) processSchedule(ctx context.Context, sched *domain.Schedule, now time.Time) error {
	nextDue, err := CalculateNextDue(sched, now)
	if err != nil {
		sched.Enabled = false
		return fmt.Errorf("calculate next due, schedule disabled: %w", err)
	}
	sched.NextDueAt = &nextDue

	spec, err := s.loadGraph(sched.GraphFile)
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}

	run, err := s.runner.Run(ctx, orchestrator.RunRequest{
		Spec:   spec,
		Root:   sched.Root,
		Inputs: sched.Inputs,
	})
	if run == nil {
		return fmt.Errorf("run: %w", err)
	}

	sched.RecordRun(run.ID, now, nextDue)

	logger := s.logger.With("schedule_name", sched.Name, "run_id", run.ID)
	if err != nil {
		logger.Warn("scheduled run failed", "error", err)
	} else {
		logger.Info("scheduled run succeeded", "tasks", len(run.Order))
	}
	logger.Debug("next run", "next_due_at", nextDue)

	return nil
}
