package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/shaiso/taskdep/internal/domain"
	"github.com/shaiso/taskdep/internal/mq"
	"github.com/shaiso/taskdep/internal/orchestrator"
)

const defaultPrefetch = 5

// Runner выполняет run. Реализуется *orchestrator.Orchestrator.
type Runner interface {
	Run(ctx context.Context, req orchestrator.RunRequest) (*domain.Run, error)
}

// Config — параметры Worker.
type Config struct {
	Runner Runner
	Conn   *mq.Connection

	// Prefetch — сколько runs выполняется одновременно (по умолчанию 5).
	Prefetch int

	Logger *slog.Logger
}

// Worker выполняет графы из очереди runs.requested.
type Worker struct {
	runner   Runner
	conn     *mq.Connection
	prefetch int
	logger   *slog.Logger

	stopped atomic.Bool
	cancel  context.CancelFunc
	done    sync.WaitGroup
}

// New создаёт Worker.
func New(cfg Config) *Worker {
	w := &Worker{
		runner:   cfg.Runner,
		conn:     cfg.Conn,
		prefetch: cfg.Prefetch,
		logger:   cfg.Logger,
	}
	if w.prefetch <= 0 {
		w.prefetch = defaultPrefetch
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w
}

// Start запускает потребление в фоне и сразу возвращает управление.
// Остановленный Worker повторно не запускается.
func (w *Worker) Start(ctx context.Context) error {
	if w.stopped.Load() {
		return ErrWorkerStopped
	}

	ctx, w.cancel = context.WithCancel(ctx)

	consumer := mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
		Queue:    string(mq.QueueRunsRequested),
		Handler:  w.handleRunRequested,
		Prefetch: w.prefetch,
	})

	w.done.Add(1)
	go func() {
		defer w.done.Done()

		err := consumer.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, mq.ErrClosed) {
			w.logger.Error("consumer stopped", "error", err)
		}
	}()

	w.logger.Info("worker started", "prefetch", w.prefetch)
	return nil
}

// Stop отменяет потребление и ждёт завершения runs в работе.
func (w *Worker) Stop() {
	if !w.stopped.CompareAndSwap(false, true) {
		return
	}

	w.logger.Info("stopping worker")
	if w.cancel != nil {
		w.cancel()
	}
	w.done.Wait()
	w.logger.Info("worker stopped")
}

// IsStopped сообщает, вызывался ли Stop.
func (w *Worker) IsStopped() bool {
	return w.stopped.Load()
}
