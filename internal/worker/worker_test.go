package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/shaiso/taskdep/internal/domain"
	"github.com/shaiso/taskdep/internal/engine"
	"github.com/shaiso/taskdep/internal/mq"
	"github.com/shaiso/taskdep/internal/orchestrator"
	"github.com/shaiso/taskdep/internal/steps"
	"github.com/shaiso/taskdep/internal/telemetry"
)

type fakeRunner struct {
	requests []orchestrator.RunRequest
	err      error
}

func (r *fakeRunner) Run(_ context.Context, req orchestrator.RunRequest) (*domain.Run, error) {
	r.requests = append(r.requests, req)
	run := domain.NewRun("", req.Root, req.Inputs)
	if r.err != nil {
		run.MarkFailed(r.err.Error())
	}
	return run, r.err
}

func newTestWorker(runner Runner) *Worker {
	return New(Config{Runner: runner, Logger: telemetry.Nop()})
}

func delivery(payload any) *mq.Delivery {
	return &mq.Delivery{Message: *mq.NewMessage(mq.MessageTypeRunRequested, payload)}
}

func validPayload() mq.RunRequestedPayload {
	return mq.RunRequestedPayload{
		Spec: &domain.GraphSpec{
			Name:  "release",
			Tasks: []domain.TaskDef{{ID: "build"}},
		},
		Root:   "build",
		Inputs: map[string]any{"env": "prod"},
	}
}

func TestNew_Defaults(t *testing.T) {
	w := New(Config{})

	if w.prefetch != defaultPrefetch {
		t.Errorf("expected prefetch %d, got %d", defaultPrefetch, w.prefetch)
	}
	if w.logger == nil {
		t.Error("logger should default to slog.Default()")
	}
	if w.IsStopped() {
		t.Error("new worker should not be stopped")
	}
}

func TestHandleRunRequested_Success(t *testing.T) {
	runner := &fakeRunner{}
	w := newTestWorker(runner)

	if err := w.handleRunRequested(context.Background(), delivery(validPayload())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(runner.requests) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runner.requests))
	}
	req := runner.requests[0]
	if req.Spec.Name != "release" || req.Root != "build" || req.Inputs["env"] != "prod" {
		t.Errorf("unexpected request %+v", req)
	}
}

func TestHandleRunRequested_MalformedPayload(t *testing.T) {
	runner := &fakeRunner{}
	w := newTestWorker(runner)

	err := w.handleRunRequested(context.Background(), delivery(map[string]any{"spec": 42}))
	if !mq.IsPermanent(err) {
		t.Errorf("malformed payload should be permanent, got %v", err)
	}

	err = w.handleRunRequested(context.Background(), delivery(map[string]any{"root": "A"}))
	if !errors.Is(err, ErrMissingSpec) || !mq.IsPermanent(err) {
		t.Errorf("missing spec should be permanent ErrMissingSpec, got %v", err)
	}

	if len(runner.requests) != 0 {
		t.Error("runner should not be called for malformed payloads")
	}
}

func TestHandleRunRequested_RunFailuresAreFinal(t *testing.T) {
	failures := []error{
		&engine.TaskError{TaskID: "build", Err: errors.New("boom")},
		&engine.CycleError{Path: []string{"a", "b", "a"}},
		orchestrator.ErrUnknownRoot,
	}

	for _, failure := range failures {
		w := newTestWorker(&fakeRunner{err: failure})

		if err := w.handleRunRequested(context.Background(), delivery(validPayload())); err != nil {
			t.Errorf("%v: run failures should be acked, got %v", failure, err)
		}
	}
}

func TestHandleRunRequested_ShutdownBeforeRunRequeues(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &fakeRunner{}
	w := newTestWorker(runner)

	err := w.handleRunRequested(ctx, delivery(validPayload()))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if mq.IsPermanent(err) {
		t.Error("shutdown error should allow requeue")
	}
	if len(runner.requests) != 0 {
		t.Error("run should not start during shutdown")
	}
}

// cancellingRunner отменяет контекст посреди run, как shutdown worker'а.
type cancellingRunner struct {
	cancel context.CancelFunc
	calls  int
}

func (r *cancellingRunner) Run(ctx context.Context, req orchestrator.RunRequest) (*domain.Run, error) {
	r.calls++
	r.cancel()
	run := domain.NewRun("", req.Root, req.Inputs)
	run.MarkFailed(ctx.Err().Error())
	return run, &engine.TaskError{TaskID: req.Root, Err: ctx.Err()}
}

func TestHandleRunRequested_InterruptedRunIsFinal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &cancellingRunner{cancel: cancel}
	w := newTestWorker(runner)

	if err := w.handleRunRequested(ctx, delivery(validPayload())); err != nil {
		t.Errorf("interrupted run is already stored, message should be acked, got %v", err)
	}
	if runner.calls != 1 {
		t.Errorf("expected 1 run, got %d", runner.calls)
	}
}

func TestHandleRunRequested_WithOrchestrator(t *testing.T) {
	registry := steps.NewRegistry()
	registry.Register(steps.NewNoopStep())

	orch := orchestrator.New(orchestrator.Config{Registry: registry, Logger: telemetry.Nop()})
	w := newTestWorker(orch)

	payload := mq.RunRequestedPayload{
		Spec: &domain.GraphSpec{
			Tasks: []domain.TaskDef{
				{ID: "a", Type: "noop", DependsOn: []string{"b"}},
				{ID: "b", Type: "noop", DependsOn: []string{"a"}},
			},
		},
	}

	// Цикл: run FAILED, сообщение подтверждается
	if err := w.handleRunRequested(context.Background(), delivery(payload)); err != nil {
		t.Errorf("cycle should be acked, got %v", err)
	}
}

func TestStart_AfterStop(t *testing.T) {
	w := newTestWorker(&fakeRunner{})
	w.Stop()

	if !w.IsStopped() {
		t.Error("worker should be stopped")
	}
	if err := w.Start(context.Background()); !errors.Is(err, ErrWorkerStopped) {
		t.Errorf("expected ErrWorkerStopped, got %v", err)
	}
}
