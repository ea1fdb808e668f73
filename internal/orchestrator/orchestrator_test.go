package orchestrator

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shaiso/taskdep/internal/domain"
	"github.com/shaiso/taskdep/internal/engine"
	"github.com/shaiso/taskdep/internal/steps"
	"github.com/shaiso/taskdep/internal/telemetry"
)

// --- Fakes ---

type fakeStore struct {
	mu        sync.Mutex
	created   []domain.Run
	updated   []domain.Run
	createErr error
}

func (s *fakeStore) Create(_ context.Context, run *domain.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, *run)
	return s.createErr
}

func (s *fakeStore) Update(_ context.Context, run *domain.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = append(s.updated, *run)
	return nil
}

type fakePublisher struct {
	finished []domain.Run
	err      error
}

func (p *fakePublisher) PublishRunFinished(_ context.Context, run *domain.Run) error {
	p.finished = append(p.finished, *run)
	return p.err
}

// recordStep записывает ID выполненных задач и падает на задачах из fail.
type recordStep struct {
	calls []string
	fail  map[string]bool
}

func (s *recordStep) Type() string { return "log" }

func (s *recordStep) Execute(_ context.Context, req *steps.Request) error {
	s.calls = append(s.calls, req.TaskID)
	if s.fail[req.TaskID] {
		return errors.New("boom")
	}
	return nil
}

func newTestOrchestrator(store RunStore, pub EventPublisher) (*Orchestrator, *recordStep) {
	rec := &recordStep{fail: map[string]bool{}}
	registry := steps.NewRegistry()
	registry.Register(rec)
	registry.Register(steps.NewNoopStep())

	o := New(Config{
		Store:     store,
		Publisher: pub,
		Registry:  registry,
		Metrics:   telemetry.NewMetrics(prometheus.NewRegistry()),
		Logger:    telemetry.Nop(),
	})
	return o, rec
}

// exampleSpec: A → B, C; B → D, E; C → E.
func exampleSpec() *domain.GraphSpec {
	return &domain.GraphSpec{
		Name: "example",
		Tasks: []domain.TaskDef{
			{ID: "A", DependsOn: []string{"B", "C"}},
			{ID: "B", DependsOn: []string{"D", "E"}},
			{ID: "C", DependsOn: []string{"E"}},
			{ID: "D"},
			{ID: "E"},
		},
	}
}

// --- Run Tests ---

func TestRun_Succeeded(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	o, rec := newTestOrchestrator(store, pub)

	run, err := o.Run(context.Background(), RunRequest{Spec: exampleSpec(), Root: "A"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{"D", "E", "B", "C", "A"}
	if !slices.Equal(run.Order, expected) {
		t.Errorf("expected order %v, got %v", expected, run.Order)
	}
	if !slices.Equal(rec.calls, expected) {
		t.Errorf("expected calls %v, got %v", expected, rec.calls)
	}
	if run.Status != domain.RunStatusSucceeded {
		t.Errorf("expected SUCCEEDED, got %s", run.Status)
	}
	if run.Graph != "example" || run.Root != "A" {
		t.Errorf("unexpected graph/root %s/%s", run.Graph, run.Root)
	}

	if len(store.created) != 1 || store.created[0].Status != domain.RunStatusPending {
		t.Errorf("run should be created in PENDING, got %+v", store.created)
	}
	if len(store.updated) != 1 || store.updated[0].Status != domain.RunStatusSucceeded {
		t.Errorf("run should be updated to SUCCEEDED, got %+v", store.updated)
	}
	if len(pub.finished) != 1 || pub.finished[0].ID != run.ID {
		t.Errorf("run.finished should be published once")
	}
}

func TestRun_SubgraphOnly(t *testing.T) {
	o, rec := newTestOrchestrator(nil, nil)

	run, err := o.Run(context.Background(), RunRequest{Spec: exampleSpec(), Root: "C"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !slices.Equal(run.Order, []string{"E", "C"}) {
		t.Errorf("expected [E C], got %v", run.Order)
	}
	if len(rec.calls) != 2 {
		t.Errorf("only the subgraph should run, got %v", rec.calls)
	}
}

func TestRun_FreshStatePerRun(t *testing.T) {
	o, rec := newTestOrchestrator(nil, nil)
	spec := exampleSpec()

	first, err := o.Run(context.Background(), RunRequest{Spec: spec, Root: "C"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := o.Run(context.Background(), RunRequest{Spec: spec, Root: "C"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !slices.Equal(first.Order, second.Order) {
		t.Errorf("runs should be independent: %v vs %v", first.Order, second.Order)
	}
	if len(rec.calls) != 4 {
		t.Errorf("each run should invoke its actions, got %v", rec.calls)
	}
	if first.ID == second.ID {
		t.Error("runs should have distinct IDs")
	}
}

func TestRun_DefaultRoot(t *testing.T) {
	o, _ := newTestOrchestrator(nil, nil)

	run, err := o.Run(context.Background(), RunRequest{Spec: exampleSpec()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Root != "A" {
		t.Errorf("expected single target A as root, got %s", run.Root)
	}
}

func TestRun_RootErrors(t *testing.T) {
	spec := exampleSpec()
	spec.Tasks = append(spec.Tasks, domain.TaskDef{ID: "lint"})

	tests := []struct {
		name     string
		root     string
		expected error
	}{
		{"ambiguous", "", ErrRootRequired},
		{"unknown", "ghost", ErrUnknownRoot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			o, rec := newTestOrchestrator(store, nil)

			run, err := o.Run(context.Background(), RunRequest{Spec: spec, Root: tt.root})
			if !errors.Is(err, tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, err)
			}
			if !IsInvalidRequest(err) {
				t.Error("root errors are invalid requests")
			}
			if run.Status != domain.RunStatusFailed {
				t.Errorf("expected FAILED, got %s", run.Status)
			}
			if len(rec.calls) != 0 {
				t.Errorf("no actions should run, got %v", rec.calls)
			}
			if len(store.updated) != 1 {
				t.Error("failed run should be stored")
			}
		})
	}
}

func TestRun_InvalidGraph(t *testing.T) {
	o, _ := newTestOrchestrator(nil, nil)

	spec := &domain.GraphSpec{
		Tasks: []domain.TaskDef{{ID: "a", DependsOn: []string{"ghost"}}},
	}

	run, err := o.Run(context.Background(), RunRequest{Spec: spec})
	if !errors.Is(err, ErrInvalidGraph) {
		t.Fatalf("expected ErrInvalidGraph, got %v", err)
	}
	if !errors.Is(err, engine.ErrMissingDependency) {
		t.Errorf("underlying validation error should be preserved, got %v", err)
	}
	if run.Error == "" {
		t.Error("run error should be set")
	}

	_, err = o.Run(context.Background(), RunRequest{Spec: nil})
	if !errors.Is(err, engine.ErrEmptyGraph) {
		t.Errorf("expected ErrEmptyGraph for nil spec, got %v", err)
	}
}

func TestRun_Cycle(t *testing.T) {
	o, rec := newTestOrchestrator(nil, nil)

	spec := &domain.GraphSpec{
		Tasks: []domain.TaskDef{
			{ID: "A", DependsOn: []string{"B"}},
			{ID: "B", DependsOn: []string{"C"}},
			{ID: "C", DependsOn: []string{"A"}},
		},
	}

	// Без целевых задач корень выбирается автоматически
	run, err := o.Run(context.Background(), RunRequest{Spec: spec})
	if !errors.Is(err, engine.ErrCyclicDependency) {
		t.Fatalf("expected ErrCyclicDependency, got %v", err)
	}
	if IsInvalidRequest(err) || IsExecutionFailure(err) {
		t.Error("cycle is neither an invalid request nor an action failure")
	}
	if run.Status != domain.RunStatusFailed {
		t.Errorf("expected FAILED, got %s", run.Status)
	}
	if len(rec.calls) != 0 {
		t.Errorf("no actions should run, got %v", rec.calls)
	}
}

func TestRun_ActionFailure(t *testing.T) {
	store := &fakeStore{}
	o, rec := newTestOrchestrator(store, nil)
	rec.fail["C"] = true

	run, err := o.Run(context.Background(), RunRequest{Spec: exampleSpec(), Root: "A"})
	if !IsExecutionFailure(err) {
		t.Fatalf("expected TaskError, got %v", err)
	}

	var taskErr *engine.TaskError
	errors.As(err, &taskErr)
	if taskErr.TaskID != "C" {
		t.Errorf("expected failing task C, got %s", taskErr.TaskID)
	}

	// Выполненные до сбоя задачи остаются в Order
	if !slices.Equal(run.Order, []string{"D", "E", "B"}) {
		t.Errorf("expected partial order [D E B], got %v", run.Order)
	}
	if run.Status != domain.RunStatusFailed {
		t.Errorf("expected FAILED, got %s", run.Status)
	}
	if store.updated[0].Error == "" {
		t.Error("stored run should carry the error")
	}
}

func TestRun_DryRun(t *testing.T) {
	o, rec := newTestOrchestrator(nil, nil)

	run, err := o.Run(context.Background(), RunRequest{Spec: exampleSpec(), Root: "A", DryRun: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !slices.Equal(run.Order, []string{"D", "E", "B", "C", "A"}) {
		t.Errorf("unexpected order %v", run.Order)
	}
	if !run.DryRun {
		t.Error("run should be marked as dry run")
	}
	if len(rec.calls) != 0 {
		t.Errorf("dry run should not invoke actions, got %v", rec.calls)
	}
}

func TestRun_StoreFailureDoesNotFailRun(t *testing.T) {
	store := &fakeStore{createErr: errors.New("db down")}
	pub := &fakePublisher{err: errors.New("mq down")}
	o, _ := newTestOrchestrator(store, pub)

	run, err := o.Run(context.Background(), RunRequest{Spec: exampleSpec()})
	if err != nil {
		t.Fatalf("store errors should not fail the run: %v", err)
	}
	if run.Status != domain.RunStatusSucceeded {
		t.Errorf("expected SUCCEEDED, got %s", run.Status)
	}
}

func TestRun_InputsMerged(t *testing.T) {
	var seen []string
	registry := steps.NewRegistry()
	registry.Register(&configStep{seen: &seen})

	o := New(Config{Registry: registry, Logger: telemetry.Nop()})

	spec := &domain.GraphSpec{
		Inputs: map[string]any{"env": "staging", "region": "eu"},
		Tasks: []domain.TaskDef{
			{ID: "deploy", Config: map[string]any{"message": "{{ .Inputs.env }}-{{ .Inputs.region }}"}},
		},
	}

	if _, err := o.Run(context.Background(), RunRequest{Spec: spec, Inputs: map[string]any{"env": "prod"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(seen) != 1 || seen[0] != "prod-eu" {
		t.Errorf("expected rendered prod-eu, got %v", seen)
	}
}

func TestRun_EnvIsExplicit(t *testing.T) {
	t.Setenv("TASKDEP_TEST_SECRET", "hunter2")

	var seen []string
	registry := steps.NewRegistry(&configStep{seen: &seen})

	o := New(Config{
		Registry: registry,
		Env:      map[string]string{"REGION": "eu"},
		Logger:   telemetry.Nop(),
	})

	spec := &domain.GraphSpec{
		Tasks: []domain.TaskDef{
			{ID: "a", Config: map[string]any{"message": "{{ .Env.REGION }}/{{ .Env.TASKDEP_TEST_SECRET }}"}},
		},
	}

	if _, err := o.Run(context.Background(), RunRequest{Spec: spec}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) != 1 || !strings.HasPrefix(seen[0], "eu/") || strings.Contains(seen[0], "hunter2") {
		t.Errorf("only configured env should be rendered, got %v", seen)
	}
}

func TestRun_ExecNotRegisteredByDefault(t *testing.T) {
	o := New(Config{Logger: telemetry.Nop()})

	spec := &domain.GraphSpec{
		Tasks: []domain.TaskDef{
			{ID: "x", Type: steps.StepTypeExec, Config: map[string]any{"command": "true"}},
		},
	}

	run, err := o.Run(context.Background(), RunRequest{Spec: spec})
	if !errors.Is(err, ErrInvalidGraph) || !errors.Is(err, steps.ErrStepNotFound) {
		t.Fatalf("expected ErrInvalidGraph wrapping ErrStepNotFound, got %v", err)
	}
	if run.Status != domain.RunStatusFailed || len(run.Order) != 0 {
		t.Errorf("unexpected run %+v", run)
	}

	if _, err := o.Plan(spec, ""); !errors.Is(err, steps.ErrStepNotFound) {
		t.Errorf("plan should reject unregistered step types, got %v", err)
	}
}

type configStep struct {
	seen *[]string
}

func (s *configStep) Type() string { return "log" }

func (s *configStep) Execute(_ context.Context, req *steps.Request) error {
	*s.seen = append(*s.seen, steps.GetConfigString(req.Config, "message"))
	return nil
}

// --- Plan Tests ---

func TestPlan(t *testing.T) {
	o, rec := newTestOrchestrator(nil, nil)

	plan, err := o.Plan(exampleSpec(), "B")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Root != "B" || !slices.Equal(plan.Order, []string{"D", "E", "B"}) {
		t.Errorf("unexpected plan %+v", plan)
	}
	if len(rec.calls) != 0 {
		t.Error("plan should not invoke actions")
	}

	if _, err := o.Plan(&domain.GraphSpec{}, ""); !errors.Is(err, ErrInvalidGraph) {
		t.Errorf("expected ErrInvalidGraph, got %v", err)
	}
}
