package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/shaiso/taskdep/internal/api"
	"github.com/shaiso/taskdep/internal/engine"
	"github.com/shaiso/taskdep/internal/orchestrator"
	"github.com/shaiso/taskdep/internal/steps"
	"github.com/shaiso/taskdep/internal/telemetry"
)

const releaseGraph = `
name: release
tasks:
  - id: deploy
    type: noop
    depends_on: [build, test]
  - id: build
    type: noop
  - id: test
    type: noop
    depends_on: [build]
`

const cyclicGraph = `
name: cyclic
tasks:
  - id: a
    type: noop
    depends_on: [b]
  - id: b
    type: noop
    depends_on: [a]
`

func writeGraph(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

type testOutput struct {
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func (o *testOutput) fn(jsonMode bool) func() *Output {
	return func() *Output { return NewOutputTo(jsonMode, &o.stdout, &o.stderr) }
}

func execute(cmd *cobra.Command, args ...string) error {
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.Execute()
}

func nopLogger() func() *slog.Logger {
	return telemetry.Nop
}

func TestParseInputs(t *testing.T) {
	inputs, err := parseInputs([]string{"env=prod", "query=a=b", "empty="})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inputs["env"] != "prod" || inputs["query"] != "a=b" || inputs["empty"] != "" {
		t.Errorf("unexpected inputs %v", inputs)
	}

	if inputs, _ := parseInputs(nil); inputs != nil {
		t.Errorf("expected nil inputs, got %v", inputs)
	}

	for _, bad := range []string{"novalue", "=value"} {
		if _, err := parseInputs([]string{bad}); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestLocalRun(t *testing.T) {
	path := writeGraph(t, "release.yaml", releaseGraph)

	var out testOutput
	cmd := NewLocalRunCmd(out.fn(true), nopLogger())
	if err := execute(cmd, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var run struct {
		Status string   `json:"status"`
		Root   string   `json:"root"`
		Order  []string `json:"order"`
	}
	if err := json.Unmarshal(out.stdout.Bytes(), &run); err != nil {
		t.Fatalf("decode output: %v (%s)", err, out.stdout.String())
	}

	if run.Status != "SUCCEEDED" || run.Root != "deploy" {
		t.Errorf("unexpected run %+v", run)
	}
	if got := strings.Join(run.Order, " "); got != "build test deploy" {
		t.Errorf("expected order build test deploy, got %s", got)
	}
}

func TestLocalRun_Subgraph(t *testing.T) {
	path := writeGraph(t, "release.yaml", releaseGraph)

	var out testOutput
	cmd := NewLocalRunCmd(out.fn(false), nopLogger())
	if err := execute(cmd, path, "--root", "test"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	table := out.stdout.String()
	if !strings.Contains(table, "TASK") || !strings.Contains(table, "1  build") || !strings.Contains(table, "2  test") {
		t.Errorf("unexpected table:\n%s", table)
	}
	if strings.Contains(table, "deploy") {
		t.Errorf("deploy should not run for root test:\n%s", table)
	}
	if !strings.Contains(out.stderr.String(), "SUCCEEDED") {
		t.Errorf("expected success message, got %q", out.stderr.String())
	}
}

func TestLocalRun_Cycle(t *testing.T) {
	path := writeGraph(t, "cyclic.yaml", cyclicGraph)

	var out testOutput
	cmd := NewLocalRunCmd(out.fn(false), nopLogger())
	err := execute(cmd, path, "--root", "a")
	if !errors.Is(err, engine.ErrCyclicDependency) {
		t.Errorf("expected ErrCyclicDependency, got %v", err)
	}
}

func TestLocalRun_BadInput(t *testing.T) {
	path := writeGraph(t, "release.yaml", releaseGraph)

	var out testOutput
	cmd := NewLocalRunCmd(out.fn(false), nopLogger())
	if err := execute(cmd, path, "--input", "broken"); err == nil {
		t.Error("expected error for malformed input")
	}
}

func TestPlan(t *testing.T) {
	path := writeGraph(t, "release.yaml", releaseGraph)

	var out testOutput
	if err := execute(NewPlanCmd(out.fn(true)), path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var plan orchestrator.PlanResult
	if err := json.Unmarshal(out.stdout.Bytes(), &plan); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if got := strings.Join(plan.Order, " "); got != "build test deploy" {
		t.Errorf("expected order build test deploy, got %s", got)
	}
}

func TestValidate(t *testing.T) {
	var out testOutput

	valid := writeGraph(t, "release.yaml", releaseGraph)
	if err := execute(NewValidateCmd(out.fn(false)), valid); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !strings.Contains(out.stderr.String(), "is valid") {
		t.Errorf("expected valid message, got %q", out.stderr.String())
	}

	// Все задачи в цикле, целевых нет
	cyclic := writeGraph(t, "cyclic.yaml", cyclicGraph)
	if err := execute(NewValidateCmd(out.fn(false)), cyclic); !errors.Is(err, engine.ErrCyclicDependency) {
		t.Errorf("expected ErrCyclicDependency, got %v", err)
	}

	// Цикл b <-> c не достижим из целевой задачи a
	detached := writeGraph(t, "detached.json", `{"tasks": [
		{"id": "a"},
		{"id": "b", "depends_on": ["c"]},
		{"id": "c", "depends_on": ["b"]}
	]}`)
	if err := execute(NewValidateCmd(out.fn(false)), detached); !errors.Is(err, engine.ErrCyclicDependency) {
		t.Errorf("expected ErrCyclicDependency for detached cycle, got %v", err)
	}

	unknown := writeGraph(t, "unknown.json", `{"tasks": [{"id": "a", "depends_on": ["x"]}]}`)
	if err := execute(NewValidateCmd(out.fn(false)), unknown); !errors.Is(err, engine.ErrMissingDependency) {
		t.Errorf("expected ErrMissingDependency, got %v", err)
	}
}

func TestOutput_Table(t *testing.T) {
	var stdout bytes.Buffer
	out := NewOutputTo(false, &stdout, io.Discard)

	out.Table([]string{"ID", "STATUS"}, [][]string{{"run-1", "SUCCEEDED"}})

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), stdout.String())
	}
	if !strings.HasPrefix(lines[1], "--") {
		t.Errorf("expected dashes separator, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "run-1") || !strings.Contains(lines[2], "SUCCEEDED") {
		t.Errorf("unexpected row %q", lines[2])
	}
}

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()

	registry := steps.NewRegistry()
	registry.Register(steps.NewNoopStep())

	mux := http.NewServeMux()
	api.NewHandler(api.Config{
		Runner: orchestrator.New(orchestrator.Config{Registry: registry, Logger: telemetry.Nop()}),
		Logger: telemetry.Nop(),
	}).RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRunsSubmit(t *testing.T) {
	srv := newAPIServer(t)
	path := writeGraph(t, "release.yaml", releaseGraph)

	var out testOutput
	cmd := NewRunsCmd(func() *Client { return NewClient(srv.URL + "/") }, out.fn(true))
	if err := execute(cmd, "submit", path, "--root", "test"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var run RunResponse
	if err := json.Unmarshal(out.stdout.Bytes(), &run); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if run.Status != "SUCCEEDED" || strings.Join(run.Order, " ") != "build test" {
		t.Errorf("unexpected run %+v", run)
	}
}

func TestRunsSubmit_Cycle(t *testing.T) {
	srv := newAPIServer(t)
	path := writeGraph(t, "cyclic.yaml", cyclicGraph)

	var out testOutput
	cmd := NewRunsCmd(func() *Client { return NewClient(srv.URL) }, out.fn(false))
	err := execute(cmd, "submit", path, "--root", "a")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity || apiErr.Code != "CYCLIC_DEPENDENCY" {
		t.Errorf("unexpected API error %+v", apiErr)
	}
}

func TestRunsSubmit_AsyncWithoutQueue(t *testing.T) {
	srv := newAPIServer(t)
	path := writeGraph(t, "release.yaml", releaseGraph)

	var out testOutput
	cmd := NewRunsCmd(func() *Client { return NewClient(srv.URL) }, out.fn(false))
	err := execute(cmd, "submit", path, "--async")

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 API error, got %v", err)
	}
}

func TestRunsListAndShow(t *testing.T) {
	var gotQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/runs", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": [{"id": "r1", "graph": "release", "root": "deploy", "status": "FAILED", "order": ["build"]}], "total": 1}`))
	})
	mux.HandleFunc("GET /api/v1/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.PathValue("id") != "r1" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error": {"code": "NOT_FOUND", "message": "run not found"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"data": {"id": "r1", "graph": "release", "root": "deploy", "status": "FAILED", "order": ["build"], "error": "task test: boom"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	clientFn := func() *Client { return NewClient(srv.URL) }

	var out testOutput
	if err := execute(NewRunsCmd(clientFn, out.fn(false)), "list", "--status", "FAILED", "--graph", "release", "--limit", "10"); err != nil {
		t.Fatalf("list: %v", err)
	}
	if gotQuery != "graph=release&limit=10&status=FAILED" {
		t.Errorf("unexpected query %q", gotQuery)
	}
	if !strings.Contains(out.stdout.String(), "r1") {
		t.Errorf("expected run in table, got:\n%s", out.stdout.String())
	}

	out = testOutput{}
	if err := execute(NewRunsCmd(clientFn, out.fn(false)), "show", "r1"); err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out.stderr.String(), "task test: boom") {
		t.Errorf("expected run error in stderr, got %q", out.stderr.String())
	}

	err := execute(NewRunsCmd(clientFn, out.fn(false)), "show", "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND API error, got %v", err)
	}
}
