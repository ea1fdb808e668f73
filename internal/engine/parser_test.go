package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shaiso/taskdep/internal/domain"
)

func TestValidate_EmptyGraph(t *testing.T) {
	tests := []struct {
		name string
		spec *domain.GraphSpec
	}{
		{
			name: "nil spec",
			spec: nil,
		},
		{
			name: "empty tasks",
			spec: &domain.GraphSpec{
				Tasks: []domain.TaskDef{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.spec)
			if !errors.Is(err, ErrEmptyGraph) {
				t.Errorf("expected ErrEmptyGraph, got %v", err)
			}
		})
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		tasks    []domain.TaskDef
		expected error
		taskID   string
	}{
		{
			name:     "empty id",
			tasks:    []domain.TaskDef{{ID: ""}},
			expected: ErrEmptyTaskID,
		},
		{
			name:     "duplicate id",
			tasks:    []domain.TaskDef{{ID: "a"}, {ID: "a"}},
			expected: ErrDuplicateTaskID,
			taskID:   "a",
		},
		{
			name:     "unknown type",
			tasks:    []domain.TaskDef{{ID: "a", Type: "parallel"}},
			expected: ErrUnknownTaskType,
			taskID:   "a",
		},
		{
			name:     "missing dependency",
			tasks:    []domain.TaskDef{{ID: "a", DependsOn: []string{"ghost"}}},
			expected: ErrMissingDependency,
			taskID:   "a",
		},
		{
			name:     "negative timeout",
			tasks:    []domain.TaskDef{{ID: "a", TimeoutSec: -1}},
			expected: ErrInvalidTimeout,
			taskID:   "a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&domain.GraphSpec{Tasks: tt.tasks})
			if !errors.Is(err, tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, err)
			}

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if vErr.TaskID != tt.taskID {
				t.Errorf("expected task %q, got %q", tt.taskID, vErr.TaskID)
			}
		})
	}
}

func TestValidate_SelfDependencyAllowed(t *testing.T) {
	spec := &domain.GraphSpec{
		Tasks: []domain.TaskDef{
			{ID: "a", DependsOn: []string{"a"}},
		},
	}

	if err := Validate(spec); err != nil {
		t.Errorf("self dependency is reported by the engine, got %v", err)
	}
}

func TestParse_JSON(t *testing.T) {
	data := []byte(`{
		"name": "release",
		"inputs": {"env": "staging"},
		"tasks": [
			{"id": "build", "type": "noop"},
			{"id": "deploy", "type": "log", "depends_on": ["build"], "config": {"message": "to {{ .Inputs.env }}"}}
		]
	}`)

	spec, err := Parse(data, FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if spec.Name != "release" {
		t.Errorf("expected name release, got %s", spec.Name)
	}
	if len(spec.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(spec.Tasks))
	}
	if spec.Task("deploy").DependsOn[0] != "build" {
		t.Error("deploy should depend on build")
	}
	if spec.Inputs["env"] != "staging" {
		t.Errorf("expected input env=staging, got %v", spec.Inputs["env"])
	}
}

func TestParse_YAML(t *testing.T) {
	data := []byte(`
name: release
tasks:
  - id: build
  - id: test
    depends_on: [build]
  - id: deploy
    type: delay
    depends_on: [build, test]
    config:
      duration_ms: 5
`)

	spec, err := Parse(data, FormatYAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deploy := spec.Task("deploy")
	if deploy == nil {
		t.Fatal("deploy not found")
	}
	if len(deploy.DependsOn) != 2 || deploy.DependsOn[1] != "test" {
		t.Errorf("unexpected depends_on %v", deploy.DependsOn)
	}
	if deploy.Config["duration_ms"] != 5 {
		t.Errorf("expected duration_ms 5, got %v", deploy.Config["duration_ms"])
	}
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte(`{"tasks": [{"id": "a", "needs": ["b"]}]}`), FormatJSON)
	if err == nil {
		t.Error("expected error for unknown field")
	}

	_, err = Parse([]byte("tasks:\n  - id: a\n    needs: [b]\n"), FormatYAML)
	if err == nil {
		t.Error("expected error for unknown yaml field")
	}
}

func TestParse_UnknownFormat(t *testing.T) {
	_, err := Parse([]byte(`{}`), "toml")
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestParse_ValidatesSpec(t *testing.T) {
	_, err := Parse([]byte(`{"tasks": []}`), FormatJSON)
	if !errors.Is(err, ErrEmptyGraph) {
		t.Errorf("expected ErrEmptyGraph, got %v", err)
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "graph.yml")
	if err := os.WriteFile(yamlPath, []byte("tasks:\n  - id: only\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	spec, err := ParseFile(yamlPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec.Tasks[0].ID != "only" {
		t.Errorf("expected task only, got %s", spec.Tasks[0].ID)
	}

	if _, err := ParseFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]string{
		"a.yaml":     FormatYAML,
		"a.YML":      FormatYAML,
		"a.json":     FormatJSON,
		"graph":      FormatJSON,
		"dir/x.yaml": FormatYAML,
	}

	for path, expected := range tests {
		if got := FormatFromPath(path); got != expected {
			t.Errorf("%s: expected %s, got %s", path, expected, got)
		}
	}
}

func TestValidTaskTypes(t *testing.T) {
	types := ValidTaskTypes()
	expected := []string{"delay", "exec", "http", "log", "noop"}

	if len(types) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, types)
	}
	for i := range expected {
		if types[i] != expected[i] {
			t.Errorf("expected %v, got %v", expected, types)
		}
	}

	if !IsValidTaskType("") {
		t.Error("empty type should be valid")
	}
}
