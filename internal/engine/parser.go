package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/taskdep/internal/domain"
)

// Форматы файлов графа.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Допустимые типы задач. Пустой тип означает "log".
var validTaskTypes = map[string]bool{
	"":      true,
	"log":   true,
	"noop":  true,
	"delay": true,
	"http":  true,
	"exec":  true,
}

// ParseFile читает GraphSpec из файла.
// Формат определяется по расширению: .yaml/.yml — YAML, остальное — JSON.
func ParseFile(path string) (*domain.GraphSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph file: %w", err)
	}

	return Parse(data, FormatFromPath(path))
}

// FormatFromPath определяет формат по расширению файла.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse декодирует GraphSpec и валидирует его.
func Parse(data []byte, format string) (*domain.GraphSpec, error) {
	var spec domain.GraphSpec

	switch format {
	case FormatJSON, "":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&spec); err != nil {
			return nil, fmt.Errorf("decode json graph: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&spec); err != nil {
			return nil, fmt.Errorf("decode yaml graph: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}

	if err := Validate(&spec); err != nil {
		return nil, err
	}

	return &spec, nil
}

// Validate выполняет валидацию GraphSpec.
//
// Проверяет:
// - Наличие задач
// - Непустые и уникальные ID
// - Корректность типов
// - Что depends_on ссылается на существующие задачи
//
// Циклы (включая зависимость от самой себя) не проверяются:
// они обнаруживаются при обходе.
func Validate(spec *domain.GraphSpec) error {
	if spec == nil || len(spec.Tasks) == 0 {
		return ErrEmptyGraph
	}

	taskIDs := make(map[string]bool, len(spec.Tasks))

	for i := range spec.Tasks {
		if err := ValidateTask(&spec.Tasks[i], taskIDs); err != nil {
			return err
		}
	}

	for i := range spec.Tasks {
		def := &spec.Tasks[i]
		for _, dep := range def.DependsOn {
			if !taskIDs[dep] {
				return NewValidationError(def.ID, "depends_on",
					fmt.Sprintf("depends on unknown task: %s", dep), ErrMissingDependency)
			}
		}
	}

	return nil
}

// ValidateTask валидирует одну задачу.
// taskIDs — уже встреченные ID (для проверки уникальности).
func ValidateTask(def *domain.TaskDef, taskIDs map[string]bool) error {
	if def.ID == "" {
		return NewValidationError("", "id", "task has empty ID", ErrEmptyTaskID)
	}

	if taskIDs[def.ID] {
		return NewValidationError(def.ID, "id",
			fmt.Sprintf("duplicate task ID: %s", def.ID), ErrDuplicateTaskID)
	}
	taskIDs[def.ID] = true

	if !validTaskTypes[def.Type] {
		return NewValidationError(def.ID, "type",
			fmt.Sprintf("unknown task type: %s", def.Type), ErrUnknownTaskType)
	}

	if def.TimeoutSec < 0 {
		return NewValidationError(def.ID, "timeout_sec",
			"timeout_sec must not be negative", ErrInvalidTimeout)
	}

	return nil
}

// IsValidTaskType проверяет, является ли тип задачи допустимым.
func IsValidTaskType(taskType string) bool {
	return validTaskTypes[taskType]
}

// ValidTaskTypes возвращает отсортированный список допустимых типов.
func ValidTaskTypes() []string {
	types := make([]string, 0, len(validTaskTypes))
	for t := range validTaskTypes {
		if t != "" {
			types = append(types, t)
		}
	}
	sort.Strings(types)
	return types
}
