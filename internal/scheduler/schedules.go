package scheduler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/taskdep/internal/domain"
	"github.com/shaiso/taskdep/internal/engine"
)

// schedulesFile — содержимое SCHEDULES_FILE.
type schedulesFile struct {
	Schedules []domain.Schedule `json:"schedules" yaml:"schedules"`
}

// LoadSchedules читает расписания из YAML или JSON файла (по расширению)
// и валидирует их. Относительные пути graph_file разрешаются от
// директории файла расписаний.
func LoadSchedules(path string) ([]domain.Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedules file: %w", err)
	}

	var file schedulesFile
	switch engine.FormatFromPath(path) {
	case engine.FormatYAML:
		err = yaml.Unmarshal(data, &file)
	default:
		err = json.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("parse schedules file %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	names := make(map[string]bool, len(file.Schedules))

	for i := range file.Schedules {
		sched := &file.Schedules[i]

		if err := ValidateSchedule(sched); err != nil {
			return nil, err
		}
		if names[sched.Name] {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidSchedule, sched.Name)
		}
		names[sched.Name] = true

		if !filepath.IsAbs(sched.GraphFile) {
			sched.GraphFile = filepath.Join(dir, sched.GraphFile)
		}
	}

	return file.Schedules, nil
}

// ValidateSchedule проверяет обязательные поля, триггер и timezone.
func ValidateSchedule(sched *domain.Schedule) error {
	if sched.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSchedule)
	}
	if sched.GraphFile == "" {
		return fmt.Errorf("%w: %s: graph_file is required", ErrInvalidSchedule, sched.Name)
	}

	switch {
	case sched.IsCron():
		if err := ValidateCronExpr(sched.CronExpr); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidSchedule, sched.Name, err)
		}
	case sched.IsInterval():
	default:
		return fmt.Errorf("%w: %s: %w", ErrInvalidSchedule, sched.Name, ErrNoTrigger)
	}

	if _, err := location(sched.Timezone); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidSchedule, sched.Name, err)
	}

	return nil
}
