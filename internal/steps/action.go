package steps

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/taskdep/internal/domain"
	"github.com/shaiso/taskdep/internal/engine"
	"github.com/shaiso/taskdep/internal/telemetry"
)

// NewActionFactory возвращает engine.ActionFactory, которая превращает
// TaskDef в действие зарегистрированного шага.
//
// Конфигурация задачи рендерится при построении графа с inputs и env
// ({{ .Env.X }}), поэтому ошибки шаблонов обнаруживаются до начала
// выполнения. Задача без типа выполняется шагом log. Без registry
// используется ServiceRegistry(false), nil env — пустое окружение.
func NewActionFactory(registry *Registry, inputs map[string]any, env map[string]string, logger *slog.Logger) engine.ActionFactory {
	if registry == nil {
		registry = ServiceRegistry(false)
	}
	if logger == nil {
		logger = slog.Default()
	}

	vars := engine.NewVars(inputs, env)

	return func(def *domain.TaskDef) (engine.Action, error) {
		stepType := def.Type
		if stepType == "" {
			stepType = StepTypeLog
		}

		step, err := registry.Get(stepType)
		if err != nil {
			return nil, err
		}

		config, err := engine.RenderConfig(def.Config, vars.ForTask(def.ID, def.DisplayName()))
		if err != nil {
			return nil, fmt.Errorf("render config: %w", err)
		}

		timeout := time.Duration(def.TimeoutSec) * time.Second
		taskLogger := telemetry.TaskLogger(logger, def.ID)
		taskID, taskName := def.ID, def.DisplayName()

		return func(ctx context.Context) error {
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			req := NewRequest(taskID, config, taskLogger, timeout)
			req.TaskName = taskName
			return step.Execute(ctx, req)
		}, nil
	}
}
