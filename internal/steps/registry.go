package steps

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/shaiso/taskdep/internal/engine"
)

// Переменные окружения сетевых сервисов.
const (
	// EnvAllowExec включает шаг exec в api, worker и scheduler.
	EnvAllowExec = "TASKDEP_ALLOW_EXEC"

	// EnvTemplateEnv — имена переменных через запятую, доступных
	// шаблонам как {{ .Env.X }} в сервисах.
	EnvTemplateEnv = "TASKDEP_TEMPLATE_ENV"
)

// Registry сопоставляет тип задачи с реализацией Step. Потокобезопасен.
type Registry struct {
	mu     sync.RWMutex
	byType map[string]Step
}

// NewRegistry создаёт реестр с переданными шагами.
// Шаг с уже занятым типом заменяет предыдущий.
func NewRegistry(steps ...Step) *Registry {
	r := &Registry{byType: make(map[string]Step, len(steps))}
	r.Register(steps...)
	return r
}

// DefaultRegistry — реестр со всеми встроенными типами задач.
// Используется локальным CLI: exec выполняет команды от имени пользователя.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewLogStep(),
		NewNoopStep(),
		NewDelayStep(),
		NewHTTPStep(),
		NewExecStep(),
	)
}

// ServiceRegistry — реестр для графов, пришедших по сети.
// exec добавляется только при allowExec.
func ServiceRegistry(allowExec bool) *Registry {
	r := NewRegistry(
		NewLogStep(),
		NewNoopStep(),
		NewDelayStep(),
		NewHTTPStep(),
	)
	if allowExec {
		r.Register(NewExecStep())
	}
	return r
}

// ServiceRegistryFromEnv — ServiceRegistry с exec по TASKDEP_ALLOW_EXEC.
// Невалидное значение считается false.
func ServiceRegistryFromEnv() *Registry {
	allow, _ := strconv.ParseBool(os.Getenv(EnvAllowExec))
	return ServiceRegistry(allow)
}

// ServiceEnvFromEnv возвращает окружение шаблонов для сервисов:
// только переменные из TASKDEP_TEMPLATE_ENV. Без неё окружение пустое.
func ServiceEnvFromEnv() map[string]string {
	v := os.Getenv(EnvTemplateEnv)
	if v == "" {
		return map[string]string{}
	}
	return engine.AllowedEnv(strings.Split(v, ",")...)
}

// Register добавляет шаги, заменяя зарегистрированные ранее с тем же типом.
func (r *Registry) Register(steps ...Step) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, step := range steps {
		r.byType[step.Type()] = step
	}
}

// Get возвращает шаг по типу или ErrStepNotFound.
func (r *Registry) Get(stepType string) (Step, error) {
	r.mu.RLock()
	step, ok := r.byType[stepType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStepNotFound, stepType)
	}
	return step, nil
}

// Types возвращает зарегистрированные типы в алфавитном порядке.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.byType))
	for stepType := range r.byType {
		types = append(types, stepType)
	}
	slices.Sort(types)
	return types
}

// Missing возвращает типы из want, для которых нет шага.
func (r *Registry) Missing(want []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var missing []string
	for _, stepType := range want {
		if _, ok := r.byType[stepType]; !ok {
			missing = append(missing, stepType)
		}
	}
	return missing
}
