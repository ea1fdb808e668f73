package domain

// GraphSpec — описание графа задач (содержимое JSON/YAML файла).
//
// Порядок задач в Tasks и порядок зависимостей в TaskDef.DependsOn
// значимы: они определяют порядок обхода и, следовательно, порядок
// выполнения независимых веток.
type GraphSpec struct {
	// Name — имя графа (для логов и истории runs).
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Description — описание назначения графа.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Inputs — значения по умолчанию для {{ .Inputs.x }} в конфигурации задач.
	// Переопределяются входными параметрами run.
	Inputs map[string]any `json:"inputs,omitempty" yaml:"inputs,omitempty"`

	// Tasks — задачи графа.
	Tasks []TaskDef `json:"tasks" yaml:"tasks"`
}

// TaskDef — определение задачи в графе.
type TaskDef struct {
	// ID — уникальный идентификатор задачи в рамках графа.
	// Попадает в execution record.
	ID string `json:"id" yaml:"id"`

	// Name — человекочитаемое имя задачи.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Type — тип действия: "log", "noop", "delay", "http", "exec".
	// Пустой тип означает "log".
	Type string `json:"type,omitempty" yaml:"type,omitempty"`

	// DependsOn — ID задач, которые должны выполниться раньше этой.
	// Порядок определяет порядок обхода.
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`

	// Config — конфигурация действия (зависит от типа).
	// Строковые значения рендерятся как Go templates.
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`

	// TimeoutSec — таймаут действия в секундах (0 — без таймаута).
	TimeoutSec int `json:"timeout_sec,omitempty" yaml:"timeout_sec,omitempty"`
}

// DisplayName возвращает Name, а если он пуст — ID.
func (d *TaskDef) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// Task возвращает определение задачи по ID или nil.
func (s *GraphSpec) Task(id string) *TaskDef {
	for i := range s.Tasks {
		if s.Tasks[i].ID == id {
			return &s.Tasks[i]
		}
	}
	return nil
}
