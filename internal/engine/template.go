package engine

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"strings"
	"text/template"
)

// Vars — данные, доступные в шаблонах конфигурации задачи:
//
//	{{ .Inputs.env }}  {{ .Env.HOME }}  {{ .Task.ID }}  {{ .Task.Name }}
type Vars struct {
	Inputs map[string]any
	Env    map[string]string
	Task   TaskVars
}

// TaskVars — задача, конфигурация которой рендерится.
type TaskVars struct {
	ID   string
	Name string
}

// NewVars создаёт Vars графа. nil заменяются пустыми map.
func NewVars(inputs map[string]any, env map[string]string) Vars {
	if inputs == nil {
		inputs = map[string]any{}
	}
	if env == nil {
		env = map[string]string{}
	}
	return Vars{Inputs: inputs, Env: env}
}

// ForTask возвращает Vars для задачи. Inputs и Env общие.
func (v Vars) ForTask(id, name string) Vars {
	v.Task = TaskVars{ID: id, Name: name}
	return v
}

// ProcessEnv возвращает окружение процесса в виде map.
func ProcessEnv() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// AllowedEnv возвращает только перечисленные переменные окружения процесса.
// Отсутствующие переменные пропускаются.
func AllowedEnv(names ...string) map[string]string {
	env := make(map[string]string, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if v, ok := os.LookupEnv(name); ok {
			env[name] = v
		}
	}
	return env
}

// MergeInputs накладывает inputs run поверх значений графа по умолчанию.
func MergeInputs(defaults, inputs map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(inputs))
	maps.Copy(merged, defaults)
	maps.Copy(merged, inputs)
	return merged
}

var templateFuncs = template.FuncMap{
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
	// default возвращает def, если val не задан или пустая строка.
	"default": func(def, val any) any {
		if val == nil || val == "" {
			return def
		}
		return val
	},
	"join": func(sep string, items []string) string {
		return strings.Join(items, sep)
	},
	"lower":   strings.ToLower,
	"upper":   strings.ToUpper,
	"trim":    strings.TrimSpace,
	"replace": strings.ReplaceAll,
}

// Render подставляет vars в строку. Строка без "{{" не разбирается.
func Render(text string, vars Vars) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := template.New("config").Funcs(templateFuncs).Parse(text)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateParse, err)
	}

	var out strings.Builder
	if err := tmpl.Execute(&out, vars); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}
	return out.String(), nil
}

// RenderConfig рендерит все строки конфигурации, включая вложенные map
// и срезы. Исходная конфигурация не меняется.
func RenderConfig(config map[string]any, vars Vars) (map[string]any, error) {
	out := make(map[string]any, len(config))
	for key, value := range config {
		rendered, err := renderValue(value, vars)
		if err != nil {
			return nil, fmt.Errorf("config %q: %w", key, err)
		}
		out[key] = rendered
	}
	return out, nil
}

func renderValue(value any, vars Vars) (any, error) {
	switch v := value.(type) {
	case string:
		return Render(v, vars)
	case map[string]any:
		return RenderConfig(v, vars)
	case []any:
		return renderSlice(v, vars, renderValue)
	case []string:
		return renderSlice(v, vars, Render)
	default:
		return value, nil
	}
}

func renderSlice[T any](items []T, vars Vars, render func(T, Vars) (T, error)) ([]T, error) {
	out := make([]T, len(items))
	for i, item := range items {
		rendered, err := render(item, vars)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = rendered
	}
	return out, nil
}
