// Package steps содержит действия задач графа.
//
// # Обзор
//
// Step — исполнитель конкретного типа задачи. Каждый шаг:
//   - Получает конфигурацию (уже отрендеренную через engine.RenderConfig)
//   - Выполняет действие (запись в лог, HTTP запрос, команда, задержка)
//   - Возвращает ошибку, если задача не выполнена
//
// Ошибка шага прерывает обход графа: Engine оборачивает её в *engine.TaskError.
//
// # Интерфейс Step
//
//	type Step interface {
//	    Type() string
//	    Execute(ctx context.Context, req *Request) error
//	}
//
// # Registry
//
// Registry — потокобезопасная таблица Step по типу:
//
//	registry := steps.DefaultRegistry()  // log, noop, delay, http, exec
//	step, err := registry.Get("http")
//	missing := registry.Missing(engine.ValidTaskTypes())
//
// # Типы шагов
//
// ## Log (log.go)
//
// Тип по умолчанию. Пишет "<task> executed" или message в лог задачи.
//
//	{"message": "deploying {{ .Inputs.env }}", "level": "warn", "fields": {"team": "infra"}}
//
// ## Noop (log.go)
//
// Ничего не делает. Полезен для задач-агрегаторов.
//
// ## Delay (delay.go)
//
//	{"duration": "1m30s"}  // или
//	{"duration_sec": 5}    // или
//	{"duration_ms": 500}
//
// ## HTTP (http.go)
//
//	{
//	    "method": "POST",
//	    "url": "https://api.example.com/deploy",
//	    "headers": {"Authorization": "Bearer {{ .Env.TOKEN }}"},
//	    "body": {"key": "value"},
//	    "expect_status": [200, 202],
//	    "follow_redirects": true,
//	    "validate_ssl": true
//	}
//
// Без expect_status успешным считается любой 2xx.
//
// ## Exec (exec.go)
//
//	{"command": "make", "args": ["build"], "dir": "/src", "env": {"GOOS": "linux"}}
//
// # ActionFactory
//
// NewActionFactory превращает domain.TaskDef в engine.Action: рендерит
// конфигурацию с inputs графа, выбирает Step по типу и применяет timeout_sec.
//
// # Файлы пакета
//
//   - step.go     — интерфейс Step, Request, ошибки, helpers конфигурации
//   - registry.go — Registry
//   - action.go   — NewActionFactory
//   - log.go      — LogStep, NoopStep
//   - delay.go    — DelayStep
//   - http.go     — HTTPStep
//   - exec.go     — ExecStep
package steps
