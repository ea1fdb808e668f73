// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go      — Handler с DI (orchestrator, история runs, очередь, logger)
//   - routes.go       — регистрация маршрутов
//   - middleware.go   — middleware (logging, recovery)
//   - response.go     — унифицированные JSON-ответы и обработка ошибок
//   - dto.go          — Data Transfer Objects (request/response)
//   - run_handler.go  — обработчики для /runs
//   - plan_handler.go — обработчик для /plan
//
// Тело запроса принимается в JSON или YAML (Content-Type: application/yaml).
package api
