// Package telemetry — логи и метрики сервисов taskdep.
//
// Логи пишутся через slog. LOG_LEVEL и LOG_FORMAT читаются LogConfigFromEnv,
// логгер запроса или run передаётся через context (WithLogger, FromContext).
//
// Metrics собирает счётчики prometheus с префиксом taskdep_: задачи, циклы,
// runs и запросы API. *Metrics реализует engine.Observer, все методы
// допускают nil получатель.
package telemetry
