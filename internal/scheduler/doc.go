// Package scheduler запускает графы по расписанию.
//
// Расписания читаются из файла (SCHEDULES_FILE, YAML или JSON), каждое
// ссылается на файл графа и задаётся cron-выражением или интервалом.
// Scheduler проверяет next_due_at на каждом тике и выполняет due
// расписания через Orchestrator. С Store состояние (next_due_at,
// last_run_at, last_run_id) сохраняется после каждого запуска и
// восстанавливается через Restore.
//
// Структура:
//   - scheduler.go — Scheduler (Tick, processSchedule)
//   - schedules.go — загрузка и валидация файла расписаний
//   - cron.go      — парсинг cron-выражений и вычисление следующего времени
//
// Использование:
//
//	schedules, err := scheduler.LoadSchedules("schedules.yaml")
//	sched := scheduler.New(scheduler.Config{
//	    Runner:    orch,
//	    Store:     repo.NewScheduleRepo(pool),
//	    Schedules: schedules,
//	    Logger:    logger,
//	})
//	err = sched.Restore(ctx) // при получении лидерства
//
//	// Вызывается каждый тик (обычно раз в секунду)
//	sched.Tick(ctx, time.Now())
//
// Leader Election:
//
// Scheduler не реализует leader election самостоятельно.
// Это делается в main.go через pg_try_advisory_lock, Restore и Tick
// вызываются только лидером.
package scheduler
