// Package orchestrator управляет жизненным циклом run.
//
// Orchestrator отвечает за:
//   - Валидацию GraphSpec и построение графа задач
//   - Выбор корневой задачи
//   - Выполнение через новый engine.Engine на каждый run
//   - Финализацию run (SUCCEEDED/FAILED) и сохранение execution record
//   - Публикацию run.finished и метрики
//
// Orchestrator используется CLI, API, Worker и Scheduler одинаково.
package orchestrator
