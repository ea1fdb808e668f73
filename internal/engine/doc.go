// Package engine содержит движок выполнения графа задач.
//
// Включает:
//   - task.go     — Task: ID, упорядоченные зависимости, действие
//   - executor.go — Engine: обход в глубину с тремя состояниями, выполнение и обнаружение циклов
//   - graph.go    — построение графа задач из GraphSpec
//   - parser.go   — парсинг GraphSpec из JSON/YAML и валидация
//   - template.go — рендеринг Go templates в конфигурации задач ({{ .Inputs.x }})
//
// Engine выполняет каждую задачу ровно один раз и только после всех её
// зависимостей, а цикл в зависимостях обрывает выполнение ошибкой
// ErrCyclicDependency.
package engine
