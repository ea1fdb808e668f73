// Package cli содержит команды утилиты taskdep.
//
// run, plan и validate работают с файлом графа в текущем процессе, без БД
// и очередей. runs list, show и submit обращаются к taskdep-api через Client:
//
//	client := cli.NewClient("http://localhost:8080")
//	runs, err := client.ListRuns(ctx, cli.ListRunsOpts{Status: "FAILED"})
//
// Ответ API с ошибкой возвращается как *APIError с кодом из тела ответа.
//
// Output печатает данные в stdout таблицей (text/tabwriter) или JSON с флагом
// --json, а сообщения и логи в stderr:
//
//	taskdep plan graph.yaml --json | jq -r '.order[]'
//
// Конструкторы команд получают clientFn, outputFn и loggerFn: зависимости
// создаются после разбора persistent-флагов.
package cli
