// Package worker выполняет графы, поставленные в очередь.
//
// # Обзор
//
// Worker — stateless компонент, который потребляет run.requested из
// очереди runs.requested и выполняет граф через orchestrator. Workers
// масштабируются горизонтально: несколько экземпляров потребляют
// из одной очереди, каждый run выполняется одним воркером.
//
//	w := worker.New(worker.Config{
//	    Runner: orch,
//	    Conn:   mqConn,
//	    Logger: logger,
//	})
//
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
// # Обработка ошибок
//
//   - Некорректный payload — сообщение уходит в DLQ (mq.Permanent)
//   - Невалидный граф, цикл, ошибка действия — run сохраняется как
//     FAILED, сообщение подтверждается: повтор дал бы тот же результат
//   - Shutdown до начала run — сообщение возвращается в очередь
//   - Shutdown во время run — run сохранён как FAILED, сообщение подтверждается
//
// Prefetch задаёт и лимит неподтверждённых сообщений, и число runs,
// выполняемых одновременно.
package worker
