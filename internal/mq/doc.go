// Package mq связывает сервисы taskdep через RabbitMQ.
//
// API и scheduler публикуют run.requested, worker их выполняет,
// orchestrator публикует run.finished с execution record.
//
//   - connection.go — соединение с переподключением и сигналом Ready
//   - topology.go   — RunsTopology: обменники, очереди, DLQ
//   - message.go    — конверт Message и payload-типы
//   - publisher.go  — публикация с подтверждением брокера
//   - consumer.go   — чтение очереди, ack / requeue / dead-letter
//
// Ошибка обработчика, помеченная Permanent, сразу уходит в dlq.runs.
// Прочие ошибки возвращают сообщение в очередь один раз.
package mq
