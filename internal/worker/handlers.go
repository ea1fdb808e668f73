package worker

import (
	"context"

	"github.com/shaiso/taskdep/internal/mq"
	"github.com/shaiso/taskdep/internal/orchestrator"
)

// handleRunRequested обрабатывает сообщение из очереди runs.requested.
func (w *Worker) handleRunRequested(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.RunRequestedPayload](&delivery.Message)
	if err != nil {
		w.logger.Error("failed to parse run.requested payload",
			"message_id", delivery.Message.ID,
			"error", err,
		)
		return err
	}

	if payload.Spec == nil {
		return mq.Permanent(ErrMissingSpec)
	}

	logger := w.logger.With("graph", payload.Spec.Name)
	logger.Debug("received run.requested",
		"message_id", delivery.Message.ID,
		"root", payload.Root,
	)

	// Shutdown до начала run: ничего не выполнено и не сохранено,
	// сообщение возвращается в очередь.
	if err := ctx.Err(); err != nil {
		return err
	}

	run, err := w.runner.Run(ctx, orchestrator.RunRequest{
		Spec:   payload.Spec,
		Root:   payload.Root,
		Inputs: payload.Inputs,
		DryRun: payload.DryRun,
	})
	if err == nil {
		return nil
	}

	attrs := []any{"error", err}
	if run != nil {
		attrs = append(attrs, "run_id", run.ID)
	}

	// Run, прерванный shutdown'ом, уже сохранён как FAILED, и часть
	// действий выполнена: повторная доставка создала бы второй run и
	// вызвала их снова. Сообщение подтверждается.
	if ctx.Err() != nil {
		logger.Warn("run interrupted by shutdown", attrs...)
		return nil
	}

	// Невалидный граф, цикл или ошибка действия — результат окончательный,
	// run уже сохранён как FAILED.
	logger.Warn("run finished with error", attrs...)
	return nil
}
