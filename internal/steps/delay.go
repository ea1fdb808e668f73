package steps

import (
	"context"
	"fmt"
	"time"
)

// StepTypeDelay — пауза заданной длительности.
const StepTypeDelay = "delay"

// DelayStep приостанавливает задачу на duration, duration_sec или
// duration_ms (проверяются в этом порядке). Отмена ctx прерывает паузу.
//
//	{"duration": "1m30s"}
//	{"duration_sec": 10}
//	{"duration_ms": 500}
type DelayStep struct{}

// NewDelayStep создаёт DelayStep.
func NewDelayStep() *DelayStep { return &DelayStep{} }

// Type возвращает StepTypeDelay.
func (*DelayStep) Type() string { return StepTypeDelay }

// Execute ждёт окончания паузы или отмены ctx.
func (*DelayStep) Execute(ctx context.Context, req *Request) error {
	d, err := delayDuration(req.Config)
	if err != nil {
		return err
	}

	select {
	case <-time.After(d):
		req.Logger.Debug("delay elapsed", "duration", d)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w after %s: %w", ErrStepCancelled, d, ctx.Err())
	}
}

func delayDuration(config map[string]any) (time.Duration, error) {
	if s := GetConfigString(config, "duration"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return 0, fmt.Errorf("%w: delay: invalid duration %q", ErrInvalidConfig, s)
		}
		return d, nil
	}

	switch {
	case GetConfigInt(config, "duration_sec") > 0:
		return time.Duration(GetConfigInt(config, "duration_sec")) * time.Second, nil
	case GetConfigInt(config, "duration_ms") > 0:
		return time.Duration(GetConfigInt(config, "duration_ms")) * time.Millisecond, nil
	}

	return 0, fmt.Errorf("%w: delay: one of duration, duration_sec, duration_ms is required", ErrInvalidConfig)
}
