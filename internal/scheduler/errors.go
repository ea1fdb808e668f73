package scheduler

import "errors"

var (
	// ErrNoTrigger — у schedule нет ни cron_expr, ни interval_sec.
	ErrNoTrigger = errors.New("schedule has neither cron_expr nor interval_sec")

	// ErrInvalidTimezone — неизвестный часовой пояс.
	ErrInvalidTimezone = errors.New("invalid timezone")

	// ErrInvalidSchedule — schedule не прошёл валидацию.
	ErrInvalidSchedule = errors.New("invalid schedule")
)
