package cli

import "errors"

// ErrRunFailed — run, выполненный через API, завершился со статусом FAILED.
var ErrRunFailed = errors.New("run failed")
