package mq

import "errors"

var (
	// ErrNoChannel — соединение сейчас не установлено.
	ErrNoChannel = errors.New("no channel available")

	// ErrClosed — Connection закрыт через Close.
	ErrClosed = errors.New("connection closed")

	// ErrNotConfirmed — брокер ответил nack на публикацию.
	ErrNotConfirmed = errors.New("publish not confirmed by broker")
)

// PermanentError помечает ошибку обработчика, после которой повтор
// не поможет. Сообщение уходит в DLQ без requeue.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return "permanent: " + e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent помечает ошибку обработчика как постоянную.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent проверяет, помечена ли ошибка как постоянная.
func IsPermanent(err error) bool {
	var pErr *PermanentError
	return errors.As(err, &pErr)
}
