package api

import "errors"

// ErrTransport оборачивает любую ошибку обмена с сервером:
// сеть, таймаут, не-2xx ответ, неразбираемое тело.
var ErrTransport = errors.New("sync transport error")

// StatusError ответ сервера с кодом вне 2xx
type StatusError struct {
	Message    string
	StatusCode int
}

func (e *StatusError) Error() string {
	return e.Message
}

// HasStatus сообщает, что сервер ответил кодом code
func HasStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}
