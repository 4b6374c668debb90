package api

import (
	"errors"
	"net/http"
)

// HTTPError ошибка с HTTP-статусом для ответа клиенту
type HTTPError struct {
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError создаёт HTTPError с кодом и сообщением
func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{
		Code:    code,
		Message: message,
	}
}

// toHTTPError переводит доменную ошибку в HTTPError.
// Текст ошибок 5xx наружу не отдаётся.
func toHTTPError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		return NewHTTPError(code, http.StatusText(code))
	}
	return NewHTTPError(code, err.Error())
}
