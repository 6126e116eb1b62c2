package jtp

import (
	"fmt"
	"net/http"
)

var (
	ErrBadRequest          = BadRequestError(nil)
	ErrNotFound            = NotFoundError(nil)
	ErrInternalServerError = InternalServerError(nil)
	ErrTooLarge            = TooLargeError(nil)
	ErrTooManyRequests     = TooManyRequestsError(nil)
	ErrUnavailable         = UnavailableError(nil)
)

type HTTPError struct {
	StatusCode int
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Error: %s (http status %d)", e.Err.Error(), e.StatusCode)
	}
	return fmt.Sprintf("HTTP status %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches http errors by status code, so errors.Is(err, ErrNotFound)
// works for any 404.
func (e *HTTPError) Is(target error) bool {
	if t, ok := target.(*HTTPError); ok {
		return e.StatusCode == t.StatusCode
	}
	return false
}

func statusError(status int, err error) *HTTPError {
	return &HTTPError{StatusCode: status, Err: err}
}

func BadRequestError(err error) *HTTPError {
	return statusError(http.StatusBadRequest, err)
}

func NotFoundError(err error) *HTTPError {
	return statusError(http.StatusNotFound, err)
}

func InternalServerError(err error) *HTTPError {
	return statusError(http.StatusInternalServerError, err)
}

func TooLargeError(err error) *HTTPError {
	return statusError(http.StatusRequestEntityTooLarge, err)
}

func TooManyRequestsError(err error) *HTTPError {
	return statusError(http.StatusTooManyRequests, err)
}

func UnavailableError(err error) *HTTPError {
	return statusError(http.StatusServiceUnavailable, err)
}
