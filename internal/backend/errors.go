package backend

import (
	"errors"
	"fmt"
)

// ErrResponseTooLarge is returned when a backend body exceeds the configured limit.
var ErrResponseTooLarge = errors.New("backend: response body too large")

// StatusError is an unexpected non-2xx answer from the backend.
type StatusError struct {
	Code int
	Path string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: %s returned status %d", e.Path, e.Code)
}
