package clinical

import "errors"

var (
	// ErrNotFound is returned by record sources when the patient does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrForbidden is returned when the source refuses the caller's credentials.
	ErrForbidden = errors.New("access to record denied")
	// ErrUnavailable is returned when the source cannot be reached.
	ErrUnavailable = errors.New("record source unavailable")
)
